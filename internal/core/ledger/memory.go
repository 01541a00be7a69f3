package ledger

import (
	"fmt"
	"sort"
	"sync"

	"github.com/LeJamon/goAMMd/internal/core/amount"
	"github.com/LeJamon/goAMMd/internal/core/asset"
)

// Memory is an in-process Ledger keeping one balance book per asset.
// It is safe for concurrent use.
type Memory struct {
	mu    sync.RWMutex
	books map[asset.Asset]map[string]amount.Amount
}

// NewMemory creates an empty in-memory ledger.
func NewMemory() *Memory {
	return &Memory{
		books: make(map[asset.Asset]map[string]amount.Amount),
	}
}

// Mint credits newly issued funds to an account. Used for genesis funding
// and tests; regular transfers go through Debit and Credit.
func (m *Memory) Mint(a asset.Asset, account string, amt amount.Amount) error {
	if err := a.Validate(); err != nil {
		return err
	}
	if account == "" {
		return ErrInvalidAccount
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.credit(a, account, amt)
}

// Debit implements Ledger.
func (m *Memory) Debit(a asset.Asset, from string, amt amount.Amount) error {
	if from == "" {
		return ErrInvalidAccount
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	book := m.books[a]
	balance := book[from]
	if balance.LessThan(amt) {
		return fmt.Errorf("%w: account %s holds %s %s, needs %s",
			ErrInsufficientFunds, from, balance, a, amt)
	}

	remaining, err := balance.Sub(amt)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}
	if remaining.IsZero() {
		delete(book, from)
	} else {
		book[from] = remaining
	}
	return nil
}

// Credit implements Ledger.
func (m *Memory) Credit(a asset.Asset, to string, amt amount.Amount) error {
	if to == "" {
		return ErrInvalidAccount
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.credit(a, to, amt)
}

// credit adds to a balance; the caller holds the lock.
func (m *Memory) credit(a asset.Asset, to string, amt amount.Amount) error {
	book, ok := m.books[a]
	if !ok {
		book = make(map[string]amount.Amount)
		m.books[a] = book
	}

	updated, err := book[to].Add(amt)
	if err != nil {
		return fmt.Errorf("%w: crediting %s to %s: %v", ErrTransferFailed, amt, to, err)
	}
	if updated.IsZero() {
		return nil
	}
	book[to] = updated
	return nil
}

// Balance returns the account balance for the asset, zero if absent.
func (m *Memory) Balance(a asset.Asset, account string) amount.Amount {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.books[a][account]
}

// Balances returns every non-zero balance held by the account.
func (m *Memory) Balances(account string) map[asset.Asset]amount.Amount {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[asset.Asset]amount.Amount)
	for a, book := range m.books {
		if balance, ok := book[account]; ok {
			out[a] = balance
		}
	}
	return out
}

// Assets returns the sorted list of assets with at least one balance.
func (m *Memory) Assets() []asset.Asset {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]asset.Asset, 0, len(m.books))
	for a, book := range m.books {
		if len(book) > 0 {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
