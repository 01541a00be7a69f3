package pool

import (
	"fmt"

	"github.com/LeJamon/goAMMd/internal/core/amount"
	"github.com/LeJamon/goAMMd/internal/core/asset"
	"github.com/LeJamon/goAMMd/internal/core/ledger"
)

// State is a copyable snapshot of a pool, used for persistence and
// inspection.
type State struct {
	AssetA      asset.Asset
	AssetB      asset.Asset
	Account     string
	ReserveA    amount.Amount
	ReserveB    amount.Amount
	TotalShares amount.Amount
	Shares      map[string]amount.Amount
}

// State returns a consistent snapshot of the pool.
func (p *Pool) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()

	shares := make(map[string]amount.Amount, len(p.shareBalances))
	for provider, held := range p.shareBalances {
		shares[provider] = held
	}
	return State{
		AssetA:      p.assetA,
		AssetB:      p.assetB,
		Account:     p.account,
		ReserveA:    p.reserveA,
		ReserveB:    p.reserveB,
		TotalShares: p.totalShares,
		Shares:      shares,
	}
}

// FromState rebuilds a pool from a snapshot, checking the share and
// reserve invariants before accepting it.
func FromState(s State, lgr ledger.Ledger, sink Sink) (*Pool, error) {
	p, err := New(s.AssetA, s.AssetB, s.Account, lgr, sink)
	if err != nil {
		return nil, err
	}

	sum := amount.Zero()
	for provider, held := range s.Shares {
		if provider == "" {
			return nil, fmt.Errorf("%w: empty provider key", ErrCorruptState)
		}
		if held.IsZero() {
			return nil, fmt.Errorf("%w: zero share entry for %s", ErrCorruptState, provider)
		}
		sum, err = sum.Add(held)
		if err != nil {
			return nil, fmt.Errorf("%w: share sum: %v", ErrCorruptState, err)
		}
		p.shareBalances[provider] = held
	}
	if !sum.Equal(s.TotalShares) {
		return nil, fmt.Errorf("%w: share sum %s, total %s", ErrCorruptState, sum, s.TotalShares)
	}

	funded := !s.TotalShares.IsZero()
	reserved := !s.ReserveA.IsZero() && !s.ReserveB.IsZero()
	if funded != reserved {
		return nil, fmt.Errorf("%w: reserves %s/%s with total shares %s",
			ErrCorruptState, s.ReserveA, s.ReserveB, s.TotalShares)
	}

	p.reserveA = s.ReserveA
	p.reserveB = s.ReserveB
	p.totalShares = s.TotalShares
	return p, nil
}
