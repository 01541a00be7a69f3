// Package pool implements a two-asset constant-product liquidity pool.
// Deposits mint proportional ownership shares, withdrawals burn them, and
// swaps are priced so that reserveA*reserveB never decreases. Custody is
// delegated to an injected ledger; any transfer failure rolls the whole
// operation back.
package pool

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/LeJamon/goAMMd/internal/core/amount"
	"github.com/LeJamon/goAMMd/internal/core/asset"
	"github.com/LeJamon/goAMMd/internal/core/ledger"
)

// Direction selects the swap orientation.
type Direction uint8

const (
	// AForB sells assetA to the pool in exchange for assetB
	AForB Direction = iota
	// BForA sells assetB to the pool in exchange for assetA
	BForA
)

// String returns a human-readable direction name.
func (d Direction) String() string {
	switch d {
	case AForB:
		return "a_for_b"
	case BForA:
		return "b_for_a"
	default:
		return fmt.Sprintf("direction(%d)", uint8(d))
	}
}

// Pool is a single-pair constant-product market. A mutex serializes every
// public operation; an atomic guard flag is raised while ledger transfers
// and sink notifications run, so a call arriving from inside a callback is
// rejected with ErrReentrantCall instead of deadlocking.
type Pool struct {
	assetA  asset.Asset
	assetB  asset.Asset
	account string

	mu    sync.Mutex
	guard atomic.Bool

	reserveA      amount.Amount
	reserveB      amount.Amount
	totalShares   amount.Amount
	shareBalances map[string]amount.Amount

	ledger ledger.Ledger
	sink   Sink
}

// New creates an empty pool for the asset pair. The account is the ledger
// account the pool moves its reserves through. A nil sink discards
// notifications.
func New(assetA, assetB asset.Asset, account string, lgr ledger.Ledger, sink Sink) (*Pool, error) {
	if err := assetA.Validate(); err != nil {
		return nil, err
	}
	if err := assetB.Validate(); err != nil {
		return nil, err
	}
	if assetA == assetB {
		return nil, fmt.Errorf("%w: %s", asset.ErrDuplicateAsset, assetA)
	}
	if account == "" {
		return nil, fmt.Errorf("%w: empty pool account", ErrInvalidAccount)
	}
	if lgr == nil {
		return nil, ErrNilLedger
	}
	if sink == nil {
		sink = NopSink{}
	}

	return &Pool{
		assetA:        assetA,
		assetB:        assetB,
		account:       account,
		shareBalances: make(map[string]amount.Amount),
		ledger:        lgr,
		sink:          sink,
	}, nil
}

// AddLiquidity deposits both assets and mints shares for the provider.
// The first deposit mints floor(sqrt(amountA*amountB)) shares and fixes
// the initial price; later deposits mint the lesser of the two
// reserve-ratio claims.
func (p *Pool) AddLiquidity(provider string, amountA, amountB amount.Amount) (amount.Amount, error) {
	if p.guard.Load() {
		return amount.Zero(), ErrReentrantCall
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if provider == "" {
		return amount.Zero(), fmt.Errorf("%w: empty provider", ErrInvalidAccount)
	}
	if amountA.IsZero() || amountB.IsZero() {
		return amount.Zero(), ErrZeroAmount
	}

	var minted amount.Amount
	var err error
	if p.totalShares.IsZero() {
		minted, err = initialShares(amountA, amountB)
	} else {
		minted, err = sharesForDeposit(amountA, amountB, p.reserveA, p.reserveB, p.totalShares)
	}
	if err != nil {
		return amount.Zero(), fmt.Errorf("add liquidity: %w", err)
	}
	if minted.IsZero() {
		return amount.Zero(), ErrInsufficientLiquidityMinted
	}

	// Stage every new value before moving funds so the commit below
	// cannot fail halfway.
	newReserveA, err := p.reserveA.Add(amountA)
	if err != nil {
		return amount.Zero(), fmt.Errorf("add liquidity: reserve %s: %w", p.assetA, err)
	}
	newReserveB, err := p.reserveB.Add(amountB)
	if err != nil {
		return amount.Zero(), fmt.Errorf("add liquidity: reserve %s: %w", p.assetB, err)
	}
	newTotal, err := p.totalShares.Add(minted)
	if err != nil {
		return amount.Zero(), fmt.Errorf("add liquidity: total shares: %w", err)
	}
	newHolding, err := p.shareBalances[provider].Add(minted)
	if err != nil {
		return amount.Zero(), fmt.Errorf("add liquidity: provider shares: %w", err)
	}

	p.guard.Store(true)
	defer p.guard.Store(false)

	err = p.deposit(p.assetA, provider, amountA)
	if err == nil {
		if err = p.deposit(p.assetB, provider, amountB); err != nil {
			// Undo the first leg
			p.withdraw(p.assetA, provider, amountA)
		}
	}
	if err != nil {
		return amount.Zero(), fmt.Errorf("add liquidity: %w", err)
	}

	p.reserveA = newReserveA
	p.reserveB = newReserveB
	p.totalShares = newTotal
	p.shareBalances[provider] = newHolding

	p.sink.LiquidityAdded(LiquidityAdded{
		Provider:     provider,
		AmountA:      amountA,
		AmountB:      amountB,
		SharesMinted: minted,
	})
	return minted, nil
}

// RemoveLiquidity burns the provider's shares and pays out both reserves
// proportionally, rounding down.
func (p *Pool) RemoveLiquidity(provider string, shares amount.Amount) (amount.Amount, amount.Amount, error) {
	zero := amount.Zero()
	if p.guard.Load() {
		return zero, zero, ErrReentrantCall
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if provider == "" {
		return zero, zero, fmt.Errorf("%w: empty provider", ErrInvalidAccount)
	}
	if shares.IsZero() {
		return zero, zero, ErrZeroAmount
	}
	held := p.shareBalances[provider]
	if held.LessThan(shares) {
		return zero, zero, fmt.Errorf("%w: %s holds %s, burning %s",
			ErrInsufficientShares, provider, held, shares)
	}

	amountA, amountB, err := withdrawalAmounts(shares, p.reserveA, p.reserveB, p.totalShares)
	if err != nil {
		return zero, zero, fmt.Errorf("remove liquidity: %w", err)
	}
	if amountA.IsZero() || amountB.IsZero() {
		return zero, zero, ErrInsufficientOutputAmount
	}

	newReserveA, err := p.reserveA.Sub(amountA)
	if err != nil {
		return zero, zero, fmt.Errorf("remove liquidity: reserve %s: %w", p.assetA, err)
	}
	newReserveB, err := p.reserveB.Sub(amountB)
	if err != nil {
		return zero, zero, fmt.Errorf("remove liquidity: reserve %s: %w", p.assetB, err)
	}
	newTotal, err := p.totalShares.Sub(shares)
	if err != nil {
		return zero, zero, fmt.Errorf("remove liquidity: total shares: %w", err)
	}
	newHolding, err := held.Sub(shares)
	if err != nil {
		return zero, zero, fmt.Errorf("remove liquidity: provider shares: %w", err)
	}

	p.guard.Store(true)
	defer p.guard.Store(false)

	err = p.withdraw(p.assetA, provider, amountA)
	if err == nil {
		if err = p.withdraw(p.assetB, provider, amountB); err != nil {
			// Undo the first leg
			p.deposit(p.assetA, provider, amountA)
		}
	}
	if err != nil {
		return zero, zero, fmt.Errorf("remove liquidity: %w", err)
	}

	p.reserveA = newReserveA
	p.reserveB = newReserveB
	p.totalShares = newTotal
	if newHolding.IsZero() {
		delete(p.shareBalances, provider)
	} else {
		p.shareBalances[provider] = newHolding
	}

	p.sink.LiquidityRemoved(LiquidityRemoved{
		Provider:     provider,
		AmountA:      amountA,
		AmountB:      amountB,
		SharesBurned: shares,
	})
	return amountA, amountB, nil
}

// Swap trades an exact input amount for the quoted output amount.
func (p *Pool) Swap(dir Direction, trader string, amountIn amount.Amount) (amount.Amount, error) {
	if p.guard.Load() {
		return amount.Zero(), ErrReentrantCall
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if trader == "" {
		return amount.Zero(), fmt.Errorf("%w: empty trader", ErrInvalidAccount)
	}
	if amountIn.IsZero() {
		return amount.Zero(), ErrZeroAmount
	}

	var assetIn, assetOut asset.Asset
	var reserveIn, reserveOut amount.Amount
	switch dir {
	case AForB:
		assetIn, assetOut = p.assetA, p.assetB
		reserveIn, reserveOut = p.reserveA, p.reserveB
	case BForA:
		assetIn, assetOut = p.assetB, p.assetA
		reserveIn, reserveOut = p.reserveB, p.reserveA
	default:
		return amount.Zero(), fmt.Errorf("%w: %s", ErrInvalidDirection, dir)
	}

	if p.totalShares.IsZero() || reserveIn.IsZero() || reserveOut.IsZero() {
		return amount.Zero(), ErrNoLiquidity
	}

	amountOut, err := Quote(amountIn, reserveIn, reserveOut)
	if err != nil {
		return amount.Zero(), fmt.Errorf("swap: %w", err)
	}
	if amountOut.IsZero() {
		return amount.Zero(), ErrInsufficientOutputAmount
	}
	if !amountOut.LessThan(reserveOut) {
		return amount.Zero(), fmt.Errorf("%w: quoted %s against reserve %s",
			ErrInsufficientReserve, amountOut, reserveOut)
	}

	newReserveIn, err := reserveIn.Add(amountIn)
	if err != nil {
		return amount.Zero(), fmt.Errorf("swap: reserve %s: %w", assetIn, err)
	}
	newReserveOut, err := reserveOut.Sub(amountOut)
	if err != nil {
		return amount.Zero(), fmt.Errorf("swap: reserve %s: %w", assetOut, err)
	}

	p.guard.Store(true)
	defer p.guard.Store(false)

	err = p.deposit(assetIn, trader, amountIn)
	if err == nil {
		if err = p.withdraw(assetOut, trader, amountOut); err != nil {
			// Undo the first leg
			p.withdraw(assetIn, trader, amountIn)
		}
	}
	if err != nil {
		return amount.Zero(), fmt.Errorf("swap: %w", err)
	}

	if dir == AForB {
		p.reserveA, p.reserveB = newReserveIn, newReserveOut
	} else {
		p.reserveB, p.reserveA = newReserveIn, newReserveOut
	}

	p.sink.Swap(Swap{
		Trader:    trader,
		AssetIn:   assetIn,
		AssetOut:  assetOut,
		AmountIn:  amountIn,
		AmountOut: amountOut,
	})
	return amountOut, nil
}

// SwapAForB trades amountIn of assetA for assetB.
func (p *Pool) SwapAForB(trader string, amountIn amount.Amount) (amount.Amount, error) {
	return p.Swap(AForB, trader, amountIn)
}

// SwapBForA trades amountIn of assetB for assetA.
func (p *Pool) SwapBForA(trader string, amountIn amount.Amount) (amount.Amount, error) {
	return p.Swap(BForA, trader, amountIn)
}

// Price returns the spot price of assetA denominated in assetB, scaled by
// 10^18.
func (p *Pool) Price() (amount.Amount, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.reserveA.IsZero() {
		return amount.Zero(), ErrNoLiquidity
	}
	scaled, err := p.reserveB.Mul(amount.E18())
	if err != nil {
		return amount.Zero(), fmt.Errorf("price: %w", err)
	}
	return scaled.Div(p.reserveA)
}

// Reserves returns the current reserves in (assetA, assetB) order.
func (p *Pool) Reserves() (amount.Amount, amount.Amount) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.reserveA, p.reserveB
}

// TotalShares returns the total shares outstanding.
func (p *Pool) TotalShares() amount.Amount {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.totalShares
}

// SharesOf returns the provider's share balance, zero if absent.
func (p *Pool) SharesOf(provider string) amount.Amount {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.shareBalances[provider]
}

// ProviderCount returns the number of providers holding shares.
func (p *Pool) ProviderCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.shareBalances)
}

// ConstantProduct returns reserveA*reserveB.
func (p *Pool) ConstantProduct() (amount.Amount, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.reserveA.Mul(p.reserveB)
}

// Assets returns the asset pair in construction order.
func (p *Pool) Assets() (asset.Asset, asset.Asset) {
	return p.assetA, p.assetB
}

// Account returns the pool's ledger account.
func (p *Pool) Account() string {
	return p.account
}

// deposit moves funds from an account into pool custody, reversing the
// debit if the pool credit fails.
func (p *Pool) deposit(a asset.Asset, from string, amt amount.Amount) error {
	if err := p.ledger.Debit(a, from, amt); err != nil {
		return fmt.Errorf("debit %s %s from %s: %w", amt, a, from, err)
	}
	if err := p.ledger.Credit(a, p.account, amt); err != nil {
		p.ledger.Credit(a, from, amt)
		return fmt.Errorf("credit %s %s to pool: %w", amt, a, err)
	}
	return nil
}

// withdraw moves funds from pool custody to an account, reversing the
// debit if the credit fails.
func (p *Pool) withdraw(a asset.Asset, to string, amt amount.Amount) error {
	if err := p.ledger.Debit(a, p.account, amt); err != nil {
		return fmt.Errorf("debit %s %s from pool: %w", amt, a, err)
	}
	if err := p.ledger.Credit(a, to, amt); err != nil {
		p.ledger.Credit(a, p.account, amt)
		return fmt.Errorf("credit %s %s to %s: %w", amt, a, to, err)
	}
	return nil
}
