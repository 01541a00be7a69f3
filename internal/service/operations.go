package service

import (
	"context"

	"github.com/LeJamon/goAMMd/internal/core/amount"
	"github.com/LeJamon/goAMMd/internal/core/asset"
	"github.com/LeJamon/goAMMd/internal/core/pool"
)

// PoolAccount names the ledger account that holds a pool's reserves.
func PoolAccount(pair asset.Pair) string {
	return "pool:" + pair.Key()
}

// PoolInfo describes one pool. Amounts are reported in canonical pair
// order; Price is the quote-per-base rate scaled by 1e18, zero while
// the pool is empty.
type PoolInfo struct {
	Pair        string        `json:"pair"`
	AssetA      asset.Asset   `json:"asset_a"`
	AssetB      asset.Asset   `json:"asset_b"`
	Account     string        `json:"account"`
	ReserveA    amount.Amount `json:"reserve_a"`
	ReserveB    amount.Amount `json:"reserve_b"`
	TotalShares amount.Amount `json:"total_shares"`
	Providers   int           `json:"providers"`
	Price       amount.Amount `json:"price"`
	LastSeq     uint64        `json:"last_seq"`
}

// LiquidityResult reports a deposit or withdrawal in canonical pair
// order. Shares is the amount minted or burned.
type LiquidityResult struct {
	Pair        string        `json:"pair"`
	Provider    string        `json:"provider"`
	AssetA      asset.Asset   `json:"asset_a"`
	AmountA     amount.Amount `json:"amount_a"`
	AssetB      asset.Asset   `json:"asset_b"`
	AmountB     amount.Amount `json:"amount_b"`
	Shares      amount.Amount `json:"shares"`
	TotalShares amount.Amount `json:"total_shares"`
}

// SwapResult reports an executed swap.
type SwapResult struct {
	Pair      string        `json:"pair"`
	Trader    string        `json:"trader"`
	AssetIn   asset.Asset   `json:"asset_in"`
	AmountIn  amount.Amount `json:"amount_in"`
	AssetOut  asset.Asset   `json:"asset_out"`
	AmountOut amount.Amount `json:"amount_out"`
}

// QuoteResult prices a swap without executing it.
type QuoteResult struct {
	Pair      string        `json:"pair"`
	AssetIn   asset.Asset   `json:"asset_in"`
	AmountIn  amount.Amount `json:"amount_in"`
	AssetOut  asset.Asset   `json:"asset_out"`
	AmountOut amount.Amount `json:"amount_out"`
}

// PriceResult reports the marginal price of Base in Quote units,
// scaled by 1e18.
type PriceResult struct {
	Pair  string        `json:"pair"`
	Base  asset.Asset   `json:"base"`
	Quote asset.Asset   `json:"quote"`
	Price amount.Amount `json:"price"`
}

// ReservesResult reports both reserves in canonical pair order.
type ReservesResult struct {
	Pair     string        `json:"pair"`
	AssetA   asset.Asset   `json:"asset_a"`
	ReserveA amount.Amount `json:"reserve_a"`
	AssetB   asset.Asset   `json:"asset_b"`
	ReserveB amount.Amount `json:"reserve_b"`
}

// CreatePool registers an empty pool for the pair and persists its
// initial state.
func (s *Service) CreatePool(ctx context.Context, a, b asset.Asset) (PoolInfo, error) {
	if s.closed.Load() {
		return PoolInfo{}, ErrClosed
	}

	pair, err := asset.NewPair(a, b)
	if err != nil {
		return PoolInfo{}, err
	}

	p, err := pool.New(pair.Base, pair.Quote, PoolAccount(pair), s.ledger, s.bus.BindPool(pair))
	if err != nil {
		return PoolInfo{}, err
	}

	entry, err := s.registry.Add(pair, p)
	if err != nil {
		return PoolInfo{}, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if s.store != nil {
		if err := s.store.StoreSnapshot(ctx, p.State(), 0); err != nil {
			s.registry.remove(pair.Key())
			return PoolInfo{}, err
		}
	}

	s.logger.Printf("Created pool %s", pair.Key())
	return s.infoLocked(entry), nil
}

// AddLiquidity deposits both assets into the pair's pool and mints
// shares for the provider. Asset order does not matter; each amount
// follows its asset.
func (s *Service) AddLiquidity(ctx context.Context, provider string, x asset.Asset, amountX amount.Amount, y asset.Asset, amountY amount.Amount) (LiquidityResult, error) {
	if s.closed.Load() {
		return LiquidityResult{}, ErrClosed
	}

	entry, err := s.registry.Lookup(x, y)
	if err != nil {
		return LiquidityResult{}, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	amountA, amountB := orientAmounts(entry.Pair, x, amountX, amountY)
	minted, err := entry.Pool.AddLiquidity(provider, amountA, amountB)
	if err != nil {
		return LiquidityResult{}, err
	}
	s.persistState(ctx, entry)

	return LiquidityResult{
		Pair:        entry.Pair.Key(),
		Provider:    provider,
		AssetA:      entry.Pair.Base,
		AmountA:     amountA,
		AssetB:      entry.Pair.Quote,
		AmountB:     amountB,
		Shares:      minted,
		TotalShares: entry.Pool.TotalShares(),
	}, nil
}

// RemoveLiquidity burns the provider's shares against the pair's pool
// and pays out both assets proportionally.
func (s *Service) RemoveLiquidity(ctx context.Context, provider string, x, y asset.Asset, shares amount.Amount) (LiquidityResult, error) {
	if s.closed.Load() {
		return LiquidityResult{}, ErrClosed
	}

	entry, err := s.registry.Lookup(x, y)
	if err != nil {
		return LiquidityResult{}, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	amountA, amountB, err := entry.Pool.RemoveLiquidity(provider, shares)
	if err != nil {
		return LiquidityResult{}, err
	}
	s.persistState(ctx, entry)

	return LiquidityResult{
		Pair:        entry.Pair.Key(),
		Provider:    provider,
		AssetA:      entry.Pair.Base,
		AmountA:     amountA,
		AssetB:      entry.Pair.Quote,
		AmountB:     amountB,
		Shares:      shares,
		TotalShares: entry.Pool.TotalShares(),
	}, nil
}

// Swap sells amountIn of assetIn to the pool of the (assetIn, assetOut)
// pair and pays out assetOut.
func (s *Service) Swap(ctx context.Context, trader string, assetIn asset.Asset, amountIn amount.Amount, assetOut asset.Asset) (SwapResult, error) {
	if s.closed.Load() {
		return SwapResult{}, ErrClosed
	}

	entry, err := s.registry.Lookup(assetIn, assetOut)
	if err != nil {
		return SwapResult{}, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	out, err := entry.Pool.Swap(direction(entry.Pair, assetIn), trader, amountIn)
	if err != nil {
		return SwapResult{}, err
	}
	s.persistState(ctx, entry)

	return SwapResult{
		Pair:      entry.Pair.Key(),
		Trader:    trader,
		AssetIn:   assetIn,
		AmountIn:  amountIn,
		AssetOut:  assetOut,
		AmountOut: out,
	}, nil
}

// Quote prices a swap against the current reserves without executing
// anything.
func (s *Service) Quote(ctx context.Context, assetIn asset.Asset, amountIn amount.Amount, assetOut asset.Asset) (QuoteResult, error) {
	if s.closed.Load() {
		return QuoteResult{}, ErrClosed
	}

	entry, err := s.registry.Lookup(assetIn, assetOut)
	if err != nil {
		return QuoteResult{}, err
	}

	reserveA, reserveB := entry.Pool.Reserves()
	reserveIn, reserveOut := reserveA, reserveB
	if direction(entry.Pair, assetIn) == pool.BForA {
		reserveIn, reserveOut = reserveB, reserveA
	}

	out, err := pool.Quote(amountIn, reserveIn, reserveOut)
	if err != nil {
		return QuoteResult{}, err
	}

	return QuoteResult{
		Pair:      entry.Pair.Key(),
		AssetIn:   assetIn,
		AmountIn:  amountIn,
		AssetOut:  assetOut,
		AmountOut: out,
	}, nil
}

// Price reports the marginal quote-per-base price of the pair's pool.
func (s *Service) Price(ctx context.Context, a, b asset.Asset) (PriceResult, error) {
	if s.closed.Load() {
		return PriceResult{}, ErrClosed
	}

	entry, err := s.registry.Lookup(a, b)
	if err != nil {
		return PriceResult{}, err
	}

	price, err := entry.Pool.Price()
	if err != nil {
		return PriceResult{}, err
	}
	return PriceResult{
		Pair:  entry.Pair.Key(),
		Base:  entry.Pair.Base,
		Quote: entry.Pair.Quote,
		Price: price,
	}, nil
}

// Reserves reports both reserves of the pair's pool.
func (s *Service) Reserves(ctx context.Context, a, b asset.Asset) (ReservesResult, error) {
	if s.closed.Load() {
		return ReservesResult{}, ErrClosed
	}

	entry, err := s.registry.Lookup(a, b)
	if err != nil {
		return ReservesResult{}, err
	}

	reserveA, reserveB := entry.Pool.Reserves()
	return ReservesResult{
		Pair:     entry.Pair.Key(),
		AssetA:   entry.Pair.Base,
		ReserveA: reserveA,
		AssetB:   entry.Pair.Quote,
		ReserveB: reserveB,
	}, nil
}

// PoolInfo describes the pair's pool.
func (s *Service) PoolInfo(ctx context.Context, a, b asset.Asset) (PoolInfo, error) {
	if s.closed.Load() {
		return PoolInfo{}, ErrClosed
	}

	entry, err := s.registry.Lookup(a, b)
	if err != nil {
		return PoolInfo{}, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	return s.infoLocked(entry), nil
}

// ListPools describes every pool, ordered by pair key.
func (s *Service) ListPools(ctx context.Context) ([]PoolInfo, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}

	entries := s.registry.List()
	infos := make([]PoolInfo, 0, len(entries))
	for _, entry := range entries {
		entry.mu.Lock()
		infos = append(infos, s.infoLocked(entry))
		entry.mu.Unlock()
	}
	return infos, nil
}

// SharesOf reports the provider's share balance in the pair's pool.
func (s *Service) SharesOf(ctx context.Context, a, b asset.Asset, provider string) (amount.Amount, error) {
	if s.closed.Load() {
		return amount.Zero(), ErrClosed
	}

	entry, err := s.registry.Lookup(a, b)
	if err != nil {
		return amount.Zero(), err
	}
	return entry.Pool.SharesOf(provider), nil
}

// Balances reports every asset balance of an account.
func (s *Service) Balances(ctx context.Context, account string) (map[asset.Asset]amount.Amount, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}
	return s.ledger.Balances(account), nil
}

// AccountShares reports the account's share balances across all pools,
// keyed by pair, omitting empty positions.
func (s *Service) AccountShares(ctx context.Context, account string) (map[string]amount.Amount, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}

	shares := make(map[string]amount.Amount)
	for _, entry := range s.registry.List() {
		held := entry.Pool.SharesOf(account)
		if !held.IsZero() {
			shares[entry.Pair.Key()] = held
		}
	}
	return shares, nil
}

// infoLocked builds the pool description. Callers hold entry.mu so the
// fields describe one consistent state.
func (s *Service) infoLocked(entry *Entry) PoolInfo {
	p := entry.Pool
	reserveA, reserveB := p.Reserves()
	info := PoolInfo{
		Pair:        entry.Pair.Key(),
		AssetA:      entry.Pair.Base,
		AssetB:      entry.Pair.Quote,
		Account:     p.Account(),
		ReserveA:    reserveA,
		ReserveB:    reserveB,
		TotalShares: p.TotalShares(),
		Providers:   p.ProviderCount(),
		LastSeq:     entry.LastSeq(),
	}
	if price, err := p.Price(); err == nil {
		info.Price = price
	}
	return info
}

// orientAmounts maps caller asset order onto canonical pair order. x is
// the asset the first amount belongs to.
func orientAmounts(pair asset.Pair, x asset.Asset, amountX, amountY amount.Amount) (amount.Amount, amount.Amount) {
	if pair.Base == x {
		return amountX, amountY
	}
	return amountY, amountX
}

// direction maps the input asset onto the pool's swap orientation.
func direction(pair asset.Pair, assetIn asset.Asset) pool.Direction {
	if pair.Base == assetIn {
		return pool.AForB
	}
	return pool.BForA
}
