package pool

import (
	"github.com/LeJamon/goAMMd/internal/core/amount"
	"github.com/LeJamon/goAMMd/internal/core/asset"
)

// LiquidityAdded is emitted after a successful deposit.
type LiquidityAdded struct {
	Provider     string
	AmountA      amount.Amount
	AmountB      amount.Amount
	SharesMinted amount.Amount
}

// LiquidityRemoved is emitted after a successful withdrawal.
type LiquidityRemoved struct {
	Provider     string
	AmountA      amount.Amount
	AmountB      amount.Amount
	SharesBurned amount.Amount
}

// Swap is emitted after a successful swap.
type Swap struct {
	Trader    string
	AssetIn   asset.Asset
	AssetOut  asset.Asset
	AmountIn  amount.Amount
	AmountOut amount.Amount
}

// Sink receives one notification per committed mutation. Notifications are
// delivered while the pool lock is held, so implementations must return
// quickly and must not call back into the pool.
type Sink interface {
	LiquidityAdded(LiquidityAdded)
	LiquidityRemoved(LiquidityRemoved)
	Swap(Swap)
}

// NopSink discards all notifications.
type NopSink struct{}

func (NopSink) LiquidityAdded(LiquidityAdded)     {}
func (NopSink) LiquidityRemoved(LiquidityRemoved) {}
func (NopSink) Swap(Swap)                         {}
