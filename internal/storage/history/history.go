// Package history records executed trades and liquidity changes in a
// relational database and serves windowed queries over them. It is an
// audit trail beside the pool store: rows are derived from committed
// events and keyed by the event sequence, so re-recording after a crash
// is harmless.
package history

import (
	"context"
	"time"

	"github.com/LeJamon/goAMMd/internal/core/amount"
	"github.com/LeJamon/goAMMd/internal/core/asset"
	"github.com/LeJamon/goAMMd/internal/events"
)

// ChangeKind distinguishes liquidity deposits from withdrawals.
type ChangeKind string

const (
	ChangeAdd    ChangeKind = "add"
	ChangeRemove ChangeKind = "remove"
)

// Valid reports whether the kind is one of the known values.
func (k ChangeKind) Valid() bool {
	return k == ChangeAdd || k == ChangeRemove
}

// Trade is one executed swap.
type Trade struct {
	Seq       uint64
	Time      time.Time
	Pair      string
	Trader    string
	AssetIn   asset.Asset
	AssetOut  asset.Asset
	AmountIn  amount.Amount
	AmountOut amount.Amount
}

// LiquidityChange is one liquidity deposit or withdrawal.
type LiquidityChange struct {
	Seq      uint64
	Time     time.Time
	Pair     string
	Provider string
	Kind     ChangeKind
	AmountA  amount.Amount
	AmountB  amount.Amount
	Shares   amount.Amount
}

// TradeQuery selects a window of trades for one pair, newest first
// unless Forward is set. MaxSeq of zero means no upper bound.
type TradeQuery struct {
	Pair    string
	Trader  string
	MinSeq  uint64
	MaxSeq  uint64
	Offset  int
	Limit   int
	Forward bool
}

// LiquidityQuery selects a window of liquidity changes for one
// provider, optionally restricted to a pair.
type LiquidityQuery struct {
	Provider string
	Pair     string
	MinSeq   uint64
	MaxSeq   uint64
	Offset   int
	Limit    int
	Forward  bool
}

// Counts summarizes the table sizes for status reporting.
type Counts struct {
	Trades           int64
	LiquidityChanges int64
}

// Store is the trade and liquidity history API.
type Store interface {
	// Open connects to the database and migrates the schema.
	Open(ctx context.Context) error

	// Close releases the database connection.
	Close(ctx context.Context) error

	// Ping verifies the connection is alive.
	Ping(ctx context.Context) error

	// RecordSwap inserts a trade row. Recording the same sequence
	// twice is a no-op.
	RecordSwap(ctx context.Context, t Trade) error

	// RecordLiquidityChange inserts a liquidity row. Recording the
	// same sequence twice is a no-op.
	RecordLiquidityChange(ctx context.Context, c LiquidityChange) error

	// TradesByPair returns trades matching the query window.
	TradesByPair(ctx context.Context, q TradeQuery) ([]Trade, error)

	// LiquidityByProvider returns liquidity changes matching the
	// query window.
	LiquidityByProvider(ctx context.Context, q LiquidityQuery) ([]LiquidityChange, error)

	// Counts reports row totals per table.
	Counts(ctx context.Context) (Counts, error)
}

// TradeFromEvent maps a committed swap event onto a trade row. The
// second return is false for non-swap events.
func TradeFromEvent(rec events.Record) (Trade, bool) {
	if rec.Kind != events.KindSwap || rec.Swap == nil {
		return Trade{}, false
	}
	return Trade{
		Seq:       rec.Seq,
		Time:      rec.Time,
		Pair:      rec.Pair,
		Trader:    rec.Swap.Trader,
		AssetIn:   rec.Swap.AssetIn,
		AssetOut:  rec.Swap.AssetOut,
		AmountIn:  rec.Swap.AmountIn,
		AmountOut: rec.Swap.AmountOut,
	}, true
}

// LiquidityChangeFromEvent maps a committed liquidity event onto a
// liquidity row. The second return is false for other event kinds.
func LiquidityChangeFromEvent(rec events.Record) (LiquidityChange, bool) {
	if rec.Liquidity == nil {
		return LiquidityChange{}, false
	}

	var kind ChangeKind
	switch rec.Kind {
	case events.KindLiquidityAdded:
		kind = ChangeAdd
	case events.KindLiquidityRemoved:
		kind = ChangeRemove
	default:
		return LiquidityChange{}, false
	}

	return LiquidityChange{
		Seq:      rec.Seq,
		Time:     rec.Time,
		Pair:     rec.Pair,
		Provider: rec.Liquidity.Provider,
		Kind:     kind,
		AmountA:  rec.Liquidity.AmountA,
		AmountB:  rec.Liquidity.AmountB,
		Shares:   rec.Liquidity.Shares,
	}, true
}
