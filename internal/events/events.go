// Package events turns pool notifications into sequenced records and fans
// them out to in-process subscribers.
package events

import (
	"time"

	"github.com/LeJamon/goAMMd/internal/core/amount"
	"github.com/LeJamon/goAMMd/internal/core/asset"
)

// Kind names an event type on the wire.
type Kind string

const (
	KindLiquidityAdded   Kind = "liquidity_added"
	KindLiquidityRemoved Kind = "liquidity_removed"
	KindSwap             Kind = "swap"
)

// Valid reports whether the kind is one of the known event types.
func (k Kind) Valid() bool {
	switch k {
	case KindLiquidityAdded, KindLiquidityRemoved, KindSwap:
		return true
	}
	return false
}

// LiquidityPayload carries the fields of a deposit or withdrawal event.
// Shares is the minted count for deposits and the burned count for
// withdrawals.
type LiquidityPayload struct {
	Provider string        `json:"provider"`
	AmountA  amount.Amount `json:"amount_a"`
	AmountB  amount.Amount `json:"amount_b"`
	Shares   amount.Amount `json:"shares"`
}

// SwapPayload carries the fields of a swap event.
type SwapPayload struct {
	Trader    string        `json:"trader"`
	AssetIn   asset.Asset   `json:"asset_in"`
	AssetOut  asset.Asset   `json:"asset_out"`
	AmountIn  amount.Amount `json:"amount_in"`
	AmountOut amount.Amount `json:"amount_out"`
}

// Record is the daemon-level envelope around a single pool notification.
// Seq increases by one per committed mutation across all pools.
type Record struct {
	Seq  uint64    `json:"seq"`
	Time time.Time `json:"time"`
	Kind Kind      `json:"kind"`
	Pair string    `json:"pair"`

	Liquidity *LiquidityPayload `json:"liquidity,omitempty"`
	Swap      *SwapPayload      `json:"swap,omitempty"`
}
