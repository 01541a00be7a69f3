package rpc

import (
	"encoding/json"

	"github.com/LeJamon/goAMMd/internal/service"
	"github.com/LeJamon/goAMMd/internal/storage/history"
)

// HistoryTradesMethod handles the history_trades RPC method
type HistoryTradesMethod struct {
	svc *service.Service
}

func (m *HistoryTradesMethod) Handle(ctx *RpcContext, params json.RawMessage) (interface{}, *RpcError) {
	store := m.svc.History()
	if store == nil {
		return nil, RpcErrorNotEnabled("history")
	}

	var request struct {
		Pair    string `json:"pair"`
		Trader  string `json:"trader,omitempty"`
		MinSeq  uint64 `json:"min_seq,omitempty"`
		MaxSeq  uint64 `json:"max_seq,omitempty"`
		Offset  int    `json:"offset,omitempty"`
		Limit   int    `json:"limit,omitempty"`
		Forward bool   `json:"forward,omitempty"`
	}
	if rpcErr := unmarshalParams(params, &request); rpcErr != nil {
		return nil, rpcErr
	}

	if request.Pair == "" {
		return nil, RpcErrorMissingField("pair")
	}

	trades, err := store.TradesByPair(ctx.Context, history.TradeQuery{
		Pair:    request.Pair,
		Trader:  request.Trader,
		MinSeq:  request.MinSeq,
		MaxSeq:  request.MaxSeq,
		Offset:  request.Offset,
		Limit:   request.Limit,
		Forward: request.Forward,
	})
	if err != nil {
		return nil, RpcErrorFromError(err)
	}

	rows := make([]map[string]interface{}, 0, len(trades))
	for _, t := range trades {
		rows = append(rows, map[string]interface{}{
			"seq":        t.Seq,
			"time":       t.Time,
			"pair":       t.Pair,
			"trader":     t.Trader,
			"asset_in":   t.AssetIn,
			"asset_out":  t.AssetOut,
			"amount_in":  t.AmountIn,
			"amount_out": t.AmountOut,
		})
	}

	return map[string]interface{}{
		"pair":   request.Pair,
		"trades": rows,
		"count":  len(rows),
	}, nil
}

func (m *HistoryTradesMethod) RequiredRole() Role {
	return RoleGuest
}

// HistoryLiquidityMethod handles the history_liquidity RPC method
type HistoryLiquidityMethod struct {
	svc *service.Service
}

func (m *HistoryLiquidityMethod) Handle(ctx *RpcContext, params json.RawMessage) (interface{}, *RpcError) {
	store := m.svc.History()
	if store == nil {
		return nil, RpcErrorNotEnabled("history")
	}

	var request struct {
		Provider string `json:"provider"`
		Pair     string `json:"pair,omitempty"`
		MinSeq   uint64 `json:"min_seq,omitempty"`
		MaxSeq   uint64 `json:"max_seq,omitempty"`
		Offset   int    `json:"offset,omitempty"`
		Limit    int    `json:"limit,omitempty"`
		Forward  bool   `json:"forward,omitempty"`
	}
	if rpcErr := unmarshalParams(params, &request); rpcErr != nil {
		return nil, rpcErr
	}

	if request.Provider == "" {
		return nil, RpcErrorMissingField("provider")
	}

	changes, err := store.LiquidityByProvider(ctx.Context, history.LiquidityQuery{
		Provider: request.Provider,
		Pair:     request.Pair,
		MinSeq:   request.MinSeq,
		MaxSeq:   request.MaxSeq,
		Offset:   request.Offset,
		Limit:    request.Limit,
		Forward:  request.Forward,
	})
	if err != nil {
		return nil, RpcErrorFromError(err)
	}

	rows := make([]map[string]interface{}, 0, len(changes))
	for _, c := range changes {
		rows = append(rows, map[string]interface{}{
			"seq":      c.Seq,
			"time":     c.Time,
			"pair":     c.Pair,
			"provider": c.Provider,
			"kind":     c.Kind,
			"amount_a": c.AmountA,
			"amount_b": c.AmountB,
			"shares":   c.Shares,
		})
	}

	return map[string]interface{}{
		"provider": request.Provider,
		"changes":  rows,
		"count":    len(rows),
	}, nil
}

func (m *HistoryLiquidityMethod) RequiredRole() Role {
	return RoleGuest
}
