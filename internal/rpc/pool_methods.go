package rpc

import (
	"encoding/json"

	"github.com/LeJamon/goAMMd/internal/core/amount"
	"github.com/LeJamon/goAMMd/internal/core/asset"
	"github.com/LeJamon/goAMMd/internal/service"
)

// pairParams selects a pool either by its pair key or by naming both
// assets. Asset order does not matter.
type pairParams struct {
	Pair   string `json:"pair,omitempty"`
	AssetA string `json:"asset_a,omitempty"`
	AssetB string `json:"asset_b,omitempty"`
}

func (p pairParams) assets() (asset.Asset, asset.Asset, *RpcError) {
	if p.Pair != "" {
		pair, err := asset.ParsePair(p.Pair)
		if err != nil {
			return "", "", RpcErrorFromError(err)
		}
		return pair.Base, pair.Quote, nil
	}
	if p.AssetA == "" {
		return "", "", RpcErrorMissingField("asset_a")
	}
	if p.AssetB == "" {
		return "", "", RpcErrorMissingField("asset_b")
	}
	return asset.Asset(p.AssetA), asset.Asset(p.AssetB), nil
}

// unmarshalParams decodes the request object, tolerating absent params.
func unmarshalParams(params json.RawMessage, dst interface{}) *RpcError {
	if len(params) == 0 {
		return nil
	}
	if err := json.Unmarshal(params, dst); err != nil {
		return RpcErrorInvalidParams("Invalid parameters: " + err.Error())
	}
	return nil
}

func parseAmountField(field, value string) (amount.Amount, *RpcError) {
	if value == "" {
		return amount.Zero(), RpcErrorMissingField(field)
	}
	amt, err := amount.Parse(value)
	if err != nil {
		return amount.Zero(), RpcErrorFromError(err)
	}
	return amt, nil
}

func poolInfoJSON(info service.PoolInfo) map[string]interface{} {
	return map[string]interface{}{
		"pair":         info.Pair,
		"asset_a":      info.AssetA,
		"asset_b":      info.AssetB,
		"account":      info.Account,
		"reserve_a":    info.ReserveA,
		"reserve_b":    info.ReserveB,
		"total_shares": info.TotalShares,
		"providers":    info.Providers,
		"price":        info.Price,
		"last_seq":     info.LastSeq,
	}
}

func liquidityResultJSON(res service.LiquidityResult) map[string]interface{} {
	return map[string]interface{}{
		"pair":         res.Pair,
		"provider":     res.Provider,
		"asset_a":      res.AssetA,
		"amount_a":     res.AmountA,
		"asset_b":      res.AssetB,
		"amount_b":     res.AmountB,
		"shares":       res.Shares,
		"total_shares": res.TotalShares,
	}
}

// PoolCreateMethod handles the pool_create RPC method
type PoolCreateMethod struct {
	svc *service.Service
}

func (m *PoolCreateMethod) Handle(ctx *RpcContext, params json.RawMessage) (interface{}, *RpcError) {
	var request pairParams
	if rpcErr := unmarshalParams(params, &request); rpcErr != nil {
		return nil, rpcErr
	}

	a, b, rpcErr := request.assets()
	if rpcErr != nil {
		return nil, rpcErr
	}

	info, err := m.svc.CreatePool(ctx.Context, a, b)
	if err != nil {
		return nil, RpcErrorFromError(err)
	}

	return map[string]interface{}{
		"pool": poolInfoJSON(info),
	}, nil
}

func (m *PoolCreateMethod) RequiredRole() Role {
	return RoleGuest
}

// PoolAddLiquidityMethod handles the pool_add_liquidity RPC method
type PoolAddLiquidityMethod struct {
	svc *service.Service
}

func (m *PoolAddLiquidityMethod) Handle(ctx *RpcContext, params json.RawMessage) (interface{}, *RpcError) {
	var request struct {
		Provider string `json:"provider"`
		AssetA   string `json:"asset_a"`
		AmountA  string `json:"amount_a"`
		AssetB   string `json:"asset_b"`
		AmountB  string `json:"amount_b"`
	}
	if rpcErr := unmarshalParams(params, &request); rpcErr != nil {
		return nil, rpcErr
	}

	if request.Provider == "" {
		return nil, RpcErrorMissingField("provider")
	}
	if request.AssetA == "" {
		return nil, RpcErrorMissingField("asset_a")
	}
	if request.AssetB == "" {
		return nil, RpcErrorMissingField("asset_b")
	}
	amountA, rpcErr := parseAmountField("amount_a", request.AmountA)
	if rpcErr != nil {
		return nil, rpcErr
	}
	amountB, rpcErr := parseAmountField("amount_b", request.AmountB)
	if rpcErr != nil {
		return nil, rpcErr
	}

	res, err := m.svc.AddLiquidity(ctx.Context, request.Provider,
		asset.Asset(request.AssetA), amountA, asset.Asset(request.AssetB), amountB)
	if err != nil {
		return nil, RpcErrorFromError(err)
	}

	return liquidityResultJSON(res), nil
}

func (m *PoolAddLiquidityMethod) RequiredRole() Role {
	return RoleGuest
}

// PoolRemoveLiquidityMethod handles the pool_remove_liquidity RPC method
type PoolRemoveLiquidityMethod struct {
	svc *service.Service
}

func (m *PoolRemoveLiquidityMethod) Handle(ctx *RpcContext, params json.RawMessage) (interface{}, *RpcError) {
	var request struct {
		pairParams
		Provider string `json:"provider"`
		Shares   string `json:"shares"`
	}
	if rpcErr := unmarshalParams(params, &request); rpcErr != nil {
		return nil, rpcErr
	}

	if request.Provider == "" {
		return nil, RpcErrorMissingField("provider")
	}
	a, b, rpcErr := request.assets()
	if rpcErr != nil {
		return nil, rpcErr
	}
	shares, rpcErr := parseAmountField("shares", request.Shares)
	if rpcErr != nil {
		return nil, rpcErr
	}

	res, err := m.svc.RemoveLiquidity(ctx.Context, request.Provider, a, b, shares)
	if err != nil {
		return nil, RpcErrorFromError(err)
	}

	return liquidityResultJSON(res), nil
}

func (m *PoolRemoveLiquidityMethod) RequiredRole() Role {
	return RoleGuest
}

// PoolSwapMethod handles the pool_swap RPC method
type PoolSwapMethod struct {
	svc *service.Service
}

func (m *PoolSwapMethod) Handle(ctx *RpcContext, params json.RawMessage) (interface{}, *RpcError) {
	var request struct {
		Trader   string `json:"trader"`
		AssetIn  string `json:"asset_in"`
		AmountIn string `json:"amount_in"`
		AssetOut string `json:"asset_out"`
	}
	if rpcErr := unmarshalParams(params, &request); rpcErr != nil {
		return nil, rpcErr
	}

	if request.Trader == "" {
		return nil, RpcErrorMissingField("trader")
	}
	if request.AssetIn == "" {
		return nil, RpcErrorMissingField("asset_in")
	}
	if request.AssetOut == "" {
		return nil, RpcErrorMissingField("asset_out")
	}
	amountIn, rpcErr := parseAmountField("amount_in", request.AmountIn)
	if rpcErr != nil {
		return nil, rpcErr
	}

	res, err := m.svc.Swap(ctx.Context, request.Trader,
		asset.Asset(request.AssetIn), amountIn, asset.Asset(request.AssetOut))
	if err != nil {
		return nil, RpcErrorFromError(err)
	}

	return map[string]interface{}{
		"pair":       res.Pair,
		"trader":     res.Trader,
		"asset_in":   res.AssetIn,
		"amount_in":  res.AmountIn,
		"asset_out":  res.AssetOut,
		"amount_out": res.AmountOut,
	}, nil
}

func (m *PoolSwapMethod) RequiredRole() Role {
	return RoleGuest
}

// PoolQuoteMethod handles the pool_quote RPC method
type PoolQuoteMethod struct {
	svc *service.Service
}

func (m *PoolQuoteMethod) Handle(ctx *RpcContext, params json.RawMessage) (interface{}, *RpcError) {
	var request struct {
		AssetIn  string `json:"asset_in"`
		AmountIn string `json:"amount_in"`
		AssetOut string `json:"asset_out"`
	}
	if rpcErr := unmarshalParams(params, &request); rpcErr != nil {
		return nil, rpcErr
	}

	if request.AssetIn == "" {
		return nil, RpcErrorMissingField("asset_in")
	}
	if request.AssetOut == "" {
		return nil, RpcErrorMissingField("asset_out")
	}
	amountIn, rpcErr := parseAmountField("amount_in", request.AmountIn)
	if rpcErr != nil {
		return nil, rpcErr
	}

	res, err := m.svc.Quote(ctx.Context, asset.Asset(request.AssetIn), amountIn, asset.Asset(request.AssetOut))
	if err != nil {
		return nil, RpcErrorFromError(err)
	}

	return map[string]interface{}{
		"pair":       res.Pair,
		"asset_in":   res.AssetIn,
		"amount_in":  res.AmountIn,
		"asset_out":  res.AssetOut,
		"amount_out": res.AmountOut,
	}, nil
}

func (m *PoolQuoteMethod) RequiredRole() Role {
	return RoleGuest
}

// PoolPriceMethod handles the pool_price RPC method
type PoolPriceMethod struct {
	svc *service.Service
}

func (m *PoolPriceMethod) Handle(ctx *RpcContext, params json.RawMessage) (interface{}, *RpcError) {
	var request pairParams
	if rpcErr := unmarshalParams(params, &request); rpcErr != nil {
		return nil, rpcErr
	}

	a, b, rpcErr := request.assets()
	if rpcErr != nil {
		return nil, rpcErr
	}

	res, err := m.svc.Price(ctx.Context, a, b)
	if err != nil {
		return nil, RpcErrorFromError(err)
	}

	return map[string]interface{}{
		"pair":  res.Pair,
		"base":  res.Base,
		"quote": res.Quote,
		"price": res.Price,
	}, nil
}

func (m *PoolPriceMethod) RequiredRole() Role {
	return RoleGuest
}

// PoolReservesMethod handles the pool_reserves RPC method
type PoolReservesMethod struct {
	svc *service.Service
}

func (m *PoolReservesMethod) Handle(ctx *RpcContext, params json.RawMessage) (interface{}, *RpcError) {
	var request pairParams
	if rpcErr := unmarshalParams(params, &request); rpcErr != nil {
		return nil, rpcErr
	}

	a, b, rpcErr := request.assets()
	if rpcErr != nil {
		return nil, rpcErr
	}

	res, err := m.svc.Reserves(ctx.Context, a, b)
	if err != nil {
		return nil, RpcErrorFromError(err)
	}

	return map[string]interface{}{
		"pair":      res.Pair,
		"asset_a":   res.AssetA,
		"reserve_a": res.ReserveA,
		"asset_b":   res.AssetB,
		"reserve_b": res.ReserveB,
	}, nil
}

func (m *PoolReservesMethod) RequiredRole() Role {
	return RoleGuest
}

// PoolInfoMethod handles the pool_info RPC method
type PoolInfoMethod struct {
	svc *service.Service
}

func (m *PoolInfoMethod) Handle(ctx *RpcContext, params json.RawMessage) (interface{}, *RpcError) {
	var request pairParams
	if rpcErr := unmarshalParams(params, &request); rpcErr != nil {
		return nil, rpcErr
	}

	a, b, rpcErr := request.assets()
	if rpcErr != nil {
		return nil, rpcErr
	}

	info, err := m.svc.PoolInfo(ctx.Context, a, b)
	if err != nil {
		return nil, RpcErrorFromError(err)
	}

	return map[string]interface{}{
		"pool": poolInfoJSON(info),
	}, nil
}

func (m *PoolInfoMethod) RequiredRole() Role {
	return RoleGuest
}

// PoolListMethod handles the pool_list RPC method
type PoolListMethod struct {
	svc *service.Service
}

func (m *PoolListMethod) Handle(ctx *RpcContext, params json.RawMessage) (interface{}, *RpcError) {
	infos, err := m.svc.ListPools(ctx.Context)
	if err != nil {
		return nil, RpcErrorFromError(err)
	}

	pools := make([]map[string]interface{}, 0, len(infos))
	for _, info := range infos {
		pools = append(pools, poolInfoJSON(info))
	}

	return map[string]interface{}{
		"pools": pools,
		"count": len(pools),
	}, nil
}

func (m *PoolListMethod) RequiredRole() Role {
	return RoleGuest
}
