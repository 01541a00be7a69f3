package rpc

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LeJamon/goAMMd/internal/core/amount"
	"github.com/LeJamon/goAMMd/internal/core/asset"
	"github.com/LeJamon/goAMMd/internal/core/ledger"
	"github.com/LeJamon/goAMMd/internal/events"
	"github.com/LeJamon/goAMMd/internal/service"
	"github.com/LeJamon/goAMMd/internal/storage/history"
)

const (
	testAlice = "alice"
	testBob   = "bob"

	// 100 BTC / 200 USD seed deposit, 18 decimal places
	seedAmountA = "100000000000000000000"
	seedAmountB = "200000000000000000000"

	// floor(sqrt(100e18 * 200e18))
	seedShares = "141421356237309504880"

	// floor(10e18 * 997 * 200e18 / (100e18*1000 + 10e18*997))
	swapInBTC  = "10000000000000000000"
	swapOutUSD = "18132217877602982631"
)

// newTestService builds a service over a freshly funded memory ledger.
// Persistence and history stay off unless a test opts in.
func newTestService(t *testing.T) *service.Service {
	t.Helper()

	book := ledger.NewMemory()
	for _, account := range []string{testAlice, testBob} {
		for _, a := range []asset.Asset{"BTC", "USD", "ETH"} {
			require.NoError(t, book.Mint(a, account, amount.MustParse("1000000000000000000000000")))
		}
	}

	bus, err := events.NewBus(64)
	require.NoError(t, err)

	svc, err := service.New(service.Options{Ledger: book, Bus: bus})
	require.NoError(t, err)

	t.Cleanup(func() { svc.Close(context.Background()) })
	return svc
}

// newTestServiceWithHistory is newTestService plus an in-memory history
// database.
func newTestServiceWithHistory(t *testing.T) *service.Service {
	t.Helper()

	book := ledger.NewMemory()
	for _, account := range []string{testAlice, testBob} {
		for _, a := range []asset.Asset{"BTC", "USD", "ETH"} {
			require.NoError(t, book.Mint(a, account, amount.MustParse("1000000000000000000000000")))
		}
	}

	bus, err := events.NewBus(64)
	require.NoError(t, err)

	hist, err := history.Open(context.Background(), history.MemoryConfig())
	require.NoError(t, err)

	svc, err := service.New(service.Options{Ledger: book, Bus: bus, History: hist})
	require.NoError(t, err)

	t.Cleanup(func() { svc.Close(context.Background()) })
	return svc
}

// testCtx returns a guest request context.
func testCtx() *RpcContext {
	return &RpcContext{
		Context: context.Background(),
		Role:    RoleGuest,
	}
}

// callOK invokes a handler and re-marshals the result into a generic
// map for field assertions.
func callOK(t *testing.T, method MethodHandler, params interface{}) map[string]interface{} {
	t.Helper()

	var raw json.RawMessage
	if params != nil {
		data, err := json.Marshal(params)
		require.NoError(t, err)
		raw = data
	}

	result, rpcErr := method.Handle(testCtx(), raw)
	require.Nil(t, rpcErr)
	require.NotNil(t, result)

	data, err := json.Marshal(result)
	require.NoError(t, err)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &resp))
	return resp
}

// callErr invokes a handler expecting a typed error.
func callErr(t *testing.T, method MethodHandler, params interface{}) *RpcError {
	t.Helper()

	var raw json.RawMessage
	if params != nil {
		data, err := json.Marshal(params)
		require.NoError(t, err)
		raw = data
	}

	result, rpcErr := method.Handle(testCtx(), raw)
	require.Nil(t, result)
	require.NotNil(t, rpcErr)
	return rpcErr
}

// seedPool creates the BTC/USD pool and funds it with alice's seed
// deposit.
func seedPool(t *testing.T, svc *service.Service) {
	t.Helper()

	callOK(t, &PoolCreateMethod{svc: svc}, map[string]interface{}{"pair": "BTC/USD"})
	callOK(t, &PoolAddLiquidityMethod{svc: svc}, map[string]interface{}{
		"provider": testAlice,
		"asset_a":  "BTC",
		"amount_a": seedAmountA,
		"asset_b":  "USD",
		"amount_b": seedAmountB,
	})
}

// =============================================================================
// pool_create
// =============================================================================

func TestPoolCreate(t *testing.T) {
	t.Run("create by pair string", func(t *testing.T) {
		svc := newTestService(t)
		resp := callOK(t, &PoolCreateMethod{svc: svc}, map[string]interface{}{"pair": "BTC/USD"})

		require.Contains(t, resp, "pool")
		pool := resp["pool"].(map[string]interface{})
		assert.Equal(t, "BTC/USD", pool["pair"])
		assert.Equal(t, "BTC", pool["asset_a"])
		assert.Equal(t, "USD", pool["asset_b"])
		assert.Equal(t, "pool:BTC/USD", pool["account"])
		assert.Equal(t, "0", pool["reserve_a"])
		assert.Equal(t, "0", pool["reserve_b"])
		assert.Equal(t, "0", pool["total_shares"])
		assert.Equal(t, float64(0), pool["providers"])
		assert.Equal(t, "0", pool["price"])
	})

	t.Run("create by asset fields", func(t *testing.T) {
		svc := newTestService(t)
		resp := callOK(t, &PoolCreateMethod{svc: svc}, map[string]interface{}{
			"asset_a": "USD",
			"asset_b": "BTC",
		})

		// Canonical order regardless of request order
		pool := resp["pool"].(map[string]interface{})
		assert.Equal(t, "BTC/USD", pool["pair"])
	})

	t.Run("duplicate pool rejected", func(t *testing.T) {
		svc := newTestService(t)
		callOK(t, &PoolCreateMethod{svc: svc}, map[string]interface{}{"pair": "BTC/USD"})

		rpcErr := callErr(t, &PoolCreateMethod{svc: svc}, map[string]interface{}{"pair": "USD/BTC"})
		assert.Equal(t, RpcPOOL_EXISTS, rpcErr.Code)
		assert.Equal(t, "poolExists", rpcErr.ErrorString)
	})

	t.Run("identical assets rejected", func(t *testing.T) {
		svc := newTestService(t)
		rpcErr := callErr(t, &PoolCreateMethod{svc: svc}, map[string]interface{}{"pair": "BTC/BTC"})
		assert.Equal(t, RpcDUPLICATE_ASSET, rpcErr.Code)
	})

	t.Run("invalid asset code rejected", func(t *testing.T) {
		svc := newTestService(t)
		rpcErr := callErr(t, &PoolCreateMethod{svc: svc}, map[string]interface{}{
			"asset_a": "btc!",
			"asset_b": "USD",
		})
		assert.Equal(t, RpcINVALID_ASSET, rpcErr.Code)
	})

	t.Run("missing assets rejected", func(t *testing.T) {
		svc := newTestService(t)
		rpcErr := callErr(t, &PoolCreateMethod{svc: svc}, map[string]interface{}{})
		assert.Equal(t, RpcINVALID_PARAMS, rpcErr.Code)
		assert.Contains(t, rpcErr.Message, "asset_a")
	})
}

// =============================================================================
// pool_add_liquidity
// =============================================================================

func TestPoolAddLiquidity(t *testing.T) {
	t.Run("first deposit mints geometric mean shares", func(t *testing.T) {
		svc := newTestService(t)
		callOK(t, &PoolCreateMethod{svc: svc}, map[string]interface{}{"pair": "BTC/USD"})

		resp := callOK(t, &PoolAddLiquidityMethod{svc: svc}, map[string]interface{}{
			"provider": testAlice,
			"asset_a":  "BTC",
			"amount_a": seedAmountA,
			"asset_b":  "USD",
			"amount_b": seedAmountB,
		})

		assert.Equal(t, "BTC/USD", resp["pair"])
		assert.Equal(t, testAlice, resp["provider"])
		assert.Equal(t, seedAmountA, resp["amount_a"])
		assert.Equal(t, seedAmountB, resp["amount_b"])
		assert.Equal(t, seedShares, resp["shares"])
		assert.Equal(t, seedShares, resp["total_shares"])
	})

	t.Run("asset order does not matter", func(t *testing.T) {
		svc := newTestService(t)
		callOK(t, &PoolCreateMethod{svc: svc}, map[string]interface{}{"pair": "BTC/USD"})

		// USD first; amounts land on the canonical sides anyway
		resp := callOK(t, &PoolAddLiquidityMethod{svc: svc}, map[string]interface{}{
			"provider": testAlice,
			"asset_a":  "USD",
			"amount_a": seedAmountB,
			"asset_b":  "BTC",
			"amount_b": seedAmountA,
		})

		assert.Equal(t, seedAmountA, resp["amount_a"])
		assert.Equal(t, seedAmountB, resp["amount_b"])
		assert.Equal(t, seedShares, resp["shares"])
	})

	t.Run("unknown pool rejected", func(t *testing.T) {
		svc := newTestService(t)
		rpcErr := callErr(t, &PoolAddLiquidityMethod{svc: svc}, map[string]interface{}{
			"provider": testAlice,
			"asset_a":  "BTC",
			"amount_a": seedAmountA,
			"asset_b":  "USD",
			"amount_b": seedAmountB,
		})
		assert.Equal(t, RpcPOOL_NOT_FOUND, rpcErr.Code)
		assert.Equal(t, "poolNotFound", rpcErr.ErrorString)
	})

	t.Run("zero amount rejected", func(t *testing.T) {
		svc := newTestService(t)
		seedPool(t, svc)
		rpcErr := callErr(t, &PoolAddLiquidityMethod{svc: svc}, map[string]interface{}{
			"provider": testBob,
			"asset_a":  "BTC",
			"amount_a": "0",
			"asset_b":  "USD",
			"amount_b": seedAmountB,
		})
		assert.Equal(t, RpcZERO_AMOUNT, rpcErr.Code)
	})

	t.Run("missing fields rejected one by one", func(t *testing.T) {
		svc := newTestService(t)
		seedPool(t, svc)

		full := map[string]interface{}{
			"provider": testBob,
			"asset_a":  "BTC",
			"amount_a": seedAmountA,
			"asset_b":  "USD",
			"amount_b": seedAmountB,
		}

		for _, field := range []string{"provider", "asset_a", "amount_a", "asset_b", "amount_b"} {
			t.Run(field, func(t *testing.T) {
				params := make(map[string]interface{}, len(full))
				for k, v := range full {
					if k != field {
						params[k] = v
					}
				}
				rpcErr := callErr(t, &PoolAddLiquidityMethod{svc: svc}, params)
				assert.Equal(t, RpcINVALID_PARAMS, rpcErr.Code)
				assert.Contains(t, rpcErr.Message, field)
			})
		}
	})

	t.Run("malformed amount rejected", func(t *testing.T) {
		svc := newTestService(t)
		seedPool(t, svc)
		rpcErr := callErr(t, &PoolAddLiquidityMethod{svc: svc}, map[string]interface{}{
			"provider": testBob,
			"asset_a":  "BTC",
			"amount_a": "ten",
			"asset_b":  "USD",
			"amount_b": seedAmountB,
		})
		assert.Equal(t, RpcINVALID_AMOUNT, rpcErr.Code)
	})

	t.Run("insufficient funds rejected", func(t *testing.T) {
		svc := newTestService(t)
		seedPool(t, svc)
		rpcErr := callErr(t, &PoolAddLiquidityMethod{svc: svc}, map[string]interface{}{
			"provider": "pauper",
			"asset_a":  "BTC",
			"amount_a": seedAmountA,
			"asset_b":  "USD",
			"amount_b": seedAmountB,
		})
		assert.Equal(t, RpcINSUFFICIENT_FUNDS, rpcErr.Code)
	})
}

// =============================================================================
// pool_remove_liquidity
// =============================================================================

func TestPoolRemoveLiquidity(t *testing.T) {
	t.Run("burning half the shares pays out half the reserves", func(t *testing.T) {
		svc := newTestService(t)
		seedPool(t, svc)

		half := "70710678118654752440"
		resp := callOK(t, &PoolRemoveLiquidityMethod{svc: svc}, map[string]interface{}{
			"pair":     "BTC/USD",
			"provider": testAlice,
			"shares":   half,
		})

		assert.Equal(t, "50000000000000000000", resp["amount_a"])
		assert.Equal(t, "100000000000000000000", resp["amount_b"])
		assert.Equal(t, half, resp["shares"])
		assert.Equal(t, half, resp["total_shares"])
	})

	t.Run("burning everything empties the pool", func(t *testing.T) {
		svc := newTestService(t)
		seedPool(t, svc)

		resp := callOK(t, &PoolRemoveLiquidityMethod{svc: svc}, map[string]interface{}{
			"pair":     "BTC/USD",
			"provider": testAlice,
			"shares":   seedShares,
		})
		assert.Equal(t, "0", resp["total_shares"])

		info := callOK(t, &PoolInfoMethod{svc: svc}, map[string]interface{}{"pair": "BTC/USD"})
		pool := info["pool"].(map[string]interface{})
		assert.Equal(t, "0", pool["reserve_a"])
		assert.Equal(t, "0", pool["reserve_b"])
	})

	t.Run("more shares than held rejected", func(t *testing.T) {
		svc := newTestService(t)
		seedPool(t, svc)

		rpcErr := callErr(t, &PoolRemoveLiquidityMethod{svc: svc}, map[string]interface{}{
			"pair":     "BTC/USD",
			"provider": testAlice,
			"shares":   "999999999999999999999999",
		})
		assert.Equal(t, RpcINSUFFICIENT_SHARES, rpcErr.Code)
	})

	t.Run("stranger holds no shares", func(t *testing.T) {
		svc := newTestService(t)
		seedPool(t, svc)

		rpcErr := callErr(t, &PoolRemoveLiquidityMethod{svc: svc}, map[string]interface{}{
			"pair":     "BTC/USD",
			"provider": testBob,
			"shares":   "1",
		})
		assert.Equal(t, RpcINSUFFICIENT_SHARES, rpcErr.Code)
	})

	t.Run("zero shares rejected", func(t *testing.T) {
		svc := newTestService(t)
		seedPool(t, svc)

		rpcErr := callErr(t, &PoolRemoveLiquidityMethod{svc: svc}, map[string]interface{}{
			"pair":     "BTC/USD",
			"provider": testAlice,
			"shares":   "0",
		})
		assert.Equal(t, RpcZERO_AMOUNT, rpcErr.Code)
	})

	t.Run("unknown pool rejected", func(t *testing.T) {
		svc := newTestService(t)
		rpcErr := callErr(t, &PoolRemoveLiquidityMethod{svc: svc}, map[string]interface{}{
			"pair":     "BTC/USD",
			"provider": testAlice,
			"shares":   "1",
		})
		assert.Equal(t, RpcPOOL_NOT_FOUND, rpcErr.Code)
	})
}

// =============================================================================
// pool_swap and pool_quote
// =============================================================================

func TestPoolSwap(t *testing.T) {
	t.Run("swap charges the 0.3 percent fee", func(t *testing.T) {
		svc := newTestService(t)
		seedPool(t, svc)

		resp := callOK(t, &PoolSwapMethod{svc: svc}, map[string]interface{}{
			"trader":    testBob,
			"asset_in":  "BTC",
			"amount_in": swapInBTC,
			"asset_out": "USD",
		})

		assert.Equal(t, "BTC/USD", resp["pair"])
		assert.Equal(t, testBob, resp["trader"])
		assert.Equal(t, "BTC", resp["asset_in"])
		assert.Equal(t, swapInBTC, resp["amount_in"])
		assert.Equal(t, "USD", resp["asset_out"])
		assert.Equal(t, swapOutUSD, resp["amount_out"])

		// Reserves moved by exactly the swap legs
		reserves := callOK(t, &PoolReservesMethod{svc: svc}, map[string]interface{}{"pair": "BTC/USD"})
		assert.Equal(t, "110000000000000000000", reserves["reserve_a"])
		assert.Equal(t, "181867782122397017369", reserves["reserve_b"])
	})

	t.Run("swap against empty pool rejected", func(t *testing.T) {
		svc := newTestService(t)
		callOK(t, &PoolCreateMethod{svc: svc}, map[string]interface{}{"pair": "BTC/USD"})

		rpcErr := callErr(t, &PoolSwapMethod{svc: svc}, map[string]interface{}{
			"trader":    testBob,
			"asset_in":  "BTC",
			"amount_in": swapInBTC,
			"asset_out": "USD",
		})
		assert.Equal(t, RpcNO_LIQUIDITY, rpcErr.Code)
	})

	t.Run("zero input rejected", func(t *testing.T) {
		svc := newTestService(t)
		seedPool(t, svc)

		rpcErr := callErr(t, &PoolSwapMethod{svc: svc}, map[string]interface{}{
			"trader":    testBob,
			"asset_in":  "BTC",
			"amount_in": "0",
			"asset_out": "USD",
		})
		assert.Equal(t, RpcZERO_AMOUNT, rpcErr.Code)
	})

	t.Run("unknown pool rejected", func(t *testing.T) {
		svc := newTestService(t)
		rpcErr := callErr(t, &PoolSwapMethod{svc: svc}, map[string]interface{}{
			"trader":    testBob,
			"asset_in":  "BTC",
			"amount_in": swapInBTC,
			"asset_out": "ETH",
		})
		assert.Equal(t, RpcPOOL_NOT_FOUND, rpcErr.Code)
	})
}

func TestPoolQuote(t *testing.T) {
	t.Run("quote matches the swap price without trading", func(t *testing.T) {
		svc := newTestService(t)
		seedPool(t, svc)

		resp := callOK(t, &PoolQuoteMethod{svc: svc}, map[string]interface{}{
			"asset_in":  "BTC",
			"amount_in": swapInBTC,
			"asset_out": "USD",
		})
		assert.Equal(t, swapOutUSD, resp["amount_out"])

		// Nothing moved
		reserves := callOK(t, &PoolReservesMethod{svc: svc}, map[string]interface{}{"pair": "BTC/USD"})
		assert.Equal(t, seedAmountA, reserves["reserve_a"])
		assert.Equal(t, seedAmountB, reserves["reserve_b"])
	})

	t.Run("quote needs no trader", func(t *testing.T) {
		svc := newTestService(t)
		seedPool(t, svc)

		resp := callOK(t, &PoolQuoteMethod{svc: svc}, map[string]interface{}{
			"asset_in":  "USD",
			"amount_in": "1000000000000000000",
			"asset_out": "BTC",
		})
		assert.Equal(t, "USD", resp["asset_in"])
		assert.Equal(t, "BTC", resp["asset_out"])
		assert.NotEqual(t, "0", resp["amount_out"])
	})

	t.Run("quote against empty pool rejected", func(t *testing.T) {
		svc := newTestService(t)
		callOK(t, &PoolCreateMethod{svc: svc}, map[string]interface{}{"pair": "BTC/USD"})

		rpcErr := callErr(t, &PoolQuoteMethod{svc: svc}, map[string]interface{}{
			"asset_in":  "BTC",
			"amount_in": swapInBTC,
			"asset_out": "USD",
		})
		assert.Equal(t, RpcNO_LIQUIDITY, rpcErr.Code)
	})
}

// =============================================================================
// pool_price, pool_reserves, pool_info, pool_list
// =============================================================================

func TestPoolPrice(t *testing.T) {
	t.Run("price is quote per base scaled by 1e18", func(t *testing.T) {
		svc := newTestService(t)
		seedPool(t, svc)

		resp := callOK(t, &PoolPriceMethod{svc: svc}, map[string]interface{}{"pair": "BTC/USD"})
		assert.Equal(t, "BTC/USD", resp["pair"])
		assert.Equal(t, "BTC", resp["base"])
		assert.Equal(t, "USD", resp["quote"])
		assert.Equal(t, "2000000000000000000", resp["price"])
	})

	t.Run("price moves with the reserves", func(t *testing.T) {
		svc := newTestService(t)
		seedPool(t, svc)

		callOK(t, &PoolSwapMethod{svc: svc}, map[string]interface{}{
			"trader":    testBob,
			"asset_in":  "BTC",
			"amount_in": swapInBTC,
			"asset_out": "USD",
		})

		resp := callOK(t, &PoolPriceMethod{svc: svc}, map[string]interface{}{"pair": "BTC/USD"})
		assert.Equal(t, "1653343473839972885", resp["price"])
	})

	t.Run("empty pool has no price", func(t *testing.T) {
		svc := newTestService(t)
		callOK(t, &PoolCreateMethod{svc: svc}, map[string]interface{}{"pair": "BTC/USD"})

		rpcErr := callErr(t, &PoolPriceMethod{svc: svc}, map[string]interface{}{"pair": "BTC/USD"})
		assert.Equal(t, RpcNO_LIQUIDITY, rpcErr.Code)
	})

	t.Run("unknown pool rejected", func(t *testing.T) {
		svc := newTestService(t)
		rpcErr := callErr(t, &PoolPriceMethod{svc: svc}, map[string]interface{}{"pair": "BTC/USD"})
		assert.Equal(t, RpcPOOL_NOT_FOUND, rpcErr.Code)
	})
}

func TestPoolReserves(t *testing.T) {
	svc := newTestService(t)
	seedPool(t, svc)

	resp := callOK(t, &PoolReservesMethod{svc: svc}, map[string]interface{}{"pair": "USD/BTC"})
	assert.Equal(t, "BTC/USD", resp["pair"])
	assert.Equal(t, "BTC", resp["asset_a"])
	assert.Equal(t, seedAmountA, resp["reserve_a"])
	assert.Equal(t, "USD", resp["asset_b"])
	assert.Equal(t, seedAmountB, resp["reserve_b"])
}

func TestPoolInfo(t *testing.T) {
	t.Run("info reports reserves, shares and providers", func(t *testing.T) {
		svc := newTestService(t)
		seedPool(t, svc)

		resp := callOK(t, &PoolInfoMethod{svc: svc}, map[string]interface{}{"pair": "BTC/USD"})
		pool := resp["pool"].(map[string]interface{})
		assert.Equal(t, "BTC/USD", pool["pair"])
		assert.Equal(t, "pool:BTC/USD", pool["account"])
		assert.Equal(t, seedAmountA, pool["reserve_a"])
		assert.Equal(t, seedAmountB, pool["reserve_b"])
		assert.Equal(t, seedShares, pool["total_shares"])
		assert.Equal(t, float64(1), pool["providers"])
		assert.Equal(t, "2000000000000000000", pool["price"])
	})

	t.Run("unknown pool rejected", func(t *testing.T) {
		svc := newTestService(t)
		rpcErr := callErr(t, &PoolInfoMethod{svc: svc}, map[string]interface{}{"pair": "BTC/USD"})
		assert.Equal(t, RpcPOOL_NOT_FOUND, rpcErr.Code)
	})
}

func TestPoolList(t *testing.T) {
	t.Run("empty registry lists nothing", func(t *testing.T) {
		svc := newTestService(t)
		resp := callOK(t, &PoolListMethod{svc: svc}, nil)
		assert.Equal(t, float64(0), resp["count"])
		assert.Empty(t, resp["pools"])
	})

	t.Run("pools come back sorted by pair", func(t *testing.T) {
		svc := newTestService(t)
		callOK(t, &PoolCreateMethod{svc: svc}, map[string]interface{}{"pair": "ETH/USD"})
		callOK(t, &PoolCreateMethod{svc: svc}, map[string]interface{}{"pair": "BTC/USD"})
		callOK(t, &PoolCreateMethod{svc: svc}, map[string]interface{}{"pair": "BTC/ETH"})

		resp := callOK(t, &PoolListMethod{svc: svc}, nil)
		assert.Equal(t, float64(3), resp["count"])

		pools := resp["pools"].([]interface{})
		require.Len(t, pools, 3)
		var pairs []string
		for _, p := range pools {
			pairs = append(pairs, p.(map[string]interface{})["pair"].(string))
		}
		assert.Equal(t, []string{"BTC/ETH", "BTC/USD", "ETH/USD"}, pairs)
	})
}
