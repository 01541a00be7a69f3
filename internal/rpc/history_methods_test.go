package rpc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistoryTrades(t *testing.T) {
	t.Run("disabled history reports notEnabled", func(t *testing.T) {
		svc := newTestService(t)
		rpcErr := callErr(t, &HistoryTradesMethod{svc: svc}, map[string]interface{}{"pair": "BTC/USD"})
		assert.Equal(t, RpcNOT_ENABLED, rpcErr.Code)
		assert.Equal(t, "notEnabled", rpcErr.ErrorString)
	})

	t.Run("trades come back newest first", func(t *testing.T) {
		svc := newTestServiceWithHistory(t)
		seedPool(t, svc)

		swap := &PoolSwapMethod{svc: svc}
		callOK(t, swap, map[string]interface{}{
			"trader":    testBob,
			"asset_in":  "BTC",
			"amount_in": "1000000000000000000",
			"asset_out": "USD",
		})
		callOK(t, swap, map[string]interface{}{
			"trader":    testAlice,
			"asset_in":  "USD",
			"amount_in": "1000000000000000000",
			"asset_out": "BTC",
		})

		resp := callOK(t, &HistoryTradesMethod{svc: svc}, map[string]interface{}{"pair": "BTC/USD"})
		assert.Equal(t, "BTC/USD", resp["pair"])
		assert.Equal(t, float64(2), resp["count"])

		trades := resp["trades"].([]interface{})
		require.Len(t, trades, 2)
		first := trades[0].(map[string]interface{})
		second := trades[1].(map[string]interface{})
		assert.Greater(t, first["seq"].(float64), second["seq"].(float64))
		assert.Equal(t, testAlice, first["trader"])
		assert.Equal(t, testBob, second["trader"])
	})

	t.Run("forward flips the order", func(t *testing.T) {
		svc := newTestServiceWithHistory(t)
		seedPool(t, svc)

		swap := &PoolSwapMethod{svc: svc}
		for i := 0; i < 3; i++ {
			callOK(t, swap, map[string]interface{}{
				"trader":    testBob,
				"asset_in":  "BTC",
				"amount_in": "1000000000000000000",
				"asset_out": "USD",
			})
		}

		resp := callOK(t, &HistoryTradesMethod{svc: svc}, map[string]interface{}{
			"pair":    "BTC/USD",
			"forward": true,
		})
		trades := resp["trades"].([]interface{})
		require.Len(t, trades, 3)
		prev := float64(0)
		for _, row := range trades {
			seq := row.(map[string]interface{})["seq"].(float64)
			assert.Greater(t, seq, prev)
			prev = seq
		}
	})

	t.Run("trader filter narrows the result", func(t *testing.T) {
		svc := newTestServiceWithHistory(t)
		seedPool(t, svc)

		swap := &PoolSwapMethod{svc: svc}
		callOK(t, swap, map[string]interface{}{
			"trader":    testBob,
			"asset_in":  "BTC",
			"amount_in": "1000000000000000000",
			"asset_out": "USD",
		})
		callOK(t, swap, map[string]interface{}{
			"trader":    testAlice,
			"asset_in":  "BTC",
			"amount_in": "1000000000000000000",
			"asset_out": "USD",
		})

		resp := callOK(t, &HistoryTradesMethod{svc: svc}, map[string]interface{}{
			"pair":   "BTC/USD",
			"trader": testBob,
		})
		assert.Equal(t, float64(1), resp["count"])
		trade := resp["trades"].([]interface{})[0].(map[string]interface{})
		assert.Equal(t, testBob, trade["trader"])
	})

	t.Run("limit caps the window", func(t *testing.T) {
		svc := newTestServiceWithHistory(t)
		seedPool(t, svc)

		swap := &PoolSwapMethod{svc: svc}
		for i := 0; i < 4; i++ {
			callOK(t, swap, map[string]interface{}{
				"trader":    testBob,
				"asset_in":  "BTC",
				"amount_in": "1000000000000000000",
				"asset_out": "USD",
			})
		}

		resp := callOK(t, &HistoryTradesMethod{svc: svc}, map[string]interface{}{
			"pair":  "BTC/USD",
			"limit": 2,
		})
		assert.Equal(t, float64(2), resp["count"])
	})

	t.Run("missing pair rejected", func(t *testing.T) {
		svc := newTestServiceWithHistory(t)
		rpcErr := callErr(t, &HistoryTradesMethod{svc: svc}, map[string]interface{}{})
		assert.Equal(t, RpcINVALID_PARAMS, rpcErr.Code)
		assert.Contains(t, rpcErr.Message, "pair")
	})
}

func TestHistoryLiquidity(t *testing.T) {
	t.Run("disabled history reports notEnabled", func(t *testing.T) {
		svc := newTestService(t)
		rpcErr := callErr(t, &HistoryLiquidityMethod{svc: svc}, map[string]interface{}{"provider": testAlice})
		assert.Equal(t, RpcNOT_ENABLED, rpcErr.Code)
	})

	t.Run("deposits and withdrawals are both recorded", func(t *testing.T) {
		svc := newTestServiceWithHistory(t)
		seedPool(t, svc)

		callOK(t, &PoolRemoveLiquidityMethod{svc: svc}, map[string]interface{}{
			"pair":     "BTC/USD",
			"provider": testAlice,
			"shares":   "70710678118654752440",
		})

		resp := callOK(t, &HistoryLiquidityMethod{svc: svc}, map[string]interface{}{
			"provider": testAlice,
			"forward":  true,
		})
		assert.Equal(t, testAlice, resp["provider"])
		assert.Equal(t, float64(2), resp["count"])

		changes := resp["changes"].([]interface{})
		require.Len(t, changes, 2)
		add := changes[0].(map[string]interface{})
		remove := changes[1].(map[string]interface{})
		assert.Equal(t, "add", add["kind"])
		assert.Equal(t, seedAmountA, add["amount_a"])
		assert.Equal(t, "remove", remove["kind"])
		assert.Equal(t, "50000000000000000000", remove["amount_a"])
	})

	t.Run("pair filter narrows the result", func(t *testing.T) {
		svc := newTestServiceWithHistory(t)
		seedPool(t, svc)
		callOK(t, &PoolCreateMethod{svc: svc}, map[string]interface{}{"pair": "ETH/USD"})
		callOK(t, &PoolAddLiquidityMethod{svc: svc}, map[string]interface{}{
			"provider": testAlice,
			"asset_a":  "ETH",
			"amount_a": "1000000000000000000",
			"asset_b":  "USD",
			"amount_b": "4000000000000000000",
		})

		resp := callOK(t, &HistoryLiquidityMethod{svc: svc}, map[string]interface{}{
			"provider": testAlice,
			"pair":     "ETH/USD",
		})
		assert.Equal(t, float64(1), resp["count"])
		change := resp["changes"].([]interface{})[0].(map[string]interface{})
		assert.Equal(t, "ETH/USD", change["pair"])
	})

	t.Run("missing provider rejected", func(t *testing.T) {
		svc := newTestServiceWithHistory(t)
		rpcErr := callErr(t, &HistoryLiquidityMethod{svc: svc}, nil)
		assert.Equal(t, RpcINVALID_PARAMS, rpcErr.Code)
		assert.Contains(t, rpcErr.Message, "provider")
	})
}
