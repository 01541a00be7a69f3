package rpc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccountBalances(t *testing.T) {
	t.Run("balances reflect pool deposits", func(t *testing.T) {
		svc := newTestService(t)
		seedPool(t, svc)

		resp := callOK(t, &AccountBalancesMethod{svc: svc}, map[string]interface{}{"account": testAlice})
		assert.Equal(t, testAlice, resp["account"])

		balances := resp["balances"].(map[string]interface{})
		assert.Equal(t, "999900000000000000000000", balances["BTC"])
		assert.Equal(t, "999800000000000000000000", balances["USD"])
		assert.Equal(t, "1000000000000000000000000", balances["ETH"])
	})

	t.Run("pool account holds the reserves", func(t *testing.T) {
		svc := newTestService(t)
		seedPool(t, svc)

		resp := callOK(t, &AccountBalancesMethod{svc: svc}, map[string]interface{}{"account": "pool:BTC/USD"})
		balances := resp["balances"].(map[string]interface{})
		assert.Equal(t, seedAmountA, balances["BTC"])
		assert.Equal(t, seedAmountB, balances["USD"])
	})

	t.Run("unknown account has no balances", func(t *testing.T) {
		svc := newTestService(t)
		resp := callOK(t, &AccountBalancesMethod{svc: svc}, map[string]interface{}{"account": "nobody"})
		assert.Empty(t, resp["balances"])
	})

	t.Run("missing account rejected", func(t *testing.T) {
		svc := newTestService(t)
		rpcErr := callErr(t, &AccountBalancesMethod{svc: svc}, map[string]interface{}{})
		assert.Equal(t, RpcINVALID_PARAMS, rpcErr.Code)
		assert.Contains(t, rpcErr.Message, "account")
	})
}

func TestAccountShares(t *testing.T) {
	t.Run("provider sees shares per pool", func(t *testing.T) {
		svc := newTestService(t)
		seedPool(t, svc)

		resp := callOK(t, &AccountSharesMethod{svc: svc}, map[string]interface{}{"account": testAlice})
		assert.Equal(t, testAlice, resp["account"])

		shares := resp["shares"].(map[string]interface{})
		require.Len(t, shares, 1)
		assert.Equal(t, seedShares, shares["BTC/USD"])
	})

	t.Run("shares span multiple pools", func(t *testing.T) {
		svc := newTestService(t)
		seedPool(t, svc)
		callOK(t, &PoolCreateMethod{svc: svc}, map[string]interface{}{"pair": "ETH/USD"})
		callOK(t, &PoolAddLiquidityMethod{svc: svc}, map[string]interface{}{
			"provider": testAlice,
			"asset_a":  "ETH",
			"amount_a": "1000000000000000000",
			"asset_b":  "USD",
			"amount_b": "4000000000000000000",
		})

		resp := callOK(t, &AccountSharesMethod{svc: svc}, map[string]interface{}{"account": testAlice})
		shares := resp["shares"].(map[string]interface{})
		require.Len(t, shares, 2)
		assert.Contains(t, shares, "BTC/USD")
		assert.Contains(t, shares, "ETH/USD")
	})

	t.Run("non-provider holds nothing", func(t *testing.T) {
		svc := newTestService(t)
		seedPool(t, svc)

		resp := callOK(t, &AccountSharesMethod{svc: svc}, map[string]interface{}{"account": testBob})
		assert.Empty(t, resp["shares"])
	})

	t.Run("missing account rejected", func(t *testing.T) {
		svc := newTestService(t)
		rpcErr := callErr(t, &AccountSharesMethod{svc: svc}, nil)
		assert.Equal(t, RpcINVALID_PARAMS, rpcErr.Code)
	})
}
