package pools_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ammtest "github.com/LeJamon/goAMMd/internal/testing"
	"github.com/LeJamon/goAMMd/internal/testing/pools"
)

// TestPoolStateSurvivesRestart exercises the persistence path: pools are
// rebuilt from store snapshots while the in-memory ledger starts empty,
// with pool accounts re-funded to match the restored reserves.
func TestPoolStateSurvivesRestart(t *testing.T) {
	env := pools.NewPoolEnvBacked(t)
	env.Fund()
	env.SeedPool(pools.BTC, pools.USD, ammtest.Units(100), ammtest.Units(400))

	_, err := env.AddLiquidity(env.Carol, pools.BTC, ammtest.Units(50), pools.USD, ammtest.Units(200))
	require.NoError(t, err)
	_, err = env.Swap(env.Bob, pools.BTC, ammtest.Units(10), pools.USD)
	require.NoError(t, err)

	btcBefore, usdBefore := env.Reserves(pools.BTC, pools.USD)
	totalBefore := env.TotalShares(pools.BTC, pools.USD)
	aliceBefore := env.Shares(env.Alice, pools.BTC, pools.USD)
	carolBefore := env.Shares(env.Carol, pools.BTC, pools.USD)
	priceBefore, err := env.Price(pools.BTC, pools.USD)
	require.NoError(t, err)
	seqBefore := env.Bus().Seq()
	require.Equal(t, uint64(3), seqBefore)

	env.Restart()

	btcAfter, usdAfter := env.Reserves(pools.BTC, pools.USD)
	assert.Equal(t, btcBefore.String(), btcAfter.String(), "BTC reserve changed across restart")
	assert.Equal(t, usdBefore.String(), usdAfter.String(), "USD reserve changed across restart")
	ammtest.RequireTotalShares(t, env.TestEnv, pools.BTC, pools.USD, totalBefore)
	ammtest.RequireShares(t, env.TestEnv, env.Alice, pools.BTC, pools.USD, aliceBefore)
	ammtest.RequireShares(t, env.TestEnv, env.Carol, pools.BTC, pools.USD, carolBefore)

	priceAfter, err := env.Price(pools.BTC, pools.USD)
	require.NoError(t, err)
	assert.Equal(t, priceBefore.String(), priceAfter.String())

	// The event sequence resumes past everything already journaled.
	assert.Equal(t, seqBefore, env.Bus().Seq())

	// Account balances live only in the ledger and are gone, but the
	// pool account is solvent for the restored reserves.
	ammtest.RequireBalance(t, env.TestEnv, env.Alice, pools.BTC, ammtest.Amt("0"))
	ammtest.RequireBalance(t, env.TestEnv, env.Bob, pools.USD, ammtest.Amt("0"))
	ammtest.RequirePoolConsistent(t, env.TestEnv, pools.BTC, pools.USD)

	// Restored positions remain live: alice exits and is paid out of
	// the re-funded pool account.
	res, err := env.RemoveLiquidity(env.Alice, pools.BTC, pools.USD, aliceBefore)
	require.NoError(t, err)
	assert.False(t, res.AmountA.IsZero())
	assert.False(t, res.AmountB.IsZero())
	assert.Equal(t, res.AmountA.String(), env.Balance(env.Alice, pools.BTC).String())
	ammtest.RequirePoolConsistent(t, env.TestEnv, pools.BTC, pools.USD)
}

// TestRestartPreservesEmptyPool covers the seq zero snapshot case: a pool
// created but never funded still comes back after a restart.
func TestRestartPreservesEmptyPool(t *testing.T) {
	env := pools.NewPoolEnvBacked(t)

	_, err := env.CreatePool(pools.ETH, pools.USD)
	require.NoError(t, err)

	env.Restart()

	infos, err := env.Service().ListPools(env.Context())
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, "ETH/USD", infos[0].Pair)
	ammtest.RequireTotalShares(t, env.TestEnv, pools.ETH, pools.USD, ammtest.Amt("0"))
}
