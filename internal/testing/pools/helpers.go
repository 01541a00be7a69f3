// Package pools provides helpers for end-to-end pool scenario tests:
// standard accounts, standard assets and seeded-pool setups driven
// through the service.
package pools

import (
	"testing"

	"github.com/LeJamon/goAMMd/internal/core/amount"
	"github.com/LeJamon/goAMMd/internal/core/asset"
	ammtest "github.com/LeJamon/goAMMd/internal/testing"
)

// Standard test assets.
const (
	BTC = asset.Asset("BTC")
	USD = asset.Asset("USD")
	ETH = asset.Asset("ETH")
)

// PoolEnv wraps TestEnv with the standard accounts the pool scenarios
// share. Alice seeds pools, bob trades, carol joins as a second
// provider.
type PoolEnv struct {
	*ammtest.TestEnv
	T *testing.T

	Alice *ammtest.Account
	Bob   *ammtest.Account
	Carol *ammtest.Account
}

// NewPoolEnv creates a pool test environment with the standard accounts
// created but not yet funded.
func NewPoolEnv(t *testing.T) *PoolEnv {
	t.Helper()
	return wrap(t, ammtest.NewTestEnv(t))
}

// NewPoolEnvBacked is NewPoolEnv over a disk-backed pool store, for
// scenarios that restart the service.
func NewPoolEnvBacked(t *testing.T) *PoolEnv {
	t.Helper()
	return wrap(t, ammtest.NewTestEnvBacked(t))
}

func wrap(t *testing.T, env *ammtest.TestEnv) *PoolEnv {
	return &PoolEnv{
		TestEnv: env,
		T:       t,
		Alice:   ammtest.NewAccount("alice"),
		Bob:     ammtest.NewAccount("bob"),
		Carol:   ammtest.NewAccount("carol"),
	}
}

// Fund mints the standard starting balance, 30,000 units of BTC, USD and
// ETH, for alice, bob and carol.
func (e *PoolEnv) Fund() {
	e.T.Helper()

	for _, a := range []asset.Asset{BTC, USD, ETH} {
		e.TestEnv.Fund(a, ammtest.Units(30000), e.Alice, e.Bob, e.Carol)
	}
}

// SeedPool creates a pool for the two assets and makes alice's first
// deposit.
func (e *PoolEnv) SeedPool(a, b asset.Asset, amountA, amountB amount.Amount) asset.Pair {
	e.T.Helper()

	pair, err := e.CreatePool(a, b)
	if err != nil {
		e.T.Fatalf("Failed to create pool %s/%s: %v", a, b, err)
	}
	if _, err := e.AddLiquidity(e.Alice, a, amountA, b, amountB); err != nil {
		e.T.Fatalf("Failed to seed pool %s: %v", pair.Key(), err)
	}
	return pair
}

// WithPool funds the standard accounts, seeds a BTC/USD pool with
// alice's deposit and hands the environment to the callback.
func WithPool(t *testing.T, amountBTC, amountUSD amount.Amount, fn func(e *PoolEnv)) {
	t.Helper()

	env := NewPoolEnv(t)
	env.Fund()
	env.SeedPool(BTC, USD, amountBTC, amountUSD)
	env.Events() // drop the seed deposit record
	fn(env)
}

// WithDefaultPool seeds BTC/USD with 100 and 400 units, minting 200
// units of shares for alice at a price of 4 USD per BTC.
func WithDefaultPool(t *testing.T, fn func(e *PoolEnv)) {
	t.Helper()
	WithPool(t, ammtest.Units(100), ammtest.Units(400), fn)
}
