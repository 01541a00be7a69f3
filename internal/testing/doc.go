// Package testing provides test infrastructure for exercising pool
// operations end to end.
//
// The package stands up a complete in-memory deployment (memory ledger,
// event bus, pool store and service) and provides deterministic named
// accounts, funding helpers and assertion functions so scenario tests
// read like the operations they describe.
//
// # Overview
//
// The testing package provides:
//   - TestEnv: a test environment wrapping a fully wired service
//   - Account: deterministic test accounts derived from names
//   - Amount helpers: Amt for raw values, Units for 1e18-scaled values
//   - Assertions: balance, reserve, share and invariant checks
//
// # Basic Usage
//
//	func TestSwap(t *testing.T) {
//	    env := testing.NewTestEnv(t)
//
//	    alice := testing.NewAccount("alice")
//	    bob := testing.NewAccount("bob")
//
//	    env.Fund("BTC", testing.Units(1000), alice, bob)
//	    env.Fund("USD", testing.Units(4000), alice, bob)
//
//	    env.CreatePool("BTC", "USD")
//	    env.AddLiquidity(alice, "BTC", testing.Units(100), "USD", testing.Units(400))
//
//	    out, err := env.Swap(bob, "BTC", testing.Units(1), "USD")
//	    require.NoError(t, err)
//
//	    testing.RequirePoolConsistent(t, env, "BTC", "USD")
//	}
//
// # TestEnv
//
// TestEnv manages the deployment. NewTestEnv keeps everything in memory;
// NewTestEnvBacked persists pool state to a disk-backed store so tests
// can exercise Restart, which rebuilds the service from snapshots the
// way a process restart would.
//
//	env := testing.NewTestEnv(t)
//	env.Fund("BTC", testing.Units(1000), alice)
//	env.CreatePool("BTC", "USD")
//	env.Balance(alice, "BTC")
//	env.Reserves("BTC", "USD")
//	env.Events()
//
// # Account
//
// Account represents a test participant with a ledger address derived
// deterministically from its name. Using the same name always produces
// the same address, making tests reproducible.
//
//	alice := testing.NewAccount("alice")
//	alice.Address  // base58check address
//
// # Amount Helpers
//
//	testing.Amt("1234")   // raw base-10 amount
//	testing.Units(100)    // 100 * 1e18
//
// Units matches the 1e18 scale of price quotations, so a pool seeded
// with Units reports exact whole-number prices.
//
// # Assertions
//
// Helper functions for common checks:
//
//	testing.RequireBalance(t, env, alice, "BTC", testing.Units(900))
//	testing.RequireReserves(t, env, "BTC", "USD", testing.Units(100), testing.Units(400))
//	testing.RequireShares(t, env, alice, "BTC", "USD", testing.Units(200))
//	testing.RequireErrIs(t, err, pool.ErrZeroAmount)
//	testing.RequirePoolConsistent(t, env, "BTC", "USD")
//	testing.RequireProductNotReduced(t, env, "BTC", "USD", func() { ... })
package testing
