package testing

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/LeJamon/goAMMd/internal/core/amount"
	"github.com/LeJamon/goAMMd/internal/core/asset"
)

// Amounts wrap big integers, so assertions compare their decimal
// renderings rather than relying on structural equality.

// RequireBalance asserts that an account holds the expected ledger
// balance in the asset.
func RequireBalance(t *testing.T, env *TestEnv, acc *Account, a asset.Asset, expected amount.Amount) {
	t.Helper()

	actual := env.Balance(acc, a)
	require.Equal(t, expected.String(), actual.String(),
		"Account %s %s balance mismatch: expected %s, got %s",
		acc.Name, a, expected, actual)
}

// RequireReserves asserts the pool's reserves, in the order the assets
// are named.
func RequireReserves(t *testing.T, env *TestEnv, a, b asset.Asset, expectedA, expectedB amount.Amount) {
	t.Helper()

	reserveA, reserveB := env.Reserves(a, b)
	require.Equal(t, expectedA.String(), reserveA.String(),
		"Pool %s/%s %s reserve mismatch: expected %s, got %s",
		a, b, a, expectedA, reserveA)
	require.Equal(t, expectedB.String(), reserveB.String(),
		"Pool %s/%s %s reserve mismatch: expected %s, got %s",
		a, b, b, expectedB, reserveB)
}

// RequireShares asserts the account's share balance in the pair's pool.
func RequireShares(t *testing.T, env *TestEnv, acc *Account, a, b asset.Asset, expected amount.Amount) {
	t.Helper()

	actual := env.Shares(acc, a, b)
	require.Equal(t, expected.String(), actual.String(),
		"Account %s share balance in %s/%s mismatch: expected %s, got %s",
		acc.Name, a, b, expected, actual)
}

// RequireTotalShares asserts the pool's outstanding share total.
func RequireTotalShares(t *testing.T, env *TestEnv, a, b asset.Asset, expected amount.Amount) {
	t.Helper()

	actual := env.TotalShares(a, b)
	require.Equal(t, expected.String(), actual.String(),
		"Pool %s/%s outstanding shares mismatch: expected %s, got %s",
		a, b, expected, actual)
}

// RequireErrIs asserts that err wraps the expected sentinel.
func RequireErrIs(t *testing.T, err, target error) {
	t.Helper()
	require.ErrorIs(t, err, target)
}

// RequirePoolConsistent asserts the structural pool invariants: reserves
// and outstanding shares are zero together or positive together, the
// pool's ledger account holds exactly the recorded reserves, and the
// share balances of the environment's accounts sum to the outstanding
// total.
func RequirePoolConsistent(t *testing.T, env *TestEnv, a, b asset.Asset) {
	t.Helper()

	reserveA, reserveB := env.Reserves(a, b)
	total := env.TotalShares(a, b)

	if total.IsZero() {
		require.True(t, reserveA.IsZero(),
			"Pool %s/%s has no outstanding shares but holds %s %s", a, b, reserveA, a)
		require.True(t, reserveB.IsZero(),
			"Pool %s/%s has no outstanding shares but holds %s %s", a, b, reserveB, b)
	} else {
		require.False(t, reserveA.IsZero(),
			"Pool %s/%s has %s outstanding shares but no %s reserve", a, b, total, a)
		require.False(t, reserveB.IsZero(),
			"Pool %s/%s has %s outstanding shares but no %s reserve", a, b, total, b)
	}

	account := env.PoolAccount(a, b)
	heldA := env.book.Balance(a, account)
	heldB := env.book.Balance(b, account)
	require.Equal(t, reserveA.String(), heldA.String(),
		"Pool account %s holds %s %s, reserves record %s", account, heldA, a, reserveA)
	require.Equal(t, reserveB.String(), heldB.String(),
		"Pool account %s holds %s %s, reserves record %s", account, heldB, b, reserveB)

	sum := amount.Zero()
	holders := 0
	for _, acc := range env.accounts {
		held := env.Shares(acc, a, b)
		if held.IsZero() {
			continue
		}
		holders++
		var err error
		sum, err = sum.Add(held)
		require.NoError(t, err, "Share balances overflow while summing")
	}
	require.Equal(t, total.String(), sum.String(),
		"Pool %s/%s share balances sum to %s, outstanding total is %s", a, b, sum, total)

	info, err := env.svc.PoolInfo(env.ctx, a, b)
	require.NoError(t, err)
	require.Equal(t, holders, info.Providers,
		"Pool %s/%s reports %d providers, share ledger has %d", a, b, info.Providers, holders)
}

// RequireProductNotReduced runs fn and asserts the pool's constant
// product did not fall. Fee retention makes the product grow across
// every executed swap.
func RequireProductNotReduced(t *testing.T, env *TestEnv, a, b asset.Asset, fn func()) {
	t.Helper()

	before := env.Product(a, b)
	fn()
	after := env.Product(a, b)
	require.True(t, after.Cmp(before) >= 0,
		"Pool %s/%s constant product fell from %s to %s", a, b, before, after)
}
