package pool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LeJamon/goAMMd/internal/core/amount"
)

func tokens(t *testing.T, s string) amount.Amount {
	t.Helper()
	return amount.MustParse(s)
}

func TestQuoteExactValues(t *testing.T) {
	cases := []struct {
		name       string
		amountIn   string
		reserveIn  string
		reserveOut string
		want       string
	}{
		{
			name:     "small reserves",
			amountIn: "100", reserveIn: "1000", reserveOut: "2000",
			want: "181",
		},
		{
			name:     "ten tokens into 100/200",
			amountIn: "10000000000000000000", reserveIn: "100000000000000000000", reserveOut: "200000000000000000000",
			want: "18132217877602982631",
		},
		{
			name:     "reverse direction",
			amountIn: "20000000000000000000", reserveIn: "200000000000000000000", reserveOut: "100000000000000000000",
			want: "9066108938801491315",
		},
		{
			name:     "one unit into deep pool rounds to zero",
			amountIn: "1", reserveIn: "1000", reserveOut: "1000",
			want: "0",
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			out, err := Quote(tokens(t, c.amountIn), tokens(t, c.reserveIn), tokens(t, c.reserveOut))
			require.NoError(t, err)
			assert.Equal(t, c.want, out.String())
		})
	}
}

func TestQuoteIsPure(t *testing.T) {
	in := tokens(t, "5000")
	rIn := tokens(t, "1000000")
	rOut := tokens(t, "2000000")

	first, err := Quote(in, rIn, rOut)
	require.NoError(t, err)
	second, err := Quote(in, rIn, rOut)
	require.NoError(t, err)

	assert.True(t, first.Equal(second))
	// Inputs are untouched
	assert.Equal(t, "5000", in.String())
	assert.Equal(t, "1000000", rIn.String())
}

func TestQuoteRejections(t *testing.T) {
	one := amount.FromUint64(1)

	_, err := Quote(amount.Zero(), one, one)
	assert.ErrorIs(t, err, ErrZeroAmount)

	_, err = Quote(one, amount.Zero(), one)
	assert.ErrorIs(t, err, ErrNoLiquidity)

	_, err = Quote(one, one, amount.Zero())
	assert.ErrorIs(t, err, ErrNoLiquidity)
}

func TestQuoteFeeBitesExactly(t *testing.T) {
	// Without the fee 1000 in / 1000 reserve each way would quote 500.
	out, err := Quote(amount.FromUint64(1000), amount.FromUint64(1000), amount.FromUint64(1000))
	require.NoError(t, err)
	// 997000*1000 / (1000000+997000) = 499.24...
	assert.Equal(t, "499", out.String())
}

func TestQuoteOutputBelowReserve(t *testing.T) {
	// The denominator always exceeds the fee term, so the quote can never
	// reach the output reserve even for absurdly large inputs.
	out, err := Quote(tokens(t, "1000000000000000000000000000000"), amount.FromUint64(1), amount.FromUint64(1000))
	require.NoError(t, err)
	assert.True(t, out.LessThan(amount.FromUint64(1000)))
}

func TestInitialShares(t *testing.T) {
	// floor(sqrt(100e18 * 200e18))
	shares, err := initialShares(tokens(t, "100000000000000000000"), tokens(t, "200000000000000000000"))
	require.NoError(t, err)
	assert.Equal(t, "141421356237309504880", shares.String())

	shares, err = initialShares(amount.FromUint64(1), amount.FromUint64(1))
	require.NoError(t, err)
	assert.Equal(t, "1", shares.String())

	// Product overflow is reported, not wrapped
	_, err = initialShares(amount.Max(), amount.FromUint64(2))
	assert.ErrorIs(t, err, amount.ErrOverflow)
}

func TestSharesForDeposit(t *testing.T) {
	reserveA := tokens(t, "100000000000000000000")
	reserveB := tokens(t, "200000000000000000000")
	total := tokens(t, "141421356237309504880")

	// Matching the reserve ratio claims the same share count on both sides
	shares, err := sharesForDeposit(
		tokens(t, "50000000000000000000"), tokens(t, "100000000000000000000"),
		reserveA, reserveB, total)
	require.NoError(t, err)
	assert.Equal(t, "70710678118654752440", shares.String())

	// Off ratio the worse side wins
	shares, err = sharesForDeposit(
		tokens(t, "50000000000000000000"), tokens(t, "60000000000000000000"),
		reserveA, reserveB, total)
	require.NoError(t, err)
	assert.Equal(t, "42426406871192851464", shares.String())
}

func TestWithdrawalAmounts(t *testing.T) {
	reserveA := tokens(t, "100000000000000000000")
	reserveB := tokens(t, "200000000000000000000")
	total := tokens(t, "141421356237309504880")

	burn := tokens(t, "70710678118654752440") // exactly half
	outA, outB, err := withdrawalAmounts(burn, reserveA, reserveB, total)
	require.NoError(t, err)
	assert.Equal(t, "50000000000000000000", outA.String())
	assert.Equal(t, "100000000000000000000", outB.String())

	// Flooring on uneven reserves
	outA, outB, err = withdrawalAmounts(
		amount.FromUint64(3), amount.FromUint64(10), amount.FromUint64(11), amount.FromUint64(10))
	require.NoError(t, err)
	assert.Equal(t, "3", outA.String())
	assert.Equal(t, "3", outB.String()) // floor(3*11/10)
}
