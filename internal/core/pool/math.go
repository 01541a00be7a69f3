package pool

import (
	"github.com/LeJamon/goAMMd/internal/core/amount"
)

// Swap fee: 3 parts per thousand, retained by the pool.
const (
	feeNumerator   = 997
	feeDenominator = 1000
)

// Quote prices a swap against the given reserves without touching any
// state: floor(amountIn*997*reserveOut / (reserveIn*1000 + amountIn*997)).
// The 0.3% fee stays in the input reserve, which is what makes the
// constant product grow on every trade.
func Quote(amountIn, reserveIn, reserveOut amount.Amount) (amount.Amount, error) {
	if amountIn.IsZero() {
		return amount.Zero(), ErrZeroAmount
	}
	if reserveIn.IsZero() || reserveOut.IsZero() {
		return amount.Zero(), ErrNoLiquidity
	}

	amountInWithFee, err := amountIn.Mul(amount.FromUint64(feeNumerator))
	if err != nil {
		return amount.Zero(), err
	}
	numerator, err := amountInWithFee.Mul(reserveOut)
	if err != nil {
		return amount.Zero(), err
	}
	scaledReserveIn, err := reserveIn.Mul(amount.FromUint64(feeDenominator))
	if err != nil {
		return amount.Zero(), err
	}
	denominator, err := scaledReserveIn.Add(amountInWithFee)
	if err != nil {
		return amount.Zero(), err
	}
	return numerator.Div(denominator)
}

// initialShares prices the very first deposit: floor(sqrt(amountA*amountB)).
// The geometric mean makes the share count independent of which asset is
// which and sets the initial share value.
func initialShares(amountA, amountB amount.Amount) (amount.Amount, error) {
	product, err := amountA.Mul(amountB)
	if err != nil {
		return amount.Zero(), err
	}
	return amount.Sqrt(product), nil
}

// sharesForDeposit prices a deposit into a funded pool: the lesser of the
// two reserve-ratio claims, so depositing off-ratio never mints more than
// the worse side justifies.
func sharesForDeposit(amountA, amountB, reserveA, reserveB, totalShares amount.Amount) (amount.Amount, error) {
	byA, err := amountA.MulDiv(totalShares, reserveA)
	if err != nil {
		return amount.Zero(), err
	}
	byB, err := amountB.MulDiv(totalShares, reserveB)
	if err != nil {
		return amount.Zero(), err
	}
	return amount.Min(byA, byB), nil
}

// withdrawalAmounts converts a share burn into proportional reserve
// payouts, rounding both down.
func withdrawalAmounts(shares, reserveA, reserveB, totalShares amount.Amount) (amount.Amount, amount.Amount, error) {
	amountA, err := shares.MulDiv(reserveA, totalShares)
	if err != nil {
		return amount.Zero(), amount.Zero(), err
	}
	amountB, err := shares.MulDiv(reserveB, totalShares)
	if err != nil {
		return amount.Zero(), amount.Zero(), err
	}
	return amountA, amountB, nil
}
