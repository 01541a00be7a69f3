package pool

import "errors"

var (
	// ErrZeroAmount indicates a zero deposit, withdrawal or swap input
	ErrZeroAmount = errors.New("zero amount")

	// ErrInsufficientLiquidityMinted indicates a deposit too small to mint shares
	ErrInsufficientLiquidityMinted = errors.New("insufficient liquidity minted")

	// ErrInsufficientShares indicates a burn of more shares than the provider holds
	ErrInsufficientShares = errors.New("insufficient shares")

	// ErrInsufficientOutputAmount indicates an operation whose payout rounds to zero
	ErrInsufficientOutputAmount = errors.New("insufficient output amount")

	// ErrInsufficientReserve indicates a swap that would drain a reserve
	ErrInsufficientReserve = errors.New("insufficient reserve")

	// ErrNoLiquidity indicates an operation against an empty pool
	ErrNoLiquidity = errors.New("no liquidity")

	// ErrReentrantCall indicates a call made from inside a transfer or
	// notification callback
	ErrReentrantCall = errors.New("reentrant call")

	// ErrInvalidDirection indicates an unknown swap direction
	ErrInvalidDirection = errors.New("invalid swap direction")

	// ErrNilLedger indicates a pool constructed without a ledger
	ErrNilLedger = errors.New("nil ledger")

	// ErrInvalidAccount indicates an empty provider, trader or pool account
	ErrInvalidAccount = errors.New("invalid account")

	// ErrCorruptState indicates a restored state that violates pool invariants
	ErrCorruptState = errors.New("corrupt pool state")
)

// IsNoLiquidity checks if an error indicates an empty pool.
func IsNoLiquidity(err error) bool {
	return errors.Is(err, ErrNoLiquidity)
}

// IsReentrantCall checks if an error indicates a rejected nested call.
func IsReentrantCall(err error) bool {
	return errors.Is(err, ErrReentrantCall)
}
