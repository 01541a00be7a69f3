package ledger

import "errors"

var (
	// ErrInsufficientFunds indicates that a debit exceeds the account balance
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrTransferFailed indicates that a credit could not be applied
	ErrTransferFailed = errors.New("transfer failed")

	// ErrInvalidAccount indicates an empty account identifier
	ErrInvalidAccount = errors.New("invalid account")
)

// IsInsufficientFunds checks if an error indicates a failed debit.
func IsInsufficientFunds(err error) bool {
	return errors.Is(err, ErrInsufficientFunds)
}

// IsTransferFailed checks if an error indicates a failed credit.
func IsTransferFailed(err error) bool {
	return errors.Is(err, ErrTransferFailed)
}
