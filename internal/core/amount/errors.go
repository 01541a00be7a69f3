package amount

import "errors"

var (
	// ErrOverflow indicates that a result exceeds 2^256 - 1
	ErrOverflow = errors.New("amount overflow")

	// ErrUnderflow indicates that a subtraction went below zero
	ErrUnderflow = errors.New("amount underflow")

	// ErrDivisionByZero indicates a division by zero
	ErrDivisionByZero = errors.New("division by zero")

	// ErrNegative indicates that a negative value was supplied
	ErrNegative = errors.New("negative amount")

	// ErrInvalidAmount indicates that a value could not be parsed
	ErrInvalidAmount = errors.New("invalid amount")
)
