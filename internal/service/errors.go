package service

import "errors"

var (
	// ErrPoolExists indicates a create for a pair that already has a pool
	ErrPoolExists = errors.New("pool already exists")

	// ErrPoolNotFound indicates an operation against an unknown pair
	ErrPoolNotFound = errors.New("pool not found")

	// ErrClosed indicates an operation after shutdown
	ErrClosed = errors.New("service is closed")

	// ErrNilLedger indicates construction without a ledger
	ErrNilLedger = errors.New("nil ledger")
)

// IsPoolNotFound checks if an error indicates an unknown pair.
func IsPoolNotFound(err error) bool {
	return errors.Is(err, ErrPoolNotFound)
}
