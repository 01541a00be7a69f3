package poolstore

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by the store and its backends. Backend status
// codes map onto these via statusError.
var (
	ErrNotFound            = errors.New("record not found")
	ErrDataCorrupt         = errors.New("data corruption detected")
	ErrBackendClosed       = errors.New("backend is closed")
	ErrInvalidRecord       = errors.New("invalid record")
	ErrInvalidKey          = errors.New("invalid key")
	ErrInvalidConfig       = errors.New("invalid configuration")
	ErrUnsupportedBackend  = errors.New("unsupported backend")
	ErrDecompressionFailed = errors.New("decompression failed")
)

// StoreError wraps a failure with the operation and backend it came from.
type StoreError struct {
	Operation string
	Backend   string
	Key       Key
	Cause     error
}

func (e *StoreError) Error() string {
	if len(e.Key) == 0 {
		return fmt.Sprintf("poolstore %s on backend %s: %v", e.Operation, e.Backend, e.Cause)
	}
	return fmt.Sprintf("poolstore %s on backend %s for key %q: %v", e.Operation, e.Backend, string(e.Key), e.Cause)
}

func (e *StoreError) Unwrap() error {
	return e.Cause
}

// NewError creates a StoreError.
func NewError(operation, backend string, key Key, cause error) *StoreError {
	return &StoreError{
		Operation: operation,
		Backend:   backend,
		Key:       key,
		Cause:     cause,
	}
}

// statusError converts a non-OK backend status into its sentinel.
func statusError(status Status) error {
	switch status {
	case OK:
		return nil
	case NotFound:
		return ErrNotFound
	case DataCorrupt:
		return ErrDataCorrupt
	default:
		return ErrBackendClosed
	}
}

// IsDataCorrupt reports whether err stems from undecodable stored data.
func IsDataCorrupt(err error) bool {
	return errors.Is(err, ErrDataCorrupt)
}
