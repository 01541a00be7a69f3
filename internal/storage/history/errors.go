package history

import (
	"errors"
	"fmt"
)

var (
	// ErrStoreClosed indicates an operation on a closed store
	ErrStoreClosed = errors.New("history store is closed")

	// ErrInvalidConfig indicates an unusable configuration
	ErrInvalidConfig = errors.New("invalid history configuration")

	// ErrUnsupportedDriver indicates a driver this package cannot serve
	ErrUnsupportedDriver = errors.New("unsupported database driver")
)

// ErrorType categorizes store errors for handling decisions.
type ErrorType string

const (
	ErrorTypeConnection    ErrorType = "connection"
	ErrorTypeConfiguration ErrorType = "configuration"
	ErrorTypeQuery         ErrorType = "query"
	ErrorTypeSchema        ErrorType = "schema"
)

// StoreError wraps a database failure with its category and the
// operation that hit it.
type StoreError struct {
	Type      ErrorType
	Operation string
	Message   string
	Cause     error
	Retryable bool
}

func (e *StoreError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("history %s error in %s: %s: %v", e.Type, e.Operation, e.Message, e.Cause)
	}
	return fmt.Sprintf("history %s error in %s: %s", e.Type, e.Operation, e.Message)
}

func (e *StoreError) Unwrap() error {
	return e.Cause
}

// Is matches two store errors by category.
func (e *StoreError) Is(target error) bool {
	var se *StoreError
	if errors.As(target, &se) {
		return e.Type == se.Type
	}
	return false
}

// NewConnectionError creates a connection-category error. Connection
// failures are considered transient.
func NewConnectionError(operation, message string, cause error) *StoreError {
	return &StoreError{
		Type:      ErrorTypeConnection,
		Operation: operation,
		Message:   message,
		Cause:     cause,
		Retryable: true,
	}
}

// NewConfigurationError creates a configuration-category error.
func NewConfigurationError(operation, message string, cause error) *StoreError {
	return &StoreError{
		Type:      ErrorTypeConfiguration,
		Operation: operation,
		Message:   message,
		Cause:     cause,
	}
}

// NewQueryError creates a query-category error.
func NewQueryError(operation, message string, cause error) *StoreError {
	return &StoreError{
		Type:      ErrorTypeQuery,
		Operation: operation,
		Message:   message,
		Cause:     cause,
	}
}

// NewSchemaError creates a schema-category error.
func NewSchemaError(operation, message string, cause error) *StoreError {
	return &StoreError{
		Type:      ErrorTypeSchema,
		Operation: operation,
		Message:   message,
		Cause:     cause,
	}
}

// IsRetryable reports whether the error is worth retrying.
func IsRetryable(err error) bool {
	var se *StoreError
	if errors.As(err, &se) {
		return se.Retryable
	}
	return false
}
