package errors

import (
	"errors"
	"fmt"
)

// Domain error types for warehouse operations

var (
	// ErrNotFound indicates a resource was not found
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidInput indicates invalid input parameters
	ErrInvalidInput = errors.New("invalid input")

	// ErrInternal indicates an internal error
	ErrInternal = errors.New("internal error")

	// ErrTimeout indicates an operation timeout
	ErrTimeout = errors.New("operation timeout")

	// ErrUnavailable indicates a backing service is unavailable
	ErrUnavailable = errors.New("service unavailable")
)

// Warehouse-specific errors

var (
	// ErrLockContention indicates a deadlock or lock-wait timeout; safe to retry
	ErrLockContention = errors.New("lock contention")

	// ErrSchemaMismatch indicates the warehouse schema does not match
	// expectations (missing column, wrong type); never safe to proceed
	ErrSchemaMismatch = errors.New("schema mismatch")

	// ErrRetriesExhausted indicates a retryable operation failed after the
	// bounded retry budget
	ErrRetriesExhausted = errors.New("retries exhausted")
)

// SchemaError carries the table and column that failed a schema expectation
type SchemaError struct {
	Table  string
	Column string
	Err    error
}

// Error implements the error interface
func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema mismatch: %s.%s: %v", e.Table, e.Column, e.Err)
}

// Unwrap returns ErrSchemaMismatch so callers can match with errors.Is
func (e *SchemaError) Unwrap() error {
	return ErrSchemaMismatch
}

// NewSchemaError creates a new schema error
func NewSchemaError(table, column string, err error) *SchemaError {
	return &SchemaError{Table: table, Column: column, Err: err}
}

// MultiError wraps multiple errors collected across a batch
type MultiError struct {
	Errors []error
}

// Error implements the error interface
func (m *MultiError) Error() string {
	if len(m.Errors) == 0 {
		return "no errors"
	}
	if len(m.Errors) == 1 {
		return m.Errors[0].Error()
	}
	return fmt.Sprintf("multiple errors (%d): %v", len(m.Errors), m.Errors[0])
}

// Unwrap exposes the collected errors to errors.Is / errors.As
func (m *MultiError) Unwrap() []error {
	return m.Errors
}

// Add adds an error to the list
func (m *MultiError) Add(err error) {
	if err != nil {
		m.Errors = append(m.Errors, err)
	}
}

// HasErrors returns true if there are any errors
func (m *MultiError) HasErrors() bool {
	return len(m.Errors) > 0
}

// ToError returns the MultiError as an error, or nil if no errors
func (m *MultiError) ToError() error {
	if !m.HasErrors() {
		return nil
	}
	return m
}

// Helper functions

// Is checks if err is or wraps target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target type
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Wrap wraps an error with context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

func New(message string) error {
	return errors.New(message)
}

func Newf(format string, args ...interface{}) error {
	return fmt.Errorf(format, args...)
}
