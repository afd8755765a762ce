package errors

import (
	"errors"
	"fmt"

	"go.uber.org/multierr"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// ErrorTypeConfiguration marks programmer errors detected before any work
	// begins (missing handler, invalid cancellation budget, bad options).
	ErrorTypeConfiguration ErrorType = "CONFIGURATION"

	// ErrorTypeLifecycle marks aggregated init/shutdown hook failures.
	ErrorTypeLifecycle ErrorType = "LIFECYCLE"

	// ErrorTypeInvocation marks failures raised around a single invocation.
	ErrorTypeInvocation ErrorType = "INVOCATION"

	// ErrorTypeInternal marks unexpected framework failures.
	ErrorTypeInternal ErrorType = "INTERNAL"
)

// HostError represents a framework-level error
type HostError struct {
	Type    ErrorType
	Message string
	Cause   error
}

// Error implements the error interface
func (e *HostError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *HostError) Unwrap() error {
	return e.Cause
}

// WithCause wraps an underlying error
func (e *HostError) WithCause(err error) *HostError {
	e.Cause = err
	return e
}

// Constructor functions for common error types

// NewConfigurationError creates a configuration error
func NewConfigurationError(format string, args ...interface{}) *HostError {
	return &HostError{
		Type:    ErrorTypeConfiguration,
		Message: fmt.Sprintf(format, args...),
	}
}

// NewLifecycleError creates a lifecycle error wrapping aggregated hook failures
func NewLifecycleError(message string, cause error) *HostError {
	return &HostError{
		Type:    ErrorTypeLifecycle,
		Message: message,
		Cause:   cause,
	}
}

// NewInvocationError creates an invocation error
func NewInvocationError(message string, cause error) *HostError {
	return &HostError{
		Type:    ErrorTypeInvocation,
		Message: message,
		Cause:   cause,
	}
}

// NewInternalError creates an internal error
func NewInternalError(message string, cause error) *HostError {
	return &HostError{
		Type:    ErrorTypeInternal,
		Message: message,
		Cause:   cause,
	}
}

// IsConfigurationError checks if an error is a configuration error
func IsConfigurationError(err error) bool {
	var hostErr *HostError
	if errors.As(err, &hostErr) {
		return hostErr.Type == ErrorTypeConfiguration
	}
	return false
}

// GetHostError extracts a HostError from an error chain
func GetHostError(err error) *HostError {
	var hostErr *HostError
	if errors.As(err, &hostErr) {
		return hostErr
	}
	return nil
}

// Combine merges multiple errors into one, dropping nils
func Combine(errs ...error) error {
	return multierr.Combine(errs...)
}

// Errors returns the individual errors inside a combined error.
// A nil error yields an empty slice; a plain error yields itself.
func Errors(err error) []error {
	return multierr.Errors(err)
}
