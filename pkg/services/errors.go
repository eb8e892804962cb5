// Package services carries the shared service-layer error taxonomy and the
// alert service that assembles caller-facing views of the live state.
package services

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when an entity is not found. Only the recipient
// registry maps it to HTTP 404; every other precondition failure is a
// ValidationError.
var ErrNotFound = errors.New("entity not found")

// ValidationError is a caller-visible precondition failure (unknown
// execution id, invalid recipient, empty upload, threshold parse failure,
// unconfigured endpoint). Maps to HTTP 400.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// NewValidationError creates a new validation error.
func NewValidationError(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// IsValidationError checks if an error is a validation error.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// UpstreamError is raised when an external dependency fails (metrics fetch,
// chat call, simulator call). Maps to HTTP 502.
type UpstreamError struct {
	Op  string
	Err error
}

func (e *UpstreamError) Error() string {
	if e.Err == nil {
		return e.Op
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// NewUpstreamError wraps a dependency failure with the failing operation.
func NewUpstreamError(op string, err error) error {
	return &UpstreamError{Op: op, Err: err}
}

// IsUpstreamError checks if an error is an upstream dependency failure.
func IsUpstreamError(err error) bool {
	var ue *UpstreamError
	return errors.As(err, &ue)
}
