package model

import (
	"errors"
	"fmt"
)

// Error taxonomy shared by every client component. Callers match with errors.Is.
var (
	// ErrUnauthorized covers invalid credentials and missing or expired tokens
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden is returned when the backend refuses an operation to an
	// authenticated user. The session stays valid.
	ErrForbidden = errors.New("forbidden")

	// ErrNotFound is returned when a task or user does not exist
	ErrNotFound = errors.New("not found")

	// ErrValidation is returned for input rejected before any network call
	ErrValidation = errors.New("validation failed")

	// ErrTransport wraps network, channel and unexpected server failures
	ErrTransport = errors.New("transport error")

	// ErrMalformedPayload is returned for push messages that cannot be decoded
	ErrMalformedPayload = errors.New("malformed payload")

	// ErrNoSession is returned by operations that need a logged-in user
	ErrNoSession = errors.New("not logged in")
)

// ValidationError describes which field was rejected and why
type ValidationError struct {
	Field  string
	Reason string
}

// NewValidationError creates a ValidationError for field
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Unwrap lets errors.Is(err, ErrValidation) match
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}
