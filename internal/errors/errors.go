// Package errors provides domain-specific error types and sentinel errors
// for improved error handling across the application.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common scenarios.
// Use errors.Is() to check these errors in your code.
var (
	// ErrNotFound indicates a requested resource was not found.
	ErrNotFound = errors.New("resource not found")

	// ErrRateLimitExceeded indicates rate limit has been exceeded.
	ErrRateLimitExceeded = errors.New("rate limit exceeded")

	// ErrInvalidInput indicates the caller provided invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrTimeout indicates an operation timed out.
	ErrTimeout = errors.New("operation timed out")

	// ErrEngineNotLoaded indicates no dialogue model is loaded yet.
	ErrEngineNotLoaded = errors.New("dialogue engine not loaded")

	// ErrUnknownIntent indicates the interpreter returned an intent the model does not define.
	ErrUnknownIntent = errors.New("unknown intent")
)

// ValidationError represents input validation failures.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
}

// NewValidationError creates a new validation error.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// ModelError reports a dialogue model that could not be loaded from a source.
type ModelError struct {
	Source string // embedded, file, r2
	Ref    string // path or object key
	Err    error
}

func (e *ModelError) Error() string {
	if e.Ref != "" {
		return fmt.Sprintf("model load failed (source=%s, ref=%s): %v", e.Source, e.Ref, e.Err)
	}
	return fmt.Sprintf("model load failed (source=%s): %v", e.Source, e.Err)
}

func (e *ModelError) Unwrap() error {
	return e.Err
}

// NewModelError creates a new model load error.
func NewModelError(source, ref string, err error) *ModelError {
	return &ModelError{
		Source: source,
		Ref:    ref,
		Err:    err,
	}
}

// IsNotFound reports whether err is or wraps ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsRateLimited reports whether err is or wraps ErrRateLimitExceeded.
func IsRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimitExceeded)
}

// IsEngineNotLoaded reports whether err is or wraps ErrEngineNotLoaded.
func IsEngineNotLoaded(err error) bool {
	return errors.Is(err, ErrEngineNotLoaded)
}
