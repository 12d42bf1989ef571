package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestSentinelErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		checkFn  func(error) bool
		expected bool
	}{
		{
			name:     "ErrNotFound is recognized",
			err:      ErrNotFound,
			checkFn:  IsNotFound,
			expected: true,
		},
		{
			name:     "Joined ErrNotFound is recognized",
			err:      errors.Join(ErrNotFound, errors.New("additional context")),
			checkFn:  IsNotFound,
			expected: true,
		},
		{
			name:     "Different error is not ErrNotFound",
			err:      ErrRateLimitExceeded,
			checkFn:  IsNotFound,
			expected: false,
		},
		{
			name:     "ErrRateLimitExceeded is recognized",
			err:      fmt.Errorf("sender abc: %w", ErrRateLimitExceeded),
			checkFn:  IsRateLimited,
			expected: true,
		},
		{
			name:     "ErrEngineNotLoaded is recognized",
			err:      fmt.Errorf("handle text: %w", ErrEngineNotLoaded),
			checkFn:  IsEngineNotLoaded,
			expected: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.checkFn(tt.err)
			if result != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, result)
			}
		})
	}
}

func TestValidationError(t *testing.T) {
	err := NewValidationError("version", "is required")

	if err.Field != "version" {
		t.Errorf("expected field 'version', got %q", err.Field)
	}
	expected := "validation failed on version: is required"
	if err.Error() != expected {
		t.Errorf("expected %q, got %q", expected, err.Error())
	}
}

func TestModelError(t *testing.T) {
	cause := errors.New("object missing")
	err := NewModelError("r2", "models/bundle.yml.zst", fmt.Errorf("%w: %w", ErrNotFound, cause))

	if !IsNotFound(err) {
		t.Error("expected ModelError to unwrap to ErrNotFound")
	}
	if !errors.Is(err, cause) {
		t.Error("expected ModelError to unwrap to cause")
	}
	expected := "model load failed (source=r2, ref=models/bundle.yml.zst): resource not found: object missing"
	if err.Error() != expected {
		t.Errorf("expected %q, got %q", expected, err.Error())
	}

	embedded := NewModelError("embedded", "", cause)
	if embedded.Error() != "model load failed (source=embedded): object missing" {
		t.Errorf("unexpected message %q", embedded.Error())
	}
}
