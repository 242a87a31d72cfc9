package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for validation failures.
var (
	ErrInvalidSubreddit  = errors.New("invalid subreddit")
	ErrInvalidLimit      = errors.New("invalid limit")
	ErrInvalidTimeFilter = errors.New("invalid time filter")
	ErrInvalidKeyword    = errors.New("invalid keyword")
	ErrInvalidRequest    = errors.New("invalid request")
	ErrMissingField      = errors.New("missing required field")
)

// ValidationError wraps a sentinel with context.
type ValidationError struct {
	Field   string
	Value   string
	Wrapped error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s (value=%q)", e.Wrapped, e.Field, e.Value)
}

func (e *ValidationError) Unwrap() error { return e.Wrapped }

// NewValidationError creates a ValidationError.
func NewValidationError(field, value string, wrapped error) *ValidationError {
	return &ValidationError{Field: field, Value: value, Wrapped: wrapped}
}
