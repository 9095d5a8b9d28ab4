package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for store and service failures. Handlers dispatch on
// these with errors.Is.
var (
	// ErrNotFound indicates an unknown session id.
	ErrNotFound = errors.New("session not found")

	// ErrConflict indicates a duplicate session id on create. Ids are
	// generated, so this is a defensive guard only.
	ErrConflict = errors.New("session already exists")
)

// ValidationError reports missing or invalid required fields.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
