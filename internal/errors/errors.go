package errors

import (
	"errors"
	"fmt"
)

// Custom error types for the Magic Code application

// ErrNotFound is returned when a code or record does not exist, or exists but
// belongs to another account. Both cases are reported the same way.
var ErrNotFound = errors.New("magic code not found")

// ErrAccountInactive is returned when an inactive account attempts a write.
var ErrAccountInactive = errors.New("account inactive")

// ErrAccountNotFound is returned when the caller's account does not exist.
var ErrAccountNotFound = errors.New("account not found")

// ErrDuplicateCode is returned by the store when a code is already taken.
var ErrDuplicateCode = errors.New("short code already exists")

// ErrExhaustedKeyspace is returned when we can't reserve a unique code within the retry budget
var ErrExhaustedKeyspace = errors.New("failed to generate unique short code")

// ErrDecryption is returned for malformed, foreign or tampered identifier tokens.
var ErrDecryption = errors.New("invalid identifier")

// ErrConcurrentUpdate is returned when another writer changed the record first.
var ErrConcurrentUpdate = errors.New("record was modified concurrently")

// ValidationError is returned when user input is missing or malformed
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NewValidationError builds a ValidationError.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// AssetCleanupError is produced when a media file could not be removed.
// It is only ever logged.
type AssetCleanupError struct {
	Path string
	Err  error
}

func (e *AssetCleanupError) Error() string {
	return fmt.Sprintf("failed to remove asset %s: %v", e.Path, e.Err)
}

func (e *AssetCleanupError) Unwrap() error {
	return e.Err
}

// ErrConfigLoad is returned when configuration loading fails
type ErrConfigLoad struct {
	Path   string
	Reason string
}

func (e ErrConfigLoad) Error() string {
	return fmt.Sprintf("failed to load config from %s: %s", e.Path, e.Reason)
}

// ErrInvalidShortCode is returned when the short code format is invalid
var ErrInvalidShortCode = errors.New("invalid short code format")
