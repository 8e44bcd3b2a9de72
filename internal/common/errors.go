// Package common provides shared utilities and types used across the application.
package common

import (
	"context"
	"errors"
	"fmt"
)

// Common application errors.
var (
	// Source errors.
	ErrSourceUnavailable = errors.New("dataset source unavailable")
	ErrMalformedPayload  = errors.New("malformed dataset payload")
	ErrEmptyDataset      = errors.New("dataset has no records")

	// Normalization errors.
	ErrMalformedTime    = errors.New("malformed 12-hour time")
	ErrMalformedDate    = errors.New("malformed date")
	ErrMalformedCommune = errors.New("malformed commune label")

	// Export errors.
	ErrDuplicateEntry = errors.New("duplicate entry")
	ErrExportFailed   = errors.New("export failed")

	// Configuration errors.
	ErrMissingConfig = errors.New("missing configuration")
	ErrInvalidConfig = errors.New("invalid configuration")
)

// UserError represents an error that should be shown to the user.
type UserError struct {
	Err         error
	UserMessage string
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.UserMessage, e.Err)
	}
	return e.UserMessage
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// NewUserError creates a new user-friendly error.
func NewUserError(userMessage string, err error) error {
	return &UserError{
		UserMessage: userMessage,
		Err:         err,
	}
}

// RecordError ties a normalization failure to the record that caused it.
type RecordError struct {
	Err      error
	RecordID string
	Field    string
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("record %s, field %s: %v", e.RecordID, e.Field, e.Err)
}

func (e *RecordError) Unwrap() error {
	return e.Err
}

// IsRetryable determines if an error should trigger a retry.
func IsRetryable(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}

	// An explicit verdict wins over the wrapped sentinel.
	var retryableErr *RetryableError
	if errors.As(err, &retryableErr) {
		return retryableErr.Retryable
	}

	return errors.Is(err, ErrSourceUnavailable) || errors.Is(err, context.DeadlineExceeded)
}
