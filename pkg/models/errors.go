package models

import (
	"errors"
	"fmt"
)

// Sentinel errors for aggregate lookups. The dispatcher treats these as
// retryable when a handler re-raises them; read-side callers map them to
// not-found responses.
var (
	ErrSessionNotFound = errors.New("session not found")
	ErrRequestNotFound = errors.New("messaging request not found")
	ErrMessageNotFound = errors.New("message not found")
	ErrFileNotFound    = errors.New("file not found")
	ErrEventNotFound   = errors.New("outbox event not found")
)

// ValidationError marks client-visible bad input (missing required field,
// wrong contact shape, invalid session schema). Validation errors are never
// retried: the send loop maps them to per-message failed status and import
// handlers map them to a failed staging job.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

// Validationf builds a ValidationError with a formatted message.
func Validationf(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
