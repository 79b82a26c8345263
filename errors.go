package loctool

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// SchemaError indicates a registry or table schema conflict, such as two
// distinct group keys mapping to the same table name. Not retryable.
type SchemaError struct {
	Message string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema error: %s", e.Message)
}

// NotFoundError indicates a status update addressed a key that does not
// exist in the group table.
type NotFoundError struct {
	Table string
	Key   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("key %q not found in table %q", e.Key, e.Table)
}

// ImportFormatError indicates an import snapshot that is not a mapping of
// string keys to string values.
type ImportFormatError struct {
	Message string
	Cause   error
}

func (e *ImportFormatError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("import format error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("import format error: %s", e.Message)
}

func (e *ImportFormatError) Unwrap() error {
	return e.Cause
}

// AuthError indicates rejected or missing provider credentials. This is a
// configuration fault: it is never retried and aborts the whole run.
type AuthError struct {
	Provider string
	Message  string
	Cause    error
}

func (e *AuthError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s auth error: %s: %v", e.Provider, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s auth error: %s", e.Provider, e.Message)
}

func (e *AuthError) Unwrap() error {
	return e.Cause
}

// RateLimitError indicates the provider rejected a call due to rate
// limiting or high load. Retryable. RetryAfter carries the provider's
// suggested backoff when the response included one; zero means no hint.
type RateLimitError struct {
	Provider   string
	Message    string
	RetryAfter time.Duration
	Cause      error
}

func (e *RateLimitError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s rate limited: %s: %v", e.Provider, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s rate limited: %s", e.Provider, e.Message)
}

func (e *RateLimitError) Unwrap() error {
	return e.Cause
}

// TransientError indicates a generic retryable provider failure: network
// errors, timeouts, 5xx responses.
type TransientError struct {
	Provider string
	Message  string
	Cause    error
}

func (e *TransientError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s transient error: %s: %v", e.Provider, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s transient error: %s", e.Provider, e.Message)
}

func (e *TransientError) Unwrap() error {
	return e.Cause
}

// CountMismatchError indicates the provider returned a different number of
// translations than texts submitted. Not retryable: the batch cannot be
// reassociated with its keys.
type CountMismatchError struct {
	Expected int
	Got      int
}

func (e *CountMismatchError) Error() string {
	return fmt.Sprintf("translation count mismatch: expected %d, got %d", e.Expected, e.Got)
}

// IsRetryable reports whether an error may resolve on retry.
// Rate-limit and transient provider errors are retryable; auth, schema and
// context errors are not.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var rateErr *RateLimitError
	if errors.As(err, &rateErr) {
		return true
	}

	var transientErr *TransientError
	if errors.As(err, &transientErr) {
		return true
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	return false
}

// IsRateLimit reports whether err is a rate-limit error and returns the
// provider's suggested backoff (zero if the provider gave no hint).
func IsRateLimit(err error) (time.Duration, bool) {
	var rateErr *RateLimitError
	if errors.As(err, &rateErr) {
		return rateErr.RetryAfter, true
	}
	return 0, false
}
