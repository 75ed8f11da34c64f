package etl

import (
	"errors"
	"fmt"
	"strings"
)

// MalformedRecordError marks a record that cannot be turned into a valid
// document. It is permanent: the retry policy never re-attempts it.
type MalformedRecordError struct {
	Reason string
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("malformed record: %s", e.Reason)
}

// MissingKeyFieldError reports a record whose natural-key field is null or
// absent, so no document key can be derived.
type MissingKeyFieldError struct {
	Field string
}

func (e *MissingKeyFieldError) Error() string {
	return fmt.Sprintf("missing key field %q", e.Field)
}

// BatchWriteExhaustedError wraps the last error after every retry attempt
// for a batch has failed.
type BatchWriteExhaustedError struct {
	Attempts int
	Cause    error
}

func (e *BatchWriteExhaustedError) Error() string {
	return fmt.Sprintf("batch write failed after %d attempts: %v", e.Attempts, e.Cause)
}

func (e *BatchWriteExhaustedError) Unwrap() error { return e.Cause }

// isPermanent reports whether an error should short-circuit the retry loop.
func isPermanent(err error) bool {
	var malformed *MalformedRecordError
	var missingKey *MissingKeyFieldError
	return errors.As(err, &malformed) || errors.As(err, &missingKey)
}

// isQuotaError classifies rate-limit / quota-exhaustion responses, which get
// a steeper backoff than ordinary transient failures.
func isQuotaError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "quota") ||
		strings.Contains(msg, "rate limit") ||
		strings.Contains(msg, "too many requests") ||
		strings.Contains(msg, "resource exhausted")
}
