package retry

import (
	"fmt"
	"time"
)

// ErrorKind tags the failure mode of a retried execution.
type ErrorKind string

const (
	// KindInvalidPolicy indicates a malformed retry policy; surfaced at call
	// time, before any attempt runs.
	KindInvalidPolicy ErrorKind = "invalid_policy"
	// KindTimeout indicates a single attempt exceeded its timeout. Distinct
	// from an error raised by the operation itself.
	KindTimeout ErrorKind = "timeout"
	// KindCancelled indicates the caller's context was cancelled before an
	// attempt or during a between-attempt wait.
	KindCancelled ErrorKind = "cancelled"
	// KindNonRetryable indicates the classifier ruled the operation's error
	// permanent; no further attempts were made.
	KindNonRetryable ErrorKind = "non_retryable"
	// KindCircuitOpen indicates an attached breaker rejected the attempt.
	KindCircuitOpen ErrorKind = "circuit_open"
	// KindRetriesExhausted indicates every allowed attempt failed.
	KindRetriesExhausted ErrorKind = "retries_exhausted"
)

// AttemptRecord is the telemetry for one attempt of a retried operation.
type AttemptRecord struct {
	// Attempt numbers from 1.
	Attempt int
	// Err is the attempt's failure, nil for the successful attempt.
	Err error
	// Duration is how long the attempt ran.
	Duration time.Duration
	// Delay is the wait scheduled after this attempt, zero for the last one.
	Delay time.Duration
}

// Error is the structured error surfaced by the executor. It carries the
// full attempt history so callers can inspect what was tried.
type Error struct {
	Kind      ErrorKind
	Operation string
	Attempts  []AttemptRecord
	Err       error
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch e.Kind {
	case KindInvalidPolicy:
		return fmt.Sprintf("invalid retry policy: %v", e.Err)
	case KindTimeout:
		return fmt.Sprintf("operation %q attempt timed out: %v", e.Operation, e.Err)
	case KindCancelled:
		return fmt.Sprintf("operation %q cancelled: %v", e.Operation, e.Err)
	case KindNonRetryable:
		return fmt.Sprintf("operation %q failed with non-retryable error: %v", e.Operation, e.Err)
	case KindCircuitOpen:
		return fmt.Sprintf("operation %q rejected: circuit breaker open", e.Operation)
	case KindRetriesExhausted:
		return fmt.Sprintf("operation %q failed after %d attempts: %v", e.Operation, len(e.Attempts), e.Err)
	default:
		return fmt.Sprintf("operation %q failed: %v", e.Operation, e.Err)
	}
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error { return e.Err }

// IsKind reports whether err is a retry Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	e, ok := err.(*Error)
	return ok && e.Kind == kind
}
