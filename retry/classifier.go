package retry

import (
	"errors"
	"strings"
)

// Classification is the retryability verdict for an operation error.
type Classification int

const (
	// ClassUnknown means the classifier could not decide; unknown errors are
	// treated as retryable.
	ClassUnknown Classification = iota
	// ClassRetryable marks transient failures worth another attempt.
	ClassRetryable
	// ClassNonRetryable marks permanent failures that abort immediately.
	ClassNonRetryable
)

// String returns the string representation of the classification.
func (c Classification) String() string {
	switch c {
	case ClassRetryable:
		return "retryable"
	case ClassNonRetryable:
		return "non_retryable"
	default:
		return "unknown"
	}
}

// Classifier decides whether an operation error is worth retrying.
type Classifier func(err error) Classification

// classifiedError carries an explicit retryability verdict through error
// wrapping, overriding substring heuristics.
type classifiedError struct {
	cause     error
	retryable bool
}

func (e *classifiedError) Error() string { return e.cause.Error() }

func (e *classifiedError) Unwrap() error { return e.cause }

// MarkRetryable wraps err so the default classifier treats it as transient.
func MarkRetryable(err error) error {
	if err == nil {
		return nil
	}
	return &classifiedError{cause: err, retryable: true}
}

// MarkNonRetryable wraps err so the default classifier aborts immediately.
func MarkNonRetryable(err error) error {
	if err == nil {
		return nil
	}
	return &classifiedError{cause: err, retryable: false}
}

// retryableSubstrings match transient network failures, throttling and
// server-side errors as they commonly appear in client error strings.
var retryableSubstrings = []string{
	"connection refused",
	"connection reset",
	"broken pipe",
	"no such host",
	"timeout",
	"timed out",
	"temporarily unavailable",
	"service unavailable",
	"rate limit",
	"too many requests",
	"overloaded",
	"429",
	"500",
	"502",
	"503",
	"504",
}

// nonRetryableSubstrings match validation, authentication and other
// client-side failures that a retry cannot fix.
var nonRetryableSubstrings = []string{
	"validation",
	"invalid request",
	"invalid argument",
	"malformed",
	"unauthorized",
	"authentication",
	"forbidden",
	"permission denied",
	"not found",
	"bad request",
	"400",
	"401",
	"403",
	"404",
	"422",
}

// DefaultClassifier matches known transient failures as retryable and known
// client-side failures as non-retryable; anything else is unknown, which the
// executor treats as retryable. An explicit MarkRetryable/MarkNonRetryable
// verdict anywhere in the chain wins over the substring heuristics.
func DefaultClassifier(err error) Classification {
	if err == nil {
		return ClassUnknown
	}

	var marked *classifiedError
	if errors.As(err, &marked) {
		if marked.retryable {
			return ClassRetryable
		}
		return ClassNonRetryable
	}

	msg := strings.ToLower(err.Error())
	for _, s := range retryableSubstrings {
		if strings.Contains(msg, s) {
			return ClassRetryable
		}
	}
	for _, s := range nonRetryableSubstrings {
		if strings.Contains(msg, s) {
			return ClassNonRetryable
		}
	}
	return ClassUnknown
}
