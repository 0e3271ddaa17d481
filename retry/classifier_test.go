package retry

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultClassifier_Retryable(t *testing.T) {
	cases := []string{
		"dial tcp 10.0.0.1:443: connection refused",
		"read: connection reset by peer",
		"write: broken pipe",
		"lookup api.example.com: no such host",
		"request timed out after 30s",
		"i/o timeout",
		"resource temporarily unavailable",
		"503 service unavailable",
		"rate limit exceeded",
		"429 too many requests",
		"upstream overloaded",
		"502 bad gateway",
		"HTTP 500 internal server error",
	}
	for _, msg := range cases {
		t.Run(msg, func(t *testing.T) {
			assert.Equal(t, ClassRetryable, DefaultClassifier(errors.New(msg)))
		})
	}
}

func TestDefaultClassifier_NonRetryable(t *testing.T) {
	cases := []string{
		"validation failed: field input is required",
		"invalid request payload",
		"invalid argument: temperature out of range",
		"malformed JSON body",
		"401 unauthorized",
		"authentication failed",
		"403 forbidden",
		"permission denied",
		"model not found",
		"400 bad request",
		"422 unprocessable entity",
	}
	for _, msg := range cases {
		t.Run(msg, func(t *testing.T) {
			assert.Equal(t, ClassNonRetryable, DefaultClassifier(errors.New(msg)))
		})
	}
}

func TestDefaultClassifier_Unknown(t *testing.T) {
	assert.Equal(t, ClassUnknown, DefaultClassifier(errors.New("something odd happened")))
	assert.Equal(t, ClassUnknown, DefaultClassifier(nil))
}

func TestDefaultClassifier_RetryableWinsOverNonRetryable(t *testing.T) {
	// Transient substrings are checked first, so a message matching both
	// lists stays retryable.
	err := errors.New("timeout while fetching not found cache entry")
	assert.Equal(t, ClassRetryable, DefaultClassifier(err))
}

func TestDefaultClassifier_CaseInsensitive(t *testing.T) {
	assert.Equal(t, ClassRetryable, DefaultClassifier(errors.New("Connection Refused")))
	assert.Equal(t, ClassNonRetryable, DefaultClassifier(errors.New("UNAUTHORIZED")))
}

func TestMarkRetryable(t *testing.T) {
	// Explicit verdicts beat the substring heuristics.
	err := MarkRetryable(errors.New("validation failed"))
	assert.Equal(t, ClassRetryable, DefaultClassifier(err))

	err = MarkNonRetryable(errors.New("connection refused"))
	assert.Equal(t, ClassNonRetryable, DefaultClassifier(err))

	assert.Nil(t, MarkRetryable(nil))
	assert.Nil(t, MarkNonRetryable(nil))
}

func TestMarkedErrors_SurviveWrapping(t *testing.T) {
	cause := errors.New("quota exhausted for tenant")
	wrapped := fmt.Errorf("calling backend: %w", MarkNonRetryable(cause))

	assert.Equal(t, ClassNonRetryable, DefaultClassifier(wrapped))
	assert.ErrorIs(t, wrapped, cause)
}

func TestClassification_String(t *testing.T) {
	assert.Equal(t, "retryable", ClassRetryable.String())
	assert.Equal(t, "non_retryable", ClassNonRetryable.String())
	assert.Equal(t, "unknown", ClassUnknown.String())
}
