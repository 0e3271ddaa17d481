package retry

import (
	"fmt"
	"time"
)

// BackoffKind selects the delay calculator used between attempts.
type BackoffKind string

const (
	// BackoffFixed waits BaseDelay between every attempt.
	BackoffFixed BackoffKind = "fixed"
	// BackoffLinear waits BaseDelay*attempt.
	BackoffLinear BackoffKind = "linear"
	// BackoffExponential waits BaseDelay*Multiplier^(attempt-1).
	BackoffExponential BackoffKind = "exponential"
	// BackoffFibonacci waits BaseDelay*fib(attempt) with fib(1)=fib(2)=1.
	BackoffFibonacci BackoffKind = "fibonacci"
)

// Valid reports whether k is a known backoff kind.
func (k BackoffKind) Valid() bool {
	switch k {
	case BackoffFixed, BackoffLinear, BackoffExponential, BackoffFibonacci:
		return true
	}
	return false
}

// Policy configures bounded retries. A policy is validated once at the start
// of an execution and treated as immutable afterwards.
type Policy struct {
	// MaxAttempts bounds total attempts, including the first. Must be >= 1.
	MaxAttempts int
	// BaseDelay seeds the backoff calculation. Must be >= 0.
	BaseDelay time.Duration
	// MaxDelay clamps every computed delay. Must be >= BaseDelay.
	MaxDelay time.Duration
	// Multiplier grows exponential backoff. Must be >= 1.
	Multiplier float64
	// Backoff selects the delay calculator.
	Backoff BackoffKind
	// EnableJitter randomizes delays to avoid thundering herds.
	EnableJitter bool
	// JitterFactor scales the jitter band. Must be in [0, 1].
	JitterFactor float64
}

// DefaultPolicy returns a conservative exponential policy suitable for
// transient backend failures.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:  3,
		BaseDelay:    100 * time.Millisecond,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
		Backoff:      BackoffExponential,
		EnableJitter: true,
		JitterFactor: 0.1,
	}
}

// Validate checks the policy bounds, returning a KindInvalidPolicy error
// describing the first violation.
func (p Policy) Validate() error {
	switch {
	case p.MaxAttempts < 1:
		return invalidPolicy("max attempts must be >= 1, got %d", p.MaxAttempts)
	case p.BaseDelay < 0:
		return invalidPolicy("base delay must be >= 0, got %s", p.BaseDelay)
	case p.MaxDelay < p.BaseDelay:
		return invalidPolicy("max delay %s must be >= base delay %s", p.MaxDelay, p.BaseDelay)
	case p.Multiplier < 1:
		return invalidPolicy("multiplier must be >= 1, got %g", p.Multiplier)
	case !p.Backoff.Valid():
		return invalidPolicy("unknown backoff kind %q", string(p.Backoff))
	case p.JitterFactor < 0 || p.JitterFactor > 1:
		return invalidPolicy("jitter factor must be in [0, 1], got %g", p.JitterFactor)
	}
	return nil
}

func invalidPolicy(format string, args ...any) error {
	return &Error{Kind: KindInvalidPolicy, Err: fmt.Errorf(format, args...)}
}
