package retry

import (
	"sync"
	"time"

	"github.com/stageflow/stageflow/logging"
)

// State is the circuit breaker state.
type State string

const (
	// StateClosed passes requests and counts failures.
	StateClosed State = "closed"
	// StateOpen rejects requests until the cooldown elapses.
	StateOpen State = "open"
	// StateHalfOpen admits a single probe request.
	StateHalfOpen State = "half-open"
)

// BreakerOptions holds configuration overrides passed to NewBreaker().
type BreakerOptions struct {
	// FailureThreshold is the consecutive-failure count that opens the
	// breaker from closed.
	FailureThreshold int
	// Cooldown is how long the breaker stays open before admitting a probe.
	Cooldown time.Duration
	// Clock drives cooldown timing. Defaults to the real clock.
	Clock Clock
	// Logger receives state transition diagnostics. Defaults to NoOp.
	Logger logging.Logger
}

// Breaker is a failure gate shared by all in-flight executions of one
// logical protected operation. It is safe for concurrent use.
//
// Closed counts consecutive failures and opens at the threshold; open
// rejects everything until the cooldown elapses, then half-open admits
// exactly one probe whose outcome either closes the breaker or re-opens it.
type Breaker struct {
	name      string
	threshold int
	cooldown  time.Duration
	clock     Clock
	logger    logging.Logger

	mu            sync.Mutex
	state         State
	failures      int
	openedAt      time.Time
	probeInFlight bool
}

// NewBreaker constructs a closed breaker for the named operation.
func NewBreaker(name string, optFns ...func(o *BreakerOptions)) *Breaker {
	opts := BreakerOptions{
		FailureThreshold: 5,
		Cooldown:         30 * time.Second,
		Clock:            RealClock{},
		Logger:           logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Breaker{
		name:      name,
		threshold: opts.FailureThreshold,
		cooldown:  opts.Cooldown,
		clock:     opts.Clock,
		logger:    opts.Logger,
		state:     StateClosed,
	}
}

// Name returns the protected operation name.
func (b *Breaker) Name() string { return b.name }

// AcceptingRequests reports whether a request may proceed. It is also the
// point where an expired cooldown transitions the breaker to half-open and
// admits the single probe; concurrent callers during the probe are rejected.
func (b *Breaker) AcceptingRequests() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		return true
	case StateOpen:
		if b.clock.Since(b.openedAt) < b.cooldown {
			return false
		}
		b.transition(StateHalfOpen, nil)
		b.probeInFlight = true
		return true
	case StateHalfOpen:
		if b.probeInFlight {
			return false
		}
		b.probeInFlight = true
		return true
	}
	return false
}

// RecordSuccess clears the failure count; a successful half-open probe
// closes the breaker.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures = 0
	if b.state == StateHalfOpen {
		b.probeInFlight = false
		b.transition(StateClosed, nil)
	}
}

// RecordFailure counts a failure; crossing the threshold while closed, or
// any failed half-open probe, opens the breaker. Failures reported while the
// breaker is already open are late results from attempts admitted earlier
// and carry no additional signal, so they are not counted.
func (b *Breaker) RecordFailure(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		b.failures++
		if b.failures >= b.threshold {
			b.openedAt = b.clock.Now()
			b.transition(StateOpen, err)
		}
	case StateHalfOpen:
		b.failures++
		b.probeInFlight = false
		b.openedAt = b.clock.Now()
		b.transition(StateOpen, err)
	}
}

// ReleaseProbe returns an admitted half-open probe slot without deciding the
// probe's outcome, so the next caller can probe instead. Callers use it when
// an admitted attempt is abandoned: its context was cancelled, or its result
// is deliberately kept out of the breaker's bookkeeping.
func (b *Breaker) ReleaseProbe() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == StateHalfOpen {
		b.probeInFlight = false
	}
}

// GetState returns the current state, accounting for cooldown expiry.
func (b *Breaker) GetState() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == StateOpen && b.clock.Since(b.openedAt) >= b.cooldown {
		return StateHalfOpen
	}
	return b.state
}

// FailureCount returns the current consecutive failure count.
func (b *Breaker) FailureCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures
}

// RemainingTimeout returns how long until an open breaker admits a probe,
// zero when the breaker is not open or the cooldown has elapsed.
func (b *Breaker) RemainingTimeout() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state != StateOpen {
		return 0
	}
	remaining := b.cooldown - b.clock.Since(b.openedAt)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// transition flips the state under the held lock and logs the change; cause
// is the failure that triggered it, nil for recovery transitions.
func (b *Breaker) transition(to State, cause error) {
	from := b.state
	b.state = to
	args := []any{"breaker", b.name, "from", string(from), "to", string(to), "failures", b.failures}
	if cause != nil {
		args = append(args, "error", cause.Error())
	}
	b.logger.Warn("Circuit breaker state changed", args...)
}
