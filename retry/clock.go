package retry

import "time"

// Clock abstracts time so delays, timeouts and breaker cooldowns can be
// driven by a mock in tests.
type Clock interface {
	// Now returns the current time.
	Now() time.Time
	// Since returns the time elapsed since t.
	Since(t time.Time) time.Duration
	// After returns a channel that delivers the current time after d.
	After(d time.Duration) <-chan time.Time
}

// RealClock implements Clock using the time package.
type RealClock struct{}

// NewRealClock creates a real clock.
func NewRealClock() Clock { return RealClock{} }

// Now returns the current time.
func (RealClock) Now() time.Time { return time.Now() }

// Since returns the time elapsed since t.
func (RealClock) Since(t time.Time) time.Duration { return time.Since(t) }

// After returns a channel that delivers the current time after d.
func (RealClock) After(d time.Duration) <-chan time.Time { return time.After(d) }
