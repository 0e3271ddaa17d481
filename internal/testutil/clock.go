// Package testutil holds shared test helpers: a mock clock adapter for the
// retry package's Clock interface and small scripted bridges for dispatch
// tests.
package testutil

import (
	"testing"
	"time"

	"github.com/coder/quartz"
)

// MockClock adapts quartz.Mock to the retry.Clock interface so tests can
// advance time deterministically.
type MockClock struct {
	*quartz.Mock
}

// NewMockClock creates a mock clock starting at the quartz epoch.
func NewMockClock(t testing.TB) *MockClock {
	return &MockClock{Mock: quartz.NewMock(t)}
}

// Now returns the mock's current time.
func (c *MockClock) Now() time.Time { return c.Mock.Now() }

// Since returns the mock-time elapsed since t.
func (c *MockClock) Since(t time.Time) time.Duration { return c.Mock.Since(t) }

// After returns a channel that fires once the mock clock has been advanced
// past d.
func (c *MockClock) After(d time.Duration) <-chan time.Time {
	return c.Mock.NewTimer(d).C
}
