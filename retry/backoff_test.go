package retry

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func noJitterPolicy(kind BackoffKind) Policy {
	return Policy{
		MaxAttempts: 5,
		BaseDelay:   100 * time.Millisecond,
		MaxDelay:    time.Minute,
		Multiplier:  2.0,
		Backoff:     kind,
	}
}

func TestDelay_Fixed(t *testing.T) {
	p := noJitterPolicy(BackoffFixed)
	for attempt := 1; attempt <= 6; attempt++ {
		assert.Equal(t, 100*time.Millisecond, Delay(attempt, p), "attempt %d", attempt)
	}
}

func TestDelay_Linear(t *testing.T) {
	p := noJitterPolicy(BackoffLinear)
	expected := []time.Duration{100, 200, 300, 400, 500}
	for i, want := range expected {
		assert.Equal(t, want*time.Millisecond, Delay(i+1, p), "attempt %d", i+1)
	}
}

func TestDelay_Exponential(t *testing.T) {
	p := noJitterPolicy(BackoffExponential)
	expected := []time.Duration{100, 200, 400, 800, 1600}
	for i, want := range expected {
		assert.Equal(t, want*time.Millisecond, Delay(i+1, p), "attempt %d", i+1)
	}

	p.Multiplier = 3.0
	assert.Equal(t, 900*time.Millisecond, Delay(3, p))
}

func TestDelay_Fibonacci(t *testing.T) {
	p := noJitterPolicy(BackoffFibonacci)
	// fib: 1 1 2 3 5 8
	expected := []time.Duration{100, 100, 200, 300, 500, 800}
	for i, want := range expected {
		assert.Equal(t, want*time.Millisecond, Delay(i+1, p), "attempt %d", i+1)
	}
}

func TestDelay_ClampsToMaxDelay(t *testing.T) {
	p := noJitterPolicy(BackoffExponential)
	p.MaxDelay = 500 * time.Millisecond
	assert.Equal(t, 500*time.Millisecond, Delay(10, p))

	p = noJitterPolicy(BackoffFibonacci)
	p.MaxDelay = time.Second
	// Deep attempts saturate instead of overflowing.
	assert.Equal(t, time.Second, Delay(500, p))
}

func TestDelay_NormalizesAttempt(t *testing.T) {
	p := noJitterPolicy(BackoffLinear)
	assert.Equal(t, Delay(1, p), Delay(0, p))
	assert.Equal(t, Delay(1, p), Delay(-3, p))
}

func TestDelay_WholeMilliseconds(t *testing.T) {
	p := noJitterPolicy(BackoffExponential)
	p.BaseDelay = 150*time.Millisecond + 700*time.Microsecond
	for attempt := 1; attempt <= 5; attempt++ {
		d := Delay(attempt, p)
		assert.Zero(t, d%time.Millisecond, "attempt %d: %s not floored to ms", attempt, d)
	}
}

func TestDelay_JitterStaysInBounds(t *testing.T) {
	for _, factor := range []float64{0.0, 0.1, 0.5, 1.0} {
		t.Run(fmt.Sprintf("factor=%g", factor), func(t *testing.T) {
			p := noJitterPolicy(BackoffExponential)
			p.EnableJitter = true
			p.JitterFactor = factor

			for attempt := 1; attempt <= 8; attempt++ {
				base := Delay(attempt, noJitterPolicy(BackoffExponential))
				lower := time.Duration(float64(base) * (1 - factor/2))
				upper := time.Duration(float64(base) * (1 + factor/2))
				if upper > p.MaxDelay {
					upper = p.MaxDelay
				}

				for i := 0; i < 50; i++ {
					d := Delay(attempt, p)
					assert.GreaterOrEqual(t, d, time.Duration(0))
					assert.LessOrEqual(t, d, p.MaxDelay)
					// Allow the millisecond floor on the lower bound.
					assert.GreaterOrEqual(t, d, lower-time.Millisecond)
					assert.LessOrEqual(t, d, upper)
				}
			}
		})
	}
}

func TestDelay_ZeroBaseDelay(t *testing.T) {
	for _, kind := range []BackoffKind{BackoffFixed, BackoffLinear, BackoffExponential, BackoffFibonacci} {
		p := noJitterPolicy(kind)
		p.BaseDelay = 0
		p.EnableJitter = true
		p.JitterFactor = 1.0
		assert.Zero(t, Delay(3, p), string(kind))
	}
}

func TestFibonacci(t *testing.T) {
	expected := []float64{1, 1, 2, 3, 5, 8, 13, 21}
	for i, want := range expected {
		assert.Equal(t, want, fibonacci(i+1), "fib(%d)", i+1)
	}
	// Deep values saturate rather than going infinite.
	assert.False(t, fibonacci(10000) <= 0)
}
