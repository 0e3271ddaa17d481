package retry

import (
	"math"
	"math/rand"
	"time"
)

// Delay computes the wait before the attempt following attempt number
// `attempt` under the given policy. It is a pure calculation apart from the
// jitter randomness: base delay per the policy's backoff kind, optional
// jitter of delay ± U(-0.5,0.5)*delay*JitterFactor, then a clamp to
// [0, MaxDelay] and a floor to whole milliseconds.
func Delay(attempt int, p Policy) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	var delay float64
	switch p.Backoff {
	case BackoffLinear:
		delay = float64(p.BaseDelay) * float64(attempt)
	case BackoffExponential:
		delay = float64(p.BaseDelay) * math.Pow(p.Multiplier, float64(attempt-1))
	case BackoffFibonacci:
		delay = float64(p.BaseDelay) * float64(fibonacci(attempt))
	default:
		delay = float64(p.BaseDelay)
	}

	if p.EnableJitter && p.JitterFactor > 0 {
		delay += (rand.Float64() - 0.5) * delay * p.JitterFactor
	}

	if delay < 0 {
		delay = 0
	}
	if ceiling := float64(p.MaxDelay); delay > ceiling {
		delay = ceiling
	}

	return time.Duration(delay/float64(time.Millisecond)) * time.Millisecond
}

// fibonacci returns fib(n) with fib(1)=fib(2)=1, saturating instead of
// overflowing for large n.
func fibonacci(n int) float64 {
	if n <= 2 {
		return 1
	}
	prev, cur := 1.0, 1.0
	for i := 3; i <= n; i++ {
		prev, cur = cur, prev+cur
		if math.IsInf(cur, 1) {
			return math.MaxFloat64
		}
	}
	return cur
}
