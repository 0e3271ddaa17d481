package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stageflow/stageflow/metrics"
)

// fastPolicy retries aggressively with negligible real delays.
func fastPolicy(maxAttempts int) Policy {
	return Policy{
		MaxAttempts: maxAttempts,
		BaseDelay:   time.Millisecond,
		MaxDelay:    10 * time.Millisecond,
		Multiplier:  2.0,
		Backoff:     BackoffFixed,
	}
}

func TestExecute_SucceedsFirstAttempt(t *testing.T) {
	r := NewExecutor()
	calls := 0

	value, err := Execute(r, context.Background(), "fetch", fastPolicy(3), func(context.Context) (string, error) {
		calls++
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", value)
	assert.Equal(t, 1, calls)
}

func TestExecute_RetriesUntilSuccess(t *testing.T) {
	r := NewExecutor()
	calls := 0

	res := Try(r, context.Background(), "fetch", fastPolicy(5), func(context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", errors.New("connection refused")
		}
		return "ok", nil
	})

	require.True(t, res.Success)
	assert.Equal(t, "ok", res.Value)
	assert.Equal(t, 3, res.TotalAttempts)
	require.Len(t, res.AttemptRecords, 3)
	assert.Error(t, res.AttemptRecords[0].Err)
	assert.Error(t, res.AttemptRecords[1].Err)
	assert.NoError(t, res.AttemptRecords[2].Err)
	assert.NotZero(t, res.AttemptRecords[0].Delay, "failed attempts carry their scheduled delay")
	assert.Zero(t, res.AttemptRecords[2].Delay, "the successful attempt has no delay")
}

func TestExecute_RetriesExhausted(t *testing.T) {
	r := NewExecutor()
	cause := errors.New("connection refused")
	calls := 0

	_, err := Execute(r, context.Background(), "fetch", fastPolicy(3), func(context.Context) (string, error) {
		calls++
		return "", cause
	})

	require.Error(t, err)
	assert.True(t, IsKind(err, KindRetriesExhausted))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, 3, calls)
	assert.Len(t, err.(*Error).Attempts, 3)
	assert.Contains(t, err.Error(), "after 3 attempts")
}

func TestExecute_NonRetryableAbortsImmediately(t *testing.T) {
	r := NewExecutor()
	calls := 0

	_, err := Execute(r, context.Background(), "fetch", fastPolicy(5), func(context.Context) (string, error) {
		calls++
		return "", errors.New("401 unauthorized")
	})

	require.Error(t, err)
	assert.True(t, IsKind(err, KindNonRetryable))
	assert.Equal(t, 1, calls, "no second attempt after a permanent failure")
}

func TestExecute_UnknownErrorsAreRetried(t *testing.T) {
	r := NewExecutor()
	calls := 0

	_, err := Execute(r, context.Background(), "fetch", fastPolicy(2), func(context.Context) (string, error) {
		calls++
		return "", errors.New("something odd happened")
	})

	require.Error(t, err)
	assert.True(t, IsKind(err, KindRetriesExhausted))
	assert.Equal(t, 2, calls)
}

func TestExecute_SingleAttemptNeverSleeps(t *testing.T) {
	r := NewExecutor()
	policy := fastPolicy(1)
	policy.BaseDelay = time.Hour
	policy.MaxDelay = time.Hour

	start := time.Now()
	_, err := Execute(r, context.Background(), "fetch", policy, func(context.Context) (string, error) {
		return "", errors.New("connection refused")
	})

	require.Error(t, err)
	assert.True(t, IsKind(err, KindRetriesExhausted))
	assert.Less(t, time.Since(start), time.Second, "a one-attempt policy must not back off")
}

func TestExecute_InvalidPolicyFailsBeforeAnyAttempt(t *testing.T) {
	r := NewExecutor()
	calls := 0

	_, err := Execute(r, context.Background(), "fetch", Policy{}, func(context.Context) (string, error) {
		calls++
		return "", nil
	})

	require.Error(t, err)
	assert.True(t, IsKind(err, KindInvalidPolicy))
	assert.Zero(t, calls)
}

func TestExecute_CancelledBeforeFirstAttempt(t *testing.T) {
	r := NewExecutor()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	calls := 0

	_, err := Execute(r, ctx, "fetch", fastPolicy(3), func(context.Context) (string, error) {
		calls++
		return "", nil
	})

	require.Error(t, err)
	assert.True(t, IsKind(err, KindCancelled))
	assert.Zero(t, calls)
}

func TestExecute_CancelledDuringBackoff(t *testing.T) {
	r := NewExecutor()
	policy := fastPolicy(3)
	policy.BaseDelay = time.Minute
	policy.MaxDelay = time.Minute

	ctx, cancel := context.WithCancel(context.Background())
	_, err := Execute(r, ctx, "fetch", policy, func(context.Context) (string, error) {
		cancel()
		return "", errors.New("connection refused")
	})

	require.Error(t, err)
	assert.True(t, IsKind(err, KindCancelled))
}

func TestExecute_AttemptTimeout(t *testing.T) {
	r := NewExecutor()
	calls := 0

	_, err := Execute(r, context.Background(), "slow", fastPolicy(2), func(ctx context.Context) (string, error) {
		calls++
		select {
		case <-time.After(10 * time.Second):
			return "too late", nil
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}, WithAttemptTimeout(20*time.Millisecond))

	require.Error(t, err)
	// Timeouts are always retryable, so both attempts ran and exhausted.
	assert.True(t, IsKind(err, KindRetriesExhausted))
	assert.Equal(t, 2, calls)
	var rerr *Error
	require.ErrorAs(t, err, &rerr)
	assert.True(t, IsKind(rerr.Err, KindTimeout))
}

func TestExecute_TimeoutNotTriggeredByFastOperation(t *testing.T) {
	r := NewExecutor()

	value, err := Execute(r, context.Background(), "fast", fastPolicy(1), func(context.Context) (string, error) {
		return "ok", nil
	}, WithAttemptTimeout(time.Second))

	require.NoError(t, err)
	assert.Equal(t, "ok", value)
}

func TestExecute_BreakerRejectsWhenOpen(t *testing.T) {
	r := NewExecutor()
	breaker := NewBreaker("backend", func(o *BreakerOptions) { o.FailureThreshold = 1 })
	calls := 0

	_, err := Execute(r, context.Background(), "fetch", fastPolicy(3), func(context.Context) (string, error) {
		calls++
		return "", errors.New("connection refused")
	}, WithBreaker(breaker))

	require.Error(t, err)
	assert.True(t, IsKind(err, KindCircuitOpen), "second attempt is rejected by the now-open breaker")
	assert.Equal(t, 1, calls)
	assert.Equal(t, StateOpen, breaker.GetState())
}

func TestExecute_BreakerSeesSuccess(t *testing.T) {
	r := NewExecutor()
	breaker := NewBreaker("backend", func(o *BreakerOptions) { o.FailureThreshold = 2 })

	_, err := Execute(r, context.Background(), "fetch", fastPolicy(3), func(context.Context) (string, error) {
		return "ok", nil
	}, WithBreaker(breaker))

	require.NoError(t, err)
	assert.Zero(t, breaker.FailureCount())
	assert.Equal(t, StateClosed, breaker.GetState())
}

func TestExecute_WithoutBreakerOnRetryable(t *testing.T) {
	r := NewExecutor()
	breaker := NewBreaker("backend", func(o *BreakerOptions) { o.FailureThreshold = 1 })
	calls := 0

	_, err := Execute(r, context.Background(), "fetch", fastPolicy(2), func(context.Context) (string, error) {
		calls++
		return "", errors.New("connection refused")
	}, WithBreaker(breaker), WithoutBreakerOnRetryable())

	require.Error(t, err)
	assert.True(t, IsKind(err, KindRetriesExhausted))
	assert.Equal(t, 2, calls, "retryable failures no longer trip the breaker")
	assert.Equal(t, StateClosed, breaker.GetState())

	// Non-retryable failures still count.
	_, err = Execute(r, context.Background(), "fetch", fastPolicy(2), func(context.Context) (string, error) {
		return "", errors.New("401 unauthorized")
	}, WithBreaker(breaker), WithoutBreakerOnRetryable())
	require.Error(t, err)
	assert.Equal(t, StateOpen, breaker.GetState())
}

func TestExecute_AbandonedAttemptReleasesBreaker(t *testing.T) {
	r := NewExecutor()
	breaker := NewBreaker("backend", func(o *BreakerOptions) {
		o.FailureThreshold = 1
		o.Cooldown = 10 * time.Millisecond
	})
	breaker.RecordFailure(errors.New("overloaded"))
	require.Equal(t, StateOpen, breaker.GetState())
	time.Sleep(20 * time.Millisecond)

	// The single half-open slot is granted to this execution, which is then
	// cancelled mid-attempt and gives up without reporting an outcome.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	_, err := Execute(r, ctx, "fetch", fastPolicy(3), func(context.Context) (string, error) {
		cancel()
		return "", errors.New("connection refused")
	}, WithBreaker(breaker))

	require.Error(t, err)
	assert.True(t, IsKind(err, KindCancelled))
	assert.True(t, breaker.AcceptingRequests(), "the abandoned slot must not block later callers")
}

func TestExecute_UnreportedRetryableFailureReleasesBreaker(t *testing.T) {
	r := NewExecutor()
	breaker := NewBreaker("backend", func(o *BreakerOptions) {
		o.FailureThreshold = 1
		o.Cooldown = 10 * time.Millisecond
	})
	breaker.RecordFailure(errors.New("overloaded"))
	time.Sleep(20 * time.Millisecond)

	_, err := Execute(r, context.Background(), "fetch", fastPolicy(1), func(context.Context) (string, error) {
		return "", errors.New("connection refused")
	}, WithBreaker(breaker), WithoutBreakerOnRetryable())

	require.Error(t, err)
	assert.True(t, IsKind(err, KindRetriesExhausted))
	assert.True(t, breaker.AcceptingRequests(), "a failure kept from the breaker still frees its slot")
}

func TestExecute_CustomClassifier(t *testing.T) {
	r := NewExecutor()
	calls := 0
	pessimist := func(error) Classification { return ClassNonRetryable }

	_, err := Execute(r, context.Background(), "fetch", fastPolicy(5), func(context.Context) (string, error) {
		calls++
		return "", errors.New("connection refused")
	}, WithClassifier(pessimist))

	require.Error(t, err)
	assert.True(t, IsKind(err, KindNonRetryable))
	assert.Equal(t, 1, calls)
}

func TestTry_FailureResult(t *testing.T) {
	r := NewExecutor()

	res := Try(r, context.Background(), "fetch", fastPolicy(2), func(context.Context) (int, error) {
		return 0, errors.New("connection refused")
	})

	assert.False(t, res.Success)
	assert.Error(t, res.Err)
	assert.Equal(t, 2, res.TotalAttempts)
	assert.Len(t, res.AttemptRecords, 2)
	assert.Zero(t, res.Value)
}

func TestDo(t *testing.T) {
	r := NewExecutor()
	calls := 0

	err := Do(r, context.Background(), "ping", fastPolicy(3), func(context.Context) error {
		calls++
		if calls < 2 {
			return errors.New("connection refused")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestWrap(t *testing.T) {
	r := NewExecutor()
	calls := 0
	wrapped := Wrap(r, "fetch", fastPolicy(3), func(context.Context) (string, error) {
		calls++
		if calls < 2 {
			return "", errors.New("connection refused")
		}
		return "ok", nil
	})

	value, err := wrapped(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ok", value)
	assert.Equal(t, 2, calls)
}

func TestMap(t *testing.T) {
	fetch := func(context.Context) (int, error) { return 21, nil }
	doubled := Map(fetch, func(v int) string { return fmt.Sprintf("%d", v*2) })

	value, err := doubled(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "42", value)

	failing := Map(func(context.Context) (int, error) {
		return 0, errors.New("nope")
	}, func(v int) string { return "unused" })
	_, err = failing(context.Background())
	assert.Error(t, err)
}

func TestExecute_ReportsMetrics(t *testing.T) {
	recorder := metrics.NewRecorder()
	r := NewExecutor(func(o *Options) { o.Metrics = recorder })
	calls := 0

	_, err := Execute(r, context.Background(), "fetch", fastPolicy(5), func(context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", errors.New("connection refused")
		}
		return "ok", nil
	})
	require.NoError(t, err)

	require.Equal(t, 1, recorder.Len())
	snap := recorder.GetSnapshot()
	assert.Equal(t, 1, snap.TotalOperations)
	assert.Equal(t, 1.0, snap.SuccessRate)
	assert.Equal(t, 3.0, snap.AverageAttempts)
	require.Contains(t, snap.ByOperation, "fetch")
	assert.Equal(t, 1.0, snap.ByOperation["fetch"].SuccessRate)
	require.Contains(t, snap.ByStrategy, string(BackoffFixed))
	assert.Equal(t, 2, snap.ByStrategy[string(BackoffFixed)].TotalRetries)
}

func TestExecute_CircuitOpenRecordsZeroAttempts(t *testing.T) {
	recorder := metrics.NewRecorder()
	r := NewExecutor(func(o *Options) { o.Metrics = recorder })
	breaker := NewBreaker("backend", func(o *BreakerOptions) { o.FailureThreshold = 1 })
	breaker.RecordFailure(errors.New("overloaded"))

	_, err := Execute(r, context.Background(), "fetch", fastPolicy(3), func(context.Context) (string, error) {
		return "ok", nil
	}, WithBreaker(breaker))

	require.Error(t, err)
	assert.True(t, IsKind(err, KindCircuitOpen))
	require.Equal(t, 1, recorder.Len())
	assert.Zero(t, recorder.GetSnapshot().AverageAttempts, "no attempt ever ran")
}
