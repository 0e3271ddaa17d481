package retry

import (
	"context"
	"fmt"
	"time"

	"github.com/stageflow/stageflow/logging"
	"github.com/stageflow/stageflow/metrics"
)

// Func is an operation eligible for retrying.
type Func[T any] func(ctx context.Context) (T, error)

// Executor runs operations with retry semantics. The zero-configuration
// executor uses the real clock, no logging, no metrics and the default
// classifier.
type Executor struct {
	clock      Clock
	logger     logging.Logger
	sink       metrics.Sink
	classifier Classifier
}

// Options holds configuration overrides passed to NewExecutor().
type Options struct {
	// Clock drives delays and timeout racing. Defaults to the real clock.
	Clock Clock
	// Logger receives attempt diagnostics. Defaults to NoOp.
	Logger logging.Logger
	// Metrics receives one record per completed operation. Nil disables
	// metrics reporting.
	Metrics metrics.Sink
	// Classifier decides retryability. Defaults to DefaultClassifier.
	Classifier Classifier
}

// NewExecutor constructs an Executor with optional overrides.
func NewExecutor(optFns ...func(o *Options)) *Executor {
	opts := Options{
		Clock:      RealClock{},
		Logger:     logging.NoOpLogger{},
		Classifier: DefaultClassifier,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Executor{clock: opts.Clock, logger: opts.Logger, sink: opts.Metrics, classifier: opts.Classifier}
}

// CallOptions tunes a single execution.
type CallOptions struct {
	// Breaker gates attempts when attached. Checked before every attempt.
	Breaker *Breaker
	// AttemptTimeout races each attempt against a timer when positive.
	AttemptTimeout time.Duration
	// Classifier overrides the executor's classifier for this call.
	Classifier Classifier
	// NotifyBreakerOnRetryable controls whether retryable failures are
	// reported to the breaker; non-retryable failures always are.
	NotifyBreakerOnRetryable bool
}

// WithBreaker attaches a circuit breaker to the execution.
func WithBreaker(b *Breaker) func(o *CallOptions) {
	return func(o *CallOptions) { o.Breaker = b }
}

// WithAttemptTimeout races each attempt against d.
func WithAttemptTimeout(d time.Duration) func(o *CallOptions) {
	return func(o *CallOptions) { o.AttemptTimeout = d }
}

// WithClassifier overrides the error classifier for this call.
func WithClassifier(c Classifier) func(o *CallOptions) {
	return func(o *CallOptions) { o.Classifier = c }
}

// WithoutBreakerOnRetryable keeps retryable failures out of the breaker's
// failure count, so only permanent failures trip it.
func WithoutBreakerOnRetryable() func(o *CallOptions) {
	return func(o *CallOptions) { o.NotifyBreakerOnRetryable = false }
}

// Result is the non-throwing outcome record returned by Try.
type Result[T any] struct {
	Success        bool
	Value          T
	Err            error
	TotalAttempts  int
	TotalDuration  time.Duration
	AttemptRecords []AttemptRecord
}

// Execute runs fn under the policy and returns its value, or a *Error whose
// kind describes why the execution gave up.
func Execute[T any](r *Executor, ctx context.Context, operation string, policy Policy, fn Func[T], optFns ...func(o *CallOptions)) (T, error) {
	res := run(r, ctx, operation, policy, fn, optFns...)
	return res.Value, res.Err
}

// Try runs fn under the policy and returns a Result record instead of
// raising, for callers that must not propagate errors across a pipeline
// boundary.
func Try[T any](r *Executor, ctx context.Context, operation string, policy Policy, fn Func[T], optFns ...func(o *CallOptions)) Result[T] {
	return run(r, ctx, operation, policy, fn, optFns...)
}

// Do runs an operation without a result value.
func Do(r *Executor, ctx context.Context, operation string, policy Policy, fn func(ctx context.Context) error, optFns ...func(o *CallOptions)) error {
	_, err := Execute(r, ctx, operation, policy, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	}, optFns...)
	return err
}

// Wrap decorates fn so every invocation runs under the policy.
func Wrap[T any](r *Executor, operation string, policy Policy, fn Func[T], optFns ...func(o *CallOptions)) Func[T] {
	return func(ctx context.Context) (T, error) {
		return Execute(r, ctx, operation, policy, fn, optFns...)
	}
}

// Map applies a pure transform to an operation's successful result.
func Map[T, U any](fn Func[T], transform func(T) U) Func[U] {
	return func(ctx context.Context) (U, error) {
		value, err := fn(ctx)
		if err != nil {
			var zero U
			return zero, err
		}
		return transform(value), nil
	}
}

// run is the shared engine behind Execute and Try.
func run[T any](r *Executor, ctx context.Context, operation string, policy Policy, fn Func[T], optFns ...func(o *CallOptions)) Result[T] {
	var res Result[T]

	if err := policy.Validate(); err != nil {
		res.Err = err
		return res
	}

	opts := CallOptions{NotifyBreakerOnRetryable: true}
	for _, opt := range optFns {
		opt(&opts)
	}
	classify := opts.Classifier
	if classify == nil {
		classify = r.classifier
	}

	var op *metrics.OperationBuilder
	if r.sink != nil {
		op = metrics.NewOperation(r.sink, operation, string(policy.Backoff))
	}

	start := r.clock.Now()
	fail := func(kind ErrorKind, cause error) Result[T] {
		res.Err = &Error{Kind: kind, Operation: operation, Attempts: res.AttemptRecords, Err: cause}
		res.TotalDuration = r.clock.Since(start)
		if op != nil {
			op.Failure(res.Err.Error())
		}
		return res
	}

	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		res.TotalAttempts = attempt

		if err := ctx.Err(); err != nil {
			return fail(KindCancelled, err)
		}
		if opts.Breaker != nil && !opts.Breaker.AcceptingRequests() {
			return fail(KindCircuitOpen, fmt.Errorf("breaker %q is %s", opts.Breaker.Name(), opts.Breaker.GetState()))
		}

		if op != nil {
			op.AttemptStarted()
		}
		attemptStart := r.clock.Now()
		value, err := runAttempt(r, ctx, fn, opts.AttemptTimeout)
		duration := r.clock.Since(attemptStart)

		if err == nil {
			res.AttemptRecords = append(res.AttemptRecords, AttemptRecord{Attempt: attempt, Duration: duration})
			if opts.Breaker != nil {
				opts.Breaker.RecordSuccess()
			}
			res.Success = true
			res.Value = value
			res.TotalDuration = r.clock.Since(start)
			if op != nil {
				op.Success()
			}
			return res
		}

		res.AttemptRecords = append(res.AttemptRecords, AttemptRecord{Attempt: attempt, Err: err, Duration: duration})

		// Cancellation is never treated as an operation failure. The breaker
		// must still learn the admitted attempt is over, or a half-open probe
		// slot would stay reserved forever.
		if ctxErr := ctx.Err(); ctxErr != nil {
			if opts.Breaker != nil {
				opts.Breaker.ReleaseProbe()
			}
			return fail(KindCancelled, ctxErr)
		}

		class := classify(err)
		if IsKind(err, KindTimeout) {
			class = ClassRetryable
		}
		retryable := class != ClassNonRetryable

		if opts.Breaker != nil {
			if !retryable || opts.NotifyBreakerOnRetryable {
				opts.Breaker.RecordFailure(err)
			} else {
				opts.Breaker.ReleaseProbe()
			}
		}

		if !retryable {
			return fail(KindNonRetryable, err)
		}
		if attempt == policy.MaxAttempts {
			return fail(KindRetriesExhausted, err)
		}

		delay := Delay(attempt, policy)
		res.AttemptRecords[len(res.AttemptRecords)-1].Delay = delay
		if op != nil {
			op.RecordAttempt(delay)
		}
		r.logger.Debug("Retrying operation",
			"operation", operation,
			"attempt", attempt,
			"classification", class.String(),
			"delay", delay,
			"error", err.Error(),
		)

		if delay > 0 {
			select {
			case <-ctx.Done():
				return fail(KindCancelled, ctx.Err())
			case <-r.clock.After(delay):
			}
		}
	}

	// The loop always returns from its final iteration.
	return res
}

// runAttempt executes fn, optionally racing it against a timeout. The loser
// of the race is ignored: the result channel is buffered so an abandoned
// attempt's eventual settlement never blocks, and its context is cancelled
// as a best-effort resource release.
func runAttempt[T any](r *Executor, ctx context.Context, fn Func[T], timeout time.Duration) (T, error) {
	if timeout <= 0 {
		return fn(ctx)
	}

	type outcome struct {
		value T
		err   error
	}

	attemptCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	resultCh := make(chan outcome, 1)
	go func() {
		value, err := fn(attemptCtx)
		resultCh <- outcome{value: value, err: err}
	}()

	select {
	case out := <-resultCh:
		return out.value, out.err
	case <-r.clock.After(timeout):
		cancel()
		var zero T
		return zero, &Error{Kind: KindTimeout, Err: fmt.Errorf("attempt exceeded %s", timeout)}
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
