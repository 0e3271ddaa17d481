// Package retry executes operations under bounded retries with pluggable
// backoff, jitter, per-attempt timeout racing, cooperative cancellation,
// error classification and circuit-breaker gating.
//
// The three entry points share one engine: Execute returns the value or a
// structured *Error carrying the full attempt history; Try returns a Result
// record instead of an error for callers that must not propagate failures
// across a pipeline boundary; Wrap turns an operation into a self-retrying
// one for later invocation. Delay exposes the pure backoff calculation and
// Breaker provides the shared failure gate.
package retry
