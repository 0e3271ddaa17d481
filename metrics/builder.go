package metrics

import "time"

// OperationBuilder incrementally accumulates attempt telemetry for one
// retried operation, so callers need not retain the full attempt state
// themselves. Finalize exactly once via Success or Failure; the finalized
// record is handed to the sink.
//
// A builder is used by a single execution and is not safe for concurrent
// use.
type OperationBuilder struct {
	sink     Sink
	name     string
	strategy string
	started  time.Time
	attempts int
	delays   []time.Duration
	done     bool
}

// NewOperation starts a builder for the named operation.
func NewOperation(sink Sink, name, strategy string) *OperationBuilder {
	return &OperationBuilder{sink: sink, name: name, strategy: strategy, started: time.Now()}
}

// AttemptStarted notes that an attempt began executing. The finalized record
// reports the number of started attempts, so an operation rejected before
// its first attempt (open breaker, cancelled context) reports zero.
func (b *OperationBuilder) AttemptStarted() {
	b.attempts++
}

// RecordAttempt notes the backoff delay scheduled after a failed attempt.
func (b *OperationBuilder) RecordAttempt(delay time.Duration) {
	b.delays = append(b.delays, delay)
}

// Success finalizes the operation as successful.
func (b *OperationBuilder) Success() {
	b.finalize(true, "")
}

// Failure finalizes the operation as failed with the given message.
func (b *OperationBuilder) Failure(message string) {
	b.finalize(false, message)
}

func (b *OperationBuilder) finalize(success bool, message string) {
	if b.done || b.sink == nil {
		return
	}
	b.done = true
	b.sink.Record(OperationRecord{
		OperationName:   b.name,
		Success:         success,
		Attempts:        b.attempts,
		TotalDuration:   time.Since(b.started),
		BackoffStrategy: b.strategy,
		Delays:          b.delays,
		ErrorMessage:    message,
	})
}
