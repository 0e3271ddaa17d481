// Package metrics aggregates retry outcomes for observability.
//
// The Recorder keeps a bounded in-memory ring of per-operation records and
// computes aggregate views on demand; the Collector additionally exposes
// outcomes as Prometheus metrics. Both implement Sink, the interface the
// retry executor reports through.
package metrics

import (
	"sync"
	"time"
)

// DefaultCapacity bounds the Recorder's ring buffer; the oldest record is
// evicted first once the capacity is reached.
const DefaultCapacity = 10000

// OperationRecord is the telemetry for one completed retried operation.
type OperationRecord struct {
	OperationName   string
	Success         bool
	Attempts        int
	TotalDuration   time.Duration
	BackoffStrategy string
	Delays          []time.Duration
	ErrorMessage    string
}

// Sink consumes operation records.
type Sink interface {
	Record(rec OperationRecord)
}

// OperationStats aggregates records sharing an operation name.
type OperationStats struct {
	Operations      int
	SuccessRate     float64
	AverageAttempts float64
	AverageDelay    time.Duration
}

// StrategyStats aggregates records sharing a backoff strategy. TotalRetries
// counts attempts beyond the first across all operations.
type StrategyStats struct {
	Operations   int
	SuccessRate  float64
	AverageDelay time.Duration
	TotalRetries int
}

// Snapshot is a point-in-time aggregate over the recorded operations. A
// snapshot over zero records is all-zero.
type Snapshot struct {
	TotalOperations int
	SuccessRate     float64
	AverageAttempts float64
	AverageDelay    time.Duration
	ByOperation     map[string]OperationStats
	ByStrategy      map[string]StrategyStats
}

// Recorder retains operation records in a bounded ring buffer and aggregates
// them on demand. Safe for concurrent use.
type Recorder struct {
	mu       sync.RWMutex
	capacity int
	records  []OperationRecord
	start    int
	count    int
}

// RecorderOptions holds configuration overrides passed to NewRecorder().
type RecorderOptions struct {
	// Capacity bounds the ring buffer. Defaults to DefaultCapacity.
	Capacity int
}

// NewRecorder constructs an empty recorder.
func NewRecorder(optFns ...func(o *RecorderOptions)) *Recorder {
	opts := RecorderOptions{Capacity: DefaultCapacity}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Capacity < 1 {
		opts.Capacity = DefaultCapacity
	}
	return &Recorder{capacity: opts.Capacity, records: make([]OperationRecord, 0, min(opts.Capacity, 1024))}
}

// Record appends a record, evicting the oldest once capacity is reached.
func (r *Recorder) Record(rec OperationRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.count < r.capacity {
		if len(r.records) < r.capacity {
			r.records = append(r.records, rec)
		} else {
			r.records[(r.start+r.count)%r.capacity] = rec
		}
		r.count++
		return
	}
	r.records[r.start] = rec
	r.start = (r.start + 1) % r.capacity
}

// Len returns the number of retained records.
func (r *Recorder) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.count
}

// Reset discards all retained records.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = r.records[:0]
	r.start = 0
	r.count = 0
}

// GetSnapshot aggregates the retained records. With zero records it returns
// a well-defined all-zero snapshot with empty (non-nil) breakdown maps.
func (r *Recorder) GetSnapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snap := Snapshot{
		ByOperation: make(map[string]OperationStats),
		ByStrategy:  make(map[string]StrategyStats),
	}
	if r.count == 0 {
		return snap
	}

	type bucket struct {
		operations int
		successes  int
		attempts   int
		delayTotal time.Duration
		delayCount int
		retries    int
	}
	var global bucket
	perOp := make(map[string]*bucket)
	perStrategy := make(map[string]*bucket)

	accumulate := func(b *bucket, rec OperationRecord) {
		b.operations++
		if rec.Success {
			b.successes++
		}
		b.attempts += rec.Attempts
		for _, d := range rec.Delays {
			b.delayTotal += d
			b.delayCount++
		}
		if rec.Attempts > 1 {
			b.retries += rec.Attempts - 1
		}
	}

	for i := 0; i < r.count; i++ {
		rec := r.records[(r.start+i)%r.capacity]
		accumulate(&global, rec)

		ob, ok := perOp[rec.OperationName]
		if !ok {
			ob = &bucket{}
			perOp[rec.OperationName] = ob
		}
		accumulate(ob, rec)

		sb, ok := perStrategy[rec.BackoffStrategy]
		if !ok {
			sb = &bucket{}
			perStrategy[rec.BackoffStrategy] = sb
		}
		accumulate(sb, rec)
	}

	avgDelay := func(b *bucket) time.Duration {
		if b.delayCount == 0 {
			return 0
		}
		return b.delayTotal / time.Duration(b.delayCount)
	}

	snap.TotalOperations = global.operations
	snap.SuccessRate = float64(global.successes) / float64(global.operations)
	snap.AverageAttempts = float64(global.attempts) / float64(global.operations)
	snap.AverageDelay = avgDelay(&global)

	for name, b := range perOp {
		snap.ByOperation[name] = OperationStats{
			Operations:      b.operations,
			SuccessRate:     float64(b.successes) / float64(b.operations),
			AverageAttempts: float64(b.attempts) / float64(b.operations),
			AverageDelay:    avgDelay(b),
		}
	}
	for name, b := range perStrategy {
		snap.ByStrategy[name] = StrategyStats{
			Operations:   b.operations,
			SuccessRate:  float64(b.successes) / float64(b.operations),
			AverageDelay: avgDelay(b),
			TotalRetries: b.retries,
		}
	}
	return snap
}
