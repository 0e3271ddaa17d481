package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Collector exports retry outcomes as Prometheus metrics. It implements
// Sink, so it can be wired into the executor alongside (or instead of) the
// in-memory Recorder.
type Collector struct {
	operations *prometheus.CounterVec
	retries    *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	delay      *prometheus.HistogramVec
}

// CollectorOptions holds configuration overrides passed to NewCollector().
type CollectorOptions struct {
	// Namespace prefixes every metric name. Defaults to "stageflow".
	Namespace string
	// Registerer receives the collectors. Defaults to the prometheus
	// default registerer.
	Registerer prometheus.Registerer
}

// NewCollector constructs and registers the retry metric collectors.
func NewCollector(optFns ...func(o *CollectorOptions)) (*Collector, error) {
	opts := CollectorOptions{
		Namespace:  "stageflow",
		Registerer: prometheus.DefaultRegisterer,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	c := &Collector{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: opts.Namespace,
			Subsystem: "retry",
			Name:      "operations_total",
			Help:      "Completed retried operations by outcome and backoff strategy.",
		}, []string{"operation", "outcome", "strategy"}),
		retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: opts.Namespace,
			Subsystem: "retry",
			Name:      "attempts_retried_total",
			Help:      "Attempts beyond the first, by operation.",
		}, []string{"operation"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: opts.Namespace,
			Subsystem: "retry",
			Name:      "operation_duration_seconds",
			Help:      "Wall-clock duration of retried operations including waits.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 14),
		}, []string{"operation"}),
		delay: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: opts.Namespace,
			Subsystem: "retry",
			Name:      "backoff_delay_seconds",
			Help:      "Backoff delays slept between attempts.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 16),
		}, []string{"operation", "strategy"}),
	}

	for _, col := range []prometheus.Collector{c.operations, c.retries, c.duration, c.delay} {
		if err := opts.Registerer.Register(col); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Record implements Sink.
func (c *Collector) Record(rec OperationRecord) {
	outcome := "success"
	if !rec.Success {
		outcome = "failure"
	}
	c.operations.WithLabelValues(rec.OperationName, outcome, rec.BackoffStrategy).Inc()
	if rec.Attempts > 1 {
		c.retries.WithLabelValues(rec.OperationName).Add(float64(rec.Attempts - 1))
	}
	c.duration.WithLabelValues(rec.OperationName).Observe(rec.TotalDuration.Seconds())
	for _, d := range rec.Delays {
		c.delay.WithLabelValues(rec.OperationName, rec.BackoffStrategy).Observe(d.Seconds())
	}
}

// MultiSink fans records out to several sinks, e.g. a Recorder plus a
// Collector.
type MultiSink []Sink

// Record implements Sink.
func (m MultiSink) Record(rec OperationRecord) {
	for _, s := range m {
		if s != nil {
			s.Record(rec)
		}
	}
}
