// Package stageflow provides a high-level façade over the execution core of
// a multi-stage AI pipeline: the agent registry and factory, the bridge
// registry selecting execution backends, the resilient retry executor with
// circuit breaking, and retry metrics. Most applications interact with this
// package by:
//  1. Creating a Core via New() (optionally overriding defaults)
//  2. Registering agent metadata and zero or more bridges
//  3. Running stages via RunStage, or reaching into the composed parts
//     through the accessor methods
//
// The Core is an explicitly constructed, dependency-injected context object:
// there is no process-wide singleton. Reset and Close give tests and
// embedders deterministic teardown.
package stageflow

import (
	"context"
	"time"

	"github.com/stageflow/stageflow/bridge"
	"github.com/stageflow/stageflow/core"
	"github.com/stageflow/stageflow/dispatch"
	"github.com/stageflow/stageflow/factory"
	"github.com/stageflow/stageflow/logging"
	"github.com/stageflow/stageflow/metrics"
	"github.com/stageflow/stageflow/registry"
	"github.com/stageflow/stageflow/retry"
	"github.com/stageflow/stageflow/state"
)

// Options configures the Core instance.
type Options struct {
	// RetryPolicy governs stage execution retries.
	RetryPolicy retry.Policy
	// AttemptTimeout races each bridge call when positive.
	AttemptTimeout time.Duration
	// MetricsCapacity bounds the in-memory retry metrics ring buffer.
	MetricsCapacity int
	// ExtraMetricsSink additionally receives every operation record, e.g. a
	// metrics.Collector for Prometheus export.
	ExtraMetricsSink metrics.Sink
	// Store keeps per-run stage outputs (defaults to in-memory).
	Store state.Store
	// Bridges are registered in order during construction.
	Bridges []core.Bridge
	// BreakerOptions configures the per-agent-type circuit breakers.
	BreakerOptions func(o *retry.BreakerOptions)
	// Logger (defaults to NoOp logger if nil).
	Logger logging.Logger
}

// Core is the dependency-injected execution context aggregating the
// underlying registries, factory, executor and dispatcher.
type Core struct {
	opts       Options
	registry   *registry.Registry
	factory    *factory.Factory
	bridges    *bridge.Registry
	executor   *retry.Executor
	recorder   *metrics.Recorder
	dispatcher *dispatch.Dispatcher
}

// New creates a Core with optional overrides. Any unset service is
// initialized with an in-memory implementation.
func New(optFns ...func(o *Options)) *Core {
	opts := Options{
		RetryPolicy:     retry.DefaultPolicy(),
		MetricsCapacity: metrics.DefaultCapacity,
		Store:           state.NewInMemoryStore(),
		Logger:          logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	recorder := metrics.NewRecorder(func(o *metrics.RecorderOptions) {
		o.Capacity = opts.MetricsCapacity
	})
	var sink metrics.Sink = recorder
	if opts.ExtraMetricsSink != nil {
		sink = metrics.MultiSink{recorder, opts.ExtraMetricsSink}
	}

	reg := registry.New(func(o *registry.Options) { o.Logger = opts.Logger })
	fac := factory.New(reg, func(o *factory.Options) { o.Logger = opts.Logger })
	bridges := bridge.New(func(o *bridge.Options) { o.Logger = opts.Logger })
	for _, b := range opts.Bridges {
		bridges.Register(b)
	}
	executor := retry.NewExecutor(func(o *retry.Options) {
		o.Logger = opts.Logger
		o.Metrics = sink
	})
	dispatcher := dispatch.New(reg, fac, bridges, executor, func(o *dispatch.Options) {
		o.Policy = opts.RetryPolicy
		o.AttemptTimeout = opts.AttemptTimeout
		o.Store = opts.Store
		o.BreakerOptions = opts.BreakerOptions
		o.Logger = opts.Logger
	})

	return &Core{
		opts:       opts,
		registry:   reg,
		factory:    fac,
		bridges:    bridges,
		executor:   executor,
		recorder:   recorder,
		dispatcher: dispatcher,
	}
}

// RegisterAgent adds agent metadata to the underlying registry.
func (c *Core) RegisterAgent(meta core.AgentMetadata) error { return c.registry.Register(meta) }

// RegisterBridge appends a bridge to the backend priority order.
func (c *Core) RegisterBridge(b core.Bridge) { c.bridges.Register(b) }

// CreateAgent instantiates (or returns the cached) agent for id.
func (c *Core) CreateAgent(ctx context.Context, agentID string, optFns ...func(o *factory.CreateOptions)) (core.Agent, error) {
	return c.factory.Create(ctx, agentID, optFns...)
}

// RunStage executes one pipeline stage through the dispatcher.
func (c *Core) RunStage(ctx context.Context, req dispatch.StageRequest) (*dispatch.StageResult, error) {
	return c.dispatcher.RunStage(ctx, req)
}

// Registry returns the agent registry.
func (c *Core) Registry() *registry.Registry { return c.registry }

// Factory returns the agent factory.
func (c *Core) Factory() *factory.Factory { return c.factory }

// Bridges returns the bridge registry.
func (c *Core) Bridges() *bridge.Registry { return c.bridges }

// Executor returns the retry executor.
func (c *Core) Executor() *retry.Executor { return c.executor }

// Metrics returns the in-memory retry metrics recorder.
func (c *Core) Metrics() *metrics.Recorder { return c.recorder }

// Dispatcher returns the stage dispatcher.
func (c *Core) Dispatcher() *dispatch.Dispatcher { return c.dispatcher }

// Reset disposes cached agent instances and clears recorded metrics,
// leaving registrations in place. Intended for test isolation between
// cases sharing one Core.
func (c *Core) Reset(ctx context.Context) {
	c.factory.DisposeAll(ctx)
	c.recorder.Reset()
}

// Close releases everything the Core owns: cached agents and all bridges,
// including the stub fallback. Dispose failures are logged and discarded.
func (c *Core) Close(ctx context.Context) {
	c.factory.DisposeAll(ctx)
	c.bridges.DisposeAll(ctx)
}
