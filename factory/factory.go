// Package factory instantiates agents from registry metadata, injecting
// dependencies and driving the initialize/dispose lifecycle.
//
// Singleton agents are cached per id; concurrent callers requesting the same
// not-yet-created singleton are de-duplicated so exactly one build+initialize
// sequence runs and every caller receives the same instance. Transient
// agents are built fresh on every request and ownership transfers to the
// caller.
package factory

import (
	"context"
	"fmt"
	"sync"

	"github.com/stageflow/stageflow/core"
	"github.com/stageflow/stageflow/logging"
	"github.com/stageflow/stageflow/registry"
)

// CreateOptions tunes a single Create call.
type CreateOptions struct {
	// ForceNew builds a fresh instance even when a singleton is cached.
	// The replaced instance is disposed best-effort.
	ForceNew bool
	// SkipInitialize skips the Initialize hook on the new instance.
	SkipInitialize bool
}

// WithForceNew requests a fresh instance, replacing any cached singleton.
func WithForceNew() func(o *CreateOptions) {
	return func(o *CreateOptions) { o.ForceNew = true }
}

// WithSkipInitialize skips the Initialize hook.
func WithSkipInitialize() func(o *CreateOptions) {
	return func(o *CreateOptions) { o.SkipInitialize = true }
}

// creation tracks one in-progress singleton build so concurrent callers can
// wait for its outcome instead of racing a duplicate build.
type creation struct {
	done  chan struct{}
	agent core.Agent
	err   error
}

// Factory creates and caches agent instances.
type Factory struct {
	registry *registry.Registry
	logger   logging.Logger

	mu       sync.Mutex
	cache    map[string]core.Agent
	inflight map[string]*creation
}

// Options holds configuration overrides passed to New().
type Options struct {
	// Logger receives lifecycle diagnostics. Defaults to NoOp.
	Logger logging.Logger
}

// New constructs a Factory backed by the given registry.
func New(reg *registry.Registry, optFns ...func(o *Options)) *Factory {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Factory{
		registry: reg,
		logger:   opts.Logger,
		cache:    make(map[string]core.Agent),
		inflight: make(map[string]*creation),
	}
}

// Create returns an instance for agentID, honoring its lifecycle.
//
// For a cached singleton without ForceNew the cached instance is returned
// immediately. Otherwise the full dependency chain is validated (surfacing
// circular dependencies), required dependencies are created recursively, the
// build function runs and Initialize is invoked unless skipped.
func (f *Factory) Create(ctx context.Context, agentID string, optFns ...func(o *CreateOptions)) (core.Agent, error) {
	var opts CreateOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	// Surfaces not-registered and circular-dependency errors before any
	// instance is touched.
	if _, err := f.registry.DependencyChain(agentID); err != nil {
		return nil, err
	}

	return f.create(ctx, agentID, opts)
}

func (f *Factory) create(ctx context.Context, agentID string, opts CreateOptions) (core.Agent, error) {
	meta, err := f.registry.Get(agentID)
	if err != nil {
		return nil, err
	}

	if meta.Lifecycle == core.LifecycleTransient {
		return f.build(ctx, meta, opts)
	}

	for {
		f.mu.Lock()
		if cached, ok := f.cache[agentID]; ok && !opts.ForceNew {
			f.mu.Unlock()
			return cached, nil
		}
		if pending, ok := f.inflight[agentID]; ok {
			f.mu.Unlock()
			select {
			case <-pending.done:
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			if opts.ForceNew {
				// The winner's instance is stale for a ForceNew caller;
				// loop to replace it.
				continue
			}
			return pending.agent, pending.err
		}
		pending := &creation{done: make(chan struct{})}
		f.inflight[agentID] = pending
		var replaced core.Agent
		if opts.ForceNew {
			replaced = f.cache[agentID]
			delete(f.cache, agentID)
		}
		f.mu.Unlock()

		instance, buildErr := f.build(ctx, meta, opts)

		f.mu.Lock()
		if buildErr == nil {
			f.cache[agentID] = instance
		}
		delete(f.inflight, agentID)
		f.mu.Unlock()

		pending.agent = instance
		pending.err = buildErr
		close(pending.done)

		if replaced != nil {
			f.disposeQuietly(ctx, agentID, replaced)
		}
		return instance, buildErr
	}
}

// build validates dependencies, creates them recursively and invokes the
// metadata build function plus the Initialize hook.
func (f *Factory) build(ctx context.Context, meta core.AgentMetadata, opts CreateOptions) (core.Agent, error) {
	missing, err := f.registry.ValidateDependencies(meta.AgentID)
	if err != nil {
		return nil, err
	}
	if len(missing) > 0 {
		return nil, &Error{Kind: KindDependencyResolution, AgentID: meta.AgentID, Missing: missing}
	}

	deps := make(map[string]core.Agent, len(meta.Dependencies))
	for _, dep := range meta.Dependencies {
		if dep.Optional && !f.registry.Has(dep.AgentID) {
			continue
		}
		// Dependencies are created with default options: ForceNew and
		// SkipInitialize apply to the requested agent only.
		instance, depErr := f.create(ctx, dep.AgentID, CreateOptions{})
		if depErr != nil {
			return nil, &Error{Kind: KindDependencyResolution, AgentID: meta.AgentID, Missing: []string{dep.AgentID}, Err: depErr}
		}
		deps[dep.AgentID] = instance
	}

	instance, err := f.invokeBuild(meta, deps)
	if err != nil {
		return nil, err
	}

	if !opts.SkipInitialize {
		if initErr := instance.Initialize(ctx); initErr != nil {
			return nil, &Error{Kind: KindInitialization, AgentID: meta.AgentID, Err: initErr}
		}
	}

	f.logger.Debug("Agent created", "agent_id", meta.AgentID, "lifecycle", string(meta.Lifecycle))
	return instance, nil
}

// invokeBuild runs the build function, converting panics and nil results
// into creation errors.
func (f *Factory) invokeBuild(meta core.AgentMetadata, deps map[string]core.Agent) (instance core.Agent, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			instance = nil
			err = &Error{Kind: KindCreation, AgentID: meta.AgentID, Err: fmt.Errorf("build panicked: %v", rec)}
		}
	}()

	instance, buildErr := meta.Build(deps)
	if buildErr != nil {
		return nil, &Error{Kind: KindCreation, AgentID: meta.AgentID, Err: buildErr}
	}
	if instance == nil {
		return nil, &Error{Kind: KindCreation, AgentID: meta.AgentID, Err: fmt.Errorf("build returned nil instance")}
	}
	return instance, nil
}

// Cached returns the cached singleton for agentID, if any.
func (f *Factory) Cached(agentID string) (core.Agent, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	instance, ok := f.cache[agentID]
	return instance, ok
}

// Dispose releases the cached singleton for agentID, if present. Dispose
// failures are logged and discarded so cleanup never masks a primary result.
func (f *Factory) Dispose(ctx context.Context, agentID string) {
	f.mu.Lock()
	instance, ok := f.cache[agentID]
	delete(f.cache, agentID)
	f.mu.Unlock()

	if ok {
		f.disposeQuietly(ctx, agentID, instance)
	}
}

// DisposeAll releases every cached singleton concurrently. Individual
// dispose failures never block releasing the rest.
func (f *Factory) DisposeAll(ctx context.Context) {
	f.mu.Lock()
	instances := make(map[string]core.Agent, len(f.cache))
	for id, instance := range f.cache {
		instances[id] = instance
	}
	f.cache = make(map[string]core.Agent)
	f.mu.Unlock()

	var wg sync.WaitGroup
	for id, instance := range instances {
		wg.Add(1)
		go func(id string, instance core.Agent) {
			defer wg.Done()
			f.disposeQuietly(ctx, id, instance)
		}(id, instance)
	}
	wg.Wait()
}

func (f *Factory) disposeQuietly(ctx context.Context, agentID string, instance core.Agent) {
	defer func() {
		if rec := recover(); rec != nil {
			f.logger.Warn("Agent dispose panicked", "agent_id", agentID, "panic", fmt.Sprint(rec))
		}
	}()
	if err := instance.Dispose(ctx); err != nil {
		f.logger.Warn("Agent dispose failed", "agent_id", agentID, "error", err.Error())
	}
}
