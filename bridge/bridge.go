// Package bridge selects the execution backend for a pipeline stage.
//
// Bridges are tried in registration order: Resolve returns the first
// registered bridge whose Supports reports true for the agent type, falling
// back to a built-in stub bridge that accepts everything and returns a
// clearly-marked placeholder response. IsStub and HasBridge let callers
// detect degraded execution for monitoring.
package bridge

import (
	"context"
	"sync"

	"github.com/stageflow/stageflow/core"
	"github.com/stageflow/stageflow/logging"
)

// Registry is a priority-ordered bridge selection strategy with a universal
// fallback. Priority equals registration order. Safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	bridges  []core.Bridge
	fallback core.Bridge
	logger   logging.Logger
}

// Options holds configuration overrides passed to New().
type Options struct {
	// Fallback replaces the built-in stub bridge. Must accept every agent
	// type.
	Fallback core.Bridge
	// Logger receives resolution and dispose diagnostics. Defaults to NoOp.
	Logger logging.Logger
}

// New constructs a registry with the built-in stub fallback.
func New(optFns ...func(o *Options)) *Registry {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Fallback == nil {
		opts.Fallback = NewStub()
	}
	return &Registry{fallback: opts.Fallback, logger: opts.Logger}
}

// Register appends a bridge to the priority order.
func (r *Registry) Register(b core.Bridge) {
	if b == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bridges = append(r.bridges, b)
}

// Resolve returns the first registered bridge supporting agentType, or the
// fallback when none matches.
func (r *Registry) Resolve(agentType string) core.Bridge {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, b := range r.bridges {
		if b.Supports(agentType) {
			return b
		}
	}
	r.logger.Debug("No bridge registered for agent type, using stub", "agent_type", agentType)
	return r.fallback
}

// HasBridge reports whether a real (non-fallback) bridge supports agentType.
func (r *Registry) HasBridge(agentType string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, b := range r.bridges {
		if b.Supports(agentType) {
			return true
		}
	}
	return false
}

// IsStub reports whether executing agentType would hit the stub fallback.
func (r *Registry) IsStub(agentType string) bool {
	return !r.HasBridge(agentType)
}

// Len returns the number of registered bridges, excluding the fallback.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.bridges)
}

// DisposeAll disposes every bridge, including the fallback, concurrently.
// Individual dispose failures are logged and never block the rest.
func (r *Registry) DisposeAll(ctx context.Context) {
	r.mu.Lock()
	bridges := append([]core.Bridge{}, r.bridges...)
	bridges = append(bridges, r.fallback)
	r.bridges = nil
	r.mu.Unlock()

	var wg sync.WaitGroup
	for _, b := range bridges {
		wg.Add(1)
		go func(b core.Bridge) {
			defer wg.Done()
			if err := b.Dispose(ctx); err != nil {
				r.logger.Warn("Bridge dispose failed", "error", err.Error())
			}
		}(b)
	}
	wg.Wait()
}
