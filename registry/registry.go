// Package registry stores agent metadata and resolves dependency chains.
//
// The registry holds declarative descriptions of agents (id, lifecycle,
// dependencies, build function) without instantiating anything; instance
// creation and caching is the factory's job. All operations return
// structured errors rather than panicking so bulk bootstrap code can skip
// bad entries and continue.
package registry

import (
	"sync"

	"github.com/stageflow/stageflow/core"
	"github.com/stageflow/stageflow/logging"
)

// Registry is a concurrency-safe map from agent id to metadata.
type Registry struct {
	mu     sync.RWMutex
	agents map[string]core.AgentMetadata
	logger logging.Logger
}

// Options holds configuration overrides passed to New().
type Options struct {
	// Logger receives registration diagnostics. Defaults to NoOp.
	Logger logging.Logger
}

// New constructs an empty registry.
func New(optFns ...func(o *Options)) *Registry {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Registry{agents: make(map[string]core.AgentMetadata), logger: opts.Logger}
}

// Register adds agent metadata. It returns a structured error for duplicate
// ids or malformed metadata; successfully registered entries are never
// affected by later failed registrations.
func (r *Registry) Register(meta core.AgentMetadata) error {
	if err := validateMetadata(meta); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.agents[meta.AgentID]; exists {
		return &Error{Kind: KindAlreadyRegistered, AgentID: meta.AgentID}
	}
	r.agents[meta.AgentID] = meta
	r.logger.Debug("Agent registered", "agent_id", meta.AgentID, "lifecycle", string(meta.Lifecycle))
	return nil
}

// Get returns the metadata for an agent id.
func (r *Registry) Get(agentID string) (core.AgentMetadata, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	meta, ok := r.agents[agentID]
	if !ok {
		return core.AgentMetadata{}, &Error{Kind: KindNotRegistered, AgentID: agentID}
	}
	return meta, nil
}

// Has reports whether an agent id is registered.
func (r *Registry) Has(agentID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.agents[agentID]
	return ok
}

// IDs returns all registered agent ids in unspecified order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.agents))
	for id := range r.agents {
		ids = append(ids, id)
	}
	return ids
}

// Unregister removes an agent id. Removing an unknown id is a no-op.
func (r *Registry) Unregister(agentID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.agents, agentID)
}

// DependencyChain returns the ids reachable from agentID in dependency-first
// topological order (dependencies before dependents, agentID last).
//
// Cycle detection tracks the current traversal path rather than a global
// visited set: a node revisited while still on the active path is a cycle
// and yields a KindCircularDependency error carrying the full path, while
// diamond dependencies (one node reachable via two non-cyclic paths) are
// permitted and appear once.
func (r *Registry) DependencyChain(agentID string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var chain []string
	emitted := make(map[string]bool)
	onPath := make(map[string]bool)
	var path []string

	var visit func(id string) error
	visit = func(id string) error {
		if onPath[id] {
			cycle := append(append([]string{}, path...), id)
			return &Error{Kind: KindCircularDependency, AgentID: id, CyclePath: cycle}
		}
		if emitted[id] {
			return nil
		}

		meta, ok := r.agents[id]
		if !ok {
			return &Error{Kind: KindNotRegistered, AgentID: id}
		}

		onPath[id] = true
		path = append(path, id)
		for _, dep := range meta.Dependencies {
			if !r.hasLocked(dep.AgentID) && dep.Optional {
				continue
			}
			if err := visit(dep.AgentID); err != nil {
				return err
			}
		}
		path = path[:len(path)-1]
		onPath[id] = false

		emitted[id] = true
		chain = append(chain, id)
		return nil
	}

	if err := visit(agentID); err != nil {
		return nil, err
	}
	return chain, nil
}

// ValidateDependencies returns the ids of required (non-optional) direct
// dependencies of agentID that are not currently registered. Callers use it
// to fail fast before invoking the build function.
func (r *Registry) ValidateDependencies(agentID string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	meta, ok := r.agents[agentID]
	if !ok {
		return nil, &Error{Kind: KindNotRegistered, AgentID: agentID}
	}

	var missing []string
	for _, dep := range meta.Dependencies {
		if dep.Optional {
			continue
		}
		if !r.hasLocked(dep.AgentID) {
			missing = append(missing, dep.AgentID)
		}
	}
	return missing, nil
}

func (r *Registry) hasLocked(agentID string) bool {
	_, ok := r.agents[agentID]
	return ok
}

func validateMetadata(meta core.AgentMetadata) error {
	if meta.AgentID == "" {
		return &Error{Kind: KindInvalidMetadata, AgentID: meta.AgentID, Reason: "agent id is empty"}
	}
	if meta.Name == "" {
		return &Error{Kind: KindInvalidMetadata, AgentID: meta.AgentID, Reason: "name is empty"}
	}
	if !meta.Lifecycle.Valid() {
		return &Error{Kind: KindInvalidMetadata, AgentID: meta.AgentID, Reason: "unknown lifecycle " + string(meta.Lifecycle)}
	}
	if meta.Build == nil {
		return &Error{Kind: KindInvalidMetadata, AgentID: meta.AgentID, Reason: "build func is nil"}
	}
	for _, dep := range meta.Dependencies {
		if dep.AgentID == "" {
			return &Error{Kind: KindInvalidMetadata, AgentID: meta.AgentID, Reason: "dependency with empty agent id"}
		}
	}
	return nil
}
