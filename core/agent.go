package core

import "context"

// Lifecycle controls how the factory caches instances of an agent.
type Lifecycle string

const (
	// LifecycleSingleton shares one instance per agent id for the lifetime
	// of the factory (or until it is disposed or force-replaced).
	LifecycleSingleton Lifecycle = "singleton"

	// LifecycleTransient creates a fresh instance on every request.
	// Ownership of the instance transfers to the caller.
	LifecycleTransient Lifecycle = "transient"
)

// Valid reports whether l is a known lifecycle tag.
func (l Lifecycle) Valid() bool {
	return l == LifecycleSingleton || l == LifecycleTransient
}

// Dependency names another agent this agent needs at construction time.
// Optional dependencies may be absent from the registry; required ones are
// validated before the factory runs.
type Dependency struct {
	AgentID  string
	Optional bool
}

// BuildFunc constructs an agent instance from its resolved dependencies.
// The map is keyed by dependency agent id; optional dependencies that could
// not be resolved are simply missing from the map.
type BuildFunc func(deps map[string]Agent) (Agent, error)

// AgentMetadata describes a registrable agent. AgentID must be unique within
// a registry and Build must be non-nil.
type AgentMetadata struct {
	AgentID      string
	Name         string
	Lifecycle    Lifecycle
	Dependencies []Dependency
	Build        BuildFunc
}

// Agent is the unit of pipeline work. Instances are created by the factory,
// initialized once before first use and disposed when released.
//
// Implementations must tolerate Dispose being called at most once after a
// successful Initialize, and should respect context cancellation in both
// hooks.
type Agent interface {
	ID() string
	Name() string
	Initialize(ctx context.Context) error
	Dispose(ctx context.Context) error
}
