package agent

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// BaseAgent bundles shared lifecycle (Initialize/Dispose) state tracking and
// identity helpers. Embed it in concrete agent implementations to satisfy
// the identity part of core.Agent; override Initialize/Dispose when the
// agent owns real resources. All exported methods are goroutine-safe.
type BaseAgent struct {
	id          string
	name        string
	mu          sync.Mutex
	initialized bool
	disposed    bool
}

// NewBaseAgent constructs a BaseAgent with a generated name (customizable
// via SetName).
func NewBaseAgent(id string) BaseAgent {
	return BaseAgent{id: id, name: fmt.Sprintf("Agent %s", id)}
}

// ID returns the unique agent identifier.
func (b *BaseAgent) ID() string { return b.id }

// Name returns the human-readable name for this agent.
func (b *BaseAgent) Name() string { return b.name }

// SetName updates the agent's display name.
func (b *BaseAgent) SetName(name string) { b.name = name }

// Initialize marks the agent ready for use. It returns an error when called
// twice or after disposal; embedders that override it should call this first
// to keep the state guard.
func (b *BaseAgent) Initialize(_ context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.disposed {
		return errors.New("agent is disposed")
	}
	if b.initialized {
		return errors.New("agent is already initialized")
	}
	b.initialized = true
	return nil
}

// Dispose releases the agent. Disposing twice is tolerated so best-effort
// cleanup paths never fail on double release.
func (b *BaseAgent) Dispose(_ context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.disposed = true
	b.initialized = false
	return nil
}

// Initialized reports whether Initialize has completed.
func (b *BaseAgent) Initialized() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.initialized
}

// Disposed reports whether Dispose has been called.
func (b *BaseAgent) Disposed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.disposed
}
