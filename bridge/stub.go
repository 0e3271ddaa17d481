package bridge

import (
	"context"
	"fmt"
	"sync"

	"github.com/stageflow/stageflow/core"
)

// StubOutputPrefix marks every output produced by the stub bridge so
// downstream consumers can spot degraded execution in stored results.
const StubOutputPrefix = "[stageflow-stub] "

// Stub is the universal fallback bridge. It accepts every agent type and
// returns a clearly-marked placeholder response, for environments without a
// configured backend and for tests.
type Stub struct {
	mu    sync.Mutex
	calls []core.ExecuteRequest
}

// NewStub constructs a stub bridge.
func NewStub() *Stub {
	return &Stub{}
}

// Execute returns a marked placeholder response echoing the request shape.
func (s *Stub) Execute(_ context.Context, req core.ExecuteRequest) (*core.ExecuteResponse, error) {
	s.mu.Lock()
	s.calls = append(s.calls, req)
	s.mu.Unlock()

	return &core.ExecuteResponse{
		Output:  fmt.Sprintf("%sno backend configured for agent type %q (input %d bytes)", StubOutputPrefix, req.AgentType, len(req.Input)),
		Success: true,
	}, nil
}

// Supports accepts every agent type.
func (s *Stub) Supports(string) bool { return true }

// Dispose is a no-op.
func (s *Stub) Dispose(context.Context) error { return nil }

// Calls returns a copy of the requests executed so far.
func (s *Stub) Calls() []core.ExecuteRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.ExecuteRequest{}, s.calls...)
}
