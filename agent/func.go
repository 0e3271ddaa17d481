package agent

import (
	"context"
	"fmt"
)

// FuncAgent adapts plain closures into a core.Agent. Nil hooks are no-ops,
// so the zero-hook form is a convenient inert agent for wiring and tests.
type FuncAgent struct {
	BaseAgent
	InitializeFunc func(ctx context.Context) error
	DisposeFunc    func(ctx context.Context) error
}

// NewFuncAgent constructs a FuncAgent with the given identity.
func NewFuncAgent(id, name string) *FuncAgent {
	f := &FuncAgent{BaseAgent: BaseAgent{id: id, name: fmt.Sprintf("Agent %s", id)}}
	if name != "" {
		f.SetName(name)
	}
	return f
}

// Initialize runs the base state guard then the custom hook, if any.
func (f *FuncAgent) Initialize(ctx context.Context) error {
	if err := f.BaseAgent.Initialize(ctx); err != nil {
		return err
	}
	if f.InitializeFunc != nil {
		return f.InitializeFunc(ctx)
	}
	return nil
}

// Dispose runs the custom hook, if any, then the base state guard.
func (f *FuncAgent) Dispose(ctx context.Context) error {
	var hookErr error
	if f.DisposeFunc != nil {
		hookErr = f.DisposeFunc(ctx)
	}
	if err := f.BaseAgent.Dispose(ctx); err != nil {
		return err
	}
	return hookErr
}
