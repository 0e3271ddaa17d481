package factory

import (
	"fmt"
	"strings"
)

// ErrorKind tags the failure mode of a factory operation.
type ErrorKind string

const (
	// KindCreation indicates the agent's build function failed or panicked.
	KindCreation ErrorKind = "creation"
	// KindInitialization indicates the built instance failed to initialize.
	KindInitialization ErrorKind = "initialization"
	// KindDependencyResolution indicates required dependencies are missing
	// from the registry; Missing carries their ids.
	KindDependencyResolution ErrorKind = "dependency_resolution"
)

// Error is the structured error type returned by Factory operations.
type Error struct {
	Kind    ErrorKind
	AgentID string
	Missing []string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch e.Kind {
	case KindCreation:
		return fmt.Sprintf("building agent %q failed: %v", e.AgentID, e.Err)
	case KindInitialization:
		return fmt.Sprintf("initializing agent %q failed: %v", e.AgentID, e.Err)
	case KindDependencyResolution:
		return fmt.Sprintf("agent %q has unregistered required dependencies: %s", e.AgentID, strings.Join(e.Missing, ", "))
	default:
		return fmt.Sprintf("factory error for agent %q: %v", e.AgentID, e.Err)
	}
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error { return e.Err }

// IsKind reports whether err is a factory Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	e, ok := err.(*Error)
	return ok && e.Kind == kind
}
