package registry

import (
	"fmt"
	"strings"
)

// ErrorKind tags the failure mode of a registry operation so callers can
// match exhaustively instead of chaining type assertions.
type ErrorKind string

const (
	// KindAlreadyRegistered indicates a duplicate agent id.
	KindAlreadyRegistered ErrorKind = "already_registered"
	// KindNotRegistered indicates a lookup for an unknown agent id.
	KindNotRegistered ErrorKind = "not_registered"
	// KindCircularDependency indicates a dependency cycle; CyclePath carries
	// the full path including the repeated node.
	KindCircularDependency ErrorKind = "circular_dependency"
	// KindInvalidMetadata indicates malformed agent metadata.
	KindInvalidMetadata ErrorKind = "invalid_metadata"
)

// Error is the structured error type returned by Registry operations.
type Error struct {
	Kind      ErrorKind
	AgentID   string
	Reason    string
	CyclePath []string
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch e.Kind {
	case KindAlreadyRegistered:
		return fmt.Sprintf("agent %q is already registered", e.AgentID)
	case KindNotRegistered:
		return fmt.Sprintf("agent %q is not registered", e.AgentID)
	case KindCircularDependency:
		return fmt.Sprintf("circular dependency detected: %s", strings.Join(e.CyclePath, " -> "))
	case KindInvalidMetadata:
		return fmt.Sprintf("invalid metadata for agent %q: %s", e.AgentID, e.Reason)
	default:
		return fmt.Sprintf("registry error for agent %q", e.AgentID)
	}
}

// Is matches against another *Error by kind, enabling errors.Is with a
// kind-only target.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.AgentID == "" || t.AgentID == e.AgentID)
}

// IsKind reports whether err is a registry Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	e, ok := err.(*Error)
	return ok && e.Kind == kind
}
