// Package agent contains helper implementations of the core.Agent contract:
// BaseAgent for embedding (lifecycle state guards, identity) and FuncAgent
// for closure-based agents used in wiring code and tests.
//
// Business logic for concrete pipeline stages lives outside the execution
// core; this package only eases satisfying the lifecycle contract.
package agent
