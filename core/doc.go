// Package core defines the shared contracts every Stageflow package builds
// on: the Agent lifecycle interface, agent metadata consumed by the registry
// and factory, and the Bridge execution contract that connects a pipeline
// stage to whatever backend actually performs its work.
//
// The package intentionally contains interfaces and plain data types only.
// Behavior lives in the packages that implement or consume these contracts
// (registry, factory, bridge, dispatch) to avoid cyclic dependencies.
package core
