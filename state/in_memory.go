// Package state holds pipeline-run state shared between stages: the outputs
// each completed stage produced, keyed by run. The in-memory implementation
// is volatile and best suited for tests and single-process pipelines;
// durable formats are a collaborator concern outside the execution core.
package state

import (
	"sync"

	"github.com/google/uuid"
)

// Store is the run-state contract the dispatcher consumes.
type Store interface {
	// CreateRun allocates a new pipeline run and returns its id.
	CreateRun() string
	// StageOutputs returns a copy of the outputs recorded for the run so
	// far, keyed by stage id. Unknown runs yield an empty map.
	StageOutputs(runID string) map[string]string
	// SaveStageOutput records one stage's output for the run.
	SaveStageOutput(runID, stageID, output string)
	// DeleteRun discards all state for the run.
	DeleteRun(runID string)
}

// InMemoryStore is a volatile Store implementation backed by a process-local
// map. It is safe for concurrent access. Returned maps are copies to prevent
// external mutation of internal state.
type InMemoryStore struct {
	mu   sync.RWMutex
	runs map[string]map[string]string
}

// NewInMemoryStore constructs an empty in-memory run store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{runs: make(map[string]map[string]string)}
}

// CreateRun allocates a new run with a random id.
func (s *InMemoryStore) CreateRun() string {
	runID := uuid.NewString()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[runID] = make(map[string]string)
	return runID
}

// StageOutputs returns a copy of the run's recorded stage outputs.
func (s *InMemoryStore) StageOutputs(runID string) map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	outputs := make(map[string]string, len(s.runs[runID]))
	for stageID, output := range s.runs[runID] {
		outputs[stageID] = output
	}
	return outputs
}

// SaveStageOutput records one stage's output, creating the run lazily.
func (s *InMemoryStore) SaveStageOutput(runID, stageID, output string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	run, ok := s.runs[runID]
	if !ok {
		run = make(map[string]string)
		s.runs[runID] = run
	}
	run[stageID] = output
}

// DeleteRun discards all state for the run.
func (s *InMemoryStore) DeleteRun(runID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.runs, runID)
}
