// Package dispatch composes the execution core to run pipeline stages: it
// creates the stage's agent through the factory, fills in prior stage
// outputs from the run store, resolves an execution backend through the
// bridge registry and invokes it under retry and circuit-breaker
// protection, recording outcome metrics along the way.
package dispatch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/stageflow/stageflow/bridge"
	"github.com/stageflow/stageflow/core"
	"github.com/stageflow/stageflow/factory"
	"github.com/stageflow/stageflow/logging"
	"github.com/stageflow/stageflow/registry"
	"github.com/stageflow/stageflow/retry"
	"github.com/stageflow/stageflow/state"
)

// StageRequest describes one pipeline stage to execute.
type StageRequest struct {
	// RunID groups stages into one pipeline run. Empty allocates a new run.
	RunID string
	// StageID names this stage's output in the run store. Defaults to
	// AgentID.
	StageID string
	// AgentID selects the registered agent executing the stage.
	AgentID string
	// AgentType selects the backend bridge and breaker.
	AgentType string
	// Input is the stage payload handed to the bridge.
	Input string

	ScratchpadDir   string
	ProjectDir      string
	TokenBudget     int
	ModelPreference string
	MaxTurns        int
	EnableTools     bool
	AllowedTools    []string
}

// StageResult is the outcome of a successfully executed stage.
type StageResult struct {
	RunID      string
	StageID    string
	AgentID    string
	Output     string
	Artifacts  []core.Artifact
	TokenUsage *core.TokenUsage
	// Stub marks degraded execution through the fallback bridge.
	Stub     bool
	Attempts int
	Duration time.Duration
}

// Options holds configuration overrides passed to New().
type Options struct {
	// Policy governs retries around bridge execution.
	Policy retry.Policy
	// AttemptTimeout races each bridge call when positive.
	AttemptTimeout time.Duration
	// Store keeps per-run stage outputs. Defaults to in-memory.
	Store state.Store
	// BreakerOptions configures the per-agent-type breakers.
	BreakerOptions func(o *retry.BreakerOptions)
	// Logger receives dispatch diagnostics. Defaults to NoOp.
	Logger logging.Logger
}

// Dispatcher runs pipeline stages. Public methods are safe for concurrent
// use; breakers are shared per agent type across concurrent stages.
type Dispatcher struct {
	registry *registry.Registry
	factory  *factory.Factory
	bridges  *bridge.Registry
	executor *retry.Executor
	store    state.Store
	logger   logging.Logger

	policy         retry.Policy
	attemptTimeout time.Duration
	breakerOpts    func(o *retry.BreakerOptions)

	mu       sync.Mutex
	breakers map[string]*retry.Breaker
}

// New constructs a Dispatcher over the given core components.
func New(reg *registry.Registry, fac *factory.Factory, bridges *bridge.Registry, executor *retry.Executor, optFns ...func(o *Options)) *Dispatcher {
	opts := Options{
		Policy: retry.DefaultPolicy(),
		Store:  state.NewInMemoryStore(),
		Logger: logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Dispatcher{
		registry:       reg,
		factory:        fac,
		bridges:        bridges,
		executor:       executor,
		store:          opts.Store,
		logger:         opts.Logger,
		policy:         opts.Policy,
		attemptTimeout: opts.AttemptTimeout,
		breakerOpts:    opts.BreakerOptions,
		breakers:       make(map[string]*retry.Breaker),
	}
}

// Store returns the run store, so callers can seed or inspect run state.
func (d *Dispatcher) Store() state.Store { return d.store }

// RunStage executes one pipeline stage and records its output in the run
// store. Retry exhaustion, circuit rejection and cancellation surface as
// *retry.Error; agent creation failures surface as registry or factory
// errors.
func (d *Dispatcher) RunStage(ctx context.Context, req StageRequest) (*StageResult, error) {
	if req.AgentID == "" {
		return nil, fmt.Errorf("stage request has no agent id")
	}
	if req.StageID == "" {
		req.StageID = req.AgentID
	}
	if req.RunID == "" {
		req.RunID = d.store.CreateRun()
	}

	meta, err := d.registry.Get(req.AgentID)
	if err != nil {
		return nil, err
	}
	if req.AgentType == "" {
		req.AgentType = meta.AgentID
	}

	agent, err := d.factory.Create(ctx, req.AgentID)
	if err != nil {
		return nil, err
	}
	if meta.Lifecycle == core.LifecycleTransient {
		// Transient instances are owned by this stage.
		defer func() {
			if dispErr := agent.Dispose(context.WithoutCancel(ctx)); dispErr != nil {
				d.logger.Warn("Stage agent dispose failed", "agent_id", req.AgentID, "error", dispErr.Error())
			}
		}()
	}

	execReq := core.ExecuteRequest{
		AgentType:         req.AgentType,
		Input:             req.Input,
		ScratchpadDir:     req.ScratchpadDir,
		ProjectDir:        req.ProjectDir,
		PriorStageOutputs: d.store.StageOutputs(req.RunID),
		TokenBudget:       req.TokenBudget,
		ModelPreference:   req.ModelPreference,
		MaxTurns:          req.MaxTurns,
		EnableTools:       req.EnableTools,
		AllowedTools:      req.AllowedTools,
	}

	backend := d.bridges.Resolve(req.AgentType)
	isStub := d.bridges.IsStub(req.AgentType)
	if isStub {
		d.logger.Warn("Executing stage through stub bridge", "agent_type", req.AgentType, "agent_id", req.AgentID)
	}

	operation := "stage." + req.AgentType
	start := time.Now()
	res := retry.Try(d.executor, ctx, operation, d.policy, func(ctx context.Context) (*core.ExecuteResponse, error) {
		resp, execErr := backend.Execute(ctx, execReq)
		if execErr != nil {
			return nil, execErr
		}
		if !resp.Success {
			return nil, fmt.Errorf("bridge execution failed: %s", resp.Error)
		}
		return resp, nil
	}, retry.WithBreaker(d.breakerFor(req.AgentType)), retry.WithAttemptTimeout(d.attemptTimeout))
	if !res.Success {
		d.logger.Error("Stage execution failed",
			"run_id", req.RunID,
			"stage_id", req.StageID,
			"agent_id", req.AgentID,
			"attempts", res.TotalAttempts,
			"error", res.Err.Error(),
		)
		return nil, res.Err
	}
	resp := res.Value

	d.store.SaveStageOutput(req.RunID, req.StageID, resp.Output)
	d.logger.Info("Stage execution completed",
		"run_id", req.RunID,
		"stage_id", req.StageID,
		"agent_id", req.AgentID,
		"agent", agent.Name(),
		"stub", isStub,
		"attempts", res.TotalAttempts,
		"duration", time.Since(start),
	)

	return &StageResult{
		RunID:      req.RunID,
		StageID:    req.StageID,
		AgentID:    req.AgentID,
		Output:     resp.Output,
		Artifacts:  resp.Artifacts,
		TokenUsage: resp.TokenUsage,
		Stub:       isStub,
		Attempts:   res.TotalAttempts,
		Duration:   res.TotalDuration,
	}, nil
}

// NewRun allocates a pipeline run id without executing anything, for
// callers that want to name the run up front.
func (d *Dispatcher) NewRun() string {
	return d.store.CreateRun()
}

// breakerFor returns the shared breaker for an agent type, creating it on
// first use.
func (d *Dispatcher) breakerFor(agentType string) *retry.Breaker {
	d.mu.Lock()
	defer d.mu.Unlock()

	b, ok := d.breakers[agentType]
	if !ok {
		optFns := []func(o *retry.BreakerOptions){
			func(o *retry.BreakerOptions) { o.Logger = d.logger },
		}
		if d.breakerOpts != nil {
			optFns = append(optFns, d.breakerOpts)
		}
		b = retry.NewBreaker("bridge."+agentType, optFns...)
		d.breakers[agentType] = b
	}
	return b
}

// BreakerState reports the breaker state for an agent type, for monitoring.
func (d *Dispatcher) BreakerState(agentType string) retry.State {
	d.mu.Lock()
	b, ok := d.breakers[agentType]
	d.mu.Unlock()
	if !ok {
		return retry.StateClosed
	}
	return b.GetState()
}
