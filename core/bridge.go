package core

import "context"

// ExecuteRequest carries everything a bridge needs to run one pipeline
// stage. The core treats Input and PriorStageOutputs as opaque payloads;
// interpreting them is the backend's concern.
type ExecuteRequest struct {
	AgentType         string            `json:"agent_type"`
	Input             string            `json:"input"`
	ScratchpadDir     string            `json:"scratchpad_dir,omitempty"`
	ProjectDir        string            `json:"project_dir,omitempty"`
	PriorStageOutputs map[string]string `json:"prior_stage_outputs,omitempty"`
	TokenBudget       int               `json:"token_budget,omitempty"`
	ModelPreference   string            `json:"model_preference,omitempty"`
	MaxTurns          int               `json:"max_turns,omitempty"`
	EnableTools       bool              `json:"enable_tools,omitempty"`
	AllowedTools      []string          `json:"allowed_tools,omitempty"`
}

// Artifact is a named output produced by a bridge alongside its main output
// (a generated file, a report, a patch). Path is relative to the request's
// scratchpad directory when set.
type Artifact struct {
	Name    string `json:"name"`
	Path    string `json:"path,omitempty"`
	Content string `json:"content,omitempty"`
}

// TokenUsage captures token accounting reported by a model backend.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ExecuteResponse is the outcome of a bridge execution. Recoverable backend
// failures are reported with Success=false and a populated Error rather than
// a Go error, so callers can distinguish them from infrastructure faults.
type ExecuteResponse struct {
	Output     string      `json:"output"`
	Artifacts  []Artifact  `json:"artifacts,omitempty"`
	TokenUsage *TokenUsage `json:"token_usage,omitempty"`
	Success    bool        `json:"success"`
	Error      string      `json:"error,omitempty"`
}

// Bridge is a pluggable backend that performs an agent's actual work: an
// AI-model call, a host-session invocation, or a stub for tests.
//
// Execute must return a non-nil response with Success=false for recoverable
// backend failures; the error return is reserved for context cancellation
// and programmer errors. Supports reports whether the bridge can handle the
// given agent type; the bridge registry resolves in registration order.
type Bridge interface {
	Execute(ctx context.Context, req ExecuteRequest) (*ExecuteResponse, error)
	Supports(agentType string) bool
	Dispose(ctx context.Context) error
}
