// Package openai provides a bridge backed by the OpenAI Chat Completions
// API.
package openai

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/openai/openai-go"

	"github.com/stageflow/stageflow/core"
	"github.com/stageflow/stageflow/logging"
)

// Options configures the OpenAI bridge. Fields mirror a minimal subset of
// Chat Completion parameters; extend via functional options without
// breaking callers.
type Options struct {
	Model               string
	Temperature         float64
	MaxCompletionTokens int64
	// AgentTypes restricts Supports to the listed types. Empty accepts all.
	AgentTypes []string
	Logger     logging.Logger
}

// Bridge wraps the OpenAI Chat Completions API behind the core.Bridge
// interface.
type Bridge struct {
	client *openai.Client
	opts   Options
	types  map[string]bool
}

// New creates an OpenAI bridge using the official client (API key from the
// environment).
func New(optFns ...func(o *Options)) *Bridge {
	client := openai.NewClient()
	return NewFromClient(&client, optFns...)
}

// NewFromClient creates an OpenAI bridge from an existing client.
func NewFromClient(client *openai.Client, optFns ...func(o *Options)) *Bridge {
	opts := Options{
		Model:               openai.ChatModelGPT4oMini,
		Temperature:         0.7,
		MaxCompletionTokens: 4096,
		Logger:              logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	types := make(map[string]bool, len(opts.AgentTypes))
	for _, t := range opts.AgentTypes {
		types[t] = true
	}
	return &Bridge{client: client, opts: opts, types: types}
}

// Supports reports whether the bridge handles the agent type.
func (b *Bridge) Supports(agentType string) bool {
	if len(b.types) == 0 {
		return true
	}
	return b.types[agentType]
}

// Execute runs one stage request against Chat Completions. API failures are
// reported with Success=false; the error return is reserved for context
// cancellation.
func (b *Bridge) Execute(ctx context.Context, req core.ExecuteRequest) (*core.ExecuteResponse, error) {
	messages := []openai.ChatCompletionMessageParamUnion{}
	if system := buildSystemPrompt(req); system != "" {
		messages = append(messages, openai.SystemMessage(system))
	}
	messages = append(messages, openai.UserMessage(req.Input))

	params := openai.ChatCompletionNewParams{
		Model:       b.opts.Model,
		Messages:    messages,
		Temperature: openai.Float(b.opts.Temperature),
	}
	maxTokens := b.opts.MaxCompletionTokens
	if req.TokenBudget > 0 && int64(req.TokenBudget) < maxTokens {
		maxTokens = int64(req.TokenBudget)
	}
	params.MaxCompletionTokens = openai.Int(maxTokens)
	if req.ModelPreference != "" {
		params.Model = req.ModelPreference
	}

	resp, err := b.client.Chat.Completions.New(ctx, params)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return &core.ExecuteResponse{
			Success: false,
			Error:   fmt.Sprintf("openai api error: %v", err),
		}, nil
	}
	if len(resp.Choices) == 0 {
		return &core.ExecuteResponse{
			Success: false,
			Error:   "openai api returned no choices",
		}, nil
	}

	return &core.ExecuteResponse{
		Output:  resp.Choices[0].Message.Content,
		Success: true,
		TokenUsage: &core.TokenUsage{
			PromptTokens:     int(resp.Usage.PromptTokens),
			CompletionTokens: int(resp.Usage.CompletionTokens),
			TotalTokens:      int(resp.Usage.TotalTokens),
		},
	}, nil
}

// Dispose is a no-op; the underlying HTTP client owns no per-bridge state.
func (b *Bridge) Dispose(context.Context) error { return nil }

// buildSystemPrompt assembles the system prompt from the stage context and
// prior stage outputs, in deterministic key order.
func buildSystemPrompt(req core.ExecuteRequest) string {
	var sb strings.Builder
	if req.AgentType != "" {
		fmt.Fprintf(&sb, "You are executing the %q stage of a multi-stage pipeline.\n", req.AgentType)
	}
	if len(req.PriorStageOutputs) > 0 {
		keys := make([]string, 0, len(req.PriorStageOutputs))
		for k := range req.PriorStageOutputs {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		sb.WriteString("\nOutputs from prior pipeline stages:\n")
		for _, k := range keys {
			fmt.Fprintf(&sb, "\n## %s\n%s\n", k, req.PriorStageOutputs[k])
		}
	}
	return sb.String()
}
