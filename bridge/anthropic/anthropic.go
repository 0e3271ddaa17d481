// Package anthropic provides a bridge backed by the Anthropic Messages API.
package anthropic

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/stageflow/stageflow/core"
	"github.com/stageflow/stageflow/logging"
)

// Options configures the Anthropic bridge (model id, max tokens,
// temperature, API key, supported agent types). Extend via functional
// options to preserve stability.
type Options struct {
	Model       anthropic.Model
	MaxTokens   int64
	Temperature float64
	APIKey      string
	// AgentTypes restricts Supports to the listed types. Empty accepts all.
	AgentTypes []string
	Logger     logging.Logger
}

// Bridge wraps the Anthropic Messages API behind the core.Bridge interface.
type Bridge struct {
	client *anthropic.Client
	opts   Options
	types  map[string]bool
}

// New creates an Anthropic bridge using the official client.
func New(optFns ...func(o *Options)) *Bridge {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}

	var clientOpts []option.RequestOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}
	client := anthropic.NewClient(clientOpts...)

	return newBridge(&client, opts)
}

// NewFromClient creates an Anthropic bridge from an existing client.
func NewFromClient(client *anthropic.Client, optFns ...func(o *Options)) *Bridge {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	return newBridge(client, opts)
}

func defaultOptions() Options {
	return Options{
		Model:       anthropic.ModelClaude3_5Sonnet20241022,
		MaxTokens:   4096,
		Temperature: 0.7,
		Logger:      logging.NoOpLogger{},
	}
}

func newBridge(client *anthropic.Client, opts Options) *Bridge {
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

// Execute runs one stage request against the Messages API. API failures are
// reported with Success=false; the error return is reserved for context
// cancellation.
func (b *Bridge) Execute(ctx context.Context, req core.ExecuteRequest) (*core.ExecuteResponse, error) {
	params := anthropic.MessageNewParams{
		Model:       b.opts.Model,
		MaxTokens:   b.opts.MaxTokens,
		Temperature: anthropic.Float(b.opts.Temperature),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Input)),
		},
	}
	if req.ModelPreference != "" {
		params.Model = anthropic.Model(req.ModelPreference)
	}
	if req.TokenBudget > 0 && int64(req.TokenBudget) < params.MaxTokens {
		params.MaxTokens = int64(req.TokenBudget)
	}
	if system := buildSystemBlocks(req); len(system) > 0 {
		params.System = system
	}

	resp, err := b.client.Messages.New(ctx, params)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return &core.ExecuteResponse{
			Success: false,
			Error:   fmt.Sprintf("anthropic api error: %v", err),
		}, nil
	}

	var output strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			output.WriteString(block.AsText().Text)
		}
	}

	return &core.ExecuteResponse{
		Output:  output.String(),
		Success: true,
		TokenUsage: &core.TokenUsage{
			PromptTokens:     int(resp.Usage.InputTokens),
			CompletionTokens: int(resp.Usage.OutputTokens),
			TotalTokens:      int(resp.Usage.InputTokens + resp.Usage.OutputTokens),
		},
	}, nil
}

// Dispose is a no-op; the underlying HTTP client owns no per-bridge state.
func (b *Bridge) Dispose(context.Context) error { return nil }

// buildSystemBlocks assembles the system prompt from the stage context and
// prior stage outputs, in deterministic key order.
func buildSystemBlocks(req core.ExecuteRequest) []anthropic.TextBlockParam {
	var blocks []anthropic.TextBlockParam
	if req.AgentType != "" {
		blocks = append(blocks, anthropic.TextBlockParam{
			Text: fmt.Sprintf("You are executing the %q stage of a multi-stage pipeline.", req.AgentType),
		})
	}
	if len(req.PriorStageOutputs) > 0 {
		keys := make([]string, 0, len(req.PriorStageOutputs))
		for k := range req.PriorStageOutputs {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var sb strings.Builder
		sb.WriteString("Outputs from prior pipeline stages:\n")
		for _, k := range keys {
			fmt.Fprintf(&sb, "\n## %s\n%s\n", k, req.PriorStageOutputs[k])
		}
		blocks = append(blocks, anthropic.TextBlockParam{Text: sb.String()})
	}
	return blocks
}
