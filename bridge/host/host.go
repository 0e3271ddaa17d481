// Package host provides a bridge that delegates stage execution to a host
// session: a local CLI binary invoked per request with the request JSON on
// stdin and the response JSON expected on stdout. It covers environments
// where the pipeline runs inside an interactive coding session that already
// holds credentials and tooling.
package host

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"

	"github.com/stageflow/stageflow/core"
	"github.com/stageflow/stageflow/logging"
)

// Options configures the host-session bridge.
type Options struct {
	// Binary is the executable to invoke. Required.
	Binary string
	// Args are passed before the request is written to stdin.
	Args []string
	// AgentTypes restricts Supports to the listed types. Empty accepts all.
	AgentTypes []string
	Logger     logging.Logger
}

// Bridge executes stage requests through a host session binary.
type Bridge struct {
	opts  Options
	types map[string]bool
}

// New creates a host-session bridge for the given binary.
func New(binary string, optFns ...func(o *Options)) *Bridge {
	opts := Options{Binary: binary, Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	types := make(map[string]bool, len(opts.AgentTypes))
	for _, t := range opts.AgentTypes {
		types[t] = true
	}
	return &Bridge{opts: opts, types: types}
}

// Supports reports whether the bridge handles the agent type.
func (b *Bridge) Supports(agentType string) bool {
	if len(b.types) == 0 {
		return true
	}
	return b.types[agentType]
}

// Execute serializes the request to the binary's stdin and decodes the
// response from its stdout. Process failures and undecodable output are
// recoverable: they yield Success=false rather than an error.
func (b *Bridge) Execute(ctx context.Context, req core.ExecuteRequest) (*core.ExecuteResponse, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encoding host request: %w", err)
	}

	cmd := exec.CommandContext(ctx, b.opts.Binary, b.opts.Args...)
	cmd.Stdin = bytes.NewReader(payload)
	if req.ProjectDir != "" {
		cmd.Dir = req.ProjectDir
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if runErr := cmd.Run(); runErr != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		b.opts.Logger.Warn("Host session exited with error", "binary", b.opts.Binary, "error", runErr.Error(), "stderr", stderr.String())
		return &core.ExecuteResponse{
			Success: false,
			Error:   fmt.Sprintf("host session failed: %v: %s", runErr, stderr.String()),
		}, nil
	}

	var resp core.ExecuteResponse
	if decodeErr := json.Unmarshal(stdout.Bytes(), &resp); decodeErr != nil {
		return &core.ExecuteResponse{
			Success: false,
			Error:   fmt.Sprintf("undecodable host session output: %v", decodeErr),
		}, nil
	}
	return &resp, nil
}

// Dispose is a no-op; each execution owns its own process.
func (b *Bridge) Dispose(context.Context) error { return nil }
