package host

import (
	"context"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stageflow/stageflow/core"
)

// Interface compliance (compile-time assertion)
var _ core.Bridge = (*Bridge)(nil)

func requireShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("tests shell out through /bin/sh")
	}
}

// shBridge builds a bridge that runs an inline shell script as the host
// session.
func shBridge(script string) *Bridge {
	return New("/bin/sh", func(o *Options) {
		o.Args = []string{"-c", script}
	})
}

func TestBridge_Supports(t *testing.T) {
	open := New("/usr/local/bin/session")
	assert.True(t, open.Supports("coder"))
	assert.True(t, open.Supports("reviewer"))

	restricted := New("/usr/local/bin/session", func(o *Options) {
		o.AgentTypes = []string{"coder"}
	})
	assert.True(t, restricted.Supports("coder"))
	assert.False(t, restricted.Supports("reviewer"))
}

func TestBridge_Execute(t *testing.T) {
	requireShell(t)
	b := shBridge(`cat > /dev/null; echo '{"output":"done","success":true}'`)

	resp, err := b.Execute(context.Background(), core.ExecuteRequest{AgentType: "coder", Input: "build it"})
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, "done", resp.Output)
}

func TestBridge_ExecutePassesRequestOnStdin(t *testing.T) {
	requireShell(t)
	// The script folds the received agent type back into the response.
	b := shBridge(`printf '{"output":"got %s","success":true}' "$(cat | grep -o '"agent_type":"[^"]*"' | cut -d'"' -f4)"`)

	resp, err := b.Execute(context.Background(), core.ExecuteRequest{AgentType: "coder"})
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, "got coder", resp.Output)
}

func TestBridge_ProcessFailureIsRecoverable(t *testing.T) {
	requireShell(t)
	b := shBridge(`cat > /dev/null; echo "backend exploded" >&2; exit 3`)

	resp, err := b.Execute(context.Background(), core.ExecuteRequest{AgentType: "coder"})
	require.NoError(t, err, "process failure must not surface as an error")
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Error, "host session failed")
	assert.Contains(t, resp.Error, "backend exploded")
}

func TestBridge_MissingBinaryIsRecoverable(t *testing.T) {
	b := New("/nonexistent/stageflow-host-session")

	resp, err := b.Execute(context.Background(), core.ExecuteRequest{AgentType: "coder"})
	require.NoError(t, err)
	assert.False(t, resp.Success)
	assert.True(t, strings.Contains(resp.Error, "host session failed"))
}

func TestBridge_UndecodableOutputIsRecoverable(t *testing.T) {
	requireShell(t)
	b := shBridge(`cat > /dev/null; echo "this is not json"`)

	resp, err := b.Execute(context.Background(), core.ExecuteRequest{AgentType: "coder"})
	require.NoError(t, err)
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Error, "undecodable")
}

func TestBridge_CancelledContext(t *testing.T) {
	requireShell(t)
	b := shBridge(`sleep 30`)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := b.Execute(ctx, core.ExecuteRequest{AgentType: "coder"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBridge_Dispose(t *testing.T) {
	assert.NoError(t, New("/bin/true").Dispose(context.Background()))
}
