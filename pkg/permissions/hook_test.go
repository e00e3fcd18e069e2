package permissions

import (
	"context"
	"testing"

	"github.com/docker/cagentcore/pkg/chat"
	"github.com/docker/cagentcore/pkg/confirmhooks"
	"github.com/docker/cagentcore/pkg/hooks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHookRunDeniesMatchingPattern(t *testing.T) {
	h := NewHook(Stack{NewChecker(&Config{Deny: []string{"shell"}})})

	res, err := h.Run(context.Background(), chat.ToolUse{Tool: "shell"}, "", false)
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, hooks.ConfirmActionSkip, res.Action)
}

func TestHookRunAllowsMatchingPattern(t *testing.T) {
	h := NewHook(Stack{NewChecker(&Config{Allow: []string{"read_*"}})})

	res, err := h.Run(context.Background(), chat.ToolUse{Tool: "read_file"}, "", false)
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, hooks.ConfirmActionAccept, res.Action)
}

func TestHookRunFallsThroughOnAsk(t *testing.T) {
	h := NewHook(Stack{NewChecker(nil)})

	res, err := h.Run(context.Background(), chat.ToolUse{Tool: "shell"}, "", false)
	require.NoError(t, err)
	assert.Nil(t, res)
}

func TestHookRegisterTakesPrecedenceOverReadOnlyAllow(t *testing.T) {
	r := hooks.New()
	confirmhooks.RegisterReadOnlyAllow(r)
	NewHook(Stack{NewChecker(&Config{Deny: []string{"shell"}})}).Register(r)

	res, err := r.TriggerToolConfirm(context.Background(), chat.ToolUse{Tool: "shell", Content: "ls"}, "ls", false)
	require.NoError(t, err)
	assert.Equal(t, hooks.ConfirmActionSkip, res.Action, "a deny pattern should win even over a read-only command")
}
