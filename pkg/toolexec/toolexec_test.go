package toolexec

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docker/cagentcore/pkg/chat"
	"github.com/docker/cagentcore/pkg/hooks"
)

type fakeManager struct{}

func (fakeManager) ID() string        { return "conv-1" }
func (fakeManager) Workspace() string { return "/workspace" }

func echoSpec() *chat.ToolSpec {
	return &chat.ToolSpec{
		Name: "echo",
		Execute: func(ctx context.Context, content string, args []string, kwargs map[string]string, confirm chat.ConfirmFunc) ([]chat.Message, error) {
			return []chat.Message{chat.NewSystemMessage("ran: " + content)}, nil
		},
	}
}

func TestExecuteAcceptsByDefaultAndStampsCallID(t *testing.T) {
	reg := hooks.New()
	tu := chat.ToolUse{Tool: "echo", Content: "hello", CallID: "call-1"}

	res, err := Execute(context.Background(), reg, fakeManager{}, "/workspace", tu, echoSpec())
	require.NoError(t, err)
	require.Len(t, res.Messages, 1)
	assert.Equal(t, "ran: hello", res.Messages[0].Content)
	assert.Equal(t, "call-1", res.Messages[0].CallID)
	assert.False(t, res.Skipped)
}

func TestExecuteSkipsWhenHookDeclines(t *testing.T) {
	reg := hooks.New()
	reg.RegisterToolConfirm("always-skip", func(ctx hooks.Context, tu chat.ToolUse, preview string, defaultConfirm bool) (*hooks.ConfirmationResult, error) {
		return hooks.Skip("not allowed"), nil
	}, 0)

	tu := chat.ToolUse{Tool: "echo", Content: "hello", CallID: "call-2"}
	res, err := Execute(context.Background(), reg, fakeManager{}, "/workspace", tu, echoSpec())
	require.NoError(t, err)
	assert.True(t, res.Skipped)
	require.Len(t, res.Messages, 1)
	assert.Contains(t, res.Messages[0].Content, "not allowed")
	assert.Equal(t, "call-2", res.Messages[0].CallID)
}

func TestExecuteEditReplacesContentAndAppendsNotice(t *testing.T) {
	reg := hooks.New()
	reg.RegisterToolConfirm("always-edit", func(ctx hooks.Context, tu chat.ToolUse, preview string, defaultConfirm bool) (*hooks.ConfirmationResult, error) {
		return hooks.Edit("edited content"), nil
	}, 0)

	tu := chat.ToolUse{Tool: "echo", Content: "original", CallID: "call-3"}
	res, err := Execute(context.Background(), reg, fakeManager{}, "/workspace", tu, echoSpec())
	require.NoError(t, err)
	require.Len(t, res.Messages, 1)
	assert.Contains(t, res.Messages[0].Content, "ran: edited content")
	assert.Contains(t, res.Messages[0].Content, "(content was edited by user)")
}

func TestExecuteAppliesToolTransformBeforeConfirmation(t *testing.T) {
	reg := hooks.New()
	reg.RegisterToolTransform("rewrite", func(ctx hooks.Context, tu chat.ToolUse) (chat.ToolUse, error) {
		tu.Content = "rewritten"
		return tu, nil
	}, 0)
	var confirmedContent string
	reg.RegisterToolConfirm("observe", func(ctx hooks.Context, tu chat.ToolUse, preview string, defaultConfirm bool) (*hooks.ConfirmationResult, error) {
		confirmedContent = tu.Content
		return hooks.Accept(), nil
	}, 0)

	tu := chat.ToolUse{Tool: "echo", Content: "original"}
	res, err := Execute(context.Background(), reg, fakeManager{}, "/workspace", tu, echoSpec())
	require.NoError(t, err)
	assert.Equal(t, "rewritten", confirmedContent)
	require.Len(t, res.Messages, 1)
	assert.Equal(t, "ran: rewritten", res.Messages[0].Content)
}

func TestExecuteFiresPreAndPostHooks(t *testing.T) {
	reg := hooks.New()
	reg.RegisterToolExecutePre("pre", func(ctx hooks.Context, mgr hooks.Manager, workspace string, tu chat.ToolUse) ([]chat.Message, bool, error) {
		return []chat.Message{chat.NewSystemMessage("pre-note")}, false, nil
	}, 0)
	reg.RegisterToolExecutePost("post", func(ctx hooks.Context, mgr hooks.Manager, workspace string, tu chat.ToolUse) ([]chat.Message, bool, error) {
		return []chat.Message{chat.NewSystemMessage("post-note")}, false, nil
	}, 0)

	tu := chat.ToolUse{Tool: "echo", Content: "x"}
	res, err := Execute(context.Background(), reg, fakeManager{}, "/workspace", tu, echoSpec())
	require.NoError(t, err)
	require.Len(t, res.Messages, 3)
	assert.Equal(t, "pre-note", res.Messages[0].Content)
	assert.Equal(t, "ran: x", res.Messages[1].Content)
	assert.Equal(t, "post-note", res.Messages[2].Content)
}

func TestExecuteCancellationEmitsInterruptMarker(t *testing.T) {
	reg := hooks.New()
	spec := &chat.ToolSpec{
		Name: "slow",
		Execute: func(ctx context.Context, content string, args []string, kwargs map[string]string, confirm chat.ConfirmFunc) ([]chat.Message, error) {
			return []chat.Message{chat.NewSystemMessage("partial")}, context.Canceled
		},
	}

	tu := chat.ToolUse{Tool: "slow", CallID: "call-4"}
	res, err := Execute(context.Background(), reg, fakeManager{}, "/workspace", tu, spec)
	require.NoError(t, err)
	assert.True(t, res.Interrupted)
	require.Len(t, res.Messages, 2)
	assert.Equal(t, "partial", res.Messages[0].Content)
	assert.Equal(t, InterruptMarker, res.Messages[1].Content)
	assert.Equal(t, "call-4", res.Messages[1].CallID)
}

func TestExecuteToolErrorEmitsSystemMessage(t *testing.T) {
	reg := hooks.New()
	spec := &chat.ToolSpec{
		Name: "broken",
		Execute: func(ctx context.Context, content string, args []string, kwargs map[string]string, confirm chat.ConfirmFunc) ([]chat.Message, error) {
			return nil, errors.New("boom")
		},
	}

	res, err := Execute(context.Background(), reg, fakeManager{}, "/workspace", chat.ToolUse{Tool: "broken"}, spec)
	require.NoError(t, err)
	require.Len(t, res.Messages, 1)
	assert.Contains(t, res.Messages[0].Content, "boom")
}

func TestExecuteMissingSpecEmitsUnavailableMessage(t *testing.T) {
	reg := hooks.New()
	res, err := Execute(context.Background(), reg, fakeManager{}, "/workspace", chat.ToolUse{Tool: "ghost"}, nil)
	require.NoError(t, err)
	require.Len(t, res.Messages, 1)
	assert.Contains(t, res.Messages[0].Content, "not available")
}

func TestExecuteSessionCompleteFromConfirmHookPropagates(t *testing.T) {
	reg := hooks.New()
	reg.RegisterToolConfirm("complete-trigger", func(ctx hooks.Context, tu chat.ToolUse, preview string, defaultConfirm bool) (*hooks.ConfirmationResult, error) {
		return nil, &hooks.SessionCompleteError{Reason: "done"}
	}, 0)

	_, err := Execute(context.Background(), reg, fakeManager{}, "/workspace", chat.ToolUse{Tool: "echo"}, echoSpec())
	require.Error(t, err)
	assert.ErrorIs(t, err, hooks.ErrSessionComplete)
}

func TestSecondaryConfirmFuncDefaultsTrueWhenNoHookRegistered(t *testing.T) {
	reg := hooks.New()
	var sawConfirm bool
	spec := &chat.ToolSpec{
		Name: "asks",
		Execute: func(ctx context.Context, content string, args []string, kwargs map[string]string, confirm chat.ConfirmFunc) ([]chat.Message, error) {
			sawConfirm = confirm(ctx, "overwrite?")
			return []chat.Message{chat.NewSystemMessage("done")}, nil
		},
	}

	_, err := Execute(context.Background(), reg, fakeManager{}, "/workspace", chat.ToolUse{Tool: "asks"}, spec)
	require.NoError(t, err)
	assert.True(t, sawConfirm)
}
