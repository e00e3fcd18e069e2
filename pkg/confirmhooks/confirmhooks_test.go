package confirmhooks

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/docker/cagentcore/pkg/chat"
	"github.com/docker/cagentcore/pkg/hooks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPipe() (*io.PipeReader, *io.PipeWriter) {
	return io.Pipe()
}

func TestAutoConfirmExhaustionRoundTrip(t *testing.T) {
	ResetAutoConfirm()
	defer ResetAutoConfirm()

	n := 3
	SetAutoConfirm(&n)

	for i := 0; i < 3; i++ {
		shouldAuto, _ := CheckAutoConfirm()
		require.True(t, shouldAuto, "call %d should auto-confirm", i+1)
	}

	shouldAuto, _ := CheckAutoConfirm()
	assert.False(t, shouldAuto, "counter should be exhausted after N consumptions")
}

func TestAutoConfirmInfinite(t *testing.T) {
	ResetAutoConfirm()
	defer ResetAutoConfirm()

	SetAutoConfirm(nil)
	for i := 0; i < 10; i++ {
		shouldAuto, _ := CheckAutoConfirm()
		assert.True(t, shouldAuto)
	}
}

func TestAutoConfirmHookAlwaysAccepts(t *testing.T) {
	res, err := AutoConfirmHook(context.Background(), chat.ToolUse{Tool: "shell"}, "ls", false)
	require.NoError(t, err)
	assert.Equal(t, hooks.ConfirmActionAccept, res.Action)
}

func TestCLIConfirmerAcceptsOnYes(t *testing.T) {
	ResetAutoConfirm()
	in := strings.NewReader("y\n")
	var out bytes.Buffer
	c := &CLIConfirmer{In: in, Out: &out}

	res, err := c.Hook(context.Background(), chat.ToolUse{Tool: "shell", Content: "ls -la"}, "ls -la", false)
	require.NoError(t, err)
	assert.Equal(t, hooks.ConfirmActionAccept, res.Action)
}

func TestCLIConfirmerSkipsOnNo(t *testing.T) {
	ResetAutoConfirm()
	in := strings.NewReader("n\n")
	var out bytes.Buffer
	c := &CLIConfirmer{In: in, Out: &out}

	res, err := c.Hook(context.Background(), chat.ToolUse{Tool: "shell", Content: "rm -rf /"}, "rm -rf /", false)
	require.NoError(t, err)
	assert.Equal(t, hooks.ConfirmActionSkip, res.Action)
}

func TestCLIConfirmerEmptyLineDefaultsToAccept(t *testing.T) {
	ResetAutoConfirm()
	in := strings.NewReader("\n")
	var out bytes.Buffer
	c := &CLIConfirmer{In: in, Out: &out}

	res, err := c.Hook(context.Background(), chat.ToolUse{Tool: "shell", Content: "ls"}, "ls", false)
	require.NoError(t, err)
	assert.Equal(t, hooks.ConfirmActionAccept, res.Action)
}

func TestCLIConfirmerEditFlowProducesEditedContent(t *testing.T) {
	ResetAutoConfirm()
	in := strings.NewReader("e\n")
	var out bytes.Buffer
	c := &CLIConfirmer{
		In:  in,
		Out: &out,
		Edit: func(content, ext string) (string, error) {
			return content + "\n# edited", nil
		},
	}

	res, err := c.Hook(context.Background(), chat.ToolUse{Tool: "save", Args: []string{"a.py"}, Content: "print(1)"}, "print(1)", false)
	require.NoError(t, err)
	assert.Equal(t, hooks.ConfirmActionEdit, res.Action)
	assert.Equal(t, "print(1)\n# edited", res.EditedContent)
}

func TestCLIConfirmerEditNoChangeSkips(t *testing.T) {
	ResetAutoConfirm()
	in := strings.NewReader("e\n")
	var out bytes.Buffer
	c := &CLIConfirmer{
		In:  in,
		Out: &out,
		Edit: func(content, ext string) (string, error) {
			return content, nil
		},
	}

	res, err := c.Hook(context.Background(), chat.ToolUse{Tool: "save", Args: []string{"a.py"}, Content: "print(1)"}, "print(1)", false)
	require.NoError(t, err)
	assert.Equal(t, hooks.ConfirmActionSkip, res.Action)
}

func TestCLIConfirmerAutoNConsumesGlobalCounter(t *testing.T) {
	ResetAutoConfirm()
	defer ResetAutoConfirm()
	in := strings.NewReader("auto 2\n")
	var out bytes.Buffer
	c := &CLIConfirmer{In: in, Out: &out}

	res, err := c.Hook(context.Background(), chat.ToolUse{Tool: "shell", Content: "ls"}, "ls", false)
	require.NoError(t, err)
	assert.Equal(t, hooks.ConfirmActionAccept, res.Action)

	shouldAuto, _ := CheckAutoConfirm()
	assert.True(t, shouldAuto)
	shouldAuto, _ = CheckAutoConfirm()
	assert.True(t, shouldAuto)
	shouldAuto, _ = CheckAutoConfirm()
	assert.False(t, shouldAuto)
}

func TestCLIConfirmerContextCancelSkips(t *testing.T) {
	ResetAutoConfirm()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r, w := newPipe()
	defer w.Close()
	var out bytes.Buffer
	c := &CLIConfirmer{In: r, Out: &out}

	res, err := c.Hook(ctx, chat.ToolUse{Tool: "shell", Content: "ls"}, "ls", false)
	require.NoError(t, err)
	assert.Equal(t, hooks.ConfirmActionSkip, res.Action)
}

func TestServerConfirmerResolveExactlyOnce(t *testing.T) {
	s := NewServerConfirmer()
	var notified *PendingConfirmation
	s.Notify = func(p *PendingConfirmation) { notified = p }

	resultCh := make(chan *hooks.ConfirmationResult, 1)
	go func() {
		res, err := s.Hook(context.Background(), chat.ToolUse{Tool: "shell", Content: "ls"}, "ls", false)
		require.NoError(t, err)
		resultCh <- res
	}()

	require.Eventually(t, func() bool { return notified != nil }, time.Second, time.Millisecond)

	first := s.Resolve(notified.ID, *hooks.Accept())
	assert.True(t, first)
	second := s.Resolve(notified.ID, *hooks.Skip("late"))
	assert.False(t, second, "second resolve of the same id should find nothing pending")

	res := <-resultCh
	assert.Equal(t, hooks.ConfirmActionAccept, res.Action)
}

func TestServerConfirmerAutoConfirmBypassesPending(t *testing.T) {
	ResetAutoConfirm()
	defer ResetAutoConfirm()
	SetAutoConfirm(nil)

	s := NewServerConfirmer()
	res, err := s.Hook(context.Background(), chat.ToolUse{Tool: "shell"}, "ls", false)
	require.NoError(t, err)
	assert.Equal(t, hooks.ConfirmActionAccept, res.Action)
	assert.Nil(t, s.Get("anything"))
}

func TestServerConfirmerAutoConfirmStillNotifies(t *testing.T) {
	ResetAutoConfirm()
	defer ResetAutoConfirm()
	SetAutoConfirm(nil)

	s := NewServerConfirmer()
	var notified *PendingConfirmation
	s.Notify = func(p *PendingConfirmation) { notified = p }

	res, err := s.Hook(context.Background(), chat.ToolUse{Tool: "shell"}, "ls", false)
	require.NoError(t, err)
	assert.Equal(t, hooks.ConfirmActionAccept, res.Action)

	require.NotNil(t, notified, "auto-confirm should still announce the event for UI visibility")
	assert.True(t, notified.AutoConfirm)
	assert.Nil(t, s.Get(notified.ID), "the announced record is never added to the pending map, nothing to resolve")
}

func TestServerConfirmerTimeoutSkipsRegardlessOfDefaultConfirm(t *testing.T) {
	ResetAutoConfirm()
	defer ResetAutoConfirm()

	// A context already past its deadline makes context.WithTimeout's
	// derived context immediately done, exercising the timeout branch
	// without waiting out pendingConfirmationTimeout.
	expired, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()

	s := NewServerConfirmer()
	res, err := s.Hook(expired, chat.ToolUse{Tool: "shell", Content: "ls"}, "ls", true)
	require.NoError(t, err)
	assert.Equal(t, hooks.ConfirmActionSkip, res.Action, "a timed-out confirmation must skip even when defaultConfirm is true")
	assert.Contains(t, res.Reason, "timed out")
}

func TestReadOnlyAllowHookAcceptsSafeCommands(t *testing.T) {
	res, err := ReadOnlyAllowHook(context.Background(), chat.ToolUse{Tool: "shell", Content: "ls -la"}, "", false)
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, hooks.ConfirmActionAccept, res.Action)

	res, err = ReadOnlyAllowHook(context.Background(), chat.ToolUse{Tool: "shell", Content: "git status"}, "", false)
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, hooks.ConfirmActionAccept, res.Action)
}

func TestReadOnlyAllowHookFallsThroughForUnsafeCommands(t *testing.T) {
	res, err := ReadOnlyAllowHook(context.Background(), chat.ToolUse{Tool: "shell", Content: "rm -rf /"}, "", false)
	require.NoError(t, err)
	assert.Nil(t, res)
}

func TestReadOnlyAllowHookIgnoresNonShellTools(t *testing.T) {
	res, err := ReadOnlyAllowHook(context.Background(), chat.ToolUse{Tool: "save"}, "", false)
	require.NoError(t, err)
	assert.Nil(t, res)
}

func TestPermissionPrecedenceChainFallsToReadOnlyThenInteractive(t *testing.T) {
	r := hooks.New()
	RegisterReadOnlyAllow(r)

	ResetAutoConfirm()
	in := strings.NewReader("n\n")
	var out bytes.Buffer
	cli := &CLIConfirmer{In: in, Out: &out}
	cli.Register(r)

	res, err := r.TriggerToolConfirm(context.Background(), chat.ToolUse{Tool: "shell", Content: "ls -la"}, "ls -la", false)
	require.NoError(t, err)
	assert.Equal(t, hooks.ConfirmActionAccept, res.Action, "read-only hook should short-circuit before the interactive prompt runs")

	res, err = r.TriggerToolConfirm(context.Background(), chat.ToolUse{Tool: "shell", Content: "rm -rf /"}, "rm -rf /", false)
	require.NoError(t, err)
	assert.Equal(t, hooks.ConfirmActionSkip, res.Action, "unsafe command should fall through to the interactive hook, which declines")
}
