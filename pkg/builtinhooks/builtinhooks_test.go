package builtinhooks

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docker/cagentcore/pkg/chat"
	"github.com/docker/cagentcore/pkg/hooks"
)

func drain(ch <-chan chat.Message) []chat.Message {
	var out []chat.Message
	for m := range ch {
		out = append(out, m)
	}
	return out
}

func TestTimeAwarenessMilestones(t *testing.T) {
	ta := NewTimeAwareness()
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	ta.now = func() time.Time { return now }

	r := hooks.New()
	ta.Register(r)
	ctx := context.Background()
	tu := chat.ToolUse{Tool: "shell"}

	// First run starts the clock, no message.
	ch, err := r.TriggerToolExecutePost(ctx, nil, "/ws", tu)
	require.NoError(t, err)
	assert.Empty(t, drain(ch))

	// 30 seconds in: below the first milestone.
	now = now.Add(30 * time.Second)
	ch, _ = r.TriggerToolExecutePost(ctx, nil, "/ws", tu)
	assert.Empty(t, drain(ch))

	// 2 minutes in: crosses the 1min milestone.
	now = now.Add(90 * time.Second)
	ch, _ = r.TriggerToolExecutePost(ctx, nil, "/ws", tu)
	msgs := drain(ch)
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].Content, "Time elapsed: 2min")
	assert.Equal(t, chat.RoleSystem, msgs[0].Role)

	// Same milestone again: silent.
	now = now.Add(time.Minute)
	ch, _ = r.TriggerToolExecutePost(ctx, nil, "/ws", tu)
	assert.Empty(t, drain(ch))

	// 65 minutes in: the every-10-minutes regime, hour formatting.
	now = now.Add(62 * time.Minute)
	ch, _ = r.TriggerToolExecutePost(ctx, nil, "/ws", tu)
	msgs = drain(ch)
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].Content, "1h 5min")
}

func TestTimeAwarenessNoWorkspaceIsSilent(t *testing.T) {
	ta := NewTimeAwareness()
	r := hooks.New()
	ta.Register(r)

	ch, err := r.TriggerToolExecutePost(context.Background(), nil, "", chat.ToolUse{})
	require.NoError(t, err)
	assert.Empty(t, drain(ch))
}

func TestNextMilestone(t *testing.T) {
	assert.Equal(t, 0, nextMilestone(0))
	assert.Equal(t, 1, nextMilestone(1))
	assert.Equal(t, 1, nextMilestone(4))
	assert.Equal(t, 5, nextMilestone(7))
	assert.Equal(t, 10, nextMilestone(14))
	assert.Equal(t, 15, nextMilestone(19))
	assert.Equal(t, 20, nextMilestone(25))
	assert.Equal(t, 30, nextMilestone(34))
	assert.Equal(t, 70, nextMilestone(75))
}

func TestCwdTrackerNotifiesOnChange(t *testing.T) {
	cwd := "/home/a"
	tracker := NewCwdTracker()
	tracker.getwd = func() (string, error) { return cwd, nil }

	r := hooks.New()
	tracker.Register(r)
	ctx := context.Background()
	tu := chat.ToolUse{Tool: "shell", Content: "cd /home/b"}

	ch, err := r.TriggerToolExecutePre(ctx, nil, "/ws", tu)
	require.NoError(t, err)
	assert.Empty(t, drain(ch))

	cwd = "/home/b"
	ch, err = r.TriggerToolExecutePost(ctx, nil, "/ws", tu)
	require.NoError(t, err)
	msgs := drain(ch)
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].Content, "Working directory changed to: /home/b")
}

func TestCwdTrackerSilentWhenUnchanged(t *testing.T) {
	tracker := NewCwdTracker()
	tracker.getwd = func() (string, error) { return "/home/a", nil }

	r := hooks.New()
	tracker.Register(r)
	ctx := context.Background()
	tu := chat.ToolUse{Tool: "shell", Content: "ls"}

	ch, _ := r.TriggerToolExecutePre(ctx, nil, "/ws", tu)
	drain(ch)
	ch, _ = r.TriggerToolExecutePost(ctx, nil, "/ws", tu)
	assert.Empty(t, drain(ch))
}

func TestMarkdownValidationWarnsOnUnbalancedFences(t *testing.T) {
	r := hooks.New()
	RegisterMarkdownValidation(r)
	ctx := context.Background()

	content := "# Title\n\n```\ncode\n```\n\n```python\nleft open\n"
	ch, err := r.TriggerFileSavePre(ctx, nil, "/ws", "notes.md", content)
	require.NoError(t, err)
	msgs := drain(ch)
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].Content, "cut-off")
	assert.Contains(t, msgs[0].Content, "notes.md")
}

func TestMarkdownValidationSilentWhenBalanced(t *testing.T) {
	r := hooks.New()
	RegisterMarkdownValidation(r)
	ctx := context.Background()

	content := "```go\nfmt.Println()\n```\n"
	ch, err := r.TriggerFileSavePre(ctx, nil, "/ws", "notes.md", content)
	require.NoError(t, err)
	assert.Empty(t, drain(ch))
}

func TestMarkdownValidationIgnoresNonMarkdown(t *testing.T) {
	r := hooks.New()
	RegisterMarkdownValidation(r)

	ch, err := r.TriggerFileSavePre(context.Background(), nil, "/ws", "main.go", "```")
	require.NoError(t, err)
	assert.Empty(t, drain(ch))
}

func TestContextTreeListsWorkspace(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "pkg", "chat"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".git"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "go.mod"), []byte("module x\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pkg", "chat", "message.go"), []byte("package chat\n"), 0o644))

	r := hooks.New()
	RegisterContextTree(r)
	ch, err := r.TriggerSessionStart(context.Background(), "/logs", dir, nil)
	require.NoError(t, err)
	msgs := drain(ch)
	require.Len(t, msgs, 1)
	assert.True(t, msgs[0].Hide)
	assert.Contains(t, msgs[0].Content, "go.mod")
	assert.Contains(t, msgs[0].Content, "message.go")
	assert.NotContains(t, msgs[0].Content, ".git")
}

func TestInitRegistersDefaults(t *testing.T) {
	r := hooks.New()
	res := Init(r, Options{})
	require.NotNil(t, res.Cache)

	counts := r.Counts()
	// cwd_tracking registers on both tool.execute.pre and post;
	// time_awareness on post only.
	assert.Equal(t, 1, counts[hooks.TypeToolExecutePre])
	assert.Equal(t, 2, counts[hooks.TypeToolExecutePost])
	assert.Equal(t, 1, counts[hooks.TypeFileSavePre])
	assert.Equal(t, 1, counts[hooks.TypeStepPost])
	assert.Equal(t, 1, counts[hooks.TypeCacheInvalidated])
	// readonly_allow, but no mode-specific confirm hook without flags.
	assert.Equal(t, 1, counts[hooks.TypeToolConfirm])
}

func TestInitAllowlistReplacesDefaults(t *testing.T) {
	r := hooks.New()
	Init(r, Options{Allowlist: []string{"time_awareness", "no_such_hook"}})

	counts := r.Counts()
	assert.Equal(t, 1, counts[hooks.TypeToolExecutePost])
	assert.Equal(t, 0, counts[hooks.TypeToolExecutePre])
	assert.Equal(t, 0, counts[hooks.TypeFileSavePre])
	assert.Equal(t, 0, counts[hooks.TypeToolConfirm])
}

func TestInitModeFlagsPickConfirmHooks(t *testing.T) {
	auto := hooks.New()
	Init(auto, Options{NoConfirm: true, Allowlist: []string{}})
	assert.Equal(t, 1, auto.Counts()[hooks.TypeToolConfirm])

	srv := hooks.New()
	Init(srv, Options{Server: true, Allowlist: []string{}})
	assert.Equal(t, 0, srv.Counts()[hooks.TypeToolConfirm])

	cli := hooks.New()
	Init(cli, Options{Interactive: true, Allowlist: []string{}})
	assert.Equal(t, 1, cli.Counts()[hooks.TypeToolConfirm])
	assert.Equal(t, 1, cli.Counts()[hooks.TypeElicit])
}

func TestInitTwiceIsIdempotentOnRegistryState(t *testing.T) {
	r := hooks.New()
	Init(r, Options{Interactive: true})
	first := r.Counts()
	Init(r, Options{Interactive: true})
	assert.Equal(t, first, r.Counts())
}
