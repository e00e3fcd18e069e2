package builtinhooks

import (
	"fmt"
	"os"
	"sync"

	"github.com/docker/cagentcore/pkg/chat"
	"github.com/docker/cagentcore/pkg/hooks"
)

// CwdTracker watches for working-directory changes across tool runs and
// notifies the assistant when one happens: the persistent shell session
// carries `cd` between commands, and in-process tools may chdir too, so
// without a notice the model loses track of where commands execute.
//
// The pre hook snapshots the process cwd; the post hook compares and
// yields a system notice on change.
type CwdTracker struct {
	mu     sync.Mutex
	before string

	getwd func() (string, error) // stubbed in tests
}

// NewCwdTracker returns a tracker reading the real process cwd.
func NewCwdTracker() *CwdTracker {
	return &CwdTracker{getwd: os.Getwd}
}

// Register installs the tracker's pre/post pair on tool.execute.pre and
// tool.execute.post.
func (c *CwdTracker) Register(r *hooks.Registry) {
	r.RegisterToolExecutePre("cwd_tracking.pre_execute", c.pre, 0)
	r.RegisterToolExecutePost("cwd_tracking.post_execute", c.post, 0)
}

func (c *CwdTracker) pre(_ hooks.Context, _ hooks.Manager, _ string, _ chat.ToolUse) ([]chat.Message, bool, error) {
	cwd, err := c.getwd()
	if err != nil {
		return nil, false, fmt.Errorf("cwd_tracking: %w", err)
	}
	c.mu.Lock()
	c.before = cwd
	c.mu.Unlock()
	return nil, false, nil
}

func (c *CwdTracker) post(_ hooks.Context, _ hooks.Manager, _ string, _ chat.ToolUse) ([]chat.Message, bool, error) {
	c.mu.Lock()
	before := c.before
	c.mu.Unlock()
	if before == "" {
		return nil, false, nil
	}

	current, err := c.getwd()
	if err != nil {
		return nil, false, fmt.Errorf("cwd_tracking: %w", err)
	}
	if current == before {
		return nil, false, nil
	}

	msg := chat.NewSystemMessage(fmt.Sprintf(
		"<system_info>Working directory changed to: %s</system_info>", current,
	))
	return []chat.Message{msg}, false, nil
}
