// Package builtinhooks carries the built-in awareness hooks (elapsed
// time, working-directory changes, markdown fence validation) and the
// Init routine each execution context calls to register its default
// hook set plus the mode-specific confirmation/elicitation hooks.
package builtinhooks

import (
	"fmt"
	"sync"
	"time"

	"github.com/docker/cagentcore/pkg/chat"
	"github.com/docker/cagentcore/pkg/hooks"
)

// TimeAwareness emits elapsed-time messages after tool execution so the
// assistant can pace long-running autonomous sessions. Messages fire at
// the 1, 5, 10, 15 and 20 minute marks, then every 10 minutes.
//
// Tracking is keyed by workspace: the first tool run in a workspace
// starts its clock, and each milestone is announced at most once.
type TimeAwareness struct {
	mu      sync.Mutex
	started map[string]time.Time
	shown   map[string]map[int]bool

	now func() time.Time // stubbed in tests
}

// NewTimeAwareness returns a tracker with no conversations observed yet.
func NewTimeAwareness() *TimeAwareness {
	return &TimeAwareness{
		started: map[string]time.Time{},
		shown:   map[string]map[int]bool{},
		now:     time.Now,
	}
}

// Register installs the tracker on tool.execute.post.
func (t *TimeAwareness) Register(r *hooks.Registry) {
	r.RegisterToolExecutePost("time_awareness.time_message", t.hook, 0)
}

func (t *TimeAwareness) hook(_ hooks.Context, _ hooks.Manager, workspace string, _ chat.ToolUse) ([]chat.Message, bool, error) {
	if workspace == "" {
		return nil, false, nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	start, ok := t.started[workspace]
	if !ok {
		t.started[workspace] = t.now()
		t.shown[workspace] = map[int]bool{}
		return nil, false, nil
	}

	elapsedMinutes := int(t.now().Sub(start).Minutes())
	milestone := nextMilestone(elapsedMinutes)
	if milestone == 0 || t.shown[workspace][milestone] {
		return nil, false, nil
	}
	t.shown[workspace][milestone] = true

	hours := elapsedMinutes / 60
	minutes := elapsedMinutes % 60
	var elapsedStr string
	switch {
	case hours > 0 && minutes > 0:
		elapsedStr = fmt.Sprintf("%dh %dmin", hours, minutes)
	case hours > 0:
		elapsedStr = fmt.Sprintf("%dh", hours)
	default:
		elapsedStr = fmt.Sprintf("%dmin", minutes)
	}

	msg := chat.NewSystemMessage(fmt.Sprintf(
		"<system_info>The time is now %s. Time elapsed: %s</system_info>",
		t.now().Format("15:04"), elapsedStr,
	))
	return []chat.Message{msg}, false, nil
}

// nextMilestone maps elapsed minutes to the milestone it falls under, or
// 0 when no milestone has been reached yet. Milestones: 1, 5, 10, 15,
// 20, then every 10 minutes.
func nextMilestone(elapsedMinutes int) int {
	switch {
	case elapsedMinutes < 1:
		return 0
	case elapsedMinutes < 5:
		return 1
	case elapsedMinutes < 10:
		return 5
	case elapsedMinutes < 15:
		return 10
	case elapsedMinutes < 20:
		return 15
	case elapsedMinutes < 30:
		return 20
	default:
		return (elapsedMinutes / 10) * 10
	}
}
