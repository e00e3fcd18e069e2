// Package restart provides the two session-lifecycle tools that act on
// the turn loop itself rather than the workspace: complete, which lets
// an autonomous run declare itself done, and restart, which re-execs the
// process in place. Neither is a workspace-facing tool; they are
// turn-loop control flow, so they live alongside the loop rather than in
// a tool-content package.
//
// Neither tool is wired through chat.ToolSpec.Hooks — that field only
// describes a tool's hooks for introspection, nothing in the turn loop
// consumes it. Tools that need hooks installed expose their own Register
// function instead, the same way pkg/confirmhooks and pkg/elicit do.
package restart

import (
	"context"
	"log/slog"

	"github.com/docker/cagentcore/pkg/chat"
	"github.com/docker/cagentcore/pkg/hooks"
	"github.com/docker/cagentcore/pkg/toolregistry"
	"github.com/docker/cagentcore/pkg/tooluse"
)

const completeDoneMessage = "Task complete. Autonomous session finished."

var completeBlockTypes = map[string]string{"complete": "complete"}

func init() {
	toolregistry.Register(&chat.ToolSpec{
		Name:              "complete",
		BlockTypes:        []string{"complete"},
		Description:       "Signal that the current autonomous task is finished.",
		Instructions:      "Call this when the task you were given is done, instead of waiting to be asked again.",
		DisabledByDefault: true,
		Execute:           executeComplete,
	})
}

func executeComplete(_ context.Context, _ string, _ []string, _ map[string]string, _ chat.ConfirmFunc) ([]chat.Message, error) {
	return []chat.Message{chat.NewSystemMessage(completeDoneMessage)}, nil
}

// RegisterComplete installs the generation.pre hook that detects a prior
// "complete" invocation and ends the session. It runs at the start of
// the step following the one that produced the complete tool use, after
// the system message it produced has already been logged, matching the
// source's deferred-detection design (the completion is announced before
// the session is torn down).
func RegisterComplete(r *hooks.Registry) {
	r.RegisterGenerationPre("complete", completeHook, 1000)
}

func completeHook(_ hooks.Context, messages []chat.Message, _ map[string]any) ([]chat.Message, bool, error) {
	last := lastAssistant(messages)
	if last == nil {
		return nil, false, nil
	}
	for _, tu := range tooluse.ExtractAll(*last, completeBlockTypes) {
		if tu.Tool == "complete" {
			slog.Debug("complete tool invoked, ending session")
			return nil, true, &hooks.SessionCompleteError{Reason: "complete tool invoked"}
		}
	}
	return nil, false, nil
}

func lastAssistant(messages []chat.Message) *chat.Message {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == chat.RoleAssistant {
			return &messages[i]
		}
	}
	return nil
}
