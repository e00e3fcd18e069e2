package restart

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/docker/cagentcore/pkg/chat"
	"github.com/docker/cagentcore/pkg/hooks"
	"github.com/docker/cagentcore/pkg/toolregistry"
	"github.com/docker/cagentcore/pkg/tooluse"
)

var restartBlockTypes = map[string]string{"restart": "restart"}

var (
	triggeredMu sync.Mutex
	triggered   bool
)

func init() {
	toolregistry.Register(&chat.ToolSpec{
		Name:              "restart",
		BlockTypes:        []string{"restart"},
		Description:       "Restart the agent process in place, preserving the conversation log.",
		Instructions:      "Call this to pick up code or configuration changes without losing the current conversation.",
		DisabledByDefault: true,
		Execute:           executeRestart,
	})
}

func executeRestart(ctx context.Context, _ string, _ []string, _ map[string]string, confirm chat.ConfirmFunc) ([]chat.Message, error) {
	if confirm != nil && !confirm(ctx, "Restart the process? This will exit and restart.") {
		return []chat.Message{chat.NewSystemMessage("Restart declined.")}, nil
	}

	triggeredMu.Lock()
	triggered = true
	triggeredMu.Unlock()

	return []chat.Message{chat.NewSystemMessage("Restarting...")}, nil
}

// RegisterRestart installs the generation.pre hook that performs the
// actual restart once the triggering "restart" tool use has been logged,
// mirroring the source's deferred-restart design: execute_restart only
// raises a flag so the log entry it produced is durably written before
// the process replaces itself.
func RegisterRestart(r *hooks.Registry) {
	r.RegisterGenerationPre("restart", restartHook, 1000)
}

func restartHook(_ hooks.Context, messages []chat.Message, _ map[string]any) ([]chat.Message, bool, error) {
	triggeredMu.Lock()
	fired := triggered
	triggeredMu.Unlock()
	if !fired {
		return nil, false, nil
	}

	last := lastAssistant(messages)
	if last == nil {
		return nil, false, nil
	}
	found := false
	for _, tu := range tooluse.ExtractAll(*last, restartBlockTypes) {
		if tu.Tool == "restart" {
			found = true
			break
		}
	}
	if !found {
		return nil, false, nil
	}

	slog.Info("restarting process")
	if err := doExec(); err != nil {
		return nil, false, fmt.Errorf("restart: %w", err)
	}
	// doExec only returns on Unix when exec itself failed; on success the
	// process image is already replaced and this line is unreachable.
	return nil, true, &hooks.SessionCompleteError{Reason: "process restarting"}
}
