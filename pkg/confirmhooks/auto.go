package confirmhooks

import (
	"log/slog"

	"github.com/docker/cagentcore/pkg/chat"
	"github.com/docker/cagentcore/pkg/hooks"
)

// AutoConfirmHook always confirms, for autonomous/non-interactive mode.
func AutoConfirmHook(ctx hooks.Context, tu chat.ToolUse, preview string, defaultConfirm bool) (*hooks.ConfirmationResult, error) {
	slog.Debug("auto-confirming tool execution", "tool", tu.Tool)
	return hooks.Accept(), nil
}

// RegisterAuto installs AutoConfirmHook on r at priority 0, the lowest
// priority a tool.confirm hook chain typically needs (allow-list and
// permission-config hooks register above it).
func RegisterAuto(r *hooks.Registry) {
	r.RegisterToolConfirm("auto_confirm", AutoConfirmHook, 0)
}
