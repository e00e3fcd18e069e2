package permissions

import (
	"fmt"

	"github.com/docker/cagentcore/pkg/chat"
	"github.com/docker/cagentcore/pkg/hooks"
)

// Hook adapts a Stack into a tool.confirm hook: Deny skips the call with
// a reason, Allow accepts it outright, and Ask falls through (nil, nil)
// so the next hook in the chain — typically the read-only allow-list,
// then the interactive confirmer — makes the call. Mirrors the
// teacher's session/team permission Decision switch in its tool
// executor, moved ahead of interactive confirmation in the chain.
type Hook struct {
	Stack Stack
}

// NewHook wraps stack as a tool.confirm hook. A nil or empty stack
// always falls through.
func NewHook(stack Stack) *Hook {
	return &Hook{Stack: stack}
}

func (h *Hook) Run(_ hooks.Context, tu chat.ToolUse, _ string, _ bool) (*hooks.ConfirmationResult, error) {
	switch h.Stack.Check(tu) {
	case Deny:
		return hooks.Skip(fmt.Sprintf("denied by permission pattern for %q", tu.Tool)), nil
	case Allow:
		return hooks.Accept(), nil
	default:
		return nil, nil
	}
}

// Register installs the hook at priority 20, ahead of the read-only
// allow-list (10) and the interactive confirmers (0), matching Stack's
// documented precedence: session/team permissions decide first.
func (h *Hook) Register(r *hooks.Registry) {
	r.RegisterToolConfirm("permissions", h.Run, 20)
}
