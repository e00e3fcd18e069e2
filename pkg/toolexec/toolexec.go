// Package toolexec drives one parsed ToolUse to completion: it asks
// tool.confirm hooks for a decision, fires tool.execute.pre/post around
// the tool's own Execute callback, and turns the outcome into the
// Messages the turn loop appends to the log.
package toolexec

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/docker/cagentcore/pkg/chat"
	"github.com/docker/cagentcore/pkg/hooks"
)

// InterruptMarker is the content of the system message emitted when a
// tool run is cut short by user cancellation.
const InterruptMarker = "INTERRUPT_CONTENT"

const editedNotice = "(content was edited by user)"

// Result is the outcome of one Execute call.
type Result struct {
	// Messages are appended to the conversation log in order.
	Messages []chat.Message
	// Skipped reports whether the tool was declined at confirmation.
	Skipped bool
	// Interrupted reports whether execution was cut short by ctx
	// cancellation; the turn loop stops executing further tools for
	// this step when this is set.
	Interrupted bool
}

// Execute runs one ToolUse through the full confirm/execute/hook cycle.
// spec is the loaded ToolSpec tu.Tool resolved to; callers only invoke
// Execute for runnable ToolUses.
func Execute(ctx context.Context, reg *hooks.Registry, mgr hooks.Manager, workspace string, tu chat.ToolUse, spec *chat.ToolSpec) (Result, error) {
	if spec == nil || spec.Execute == nil {
		msg := chat.NewSystemMessage(fmt.Sprintf("tool %q is not available", tu.Tool))
		msg.CallID = tu.CallID
		return Result{Messages: []chat.Message{msg}}, nil
	}

	// tool.transform runs before confirmation so the user is shown the
	// invocation that will actually execute.
	tu, err := reg.TriggerToolTransform(ctx, tu)
	if err != nil {
		return Result{}, err
	}

	confirmation, err := reg.TriggerToolConfirm(ctx, tu, previewOf(tu), true)
	if err != nil {
		return Result{}, err
	}

	edited := false
	switch confirmation.Action {
	case hooks.ConfirmActionSkip:
		msg := chat.NewSystemMessage(declinedMessage(tu, confirmation.Reason))
		msg.CallID = tu.CallID
		return Result{Messages: []chat.Message{msg}, Skipped: true}, nil

	case hooks.ConfirmActionEdit:
		tu.Content = confirmation.EditedContent
		edited = true

	case hooks.ConfirmActionAccept, hooks.ConfirmActionAuto:
		// proceed as-is

	default:
		msg := chat.NewSystemMessage(declinedMessage(tu, "unrecognized confirmation action"))
		msg.CallID = tu.CallID
		return Result{Messages: []chat.Message{msg}, Skipped: true}, nil
	}

	var out []chat.Message

	preMsgs, err := drain(reg.TriggerToolExecutePre(ctx, mgr, workspace, tu))
	if err != nil {
		return Result{Messages: out}, err
	}
	out = append(out, preMsgs...)

	confirmFn := func(ctx context.Context, question string) bool {
		res, err := reg.TriggerToolConfirm(ctx, chat.ToolUse{Tool: tu.Tool, Content: question, CallID: tu.CallID}, question, true)
		if err != nil || res == nil {
			return true
		}
		return res.Action == hooks.ConfirmActionAccept || res.Action == hooks.ConfirmActionAuto
	}

	execMsgs, execErr := spec.Execute(ctx, tu.Content, tu.Args, tu.Kwargs, confirmFn)
	for i := range execMsgs {
		if execMsgs[i].CallID == "" {
			execMsgs[i].CallID = tu.CallID
		}
	}
	if edited && len(execMsgs) > 0 {
		last := len(execMsgs) - 1
		execMsgs[last].Content = strings.TrimRight(execMsgs[last].Content, "\n") + "\n\n" + editedNotice
	}
	out = append(out, execMsgs...)

	if execErr != nil {
		if errors.Is(execErr, context.Canceled) {
			marker := chat.NewSystemMessage(InterruptMarker)
			marker.CallID = tu.CallID
			out = append(out, marker)
			return Result{Messages: out, Interrupted: true}, nil
		}
		errMsg := chat.NewSystemMessage(fmt.Sprintf("tool %q failed: %v", tu.Tool, execErr))
		errMsg.CallID = tu.CallID
		out = append(out, errMsg)
	}

	postMsgs, err := drain(reg.TriggerToolExecutePost(ctx, mgr, workspace, tu))
	if err != nil {
		return Result{Messages: out}, err
	}
	out = append(out, postMsgs...)

	return Result{Messages: out}, nil
}

func declinedMessage(tu chat.ToolUse, reason string) string {
	if reason == "" {
		return fmt.Sprintf("Tool %q declined by user.", tu.Tool)
	}
	return fmt.Sprintf("Tool %q declined: %s", tu.Tool, reason)
}

func previewOf(tu chat.ToolUse) string {
	if tu.Content != "" {
		return tu.Content
	}
	parts := append([]string{}, tu.Args...)
	for k, v := range tu.Kwargs {
		parts = append(parts, k+"="+v)
	}
	return strings.Join(parts, " ")
}

func drain(ch <-chan chat.Message, err error) ([]chat.Message, error) {
	if err != nil {
		return nil, err
	}
	var out []chat.Message
	for msg := range ch {
		out = append(out, msg)
	}
	return out, nil
}
