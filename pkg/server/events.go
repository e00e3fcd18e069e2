package server

import (
	"github.com/docker/cagentcore/pkg/chat"
	"github.com/docker/cagentcore/pkg/hooks"
)

// event builds one SSE payload: a JSON object with a "type" discriminator
// plus whatever event-specific fields the caller supplies.
type event map[string]any

func newEvent(typ string, fields map[string]any) event {
	e := event{"type": typ}
	for k, v := range fields {
		e[k] = v
	}
	return e
}

func eventConnected(sessionID string) event {
	return newEvent("connected", map[string]any{"session_id": sessionID})
}

func eventPing() event {
	return newEvent("ping", nil)
}

func eventMessageAdded(msg chat.Message) event {
	return newEvent("message_added", map[string]any{"message": msg})
}

func eventGenerationStarted() event {
	return newEvent("generation_started", nil)
}

func eventGenerationProgress(token string) event {
	return newEvent("generation_progress", map[string]any{"token": token})
}

func eventGenerationComplete(msg chat.Message) event {
	return newEvent("generation_complete", map[string]any{"message": msg})
}

func eventToolPending(toolID string, tu chat.ToolUse, autoConfirm bool) event {
	return newEvent("tool_pending", map[string]any{
		"tool_id":      toolID,
		"tooluse":      tu,
		"auto_confirm": autoConfirm,
	})
}

func eventToolExecuting(toolID string) event {
	return newEvent("tool_executing", map[string]any{"tool_id": toolID})
}

// eventElicitPending builds the elicit_pending event. Every key is always
// present: options and fields are nil and default/description are empty
// when the request does not use them.
func eventElicitPending(elicitID string, typ hooks.ElicitationType, prompt string, options []string, fields []hooks.FormField, def, description string) event {
	return newEvent("elicit_pending", map[string]any{
		"elicit_id":   elicitID,
		"elicit_type": typ,
		"prompt":      prompt,
		"options":     options,
		"fields":      fields,
		"default":     def,
		"description": description,
	})
}

func eventInterrupted() event {
	return newEvent("interrupted", nil)
}

func eventError(err error) event {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return newEvent("error", map[string]any{"error": msg})
}

func eventConfigChanged(config any, changedFields []string) event {
	return newEvent("config_changed", map[string]any{
		"config":         config,
		"changed_fields": changedFields,
	})
}
