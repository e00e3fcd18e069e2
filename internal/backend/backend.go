// Package backend defines the generation interface boundary cmd/agentcore
// drives the turn loop through. It carries no provider client of its
// own: it only adapts something satisfying Backend to
// turnloop.GenerateFunc, and ships one trivial Echo implementation so the
// CLI has something to run against without a real model wired in.
package backend

import (
	"context"
	"fmt"
	"strings"

	"github.com/docker/cagentcore/pkg/chat"
)

// Backend turns a prompt plus the available tool specs into one
// assistant Message. A real implementation lives outside this module
// (an OpenAI/Anthropic/etc. client) and plugs in through this interface.
type Backend interface {
	Generate(ctx context.Context, messages []chat.Message, tools []*chat.ToolSpec) (chat.Message, error)
}

// Func adapts a plain function to Backend, the same functional-adapter
// pattern http.HandlerFunc uses.
type Func func(ctx context.Context, messages []chat.Message, tools []*chat.ToolSpec) (chat.Message, error)

func (f Func) Generate(ctx context.Context, messages []chat.Message, tools []*chat.ToolSpec) (chat.Message, error) {
	return f(ctx, messages, tools)
}

// Echo is a placeholder Backend for local exercising of the turn loop
// without a real model: it repeats the last user message back as an
// assistant message and never emits tool uses, so a turn always
// terminates after one step. Useful for `agentcore run` smoke-testing
// the hook/confirmation/logging plumbing end to end.
type Echo struct{}

func (Echo) Generate(_ context.Context, messages []chat.Message, _ []*chat.ToolSpec) (chat.Message, error) {
	var last chat.Message
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == chat.RoleUser {
			last = messages[i]
			break
		}
	}
	reply := strings.TrimSpace(last.Content)
	if reply == "" {
		reply = "(nothing to echo)"
	}
	return chat.NewAssistantMessage(fmt.Sprintf("echo: %s", reply)), nil
}
