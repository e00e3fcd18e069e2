// Package tooluse extracts chat.ToolUse invocations out of free-form
// assistant message content, folding the three recognized grammars
// (markdown fenced code, gptme XML, invoke XML) into one ordered,
// position-aware stream, and separately exposes provider-native
// structured tool calls already attached to a message.
package tooluse

import (
	"sort"

	"github.com/docker/cagentcore/pkg/chat"
)

// Extract scans content for every tool use across all three grammars
// and returns them ordered by textual position of their opening token,
// tie-broken by earlier start offset (spec invariant: "matches the
// textual order of their openings"). blockTypes maps a recognized
// markdown info-string token to the tool name it invokes (a tool
// registers one or more block_types; the caller is expected to have
// flattened chat.ToolSpec.BlockTypes into this map already).
func Extract(content string, blockTypes map[string]string) []chat.ToolUse {
	var all []chat.ToolUse
	all = append(all, extractMarkdown(content, blockTypes)...)
	all = append(all, extractGptmeXML(content)...)
	all = append(all, extractInvokeXML(content)...)

	sort.SliceStable(all, func(i, j int) bool {
		return all[i].StartOffset < all[j].StartOffset
	})
	return all
}

// BlockTypeMap flattens a loaded toolchain's BlockTypes declarations
// into the token -> tool-name map Extract needs.
func BlockTypeMap(specs map[string]*chat.ToolSpec) map[string]string {
	out := make(map[string]string)
	for name, spec := range specs {
		for _, token := range spec.BlockTypes {
			out[token] = name
		}
	}
	return out
}

// FromProviderCalls converts a message's provider-native structured tool
// calls (chat.ToolCall, arriving whole rather than parsed from text) into
// ToolUse values. These always carry StartOffset == EndOffset == 0 since
// they have no position within the message's textual content; callers
// that merge these with text-extracted uses should treat them as a
// separate, already-ordered stream (provider tool call order is whatever
// order the provider returned them in) rather than interleaving by
// offset with text-derived uses.
func FromProviderCalls(calls []chat.ToolCall) []chat.ToolUse {
	out := make([]chat.ToolUse, 0, len(calls))
	for _, c := range calls {
		out = append(out, chat.ToolUse{
			Tool:    c.Function.Name,
			Content: c.Function.Arguments,
			CallID:  c.ID,
			Source:  chat.SourceProviderCall,
		})
	}
	return out
}

// ExtractAll merges text-extracted tool uses (in textual order) after
// any provider-native structured calls already attached to the message,
// since provider calls are emitted as a discrete, ordered list outside
// of Content and logically precede anything parsed from free text.
func ExtractAll(msg chat.Message, blockTypes map[string]string) []chat.ToolUse {
	out := FromProviderCalls(msg.ToolCalls)
	out = append(out, Extract(msg.Content, blockTypes)...)
	return out
}
