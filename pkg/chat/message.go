// Package chat holds the core conversation data model: messages, tool
// calls, tool uses and tool specs shared by every other package.
package chat

import "time"

// Role identifies who produced a Message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// PartType discriminates a multimodal content part.
type PartType string

const (
	PartText  PartType = "text"
	PartImage PartType = "image"
)

// Part is one piece of multimodal message content.
type Part struct {
	Type PartType `json:"type"`
	Text string   `json:"text,omitempty"`
	// URL or data URI for non-text parts.
	Media string `json:"media,omitempty"`
}

// Message is an immutable record of one conversation entry.
//
// Once appended to a Log, a Message is never mutated in place: a
// message.transform hook produces a replacement Message rather than
// editing this one.
type Message struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content,omitempty"`
	Parts     []Part    `json:"parts,omitempty"`
	Timestamp time.Time `json:"timestamp"`

	// CallID links a system tool-result message back to the assistant
	// tool call that produced it. Must match the CallID of some prior
	// assistant ToolCall.
	CallID string `json:"call_id,omitempty"`

	// Hide withholds the message from terminal display while keeping it
	// in the log and visible to the model (used for secrets/telemetry).
	Hide bool `json:"hide,omitempty"`

	// Quiet suppresses streaming display only.
	Quiet bool `json:"quiet,omitempty"`

	// Files lists paths the user attached to this message.
	Files []string `json:"files,omitempty"`

	// ToolCalls carries provider-native structured tool calls attached
	// to an assistant message (as opposed to calls parsed out of Content
	// by the tooluse extractors).
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
}

// NewUserMessage builds a plain user message stamped with the current time.
func NewUserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content, Timestamp: time.Now()}
}

// NewSystemMessage builds a system (tool-result / notice) message.
func NewSystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content, Timestamp: time.Now()}
}

// NewAssistantMessage builds an assistant message.
func NewAssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content, Timestamp: time.Now()}
}

// WithCallID returns a copy of m stamped with the given call id.
func (m Message) WithCallID(callID string) Message {
	m.CallID = callID
	return m
}

// WithHide returns a copy of m with Hide set.
func (m Message) WithHide(hide bool) Message {
	m.Hide = hide
	return m
}
