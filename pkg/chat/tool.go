package chat

import "context"

// ToolCall is a provider-native structured tool call as attached to an
// assistant Message (OpenAI/Anthropic style), distinct from a ToolUse
// parsed out of free-form assistant text.
type ToolCall struct {
	ID       string       `json:"id,omitempty"`
	Type     string       `json:"type,omitempty"`
	Function FunctionCall `json:"function"`
}

// FunctionCall is the name/arguments pair inside a ToolCall.
type FunctionCall struct {
	Name      string `json:"name,omitempty"`
	Arguments string `json:"arguments,omitempty"`
}

// Source identifies which grammar a ToolUse was extracted from.
type Source string

const (
	SourceMarkdown     Source = "markdown"
	SourceGptmeXML     Source = "gptme-xml"
	SourceInvokeXML    Source = "invoke-xml"
	SourceProviderCall Source = "provider-call"
)

// ToolUse is a parsed invocation extracted from assistant text (or carried
// as provider metadata). It is ephemeral: created by scanning assistant
// content, consumed by the executor, and discarded after the resulting
// system Message is emitted.
type ToolUse struct {
	Tool    string            `json:"tool"`
	Args    []string          `json:"args,omitempty"`
	Kwargs  map[string]string `json:"kwargs,omitempty"`
	Content string            `json:"content"`
	CallID  string            `json:"call_id,omitempty"`

	// Source records which grammar produced this ToolUse.
	Source Source `json:"source"`

	// StartOffset is the byte offset of the opening token within the
	// assistant message content. Used to preserve textual ordering and
	// to separate prefix display text from the tool invocation.
	StartOffset int `json:"start_offset"`

	// EndOffset is the byte offset just past the closing token.
	EndOffset int `json:"end_offset"`
}

// IsRunnable reports whether tool resolves to a loaded ToolSpec in the
// given registry snapshot. It is a derived property, not stored state.
func (tu ToolUse) IsRunnable(loaded map[string]*ToolSpec) bool {
	_, ok := loaded[tu.Tool]
	return ok
}

// ExecuteFunc is a tool's execution callback. It receives the parsed
// content/args/kwargs plus a confirm callback for secondary prompts (e.g.
// "overwrite existing file?") and returns the messages the tool run
// produces.
type ExecuteFunc func(ctx context.Context, content string, args []string, kwargs map[string]string, confirm ConfirmFunc) ([]Message, error)

// ConfirmFunc asks a secondary yes/no question mid-execution (distinct
// from the top-level tool.confirm hook gating the whole call).
type ConfirmFunc func(ctx context.Context, question string) bool

// InitFunc performs a tool's lazy one-time setup. Its return value, if
// non-nil, replaces the spec in the loaded-tools list.
type InitFunc func(ctx context.Context) (*ToolSpec, error)

// AvailableFunc probes whether a tool's environment prerequisites (e.g. a
// required binary) are satisfied.
type AvailableFunc func() bool

// Parameter describes one named argument accepted by a tool.
type Parameter struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
	Required    bool   `json:"required,omitempty"`
}

// ToolSpec is a registered tool's static description.
//
// Tool names are unique within a loaded toolchain; BlockTypes collide
// with markdown language tags only intentionally. Init runs at most once
// per context.
type ToolSpec struct {
	Name        string
	BlockTypes  []string
	Description string
	Instructions string
	Examples    string
	Parameters  []Parameter

	Execute ExecuteFunc
	Init    InitFunc
	Available AvailableFunc

	// Functions lists additional python-callable exports; kept as names
	// only since no Go evaluator binds them here.
	Functions []string

	// Hooks are hook registrations this tool declares for itself (e.g. a
	// tool-specific tool.confirm allow-list hook).
	Hooks []HookDeclaration

	// Commands are REPL slash-commands this tool declares; registered
	// with the toolchain's command registry when the tool is loaded.
	Commands []Command

	DisabledByDefault bool
	IsMCP             bool

	initialized bool
	initOnce    func() // not set or read anywhere in this module
}

// MarkInitialized flags spec as already having completed its one-time
// setup, so toolregistry.Registry.Init skips it even though it was never
// routed through InitFunc (e.g. an MCP proxy spec, whose handshake
// already did the equivalent work).
func (s *ToolSpec) MarkInitialized() {
	s.initialized = true
}

// HookDeclaration describes a hook registration a tool declares for
// itself. Nothing in this module reads ToolSpec.Hooks or registers the
// declared hooks.
type HookDeclaration struct {
	Name     string
	HookType string
	Priority int
}
