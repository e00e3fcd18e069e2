// Package hooks implements the typed, priority-ordered, cancellable event
// bus woven through every phase of a turn.
//
// Each hook family gets its own Go function type and its own tagged list,
// so the registry and dispatch are a typed switch rather than reflection
// over interface{}.
package hooks

import (
	"context"

	"github.com/docker/cagentcore/pkg/chat"
)

// Context is a plain alias for context.Context, named locally so every
// hook function type below reads as "receives a context first, then its
// own arguments" without repeating the import alias everywhere.
type Context = context.Context

// Type is the closed set of dot-namespaced hook types a Registry dispatches.
type Type string

const (
	TypeSessionStart      Type = "session.start"
	TypeSessionEnd        Type = "session.end"
	TypeTurnPre           Type = "turn.pre"
	TypeTurnPost          Type = "turn.post"
	TypeStepPre           Type = "step.pre"
	TypeStepPost          Type = "step.post"
	TypeGenerationPre     Type = "generation.pre"
	TypeGenerationPost    Type = "generation.post"
	TypeMessageTransform  Type = "message.transform"
	TypeToolExecutePre    Type = "tool.execute.pre"
	TypeToolExecutePost   Type = "tool.execute.post"
	TypeToolTransform     Type = "tool.transform"
	TypeFileSavePre       Type = "file.save.pre"
	TypeFileSavePost      Type = "file.save.post"
	TypeFilePatchPre      Type = "file.patch.pre"
	TypeFilePatchPost     Type = "file.patch.post"
	TypeLoopContinue      Type = "loop.continue"
	TypeCacheInvalidated  Type = "cache.invalidated"
	TypeToolConfirm       Type = "tool.confirm"
	TypeElicit            Type = "elicit"
)

// ManagerFunc backs turn.pre/turn.post/step.pre/step.post: hooks that only
// need the conversation manager.
type ManagerFunc func(ctx Context, mgr Manager) ([]chat.Message, bool, error)

// SessionStartFunc backs session.start.
type SessionStartFunc func(ctx Context, logdir, workspace string, initialMsgs []chat.Message) ([]chat.Message, bool, error)

// SessionEndFunc backs session.end.
type SessionEndFunc func(ctx Context, mgr Manager) ([]chat.Message, bool, error)

// GenerationPreFunc backs generation.pre. Yielded messages are prepended
// to the prompt for this generation only (not persisted).
type GenerationPreFunc func(ctx Context, messages []chat.Message, kwargs map[string]any) ([]chat.Message, bool, error)

// GenerationPostFunc backs generation.post.
type GenerationPostFunc func(ctx Context, message chat.Message, kwargs map[string]any) ([]chat.Message, bool, error)

// MessageTransformFunc backs message.transform: it returns a replacement
// Message that persists in place of the one passed in.
type MessageTransformFunc func(ctx Context, msg chat.Message) (chat.Message, error)

// ToolExecuteFunc backs tool.execute.pre/post.
type ToolExecuteFunc func(ctx Context, mgr Manager, workspace string, tu chat.ToolUse) ([]chat.Message, bool, error)

// ToolTransformFunc backs tool.transform: it returns the ToolUse that
// replaces the input for confirmation and execution, letting a hook
// intercept or rewrite tool I/O before it runs.
type ToolTransformFunc func(ctx Context, tu chat.ToolUse) (chat.ToolUse, error)

// FileHookFunc backs file.save.pre/post and file.patch.pre/post. Created
// is only meaningful for the *.post variants (whether the file was newly
// created vs. overwritten); pre hooks receive created=false always.
type FileHookFunc func(ctx Context, mgr Manager, workspace, path, content string, created bool) ([]chat.Message, bool, error)

// LoopContinueFunc backs loop.continue.
type LoopContinueFunc func(ctx Context, mgr Manager, interactive bool, queuedPrompts int) ([]chat.Message, bool, error)

// CacheInvalidatedFunc backs cache.invalidated.
type CacheInvalidatedFunc func(ctx Context, mgr Manager, reason string, tokensBefore, tokensAfter *int) ([]chat.Message, bool, error)

// ToolConfirmFunc backs tool.confirm. Unlike the other hook types it
// returns a decision directly rather than a message stream; a nil result
// means "fall through" to the next hook.
type ToolConfirmFunc func(ctx Context, tu chat.ToolUse, preview string, defaultConfirm bool) (*ConfirmationResult, error)

// ElicitFunc backs elicit. A nil result means "fall through".
type ElicitFunc func(ctx Context, req ElicitationRequest) (*ElicitationResponse, error)

// Manager is the minimal surface hooks need from the conversation log
// manager. It is satisfied by pkg/logmanager.Manager; kept as an
// interface here so pkg/hooks never imports pkg/logmanager (hooks is a
// leaf package consumed by logmanager's callers, not the reverse).
type Manager interface {
	ID() string
	Workspace() string
}
