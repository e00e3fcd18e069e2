package hooks

import (
	"errors"
	"log/slog"
	"time"

	"github.com/docker/cagentcore/pkg/chat"
)

// ErrSessionComplete unwinds a trigger (and everything above it, up to
// the turn loop) to end the session. Hook exceptions are otherwise
// caught, logged, and swallowed — ErrSessionComplete is the sole
// exception to that rule.
var ErrSessionComplete = errors.New("session complete")

// SessionCompleteError wraps ErrSessionComplete with a human-readable
// reason, e.g. "complete tool invoked" or "auto-reply exhausted".
type SessionCompleteError struct {
	Reason string
}

func (e *SessionCompleteError) Error() string { return "session complete: " + e.Reason }
func (e *SessionCompleteError) Unwrap() error  { return ErrSessionComplete }

// runSync executes entries in order, collecting yielded messages until a
// hook either signals stop or returns ErrSessionComplete. Non-session-
// complete errors are logged and the hook is skipped; dispatch continues
// on to the next entry rather than propagating the error to the caller.
func runSync[F any](hookType Type, entries []entry[F], invoke func(F) ([]chat.Message, bool, error)) ([]chat.Message, error) {
	var out []chat.Message
	for _, e := range entries {
		start := time.Now()
		msgs, stop, err := invoke(e.fn)
		logSlow(e.name, time.Since(start).Seconds())

		if err != nil {
			var sc *SessionCompleteError
			if errors.As(err, &sc) || errors.Is(err, ErrSessionComplete) {
				return out, err
			}
			slog.Error("hook failed", "hook", e.name, "type", hookType, "error", err)
			continue
		}

		out = append(out, msgs...)
		if stop {
			slog.Debug("hook stopped propagation", "hook", e.name, "type", hookType)
			break
		}
	}
	return out, nil
}

// runAsync launches entries on detached goroutines; their results are
// logged but never surfaced to the caller. A session-complete signal
// raised from an async hook is logged as a warning rather than aborting
// the main flow — only sync hooks can unwind a turn.
func runAsync[F any](hookType Type, entries []entry[F], invoke func(F) ([]chat.Message, bool, error)) {
	for _, e := range entries {
		go func(name string, fn F) {
			_, _, err := invoke(fn)
			if err != nil {
				var sc *SessionCompleteError
				if errors.As(err, &sc) || errors.Is(err, ErrSessionComplete) {
					slog.Warn("async hook signaled session complete; ignored", "hook", name, "type", hookType)
					return
				}
				slog.Error("async hook failed", "hook", name, "type", hookType, "error", err)
			}
		}(e.name, e.fn)
	}
}

// split separates the enabled entries of a typedList into sync and async
// groups, preserving priority order within each group.
func split[F any](l *typedList[F]) (sync, async []entry[F]) {
	for _, e := range l.snapshot() {
		if e.asyncMode {
			async = append(async, e)
		} else {
			sync = append(sync, e)
		}
	}
	return sync, async
}

// toChan turns a fully-collected slice of messages into a closed,
// buffered channel, giving callers a pull-based sequence shape while
// keeping per-hook evaluation eager (see DESIGN.md).
func toChan(msgs []chat.Message) <-chan chat.Message {
	ch := make(chan chat.Message, len(msgs))
	for _, m := range msgs {
		ch <- m
	}
	close(ch)
	return ch
}

// --- Register* -------------------------------------------------------

func (r *Registry) RegisterSessionStart(name string, fn SessionStartFunc, priority int) {
	r.SessionStart.register(name, fn, priority, true, false)
}
func (r *Registry) RegisterSessionEnd(name string, fn SessionEndFunc, priority int) {
	r.SessionEnd.register(name, fn, priority, true, false)
}
func (r *Registry) RegisterTurnPre(name string, fn ManagerFunc, priority int) {
	r.TurnPre.register(name, fn, priority, true, false)
}
func (r *Registry) RegisterTurnPost(name string, fn ManagerFunc, priority int) {
	r.TurnPost.register(name, fn, priority, true, false)
}
func (r *Registry) RegisterStepPre(name string, fn ManagerFunc, priority int, opts ...Option) {
	applyAndRegister(&r.StepPre, name, fn, priority, opts)
}
func (r *Registry) RegisterStepPost(name string, fn ManagerFunc, priority int, opts ...Option) {
	applyAndRegister(&r.StepPost, name, fn, priority, opts)
}
func (r *Registry) RegisterGenerationPre(name string, fn GenerationPreFunc, priority int) {
	r.GenerationPre.register(name, fn, priority, true, false)
}
func (r *Registry) RegisterGenerationPost(name string, fn GenerationPostFunc, priority int) {
	r.GenerationPost.register(name, fn, priority, true, false)
}
func (r *Registry) RegisterMessageTransform(name string, fn MessageTransformFunc, priority int) {
	r.MessageTransform.register(name, fn, priority, true, false)
}
func (r *Registry) RegisterToolExecutePre(name string, fn ToolExecuteFunc, priority int) {
	r.ToolExecutePre.register(name, fn, priority, true, false)
}
func (r *Registry) RegisterToolExecutePost(name string, fn ToolExecuteFunc, priority int, opts ...Option) {
	applyAndRegister(&r.ToolExecutePost, name, fn, priority, opts)
}
func (r *Registry) RegisterToolTransform(name string, fn ToolTransformFunc, priority int) {
	r.ToolTransform.register(name, fn, priority, true, false)
}
func (r *Registry) RegisterFileSavePre(name string, fn FileHookFunc, priority int) {
	r.FileSavePre.register(name, fn, priority, true, false)
}
func (r *Registry) RegisterFileSavePost(name string, fn FileHookFunc, priority int) {
	r.FileSavePost.register(name, fn, priority, true, false)
}
func (r *Registry) RegisterFilePatchPre(name string, fn FileHookFunc, priority int) {
	r.FilePatchPre.register(name, fn, priority, true, false)
}
func (r *Registry) RegisterFilePatchPost(name string, fn FileHookFunc, priority int) {
	r.FilePatchPost.register(name, fn, priority, true, false)
}
func (r *Registry) RegisterLoopContinue(name string, fn LoopContinueFunc, priority int) {
	r.LoopContinue.register(name, fn, priority, true, false)
}
func (r *Registry) RegisterCacheInvalidated(name string, fn CacheInvalidatedFunc, priority int) {
	r.CacheInvalidated.register(name, fn, priority, true, false)
}
func (r *Registry) RegisterToolConfirm(name string, fn ToolConfirmFunc, priority int) {
	r.ToolConfirm.register(name, fn, priority, true, false)
}
func (r *Registry) RegisterElicit(name string, fn ElicitFunc, priority int) {
	r.Elicit.register(name, fn, priority, true, false)
}

// Option configures an optional hook registration flag: async mode
// (Async) or a disabled initial state (Disabled). Only the Register*
// methods that take opts accept them; every other hook type registers
// sync and enabled.
type Option func(*bool /*async*/, *bool /*enabled*/)

// Async marks a hook to run detached, fire-and-forget.
func Async() Option { return func(a, _ *bool) { *a = true } }

// Disabled registers the hook in a disabled state (must be Enable'd).
func Disabled() Option { return func(_, e *bool) { *e = false } }

func applyAndRegister[F any](l *typedList[F], name string, fn F, priority int, opts []Option) {
	async, enabled := false, true
	for _, o := range opts {
		o(&async, &enabled)
	}
	l.register(name, fn, priority, enabled, async)
}

// --- Unregister/Enable/Disable/Clear -----------------------------------

// Unregister removes a hook by name across every HookType (matching
// source semantics: unregister with no type scope removes from all).
func (r *Registry) Unregister(name string) {
	r.SessionStart.unregister(name)
	r.SessionEnd.unregister(name)
	r.TurnPre.unregister(name)
	r.TurnPost.unregister(name)
	r.StepPre.unregister(name)
	r.StepPost.unregister(name)
	r.GenerationPre.unregister(name)
	r.GenerationPost.unregister(name)
	r.MessageTransform.unregister(name)
	r.ToolExecutePre.unregister(name)
	r.ToolExecutePost.unregister(name)
	r.ToolTransform.unregister(name)
	r.FileSavePre.unregister(name)
	r.FileSavePost.unregister(name)
	r.FilePatchPre.unregister(name)
	r.FilePatchPost.unregister(name)
	r.LoopContinue.unregister(name)
	r.CacheInvalidated.unregister(name)
	r.ToolConfirm.unregister(name)
	r.Elicit.unregister(name)
}

// UnregisterFrom removes a hook by name, scoped to a single HookType.
func (r *Registry) UnregisterFrom(name string, t Type) {
	switch t {
	case TypeSessionStart:
		r.SessionStart.unregister(name)
	case TypeSessionEnd:
		r.SessionEnd.unregister(name)
	case TypeTurnPre:
		r.TurnPre.unregister(name)
	case TypeTurnPost:
		r.TurnPost.unregister(name)
	case TypeStepPre:
		r.StepPre.unregister(name)
	case TypeStepPost:
		r.StepPost.unregister(name)
	case TypeGenerationPre:
		r.GenerationPre.unregister(name)
	case TypeGenerationPost:
		r.GenerationPost.unregister(name)
	case TypeMessageTransform:
		r.MessageTransform.unregister(name)
	case TypeToolExecutePre:
		r.ToolExecutePre.unregister(name)
	case TypeToolExecutePost:
		r.ToolExecutePost.unregister(name)
	case TypeToolTransform:
		r.ToolTransform.unregister(name)
	case TypeFileSavePre:
		r.FileSavePre.unregister(name)
	case TypeFileSavePost:
		r.FileSavePost.unregister(name)
	case TypeFilePatchPre:
		r.FilePatchPre.unregister(name)
	case TypeFilePatchPost:
		r.FilePatchPost.unregister(name)
	case TypeLoopContinue:
		r.LoopContinue.unregister(name)
	case TypeCacheInvalidated:
		r.CacheInvalidated.unregister(name)
	case TypeToolConfirm:
		r.ToolConfirm.unregister(name)
	case TypeElicit:
		r.Elicit.unregister(name)
	}
}

// Enable/Disable toggle a hook's enabled flag across all types it is
// registered under (a name is unique per HookType, but the same name
// string could coincidentally appear in more than one type).
func (r *Registry) Enable(name string)  { r.setEnabledEverywhere(name, true) }
func (r *Registry) Disable(name string) { r.setEnabledEverywhere(name, false) }

func (r *Registry) setEnabledEverywhere(name string, enabled bool) {
	r.SessionStart.setEnabled(name, enabled)
	r.SessionEnd.setEnabled(name, enabled)
	r.TurnPre.setEnabled(name, enabled)
	r.TurnPost.setEnabled(name, enabled)
	r.StepPre.setEnabled(name, enabled)
	r.StepPost.setEnabled(name, enabled)
	r.GenerationPre.setEnabled(name, enabled)
	r.GenerationPost.setEnabled(name, enabled)
	r.MessageTransform.setEnabled(name, enabled)
	r.ToolExecutePre.setEnabled(name, enabled)
	r.ToolExecutePost.setEnabled(name, enabled)
	r.ToolTransform.setEnabled(name, enabled)
	r.FileSavePre.setEnabled(name, enabled)
	r.FileSavePost.setEnabled(name, enabled)
	r.FilePatchPre.setEnabled(name, enabled)
	r.FilePatchPost.setEnabled(name, enabled)
	r.LoopContinue.setEnabled(name, enabled)
	r.CacheInvalidated.setEnabled(name, enabled)
	r.ToolConfirm.setEnabled(name, enabled)
	r.Elicit.setEnabled(name, enabled)
}

// Clear removes every hook of the given type, or every hook of every
// type if t is empty.
func (r *Registry) Clear(t Type) {
	if t == "" {
		r.ClearAll()
		return
	}
	for _, name := range r.namesFor(t) {
		r.UnregisterFrom(name, t)
	}
}

func (r *Registry) namesFor(t Type) []string {
	var names []string
	collect := func(n string) { names = append(names, n) }
	switch t {
	case TypeSessionStart:
		for _, e := range r.SessionStart.snapshot() {
			collect(e.name)
		}
	case TypeSessionEnd:
		for _, e := range r.SessionEnd.snapshot() {
			collect(e.name)
		}
	case TypeTurnPre:
		for _, e := range r.TurnPre.snapshot() {
			collect(e.name)
		}
	case TypeTurnPost:
		for _, e := range r.TurnPost.snapshot() {
			collect(e.name)
		}
	case TypeStepPre:
		for _, e := range r.StepPre.snapshot() {
			collect(e.name)
		}
	case TypeStepPost:
		for _, e := range r.StepPost.snapshot() {
			collect(e.name)
		}
	case TypeGenerationPre:
		for _, e := range r.GenerationPre.snapshot() {
			collect(e.name)
		}
	case TypeGenerationPost:
		for _, e := range r.GenerationPost.snapshot() {
			collect(e.name)
		}
	case TypeMessageTransform:
		for _, e := range r.MessageTransform.snapshot() {
			collect(e.name)
		}
	case TypeToolExecutePre:
		for _, e := range r.ToolExecutePre.snapshot() {
			collect(e.name)
		}
	case TypeToolExecutePost:
		for _, e := range r.ToolExecutePost.snapshot() {
			collect(e.name)
		}
	case TypeToolTransform:
		for _, e := range r.ToolTransform.snapshot() {
			collect(e.name)
		}
	case TypeFileSavePre:
		for _, e := range r.FileSavePre.snapshot() {
			collect(e.name)
		}
	case TypeFileSavePost:
		for _, e := range r.FileSavePost.snapshot() {
			collect(e.name)
		}
	case TypeFilePatchPre:
		for _, e := range r.FilePatchPre.snapshot() {
			collect(e.name)
		}
	case TypeFilePatchPost:
		for _, e := range r.FilePatchPost.snapshot() {
			collect(e.name)
		}
	case TypeLoopContinue:
		for _, e := range r.LoopContinue.snapshot() {
			collect(e.name)
		}
	case TypeCacheInvalidated:
		for _, e := range r.CacheInvalidated.snapshot() {
			collect(e.name)
		}
	case TypeToolConfirm:
		for _, e := range r.ToolConfirm.snapshot() {
			collect(e.name)
		}
	case TypeElicit:
		for _, e := range r.Elicit.snapshot() {
			collect(e.name)
		}
	}
	return names
}
