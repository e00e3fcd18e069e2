package hooks

import (
	"log/slog"
	"sort"
	"sync"
)

// entry is one registered callback of function type F.
type entry[F any] struct {
	name      string
	fn        F
	priority  int
	enabled   bool
	asyncMode bool
}

// typedList is a mutex-guarded, priority-sorted, name-unique list of
// callbacks of one function type: Registry below embeds one typedList
// per HookType instead of a single map[HookType][]interface{}, trading
// a reflection-based dispatch for a typed switch.
type typedList[F any] struct {
	mu      sync.Mutex
	entries []entry[F]
}

// register is idempotent on name: re-registering replaces the prior
// binding rather than appending a duplicate.
func (l *typedList[F]) register(name string, fn F, priority int, enabled, asyncMode bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	filtered := l.entries[:0:0]
	for _, e := range l.entries {
		if e.name != name {
			filtered = append(filtered, e)
		}
	}
	filtered = append(filtered, entry[F]{
		name: name, fn: fn, priority: priority, enabled: enabled, asyncMode: asyncMode,
	})
	sort.SliceStable(filtered, func(i, j int) bool {
		if filtered[i].priority != filtered[j].priority {
			return filtered[i].priority > filtered[j].priority
		}
		return filtered[i].name < filtered[j].name
	})
	l.entries = filtered
}

func (l *typedList[F]) unregister(name string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := l.entries[:0:0]
	for _, e := range l.entries {
		if e.name != name {
			out = append(out, e)
		}
	}
	l.entries = out
}

func (l *typedList[F]) setEnabled(name string, enabled bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.entries {
		if l.entries[i].name == name {
			l.entries[i].enabled = enabled
		}
	}
}

func (l *typedList[F]) clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = nil
}

// snapshot returns the enabled entries in dispatch order, safe to range
// over without holding the lock (callbacks may themselves register new
// hooks).
func (l *typedList[F]) snapshot() []entry[F] {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]entry[F], 0, len(l.entries))
	for _, e := range l.entries {
		if e.enabled {
			out = append(out, e)
		}
	}
	return out
}

// count returns the total number of registered entries regardless of
// enabled state, used by tests asserting name-uniqueness.
func (l *typedList[F]) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Registry is a context-local map from HookType to its ordered list of
// hooks. Each logical execution context (a CLI session, a server
// request-handling context) owns its own Registry; see pkg/ctxstore for
// how a context acquires one.
type Registry struct {
	SessionStart     typedList[SessionStartFunc]
	SessionEnd       typedList[SessionEndFunc]
	TurnPre          typedList[ManagerFunc]
	TurnPost         typedList[ManagerFunc]
	StepPre          typedList[ManagerFunc]
	StepPost         typedList[ManagerFunc]
	GenerationPre    typedList[GenerationPreFunc]
	GenerationPost   typedList[GenerationPostFunc]
	MessageTransform typedList[MessageTransformFunc]
	ToolExecutePre   typedList[ToolExecuteFunc]
	ToolExecutePost  typedList[ToolExecuteFunc]
	ToolTransform    typedList[ToolTransformFunc]
	FileSavePre      typedList[FileHookFunc]
	FileSavePost     typedList[FileHookFunc]
	FilePatchPre     typedList[FileHookFunc]
	FilePatchPost    typedList[FileHookFunc]
	LoopContinue     typedList[LoopContinueFunc]
	CacheInvalidated typedList[CacheInvalidatedFunc]
	ToolConfirm      typedList[ToolConfirmFunc]
	Elicit           typedList[ElicitFunc]
}

// New creates an empty Registry. Each execution context constructs its
// own — hooks never leak across sessions by sharing a Registry.
func New() *Registry {
	return &Registry{}
}

// Counts returns, per HookType, how many hooks (enabled or not) are
// registered. Exposed mainly for tests and diagnostics.
func (r *Registry) Counts() map[Type]int {
	return map[Type]int{
		TypeSessionStart:     r.SessionStart.count(),
		TypeSessionEnd:       r.SessionEnd.count(),
		TypeTurnPre:          r.TurnPre.count(),
		TypeTurnPost:         r.TurnPost.count(),
		TypeStepPre:          r.StepPre.count(),
		TypeStepPost:         r.StepPost.count(),
		TypeGenerationPre:    r.GenerationPre.count(),
		TypeGenerationPost:   r.GenerationPost.count(),
		TypeMessageTransform: r.MessageTransform.count(),
		TypeToolExecutePre:   r.ToolExecutePre.count(),
		TypeToolExecutePost:  r.ToolExecutePost.count(),
		TypeToolTransform:    r.ToolTransform.count(),
		TypeFileSavePre:      r.FileSavePre.count(),
		TypeFileSavePost:     r.FileSavePost.count(),
		TypeFilePatchPre:     r.FilePatchPre.count(),
		TypeFilePatchPost:    r.FilePatchPost.count(),
		TypeLoopContinue:     r.LoopContinue.count(),
		TypeCacheInvalidated: r.CacheInvalidated.count(),
		TypeToolConfirm:      r.ToolConfirm.count(),
		TypeElicit:           r.Elicit.count(),
	}
}

// ClearAll removes every hook of every type. Clear with an empty type
// delegates to it.
func (r *Registry) ClearAll() {
	r.SessionStart.clear()
	r.SessionEnd.clear()
	r.TurnPre.clear()
	r.TurnPost.clear()
	r.StepPre.clear()
	r.StepPost.clear()
	r.GenerationPre.clear()
	r.GenerationPost.clear()
	r.MessageTransform.clear()
	r.ToolExecutePre.clear()
	r.ToolExecutePost.clear()
	r.ToolTransform.clear()
	r.FileSavePre.clear()
	r.FileSavePost.clear()
	r.FilePatchPre.clear()
	r.FilePatchPost.clear()
	r.LoopContinue.clear()
	r.CacheInvalidated.clear()
	r.ToolConfirm.clear()
	r.Elicit.clear()
}

// logSlow warns when a hook callback takes more than the threshold,
// mirroring the source's 5-second slow-hook warning.
func logSlow(name string, took float64) {
	if took > 5.0 {
		slog.Warn("hook is taking a long time", "hook", name, "seconds", took)
	}
}
