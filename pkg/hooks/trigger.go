package hooks

import "github.com/docker/cagentcore/pkg/chat"

// Trigger* methods walk one HookType's entries in priority order,
// returning the messages yielded before either a hook stops propagation
// or every hook has run. Each sync hook runs inline; async hooks run
// detached and their results never reach the caller (see dispatch.go).

func (r *Registry) TriggerSessionStart(ctx Context, logdir, workspace string, initial []chat.Message) (<-chan chat.Message, error) {
	sync, async := split(&r.SessionStart)
	msgs, err := runSync(TypeSessionStart, sync, func(fn SessionStartFunc) ([]chat.Message, bool, error) {
		return fn(ctx, logdir, workspace, initial)
	})
	runAsync(TypeSessionStart, async, func(fn SessionStartFunc) ([]chat.Message, bool, error) {
		return fn(ctx, logdir, workspace, initial)
	})
	return toChan(msgs), err
}

func (r *Registry) TriggerSessionEnd(ctx Context, mgr Manager) (<-chan chat.Message, error) {
	sync, async := split(&r.SessionEnd)
	msgs, err := runSync(TypeSessionEnd, sync, func(fn SessionEndFunc) ([]chat.Message, bool, error) {
		return fn(ctx, mgr)
	})
	runAsync(TypeSessionEnd, async, func(fn SessionEndFunc) ([]chat.Message, bool, error) {
		return fn(ctx, mgr)
	})
	return toChan(msgs), err
}

func (r *Registry) TriggerTurnPre(ctx Context, mgr Manager) (<-chan chat.Message, error) {
	return triggerManagerFunc(ctx, &r.TurnPre, TypeTurnPre, mgr)
}

func (r *Registry) TriggerTurnPost(ctx Context, mgr Manager) (<-chan chat.Message, error) {
	return triggerManagerFunc(ctx, &r.TurnPost, TypeTurnPost, mgr)
}

func (r *Registry) TriggerStepPre(ctx Context, mgr Manager) (<-chan chat.Message, error) {
	return triggerManagerFunc(ctx, &r.StepPre, TypeStepPre, mgr)
}

func (r *Registry) TriggerStepPost(ctx Context, mgr Manager) (<-chan chat.Message, error) {
	return triggerManagerFunc(ctx, &r.StepPost, TypeStepPost, mgr)
}

func triggerManagerFunc(ctx Context, l *typedList[ManagerFunc], t Type, mgr Manager) (<-chan chat.Message, error) {
	sync, async := split(l)
	invoke := func(fn ManagerFunc) ([]chat.Message, bool, error) { return fn(ctx, mgr) }
	msgs, err := runSync(t, sync, invoke)
	runAsync(t, async, invoke)
	return toChan(msgs), err
}

func (r *Registry) TriggerGenerationPre(ctx Context, messages []chat.Message, kwargs map[string]any) (<-chan chat.Message, error) {
	sync, async := split(&r.GenerationPre)
	invoke := func(fn GenerationPreFunc) ([]chat.Message, bool, error) { return fn(ctx, messages, kwargs) }
	msgs, err := runSync(TypeGenerationPre, sync, invoke)
	runAsync(TypeGenerationPre, async, invoke)
	return toChan(msgs), err
}

func (r *Registry) TriggerGenerationPost(ctx Context, message chat.Message, kwargs map[string]any) (<-chan chat.Message, error) {
	sync, async := split(&r.GenerationPost)
	invoke := func(fn GenerationPostFunc) ([]chat.Message, bool, error) { return fn(ctx, message, kwargs) }
	msgs, err := runSync(TypeGenerationPost, sync, invoke)
	runAsync(TypeGenerationPost, async, invoke)
	return toChan(msgs), err
}

// TriggerMessageTransform runs every registered transform in priority
// order, threading the (possibly replaced) message through each. Unlike
// the other triggers this does not collect a message stream: each hook
// returns the message that replaces the input for the next hook and for
// the log.
func (r *Registry) TriggerMessageTransform(ctx Context, msg chat.Message) (chat.Message, error) {
	for _, e := range r.MessageTransform.snapshot() {
		out, err := e.fn(ctx, msg)
		if err != nil {
			return msg, err
		}
		msg = out
	}
	return msg, nil
}

// TriggerToolTransform threads the ToolUse through every registered
// transform in priority order, returning the (possibly rewritten)
// ToolUse that confirmation and execution should see. Like message
// transforms, each hook's output feeds the next.
func (r *Registry) TriggerToolTransform(ctx Context, tu chat.ToolUse) (chat.ToolUse, error) {
	for _, e := range r.ToolTransform.snapshot() {
		out, err := e.fn(ctx, tu)
		if err != nil {
			return tu, err
		}
		tu = out
	}
	return tu, nil
}

func (r *Registry) TriggerToolExecutePre(ctx Context, mgr Manager, workspace string, tu chat.ToolUse) (<-chan chat.Message, error) {
	return triggerToolExecute(ctx, &r.ToolExecutePre, TypeToolExecutePre, mgr, workspace, tu)
}

func (r *Registry) TriggerToolExecutePost(ctx Context, mgr Manager, workspace string, tu chat.ToolUse) (<-chan chat.Message, error) {
	return triggerToolExecute(ctx, &r.ToolExecutePost, TypeToolExecutePost, mgr, workspace, tu)
}

func triggerToolExecute(ctx Context, l *typedList[ToolExecuteFunc], t Type, mgr Manager, workspace string, tu chat.ToolUse) (<-chan chat.Message, error) {
	sync, async := split(l)
	invoke := func(fn ToolExecuteFunc) ([]chat.Message, bool, error) { return fn(ctx, mgr, workspace, tu) }
	msgs, err := runSync(t, sync, invoke)
	runAsync(t, async, invoke)
	return toChan(msgs), err
}

func (r *Registry) TriggerFileSavePre(ctx Context, mgr Manager, workspace, path, content string) (<-chan chat.Message, error) {
	return triggerFileHook(ctx, &r.FileSavePre, TypeFileSavePre, mgr, workspace, path, content, false)
}

func (r *Registry) TriggerFileSavePost(ctx Context, mgr Manager, workspace, path, content string, created bool) (<-chan chat.Message, error) {
	return triggerFileHook(ctx, &r.FileSavePost, TypeFileSavePost, mgr, workspace, path, content, created)
}

func (r *Registry) TriggerFilePatchPre(ctx Context, mgr Manager, workspace, path, content string) (<-chan chat.Message, error) {
	return triggerFileHook(ctx, &r.FilePatchPre, TypeFilePatchPre, mgr, workspace, path, content, false)
}

func (r *Registry) TriggerFilePatchPost(ctx Context, mgr Manager, workspace, path, content string, created bool) (<-chan chat.Message, error) {
	return triggerFileHook(ctx, &r.FilePatchPost, TypeFilePatchPost, mgr, workspace, path, content, created)
}

func triggerFileHook(ctx Context, l *typedList[FileHookFunc], t Type, mgr Manager, workspace, path, content string, created bool) (<-chan chat.Message, error) {
	sync, async := split(l)
	invoke := func(fn FileHookFunc) ([]chat.Message, bool, error) {
		return fn(ctx, mgr, workspace, path, content, created)
	}
	msgs, err := runSync(t, sync, invoke)
	runAsync(t, async, invoke)
	return toChan(msgs), err
}

func (r *Registry) TriggerLoopContinue(ctx Context, mgr Manager, interactive bool, queuedPrompts int) (<-chan chat.Message, error) {
	sync, async := split(&r.LoopContinue)
	invoke := func(fn LoopContinueFunc) ([]chat.Message, bool, error) {
		return fn(ctx, mgr, interactive, queuedPrompts)
	}
	msgs, err := runSync(TypeLoopContinue, sync, invoke)
	runAsync(TypeLoopContinue, async, invoke)
	return toChan(msgs), err
}

func (r *Registry) TriggerCacheInvalidated(ctx Context, mgr Manager, reason string, tokensBefore, tokensAfter *int) (<-chan chat.Message, error) {
	sync, async := split(&r.CacheInvalidated)
	invoke := func(fn CacheInvalidatedFunc) ([]chat.Message, bool, error) {
		return fn(ctx, mgr, reason, tokensBefore, tokensAfter)
	}
	msgs, err := runSync(TypeCacheInvalidated, sync, invoke)
	runAsync(TypeCacheInvalidated, async, invoke)
	return toChan(msgs), err
}

// TriggerToolConfirm asks each registered tool.confirm hook in priority
// order until one returns a non-nil result ("first non-nil wins", spec
// §4.3's permission precedence chain is implemented as a stack of these
// hooks: permissions config at priority 20, then the read-only allow-list
// at 10, then the interactive fallback registered at lowest priority).
func (r *Registry) TriggerToolConfirm(ctx Context, tu chat.ToolUse, preview string, defaultConfirm bool) (*ConfirmationResult, error) {
	for _, e := range r.ToolConfirm.snapshot() {
		res, err := e.fn(ctx, tu, preview, defaultConfirm)
		if err != nil {
			return nil, err
		}
		if res != nil {
			return res, nil
		}
	}
	if defaultConfirm {
		return Accept(), nil
	}
	return Skip("no confirmation hook registered"), nil
}

// TriggerElicit asks each registered elicit hook in priority order until
// one returns a non-nil response.
func (r *Registry) TriggerElicit(ctx Context, req ElicitationRequest) (*ElicitationResponse, error) {
	req = req.Resolved()
	for _, e := range r.Elicit.snapshot() {
		res, err := e.fn(ctx, req)
		if err != nil {
			return nil, err
		}
		if res != nil {
			return res, nil
		}
	}
	return &ElicitationResponse{Action: ElicitationCancelled}, nil
}
