// Package turnloop drives the turn/step state machine:
// TURN_STARTING -> STEP_PREP -> GENERATING -> GENERATED ->
// PARSING -> EXECUTING_TOOL(i) -> STEP_DONE, looping back to STEP_PREP
// until a step produces no runnable tool use, then TURN_DONE.
package turnloop

import (
	"context"
	"errors"
	"sort"

	"github.com/docker/cagentcore/pkg/chat"
	"github.com/docker/cagentcore/pkg/hooks"
	"github.com/docker/cagentcore/pkg/toolexec"
	"github.com/docker/cagentcore/pkg/toolregistry"
	"github.com/docker/cagentcore/pkg/tooluse"
)

// autoReplyPrompt is the synthetic user message injected in non-
// interactive mode when a step produces no runnable tool use, nudging
// the assistant to keep going or declare itself done.
const autoReplyPrompt = "Continue working on the task, or call the `complete` tool if you are finished."

// maxAutoReplies is the number of consecutive auto-reply prompts already
// injected at which the *next* tool-free message forces the turn to a
// stop instead of injecting a third, preventing an infinite idle loop.
// Two consecutive auto-replies without tool use (three consecutive
// tool-free assistant messages) raise SessionCompleteError.
const maxAutoReplies = 2

// LogStore is the subset of *logmanager.Manager the loop depends on. It
// satisfies hooks.Manager (ID, Workspace) so it can be passed directly
// wherever a hook expects one.
type LogStore interface {
	ID() string
	Workspace() string
	Messages() []chat.Message
	Append(chat.Message) error
	Transform(index int, replacement chat.Message) error
}

// GenerateFunc drives one LLM call for the current prompt. On
// cooperative cancellation it should return whatever partial assistant
// content it has (possibly an empty Message) together with an error
// wrapping context.Canceled, mirroring chat.ExecuteFunc's convention.
type GenerateFunc func(ctx context.Context, messages []chat.Message, tools []*chat.ToolSpec) (chat.Message, error)

// Options configures one Runner.
type Options struct {
	// Workspace is the filesystem path tool executions run against.
	Workspace string

	// Interactive is false for scripted/autonomous runs; it gates the
	// auto-reply mechanism and is passed through to loop.continue hooks.
	Interactive bool

	// BreakOnToolUse mirrors GPTME_BREAK_ON_TOOLUSE: only the first
	// runnable tool use per step executes when set.
	BreakOnToolUse bool

	// MaxSteps bounds the number of steps in one turn; 0 means
	// open-ended.
	MaxSteps int

	// QueuedPrompts reports how many user prompts are already queued up
	// behind this turn, consulted before auto-replying. May be nil,
	// treated as always zero.
	QueuedPrompts func() int
}

// Runner executes turns against one conversation log.
type Runner struct {
	Hooks    *hooks.Registry
	Log      LogStore
	Tools    *toolregistry.Registry
	Generate GenerateFunc
	Opts     Options
}

// NewRunner builds a Runner. The caller is responsible for having
// already appended the triggering user message to log before calling
// RunTurn.
func NewRunner(reg *hooks.Registry, log LogStore, tools *toolregistry.Registry, gen GenerateFunc, opts Options) *Runner {
	return &Runner{Hooks: reg, Log: log, Tools: tools, Generate: gen, Opts: opts}
}

// RunTurn runs TURN_STARTING through TURN_DONE once. A SessionCompleteError
// (wrapping hooks.ErrSessionComplete) is a normal, non-fatal end of turn:
// callers should stop the surrounding REPL/server loop rather than retry.
func (r *Runner) RunTurn(ctx context.Context) error {
	if err := r.fireAppend(func() (<-chan chat.Message, error) { return r.Hooks.TriggerTurnPre(ctx, r.Log) }); err != nil {
		return r.finishTurn(ctx, err)
	}

	consecutiveAutoReplies := 0

	for step := 1; r.Opts.MaxSteps == 0 || step <= r.Opts.MaxSteps; step++ {
		if err := r.fireAppend(func() (<-chan chat.Message, error) { return r.Hooks.TriggerStepPre(ctx, r.Log) }); err != nil {
			return r.finishTurn(ctx, err)
		}

		messages := r.Log.Messages()
		genPreMsgs, err := drain(r.Hooks.TriggerGenerationPre(ctx, messages, nil))
		if err != nil {
			return r.finishTurn(ctx, err)
		}
		// generation.pre messages shape this generation's prompt only;
		// they are never persisted to the log.
		prompt := make([]chat.Message, 0, len(genPreMsgs)+len(messages))
		prompt = append(prompt, genPreMsgs...)
		prompt = append(prompt, messages...)

		assistantMsg, genErr := r.Generate(ctx, prompt, r.toolSpecs())
		if genErr != nil {
			if errors.Is(genErr, context.Canceled) {
				if assistantMsg.Content != "" {
					if err := r.Log.Append(assistantMsg); err != nil {
						return err
					}
				}
				marker := chat.NewSystemMessage(toolexec.InterruptMarker)
				if err := r.Log.Append(marker); err != nil {
					return err
				}
				return r.finishTurn(ctx, nil)
			}
			return r.finishTurn(ctx, genErr)
		}

		postMsgs, err := drain(r.Hooks.TriggerGenerationPost(ctx, assistantMsg, nil))
		if err != nil {
			return r.finishTurn(ctx, err)
		}

		transformed, err := r.Hooks.TriggerMessageTransform(ctx, assistantMsg)
		if err != nil {
			return r.finishTurn(ctx, err)
		}
		if err := r.Log.Append(transformed); err != nil {
			return err
		}
		for _, m := range postMsgs {
			if err := r.Log.Append(m); err != nil {
				return err
			}
		}

		loaded := r.Tools.Snapshot()
		blockTypes := tooluse.BlockTypeMap(loaded)
		var runnable []chat.ToolUse
		for _, tu := range tooluse.ExtractAll(transformed, blockTypes) {
			if tu.IsRunnable(loaded) {
				runnable = append(runnable, tu)
			}
		}

		stoppedEarly := false
		for i, tu := range runnable {
			if r.Opts.BreakOnToolUse && i > 0 {
				break
			}
			res, err := toolexec.Execute(ctx, r.Hooks, r.Log, r.Opts.Workspace, tu, loaded[tu.Tool])
			if err != nil {
				return r.finishTurn(ctx, err)
			}
			for _, m := range res.Messages {
				if err := r.Log.Append(m); err != nil {
					return err
				}
			}
			if res.Skipped || res.Interrupted {
				stoppedEarly = true
				break
			}
		}

		if err := r.fireAppend(func() (<-chan chat.Message, error) { return r.Hooks.TriggerStepPost(ctx, r.Log) }); err != nil {
			return r.finishTurn(ctx, err)
		}

		queued := 0
		if r.Opts.QueuedPrompts != nil {
			queued = r.Opts.QueuedPrompts()
		}
		if err := r.fireAppend(func() (<-chan chat.Message, error) {
			return r.Hooks.TriggerLoopContinue(ctx, r.Log, r.Opts.Interactive, queued)
		}); err != nil {
			return r.finishTurn(ctx, err)
		}

		if len(runnable) > 0 && !stoppedEarly {
			consecutiveAutoReplies = 0
			continue
		}

		if r.Opts.Interactive || queued > 0 || stoppedEarly {
			break
		}

		if consecutiveAutoReplies == maxAutoReplies {
			return r.finishTurn(ctx, &hooks.SessionCompleteError{Reason: "auto-reply exhausted"})
		}
		consecutiveAutoReplies++
		if err := r.Log.Append(chat.NewUserMessage(autoReplyPrompt)); err != nil {
			return err
		}
	}

	return r.finishTurn(ctx, nil)
}

// finishTurn fires turn.post, persists whatever it yields, then returns
// cause if set or the turn.post hook's own error otherwise.
func (r *Runner) finishTurn(ctx context.Context, cause error) error {
	msgs, err := drain(r.Hooks.TriggerTurnPost(ctx, r.Log))
	for _, m := range msgs {
		_ = r.Log.Append(m)
	}
	if cause != nil {
		return cause
	}
	return err
}

func (r *Runner) fireAppend(trigger func() (<-chan chat.Message, error)) error {
	msgs, err := drain(trigger())
	if err != nil {
		return err
	}
	for _, m := range msgs {
		if err := r.Log.Append(m); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) toolSpecs() []*chat.ToolSpec {
	loaded := r.Tools.Snapshot()
	out := make([]*chat.ToolSpec, 0, len(loaded))
	for _, spec := range loaded {
		out = append(out, spec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
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
