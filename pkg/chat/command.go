package chat

import "context"

// CommandContext carries everything a slash-command handler receives:
// the whitespace-split arguments after the command name, the raw
// argument string, and a confirm callback for destructive commands.
type CommandContext struct {
	Args     []string
	FullArgs string
	Confirm  ConfirmFunc
}

// CommandFunc handles one slash-command invocation, returning messages
// to append to the conversation (may be empty).
type CommandFunc func(ctx context.Context, cc CommandContext) ([]Message, error)

// Command is a REPL slash-command a tool declares alongside its spec.
// Commands are registered with the loaded toolchain's command registry
// at tool-initialization time; the CLI front-end dispatches `/name args`
// lines against that registry.
type Command struct {
	Name        string
	Aliases     []string
	Description string
	Run         CommandFunc
}
