package confirmhooks

import (
	"strings"

	"github.com/docker/cagentcore/pkg/chat"
	"github.com/docker/cagentcore/pkg/hooks"
)

// readOnlyShellCommands are shell executables with no side effects worth
// prompting for. Matched against the first whitespace-separated token of
// a shell tool's command, grounded on gptme's shell safe-command
// classification (is_denylisted's inverse: git status/diff/log, ls, cat,
// grep and friends are treated as safe).
var readOnlyShellCommands = map[string]bool{
	"ls": true, "cat": true, "grep": true, "find": true, "pwd": true,
	"echo": true, "head": true, "tail": true, "wc": true, "which": true,
	"file": true, "diff": true, "tree": true,
}

var readOnlyGitSubcommands = map[string]bool{
	"status": true, "diff": true, "log": true, "show": true, "branch": true,
}

// ReadOnlyAllowHook auto-accepts shell tool uses whose command is a known
// read-only program (or a read-only git subcommand), and falls through
// (returns nil, nil) for everything else so the next tool.confirm hook
// in the chain decides.
func ReadOnlyAllowHook(ctx hooks.Context, tu chat.ToolUse, preview string, defaultConfirm bool) (*hooks.ConfirmationResult, error) {
	if tu.Tool != "shell" {
		return nil, nil
	}

	cmd := tu.Content
	if cmd == "" && len(tu.Args) > 0 {
		cmd = tu.Args[0]
	}
	fields := strings.Fields(strings.TrimSpace(cmd))
	if len(fields) == 0 {
		return nil, nil
	}

	program := fields[0]
	if program == "git" && len(fields) > 1 && readOnlyGitSubcommands[fields[1]] {
		return hooks.Accept(), nil
	}
	if readOnlyShellCommands[program] {
		return hooks.Accept(), nil
	}
	return nil, nil
}

// RegisterReadOnlyAllow installs ReadOnlyAllowHook at priority 10, above
// the interactive/auto hooks so known-safe commands skip prompting
// entirely.
func RegisterReadOnlyAllow(r *hooks.Registry) {
	r.RegisterToolConfirm("readonly_allow", ReadOnlyAllowHook, 10)
}
