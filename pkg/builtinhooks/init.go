package builtinhooks

import (
	"io"
	"log/slog"

	"github.com/docker/cagentcore/pkg/cacheaware"
	"github.com/docker/cagentcore/pkg/confirmhooks"
	"github.com/docker/cagentcore/pkg/elicit"
	"github.com/docker/cagentcore/pkg/hooks"
)

// Options selects which built-in hooks Init registers and which
// mode-specific confirmation/elicitation hooks it installs.
type Options struct {
	// Allowlist replaces the default hook set when non-nil (the
	// HOOK_ALLOWLIST environment variable, already split by the config
	// layer). Mode-specific confirmation hooks are chosen by the flags
	// below regardless of the allowlist.
	Allowlist []string

	// Interactive marks a CLI session reading confirmations from a
	// terminal. Server marks a server-handled context whose confirm/
	// elicit hooks belong to the owning Conversation (pkg/server), so
	// Init registers none here. NoConfirm short-circuits both: every
	// tool call is auto-approved.
	Interactive bool
	Server      bool
	NoConfirm   bool

	// ContextTree enables the session.start workspace-listing hook
	// (the GPTME_CONTEXT_TREE knob). Flag-driven rather than part of
	// the allowlisted defaults, like the mode-specific hooks.
	ContextTree bool

	// In/Out back the CLI confirmation and elicitation prompts; only
	// consulted when Interactive is set.
	In  io.Reader
	Out io.Writer
}

// Result exposes the stateful components Init constructed so callers can
// query them after registration.
type Result struct {
	Cache *cacheaware.State
}

// defaultHooks is the hook set registered when no allowlist is given.
var defaultHooks = []string{
	"cache_awareness",
	"cwd_tracking",
	"markdown_validation",
	"readonly_allow",
	"time_awareness",
}

// Init registers the built-in hooks for one execution context, honoring
// the allowlist, then installs the confirmation/elicitation hooks the
// mode flags call for. An unknown name in the allowlist is logged and
// skipped rather than aborting initialization; Init never fails.
//
// Each context (a CLI session, a server request-handling context) calls
// this against its own Registry — hook state never crosses contexts.
func Init(r *hooks.Registry, opts Options) *Result {
	res := &Result{Cache: cacheaware.New()}

	registrars := map[string]func(){
		"cache_awareness":     func() { res.Cache.RegisterHooks(r) },
		"cwd_tracking":        func() { NewCwdTracker().Register(r) },
		"markdown_validation": func() { RegisterMarkdownValidation(r) },
		"readonly_allow":      func() { confirmhooks.RegisterReadOnlyAllow(r) },
		"time_awareness":      func() { NewTimeAwareness().Register(r) },
	}

	names := opts.Allowlist
	if names == nil {
		names = defaultHooks
	}
	for _, name := range names {
		register, ok := registrars[name]
		if !ok {
			slog.Warn("unknown hook in allowlist, skipping", "hook", name)
			continue
		}
		register()
		slog.Debug("registered hook", "hook", name)
	}

	if opts.ContextTree {
		RegisterContextTree(r)
	}

	switch {
	case opts.NoConfirm:
		confirmhooks.RegisterAuto(r)
	case opts.Server:
		// The Conversation owning the pending-request registries wires
		// its own server confirm/elicit hooks (server.NewConversation).
	case opts.Interactive:
		(&confirmhooks.CLIConfirmer{In: opts.In, Out: opts.Out}).Register(r)
		(&elicit.CLIElicitor{In: opts.In, Out: opts.Out}).Register(r)
	}

	return res
}
