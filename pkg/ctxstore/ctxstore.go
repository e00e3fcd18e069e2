// Package ctxstore carries per-execution-context state (current
// conversation id, current session id, the active hook registry) as an
// explicit value threaded through context.Context.
//
// Go has no ContextVar/thread-local equivalent, and every call already
// threads a context.Context through, so a Scope value stored under one
// context.Context key is the idiomatic shape: explicit over implicit, no
// goroutine-local magic.
package ctxstore

import (
	"context"

	"github.com/docker/cagentcore/pkg/hooks"
)

// Scope is the bundle of identifiers and registries a running turn needs
// without passing five separate parameters down every call.
type Scope struct {
	ConversationID string
	SessionID      string
	Hooks          *hooks.Registry
}

type scopeKey struct{}

// With returns a context carrying scope, replacing any Scope already
// present.
func With(ctx context.Context, scope Scope) context.Context {
	return context.WithValue(ctx, scopeKey{}, scope)
}

// From retrieves the Scope carried by ctx. ok is false if none was set
// (e.g. a background goroutine that lost the request context, or a CLI
// run outside server mode) — callers should treat that as "not in server
// context" the way server_confirm.py's ContextVar default-to-None does.
func From(ctx context.Context) (Scope, bool) {
	s, ok := ctx.Value(scopeKey{}).(Scope)
	return s, ok
}

// HooksOf returns the Scope's Registry, or a fresh empty one if no Scope
// is present, so callers never need a nil check before registering or
// triggering hooks.
func HooksOf(ctx context.Context) *hooks.Registry {
	if s, ok := From(ctx); ok && s.Hooks != nil {
		return s.Hooks
	}
	return hooks.New()
}

// ConversationID returns the scope's conversation id, or "" if absent.
func ConversationID(ctx context.Context) string {
	s, ok := From(ctx)
	if !ok {
		return ""
	}
	return s.ConversationID
}

// SessionID returns the scope's session id, or "" if absent.
func SessionID(ctx context.Context) string {
	s, ok := From(ctx)
	if !ok {
		return ""
	}
	return s.SessionID
}
