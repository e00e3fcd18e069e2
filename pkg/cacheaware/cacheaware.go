// Package cacheaware tracks prompt-cache invalidation state so other
// packages can query cache freshness or react to a cache reset, without
// the centralized cache.invalidated hook itself knowing who's listening.
//
// Grounded on gptme/hooks/cache_awareness.py's CacheState dataclass; "turns"
// below counts step.post invocations since the last invalidation (one per
// generate-and-execute step, not every message).
package cacheaware

import (
	"sync"
	"time"

	"github.com/docker/cagentcore/pkg/chat"
	"github.com/docker/cagentcore/pkg/hooks"
)

// State is the current view of the prompt cache for one conversation.
// Zero value is valid: no invalidation has happened yet.
type State struct {
	mu sync.Mutex

	LastInvalidation       time.Time
	LastInvalidationReason string
	TokensBeforeInvalidation *int
	TokensAfterInvalidation  *int
	TurnsSinceInvalidation   int
	TokensSinceInvalidation  int
	InvalidationCount        int

	subscribers []func(State)
}

// New returns a fresh, never-invalidated State.
func New() *State {
	return &State{}
}

// Subscribe registers fn to be called, synchronously, every time
// Invalidate runs. Order of subscriber invocation matches registration
// order.
func (s *State) Subscribe(fn func(State)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribers = append(s.subscribers, fn)
}

// Invalidate records a cache invalidation with the given reason and
// before/after token counts (either may be nil if unknown), resets the
// turn/token counters, and invokes every subscriber exactly once with a
// snapshot of the new state.
func (s *State) Invalidate(reason string, tokensBefore, tokensAfter *int, now time.Time) {
	s.mu.Lock()
	s.LastInvalidation = now
	s.LastInvalidationReason = reason
	s.TokensBeforeInvalidation = tokensBefore
	s.TokensAfterInvalidation = tokensAfter
	s.TurnsSinceInvalidation = 0
	s.TokensSinceInvalidation = 0
	s.InvalidationCount++
	snapshot := s.snapshotLocked()
	subs := append([]func(State){}, s.subscribers...)
	s.mu.Unlock()

	for _, fn := range subs {
		fn(snapshot)
	}
}

// RecordTurn increments the turn counter and adds an estimated token
// delta for one step since the last invalidation.
func (s *State) RecordTurn(tokensAdded int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.TurnsSinceInvalidation++
	s.TokensSinceInvalidation += tokensAdded
}

// Snapshot returns a copy of the current state, safe to read without
// holding the lock.
func (s *State) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *State) snapshotLocked() State {
	return State{
		LastInvalidation:         s.LastInvalidation,
		LastInvalidationReason:   s.LastInvalidationReason,
		TokensBeforeInvalidation: s.TokensBeforeInvalidation,
		TokensAfterInvalidation:  s.TokensAfterInvalidation,
		TurnsSinceInvalidation:   s.TurnsSinceInvalidation,
		TokensSinceInvalidation:  s.TokensSinceInvalidation,
		InvalidationCount:        s.InvalidationCount,
	}
}

// IsValid reports whether the cache has ever been invalidated. A fresh
// State (never invalidated) is considered valid.
func (s *State) IsValid() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.InvalidationCount == 0 || !s.LastInvalidation.IsZero()
}

// RegisterHooks wires s into r's step.post and cache.invalidated hooks
// so it updates itself purely by listening, instead of the turn loop or
// confirmation hooks calling it directly. The step.post hook has no
// token usage to report, so it calls RecordTurn with a zero token delta;
// TokensSinceInvalidation only grows through direct RecordTurn calls.
func (s *State) RegisterHooks(r *hooks.Registry) {
	r.RegisterStepPost("cache_awareness", func(_ hooks.Context, _ hooks.Manager) ([]chat.Message, bool, error) {
		s.RecordTurn(0)
		return nil, false, nil
	}, 0)
	r.RegisterCacheInvalidated("cache_awareness", func(_ hooks.Context, _ hooks.Manager, reason string, tokensBefore, tokensAfter *int) ([]chat.Message, bool, error) {
		s.Invalidate(reason, tokensBefore, tokensAfter, time.Now())
		return nil, false, nil
	}, 0)
}
