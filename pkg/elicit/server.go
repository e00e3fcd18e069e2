package elicit

import (
	"context"
	"sync"
	"time"

	"github.com/docker/cagentcore/pkg/hooks"
	"github.com/google/uuid"
)

// pendingElicitationTimeout mirrors pkg/confirmhooks's pending
// confirmation timeout; an unanswered elicitation eventually cancels
// rather than blocking the turn loop forever.
const pendingElicitationTimeout = time.Hour

// PendingElicitation is an elicit request awaiting an HTTP resume.
type PendingElicitation struct {
	ID      string
	Request hooks.ElicitationRequest

	resolveOnce sync.Once
	resultCh    chan hooks.ElicitationResponse
}

// Resolve delivers result to the waiting Hook call exactly once.
func (p *PendingElicitation) Resolve(result hooks.ElicitationResponse) {
	p.resolveOnce.Do(func() {
		p.resultCh <- result
	})
}

// ServerElicitor registers pending elicitations and waits for a matching
// HTTP resume call, the elicit-hook counterpart of
// pkg/confirmhooks.ServerConfirmer.
type ServerElicitor struct {
	// Notify is called with each new PendingElicitation as it's
	// registered, so the caller can push it over SSE. May be nil.
	Notify func(*PendingElicitation)

	mu      sync.Mutex
	pending map[string]*PendingElicitation
}

// NewServerElicitor returns a ready ServerElicitor.
func NewServerElicitor() *ServerElicitor {
	return &ServerElicitor{pending: map[string]*PendingElicitation{}}
}

// Hook implements an elicit hook function.
func (s *ServerElicitor) Hook(ctx context.Context, req hooks.ElicitationRequest) (*hooks.ElicitationResponse, error) {
	p := &PendingElicitation{
		ID:       uuid.NewString(),
		Request:  req.Resolved(),
		resultCh: make(chan hooks.ElicitationResponse, 1),
	}

	s.mu.Lock()
	s.pending[p.ID] = p
	s.mu.Unlock()
	defer s.remove(p.ID)

	if s.Notify != nil {
		s.Notify(p)
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, pendingElicitationTimeout)
	defer cancel()

	select {
	case result := <-p.resultCh:
		return &result, nil
	case <-timeoutCtx.Done():
		return &hooks.ElicitationResponse{Action: hooks.ElicitationCancelled}, nil
	}
}

func (s *ServerElicitor) remove(id string) {
	s.mu.Lock()
	delete(s.pending, id)
	s.mu.Unlock()
}

// Get returns the pending elicitation with id, or nil.
func (s *ServerElicitor) Get(id string) *PendingElicitation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending[id]
}

// Resolve looks up id and delivers result to it, reporting whether a
// matching pending elicitation was found. The record is removed in the
// same step, so a second Resolve of the same id returns false.
func (s *ServerElicitor) Resolve(id string, result hooks.ElicitationResponse) bool {
	s.mu.Lock()
	p := s.pending[id]
	delete(s.pending, id)
	s.mu.Unlock()
	if p == nil {
		return false
	}
	p.Resolve(result)
	return true
}

// Register installs hook at priority 0 on r.
func (s *ServerElicitor) Register(r *hooks.Registry) {
	r.RegisterElicit("server_elicit", s.Hook, 0)
}
