package confirmhooks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/docker/cagentcore/pkg/chat"
	"github.com/docker/cagentcore/pkg/hooks"
	"github.com/google/uuid"
)

// pendingConfirmationTimeout bounds how long a server-mode confirmation
// waits for an HTTP resume before it is auto-skipped, mirroring gptme's
// threading.Event.wait(timeout=3600).
const pendingConfirmationTimeout = time.Hour

// PendingConfirmation is a tool.confirm request awaiting an HTTP resume.
type PendingConfirmation struct {
	ID      string
	Tool    chat.ToolUse
	Preview string

	// AutoConfirm is set when the process-wide auto-confirm counter
	// decided this call without a round trip; the record still exists
	// only long enough for Notify to announce it for UI visibility.
	AutoConfirm bool

	resolveOnce sync.Once
	resultCh    chan hooks.ConfirmationResult
}

// Resolve delivers result to the waiting Hook call. Only the first call
// has any effect; later calls are no-ops, guaranteeing each pending
// confirmation resolves exactly once.
func (p *PendingConfirmation) Resolve(result hooks.ConfirmationResult) {
	p.resolveOnce.Do(func() {
		p.resultCh <- result
	})
}

// ServerConfirmer registers pending confirmations and waits for a matching
// HTTP resume call, emitting an event via Notify so a server can forward
// it to connected SSE clients.
type ServerConfirmer struct {
	// Notify is called with each new PendingConfirmation as it's
	// registered, so the caller can push it over SSE. May be nil.
	Notify func(*PendingConfirmation)

	mu      sync.Mutex
	pending map[string]*PendingConfirmation
}

// NewServerConfirmer returns a ready ServerConfirmer.
func NewServerConfirmer() *ServerConfirmer {
	return &ServerConfirmer{pending: map[string]*PendingConfirmation{}}
}

// Hook implements hooks.ToolConfirmFunc.
func (s *ServerConfirmer) Hook(ctx hooks.Context, tu chat.ToolUse, preview string, defaultConfirm bool) (*hooks.ConfirmationResult, error) {
	if shouldAuto, _ := CheckAutoConfirm(); shouldAuto {
		if s.Notify != nil {
			s.Notify(&PendingConfirmation{ID: uuid.NewString(), Tool: tu, Preview: preview, AutoConfirm: true})
		}
		return hooks.Accept(), nil
	}

	p := &PendingConfirmation{
		ID:       uuid.NewString(),
		Tool:     tu,
		Preview:  preview,
		resultCh: make(chan hooks.ConfirmationResult, 1),
	}

	s.mu.Lock()
	s.pending[p.ID] = p
	s.mu.Unlock()
	defer s.remove(p.ID)

	if s.Notify != nil {
		s.Notify(p)
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, pendingConfirmationTimeout)
	defer cancel()

	select {
	case result := <-p.resultCh:
		return &result, nil
	case <-timeoutCtx.Done():
		return hooks.Skip(fmt.Sprintf("confirmation %s timed out after %s", p.ID, pendingConfirmationTimeout)), nil
	}
}

func (s *ServerConfirmer) remove(id string) {
	s.mu.Lock()
	delete(s.pending, id)
	s.mu.Unlock()
}

// Get returns the pending confirmation with id, or nil if none is
// waiting (already resolved, timed out, or unknown).
func (s *ServerConfirmer) Get(id string) *PendingConfirmation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending[id]
}

// Resolve looks up id and delivers result to it, reporting whether a
// matching pending confirmation was found. The record is removed in the
// same step, so a second Resolve of the same id returns false.
func (s *ServerConfirmer) Resolve(id string, result hooks.ConfirmationResult) bool {
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
func (s *ServerConfirmer) Register(r *hooks.Registry) {
	r.RegisterToolConfirm("server_confirm", s.Hook, 0)
}
