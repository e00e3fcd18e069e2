package server

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"

	"github.com/docker/cagentcore/pkg/chat"
	"github.com/docker/cagentcore/pkg/confirmhooks"
	"github.com/docker/cagentcore/pkg/elicit"
	"github.com/docker/cagentcore/pkg/hooks"
	"github.com/docker/cagentcore/pkg/turnloop"
)

// subscriberBuffer bounds how many undelivered events a slow SSE client
// can accumulate before new events are dropped for it; a stalled client
// must not block the conversation's turn loop.
const subscriberBuffer = 64

// Conversation is one conversation's server-mode rendezvous state: its
// context-local hook registry, the confirmation/elicitation services
// tool.confirm and elicit hooks fall through to, and the set of
// subscribed SSE clients.
type Conversation struct {
	ID        string
	SessionID string

	Hooks     *hooks.Registry
	Confirmer *confirmhooks.ServerConfirmer
	Elicitor  *elicit.ServerElicitor

	// Runner and Log are wired in by the caller (e.g. cmd/agentcore's
	// serve command) once it has constructed a tool registry and
	// generation backend; triggering a turn is not an HTTP endpoint
	// this package exposes.
	Runner *turnloop.Runner
	Log    turnloop.LogStore

	mu          sync.Mutex
	subscribers map[chan []byte]struct{}
}

// NewConversation builds a Conversation with its own hook registry and
// server-mode confirmation/elicitation services already wired to
// broadcast tool_pending/elicit_pending events to subscribers.
func NewConversation(id string) *Conversation {
	c := &Conversation{
		ID:          id,
		SessionID:   uuid.NewString(),
		Hooks:       hooks.New(),
		Confirmer:   confirmhooks.NewServerConfirmer(),
		Elicitor:    elicit.NewServerElicitor(),
		subscribers: map[chan []byte]struct{}{},
	}
	c.Confirmer.Notify = c.notifyToolPending
	c.Elicitor.Notify = c.notifyElicitPending
	c.Confirmer.Register(c.Hooks)
	c.Elicitor.Register(c.Hooks)
	return c
}

func (c *Conversation) notifyToolPending(p *confirmhooks.PendingConfirmation) {
	c.broadcast(eventToolPending(p.ID, p.Tool, p.AutoConfirm))
}

func (c *Conversation) notifyElicitPending(p *elicit.PendingElicitation) {
	req := p.Request
	c.broadcast(eventElicitPending(p.ID, req.Type, req.Prompt, req.Choices, req.Fields, "", ""))
}

// Broadcast emits an application-level event (message_added,
// generation_started, etc.) to every subscribed SSE client. Exported so
// a turn loop driver outside this package can report progress without
// reaching into subscriber internals.
func (c *Conversation) Broadcast(e event) {
	c.broadcast(e)
}

func (c *Conversation) broadcast(e event) {
	data, err := json.Marshal(e)
	if err != nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for ch := range c.subscribers {
		select {
		case ch <- data:
		default:
			// Slow subscriber: drop the event rather than block the
			// turn loop that produced it.
		}
	}
}

// subscribe registers a new SSE client and returns its event channel
// plus an unsubscribe func the handler must call when the client
// disconnects.
func (c *Conversation) subscribe() (<-chan []byte, func()) {
	ch := make(chan []byte, subscriberBuffer)
	c.mu.Lock()
	c.subscribers[ch] = struct{}{}
	c.mu.Unlock()

	return ch, func() {
		c.mu.Lock()
		delete(c.subscribers, ch)
		c.mu.Unlock()
		close(ch)
	}
}

// EmitMessageAdded, EmitGenerationStarted, etc. are thin wrappers a turn
// loop driver calls at the matching points in the turn state machine,
// kept here so callers never construct an event payload themselves.
func (c *Conversation) EmitMessageAdded(msg chat.Message)     { c.Broadcast(eventMessageAdded(msg)) }
func (c *Conversation) EmitGenerationStarted()                { c.Broadcast(eventGenerationStarted()) }
func (c *Conversation) EmitGenerationProgress(token string)   { c.Broadcast(eventGenerationProgress(token)) }
func (c *Conversation) EmitGenerationComplete(msg chat.Message) {
	c.Broadcast(eventGenerationComplete(msg))
}
func (c *Conversation) EmitToolExecuting(toolID string) { c.Broadcast(eventToolExecuting(toolID)) }
func (c *Conversation) EmitInterrupted()                { c.Broadcast(eventInterrupted()) }
func (c *Conversation) EmitError(err error)              { c.Broadcast(eventError(err)) }
func (c *Conversation) EmitConfigChanged(config any, changedFields []string) {
	c.Broadcast(eventConfigChanged(config, changedFields))
}
