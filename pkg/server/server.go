// Package server implements the server-mode rendezvous: a per-conversation
// SSE event stream, and the tool/confirm and elicit/respond resume
// endpoints a remote client uses to answer a pending confirmation or
// elicitation raised inside the turn loop's in-process worker.
//
// Conversation lifecycle (creation, step-triggering) is explicitly out
// of scope here — the caller constructs a Conversation (wiring its own
// turn loop, tool registry, and generation backend, none of which this
// package knows about) and calls Server.Add; this package only
// rendezvouses with whichever conversations are registered.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/docker/cagentcore/pkg/hooks"
)

// pingInterval keeps idle SSE connections (and any intermediate proxy)
// from timing out while a run holds the connection open.
const pingInterval = 25 * time.Second

// Server is the HTTP front-end for server-mode rendezvous. It owns no
// generation or tool-execution logic itself; it only registers
// Conversations and answers their pending confirmations/elicitations.
type Server struct {
	e *echo.Echo

	mu            sync.RWMutex
	conversations map[string]*Conversation
}

// Opt configures a Server at construction using the functional-options
// pattern.
type Opt func(*Server)

// New builds a Server with CORS and request logging middleware.
func New(opts ...Opt) *Server {
	e := echo.New()
	e.Use(middleware.CORS())
	e.Use(middleware.Logger())

	s := &Server{
		e:             e,
		conversations: make(map[string]*Conversation),
	}
	for _, opt := range opts {
		opt(s)
	}

	group := e.Group("/conversations")
	group.GET("/:id/events", s.handleEvents)
	group.POST("/:id/tool/confirm", s.handleToolConfirm)
	group.POST("/:id/elicit/respond", s.handleElicitRespond)

	return s
}

// Add registers conv so its SSE stream and resume endpoints become
// reachable. Re-adding the same ID replaces the prior Conversation.
func (s *Server) Add(conv *Conversation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conversations[conv.ID] = conv
}

// Remove unregisters a conversation, so later requests for its id get a
// 404. SSE streams already open on it are not closed by Remove.
func (s *Server) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conversations, id)
}

// Get returns the registered conversation with id, or nil.
func (s *Server) Get(id string) *Conversation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.conversations[id]
}

// Serve runs the HTTP server on ln until ctx is cancelled or the
// listener is closed.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	httpSrv := &http.Server{Handler: s.e}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpSrv.Shutdown(shutdownCtx)
	}()

	if err := httpSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server: serve: %w", err)
	}
	return nil
}

func (s *Server) conversationOr404(c echo.Context) (*Conversation, error) {
	id := c.Param("id")
	conv := s.Get(id)
	if conv == nil {
		return nil, c.JSON(http.StatusNotFound, map[string]string{"error": fmt.Sprintf("unknown conversation %q", id)})
	}
	return conv, nil
}

// handleEvents streams conv's events as text/event-stream, starting with
// a connected event and a periodic ping to keep the connection alive.
func (s *Server) handleEvents(c echo.Context) error {
	conv, errResp := s.conversationOr404(c)
	if conv == nil {
		return errResp
	}

	resp := c.Response()
	resp.Header().Set("Content-Type", "text/event-stream")
	resp.Header().Set("Cache-Control", "no-cache")
	resp.Header().Set("Connection", "keep-alive")
	resp.WriteHeader(http.StatusOK)

	ch, unsubscribe := conv.subscribe()
	defer unsubscribe()

	if err := writeSSE(resp, eventConnected(conv.SessionID)); err != nil {
		return nil
	}
	resp.Flush()

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	ctx := c.Request().Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case data, ok := <-ch:
			if !ok {
				return nil
			}
			if _, err := resp.Write(sseFrame(data)); err != nil {
				return nil
			}
			resp.Flush()
		case <-ticker.C:
			if err := writeSSE(resp, eventPing()); err != nil {
				return nil
			}
			resp.Flush()
		}
	}
}

type toolConfirmRequest struct {
	SessionID     string `json:"session_id"`
	ToolID        string `json:"tool_id"`
	Action        string `json:"action"`
	EditedContent string `json:"edited_content"`
}

// handleToolConfirm implements POST /conversations/{id}/tool/confirm.
func (s *Server) handleToolConfirm(c echo.Context) error {
	conv, errResp := s.conversationOr404(c)
	if conv == nil {
		return errResp
	}

	var req toolConfirmRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	var result hooks.ConfirmationResult
	switch req.Action {
	case "confirm":
		result = hooks.ConfirmationResult{Action: hooks.ConfirmActionAccept}
	case "skip":
		result = hooks.ConfirmationResult{Action: hooks.ConfirmActionSkip}
	case "edit":
		result = hooks.ConfirmationResult{Action: hooks.ConfirmActionEdit, EditedContent: req.EditedContent}
	default:
		return c.JSON(http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("unknown action %q", req.Action)})
	}

	if !conv.Confirmer.Resolve(req.ToolID, result) {
		return c.JSON(http.StatusNotFound, map[string]string{"error": fmt.Sprintf("unknown tool_id %q", req.ToolID)})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

type elicitRespondRequest struct {
	ElicitID string   `json:"elicit_id"`
	Action   string   `json:"action"`
	Value    string   `json:"value"`
	Values   []string `json:"values"`
}

// handleElicitRespond implements POST /conversations/{id}/elicit/respond.
func (s *Server) handleElicitRespond(c echo.Context) error {
	conv, errResp := s.conversationOr404(c)
	if conv == nil {
		return errResp
	}

	var req elicitRespondRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	var action hooks.ElicitationAction
	switch req.Action {
	case "accept":
		action = hooks.ElicitationAccepted
	case "decline":
		action = hooks.ElicitationDeclined
	case "cancel":
		action = hooks.ElicitationCancelled
	default:
		return c.JSON(http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("unknown action %q", req.Action)})
	}

	result := hooks.ElicitationResponse{Action: action, Value: req.Value, Values: req.Values}
	if !conv.Elicitor.Resolve(req.ElicitID, result) {
		return c.JSON(http.StatusNotFound, map[string]string{"error": fmt.Sprintf("unknown elicit_id %q", req.ElicitID)})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
