// Package mcpproxy connects to an external MCP (Model Context Protocol)
// server over stdio and exposes each tool it advertises as a
// chat.ToolSpec whose Execute forwards the call to that server — the
// "proxy ToolSpec" spec.md §4.3 "Tool discovery" describes ("MCP servers
// (if enabled) contribute proxy ToolSpecs whose execute forwards to the
// corresponding MCP server and which are marked is_mcp=true").
//
// Unlike the built-in tools under toolregistry's process-wide catalog,
// an MCP server is a runtime configuration concern (a command to start,
// not a compile-time registration), so proxy specs are handed to a
// caller's toolregistry.Registry directly via AddTools rather than
// toolregistry.Register's init()-time catalog.
package mcpproxy

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/docker/cagentcore/pkg/chat"
)

// Config names the stdio MCP server to launch.
type Config struct {
	// Name identifies this server for logging and tool-name prefixing.
	Name string `yaml:"name"`
	// Command is the executable to run as the MCP server.
	Command string `yaml:"command"`
	// Args are passed to Command.
	Args []string `yaml:"args,omitempty"`
	// Env is appended to the spawned process's environment.
	Env []string `yaml:"env,omitempty"`
}

// Server is a live connection to one stdio MCP server.
type Server struct {
	cfg Config

	mu     sync.Mutex
	client *client.Client
}

// Connect launches the MCP server, performs the protocol handshake, lists
// its tools, and returns one proxy chat.ToolSpec per advertised tool.
// The connection is kept open for the lifetime of the returned specs;
// call Close when the owning conversation tears down.
func Connect(ctx context.Context, cfg Config) (*Server, []*chat.ToolSpec, error) {
	mcpClient, err := client.NewStdioMCPClient(cfg.Command, cfg.Env, cfg.Args...)
	if err != nil {
		return nil, nil, fmt.Errorf("mcpproxy: create client for %q: %w", cfg.Name, err)
	}
	if err := mcpClient.Start(ctx); err != nil {
		return nil, nil, fmt.Errorf("mcpproxy: start %q: %w", cfg.Name, err)
	}

	initReq := mcp.InitializeRequest{}
	initReq.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initReq.Params.ClientInfo = mcp.Implementation{Name: "cagentcore", Version: "0.1.0"}
	if _, err := mcpClient.Initialize(ctx, initReq); err != nil {
		mcpClient.Close()
		return nil, nil, fmt.Errorf("mcpproxy: initialize %q: %w", cfg.Name, err)
	}

	listResp, err := mcpClient.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		mcpClient.Close()
		return nil, nil, fmt.Errorf("mcpproxy: list tools on %q: %w", cfg.Name, err)
	}

	srv := &Server{cfg: cfg, client: mcpClient}

	specs := make([]*chat.ToolSpec, 0, len(listResp.Tools))
	for i := range listResp.Tools {
		t := listResp.Tools[i]
		specs = append(specs, &chat.ToolSpec{
			Name:        qualifiedName(cfg.Name, t.Name),
			Description: t.Description,
			IsMCP:       true,
			Execute:     srv.executeFunc(t.Name),
		})
	}

	slog.Info("mcpproxy: connected", "server", cfg.Name, "tools", len(specs))
	return srv, specs, nil
}

// qualifiedName prefixes a remote tool name with its server name so two
// servers can each expose a tool called e.g. "search" without colliding
// in one Registry's flat namespace.
func qualifiedName(server, tool string) string {
	if server == "" {
		return tool
	}
	return server + "_" + tool
}

// executeFunc builds the chat.ExecuteFunc that forwards a call to
// remoteName on this server. kwargs become the JSON object sent as the
// tool's input arguments; content, if non-empty and kwargs is empty, is
// parsed as a JSON object (the form a fenced-code-block invocation would
// carry its arguments in).
func (s *Server) executeFunc(remoteName string) chat.ExecuteFunc {
	return func(ctx context.Context, content string, _ []string, kwargs map[string]string, _ chat.ConfirmFunc) ([]chat.Message, error) {
		args, err := toolArguments(content, kwargs)
		if err != nil {
			return nil, fmt.Errorf("mcpproxy: %s: %w", remoteName, err)
		}

		req := mcp.CallToolRequest{}
		req.Params.Name = remoteName
		req.Params.Arguments = args

		s.mu.Lock()
		c := s.client
		s.mu.Unlock()
		if c == nil {
			return nil, fmt.Errorf("mcpproxy: %s: server connection closed", remoteName)
		}

		result, err := c.CallTool(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("mcpproxy: call %s: %w", remoteName, err)
		}

		return []chat.Message{chat.NewSystemMessage(renderResult(result))}, nil
	}
}

func toolArguments(content string, kwargs map[string]string) (map[string]any, error) {
	if len(kwargs) > 0 {
		args := make(map[string]any, len(kwargs))
		for k, v := range kwargs {
			args[k] = v
		}
		return args, nil
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return map[string]any{}, nil
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(content), &args); err != nil {
		return nil, fmt.Errorf("parse arguments: %w", err)
	}
	return args, nil
}

// renderResult flattens an MCP CallToolResult's text content parts, the
// same projection the teacher's pkg/tools/mcp client applies — non-text
// content parts (images, embedded resources) have no plain-text
// representation a system Message can carry.
func renderResult(result *mcp.CallToolResult) string {
	var b strings.Builder
	for _, part := range result.Content {
		if text, ok := part.(mcp.TextContent); ok {
			b.WriteString(text.Text)
		}
	}
	if result.IsError && b.Len() == 0 {
		return "tool call failed"
	}
	return b.String()
}

// Close terminates the MCP server subprocess. Safe to call more than
// once.
func (s *Server) Close() error {
	s.mu.Lock()
	c := s.client
	s.client = nil
	s.mu.Unlock()
	if c == nil {
		return nil
	}
	return c.Close()
}
