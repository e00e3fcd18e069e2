package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/docker/cagentcore/internal/backend"
	"github.com/docker/cagentcore/internal/config"
	"github.com/docker/cagentcore/pkg/builtinhooks"
	"github.com/docker/cagentcore/pkg/chat"
	"github.com/docker/cagentcore/pkg/ctxstore"
	"github.com/docker/cagentcore/pkg/logmanager"
	"github.com/docker/cagentcore/pkg/mcpproxy"
	"github.com/docker/cagentcore/pkg/permissions"
	"github.com/docker/cagentcore/pkg/restart"
	"github.com/docker/cagentcore/pkg/server"
	"github.com/docker/cagentcore/pkg/toolregistry"
	"github.com/docker/cagentcore/pkg/turnloop"
)

type serveFlags struct {
	addr        string
	workspace   string
	logDir      string
	configPath  string
	conversation string
	message     string
}

func newServeCmd() *cobra.Command {
	var flags serveFlags

	cmd := &cobra.Command{
		Use:     "serve",
		Short:   "Start the server-mode SSE rendezvous",
		GroupID: "",
		RunE: func(cmd *cobra.Command, args []string) error {
			return doServe(cmd.Context(), flags)
		},
	}

	cmd.Flags().StringVar(&flags.addr, "addr", ":8765", "Address to listen on")
	cmd.Flags().StringVar(&flags.workspace, "workspace", "", "Filesystem root tools resolve relative paths against (default: current directory)")
	cmd.Flags().StringVar(&flags.logDir, "logdir", "", "Conversation directory (default: <data-dir>/logs/<conversation>)")
	cmd.Flags().StringVar(&flags.configPath, "config", "", "Path to a YAML permissions/server config file")
	cmd.Flags().StringVar(&flags.conversation, "conversation", "default", "Conversation id to register at startup")
	cmd.Flags().StringVar(&flags.message, "message", "", "If set, append this user message and run one turn as soon as the server starts")

	return cmd
}

// doServe wires one Conversation (pkg/server leaves conversation
// creation off its own HTTP surface, so agentcore seeds exactly one at
// startup from flags rather than exposing a CRUD endpoint) and serves
// the rendezvous HTTP API until interrupted.
func doServe(ctx context.Context, flags serveFlags) error {
	if err := config.LoadDotenv(""); err != nil {
		slog.Warn("failed to load .env", "error", err)
	}
	env := config.LoadEnv()

	workspace := flags.workspace
	if workspace == "" {
		wd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("serve: determine working directory: %w", err)
		}
		workspace = wd
	}

	logDir := flags.logDir
	if logDir == "" {
		logDir = filepath.Join(config.GetDataDir(), "logs", flags.conversation)
	}

	log, err := logmanager.New(logDir, workspace)
	if err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	defer func() {
		if err := log.Close(); err != nil {
			slog.Warn("failed to release conversation lock", "error", err)
		}
	}()

	file, err := config.LoadFile(flags.configPath)
	if err != nil {
		return fmt.Errorf("serve: %w", err)
	}

	conv := server.NewConversation(flags.conversation)

	restart.RegisterComplete(conv.Hooks)
	restart.RegisterRestart(conv.Hooks)
	if len(file.Permissions.Allow) > 0 || len(file.Permissions.Deny) > 0 {
		permissions.NewHook(permissions.Stack{permissions.NewChecker(&file.Permissions)}).Register(conv.Hooks)
	}
	builtinhooks.Init(conv.Hooks, builtinhooks.Options{
		Allowlist:   env.HookAllowlist,
		Server:      true,
		ContextTree: env.ContextTree,
	})

	tools := toolregistry.New()
	if err := tools.Load(env.ToolAllowlist); err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	if err := tools.Init(ctx); err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	mcpServers, err := connectMCPServers(ctx, file.MCPServers, tools)
	if err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	defer closeMCPServers(mcpServers)

	conv.Log = log
	conv.Runner = turnloop.NewRunner(conv.Hooks, log, tools, backend.Echo{}.Generate, turnloop.Options{
		Workspace:      workspace,
		Interactive:    false,
		BreakOnToolUse: env.BreakOnToolUse,
	})

	fireSessionStart(ctx, conv.Hooks, log, logDir, workspace)
	defer fireSessionEnd(conv.Hooks, log)

	srv := server.New()
	srv.Add(conv)

	addr := flags.addr
	if envAddr := file.Server.Addr; envAddr != "" && addr == ":8765" {
		addr = envAddr
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("serve: listen on %s: %w", addr, err)
	}
	slog.Info("serving", "addr", addr, "conversation", flags.conversation)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if flags.message != "" {
		go runSeededTurn(ctx, conv, flags.message)
	}

	return srv.Serve(ctx, ln)
}

// runSeededTurn appends the seeded message and runs one turn, emitting
// the server-mode rendezvous events (tool_pending, message_added, ...) an
// SSE subscriber would see over the course of a normal turn. A client
// that connects to /events after this turn starts still sees every
// confirmation/elicitation prompt it raises, since those block on the
// pending-request registry rather than a fixed delivery window.
func runSeededTurn(ctx context.Context, conv *server.Conversation, message string) {
	// The request-scope identifiers are set before entering the turn
	// loop so hooks running inside it can tell which conversation and
	// session they serve.
	ctx = ctxstore.With(ctx, ctxstore.Scope{
		ConversationID: conv.ID,
		SessionID:      conv.SessionID,
		Hooks:          conv.Hooks,
	})

	userMsg := chat.NewUserMessage(message)
	if err := conv.Log.Append(userMsg); err != nil {
		slog.Error("failed to append seeded message", "error", err)
		return
	}
	conv.EmitMessageAdded(userMsg)
	conv.EmitGenerationStarted()

	if err := conv.Runner.RunTurn(ctx); err != nil {
		slog.Warn("seeded turn ended", "error", err)
		conv.EmitError(err)
		return
	}
}
