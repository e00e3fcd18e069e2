package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/docker/cagentcore/internal/backend"
	"github.com/docker/cagentcore/internal/config"
	"github.com/docker/cagentcore/pkg/builtinhooks"
	"github.com/docker/cagentcore/pkg/chat"
	"github.com/docker/cagentcore/pkg/hooks"
	"github.com/docker/cagentcore/pkg/logmanager"
	"github.com/docker/cagentcore/pkg/mcpproxy"
	"github.com/docker/cagentcore/pkg/permissions"
	"github.com/docker/cagentcore/pkg/restart"
	"github.com/docker/cagentcore/pkg/toolregistry"
	"github.com/docker/cagentcore/pkg/turnloop"
)

type runFlags struct {
	workspace   string
	logDir      string
	configPath  string
	yolo        bool
	message     string
	interactive bool
}

func newRunCmd() *cobra.Command {
	var flags runFlags

	cmd := &cobra.Command{
		Use:   "run [conversation-name]",
		Short: "Run an interactive turn loop against a conversation",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := "default"
			if len(args) > 0 {
				name = args[0]
			}
			return doRun(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), name, flags)
		},
	}

	cmd.Flags().StringVar(&flags.workspace, "workspace", "", "Filesystem root tools resolve relative paths against (default: current directory)")
	cmd.Flags().StringVar(&flags.logDir, "logdir", "", "Conversation directory (default: <data-dir>/logs/<name>)")
	cmd.Flags().StringVar(&flags.configPath, "config", "", "Path to a YAML permissions/server config file")
	cmd.Flags().BoolVar(&flags.yolo, "yolo", false, "Automatically confirm every tool call without prompting")
	cmd.Flags().StringVar(&flags.message, "message", "", "Send one message non-interactively instead of reading a REPL from stdin")
	cmd.Flags().BoolVar(&flags.interactive, "interactive", true, "Treat the session as interactive for loop.continue/auto-reply purposes")

	return cmd
}

func doRun(ctx context.Context, stdin io.Reader, stdout io.Writer, name string, flags runFlags) error {
	if err := config.LoadDotenv(""); err != nil {
		slog.Warn("failed to load .env", "error", err)
	}
	env := config.LoadEnv()

	workspace := flags.workspace
	if workspace == "" {
		wd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("run: determine working directory: %w", err)
		}
		workspace = wd
	}

	logDir := flags.logDir
	if logDir == "" {
		logDir = filepath.Join(config.GetDataDir(), "logs", name)
	}

	log, err := logmanager.New(logDir, workspace)
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}
	defer func() {
		if err := log.Close(); err != nil {
			slog.Warn("failed to release conversation lock", "error", err)
		}
	}()

	file, err := config.LoadFile(flags.configPath)
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}

	reg := hooks.New()

	restart.RegisterComplete(reg)
	restart.RegisterRestart(reg)

	if len(file.Permissions.Allow) > 0 || len(file.Permissions.Deny) > 0 {
		permissions.NewHook(permissions.Stack{permissions.NewChecker(&file.Permissions)}).Register(reg)
	}
	builtinhooks.Init(reg, builtinhooks.Options{
		Allowlist:   env.HookAllowlist,
		Interactive: flags.interactive,
		NoConfirm:   flags.yolo,
		ContextTree: env.ContextTree,
		In:          stdin,
		Out:         stdout,
	})

	tools := toolregistry.New()
	if err := tools.Load(env.ToolAllowlist); err != nil {
		return fmt.Errorf("run: %w", err)
	}
	if err := tools.Init(ctx); err != nil {
		return fmt.Errorf("run: %w", err)
	}
	mcpServers, err := connectMCPServers(ctx, file.MCPServers, tools)
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}
	defer closeMCPServers(mcpServers)

	runner := turnloop.NewRunner(reg, log, tools, backend.Echo{}.Generate, turnloop.Options{
		Workspace:      workspace,
		Interactive:    flags.interactive,
		BreakOnToolUse: env.BreakOnToolUse,
	})

	fireSessionStart(ctx, reg, log, logDir, workspace)
	defer fireSessionEnd(reg, log)

	if flags.message != "" {
		return runOneMessage(ctx, runner, log, flags.message, stdout)
	}
	return runREPL(ctx, runner, log, tools, stdin, stdout)
}

// fireSessionStart triggers session.start with the conversation's
// existing messages and appends whatever the hooks yield (greetings,
// context injections). Hook failures are logged, never fatal.
func fireSessionStart(ctx context.Context, reg *hooks.Registry, log *logmanager.Manager, logDir, workspace string) {
	ch, err := reg.TriggerSessionStart(ctx, logDir, workspace, log.Messages())
	if err != nil {
		slog.Warn("session.start hooks failed", "error", err)
		return
	}
	for m := range ch {
		if err := log.Append(m); err != nil {
			slog.Warn("failed to append session.start message", "error", err)
		}
	}
}

// fireSessionEnd triggers session.end at conversation teardown. It runs
// against a background context: teardown must proceed even when the
// run's own context was already cancelled.
func fireSessionEnd(reg *hooks.Registry, log *logmanager.Manager) {
	ch, err := reg.TriggerSessionEnd(context.Background(), log)
	if err != nil {
		slog.Warn("session.end hooks failed", "error", err)
		return
	}
	for m := range ch {
		if err := log.Append(m); err != nil {
			slog.Warn("failed to append session.end message", "error", err)
		}
	}
}

func runOneMessage(ctx context.Context, runner *turnloop.Runner, log *logmanager.Manager, message string, stdout io.Writer) error {
	if err := log.Append(chat.NewUserMessage(message)); err != nil {
		return err
	}
	if err := runner.RunTurn(ctx); err != nil && !isSessionComplete(err) {
		return err
	}
	printNewMessages(stdout, log.Messages())
	return nil
}

func runREPL(ctx context.Context, runner *turnloop.Runner, log *logmanager.Manager, tools *toolregistry.Registry, stdin io.Reader, stdout io.Writer) error {
	scanner := bufio.NewScanner(stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	confirm := func(_ context.Context, question string) bool {
		fmt.Fprintf(stdout, "%s [y/N] ", question)
		if !scanner.Scan() {
			return false
		}
		answer := strings.ToLower(strings.TrimSpace(scanner.Text()))
		return answer == "y" || answer == "yes"
	}

	fmt.Fprintln(stdout, "agentcore ready. Type a message, or 'exit' to quit.")
	for {
		fmt.Fprint(stdout, "> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			return nil
		}
		if strings.HasPrefix(line, "/") {
			runSlashCommand(ctx, tools, log, line, confirm, stdout)
			continue
		}

		before := len(log.Messages())
		if err := log.Append(chat.NewUserMessage(line)); err != nil {
			return err
		}
		if err := runner.RunTurn(ctx); err != nil {
			if isSessionComplete(err) {
				printNewMessagesFrom(stdout, log.Messages(), before)
				fmt.Fprintln(stdout, "session complete.")
				return nil
			}
			return err
		}
		printNewMessagesFrom(stdout, log.Messages(), before)
	}
}

// runSlashCommand dispatches a `/name args` REPL line against the
// loaded toolchain's command registry. Command output is appended to the
// log (so the model sees it next turn) as well as printed.
func runSlashCommand(ctx context.Context, tools *toolregistry.Registry, log *logmanager.Manager, line string, confirm chat.ConfirmFunc, stdout io.Writer) {
	fields := strings.Fields(strings.TrimPrefix(line, "/"))
	if len(fields) == 0 {
		return
	}
	name := fields[0]

	cmd, ok := tools.Command(name)
	if !ok {
		known := strings.Join(tools.CommandNames(), ", ")
		if known == "" {
			known = "none"
		}
		fmt.Fprintf(stdout, "unknown command /%s (available: %s)\n", name, known)
		return
	}

	msgs, err := cmd.Run(ctx, chat.CommandContext{
		Args:     fields[1:],
		FullArgs: strings.TrimSpace(strings.TrimPrefix(strings.TrimPrefix(line, "/"), name)),
		Confirm:  confirm,
	})
	if err != nil {
		fmt.Fprintf(stdout, "command /%s failed: %v\n", name, err)
		return
	}
	for _, m := range msgs {
		if err := log.Append(m); err != nil {
			slog.Warn("failed to append command output", "command", name, "error", err)
		}
		if !m.Hide {
			fmt.Fprintf(stdout, "[%s] %s\n", m.Role, m.Content)
		}
	}
}

// connectMCPServers connects every configured stdio MCP server and adds
// its proxy tools to tools, per spec §4.3's "MCP servers (if enabled)
// contribute proxy ToolSpecs". A server that fails to connect is logged
// and skipped rather than aborting the run — one misbehaving MCP server
// shouldn't take down an otherwise-working session.
func connectMCPServers(ctx context.Context, configs []mcpproxy.Config, tools *toolregistry.Registry) ([]*mcpproxy.Server, error) {
	servers := make([]*mcpproxy.Server, 0, len(configs))
	for _, cfg := range configs {
		srv, specs, err := mcpproxy.Connect(ctx, cfg)
		if err != nil {
			slog.Warn("mcp server connect failed, skipping", "server", cfg.Name, "error", err)
			continue
		}
		tools.AddTools(specs)
		servers = append(servers, srv)
	}
	return servers, nil
}

func closeMCPServers(servers []*mcpproxy.Server) {
	for _, srv := range servers {
		if err := srv.Close(); err != nil {
			slog.Warn("mcp server close failed", "error", err)
		}
	}
}

func isSessionComplete(err error) bool {
	return errors.Is(err, hooks.ErrSessionComplete)
}

func printNewMessages(out io.Writer, msgs []chat.Message) {
	printNewMessagesFrom(out, msgs, 0)
}

func printNewMessagesFrom(out io.Writer, msgs []chat.Message, from int) {
	for _, m := range msgs[from:] {
		if m.Hide {
			continue
		}
		fmt.Fprintf(out, "[%s] %s\n", m.Role, m.Content)
	}
}
