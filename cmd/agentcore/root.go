// Command agentcore is the CLI entrypoint: a `run` subcommand drives an
// interactive turn loop against a conversation directory, and a `serve`
// subcommand exposes the server-mode rendezvous over HTTP. One root
// cobra.Command, one file per subcommand, persistent --debug flag wired
// to log/slog before anything else runs.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "dev"

	debugMode bool
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "agentcore",
		Short:         "agentcore - conversational agent turn/tool execution core",
		Long:          "agentcore drives a turn-based dialogue between an operator and a language-model backend, parsing and executing the tool invocations the model emits.",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelInfo
			if debugMode {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.PersistentFlags().BoolVarP(&debugMode, "debug", "d", false, "Enable debug logging")

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newRunCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newToolsCmd())

	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "agentcore", version)
		},
	}
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
