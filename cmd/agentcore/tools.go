package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/docker/cagentcore/pkg/toolregistry"
)

func newToolsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tool",
		Short: "Inspect the tool catalog",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List every tool available in this build",
		Run: func(cmd *cobra.Command, args []string) {
			for _, spec := range toolregistry.Available() {
				status := ""
				if spec.DisabledByDefault {
					status = " (disabled by default)"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%-16s %s%s\n", spec.Name, spec.Description, status)
			}
		},
	})
	return cmd
}
