package main

import (
	"fmt"

	"stint/internal/appversion"

	"github.com/spf13/cobra"
)

// newRootCmd creates the root stint command with all subcommands attached.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "stint",
		Short:         "Stint agent session coordinator",
		Long:          "stint is the single entry point for the stint coordination daemon.\nIt tracks projects, tasks, efforts, and agent sessions over one unix socket.",
		Version:       fmt.Sprintf("stint %s", appversion.String()),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.SetVersionTemplate("{{.Version}}\n")

	cmd.AddCommand(
		newDaemonCmd(),
		newStopCmd(),
		newStatusCmd(),
		newCallCmd(),
		newQueryCmd(),
		newLogsCmd(),
		newDashCmd(),
	)

	return cmd
}
