package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"stint/pkg/eventlog"
)

// newLogsCmd creates the "stint logs" subcommand, which reads the audit log
// straight from the database without going through the daemon.
func newLogsCmd() *cobra.Command {
	var eventType string
	var effortID int64
	var sessionID int64
	var limit int

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show recent audit-log events",
		Long:  "Reads lifecycle events (effort started, session ended, ...) from the\nstate database in read-only mode, newest first.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			paths, err := ResolvePaths()
			if err != nil {
				return fmt.Errorf("resolve paths: %w", err)
			}

			reader, err := eventlog.NewReader(paths.StateDBPath)
			if err != nil {
				return err
			}
			defer func() { _ = reader.Close() }()

			events, err := reader.Query(cmd.Context(), eventlog.QueryOpts{
				Type:      eventType,
				EffortID:  effortID,
				SessionID: sessionID,
				Limit:     limit,
			})
			if err != nil {
				return err
			}

			if len(events) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no events")
				return nil
			}

			for _, e := range events {
				line := fmt.Sprintf("%s  %-22s", e.CreatedAt.Format("2006-01-02 15:04:05"), e.Type)
				if e.EffortID != nil {
					line += fmt.Sprintf("  effort=%d", *e.EffortID)
				}
				if e.SessionID != nil {
					line += fmt.Sprintf("  session=%d", *e.SessionID)
				}
				if e.Payload != "" {
					line += "  " + e.Payload
				}
				fmt.Fprintln(cmd.OutOrStdout(), line)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&eventType, "type", "", "filter by event type")
	cmd.Flags().Int64Var(&effortID, "effort", 0, "filter by effort id")
	cmd.Flags().Int64Var(&sessionID, "session", 0, "filter by session id")
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum events to show (0 = all)")
	return cmd
}
