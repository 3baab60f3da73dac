package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"stint/pkg/client"
)

// newQueryCmd creates the "stint query" subcommand: ad hoc SQL through the
// daemon's serialized read path.
func newQueryCmd() *cobra.Command {
	var format string
	var single bool

	cmd := &cobra.Command{
		Use:   "query <sql> [param]...",
		Short: "Run an ad hoc SQL query through the daemon",
		Long: `Sends a {sql, params} frame to the daemon and prints the rows as JSON.
Positional arguments after the statement bind to ? placeholders in order.

  stint query 'SELECT id, skill FROM efforts WHERE task_id = ?' my-task`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params := make([]any, 0, len(args)-1)
			for _, p := range args[1:] {
				params = append(params, p)
			}

			paths, err := ResolvePaths()
			if err != nil {
				return fmt.Errorf("resolve paths: %w", err)
			}

			c, err := client.Dial(cmd.Context(), paths.SocketPath)
			if err != nil {
				return err
			}
			defer func() { _ = c.Close() }()

			data, err := c.Query(cmd.Context(), args[0], params, format, single)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), data)
		},
	}

	cmd.Flags().StringVar(&format, "format", "objects", "row shape: objects or arrays")
	cmd.Flags().BoolVar(&single, "single", false, "return only the first row")
	return cmd
}

// printJSON writes raw JSON with indentation and a trailing newline.
func printJSON(w io.Writer, data json.RawMessage) error {
	var decoded any
	if err := json.Unmarshal(data, &decoded); err != nil {
		// Not valid JSON (shouldn't happen) — print raw.
		_, werr := fmt.Fprintln(w, string(data))
		return werr
	}
	out, err := json.MarshalIndent(decoded, "", "  ")
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}
