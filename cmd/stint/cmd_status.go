package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	_ "modernc.org/sqlite"

	"stint/pkg/protocol"
	"stint/pkg/store"
)

// newStatusCmd creates the "stint status" subcommand.
func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon and fleet state",
		Long:  "Displays daemon liveness plus counts of agents, active efforts,\nopen sessions, and sessions whose heartbeat has gone stale.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			paths, err := ResolvePaths()
			if err != nil {
				return fmt.Errorf("resolve paths: %w", err)
			}
			pretty := isatty.IsTerminal(os.Stdout.Fd())
			return runStatus(cmd.Context(), cmd.OutOrStdout(), paths, pretty)
		},
	}
}

// statusReport is the fleet snapshot rendered by "stint status".
type statusReport struct {
	Daemon        DaemonStatusValue
	PID           int
	Agents        int
	ActiveEfforts int
	OpenSessions  int
	StaleSessions int
}

func runStatus(ctx context.Context, w io.Writer, paths *Paths, pretty bool) error {
	report := statusReport{}

	var err error
	report.Daemon, report.PID, err = DaemonStatus(paths.PIDPath)
	if err != nil {
		return err
	}

	if err := fillCounts(ctx, paths.StateDBPath, &report); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return err
		}
		// No database yet — daemon never ran. Counts stay zero.
	}

	printStatus(w, report, pretty)
	return nil
}

// fillCounts reads fleet counts from the state database in read-only mode,
// so status never contends with the daemon's writer.
func fillCounts(ctx context.Context, dbPath string, report *statusReport) error {
	if _, err := os.Stat(dbPath); err != nil {
		return err
	}

	dsn := fmt.Sprintf("file:%s?mode=ro&_journal_mode=WAL", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("open state db: %w", err)
	}
	defer func() { _ = db.Close() }()

	st := store.New(db)

	agents, err := st.Agents(ctx)
	if err != nil {
		return err
	}
	report.Agents = len(agents)

	open, err := st.OpenSessions(ctx)
	if err != nil {
		return err
	}
	report.OpenSessions = len(open)

	cutoff := protocol.FormatTime(time.Now().Add(-protocol.StaleSessionThreshold))
	stale, err := st.StaleSessions(ctx, cutoff)
	if err != nil {
		return err
	}
	report.StaleSessions = len(stale)

	var active int
	row := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM efforts WHERE lifecycle = ?`, protocol.LifecycleActive)
	if err := row.Scan(&active); err != nil {
		return fmt.Errorf("count active efforts: %w", err)
	}
	report.ActiveEfforts = active

	return nil
}

func printStatus(w io.Writer, r statusReport, pretty bool) {
	if !pretty {
		fmt.Fprintf(w, "daemon=%s pid=%d agents=%d active_efforts=%d open_sessions=%d stale_sessions=%d\n",
			r.Daemon, r.PID, r.Agents, r.ActiveEfforts, r.OpenSessions, r.StaleSessions)
		return
	}

	switch r.Daemon {
	case StatusRunning:
		fmt.Fprintf(w, "daemon: running (PID %d)\n", r.PID)
	case StatusStale:
		fmt.Fprintf(w, "daemon: stale PID file (process %d is dead)\n", r.PID)
	default:
		fmt.Fprintln(w, "daemon: stopped")
	}
	fmt.Fprintf(w, "agents:          %d\n", r.Agents)
	fmt.Fprintf(w, "active efforts:  %d\n", r.ActiveEfforts)
	fmt.Fprintf(w, "open sessions:   %d\n", r.OpenSessions)
	if r.StaleSessions > 0 {
		fmt.Fprintf(w, "stale sessions:  %d (no heartbeat for %s)\n", r.StaleSessions, protocol.StaleSessionThreshold)
	}
}
