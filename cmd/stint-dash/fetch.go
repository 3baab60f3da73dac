package main

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"stint/pkg/eventlog"
	"stint/pkg/protocol"
	"stint/pkg/store"
)

// fetchTimeout is how long to wait for a database read or socket probe.
const fetchTimeout = 5 * time.Second

// effortLine is one active effort with its task context, shaped for display.
type effortLine struct {
	ID      int64
	TaskID  string
	Skill   string
	Ordinal int64
	Phase   string
}

// sessionLine is one open session, shaped for display.
type sessionLine struct {
	ID           int64
	EffortID     int64
	Heartbeats   int64
	ContextUsage float64
	Stale        bool
}

// snapshot is everything the dashboard renders, fetched in one pass.
type snapshot struct {
	DaemonOnline  bool
	Agents        []protocol.Agent
	ActiveEfforts []effortLine
	OpenSessions  []sessionLine
	Events        []eventlog.Event
}

// defaultStintPaths resolves the socket and database paths from env or the
// ~/.stint defaults. The dashboard is read-only, so it needs nothing else.
func defaultStintPaths() (socketPath, dbPath string) {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	base := filepath.Join(home, protocol.StintDir)
	if v := os.Getenv("STINT_HOME"); v != "" {
		base = v
	}

	socketPath = filepath.Join(base, protocol.SocketFile)
	if v := os.Getenv("STINT_SOCKET_PATH"); v != "" {
		socketPath = v
	}
	dbPath = filepath.Join(base, protocol.DBFile)
	if v := os.Getenv("STINT_DB_PATH"); v != "" {
		dbPath = v
	}
	return socketPath, dbPath
}

// probeDaemon reports whether the daemon is accepting connections. The
// daemon being offline is not an error condition.
func probeDaemon(ctx context.Context, socketPath string) bool {
	if _, err := os.Stat(socketPath); err != nil {
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", socketPath)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}

// fetchSnapshot reads the full display state from the database in read-only
// mode. A missing database yields an empty snapshot, not an error — the
// daemon may simply have never run.
func fetchSnapshot(ctx context.Context, socketPath, dbPath string) (snapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	snap := snapshot{DaemonOnline: probeDaemon(ctx, socketPath)}

	if _, err := os.Stat(dbPath); err != nil {
		return snap, nil
	}

	dsn := fmt.Sprintf("file:%s?mode=ro&_journal_mode=WAL", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return snap, fmt.Errorf("open state db: %w", err)
	}
	defer func() { _ = db.Close() }()

	st := store.New(db)

	snap.Agents, err = st.Agents(ctx)
	if err != nil {
		return snap, err
	}

	snap.ActiveEfforts, err = fetchActiveEfforts(ctx, db)
	if err != nil {
		return snap, err
	}

	snap.OpenSessions, err = fetchOpenSessions(ctx, st)
	if err != nil {
		return snap, err
	}

	snap.Events, err = fetchRecentEvents(ctx, dbPath)
	if err != nil {
		return snap, err
	}

	return snap, nil
}

func fetchActiveEfforts(ctx context.Context, db *sql.DB) ([]effortLine, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, task_id, skill, ordinal, phase FROM efforts
		 WHERE lifecycle = ? ORDER BY id DESC`, protocol.LifecycleActive)
	if err != nil {
		return nil, fmt.Errorf("query active efforts: %w", err)
	}
	defer rows.Close()

	var efforts []effortLine
	for rows.Next() {
		var e effortLine
		if err := rows.Scan(&e.ID, &e.TaskID, &e.Skill, &e.Ordinal, &e.Phase); err != nil {
			return nil, fmt.Errorf("scan effort: %w", err)
		}
		efforts = append(efforts, e)
	}
	return efforts, rows.Err()
}

func fetchOpenSessions(ctx context.Context, st *store.Store) ([]sessionLine, error) {
	open, err := st.OpenSessions(ctx)
	if err != nil {
		return nil, err
	}

	cutoff := protocol.FormatTime(time.Now().Add(-protocol.StaleSessionThreshold))
	staleRows, err := st.StaleSessions(ctx, cutoff)
	if err != nil {
		return nil, err
	}
	stale := make(map[int64]bool, len(staleRows))
	for _, s := range staleRows {
		stale[s.ID] = true
	}

	sessions := make([]sessionLine, 0, len(open))
	for _, s := range open {
		sessions = append(sessions, sessionLine{
			ID:           s.ID,
			EffortID:     s.EffortID,
			Heartbeats:   s.Heartbeats,
			ContextUsage: s.ContextUsage,
			Stale:        stale[s.ID],
		})
	}
	return sessions, nil
}

func fetchRecentEvents(ctx context.Context, dbPath string) ([]eventlog.Event, error) {
	reader, err := eventlog.NewReader(dbPath)
	if err != nil {
		return nil, err
	}
	defer func() { _ = reader.Close() }()

	return reader.Query(ctx, eventlog.QueryOpts{Limit: 12})
}
