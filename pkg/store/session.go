package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"stint/pkg/protocol"
)

const sessionColumns = `id, effort_id, task_id, COALESCE(prev_session_id, 0), pid,
	heartbeats, last_heartbeat, context_usage, loaded_files, preloaded_files,
	injections, discovered_directives, discovered_directories,
	COALESCE(dehydration, ''), transcript_path, transcript_offset,
	created_at, COALESCE(ended_at, '')`

// CreateSessionParams holds parameters for inserting a new session.
type CreateSessionParams struct {
	EffortID              int64
	TaskID                string
	PrevSessionID         int64 // 0 means no predecessor
	PID                   int64
	DiscoveredDirectives  []string
	DiscoveredDirectories []string
	Now                   string
}

// CreateSession inserts a new open session and returns the row.
func (s *Store) CreateSession(ctx context.Context, p CreateSessionParams) (*protocol.Session, error) {
	var prev any
	if p.PrevSessionID != 0 {
		prev = p.PrevSessionID
	}
	res, err := s.q.ExecContext(ctx,
		`INSERT INTO sessions (effort_id, task_id, prev_session_id, pid,
		   discovered_directives, discovered_directories, last_heartbeat, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.EffortID, p.TaskID, prev, p.PID,
		listToJSON(p.DiscoveredDirectives), listToJSON(p.DiscoveredDirectories),
		p.Now, p.Now)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("create session id: %w", err)
	}
	return s.Session(ctx, id)
}

// Session returns the session with the given id, or nil if none exists.
func (s *Store) Session(ctx context.Context, id int64) (*protocol.Session, error) {
	row := s.q.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id)
	return scanSessionRow(row)
}

// OpenSessionByEffort returns the most recent session for an effort whose
// ended_at is still null, or nil if the effort has no open session.
func (s *Store) OpenSessionByEffort(ctx context.Context, effortID int64) (*protocol.Session, error) {
	row := s.q.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions
		 WHERE effort_id = ? AND ended_at IS NULL
		 ORDER BY id DESC LIMIT 1`, effortID)
	return scanSessionRow(row)
}

// OpenSessions returns every session with a null ended_at, newest first.
func (s *Store) OpenSessions(ctx context.Context) ([]protocol.Session, error) {
	return s.querySessions(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE ended_at IS NULL ORDER BY id DESC`)
}

// StaleSessions returns open sessions whose last heartbeat is older than the
// cutoff timestamp. This is the pull-based liveness view: the daemon runs no
// timer of its own.
func (s *Store) StaleSessions(ctx context.Context, cutoff string) ([]protocol.Session, error) {
	return s.querySessions(ctx,
		`SELECT `+sessionColumns+` FROM sessions
		 WHERE ended_at IS NULL AND last_heartbeat < ? ORDER BY last_heartbeat`, cutoff)
}

func (s *Store) querySessions(ctx context.Context, query string, args ...any) ([]protocol.Session, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []protocol.Session
	for rows.Next() {
		sess, err := scanSessionInto(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, *sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query sessions rows: %w", err)
	}
	return sessions, nil
}

// EndSession sets ended_at and optionally stores a dehydration snapshot.
// The caller has already verified the session exists and is open.
func (s *Store) EndSession(ctx context.Context, id int64, now, dehydration string) error {
	var err error
	if dehydration != "" {
		_, err = s.q.ExecContext(ctx,
			`UPDATE sessions SET ended_at = ?, dehydration = ? WHERE id = ?`,
			now, dehydration, id)
	} else {
		_, err = s.q.ExecContext(ctx,
			`UPDATE sessions SET ended_at = ? WHERE id = ?`, now, id)
	}
	if err != nil {
		return fmt.Errorf("end session: %w", err)
	}
	return nil
}

// IncrementHeartbeat bumps the counter by exactly 1 and refreshes the
// timestamp. The highest-frequency write in the system.
func (s *Store) IncrementHeartbeat(ctx context.Context, id int64, now string) error {
	_, err := s.q.ExecContext(ctx,
		`UPDATE sessions SET heartbeats = heartbeats + 1, last_heartbeat = ? WHERE id = ?`,
		now, id)
	if err != nil {
		return fmt.Errorf("increment heartbeat: %w", err)
	}
	return nil
}

// ResetHeartbeat zeroes the counter and refreshes the timestamp.
func (s *Store) ResetHeartbeat(ctx context.Context, id int64, now string) error {
	_, err := s.q.ExecContext(ctx,
		`UPDATE sessions SET heartbeats = 0, last_heartbeat = ? WHERE id = ?`,
		now, id)
	if err != nil {
		return fmt.Errorf("reset heartbeat: %w", err)
	}
	return nil
}

// SetContextUsage stores the session's context-fill fraction.
func (s *Store) SetContextUsage(ctx context.Context, id int64, usage float64) error {
	_, err := s.q.ExecContext(ctx,
		`UPDATE sessions SET context_usage = ? WHERE id = ?`, usage, id)
	if err != nil {
		return fmt.Errorf("set context usage: %w", err)
	}
	return nil
}

// SetLoadedFiles replaces the loaded-file manifest wholesale.
func (s *Store) SetLoadedFiles(ctx context.Context, id int64, files []string) error {
	_, err := s.q.ExecContext(ctx,
		`UPDATE sessions SET loaded_files = ? WHERE id = ?`, listToJSON(files), id)
	if err != nil {
		return fmt.Errorf("set loaded files: %w", err)
	}
	return nil
}

// SetPreloadedFiles replaces the preloaded-file list wholesale.
func (s *Store) SetPreloadedFiles(ctx context.Context, id int64, files []string) error {
	_, err := s.q.ExecContext(ctx,
		`UPDATE sessions SET preloaded_files = ? WHERE id = ?`, listToJSON(files), id)
	if err != nil {
		return fmt.Errorf("set preloaded files: %w", err)
	}
	return nil
}

// SetInjections replaces the pending-injection queue wholesale.
func (s *Store) SetInjections(ctx context.Context, id int64, queue string) error {
	_, err := s.q.ExecContext(ctx,
		`UPDATE sessions SET injections = ? WHERE id = ?`, queue, id)
	if err != nil {
		return fmt.Errorf("set injections: %w", err)
	}
	return nil
}

// SetTranscript records where the session's transcript lives and how far it
// has been consumed.
func (s *Store) SetTranscript(ctx context.Context, id int64, path string, offset int64) error {
	_, err := s.q.ExecContext(ctx,
		`UPDATE sessions SET transcript_path = ?, transcript_offset = ? WHERE id = ?`,
		path, offset, id)
	if err != nil {
		return fmt.Errorf("set transcript: %w", err)
	}
	return nil
}

func scanSessionInto(sc rowScanner) (*protocol.Session, error) {
	var sess protocol.Session
	err := sc.Scan(&sess.ID, &sess.EffortID, &sess.TaskID, &sess.PrevSessionID,
		&sess.PID, &sess.Heartbeats, &sess.LastHeartbeat, &sess.ContextUsage,
		&sess.LoadedFiles, &sess.PreloadedFiles, &sess.Injections,
		&sess.DiscoveredDirectives, &sess.DiscoveredDirectories,
		&sess.Dehydration, &sess.TranscriptPath, &sess.TranscriptOffset,
		&sess.CreatedAt, &sess.EndedAt)
	if err != nil {
		return nil, err
	}
	return &sess, nil
}

func scanSessionRow(row *sql.Row) (*protocol.Session, error) {
	sess, err := scanSessionInto(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan session: %w", err)
	}
	return sess, nil
}
