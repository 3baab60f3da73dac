// Package eventlog provides read-only access to the daemon's audit log.
// It enables querying lifecycle events for display in stint-dash and other
// tools without going through the daemon socket.
package eventlog

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"stint/pkg/protocol"
)

// Event is a single audit-log row.
type Event struct {
	ID        int64
	Type      string
	ConnID    string
	EffortID  *int64
	SessionID *int64
	Payload   string
	CreatedAt time.Time
}

// QueryOpts specifies filter criteria for querying events.
type QueryOpts struct {
	// Type filters to a specific event type (e.g. "effort_started").
	Type string

	// EffortID filters to events attributed to one effort.
	EffortID int64

	// SessionID filters to events attributed to one session.
	SessionID int64

	// After filters events created at or after this time.
	After *time.Time

	// Before filters events created at or before this time.
	Before *time.Time

	// Limit restricts the number of results (0 = no limit).
	Limit int
}

// Reader provides read-only access to the audit log.
type Reader struct {
	db *sql.DB
}

// NewReader opens the daemon's SQLite database in read-only mode with WAL.
// Returns an error if the database doesn't exist or cannot be opened.
func NewReader(dbPath string) (*Reader, error) {
	if _, err := os.Stat(dbPath); err != nil {
		return nil, fmt.Errorf("database not found: %w", err)
	}

	// Read-only with WAL so readers never block the daemon's writer.
	dsn := fmt.Sprintf("file:%s?mode=ro&_journal_mode=WAL", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Reader{db: db}, nil
}

// Close releases the database connection. Safe to call multiple times.
func (r *Reader) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Query retrieves events matching the given filter criteria, newest first.
// Returns an empty slice if no events match.
func (r *Reader) Query(ctx context.Context, opts QueryOpts) ([]Event, error) {
	query, args := buildQuery(opts)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		var effortID, sessionID sql.NullInt64
		var createdAtStr string

		err := rows.Scan(
			&e.ID,
			&e.Type,
			&e.ConnID,
			&effortID,
			&sessionID,
			&e.Payload,
			&createdAtStr,
		)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}

		if effortID.Valid {
			e.EffortID = &effortID.Int64
		}
		if sessionID.Valid {
			e.SessionID = &sessionID.Int64
		}

		if createdAtStr != "" {
			parsed := protocol.ParseTime(createdAtStr)
			if parsed.IsZero() {
				// Fallback: timestamps written by other tools may carry a zone.
				parsed, err = time.Parse(time.RFC3339, createdAtStr)
				if err != nil {
					return nil, fmt.Errorf("parse created_at: %w", err)
				}
			}
			e.CreatedAt = parsed
		}

		events = append(events, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}

	return events, nil
}

// buildQuery constructs the SQL query and arguments from QueryOpts.
func buildQuery(opts QueryOpts) (string, []any) {
	var conditions []string
	var args []any

	query := "SELECT id, type, conn_id, effort_id, session_id, payload, created_at FROM events WHERE 1=1"

	if opts.Type != "" {
		conditions = append(conditions, "type = ?")
		args = append(args, opts.Type)
	}

	if opts.EffortID != 0 {
		conditions = append(conditions, "effort_id = ?")
		args = append(args, opts.EffortID)
	}

	if opts.SessionID != 0 {
		conditions = append(conditions, "session_id = ?")
		args = append(args, opts.SessionID)
	}

	if opts.After != nil {
		conditions = append(conditions, "created_at >= ?")
		args = append(args, protocol.FormatTime(*opts.After))
	}

	if opts.Before != nil {
		conditions = append(conditions, "created_at <= ?")
		args = append(args, protocol.FormatTime(*opts.Before))
	}

	if len(conditions) > 0 {
		query += " AND " + strings.Join(conditions, " AND ")
	}

	query += " ORDER BY id DESC"

	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", opts.Limit)
	}

	return query, args
}
