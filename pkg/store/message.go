package store

import (
	"context"
	"fmt"

	"stint/pkg/protocol"
)

// AppendMessage inserts a transcript entry and returns its insertion-ordered id.
func (s *Store) AppendMessage(ctx context.Context, sessionID int64, role, content, tool, now string) (int64, error) {
	res, err := s.q.ExecContext(ctx,
		`INSERT INTO messages (session_id, role, content, tool, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		sessionID, role, content, tool, now)
	if err != nil {
		return 0, fmt.Errorf("append message: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("append message id: %w", err)
	}
	return id, nil
}

// ReplaceMessage overwrites a message's role/content/tool in place. The id
// and therefore the transcript order never change. Returns false if no row
// has the given id.
func (s *Store) ReplaceMessage(ctx context.Context, id int64, role, content, tool string) (bool, error) {
	res, err := s.q.ExecContext(ctx,
		`UPDATE messages SET role = ?, content = ?, tool = ? WHERE id = ?`,
		role, content, tool, id)
	if err != nil {
		return false, fmt.Errorf("replace message: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("replace message rows: %w", err)
	}
	return n > 0, nil
}

// MessagesBySession returns a session's transcript in insertion order.
func (s *Store) MessagesBySession(ctx context.Context, sessionID int64) ([]protocol.Message, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT id, session_id, role, content, tool, created_at
		 FROM messages WHERE session_id = ? ORDER BY id`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	var msgs []protocol.Message
	for rows.Next() {
		var m protocol.Message
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Role, &m.Content, &m.Tool, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list messages rows: %w", err)
	}
	return msgs, nil
}

// AppendEvent writes an audit event. Called inside the request transaction
// so the event commits or rolls back with the command that produced it.
func (s *Store) AppendEvent(ctx context.Context, ev protocol.Event) error {
	var effort, session any
	if ev.EffortID != 0 {
		effort = ev.EffortID
	}
	if ev.SessionID != 0 {
		session = ev.SessionID
	}
	_, err := s.q.ExecContext(ctx,
		`INSERT INTO events (type, conn_id, effort_id, session_id, payload)
		 VALUES (?, ?, ?, ?, ?)`,
		ev.Type, ev.ConnID, effort, session, ev.Payload)
	if err != nil {
		return fmt.Errorf("append event: %w", err)
	}
	return nil
}
