package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"stint/pkg/protocol"
)

const effortColumns = `id, task_id, skill, mode, ordinal, lifecycle, phase, metadata,
	created_at, COALESCE(finished_at, '')`

// CreateEffortParams holds parameters for inserting a new effort.
type CreateEffortParams struct {
	TaskID   string
	Skill    string
	Mode     string
	Ordinal  int64
	Metadata string // JSON object; empty means {}
	Now      string
}

// CreateEffort inserts a new active effort and returns the row.
func (s *Store) CreateEffort(ctx context.Context, p CreateEffortParams) (*protocol.Effort, error) {
	meta := p.Metadata
	if meta == "" {
		meta = "{}"
	}
	res, err := s.q.ExecContext(ctx,
		`INSERT INTO efforts (task_id, skill, mode, ordinal, lifecycle, metadata, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.TaskID, p.Skill, p.Mode, p.Ordinal, protocol.LifecycleActive, meta, p.Now)
	if err != nil {
		return nil, fmt.Errorf("create effort: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("create effort id: %w", err)
	}
	return s.Effort(ctx, id)
}

// MaxOrdinal returns the highest ordinal among a task's surviving efforts,
// or 0 if the task has none.
func (s *Store) MaxOrdinal(ctx context.Context, taskID string) (int64, error) {
	var max sql.NullInt64
	err := s.q.QueryRowContext(ctx,
		`SELECT MAX(ordinal) FROM efforts WHERE task_id = ?`, taskID).Scan(&max)
	if err != nil {
		return 0, fmt.Errorf("max ordinal: %w", err)
	}
	return max.Int64, nil
}

// Effort returns the effort with the given id, or nil if none exists.
func (s *Store) Effort(ctx context.Context, id int64) (*protocol.Effort, error) {
	row := s.q.QueryRowContext(ctx,
		`SELECT `+effortColumns+` FROM efforts WHERE id = ?`, id)
	return scanEffortRow(row)
}

// EffortsByTask returns a task's efforts in ordinal order.
func (s *Store) EffortsByTask(ctx context.Context, taskID string) ([]protocol.Effort, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT `+effortColumns+` FROM efforts WHERE task_id = ? ORDER BY ordinal`, taskID)
	if err != nil {
		return nil, fmt.Errorf("list efforts: %w", err)
	}
	defer rows.Close()

	var efforts []protocol.Effort
	for rows.Next() {
		e, err := scanEffort(rows)
		if err != nil {
			return nil, err
		}
		efforts = append(efforts, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list efforts rows: %w", err)
	}
	return efforts, nil
}

// ActiveEffortByAgent returns the active effort bound to an agent within a
// project, or nil when the agent is unknown, unbound, or bound outside the
// project.
func (s *Store) ActiveEffortByAgent(ctx context.Context, projectID int64, agentID string) (*protocol.Effort, error) {
	row := s.q.QueryRowContext(ctx,
		`SELECT e.id, e.task_id, e.skill, e.mode, e.ordinal, e.lifecycle, e.phase, e.metadata,
		        e.created_at, COALESCE(e.finished_at, '')
		 FROM efforts e
		 JOIN agents a ON a.effort_id = e.id
		 JOIN tasks t ON t.id = e.task_id
		 WHERE a.id = ? AND t.project_id = ? AND e.lifecycle = ?
		 ORDER BY e.id DESC LIMIT 1`,
		agentID, projectID, protocol.LifecycleActive)
	return scanEffortRow(row)
}

// LatestActiveEffort returns the most recently created active effort anywhere
// in the project, or nil if the project has none.
func (s *Store) LatestActiveEffort(ctx context.Context, projectID int64) (*protocol.Effort, error) {
	row := s.q.QueryRowContext(ctx,
		`SELECT e.id, e.task_id, e.skill, e.mode, e.ordinal, e.lifecycle, e.phase, e.metadata,
		        e.created_at, COALESCE(e.finished_at, '')
		 FROM efforts e
		 JOIN tasks t ON t.id = e.task_id
		 WHERE t.project_id = ? AND e.lifecycle = ?
		 ORDER BY e.id DESC LIMIT 1`,
		projectID, protocol.LifecycleActive)
	return scanEffortRow(row)
}

// ActiveEffortsByProject returns all active efforts in a project, newest first.
func (s *Store) ActiveEffortsByProject(ctx context.Context, projectID int64) ([]protocol.Effort, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT e.id, e.task_id, e.skill, e.mode, e.ordinal, e.lifecycle, e.phase, e.metadata,
		        e.created_at, COALESCE(e.finished_at, '')
		 FROM efforts e
		 JOIN tasks t ON t.id = e.task_id
		 WHERE t.project_id = ? AND e.lifecycle = ?
		 ORDER BY e.id DESC`,
		projectID, protocol.LifecycleActive)
	if err != nil {
		return nil, fmt.Errorf("active efforts: %w", err)
	}
	defer rows.Close()

	var efforts []protocol.Effort
	for rows.Next() {
		e, err := scanEffort(rows)
		if err != nil {
			return nil, err
		}
		efforts = append(efforts, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("active efforts rows: %w", err)
	}
	return efforts, nil
}

// FinishEffort marks an effort finished. The caller has already verified the
// effort exists and is active.
func (s *Store) FinishEffort(ctx context.Context, id int64, now string) error {
	_, err := s.q.ExecContext(ctx,
		`UPDATE efforts SET lifecycle = ?, finished_at = ? WHERE id = ?`,
		protocol.LifecycleFinished, now, id)
	if err != nil {
		return fmt.Errorf("finish effort: %w", err)
	}
	return nil
}

// SetEffortMetadata replaces an effort's metadata JSON wholesale.
func (s *Store) SetEffortMetadata(ctx context.Context, id int64, metadata string) error {
	_, err := s.q.ExecContext(ctx,
		`UPDATE efforts SET metadata = ? WHERE id = ?`, metadata, id)
	if err != nil {
		return fmt.Errorf("set effort metadata: %w", err)
	}
	return nil
}

// SetEffortPhase updates an effort's current phase marker.
func (s *Store) SetEffortPhase(ctx context.Context, id int64, phase string) error {
	_, err := s.q.ExecContext(ctx,
		`UPDATE efforts SET phase = ? WHERE id = ?`, phase, id)
	if err != nil {
		return fmt.Errorf("set effort phase: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEffortInto(sc rowScanner) (*protocol.Effort, error) {
	var e protocol.Effort
	err := sc.Scan(&e.ID, &e.TaskID, &e.Skill, &e.Mode, &e.Ordinal, &e.Lifecycle,
		&e.Phase, &e.Metadata, &e.CreatedAt, &e.FinishedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func scanEffortRow(row *sql.Row) (*protocol.Effort, error) {
	e, err := scanEffortInto(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan effort: %w", err)
	}
	return e, nil
}

func scanEffort(rows *sql.Rows) (*protocol.Effort, error) {
	e, err := scanEffortInto(rows)
	if err != nil {
		return nil, fmt.Errorf("scan effort: %w", err)
	}
	return e, nil
}
