package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"stint/pkg/protocol"
)

// UpsertTask inserts a task keyed by its workspace directory or updates the
// title/description of an existing one. Empty fields never clobber stored
// values. The keyword list is only touched by AddTaskKeywords.
func (s *Store) UpsertTask(ctx context.Context, id string, projectID int64, title, description string) (*protocol.Task, error) {
	_, err := s.q.ExecContext(ctx,
		`INSERT INTO tasks (id, project_id, title, description) VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   title       = CASE WHEN excluded.title != '' THEN excluded.title ELSE tasks.title END,
		   description = CASE WHEN excluded.description != '' THEN excluded.description ELSE tasks.description END`,
		id, projectID, title, description)
	if err != nil {
		return nil, fmt.Errorf("upsert task: %w", err)
	}
	return s.Task(ctx, id)
}

// Task returns the task with the given workspace id, or nil if none exists.
func (s *Store) Task(ctx context.Context, id string) (*protocol.Task, error) {
	row := s.q.QueryRowContext(ctx,
		`SELECT id, project_id, title, description, keywords, created_at
		 FROM tasks WHERE id = ?`, id)
	var t protocol.Task
	err := row.Scan(&t.ID, &t.ProjectID, &t.Title, &t.Description, &t.Keywords, &t.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan task: %w", err)
	}
	return &t, nil
}

// AddTaskKeywords merges keywords into the task's accumulated tag list,
// dropping duplicates while preserving first-seen order.
func (s *Store) AddTaskKeywords(ctx context.Context, id string, keywords []string) error {
	if len(keywords) == 0 {
		return nil
	}
	t, err := s.Task(ctx, id)
	if err != nil {
		return err
	}
	if t == nil {
		return fmt.Errorf("add task keywords: task %s not found", id)
	}

	existing := listFromJSON(t.Keywords)
	seen := make(map[string]struct{}, len(existing))
	for _, k := range existing {
		seen[k] = struct{}{}
	}
	merged := existing
	for _, k := range keywords {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		merged = append(merged, k)
	}

	_, err = s.q.ExecContext(ctx,
		`UPDATE tasks SET keywords = ? WHERE id = ?`, listToJSON(merged), id)
	if err != nil {
		return fmt.Errorf("update task keywords: %w", err)
	}
	return nil
}

// TasksByProject returns all tasks owned by a project, newest first.
func (s *Store) TasksByProject(ctx context.Context, projectID int64) ([]protocol.Task, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT id, project_id, title, description, keywords, created_at
		 FROM tasks WHERE project_id = ? ORDER BY created_at DESC, id DESC`, projectID)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []protocol.Task
	for rows.Next() {
		var t protocol.Task
		if err := rows.Scan(&t.ID, &t.ProjectID, &t.Title, &t.Description, &t.Keywords, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list tasks rows: %w", err)
	}
	return tasks, nil
}
