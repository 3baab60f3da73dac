package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"stint/pkg/protocol"
)

// UpsertProject inserts a project for path or updates its display name if a
// row already exists. An empty name never clobbers a stored one. Returns the
// resulting row.
func (s *Store) UpsertProject(ctx context.Context, path, name string) (*protocol.Project, error) {
	_, err := s.q.ExecContext(ctx,
		`INSERT INTO projects (path, name) VALUES (?, ?)
		 ON CONFLICT(path) DO UPDATE SET
		   name = CASE WHEN excluded.name != '' THEN excluded.name ELSE projects.name END`,
		path, name)
	if err != nil {
		return nil, fmt.Errorf("upsert project: %w", err)
	}
	return s.ProjectByPath(ctx, path)
}

// ProjectByPath returns the project rooted at path, or nil if none exists.
func (s *Store) ProjectByPath(ctx context.Context, path string) (*protocol.Project, error) {
	row := s.q.QueryRowContext(ctx,
		`SELECT id, path, name, created_at FROM projects WHERE path = ?`, path)
	return scanProject(row)
}

// Project returns the project with the given id, or nil if none exists.
func (s *Store) Project(ctx context.Context, id int64) (*protocol.Project, error) {
	row := s.q.QueryRowContext(ctx,
		`SELECT id, path, name, created_at FROM projects WHERE id = ?`, id)
	return scanProject(row)
}

func scanProject(row *sql.Row) (*protocol.Project, error) {
	var p protocol.Project
	err := row.Scan(&p.ID, &p.Path, &p.Name, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan project: %w", err)
	}
	return &p, nil
}
