package engine

import (
	"context"

	"stint/pkg/protocol"
)

// ProjectUpsertArgs are the arguments for project.upsert.
type ProjectUpsertArgs struct {
	Path string `json:"path"`
	Name string `json:"name,omitempty"`
}

// Validate reports field-level issues.
func (a ProjectUpsertArgs) Validate() []protocol.Issue {
	var issues []protocol.Issue
	if a.Path == "" {
		issues = append(issues, protocol.Issue{Field: "path", Message: "required"})
	}
	return issues
}

// ProjectUpsert creates the project for a codebase path on first reference,
// or refreshes its display name.
func (e *Engine) ProjectUpsert(ctx context.Context, a ProjectUpsertArgs) (*protocol.Project, error) {
	return e.st.UpsertProject(ctx, a.Path, a.Name)
}

// TaskUpsertArgs are the arguments for task.upsert.
type TaskUpsertArgs struct {
	DirPath     string `json:"dirPath"`
	Project     string `json:"project,omitempty"` // project root path; defaults to dirPath
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
}

// Validate reports field-level issues.
func (a TaskUpsertArgs) Validate() []protocol.Issue {
	var issues []protocol.Issue
	if a.DirPath == "" {
		issues = append(issues, protocol.Issue{Field: "dirPath", Message: "required"})
	}
	return issues
}

// TaskUpsert creates or updates the persistent work container at dirPath,
// creating the owning project on first reference.
func (e *Engine) TaskUpsert(ctx context.Context, a TaskUpsertArgs) (*protocol.Task, error) {
	projectPath := a.Project
	if projectPath == "" {
		projectPath = a.DirPath
	}
	project, err := e.st.UpsertProject(ctx, projectPath, "")
	if err != nil {
		return nil, err
	}
	return e.st.UpsertTask(ctx, a.DirPath, project.ID, a.Title, a.Description)
}
