package engine //nolint:testpackage // white-box tests exercise handlers with a direct store binding

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"stint/pkg/protocol"
	"stint/pkg/store"
)

// setupTestDB creates an in-memory SQLite database with the full schema.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if _, err := db.Exec(protocol.SchemaDDL); err != nil {
		t.Fatalf("exec schema: %v", err)
	}

	return db
}

// testClock is an adjustable clock for deterministic timestamps.
type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time { return c.now }

func (c *testClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

// newTestEngine builds an Engine over a fresh in-memory database. The raw
// handle is returned for tests that need to reach behind the handlers.
func newTestEngine(t *testing.T) (*Engine, *sql.DB, *testClock) {
	t.Helper()
	db := setupTestDB(t)
	clock := &testClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	e := New(store.New(db), Config{Now: clock.Now})
	return e, db, clock
}

// mustTask creates a project + task pair and returns the task id.
func mustTask(t *testing.T, e *Engine, dirPath string) string {
	t.Helper()
	task, err := e.TaskUpsert(context.Background(), TaskUpsertArgs{DirPath: dirPath})
	if err != nil {
		t.Fatalf("task.upsert %s: %v", dirPath, err)
	}
	return task.ID
}

// mustEffort starts an effort for the task and returns it.
func mustEffort(t *testing.T, e *Engine, taskID, skill string) *protocol.Effort {
	t.Helper()
	effort, err := e.EffortStart(context.Background(), EffortStartArgs{TaskID: taskID, Skill: skill})
	if err != nil {
		t.Fatalf("effort.start: %v", err)
	}
	return effort
}

// mustSession opens a session for the effort and returns it.
func mustSession(t *testing.T, e *Engine, taskID string, effortID int64) *protocol.Session {
	t.Helper()
	sess, err := e.SessionStart(context.Background(), SessionStartArgs{TaskID: taskID, EffortID: effortID})
	if err != nil {
		t.Fatalf("session.start: %v", err)
	}
	return sess
}

func TestTaskUpsert_CreatesProjectOnFirstReference(t *testing.T) {
	e, _, _ := newTestEngine(t)
	ctx := context.Background()

	task, err := e.TaskUpsert(ctx, TaskUpsertArgs{DirPath: "/repo/feature-x", Title: "Feature X"})
	if err != nil {
		t.Fatalf("task.upsert: %v", err)
	}
	if task.ID != "/repo/feature-x" {
		t.Errorf("task id = %q, want dir path", task.ID)
	}
	if task.Title != "Feature X" {
		t.Errorf("title = %q", task.Title)
	}

	// The project was auto-created with the dir path as its root.
	project, err := e.st.ProjectByPath(ctx, "/repo/feature-x")
	if err != nil {
		t.Fatalf("project lookup: %v", err)
	}
	if project == nil {
		t.Fatal("expected auto-created project")
	}
	if task.ProjectID != project.ID {
		t.Errorf("task.ProjectID = %d, want %d", task.ProjectID, project.ID)
	}
}

func TestTaskUpsert_ExplicitProjectPath(t *testing.T) {
	e, _, _ := newTestEngine(t)
	ctx := context.Background()

	task, err := e.TaskUpsert(ctx, TaskUpsertArgs{DirPath: "/repo/worktrees/a", Project: "/repo"})
	if err != nil {
		t.Fatalf("task.upsert: %v", err)
	}

	project, err := e.st.ProjectByPath(ctx, "/repo")
	if err != nil {
		t.Fatalf("project lookup: %v", err)
	}
	if project == nil || task.ProjectID != project.ID {
		t.Fatalf("task not linked to /repo project")
	}
}

func TestProjectUpsert_Idempotent(t *testing.T) {
	e, _, _ := newTestEngine(t)
	ctx := context.Background()

	first, err := e.ProjectUpsert(ctx, ProjectUpsertArgs{Path: "/repo", Name: "repo"})
	if err != nil {
		t.Fatalf("upsert 1: %v", err)
	}
	second, err := e.ProjectUpsert(ctx, ProjectUpsertArgs{Path: "/repo"})
	if err != nil {
		t.Fatalf("upsert 2: %v", err)
	}
	if first.ID != second.ID {
		t.Errorf("ids differ: %d vs %d", first.ID, second.ID)
	}
	if second.Name != "repo" {
		t.Errorf("second upsert dropped name: %q", second.Name)
	}
}
