package eventlog //nolint:testpackage

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"stint/pkg/protocol"
)

// setupReader writes a file-backed database (the reader insists on a real
// file) seeded with a handful of events, and returns a Reader over it.
func setupReader(t *testing.T) *Reader {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "state.db")

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if _, err := db.Exec(protocol.SchemaDDL); err != nil {
		t.Fatalf("apply schema: %v", err)
	}

	seed := []struct {
		typ       string
		effortID  any
		sessionID any
		createdAt string
	}{
		{"effort_started", 1, nil, "2025-06-01 10:00:00"},
		{"session_started", 1, 1, "2025-06-01 10:01:00"},
		{"session_heartbeat", 1, 1, "2025-06-01 10:02:00"},
		{"effort_started", 2, nil, "2025-06-01 11:00:00"},
		{"session_started", 2, 2, "2025-06-01 11:01:00"},
	}
	for _, ev := range seed {
		if _, err := db.Exec(
			`INSERT INTO events (type, conn_id, effort_id, session_id, payload, created_at)
			 VALUES (?, 'conn-1', ?, ?, '', ?)`,
			ev.typ, ev.effortID, ev.sessionID, ev.createdAt); err != nil {
			t.Fatalf("seed event: %v", err)
		}
	}
	if err := db.Close(); err != nil {
		t.Fatalf("close seed db: %v", err)
	}

	r, err := NewReader(dbPath)
	if err != nil {
		t.Fatalf("new reader: %v", err)
	}
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func TestNewReader_MissingDatabase(t *testing.T) {
	if _, err := NewReader(filepath.Join(t.TempDir(), "absent.db")); err == nil {
		t.Fatal("expected error for missing database")
	}
}

func TestQuery_NewestFirst(t *testing.T) {
	r := setupReader(t)

	events, err := r.Query(context.Background(), QueryOpts{})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(events) != 5 {
		t.Fatalf("got %d events", len(events))
	}
	for i := 1; i < len(events); i++ {
		if events[i].ID > events[i-1].ID {
			t.Fatalf("order broken at %d: %d after %d", i, events[i].ID, events[i-1].ID)
		}
	}
	if events[0].Type != "session_started" {
		t.Errorf("newest = %q", events[0].Type)
	}
}

func TestQuery_Filters(t *testing.T) {
	r := setupReader(t)
	ctx := context.Background()

	byType, err := r.Query(ctx, QueryOpts{Type: "effort_started"})
	if err != nil {
		t.Fatalf("by type: %v", err)
	}
	if len(byType) != 2 {
		t.Errorf("by type = %d events", len(byType))
	}

	byEffort, err := r.Query(ctx, QueryOpts{EffortID: 1})
	if err != nil {
		t.Fatalf("by effort: %v", err)
	}
	if len(byEffort) != 3 {
		t.Errorf("by effort = %d events", len(byEffort))
	}

	bySession, err := r.Query(ctx, QueryOpts{SessionID: 2})
	if err != nil {
		t.Fatalf("by session: %v", err)
	}
	if len(bySession) != 1 || bySession[0].Type != "session_started" {
		t.Errorf("by session = %+v", bySession)
	}

	combined, err := r.Query(ctx, QueryOpts{Type: "session_started", EffortID: 1})
	if err != nil {
		t.Fatalf("combined: %v", err)
	}
	if len(combined) != 1 {
		t.Errorf("combined = %d events", len(combined))
	}
}

func TestQuery_TimeWindow(t *testing.T) {
	r := setupReader(t)

	after := time.Date(2025, 6, 1, 10, 30, 0, 0, time.UTC)
	before := time.Date(2025, 6, 1, 11, 0, 30, 0, time.UTC)
	events, err := r.Query(context.Background(), QueryOpts{After: &after, Before: &before})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(events) != 1 || events[0].Type != "effort_started" {
		t.Fatalf("window = %+v", events)
	}
	want := time.Date(2025, 6, 1, 11, 0, 0, 0, time.UTC)
	if !events[0].CreatedAt.Equal(want) {
		t.Errorf("created_at = %v, want %v", events[0].CreatedAt, want)
	}
}

func TestQuery_Limit(t *testing.T) {
	r := setupReader(t)

	events, err := r.Query(context.Background(), QueryOpts{Limit: 2})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	// Limit keeps the newest rows, not the oldest.
	if events[0].Type != "session_started" || events[1].Type != "effort_started" {
		t.Errorf("limited window = %q, %q", events[0].Type, events[1].Type)
	}
}

func TestQuery_NullAttributionStaysNil(t *testing.T) {
	r := setupReader(t)

	events, err := r.Query(context.Background(), QueryOpts{Type: "effort_started"})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	for _, ev := range events {
		if ev.EffortID == nil {
			t.Errorf("effort id missing on %+v", ev)
		}
		if ev.SessionID != nil {
			t.Errorf("session id present on effort event: %+v", ev)
		}
	}
}
