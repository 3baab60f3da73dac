package engine

import (
	"context"
	"errors"
	"testing"

	"stint/pkg/protocol"
)

func TestEffortStart_OrdinalsAreSequentialPerTask(t *testing.T) {
	e, _, _ := newTestEngine(t)
	taskA := mustTask(t, e, "/repo/a")
	taskB := mustTask(t, e, "/repo/b")

	for i := int64(1); i <= 3; i++ {
		effort := mustEffort(t, e, taskA, "build")
		if effort.Ordinal != i {
			t.Errorf("task A effort %d: ordinal = %d", i, effort.Ordinal)
		}
		if effort.Lifecycle != protocol.LifecycleActive {
			t.Errorf("new effort lifecycle = %q", effort.Lifecycle)
		}
	}

	// Ordinals are scoped per task, not global.
	if got := mustEffort(t, e, taskB, "review").Ordinal; got != 1 {
		t.Errorf("task B first ordinal = %d, want 1", got)
	}
}

func TestEffortStart_OrdinalGapNeverBackfilled(t *testing.T) {
	e, db, _ := newTestEngine(t)
	ctx := context.Background()
	taskID := mustTask(t, e, "/repo/a")

	mustEffort(t, e, taskID, "build")
	second := mustEffort(t, e, taskID, "build")
	third := mustEffort(t, e, taskID, "build")

	// Simulate an out-of-band removal of a middle ordinal.
	if _, err := db.Exec(`DELETE FROM efforts WHERE id = ?`, second.ID); err != nil {
		t.Fatalf("delete effort: %v", err)
	}

	next, err := e.EffortStart(ctx, EffortStartArgs{TaskID: taskID, Skill: "build"})
	if err != nil {
		t.Fatalf("effort.start: %v", err)
	}
	if next.Ordinal != third.Ordinal+1 {
		t.Errorf("ordinal after gap = %d, want %d (max surviving + 1, gap stays)", next.Ordinal, third.Ordinal+1)
	}
}

func TestEffortFinish_OneWayLifecycle(t *testing.T) {
	e, _, _ := newTestEngine(t)
	ctx := context.Background()
	taskID := mustTask(t, e, "/repo/a")
	effort := mustEffort(t, e, taskID, "build")

	finished, err := e.EffortFinish(ctx, EffortFinishArgs{EffortID: effort.ID})
	if err != nil {
		t.Fatalf("effort.finish: %v", err)
	}
	if finished.Lifecycle != protocol.LifecycleFinished {
		t.Errorf("lifecycle = %q", finished.Lifecycle)
	}
	if finished.FinishedAt == "" {
		t.Error("finished_at not set")
	}

	// Finishing again is an explicit fault, never silently absorbed.
	_, err = e.EffortFinish(ctx, EffortFinishArgs{EffortID: effort.ID})
	var fault *protocol.Fault
	if !errors.As(err, &fault) || fault.Code != protocol.FaultAlreadyFinished {
		t.Fatalf("second finish: got %v, want ALREADY_FINISHED fault", err)
	}
}

func TestEffortFinish_UnknownEffort(t *testing.T) {
	e, _, _ := newTestEngine(t)

	_, err := e.EffortFinish(context.Background(), EffortFinishArgs{EffortID: 999})
	var fault *protocol.Fault
	if !errors.As(err, &fault) || fault.Code != protocol.FaultNotFound {
		t.Fatalf("got %v, want NOT_FOUND fault", err)
	}
}

func TestEffortFinish_KeywordsAccumulateOnTask(t *testing.T) {
	e, _, _ := newTestEngine(t)
	ctx := context.Background()
	taskID := mustTask(t, e, "/repo/a")

	first := mustEffort(t, e, taskID, "build")
	if _, err := e.EffortFinish(ctx, EffortFinishArgs{EffortID: first.ID, Keywords: []string{"auth", "sqlite"}}); err != nil {
		t.Fatalf("finish 1: %v", err)
	}
	second := mustEffort(t, e, taskID, "review")
	if _, err := e.EffortFinish(ctx, EffortFinishArgs{EffortID: second.ID, Keywords: []string{"sqlite", "uds"}}); err != nil {
		t.Fatalf("finish 2: %v", err)
	}

	task, err := e.st.Task(ctx, taskID)
	if err != nil {
		t.Fatalf("task lookup: %v", err)
	}
	want := `["auth","sqlite","uds"]`
	if task.Keywords != want {
		t.Errorf("keywords = %s, want %s (deduped, first-seen order)", task.Keywords, want)
	}
}

func TestEffortList_OrderedByOrdinal(t *testing.T) {
	e, _, _ := newTestEngine(t)
	taskID := mustTask(t, e, "/repo/a")
	mustEffort(t, e, taskID, "plan")
	mustEffort(t, e, taskID, "build")
	mustEffort(t, e, taskID, "review")

	efforts, err := e.EffortList(context.Background(), EffortListArgs{TaskID: taskID})
	if err != nil {
		t.Fatalf("effort.list: %v", err)
	}
	if len(efforts) != 3 {
		t.Fatalf("got %d efforts", len(efforts))
	}
	for i, effort := range efforts {
		if effort.Ordinal != int64(i+1) {
			t.Errorf("position %d: ordinal %d", i, effort.Ordinal)
		}
	}
}

func TestEffortGet_AbsenceIsNil(t *testing.T) {
	e, _, _ := newTestEngine(t)

	effort, err := e.EffortGet(context.Background(), EffortGetArgs{EffortID: 42})
	if err != nil {
		t.Fatalf("effort.get: %v", err)
	}
	if effort != nil {
		t.Errorf("expected nil for unknown effort, got %+v", effort)
	}
}

func TestEffortFindActive_AgentTierWinsOverLatest(t *testing.T) {
	e, _, _ := newTestEngine(t)
	ctx := context.Background()
	taskID := mustTask(t, e, "/repo/a")

	project, err := e.st.ProjectByPath(ctx, "/repo/a")
	if err != nil || project == nil {
		t.Fatalf("project lookup: %v", err)
	}

	older := mustEffort(t, e, taskID, "build")
	newer := mustEffort(t, e, taskID, "review")

	if _, err := e.AgentRegister(ctx, AgentRegisterArgs{ID: "agent-1", EffortID: older.ID}); err != nil {
		t.Fatalf("agents.register: %v", err)
	}

	// Without an agent the latest active effort wins.
	got, err := e.EffortFindActive(ctx, EffortFindActiveArgs{ProjectID: project.ID})
	if err != nil {
		t.Fatalf("findActive: %v", err)
	}
	if got == nil || got.ID != newer.ID {
		t.Fatalf("default tier = %+v, want latest effort %d", got, newer.ID)
	}

	// With a bound agent, its binding wins even though it is older.
	got, err = e.EffortFindActive(ctx, EffortFindActiveArgs{ProjectID: project.ID, AgentID: "agent-1"})
	if err != nil {
		t.Fatalf("findActive agent: %v", err)
	}
	if got == nil || got.ID != older.ID {
		t.Fatalf("agent tier = %+v, want bound effort %d", got, older.ID)
	}
}

func TestEffortFindActive_UnknownAgentFallsThrough(t *testing.T) {
	e, _, _ := newTestEngine(t)
	ctx := context.Background()
	taskID := mustTask(t, e, "/repo/a")
	effort := mustEffort(t, e, taskID, "build")

	project, _ := e.st.ProjectByPath(ctx, "/repo/a")

	got, err := e.EffortFindActive(ctx, EffortFindActiveArgs{ProjectID: project.ID, AgentID: "ghost"})
	if err != nil {
		t.Fatalf("findActive: %v", err)
	}
	if got == nil || got.ID != effort.ID {
		t.Fatalf("unknown agent should fall through to latest, got %+v", got)
	}
}

func TestEffortFindActive_RequiredFault(t *testing.T) {
	e, _, _ := newTestEngine(t)
	ctx := context.Background()
	mustTask(t, e, "/repo/a")
	project, _ := e.st.ProjectByPath(ctx, "/repo/a")

	// Nothing active and not required: nil, no error.
	got, err := e.EffortFindActive(ctx, EffortFindActiveArgs{ProjectID: project.ID})
	if err != nil || got != nil {
		t.Fatalf("got (%+v, %v), want (nil, nil)", got, err)
	}

	// Required turns the empty result into a fault.
	_, err = e.EffortFindActive(ctx, EffortFindActiveArgs{ProjectID: project.ID, Required: true})
	var fault *protocol.Fault
	if !errors.As(err, &fault) || fault.Code != protocol.FaultNoActiveEffort {
		t.Fatalf("got %v, want NO_ACTIVE_EFFORT fault", err)
	}
}

func TestEffortFindActive_FinishedEffortsInvisible(t *testing.T) {
	e, _, _ := newTestEngine(t)
	ctx := context.Background()
	taskID := mustTask(t, e, "/repo/a")
	effort := mustEffort(t, e, taskID, "build")
	project, _ := e.st.ProjectByPath(ctx, "/repo/a")

	if _, err := e.EffortFinish(ctx, EffortFinishArgs{EffortID: effort.ID}); err != nil {
		t.Fatalf("finish: %v", err)
	}

	got, err := e.EffortFindActive(ctx, EffortFindActiveArgs{ProjectID: project.ID})
	if err != nil {
		t.Fatalf("findActive: %v", err)
	}
	if got != nil {
		t.Errorf("finished effort still resolves: %+v", got)
	}
}

func TestEffortMetadata_RemoveThenSetOrder(t *testing.T) {
	e, _, _ := newTestEngine(t)
	ctx := context.Background()
	taskID := mustTask(t, e, "/repo/a")

	effort, err := e.EffortStart(ctx, EffortStartArgs{
		TaskID:   taskID,
		Skill:    "build",
		Metadata: map[string]any{"step": "one", "branch": "main"},
	})
	if err != nil {
		t.Fatalf("effort.start: %v", err)
	}

	// Removing and setting the same key in one patch: set wins because
	// removes apply first.
	meta, err := e.EffortUpdateMetadata(ctx, EffortUpdateMetadataArgs{
		EffortID: effort.ID,
		Remove:   []string{"step", "branch"},
		Set:      map[string]any{"step": "two"},
	})
	if err != nil {
		t.Fatalf("updateMetadata: %v", err)
	}
	if meta["step"] != "two" {
		t.Errorf("step = %v, want %q", meta["step"], "two")
	}
	if _, ok := meta["branch"]; ok {
		t.Error("branch should have been removed")
	}

	// The patch persisted.
	stored, err := e.EffortGetMetadata(ctx, EffortGetMetadataArgs{EffortID: effort.ID})
	if err != nil {
		t.Fatalf("getMetadata: %v", err)
	}
	if stored["step"] != "two" || len(stored) != 1 {
		t.Errorf("stored metadata = %v", stored)
	}
}

func TestEffortUpdateMetadata_PhaseMarker(t *testing.T) {
	e, _, _ := newTestEngine(t)
	ctx := context.Background()
	taskID := mustTask(t, e, "/repo/a")
	effort := mustEffort(t, e, taskID, "build")

	phase := "implementation"
	if _, err := e.EffortUpdateMetadata(ctx, EffortUpdateMetadataArgs{EffortID: effort.ID, Phase: &phase}); err != nil {
		t.Fatalf("updateMetadata: %v", err)
	}

	got, err := e.EffortGet(ctx, EffortGetArgs{EffortID: effort.ID})
	if err != nil {
		t.Fatalf("effort.get: %v", err)
	}
	if got.Phase != "implementation" {
		t.Errorf("phase = %q", got.Phase)
	}

	// A pointer to the empty string clears it; a nil pointer leaves it alone.
	clear := ""
	if _, err := e.EffortUpdateMetadata(ctx, EffortUpdateMetadataArgs{EffortID: effort.ID, Phase: &clear}); err != nil {
		t.Fatalf("clear phase: %v", err)
	}
	got, _ = e.EffortGet(ctx, EffortGetArgs{EffortID: effort.ID})
	if got.Phase != "" {
		t.Errorf("phase after clear = %q", got.Phase)
	}
}
