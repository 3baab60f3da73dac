package engine

import (
	"context"
	"testing"
)

func TestResolve_FullChain(t *testing.T) {
	e, _, _ := newTestEngine(t)
	ctx := context.Background()
	taskID := mustTask(t, e, "/repo/a")
	effort := mustEffort(t, e, taskID, "build")
	sess := mustSession(t, e, taskID, effort.ID)

	ids, err := e.Resolve(ctx, ResolveArgs{Cwd: "/repo/a"})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if ids.ProjectID == nil || ids.TaskID == nil || ids.EffortID == nil || ids.SessionID == nil {
		t.Fatalf("partial resolution: %+v", ids)
	}
	if *ids.TaskID != taskID || *ids.EffortID != effort.ID || *ids.SessionID != sess.ID {
		t.Errorf("ids = %+v", ids)
	}
}

func TestResolve_UnknownPathIsAllNull(t *testing.T) {
	e, _, _ := newTestEngine(t)

	ids, err := e.Resolve(context.Background(), ResolveArgs{Cwd: "/nowhere"})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if ids.ProjectID != nil || ids.TaskID != nil || ids.EffortID != nil || ids.SessionID != nil {
		t.Errorf("expected all-null resolution, got %+v", ids)
	}
}

func TestResolve_StopsAtFirstMissingLink(t *testing.T) {
	e, _, _ := newTestEngine(t)
	ctx := context.Background()
	taskID := mustTask(t, e, "/repo/a")
	effort := mustEffort(t, e, taskID, "build")

	// Project and effort exist, but no session is open.
	ids, err := e.Resolve(ctx, ResolveArgs{Cwd: "/repo/a"})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if ids.ProjectID == nil || ids.EffortID == nil {
		t.Fatalf("upper links missing: %+v", ids)
	}
	if *ids.EffortID != effort.ID {
		t.Errorf("effort = %d", *ids.EffortID)
	}
	if ids.SessionID != nil {
		t.Errorf("session should be null, got %d", *ids.SessionID)
	}

	// Finish the effort: resolution now stops at the project.
	if _, err := e.EffortFinish(ctx, EffortFinishArgs{EffortID: effort.ID}); err != nil {
		t.Fatalf("finish: %v", err)
	}
	ids, err = e.Resolve(ctx, ResolveArgs{Cwd: "/repo/a"})
	if err != nil {
		t.Fatalf("resolve 2: %v", err)
	}
	if ids.ProjectID == nil || ids.EffortID != nil || ids.SessionID != nil {
		t.Errorf("resolution after finish = %+v", ids)
	}
}

func TestResolve_AgentScoped(t *testing.T) {
	e, _, _ := newTestEngine(t)
	ctx := context.Background()
	taskID := mustTask(t, e, "/repo/a")
	mine := mustEffort(t, e, taskID, "build")
	mustEffort(t, e, taskID, "review") // newer, but bound to nobody

	if _, err := e.AgentRegister(ctx, AgentRegisterArgs{ID: "agent-1", EffortID: mine.ID}); err != nil {
		t.Fatalf("register: %v", err)
	}

	ids, err := e.Resolve(ctx, ResolveArgs{Cwd: "/repo/a", AgentID: "agent-1"})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if ids.EffortID == nil || *ids.EffortID != mine.ID {
		t.Errorf("agent-scoped resolution = %+v, want effort %d", ids, mine.ID)
	}
}
