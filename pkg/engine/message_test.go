package engine

import (
	"context"
	"errors"
	"testing"

	"stint/pkg/protocol"
)

func TestMessageAppend_RequiresSession(t *testing.T) {
	e, _, _ := newTestEngine(t)

	_, err := e.MessageAppend(context.Background(), MessageAppendArgs{
		SessionID: 99, Role: "assistant", Content: "hello",
	})
	var fault *protocol.Fault
	if !errors.As(err, &fault) || fault.Code != protocol.FaultNotFound {
		t.Fatalf("got %v, want NOT_FOUND fault", err)
	}
}

func TestMessageList_InsertionOrder(t *testing.T) {
	e, _, _ := newTestEngine(t)
	ctx := context.Background()
	taskID := mustTask(t, e, "/repo/a")
	effort := mustEffort(t, e, taskID, "build")
	sess := mustSession(t, e, taskID, effort.ID)

	for _, content := range []string{"one", "two", "three"} {
		if _, err := e.MessageAppend(ctx, MessageAppendArgs{
			SessionID: sess.ID, Role: "assistant", Content: content,
		}); err != nil {
			t.Fatalf("append %s: %v", content, err)
		}
	}

	msgs, err := e.MessageList(ctx, MessageListArgs{SessionID: sess.ID})
	if err != nil {
		t.Fatalf("messages.list: %v", err)
	}
	if len(msgs) != 3 {
		t.Fatalf("got %d messages", len(msgs))
	}
	for i, want := range []string{"one", "two", "three"} {
		if msgs[i].Content != want {
			t.Errorf("position %d: %q, want %q", i, msgs[i].Content, want)
		}
	}
}

func TestMessageUpsert_ReplacesInPlace(t *testing.T) {
	e, _, _ := newTestEngine(t)
	ctx := context.Background()
	taskID := mustTask(t, e, "/repo/a")
	effort := mustEffort(t, e, taskID, "build")
	sess := mustSession(t, e, taskID, effort.ID)

	first, err := e.MessageUpsert(ctx, MessageUpsertArgs{
		SessionID: sess.ID, Role: "assistant", Content: "streaming...",
	})
	if err != nil {
		t.Fatalf("upsert append: %v", err)
	}
	second, err := e.MessageAppend(ctx, MessageAppendArgs{
		SessionID: sess.ID, Role: "user", Content: "ok",
	})
	if err != nil {
		t.Fatalf("append: %v", err)
	}

	// Finalize the streamed entry: content changes, id and order do not.
	final, err := e.MessageUpsert(ctx, MessageUpsertArgs{
		ID: first.ID, SessionID: sess.ID, Role: "assistant", Content: "final text", Tool: "Edit",
	})
	if err != nil {
		t.Fatalf("upsert replace: %v", err)
	}
	if final.ID != first.ID {
		t.Errorf("id changed: %d -> %d", first.ID, final.ID)
	}

	msgs, err := e.MessageList(ctx, MessageListArgs{SessionID: sess.ID})
	if err != nil {
		t.Fatalf("messages.list: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("got %d messages", len(msgs))
	}
	if msgs[0].Content != "final text" || msgs[0].Tool != "Edit" {
		t.Errorf("msgs[0] = %+v", msgs[0])
	}
	if msgs[1].ID != second.ID {
		t.Errorf("order disturbed: %+v", msgs)
	}
}

func TestMessageUpsert_UnknownIDFaults(t *testing.T) {
	e, _, _ := newTestEngine(t)
	ctx := context.Background()
	taskID := mustTask(t, e, "/repo/a")
	effort := mustEffort(t, e, taskID, "build")
	sess := mustSession(t, e, taskID, effort.ID)

	_, err := e.MessageUpsert(ctx, MessageUpsertArgs{
		ID: 777, SessionID: sess.ID, Role: "assistant", Content: "x",
	})
	var fault *protocol.Fault
	if !errors.As(err, &fault) || fault.Code != protocol.FaultNotFound {
		t.Fatalf("got %v, want NOT_FOUND fault", err)
	}
}
