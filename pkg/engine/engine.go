// Package engine implements the effort/session/agent/message lifecycle
// handlers and the resolver. Every invariant lives here: ordinal
// assignment, the one-way effort lifecycle, the at-most-one-open-session
// rule, agent-to-effort binding, and append-only transcripts. Handlers are
// methods on Engine and compose by calling each other directly, so a
// composite operation never leaves the serialized turn it started in.
//
// All handlers follow guard-before-mutate: every failure they report is
// checked before the first write, so a domain fault never needs a rollback.
package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"stint/pkg/protocol"
	"stint/pkg/store"
)

// EffectSink receives staged non-transactional side effects. Satisfied by
// *dispatch.Effects; nil when the caller runs without the effects
// middleware.
type EffectSink interface {
	Stage(name string, fn func() error)
}

// Engine executes lifecycle operations against a Store. One Engine is bound
// per request so that st sees the request's transaction.
type Engine struct {
	st      *store.Store
	nowFunc func() time.Time
	connID  string
	effects EffectSink

	// dehydrationDir is where session.finish mirrors dehydration
	// snapshots post-commit. Empty disables the mirror.
	dehydrationDir string
}

// Config holds the per-process pieces of an Engine; the per-request pieces
// (store binding, effects, connection id) come from the dispatch context.
type Config struct {
	Now            func() time.Time
	DehydrationDir string
}

// New creates an Engine over st. A nil now falls back to time.Now.
func New(st *store.Store, cfg Config) *Engine {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Engine{st: st, nowFunc: now, dehydrationDir: cfg.DehydrationDir}
}

// now returns the current time in the store's timestamp format.
func (e *Engine) now() string {
	return protocol.FormatTime(e.nowFunc())
}

// logEvent appends an audit event inside the request transaction.
// Best-effort by design of the audit trail, but any store error here still
// fails the command: a half-audited mutation must not commit.
func (e *Engine) logEvent(ctx context.Context, evType string, effortID, sessionID int64, payload string) error {
	return e.st.AppendEvent(ctx, protocol.Event{
		Type:      evType,
		ConnID:    e.connID,
		EffortID:  effortID,
		SessionID: sessionID,
		Payload:   payload,
	})
}

// parseList decodes a JSON array column into a string slice.
func parseList(s string) []string {
	if s == "" {
		return nil
	}
	var list []string
	if err := json.Unmarshal([]byte(s), &list); err != nil {
		return nil
	}
	return list
}

// marshalJSON renders v as a JSON string, failing loudly rather than
// persisting a truncated value.
func marshalJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("marshal json: %w", err)
	}
	return string(b), nil
}
