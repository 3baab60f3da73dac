package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"stint/pkg/protocol"
	"stint/pkg/store"
)

// SessionStartArgs are the arguments for session.start.
type SessionStartArgs struct {
	TaskID        string `json:"taskId"`
	EffortID      int64  `json:"effortId"`
	PID           int64  `json:"pid,omitempty"`
	PrevSessionID int64  `json:"prevSessionId,omitempty"`
}

// Validate reports field-level issues.
func (a SessionStartArgs) Validate() []protocol.Issue {
	var issues []protocol.Issue
	if a.TaskID == "" {
		issues = append(issues, protocol.Issue{Field: "taskId", Message: "required"})
	}
	if a.EffortID == 0 {
		issues = append(issues, protocol.Issue{Field: "effortId", Message: "required"})
	}
	return issues
}

// SessionStart opens a new session for an effort. If the effort already has
// an open session — a crashed process never calls finish — it is force-ended
// first, unconditionally preserving the at-most-one-open-session invariant.
// The auto-ended session becomes the new session's predecessor unless the
// caller supplied an explicit prevSessionId, and its discovered
// directives/directories carry over so a continuation does not rediscover
// static context.
func (e *Engine) SessionStart(ctx context.Context, a SessionStartArgs) (*protocol.Session, error) {
	open, err := e.st.OpenSessionByEffort(ctx, a.EffortID)
	if err != nil {
		return nil, err
	}

	params := store.CreateSessionParams{
		EffortID:      a.EffortID,
		TaskID:        a.TaskID,
		PrevSessionID: a.PrevSessionID,
		PID:           a.PID,
		Now:           e.now(),
	}

	if open != nil {
		if err := e.st.EndSession(ctx, open.ID, e.now(), ""); err != nil {
			return nil, err
		}
		if err := e.logEvent(ctx, "session_force_ended", a.EffortID, open.ID, ""); err != nil {
			return nil, err
		}
		if params.PrevSessionID == 0 {
			params.PrevSessionID = open.ID
		}
		params.DiscoveredDirectives = parseList(open.DiscoveredDirectives)
		params.DiscoveredDirectories = parseList(open.DiscoveredDirectories)
	}

	sess, err := e.st.CreateSession(ctx, params)
	if err != nil {
		return nil, err
	}
	if err := e.logEvent(ctx, "session_started", a.EffortID, sess.ID,
		fmt.Sprintf(`{"pid":%d,"prev":%d}`, a.PID, params.PrevSessionID)); err != nil {
		return nil, err
	}
	return sess, nil
}

// SessionFinishArgs are the arguments for session.finish.
type SessionFinishArgs struct {
	SessionID   int64           `json:"sessionId"`
	Dehydration json.RawMessage `json:"dehydration,omitempty"` // opaque snapshot
}

// Validate reports field-level issues.
func (a SessionFinishArgs) Validate() []protocol.Issue {
	var issues []protocol.Issue
	if a.SessionID == 0 {
		issues = append(issues, protocol.Issue{Field: "sessionId", Message: "required"})
	}
	return issues
}

// SessionFinish ends a session and stores the dehydration snapshot, if any,
// for the next continuation in the chain to resume from. When the effects
// buffer is present the snapshot is also mirrored to a file after the
// transaction commits.
func (e *Engine) SessionFinish(ctx context.Context, a SessionFinishArgs) (*protocol.Session, error) {
	sess, err := e.st.Session(ctx, a.SessionID)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, protocol.NotFoundf("session %d not found", a.SessionID)
	}
	if sess.EndedAt != "" {
		return nil, protocol.AlreadyEndedf("session %d already ended", a.SessionID)
	}

	dehydration := string(a.Dehydration)
	if err := e.st.EndSession(ctx, a.SessionID, e.now(), dehydration); err != nil {
		return nil, err
	}
	if err := e.logEvent(ctx, "session_finished", sess.EffortID, a.SessionID, ""); err != nil {
		return nil, err
	}

	if dehydration != "" && e.effects != nil && e.dehydrationDir != "" {
		dir := e.dehydrationDir
		path := filepath.Join(dir, fmt.Sprintf("session-%d.json", a.SessionID))
		snapshot := []byte(dehydration)
		e.effects.Stage("dehydration-mirror", func() error {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("mkdir %s: %w", dir, err)
			}
			if err := os.WriteFile(path, snapshot, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", path, err)
			}
			return nil
		})
	}

	return e.st.Session(ctx, a.SessionID)
}

// SessionHeartbeatArgs are the arguments for session.heartbeat.
type SessionHeartbeatArgs struct {
	SessionID int64                    `json:"sessionId"`
	Action    protocol.HeartbeatAction `json:"action"`
}

// Validate reports field-level issues.
func (a SessionHeartbeatArgs) Validate() []protocol.Issue {
	var issues []protocol.Issue
	if a.SessionID == 0 {
		issues = append(issues, protocol.Issue{Field: "sessionId", Message: "required"})
	}
	if !a.Action.Valid() {
		issues = append(issues, protocol.Issue{Field: "action", Message: "must be increment or reset"})
	}
	return issues
}

// SessionHeartbeat bumps or zeroes the liveness counter. Increment is the
// highest-frequency operation in the system — one per externally observed
// unit of agent activity; reset happens on phase transitions, giving a
// fresh activity budget. Both refresh the timestamp; it never moves
// backwards.
func (e *Engine) SessionHeartbeat(ctx context.Context, a SessionHeartbeatArgs) (*protocol.Session, error) {
	sess, err := e.st.Session(ctx, a.SessionID)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, protocol.NotFoundf("session %d not found", a.SessionID)
	}

	switch a.Action {
	case protocol.HeartbeatIncrement:
		err = e.st.IncrementHeartbeat(ctx, a.SessionID, e.now())
	case protocol.HeartbeatReset:
		err = e.st.ResetHeartbeat(ctx, a.SessionID, e.now())
	}
	if err != nil {
		return nil, err
	}
	return e.st.Session(ctx, a.SessionID)
}

// SessionFindArgs are the arguments for session.find.
type SessionFindArgs struct {
	EffortID int64 `json:"effortId"`
}

// Validate reports field-level issues.
func (a SessionFindArgs) Validate() []protocol.Issue {
	var issues []protocol.Issue
	if a.EffortID == 0 {
		issues = append(issues, protocol.Issue{Field: "effortId", Message: "required"})
	}
	return issues
}

// SessionFind returns the effort's open session or nil. Absence is data.
func (e *Engine) SessionFind(ctx context.Context, a SessionFindArgs) (*protocol.Session, error) {
	return e.st.OpenSessionByEffort(ctx, a.EffortID)
}

// SessionGetArgs are the arguments for session.get.
type SessionGetArgs struct {
	SessionID int64 `json:"sessionId"`
}

// Validate reports field-level issues.
func (a SessionGetArgs) Validate() []protocol.Issue {
	var issues []protocol.Issue
	if a.SessionID == 0 {
		issues = append(issues, protocol.Issue{Field: "sessionId", Message: "required"})
	}
	return issues
}

// SessionGet returns a session or nil. Absence is data.
func (e *Engine) SessionGet(ctx context.Context, a SessionGetArgs) (*protocol.Session, error) {
	return e.st.Session(ctx, a.SessionID)
}

// SessionContextUsageArgs are the arguments for session.updateContextUsage.
type SessionContextUsageArgs struct {
	SessionID int64   `json:"sessionId"`
	Usage     float64 `json:"usage"`
}

// Validate reports field-level issues.
func (a SessionContextUsageArgs) Validate() []protocol.Issue {
	var issues []protocol.Issue
	if a.SessionID == 0 {
		issues = append(issues, protocol.Issue{Field: "sessionId", Message: "required"})
	}
	if a.Usage < 0 || a.Usage > 1 {
		issues = append(issues, protocol.Issue{Field: "usage", Message: "must be in [0,1]"})
	}
	return issues
}

// SessionUpdateContextUsage stores the context-fill fraction pushed by an
// external status reporter. Overflow detection consumes it outside this
// core.
func (e *Engine) SessionUpdateContextUsage(ctx context.Context, a SessionContextUsageArgs) (*protocol.Session, error) {
	sess, err := e.st.Session(ctx, a.SessionID)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, protocol.NotFoundf("session %d not found", a.SessionID)
	}
	if err := e.st.SetContextUsage(ctx, a.SessionID, a.Usage); err != nil {
		return nil, err
	}
	return e.st.Session(ctx, a.SessionID)
}

// SessionLoadedFilesArgs are the arguments for session.updateLoadedFiles.
type SessionLoadedFilesArgs struct {
	SessionID int64    `json:"sessionId"`
	Files     []string `json:"files"`
}

// Validate reports field-level issues.
func (a SessionLoadedFilesArgs) Validate() []protocol.Issue {
	var issues []protocol.Issue
	if a.SessionID == 0 {
		issues = append(issues, protocol.Issue{Field: "sessionId", Message: "required"})
	}
	return issues
}

// SessionUpdateLoadedFiles replaces the loaded-file manifest wholesale:
// the caller owns the full picture of what the agent has consumed.
func (e *Engine) SessionUpdateLoadedFiles(ctx context.Context, a SessionLoadedFilesArgs) (*protocol.Session, error) {
	sess, err := e.st.Session(ctx, a.SessionID)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, protocol.NotFoundf("session %d not found", a.SessionID)
	}
	if err := e.st.SetLoadedFiles(ctx, a.SessionID, a.Files); err != nil {
		return nil, err
	}
	return e.st.Session(ctx, a.SessionID)
}

// SessionPreloadedFilesArgs are the arguments for session.updatePreloadedFiles.
type SessionPreloadedFilesArgs struct {
	SessionID int64    `json:"sessionId"`
	Add       []string `json:"add"`
}

// Validate reports field-level issues.
func (a SessionPreloadedFilesArgs) Validate() []protocol.Issue {
	var issues []protocol.Issue
	if a.SessionID == 0 {
		issues = append(issues, protocol.Issue{Field: "sessionId", Message: "required"})
	}
	return issues
}

// SessionUpdatePreloadedFiles merges paths into the preload queue. A path
// the agent already read does not need preloading, and a path already
// queued is not duplicated.
func (e *Engine) SessionUpdatePreloadedFiles(ctx context.Context, a SessionPreloadedFilesArgs) (*protocol.Session, error) {
	sess, err := e.st.Session(ctx, a.SessionID)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, protocol.NotFoundf("session %d not found", a.SessionID)
	}

	seen := make(map[string]struct{})
	for _, f := range parseList(sess.LoadedFiles) {
		seen[f] = struct{}{}
	}
	preloaded := parseList(sess.PreloadedFiles)
	for _, f := range preloaded {
		seen[f] = struct{}{}
	}
	for _, f := range a.Add {
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		preloaded = append(preloaded, f)
	}

	if err := e.st.SetPreloadedFiles(ctx, a.SessionID, preloaded); err != nil {
		return nil, err
	}
	return e.st.Session(ctx, a.SessionID)
}

// SessionInjectionsArgs are the arguments for session.updateInjections.
type SessionInjectionsArgs struct {
	SessionID      int64                `json:"sessionId"`
	Add            []protocol.Injection `json:"add,omitempty"`
	RemoveByRuleID []string             `json:"removeByRuleId,omitempty"`
	ClearAll       bool                 `json:"clearAll,omitempty"`
}

// Validate reports field-level issues.
func (a SessionInjectionsArgs) Validate() []protocol.Issue {
	var issues []protocol.Issue
	if a.SessionID == 0 {
		issues = append(issues, protocol.Issue{Field: "sessionId", Message: "required"})
	}
	return issues
}

// SessionUpdateInjections mutates the pending-injection queue in the fixed
// order clearAll -> removeByRuleId -> add, and returns the resulting queue.
func (e *Engine) SessionUpdateInjections(ctx context.Context, a SessionInjectionsArgs) ([]protocol.Injection, error) {
	sess, err := e.st.Session(ctx, a.SessionID)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, protocol.NotFoundf("session %d not found", a.SessionID)
	}

	queue := parseInjections(sess.Injections)
	if a.ClearAll {
		queue = nil
	}
	if len(a.RemoveByRuleID) > 0 {
		drop := make(map[string]struct{}, len(a.RemoveByRuleID))
		for _, id := range a.RemoveByRuleID {
			drop[id] = struct{}{}
		}
		kept := queue[:0]
		for _, inj := range queue {
			if _, ok := drop[inj.RuleID]; !ok {
				kept = append(kept, inj)
			}
		}
		queue = kept
	}
	queue = append(queue, a.Add...)

	encoded, err := marshalJSON(queue)
	if err != nil {
		return nil, err
	}
	if err := e.st.SetInjections(ctx, a.SessionID, encoded); err != nil {
		return nil, err
	}
	if queue == nil {
		queue = []protocol.Injection{}
	}
	return queue, nil
}

// SessionGetInjectionsArgs are the arguments for session.getInjections.
type SessionGetInjectionsArgs struct {
	SessionID int64 `json:"sessionId"`
}

// Validate reports field-level issues.
func (a SessionGetInjectionsArgs) Validate() []protocol.Issue {
	var issues []protocol.Issue
	if a.SessionID == 0 {
		issues = append(issues, protocol.Issue{Field: "sessionId", Message: "required"})
	}
	return issues
}

// SessionGetInjections is the read-only view of the pending queue.
func (e *Engine) SessionGetInjections(ctx context.Context, a SessionGetInjectionsArgs) ([]protocol.Injection, error) {
	sess, err := e.st.Session(ctx, a.SessionID)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, protocol.NotFoundf("session %d not found", a.SessionID)
	}
	queue := parseInjections(sess.Injections)
	if queue == nil {
		queue = []protocol.Injection{}
	}
	return queue, nil
}

// SessionSetTranscriptArgs are the arguments for session.setTranscript.
type SessionSetTranscriptArgs struct {
	SessionID int64  `json:"sessionId"`
	Path      string `json:"path"`
	Offset    int64  `json:"offset,omitempty"`
}

// Validate reports field-level issues.
func (a SessionSetTranscriptArgs) Validate() []protocol.Issue {
	var issues []protocol.Issue
	if a.SessionID == 0 {
		issues = append(issues, protocol.Issue{Field: "sessionId", Message: "required"})
	}
	if a.Path == "" {
		issues = append(issues, protocol.Issue{Field: "path", Message: "required"})
	}
	if a.Offset < 0 {
		issues = append(issues, protocol.Issue{Field: "offset", Message: "must be >= 0"})
	}
	return issues
}

// SessionSetTranscript records where the host's transcript for this session
// lives and how far it has been consumed.
func (e *Engine) SessionSetTranscript(ctx context.Context, a SessionSetTranscriptArgs) (*protocol.Session, error) {
	sess, err := e.st.Session(ctx, a.SessionID)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, protocol.NotFoundf("session %d not found", a.SessionID)
	}
	if err := e.st.SetTranscript(ctx, a.SessionID, a.Path, a.Offset); err != nil {
		return nil, err
	}
	return e.st.Session(ctx, a.SessionID)
}

// parseInjections decodes an injections column.
func parseInjections(s string) []protocol.Injection {
	if s == "" {
		return nil
	}
	var queue []protocol.Injection
	if err := json.Unmarshal([]byte(s), &queue); err != nil {
		return nil
	}
	return queue
}
