package engine

import (
	"context"
	"encoding/json"
	"fmt"

	"stint/pkg/protocol"
	"stint/pkg/store"
)

// EffortStartArgs are the arguments for effort.start.
type EffortStartArgs struct {
	TaskID   string         `json:"taskId"`
	Skill    string         `json:"skill"`
	Mode     string         `json:"mode,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Validate reports field-level issues.
func (a EffortStartArgs) Validate() []protocol.Issue {
	var issues []protocol.Issue
	if a.TaskID == "" {
		issues = append(issues, protocol.Issue{Field: "taskId", Message: "required"})
	}
	if a.Skill == "" {
		issues = append(issues, protocol.Issue{Field: "skill", Message: "required"})
	}
	return issues
}

// EffortStart creates a new active effort with the next ordinal for its
// task. Ordinal assignment and insert happen within one serialized turn, so
// two starts for the same task can never collide; if a prior effort was
// removed out of band the next ordinal is max(surviving)+1 — gaps are never
// backfilled.
func (e *Engine) EffortStart(ctx context.Context, a EffortStartArgs) (*protocol.Effort, error) {
	max, err := e.st.MaxOrdinal(ctx, a.TaskID)
	if err != nil {
		return nil, err
	}

	meta := "{}"
	if a.Metadata != nil {
		if meta, err = marshalJSON(a.Metadata); err != nil {
			return nil, err
		}
	}

	effort, err := e.st.CreateEffort(ctx, store.CreateEffortParams{
		TaskID:   a.TaskID,
		Skill:    a.Skill,
		Mode:     a.Mode,
		Ordinal:  max + 1,
		Metadata: meta,
		Now:      e.now(),
	})
	if err != nil {
		return nil, err
	}

	if err := e.logEvent(ctx, "effort_started", effort.ID, 0,
		fmt.Sprintf(`{"skill":%q,"ordinal":%d}`, effort.Skill, effort.Ordinal)); err != nil {
		return nil, err
	}
	return effort, nil
}

// EffortFinishArgs are the arguments for effort.finish.
type EffortFinishArgs struct {
	EffortID int64    `json:"effortId"`
	Keywords []string `json:"keywords,omitempty"`
}

// Validate reports field-level issues.
func (a EffortFinishArgs) Validate() []protocol.Issue {
	var issues []protocol.Issue
	if a.EffortID == 0 {
		issues = append(issues, protocol.Issue{Field: "effortId", Message: "required"})
	}
	return issues
}

// EffortFinish transitions an effort active -> finished, one way. Finishing
// an already-finished effort is surfaced as an explicit fault, never
// silently absorbed. Keywords, if supplied, accumulate on the owning task.
func (e *Engine) EffortFinish(ctx context.Context, a EffortFinishArgs) (*protocol.Effort, error) {
	effort, err := e.st.Effort(ctx, a.EffortID)
	if err != nil {
		return nil, err
	}
	if effort == nil {
		return nil, protocol.NotFoundf("effort %d not found", a.EffortID)
	}
	if effort.Lifecycle == protocol.LifecycleFinished {
		return nil, protocol.AlreadyFinishedf("effort %d already finished", a.EffortID)
	}

	if err := e.st.FinishEffort(ctx, a.EffortID, e.now()); err != nil {
		return nil, err
	}
	if len(a.Keywords) > 0 {
		if err := e.st.AddTaskKeywords(ctx, effort.TaskID, a.Keywords); err != nil {
			return nil, err
		}
	}
	if err := e.logEvent(ctx, "effort_finished", a.EffortID, 0, ""); err != nil {
		return nil, err
	}
	return e.st.Effort(ctx, a.EffortID)
}

// EffortListArgs are the arguments for effort.list.
type EffortListArgs struct {
	TaskID string `json:"taskId"`
}

// Validate reports field-level issues.
func (a EffortListArgs) Validate() []protocol.Issue {
	var issues []protocol.Issue
	if a.TaskID == "" {
		issues = append(issues, protocol.Issue{Field: "taskId", Message: "required"})
	}
	return issues
}

// EffortList returns a task's efforts in ordinal order.
func (e *Engine) EffortList(ctx context.Context, a EffortListArgs) ([]protocol.Effort, error) {
	return e.st.EffortsByTask(ctx, a.TaskID)
}

// EffortGetArgs are the arguments for effort.get.
type EffortGetArgs struct {
	EffortID int64 `json:"effortId"`
}

// Validate reports field-level issues.
func (a EffortGetArgs) Validate() []protocol.Issue {
	var issues []protocol.Issue
	if a.EffortID == 0 {
		issues = append(issues, protocol.Issue{Field: "effortId", Message: "required"})
	}
	return issues
}

// EffortGet returns an effort or nil. Absence is data, not failure.
func (e *Engine) EffortGet(ctx context.Context, a EffortGetArgs) (*protocol.Effort, error) {
	return e.st.Effort(ctx, a.EffortID)
}

// EffortFindActiveArgs are the arguments for effort.findActive.
type EffortFindActiveArgs struct {
	ProjectID int64  `json:"projectId"`
	AgentID   string `json:"agentId,omitempty"`

	// Required turns an empty result into a NO_ACTIVE_EFFORT fault for
	// callers that cannot proceed without one.
	Required bool `json:"required,omitempty"`
}

// Validate reports field-level issues.
func (a EffortFindActiveArgs) Validate() []protocol.Issue {
	var issues []protocol.Issue
	if a.ProjectID == 0 {
		issues = append(issues, protocol.Issue{Field: "projectId", Message: "required"})
	}
	return issues
}

// EffortFindActive resolves "the effort to act on" in two tiers. Fleet
// mode: with an agentId, the single active effort bound to that agent in
// the project wins. If the agent is unknown or unbound it falls through to
// the default tier: the most recently created active effort project-wide.
// The fall-through is what lets one daemon serve both a lone agent and a
// fleet.
func (e *Engine) EffortFindActive(ctx context.Context, a EffortFindActiveArgs) (*protocol.Effort, error) {
	if a.AgentID != "" {
		effort, err := e.st.ActiveEffortByAgent(ctx, a.ProjectID, a.AgentID)
		if err != nil {
			return nil, err
		}
		if effort != nil {
			return effort, nil
		}
	}
	effort, err := e.st.LatestActiveEffort(ctx, a.ProjectID)
	if err != nil {
		return nil, err
	}
	if effort == nil && a.Required {
		return nil, &protocol.Fault{
			Code:    protocol.FaultNoActiveEffort,
			Message: fmt.Sprintf("project %d has no active effort", a.ProjectID),
		}
	}
	return effort, nil
}

// EffortGetMetadataArgs are the arguments for effort.getMetadata.
type EffortGetMetadataArgs struct {
	EffortID int64 `json:"effortId"`
}

// Validate reports field-level issues.
func (a EffortGetMetadataArgs) Validate() []protocol.Issue {
	var issues []protocol.Issue
	if a.EffortID == 0 {
		issues = append(issues, protocol.Issue{Field: "effortId", Message: "required"})
	}
	return issues
}

// EffortGetMetadata returns the effort's metadata as a parsed object.
func (e *Engine) EffortGetMetadata(ctx context.Context, a EffortGetMetadataArgs) (map[string]any, error) {
	effort, err := e.st.Effort(ctx, a.EffortID)
	if err != nil {
		return nil, err
	}
	if effort == nil {
		return nil, protocol.NotFoundf("effort %d not found", a.EffortID)
	}
	return parseMetadata(effort.Metadata)
}

// EffortUpdateMetadataArgs are the arguments for effort.updateMetadata.
type EffortUpdateMetadataArgs struct {
	EffortID int64          `json:"effortId"`
	Remove   []string       `json:"remove,omitempty"`
	Set      map[string]any `json:"set,omitempty"`

	// Phase, when present, also updates the effort's current phase marker.
	// A pointer so the empty string can clear it.
	Phase *string `json:"phase,omitempty"`
}

// Validate reports field-level issues.
func (a EffortUpdateMetadataArgs) Validate() []protocol.Issue {
	var issues []protocol.Issue
	if a.EffortID == 0 {
		issues = append(issues, protocol.Issue{Field: "effortId", Message: "required"})
	}
	return issues
}

// EffortUpdateMetadata patches the opaque metadata object: all removes
// apply first, then all sets, in that fixed order. Returns the final
// parsed object.
func (e *Engine) EffortUpdateMetadata(ctx context.Context, a EffortUpdateMetadataArgs) (map[string]any, error) {
	effort, err := e.st.Effort(ctx, a.EffortID)
	if err != nil {
		return nil, err
	}
	if effort == nil {
		return nil, protocol.NotFoundf("effort %d not found", a.EffortID)
	}

	meta, err := parseMetadata(effort.Metadata)
	if err != nil {
		return nil, err
	}
	for _, key := range a.Remove {
		delete(meta, key)
	}
	for key, value := range a.Set {
		meta[key] = value
	}

	encoded, err := marshalJSON(meta)
	if err != nil {
		return nil, err
	}
	if err := e.st.SetEffortMetadata(ctx, a.EffortID, encoded); err != nil {
		return nil, err
	}
	if a.Phase != nil {
		if err := e.st.SetEffortPhase(ctx, a.EffortID, *a.Phase); err != nil {
			return nil, err
		}
	}
	return meta, nil
}

// parseMetadata decodes a metadata column, tolerating the empty string.
func parseMetadata(s string) (map[string]any, error) {
	if s == "" {
		return map[string]any{}, nil
	}
	var meta map[string]any
	if err := json.Unmarshal([]byte(s), &meta); err != nil {
		return nil, fmt.Errorf("parse metadata: %w", err)
	}
	if meta == nil {
		meta = map[string]any{}
	}
	return meta, nil
}
