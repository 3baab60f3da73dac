package engine

import (
	"context"

	"stint/pkg/protocol"
)

// ResolveArgs are the arguments for engine.resolve.
type ResolveArgs struct {
	Cwd     string `json:"cwd"`
	AgentID string `json:"agentId,omitempty"`
}

// Validate reports field-level issues.
func (a ResolveArgs) Validate() []protocol.Issue {
	var issues []protocol.Issue
	if a.Cwd == "" {
		issues = append(issues, protocol.Issue{Field: "cwd", Message: "required"})
	}
	return issues
}

// ResolvedIDs is the resolver's answer to "what am I working on". Fields
// are null from the first missing link onward; all-null means "nothing to
// do" and is never an error.
type ResolvedIDs struct {
	ProjectID *int64  `json:"projectId"`
	TaskID    *string `json:"taskId"`
	EffortID  *int64  `json:"effortId"`
	SessionID *int64  `json:"sessionId"`
}

// Resolve maps ambient caller context — a working directory plus an
// optional agent identity — to the effort and session the caller should
// act on. It is a pure composition of the other handlers, executed within
// the same serialized turn: project by path, then the agent-aware active
// effort, then that effort's open session. Hook adapters use this as the
// single way to orient themselves.
func (e *Engine) Resolve(ctx context.Context, a ResolveArgs) (*ResolvedIDs, error) {
	ids := &ResolvedIDs{}

	project, err := e.st.ProjectByPath(ctx, a.Cwd)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return ids, nil
	}
	ids.ProjectID = &project.ID

	effort, err := e.EffortFindActive(ctx, EffortFindActiveArgs{
		ProjectID: project.ID,
		AgentID:   a.AgentID,
	})
	if err != nil {
		return nil, err
	}
	if effort == nil {
		return ids, nil
	}
	ids.TaskID = &effort.TaskID
	ids.EffortID = &effort.ID

	sess, err := e.SessionFind(ctx, SessionFindArgs{EffortID: effort.ID})
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return ids, nil
	}
	ids.SessionID = &sess.ID

	return ids, nil
}
