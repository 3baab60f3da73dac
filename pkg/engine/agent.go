package engine

import (
	"context"

	"stint/pkg/protocol"
	"stint/pkg/store"
)

// AgentRegisterArgs are the arguments for agents.register.
type AgentRegisterArgs struct {
	ID       string   `json:"id"`
	Label    string   `json:"label,omitempty"`
	Claims   []string `json:"claims,omitempty"`
	EffortID int64    `json:"effortId,omitempty"` // 0 clears the binding
	Status   string   `json:"status,omitempty"`   // defaults to idle
}

// Validate reports field-level issues.
func (a AgentRegisterArgs) Validate() []protocol.Issue {
	var issues []protocol.Issue
	if a.ID == "" {
		issues = append(issues, protocol.Issue{Field: "id", Message: "required"})
	}
	if a.Status != "" && !protocol.AgentStatus(a.Status).Valid() {
		issues = append(issues, protocol.Issue{Field: "status", Message: "unknown status"})
	}
	return issues
}

// AgentRegister upserts a fleet participant by full-row replacement keyed
// on the caller-supplied id. Binding to an effort — at most one — is how
// multi-agent isolation is expressed.
func (e *Engine) AgentRegister(ctx context.Context, a AgentRegisterArgs) (*protocol.Agent, error) {
	status := protocol.AgentStatus(a.Status)
	if status == "" {
		status = protocol.AgentIdle
	}
	agent, err := e.st.UpsertAgent(ctx, store.UpsertAgentParams{
		ID:       a.ID,
		Label:    a.Label,
		Claims:   a.Claims,
		EffortID: a.EffortID,
		Status:   status,
		Now:      e.now(),
	})
	if err != nil {
		return nil, err
	}
	if err := e.logEvent(ctx, "agent_registered", a.EffortID, 0, a.ID); err != nil {
		return nil, err
	}
	return agent, nil
}

// AgentGetArgs are the arguments for agents.get.
type AgentGetArgs struct {
	ID string `json:"id"`
}

// Validate reports field-level issues.
func (a AgentGetArgs) Validate() []protocol.Issue {
	var issues []protocol.Issue
	if a.ID == "" {
		issues = append(issues, protocol.Issue{Field: "id", Message: "required"})
	}
	return issues
}

// AgentGet returns an agent or nil. Callers use the nil payload for
// fail-open behavior; an unknown agent is expected, not exceptional.
func (e *Engine) AgentGet(ctx context.Context, a AgentGetArgs) (*protocol.Agent, error) {
	return e.st.Agent(ctx, a.ID)
}

// AgentListArgs are the arguments for agents.list.
type AgentListArgs struct{}

// Validate reports field-level issues.
func (a AgentListArgs) Validate() []protocol.Issue { return nil }

// AgentList returns every registered agent.
func (e *Engine) AgentList(ctx context.Context, _ AgentListArgs) ([]protocol.Agent, error) {
	return e.st.Agents(ctx)
}

// AgentUpdateStatusArgs are the arguments for agents.updateStatus.
type AgentUpdateStatusArgs struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// Validate reports field-level issues.
func (a AgentUpdateStatusArgs) Validate() []protocol.Issue {
	var issues []protocol.Issue
	if a.ID == "" {
		issues = append(issues, protocol.Issue{Field: "id", Message: "required"})
	}
	if !protocol.AgentStatus(a.Status).Valid() {
		issues = append(issues, protocol.Issue{Field: "status", Message: "unknown status"})
	}
	return issues
}

// AgentUpdateStatus sets an agent's status. Unlike the lookups, acting on a
// missing agent is a failure.
func (e *Engine) AgentUpdateStatus(ctx context.Context, a AgentUpdateStatusArgs) (*protocol.Agent, error) {
	agent, err := e.st.Agent(ctx, a.ID)
	if err != nil {
		return nil, err
	}
	if agent == nil {
		return nil, protocol.NotFoundf("agent %s not found", a.ID)
	}
	if err := e.st.SetAgentStatus(ctx, a.ID, protocol.AgentStatus(a.Status), e.now()); err != nil {
		return nil, err
	}
	if err := e.logEvent(ctx, "agent_status", agent.EffortID, 0, a.ID+":"+a.Status); err != nil {
		return nil, err
	}
	return e.st.Agent(ctx, a.ID)
}

// AgentFindByEffortArgs are the arguments for agents.findByEffort.
type AgentFindByEffortArgs struct {
	EffortID int64 `json:"effortId"`
}

// Validate reports field-level issues.
func (a AgentFindByEffortArgs) Validate() []protocol.Issue {
	var issues []protocol.Issue
	if a.EffortID == 0 {
		issues = append(issues, protocol.Issue{Field: "effortId", Message: "required"})
	}
	return issues
}

// AgentFindByEffort returns the agent bound to an effort, or nil for an
// unbound effort — an expected state.
func (e *Engine) AgentFindByEffort(ctx context.Context, a AgentFindByEffortArgs) (*protocol.Agent, error) {
	return e.st.AgentByEffort(ctx, a.EffortID)
}
