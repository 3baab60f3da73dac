package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"stint/pkg/protocol"
)

const agentColumns = `id, label, claims, COALESCE(effort_id, 0), status, created_at, updated_at`

// UpsertAgentParams holds parameters for a full-row agent replacement.
type UpsertAgentParams struct {
	ID       string
	Label    string
	Claims   []string
	EffortID int64 // 0 clears the binding
	Status   protocol.AgentStatus
	Now      string
}

// UpsertAgent registers an agent by full-row replacement keyed on id. Only
// created_at survives from a previous registration.
func (s *Store) UpsertAgent(ctx context.Context, p UpsertAgentParams) (*protocol.Agent, error) {
	var effort any
	if p.EffortID != 0 {
		effort = p.EffortID
	}
	_, err := s.q.ExecContext(ctx,
		`INSERT INTO agents (id, label, claims, effort_id, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   label = excluded.label, claims = excluded.claims,
		   effort_id = excluded.effort_id, status = excluded.status,
		   updated_at = excluded.updated_at`,
		p.ID, p.Label, listToJSON(p.Claims), effort, p.Status, p.Now, p.Now)
	if err != nil {
		return nil, fmt.Errorf("upsert agent: %w", err)
	}
	return s.Agent(ctx, p.ID)
}

// Agent returns the agent with the given id, or nil if none exists.
func (s *Store) Agent(ctx context.Context, id string) (*protocol.Agent, error) {
	row := s.q.QueryRowContext(ctx,
		`SELECT `+agentColumns+` FROM agents WHERE id = ?`, id)
	return scanAgentRow(row)
}

// Agents returns every registered agent ordered by id.
func (s *Store) Agents(ctx context.Context) ([]protocol.Agent, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT `+agentColumns+` FROM agents ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list agents: %w", err)
	}
	defer rows.Close()

	var agents []protocol.Agent
	for rows.Next() {
		a, err := scanAgentInto(rows)
		if err != nil {
			return nil, fmt.Errorf("scan agent: %w", err)
		}
		agents = append(agents, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list agents rows: %w", err)
	}
	return agents, nil
}

// AgentByEffort returns the agent bound to an effort, or nil if the effort
// is unbound. An unbound effort is an expected state, not an error.
func (s *Store) AgentByEffort(ctx context.Context, effortID int64) (*protocol.Agent, error) {
	row := s.q.QueryRowContext(ctx,
		`SELECT `+agentColumns+` FROM agents WHERE effort_id = ? ORDER BY updated_at DESC LIMIT 1`,
		effortID)
	return scanAgentRow(row)
}

// SetAgentStatus updates an agent's status. The caller has already verified
// the agent exists and the status is valid.
func (s *Store) SetAgentStatus(ctx context.Context, id string, status protocol.AgentStatus, now string) error {
	_, err := s.q.ExecContext(ctx,
		`UPDATE agents SET status = ?, updated_at = ? WHERE id = ?`, status, now, id)
	if err != nil {
		return fmt.Errorf("set agent status: %w", err)
	}
	return nil
}

func scanAgentInto(sc rowScanner) (*protocol.Agent, error) {
	var a protocol.Agent
	err := sc.Scan(&a.ID, &a.Label, &a.Claims, &a.EffortID, &a.Status, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func scanAgentRow(row *sql.Row) (*protocol.Agent, error) {
	a, err := scanAgentInto(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan agent: %w", err)
	}
	return a, nil
}
