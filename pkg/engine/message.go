package engine

import (
	"context"

	"stint/pkg/protocol"
)

// MessageAppendArgs are the arguments for messages.append.
type MessageAppendArgs struct {
	SessionID int64  `json:"sessionId"`
	Role      string `json:"role"`
	Content   string `json:"content"`
	Tool      string `json:"tool,omitempty"`
}

// Validate reports field-level issues.
func (a MessageAppendArgs) Validate() []protocol.Issue {
	var issues []protocol.Issue
	if a.SessionID == 0 {
		issues = append(issues, protocol.Issue{Field: "sessionId", Message: "required"})
	}
	if a.Role == "" {
		issues = append(issues, protocol.Issue{Field: "role", Message: "required"})
	}
	return issues
}

// MessageAppend adds a transcript entry. Entries are insertion-ordered and
// never reordered afterwards.
func (e *Engine) MessageAppend(ctx context.Context, a MessageAppendArgs) (*protocol.Message, error) {
	sess, err := e.st.Session(ctx, a.SessionID)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, protocol.NotFoundf("session %d not found", a.SessionID)
	}
	now := e.now()
	id, err := e.st.AppendMessage(ctx, a.SessionID, a.Role, a.Content, a.Tool, now)
	if err != nil {
		return nil, err
	}
	return &protocol.Message{
		ID:        id,
		SessionID: a.SessionID,
		Role:      a.Role,
		Content:   a.Content,
		Tool:      a.Tool,
		CreatedAt: now,
	}, nil
}

// MessageListArgs are the arguments for messages.list.
type MessageListArgs struct {
	SessionID int64 `json:"sessionId"`
}

// Validate reports field-level issues.
func (a MessageListArgs) Validate() []protocol.Issue {
	var issues []protocol.Issue
	if a.SessionID == 0 {
		issues = append(issues, protocol.Issue{Field: "sessionId", Message: "required"})
	}
	return issues
}

// MessageList returns a session's transcript in insertion order.
func (e *Engine) MessageList(ctx context.Context, a MessageListArgs) ([]protocol.Message, error) {
	return e.st.MessagesBySession(ctx, a.SessionID)
}

// MessageUpsertArgs are the arguments for messages.upsert.
type MessageUpsertArgs struct {
	ID        int64  `json:"id,omitempty"` // 0 appends a new entry
	SessionID int64  `json:"sessionId"`
	Role      string `json:"role"`
	Content   string `json:"content"`
	Tool      string `json:"tool,omitempty"`
}

// Validate reports field-level issues.
func (a MessageUpsertArgs) Validate() []protocol.Issue {
	var issues []protocol.Issue
	if a.SessionID == 0 {
		issues = append(issues, protocol.Issue{Field: "sessionId", Message: "required"})
	}
	if a.Role == "" {
		issues = append(issues, protocol.Issue{Field: "role", Message: "required"})
	}
	return issues
}

// MessageUpsert finalizes a streamed entry: with an id it replaces the
// row's role/content/tool in place — the id, and therefore the transcript
// order, never changes — and without one it appends.
func (e *Engine) MessageUpsert(ctx context.Context, a MessageUpsertArgs) (*protocol.Message, error) {
	if a.ID == 0 {
		return e.MessageAppend(ctx, MessageAppendArgs{
			SessionID: a.SessionID,
			Role:      a.Role,
			Content:   a.Content,
			Tool:      a.Tool,
		})
	}
	replaced, err := e.st.ReplaceMessage(ctx, a.ID, a.Role, a.Content, a.Tool)
	if err != nil {
		return nil, err
	}
	if !replaced {
		return nil, protocol.NotFoundf("message %d not found", a.ID)
	}
	return &protocol.Message{
		ID:        a.ID,
		SessionID: a.SessionID,
		Role:      a.Role,
		Content:   a.Content,
		Tool:      a.Tool,
	}, nil
}
