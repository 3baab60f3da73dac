package protocol

// Lifecycle represents the one-way lifecycle of an effort.
type Lifecycle string

// Effort lifecycle constants.
const (
	LifecycleActive   Lifecycle = "active"
	LifecycleFinished Lifecycle = "finished"
)

// Valid reports whether l is a known lifecycle value.
func (l Lifecycle) Valid() bool {
	switch l {
	case LifecycleActive, LifecycleFinished:
		return true
	default:
		return false
	}
}

// AgentStatus represents a fleet agent's self-reported status.
type AgentStatus string

// Agent status constants.
const (
	AgentWorking   AgentStatus = "working"
	AgentIdle      AgentStatus = "idle"
	AgentAttention AgentStatus = "attention" // needs human input
	AgentError     AgentStatus = "error"
	AgentDone      AgentStatus = "done"
)

// Valid reports whether s is one of the five known agent statuses.
func (s AgentStatus) Valid() bool {
	switch s {
	case AgentWorking, AgentIdle, AgentAttention, AgentError, AgentDone:
		return true
	default:
		return false
	}
}

// HeartbeatAction selects what session.heartbeat does to the counter.
type HeartbeatAction string

// Heartbeat action constants.
const (
	HeartbeatIncrement HeartbeatAction = "increment" // +1, refresh timestamp
	HeartbeatReset     HeartbeatAction = "reset"     // zero, refresh timestamp
)

// Valid reports whether a is a known heartbeat action.
func (a HeartbeatAction) Valid() bool {
	switch a {
	case HeartbeatIncrement, HeartbeatReset:
		return true
	default:
		return false
	}
}

// Injection is one entry in a session's pending-injection queue: content an
// adapter should surface to the agent on its next turn, tagged with the rule
// that produced it so the rule's entries can be withdrawn as a group.
type Injection struct {
	RuleID  string `json:"rule_id"`
	Content string `json:"content"`
}
