package protocol

// Project represents a row in the projects table.
// One per codebase, keyed by absolute filesystem path. Created on first
// reference, never deleted in normal operation.
type Project struct {
	ID        int64  `json:"id"`
	Path      string `json:"path"`
	Name      string `json:"name,omitempty"`
	CreatedAt string `json:"created_at"`
}

// Task represents a row in the tasks table: a persistent work container
// keyed by its workspace directory path. A task carries no lifecycle of its
// own — active/dormant is derived from its efforts.
type Task struct {
	ID          string `json:"id"` // workspace directory path
	ProjectID   int64  `json:"project_id"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Keywords    string `json:"keywords"` // JSON array of accumulated search tags
	CreatedAt   string `json:"created_at"`
}

// Effort represents a row in the efforts table: one invocation of a named
// skill against a task. Ordinal is 1-based, unique per task, and never
// reassigned once created.
type Effort struct {
	ID         int64     `json:"id"`
	TaskID     string    `json:"task_id"`
	Skill      string    `json:"skill"`
	Mode       string    `json:"mode,omitempty"`
	Ordinal    int64     `json:"ordinal"`
	Lifecycle  Lifecycle `json:"lifecycle"`
	Phase      string    `json:"phase,omitempty"`
	Metadata   string    `json:"metadata"` // opaque JSON object
	CreatedAt  string    `json:"created_at"`
	FinishedAt string    `json:"finished_at,omitempty"`
}

// Session represents a row in the sessions table: one ephemeral process
// lifetime working a single effort. At most one session per effort has a
// null ended_at at any instant; PrevSessionID forms the continuation chain.
type Session struct {
	ID                    int64   `json:"id"`
	EffortID              int64   `json:"effort_id"`
	TaskID                string  `json:"task_id"`
	PrevSessionID         int64   `json:"prev_session_id,omitempty"`
	PID                   int64   `json:"pid,omitempty"` // informational only
	Heartbeats            int64   `json:"heartbeats"`
	LastHeartbeat         string  `json:"last_heartbeat"`
	ContextUsage          float64 `json:"context_usage"` // fill fraction in [0,1]
	LoadedFiles           string  `json:"loaded_files"`  // JSON array
	PreloadedFiles        string  `json:"preloaded_files"`
	Injections            string  `json:"injections"` // JSON array of Injection
	DiscoveredDirectives  string  `json:"discovered_directives"`
	DiscoveredDirectories string  `json:"discovered_directories"`
	Dehydration           string  `json:"dehydration,omitempty"` // opaque snapshot
	TranscriptPath        string  `json:"transcript_path,omitempty"`
	TranscriptOffset      int64   `json:"transcript_offset"`
	CreatedAt             string  `json:"created_at"`
	EndedAt               string  `json:"ended_at,omitempty"`
}

// Agent represents a row in the agents table: a fleet participant identity,
// keyed by a caller-supplied text id. Binding to an effort (at most one) is
// how multi-agent isolation is expressed.
type Agent struct {
	ID        string      `json:"id"`
	Label     string      `json:"label,omitempty"`
	Claims    string      `json:"claims"` // JSON array of claim descriptors
	EffortID  int64       `json:"effort_id,omitempty"`
	Status    AgentStatus `json:"status"`
	CreatedAt string      `json:"created_at"`
	UpdatedAt string      `json:"updated_at"`
}

// Message represents a row in the messages table: an append-only transcript
// entry for a session. Never reordered after insert.
type Message struct {
	ID        int64  `json:"id"`
	SessionID int64  `json:"session_id"`
	Role      string `json:"role"`
	Content   string `json:"content"`
	Tool      string `json:"tool,omitempty"`
	CreatedAt string `json:"created_at"`
}

// Event represents a row in the events audit table. Every mutating command
// appends one inside its own transaction.
type Event struct {
	ID        int64  `json:"id"`
	Type      string `json:"type"`
	ConnID    string `json:"conn_id"`
	EffortID  int64  `json:"effort_id,omitempty"`
	SessionID int64  `json:"session_id,omitempty"`
	Payload   string `json:"payload,omitempty"`
	CreatedAt string `json:"created_at"`
}
