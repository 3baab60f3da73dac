package protocol

// SchemaDDL defines the SQLite schema for the stint daemon state database.
// Tables: projects, tasks, efforts, sessions, agents, messages, events.
// Execute against a SQLite database with: db.Exec(SchemaDDL)
//
// The two uniqueness constraints that the single-writer request loop already
// guarantees — one ordinal per task, one open session per effort — are also
// declared here as indexes, so a store-level fault surfaces even if a future
// caller reaches the database outside the daemon.
const SchemaDDL = `
-- One row per codebase, keyed by absolute filesystem path
CREATE TABLE IF NOT EXISTS projects (
    id INTEGER PRIMARY KEY,
    path TEXT NOT NULL UNIQUE,
    name TEXT NOT NULL DEFAULT '',
    created_at TEXT NOT NULL DEFAULT (datetime('now'))
);

-- Persistent work containers, keyed by workspace directory path
CREATE TABLE IF NOT EXISTS tasks (
    id TEXT PRIMARY KEY,
    project_id INTEGER NOT NULL REFERENCES projects(id),
    title TEXT NOT NULL DEFAULT '',
    description TEXT NOT NULL DEFAULT '',
    keywords TEXT NOT NULL DEFAULT '[]',
    created_at TEXT NOT NULL DEFAULT (datetime('now'))
);

-- One skill invocation against a task; ordinal is 1-based per task
CREATE TABLE IF NOT EXISTS efforts (
    id INTEGER PRIMARY KEY,
    task_id TEXT NOT NULL REFERENCES tasks(id),
    skill TEXT NOT NULL,
    mode TEXT NOT NULL DEFAULT '',
    ordinal INTEGER NOT NULL,
    lifecycle TEXT NOT NULL DEFAULT 'active',
    phase TEXT NOT NULL DEFAULT '',
    metadata TEXT NOT NULL DEFAULT '{}',
    created_at TEXT NOT NULL DEFAULT (datetime('now')),
    finished_at TEXT,
    UNIQUE (task_id, ordinal)
);
CREATE INDEX IF NOT EXISTS idx_efforts_task ON efforts(task_id);

-- One ephemeral process lifetime working one effort
CREATE TABLE IF NOT EXISTS sessions (
    id INTEGER PRIMARY KEY,
    effort_id INTEGER NOT NULL REFERENCES efforts(id),
    task_id TEXT NOT NULL REFERENCES tasks(id),
    prev_session_id INTEGER REFERENCES sessions(id),
    pid INTEGER NOT NULL DEFAULT 0,
    heartbeats INTEGER NOT NULL DEFAULT 0,
    last_heartbeat TEXT NOT NULL DEFAULT (datetime('now')),
    context_usage REAL NOT NULL DEFAULT 0,
    loaded_files TEXT NOT NULL DEFAULT '[]',
    preloaded_files TEXT NOT NULL DEFAULT '[]',
    injections TEXT NOT NULL DEFAULT '[]',
    discovered_directives TEXT NOT NULL DEFAULT '[]',
    discovered_directories TEXT NOT NULL DEFAULT '[]',
    dehydration TEXT,
    transcript_path TEXT NOT NULL DEFAULT '',
    transcript_offset INTEGER NOT NULL DEFAULT 0,
    created_at TEXT NOT NULL DEFAULT (datetime('now')),
    ended_at TEXT
);
CREATE INDEX IF NOT EXISTS idx_sessions_effort ON sessions(effort_id);
CREATE UNIQUE INDEX IF NOT EXISTS idx_sessions_open
    ON sessions(effort_id) WHERE ended_at IS NULL;

-- Fleet participant identities; at most one effort binding per agent
CREATE TABLE IF NOT EXISTS agents (
    id TEXT PRIMARY KEY,
    label TEXT NOT NULL DEFAULT '',
    claims TEXT NOT NULL DEFAULT '[]',
    effort_id INTEGER REFERENCES efforts(id),
    status TEXT NOT NULL DEFAULT 'idle',
    created_at TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at TEXT NOT NULL DEFAULT (datetime('now'))
);
CREATE INDEX IF NOT EXISTS idx_agents_effort ON agents(effort_id);

-- Append-only session transcripts
CREATE TABLE IF NOT EXISTS messages (
    id INTEGER PRIMARY KEY,
    session_id INTEGER NOT NULL REFERENCES sessions(id),
    role TEXT NOT NULL,
    content TEXT NOT NULL,
    tool TEXT NOT NULL DEFAULT '',
    created_at TEXT NOT NULL DEFAULT (datetime('now'))
);
CREATE INDEX IF NOT EXISTS idx_messages_session ON messages(session_id);

-- Audit log: one row per mutating command, written in the same transaction
CREATE TABLE IF NOT EXISTS events (
    id INTEGER PRIMARY KEY,
    type TEXT NOT NULL,
    conn_id TEXT NOT NULL DEFAULT '',
    effort_id INTEGER,
    session_id INTEGER,
    payload TEXT NOT NULL DEFAULT '',
    created_at TEXT NOT NULL DEFAULT (datetime('now'))
);
`
