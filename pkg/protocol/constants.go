package protocol

import "time"

// Directory and file constants used throughout stint.
const (
	// StintDir is the user-level state directory (e.g., ~/.stint).
	StintDir = ".stint"

	// SocketFile is the daemon UDS socket filename inside StintDir.
	SocketFile = "stint.sock"

	// DBFile is the state database filename inside StintDir.
	DBFile = "state.db"

	// PIDFile is the daemon PID filename inside StintDir.
	PIDFile = "stint.pid"

	// DehydrationsDir holds post-commit dehydration snapshot mirrors.
	DehydrationsDir = "dehydrations"

	// ConfigFile is the daemon config filename inside StintDir.
	ConfigFile = "config.toml"
)

// StaleSessionThreshold is how old a session's last heartbeat may be before
// external fleet monitors should treat the session as crashed. The daemon
// itself runs no timer; staleness is a derived view.
const StaleSessionThreshold = 5 * time.Minute

// TimeFormat is the timestamp layout used in all TEXT datetime columns.
// It matches SQLite's datetime('now') output so Go-written and
// default-written values compare lexicographically.
const TimeFormat = "2006-01-02 15:04:05"

// FormatTime renders t in UTC using TimeFormat.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeFormat)
}

// ParseTime parses a TimeFormat timestamp as UTC. Returns the zero time on
// malformed input.
func ParseTime(s string) time.Time {
	t, err := time.ParseInLocation(TimeFormat, s, time.UTC)
	if err != nil {
		return time.Time{}
	}
	return t
}
