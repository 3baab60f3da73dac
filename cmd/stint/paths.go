package main

import (
	"fmt"
	"os"
	"path/filepath"

	"stint/pkg/protocol"
)

// Paths holds all resolved stint state file paths.
// Use ResolvePaths() to populate this struct with defaults + env overrides.
type Paths struct {
	StintHome       string // ~/.stint or STINT_HOME
	PIDPath         string // stint.pid or STINT_PID_PATH
	SocketPath      string // stint.sock or STINT_SOCKET_PATH
	StateDBPath     string // state.db or STINT_DB_PATH
	ConfigPath      string // config.toml (respects STINT_HOME)
	DehydrationsDir string // dehydrations/ (respects STINT_HOME)
}

// ResolvePaths returns all stint paths, respecting env var overrides.
// Environment variables:
//   - STINT_HOME: base directory for all stint state (default: ~/.stint)
//   - STINT_PID_PATH: daemon PID file (default: $STINT_HOME/stint.pid)
//   - STINT_SOCKET_PATH: daemon UDS socket (default: $STINT_HOME/stint.sock)
//   - STINT_DB_PATH: state database (default: $STINT_HOME/state.db)
//
// If STINT_HOME is set, it becomes the base for all default paths. Specific
// env vars override both the default and the STINT_HOME base.
func ResolvePaths() (*Paths, error) {
	stintHome, err := resolveStintHome()
	if err != nil {
		return nil, err
	}

	paths := &Paths{
		StintHome:       stintHome,
		PIDPath:         resolvePathWithEnv("STINT_PID_PATH", stintHome, protocol.PIDFile),
		SocketPath:      resolvePathWithEnv("STINT_SOCKET_PATH", stintHome, protocol.SocketFile),
		StateDBPath:     resolvePathWithEnv("STINT_DB_PATH", stintHome, protocol.DBFile),
		ConfigPath:      filepath.Join(stintHome, protocol.ConfigFile),
		DehydrationsDir: filepath.Join(stintHome, protocol.DehydrationsDir),
	}

	return paths, nil
}

// resolveStintHome returns the stint home directory from STINT_HOME or ~/.stint.
func resolveStintHome() (string, error) {
	if v := os.Getenv("STINT_HOME"); v != "" {
		return v, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, protocol.StintDir), nil
}

// resolvePathWithEnv returns the path from envKey if set, otherwise joins base + suffix.
func resolvePathWithEnv(envKey, base, suffix string) string {
	if v := os.Getenv(envKey); v != "" {
		return v
	}
	return filepath.Join(base, suffix)
}
