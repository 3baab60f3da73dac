package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// FileConfig is the operator-editable daemon configuration, read from
// $STINT_HOME/config.toml. Every field has a working default; a missing
// file is not an error.
type FileConfig struct {
	// DrainTimeout bounds how long shutdown waits for queued requests,
	// as a Go duration string ("10s", "1m").
	DrainTimeout string `toml:"drain_timeout"`

	// SocketPath overrides the daemon socket location. Env vars still win.
	SocketPath string `toml:"socket_path"`

	// DBPath overrides the state database location. Env vars still win.
	DBPath string `toml:"db_path"`
}

// LoadConfig reads the config file at path. A missing file yields the zero
// config; a malformed file is an error.
func LoadConfig(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path) //nolint:gosec // config path is resolved by the application
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &FileConfig{}, nil
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	var cfg FileConfig
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return &cfg, nil
}

// drainTimeout parses DrainTimeout, returning fallback when unset.
func (c *FileConfig) drainTimeout(fallback time.Duration) (time.Duration, error) {
	if c.DrainTimeout == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(c.DrainTimeout)
	if err != nil {
		return 0, fmt.Errorf("parse drain_timeout %q: %w", c.DrainTimeout, err)
	}
	return d, nil
}

// apply folds file-level overrides into resolved paths. Env-derived paths
// take precedence: the config only fills slots the environment left at
// their defaults.
func (c *FileConfig) apply(paths *Paths) {
	if c.SocketPath != "" && os.Getenv("STINT_SOCKET_PATH") == "" {
		paths.SocketPath = c.SocketPath
	}
	if c.DBPath != "" && os.Getenv("STINT_DB_PATH") == "" {
		paths.StateDBPath = c.DBPath
	}
}
