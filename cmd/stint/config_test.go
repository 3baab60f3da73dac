package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfig_MissingFileIsZeroConfig(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if *cfg != (FileConfig{}) {
		t.Errorf("cfg = %+v, want zero", cfg)
	}
}

func TestLoadConfig_MalformedFileIsError(t *testing.T) {
	path := writeConfig(t, "drain_timeout = [broken")
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoadConfig_ReadsAllFields(t *testing.T) {
	path := writeConfig(t, `
drain_timeout = "30s"
socket_path = "/tmp/other.sock"
db_path = "/tmp/other.db"
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DrainTimeout != "30s" || cfg.SocketPath != "/tmp/other.sock" || cfg.DBPath != "/tmp/other.db" {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestDrainTimeout(t *testing.T) {
	cfg := &FileConfig{}
	d, err := cfg.drainTimeout(10 * time.Second)
	if err != nil || d != 10*time.Second {
		t.Errorf("unset: d=%v err=%v", d, err)
	}

	cfg.DrainTimeout = "1m"
	d, err = cfg.drainTimeout(10 * time.Second)
	if err != nil || d != time.Minute {
		t.Errorf("1m: d=%v err=%v", d, err)
	}

	cfg.DrainTimeout = "soon"
	if _, err := cfg.drainTimeout(10 * time.Second); err == nil {
		t.Error("expected error for unparseable duration")
	}
}

func TestApply_EnvStillWins(t *testing.T) {
	t.Setenv("STINT_SOCKET_PATH", "/env/stint.sock")
	t.Setenv("STINT_DB_PATH", "")

	paths := &Paths{SocketPath: "/env/stint.sock", StateDBPath: "/home/state.db"}
	cfg := &FileConfig{SocketPath: "/cfg/stint.sock", DBPath: "/cfg/state.db"}
	cfg.apply(paths)

	if paths.SocketPath != "/env/stint.sock" {
		t.Errorf("socket = %q, env override lost", paths.SocketPath)
	}
	if paths.StateDBPath != "/cfg/state.db" {
		t.Errorf("db = %q, config override not applied", paths.StateDBPath)
	}
}
