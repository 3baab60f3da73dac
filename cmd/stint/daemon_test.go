package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestPIDFile_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stint.pid")

	if err := WritePIDFile(path, 12345); err != nil {
		t.Fatalf("write: %v", err)
	}
	pid, err := ReadPIDFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if pid != 12345 {
		t.Errorf("pid = %d", pid)
	}

	if err := RemovePIDFile(path); err != nil {
		t.Fatalf("remove: %v", err)
	}
	// Idempotent.
	if err := RemovePIDFile(path); err != nil {
		t.Errorf("second remove: %v", err)
	}
}

func TestReadPIDFile_Garbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stint.pid")
	if err := os.WriteFile(path, []byte("not a pid"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := ReadPIDFile(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestDaemonStatus(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stint.pid")

	status, pid, err := DaemonStatus(path)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status != StatusStopped || pid != 0 {
		t.Errorf("missing pid file: status=%s pid=%d", status, pid)
	}

	// Our own PID is alive by definition.
	if err := WritePIDFile(path, os.Getpid()); err != nil {
		t.Fatalf("write: %v", err)
	}
	status, pid, err = DaemonStatus(path)
	if err != nil {
		t.Fatalf("status 2: %v", err)
	}
	if status != StatusRunning || pid != os.Getpid() {
		t.Errorf("live pid: status=%s pid=%d", status, pid)
	}

	// A PID far beyond pid_max is never alive.
	if err := WritePIDFile(path, 1<<30); err != nil {
		t.Fatalf("write 2: %v", err)
	}
	status, _, err = DaemonStatus(path)
	if err != nil {
		t.Fatalf("status 3: %v", err)
	}
	if status != StatusStale {
		t.Errorf("dead pid: status=%s", status)
	}
}
