package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestResolveCallArgs_InlineJSON(t *testing.T) {
	raw, err := resolveCallArgs(`{"sessionId": 3}`, "", nil)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if string(raw) != `{"sessionId": 3}` {
		t.Errorf("raw = %s", raw)
	}

	if _, err := resolveCallArgs(`{broken`, "", nil); err == nil {
		t.Error("expected error for invalid inline JSON")
	}
}

func TestResolveCallArgs_NeitherFlagIsNil(t *testing.T) {
	raw, err := resolveCallArgs("", "", nil)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if raw != nil {
		t.Errorf("raw = %s, want nil", raw)
	}
}

func TestResolveCallArgs_JSONFilePassesThrough(t *testing.T) {
	path := filepath.Join(t.TempDir(), "args.json")
	content := `{"taskId": "/repo/a", "skill": "build"}`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	raw, err := resolveCallArgs("", path, nil)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if string(raw) != content {
		t.Errorf("raw = %s", raw)
	}
}

func TestResolveCallArgs_YAMLFileReencodes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "args.yaml")
	content := "taskId: /repo/a\nskill: build\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	raw, err := resolveCallArgs("", path, nil)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	got := string(raw)
	if !strings.Contains(got, `"taskId":"/repo/a"`) || !strings.Contains(got, `"skill":"build"`) {
		t.Errorf("raw = %s", got)
	}
}

func TestResolveCallArgs_StdinDash(t *testing.T) {
	raw, err := resolveCallArgs("", "-", strings.NewReader(`{"action": "increment"}`))
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if string(raw) != `{"action": "increment"}` {
		t.Errorf("raw = %s", raw)
	}
}
