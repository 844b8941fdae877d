package appconfig

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Backend.BaseURL != "http://127.0.0.1:5000" {
		t.Fatalf("expected default base url, got %q", cfg.Backend.BaseURL)
	}
	if cfg.Mock.Addr != "127.0.0.1:5000" {
		t.Fatalf("expected default mock addr, got %q", cfg.Mock.Addr)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	t.Setenv("CODERUN_TEST_STATE", "/tmp/coderun-state")
	path := writeConfig(t, `
config_version: 1
state_dir: $CODERUN_TEST_STATE/x
backend:
  base_url: https://exec.example.com/api
  headers:
    Authorization: Bearer abc
session:
  poll_interval_ms: 20
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.StateDir != "/tmp/coderun-state/x" {
		t.Fatalf("expected expanded state dir, got %q", cfg.StateDir)
	}
	if cfg.Backend.BaseURL != "https://exec.example.com/api" {
		t.Fatalf("unexpected base url %q", cfg.Backend.BaseURL)
	}
	if got := cfg.Backend.Headers["authorization"]; got != "Bearer abc" {
		t.Fatalf("expected header value, got %+v", cfg.Backend.Headers)
	}
	if cfg.SessionConfig().PollInterval != 20*time.Millisecond {
		t.Fatalf("expected poll interval override, got %s", cfg.SessionConfig().PollInterval)
	}
	if cfg.Backend.RequestTimeoutSeconds != 10 {
		t.Fatalf("expected default timeout to survive, got %d", cfg.Backend.RequestTimeoutSeconds)
	}
}

func TestLoadRequiresConfigVersion(t *testing.T) {
	path := writeConfig(t, `
backend:
  base_url: http://127.0.0.1:5000
`)
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "config_version is required") {
		t.Fatalf("expected config_version error, got %v", err)
	}
}

func TestLoadRejectsUnsupportedConfigVersion(t *testing.T) {
	path := writeConfig(t, `
config_version: 3
`)
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "unsupported config_version") {
		t.Fatalf("expected config_version error, got %v", err)
	}
}

func TestLoadRejectsInvalidSettings(t *testing.T) {
	cases := []struct {
		name    string
		content string
		want    string
	}{
		{"base-url", "config_version: 1\nbackend:\n  base_url: example.com\n", "backend.base_url"},
		{"poll-interval", "config_version: 1\nsession:\n  poll_interval_ms: -5\n", "session.poll_interval_ms"},
		{"marker", "config_version: 1\nsession:\n  finished_marker: \"a\\nb\"\n", "session.finished_marker"},
	}
	for _, tc := range cases {
		path := writeConfig(t, tc.content)
		if _, err := Load(path); err == nil || !strings.Contains(err.Error(), tc.want) {
			t.Fatalf("%s: expected %s error, got %v", tc.name, tc.want, err)
		}
	}
}

func TestExpandEnv(t *testing.T) {
	t.Setenv("FOO", "bar")
	value := expandEnv("$FOO/$UID/$GID/$MISSING")
	if !strings.HasPrefix(value, "bar/") {
		t.Fatalf("expected env expansion, got %q", value)
	}
	if strings.Contains(value, "$UID") || strings.Contains(value, "$GID") {
		t.Fatalf("expected UID/GID expansion, got %q", value)
	}
	if !strings.HasSuffix(value, "/$MISSING") {
		t.Fatalf("expected missing vars to remain, got %q", value)
	}
}

func TestWriteDefaultRespectsOverwrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	written, err := WriteDefault(path, false)
	if err != nil {
		t.Fatalf("write default: %v", err)
	}
	if written != path {
		t.Fatalf("expected path %q, got %q", path, written)
	}
	if _, err := Load(path); err != nil {
		t.Fatalf("expected written default to load: %v", err)
	}
	if _, err := WriteDefault(path, false); err == nil {
		t.Fatalf("expected error when config exists")
	}
	if _, err := WriteDefault(path, true); err != nil {
		t.Fatalf("expected overwrite to succeed: %v", err)
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(strings.TrimSpace(content)+"\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}
