package termui

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFileEditorKeepsFileIntact(t *testing.T) {
	path := filepath.Join(t.TempDir(), "main.txt")
	if err := os.WriteFile(path, []byte("print(1)\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	editor, err := NewFileEditor(path)
	if err != nil {
		t.Fatalf("new editor: %v", err)
	}
	if editor.GetValue() != "print(1)\n" {
		t.Fatalf("unexpected value %q", editor.GetValue())
	}
	editor.SetValue("")
	if editor.GetValue() != "" {
		t.Fatalf("expected cleared buffer")
	}
	data, err := os.ReadFile(path)
	if err != nil || string(data) != "print(1)\n" {
		t.Fatalf("expected file untouched, got %q (%v)", data, err)
	}
	if err := editor.Reload(); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if editor.GetValue() != "print(1)\n" {
		t.Fatalf("expected reload to restore file contents")
	}
}

func TestNewFileEditorMissingFile(t *testing.T) {
	if _, err := NewFileEditor(filepath.Join(t.TempDir(), "absent")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
