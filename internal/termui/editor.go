package termui

import (
	"fmt"
	"os"
	"sync"
)

// FileEditor holds source text loaded from a file. SetValue only changes
// the in-memory copy; the file itself is never written.
type FileEditor struct {
	path string

	mu    sync.Mutex
	value string
}

// NewFileEditor reads path into a new editor.
func NewFileEditor(path string) (*FileEditor, error) {
	e := &FileEditor{path: path}
	if err := e.Reload(); err != nil {
		return nil, err
	}
	return e, nil
}

// Reload replaces the buffer with the current file contents.
func (e *FileEditor) Reload() error {
	data, err := os.ReadFile(e.path)
	if err != nil {
		return fmt.Errorf("read source: %w", err)
	}
	e.mu.Lock()
	e.value = string(data)
	e.mu.Unlock()
	return nil
}

// Path returns the source file path.
func (e *FileEditor) Path() string {
	return e.path
}

// GetValue implements core.Editor.
func (e *FileEditor) GetValue() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.value
}

// SetValue implements core.Editor.
func (e *FileEditor) SetValue(value string) {
	e.mu.Lock()
	e.value = value
	e.mu.Unlock()
}
