package core

import "sync"

// Editor holds the source text submitted by Run.
type Editor interface {
	GetValue() string
	SetValue(value string)
}

// MemoryEditor is an Editor backed by a string.
type MemoryEditor struct {
	mu    sync.Mutex
	value string
}

// NewMemoryEditor returns an editor holding value.
func NewMemoryEditor(value string) *MemoryEditor {
	return &MemoryEditor{value: value}
}

func (e *MemoryEditor) GetValue() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.value
}

func (e *MemoryEditor) SetValue(value string) {
	e.mu.Lock()
	e.value = value
	e.mu.Unlock()
}
