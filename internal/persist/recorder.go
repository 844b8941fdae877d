package persist

import (
	"sync"

	"pkt.systems/coderun/schema"
)

// Recorder keeps the session record in step with session events: it is
// written when a process starts and removed once that process is gone.
type Recorder struct {
	store      *Store
	backendURL string

	mu  sync.Mutex
	pid schema.PID
}

// NewRecorder returns an event sink that maintains the store's record.
func NewRecorder(store *Store, backendURL string) *Recorder {
	return &Recorder{store: store, backendURL: backendURL}
}

// OnSessionEvent implements core.EventSink.
func (r *Recorder) OnSessionEvent(event schema.SessionEvent) {
	if r == nil || r.store == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	switch event.Type {
	case schema.EventStarted:
		if event.PID.IsZero() {
			return
		}
		if err := r.store.Save(SessionRecord{PID: event.PID, BackendURL: r.backendURL, StartedAt: event.At}); err == nil {
			r.pid = event.PID
		}
	case schema.EventFinished, schema.EventFailed, schema.EventReset:
		if r.pid.IsZero() || event.PID != r.pid {
			return
		}
		if err := r.store.Clear(); err == nil {
			r.pid = schema.PID{}
		}
	}
}
