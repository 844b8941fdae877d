package persist

import (
	"testing"
	"time"

	"pkt.systems/coderun/schema"
)

func TestRecorderTracksLifecycle(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	rec := NewRecorder(store, "http://backend")
	pid := schema.ParsePID("7")
	at := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

	rec.OnSessionEvent(schema.SessionEvent{Type: schema.EventStarted, PID: pid, At: at})
	got, ok, err := store.Load()
	if err != nil || !ok {
		t.Fatalf("expected record after start, ok=%v err=%v", ok, err)
	}
	if got.PID != pid || got.BackendURL != "http://backend" || !got.StartedAt.Equal(at) {
		t.Fatalf("unexpected record %+v", got)
	}

	rec.OnSessionEvent(schema.SessionEvent{Type: schema.EventOutput, PID: pid})
	if _, ok, _ := store.Load(); !ok {
		t.Fatalf("output must not clear the record")
	}

	rec.OnSessionEvent(schema.SessionEvent{Type: schema.EventFinished, PID: pid})
	if _, ok, _ := store.Load(); ok {
		t.Fatalf("expected record cleared after finish")
	}
}

func TestRecorderIgnoresOtherPIDs(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	rec := NewRecorder(store, "")
	rec.OnSessionEvent(schema.SessionEvent{Type: schema.EventStarted, PID: schema.ParsePID("2")})
	rec.OnSessionEvent(schema.SessionEvent{Type: schema.EventReset, PID: schema.ParsePID("1")})
	got, ok, _ := store.Load()
	if !ok || got.PID.String() != "2" {
		t.Fatalf("expected record for pid 2 to survive, got %+v ok=%v", got, ok)
	}
	rec.OnSessionEvent(schema.SessionEvent{Type: schema.EventReset, PID: schema.ParsePID("2")})
	if _, ok, _ := store.Load(); ok {
		t.Fatalf("expected record cleared after reset")
	}
}
