package appconfig

import (
	"testing"
	"time"

	"pkt.systems/coderun/schema"
)

func TestDefaultConfigSessionSettings(t *testing.T) {
	cfg, err := DefaultConfig()
	if err != nil {
		t.Fatalf("default config: %v", err)
	}
	session := cfg.SessionConfig()
	if session.PollInterval != 50*time.Millisecond {
		t.Fatalf("expected 50ms poll interval, got %s", session.PollInterval)
	}
	if session.FinishedMarker != schema.DefaultFinishedMarker {
		t.Fatalf("unexpected finished marker %q", session.FinishedMarker)
	}
	if session.TeardownTimeout != schema.DefaultTeardownTimeout {
		t.Fatalf("unexpected teardown timeout %s", session.TeardownTimeout)
	}
	if cfg.Backend.RequestTimeout() != 10*time.Second {
		t.Fatalf("unexpected request timeout %s", cfg.Backend.RequestTimeout())
	}
}
