package logx

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"pkt.systems/coderun/schema"
	"pkt.systems/pslog"
)

func TestWithPIDAddsField(t *testing.T) {
	capture := &logCapture{}
	logger := newTestLogger(capture)
	WithPID(logger, schema.ParsePID("7")).Info("hello")

	entry := capture.firstEntry(t)
	if entry["pid"] != "7" {
		t.Fatalf("expected pid field, got %+v", entry)
	}
}

func TestWithPIDSkipsZero(t *testing.T) {
	capture := &logCapture{}
	logger := newTestLogger(capture)
	WithPID(logger, schema.PID{}).Info("hello")

	entry := capture.firstEntry(t)
	if _, ok := entry["pid"]; ok {
		t.Fatalf("did not expect pid for zero pid, got %+v", entry)
	}
}

func TestWithPIDDeduplicatesContextMarker(t *testing.T) {
	capture := &logCapture{}
	logger := newTestLogger(capture)
	pid := schema.ParsePID("7")
	ctx := ContextWithPIDLogger(context.Background(), logger.With("pid", pid.String()), pid)
	CtxWithPID(ctx, pid).Info("hello")

	line := strings.TrimSpace(capture.buf.String())
	if strings.Count(line, `"pid"`) != 1 {
		t.Fatalf("expected a single pid field, got %s", line)
	}
}

func TestCtxWithPIDAddsFieldWithoutMarker(t *testing.T) {
	capture := &logCapture{}
	ctx := pslog.ContextWithLogger(context.Background(), newTestLogger(capture))
	CtxWithPID(ctx, schema.ParsePID("abc")).Info("hello")

	entry := capture.firstEntry(t)
	if entry["pid"] != "abc" {
		t.Fatalf("expected pid field, got %+v", entry)
	}
}

func TestWithGenerationAddsField(t *testing.T) {
	capture := &logCapture{}
	WithGeneration(newTestLogger(capture), 3).Info("hello")

	entry := capture.firstEntry(t)
	if entry["gen"] != float64(3) {
		t.Fatalf("expected gen field, got %+v", entry)
	}
}

func newTestLogger(capture *logCapture) pslog.Logger {
	return pslog.NewWithOptions(capture, pslog.Options{
		Mode:          pslog.ModeStructured,
		NoColor:       true,
		MinLevel:      pslog.InfoLevel,
		VerboseFields: true,
	})
}

type logCapture struct {
	buf bytes.Buffer
}

func (c *logCapture) Write(p []byte) (int, error) {
	return c.buf.Write(p)
}

func (c *logCapture) firstEntry(t *testing.T) map[string]any {
	t.Helper()
	data := c.buf.Bytes()
	idx := bytes.IndexByte(data, '\n')
	if idx == -1 {
		idx = len(data)
	}
	line := bytes.TrimSpace(data[:idx])
	entry := map[string]any{}
	if err := json.Unmarshal(line, &entry); err != nil {
		t.Fatalf("parse log entry: %v", err)
	}
	return entry
}
