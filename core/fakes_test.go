package core

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"pkt.systems/coderun/schema"
)

type outputStep struct {
	resp schema.OutputResponse
	err  error
}

// fakeBackend issues sequential pids and replays scripted output per pid.
// Once a pid's script is exhausted it reports empty, unfinished chunks.
type fakeBackend struct {
	mu         sync.Mutex
	nextPID    int
	runErr     error
	runHook    func(ctx context.Context, code string) (schema.PID, error)
	outputHook func(ctx context.Context, pid schema.PID) (schema.OutputResponse, error)
	scripts    map[string][]outputStep
	inputErr   error
	resetErr   error

	runs   []string
	inputs []schema.InputRequest
	resets []schema.PID
}

func newFakeBackend(firstPID int) *fakeBackend {
	return &fakeBackend{nextPID: firstPID, scripts: make(map[string][]outputStep)}
}

func (b *fakeBackend) script(pid string, steps ...outputStep) {
	b.mu.Lock()
	b.scripts[pid] = append(b.scripts[pid], steps...)
	b.mu.Unlock()
}

func (b *fakeBackend) Run(ctx context.Context, code string) (schema.PID, error) {
	b.mu.Lock()
	b.runs = append(b.runs, code)
	hook := b.runHook
	if hook == nil && b.runErr != nil {
		err := b.runErr
		b.mu.Unlock()
		return schema.PID{}, err
	}
	pid := schema.ParsePID(strconv.Itoa(b.nextPID))
	b.nextPID++
	b.mu.Unlock()
	if hook != nil {
		return hook(ctx, code)
	}
	return pid, nil
}

func (b *fakeBackend) Output(ctx context.Context, pid schema.PID) (schema.OutputResponse, error) {
	b.mu.Lock()
	hook := b.outputHook
	if hook != nil {
		b.mu.Unlock()
		return hook(ctx, pid)
	}
	steps := b.scripts[pid.String()]
	if len(steps) == 0 {
		b.mu.Unlock()
		return schema.OutputResponse{}, nil
	}
	step := steps[0]
	b.scripts[pid.String()] = steps[1:]
	b.mu.Unlock()
	return step.resp, step.err
}

func (b *fakeBackend) Input(_ context.Context, pid schema.PID, line string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.inputs = append(b.inputs, schema.InputRequest{PID: pid, Input: line})
	return b.inputErr
}

func (b *fakeBackend) Reset(_ context.Context, pid schema.PID) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.resets = append(b.resets, pid)
	return b.resetErr
}

func (b *fakeBackend) Inputs() []schema.InputRequest {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]schema.InputRequest(nil), b.inputs...)
}

func (b *fakeBackend) Resets() []schema.PID {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]schema.PID(nil), b.resets...)
}

func (b *fakeBackend) Runs() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.runs...)
}

type recordingSink struct {
	mu     sync.Mutex
	events []schema.SessionEvent
}

func (r *recordingSink) OnSessionEvent(event schema.SessionEvent) {
	r.mu.Lock()
	r.events = append(r.events, event)
	r.mu.Unlock()
}

func (r *recordingSink) Types() []schema.SessionEventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]schema.SessionEventType, 0, len(r.events))
	for _, event := range r.events {
		out = append(out, event.Type)
	}
	return out
}

func (r *recordingSink) Find(kind schema.SessionEventType) (schema.SessionEvent, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, event := range r.events {
		if event.Type == kind {
			return event, true
		}
	}
	return schema.SessionEvent{}, false
}

func newTestSession(t *testing.T, backend Backend, editor Editor, sink EventSink) *Session {
	t.Helper()
	sess, err := NewSession(schema.SessionConfig{PollInterval: time.Millisecond}, SessionDeps{
		Backend:   backend,
		Editor:    editor,
		EventSink: sink,
	})
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	t.Cleanup(sess.Close)
	return sess
}

func waitDone(t *testing.T, sess *Session) schema.SessionSnapshot {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	snap, err := sess.Wait(ctx)
	if err != nil {
		t.Fatalf("wait: %v (state %s)", err, snap.State)
	}
	return snap
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

// gatedSink records events like recordingSink but holds the first event of
// kind until released.
type gatedSink struct {
	recordingSink
	kind    schema.SessionEventType
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func newGatedSink(kind schema.SessionEventType) *gatedSink {
	return &gatedSink{kind: kind, entered: make(chan struct{}), release: make(chan struct{})}
}

func (g *gatedSink) OnSessionEvent(event schema.SessionEvent) {
	if event.Type == g.kind {
		g.once.Do(func() {
			close(g.entered)
			<-g.release
		})
	}
	g.recordingSink.OnSessionEvent(event)
}

func (r *recordingSink) Events() []schema.SessionEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]schema.SessionEvent(nil), r.events...)
}
