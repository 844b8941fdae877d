package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"pkt.systems/coderun/internal/logx"
	"pkt.systems/coderun/schema"
	"pkt.systems/pslog"
)

// Session drives one remote run at a time: it starts a process, polls its
// output into the transcript, forwards typed lines as standard input and
// tears the process down on reset. It is safe for concurrent use.
//
// Every Start and Reset bumps the generation. Responses that arrive for an
// older generation are dropped, so a cancelled run can never write into the
// transcript again. Events are delivered one batch at a time and only while
// their generation is still current.
type Session struct {
	cfg     schema.SessionConfig
	backend Backend
	editor  Editor
	sink    EventSink
	logger  pslog.Logger
	now     func() time.Time

	mu         sync.Mutex
	state      schema.SessionState
	pid        schema.PID
	gen        schema.Generation
	lastErr    string
	transcript *transcript
	cancelPoll context.CancelFunc
	done       chan struct{}
	doneOpen   bool
	closed     bool

	// emitMu orders sink delivery; it is taken before mu, never after.
	emitMu sync.Mutex

	polls     sync.WaitGroup
	teardowns sync.WaitGroup
}

// NewSession constructs a session client.
func NewSession(cfg schema.SessionConfig, deps SessionDeps) (*Session, error) {
	normalized, err := schema.NormalizeSessionConfig(cfg)
	if err != nil {
		return nil, err
	}
	if deps.Backend == nil {
		return nil, errors.New("session backend is required")
	}
	done := make(chan struct{})
	close(done)
	return &Session{
		cfg:        normalized,
		backend:    deps.Backend,
		editor:     deps.Editor,
		sink:       deps.EventSink,
		logger:     deps.Logger,
		now:        time.Now,
		state:      schema.SessionIdle,
		transcript: newTranscript(normalized.TranscriptMaxBytes),
		done:       done,
	}, nil
}

// Run submits the editor's current source text.
func (s *Session) Run(ctx context.Context) (schema.PID, error) {
	if s.editor == nil {
		return schema.PID{}, schema.ErrNoEditor
	}
	return s.Start(ctx, s.editor.GetValue())
}

// Start tears down any active run without waiting for it, clears the
// transcript and starts a new process from source. The poll loop outlives
// ctx; only Reset, another Start or Close stop it.
func (s *Session) Start(ctx context.Context, source string) (schema.PID, error) {
	if ctx == nil {
		return schema.PID{}, errors.New("missing context")
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return schema.PID{}, schema.ErrSessionClosed
	}
	prev := s.pid
	s.gen++
	gen := s.gen
	s.stopPollLocked()
	s.closeDoneLocked()
	s.done = make(chan struct{})
	s.doneOpen = true
	s.pid = schema.PID{}
	s.state = schema.SessionStarting
	s.lastErr = ""
	s.transcript.Clear()
	s.transcript.editable = true
	if !prev.IsZero() {
		s.teardownLocked(ctx, prev, "superseded")
	}
	s.mu.Unlock()

	log := logx.WithGeneration(s.log(ctx), gen)
	log.Info("session start", "source_len", len(source))

	pid, err := s.backend.Run(ctx, source)
	if err == nil && pid.IsZero() {
		err = NewBackendError(BackendErrorProtocol, "run", schema.ErrMissingPID)
	}

	s.mu.Lock()
	if gen != s.gen {
		closed := s.closed
		if err == nil && !closed {
			s.teardownLocked(ctx, pid, "orphaned")
		}
		s.mu.Unlock()
		if err == nil {
			logx.WithPID(log, pid).Info("session start superseded")
			if closed {
				s.terminate(ctx, pid, "orphaned")
			}
		}
		return schema.PID{}, schema.ErrSessionSuperseded
	}
	if err != nil {
		event := s.failLocked(gen, err)
		s.mu.Unlock()
		log.Warn("session start failed", "err", err)
		s.emit(event)
		return schema.PID{}, fmt.Errorf("start: %w", err)
	}
	s.pid = pid
	s.state = schema.SessionRunning
	pollCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancelPoll = cancel
	s.polls.Add(1)
	event := s.eventLocked(schema.EventStarted, "")
	s.mu.Unlock()

	log = logx.WithPID(log, pid)
	log.Info("session start ok")
	s.emit(event)
	go s.pollLoop(pollCtx, log, gen, pid)
	return pid, nil
}

// Type appends user-typed text to the transcript. It is only accepted while
// a process is running.
func (s *Session) Type(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return schema.ErrSessionClosed
	}
	if !s.transcript.editable || s.pid.IsZero() {
		return schema.ErrReadOnly
	}
	s.transcript.Type(text)
	return nil
}

// SubmitInput handles the Enter key: the last unconsumed line is forwarded
// to the running process. A blank line only inserts a newline locally.
// Without an active session nothing happens and ErrNoActiveSession is returned.
func (s *Session) SubmitInput(ctx context.Context) error {
	if ctx == nil {
		return errors.New("missing context")
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return schema.ErrSessionClosed
	}
	if s.state != schema.SessionRunning || s.pid.IsZero() {
		s.mu.Unlock()
		return schema.ErrNoActiveSession
	}
	pid, gen := s.pid, s.gen
	line := s.transcript.PendingLine()
	s.transcript.Newline()
	if strings.TrimSpace(line) == "" {
		event := s.eventLocked(schema.EventInput, "")
		s.mu.Unlock()
		s.emit(event)
		return nil
	}
	s.transcript.Consume()
	event := s.eventLocked(schema.EventInput, line)
	s.mu.Unlock()
	s.emit(event)

	log := logx.WithGeneration(logx.WithPID(s.log(ctx), pid), gen)
	if err := s.backend.Input(ctx, pid, line); err != nil {
		log.Warn("session input failed", "err", err)
		s.mu.Lock()
		failed := s.eventLocked(schema.EventInputFailed, line)
		failed.PID = pid
		failed.Generation = gen
		failed.Err = err.Error()
		s.mu.Unlock()
		s.emit(failed)
		return fmt.Errorf("input: %w", err)
	}
	log.Debug("session input ok", "input_len", len(line))
	return nil
}

// Reset terminates the active process if there is one, clears the transcript
// and the editor, and leaves editing disabled. Local state is cleared even
// when the terminate request fails; the returned error only reports that
// request.
func (s *Session) Reset(ctx context.Context) error {
	if ctx == nil {
		return errors.New("missing context")
	}
	s.mu.Lock()
	pid := s.pid
	s.gen++
	gen := s.gen
	s.stopPollLocked()
	s.closeDoneLocked()
	s.transcript.Clear()
	s.transcript.editable = false
	s.pid = schema.PID{}
	s.state = schema.SessionIdle
	s.lastErr = ""
	event := s.eventLocked(schema.EventReset, "")
	event.PID = pid
	s.mu.Unlock()

	if s.editor != nil {
		s.editor.SetValue("")
	}
	s.emit(event)

	log := logx.WithGeneration(logx.WithPID(s.log(ctx), pid), gen)
	if pid.IsZero() {
		log.Debug("session reset idle")
		return nil
	}
	if err := s.backend.Reset(ctx, pid); err != nil {
		log.Warn("session reset terminate failed", "err", err)
		return fmt.Errorf("reset: %w", err)
	}
	log.Info("session reset ok")
	return nil
}

// Scroll moves the transcript view; see Snapshot for the visible lines.
func (s *Session) Scroll(delta, limit int) {
	s.mu.Lock()
	s.transcript.Scroll(delta, limit)
	s.mu.Unlock()
}

// Snapshot returns the current state with the full transcript line view.
func (s *Session) Snapshot() schema.SessionSnapshot {
	return s.SnapshotLimit(0)
}

// SnapshotLimit returns the current state with at most limit visible lines.
func (s *Session) SnapshotLimit(limit int) schema.SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return schema.SessionSnapshot{
		State:      s.state,
		PID:        s.pid,
		Generation: s.gen,
		LastError:  s.lastErr,
		Transcript: s.transcript.Snapshot(limit),
	}
}

// Wait blocks until the current run is no longer starting or running.
func (s *Session) Wait(ctx context.Context) (schema.SessionSnapshot, error) {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()
	select {
	case <-done:
		return s.Snapshot(), nil
	case <-ctx.Done():
		return s.Snapshot(), ctx.Err()
	}
}

// Close stops polling and waits for background teardowns. It does not
// terminate the running process; call Reset first for that.
func (s *Session) Close() {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		s.gen++
		s.stopPollLocked()
		s.closeDoneLocked()
	}
	s.mu.Unlock()
	s.polls.Wait()
	s.teardowns.Wait()
}

func (s *Session) pollLoop(ctx context.Context, log pslog.Logger, gen schema.Generation, pid schema.PID) {
	defer s.polls.Done()
	timer := time.NewTimer(s.cfg.PollInterval)
	defer timer.Stop()
	for {
		resp, err := s.backend.Output(ctx, pid)

		s.mu.Lock()
		if gen != s.gen {
			s.mu.Unlock()
			log.Debug("session poll stale response dropped")
			return
		}
		if err != nil {
			event := s.failLocked(gen, err)
			s.mu.Unlock()
			log.Warn("session poll failed", "err", err)
			s.emit(event)
			return
		}
		var events []schema.SessionEvent
		if resp.Output != "" {
			s.transcript.AppendOutput(resp.Output)
			events = append(events, s.eventLocked(schema.EventOutput, resp.Output))
		}
		finished := resp.Finished
		if finished {
			marker := s.transcript.Finish(s.cfg.FinishedMarker)
			events = append(events, s.eventLocked(schema.EventFinished, marker))
			s.pid = schema.PID{}
			s.state = schema.SessionFinished
			s.stopPollLocked()
			s.closeDoneLocked()
		}
		s.mu.Unlock()

		s.emit(events...)
		if finished {
			log.Info("session finished")
			return
		}

		timer.Reset(s.cfg.PollInterval)
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}
	}
}

// failLocked moves the current run to the failed state and writes the error
// marker into the transcript.
func (s *Session) failLocked(gen schema.Generation, err error) schema.SessionEvent {
	msg := err.Error()
	marker := schema.FormatErrorMarker(msg) + "\n"
	if s.transcript.text != "" && !strings.HasSuffix(s.transcript.text, "\n") {
		marker = "\n" + marker
	}
	s.transcript.Type(marker)
	s.transcript.Consume()
	s.transcript.editable = false
	event := s.eventLocked(schema.EventFailed, marker)
	event.Generation = gen
	event.Err = msg
	s.pid = schema.PID{}
	s.state = schema.SessionFailed
	s.lastErr = msg
	s.stopPollLocked()
	s.closeDoneLocked()
	return event
}

// teardownLocked terminates pid in the background. The request is detached
// from the caller's cancellation and bounded by TeardownTimeout; Close waits
// for it.
func (s *Session) teardownLocked(ctx context.Context, pid schema.PID, reason string) {
	s.teardowns.Add(1)
	go func() {
		defer s.teardowns.Done()
		s.terminate(ctx, pid, reason)
	}()
}

func (s *Session) terminate(ctx context.Context, pid schema.PID, reason string) {
	log := logx.WithPID(s.log(ctx), pid).With("reason", reason)
	tctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.TeardownTimeout)
	defer cancel()
	if err := s.backend.Reset(tctx, pid); err != nil {
		log.Warn("session teardown failed", "err", err)
		return
	}
	log.Debug("session teardown ok")
}

func (s *Session) stopPollLocked() {
	if s.cancelPoll != nil {
		s.cancelPoll()
		s.cancelPoll = nil
	}
}

func (s *Session) closeDoneLocked() {
	if s.doneOpen {
		close(s.done)
		s.doneOpen = false
	}
}

func (s *Session) eventLocked(kind schema.SessionEventType, text string) schema.SessionEvent {
	return schema.SessionEvent{
		Type:       kind,
		PID:        s.pid,
		Generation: s.gen,
		Text:       text,
		At:         s.now(),
	}
}

// emit delivers events built under mu. A Start, Reset or Close that landed
// after they were built makes them stale, and they are dropped.
func (s *Session) emit(events ...schema.SessionEvent) {
	if s.sink == nil || len(events) == 0 {
		return
	}
	s.emitMu.Lock()
	defer s.emitMu.Unlock()
	s.mu.Lock()
	current := s.gen
	s.mu.Unlock()
	for _, event := range events {
		if event.Generation != current {
			continue
		}
		s.sink.OnSessionEvent(event)
	}
}

// log returns the injected logger, or the one carried by ctx.
func (s *Session) log(ctx context.Context) pslog.Logger {
	if s.logger != nil {
		return s.logger
	}
	return pslog.Ctx(ctx)
}
