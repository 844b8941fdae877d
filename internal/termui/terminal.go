package termui

import (
	"bufio"
	"context"
	"errors"
	"io"

	"pkt.systems/coderun/schema"
	"pkt.systems/pslog"
)

// Session is the part of the session client the terminal drives.
type Session interface {
	Type(text string) error
	SubmitInput(ctx context.Context) error
}

// Terminal feeds stdin lines into a session until the run ends.
type Terminal struct {
	sess   Session
	in     io.Reader
	events <-chan schema.SessionEvent
}

// NewTerminal reads lines from in. events must deliver at least the
// finished, failed and reset events of the session.
func NewTerminal(sess Session, in io.Reader, events <-chan schema.SessionEvent) *Terminal {
	return &Terminal{sess: sess, in: in, events: events}
}

// Run blocks until the run finishes, fails or is reset, the event stream
// closes, or ctx is cancelled. End of input does not end the run.
func (t *Terminal) Run(ctx context.Context) (schema.SessionEvent, error) {
	log := pslog.Ctx(ctx)
	lines := make(chan string, 16)
	go readLines(t.in, lines)

	for {
		select {
		case <-ctx.Done():
			return schema.SessionEvent{}, ctx.Err()
		case line, ok := <-lines:
			if !ok {
				log.Debug("terminal input closed")
				lines = nil
				continue
			}
			t.handleLine(ctx, log, line)
		case ev, ok := <-t.events:
			if !ok {
				return schema.SessionEvent{}, errors.New("session events closed")
			}
			switch ev.Type {
			case schema.EventFinished, schema.EventFailed, schema.EventReset:
				log.Debug("terminal run ended", "event", ev.Type)
				return ev, nil
			}
		}
	}
}

func (t *Terminal) handleLine(ctx context.Context, log pslog.Logger, line string) {
	if err := t.sess.Type(line); err != nil {
		if errors.Is(err, schema.ErrReadOnly) {
			log.Debug("terminal input ignored", "reason", "read_only")
			return
		}
		log.Warn("terminal type failed", "err", err)
		return
	}
	if err := t.sess.SubmitInput(ctx); err != nil {
		if errors.Is(err, schema.ErrNoActiveSession) {
			log.Debug("terminal input ignored", "reason", "no_session")
			return
		}
		log.Warn("terminal submit failed", "err", err)
	}
}

func readLines(in io.Reader, out chan<- string) {
	defer close(out)
	if in == nil {
		return
	}
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if n := len(line); n > 0 && line[n-1] == '\r' {
			line = line[:n-1]
		}
		out <- line
	}
}
