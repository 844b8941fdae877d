package termui

import (
	"fmt"
	"io"
	"os"
	"sync"

	"golang.org/x/term"

	"pkt.systems/coderun/schema"
)

// Display writes session output to a terminal as events arrive. It is a
// synchronous event sink, so no output chunk is ever skipped.
type Display struct {
	mu   sync.Mutex
	out  io.Writer
	err  io.Writer
	echo bool
}

// NewDisplay writes output to out and input failures to errOut. With echo
// set, submitted lines are written too; use it when stdin is not a terminal
// so the printed transcript matches the session.
func NewDisplay(out, errOut io.Writer, echo bool) *Display {
	if errOut == nil {
		errOut = out
	}
	return &Display{out: out, err: errOut, echo: echo}
}

// OnSessionEvent implements core.EventSink.
func (d *Display) OnSessionEvent(event schema.SessionEvent) {
	d.mu.Lock()
	defer d.mu.Unlock()
	switch event.Type {
	case schema.EventOutput, schema.EventFinished, schema.EventFailed:
		_, _ = io.WriteString(d.out, event.Text)
	case schema.EventInput:
		if d.echo {
			_, _ = io.WriteString(d.out, event.Text+"\n")
		}
	case schema.EventInputFailed:
		_, _ = fmt.Fprintf(d.err, "input not delivered: %s\n", event.Err)
	}
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	if f == nil {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}
