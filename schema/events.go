package schema

import "time"

// SessionEventType identifies a session lifecycle event.
type SessionEventType string

const (
	// EventStarted is emitted when /run returned a pid.
	EventStarted SessionEventType = "started"
	// EventOutput carries a non-empty output chunk.
	EventOutput SessionEventType = "output"
	// EventInput carries a line forwarded to the process or a blank keystroke.
	EventInput SessionEventType = "input"
	// EventInputFailed reports a failed /input call.
	EventInputFailed SessionEventType = "input_failed"
	// EventFinished is emitted once the backend reports completion.
	EventFinished SessionEventType = "finished"
	// EventFailed is emitted when a run stops on an error.
	EventFailed SessionEventType = "failed"
	// EventReset is emitted after the transcript was cleared by a reset.
	EventReset SessionEventType = "reset"
)

// SessionEvent is emitted by the session client for displays and recorders.
// Text holds the output chunk, the submitted input line or the marker line
// appended to the transcript, depending on Type.
type SessionEvent struct {
	Type       SessionEventType
	PID        PID
	Generation Generation
	Text       string
	Err        string
	At         time.Time
}
