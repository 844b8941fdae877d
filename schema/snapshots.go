package schema

// SessionState describes where a session client is in its run lifecycle.
type SessionState string

const (
	// SessionIdle indicates no run was started or the last one was reset.
	SessionIdle SessionState = "idle"
	// SessionStarting indicates /run is in flight.
	SessionStarting SessionState = "starting"
	// SessionRunning indicates a pid is active and being polled.
	SessionRunning SessionState = "running"
	// SessionFinished indicates the backend reported completion.
	SessionFinished SessionState = "finished"
	// SessionFailed indicates the run stopped on a backend error.
	SessionFailed SessionState = "failed"
)

// Active reports whether the state holds or is acquiring a session.
func (s SessionState) Active() bool {
	return s == SessionStarting || s == SessionRunning
}

// TranscriptSnapshot is a read-only view of the output pane.
type TranscriptSnapshot struct {
	Text           string
	ConsumedLength int
	Editable       bool
	Lines          []string
	TotalLines     int
	ScrollOffset   int
	AtBottom       bool
}

// PendingInput returns the typed text after the consumed boundary.
func (t TranscriptSnapshot) PendingInput() string {
	if t.ConsumedLength >= len(t.Text) {
		return ""
	}
	return t.Text[t.ConsumedLength:]
}

// SessionSnapshot is a read-only view of a session client.
type SessionSnapshot struct {
	State      SessionState
	PID        PID
	Generation Generation
	LastError  string
	Transcript TranscriptSnapshot
}
