package core

import "pkt.systems/pslog"

// SessionDeps captures the collaborators of a session client. Backend is
// required; the rest are optional.
type SessionDeps struct {
	Backend   Backend
	Editor    Editor
	EventSink EventSink
	Logger    pslog.Logger
}
