package core

import "pkt.systems/coderun/schema"

// EventSink receives session lifecycle and output events.
type EventSink interface {
	OnSessionEvent(event schema.SessionEvent)
}
