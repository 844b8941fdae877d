package eventbus

import (
	"context"
	"sync"

	"pkt.systems/coderun/schema"
	"pkt.systems/pslog"
)

const defaultDepth = 256

type subscriber struct {
	ch    chan schema.SessionEvent
	kinds map[schema.SessionEventType]struct{}
}

func (s *subscriber) wants(kind schema.SessionEventType) bool {
	if len(s.kinds) == 0 {
		return true
	}
	_, ok := s.kinds[kind]
	return ok
}

// Bus delivers session events to channel subscribers. A subscriber that
// falls behind loses events instead of stalling the session.
type Bus struct {
	mu    sync.Mutex
	subs  map[*subscriber]struct{}
	log   pslog.Logger
	depth int
}

// New constructs a Bus.
func New(logger pslog.Logger) *Bus {
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	return &Bus{
		subs:  make(map[*subscriber]struct{}),
		log:   logger,
		depth: defaultDepth,
	}
}

// Subscribe registers a subscriber for the given event types, or for every
// type when none are given, and returns a channel + cancel.
func (b *Bus) Subscribe(kinds ...schema.SessionEventType) (<-chan schema.SessionEvent, func()) {
	if b == nil {
		return nil, func() {}
	}
	sub := &subscriber{ch: make(chan schema.SessionEvent, b.depth)}
	if len(kinds) > 0 {
		sub.kinds = make(map[schema.SessionEventType]struct{}, len(kinds))
		for _, kind := range kinds {
			sub.kinds[kind] = struct{}{}
		}
	}
	b.mu.Lock()
	b.subs[sub] = struct{}{}
	count := len(b.subs)
	b.mu.Unlock()
	b.log.Debug("eventbus subscribe", "subs", count, "kinds", len(kinds))
	var once sync.Once
	return sub.ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, sub)
			b.mu.Unlock()
			close(sub.ch)
			b.log.Debug("eventbus unsubscribe")
		})
	}
}

// OnSessionEvent publishes an event to every interested subscriber.
func (b *Bus) OnSessionEvent(event schema.SessionEvent) {
	if b == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	dropped := 0
	for sub := range b.subs {
		if !sub.wants(event.Type) {
			continue
		}
		select {
		case sub.ch <- event:
		default:
			dropped++
		}
	}
	if dropped > 0 {
		b.log.Trace("eventbus dropped", "type", event.Type, "count", dropped)
	}
}
