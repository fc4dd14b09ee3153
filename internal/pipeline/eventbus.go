package pipeline

import "sync"

// subscription pairs a handler with the request it listens to. requestID
// == "" means the handler hears every request's events (e.g. for a
// server-wide audit logger); any other value scopes delivery to exactly
// that run.
type subscription struct {
	id        int
	requestID string
	handler   EventHandler
}

// EventBus fans one Event out to every handler subscribed to that
// event's RequestID, in subscription order. Stages publish synchronously
// and sequentially — there is no goroutine fan-out here, since the
// pipeline itself has none — but the bus still guards its subscriber
// list with a mutex, because one Pipeline (and its Bus) is shared across
// every request a server handles concurrently: Run subscribes its
// caller's handler for the duration of one run and unsubscribes when
// that run returns, so a long-lived bus never leaks handlers across
// requests or delivers one caller's events into another's stream.
type EventBus struct {
	mu     sync.RWMutex
	nextID int
	subs   []subscription
}

// NewEventBus returns an empty bus.
func NewEventBus() *EventBus {
	return &EventBus{}
}

// Subscribe registers handler to receive future Publish calls whose
// Event.RequestID matches requestID (or every event, when requestID is
// empty). The returned unsubscribe func removes the handler; callers
// that subscribe for the lifetime of a single Run must defer it.
func (b *EventBus) Subscribe(requestID string, handler EventHandler) (unsubscribe func()) {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs = append(b.subs, subscription{id: id, requestID: requestID, handler: handler})
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, s := range b.subs {
			if s.id == id {
				b.subs = append(b.subs[:i], b.subs[i+1:]...)
				return
			}
		}
	}
}

// Publish delivers event to every subscriber whose requestID scope
// matches, in subscription order. The caller blocks until all matching
// handlers return, which is what gives the orchestrator its ordering
// guarantee: it never emits the next stage's event before this one has
// fully returned.
func (b *EventBus) Publish(event Event) {
	b.mu.RLock()
	handlers := make([]EventHandler, 0, len(b.subs))
	for _, s := range b.subs {
		if s.requestID == "" || s.requestID == event.RequestID {
			handlers = append(handlers, s.handler)
		}
	}
	b.mu.RUnlock()
	for _, h := range handlers {
		h(event)
	}
}
