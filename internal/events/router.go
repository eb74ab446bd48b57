package events

import (
	"log/slog"
	"sync"
	"sync/atomic"
)

// DefaultBufferSize is the default channel buffer size for subscriptions.
const DefaultBufferSize = 100

// Subscription is one consumer's filtered view of the event stream.
// A subscription created with no types receives everything; otherwise
// only the listed event types are delivered. Events that arrive while
// the buffer is full are dropped and counted, never blocked on.
type Subscription struct {
	ch      chan Event
	types   map[EventType]struct{} // empty means every type
	dropped atomic.Int64
}

// Events returns the channel delivering this subscription's events.
// It is closed when the subscription is removed or the router closes.
func (s *Subscription) Events() <-chan Event {
	return s.ch
}

// Dropped returns how many events this subscription has missed because
// its buffer was full.
func (s *Subscription) Dropped() int64 {
	return s.dropped.Load()
}

// wants reports whether the subscription's filter matches an event type.
func (s *Subscription) wants(t EventType) bool {
	if len(s.types) == 0 {
		return true
	}
	_, ok := s.types[t]
	return ok
}

// Router fans events out from producers to filtered subscriptions.
// Emission is fire-and-forget: a slow consumer loses events rather than
// stalling the executor, and the loss is counted per subscription.
type Router struct {
	mu         sync.RWMutex
	subs       map[*Subscription]struct{}
	bufferSize int
	closed     bool
}

// NewRouter creates a router with the given default buffer size.
// If bufferSize is 0 or negative, DefaultBufferSize is used.
func NewRouter(bufferSize int) *Router {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	return &Router{
		subs:       make(map[*Subscription]struct{}),
		bufferSize: bufferSize,
	}
}

// Emit delivers an event to every subscription whose filter matches.
// Safe to call concurrently and after Close (becomes a no-op).
func (r *Router) Emit(event Event) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return
	}

	kind := event.Type()
	for sub := range r.subs {
		if !sub.wants(kind) {
			continue
		}
		select {
		case sub.ch <- event:
		default:
			slog.Warn("event dropped: subscription buffer full",
				"event_type", kind,
				"source", event.Source(),
				"total_dropped", sub.dropped.Add(1),
			)
		}
	}
}

// Subscribe registers a subscription with the router's default buffer.
// With no types it receives every event; otherwise only the given kinds.
func (r *Router) Subscribe(types ...EventType) *Subscription {
	return r.SubscribeBuffered(r.bufferSize, types...)
}

// SubscribeBuffered registers a subscription with an explicit buffer
// size, for consumers (like the monitor) that fall behind in bursts.
func (r *Router) SubscribeBuffered(size int, types ...EventType) *Subscription {
	if size <= 0 {
		size = r.bufferSize
	}

	sub := &Subscription{ch: make(chan Event, size)}
	if len(types) > 0 {
		sub.types = make(map[EventType]struct{}, len(types))
		for _, t := range types {
			sub.types[t] = struct{}{}
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		// Late subscribers get an already-closed channel.
		close(sub.ch)
		return sub
	}
	r.subs[sub] = struct{}{}
	return sub
}

// Unsubscribe removes a subscription and closes its channel.
// Safe to call with nil or with a subscription already removed.
func (r *Router) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.subs[sub]; !ok {
		return
	}
	delete(r.subs, sub)
	close(sub.ch)
}

// Close closes every subscription and marks the router closed.
// Subsequent Emit calls are no-ops and new subscriptions arrive closed.
// Safe to call multiple times.
func (r *Router) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return
	}
	r.closed = true
	for sub := range r.subs {
		close(sub.ch)
	}
	r.subs = nil
}
