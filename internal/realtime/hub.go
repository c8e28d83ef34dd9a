// Package realtime fans task and project changes out to in-process
// subscribers and keeps client-side snapshots of them up to date.
package realtime

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/Joseda-hg/lazygtd/internal/model"
)

const DefaultBuffer = 64

// Hub is a non-blocking publish/subscribe feed of model.Change values.
// A subscriber that cannot keep up is dropped and its channel closed, so
// the subscriber has to resubscribe and reload a full snapshot.
type Hub struct {
	mu     sync.Mutex
	subs   map[int]*Subscription
	nextID int
	log    zerolog.Logger
}

type Subscription struct {
	id     int
	hub    *Hub
	ch     chan model.Change
	closed bool
}

func NewHub(log zerolog.Logger) *Hub {
	return &Hub{subs: make(map[int]*Subscription), log: log}
}

// Subscribe registers a subscriber with the given channel buffer.
func (h *Hub) Subscribe(buffer int) *Subscription {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	sub := &Subscription{id: h.nextID, hub: h, ch: make(chan model.Change, buffer)}
	h.subs[sub.id] = sub
	return sub
}

// Publish delivers change to every subscriber without blocking.
func (h *Hub) Publish(change model.Change) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for id, sub := range h.subs {
		select {
		case sub.ch <- change:
		default:
			h.log.Warn().Int("subscriber", id).Str("kind", string(change.Kind)).Msg("dropping slow subscriber")
			h.closeLocked(sub)
		}
	}
}

// Subscribers returns the number of live subscriptions.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Close drops every subscriber.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, sub := range h.subs {
		h.closeLocked(sub)
	}
}

func (h *Hub) closeLocked(sub *Subscription) {
	if sub.closed {
		return
	}
	sub.closed = true
	delete(h.subs, sub.id)
	close(sub.ch)
}

// C returns the channel changes arrive on. It is closed when the
// subscription ends.
func (s *Subscription) C() <-chan model.Change {
	return s.ch
}

func (s *Subscription) Close() {
	s.hub.mu.Lock()
	defer s.hub.mu.Unlock()
	s.hub.closeLocked(s)
}
