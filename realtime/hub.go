// Package realtime fans out domain events to connected dashboard clients.
package realtime

import (
	"context"
	"encoding/json"
	"sync"

	"lingokit/core"
	"lingokit/engine"
)

type subscriber struct {
	ch chan core.Event
	// user filters the stream to one learner; empty receives everything.
	user core.UserID
}

// Hub is a simple pub/sub for broadcasting events to channels. Subscribers
// can scope their stream to a single user, which is what the per-learner
// dashboard connection does.
type Hub struct {
	mu   sync.RWMutex
	subs map[int]subscriber
	next int
}

func NewHub() *Hub { return &Hub{subs: map[int]subscriber{}} }

// Subscribe registers a firehose subscriber receiving every event.
func (h *Hub) Subscribe(buffer int) (int, <-chan core.Event) {
	return h.subscribe(buffer, "")
}

// SubscribeUser registers a subscriber receiving only one user's events.
func (h *Hub) SubscribeUser(buffer int, user core.UserID) (int, <-chan core.Event) {
	return h.subscribe(buffer, user)
}

func (h *Hub) subscribe(buffer int, user core.UserID) (int, <-chan core.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.next++
	id := h.next
	ch := make(chan core.Event, buffer)
	h.subs[id] = subscriber{ch: ch, user: user}
	return id, ch
}

func (h *Hub) Unsubscribe(id int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if s, ok := h.subs[id]; ok {
		delete(h.subs, id)
		close(s.ch)
	}
}

func (h *Hub) Broadcast(_ context.Context, ev core.Event) {
	h.mu.RLock()
	// copy to avoid holding lock during send
	receivers := make([]chan core.Event, 0, len(h.subs))
	for _, s := range h.subs {
		if s.user != "" && s.user != ev.UserID {
			continue
		}
		receivers = append(receivers, s.ch)
	}
	h.mu.RUnlock()
	for _, ch := range receivers {
		select {
		case ch <- ev:
		default: /* drop if full */
		}
	}
}

// AttachBus forwards every event published on the bus into the hub.
// Returns the unsubscribe func.
func (h *Hub) AttachBus(bus *engine.EventBus) func() {
	return bus.Subscribe(engine.EventAny, h.Broadcast)
}

// MarshalJSON is a helper to convert events to JSON bytes for WebSocket/SSE.
func MarshalJSON(ev core.Event) []byte {
	b, _ := json.Marshal(ev)
	return b
}
