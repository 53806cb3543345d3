package pinauth

import (
	"sync"
)

// Event is one notification published on a session's topic.
type Event struct {
	Type string `json:"type"`
	Data string `json:"data,omitempty"`
}

// Hub is an in-memory pub/sub hub keyed by session id. Delivery is
// at-most-once best effort: publishes never block, slow subscribers
// are skipped.
type Hub struct {
	mu   sync.Mutex
	subs map[string]map[chan Event]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[chan Event]struct{})}
}

// Subscribe registers a listener on the given topic. The returned function
// removes the subscription; pending buffered events are discarded.
func (h *Hub) Subscribe(topic string) (<-chan Event, func()) {
	ch := make(chan Event, 16)

	h.mu.Lock()
	if h.subs[topic] == nil {
		h.subs[topic] = make(map[chan Event]struct{})
	}
	h.subs[topic][ch] = struct{}{}
	h.mu.Unlock()

	unsub := func() {
		h.mu.Lock()
		delete(h.subs[topic], ch)
		if len(h.subs[topic]) == 0 {
			delete(h.subs, topic)
		}
		h.mu.Unlock()
	}
	return ch, unsub
}

// Publish sends an event to every subscriber of the topic.
func (h *Hub) Publish(topic string, event Event) {
	h.mu.Lock()
	channels := make([]chan Event, 0, len(h.subs[topic]))
	for ch := range h.subs[topic] {
		channels = append(channels, ch)
	}
	h.mu.Unlock()

	for _, ch := range channels {
		select {
		case ch <- event:
		default:
		}
	}
}
