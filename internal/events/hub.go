package events

import "sync"

// Publisher receives encoded events (see MakeEvent).
type Publisher interface {
	Publish(evt string)
}

// Hub fans events out to SSE subscribers. Slow subscribers miss events
// rather than block publishers.
type Hub struct {
	mu      sync.Mutex
	clients map[chan string]struct{}
	buffer  int
}

func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = 16
	}
	return &Hub{clients: make(map[chan string]struct{}), buffer: buffer}
}

// Subscribe returns the event stream and a func that ends the subscription.
// The func may be called more than once.
func (h *Hub) Subscribe() (<-chan string, func()) {
	ch := make(chan string, h.buffer)
	h.mu.Lock()
	h.clients[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.clients, ch)
			h.mu.Unlock()
			close(ch)
		})
	}
}

func (h *Hub) Publish(evt string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.clients {
		select {
		case ch <- evt:
		default:
			// drop if slow
		}
	}
}

func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Multi publishes to every member in order. Nil members are skipped.
type Multi []Publisher

func (m Multi) Publish(evt string) {
	for _, p := range m {
		if p != nil {
			p.Publish(evt)
		}
	}
}
