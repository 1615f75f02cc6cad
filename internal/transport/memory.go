package transport

import (
	"context"
	"log"
	"sync"
)

// MemoryTransport is an in-process fan-out used by tests and by single-node
// deployments where host and viewers share the hub. Semantics match the wire
// transports: no persistence, best-effort delivery, subscribers with a full
// buffer lose messages.
type MemoryTransport struct {
	mu         sync.RWMutex
	channels   map[string]map[*memorySubscription]struct{}
	bufferSize int
}

// NewMemoryTransport creates a transport with the given per-subscriber buffer
func NewMemoryTransport(bufferSize int) *MemoryTransport {
	if bufferSize <= 0 {
		bufferSize = 64
	}
	return &MemoryTransport{
		channels:   make(map[string]map[*memorySubscription]struct{}),
		bufferSize: bufferSize,
	}
}

type memorySubscription struct {
	t       *MemoryTransport
	key     string
	events  chan Event
	done    chan struct{}
	stopped chan struct{}
	closeMu sync.Once
}

// Subscribe attaches a handler to the session channel
func (t *MemoryTransport) Subscribe(ctx context.Context, sessionID string, h Handler) (Subscription, error) {
	sub := &memorySubscription{
		t:       t,
		key:     ChannelKey(sessionID),
		events:  make(chan Event, t.bufferSize),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}

	t.mu.Lock()
	if _, ok := t.channels[sub.key]; !ok {
		t.channels[sub.key] = make(map[*memorySubscription]struct{})
	}
	t.channels[sub.key][sub] = struct{}{}
	t.mu.Unlock()

	go sub.pump(h)
	return sub, nil
}

// pump delivers buffered events until the subscription closes. Close joins
// on stopped, so no handler fires after Close returns.
func (s *memorySubscription) pump(h Handler) {
	defer close(s.stopped)
	for {
		select {
		case <-s.done:
			return
		case ev := <-s.events:
			select {
			case <-s.done:
				return
			default:
			}
			h(ev)
		}
	}
}

// Publish fans an event out to every subscriber of the session channel
func (t *MemoryTransport) Publish(ctx context.Context, sessionID string, ev Event) error {
	key := ChannelKey(sessionID)

	t.mu.RLock()
	subs := make([]*memorySubscription, 0, len(t.channels[key]))
	for sub := range t.channels[key] {
		subs = append(subs, sub)
	}
	t.mu.RUnlock()

	for _, sub := range subs {
		select {
		case sub.events <- ev:
		default:
			// slow subscriber loses the message, same as a lossy network
			log.Printf("[MemoryTransport] Subscriber buffer full on %s, dropping %s", key, ev.Name)
		}
	}
	return nil
}

// Close detaches the subscription and waits for any in-flight handler call
// to finish; idempotent
func (s *memorySubscription) Close() error {
	s.closeMu.Do(func() {
		close(s.done)
		s.t.mu.Lock()
		if subs, ok := s.t.channels[s.key]; ok {
			delete(subs, s)
			if len(subs) == 0 {
				delete(s.t.channels, s.key)
			}
		}
		s.t.mu.Unlock()
	})
	<-s.stopped
	return nil
}
