package transport

import (
	"context"
	"encoding/json"
)

// channelPrefix namespaces session channels so distinct sessions (and other
// keyspace users) never cross-deliver
const channelPrefix = "board:session:"

// Event is the wire envelope for one broadcast message. Origin identifies
// the publishing process so a hub subscribed to its own channel can skip its
// own loopback instead of double-applying deltas.
type Event struct {
	Name    string          `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Origin  string          `json:"origin,omitempty"`
}

// NewEvent marshals a payload into an event envelope
func NewEvent(name string, payload any) (Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	return Event{Name: name, Payload: data}, nil
}

// Handler receives every event delivered on a subscription. Handlers run on
// the transport's delivery goroutine and must not block.
type Handler func(ev Event)

// Subscription is one live attachment to a session channel. Close releases
// the underlying connection and waits for the delivery goroutine to stop, so
// no handler fires after it returns. Close is idempotent. Because it joins
// on delivery, Close must not be called from inside a Handler.
type Subscription interface {
	Close() error
}

// Transport delivers named events to all current subscribers of a
// session-scoped channel. Fire-and-forget: no delivery guarantee, no ordering
// across distinct event names, no persistence. A peer joining after an event
// was sent never receives it.
type Transport interface {
	// Subscribe opens exactly one connection per call. Multiple calls for
	// the same session id coexist without leaking; each owns its own
	// subscription.
	Subscribe(ctx context.Context, sessionID string, h Handler) (Subscription, error)

	// Publish sends an event to all current subscribers. Failures are
	// swallowed into the returned error for logging only; callers treat a
	// failed publish like a dropped message, not a fatal condition.
	Publish(ctx context.Context, sessionID string, ev Event) error
}

// ChannelKey returns the namespaced channel name for a session
func ChannelKey(sessionID string) string {
	return channelPrefix + sessionID
}
