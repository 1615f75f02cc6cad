package sync

import (
	"context"
	"log"
	gosync "sync"

	"liveboard/internal/board"
	"liveboard/internal/transport"
)

// State tracks the session's connection lifecycle
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateClosed
)

// String returns the state name
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Option configures a session at construction
type Option func(*session)

// WithConfigHook installs the callback fired when a session_config event
// names a content set this participant has not loaded
func WithConfigHook(fn ConfigFunc) Option {
	return func(s *session) { s.onConfig = fn }
}

// WithInitialSet records the content set loaded before the session started
func WithInitialSet(setID string) Option {
	return func(s *session) { s.setID = setID }
}

// ConfigFunc is invoked when a session_config event announces a content set
// this participant has not loaded yet. Implementations typically call the
// bootstrap resolver and swap the question list.
type ConfigFunc func(setID, setName string)

// session is the capability shared by both roles: a subscription feeding
// decoded events into the board store. Outbound publishing lives only on
// HostSession, so a viewer misused as a producer is a compile-time error.
type session struct {
	sessionID string
	store     *board.Store
	tr        transport.Transport
	onConfig  ConfigFunc

	mu    gosync.Mutex
	sub   transport.Subscription
	state State
	setID string
}

// Store returns the session's board store (render input)
func (s *session) Store() *board.Store {
	return s.store
}

// SessionID returns the channel key owner id
func (s *session) SessionID() string {
	return s.sessionID
}

// State returns the current connection state
func (s *session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// connect subscribes to the session channel with the given handler. Safe to
// call once; a closed session stays closed (no reconnect in this protocol).
func (s *session) connect(ctx context.Context, h transport.Handler) error {
	s.mu.Lock()
	if s.state != StateDisconnected {
		s.mu.Unlock()
		return nil
	}
	s.state = StateConnecting
	s.mu.Unlock()

	sub, err := s.tr.Subscribe(ctx, s.sessionID, h)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.state = StateDisconnected
		return err
	}
	if s.state == StateClosed {
		// Close raced the handshake; release the fresh subscription
		sub.Close()
		return nil
	}
	s.sub = sub
	s.state = StateConnected
	return nil
}

// publish is a fire-and-forget send. Before the handshake completes (or
// after close) events are silently dropped, matching the transport contract.
func (s *session) publish(ctx context.Context, ev transport.Event) {
	s.mu.Lock()
	connected := s.state == StateConnected
	s.mu.Unlock()
	if !connected {
		return
	}
	if err := s.tr.Publish(ctx, s.sessionID, ev); err != nil {
		log.Printf("[Session %s] Publish %s dropped: %v", s.sessionID, ev.Name, err)
	}
}

// Close tears down the subscription. Terminal: the session cannot reconnect.
func (s *session) Close() error {
	s.mu.Lock()
	sub := s.sub
	s.sub = nil
	s.state = StateClosed
	s.mu.Unlock()

	if sub != nil {
		return sub.Close()
	}
	return nil
}

// currentSetID returns the content set this participant has loaded
func (s *session) currentSetID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setID
}

func (s *session) setCurrentSetID(id string) {
	s.mu.Lock()
	s.setID = id
	s.mu.Unlock()
}

// ApplyDrawing mutates the store from a decoded drawing event. Shared by
// the viewer path and by the hub's authoritative board. Malformed payloads
// are dropped with a log line; nothing here panics or returns a fatal error.
// Double application is harmless: adds are suppressed when the id already
// exists, updates are last-write-wins.
//
// The return value reports whether the event was well-formed. Callers that
// relay events (the hub) must not forward an event this rejected; a valid
// no-op (duplicate add, unknown update id) still returns true because other
// peers may be in a state where it applies.
func ApplyDrawing(store *board.Store, sessionID string, ev transport.Event) bool {
	switch ev.Name {
	case EventStrokeAdd:
		st, err := decodeStrokeAdd(ev.Payload)
		if err != nil {
			log.Printf("[Session %s] Dropping malformed %s", sessionID, ev.Name)
			return false
		}
		if store.Contains(st.ID) {
			// duplicate delivery of the same add
			return true
		}
		store.AddStroke(st)

	case EventStrokeUpdate:
		p, err := decodeStrokeUpdate(ev.Payload)
		if err != nil {
			log.Printf("[Session %s] Dropping malformed %s", sessionID, ev.Name)
			return false
		}
		// unknown id is a no-op: the add may never have reached this peer
		store.UpdateStroke(p.ID, p.Updates)

	case EventStrokePoints:
		p, err := decodeStrokePoints(ev.Payload)
		if err != nil {
			log.Printf("[Session %s] Dropping malformed %s", sessionID, ev.Name)
			return false
		}
		store.AppendPoints(p.ID, p.Points)

	case EventClear:
		store.Clear()

	case EventSlideChange:
		p, err := decodeSlideChange(ev.Payload)
		if err != nil {
			log.Printf("[Session %s] Dropping malformed %s", sessionID, ev.Name)
			return false
		}
		store.SetSlide(p.Index)

	default:
		return false
	}
	return true
}

// IsDrawingEvent reports whether the event mutates board state
func IsDrawingEvent(name string) bool {
	switch name {
	case EventStrokeAdd, EventStrokeUpdate, EventStrokePoints, EventClear, EventSlideChange:
		return true
	}
	return false
}
