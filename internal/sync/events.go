package sync

import (
	"encoding/json"
	"errors"

	"liveboard/internal/board"
	"liveboard/internal/transport"
)

// Event names carried on the session channel. Steady-state drawing events
// match the presenter protocol; SyncRequest/Snapshot are the catch-up pair a
// late or reconnecting viewer uses to reach current state quickly.
const (
	EventStrokeAdd     = "stroke_add"
	EventStrokeUpdate  = "stroke_update"
	EventStrokePoints  = "stroke_points"
	EventClear         = "clear"
	EventSlideChange   = "slide_change"
	EventSessionConfig = "session_config"
	EventSyncRequest   = "sync_request"
	EventSnapshot      = "snapshot"
)

// ErrMalformedEvent marks an inbound payload missing required fields. Such
// events are dropped: one misbehaving peer must never crash the others.
var ErrMalformedEvent = errors.New("malformed event")

// StrokeUpdatePayload carries a field-level partial update for one stroke.
// Updates.Points replaces the whole array; it never merges.
type StrokeUpdatePayload struct {
	ID      string             `json:"id"`
	Updates board.StrokeUpdate `json:"updates"`
}

// StrokePointsPayload appends points to an in-progress stroke (delta path)
type StrokePointsPayload struct {
	ID     string        `json:"id"`
	Points []board.Point `json:"points"`
}

// SlideChangePayload moves every participant to a new slide
type SlideChangePayload struct {
	Index int `json:"index"`
}

// SessionConfigPayload announces a mid-session content set change
type SessionConfigPayload struct {
	SetID   string `json:"setId,omitempty"`
	SetName string `json:"setName,omitempty"`
}

// SnapshotPayload is the host's full-state answer to a sync request
type SnapshotPayload struct {
	Index   int            `json:"index"`
	Strokes []board.Stroke `json:"strokes"`
	SetID   string         `json:"setId,omitempty"`
}

func decodeStrokeAdd(raw json.RawMessage) (board.Stroke, error) {
	var st board.Stroke
	if err := json.Unmarshal(raw, &st); err != nil {
		return st, ErrMalformedEvent
	}
	if st.ID == "" || !st.Tool.Valid() || len(st.Points) == 0 {
		return st, ErrMalformedEvent
	}
	return st, nil
}

func decodeStrokeUpdate(raw json.RawMessage) (StrokeUpdatePayload, error) {
	var p StrokeUpdatePayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return p, ErrMalformedEvent
	}
	if p.ID == "" {
		return p, ErrMalformedEvent
	}
	return p, nil
}

func decodeStrokePoints(raw json.RawMessage) (StrokePointsPayload, error) {
	var p StrokePointsPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return p, ErrMalformedEvent
	}
	if p.ID == "" || len(p.Points) == 0 {
		return p, ErrMalformedEvent
	}
	return p, nil
}

func decodeSlideChange(raw json.RawMessage) (SlideChangePayload, error) {
	var p SlideChangePayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return p, ErrMalformedEvent
	}
	if p.Index < 0 {
		return p, ErrMalformedEvent
	}
	return p, nil
}

func decodeSessionConfig(raw json.RawMessage) (SessionConfigPayload, error) {
	var p SessionConfigPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return p, ErrMalformedEvent
	}
	return p, nil
}

func decodeSnapshot(raw json.RawMessage) (SnapshotPayload, error) {
	var p SnapshotPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return p, ErrMalformedEvent
	}
	if p.Index < 0 {
		return p, ErrMalformedEvent
	}
	return p, nil
}

// NewSnapshotEvent builds a snapshot event from a store's current state
func NewSnapshotEvent(store *board.Store, setID string) transport.Event {
	return mustEvent(EventSnapshot, SnapshotPayload{
		Index:   store.CurrentSlide(),
		Strokes: store.Strokes(),
		SetID:   setID,
	})
}

// mustEvent builds an event envelope from a payload that is known to marshal
func mustEvent(name string, payload any) transport.Event {
	ev, err := transport.NewEvent(name, payload)
	if err != nil {
		// payload types here are plain structs; this cannot fail at runtime
		panic(err)
	}
	return ev
}
