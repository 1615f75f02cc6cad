package sync

import (
	"context"
	"log"

	"github.com/google/uuid"

	"liveboard/internal/board"
	"liveboard/internal/transport"
)

// HostSession is the sole authoritative producer of a session's sync events.
// Local edits apply to the store first and are then broadcast; the host never
// applies remote drawing events (it is their origin), it only answers sync
// requests with a full snapshot.
type HostSession struct {
	session

	// in-progress freehand stroke, touched only by the host's input
	// goroutine between BeginStroke and EndStroke
	activeStroke string
}

// NewHost creates a host session bound to a per-session store
func NewHost(sessionID string, store *board.Store, tr transport.Transport, opts ...Option) *HostSession {
	h := &HostSession{
		session: session{
			sessionID: sessionID,
			store:     store,
			tr:        tr,
			state:     StateDisconnected,
		},
	}
	for _, opt := range opts {
		opt(&h.session)
	}
	return h
}

// Connect subscribes the host to its own channel. The host listens only for
// sync_request; everything else on the channel originated from it.
func (h *HostSession) Connect(ctx context.Context) error {
	return h.connect(ctx, func(ev transport.Event) {
		if ev.Name != EventSyncRequest {
			return
		}
		h.sendSnapshot(context.Background())
	})
}

// sendSnapshot publishes the full current board state
func (h *HostSession) sendSnapshot(ctx context.Context) {
	snap := SnapshotPayload{
		Index:   h.store.CurrentSlide(),
		Strokes: h.store.Strokes(),
		SetID:   h.currentSetID(),
	}
	h.publish(ctx, mustEvent(EventSnapshot, snap))
	log.Printf("[Session %s] Snapshot sent (%d strokes, slide %d)", h.sessionID, len(snap.Strokes), snap.Index)
}

// BeginStroke starts a new stroke at the pointer-down position and broadcasts
// it with its first point. Returns the generated stroke id.
func (h *HostSession) BeginStroke(ctx context.Context, tool board.Tool, p board.Point, size float64, color, text string) string {
	st := board.Stroke{
		ID:     uuid.New().String(),
		Tool:   tool,
		Points: []board.Point{p},
		Size:   size,
		Color:  color,
		Text:   text,
	}
	h.store.AddStroke(st)
	h.activeStroke = st.ID
	h.publish(ctx, mustEvent(EventStrokeAdd, st))
	return st.ID
}

// ExtendStroke appends a pointer-move position to the in-progress stroke and
// broadcasts the delta
func (h *HostSession) ExtendStroke(ctx context.Context, p board.Point) {
	if h.activeStroke == "" {
		return
	}
	h.store.AppendPoints(h.activeStroke, []board.Point{p})
	h.publish(ctx, mustEvent(EventStrokePoints, StrokePointsPayload{
		ID:     h.activeStroke,
		Points: []board.Point{p},
	}))
}

// EndStroke finalizes the in-progress stroke. The final full point list is
// re-broadcast as a stroke_update so a peer that lost deltas converges.
func (h *HostSession) EndStroke(ctx context.Context) {
	if h.activeStroke == "" {
		return
	}
	id := h.activeStroke
	h.activeStroke = ""

	for _, st := range h.store.Strokes() {
		if st.ID == id {
			pts := st.Points
			h.publish(ctx, mustEvent(EventStrokeUpdate, StrokeUpdatePayload{
				ID:      id,
				Updates: board.StrokeUpdate{Points: &pts},
			}))
			return
		}
	}
}

// UpdateStroke applies and broadcasts a partial update to any stroke
func (h *HostSession) UpdateStroke(ctx context.Context, id string, upd board.StrokeUpdate) {
	if !h.store.UpdateStroke(id, upd) {
		return
	}
	h.publish(ctx, mustEvent(EventStrokeUpdate, StrokeUpdatePayload{ID: id, Updates: upd}))
}

// Clear empties the board everywhere
func (h *HostSession) Clear(ctx context.Context) {
	h.store.Clear()
	h.activeStroke = ""
	h.publish(ctx, mustEvent(EventClear, struct{}{}))
}

// ChangeSlide navigates every participant to a new slide, discarding the
// previous slide's strokes
func (h *HostSession) ChangeSlide(ctx context.Context, index int) {
	if index < 0 {
		return
	}
	h.store.SetSlide(index)
	h.activeStroke = ""
	h.publish(ctx, mustEvent(EventSlideChange, SlideChangePayload{Index: index}))
}

// Configure announces a mid-session content set change
func (h *HostSession) Configure(ctx context.Context, setID, setName string) {
	h.setCurrentSetID(setID)
	h.publish(ctx, mustEvent(EventSessionConfig, SessionConfigPayload{SetID: setID, SetName: setName}))
}
