package sync

import (
	"context"
	"log"

	"liveboard/internal/board"
	"liveboard/internal/transport"
)

// ViewerSession is a consumer-only participant. It applies whatever the host
// broadcasts and never writes back; the one event it may publish is a sync
// request. Outbound drawing operations simply do not exist on this type.
type ViewerSession struct {
	session
}

// NewViewer creates a viewer session bound to a per-session store
func NewViewer(sessionID string, store *board.Store, tr transport.Transport, opts ...Option) *ViewerSession {
	v := &ViewerSession{
		session: session{
			sessionID: sessionID,
			store:     store,
			tr:        tr,
			state:     StateDisconnected,
		},
	}
	for _, opt := range opts {
		opt(&v.session)
	}
	return v
}

// Connect subscribes and starts applying the host's stream. After the
// handshake a sync request is sent so a late joiner converges immediately
// instead of starting from an empty board.
func (v *ViewerSession) Connect(ctx context.Context) error {
	if err := v.connect(ctx, v.handleEvent); err != nil {
		return err
	}
	v.RequestSync(ctx)
	return nil
}

// RequestSync asks the host for a full state snapshot
func (v *ViewerSession) RequestSync(ctx context.Context) {
	v.publish(ctx, mustEvent(EventSyncRequest, struct{}{}))
}

// handleEvent routes one inbound event into the store. Unknown names and
// malformed payloads are dropped; a single bad peer message must never take
// down rendering.
func (v *ViewerSession) handleEvent(ev transport.Event) {
	switch {
	case IsDrawingEvent(ev.Name):
		ApplyDrawing(v.store, v.sessionID, ev)

	case ev.Name == EventSnapshot:
		p, err := decodeSnapshot(ev.Payload)
		if err != nil {
			log.Printf("[Session %s] Dropping malformed %s", v.sessionID, ev.Name)
			return
		}
		v.applySnapshot(p)

	case ev.Name == EventSessionConfig:
		p, err := decodeSessionConfig(ev.Payload)
		if err != nil {
			log.Printf("[Session %s] Dropping malformed %s", v.sessionID, ev.Name)
			return
		}
		if p.SetID != "" && p.SetID != v.currentSetID() {
			v.setCurrentSetID(p.SetID)
			if v.onConfig != nil {
				v.onConfig(p.SetID, p.SetName)
			}
		}

	case ev.Name == EventSyncRequest:
		// another viewer's request; only the host answers
	}
}

// applySnapshot replaces local state with the host's authoritative copy
func (v *ViewerSession) applySnapshot(p SnapshotPayload) {
	v.store.SetSlide(p.Index)
	if p.Strokes == nil {
		p.Strokes = []board.Stroke{}
	}
	v.store.ReplaceAll(p.Strokes)
	if p.SetID != "" && p.SetID != v.currentSetID() {
		v.setCurrentSetID(p.SetID)
		if v.onConfig != nil {
			v.onConfig(p.SetID, "")
		}
	}
}
