package sync_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"liveboard/internal/board"
	"liveboard/internal/sync"
	"liveboard/internal/transport"
)

const waitFor = 2 * time.Second
const tick = 10 * time.Millisecond

func newPair(t *testing.T) (*sync.HostSession, *sync.ViewerSession, transport.Transport) {
	t.Helper()
	tr := transport.NewMemoryTransport(64)

	host := sync.NewHost("lesson-1", board.NewStore(), tr)
	require.NoError(t, host.Connect(context.Background()))
	t.Cleanup(func() { host.Close() })

	viewer := sync.NewViewer("lesson-1", board.NewStore(), tr)
	require.NoError(t, viewer.Connect(context.Background()))
	t.Cleanup(func() { viewer.Close() })

	return host, viewer, tr
}

func TestViewerFollowsHostDrawing(t *testing.T) {
	host, viewer, _ := newPair(t)
	ctx := context.Background()

	id := host.BeginStroke(ctx, board.ToolPen, board.Point{X: 10, Y: 10}, 4, "#000000", "")
	host.ExtendStroke(ctx, board.Point{X: 20, Y: 20})
	host.ExtendStroke(ctx, board.Point{X: 30, Y: 30})
	host.EndStroke(ctx)

	require.Eventually(t, func() bool {
		strokes := viewer.Store().Strokes()
		return len(strokes) == 1 && len(strokes[0].Points) == 3
	}, waitFor, tick)

	st := viewer.Store().Strokes()[0]
	assert.Equal(t, id, st.ID)
	assert.Equal(t, board.ToolPen, st.Tool)
	assert.Equal(t, 30.0, st.Points[2].X)
}

func TestViewerFollowsStrokeUpdate(t *testing.T) {
	host, viewer, _ := newPair(t)
	ctx := context.Background()

	id := host.BeginStroke(ctx, board.ToolRectangle, board.Point{X: 0, Y: 0}, 2, "#0000ff", "")
	host.EndStroke(ctx)

	color := "#ff0000"
	host.UpdateStroke(ctx, id, board.StrokeUpdate{Color: &color})

	require.Eventually(t, func() bool {
		strokes := viewer.Store().Strokes()
		return len(strokes) == 1 && strokes[0].Color == "#ff0000"
	}, waitFor, tick)
}

func TestViewerFollowsClearAndSlideChange(t *testing.T) {
	host, viewer, _ := newPair(t)
	ctx := context.Background()

	host.BeginStroke(ctx, board.ToolPen, board.Point{X: 1, Y: 1}, 4, "#000000", "")
	host.EndStroke(ctx)

	require.Eventually(t, func() bool {
		return viewer.Store().Len() == 1
	}, waitFor, tick)

	host.Clear(ctx)
	require.Eventually(t, func() bool {
		return viewer.Store().Len() == 0
	}, waitFor, tick)

	host.BeginStroke(ctx, board.ToolPen, board.Point{X: 2, Y: 2}, 4, "#000000", "")
	host.EndStroke(ctx)
	host.ChangeSlide(ctx, 2)

	require.Eventually(t, func() bool {
		return viewer.Store().CurrentSlide() == 2 && viewer.Store().Len() == 0
	}, waitFor, tick)
}

func TestLateJoinerReceivesSnapshot(t *testing.T) {
	tr := transport.NewMemoryTransport(64)
	ctx := context.Background()

	host := sync.NewHost("lesson-2", board.NewStore(), tr, sync.WithInitialSet("set-7"))
	require.NoError(t, host.Connect(ctx))
	defer host.Close()

	host.ChangeSlide(ctx, 4)
	host.BeginStroke(ctx, board.ToolPen, board.Point{X: 5, Y: 5}, 4, "#000000", "")
	host.ExtendStroke(ctx, board.Point{X: 6, Y: 6})
	host.EndStroke(ctx)

	gotSet := make(chan string, 1)
	viewer := sync.NewViewer("lesson-2", board.NewStore(), tr,
		sync.WithConfigHook(func(setID, setName string) { gotSet <- setID }))
	require.NoError(t, viewer.Connect(ctx))
	defer viewer.Close()

	require.Eventually(t, func() bool {
		return viewer.Store().Len() == 1 && viewer.Store().CurrentSlide() == 4
	}, waitFor, tick)
	assert.Len(t, viewer.Store().Strokes()[0].Points, 2)

	select {
	case setID := <-gotSet:
		assert.Equal(t, "set-7", setID)
	case <-time.After(waitFor):
		t.Fatal("config hook never fired for the snapshot's set")
	}
}

func TestMidStrokeJoinerConvergesByEndStroke(t *testing.T) {
	tr := transport.NewMemoryTransport(64)
	ctx := context.Background()

	host := sync.NewHost("lesson-3", board.NewStore(), tr)
	require.NoError(t, host.Connect(ctx))
	defer host.Close()

	// stroke in progress before the viewer exists; the early deltas are lost
	host.BeginStroke(ctx, board.ToolPen, board.Point{X: 1, Y: 1}, 4, "#000000", "")
	host.ExtendStroke(ctx, board.Point{X: 2, Y: 2})

	viewer := sync.NewViewer("lesson-3", board.NewStore(), tr)
	require.NoError(t, viewer.Connect(ctx))
	defer viewer.Close()

	// snapshot answers the join; further deltas and the final full-array
	// update land on top of it
	host.ExtendStroke(ctx, board.Point{X: 3, Y: 3})
	host.EndStroke(ctx)

	require.Eventually(t, func() bool {
		strokes := viewer.Store().Strokes()
		return len(strokes) == 1 && len(strokes[0].Points) == 3
	}, waitFor, tick)
}

func TestSessionConfigFiresHookOnce(t *testing.T) {
	tr := transport.NewMemoryTransport(64)
	ctx := context.Background()

	host := sync.NewHost("lesson-4", board.NewStore(), tr)
	require.NoError(t, host.Connect(ctx))
	defer host.Close()

	calls := make(chan string, 4)
	viewer := sync.NewViewer("lesson-4", board.NewStore(), tr,
		sync.WithConfigHook(func(setID, setName string) { calls <- setID + "/" + setName }))
	require.NoError(t, viewer.Connect(ctx))
	defer viewer.Close()

	host.Configure(ctx, "set-9", "Fractions")
	select {
	case got := <-calls:
		assert.Equal(t, "set-9/Fractions", got)
	case <-time.After(waitFor):
		t.Fatal("config hook never fired")
	}

	// re-announcing the already-loaded set is a no-op
	host.Configure(ctx, "set-9", "Fractions")
	host.Clear(ctx)
	require.Eventually(t, func() bool {
		return viewer.Store().Len() == 0
	}, waitFor, tick)
	assert.Empty(t, calls)
}

func TestMalformedEventsAreDroppedNotFatal(t *testing.T) {
	host, viewer, tr := newPair(t)
	ctx := context.Background()

	malformed := []transport.Event{
		{Name: sync.EventStrokeAdd, Payload: json.RawMessage(`{"broken`)},
		{Name: sync.EventStrokeAdd, Payload: json.RawMessage(`{"id":"","tool":"pen","points":[{"x":1,"y":1}]}`)},
		{Name: sync.EventStrokeAdd, Payload: json.RawMessage(`{"id":"x","tool":"chainsaw","points":[{"x":1,"y":1}]}`)},
		{Name: sync.EventStrokeUpdate, Payload: json.RawMessage(`{"updates":{}}`)},
		{Name: sync.EventSlideChange, Payload: json.RawMessage(`{"index":-2}`)},
		{Name: "unknown_event", Payload: json.RawMessage(`{}`)},
	}
	for _, ev := range malformed {
		require.NoError(t, tr.Publish(ctx, "lesson-1", ev))
	}

	// the stream keeps working after the garbage
	host.BeginStroke(ctx, board.ToolPen, board.Point{X: 1, Y: 1}, 4, "#000000", "")
	host.EndStroke(ctx)

	require.Eventually(t, func() bool {
		return viewer.Store().Len() == 1
	}, waitFor, tick)
}

func TestStaleStrokeAfterSlideChangeHealsOnClear(t *testing.T) {
	store := board.NewStore()

	// slide 0 stroke broadcast by the host before it navigated away
	staleAdd, err := transport.NewEvent(sync.EventStrokeAdd, board.Stroke{
		ID:     "stale",
		Tool:   board.ToolPen,
		Points: []board.Point{{X: 1, Y: 1}},
		Size:   4,
		Color:  "#000000",
	})
	require.NoError(t, err)
	slideChange, err := transport.NewEvent(sync.EventSlideChange, sync.SlideChangePayload{Index: 2})
	require.NoError(t, err)

	// delivery reorders them: the navigation lands first, then the old add
	assert.True(t, sync.ApplyDrawing(store, "s", slideChange))
	assert.True(t, sync.ApplyDrawing(store, "s", staleAdd))

	// the stray stroke sits on the wrong slide but the state stays sound
	assert.Equal(t, 2, store.CurrentSlide())
	assert.Equal(t, 1, store.Len())

	// the next clear removes it and the board is fully recovered
	clear, err := transport.NewEvent(sync.EventClear, struct{}{})
	require.NoError(t, err)
	assert.True(t, sync.ApplyDrawing(store, "s", clear))

	assert.Equal(t, 0, store.Len())
	assert.Equal(t, 2, store.CurrentSlide())
	assert.False(t, store.Contains("stale"))
}

func TestApplyDrawingSuppressesDuplicateAdd(t *testing.T) {
	store := board.NewStore()
	ev, err := transport.NewEvent(sync.EventStrokeAdd, board.Stroke{
		ID:     "dup",
		Tool:   board.ToolPen,
		Points: []board.Point{{X: 1, Y: 1}},
		Size:   4,
		Color:  "#000000",
	})
	require.NoError(t, err)

	sync.ApplyDrawing(store, "s", ev)
	sync.ApplyDrawing(store, "s", ev)

	assert.Equal(t, 1, store.Len())
}

func TestApplyDrawingUnknownIDUpdateIsNoOp(t *testing.T) {
	store := board.NewStore()

	ev, err := transport.NewEvent(sync.EventStrokePoints, sync.StrokePointsPayload{
		ID:     "never-seen",
		Points: []board.Point{{X: 1, Y: 1}},
	})
	require.NoError(t, err)

	sync.ApplyDrawing(store, "s", ev)
	assert.Equal(t, 0, store.Len())
}

func TestNewSnapshotEventCarriesFullState(t *testing.T) {
	store := board.NewStore()
	store.SetSlide(3)
	store.AddStroke(board.Stroke{
		ID:     "a",
		Tool:   board.ToolPen,
		Points: []board.Point{{X: 1, Y: 1}, {X: 2, Y: 2}},
		Size:   4,
		Color:  "#000000",
	})

	ev := sync.NewSnapshotEvent(store, "set-3")
	assert.Equal(t, sync.EventSnapshot, ev.Name)

	var p sync.SnapshotPayload
	require.NoError(t, json.Unmarshal(ev.Payload, &p))
	assert.Equal(t, 3, p.Index)
	assert.Equal(t, "set-3", p.SetID)
	require.Len(t, p.Strokes, 1)
	assert.Len(t, p.Strokes[0].Points, 2)
}

func TestIsDrawingEvent(t *testing.T) {
	assert.True(t, sync.IsDrawingEvent(sync.EventStrokeAdd))
	assert.True(t, sync.IsDrawingEvent(sync.EventStrokePoints))
	assert.True(t, sync.IsDrawingEvent(sync.EventClear))
	assert.True(t, sync.IsDrawingEvent(sync.EventSlideChange))
	assert.False(t, sync.IsDrawingEvent(sync.EventSnapshot))
	assert.False(t, sync.IsDrawingEvent(sync.EventSessionConfig))
	assert.False(t, sync.IsDrawingEvent("typing"))
}

func TestClosedSessionStaysClosed(t *testing.T) {
	tr := transport.NewMemoryTransport(8)
	viewer := sync.NewViewer("lesson-5", board.NewStore(), tr)

	require.NoError(t, viewer.Connect(context.Background()))
	assert.Equal(t, sync.StateConnected, viewer.State())

	require.NoError(t, viewer.Close())
	assert.Equal(t, sync.StateClosed, viewer.State())

	// reconnect is not part of the protocol
	require.NoError(t, viewer.Connect(context.Background()))
	assert.Equal(t, sync.StateClosed, viewer.State())
}
