package transport_test

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"liveboard/internal/transport"
)

func TestMemoryTransportDeliversToSessionSubscribers(t *testing.T) {
	tr := transport.NewMemoryTransport(8)
	ctx := context.Background()

	got := make(chan transport.Event, 8)
	sub, err := tr.Subscribe(ctx, "s1", func(ev transport.Event) { got <- ev })
	require.NoError(t, err)
	defer sub.Close()

	other := make(chan transport.Event, 8)
	otherSub, err := tr.Subscribe(ctx, "s2", func(ev transport.Event) { other <- ev })
	require.NoError(t, err)
	defer otherSub.Close()

	ev := transport.Event{Name: "clear", Payload: json.RawMessage(`{}`)}
	require.NoError(t, tr.Publish(ctx, "s1", ev))

	select {
	case received := <-got:
		assert.Equal(t, "clear", received.Name)
	case <-time.After(time.Second):
		t.Fatal("subscriber never received the event")
	}

	// session channels are isolated
	select {
	case <-other:
		t.Fatal("event leaked across sessions")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestMemoryTransportPreservesOrder(t *testing.T) {
	tr := transport.NewMemoryTransport(32)
	ctx := context.Background()

	got := make(chan string, 32)
	sub, err := tr.Subscribe(ctx, "s1", func(ev transport.Event) { got <- ev.Name })
	require.NoError(t, err)
	defer sub.Close()

	names := []string{"stroke_add", "stroke_points", "stroke_points", "stroke_update"}
	for _, name := range names {
		require.NoError(t, tr.Publish(ctx, "s1", transport.Event{Name: name, Payload: json.RawMessage(`{}`)}))
	}

	for _, want := range names {
		select {
		case name := <-got:
			assert.Equal(t, want, name)
		case <-time.After(time.Second):
			t.Fatalf("missing event %q", want)
		}
	}
}

func TestMemoryTransportCloseStopsDelivery(t *testing.T) {
	tr := transport.NewMemoryTransport(8)
	ctx := context.Background()

	got := make(chan transport.Event, 8)
	sub, err := tr.Subscribe(ctx, "s1", func(ev transport.Event) { got <- ev })
	require.NoError(t, err)

	require.NoError(t, sub.Close())
	// closing twice is fine
	require.NoError(t, sub.Close())

	require.NoError(t, tr.Publish(ctx, "s1", transport.Event{Name: "clear", Payload: json.RawMessage(`{}`)}))

	select {
	case <-got:
		t.Fatal("closed subscription still received events")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestMemoryTransportCloseWaitsForInFlightHandler(t *testing.T) {
	tr := transport.NewMemoryTransport(8)
	ctx := context.Background()

	entered := make(chan struct{})
	var finished atomic.Bool
	sub, err := tr.Subscribe(ctx, "s1", func(ev transport.Event) {
		close(entered)
		time.Sleep(50 * time.Millisecond)
		finished.Store(true)
	})
	require.NoError(t, err)

	require.NoError(t, tr.Publish(ctx, "s1", transport.Event{Name: "clear", Payload: json.RawMessage(`{}`)}))

	select {
	case <-entered:
	case <-time.After(time.Second):
		t.Fatal("handler never started")
	}

	require.NoError(t, sub.Close())
	assert.True(t, finished.Load(), "Close returned while a handler was still running")
}

func TestChannelKey(t *testing.T) {
	assert.Equal(t, "board:session:lesson-1", transport.ChannelKey("lesson-1"))
}
