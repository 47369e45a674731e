package websocket

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smartcapi-client/internal/observability"
)

func startHub(t *testing.T) (*Hub, context.CancelFunc) {
	t.Helper()
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		_ = hub.Run(ctx)
	}()
	return hub, cancel
}

func newTestClient(hub *Hub) *Client {
	return NewClient(hub, newMockWebSocketConn(), "")
}

func receive(t *testing.T, c *Client) Event {
	t.Helper()
	select {
	case data, ok := <-c.send:
		require.True(t, ok, "send channel closed")
		var ev Event
		require.NoError(t, json.Unmarshal(data, &ev))
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
	return Event{}
}

func TestHub_ContextCancellation(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())

	errChan := make(chan error, 1)
	go func() {
		errChan <- hub.Run(ctx)
	}()

	cancel()

	select {
	case err := <-errChan:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("hub did not stop within timeout")
	}
}

func TestHub_PublishReachesEverySubscriber(t *testing.T) {
	hub, cancel := startHub(t)
	defer cancel()

	a, b := newTestClient(hub), newTestClient(hub)
	hub.Register(a)
	hub.Register(b)

	require.NoError(t, hub.Publish(EventLive, map[string]any{"text": "halo"}))

	for _, c := range []*Client{a, b} {
		ev := receive(t, c)
		assert.Equal(t, EventLive, ev.Type)
		assert.Equal(t, map[string]any{"text": "halo"}, ev.Data)
		assert.False(t, ev.At.IsZero())
	}
}

func TestHub_UnregisterClosesSend(t *testing.T) {
	hub, cancel := startHub(t)
	defer cancel()

	c := newTestClient(hub)
	hub.Register(c)
	hub.Unregister(c)
	// Second unregister is a no-op.
	hub.Unregister(c)

	_, ok := <-c.send
	assert.False(t, ok)
}

func TestHub_DropsSlowSubscriber(t *testing.T) {
	hub, cancel := startHub(t)
	defer cancel()

	base := testutil.ToFloat64(observability.WebSocketSubscribersActive)
	slow := newTestClient(hub)
	slow.send = make(chan []byte, 1)
	hub.Register(slow)
	require.Eventually(t, func() bool {
		return testutil.ToFloat64(observability.WebSocketSubscribersActive) == base+1
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, hub.Publish(EventLive, 1))
	require.NoError(t, hub.Publish(EventLive, 2))

	assert.Eventually(t, func() bool {
		return testutil.ToFloat64(observability.WebSocketSubscribersActive) == base
	}, 2*time.Second, 10*time.Millisecond)

	ev := receive(t, slow)
	assert.Equal(t, float64(1), ev.Data)
	_, ok := <-slow.send
	assert.False(t, ok)
}

func TestHub_ShutdownClosesSubscribers(t *testing.T) {
	hub, cancel := startHub(t)

	c := newTestClient(hub)
	hub.Register(c)
	cancel()

	select {
	case <-hub.done:
	case <-time.After(2 * time.Second):
		t.Fatal("hub did not shut down")
	}
	_, ok := <-c.send
	assert.False(t, ok)
}

func TestHub_CallsAfterShutdownDoNotBlock(t *testing.T) {
	hub, cancel := startHub(t)
	cancel()
	<-hub.done

	c := newTestClient(hub)
	done := make(chan struct{})
	go func() {
		hub.Register(c)
		hub.Unregister(c)
		for i := 0; i < 300; i++ {
			_ = hub.Publish(EventSession, nil)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("hub calls blocked after shutdown")
	}
}

func TestHub_PublishRejectsUnencodable(t *testing.T) {
	hub := NewHub()

	err := hub.Publish(EventLive, make(chan int))

	assert.Error(t, err)
}

func TestHub_PublishAndCloseDisconnectsSubscribers(t *testing.T) {
	hub, cancel := startHub(t)
	defer cancel()

	base := testutil.ToFloat64(observability.WebSocketSubscribersActive)
	a, b := newTestClient(hub), newTestClient(hub)
	hub.Register(a)
	hub.Register(b)

	require.NoError(t, hub.PublishAndClose(EventSession, map[string]any{"authenticated": false}))

	for _, c := range []*Client{a, b} {
		ev := receive(t, c)
		assert.Equal(t, EventSession, ev.Type)
		_, ok := <-c.send
		assert.False(t, ok)
	}
	assert.Eventually(t, func() bool {
		return testutil.ToFloat64(observability.WebSocketSubscribersActive) == base
	}, time.Second, 5*time.Millisecond)

	// A subscriber admitted afterwards keeps receiving events.
	later := newTestClient(hub)
	hub.Register(later)
	require.NoError(t, hub.Publish(EventLive, "after"))
	assert.Equal(t, EventLive, receive(t, later).Type)
}
