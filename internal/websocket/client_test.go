package websocket

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockWebSocketConn provides a mock implementation of Conn for testing
type mockWebSocketConn struct {
	readMessages  chan []byte
	writeMessages chan []byte
	writeErr      error
	closed        bool
	mu            sync.Mutex
}

func newMockWebSocketConn() *mockWebSocketConn {
	return &mockWebSocketConn{
		readMessages:  make(chan []byte, 10),
		writeMessages: make(chan []byte, 10),
	}
}

func (m *mockWebSocketConn) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *mockWebSocketConn) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func (m *mockWebSocketConn) SetReadDeadline(t time.Time) error  { return nil }
func (m *mockWebSocketConn) SetWriteDeadline(t time.Time) error { return nil }
func (m *mockWebSocketConn) SetReadLimit(limit int64)           {}
func (m *mockWebSocketConn) SetPongHandler(h func(string) error) {}

func (m *mockWebSocketConn) ReadMessage() (int, []byte, error) {
	msg, ok := <-m.readMessages
	if !ok {
		return 0, nil, &websocket.CloseError{Code: websocket.CloseGoingAway}
	}
	return websocket.TextMessage, msg, nil
}

func (m *mockWebSocketConn) WriteMessage(messageType int, data []byte) error {
	if m.writeErr != nil {
		return m.writeErr
	}
	if messageType != websocket.TextMessage {
		return nil
	}
	select {
	case m.writeMessages <- data:
		return nil
	default:
		return errors.New("write buffer full")
	}
}

func TestNewClient(t *testing.T) {
	hub := NewHub()
	conn := newMockWebSocketConn()

	client := NewClient(hub, conn, "42")

	assert.NotEmpty(t, client.ID())
	assert.Equal(t, "42", client.subjectID)
	assert.Equal(t, 256, cap(client.send))
	assert.NotEqual(t, client.ID(), NewClient(hub, conn, "42").ID())
}

func TestClient_CloseConnection_Idempotent(t *testing.T) {
	conn := newMockWebSocketConn()
	client := NewClient(NewHub(), conn, "")

	client.closeConnection()
	client.closeConnection()
	client.closeConnection()

	assert.True(t, client.closed.Load())
	assert.True(t, conn.isClosed())
}

func TestClient_WriteAfterClose(t *testing.T) {
	client := NewClient(NewHub(), newMockWebSocketConn(), "")
	client.closeConnection()

	err := client.writeMessage(websocket.TextMessage, []byte("late"))

	assert.ErrorIs(t, err, websocket.ErrCloseSent)
}

func TestClient_WritePump_DeliversAndStops(t *testing.T) {
	conn := newMockWebSocketConn()
	client := NewClient(NewHub(), conn, "")

	done := make(chan struct{})
	go func() {
		client.WritePump()
		close(done)
	}()

	client.send <- []byte(`{"type":"live_event"}`)

	select {
	case msg := <-conn.writeMessages:
		assert.JSONEq(t, `{"type":"live_event"}`, string(msg))
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
	}

	close(client.send)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("write pump did not stop after send channel closed")
	}
	assert.True(t, conn.isClosed())
}

func TestClient_WritePump_StopsOnWriteError(t *testing.T) {
	conn := newMockWebSocketConn()
	conn.writeErr = errors.New("broken pipe")
	client := NewClient(NewHub(), conn, "")

	done := make(chan struct{})
	go func() {
		client.WritePump()
		close(done)
	}()
	client.send <- []byte("x")

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("write pump should exit on write error")
	}
}

func TestClient_ReadPump_UnregistersOnClose(t *testing.T) {
	hub, cancel := startHub(t)
	defer cancel()

	conn := newMockWebSocketConn()
	client := NewClient(hub, conn, "42")
	hub.Register(client)

	done := make(chan struct{})
	go func() {
		client.ReadPump()
		close(done)
	}()

	// Inbound frames are discarded.
	conn.readMessages <- []byte("ignored")
	close(conn.readMessages)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("read pump did not exit")
	}

	_, ok := <-client.send
	assert.False(t, ok, "send channel should be closed after unregister")
	assert.True(t, conn.isClosed())
}

func TestClient_WriteMessage_ThreadSafe(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		upgrader := websocket.Upgrader{}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+server.URL[4:], nil)
	require.NoError(t, err)
	defer conn.Close()

	client := NewClient(NewHub(), conn, "")

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 5; j++ {
				_ = client.writeMessage(websocket.TextMessage, []byte("test message"))
			}
		}()
	}
	wg.Wait()
}
