// Package live opens the backend's push channel and hands each decoded
// frame to a caller-supplied handler.
package live

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"smartcapi-client/internal/observability"
)

// DefaultPath is the live endpoint relative to the backend base URL.
const DefaultPath = "/v1/ws/ai-result"

const handshakeTimeout = 10 * time.Second

var ErrUnsupportedScheme = errors.New("live: backend url must be http or https")

// Handler receives one decoded frame.
type Handler func(msg any)

// URL derives the live channel address from the backend base URL. The
// websocket scheme follows the backend scheme so an https backend is
// always reached over wss.
func URL(backendURL, livePath string) (string, error) {
	u, err := url.Parse(backendURL)
	if err != nil {
		return "", fmt.Errorf("parse backend url: %w", err)
	}

	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", ErrUnsupportedScheme
	}

	if livePath == "" {
		livePath = DefaultPath
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/" + strings.TrimLeft(livePath, "/")
	u.RawQuery = ""
	u.Fragment = ""
	return u.String(), nil
}

// Listener dials the live channel. Every Listen call opens a new
// connection and replaces the stored handle; the previous connection is
// left open and keeps delivering to its own handler until the remote
// side or its context ends it.
type Listener struct {
	url    string
	dialer *websocket.Dialer

	mu   sync.Mutex
	conn *websocket.Conn
}

func NewListener(liveURL string) *Listener {
	return &Listener{
		url: liveURL,
		dialer: &websocket.Dialer{
			HandshakeTimeout: handshakeTimeout,
		},
	}
}

// URL returns the address the listener dials.
func (l *Listener) URL() string {
	return l.url
}

// Listen opens a connection and starts delivering frames to handler in
// a background goroutine. It returns once the handshake completes. There
// is no reconnect: when the connection drops, delivery stops.
func (l *Listener) Listen(ctx context.Context, handler Handler) error {
	conn, _, err := l.dialer.DialContext(ctx, l.url, nil)
	if err != nil {
		return fmt.Errorf("dial live channel: %w", err)
	}

	l.mu.Lock()
	l.conn = conn
	l.mu.Unlock()

	observability.LiveConnectionsActive.Inc()
	observability.FromContext(ctx).Info("live channel connected", slog.String("url", l.url))

	go l.readLoop(ctx, conn, handler)
	return nil
}

// Close closes the most recent connection, if any.
func (l *Listener) Close() error {
	l.mu.Lock()
	conn := l.conn
	l.conn = nil
	l.mu.Unlock()

	if conn == nil {
		return nil
	}
	return conn.Close()
}

func (l *Listener) readLoop(ctx context.Context, conn *websocket.Conn, handler Handler) {
	logger := observability.FromContext(ctx)

	stop := context.AfterFunc(ctx, func() {
		conn.Close()
	})
	defer func() {
		stop()
		conn.Close()
		observability.LiveConnectionsActive.Dec()
		logger.Info("live channel closed", slog.String("url", l.url))
	}()

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) && ctx.Err() == nil {
				logger.Warn("live channel read failed", slog.String("error", err.Error()))
			}
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}

		observability.LiveMessagesReceived.Inc()

		var msg any
		if err := json.Unmarshal(data, &msg); err != nil {
			logger.Warn("skipping undecodable live frame", slog.String("error", err.Error()))
			continue
		}
		handler(msg)
	}
}
