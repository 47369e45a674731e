// Package websocket fans events out to local subscribers of the shell's
// /ws/events endpoint.
package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"smartcapi-client/internal/observability"
)

// Event types relayed to subscribers
const (
	EventLive    = "live_event"
	EventSession = "session_changed"
)

// Event is the envelope written to every subscriber
type Event struct {
	Type string    `json:"type"`
	Data any       `json:"data,omitempty"`
	At   time.Time `json:"at"`
}

type outbound struct {
	eventType string
	data      []byte
	// closeAfter disconnects every subscriber once data is queued
	closeAfter bool
}

// Hub maintains active subscribers and broadcasts events to all of them
type Hub struct {
	clients map[*Client]struct{}

	broadcast  chan outbound
	register   chan *Client
	unregister chan *Client

	// Closed once Run returns
	done chan struct{}
}

// NewHub creates a new Hub
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]struct{}),
		broadcast:  make(chan outbound, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run starts the hub's main loop
func (h *Hub) Run(ctx context.Context) error {
	defer h.shutdown()

	for {
		select {
		case <-ctx.Done():
			slog.Info("hub shutting down gracefully")
			return ctx.Err()

		case client := <-h.register:
			h.clients[client] = struct{}{}
			observability.WebSocketSubscribersActive.Inc()
			slog.Info("subscriber registered",
				slog.String("subscriber_id", client.id),
				slog.String("subject_id", client.subjectID))

		case client := <-h.unregister:
			h.unregisterClient(client)

		case msg := <-h.broadcast:
			for client := range h.clients {
				select {
				case client.send <- msg.data:
					observability.WebSocketMessagesSent.WithLabelValues(msg.eventType).Inc()
				default:
					// Slow subscriber, drop it
					h.closeClientSend(client)
					delete(h.clients, client)
					observability.WebSocketSubscribersActive.Dec()
				}
			}
			if msg.closeAfter {
				h.disconnectAll()
			}
		}
	}
}

// disconnectAll closes every send channel. WritePump drains what is
// already queued before it sends the close frame.
func (h *Hub) disconnectAll() {
	for client := range h.clients {
		h.closeClientSend(client)
		observability.WebSocketSubscribersActive.Dec()
	}
	h.clients = make(map[*Client]struct{})
	slog.Info("all subscribers disconnected")
}

func (h *Hub) unregisterClient(client *Client) {
	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	h.closeClientSend(client)
	observability.WebSocketSubscribersActive.Dec()
	slog.Info("subscriber unregistered", slog.String("subscriber_id", client.id))
}

// closeClientSend safely closes a client's send channel
func (h *Hub) closeClientSend(client *Client) {
	client.closeSend.Do(func() {
		close(client.send)
	})
}

func (h *Hub) shutdown() {
	close(h.done)

	for client := range h.clients {
		h.closeClientSend(client)
		observability.WebSocketSubscribersActive.Dec()
	}
	h.clients = make(map[*Client]struct{})

	slog.Info("hub shutdown complete")
}

// Publish wraps data in an Event and queues it for every subscriber.
// Events published after the hub stopped are dropped.
func (h *Hub) Publish(eventType string, data any) error {
	return h.enqueue(eventType, data, false)
}

// PublishAndClose delivers a last event and then disconnects every
// current subscriber. Subscribers must reconnect, and pass the session
// check again, to keep receiving events.
func (h *Hub) PublishAndClose(eventType string, data any) error {
	return h.enqueue(eventType, data, true)
}

func (h *Hub) enqueue(eventType string, data any, closeAfter bool) error {
	payload, err := json.Marshal(Event{Type: eventType, Data: data, At: time.Now().UTC()})
	if err != nil {
		return err
	}
	select {
	case h.broadcast <- outbound{eventType: eventType, data: payload, closeAfter: closeAfter}:
	case <-h.done:
	}
	return nil
}

// Register registers a client with the hub
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
		h.closeClientSend(client)
	}
}

// Unregister removes a client from the hub
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}
