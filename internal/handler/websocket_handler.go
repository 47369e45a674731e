package handler

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"smartcapi-client/internal/guard"
	"smartcapi-client/internal/middleware"
	"smartcapi-client/internal/observability"
	ws "smartcapi-client/internal/websocket"
)

// EventsHandler upgrades /ws/events connections and subscribes them to
// the hub.
type EventsHandler struct {
	hub      *ws.Hub
	sessions guard.SessionSource
	upgrader websocket.Upgrader
}

// NewEventsHandler creates the events endpoint. Cross-origin upgrades
// are accepted only from allowedOrigins; "*" accepts any.
func NewEventsHandler(hub *ws.Hub, sessions guard.SessionSource, allowedOrigins []string) *EventsHandler {
	return &EventsHandler{
		hub:      hub,
		sessions: sessions,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin(allowedOrigins),
		},
	}
}

func checkOrigin(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, o := range allowed {
			if o == "*" || o == origin {
				return true
			}
		}
		return origin == "http://"+r.Host || origin == "https://"+r.Host
	}
}

// HandleConnection upgrades the request and starts the client pumps.
// Only an authenticated session may subscribe.
func (h *EventsHandler) HandleConnection(w http.ResponseWriter, r *http.Request) {
	sess, ok := middleware.GetSession(r.Context())
	if !ok {
		sess = h.sessions.Current()
	}
	if !sess.Authenticated {
		writeError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		observability.FromContext(r.Context()).Warn("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}

	client := ws.NewClient(h.hub, conn, sess.SubjectID)
	h.hub.Register(client)
	observability.FromContext(r.Context()).Info("events subscriber connected", slog.String("subscriber_id", client.ID()))

	go client.WritePump()
	go client.ReadPump()
}
