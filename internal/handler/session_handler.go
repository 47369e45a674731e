package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"smartcapi-client/internal/backend"
	"smartcapi-client/internal/domain"
	"smartcapi-client/internal/observability"
	"smartcapi-client/internal/security"
	ws "smartcapi-client/internal/websocket"
)

// SessionManager is the session surface the HTTP API drives.
type SessionManager interface {
	Current() domain.Session
	Login(ctx context.Context, subjectID, displayName, token string) (domain.LoginResult, error)
	SetUser(ctx context.Context, payload domain.IdentityPayload) (domain.Identity, error)
	LoginWithCredentials(ctx context.Context, username, password string) domain.LoginResult
	Logout(ctx context.Context)
}

// EventPublisher relays session changes to local subscribers.
// PublishAndClose is used on logout so no subscriber outlives the
// session it was admitted under.
type EventPublisher interface {
	Publish(eventType string, data any) error
	PublishAndClose(eventType string, data any) error
}

// SessionHandler serves /api/session
type SessionHandler struct {
	sessions     SessionManager
	tokens       *security.TokenManager
	events       EventPublisher
	loginTimeout time.Duration
	now          func() time.Time
}

func NewSessionHandler(sessions SessionManager, tokens *security.TokenManager, events EventPublisher, loginTimeout time.Duration) *SessionHandler {
	return &SessionHandler{
		sessions:     sessions,
		tokens:       tokens,
		events:       events,
		loginTimeout: loginTimeout,
		now:          time.Now,
	}
}

// SessionView is the public shape of the session. The bearer token
// itself is never returned, only what can be read from it.
type SessionView struct {
	Authenticated bool               `json:"authenticated"`
	SubjectID     string             `json:"subject_id,omitempty"`
	DisplayName   string             `json:"display_name,omitempty"`
	Role          domain.Role        `json:"role,omitempty"`
	HasToken      bool               `json:"has_token"`
	Token         *backend.TokenInfo `json:"token,omitempty"`
	CSRFToken     string             `json:"csrf_token,omitempty"`
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type identityRequest struct {
	SubjectID   string `json:"subject_id"`
	DisplayName string `json:"display_name"`
	Token       string `json:"token"`
}

func (h *SessionHandler) view(sess domain.Session) SessionView {
	v := SessionView{
		Authenticated: sess.Authenticated,
		SubjectID:     sess.SubjectID,
		DisplayName:   sess.DisplayName,
		Role:          sess.Role,
		HasToken:      sess.HasToken(),
	}
	if sess.HasToken() {
		if info, err := backend.InspectToken(sess.Token, h.now()); err == nil {
			v.Token = &info
		}
	}
	return v
}

// Get returns the session snapshot and issues the CSRF cookie
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	v := h.view(h.sessions.Current())

	token, err := h.tokens.Issue(w, r)
	if err != nil {
		observability.FromContext(r.Context()).Error("failed to issue csrf token", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "Failed to issue CSRF token")
		return
	}
	v.CSRFToken = token

	writeJSON(w, http.StatusOK, v)
}

// Login exchanges credentials with the backend
func (h *SessionHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	ctx := r.Context()
	if h.loginTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.loginTimeout)
		defer cancel()
	}

	res := h.sessions.LoginWithCredentials(ctx, req.Username, req.Password)
	if !res.OK {
		writeJSON(w, http.StatusUnauthorized, res)
		return
	}
	h.respondIdentity(w, r, res)
}

// LoginIdentity adopts an identity verified elsewhere
func (h *SessionHandler) LoginIdentity(w http.ResponseWriter, r *http.Request) {
	var req identityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	res, err := h.sessions.Login(r.Context(), req.SubjectID, req.DisplayName, req.Token)
	if err != nil {
		writeIdentityError(w, err)
		return
	}
	h.respondIdentity(w, r, res)
}

// SetUser applies a loosely shaped identity
func (h *SessionHandler) SetUser(w http.ResponseWriter, r *http.Request) {
	var payload domain.IdentityPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	id, err := h.sessions.SetUser(r.Context(), payload)
	if err != nil {
		writeIdentityError(w, err)
		return
	}
	h.respondIdentity(w, r, domain.LoginResult{OK: true, User: &id})
}

// Logout clears the session
func (h *SessionHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.sessions.Logout(r.Context())
	if h.events != nil {
		if err := h.events.PublishAndClose(ws.EventSession, h.view(domain.Session{})); err != nil {
			observability.FromContext(r.Context()).Warn("failed to publish logout", slog.String("error", err.Error()))
		}
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *SessionHandler) respondIdentity(w http.ResponseWriter, r *http.Request, res domain.LoginResult) {
	if res.User != nil {
		u := *res.User
		u.Token = ""
		res.User = &u
	}
	h.publish(r, h.view(h.sessions.Current()))
	writeJSON(w, http.StatusOK, res)
}

func (h *SessionHandler) publish(r *http.Request, v SessionView) {
	if h.events == nil {
		return
	}
	if err := h.events.Publish(ws.EventSession, v); err != nil {
		observability.FromContext(r.Context()).Warn("failed to publish session change", slog.String("error", err.Error()))
	}
}

func writeIdentityError(w http.ResponseWriter, err error) {
	if errors.Is(err, domain.ErrInvalidIdentity) {
		writeError(w, http.StatusBadRequest, "Identity requires an id or username")
		return
	}
	writeError(w, http.StatusInternalServerError, "Failed to apply identity")
}
