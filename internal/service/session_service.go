package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"smartcapi-client/internal/domain"
	"smartcapi-client/internal/observability"
)

const (
	msgLoginFailed       = "Login failed"
	msgMissingCredential = "Username and password are required"
)

// SessionService owns the process session and is the only writer of the
// credential store. Every write lands in both the legacy keys and the
// auth_user record; reads prefer the record.
//
// Overlapping LoginWithCredentials calls are not ordered: whichever
// succeeds last wins, even if it was dispatched first.
type SessionService struct {
	store domain.CredentialStore
	auth  domain.Authenticator

	// writeMu is held across a memory update and all of its store
	// writes.
	writeMu sync.Mutex

	mu      sync.RWMutex
	session domain.Session
}

func NewSessionService(store domain.CredentialStore, auth domain.Authenticator) *SessionService {
	return &SessionService{
		store: store,
		auth:  auth,
	}
}

// Current returns a copy of the session.
func (s *SessionService) Current() domain.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session
}

// Restore rebuilds the session from the store. The auth_user record wins
// whenever it parses and names a subject; otherwise all three legacy
// keys must be present. Anything else leaves the session empty.
func (s *SessionService) Restore(ctx context.Context) domain.Session {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	restored, source := s.readStored(ctx)

	s.mu.Lock()
	s.session = restored
	s.mu.Unlock()

	observability.FromContext(ctx).Info("session restored",
		slog.String("source", source),
		slog.Bool("authenticated", restored.Authenticated),
		slog.String("subject_id", restored.SubjectID))
	return restored
}

func (s *SessionService) readStored(ctx context.Context) (domain.Session, string) {
	legacyID, _ := s.read(ctx, domain.KeyLegacyUserID)
	legacyName, _ := s.read(ctx, domain.KeyLegacyUserName)
	legacyToken, _ := s.read(ctx, domain.KeyLegacyUserToken)

	if raw, ok := s.read(ctx, domain.KeyAuthUser); ok {
		rec, err := domain.ParseAuthRecord(raw)
		if err != nil {
			observability.CredentialStoreReadFailures.WithLabelValues(domain.KeyAuthUser).Inc()
			observability.FromContext(ctx).Warn("ignoring unreadable auth record",
				slog.String("error", err.Error()))
		} else if sess, ok := s.fromRecord(ctx, rec, legacyID, legacyName, legacyToken); ok {
			return sess, "record"
		}
	}

	if legacyID != "" && legacyName != "" && legacyToken != "" {
		return domain.Session{
			SubjectID:     legacyID,
			DisplayName:   legacyName,
			Role:          domain.RoleUser,
			Token:         legacyToken,
			Authenticated: true,
		}, "legacy"
	}
	return domain.Session{}, "none"
}

func (s *SessionService) fromRecord(ctx context.Context, rec domain.AuthRecord, legacyID, legacyName, legacyToken string) (domain.Session, bool) {
	id := firstNonBlank(rec.ID.String(), rec.Username.String(), legacyID)
	if id == "" {
		return domain.Session{}, false
	}

	token := rec.Token.String()
	if isBlank(token) {
		mirrored, _ := s.read(ctx, domain.KeyAuthToken)
		token = firstNonBlank(mirrored, legacyToken)
	}

	return domain.Session{
		SubjectID:     id,
		DisplayName:   firstNonBlank(rec.Name.String(), rec.Username.String(), legacyName),
		Role:          domain.ParseRole(rec.Role.String()),
		Token:         token,
		Authenticated: true,
	}, true
}

// Login assigns an already verified identity. The role is always user.
// An empty subject falls back to the display name; only when both are
// empty is the call rejected.
func (s *SessionService) Login(ctx context.Context, subjectID, displayName, token string) (domain.LoginResult, error) {
	id, err := domain.IdentityPayload{
		ID:       domain.FlexString(subjectID),
		Username: displayName,
		Name:     displayName,
		Token:    token,
	}.Normalize()
	if err != nil {
		observability.SessionLoginsTotal.WithLabelValues("direct", "failure").Inc()
		return domain.LoginResult{}, err
	}

	s.apply(ctx, id)
	observability.SessionLoginsTotal.WithLabelValues("direct", "success").Inc()
	return domain.LoginResult{OK: true, User: &id}, nil
}

// SetUser normalizes a loosely shaped identity and applies it.
func (s *SessionService) SetUser(ctx context.Context, payload domain.IdentityPayload) (domain.Identity, error) {
	id, err := payload.Normalize()
	if err != nil {
		return domain.Identity{}, err
	}
	s.apply(ctx, id)
	return id, nil
}

// LoginWithCredentials runs the backend exchange and, on success, feeds
// the response through SetUser. A failed attempt never touches the
// session or the store.
func (s *SessionService) LoginWithCredentials(ctx context.Context, username, password string) domain.LoginResult {
	logger := observability.FromContext(ctx)

	if isBlank(username) || password == "" {
		observability.SessionLoginsTotal.WithLabelValues("credentials", "failure").Inc()
		return domain.LoginResult{OK: false, Error: msgMissingCredential}
	}

	resp, err := s.auth.Authenticate(ctx, username, password)
	if err != nil {
		observability.SessionLoginsTotal.WithLabelValues("credentials", "failure").Inc()
		logger.Warn("credential login failed",
			slog.String("username", username),
			slog.String("error", err.Error()))
		return domain.LoginResult{OK: false, Error: failureMessage(err)}
	}

	id, err := s.SetUser(ctx, resp.Payload(username))
	if err != nil {
		observability.SessionLoginsTotal.WithLabelValues("credentials", "failure").Inc()
		return domain.LoginResult{OK: false, Error: msgLoginFailed}
	}

	observability.SessionLoginsTotal.WithLabelValues("credentials", "success").Inc()
	logger.Info("credential login succeeded",
		slog.String("subject_id", id.SubjectID),
		slog.String("role", string(id.Role)))
	return domain.LoginResult{OK: true, User: &id}
}

// Logout empties the session and removes every credential key, whether
// or not it was ever written.
func (s *SessionService) Logout(ctx context.Context) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	s.session = domain.Session{}
	s.mu.Unlock()

	for _, key := range domain.AllCredentialKeys {
		if err := s.store.Remove(ctx, key); err != nil {
			s.writeFailed(ctx, key, err)
		}
	}
	observability.FromContext(ctx).Info("session cleared")
}

// apply updates memory first so a failing store cannot block the login,
// then persists both encodings.
func (s *SessionService) apply(ctx context.Context, id domain.Identity) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	s.session = domain.Session{
		SubjectID:     id.SubjectID,
		DisplayName:   id.DisplayName,
		Role:          id.Role,
		Token:         id.Token,
		Authenticated: true,
	}
	s.mu.Unlock()

	s.persist(ctx, id)
}

func (s *SessionService) persist(ctx context.Context, id domain.Identity) {
	s.put(ctx, domain.KeyLegacyUserID, id.SubjectID)
	s.put(ctx, domain.KeyLegacyUserName, id.DisplayName)
	s.put(ctx, domain.KeyLegacyUserToken, id.Token)

	raw, err := domain.NewAuthRecord(id).Encode()
	if err != nil {
		s.writeFailed(ctx, domain.KeyAuthUser, err)
	} else {
		s.put(ctx, domain.KeyAuthUser, raw)
	}
	s.put(ctx, domain.KeyAuthToken, id.Token)
}

// put writes value, or removes the key when value is empty so a stale
// token or name from an earlier identity cannot survive the write.
func (s *SessionService) put(ctx context.Context, key, value string) {
	var err error
	if value == "" {
		err = s.store.Remove(ctx, key)
	} else {
		err = s.store.Set(ctx, key, value)
	}
	if err != nil {
		s.writeFailed(ctx, key, err)
	}
}

func (s *SessionService) writeFailed(ctx context.Context, key string, err error) {
	observability.CredentialStoreWriteFailures.WithLabelValues(key).Inc()
	observability.FromContext(ctx).Warn("credential store write failed",
		slog.String("key", key),
		slog.String("error", err.Error()))
}

// read returns a stored value, treating read errors and blank values as
// absent.
func (s *SessionService) read(ctx context.Context, key string) (string, bool) {
	return readCredential(ctx, s.store, key)
}

func readCredential(ctx context.Context, store domain.CredentialStore, key string) (string, bool) {
	v, ok, err := store.Get(ctx, key)
	if err != nil {
		observability.CredentialStoreReadFailures.WithLabelValues(key).Inc()
		observability.FromContext(ctx).Warn("credential store read failed",
			slog.String("key", key),
			slog.String("error", err.Error()))
		return "", false
	}
	if !ok || isBlank(v) {
		return "", false
	}
	return v, true
}

func failureMessage(err error) string {
	var detailed domain.DetailedError
	if errors.As(err, &detailed) && detailed.UserDetail() != "" {
		return detailed.UserDetail()
	}
	return msgLoginFailed
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

func firstNonBlank(values ...string) string {
	for _, v := range values {
		if !isBlank(v) {
			return v
		}
	}
	return ""
}
