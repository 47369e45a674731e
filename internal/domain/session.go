package domain

import "strings"

// Role is the authorization level attached to a session.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// ParseRole maps a raw role value onto a Role. Only the exact string
// "admin" yields RoleAdmin; anything else, including the empty string,
// yields RoleUser.
func ParseRole(raw string) Role {
	if raw == string(RoleAdmin) {
		return RoleAdmin
	}
	return RoleUser
}

// Session is the canonical in-memory identity of the current process.
// The zero value is the empty, unauthenticated session.
type Session struct {
	SubjectID     string `json:"subject_id,omitempty"`
	DisplayName   string `json:"display_name,omitempty"`
	Role          Role   `json:"role,omitempty"`
	Token         string `json:"-"`
	Authenticated bool   `json:"authenticated"`
}

// HasToken reports whether the session carries a bearer token.
// Legacy sessions may be authenticated without one.
func (s Session) HasToken() bool {
	return s.Token != ""
}

// IsAdmin reports whether the session role is admin.
func (s Session) IsAdmin() bool {
	return s.Role == RoleAdmin
}

// Identity is the normalized identity derived by a login path and
// returned to callers alongside the acknowledgement.
type Identity struct {
	Username    string `json:"username"`
	SubjectID   string `json:"id"`
	DisplayName string `json:"name"`
	Token       string `json:"token,omitempty"`
	Role        Role   `json:"role"`
}

// IdentityPayload is the loosely shaped identity accepted by SetUser.
// Empty fields are treated as absent. The id may arrive as a JSON number.
type IdentityPayload struct {
	ID       FlexString `json:"id"`
	Username string     `json:"username"`
	Name     string     `json:"name"`
	Token    string     `json:"token"`
	Role     string     `json:"role"`
}

// Normalize applies the field precedence used by every identity write:
// subject falls back to username, display name falls back to username,
// role defaults to user.
func (p IdentityPayload) Normalize() (Identity, error) {
	id := firstNonEmpty(p.ID.String(), p.Username)
	if id == "" {
		return Identity{}, ErrInvalidIdentity
	}
	name := firstNonEmpty(p.Name, p.Username)
	return Identity{
		Username:    firstNonEmpty(p.Username, name),
		SubjectID:   id,
		DisplayName: name,
		Token:       p.Token,
		Role:        ParseRole(p.Role),
	}, nil
}

// LoginResult is the outcome of a login operation. Failures carry a
// human-readable message and never a partially applied identity.
type LoginResult struct {
	OK    bool      `json:"ok"`
	User  *Identity `json:"user,omitempty"`
	Error string    `json:"error,omitempty"`
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
