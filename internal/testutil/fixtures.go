package testutil

import (
	"encoding/json"
	"fmt"
	"sync/atomic"

	"smartcapi-client/internal/domain"
)

// Counter for generating unique IDs
var idCounter atomic.Int64

func nextID(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, idCounter.Add(1))
}

// IdentityOptions allows customizing identity fixture creation
type IdentityOptions struct {
	ID       string
	Username string
	Name     string
	Token    string
	Role     domain.Role
}

// NewTestIdentity creates an identity with sensible defaults
// Pass options to override specific fields
func NewTestIdentity(opts ...func(*IdentityOptions)) domain.Identity {
	o := &IdentityOptions{
		ID:   nextID("subject"),
		Role: domain.RoleUser,
	}
	o.Username = fmt.Sprintf("enumerator%d", idCounter.Load())
	o.Name = "Enumerator " + o.Username
	o.Token = "token-" + o.ID

	for _, opt := range opts {
		opt(o)
	}

	return domain.Identity{
		Username:    o.Username,
		SubjectID:   o.ID,
		DisplayName: o.Name,
		Token:       o.Token,
		Role:        o.Role,
	}
}

// Identity option functions

func WithSubjectID(id string) func(*IdentityOptions) {
	return func(o *IdentityOptions) { o.ID = id }
}

func WithDisplayName(name string) func(*IdentityOptions) {
	return func(o *IdentityOptions) { o.Name = name }
}

func WithToken(token string) func(*IdentityOptions) {
	return func(o *IdentityOptions) { o.Token = token }
}

func WithRole(role domain.Role) func(*IdentityOptions) {
	return func(o *IdentityOptions) { o.Role = role }
}

// Store seeding

// SeedLegacy writes the three legacy keys; empty values are skipped so
// tests can build partial legacy state.
func SeedLegacy(store *MockCredentialStore, id, name, token string) {
	for key, v := range map[string]string{
		domain.KeyLegacyUserID:    id,
		domain.KeyLegacyUserName:  name,
		domain.KeyLegacyUserToken: token,
	} {
		if v != "" {
			store.Entries[key] = v
		}
	}
}

// SeedRecord writes an auth_user record built from the given fields.
func SeedRecord(store *MockCredentialStore, fields map[string]any) {
	data, err := json.Marshal(fields)
	if err != nil {
		panic("testutil: cannot encode record: " + err.Error())
	}
	store.Entries[domain.KeyAuthUser] = string(data)
}

// SeedIdentity writes both encodings exactly as a login would.
func SeedIdentity(store *MockCredentialStore, id domain.Identity) {
	SeedLegacy(store, id.SubjectID, id.DisplayName, id.Token)
	raw, err := domain.NewAuthRecord(id).Encode()
	if err != nil {
		panic("testutil: cannot encode identity: " + err.Error())
	}
	store.Entries[domain.KeyAuthUser] = raw
	if id.Token != "" {
		store.Entries[domain.KeyAuthToken] = id.Token
	}
}

// AdminLoginResponse is a backend response for an admin login
func AdminLoginResponse() *domain.AuthResponse {
	return &domain.AuthResponse{
		AccessToken: "jwt-admin",
		User: &domain.AuthUserInfo{
			ID:       "1",
			Username: "admincapi",
			FullName: "Administrator",
			Role:     "admin",
		},
	}
}
