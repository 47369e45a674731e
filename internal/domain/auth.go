package domain

import "context"

// Authenticator performs the credential exchange with the backend.
// Failures are returned as errors; callers extract any human-readable
// detail through DetailedError.
type Authenticator interface {
	Authenticate(ctx context.Context, username, password string) (*AuthResponse, error)
}

// DetailedError is implemented by errors that carry a message meant for
// the person who attempted to log in.
type DetailedError interface {
	error
	UserDetail() string
}

// AuthResponse is the backend login payload. The identity may be nested
// under "user" or flattened at the top level.
type AuthResponse struct {
	AccessToken FlexString    `json:"access_token"`
	Token       FlexString    `json:"token"`
	User        *AuthUserInfo `json:"user"`

	ID       FlexString `json:"id"`
	Username FlexString `json:"username"`
	Name     FlexString `json:"name"`
	Role     FlexString `json:"role"`
}

// AuthUserInfo is the nested identity object of an AuthResponse.
type AuthUserInfo struct {
	ID       FlexString `json:"id"`
	Username FlexString `json:"username"`
	Name     FlexString `json:"name"`
	FullName FlexString `json:"full_name"`
	Role     FlexString `json:"role"`
}

// Payload flattens the response into an IdentityPayload, preferring the
// nested identity, then top-level fields, then the submitted username.
func (r *AuthResponse) Payload(submitted string) IdentityPayload {
	var u AuthUserInfo
	if r.User != nil {
		u = *r.User
	}
	return IdentityPayload{
		Username: firstNonEmpty(u.Username.String(), r.Username.String(), submitted),
		Name:     firstNonEmpty(u.FullName.String(), u.Name.String(), r.Name.String(), submitted),
		ID:       FlexString(firstNonEmpty(u.ID.String(), r.ID.String(), submitted)),
		Role:     firstNonEmpty(u.Role.String(), r.Role.String(), string(RoleUser)),
		Token:    firstNonEmpty(r.AccessToken.String(), r.Token.String()),
	}
}
