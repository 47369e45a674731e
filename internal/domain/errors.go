package domain

import "errors"

var (
	ErrInvalidIdentity    = errors.New("identity has no subject id or username")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrStoreUnavailable   = errors.New("credential store unavailable")
	ErrMalformedRecord    = errors.New("malformed auth record")
)
