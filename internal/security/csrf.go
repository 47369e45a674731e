package security

import (
	"crypto/hmac"
	"crypto/rand"
	"encoding/hex"
	"net/http"
)

const (
	CSRFCookieName = "smartcapi_csrf"
	CSRFHeaderName = "X-CSRF-Token"

	csrfCookieMaxAge = 12 * 60 * 60
)

// TokenManager mints and checks double-submit CSRF tokens. The cookie is
// not HttpOnly: page scripts must read it to echo it in a header.
type TokenManager struct {
	secure bool
}

// NewTokenManager creates a token manager. secure marks issued cookies
// as HTTPS-only.
func NewTokenManager(secure bool) *TokenManager {
	return &TokenManager{secure: secure}
}

// Generate creates a random 256-bit token as 64 hex characters.
func (tm *TokenManager) Generate() (string, error) {
	randomBytes := make([]byte, 32)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(randomBytes), nil
}

// Cookie builds the cookie carrying token.
func (tm *TokenManager) Cookie(token string) *http.Cookie {
	return &http.Cookie{
		Name:     CSRFCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   csrfCookieMaxAge,
		HttpOnly: false,
		Secure:   tm.secure,
		SameSite: http.SameSiteStrictMode,
	}
}

// Issue returns the token already held by the request's cookie, or
// mints a new one and sets it on w.
func (tm *TokenManager) Issue(w http.ResponseWriter, r *http.Request) (string, error) {
	if c, err := r.Cookie(CSRFCookieName); err == nil && len(c.Value) == 64 {
		return c.Value, nil
	}
	token, err := tm.Generate()
	if err != nil {
		return "", err
	}
	http.SetCookie(w, tm.Cookie(token))
	return token, nil
}

// Verify compares the cookie and submitted tokens in constant time.
func (tm *TokenManager) Verify(cookieToken, submitted string) bool {
	if cookieToken == "" || submitted == "" {
		return false
	}
	return hmac.Equal([]byte(cookieToken), []byte(submitted))
}
