package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"smartcapi-client/internal/observability"
	"smartcapi-client/internal/security"
)

// CSRF validates state-changing requests with the double-submit cookie
// pattern: the token minted into the csrf cookie must be echoed back in
// the X-CSRF-Token header (or X-XSRF-Token, or the csrf_token form field).
//
// Safe methods and exempt paths (health, metrics, websocket) pass through.
func CSRF(tm *security.TokenManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isSafeMethod(r.Method) || isExemptPath(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			cookie, err := r.Cookie(security.CSRFCookieName)
			if err != nil || cookie.Value == "" {
				logCSRFFailure(r, "missing cookie")
				writeJSONError(w, http.StatusForbidden, "Forbidden")
				return
			}

			submitted := extractCSRFToken(r)
			if submitted == "" {
				logCSRFFailure(r, "missing token")
				writeJSONError(w, http.StatusForbidden, "Forbidden")
				return
			}

			if !tm.Verify(cookie.Value, submitted) {
				logCSRFFailure(r, "invalid token")
				writeJSONError(w, http.StatusForbidden, "Forbidden")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// isSafeMethod returns true if the HTTP method is idempotent and cacheable.
func isSafeMethod(method string) bool {
	return method == http.MethodGet ||
		method == http.MethodHead ||
		method == http.MethodOptions
}

// isExemptPath returns true if the request path should skip CSRF validation.
func isExemptPath(path string) bool {
	exemptPaths := []string{
		"/health",
		"/metrics",
		"/ws/",
	}

	for _, exemptPath := range exemptPaths {
		if strings.HasPrefix(path, exemptPath) {
			return true
		}
	}
	return false
}

// extractCSRFToken checks, in order: X-CSRF-Token header, X-XSRF-Token
// header, csrf_token form field.
func extractCSRFToken(r *http.Request) string {
	if token := r.Header.Get(security.CSRFHeaderName); token != "" {
		return token
	}
	if token := r.Header.Get("X-XSRF-Token"); token != "" {
		return token
	}
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/x-www-form-urlencoded") {
		return r.FormValue("csrf_token")
	}
	return ""
}

func logCSRFFailure(r *http.Request, reason string) {
	observability.FromContext(r.Context()).Warn("CSRF validation failed",
		slog.String("reason", reason),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("remote_addr", r.RemoteAddr),
	)
}
