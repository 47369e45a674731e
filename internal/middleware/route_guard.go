package middleware

import (
	"net/http"
	"net/url"

	"smartcapi-client/internal/guard"
)

// RouteGuard runs every navigation through the guard and answers a
// denied one with 302 to the decision's redirect target. The Referer
// path, when present, is passed as the origin of the navigation.
func RouteGuard(g *guard.Guard) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			d := g.Evaluate(r.Context(), r.URL.Path, refererPath(r))
			if !d.Allow {
				http.Redirect(w, r, d.Redirect, http.StatusFound)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func refererPath(r *http.Request) string {
	ref := r.Referer()
	if ref == "" {
		return ""
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	return u.Path
}
