package middleware

import (
	"context"
	"net/http"

	"smartcapi-client/internal/domain"
	"smartcapi-client/internal/guard"
	"smartcapi-client/internal/observability"
)

type contextKey string

const SessionKey contextKey = "session"

// Session snapshots the current session into the request context and
// tags the request logger with the subject id. It never rejects a
// request; access decisions belong to RouteGuard.
func Session(source guard.SessionSource) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := source.Current()
			ctx := WithSession(r.Context(), sess)
			if sess.SubjectID != "" {
				ctx = observability.WithSubjectID(ctx, sess.SubjectID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func GetSession(ctx context.Context) (domain.Session, bool) {
	sess, ok := ctx.Value(SessionKey).(domain.Session)
	return sess, ok
}

func WithSession(ctx context.Context, sess domain.Session) context.Context {
	return context.WithValue(ctx, SessionKey, sess)
}
