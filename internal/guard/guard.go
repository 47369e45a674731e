package guard

import (
	"context"
	"log/slog"
	"strings"

	"smartcapi-client/internal/domain"
	"smartcapi-client/internal/observability"
)

// Decision reasons
const (
	ReasonPublic          = "public"
	ReasonAuthenticated   = "authenticated"
	ReasonUnauthenticated = "unauthenticated"
	ReasonNotAdmin        = "not_admin"
)

// SessionSource exposes the current in-memory session.
type SessionSource interface {
	Current() domain.Session
}

// Decision is the outcome of one navigation check.
type Decision struct {
	Allow    bool   `json:"allow"`
	Redirect string `json:"redirect,omitempty"`
	Reason   string `json:"reason"`
}

// Guard decides whether a navigation may proceed. It reads the session
// and the store on every call and caches nothing.
type Guard struct {
	sessions SessionSource
	store    domain.CredentialStore
}

func New(sessions SessionSource, store domain.CredentialStore) *Guard {
	return &Guard{sessions: sessions, store: store}
}

// Evaluate checks navigation from one path to another. Authentication is
// checked before role, so an anonymous request for an admin view goes to
// the landing page rather than the home view.
func (g *Guard) Evaluate(ctx context.Context, to, from string) Decision {
	d := g.decide(ctx, NormalizePath(to))

	outcome := "allow"
	if !d.Allow {
		outcome = "redirect_" + d.Reason
	}
	observability.GuardDecisionsTotal.WithLabelValues(outcome).Inc()
	if !d.Allow {
		observability.FromContext(ctx).Debug("navigation redirected",
			slog.String("to", to),
			slog.String("from", from),
			slog.String("redirect", d.Redirect),
			slog.String("reason", d.Reason))
	}
	return d
}

func (g *Guard) decide(ctx context.Context, to string) Decision {
	if IsPublic(to) {
		return Decision{Allow: true, Reason: ReasonPublic}
	}

	if !g.hasEvidence(ctx) {
		return Decision{Redirect: LandingPath, Reason: ReasonUnauthenticated}
	}

	if IsAdminOnly(to) && g.storedRole(ctx) != domain.RoleAdmin {
		return Decision{Redirect: HomePath, Reason: ReasonNotAdmin}
	}

	return Decision{Allow: true, Reason: ReasonAuthenticated}
}

// hasEvidence is deliberately lenient: any single token key is enough,
// unlike the all-three-keys rule used when restoring a legacy session.
func (g *Guard) hasEvidence(ctx context.Context) bool {
	if g.sessions != nil && g.sessions.Current().Authenticated {
		return true
	}
	return g.has(ctx, domain.KeyAuthToken) || g.has(ctx, domain.KeyLegacyUserToken)
}

// storedRole reads the role from the auth_user record at call time.
func (g *Guard) storedRole(ctx context.Context) domain.Role {
	raw, ok := g.get(ctx, domain.KeyAuthUser)
	if !ok {
		return domain.RoleUser
	}
	rec, err := domain.ParseAuthRecord(raw)
	if err != nil {
		observability.CredentialStoreReadFailures.WithLabelValues(domain.KeyAuthUser).Inc()
		return domain.RoleUser
	}
	return domain.ParseRole(rec.Role.String())
}

func (g *Guard) has(ctx context.Context, key string) bool {
	_, ok := g.get(ctx, key)
	return ok
}

func (g *Guard) get(ctx context.Context, key string) (string, bool) {
	v, ok, err := g.store.Get(ctx, key)
	if err != nil {
		observability.CredentialStoreReadFailures.WithLabelValues(key).Inc()
		return "", false
	}
	if !ok || strings.TrimSpace(v) == "" {
		return "", false
	}
	return v, true
}
