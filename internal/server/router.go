package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"smartcapi-client/internal/domain"
	"smartcapi-client/internal/guard"
	"smartcapi-client/internal/handler"
	"smartcapi-client/internal/middleware"
	"smartcapi-client/internal/security"
	"smartcapi-client/internal/service"
	ws "smartcapi-client/internal/websocket"
)

// Deps are the components the router serves. Validator and
// LoginLimiter are optional.
type Deps struct {
	Sessions       *service.SessionService
	Guard          *guard.Guard
	Store          domain.CredentialStore
	Hub            *ws.Hub
	Tokens         *security.TokenManager
	Validator      func(http.Handler) http.Handler
	LoginLimiter   *middleware.RateLimiter
	AllowedOrigins []string
	StaticDir      string
	LoginTimeout   time.Duration
}

// NewRouter builds the shell's HTTP surface: the JSON session API under
// /api, the events socket, and the guarded view routes.
func NewRouter(d Deps) http.Handler {
	sessionHandler := handler.NewSessionHandler(d.Sessions, d.Tokens, d.Hub, d.LoginTimeout)
	eventsHandler := handler.NewEventsHandler(d.Hub, d.Sessions, d.AllowedOrigins)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.RequestContext())
	r.Use(middleware.CORS(d.AllowedOrigins))
	r.Use(middleware.Metrics())
	r.Use(middleware.Session(d.Sessions))

	r.Get("/health", handler.Health)
	r.Get("/health/ready", handler.Ready(map[string]handler.Pinger{"credential_store": d.Store}))
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/ws/events", eventsHandler.HandleConnection)
	r.Handle("/assets/*", handler.Assets(d.StaticDir))

	r.Route("/api", func(r chi.Router) {
		if d.Validator != nil {
			r.Use(d.Validator)
		}
		r.Use(middleware.CSRF(d.Tokens))

		r.Get("/session", sessionHandler.Get)
		r.Group(func(r chi.Router) {
			if d.LoginLimiter != nil {
				r.Use(d.LoginLimiter.Middleware())
			}
			r.Post("/session/login", sessionHandler.Login)
		})
		r.Post("/session/identity", sessionHandler.LoginIdentity)
		r.Put("/session/user", sessionHandler.SetUser)
		r.Post("/session/logout", sessionHandler.Logout)
		r.Get("/navigate", handler.Navigate(d.Guard))
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.RouteGuard(d.Guard))
		handler.MountViews(r, d.StaticDir)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Not Found", http.StatusNotFound)
	})

	return r
}
