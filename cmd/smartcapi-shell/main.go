package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"smartcapi-client/internal/backend"
	"smartcapi-client/internal/config"
	"smartcapi-client/internal/credstore"
	"smartcapi-client/internal/guard"
	"smartcapi-client/internal/live"
	"smartcapi-client/internal/middleware"
	"smartcapi-client/internal/observability"
	"smartcapi-client/internal/security"
	"smartcapi-client/internal/server"
	"smartcapi-client/internal/service"
	"smartcapi-client/internal/websocket"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}
	observability.InitLogger(cfg.LogLevel, cfg.LogFormat)

	slog.Info("starting smartcapi shell",
		slog.String("environment", cfg.Environment),
		slog.String("store", cfg.StoreBackend))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	openCtx, openCancel := context.WithTimeout(ctx, 10*time.Second)
	store, closeStore, err := credstore.Open(openCtx, cfg)
	openCancel()
	if err != nil {
		slog.Error("failed to open credential store", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer closeStore()

	authClient := backend.NewAuthClient(cfg.BackendURL, backend.WithRetry(3, 500*time.Millisecond))
	sessions := service.NewSessionService(store, authClient)

	restored := sessions.Restore(ctx)
	slog.Info("session restored",
		slog.Bool("authenticated", restored.Authenticated),
		slog.String("subject_id", restored.SubjectID))

	hub := websocket.NewHub()
	go func() {
		if err := hub.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("hub error", slog.String("error", err.Error()))
		}
	}()

	if cfg.LiveEnabled {
		startLiveListener(ctx, cfg, hub)
	}

	validator, err := middleware.NewOpenAPIValidator(middleware.OpenAPIValidatorConfig{
		SpecPath:          cfg.OpenAPISpecPath,
		ValidateResponses: cfg.IsDevelopment(),
	})
	if err != nil {
		slog.Error("failed to load openapi document", slog.String("error", err.Error()))
		os.Exit(1)
	}

	loginLimiter := middleware.NewRateLimiter(1, 5)
	defer loginLimiter.Stop()

	router := server.NewRouter(server.Deps{
		Sessions:       sessions,
		Guard:          guard.New(sessions, store),
		Store:          store,
		Hub:            hub,
		Tokens:         security.NewTokenManager(cfg.IsProduction()),
		Validator:      validator,
		LoginLimiter:   loginLimiter,
		AllowedOrigins: middleware.ParseOrigins(cfg.AllowedOrigins),
		StaticDir:      cfg.StaticDir,
		LoginTimeout:   cfg.LoginTimeout,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("smartcapi shell listening", slog.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", slog.String("error", err.Error()))
	}

	slog.Info("server stopped gracefully")
}

// startLiveListener subscribes once to the backend's live result feed
// and relays every decoded message to local subscribers. A failed
// handshake is logged and not retried.
func startLiveListener(ctx context.Context, cfg *config.Config, hub *websocket.Hub) {
	liveURL, err := live.URL(cfg.BackendURL, cfg.LivePath)
	if err != nil {
		slog.Warn("live listener disabled", slog.String("error", err.Error()))
		return
	}

	listener := live.NewListener(liveURL)
	err = listener.Listen(ctx, func(msg any) {
		if err := hub.Publish(websocket.EventLive, msg); err != nil {
			slog.Warn("failed to relay live event", slog.String("error", err.Error()))
		}
	})
	if err != nil {
		slog.Warn("live listener unavailable", slog.String("url", listener.URL()), slog.String("error", err.Error()))
		return
	}

	context.AfterFunc(ctx, func() { listener.Close() })
	slog.Info("live listener connected", slog.String("url", listener.URL()))
}
