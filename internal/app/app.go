package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"seller-center/internal/config"
	"seller-center/internal/event"
	"seller-center/internal/handler"
	"seller-center/internal/middleware"
	"seller-center/internal/router"
	"seller-center/internal/session"
	"seller-center/internal/websocket"
)

// Version is reported by the health endpoint. It is set at build time.
var Version = "dev"

type App struct {
	server       *http.Server
	cleanupFuncs []func()
}

func New(cfg *config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	backend, err := openSessionBackend(context.Background(), cfg)
	if err != nil {
		return nil, err
	}
	slog.Info("session backend ready", "backend", cfg.SessionBackend)

	portal := NewHandler(cfg, backend.backend, backend.checkers)

	ctx, cancel := context.WithCancel(context.Background())
	go portal.Run(ctx)
	if backend.sweep != nil {
		go backend.sweep(ctx)
	}

	server := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           portal,
		ReadHeaderTimeout: cfg.ServerReadTimeout,
		WriteTimeout:      cfg.ServerWriteTimeout,
		IdleTimeout:       cfg.ServerIdleTimeout,
	}

	return &App{
		server: server,
		cleanupFuncs: []func(){
			cancel,
			backend.Close,
		},
	}, nil
}

// Handler is the portal HTTP surface with its notification hub. The hub must
// be running for websocket clients to receive events.
type Handler struct {
	http.Handler
	hub      *websocket.Hub
	pipeline *Pipeline
}

// NewHandler wires every portal component over backend. checkers are added
// to the health report next to the backend API check.
func NewHandler(cfg *config.Config, backend session.Backend, checkers map[string]handler.Checker) *Handler {
	logger := slog.Default()
	bus := event.NewBus()
	pipeline := NewPipeline(cfg, backend, bus, logger)

	hub := websocket.NewHub(bus, logger)

	health := map[string]handler.Checker{
		"backend": handler.CheckerFunc(func(ctx context.Context) error {
			if !pipeline.API.HealthCheck(ctx) {
				return errors.New("backend api unreachable")
			}
			return nil
		}),
	}
	for name, checker := range checkers {
		health[name] = checker
	}

	guard := middleware.NewGuard(pipeline.Store, pipeline.Coordinator, LoginPath, logger)

	routes := router.New(cfg, guard, router.Handlers{
		Auth:          handler.NewAuthHandler(pipeline.SignIn, pipeline.Coordinator, pipeline.Store, cfg.IsProduction(), logger),
		Admin:         handler.NewAdminHandler(pipeline.Admins),
		Product:       handler.NewProductHandler(pipeline.Products),
		Category:      handler.NewCategoryHandler(pipeline.Categories),
		Media:         handler.NewMediaHandler(pipeline.Media, 0),
		Account:       handler.NewAccountHandler(pipeline.Accounts, pipeline.Stores, pipeline.Users),
		Health:        handler.NewHealthHandler(Version, health),
		Notifications: websocket.NewHandler(hub, cfg.CORSOrigins),
	})

	return &Handler{Handler: routes, hub: hub, pipeline: pipeline}
}

// Run relays events to websocket clients until ctx is done.
func (h *Handler) Run(ctx context.Context) {
	h.hub.Run(ctx)
}

func (h *Handler) Pipeline() *Pipeline {
	return h.pipeline
}

func (a *App) Run() error {
	serveErr := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", a.server.Addr)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	select {
	case <-stop:
	case err := <-serveErr:
		runErr = fmt.Errorf("server failed: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.server.Shutdown(ctx); err != nil && runErr == nil {
		runErr = fmt.Errorf("graceful shutdown failed: %w", err)
	}

	for _, cleanup := range a.cleanupFuncs {
		cleanup()
	}

	if runErr != nil {
		return runErr
	}
	slog.Info("server stopped")
	return nil
}
