package httpserver

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/mselser95/ordersync/pkg/healthprobe"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Server provides the HTTP surface: metrics, health checks, the order API and
// the transition stream.
type Server struct {
	server        *http.Server
	logger        *zap.Logger
	healthChecker *healthprobe.HealthChecker
}

// Config holds server configuration. The order API routes are mounted only
// when View and Controller are set.
type Config struct {
	Port          string
	Logger        *zap.Logger
	HealthChecker *healthprobe.HealthChecker

	View       OrderView
	Controller Controller
	Actions    Actions
	Prices     PriceSource
	Stream     http.HandlerFunc
}

// New creates a new HTTP server.
func New(cfg *Config) *Server {
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           NewRouter(cfg),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return &Server{
		server:        server,
		logger:        cfg.Logger,
		healthChecker: cfg.HealthChecker,
	}
}

// NewRouter builds the route table.
func NewRouter(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	r.Get("/health", cfg.HealthChecker.Health())
	r.Get("/ready", cfg.HealthChecker.Ready())

	// The websocket stream is long-lived and must not sit behind the request timeout.
	if cfg.Stream != nil {
		r.Get("/ws", cfg.Stream)
	}

	if cfg.View != nil && cfg.Controller != nil {
		h := NewOrdersHandler(cfg.View, cfg.Controller, cfg.Actions, cfg.Prices, cfg.Logger)

		r.Route("/api", func(api chi.Router) {
			api.Use(middleware.Timeout(30 * time.Second))

			api.Get("/orders", h.HandleOrders)
			api.Get("/strategies", h.HandleStrategies)
			api.Put("/owner", h.HandleOwner)
			api.Put("/query", h.HandleQuery)
			api.Put("/page/{page}", h.HandlePage)
			api.Post("/refresh", h.HandleRefresh)

			if cfg.Actions != nil {
				api.Post("/orders/{id}/cancel", h.HandleCancel)
				api.Post("/orders/{id}/execute", h.HandleExecute)
			}
			if cfg.Prices != nil {
				api.Get("/prices/{token}", h.HandlePrice)
			}
		})
	}

	return r
}

// Start starts the HTTP server.
// This is a blocking call that returns when the server stops or encounters an error.
func (s *Server) Start() error {
	s.logger.Info("http-server-starting", zap.String("addr", s.server.Addr))

	err := s.server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("listen and serve: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("http-server-shutting-down")

	err := s.server.Shutdown(ctx)
	if err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	s.logger.Info("http-server-shutdown-complete")
	return nil
}
