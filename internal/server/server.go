// Package server wires the HTTP API: routing, middleware, health probes,
// and graceful shutdown.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/autoprice/autoprice/internal/auth"
	"github.com/autoprice/autoprice/internal/cache"
	"github.com/autoprice/autoprice/internal/handler"
	"github.com/autoprice/autoprice/internal/predictor"
	"github.com/autoprice/autoprice/internal/server/middleware"
	"github.com/autoprice/autoprice/internal/store"
)

// Config holds the HTTP server configuration.
type Config struct {
	Host            string
	Port            int
	ShutdownTimeout time.Duration
	CORSOrigins     []string
	LoginRatePerMin int
	Version         string
}

// Server is the top-level HTTP server. It owns the chi router and the
// dependencies the handlers are built from.
type Server struct {
	cfg        Config
	router     chi.Router
	store      *store.Store
	cache      cache.Cache
	predictor  *predictor.Predictor
	httpServer *http.Server
	logger     *slog.Logger
	startedAt  time.Time
}

// New creates a Server, wires all routes and middleware, and returns it
// ready to listen.
func New(cfg Config, st *store.Store, c cache.Cache, p *predictor.Predictor,
	authn *auth.Authenticator, gate *auth.Gate,
	authHandler *handler.AuthHandler, predictHandler *handler.PredictHandler,
	logger *slog.Logger) *Server {

	s := &Server{
		cfg:       cfg,
		store:     st,
		cache:     c,
		predictor: p,
		logger:    logger,
		startedAt: time.Now(),
	}
	s.setupRouter(authn, gate, authHandler, predictHandler)
	return s
}

func (s *Server) setupRouter(authn *auth.Authenticator, gate *auth.Gate,
	authHandler *handler.AuthHandler, predictHandler *handler.PredictHandler) {

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(s.logger))
	r.Use(middleware.Metrics)
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-API-Key", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "X-Process-Time"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(chimw.Compress(5))

	// Probes and metrics, no auth required.
	r.Get("/healthz", s.handleHealthz)
	r.Get("/readyz", s.handleReadyz)
	r.Get("/status", s.handleStatus)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		// Credential endpoints: rate-limited, no bearer token yet.
		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimit(s.cfg.LoginRatePerMin))
			r.Post("/auth/register", authHandler.Register)
			r.Post("/auth/login", authHandler.Login)
		})

		// Profile endpoints: bearer token only.
		r.Group(func(r chi.Router) {
			r.Use(middleware.Authenticate(authn))
			r.Get("/auth/me", authHandler.Me)
			r.Put("/auth/me", authHandler.UpdateMe)
			r.Post("/auth/logout", authHandler.Logout)
		})

		// Prediction endpoints: API key gate first, then the bearer token.
		// When both are invalid the key failure (403) is reported.
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAPIKey(gate))

			r.Group(func(r chi.Router) {
				r.Use(middleware.Authenticate(authn))
				r.Post("/predict", predictHandler.Predict)
				r.Get("/predictions/stats/summary", predictHandler.Stats)
				r.Get("/predictions/{predictionID}", predictHandler.Detail)
			})

			// History works for anonymous callers too: an identity scopes
			// it to the caller's rows, anonymity returns recent rows.
			r.Group(func(r chi.Router) {
				r.Use(middleware.OptionalAuth(authn))
				r.Get("/predictions/history", predictHandler.History)
			})

			r.Get("/model", predictHandler.ModelInfo)
		})
	})

	s.router = r
}

// handleHealthz is a liveness probe. Returns 200 if the process is running.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

// handleReadyz is a readiness probe. Returns 200 when the store, cache, and
// model are all usable, or 503 when anything is degraded.
func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	checks := make(map[string]string)

	if err := s.store.Ping(r.Context()); err != nil {
		checks["database"] = "error: " + err.Error()
		status = "degraded"
	} else {
		checks["database"] = "ok"
	}

	if err := s.cache.Ping(r.Context()); err != nil {
		checks["cache"] = "error: " + err.Error()
		status = "degraded"
	} else {
		checks["cache"] = "ok"
	}

	if s.predictor == nil {
		checks["model"] = "error: not loaded"
		status = "degraded"
	} else {
		checks["model"] = "ok"
	}

	httpStatus := http.StatusOK
	if status != "ok" {
		httpStatus = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)
	json.NewEncoder(w).Encode(map[string]any{
		"status": status,
		"checks": checks,
	})
}

// handleStatus reports uptime and version.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]any{
		"status":         "operational",
		"version":        s.cfg.Version,
		"model_version":  s.predictor.Version(),
		"uptime_seconds": int64(time.Since(s.startedAt).Seconds()),
	})
}

// ListenAndServe starts the HTTP server and blocks until SIGINT or SIGTERM,
// then drains in-flight requests before returning.
func (s *Server) ListenAndServe() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "addr", addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server listen: %w", err)
	case <-ctx.Done():
		s.logger.Info("shutdown signal received, draining connections")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	s.logger.Info("server stopped")
	return nil
}

// Router returns the underlying chi router, useful for testing.
func (s *Server) Router() chi.Router {
	return s.router
}

// ServeHTTP implements http.Handler, delegating to the router.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
