// Package server exposes the engine's read-only status, health, and
// suggestion-approval HTTP surface. No dashboard HTML/JS is served here
// (out of scope per Non-goals) — this is purely the operational API a
// status page or approval tool would call.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/dohyunpark/autotrader/internal/config"
	"github.com/dohyunpark/autotrader/internal/events"
	"github.com/dohyunpark/autotrader/internal/journal"
	"github.com/dohyunpark/autotrader/internal/scheduler"
	"github.com/dohyunpark/autotrader/internal/users"
)

// Config holds everything Server needs to build its routes.
type Config struct {
	Port      int
	Log       zerolog.Logger
	Cfg       *config.Config
	Users     *users.Repository
	Journal   *journal.Journal
	Events    *events.Manager
	Scheduler *scheduler.Scheduler
	DevMode   bool
}

// Server is the HTTP status/health/approval server.
type Server struct {
	router *chi.Mux
	server *http.Server
	log    zerolog.Logger
}

// New builds a Server with routes already wired.
func New(cfg Config) *Server {
	h := &handlers{
		log:       cfg.Log.With().Str("component", "server").Logger(),
		cfg:       cfg.Cfg,
		users:     cfg.Users,
		journal:   cfg.Journal,
		events:    cfg.Events,
		scheduler: cfg.Scheduler,
	}

	s := &Server{
		router: chi.NewRouter(),
		log:    h.log,
	}
	s.setupMiddleware(cfg.DevMode)
	s.setupRoutes(h)

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

func (s *Server) setupMiddleware(devMode bool) {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(middleware.Timeout(30 * time.Second))
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	if !devMode {
		s.router.Use(middleware.Compress(5))
	}
}

func (s *Server) setupRoutes(h *handlers) {
	s.router.Get("/health", h.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Route("/status", func(r chi.Router) {
			r.Get("/system", h.handleSystemStatus)
			r.Get("/events", h.handleRecentEvents)
			r.Get("/jobs", h.handleJobsStatus)
		})
		r.Route("/users/{userID}", func(r chi.Router) {
			r.Get("/suggestions", h.handleListSuggestions)
			r.Post("/suggestions/{id}/approve", h.handleApproveSuggestion)
		})
	})
}

// Start begins serving. Blocks until the listener stops.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("starting status server")
	err := s.server.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown gracefully drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("shutting down status server")
	return s.server.Shutdown(ctx)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("http request")
	})
}
