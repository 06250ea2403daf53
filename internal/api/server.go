// Package api exposes the HTTP interface for the dashboard.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/JakeFAU/tubescout/internal/analyzer"
	"github.com/JakeFAU/tubescout/internal/auth"
	"github.com/JakeFAU/tubescout/internal/clock/system"
	"github.com/JakeFAU/tubescout/internal/config"
	"github.com/JakeFAU/tubescout/internal/crawler"
	"github.com/JakeFAU/tubescout/internal/discovery"
	"github.com/JakeFAU/tubescout/internal/export"
	"github.com/JakeFAU/tubescout/internal/metrics"
)

// Crawler runs a synchronous discovery pass. *discovery.Service satisfies it.
type Crawler interface {
	Crawl(ctx context.Context, p discovery.Params) (discovery.Result, error)
}

// Analyzer scores a single channel reference. *analyzer.Analyzer satisfies it.
type Analyzer interface {
	Analyze(ctx context.Context, input string) (analyzer.Report, bool, error)
}

// Archiver keeps a copy of rendered exports. *export.Archiver satisfies it.
type Archiver interface {
	Archive(ctx context.Context, f export.File) (string, error)
}

// Deps are the services the handlers call into.
type Deps struct {
	Store    crawler.Store
	Sessions *auth.Sessions
	Crawler  Crawler
	Analyzer Analyzer
	// Archiver may be nil.
	Archiver Archiver
	Clock    crawler.Clock
	Logger   *zap.Logger
}

// Server wires HTTP handlers to the store and the discovery services.
type Server struct {
	router   chi.Router
	store    crawler.Store
	sessions *auth.Sessions
	crawler  Crawler
	analyzer Analyzer
	archiver Archiver
	clock    crawler.Clock
	logger   *zap.Logger
	cfg      config.Config
}

// NewServer constructs a Server with middleware and routes.
func NewServer(deps Deps, cfg config.Config) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		store:    deps.Store,
		sessions: deps.Sessions,
		crawler:  deps.Crawler,
		analyzer: deps.Analyzer,
		archiver: deps.Archiver,
		clock:    deps.Clock,
		logger:   logger.Named("api"),
		cfg:      cfg,
	}
	if s.clock == nil {
		s.clock = system.New()
	}

	timeout := cfg.Server.RequestTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(tracingMiddleware)
	r.Use(loggingMiddleware(s.logger))
	r.Use(recoverMiddleware(s.logger))
	r.Use(metrics.Middleware)
	r.Use(corsMiddleware(cfg.Server.CORSOrigins))

	r.Group(func(r chi.Router) {
		r.Use(timeoutMiddleware(timeout))
		r.Get("/healthz", s.healthz)
		r.Get("/readyz", s.readyz)
		r.Get("/metrics", s.metrics)

		r.Post("/login", s.login)
		r.Post("/logout", s.logout)
	})

	r.Route("/api", func(r chi.Router) {
		// A crawl runs until the target or the grid is exhausted; only the
		// client disconnecting cancels it.
		r.With(s.requireAdmin).Post("/fetch", s.fetch)

		r.Group(func(r chi.Router) {
			r.Use(timeoutMiddleware(timeout))
			r.Post("/analyze", s.analyze)

			r.Group(func(r chi.Router) {
				r.Use(s.requireUser)
				r.Get("/me", s.me)
				r.Post("/change-password", s.changePassword)

				r.Get("/channels", s.listChannels)
				r.Post("/channels/update-emailed", s.updateEmailed)
				r.Post("/channels/update-notes", s.updateNotes)
				r.Post("/channels/update-reply", s.updateReply)

				r.Get("/stats", s.stats)
				r.Get("/analytics", s.analytics)
				r.Get("/filters/options", s.filterOptions)
				r.Get("/activity", s.activity)
				r.Get("/export", s.exportChannels)
			})

			r.Group(func(r chi.Router) {
				r.Use(s.requireAdmin)
				r.Post("/rescore", s.rescore)

				r.Get("/users", s.listUsers)
				r.Post("/users", s.createUser)
				r.Delete("/users/{id}", s.deleteUser)
				r.Post("/users/{id}/password", s.resetPassword)
			})
		})
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		s.logger.Warn("readiness check failed", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "store unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) metrics(w http.ResponseWriter, r *http.Request) {
	metrics.Handler().ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Error("write JSON failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
