// SPDX-License-Identifier: MIT

// Package api serves the latest guide document and grab status over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/domevanzy/Zattoo-EPG/internal/api/middleware"
	"github.com/domevanzy/Zattoo-EPG/internal/jobs"
	"github.com/domevanzy/Zattoo-EPG/internal/store"
)

// Backend is the grab state the server exposes.
type Backend interface {
	// Document returns the latest XMLTV bytes and when they were produced.
	Document() ([]byte, time.Time, bool)
	// LastStatus returns the most recent grab summary.
	LastStatus() (*jobs.Status, bool)
	// Refresh runs a grab now, joining one already in flight.
	Refresh(ctx context.Context) (*jobs.Status, error)
}

// History lists persisted runs.
type History interface {
	Recent(ctx context.Context, limit int) ([]store.Run, error)
}

// Config wires a Server.
type Config struct {
	Backend Backend
	// History may be nil when run history is disabled.
	History History
	Version string
	// TracingService enables request spans when set.
	TracingService string
	// RefreshTimeout bounds a synchronous refresh request.
	RefreshTimeout time.Duration
}

// DefaultRefreshTimeout bounds POST /api/refresh.
const DefaultRefreshTimeout = 30 * time.Minute

// Server is the HTTP surface of the serve mode.
type Server struct {
	cfg     Config
	started time.Time
	router  chi.Router
}

// New builds the router.
func New(cfg Config) *Server {
	if cfg.RefreshTimeout <= 0 {
		cfg.RefreshTimeout = DefaultRefreshTimeout
	}
	s := &Server{cfg: cfg, started: time.Now()}
	s.router = s.routes()
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := middleware.NewRouter(middleware.StackConfig{
		EnableSecurityHeaders: true,
		EnableMetrics:         true,
		TracingService:        s.cfg.TracingService,
		EnableLogging:         true,
	})

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(middleware.APIRateLimit())
		r.Get("/xmltv.xml", s.handleXMLTV)
		r.Head("/xmltv.xml", s.handleXMLTV)
		r.Get("/api/status", s.handleStatus)
		r.Get("/api/runs", s.handleRuns)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.RefreshRateLimit())
		r.Post("/api/refresh", s.handleRefresh)
	})
	return r
}
