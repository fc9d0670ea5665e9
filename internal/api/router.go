// Tariffsync - Marketplace Tariff Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tariffsync

// Package api serves the operator HTTP surface: liveness, scheduler status,
// the on-demand run trigger and Prometheus metrics.
//
// Routes:
//
//	GET  /healthz                liveness, always 200 while the process serves
//	GET  /status                 scheduler state, last run and store counts
//	POST /run?date=YYYY-MM-DD    one synchronous cycle (today when date is omitted)
//	GET  /metrics                Prometheus exposition
//
// /run is rate limited per client IP. Cycle failures map to HTTP statuses by
// failure kind: validation 400, upstream auth 502, transient 503, a cycle
// already in progress 409, anything else 500.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/tariffsync/internal/config"
	"github.com/tomtom215/tariffsync/internal/database"
	"github.com/tomtom215/tariffsync/internal/middleware"
	"github.com/tomtom215/tariffsync/internal/models"
	"github.com/tomtom215/tariffsync/internal/scheduler"
)

// Trigger is the scheduler surface the server needs.
type Trigger interface {
	Status() scheduler.Status
	RunNow(ctx context.Context, date string) (*models.CycleSummary, error)
}

// StatsSource reports store contents for /status. It may be nil.
type StatsSource interface {
	Stats(ctx context.Context) (*database.Stats, error)
}

// Server holds the handler dependencies.
type Server struct {
	trigger   Trigger
	stats     StatsSource
	cfg       config.ServerConfig
	startedAt time.Time
	metrics   http.Handler
}

// New creates a Server. stats may be nil.
func New(trigger Trigger, stats StatsSource, cfg config.ServerConfig) *Server {
	if cfg.RunRateLimit <= 0 {
		cfg.RunRateLimit = 5
	}
	return &Server{
		trigger:   trigger,
		stats:     stats,
		cfg:       cfg,
		startedAt: time.Now(),
		metrics:   promhttp.Handler(),
	}
}

// Router builds the chi handler tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(middleware.RequestContext)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.AccessLog)
	r.Use(middleware.PrometheusMetrics)
	r.Use(chimiddleware.Recoverer)

	r.Get("/healthz", s.Healthz)
	r.Get("/status", s.Status)
	r.With(httprate.Limit(
		s.cfg.RunRateLimit,
		time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(rateLimited),
	)).Post("/run", s.Run)
	r.Method(http.MethodGet, "/metrics", s.metrics)

	return r
}

// HTTPServer wraps Router in an *http.Server listening on cfg.Addr().
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:              s.cfg.Addr(),
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func rateLimited(w http.ResponseWriter, r *http.Request) {
	respondError(w, r, http.StatusTooManyRequests, &APIError{
		Code:    "RATE_LIMITED",
		Message: "too many run requests, try again later",
	}, nil)
}
