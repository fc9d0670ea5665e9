// Tariffsync - Marketplace Tariff Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tariffsync

package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/tomtom215/tariffsync/internal/database"
	"github.com/tomtom215/tariffsync/internal/logging"
	"github.com/tomtom215/tariffsync/internal/scheduler"
	"github.com/tomtom215/tariffsync/internal/validation"
)

// HealthResponse is the /healthz payload.
type HealthResponse struct {
	Status        string  `json:"status"`
	UptimeSeconds float64 `json:"uptime_seconds"`
}

// RunRequest holds the /run query parameters.
type RunRequest struct {
	Date string `validate:"omitempty,calendardate"`
}

// StatusResponse is the /status payload.
type StatusResponse struct {
	Scheduler  scheduler.Status `json:"scheduler"`
	Store      *database.Stats  `json:"store,omitempty"`
	StoreError string           `json:"store_error,omitempty"`
}

// Healthz reports liveness.
func (s *Server) Healthz(w http.ResponseWriter, r *http.Request) {
	respondData(w, r, HealthResponse{
		Status:        "ok",
		UptimeSeconds: time.Since(s.startedAt).Seconds(),
	})
}

// Status reports the scheduler view plus store counts. A failing store read
// is reported in the body; the scheduler view is still useful without it.
func (s *Server) Status(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{Scheduler: s.trigger.Status()}
	if s.stats != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		st, err := s.stats.Stats(ctx)
		if err != nil {
			logging.Ctx(r.Context()).Warn().Err(err).Msg("Store stats unavailable for status")
			resp.StoreError = err.Error()
		} else {
			resp.Store = st
		}
	}
	respondData(w, r, resp)
}

// Run executes one cycle synchronously. A malformed date is rejected before
// the single-flight slot is taken. The cycle outlives a disconnecting client
// so a reconcile transaction is never cut short by a dropped request.
func (s *Server) Run(w http.ResponseWriter, r *http.Request) {
	req := RunRequest{Date: strings.TrimSpace(r.URL.Query().Get("date"))}
	if verr := validation.ValidateStruct(&req); verr != nil {
		respondCycleError(w, r, verr.Fault("api.run"), nil)
		return
	}

	logging.Ctx(r.Context()).Info().Str("date", req.Date).Msg("Manual run requested")
	summary, err := s.trigger.RunNow(context.WithoutCancel(r.Context()), req.Date)
	if err != nil {
		if summary != nil {
			respondCycleError(w, r, err, summary)
			return
		}
		respondCycleError(w, r, err, nil)
		return
	}

	// Partial failures still complete the cycle; Success in the envelope
	// tells the caller whether every entry and target went through.
	respondJSON(w, r, http.StatusOK, &Response{Success: summary.Success(), Data: summary})
}
