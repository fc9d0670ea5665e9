// Tariffsync - Marketplace Tariff Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tariffsync

package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/tariffsync/internal/fault"
	"github.com/tomtom215/tariffsync/internal/logging"
	"github.com/tomtom215/tariffsync/internal/middleware"
	"github.com/tomtom215/tariffsync/internal/scheduler"
	"github.com/tomtom215/tariffsync/internal/validation"
)

// Response is the envelope for every JSON body the server writes.
type Response struct {
	Success bool      `json:"success"`
	Data    any       `json:"data,omitempty"`
	Error   *APIError `json:"error,omitempty"`
	Meta    Meta      `json:"meta"`
}

// APIError describes a failed request.
type APIError struct {
	Code    string `json:"code"`
	Kind    string `json:"kind,omitempty"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// Meta carries tracing data.
type Meta struct {
	RequestID string    `json:"request_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Error codes
const (
	CodeValidation  = "VALIDATION_ERROR"
	CodeAuth        = "UPSTREAM_AUTH_ERROR"
	CodeUnavailable = "UPSTREAM_UNAVAILABLE"
	CodeBusy        = "CYCLE_IN_PROGRESS"
	CodeInternal    = "INTERNAL_ERROR"
)

func respondJSON(w http.ResponseWriter, r *http.Request, status int, resp *Response) {
	resp.Meta.RequestID = logging.RequestIDFromContext(r.Context())
	if resp.Meta.Timestamp.IsZero() {
		resp.Meta.Timestamp = time.Now().UTC()
	}

	data, err := json.Marshal(resp)
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("Failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("Failed to write JSON response")
	}
}

func respondData(w http.ResponseWriter, r *http.Request, data any) {
	respondJSON(w, r, http.StatusOK, &Response{Success: true, Data: data})
}

func respondError(w http.ResponseWriter, r *http.Request, status int, apiErr *APIError, data any) {
	respondJSON(w, r, status, &Response{Success: false, Data: data, Error: apiErr})
}

// statusForError maps a cycle error to an HTTP status and error code.
// Upstream credential failures are the gateway's problem, not the caller's,
// so they map to 502 rather than 401.
func statusForError(err error) (int, string) {
	if errors.Is(err, scheduler.ErrBusy) {
		return http.StatusConflict, CodeBusy
	}
	switch fault.KindOf(err) {
	case fault.KindValidation:
		return http.StatusBadRequest, CodeValidation
	case fault.KindAuth:
		return http.StatusBadGateway, CodeAuth
	case fault.KindTransient:
		return http.StatusServiceUnavailable, CodeUnavailable
	default:
		return http.StatusInternalServerError, CodeInternal
	}
}

// respondCycleError writes err with its mapped status. The partial cycle
// summary, if any, rides along in data.
func respondCycleError(w http.ResponseWriter, r *http.Request, err error, data any) {
	status, code := statusForError(err)
	apiErr := &APIError{Code: code, Message: err.Error()}
	if code != CodeBusy {
		apiErr.Kind = fault.KindOf(err).String()
	}
	var verr *validation.RequestValidationError
	if errors.As(err, &verr) {
		apiErr.Details = verr.Fields
	}

	ev := logging.Ctx(r.Context()).Warn()
	if status >= http.StatusInternalServerError {
		ev = logging.Ctx(r.Context()).Error()
	}
	ev.Int("status", status).Str("code", code).Str("error", middleware.SanitizeLogValue(err.Error())).Msg("Run request failed")

	respondError(w, r, status, apiErr, data)
}
