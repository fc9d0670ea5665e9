// Tariffsync - Marketplace Tariff Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tariffsync

/*
Package middleware provides the HTTP middleware used by the operator API.

The stack, outermost first:

	chimiddleware.RequestID  assigns or forwards X-Request-Id
	RequestContext           copies the id into the logging context, adds a correlation id
	chimiddleware.RealIP     resolves the client address for rate limiting
	AccessLog                one structured line per request
	PrometheusMetrics        http_requests_total and http_request_duration_seconds
	chimiddleware.Recoverer  turns handler panics into 500s

Metrics are labeled by chi route pattern, not raw path, so unknown paths
collapse into a single "unmatched" series.
*/
package middleware

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/tomtom215/tariffsync/internal/logging"
	"github.com/tomtom215/tariffsync/internal/metrics"
)

// RequestContext copies chi's request id into the logging context and
// starts a correlation id, so cycle logs triggered over HTTP carry both.
// It must run after chimiddleware.RequestID.
func RequestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if id := chimiddleware.GetReqID(ctx); id != "" {
			ctx = logging.ContextWithRequestID(ctx, id)
			w.Header().Set(chimiddleware.RequestIDHeader, id)
		}
		ctx = logging.ContextWithNewCorrelationID(ctx)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// AccessLog writes one log line per request. Server errors log at warn,
// everything else at debug.
func AccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		log := logging.Ctx(r.Context())
		ev := log.Debug()
		if ww.Status() >= http.StatusInternalServerError {
			ev = log.Warn()
		}
		ev.Str("method", r.Method).
			Str("path", SanitizeLogValue(r.URL.Path)).
			Str("remote", r.RemoteAddr).
			Int("status", statusOf(ww)).
			Int("bytes", ww.BytesWritten()).
			Dur("elapsed", time.Since(start)).
			Msg("HTTP request")
	})
}

// PrometheusMetrics records request counts, latency and in-flight requests.
func PrometheusMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		metrics.HTTPActiveRequests.Inc()
		defer metrics.HTTPActiveRequests.Dec()

		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		metrics.RecordHTTPRequest(r.Method, routePattern(r), statusOf(ww), time.Since(start))
	})
}

// routePattern is read after the handler ran, once chi has matched the route.
func routePattern(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return "unmatched"
	}
	if p := rctx.RoutePattern(); p != "" {
		return p
	}
	return "unmatched"
}

// statusOf reports 200 for handlers that wrote a body without WriteHeader.
func statusOf(ww chimiddleware.WrapResponseWriter) int {
	if s := ww.Status(); s != 0 {
		return s
	}
	return http.StatusOK
}

// SanitizeLogValue escapes control characters so request data cannot forge log lines.
func SanitizeLogValue(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r < 0x20 || r == 0x7F {
			fmt.Fprintf(&b, "\\x%02x", r)
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}
