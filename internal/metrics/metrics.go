// Tariffsync - Marketplace Tariff Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tariffsync

package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Upstream tariff API
	TariffAPIRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tariff_api_requests_total",
			Help: "Total number of HTTP attempts against the tariff API",
		},
		[]string{"result"}, // success, transient, auth, validation, permanent
	)

	TariffAPIRequestDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tariff_api_request_duration_seconds",
			Help:    "Duration of single tariff API attempts in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
	)

	TariffAPIRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tariff_api_retries_total",
			Help: "Total number of retries, labeled by the failure kind that caused them",
		},
		[]string{"kind"},
	)

	TariffAPIRateLimitWait = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tariff_api_rate_limit_wait_seconds",
			Help:    "Time spent waiting for a rate limiter token",
			Buckets: []float64{0, 0.01, 0.1, 0.5, 1, 5, 15, 60},
		},
	)

	// Circuit breakers
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of calls through a circuit breaker",
		},
		[]string{"name", "result"}, // success, failure, rejected
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// Reconciliation
	ReconcileDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "reconcile_duration_seconds",
			Help:    "Duration of reconcile runs in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	ReconcileRecords = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reconcile_records_total",
			Help: "Total number of upserted records",
		},
		[]string{"entity"}, // location, tariff
	)

	ReconcileErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "reconcile_errors_total",
			Help: "Total number of per-entry and fetch failures during reconcile",
		},
	)

	// Publishing
	PublishTargetSyncs = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "publish_target_syncs_total",
			Help: "Total number of publish target syncs",
		},
		[]string{"result"}, // success, failure
	)

	PublishRowsWritten = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "publish_rows_written_total",
			Help: "Total number of value rows written to publish targets",
		},
	)

	PublishDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "publish_duration_seconds",
			Help:    "Duration of publish runs across all targets in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Scheduler
	SchedulerRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scheduler_runs_total",
			Help: "Total number of pipeline cycles",
		},
		[]string{"trigger", "result"}, // trigger: schedule, manual; result: success, partial, failure, skipped
	)

	SchedulerLastSuccess = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "scheduler_last_success_timestamp",
			Help: "Unix time of the last fully successful cycle",
		},
	)

	SchedulerNextRun = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "scheduler_next_run_timestamp",
			Help: "Unix time of the next scheduled cycle, 0 when stopped",
		},
	)

	// HTTP surface
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests served",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds; /run includes the whole cycle",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60, 300},
		},
		[]string{"route"},
	)

	HTTPActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_active_requests",
			Help: "Number of HTTP requests currently being served",
		},
	)
)

// RecordTariffAPIAttempt records one HTTP attempt. result is "success" or a fault kind name.
func RecordTariffAPIAttempt(result string, duration time.Duration) {
	TariffAPIRequests.WithLabelValues(result).Inc()
	TariffAPIRequestDuration.Observe(duration.Seconds())
}

// RecordReconcile records a finished reconcile run.
func RecordReconcile(duration time.Duration, locations, tariffs, errs int) {
	ReconcileDuration.Observe(duration.Seconds())
	ReconcileRecords.WithLabelValues("location").Add(float64(locations))
	ReconcileRecords.WithLabelValues("tariff").Add(float64(tariffs))
	ReconcileErrors.Add(float64(errs))
}

// RecordPublishTarget records the outcome of one target sync.
func RecordPublishTarget(success bool, rows int) {
	if !success {
		PublishTargetSyncs.WithLabelValues("failure").Inc()
		return
	}
	PublishTargetSyncs.WithLabelValues("success").Inc()
	PublishRowsWritten.Add(float64(rows))
}

// RecordSchedulerRun records a cycle outcome and, on success, its finish time.
func RecordSchedulerRun(trigger, result string, finished time.Time) {
	SchedulerRuns.WithLabelValues(trigger, result).Inc()
	if result == "success" {
		SchedulerLastSuccess.Set(float64(finished.Unix()))
	}
}

// SetNextRun publishes the next fire time; the zero time clears it.
func SetNextRun(next time.Time) {
	if next.IsZero() {
		SchedulerNextRun.Set(0)
		return
	}
	SchedulerNextRun.Set(float64(next.Unix()))
}

// RecordHTTPRequest records one served request.
func RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	HTTPRequestDuration.WithLabelValues(route).Observe(duration.Seconds())
}
