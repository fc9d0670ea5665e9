// Tariffsync - Marketplace Tariff Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tariffsync

// Package metrics declares the Prometheus collectors for tariffsync.
//
// Collectors are registered on the default registry through promauto and
// exposed by the HTTP surface at /metrics. Metric families:
//
//   - tariff_api_*: upstream requests, latency, retries, limiter waits
//   - circuit_breaker_*: breaker state and outcomes, labeled by breaker name
//   - reconcile_*: reconcile duration, upserted records, per-entry errors
//   - publish_*: per-target sync outcomes, rows written, publish duration
//   - scheduler_*: cycle runs by trigger and result, last success, next fire
//
// The Record* helpers keep label values consistent across call sites.
package metrics
