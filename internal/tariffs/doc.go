// Tariffsync - Marketplace Tariff Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tariffsync

// Package tariffs is the client for the marketplace box tariffs API.
//
// One FetchTariffs call performs:
//
//	date check -> circuit breaker -> retry loop -> rate limiter + in-flight slot -> HTTP GET
//
// Every failure leaves the package as a *fault.Error:
//
//	400                        -> Validation (not retried)
//	401, 403                   -> Auth (not retried, never trips the breaker)
//	408, 429, 5xx, net errors  -> Transient (retried with backoff)
//	other 4xx, bad payload     -> Permanent / Validation
//
// Responses are decoded with goccy/go-json and normalized into a
// models.NormalizedTariffBatch, converting the upstream decimal-comma strings
// into *float64 (ParseNumber).
package tariffs
