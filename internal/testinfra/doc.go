// Tariffsync - Marketplace Tariff Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tariffsync

// Package testinfra provides shared test infrastructure.
//
// # Fake tariff API
//
// FakeTariffAPI is an httptest server speaking the marketplace tariff API's
// envelope format. It records every request and serves canned batches per
// date, so reconcile and pipeline tests run without network access:
//
//	api := testinfra.NewFakeTariffAPI(t)
//	api.SetBatch("2025-11-12", testinfra.Warehouse{Name: "Koledino", DeliveryBase: "46"})
//	client := tariffs.New(tariffs.Options{BaseURL: api.URL(), Token: "t"})
//
// # PostgreSQL container
//
// Files behind the integration build tag start a real PostgreSQL through
// testcontainers-go:
//
//	func TestStorePostgres(t *testing.T) {
//	    dsn := testinfra.StartPostgres(t) // skips without Docker, terminates on cleanup
//	    store, err := database.Open(ctx, config.DatabaseConfig{Driver: "pgx", URL: dsn})
//	    ...
//	}
//
// Set TARIFFSYNC_SKIP_CONTAINERS to skip them on hosts with Docker.
//
// Run them with:
//
//	go test -tags integration ./internal/database/...
//
// The first run pulls the image.
package testinfra
