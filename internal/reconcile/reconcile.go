// Tariffsync - Marketplace Tariff Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tariffsync

// Package reconcile writes one day's upstream tariffs into the store.
//
// A run fetches the normalized batch, then upserts every entry inside one
// transaction. Entries fail independently: the transaction commits when at
// least one entry was written and rolls back when none were. A failed fetch
// is the only failure returned to the caller as an error; per-entry failures
// are reported in ReconciliationResult.Errors.
//
// On PostgreSQL each entry runs under a savepoint, so K failed statements
// out of N still commit the other N-K. DuckDB has no savepoints: the first
// failed statement aborts the transaction and the whole day rolls back with
// database.ErrTxAborted. Entries rejected before reaching the database, such
// as a blank warehouse name, never abort the transaction on either driver.
package reconcile

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tomtom215/tariffsync/internal/config"
	"github.com/tomtom215/tariffsync/internal/database"
	"github.com/tomtom215/tariffsync/internal/logging"
	"github.com/tomtom215/tariffsync/internal/metrics"
	"github.com/tomtom215/tariffsync/internal/models"
	"github.com/tomtom215/tariffsync/internal/tariffs"
)

// Store is the transactional write surface the reconciler needs.
type Store interface {
	WithinTx(ctx context.Context, fn func(database.UpsertScope) (bool, error)) error
}

// Reconciler pulls tariffs and writes them to the store.
type Reconciler struct {
	fetcher tariffs.Fetcher
	store   Store
	zone    *time.Location
	now     func() time.Time
}

// Option customizes a Reconciler.
type Option func(*Reconciler)

// WithZone sets the business timezone used by ReconcileToday.
func WithZone(zone *time.Location) Option {
	return func(r *Reconciler) {
		if zone != nil {
			r.zone = zone
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(r *Reconciler) { r.now = now }
}

// New creates a Reconciler. The default zone is the fixed UTC+3 business zone.
func New(fetcher tariffs.Fetcher, store Store, opts ...Option) *Reconciler {
	r := &Reconciler{
		fetcher: fetcher,
		store:   store,
		zone:    config.BusinessZone(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Today returns the current calendar date in the business timezone.
func (r *Reconciler) Today() string {
	return r.now().In(r.zone).Format(models.DateLayout)
}

// ReconcileToday reconciles the current business date.
func (r *Reconciler) ReconcileToday(ctx context.Context) (models.ReconciliationResult, error) {
	return r.ReconcileForDate(ctx, r.Today())
}

// ReconcileForDate fetches date's tariffs and upserts them.
func (r *Reconciler) ReconcileForDate(ctx context.Context, date string) (models.ReconciliationResult, error) {
	start := time.Now()
	log := logging.Ctx(ctx).With().Str("component", "reconcile").Str("date", date).Logger()

	result := models.ReconciliationResult{Date: date, Errors: []string{}}
	finish := func() models.ReconciliationResult {
		result.DurationMs = models.Since(start)
		metrics.RecordReconcile(time.Since(start), result.LocationsProcessed, result.TariffsProcessed, len(result.Errors))
		return result
	}

	batch, err := r.fetcher.FetchTariffs(ctx, date)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("fetch tariffs: %v", err))
		log.Error().Err(err).Msg("Tariff fetch failed")
		return finish(), err
	}

	if len(batch.Entries) == 0 {
		result.Success = true
		log.Info().Msg("Upstream returned no warehouses, nothing to write")
		return finish(), nil
	}

	tillMax := parseTillMax(batch.DtTillMax)
	if batch.DtTillMax != nil && tillMax == nil {
		log.Warn().Str("dt_till_max", *batch.DtTillMax).Msg("Ignoring unparsable dtTillMax")
	}
	day, err := time.Parse(models.DateLayout, date)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("invalid date %q", date))
		return finish(), err
	}

	var entryErrors []string
	txErr := r.store.WithinTx(ctx, func(scope database.UpsertScope) (bool, error) {
		for i := range batch.Entries {
			entry := &batch.Entries[i]
			if err := ctx.Err(); err != nil {
				return false, err
			}
			if strings.TrimSpace(entry.WarehouseName) == "" {
				entryErrors = append(entryErrors, fmt.Sprintf("entry %d: warehouse name is empty", i))
				continue
			}

			locationID, err := scope.UpsertLocation(ctx, entry.WarehouseName, entry.GeoName)
			if err != nil {
				entryErrors = append(entryErrors, fmt.Sprintf("%s: %v", entry.WarehouseName, err))
				continue
			}
			result.LocationsProcessed++

			rec := &models.TariffRecord{
				LocationID:      locationID,
				Date:            day,
				Rates:           entry.Rates,
				DtNextBox:       batch.DtNextBox,
				DtTillMax:       tillMax,
				SortCoefficient: entry.SortCoefficient(),
			}
			if _, err := scope.UpsertTariff(ctx, rec); err != nil {
				entryErrors = append(entryErrors, fmt.Sprintf("%s: %v", entry.WarehouseName, err))
				continue
			}
			result.TariffsProcessed++
		}
		return result.TariffsProcessed > 0, nil
	})
	result.Errors = append(result.Errors, entryErrors...)

	if txErr != nil {
		result.LocationsProcessed, result.TariffsProcessed = 0, 0
		result.Errors = append(result.Errors, fmt.Sprintf("transaction: %v", txErr))
		log.Error().Err(txErr).Msg("Reconcile transaction failed")
		return finish(), txErr
	}

	if result.TariffsProcessed == 0 {
		result.LocationsProcessed = 0
		log.Error().Int("entries", len(batch.Entries)).Strs("errors", truncate(entryErrors, 10)).
			Msg("Every entry failed, transaction rolled back")
		return finish(), nil
	}

	result.Success = len(result.Errors) == 0
	event := log.Info()
	if !result.Success {
		event = log.Warn().Strs("errors", truncate(entryErrors, 10))
	}
	event.Int("locations", result.LocationsProcessed).
		Int("tariffs", result.TariffsProcessed).
		Int("failed", len(entryErrors)).
		Int64("duration_ms", models.Since(start)).
		Msg("Reconcile finished")
	return finish(), nil
}

// parseTillMax accepts "2006-01-02" or an RFC 3339 timestamp and keeps the date.
func parseTillMax(raw *string) *time.Time {
	if raw == nil {
		return nil
	}
	s := strings.TrimSpace(*raw)
	if len(s) >= len(models.DateLayout) {
		s = s[:len(models.DateLayout)]
	}
	d, err := time.Parse(models.DateLayout, s)
	if err != nil {
		return nil
	}
	return &d
}

func truncate(s []string, n int) []string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
