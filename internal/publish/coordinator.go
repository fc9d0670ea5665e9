// Tariffsync - Marketplace Tariff Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tariffsync

// Package publish pushes one day's reconciled tariffs to every active publish
// target.
//
// Targets are written one after another: clear A:Z, write the header at A1,
// append the value rows at A2. A target's last_synced_at advances only after
// all three steps succeed. A failing target is recorded in the SyncResult and
// the loop moves on; SyncAll never returns an error.
package publish

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/tariffsync/internal/config"
	"github.com/tomtom215/tariffsync/internal/logging"
	"github.com/tomtom215/tariffsync/internal/metrics"
	"github.com/tomtom215/tariffsync/internal/models"
)

const (
	clearRange  = "A:Z"
	headerRange = "A1"
	valuesRange = "A2"
)

// Store is the read side plus last-sync bookkeeping.
type Store interface {
	ListActivePublishTargets(ctx context.Context) ([]models.PublishTarget, error)
	ListTariffsByDate(ctx context.Context, date string) ([]models.TariffRecord, error)
	ListLocations(ctx context.Context) ([]models.Location, error)
	MarkPublishTargetSynced(ctx context.Context, id int64, at time.Time) error
}

// TargetWriter is implemented by sheets.Writer.
type TargetWriter interface {
	Clear(ctx context.Context, target models.PublishTarget, rng string) (models.WriteResult, error)
	Overwrite(ctx context.Context, target models.PublishTarget, rng string, rows [][]any) (models.WriteResult, error)
	Append(ctx context.Context, target models.PublishTarget, rng string, rows [][]any) (models.WriteResult, error)
}

// Coordinator fans reconciled data out to publish targets.
type Coordinator struct {
	store  Store
	writer TargetWriter
	zone   *time.Location
	now    func() time.Time
}

// Option customizes a Coordinator.
type Option func(*Coordinator)

// WithZone sets the business timezone used when SyncAll gets no date.
func WithZone(zone *time.Location) Option {
	return func(c *Coordinator) {
		if zone != nil {
			c.zone = zone
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) { c.now = now }
}

// New creates a Coordinator.
func New(store Store, writer TargetWriter, opts ...Option) *Coordinator {
	c := &Coordinator{store: store, writer: writer, zone: config.BusinessZone(), now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SyncAll publishes date (the current business date when empty) to every
// active target.
func (c *Coordinator) SyncAll(ctx context.Context, date string) (result models.SyncResult) {
	start := time.Now()
	if date == "" {
		date = c.now().In(c.zone).Format(models.DateLayout)
	}
	log := logging.Ctx(ctx).With().Str("component", "publish").Str("date", date).Logger()

	result = models.SyncResult{
		Date:             date,
		Errors:           []string{},
		PerTargetResults: []models.TargetSyncResult{},
	}
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("Publish panicked")
			result.Errors = append(result.Errors, fmt.Sprintf("panic: %v", r))
			result.Success = false
		}
		result.DurationMs = models.Since(start)
		metrics.PublishDuration.Observe(time.Since(start).Seconds())
	}()

	targets, err := c.store.ListActivePublishTargets(ctx)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("load publish targets: %v", err))
		log.Error().Err(err).Msg("Failed to load publish targets")
		return result
	}
	result.TotalTargets = len(targets)

	tariffs, err := c.store.ListTariffsByDate(ctx, date)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("load tariffs: %v", err))
		log.Error().Err(err).Msg("Failed to load tariffs")
		return result
	}
	locations, err := c.store.ListLocations(ctx)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("load warehouses: %v", err))
		log.Error().Err(err).Msg("Failed to load warehouses")
		return result
	}
	if len(tariffs) == 0 || len(locations) == 0 {
		result.Success = true
		log.Info().Int("tariffs", len(tariffs)).Int("warehouses", len(locations)).Msg("Nothing to publish")
		return result
	}

	rows := BuildRows(tariffs, locations)

	for _, target := range targets {
		tr := c.syncTarget(ctx, target, rows)
		result.PerTargetResults = append(result.PerTargetResults, tr)
		metrics.RecordPublishTarget(tr.Success, tr.RowsWritten)
		if tr.Success {
			result.SuccessfulSyncs++
			result.TotalRowsWritten += tr.RowsWritten
			continue
		}
		result.FailedSyncs++
		result.Errors = append(result.Errors, fmt.Sprintf("%s/%s: %s", target.SpreadsheetID, target.SheetName, tr.Error))
	}

	result.Success = result.FailedSyncs == 0
	event := log.Info()
	if !result.Success {
		event = log.Warn().Strs("errors", result.Errors)
	}
	event.Int("targets", result.TotalTargets).
		Int("succeeded", result.SuccessfulSyncs).
		Int("failed", result.FailedSyncs).
		Int("rows", result.TotalRowsWritten).
		Msg("Publish finished")
	return result
}

func (c *Coordinator) syncTarget(ctx context.Context, target models.PublishTarget, rows [][]any) models.TargetSyncResult {
	start := time.Now()
	tr := models.TargetSyncResult{
		TargetID:      target.ID,
		SpreadsheetID: target.SpreadsheetID,
		SheetName:     target.SheetName,
	}
	fail := func(step string, err error) models.TargetSyncResult {
		tr.Error = fmt.Sprintf("%s: %v", step, err)
		tr.DurationMs = models.Since(start)
		logging.Ctx(ctx).Warn().Err(err).
			Int64("target_id", target.ID).
			Str("spreadsheet_id", target.SpreadsheetID).
			Str("step", step).
			Msg("Publish target failed")
		return tr
	}

	if _, err := c.writer.Clear(ctx, target, clearRange); err != nil {
		return fail("clear", err)
	}
	if _, err := c.writer.Overwrite(ctx, target, headerRange, [][]any{Header}); err != nil {
		return fail("write header", err)
	}
	res, err := c.writer.Append(ctx, target, valuesRange, rows)
	if err != nil {
		return fail("append rows", err)
	}
	if err := c.store.MarkPublishTargetSynced(ctx, target.ID, c.now()); err != nil {
		return fail("record sync", err)
	}

	tr.Success = true
	tr.RowsWritten = len(rows)
	if res.RowsAffected > 0 && res.RowsAffected != len(rows) {
		logging.Ctx(ctx).Warn().Int("expected", len(rows)).Int("reported", res.RowsAffected).
			Str("spreadsheet_id", target.SpreadsheetID).Msg("Backend reported a different row count")
	}
	tr.DurationMs = models.Since(start)
	return tr
}
