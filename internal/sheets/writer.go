// Tariffsync - Marketplace Tariff Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tariffsync

package sheets

import (
	"context"
	"time"

	"github.com/tomtom215/tariffsync/internal/config"
	"github.com/tomtom215/tariffsync/internal/fault"
	"github.com/tomtom215/tariffsync/internal/logging"
	"github.com/tomtom215/tariffsync/internal/models"
	"github.com/tomtom215/tariffsync/internal/retry"
)

// Writer performs retried writes against one DocumentAPI. It never touches
// publish target bookkeeping; callers decide what a successful write means.
type Writer struct {
	api   DocumentAPI
	retry retry.Policy
}

// NewWriter wraps api. A zero policy means retry.Default().
func NewWriter(api DocumentAPI, policy retry.Policy) *Writer {
	if policy.MaxAttempts == 0 {
		sleep := policy.Sleep
		policy = retry.Default()
		policy.Sleep = sleep
	}
	policy.Retryable = fault.IsTransient
	return &Writer{api: api, retry: policy}
}

// PolicyFromConfig maps the publish retry settings.
func PolicyFromConfig(cfg config.PublishConfig) retry.Policy {
	return retry.Policy{
		MaxAttempts: cfg.MaxAttempts,
		BaseDelay:   cfg.RetryBaseDelay,
		MaxDelay:    cfg.RetryMaxDelay,
	}
}

// Clear empties rng (relative to the target's sheet, e.g. "A:Z").
func (w *Writer) Clear(ctx context.Context, target models.PublishTarget, rng string) (models.WriteResult, error) {
	return w.run(ctx, "sheets.clear", target, func(ctx context.Context) (int, error) {
		return 0, w.api.Clear(ctx, target.SpreadsheetID, A1Range(target.SheetName, rng))
	})
}

// Overwrite writes rows starting at rng's top-left cell.
func (w *Writer) Overwrite(ctx context.Context, target models.PublishTarget, rng string, rows [][]any) (models.WriteResult, error) {
	return w.run(ctx, "sheets.overwrite", target, func(ctx context.Context) (int, error) {
		return w.api.Update(ctx, target.SpreadsheetID, A1Range(target.SheetName, rng), rows)
	})
}

// Append writes rows after existing data at or below rng.
func (w *Writer) Append(ctx context.Context, target models.PublishTarget, rng string, rows [][]any) (models.WriteResult, error) {
	if len(rows) == 0 {
		return models.WriteResult{Success: true}, nil
	}
	return w.run(ctx, "sheets.append", target, func(ctx context.Context) (int, error) {
		return w.api.Append(ctx, target.SpreadsheetID, A1Range(target.SheetName, rng), rows)
	})
}

func (w *Writer) run(ctx context.Context, op string, target models.PublishTarget, write func(context.Context) (int, error)) (models.WriteResult, error) {
	start := time.Now()
	var affected int

	err := w.retry.Do(ctx, op, func(ctx context.Context) error {
		if err := w.api.EnsureSheet(ctx, target.SpreadsheetID, target.SheetName); err != nil {
			return err
		}
		n, err := write(ctx)
		if err != nil {
			return err
		}
		affected = n
		return nil
	})

	result := models.WriteResult{Success: err == nil, RowsAffected: affected, DurationMs: models.Since(start)}
	if err != nil {
		result.RowsAffected = 0
		result.Error = err.Error()
		logging.Ctx(ctx).Warn().Err(err).
			Str("op", op).
			Str("spreadsheet_id", target.SpreadsheetID).
			Str("sheet", target.SheetName).
			Str("kind", fault.KindOf(err).String()).
			Msg("Spreadsheet write failed")
	}
	return result, err
}
