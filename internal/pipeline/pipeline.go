// Tariffsync - Marketplace Tariff Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tariffsync

// Package pipeline runs one reconcile-then-publish cycle.
package pipeline

import (
	"context"
	"time"

	"github.com/tomtom215/tariffsync/internal/fault"
	"github.com/tomtom215/tariffsync/internal/logging"
	"github.com/tomtom215/tariffsync/internal/models"
)

// Reconciler is implemented by reconcile.Reconciler.
type Reconciler interface {
	ReconcileForDate(ctx context.Context, date string) (models.ReconciliationResult, error)
	Today() string
}

// Publisher is implemented by publish.Coordinator.
type Publisher interface {
	SyncAll(ctx context.Context, date string) models.SyncResult
}

// Runner composes the two stages.
type Runner struct {
	reconciler Reconciler
	publisher  Publisher
	now        func() time.Time
}

// NewRunner creates a Runner.
func NewRunner(reconciler Reconciler, publisher Publisher) *Runner {
	return &Runner{reconciler: reconciler, publisher: publisher, now: time.Now}
}

// RunCycle reconciles date (today in the business zone when empty) and then
// publishes it. Publishing still happens after per-entry reconcile failures
// but not after the fetch or the transaction failed; that error is returned.
func (r *Runner) RunCycle(ctx context.Context, date string) (*models.CycleSummary, error) {
	ctx = logging.ContextWithNewCorrelationID(ctx)
	if date == "" {
		date = r.reconciler.Today()
	}

	summary := &models.CycleSummary{
		CorrelationID: logging.CorrelationIDFromContext(ctx),
		Date:          date,
		StartedAt:     r.now().UTC(),
	}
	log := logging.Ctx(ctx)
	log.Info().Str("date", date).Msg("Cycle started")

	rec, err := r.reconciler.ReconcileForDate(ctx, date)
	summary.Reconcile = rec
	if err != nil {
		summary.Error = err.Error()
		summary.ErrorKind = fault.KindOf(err).String()
		summary.FinishedAt = r.now().UTC()
		log.Error().Err(err).Str("kind", summary.ErrorKind).Msg("Cycle aborted before publish")
		return summary, err
	}

	pub := r.publisher.SyncAll(ctx, date)
	summary.Publish = &pub
	summary.FinishedAt = r.now().UTC()

	log.Info().
		Bool("success", summary.Success()).
		Int("tariffs", rec.TariffsProcessed).
		Int("reconcile_errors", len(rec.Errors)).
		Int("targets_ok", pub.SuccessfulSyncs).
		Int("targets_failed", pub.FailedSyncs).
		Dur("elapsed", summary.FinishedAt.Sub(summary.StartedAt)).
		Msg("Cycle finished")
	return summary, nil
}
