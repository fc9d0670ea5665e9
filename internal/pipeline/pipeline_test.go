// Tariffsync - Marketplace Tariff Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tariffsync

package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/tomtom215/tariffsync/internal/fault"
	"github.com/tomtom215/tariffsync/internal/logging"
	"github.com/tomtom215/tariffsync/internal/models"
)

type stubReconciler struct {
	result models.ReconciliationResult
	err    error
	dates  []string
	corr   string
}

func (s *stubReconciler) ReconcileForDate(ctx context.Context, date string) (models.ReconciliationResult, error) {
	s.dates = append(s.dates, date)
	s.corr = logging.CorrelationIDFromContext(ctx)
	return s.result, s.err
}

func (s *stubReconciler) Today() string { return "2025-11-12" }

type stubPublisher struct {
	result models.SyncResult
	dates  []string
}

func (s *stubPublisher) SyncAll(_ context.Context, date string) models.SyncResult {
	s.dates = append(s.dates, date)
	return s.result
}

func TestRunCyclePublishesAfterReconcile(t *testing.T) {
	t.Parallel()

	rec := &stubReconciler{result: models.ReconciliationResult{Success: true, TariffsProcessed: 2}}
	pub := &stubPublisher{result: models.SyncResult{Success: true, TotalRowsWritten: 2}}

	summary, err := NewRunner(rec, pub).RunCycle(context.Background(), "")
	if err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	if !summary.Success() {
		t.Errorf("summary = %+v, want success", summary)
	}
	if rec.dates[0] != "2025-11-12" || pub.dates[0] != "2025-11-12" {
		t.Errorf("dates = %v / %v", rec.dates, pub.dates)
	}
	if summary.CorrelationID == "" || summary.CorrelationID != rec.corr {
		t.Errorf("correlation id %q not propagated (reconciler saw %q)", summary.CorrelationID, rec.corr)
	}
}

func TestRunCyclePublishesAfterPartialReconcile(t *testing.T) {
	t.Parallel()

	rec := &stubReconciler{result: models.ReconciliationResult{TariffsProcessed: 1, Errors: []string{"entry 1: warehouse name is empty"}}}
	pub := &stubPublisher{result: models.SyncResult{Success: true}}

	summary, err := NewRunner(rec, pub).RunCycle(context.Background(), "2025-11-12")
	if err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	if len(pub.dates) != 1 {
		t.Error("publish skipped after partial reconcile")
	}
	if summary.Success() {
		t.Error("summary reports success despite reconcile errors")
	}
}

func TestRunCycleSkipsPublishOnFetchFailure(t *testing.T) {
	t.Parallel()

	fetchErr := fault.Transient("tariffs.fetch", 503, "unavailable", nil)
	rec := &stubReconciler{err: fetchErr}
	pub := &stubPublisher{}

	summary, err := NewRunner(rec, pub).RunCycle(context.Background(), "2025-11-12")
	if !errors.Is(err, fetchErr) {
		t.Fatalf("err = %v, want fetch error", err)
	}
	if len(pub.dates) != 0 {
		t.Error("publish ran after fetch failure")
	}
	if summary.Publish != nil || summary.ErrorKind != "transient" {
		t.Errorf("summary = %+v", summary)
	}
}
