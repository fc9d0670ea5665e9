// Tariffsync - Marketplace Tariff Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tariffsync

package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordTariffAPIAttempt(t *testing.T) {
	before := testutil.ToFloat64(TariffAPIRequests.WithLabelValues("transient"))
	RecordTariffAPIAttempt("transient", 120*time.Millisecond)
	after := testutil.ToFloat64(TariffAPIRequests.WithLabelValues("transient"))

	if after-before != 1 {
		t.Errorf("transient attempts delta = %v, want 1", after-before)
	}
}

func TestRecordReconcile(t *testing.T) {
	locBefore := testutil.ToFloat64(ReconcileRecords.WithLabelValues("location"))
	tarBefore := testutil.ToFloat64(ReconcileRecords.WithLabelValues("tariff"))
	errBefore := testutil.ToFloat64(ReconcileErrors)

	RecordReconcile(time.Second, 3, 3, 1)

	if d := testutil.ToFloat64(ReconcileRecords.WithLabelValues("location")) - locBefore; d != 3 {
		t.Errorf("location delta = %v, want 3", d)
	}
	if d := testutil.ToFloat64(ReconcileRecords.WithLabelValues("tariff")) - tarBefore; d != 3 {
		t.Errorf("tariff delta = %v, want 3", d)
	}
	if d := testutil.ToFloat64(ReconcileErrors) - errBefore; d != 1 {
		t.Errorf("errors delta = %v, want 1", d)
	}
}

func TestRecordPublishTarget(t *testing.T) {
	okBefore := testutil.ToFloat64(PublishTargetSyncs.WithLabelValues("success"))
	failBefore := testutil.ToFloat64(PublishTargetSyncs.WithLabelValues("failure"))
	rowsBefore := testutil.ToFloat64(PublishRowsWritten)

	RecordPublishTarget(true, 2)
	RecordPublishTarget(false, 5)

	if d := testutil.ToFloat64(PublishTargetSyncs.WithLabelValues("success")) - okBefore; d != 1 {
		t.Errorf("success delta = %v", d)
	}
	if d := testutil.ToFloat64(PublishTargetSyncs.WithLabelValues("failure")) - failBefore; d != 1 {
		t.Errorf("failure delta = %v", d)
	}
	if d := testutil.ToFloat64(PublishRowsWritten) - rowsBefore; d != 2 {
		t.Errorf("rows delta = %v, want 2 (failed targets do not count)", d)
	}
}

func TestRecordSchedulerRun(t *testing.T) {
	finished := time.Date(2025, 11, 12, 10, 0, 0, 0, time.UTC)

	RecordSchedulerRun("schedule", "success", finished)
	if got := testutil.ToFloat64(SchedulerLastSuccess); got != float64(finished.Unix()) {
		t.Errorf("last success = %v, want %v", got, finished.Unix())
	}

	RecordSchedulerRun("manual", "failure", finished.Add(time.Hour))
	if got := testutil.ToFloat64(SchedulerLastSuccess); got != float64(finished.Unix()) {
		t.Error("failed run must not move last success")
	}
}

func TestSetNextRun(t *testing.T) {
	next := time.Date(2025, 11, 12, 11, 0, 0, 0, time.UTC)
	SetNextRun(next)
	if got := testutil.ToFloat64(SchedulerNextRun); got != float64(next.Unix()) {
		t.Errorf("next run = %v", got)
	}
	SetNextRun(time.Time{})
	if got := testutil.ToFloat64(SchedulerNextRun); got != 0 {
		t.Errorf("next run after clear = %v, want 0", got)
	}
}
