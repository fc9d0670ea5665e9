// Tariffsync - Marketplace Tariff Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tariffsync

package models

import "time"

// ReconciliationResult reports one reconcile run. Success is false when the
// fetch failed or any entry failed; Errors lists each failure.
type ReconciliationResult struct {
	Success            bool     `json:"success"`
	Date               string   `json:"date"`
	LocationsProcessed int      `json:"locations_processed"`
	TariffsProcessed   int      `json:"tariffs_processed"`
	Errors             []string `json:"errors"`
	DurationMs         int64    `json:"duration_ms"`
}

// WriteResult reports one spreadsheet write operation.
type WriteResult struct {
	Success      bool   `json:"success"`
	RowsAffected int    `json:"rows_affected,omitempty"`
	Error        string `json:"error,omitempty"`
	DurationMs   int64  `json:"duration_ms"`
}

// TargetSyncResult reports the publish of one target.
type TargetSyncResult struct {
	TargetID      int64  `json:"target_id"`
	SpreadsheetID string `json:"spreadsheet_id"`
	SheetName     string `json:"sheet_name"`
	Success       bool   `json:"success"`
	RowsWritten   int    `json:"rows_written"`
	Error         string `json:"error,omitempty"`
	DurationMs    int64  `json:"duration_ms"`
}

// SyncResult reports one publish run across all active targets.
type SyncResult struct {
	Success          bool               `json:"success"`
	Date             string             `json:"date"`
	TotalTargets     int                `json:"total_targets"`
	SuccessfulSyncs  int                `json:"successful_syncs"`
	FailedSyncs      int                `json:"failed_syncs"`
	TotalRowsWritten int                `json:"total_rows_written"`
	Errors           []string           `json:"errors"`
	PerTargetResults []TargetSyncResult `json:"per_target_results"`
	DurationMs       int64              `json:"duration_ms"`
}

// CycleSummary is the outcome of one reconcile-then-publish cycle.
type CycleSummary struct {
	CorrelationID string               `json:"correlation_id"`
	Trigger       string               `json:"trigger"`
	Date          string               `json:"date"`
	StartedAt     time.Time            `json:"started_at"`
	FinishedAt    time.Time            `json:"finished_at"`
	Reconcile     ReconciliationResult `json:"reconcile"`
	Publish       *SyncResult          `json:"publish,omitempty"`
	Error         string               `json:"error,omitempty"`
	ErrorKind     string               `json:"error_kind,omitempty"`
}

// Success reports whether both stages succeeded.
func (c *CycleSummary) Success() bool {
	return c.Error == "" && c.Reconcile.Success && c.Publish != nil && c.Publish.Success
}

// Since returns the elapsed milliseconds since start.
func Since(start time.Time) int64 {
	return time.Since(start).Milliseconds()
}
