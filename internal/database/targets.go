// Tariffsync - Marketplace Tariff Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tariffsync

package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/tomtom215/tariffsync/internal/logging"
	"github.com/tomtom215/tariffsync/internal/models"
)

const selectTargetsSQL = `
SELECT id, spreadsheet_id, sheet_name, description, is_active,
	last_synced_at, credential_ref, created_at, updated_at
FROM google_sheets`

// ListPublishTargets returns all targets, active or not.
func (s *Store) ListPublishTargets(ctx context.Context) ([]models.PublishTarget, error) {
	return s.queryTargets(ctx, selectTargetsSQL+` ORDER BY id`)
}

// ListActivePublishTargets returns the targets a publish cycle writes to.
func (s *Store) ListActivePublishTargets(ctx context.Context) ([]models.PublishTarget, error) {
	return s.queryTargets(ctx, selectTargetsSQL+` WHERE is_active = TRUE ORDER BY id`)
}

// EnsurePublishTargets seeds one active target per spreadsheet id. Existing
// (spreadsheet_id, sheet_name) pairs are left untouched, including their
// is_active flag. It returns how many rows were inserted.
func (s *Store) EnsurePublishTargets(ctx context.Context, ids []string, sheetName string) (int, error) {
	inserted := 0
	now := s.now()
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		res, err := s.conn.ExecContext(ctx, `
			INSERT INTO google_sheets (spreadsheet_id, sheet_name, is_active, created_at, updated_at)
			VALUES ($1, $2, TRUE, $3, $3)
			ON CONFLICT (spreadsheet_id, sheet_name) DO NOTHING`, id, sheetName, now)
		if err != nil {
			return inserted, fmt.Errorf("failed to seed publish target %s: %w", id, err)
		}
		if n, err := res.RowsAffected(); err == nil && n > 0 {
			inserted += int(n)
			logging.Info().Str("spreadsheet_id", id).Str("sheet_name", sheetName).Msg("Publish target registered")
		}
	}
	return inserted, nil
}

// SetPublishTargetActive enables or disables a target by id.
func (s *Store) SetPublishTargetActive(ctx context.Context, id int64, active bool) error {
	res, err := s.conn.ExecContext(ctx,
		`UPDATE google_sheets SET is_active = $1, updated_at = $2 WHERE id = $3`, active, s.now(), id)
	return expectOneRow(res, err, "update publish target", id)
}

// MarkPublishTargetSynced records a verified successful write.
func (s *Store) MarkPublishTargetSynced(ctx context.Context, id int64, at time.Time) error {
	at = at.UTC().Truncate(time.Microsecond)
	res, err := s.conn.ExecContext(ctx,
		`UPDATE google_sheets SET last_synced_at = $1, updated_at = $2 WHERE id = $3`, at, s.now(), id)
	return expectOneRow(res, err, "mark publish target synced", id)
}

func (s *Store) queryTargets(ctx context.Context, query string) ([]models.PublishTarget, error) {
	rows, err := s.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query publish targets: %w", err)
	}
	defer closeQuietly(rows)

	var targets []models.PublishTarget
	for rows.Next() {
		var (
			t          models.PublishTarget
			desc, cred sql.NullString
			synced     sql.NullTime
		)
		if err := rows.Scan(&t.ID, &t.SpreadsheetID, &t.SheetName, &desc, &t.IsActive,
			&synced, &cred, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan publish target: %w", err)
		}
		t.Description = nullString(desc)
		t.CredentialRef = nullString(cred)
		if synced.Valid {
			ts := synced.Time
			t.LastSyncedAt = &ts
		}
		targets = append(targets, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate publish targets: %w", err)
	}
	return targets, nil
}

func expectOneRow(res sql.Result, err error, op string, id int64) error {
	if err != nil {
		return fmt.Errorf("failed to %s %d: %w", op, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to %s %d: %w", op, id, err)
	}
	if n == 0 {
		return fmt.Errorf("publish target %d: %w", id, ErrNotFound)
	}
	return nil
}
