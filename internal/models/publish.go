// Tariffsync - Marketplace Tariff Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tariffsync

package models

import "time"

// PublishTarget is a spreadsheet document plus the named sheet inside it that
// receives the published tariff table. (SpreadsheetID, SheetName) is unique.
type PublishTarget struct {
	ID            int64      `json:"id"`
	SpreadsheetID string     `json:"spreadsheet_id"`
	SheetName     string     `json:"sheet_name"`
	Description   *string    `json:"description,omitempty"`
	IsActive      bool       `json:"is_active"`
	LastSyncedAt  *time.Time `json:"last_synced_at,omitempty"`
	CredentialRef *string    `json:"credential_ref,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}
