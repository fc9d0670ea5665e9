// Tariffsync - Marketplace Tariff Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tariffsync

package database

import (
	"context"
	"fmt"

	"github.com/tomtom215/tariffsync/internal/logging"
)

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS warehouses (
		id         BIGSERIAL PRIMARY KEY,
		name       TEXT NOT NULL UNIQUE,
		geo_name   TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS tariffs (
		id                           BIGSERIAL PRIMARY KEY,
		warehouse_id                 BIGINT NOT NULL REFERENCES warehouses(id) ON DELETE CASCADE,
		tariff_date                  DATE NOT NULL,
		box_delivery_base            DOUBLE PRECISION,
		box_delivery_liter           DOUBLE PRECISION,
		box_delivery_coef_expr       DOUBLE PRECISION,
		box_delivery_marketplace_base      DOUBLE PRECISION,
		box_delivery_marketplace_liter     DOUBLE PRECISION,
		box_delivery_marketplace_coef_expr DOUBLE PRECISION,
		box_storage_base             DOUBLE PRECISION,
		box_storage_liter            DOUBLE PRECISION,
		box_storage_coef_expr        DOUBLE PRECISION,
		dt_next_box                  TEXT,
		dt_till_max                  DATE,
		sort_coefficient             DOUBLE PRECISION,
		created_at                   TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at                   TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (warehouse_id, tariff_date)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_tariffs_date ON tariffs (tariff_date)`,
	`CREATE INDEX IF NOT EXISTS idx_tariffs_date_coef ON tariffs (tariff_date, sort_coefficient)`,
	`CREATE TABLE IF NOT EXISTS google_sheets (
		id             BIGSERIAL PRIMARY KEY,
		spreadsheet_id TEXT NOT NULL,
		sheet_name     TEXT NOT NULL DEFAULT 'stocks_coefs',
		description    TEXT,
		is_active      BOOLEAN NOT NULL DEFAULT TRUE,
		last_synced_at TIMESTAMPTZ,
		credential_ref TEXT,
		created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (spreadsheet_id, sheet_name)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_google_sheets_active ON google_sheets (is_active)`,
}

// DuckDB has no SERIAL; ids come from sequences. Foreign keys are left out
// because DuckDB rejects ON CONFLICT updates on rows referenced by one.
var duckdbSchema = []string{
	`CREATE SEQUENCE IF NOT EXISTS warehouses_id_seq START 1`,
	`CREATE SEQUENCE IF NOT EXISTS tariffs_id_seq START 1`,
	`CREATE SEQUENCE IF NOT EXISTS google_sheets_id_seq START 1`,
	`CREATE TABLE IF NOT EXISTS warehouses (
		id         BIGINT PRIMARY KEY DEFAULT nextval('warehouses_id_seq'),
		name       VARCHAR NOT NULL UNIQUE,
		geo_name   VARCHAR,
		created_at TIMESTAMP NOT NULL DEFAULT current_timestamp,
		updated_at TIMESTAMP NOT NULL DEFAULT current_timestamp
	)`,
	`CREATE TABLE IF NOT EXISTS tariffs (
		id                           BIGINT PRIMARY KEY DEFAULT nextval('tariffs_id_seq'),
		warehouse_id                 BIGINT NOT NULL,
		tariff_date                  DATE NOT NULL,
		box_delivery_base            DOUBLE,
		box_delivery_liter           DOUBLE,
		box_delivery_coef_expr       DOUBLE,
		box_delivery_marketplace_base      DOUBLE,
		box_delivery_marketplace_liter     DOUBLE,
		box_delivery_marketplace_coef_expr DOUBLE,
		box_storage_base             DOUBLE,
		box_storage_liter            DOUBLE,
		box_storage_coef_expr        DOUBLE,
		dt_next_box                  VARCHAR,
		dt_till_max                  DATE,
		sort_coefficient             DOUBLE,
		created_at                   TIMESTAMP NOT NULL DEFAULT current_timestamp,
		updated_at                   TIMESTAMP NOT NULL DEFAULT current_timestamp,
		UNIQUE (warehouse_id, tariff_date)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_tariffs_date ON tariffs (tariff_date)`,
	`CREATE TABLE IF NOT EXISTS google_sheets (
		id             BIGINT PRIMARY KEY DEFAULT nextval('google_sheets_id_seq'),
		spreadsheet_id VARCHAR NOT NULL,
		sheet_name     VARCHAR NOT NULL DEFAULT 'stocks_coefs',
		description    VARCHAR,
		is_active      BOOLEAN NOT NULL DEFAULT TRUE,
		last_synced_at TIMESTAMP,
		credential_ref VARCHAR,
		created_at     TIMESTAMP NOT NULL DEFAULT current_timestamp,
		updated_at     TIMESTAMP NOT NULL DEFAULT current_timestamp,
		UNIQUE (spreadsheet_id, sheet_name)
	)`,
}

// EnsureSchema creates tables, sequences and indexes that do not exist yet.
// It is safe to run on every start.
func (s *Store) EnsureSchema(ctx context.Context) error {
	stmts := postgresSchema
	if s.dialect == DialectDuckDB {
		stmts = duckdbSchema
	}
	for i, stmt := range stmts {
		if _, err := s.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema statement %d: %w", i+1, err)
		}
	}
	logging.Debug().Str("dialect", string(s.dialect)).Int("statements", len(stmts)).Msg("Schema ensured")
	return nil
}
