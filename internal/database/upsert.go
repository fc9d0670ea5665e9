// Tariffsync - Marketplace Tariff Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tariffsync

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/tomtom215/tariffsync/internal/logging"
	"github.com/tomtom215/tariffsync/internal/models"
)

// UpsertScope is the write surface available inside WithinTx.
type UpsertScope interface {
	// UpsertLocation inserts or refreshes a warehouse by name and returns its id.
	UpsertLocation(ctx context.Context, name string, geoName *string) (int64, error)
	// UpsertTariff inserts or replaces the tariff row for (LocationID, Date).
	UpsertTariff(ctx context.Context, rec *models.TariffRecord) (int64, error)
}

// WithinTx runs fn inside one transaction. The transaction commits only when
// fn returns (true, nil); any error or a false commit flag rolls it back.
func (s *Store) WithinTx(ctx context.Context, fn func(UpsertScope) (bool, error)) (err error) {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	done := false
	defer func() {
		if done {
			return
		}
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			logging.Error().Err(rbErr).AnErr("original_error", err).Msg("Transaction rollback failed")
		}
	}()

	scope := &txScope{tx: tx, dialect: s.dialect, now: s.now}
	commit, err := fn(scope)
	if err != nil {
		return err
	}
	if !commit {
		return nil
	}
	if scope.aborted {
		return ErrTxAborted
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	done = true
	return nil
}

type txScope struct {
	tx      *sql.Tx
	dialect Dialect
	now     func() time.Time
	aborted bool
}

const upsertLocationSQL = `
INSERT INTO warehouses (name, geo_name, created_at, updated_at)
VALUES ($1, $2, $3, $3)
ON CONFLICT (name) DO UPDATE SET
	geo_name   = EXCLUDED.geo_name,
	updated_at = EXCLUDED.updated_at
RETURNING id`

const upsertTariffSQL = `
INSERT INTO tariffs (
	warehouse_id, tariff_date,
	box_delivery_base, box_delivery_liter, box_delivery_coef_expr,
	box_delivery_marketplace_base, box_delivery_marketplace_liter, box_delivery_marketplace_coef_expr,
	box_storage_base, box_storage_liter, box_storage_coef_expr,
	dt_next_box, dt_till_max, sort_coefficient,
	created_at, updated_at
) VALUES (
	$1, CAST($2 AS DATE),
	$3, $4, $5,
	$6, $7, $8,
	$9, $10, $11,
	$12, CAST($13 AS DATE), $14,
	$15, $15
)
ON CONFLICT (warehouse_id, tariff_date) DO UPDATE SET
	box_delivery_base                  = EXCLUDED.box_delivery_base,
	box_delivery_liter                 = EXCLUDED.box_delivery_liter,
	box_delivery_coef_expr             = EXCLUDED.box_delivery_coef_expr,
	box_delivery_marketplace_base      = EXCLUDED.box_delivery_marketplace_base,
	box_delivery_marketplace_liter     = EXCLUDED.box_delivery_marketplace_liter,
	box_delivery_marketplace_coef_expr = EXCLUDED.box_delivery_marketplace_coef_expr,
	box_storage_base                   = EXCLUDED.box_storage_base,
	box_storage_liter                  = EXCLUDED.box_storage_liter,
	box_storage_coef_expr              = EXCLUDED.box_storage_coef_expr,
	dt_next_box                        = EXCLUDED.dt_next_box,
	dt_till_max                        = EXCLUDED.dt_till_max,
	sort_coefficient                   = EXCLUDED.sort_coefficient,
	updated_at                         = EXCLUDED.updated_at
RETURNING id`

func (sc *txScope) UpsertLocation(ctx context.Context, name string, geoName *string) (int64, error) {
	if name == "" {
		return 0, errors.New("warehouse name is required")
	}
	var id int64
	err := sc.guarded(ctx, func() error {
		return sc.tx.QueryRowContext(ctx, upsertLocationSQL, name, geoName, sc.now()).Scan(&id)
	})
	if err != nil {
		return 0, fmt.Errorf("upsert warehouse %q: %w", name, err)
	}
	return id, nil
}

func (sc *txScope) UpsertTariff(ctx context.Context, rec *models.TariffRecord) (int64, error) {
	if rec == nil || rec.LocationID == 0 || rec.Date.IsZero() {
		return 0, errors.New("tariff record needs a location id and a date")
	}

	var tillMax *string
	if rec.DtTillMax != nil {
		s := rec.DtTillMax.Format(models.DateLayout)
		tillMax = &s
	}

	var id int64
	err := sc.guarded(ctx, func() error {
		return sc.tx.QueryRowContext(ctx, upsertTariffSQL,
			rec.LocationID, rec.DateString(),
			rec.DeliveryBase, rec.DeliveryLiter, rec.DeliveryCoefExpr,
			rec.MarketplaceBase, rec.MarketplaceLiter, rec.MarketplaceCoefExpr,
			rec.StorageBase, rec.StorageLiter, rec.StorageCoefExpr,
			rec.DtNextBox, tillMax, rec.SortCoefficient,
			sc.now(),
		).Scan(&id)
	})
	if err != nil {
		return 0, fmt.Errorf("upsert tariff for warehouse %d on %s: %w", rec.LocationID, rec.DateString(), err)
	}
	return id, nil
}

// guarded runs one statement so that its failure does not poison the
// transaction. PostgreSQL gets a savepoint; DuckDB cannot, so the scope is
// marked aborted instead.
func (sc *txScope) guarded(ctx context.Context, stmt func() error) error {
	if sc.aborted {
		return ErrTxAborted
	}
	if sc.dialect != DialectPostgres {
		if err := stmt(); err != nil {
			sc.aborted = true
			return err
		}
		return nil
	}

	if _, err := sc.tx.ExecContext(ctx, "SAVEPOINT upsert_entry"); err != nil {
		sc.aborted = true
		return fmt.Errorf("savepoint: %w", err)
	}
	if err := stmt(); err != nil {
		if _, rbErr := sc.tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT upsert_entry"); rbErr != nil {
			sc.aborted = true
			return errors.Join(err, fmt.Errorf("rollback to savepoint: %w", rbErr))
		}
		return err
	}
	if _, err := sc.tx.ExecContext(ctx, "RELEASE SAVEPOINT upsert_entry"); err != nil {
		sc.aborted = true
		return fmt.Errorf("release savepoint: %w", err)
	}
	return nil
}
