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

	"github.com/tomtom215/tariffsync/internal/models"
)

// Stats is a small snapshot of store contents for status output.
type Stats struct {
	Locations      int64  `json:"locations"`
	Tariffs        int64  `json:"tariffs"`
	LatestDate     string `json:"latest_date,omitempty"`
	PublishTargets int64  `json:"publish_targets"`
}

// ListLocations returns every warehouse ordered by name.
func (s *Store) ListLocations(ctx context.Context) ([]models.Location, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT id, name, geo_name, created_at, updated_at FROM warehouses ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query warehouses: %w", err)
	}
	defer closeQuietly(rows)

	var locations []models.Location
	for rows.Next() {
		loc, err := scanLocation(rows)
		if err != nil {
			return nil, err
		}
		locations = append(locations, *loc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate warehouses: %w", err)
	}
	return locations, nil
}

// GetLocationByName returns ErrNotFound when no warehouse has that name.
func (s *Store) GetLocationByName(ctx context.Context, name string) (*models.Location, error) {
	row := s.conn.QueryRowContext(ctx,
		`SELECT id, name, geo_name, created_at, updated_at FROM warehouses WHERE name = $1`, name)
	loc, err := scanLocation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return loc, err
}

// ListTariffsByDate returns the tariff rows recorded for one calendar day.
func (s *Store) ListTariffsByDate(ctx context.Context, date string) ([]models.TariffRecord, error) {
	rows, err := s.conn.QueryContext(ctx, `
		SELECT id, warehouse_id, tariff_date,
			box_delivery_base, box_delivery_liter, box_delivery_coef_expr,
			box_delivery_marketplace_base, box_delivery_marketplace_liter, box_delivery_marketplace_coef_expr,
			box_storage_base, box_storage_liter, box_storage_coef_expr,
			dt_next_box, dt_till_max, sort_coefficient, created_at, updated_at
		FROM tariffs
		WHERE tariff_date = CAST($1 AS DATE)
		ORDER BY warehouse_id`, date)
	if err != nil {
		return nil, fmt.Errorf("failed to query tariffs for %s: %w", date, err)
	}
	defer closeQuietly(rows)

	var records []models.TariffRecord
	for rows.Next() {
		var (
			rec       models.TariffRecord
			rates     [9]sql.NullFloat64
			nextBox   sql.NullString
			tillMax   sql.NullTime
			sortCoeff sql.NullFloat64
		)
		if err := rows.Scan(&rec.ID, &rec.LocationID, &rec.Date,
			&rates[0], &rates[1], &rates[2],
			&rates[3], &rates[4], &rates[5],
			&rates[6], &rates[7], &rates[8],
			&nextBox, &tillMax, &sortCoeff, &rec.CreatedAt, &rec.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan tariff: %w", err)
		}
		rec.Rates = models.Rates{
			DeliveryBase:        nullFloat(rates[0]),
			DeliveryLiter:       nullFloat(rates[1]),
			DeliveryCoefExpr:    nullFloat(rates[2]),
			MarketplaceBase:     nullFloat(rates[3]),
			MarketplaceLiter:    nullFloat(rates[4]),
			MarketplaceCoefExpr: nullFloat(rates[5]),
			StorageBase:         nullFloat(rates[6]),
			StorageLiter:        nullFloat(rates[7]),
			StorageCoefExpr:     nullFloat(rates[8]),
		}
		rec.DtNextBox = nullString(nextBox)
		if tillMax.Valid {
			t := tillMax.Time
			rec.DtTillMax = &t
		}
		rec.SortCoefficient = nullFloat(sortCoeff)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tariffs: %w", err)
	}
	return records, nil
}

// LatestTariffDate returns the most recent tariff_date, or "" for an empty store.
func (s *Store) LatestTariffDate(ctx context.Context) (string, error) {
	var latest sql.NullTime
	if err := s.conn.QueryRowContext(ctx, `SELECT MAX(tariff_date) FROM tariffs`).Scan(&latest); err != nil {
		return "", fmt.Errorf("failed to query latest tariff date: %w", err)
	}
	if !latest.Valid {
		return "", nil
	}
	return latest.Time.Format(models.DateLayout), nil
}

// Stats counts rows in each table.
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	var st Stats
	err := s.conn.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM warehouses),
			(SELECT COUNT(*) FROM tariffs),
			(SELECT COUNT(*) FROM google_sheets)`).Scan(&st.Locations, &st.Tariffs, &st.PublishTargets)
	if err != nil {
		return nil, fmt.Errorf("failed to count rows: %w", err)
	}
	if st.LatestDate, err = s.LatestTariffDate(ctx); err != nil {
		return nil, err
	}
	return &st, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLocation(row rowScanner) (*models.Location, error) {
	var (
		loc models.Location
		geo sql.NullString
	)
	if err := row.Scan(&loc.ID, &loc.Name, &geo, &loc.CreatedAt, &loc.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan warehouse: %w", err)
	}
	loc.GeoName = nullString(geo)
	return &loc, nil
}

func nullFloat(n sql.NullFloat64) *float64 {
	if !n.Valid {
		return nil
	}
	v := n.Float64
	return &v
}

func nullString(n sql.NullString) *string {
	if !n.Valid {
		return nil
	}
	v := n.String
	return &v
}
