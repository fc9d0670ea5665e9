// Tariffsync - Marketplace Tariff Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tariffsync

//go:build integration

package database

import (
	"context"
	"testing"
	"time"

	"github.com/tomtom215/tariffsync/internal/config"
	"github.com/tomtom215/tariffsync/internal/models"
	"github.com/tomtom215/tariffsync/internal/testinfra"
)

func setupPostgresStore(t *testing.T) *Store {
	t.Helper()
	dsn := testinfra.StartPostgres(t)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	store, err := Open(ctx, config.DatabaseConfig{
		Driver:       "pgx",
		URL:          dsn,
		MaxOpenConns: 4,
		AutoMigrate:  true,
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { closeQuietly(store) })
	return store
}

func TestPostgresSavepointKeepsTransactionUsable(t *testing.T) {
	store := setupPostgresStore(t)
	ctx := context.Background()

	var failed int
	err := store.WithinTx(ctx, func(scope UpsertScope) (bool, error) {
		// No warehouse 999999: the foreign key rejects this statement.
		if _, err := scope.UpsertTariff(ctx, &models.TariffRecord{
			LocationID: 999999,
			Date:       time.Date(2025, 11, 12, 0, 0, 0, 0, time.UTC),
		}); err != nil {
			failed++
		}

		id, err := scope.UpsertLocation(ctx, "Koledino", nil)
		if err != nil {
			return false, err
		}
		_, err = scope.UpsertTariff(ctx, &models.TariffRecord{
			LocationID: id,
			Date:       time.Date(2025, 11, 12, 0, 0, 0, 0, time.UTC),
			Rates:      models.Rates{DeliveryBase: ptr(46.0)},
		})
		return err == nil, err
	})
	if err != nil {
		t.Fatalf("WithinTx: %v", err)
	}
	if failed != 1 {
		t.Fatalf("failed = %d, want the orphan tariff to fail", failed)
	}

	records, err := store.ListTariffsByDate(ctx, "2025-11-12")
	if err != nil || len(records) != 1 {
		t.Errorf("ListTariffsByDate = %v, %v; want 1 row", records, err)
	}
}

func TestPostgresUpsertIsIdempotent(t *testing.T) {
	store := setupPostgresStore(t)
	ctx := context.Background()

	write := func(base float64) {
		t.Helper()
		err := store.WithinTx(ctx, func(scope UpsertScope) (bool, error) {
			id, err := scope.UpsertLocation(ctx, "Tula", ptr("Центральный"))
			if err != nil {
				return false, err
			}
			_, err = scope.UpsertTariff(ctx, &models.TariffRecord{
				LocationID: id,
				Date:       time.Date(2025, 11, 12, 0, 0, 0, 0, time.UTC),
				Rates:      models.Rates{DeliveryBase: &base},
			})
			return err == nil, err
		})
		if err != nil {
			t.Fatalf("WithinTx: %v", err)
		}
	}

	write(46)
	first, _ := store.ListTariffsByDate(ctx, "2025-11-12")
	time.Sleep(10 * time.Millisecond)
	write(50)
	second, _ := store.ListTariffsByDate(ctx, "2025-11-12")

	if len(first) != 1 || len(second) != 1 {
		t.Fatalf("rows = %d then %d, want 1 and 1", len(first), len(second))
	}
	if !second[0].CreatedAt.Equal(first[0].CreatedAt) {
		t.Errorf("created_at moved")
	}
	if !second[0].UpdatedAt.After(first[0].UpdatedAt) {
		t.Errorf("updated_at did not advance")
	}
	if *second[0].DeliveryBase != 50 {
		t.Errorf("DeliveryBase = %v, want 50", *second[0].DeliveryBase)
	}

	n, err := store.EnsurePublishTargets(ctx, []string{"sheet-a"}, "stocks_coefs")
	if err != nil || n != 1 {
		t.Errorf("EnsurePublishTargets = %d, %v", n, err)
	}
}
