// Tariffsync - Marketplace Tariff Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tariffsync

package database

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/tomtom215/tariffsync/internal/config"
	"github.com/tomtom215/tariffsync/internal/models"
)

// testDBSemaphore serializes DuckDB instances to keep test memory bounded.
var testDBSemaphore = make(chan struct{}, 1)

// fakeClock hands out strictly increasing timestamps.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

func setupTestStore(t *testing.T) (*Store, *fakeClock) {
	t.Helper()

	testDBSemaphore <- struct{}{}

	conn, err := sql.Open("duckdb", "")
	if err != nil {
		<-testDBSemaphore
		t.Fatalf("failed to open duckdb: %v", err)
	}
	t.Cleanup(func() {
		closeQuietly(conn)
		<-testDBSemaphore
	})

	store := NewStore(conn, DialectDuckDB)
	clock := &fakeClock{now: time.Date(2025, 11, 12, 9, 0, 0, 0, time.UTC)}
	store.now = clock.Now

	if err := store.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}
	return store, clock
}

func ptr[T any](v T) *T { return &v }

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse(models.DateLayout, s)
	if err != nil {
		t.Fatalf("bad date %q: %v", s, err)
	}
	return d
}

// upsertOne writes one warehouse and its tariff in a committed transaction.
func upsertOne(t *testing.T, store *Store, name, date string, rates models.Rates) (locID, tariffID int64) {
	t.Helper()
	err := store.WithinTx(context.Background(), func(scope UpsertScope) (bool, error) {
		var err error
		locID, err = scope.UpsertLocation(context.Background(), name, ptr("Центральный"))
		if err != nil {
			return false, err
		}
		tariffID, err = scope.UpsertTariff(context.Background(), &models.TariffRecord{
			LocationID:      locID,
			Date:            mustDate(t, date),
			Rates:           rates,
			SortCoefficient: rates.SortCoefficient(),
		})
		return err == nil, err
	})
	if err != nil {
		t.Fatalf("WithinTx: %v", err)
	}
	return locID, tariffID
}

func TestEnsureSchemaIsRepeatable(t *testing.T) {
	store, _ := setupTestStore(t)
	if err := store.EnsureSchema(context.Background()); err != nil {
		t.Errorf("second EnsureSchema: %v", err)
	}
}

func TestUpsertIsIdempotent(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()

	locID1, tariffID1 := upsertOne(t, store, "Koledino", "2025-11-12", models.Rates{DeliveryBase: ptr(46.0)})
	first, err := store.ListTariffsByDate(ctx, "2025-11-12")
	if err != nil || len(first) != 1 {
		t.Fatalf("ListTariffsByDate = %v, %v", first, err)
	}

	locID2, tariffID2 := upsertOne(t, store, "Koledino", "2025-11-12", models.Rates{DeliveryBase: ptr(50.0)})
	if locID1 != locID2 || tariffID1 != tariffID2 {
		t.Errorf("ids changed on second upsert: loc %d->%d tariff %d->%d", locID1, locID2, tariffID1, tariffID2)
	}

	second, err := store.ListTariffsByDate(ctx, "2025-11-12")
	if err != nil || len(second) != 1 {
		t.Fatalf("ListTariffsByDate after second upsert = %v, %v", second, err)
	}
	got := second[0]
	if got.DeliveryBase == nil || *got.DeliveryBase != 50 {
		t.Errorf("DeliveryBase = %v, want 50", got.DeliveryBase)
	}
	if !got.CreatedAt.Equal(first[0].CreatedAt) {
		t.Errorf("created_at moved: %v -> %v", first[0].CreatedAt, got.CreatedAt)
	}
	if !got.UpdatedAt.After(first[0].UpdatedAt) {
		t.Errorf("updated_at did not advance: %v -> %v", first[0].UpdatedAt, got.UpdatedAt)
	}

	locations, err := store.ListLocations(ctx)
	if err != nil {
		t.Fatalf("ListLocations: %v", err)
	}
	if len(locations) != 1 {
		t.Errorf("locations = %d, want 1", len(locations))
	}
}

func TestTariffRoundTripKeepsNulls(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()

	err := store.WithinTx(ctx, func(scope UpsertScope) (bool, error) {
		id, err := scope.UpsertLocation(ctx, "Tula", nil)
		if err != nil {
			return false, err
		}
		_, err = scope.UpsertTariff(ctx, &models.TariffRecord{
			LocationID: id,
			Date:       mustDate(t, "2025-11-12"),
			Rates: models.Rates{
				DeliveryBase:     ptr(46.0),
				DeliveryLiter:    ptr(11.2),
				MarketplaceBase:  nil,
				StorageCoefExpr:  ptr(0.07),
				MarketplaceLiter: nil,
			},
			DtNextBox:       ptr("2025-11-13"),
			DtTillMax:       ptr(mustDate(t, "2025-11-30")),
			SortCoefficient: ptr(18.4),
		})
		return err == nil, err
	})
	if err != nil {
		t.Fatalf("WithinTx: %v", err)
	}

	records, err := store.ListTariffsByDate(ctx, "2025-11-12")
	if err != nil || len(records) != 1 {
		t.Fatalf("ListTariffsByDate = %v, %v", records, err)
	}
	rec := records[0]
	if rec.DateString() != "2025-11-12" {
		t.Errorf("date = %s", rec.DateString())
	}
	if rec.MarketplaceBase != nil || rec.MarketplaceLiter != nil {
		t.Errorf("nil rates came back non-nil: %v %v", rec.MarketplaceBase, rec.MarketplaceLiter)
	}
	if rec.StorageCoefExpr == nil || *rec.StorageCoefExpr != 0.07 {
		t.Errorf("StorageCoefExpr = %v", rec.StorageCoefExpr)
	}
	if rec.DtTillMax == nil || rec.DtTillMax.Format(models.DateLayout) != "2025-11-30" {
		t.Errorf("DtTillMax = %v", rec.DtTillMax)
	}
	if rec.DtNextBox == nil || *rec.DtNextBox != "2025-11-13" {
		t.Errorf("DtNextBox = %v", rec.DtNextBox)
	}

	loc, err := store.GetLocationByName(ctx, "Tula")
	if err != nil {
		t.Fatalf("GetLocationByName: %v", err)
	}
	if loc.GeoName != nil {
		t.Errorf("GeoName = %v, want nil", *loc.GeoName)
	}
	if _, err := store.GetLocationByName(ctx, "Nowhere"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetLocationByName(missing) err = %v, want ErrNotFound", err)
	}
}

func TestWithinTxRollsBack(t *testing.T) {
	tests := []struct {
		name    string
		commit  bool
		fnErr   error
		wantErr bool
	}{
		{name: "commit flag false", commit: false},
		{name: "callback error", commit: true, fnErr: errors.New("boom"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, _ := setupTestStore(t)
			ctx := context.Background()

			err := store.WithinTx(ctx, func(scope UpsertScope) (bool, error) {
				if _, err := scope.UpsertLocation(ctx, "Koledino", nil); err != nil {
					t.Fatalf("UpsertLocation: %v", err)
				}
				return tt.commit, tt.fnErr
			})
			if (err != nil) != tt.wantErr {
				t.Fatalf("WithinTx err = %v, wantErr %v", err, tt.wantErr)
			}

			locations, err := store.ListLocations(ctx)
			if err != nil {
				t.Fatalf("ListLocations: %v", err)
			}
			if len(locations) != 0 {
				t.Errorf("locations = %d, want 0 after rollback", len(locations))
			}
		})
	}
}

func TestWithinTxCommitsSurvivingEntries(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()

	var failures int
	err := store.WithinTx(ctx, func(scope UpsertScope) (bool, error) {
		succeeded := 0
		for _, name := range []string{"Koledino", "", "Tula"} {
			if _, err := scope.UpsertLocation(ctx, name, nil); err != nil {
				failures++
				continue
			}
			succeeded++
		}
		return succeeded > 0, nil
	})
	if err != nil {
		t.Fatalf("WithinTx: %v", err)
	}
	if failures != 1 {
		t.Errorf("failures = %d, want 1", failures)
	}
	locations, _ := store.ListLocations(ctx)
	if len(locations) != 2 {
		t.Errorf("locations = %d, want 2", len(locations))
	}
}

func TestDuckDBScopeRefusesWritesAfterFailedStatement(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()

	err := store.WithinTx(ctx, func(scope UpsertScope) (bool, error) {
		sc := scope.(*txScope)
		stmtErr := errors.New("constraint violated")
		if err := sc.guarded(ctx, func() error { return stmtErr }); !errors.Is(err, stmtErr) {
			t.Errorf("guarded err = %v, want statement error", err)
		}
		if _, err := scope.UpsertLocation(ctx, "Koledino", nil); !errors.Is(err, ErrTxAborted) {
			t.Errorf("UpsertLocation after failure err = %v, want ErrTxAborted", err)
		}
		return true, nil
	})
	if !errors.Is(err, ErrTxAborted) {
		t.Errorf("WithinTx err = %v, want ErrTxAborted", err)
	}
}

func TestLatestTariffDateAndStats(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()

	latest, err := store.LatestTariffDate(ctx)
	if err != nil || latest != "" {
		t.Errorf("LatestTariffDate on empty store = %q, %v", latest, err)
	}

	upsertOne(t, store, "Koledino", "2025-11-11", models.Rates{})
	upsertOne(t, store, "Koledino", "2025-11-12", models.Rates{})

	latest, err = store.LatestTariffDate(ctx)
	if err != nil || latest != "2025-11-12" {
		t.Errorf("LatestTariffDate = %q, %v; want 2025-11-12", latest, err)
	}

	st, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if st.Locations != 1 || st.Tariffs != 2 || st.LatestDate != "2025-11-12" {
		t.Errorf("Stats = %+v", st)
	}
}

func TestPublishTargets(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()

	n, err := store.EnsurePublishTargets(ctx, []string{"sheet-a", " sheet-b ", ""}, "stocks_coefs")
	if err != nil || n != 2 {
		t.Fatalf("EnsurePublishTargets = %d, %v; want 2", n, err)
	}
	n, err = store.EnsurePublishTargets(ctx, []string{"sheet-a", "sheet-b"}, "stocks_coefs")
	if err != nil || n != 0 {
		t.Errorf("second EnsurePublishTargets = %d, %v; want 0", n, err)
	}

	all, err := store.ListPublishTargets(ctx)
	if err != nil || len(all) != 2 {
		t.Fatalf("ListPublishTargets = %v, %v", all, err)
	}
	if all[1].SpreadsheetID != "sheet-b" || !all[1].IsActive || all[1].LastSyncedAt != nil {
		t.Errorf("seeded target = %+v", all[1])
	}

	if err := store.SetPublishTargetActive(ctx, all[0].ID, false); err != nil {
		t.Fatalf("SetPublishTargetActive: %v", err)
	}
	active, err := store.ListActivePublishTargets(ctx)
	if err != nil || len(active) != 1 || active[0].SpreadsheetID != "sheet-b" {
		t.Errorf("ListActivePublishTargets = %v, %v", active, err)
	}

	// Re-seeding does not re-enable a disabled target.
	if _, err := store.EnsurePublishTargets(ctx, []string{"sheet-a"}, "stocks_coefs"); err != nil {
		t.Fatalf("EnsurePublishTargets: %v", err)
	}
	active, _ = store.ListActivePublishTargets(ctx)
	if len(active) != 1 {
		t.Errorf("active after re-seed = %d, want 1", len(active))
	}

	syncedAt := time.Date(2025, 11, 12, 10, 0, 0, 0, time.UTC)
	if err := store.MarkPublishTargetSynced(ctx, active[0].ID, syncedAt); err != nil {
		t.Fatalf("MarkPublishTargetSynced: %v", err)
	}
	active, _ = store.ListActivePublishTargets(ctx)
	if active[0].LastSyncedAt == nil || !active[0].LastSyncedAt.Equal(syncedAt) {
		t.Errorf("LastSyncedAt = %v, want %v", active[0].LastSyncedAt, syncedAt)
	}

	if err := store.SetPublishTargetActive(ctx, 9999, true); !errors.Is(err, ErrNotFound) {
		t.Errorf("SetPublishTargetActive(missing) err = %v, want ErrNotFound", err)
	}
	if err := store.MarkPublishTargetSynced(ctx, 9999, syncedAt); !errors.Is(err, ErrNotFound) {
		t.Errorf("MarkPublishTargetSynced(missing) err = %v, want ErrNotFound", err)
	}
}

func TestOpenDuckDBFile(t *testing.T) {
	testDBSemaphore <- struct{}{}
	defer func() { <-testDBSemaphore }()

	path := filepath.Join(t.TempDir(), "data", "tariffs.duckdb")
	store, err := Open(context.Background(), config.DatabaseConfig{
		Driver:       "duckdb",
		URL:          path,
		MaxOpenConns: 2,
		AutoMigrate:  true,
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()

	if store.Dialect() != DialectDuckDB {
		t.Errorf("Dialect = %s", store.Dialect())
	}
	if _, err := store.ListLocations(context.Background()); err != nil {
		t.Errorf("schema not applied: %v", err)
	}
}

func TestOpenRejectsBadConfig(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  config.DatabaseConfig
	}{
		{name: "unknown driver", cfg: config.DatabaseConfig{Driver: "sqlite"}},
		{name: "postgres without url", cfg: config.DatabaseConfig{Driver: "pgx"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if _, err := Open(context.Background(), tt.cfg); err == nil {
				t.Error("Open succeeded, want error")
			}
		})
	}
}

func TestRedactDSN(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in, want string
	}{
		{"", "(in-memory)"},
		{"./data/tariffs.duckdb", "./data/tariffs.duckdb"},
		{"postgres://app:short@db:5432/tariffs", "postgres://app:***@db:5432/tariffs"},
		{"postgres://app@db/tariffs", "postgres://app@db/tariffs"},
	}
	for _, tt := range tests {
		if got := redactDSN(tt.in); got != tt.want {
			t.Errorf("redactDSN(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
