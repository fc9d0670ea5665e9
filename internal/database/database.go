// Tariffsync - Marketplace Tariff Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tariffsync

package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/tomtom215/tariffsync/internal/config"
	"github.com/tomtom215/tariffsync/internal/logging"
)

// Dialect names the SQL flavor behind a Store. Values match database/sql driver names.
type Dialect string

const (
	DialectPostgres Dialect = "pgx"
	DialectDuckDB   Dialect = "duckdb"
)

// Store is the reconciliation store.
type Store struct {
	conn    *sql.DB
	dialect Dialect
	now     func() time.Time
}

// Open connects using cfg and, when cfg.AutoMigrate is set, creates the schema.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*Store, error) {
	dialect := Dialect(cfg.Driver)
	dsn := cfg.URL

	switch dialect {
	case DialectDuckDB:
		if dsn != "" && dsn != ":memory:" {
			if dir := filepath.Dir(dsn); dir != "" && dir != "." {
				if err := os.MkdirAll(dir, 0o750); err != nil {
					return nil, fmt.Errorf("failed to create database directory %s: %w", dir, err)
				}
			}
		}
		if dsn == ":memory:" {
			dsn = ""
		}
	case DialectPostgres:
		if dsn == "" {
			return nil, fmt.Errorf("database url is required for driver %q", cfg.Driver)
		}
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	conn, err := sql.Open(string(dialect), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		conn.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	conn.SetConnMaxIdleTime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := conn.PingContext(pingCtx); err != nil {
		closeQuietly(conn)
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	store := NewStore(conn, dialect)
	if cfg.AutoMigrate {
		if err := store.EnsureSchema(ctx); err != nil {
			closeQuietly(conn)
			return nil, err
		}
	}

	logging.Info().
		Str("driver", string(dialect)).
		Str("dsn", redactDSN(dsn)).
		Bool("auto_migrate", cfg.AutoMigrate).
		Msg("Database connected")
	return store, nil
}

// NewStore wraps an existing connection pool.
func NewStore(conn *sql.DB, dialect Dialect) *Store {
	return &Store{
		conn:    conn,
		dialect: dialect,
		now:     func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
	}
}

// Dialect reports the SQL flavor in use.
func (s *Store) Dialect() Dialect { return s.dialect }

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error { return s.conn.PingContext(ctx) }

// Close releases the pool.
func (s *Store) Close() error { return s.conn.Close() }

// redactDSN hides the password in a postgres URL for logging.
func redactDSN(dsn string) string {
	if dsn == "" {
		return "(in-memory)"
	}
	at := strings.LastIndex(dsn, "@")
	scheme := strings.Index(dsn, "://")
	if at < 0 || scheme < 0 || at < scheme {
		return dsn
	}
	creds := dsn[scheme+3 : at]
	if colon := strings.Index(creds, ":"); colon >= 0 {
		return dsn[:scheme+3] + creds[:colon] + ":" + logging.RedactSecret(creds[colon+1:]) + dsn[at:]
	}
	return dsn
}
