// Tariffsync - Marketplace Tariff Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tariffsync

// Package database is the relational store behind tariffsync.
//
// Store runs the same SQL over two database/sql drivers:
//
//   - pgx (github.com/jackc/pgx/v5/stdlib) for PostgreSQL in production
//   - duckdb (github.com/duckdb/duckdb-go/v2) for local runs and tests
//
// Both understand $n placeholders, INSERT ... ON CONFLICT ... DO UPDATE and
// RETURNING, so only the DDL differs per dialect (schema.go).
//
// # Tables
//
//	warehouses     one row per warehouse name (natural key)
//	tariffs        one row per (warehouse_id, tariff_date)
//	google_sheets  publish targets, unique per (spreadsheet_id, sheet_name)
//
// # Writes
//
// Tariff writes go through WithinTx, which hands the callback an UpsertScope
// exposing only the two idempotent upserts. On PostgreSQL each upsert runs
// under a savepoint so one failing statement does not abort the transaction.
// DuckDB has no savepoints: after a failed statement the scope refuses
// further writes and the transaction is rolled back.
package database
