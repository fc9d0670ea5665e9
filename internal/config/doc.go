// Tariffsync - Marketplace Tariff Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tariffsync

// Package config loads tariffsync configuration with koanf.
//
// Sources are layered, later ones winning:
//
//  1. Built-in defaults (defaultConfig)
//  2. Optional YAML file: $CONFIG_PATH, ./config.yaml, /etc/tariffsync/config.yaml
//  3. Environment variables, through an explicit name table (envMappings)
//
// Environment variables:
//
//	TARIFF_API_URL                   upstream endpoint
//	TARIFF_API_TOKEN                 bearer token (required to run the pipeline)
//	DATABASE_DRIVER                  pgx | duckdb
//	DATABASE_URL                     DSN (Postgres URL or DuckDB file path)
//	PUBLISH_BACKEND                  sheets | xlsx
//	GOOGLE_SHEET_IDS                 comma-separated spreadsheet ids to seed as targets
//	GOOGLE_SHEET_NAME                sheet receiving the table (default stocks_coefs)
//	GOOGLE_APPLICATION_CREDENTIALS   service-account JSON for the sheets backend
//	SCHEDULE_CRON                    five-field cron expression (default hourly)
//	SCHEDULE_TIMEZONE                IANA zone for the schedule and business date
//	HTTP_HOST, HTTP_PORT             status/trigger HTTP listener
//	LOG_LEVEL, LOG_FORMAT, LOG_FILE  logging
//
// Struct tags are checked with go-playground/validator; cross-field rules
// live in Validate and ValidatePipeline.
package config
