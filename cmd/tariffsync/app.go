// Tariffsync - Marketplace Tariff Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tariffsync

package main

import (
	"context"
	"fmt"

	"github.com/tomtom215/tariffsync/internal/config"
	"github.com/tomtom215/tariffsync/internal/credentials"
	"github.com/tomtom215/tariffsync/internal/database"
	"github.com/tomtom215/tariffsync/internal/logging"
	"github.com/tomtom215/tariffsync/internal/pipeline"
	"github.com/tomtom215/tariffsync/internal/publish"
	"github.com/tomtom215/tariffsync/internal/reconcile"
	"github.com/tomtom215/tariffsync/internal/sheets"
	"github.com/tomtom215/tariffsync/internal/tariffs"
)

// loadConfig loads and validates configuration, then configures logging.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	logging.Init(cfg.Logging.ToLogging())
	return cfg, nil
}

// openStore opens the configured database. Callers close it.
func openStore(ctx context.Context, cfg *config.Config) (*database.Store, error) {
	store, err := database.Open(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return store, nil
}

// seedTargets makes sure every configured spreadsheet id has a publish target row.
func seedTargets(ctx context.Context, cfg *config.Config, store *database.Store) error {
	if len(cfg.Publish.SpreadsheetIDs) == 0 {
		return nil
	}
	added, err := store.EnsurePublishTargets(ctx, cfg.Publish.SpreadsheetIDs, cfg.Publish.SheetName)
	if err != nil {
		return fmt.Errorf("seed publish targets: %w", err)
	}
	if added > 0 {
		logging.Info().Int("added", added).Str("sheet", cfg.Publish.SheetName).Msg("Publish targets registered")
	}
	return nil
}

// newDocumentAPI builds the spreadsheet backend selected by cfg.Backend.
func newDocumentAPI(ctx context.Context, cfg config.PublishConfig) (sheets.DocumentAPI, error) {
	switch cfg.Backend {
	case "xlsx":
		backend, err := sheets.NewXLSXBackend(cfg.XLSXDir)
		if err != nil {
			return nil, fmt.Errorf("xlsx backend: %w", err)
		}
		logging.Info().Str("dir", cfg.XLSXDir).Msg("Publishing to local workbooks")
		return backend, nil
	case "sheets", "":
		creds, err := credentials.FromServiceAccountFile(ctx, cfg.CredentialsFile, cfg.TokenThreshold)
		if err != nil {
			return nil, err
		}
		backend, err := sheets.NewGoogleBackend(ctx, creds)
		if err != nil {
			return nil, fmt.Errorf("google sheets backend: %w", err)
		}
		return backend, nil
	default:
		return nil, fmt.Errorf("unknown publish backend %q", cfg.Backend)
	}
}

// buildRunner wires the reconcile-then-publish pipeline against store.
// ctx bounds credential refreshes for the lifetime of the runner.
func buildRunner(ctx context.Context, cfg *config.Config, store *database.Store) (*pipeline.Runner, error) {
	if err := cfg.ValidatePipeline(); err != nil {
		return nil, err
	}
	if err := seedTargets(ctx, cfg, store); err != nil {
		return nil, err
	}

	docs, err := newDocumentAPI(ctx, cfg.Publish)
	if err != nil {
		return nil, err
	}
	writer := sheets.NewWriter(docs, sheets.PolicyFromConfig(cfg.Publish))
	client := tariffs.New(tariffs.OptionsFromConfig(cfg.TariffAPI))

	zone := cfg.Schedule.Location()
	rec := reconcile.New(client, store, reconcile.WithZone(zone))
	pub := publish.New(store, writer, publish.WithZone(zone))
	return pipeline.NewRunner(rec, pub), nil
}

func closeStore(store *database.Store) {
	if err := store.Close(); err != nil {
		logging.Error().Err(err).Msg("Error closing database")
	}
}
