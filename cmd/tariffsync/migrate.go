// Tariffsync - Marketplace Tariff Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tariffsync

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tomtom215/tariffsync/internal/logging"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the schema and register configured publish targets",
	RunE:  runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore(store)

	if err := store.EnsureSchema(ctx); err != nil {
		return err
	}
	if err := seedTargets(ctx, cfg, store); err != nil {
		return err
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		return err
	}
	logging.Info().Str("dialect", string(store.Dialect())).Msg("Schema is up to date")
	fmt.Fprintf(cmd.OutOrStdout(), "schema ready (%s): %d locations, %d tariffs, %d publish targets\n",
		store.Dialect(), stats.Locations, stats.Tariffs, stats.PublishTargets)
	return nil
}
