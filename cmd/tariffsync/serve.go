// Tariffsync - Marketplace Tariff Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tariffsync

package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tomtom215/tariffsync/internal/api"
	"github.com/tomtom215/tariffsync/internal/logging"
	"github.com/tomtom215/tariffsync/internal/scheduler"
	"github.com/tomtom215/tariffsync/internal/supervisor"
	"github.com/tomtom215/tariffsync/internal/supervisor/services"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the scheduler and HTTP surface until interrupted",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logging.Info().
		Str("db_driver", cfg.Database.Driver).
		Str("publish_backend", cfg.Publish.Backend).
		Int("targets_configured", len(cfg.Publish.SpreadsheetIDs)).
		Msg("Starting tariffsync")

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore(store)

	runner, err := buildRunner(ctx, cfg, store)
	if err != nil {
		return err
	}

	sched, err := scheduler.New(runner, cfg.Schedule)
	if err != nil {
		return err
	}

	srv := api.New(sched, store, cfg.Server).HTTPServer()

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Schedule.CycleTimeout + cfg.Server.ShutdownTimeout,
	})
	if err != nil {
		return fmt.Errorf("create supervisor tree: %w", err)
	}
	tree.AddPipelineService(services.NewSchedulerService(sched))
	tree.AddAPIService(services.NewHTTPServerService(srv, cfg.Server.ShutdownTimeout))

	logging.Info().Str("addr", cfg.Server.Addr()).Msg("Supervisor tree starting")
	err = tree.Serve(ctx)

	if report, reportErr := tree.UnstoppedServiceReport(); reportErr == nil && len(report) > 0 {
		for _, svc := range report {
			logging.Warn().Str("service", svc.Name).Msg("Service did not stop within the shutdown timeout")
		}
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("supervisor stopped: %w", err)
	}
	logging.Info().Msg("tariffsync stopped")
	return nil
}
