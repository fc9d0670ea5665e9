// Tariffsync - Marketplace Tariff Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tariffsync

package main

import (
	"errors"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/tomtom215/tariffsync/internal/models"
	"github.com/tomtom215/tariffsync/internal/scheduler"
	"github.com/tomtom215/tariffsync/internal/tariffs"
)

var runNowDate string

var runNowCmd = &cobra.Command{
	Use:   "run-now",
	Short: "Run one reconcile-then-publish cycle and exit",
	Long: `Runs a single cycle synchronously and prints its summary as JSON.
The exit status is 1 when the cycle failed or any entry or target failed.`,
	RunE: runRunNow,
}

func init() {
	runNowCmd.Flags().StringVar(&runNowDate, "date", "", "tariff date YYYY-MM-DD (defaults to today in the business timezone)")
	rootCmd.AddCommand(runNowCmd)
}

func runRunNow(cmd *cobra.Command, _ []string) error {
	if runNowDate != "" {
		if err := tariffs.ValidateDate(runNowDate); err != nil {
			return err
		}
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore(store)

	runner, err := buildRunner(ctx, cfg, store)
	if err != nil {
		return err
	}

	// The scheduler records the outcome in metrics and logs auth failures
	// with their operator hint, same as a scheduled cycle.
	sched, err := scheduler.New(runner, cfg.Schedule)
	if err != nil {
		return err
	}
	summary, runErr := sched.RunNow(ctx, runNowDate)
	return reportCycle(cmd.OutOrStdout(), summary, runErr)
}

// reportCycle prints summary and turns any failure into the command's error.
func reportCycle(w io.Writer, summary *models.CycleSummary, runErr error) error {
	if summary != nil {
		out, err := json.MarshalIndent(summary, "", "  ")
		if err != nil {
			return fmt.Errorf("encode summary: %w", err)
		}
		fmt.Fprintln(w, string(out))
	}
	if runErr != nil {
		return fmt.Errorf("cycle failed: %w", runErr)
	}
	if summary == nil || !summary.Success() {
		return errors.New("cycle finished with errors")
	}
	return nil
}
