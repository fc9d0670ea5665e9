// Tariffsync - Marketplace Tariff Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tariffsync

package main

import (
	"errors"
	"fmt"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/tomtom215/tariffsync/internal/database"
)

var targetsCmd = &cobra.Command{
	Use:   "targets",
	Short: "Manage spreadsheet publish targets",
}

var targetsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List publish targets",
	Args:  cobra.NoArgs,
	RunE:  runTargetsList,
}

var targetsEnableCmd = &cobra.Command{
	Use:   "enable <id>",
	Short: "Activate a publish target",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setTargetActive(cmd, args[0], true)
	},
}

var targetsDisableCmd = &cobra.Command{
	Use:   "disable <id>",
	Short: "Deactivate a publish target",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setTargetActive(cmd, args[0], false)
	},
}

func init() {
	targetsCmd.AddCommand(targetsListCmd, targetsEnableCmd, targetsDisableCmd)
	rootCmd.AddCommand(targetsCmd)
}

func runTargetsList(cmd *cobra.Command, _ []string) error {
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

	targets, err := store.ListPublishTargets(ctx)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSPREADSHEET\tSHEET\tACTIVE\tLAST SYNCED")
	for _, t := range targets {
		synced := "never"
		if t.LastSyncedAt != nil {
			synced = t.LastSyncedAt.UTC().Format(time.RFC3339)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%t\t%s\n", t.ID, t.SpreadsheetID, t.SheetName, t.IsActive, synced)
	}
	return tw.Flush()
}

func setTargetActive(cmd *cobra.Command, rawID string, active bool) error {
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil || id <= 0 {
		return fmt.Errorf("invalid target id %q", rawID)
	}

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

	if err := store.SetPublishTargetActive(ctx, id, active); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return fmt.Errorf("publish target %d not found", id)
		}
		return err
	}

	state := "disabled"
	if active {
		state = "enabled"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "publish target %d %s\n", id, state)
	return nil
}
