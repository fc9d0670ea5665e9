// Tariffsync - Marketplace Tariff Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tariffsync

// Command tariffsync keeps a marketplace's box-delivery tariffs mirrored in a
// relational store and published to spreadsheets.
//
// # Commands
//
//	tariffsync serve                  scheduler + HTTP surface under a supervisor
//	tariffsync run-now [--date D]     one synchronous cycle, exit 1 on failure
//	tariffsync status [--url U]       query a running server's /status
//	tariffsync migrate                create tables and seed publish targets
//	tariffsync targets list           show publish targets
//	tariffsync targets enable <id>    activate a publish target
//	tariffsync targets disable <id>   deactivate a publish target
//
// # Configuration
//
// Settings come from built-in defaults, then a YAML file (--config, CONFIG_PATH
// or ./config.yaml), then environment variables. A .env file in the working
// directory is loaded first if present. The variables that matter most:
//
//	TARIFF_API_TOKEN                 marketplace API token
//	DATABASE_DRIVER / DATABASE_URL   pgx with a postgres:// URL, or duckdb with a file path
//	GOOGLE_SHEET_IDS                 comma-separated spreadsheet ids
//	GOOGLE_APPLICATION_CREDENTIALS   service-account key file
//	PUBLISH_BACKEND                  sheets (default) or xlsx for offline runs
//	SCHEDULE_CRON / SCHEDULE_TIMEZONE
//
// # Signal Handling
//
// serve shuts down on SIGINT and SIGTERM. An in-flight cycle is allowed to
// finish within the supervisor's shutdown timeout.
package main

import (
	"fmt"
	"os"
	_ "time/tzdata" // Europe/Moscow must resolve on minimal images

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:           "tariffsync",
	Short:         "Marketplace tariff synchronization",
	Long:          "tariffsync fetches daily box-delivery tariffs, upserts them into a relational store and publishes a sorted table to spreadsheets.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file (defaults to CONFIG_PATH or ./config.yaml)")
}

func main() {
	_ = godotenv.Load() //nolint:errcheck // .env is optional

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
