// Tariffsync - Marketplace Tariff Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tariffsync

// Package logging provides the process-wide zerolog logger for tariffsync.
//
// Every component logs through this package so that a single configuration
// (level, format, optional rotated log file) applies everywhere:
//
//	logging.Init(logging.Config{Level: "info", Format: "json"})
//	logging.Info().Str("date", date).Msg("Reconciliation started")
//
// # Cycles and correlation IDs
//
// Each pipeline cycle runs under a context carrying a correlation ID so all
// log lines of one cycle can be grouped:
//
//	ctx = logging.ContextWithNewCorrelationID(ctx)
//	logging.Ctx(ctx).Info().Msg("Cycle started")
//
// # Supervisor integration
//
// The suture supervisor logs through log/slog. NewSlogLogger returns an
// slog.Logger whose records are written by the zerolog logger:
//
//	hook := (&sutureslog.Handler{Logger: logging.NewSlogLogger()}).MustHook()
//
// # Log files
//
// When Config.File is set, output is duplicated into a size-rotated file
// managed by lumberjack in addition to the configured writer.
package logging
