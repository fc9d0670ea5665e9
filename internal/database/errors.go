// Tariffsync - Marketplace Tariff Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tariffsync

package database

import (
	"errors"
	"io"
)

// ErrNotFound is returned when a single-row lookup or update matches nothing.
var ErrNotFound = errors.New("not found")

// ErrTxAborted is returned by an UpsertScope whose transaction can no longer
// accept writes (DuckDB, after a failed statement).
var ErrTxAborted = errors.New("transaction aborted by an earlier failed statement")

// closeQuietly closes a resource on an error path where the Close error is not actionable.
func closeQuietly(closer io.Closer) {
	if closer != nil {
		_ = closer.Close() //nolint:errcheck // best-effort cleanup
	}
}
