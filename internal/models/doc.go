// Tariffsync - Marketplace Tariff Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tariffsync

// Package models defines the data types shared by the tariffsync pipeline:
// persisted entities (Location, TariffRecord, PublishTarget), the normalized
// upstream batch, and the result shapes reported by each pipeline stage.
package models
