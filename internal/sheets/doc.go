// Tariffsync - Marketplace Tariff Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tariffsync

// Package sheets writes rows to spreadsheet documents.
//
// Writer is the retrying front end used by the publish coordinator. It speaks
// to a DocumentAPI backend:
//
//   - GoogleBackend uses the Google Sheets v4 API, authenticated through the
//     credentials.Cache token source.
//   - XLSXBackend keeps one .xlsx workbook per document id in a directory,
//     for local runs and tests.
//
// Ranges use A1 notation with a sheet prefix, for example 'stocks_coefs'!A:Z.
// Backends classify their failures with the fault package so the Writer
// retries only transient ones.
package sheets
