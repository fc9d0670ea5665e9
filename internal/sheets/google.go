// Tariffsync - Marketplace Tariff Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tariffsync

package sheets

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	gsheets "google.golang.org/api/sheets/v4"

	"github.com/tomtom215/tariffsync/internal/credentials"
	"github.com/tomtom215/tariffsync/internal/fault"
)

// quotaReasons are googleapi error reasons that mean "slow down", even on 403.
var quotaReasons = map[string]bool{
	"rateLimitExceeded":     true,
	"userRateLimitExceeded": true,
	"quotaExceeded":         true,
	"backendError":          true,
}

// GoogleBackend writes through the Google Sheets v4 API.
type GoogleBackend struct {
	svc   *gsheets.Service
	creds *credentials.Cache
}

// NewGoogleBackend authenticates every request with creds. Extra options
// (endpoint overrides in tests) are appended.
// Every request asks creds for its token, so creds is the only token cache
// and Invalidate takes effect on the next call.
func NewGoogleBackend(ctx context.Context, creds *credentials.Cache, opts ...option.ClientOption) (*GoogleBackend, error) {
	client := &http.Client{Transport: &oauth2.Transport{Source: creds, Base: http.DefaultTransport}}
	all := append([]option.ClientOption{option.WithHTTPClient(client)}, opts...)
	svc, err := gsheets.NewService(ctx, all...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return &GoogleBackend{svc: svc, creds: creds}, nil
}

func (g *GoogleBackend) EnsureSheet(ctx context.Context, documentID, sheetName string) error {
	doc, err := g.svc.Spreadsheets.Get(documentID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return g.classify(ctx, "sheets.ensure_sheet", err)
	}
	for _, s := range doc.Sheets {
		if s.Properties != nil && s.Properties.Title == sheetName {
			return nil
		}
	}

	req := &gsheets.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheets.Request{{
			AddSheet: &gsheets.AddSheetRequest{Properties: &gsheets.SheetProperties{Title: sheetName}},
		}},
	}
	if _, err := g.svc.Spreadsheets.BatchUpdate(documentID, req).Context(ctx).Do(); err != nil {
		return g.classify(ctx, "sheets.add_sheet", err)
	}
	return nil
}

func (g *GoogleBackend) Clear(ctx context.Context, documentID, rng string) error {
	_, err := g.svc.Spreadsheets.Values.Clear(documentID, rng, &gsheets.ClearValuesRequest{}).Context(ctx).Do()
	if err != nil {
		return g.classify(ctx, "sheets.clear", err)
	}
	return nil
}

func (g *GoogleBackend) Update(ctx context.Context, documentID, rng string, rows [][]any) (int, error) {
	resp, err := g.svc.Spreadsheets.Values.Update(documentID, rng, &gsheets.ValueRange{Values: rows}).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return 0, g.classify(ctx, "sheets.update", err)
	}
	return int(resp.UpdatedRows), nil
}

func (g *GoogleBackend) Append(ctx context.Context, documentID, rng string, rows [][]any) (int, error) {
	resp, err := g.svc.Spreadsheets.Values.Append(documentID, rng, &gsheets.ValueRange{Values: rows}).
		ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return 0, g.classify(ctx, "sheets.append", err)
	}
	if resp.Updates == nil {
		return len(rows), nil
	}
	return int(resp.Updates.UpdatedRows), nil
}

// classify tags err with a fault.Kind. A 401 also drops the cached token so
// the next call re-authenticates.
func (g *GoogleBackend) classify(ctx context.Context, op string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}

	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		for _, item := range gerr.Errors {
			if quotaReasons[item.Reason] {
				return fault.Transient(op, gerr.Code, item.Reason, err)
			}
		}
		if gerr.Code == http.StatusUnauthorized && g.creds != nil {
			g.creds.Invalidate()
		}
		fe := fault.FromStatus(op, gerr.Code, gerr.Message)
		fe.Err = err
		return fe
	}

	// Credential refresh failures arrive already tagged.
	var fe *fault.Error
	if errors.As(err, &fe) {
		return err
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return fault.Transient(op, 0, "network error", err)
	}
	return fault.Permanent(op, 0, "spreadsheet request failed", err)
}
