// Tariffsync - Marketplace Tariff Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tariffsync

package sheets

import (
	"context"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/xuri/excelize/v2"
)

func TestXLSXBackendRoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	x, err := NewXLSXBackend(filepath.Join(t.TempDir(), "sheets"))
	if err != nil {
		t.Fatalf("NewXLSXBackend: %v", err)
	}

	if err := x.EnsureSheet(ctx, "doc-1", "stocks_coefs"); err != nil {
		t.Fatalf("EnsureSheet: %v", err)
	}
	if err := x.EnsureSheet(ctx, "doc-1", "stocks_coefs"); err != nil {
		t.Fatalf("second EnsureSheet: %v", err)
	}

	n, err := x.Update(ctx, "doc-1", "'stocks_coefs'!A1", [][]any{{"warehouse_name", "delivery_base"}})
	if err != nil || n != 1 {
		t.Fatalf("Update = %d, %v", n, err)
	}
	n, err = x.Append(ctx, "doc-1", "'stocks_coefs'!A2", [][]any{{"Koledino", 46.0}, {"Tula", nil}})
	if err != nil || n != 2 {
		t.Fatalf("Append = %d, %v", n, err)
	}

	got, err := x.ReadSheet("doc-1", "stocks_coefs")
	if err != nil {
		t.Fatalf("ReadSheet: %v", err)
	}
	want := [][]string{{"warehouse_name", "delivery_base"}, {"Koledino", "46"}, {"Tula"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("sheet = %v, want %v", got, want)
	}

	// A second append lands below existing data.
	if _, err := x.Append(ctx, "doc-1", "'stocks_coefs'!A2", [][]any{{"Kazan", 12.5}}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	got, _ = x.ReadSheet("doc-1", "stocks_coefs")
	if len(got) != 4 || got[3][0] != "Kazan" {
		t.Errorf("after append = %v", got)
	}

	if err := x.Clear(ctx, "doc-1", "'stocks_coefs'!A:Z"); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	got, _ = x.ReadSheet("doc-1", "stocks_coefs")
	if len(got) != 0 {
		t.Errorf("after clear = %v, want empty", got)
	}

	f, err := excelize.OpenFile(x.Path("doc-1"))
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	defer f.Close()
	if sheets := f.GetSheetList(); !reflect.DeepEqual(sheets, []string{"stocks_coefs"}) {
		t.Errorf("sheets = %v, want only stocks_coefs", sheets)
	}
}

func TestXLSXBackendAddsSheetToExistingWorkbook(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	x, err := NewXLSXBackend(t.TempDir())
	if err != nil {
		t.Fatalf("NewXLSXBackend: %v", err)
	}
	if err := x.EnsureSheet(ctx, "doc", "first"); err != nil {
		t.Fatalf("EnsureSheet: %v", err)
	}
	if err := x.EnsureSheet(ctx, "doc", "second"); err != nil {
		t.Fatalf("EnsureSheet: %v", err)
	}

	f, err := excelize.OpenFile(x.Path("doc"))
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	defer f.Close()
	if sheets := f.GetSheetList(); !reflect.DeepEqual(sheets, []string{"first", "second"}) {
		t.Errorf("sheets = %v", sheets)
	}
}

func TestXLSXBackendRejectsBadRange(t *testing.T) {
	t.Parallel()

	x, _ := NewXLSXBackend(t.TempDir())
	if _, err := x.Update(context.Background(), "doc", "A1", [][]any{{"x"}}); err == nil {
		t.Error("Update with unqualified range succeeded")
	}
}

func TestSanitizeFileName(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"1AbC-xyz":      "1AbC-xyz",
		"../etc/passwd": "__etc_passwd",
		"  ":            "document",
	}
	for in, want := range tests {
		if got := sanitizeFileName(in); got != want {
			t.Errorf("sanitizeFileName(%q) = %q, want %q", in, got, want)
		}
	}
}
