// Tariffsync - Marketplace Tariff Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tariffsync

package sheets

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/xuri/excelize/v2"

	"github.com/tomtom215/tariffsync/internal/fault"
)

// XLSXBackend stores each document as <dir>/<document id>.xlsx.
type XLSXBackend struct {
	dir string
	mu  sync.Mutex
}

// NewXLSXBackend creates dir if needed.
func NewXLSXBackend(dir string) (*XLSXBackend, error) {
	if dir == "" {
		return nil, errors.New("xlsx directory is required")
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create xlsx directory: %w", err)
	}
	return &XLSXBackend{dir: dir}, nil
}

// Path returns the workbook file for documentID.
func (x *XLSXBackend) Path(documentID string) string {
	return filepath.Join(x.dir, sanitizeFileName(documentID)+".xlsx")
}

func (x *XLSXBackend) EnsureSheet(_ context.Context, documentID, sheetName string) error {
	return x.edit("xlsx.ensure_sheet", documentID, func(f *excelize.File, created bool) (int, error) {
		idx, err := f.GetSheetIndex(sheetName)
		if err != nil {
			return 0, err
		}
		if idx != -1 {
			return 0, nil
		}
		if created {
			// Reuse the default sheet of a brand-new workbook.
			return 0, f.SetSheetName(f.GetSheetName(0), sheetName)
		}
		_, err = f.NewSheet(sheetName)
		return 0, err
	})
}

func (x *XLSXBackend) Clear(_ context.Context, documentID, rng string) error {
	r, err := parseRange(rng)
	if err != nil {
		return fault.Validation("xlsx.clear", "bad range", err)
	}
	return x.edit("xlsx.clear", documentID, func(f *excelize.File, _ bool) (int, error) {
		rows, err := f.GetRows(r.sheet)
		if err != nil {
			return 0, err
		}
		last := len(rows)
		if r.endRow > 0 && r.endRow < last {
			last = r.endRow
		}
		first := r.startRow
		if first < 1 {
			first = 1
		}
		for row := first; row <= last; row++ {
			for col := r.startCol; col <= r.endCol && col <= len(rows[row-1]); col++ {
				cell, err := excelize.CoordinatesToCellName(col, row)
				if err != nil {
					return 0, err
				}
				if err := f.SetCellValue(r.sheet, cell, nil); err != nil {
					return 0, err
				}
			}
		}
		return 0, nil
	})
}

func (x *XLSXBackend) Update(_ context.Context, documentID, rng string, rows [][]any) (int, error) {
	r, err := parseRange(rng)
	if err != nil {
		return 0, fault.Validation("xlsx.update", "bad range", err)
	}
	start := r.startRow
	if start < 1 {
		start = 1
	}
	var written int
	err = x.edit("xlsx.update", documentID, func(f *excelize.File, _ bool) (int, error) {
		n, err := writeRows(f, r.sheet, r.startCol, start, rows)
		written = n
		return n, err
	})
	return written, err
}

func (x *XLSXBackend) Append(_ context.Context, documentID, rng string, rows [][]any) (int, error) {
	r, err := parseRange(rng)
	if err != nil {
		return 0, fault.Validation("xlsx.append", "bad range", err)
	}
	var written int
	err = x.edit("xlsx.append", documentID, func(f *excelize.File, _ bool) (int, error) {
		existing, err := f.GetRows(r.sheet)
		if err != nil {
			return 0, err
		}
		next := r.startRow
		if next < 1 {
			next = 1
		}
		if used := lastNonEmptyRow(existing) + 1; used > next {
			next = used
		}
		n, err := writeRows(f, r.sheet, r.startCol, next, rows)
		written = n
		return n, err
	})
	return written, err
}

// ReadSheet returns the sheet's cell text with trailing empty cells and rows
// removed.
func (x *XLSXBackend) ReadSheet(documentID, sheetName string) ([][]string, error) {
	x.mu.Lock()
	defer x.mu.Unlock()

	f, err := excelize.OpenFile(x.Path(documentID))
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, err
	}
	out := make([][]string, 0, len(rows))
	for _, row := range rows {
		end := len(row)
		for end > 0 && row[end-1] == "" {
			end--
		}
		out = append(out, row[:end])
	}
	return out[:lastNonEmptyRow(out)], nil
}

// edit opens (or creates) the workbook, applies fn and saves it.
func (x *XLSXBackend) edit(op, documentID string, fn func(f *excelize.File, created bool) (int, error)) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	path := x.Path(documentID)
	created := false
	f, err := excelize.OpenFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		f, created = excelize.NewFile(), true
	} else if err != nil {
		return fault.Permanent(op, 0, "open workbook", err)
	}
	defer func() { _ = f.Close() }()

	if _, err := fn(f, created); err != nil {
		return fault.Permanent(op, 0, "edit workbook", err)
	}
	if err := f.SaveAs(path); err != nil {
		return fault.Transient(op, 0, "save workbook", err)
	}
	return nil
}

func writeRows(f *excelize.File, sheet string, col, row int, rows [][]any) (int, error) {
	for i := range rows {
		cell, err := excelize.CoordinatesToCellName(col, row+i)
		if err != nil {
			return i, err
		}
		values := rows[i]
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return i, err
		}
	}
	return len(rows), nil
}

func lastNonEmptyRow[T ~[]string](rows []T) int {
	for i := len(rows) - 1; i >= 0; i-- {
		for _, v := range rows[i] {
			if v != "" {
				return i + 1
			}
		}
	}
	return 0
}

// sanitizeFileName keeps document ids usable as file names.
func sanitizeFileName(id string) string {
	replacer := strings.NewReplacer("/", "_", "\\", "_", ":", "_", "*", "_", "?", "_", "\"", "_", "<", "_", ">", "_", "|", "_", "..", "_")
	safe := strings.TrimSpace(replacer.Replace(id))
	if safe == "" {
		return "document"
	}
	return safe
}
