// Tariffsync - Marketplace Tariff Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tariffsync

package sheets

import (
	"context"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// DocumentAPI is a spreadsheet store addressed by document id and A1 range.
type DocumentAPI interface {
	// EnsureSheet creates sheetName in the document if it is missing.
	EnsureSheet(ctx context.Context, documentID, sheetName string) error
	// Clear empties every cell in rng.
	Clear(ctx context.Context, documentID, rng string) error
	// Update writes rows starting at rng's top-left cell and returns rows written.
	Update(ctx context.Context, documentID, rng string, rows [][]any) (int, error)
	// Append writes rows after the last non-empty row at or below rng.
	Append(ctx context.Context, documentID, rng string, rows [][]any) (int, error)
}

// A1Range joins a sheet name and a cell range, quoting the sheet name.
func A1Range(sheet, cells string) string {
	return "'" + strings.ReplaceAll(sheet, "'", "''") + "'!" + cells
}

// cellRange is a parsed A1 range. Zero rows mean unbounded.
type cellRange struct {
	sheet    string
	startCol int
	startRow int
	endCol   int
	endRow   int
}

// parseRange understands 'Sheet'!A1, Sheet!A:Z, Sheet!A2:P100 and Sheet!A.
func parseRange(rng string) (cellRange, error) {
	bang := strings.LastIndex(rng, "!")
	if bang <= 0 {
		return cellRange{}, fmt.Errorf("range %q has no sheet name", rng)
	}
	sheet := rng[:bang]
	if len(sheet) >= 2 && sheet[0] == '\'' && sheet[len(sheet)-1] == '\'' {
		sheet = strings.ReplaceAll(sheet[1:len(sheet)-1], "''", "'")
	}
	out := cellRange{sheet: sheet}

	start, end, isSpan := strings.Cut(rng[bang+1:], ":")
	var err error
	if out.startCol, out.startRow, err = parseRef(start); err != nil {
		return cellRange{}, fmt.Errorf("range %q: %w", rng, err)
	}
	if !isSpan {
		out.endCol, out.endRow = out.startCol, 0
		if out.startRow > 0 {
			out.endRow = out.startRow
		}
		return out, nil
	}
	if out.endCol, out.endRow, err = parseRef(end); err != nil {
		return cellRange{}, fmt.Errorf("range %q: %w", rng, err)
	}
	return out, nil
}

// parseRef accepts "B", "B7" and returns 1-based column and row (row 0 if absent).
func parseRef(ref string) (col, row int, err error) {
	ref = strings.ToUpper(strings.TrimSpace(ref))
	i := 0
	for i < len(ref) && ref[i] >= 'A' && ref[i] <= 'Z' {
		i++
	}
	if i == 0 {
		return 0, 0, fmt.Errorf("invalid cell reference %q", ref)
	}
	if col, err = excelize.ColumnNameToNumber(ref[:i]); err != nil {
		return 0, 0, err
	}
	if i == len(ref) {
		return col, 0, nil
	}
	if col, row, err = excelize.CellNameToCoordinates(ref); err != nil {
		return 0, 0, err
	}
	return col, row, nil
}
