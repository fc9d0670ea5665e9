// Tariffsync - Marketplace Tariff Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tariffsync

package publish

import (
	"cmp"
	"slices"
	"time"

	"github.com/tomtom215/tariffsync/internal/models"
)

// Header is the first row of every published sheet.
var Header = []any{
	"warehouse_name", "geo_name", "date",
	"delivery_base", "delivery_liter", "delivery_coef_expr",
	"marketplace_base", "marketplace_liter", "marketplace_coef_expr",
	"storage_base", "storage_liter", "storage_coef_expr",
	"dt_next_box", "dt_till_max", "sort_coefficient", "updated_at",
}

type joinedRow struct {
	location models.Location
	tariff   models.TariffRecord
}

// BuildRows joins tariffs to their locations and returns the value rows,
// sorted by ascending coefficient with nil coefficients last and ties broken
// by warehouse name.
func BuildRows(tariffs []models.TariffRecord, locations []models.Location) [][]any {
	byID := make(map[int64]models.Location, len(locations))
	for _, loc := range locations {
		byID[loc.ID] = loc
	}

	joined := make([]joinedRow, 0, len(tariffs))
	for _, t := range tariffs {
		joined = append(joined, joinedRow{location: byID[t.LocationID], tariff: t})
	}

	slices.SortStableFunc(joined, func(a, b joinedRow) int {
		ca, cb := a.tariff.SortCoefficient, b.tariff.SortCoefficient
		switch {
		case ca == nil && cb != nil:
			return 1
		case ca != nil && cb == nil:
			return -1
		case ca != nil && cb != nil && *ca != *cb:
			return cmp.Compare(*ca, *cb)
		}
		return cmp.Compare(a.location.Name, b.location.Name)
	})

	rows := make([][]any, 0, len(joined))
	for _, j := range joined {
		t := j.tariff
		var tillMax string
		if t.DtTillMax != nil {
			tillMax = t.DtTillMax.Format(models.DateLayout)
		}
		rows = append(rows, []any{
			j.location.Name,
			str(j.location.GeoName),
			t.DateString(),
			num(t.DeliveryBase), num(t.DeliveryLiter), num(t.DeliveryCoefExpr),
			num(t.MarketplaceBase), num(t.MarketplaceLiter), num(t.MarketplaceCoefExpr),
			num(t.StorageBase), num(t.StorageLiter), num(t.StorageCoefExpr),
			str(t.DtNextBox),
			tillMax,
			num(t.SortCoefficient),
			t.UpdatedAt.UTC().Format(time.RFC3339),
		})
	}
	return rows
}

// num renders nil as an empty cell.
func num(v *float64) any {
	if v == nil {
		return ""
	}
	return *v
}

func str(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
