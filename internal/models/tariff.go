// Tariffsync - Marketplace Tariff Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tariffsync

package models

import (
	"math"
	"time"
)

// DateLayout is the calendar-day format used on the wire and in the store.
const DateLayout = "2006-01-02"

// Coefficient weights for the derived sort coefficient.
const (
	DeliveryWeight    = 0.4
	MarketplaceWeight = 0.4
	StorageWeight     = 0.2
)

// Location is a warehouse, keyed by its unique Name.
type Location struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	GeoName   *string   `json:"geo_name,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Rates holds the nine per-warehouse tariff numbers. Nil means the upstream
// value was absent or unparsable.
type Rates struct {
	DeliveryBase        *float64 `json:"delivery_base"`
	DeliveryLiter       *float64 `json:"delivery_liter"`
	DeliveryCoefExpr    *float64 `json:"delivery_coef_expr"`
	MarketplaceBase     *float64 `json:"marketplace_base"`
	MarketplaceLiter    *float64 `json:"marketplace_liter"`
	MarketplaceCoefExpr *float64 `json:"marketplace_coef_expr"`
	StorageBase         *float64 `json:"storage_base"`
	StorageLiter        *float64 `json:"storage_liter"`
	StorageCoefExpr     *float64 `json:"storage_coef_expr"`
}

// SortCoefficient returns the weighted sum of the three base rates, rounded
// to four decimals. Absent bases count as zero; the result is nil only when
// all three are absent.
func (r Rates) SortCoefficient() *float64 {
	if r.DeliveryBase == nil && r.MarketplaceBase == nil && r.StorageBase == nil {
		return nil
	}
	v := DeliveryWeight*deref(r.DeliveryBase) +
		MarketplaceWeight*deref(r.MarketplaceBase) +
		StorageWeight*deref(r.StorageBase)
	v = math.Round(v*10000) / 10000
	return &v
}

func deref(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}

// TariffRecord is one warehouse's rates for one calendar day.
// (LocationID, Date) is unique.
type TariffRecord struct {
	ID         int64     `json:"id"`
	LocationID int64     `json:"location_id"`
	Date       time.Time `json:"date"`
	Rates

	DtNextBox       *string    `json:"dt_next_box,omitempty"`
	DtTillMax       *time.Time `json:"dt_till_max,omitempty"`
	SortCoefficient *float64   `json:"sort_coefficient"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// DateString returns Date formatted with DateLayout.
func (t *TariffRecord) DateString() string {
	return t.Date.Format(DateLayout)
}

// WarehouseTariff is one normalized upstream entry.
type WarehouseTariff struct {
	WarehouseName string  `json:"warehouse_name"`
	GeoName       *string `json:"geo_name,omitempty"`
	Rates
}

// NormalizedTariffBatch is the upstream response for one date after
// normalization. Entries keep upstream order.
type NormalizedTariffBatch struct {
	Date      string            `json:"date"`
	DtNextBox *string           `json:"dt_next_box,omitempty"`
	DtTillMax *string           `json:"dt_till_max,omitempty"`
	Entries   []WarehouseTariff `json:"entries"`
}
