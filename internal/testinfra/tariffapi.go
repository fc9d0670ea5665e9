// Tariffsync - Marketplace Tariff Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tariffsync

package testinfra

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/goccy/go-json"
)

// Warehouse is one warehouseList entry. Rate fields are sent verbatim as
// JSON strings, the way the real API sends "46" or "0,07" or "-".
type Warehouse struct {
	Name                string
	GeoName             string
	DeliveryBase        string
	DeliveryLiter       string
	DeliveryCoefExpr    string
	MarketplaceBase     string
	MarketplaceLiter    string
	MarketplaceCoefExpr string
	StorageBase         string
	StorageLiter        string
	StorageCoefExpr     string
}

// Batch is the payload served for one date.
type Batch struct {
	DtNextBox  string
	DtTillMax  string
	Warehouses []Warehouse
}

// CapturedRequest is one request seen by the fake.
type CapturedRequest struct {
	Date          string
	Authorization string
}

// FakeTariffAPI serves canned tariff batches per date.
type FakeTariffAPI struct {
	Server *httptest.Server

	mu       sync.Mutex
	batches  map[string]Batch
	failures []int
	captures []CapturedRequest
}

// NewFakeTariffAPI starts the server and closes it when the test ends.
// Dates without a batch get an empty warehouseList.
func NewFakeTariffAPI(t *testing.T) *FakeTariffAPI {
	t.Helper()

	f := &FakeTariffAPI{batches: make(map[string]Batch)}
	f.Server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.Server.Close)
	return f
}

// URL is the base URL to configure the client with.
func (f *FakeTariffAPI) URL() string {
	return f.Server.URL
}

// SetBatch sets the response for date.
func (f *FakeTariffAPI) SetBatch(date string, batch Batch) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batches[date] = batch
}

// FailNext makes the next len(statuses) requests answer with those HTTP
// statuses, in order, before normal responses resume.
func (f *FakeTariffAPI) FailNext(statuses ...int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures = append(f.failures, statuses...)
}

// Requests returns a copy of the captured requests.
func (f *FakeTariffAPI) Requests() []CapturedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]CapturedRequest, len(f.captures))
	copy(out, f.captures)
	return out
}

func (f *FakeTariffAPI) serve(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")

	f.mu.Lock()
	f.captures = append(f.captures, CapturedRequest{
		Date:          date,
		Authorization: r.Header.Get("Authorization"),
	})
	status := 0
	if len(f.failures) > 0 {
		status = f.failures[0]
		f.failures = f.failures[1:]
	}
	batch := f.batches[date]
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if status != 0 {
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(map[string]any{ //nolint:errcheck // test server
			"error":      true,
			"errorText":  http.StatusText(status),
			"statusCode": status,
		})
		return
	}

	list := make([]map[string]any, 0, len(batch.Warehouses))
	for _, wh := range batch.Warehouses {
		list = append(list, map[string]any{
			"warehouseName":                  wh.Name,
			"geoName":                        wh.GeoName,
			"boxDeliveryBase":                wh.DeliveryBase,
			"boxDeliveryLiter":               wh.DeliveryLiter,
			"boxDeliveryCoefExpr":            wh.DeliveryCoefExpr,
			"boxDeliveryMarketplaceBase":     wh.MarketplaceBase,
			"boxDeliveryMarketplaceLiter":    wh.MarketplaceLiter,
			"boxDeliveryMarketplaceCoefExpr": wh.MarketplaceCoefExpr,
			"boxStorageBase":                 wh.StorageBase,
			"boxStorageLiter":                wh.StorageLiter,
			"boxStorageCoefExpr":             wh.StorageCoefExpr,
		})
	}
	data := map[string]any{"warehouseList": list}
	if batch.DtNextBox != "" {
		data["dtNextBox"] = batch.DtNextBox
	}
	if batch.DtTillMax != "" {
		data["dtTillMax"] = batch.DtTillMax
	}
	_ = json.NewEncoder(w).Encode(map[string]any{ //nolint:errcheck // test server
		"response": map[string]any{"data": data},
	})
}
