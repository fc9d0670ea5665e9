// Tariffsync - Marketplace Tariff Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tariffsync

package tariffs

import (
	"bytes"
	"math"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/tomtom215/tariffsync/internal/fault"
	"github.com/tomtom215/tariffsync/internal/models"
)

// successEnvelope is {response:{data:{...}}}.
type successEnvelope struct {
	Response *struct {
		Data json.RawMessage `json:"data"`
	} `json:"response"`
}

// errorEnvelope is {error:true, errorText, additionalErrors?, statusCode?}.
type errorEnvelope struct {
	Error            bool            `json:"error"`
	ErrorText        string          `json:"errorText"`
	AdditionalErrors json.RawMessage `json:"additionalErrors"`
	StatusCode       int             `json:"statusCode"`
}

type tariffData struct {
	DtNextBox     *string         `json:"dtNextBox"`
	DtTillMax     *string         `json:"dtTillMax"`
	WarehouseList json.RawMessage `json:"warehouseList"`
}

// warehouseEntry keeps numbers raw: the API sends "46", "0,07", "-" or numbers.
type warehouseEntry struct {
	WarehouseName string          `json:"warehouseName"`
	GeoName       string          `json:"geoName"`
	DeliveryBase  json.RawMessage `json:"boxDeliveryBase"`
	DeliveryLiter json.RawMessage `json:"boxDeliveryLiter"`
	DeliveryCoef  json.RawMessage `json:"boxDeliveryCoefExpr"`
	MarketBase    json.RawMessage `json:"boxDeliveryMarketplaceBase"`
	MarketLiter   json.RawMessage `json:"boxDeliveryMarketplaceLiter"`
	MarketCoef    json.RawMessage `json:"boxDeliveryMarketplaceCoefExpr"`
	StorageBase   json.RawMessage `json:"boxStorageBase"`
	StorageLiter  json.RawMessage `json:"boxStorageLiter"`
	StorageCoef   json.RawMessage `json:"boxStorageCoefExpr"`
}

func decodeBatch(body []byte, date string) (*models.NormalizedTariffBatch, error) {
	var errEnv errorEnvelope
	if err := json.Unmarshal(body, &errEnv); err == nil && errEnv.Error {
		msg := errEnv.ErrorText
		if msg == "" {
			msg = "upstream reported an error"
		}
		if errEnv.StatusCode != 0 {
			return nil, fault.FromStatus(opFetch, errEnv.StatusCode, msg)
		}
		return nil, fault.Permanent(opFetch, 0, msg, nil)
	}

	var env successEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fault.Validation(opFetch, "response is not valid JSON", err)
	}
	if env.Response == nil || len(env.Response.Data) == 0 || string(env.Response.Data) == "null" {
		return nil, fault.Validation(opFetch, "response.data is missing", nil)
	}

	var data tariffData
	if err := json.Unmarshal(env.Response.Data, &data); err != nil {
		return nil, fault.Validation(opFetch, "response.data is not an object", err)
	}
	list := bytes.TrimSpace(data.WarehouseList)
	if len(list) == 0 || list[0] != '[' {
		return nil, fault.Validation(opFetch, "response.data.warehouseList is not an array", nil)
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(list, &raw); err != nil {
		return nil, fault.Validation(opFetch, "response.data.warehouseList is malformed", err)
	}

	batch := &models.NormalizedTariffBatch{
		Date:      date,
		DtNextBox: nonEmpty(data.DtNextBox),
		DtTillMax: nonEmpty(data.DtTillMax),
		Entries:   make([]models.WarehouseTariff, 0, len(raw)),
	}
	for _, r := range raw {
		batch.Entries = append(batch.Entries, normalizeEntry(r))
	}
	return batch, nil
}

// normalizeEntry never fails: an undecodable entry yields an empty
// WarehouseName, which the reconciler reports as a per-entry error.
func normalizeEntry(raw json.RawMessage) models.WarehouseTariff {
	var e warehouseEntry
	if err := json.Unmarshal(raw, &e); err != nil {
		return models.WarehouseTariff{}
	}
	geo := strings.TrimSpace(e.GeoName)
	return models.WarehouseTariff{
		WarehouseName: strings.TrimSpace(e.WarehouseName),
		GeoName:       nonEmpty(&geo),
		Rates: models.Rates{
			DeliveryBase:        ParseNumber(e.DeliveryBase),
			DeliveryLiter:       ParseNumber(e.DeliveryLiter),
			DeliveryCoefExpr:    ParseNumber(e.DeliveryCoef),
			MarketplaceBase:     ParseNumber(e.MarketBase),
			MarketplaceLiter:    ParseNumber(e.MarketLiter),
			MarketplaceCoefExpr: ParseNumber(e.MarketCoef),
			StorageBase:         ParseNumber(e.StorageBase),
			StorageLiter:        ParseNumber(e.StorageLiter),
			StorageCoefExpr:     ParseNumber(e.StorageCoef),
		},
	}
}

// ParseNumber converts an upstream numeric field into *float64.
//
// JSON numbers pass through. Strings may use a decimal comma and space or
// no-break-space thousand separators ("1 234,5"). null, "", "-" and anything
// unparsable become nil. Applying ParseNumber to the JSON encoding of its own
// result returns the same value.
func ParseNumber(raw json.RawMessage) *float64 {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}

	var s string
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil
		}
	} else {
		s = string(raw)
	}
	return parseNumberString(s)
}

var numberCleaner = strings.NewReplacer(" ", "", "\u00a0", "", "\u202f", "", ",", ".")

func parseNumberString(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" || s == "-" {
		return nil
	}
	s = numberCleaner.Replace(s)
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func nonEmpty(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	if t == "" {
		return nil
	}
	return &t
}
