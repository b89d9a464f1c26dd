// MTS Cup - User Attribute Prediction Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mtscup

package features

import (
	"context"

	"github.com/tomtom215/mtscup/internal/models"
	"github.com/tomtom215/mtscup/internal/refdata"
	"github.com/tomtom215/mtscup/internal/vocab"
)

// Device derives dominant device codes, the canonical brand and model
// names, and the imputed mean device price.
type Device struct {
	Reference refdata.DeviceReference
	// Models recovers raw model names from model codes.
	Models *vocab.Table
	// Prices are the observed means of the combined train and test corpus.
	Prices vocab.PriceMeans
}

// Name implements Aggregator.
func (Device) Name() string { return "device" }

var deviceColumns = []Column{
	CategoricalColumn("device_manufacturer_id", Null),
	CategoricalColumn("device_model_id", Null),
	CategoricalColumn("device_type_id", Null),
	CategoricalColumn("device_os_id", Null),
	CategoricalColumn("device_manufacturer", Str("")),
	CategoricalColumn("device_model", Str("")),
	NumericColumn("device_mean_price", Null),
}

type devicePair struct {
	manufacturer models.Code
	model        models.Code
}

// price coalesces the model mean, the manufacturer mean, and the static
// price of the model, in that order.
func (d Device) price(pair devicePair) (float64, bool) {
	if pair.model.Valid() {
		if v, ok := d.Prices.Model[pair.model]; ok {
			return v, true
		}
	}
	if pair.manufacturer.Valid() {
		if v, ok := d.Prices.Manufacturer[pair.manufacturer]; ok {
			return v, true
		}
	}
	if v, ok := d.Reference.StaticPrice[pair.model]; ok {
		return v, true
	}
	return 0, false
}

// Aggregate implements Aggregator.
func (d Device) Aggregate(ctx context.Context, c *Corpus) (*Table, error) {
	modelNames := d.Models
	if modelNames == nil {
		modelNames = vocab.Build(vocab.Model, nil)
	}

	return perUser(ctx, d.Name(), deviceColumns, c, func(u *UserSessions) []Cell {
		manufacturer, _, _ := dominant(requestsBy(u.Rows, func(s *models.Session) models.Code { return s.ManufacturerID }))
		model, _, _ := dominant(requestsBy(u.Rows, func(s *models.Session) models.Code { return s.ModelID }))
		deviceType, _, _ := dominant(requestsBy(u.Rows, func(s *models.Session) models.Code { return s.TypeID }))
		osCode, _, _ := dominant(requestsBy(u.Rows, func(s *models.Session) models.Code { return s.OSID }))

		canonical := d.Reference.Canonical[manufacturer]
		deviceModel := ""
		if raw, ok := modelNames.Reverse(model); ok && canonical != "" {
			_, name := vocab.SplitCompound(raw)
			deviceModel = canonical + " + " + name
		}

		pairs := make(map[devicePair]struct{})
		for i := range u.Rows {
			pairs[devicePair{manufacturer: u.Rows[i].ManufacturerID, model: u.Rows[i].ModelID}] = struct{}{}
		}
		var known []float64
		for pair := range pairs {
			if v, ok := d.price(pair); ok {
				known = append(known, v)
			}
		}
		price := Null
		if len(known) > 0 {
			price = Num(meanOf(known))
		}

		return []Cell{
			CodeCell(manufacturer),
			CodeCell(model),
			CodeCell(deviceType),
			CodeCell(osCode),
			Str(canonical),
			Str(deviceModel),
			price,
		}
	})
}
