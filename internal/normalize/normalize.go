// MTS Cup - User Attribute Prediction Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mtscup

// Package normalize converts raw telemetry rows into canonical sessions.
//
// Categorical fields are replaced by codes from a vocab.Set built in an
// earlier phase. Rows are never dropped: a value without a mapping becomes
// models.NoCode and downstream aggregators treat it as an unknown bucket.
package normalize

import (
	"math"

	"github.com/tomtom215/mtscup/internal/models"
	"github.com/tomtom215/mtscup/internal/vocab"
)

// Normalizer applies a fixed vocabulary to raw sessions.
type Normalizer struct {
	region       *vocab.Table
	city         *vocab.Table
	manufacturer *vocab.Table
	model        *vocab.Table
	deviceType   *vocab.Table
	os           *vocab.Table
	partOfDay    *vocab.Table
}

// New creates a Normalizer for set.
func New(set *vocab.Set) *Normalizer {
	return &Normalizer{
		region:       set.Get(vocab.Region),
		city:         set.Get(vocab.City),
		manufacturer: set.Get(vocab.Manufacturer),
		model:        set.Get(vocab.Model),
		deviceType:   set.Get(vocab.Type),
		os:           set.Get(vocab.OS),
		partOfDay:    set.Get(vocab.PartOfDay),
	}
}

// Normalize maps every raw row to a Session, preserving order.
func (n *Normalizer) Normalize(raw []models.RawSession) []models.Session {
	out := make([]models.Session, len(raw))
	for i := range raw {
		out[i] = n.session(&raw[i])
	}
	return out
}

func (n *Normalizer) session(r *models.RawSession) models.Session {
	return models.Session{
		UserID:         r.UserID,
		URLHost:        r.URLHost,
		RegionID:       n.region.Lookup(r.RegionName),
		CityID:         n.city.Lookup(vocab.CompoundKey(r.RegionName, r.CityName)),
		ManufacturerID: n.manufacturer.Lookup(r.ManufacturerName),
		ModelID:        n.model.Lookup(vocab.CompoundKey(r.ManufacturerName, r.ModelName)),
		TypeID:         n.deviceType.Lookup(r.TypeName),
		OSID:           n.os.Lookup(r.OSName),
		PartOfDayID:    n.partOfDay.Lookup(r.PartOfDay),
		Price:          r.Price,
		Date:           r.Date,
		RequestCnt:     clampCount(r.RequestCnt),
	}
}

// clampCount bounds a request count to the uint16 range.
func clampCount(v int64) uint16 {
	switch {
	case v < 0:
		return 0
	case v > math.MaxUint16:
		return math.MaxUint16
	default:
		return uint16(v)
	}
}

// Labels derives age buckets for raw training targets.
func Labels(raw []models.RawLabel) []models.Label {
	out := make([]models.Label, len(raw))
	for i := range raw {
		out[i] = models.NewLabel(raw[i])
	}
	return out
}
