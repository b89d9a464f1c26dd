// MTS Cup - User Attribute Prediction Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mtscup

package features

import (
	"context"

	"github.com/tomtom215/mtscup/internal/models"
)

// Geo derives region and city coverage and the user's main region and city.
type Geo struct{}

// Name implements Aggregator.
func (Geo) Name() string { return "geo" }

var geoColumns = []Column{
	NumericColumn("regions_visited", Int(0)),
	CategoricalColumn("main_region_id", Null),
	NumericColumn("main_region_share", Num(0)),
	NumericColumn("cities_visited", Int(0)),
	CategoricalColumn("main_city_id", Null),
	NumericColumn("main_city_share", Num(0)),
}

// mainCode returns the dominant code of rows per key, its request share,
// and the number of distinct codes including NoCode.
func mainCode(rows []models.Session, key func(*models.Session) models.Code) (code models.Code, requestShare float64, distinct int) {
	counts := requestsBy(rows, key)
	var total float64
	for _, c := range counts {
		total += c
	}
	code, count, ok := dominant(counts)
	if !ok {
		return models.NoCode, 0, 0
	}
	return code, share(count, total), len(counts)
}

func regionOf(s *models.Session) models.Code { return s.RegionID }

func cityOf(s *models.Session) models.Code { return s.CityID }

// Aggregate implements Aggregator.
func (g Geo) Aggregate(ctx context.Context, c *Corpus) (*Table, error) {
	return perUser(ctx, g.Name(), geoColumns, c, func(u *UserSessions) []Cell {
		region, regionShare, regions := mainCode(u.Rows, regionOf)
		city, cityShare, cities := mainCode(u.Rows, cityOf)
		return []Cell{
			Int(regions),
			CodeCell(region),
			Num(regionShare),
			Int(cities),
			CodeCell(city),
			Num(cityShare),
		}
	})
}
