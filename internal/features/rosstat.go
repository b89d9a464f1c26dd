// MTS Cup - User Attribute Prediction Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mtscup

package features

import (
	"context"
	"fmt"

	"github.com/tomtom215/mtscup/internal/models"
	"github.com/tomtom215/mtscup/internal/vocab"
)

// RegionProfile is the census profile of one region.
type RegionProfile struct {
	TotalPeople float64
	UrbanShare  float64
	MenShare    float64
	// AgeShare, MenAgeShare and WomenAgeShare are indexed by bucket-1.
	AgeShare      [models.NumAgeBuckets]float64
	MenAgeShare   [models.NumAgeBuckets]float64
	WomenAgeShare [models.NumAgeBuckets]float64
}

type censusTotals struct {
	men, women, urban float64
	bucketMen         [models.NumAgeBuckets]float64
	bucketWomen       [models.NumAgeBuckets]float64
}

// RegionProfiles pivots long census rows into one profile per region code.
// rename maps census region names to telemetry names; rows whose region has
// no code are ignored. Age bucket 0 is counted as bucket 1.
func RegionProfiles(rows []models.CensusRow, regions *vocab.Table, rename func(string) string) map[models.Code]RegionProfile {
	if rename == nil {
		rename = func(s string) string { return s }
	}

	totals := make(map[models.Code]*censusTotals)
	for _, r := range rows {
		code := regions.Lookup(rename(r.Region))
		if !code.Valid() {
			continue
		}
		t, ok := totals[code]
		if !ok {
			t = &censusTotals{}
			totals[code] = t
		}
		b := models.ClipBucket(models.AgeToBucket(r.Age)) - 1
		t.men += float64(r.Men)
		t.women += float64(r.Women)
		t.urban += float64(r.UrbanMen + r.UrbanWomen)
		t.bucketMen[b] += float64(r.Men)
		t.bucketWomen[b] += float64(r.Women)
	}

	profiles := make(map[models.Code]RegionProfile, len(totals))
	for code, t := range totals {
		people := t.men + t.women
		p := RegionProfile{
			TotalPeople: people,
			UrbanShare:  share(t.urban, people),
			MenShare:    share(t.men, people),
		}
		for b := range models.NumAgeBuckets {
			inBucket := t.bucketMen[b] + t.bucketWomen[b]
			p.AgeShare[b] = share(inBucket, people)
			p.MenAgeShare[b] = share(t.bucketMen[b], inBucket)
			p.WomenAgeShare[b] = share(t.bucketWomen[b], inBucket)
		}
		profiles[code] = p
	}
	return profiles
}

// Demographics joins the census profile of each user's main region.
type Demographics struct {
	Profiles map[models.Code]RegionProfile
}

// Name implements Aggregator.
func (Demographics) Name() string { return "rosstat" }

var rosstatColumns = func() []Column {
	cols := []Column{
		NumericColumn("rosstat_total_people", Null),
		NumericColumn("rosstat_urban_people_share", Null),
		NumericColumn("rosstat_men_share", Null),
	}
	for _, family := range []string{"age", "men_age", "women_age"} {
		for b := 1; b <= models.NumAgeBuckets; b++ {
			cols = append(cols, NumericColumn(fmt.Sprintf("rosstat_%s_bucket_%d_share", family, b), Null))
		}
	}
	return cols
}()

// Aggregate implements Aggregator. Users whose main region has no profile
// get no row and take the null fills.
func (d Demographics) Aggregate(ctx context.Context, c *Corpus) (*Table, error) {
	t := NewTable(d.Name(), rosstatColumns)
	for i := range c.Users {
		if i%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		u := &c.Users[i]
		region, _, _ := mainCode(u.Rows, regionOf)
		p, ok := d.Profiles[region]
		if !ok {
			continue
		}

		row := make([]Cell, 0, len(rosstatColumns))
		row = append(row, Num(p.TotalPeople), Num(p.UrbanShare), Num(p.MenShare))
		for _, family := range [][models.NumAgeBuckets]float64{p.AgeShare, p.MenAgeShare, p.WomenAgeShare} {
			for _, v := range family {
				row = append(row, Num(v))
			}
		}
		if err := t.Set(u.UserID, row); err != nil {
			return nil, err
		}
	}
	return t, nil
}
