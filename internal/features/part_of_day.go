// MTS Cup - User Attribute Prediction Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mtscup

package features

import (
	"context"

	"github.com/tomtom215/mtscup/internal/models"
)

// PartOfDay derives per part-of-day shares of active days, distinct hosts,
// and requests.
type PartOfDay struct{}

// Name implements Aggregator.
func (PartOfDay) Name() string { return "part_of_day" }

var partOfDayColumns = func() []Column {
	var cols []Column
	for _, measure := range []string{"days", "urls", "requests"} {
		for _, part := range models.PartsOfDay {
			cols = append(cols, NumericColumn(part+"_"+measure+"_share", Num(0)))
		}
	}
	return cols
}()

// Aggregate implements Aggregator.
func (a PartOfDay) Aggregate(ctx context.Context, c *Corpus) (*Table, error) {
	n := len(models.PartsOfDay)
	return perUser(ctx, a.Name(), partOfDayColumns, c, func(u *UserSessions) []Cell {
		all := newGroupStat()
		byPart := groupBy(u.Rows, partOf)
		for i := range u.Rows {
			all.add(&u.Rows[i])
		}

		days := make([]float64, n)
		urls := make([]float64, n)
		for code, g := range byPart {
			if !code.Valid() || int(code) >= n {
				continue
			}
			days[code] = share(float64(len(g.dates)), float64(len(all.dates)))
			urls[code] = share(float64(len(g.urls)), float64(len(all.urls)))
		}
		requests := distribution(requestsBy(u.Rows, partOf), n)

		row := make([]Cell, 0, 3*n)
		for _, family := range [][]float64{days, urls, requests} {
			for _, v := range family {
				row = append(row, Num(v))
			}
		}
		return row
	})
}
