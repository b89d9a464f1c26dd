// MTS Cup - User Attribute Prediction Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mtscup

package features

import (
	"context"

	"github.com/tomtom215/mtscup/internal/models"
	"github.com/tomtom215/mtscup/internal/refdata"
	"github.com/tomtom215/mtscup/internal/urlclean"
)

const historyPrefix = "history_"

// History recomputes host and usage statistics over cleaned hosts, so that
// hosts sharing a cleaned form count as one site.
type History struct {
	Clean urlclean.Cleaner
	Hosts refdata.HostMarkers
}

// Name implements Aggregator.
func (History) Name() string { return "history" }

var historyColumns = func() []Column {
	cols := hostStatsColumns(historyPrefix)
	cols = append(cols, usageColumns(historyPrefix)...)
	for _, part := range models.PartsOfDay {
		cols = append(cols, NumericColumn(historyPrefix+"part_of_day_"+part+"_requests_share", Num(0)))
	}
	return append(cols, CategoricalColumn(historyPrefix+"top_part_of_day", Null))
}()

// Aggregate implements Aggregator.
func (a History) Aggregate(ctx context.Context, c *Corpus) (*Table, error) {
	clean := a.Clean
	if clean == nil {
		clean = urlclean.Identity
	}
	cleaned := c.MapHosts(clean)

	return perUser(ctx, a.Name(), historyColumns, cleaned, func(u *UserSessions) []Cell {
		row := hostStats(u.Rows, a.Hosts)
		row = append(row, usageCells(groupUser(u.Rows))...)

		requests := requestsBy(u.Rows, partOf)
		for _, v := range distribution(requests, len(models.PartsOfDay)) {
			row = append(row, Num(v))
		}
		top, _, _ := dominant(requests)
		return append(row, CodeCell(top))
	})
}
