// MTS Cup - User Attribute Prediction Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mtscup

package features

import (
	"context"
	"math"
	"time"

	"github.com/tomtom215/mtscup/internal/models"
)

const dateLayout = "2006-01-02"

// Time derives the activity period and the part-of-day request profile.
type Time struct{}

// Name implements Aggregator.
func (Time) Name() string { return "time" }

var timeColumns = func() []Column {
	cols := []Column{
		CategoricalColumn("time_first_day", Str("")),
		CategoricalColumn("time_last_day", Str("")),
		NumericColumn("time_total_days", Int(0)),
		CategoricalColumn("time_first_month", Str("")),
		CategoricalColumn("time_last_month", Str("")),
		NumericColumn("time_total_months", Int(0)),
		CategoricalColumn("time_first_year", Str("")),
		CategoricalColumn("time_last_year", Str("")),
		NumericColumn("time_total_years", Int(0)),
		CategoricalColumn("time_top_part_of_day", Null),
	}
	for _, part := range models.PartsOfDay {
		cols = append(cols, NumericColumn("time_part_of_day_"+part+"_requests_share", Num(0)))
	}
	return cols
}()

func truncateMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

func truncateYear(t time.Time) time.Time {
	return time.Date(t.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
}

func daysBetween(from, to time.Time) float64 {
	return math.Round(to.Sub(from).Hours() / 24)
}

func partOf(s *models.Session) models.Code { return s.PartOfDayID }

// Aggregate implements Aggregator.
func (a Time) Aggregate(ctx context.Context, c *Corpus) (*Table, error) {
	return perUser(ctx, a.Name(), timeColumns, c, func(u *UserSessions) []Cell {
		first, last := u.Rows[0].Date, u.Rows[0].Date
		for i := range u.Rows {
			d := u.Rows[i].Date
			if d.Before(first) {
				first = d
			}
			if d.After(last) {
				last = d
			}
		}
		first = time.Date(first.Year(), first.Month(), first.Day(), 0, 0, 0, 0, time.UTC)
		last = time.Date(last.Year(), last.Month(), last.Day(), 0, 0, 0, 0, time.UTC)
		firstMonth, lastMonth := truncateMonth(first), truncateMonth(last)
		firstYear, lastYear := truncateYear(first), truncateYear(last)

		requests := requestsBy(u.Rows, partOf)
		top, _, _ := dominant(requests)

		row := []Cell{
			Str(first.Format(dateLayout)),
			Str(last.Format(dateLayout)),
			Num(daysBetween(first, last) + 1),
			Str(firstMonth.Format(dateLayout)),
			Str(lastMonth.Format(dateLayout)),
			Num(math.Round(daysBetween(firstMonth, lastMonth)/30) + 1),
			Str(firstYear.Format(dateLayout)),
			Str(lastYear.Format(dateLayout)),
			Num(math.Round(daysBetween(firstYear, lastYear)/365) + 1),
			CodeCell(top),
		}
		for _, v := range distribution(requests, len(models.PartsOfDay)) {
			row = append(row, Num(v))
		}
		return row
	})
}
