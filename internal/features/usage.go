// MTS Cup - User Attribute Prediction Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mtscup

package features

import (
	"context"
	"maps"
	"slices"

	"github.com/tomtom215/mtscup/internal/models"
)

// userGroups holds one user's sessions grouped along every usage dimension.
// A session is a (date, part of day) pair, a daily visit a (date, host)
// pair, a partly visit a (part of day, host) pair, and a visit a (date,
// part of day, host) triple.
type userGroups struct {
	all          *groupStat
	byDate       map[int32]*groupStat
	byPart       map[models.Code]*groupStat
	byURL        map[string]*groupStat
	bySession    map[sessionKey]*groupStat
	byDailyVisit map[dailyVisitKey]*groupStat
	byPartly     map[partlyVisitKey]*groupStat
	byVisit      map[visitKey]float64
}

func groupUser(rows []models.Session) *userGroups {
	all := newGroupStat()
	for i := range rows {
		all.add(&rows[i])
	}
	return &userGroups{
		all:    all,
		byDate: groupBy(rows, dayNumber),
		byPart: groupBy(rows, partOf),
		byURL:  groupBy(rows, func(s *models.Session) string { return s.URLHost }),
		bySession: groupBy(rows, func(s *models.Session) sessionKey {
			return sessionKey{day: dayNumber(s), part: s.PartOfDayID}
		}),
		byDailyVisit: groupBy(rows, func(s *models.Session) dailyVisitKey {
			return dailyVisitKey{day: dayNumber(s), url: s.URLHost}
		}),
		byPartly: groupBy(rows, func(s *models.Session) partlyVisitKey {
			return partlyVisitKey{part: s.PartOfDayID, url: s.URLHost}
		}),
		byVisit: requestsBy(rows, func(s *models.Session) visitKey {
			return visitKey{day: dayNumber(s), part: s.PartOfDayID, url: s.URLHost}
		}),
	}
}

type usageStat struct {
	name  string
	value func(*userGroups) float64
}

func count[K comparable](u uniqueCount[K]) float64 { return float64(len(u)) }

func requestsOf(g *groupStat) float64     { return g.requests }
func datesOf(g *groupStat) float64        { return count(g.dates) }
func partsOf(g *groupStat) float64        { return count(g.parts) }
func urlsOf(g *groupStat) float64         { return count(g.urls) }
func sessionsOf(g *groupStat) float64     { return count(g.sessions) }
func dailyVisitsOf(g *groupStat) float64  { return count(g.dailyVisits) }
func partlyVisitsOf(g *groupStat) float64 { return count(g.partlyVisits) }

var usageStats = []usageStat{
	{"total_requests", func(u *userGroups) float64 { return u.all.requests }},
	{"total_dates", func(u *userGroups) float64 { return datesOf(u.all) }},
	{"total_parts_of_day", func(u *userGroups) float64 { return partsOf(u.all) }},
	{"total_urls", func(u *userGroups) float64 { return urlsOf(u.all) }},
	{"total_sessions", func(u *userGroups) float64 { return sessionsOf(u.all) }},
	{"total_daily_visits", func(u *userGroups) float64 { return dailyVisitsOf(u.all) }},
	{"total_partly_visits", func(u *userGroups) float64 { return partlyVisitsOf(u.all) }},
	{"total_visits", func(u *userGroups) float64 { return count(u.all.visits) }},

	{"avg_requests_per_date", func(u *userGroups) float64 { return meanOver(u.byDate, requestsOf) }},
	{"avg_parts_of_day_per_date", func(u *userGroups) float64 { return meanOver(u.byDate, partsOf) }},
	{"avg_urls_per_date", func(u *userGroups) float64 { return meanOver(u.byDate, urlsOf) }},
	{"avg_partly_visits_per_date", func(u *userGroups) float64 { return meanOver(u.byDate, partlyVisitsOf) }},

	{"avg_requests_per_part_of_day", func(u *userGroups) float64 { return meanOver(u.byPart, requestsOf) }},
	{"avg_dates_per_part_of_day", func(u *userGroups) float64 { return meanOver(u.byPart, datesOf) }},
	{"avg_urls_per_part_of_day", func(u *userGroups) float64 { return meanOver(u.byPart, urlsOf) }},
	{"avg_daily_visits_per_part_of_day", func(u *userGroups) float64 { return meanOver(u.byPart, dailyVisitsOf) }},

	{"avg_requests_per_url", func(u *userGroups) float64 { return meanOver(u.byURL, requestsOf) }},
	{"avg_dates_per_url", func(u *userGroups) float64 { return meanOver(u.byURL, datesOf) }},
	{"avg_parts_of_day_per_url", func(u *userGroups) float64 { return meanOver(u.byURL, partsOf) }},
	{"avg_sessions_per_url", func(u *userGroups) float64 { return meanOver(u.byURL, sessionsOf) }},

	{"avg_requests_per_session", func(u *userGroups) float64 { return meanOver(u.bySession, requestsOf) }},
	{"avg_urls_per_session", func(u *userGroups) float64 { return meanOver(u.bySession, urlsOf) }},

	{"avg_requests_per_daily_visit", func(u *userGroups) float64 { return meanOver(u.byDailyVisit, requestsOf) }},
	{"avg_parts_of_day_per_daily_visit", func(u *userGroups) float64 { return meanOver(u.byDailyVisit, partsOf) }},

	{"avg_requests_per_partly_visit", func(u *userGroups) float64 { return meanOver(u.byPartly, requestsOf) }},
	{"avg_dates_per_partly_visit", func(u *userGroups) float64 { return meanOver(u.byPartly, datesOf) }},

	{"avg_requests_per_visit", func(u *userGroups) float64 {
		return meanOf(slices.Collect(maps.Values(u.byVisit)))
	}},
}

func usageColumns(prefix string) []Column {
	cols := make([]Column, len(usageStats))
	for i, s := range usageStats {
		cols[i] = NumericColumn(prefix+s.name, Num(0))
	}
	return cols
}

func usageCells(g *userGroups) []Cell {
	row := make([]Cell, len(usageStats))
	for i, s := range usageStats {
		row[i] = Num(s.value(g))
	}
	return row
}

// Usage derives activity totals and per group averages.
type Usage struct{}

// Name implements Aggregator.
func (Usage) Name() string { return "usage" }

// Aggregate implements Aggregator.
func (a Usage) Aggregate(ctx context.Context, c *Corpus) (*Table, error) {
	return perUser(ctx, a.Name(), usageColumns("usage_"), c, func(u *UserSessions) []Cell {
		return usageCells(groupUser(u.Rows))
	})
}
