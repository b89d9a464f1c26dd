// MTS Cup - User Attribute Prediction Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mtscup

package features

import (
	"cmp"
	"maps"
	"slices"
	"sort"
	"strings"

	"gonum.org/v1/gonum/stat"

	"github.com/tomtom215/mtscup/internal/models"
)

// MaxCombinationSize bounds the k of k-combination text features.
const MaxCombinationSize = 3

// share divides part by total. A zero total yields 0.
func share(part, total float64) float64 {
	if total == 0 {
		return 0
	}
	return part / total
}

// mean returns sum/n, or 0 for an empty group.
func mean(sum float64, n int) float64 {
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// dominant returns the key with the largest count. Equal counts resolve to
// the largest key, matching a sort by (count, key) followed by taking the
// last element.
func dominant[K cmp.Ordered](counts map[K]float64) (key K, count float64, ok bool) {
	for k, c := range counts {
		if !ok || c > count || (c == count && k > key) {
			key, count, ok = k, c, true
		}
	}
	return key, count, ok
}

// distribution returns the share of each code in 0..n-1 over the total of
// those codes. Unobserved codes get 0; NoCode and out-of-range codes are
// ignored.
func distribution(counts map[models.Code]float64, n int) []float64 {
	out := make([]float64, n)
	var total float64
	for code, c := range counts {
		if code.Valid() && int(code) < n {
			total += c
		}
	}
	for code, c := range counts {
		if code.Valid() && int(code) < n {
			out[code] = share(c, total)
		}
	}
	return out
}

// ranked orders keys by count descending, then key ascending.
func ranked(counts map[string]float64) []string {
	keys := slices.Collect(maps.Keys(counts))
	sort.Slice(keys, func(i, j int) bool {
		ci, cj := counts[keys[i]], counts[keys[j]]
		if ci != cj {
			return ci > cj
		}
		return keys[i] < keys[j]
	})
	return keys
}

// topN returns the first n ranked keys, padded with "" up to n.
func topN(counts map[string]float64, n int) []string {
	keys := ranked(counts)
	out := make([]string, n)
	copy(out, keys)
	return out
}

// sortedSet returns the members of set, ascending.
func sortedSet[K cmp.Ordered](set map[K]struct{}) []K {
	return slices.Sorted(maps.Keys(set))
}

// joinSorted joins the members of set with single spaces.
func joinSorted(set map[string]struct{}) string {
	return strings.Join(sortedSet(set), " ")
}

// combinations returns every k-subset of items, in lexicographic order of
// positions, each joined by sep. items must already be sorted and distinct.
func combinations(items []string, k int, sep string) []string {
	if k <= 0 || k > len(items) {
		return nil
	}
	var out []string
	idx := make([]int, k)
	for i := range idx {
		idx[i] = i
	}
	parts := make([]string, k)
	for {
		for i, p := range idx {
			parts[i] = items[p]
		}
		out = append(out, strings.Join(parts, sep))

		i := k - 1
		for i >= 0 && idx[i] == len(items)-k+i {
			i--
		}
		if i < 0 {
			return out
		}
		idx[i]++
		for j := i + 1; j < k; j++ {
			idx[j] = idx[j-1] + 1
		}
	}
}

// uniqueCount counts distinct keys.
type uniqueCount[K comparable] map[K]struct{}

func (u uniqueCount[K]) add(k K) { u[k] = struct{}{} }

// groupStat accumulates a request sum and distinct sets for one group.
type groupStat struct {
	requests     float64
	dates        uniqueCount[int32]
	parts        uniqueCount[models.Code]
	urls         uniqueCount[string]
	sessions     uniqueCount[sessionKey]
	dailyVisits  uniqueCount[dailyVisitKey]
	partlyVisits uniqueCount[partlyVisitKey]
	visits       uniqueCount[visitKey]
}

func newGroupStat() *groupStat {
	return &groupStat{
		dates:        make(uniqueCount[int32]),
		parts:        make(uniqueCount[models.Code]),
		urls:         make(uniqueCount[string]),
		sessions:     make(uniqueCount[sessionKey]),
		dailyVisits:  make(uniqueCount[dailyVisitKey]),
		partlyVisits: make(uniqueCount[partlyVisitKey]),
		visits:       make(uniqueCount[visitKey]),
	}
}

func (g *groupStat) add(s *models.Session) {
	day := dayNumber(s)
	g.requests += float64(s.RequestCnt)
	g.dates.add(day)
	g.parts.add(s.PartOfDayID)
	g.urls.add(s.URLHost)
	g.sessions.add(sessionKey{day: day, part: s.PartOfDayID})
	g.dailyVisits.add(dailyVisitKey{day: day, url: s.URLHost})
	g.partlyVisits.add(partlyVisitKey{part: s.PartOfDayID, url: s.URLHost})
	g.visits.add(visitKey{day: day, part: s.PartOfDayID, url: s.URLHost})
}

// groupBy accumulates groupStats keyed by key(s).
func groupBy[K comparable](rows []models.Session, key func(*models.Session) K) map[K]*groupStat {
	groups := make(map[K]*groupStat)
	for i := range rows {
		s := &rows[i]
		k := key(s)
		g, ok := groups[k]
		if !ok {
			g = newGroupStat()
			groups[k] = g
		}
		g.add(s)
	}
	return groups
}

// meanOver averages f over the groups.
func meanOver[K comparable](groups map[K]*groupStat, f func(*groupStat) float64) float64 {
	vals := make([]float64, 0, len(groups))
	for _, g := range groups {
		vals = append(vals, f(g))
	}
	return meanOf(vals)
}

// meanOf returns the mean of vals, or 0 when empty. vals is sorted in place
// so the result does not depend on map iteration order.
func meanOf(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	slices.Sort(vals)
	return stat.Mean(vals, nil)
}

type sessionKey struct {
	day  int32
	part models.Code
}

type dailyVisitKey struct {
	day int32
	url string
}

type partlyVisitKey struct {
	part models.Code
	url  string
}

type visitKey struct {
	day  int32
	part models.Code
	url  string
}

// dayNumber returns days since the Unix epoch of the session date.
func dayNumber(s *models.Session) int32 {
	return int32(s.Date.Unix() / 86400)
}

func requestsBy[K comparable](rows []models.Session, key func(*models.Session) K) map[K]float64 {
	out := make(map[K]float64)
	for i := range rows {
		out[key(&rows[i])] += float64(rows[i].RequestCnt)
	}
	return out
}
