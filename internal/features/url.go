// MTS Cup - User Attribute Prediction Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mtscup

package features

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/tomtom215/mtscup/internal/models"
	"github.com/tomtom215/mtscup/internal/refdata"
	"github.com/tomtom215/mtscup/internal/vocab"
)

// Defaults for the URL aggregator.
const (
	DefaultTopURLs       = 120
	DefaultCombinationK  = 2
	combinationSeparator = vocab.CompoundSeparator
)

func hostStatsColumns(prefix string) []Column {
	return []Column{
		NumericColumn(prefix+"avg_chars_in_url", Num(0)),
		NumericColumn(prefix+"avg_domains_in_url", Num(0)),
		NumericColumn(prefix+"yandex_turbo_share", Num(0)),
		NumericColumn(prefix+"google_turbo_share", Num(0)),
		NumericColumn(prefix+"mobile_share", Num(0)),
	}
}

// hostStats averages shape statistics over the distinct non-empty hosts of
// rows.
func hostStats(rows []models.Session, markers refdata.HostMarkers) []Cell {
	hosts := make(map[string]struct{})
	for i := range rows {
		if h := rows[i].URLHost; h != "" {
			hosts[h] = struct{}{}
		}
	}

	var chars, domains, yandex, google, mobile float64
	for host := range hosts {
		labels := strings.Split(host, ".")
		chars += float64(utf8.RuneCountInString(host))
		domains += float64(len(labels))
		if markers.YandexTurboSuffix != "" && strings.HasSuffix(host, markers.YandexTurboSuffix) {
			yandex++
		}
		if markers.GoogleTurboSuffix != "" && strings.HasSuffix(host, markers.GoogleTurboSuffix) {
			google++
		}
		for _, l := range labels {
			if markers.MobileLabel != "" && l == markers.MobileLabel {
				mobile++
				break
			}
		}
	}

	n := len(hosts)
	return []Cell{
		Num(mean(chars, n)),
		Num(mean(domains, n)),
		Num(mean(yandex, n)),
		Num(mean(google, n)),
		Num(mean(mobile, n)),
	}
}

// URL derives host statistics, the ranked list of top hosts, and host text
// blobs for text features.
type URL struct {
	Hosts refdata.HostMarkers
	// TopN is the number of url_top_<i>_url columns.
	TopN int
	// CombinationK adds the url_all_visited_urls_k_<k> column when >= 2.
	CombinationK int
}

// Name implements Aggregator.
func (URL) Name() string { return "url" }

func (a URL) columns() []Column {
	cols := hostStatsColumns("url_")
	for i := 1; i <= a.TopN; i++ {
		cols = append(cols, CategoricalColumn(fmt.Sprintf("url_top_%d_url", i), Str("")))
	}
	cols = append(cols, TextColumn("url_all_visited_urls"))
	if a.CombinationK >= 2 {
		cols = append(cols, TextColumn(fmt.Sprintf("url_all_visited_urls_k_%d", a.CombinationK)))
	}
	return cols
}

// Aggregate implements Aggregator.
func (a URL) Aggregate(ctx context.Context, c *Corpus) (*Table, error) {
	if a.TopN < 0 {
		return nil, fmt.Errorf("top urls must not be negative, got %d", a.TopN)
	}
	if a.CombinationK > MaxCombinationSize {
		return nil, fmt.Errorf("combination size %d exceeds %d", a.CombinationK, MaxCombinationSize)
	}

	return perUser(ctx, a.Name(), a.columns(), c, func(u *UserSessions) []Cell {
		row := hostStats(u.Rows, a.Hosts)

		// An empty host is a null in the source; "" pads the top list.
		counts := requestsBy(u.Rows, func(s *models.Session) string { return s.URLHost })
		delete(counts, "")
		for _, host := range topN(counts, a.TopN) {
			row = append(row, Str(host))
		}
		row = append(row, Str(strings.Join(ranked(counts), " ")))

		if a.CombinationK >= 2 {
			hosts := make(map[string]struct{}, len(counts))
			for h := range counts {
				hosts[h] = struct{}{}
			}
			combos := combinations(sortedSet(hosts), a.CombinationK, combinationSeparator)
			row = append(row, Str(strings.Join(combos, " ")))
		}
		return row
	})
}
