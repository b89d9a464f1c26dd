// MTS Cup - User Attribute Prediction Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mtscup

package features

import (
	"context"
	"strings"

	"github.com/tomtom215/mtscup/internal/urlclean"
)

// URLText derives text blobs of cleaned hosts and of their dotted tokens.
type URLText struct {
	Clean urlclean.Cleaner
}

// Name implements Aggregator.
func (URLText) Name() string { return "url_text" }

var urlTextColumns = []Column{
	TextColumn("urls_text"),
	TextColumn("urls_tokens"),
}

// Aggregate implements Aggregator.
func (a URLText) Aggregate(ctx context.Context, c *Corpus) (*Table, error) {
	clean := a.Clean
	if clean == nil {
		clean = urlclean.Identity
	}
	cleaned := c.MapHosts(clean)

	return perUser(ctx, a.Name(), urlTextColumns, cleaned, func(u *UserSessions) []Cell {
		hosts := make(map[string]struct{})
		tokens := make(map[string]struct{})
		for i := range u.Rows {
			host := u.Rows[i].URLHost
			if host == "" {
				continue
			}
			hosts[host] = struct{}{}
			for _, tok := range strings.Split(host, ".") {
				if tok != "" {
					tokens[tok] = struct{}{}
				}
			}
		}
		return []Cell{Str(joinSorted(hosts)), Str(joinSorted(tokens))}
	})
}
