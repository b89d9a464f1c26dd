// MTS Cup - User Attribute Prediction Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mtscup

package features

import (
	"sort"

	"github.com/tomtom215/mtscup/internal/models"
)

// UserSessions holds the sessions of one user.
type UserSessions struct {
	UserID uint32
	Rows   []models.Session
}

// Corpus is the canonical session log grouped by user, ascending.
// Aggregators only read it.
type Corpus struct {
	Users []UserSessions
	rows  int
}

// NewCorpus groups sessions by user. Row order within a user is preserved.
func NewCorpus(sessions []models.Session) *Corpus {
	sorted := make([]models.Session, len(sessions))
	copy(sorted, sessions)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].UserID < sorted[j].UserID })

	c := &Corpus{rows: len(sorted)}
	for start := 0; start < len(sorted); {
		end := start
		for end < len(sorted) && sorted[end].UserID == sorted[start].UserID {
			end++
		}
		c.Users = append(c.Users, UserSessions{UserID: sorted[start].UserID, Rows: sorted[start:end:end]})
		start = end
	}
	return c
}

// UserIDs returns every distinct user, ascending.
func (c *Corpus) UserIDs() []uint32 {
	ids := make([]uint32, len(c.Users))
	for i, u := range c.Users {
		ids[i] = u.UserID
	}
	return ids
}

// Rows returns the number of sessions.
func (c *Corpus) Rows() int {
	return c.rows
}

// MapHosts returns a corpus whose hosts are rewritten by clean. Each
// distinct host is cleaned once.
func (c *Corpus) MapHosts(clean func(string) string) *Corpus {
	cache := make(map[string]string)
	out := &Corpus{Users: make([]UserSessions, len(c.Users)), rows: c.rows}
	for i, u := range c.Users {
		rows := make([]models.Session, len(u.Rows))
		for j, s := range u.Rows {
			cleaned, ok := cache[s.URLHost]
			if !ok {
				cleaned = clean(s.URLHost)
				cache[s.URLHost] = cleaned
			}
			s.URLHost = cleaned
			rows[j] = s
		}
		out.Users[i] = UserSessions{UserID: u.UserID, Rows: rows}
	}
	return out
}
