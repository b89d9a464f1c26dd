// MTS Cup - User Attribute Prediction Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mtscup

package features

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/tomtom215/mtscup/internal/metrics"
)

// Aggregator produces one per-user feature table from a corpus.
// Implementations must not modify the corpus.
type Aggregator interface {
	Name() string
	Aggregate(ctx context.Context, c *Corpus) (*Table, error)
}

// ctxCheckInterval is how many users are processed between context checks.
const ctxCheckInterval = 4096

// perUser builds a table by applying row to every user of c.
func perUser(ctx context.Context, name string, columns []Column, c *Corpus, row func(u *UserSessions) []Cell) (*Table, error) {
	t := NewTable(name, columns)
	for i := range c.Users {
		if i%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		u := &c.Users[i]
		if err := t.Set(u.UserID, row(u)); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// Builder runs aggregators concurrently and joins their outputs.
type Builder struct {
	aggregators []Aggregator
	parallelism int
	logger      zerolog.Logger
}

// NewBuilder creates a builder. A parallelism below 1 runs one aggregator
// at a time.
//
//nolint:gocritic // zerolog.Logger is passed by value per zerolog convention
func NewBuilder(logger zerolog.Logger, parallelism int, aggregators ...Aggregator) *Builder {
	if parallelism < 1 {
		parallelism = 1
	}
	return &Builder{
		aggregators: aggregators,
		parallelism: parallelism,
		logger:      logger.With().Str("component", "features").Logger(),
	}
}

// Build runs every aggregator over c and left joins the results onto users.
// When users is nil the corpus users are used. Columns follow the
// registration order of the aggregators.
func (b *Builder) Build(ctx context.Context, c *Corpus, users []uint32) (*Matrix, error) {
	if users == nil {
		users = c.UserIDs()
	}

	tables := make([]*Table, len(b.aggregators))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.parallelism)

	for i, agg := range b.aggregators {
		g.Go(func() error {
			start := time.Now()
			t, err := agg.Aggregate(gctx, c)
			rows := 0
			if t != nil {
				rows = t.Len()
			}
			metrics.RecordAggregator(agg.Name(), time.Since(start), rows, err)
			if err != nil {
				return fmt.Errorf("aggregator %s: %w", agg.Name(), err)
			}

			b.logger.Debug().
				Str("aggregator", agg.Name()).
				Int("rows", rows).
				Int("columns", len(t.Columns())).
				Dur("duration", time.Since(start)).
				Msg("Aggregator finished")
			tables[i] = t
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	m, err := Join(users, tables...)
	if err != nil {
		return nil, err
	}
	b.logger.Info().
		Int("users", m.Len()).
		Int("columns", len(m.Columns)).
		Int("sessions", c.Rows()).
		Msg("Feature matrix built")
	return m, nil
}
