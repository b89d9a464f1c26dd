// MTS Cup - User Attribute Prediction Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mtscup

package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/mtscup/internal/metrics"
	"github.com/tomtom215/mtscup/internal/models"
	"github.com/tomtom215/mtscup/internal/vocab"
)

// sessionGlobs returns the train glob and, when configured, the test glob.
func (p *Pipeline) sessionGlobs() []string {
	globs := []string{p.cfg.Data.TrainSessions}
	if p.cfg.Data.TestSessions != "" {
		globs = append(globs, p.cfg.Data.TestSessions)
	}
	return globs
}

// BuildVocab collects the distinct categorical values and device prices of
// every configured session corpus, builds the mapping tables and price
// means, and saves them to the store.
func (p *Pipeline) BuildVocab(ctx context.Context) (*vocab.Set, error) {
	start := time.Now()
	collector := vocab.NewCollector()
	rows := 0
	for _, glob := range p.sessionGlobs() {
		err := p.db.ScanRawSessions(ctx, glob, 0, func(batch []models.RawSession) error {
			collector.Add(batch)
			rows += len(batch)
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("collect vocabulary from %s: %w", glob, err)
		}
	}

	set := collector.Build()
	for _, name := range set.Names() {
		size := set.Get(name).Len()
		metrics.RecordVocabTable(name, size)
		p.logger.Debug().Str("table", name).Int("size", size).Msg("Built mapping table")
	}

	store, err := vocab.OpenStore(p.cfg.Vocab.Dir)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := store.Close(); err != nil {
			p.logger.Warn().Err(err).Msg("Failed to close vocabulary store")
		}
	}()
	if err := store.Save(set); err != nil {
		return nil, err
	}
	if err := store.SavePriceMeans(collector.PriceMeans(set)); err != nil {
		return nil, err
	}

	p.logger.Info().
		Int("sessions", rows).
		Int("tables", len(set.Names())).
		Str("dir", p.cfg.Vocab.Dir).
		Dur("duration", time.Since(start)).
		Msg("Vocabulary built")
	return set, nil
}

// loadVocab reads the mapping tables and price means written by BuildVocab.
func (p *Pipeline) loadVocab() (*vocab.Set, vocab.PriceMeans, error) {
	store, err := vocab.OpenStore(p.cfg.Vocab.Dir)
	if err != nil {
		return nil, vocab.PriceMeans{}, err
	}
	defer func() {
		if err := store.Close(); err != nil {
			p.logger.Warn().Err(err).Msg("Failed to close vocabulary store")
		}
	}()
	set, err := store.Load()
	if err != nil {
		return nil, vocab.PriceMeans{}, err
	}
	prices, err := store.LoadPriceMeans()
	if err != nil {
		return nil, vocab.PriceMeans{}, err
	}
	return set, prices, nil
}
