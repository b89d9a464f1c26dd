// MTS Cup - User Attribute Prediction Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mtscup

package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/mtscup/internal/features"
	"github.com/tomtom215/mtscup/internal/models"
	"github.com/tomtom215/mtscup/internal/normalize"
	"github.com/tomtom215/mtscup/internal/refdata"
	"github.com/tomtom215/mtscup/internal/urlclean"
	"github.com/tomtom215/mtscup/internal/vocab"
)

// FeatureResult holds the matrices built by BuildFeatures. Test is nil when
// no test corpus is configured.
type FeatureResult struct {
	Train *features.Matrix
	Test  *features.Matrix
}

// aggregators returns the configured aggregators in column order. The
// census family is only present when census rows are given.
func (p *Pipeline) aggregators(set *vocab.Set, prices vocab.PriceMeans, doc *refdata.Document, census []models.CensusRow) []features.Aggregator {
	fc := p.cfg.Features
	clean := urlclean.Default(doc.Hosts.Accelerators, fc.ProtectedHosts)

	aggs := []features.Aggregator{
		features.Device{Reference: doc.Resolve(set), Models: set.Get(vocab.Model), Prices: prices},
		features.Geo{},
		features.Time{},
		features.PartOfDay{},
		features.Usage{},
		features.URL{Hosts: doc.Hosts, TopN: fc.TopN, CombinationK: fc.CombinationK},
		features.URLText{Clean: clean},
		features.History{Clean: clean, Hosts: doc.Hosts},
	}
	if len(census) > 0 {
		profiles := features.RegionProfiles(census, set.Get(vocab.Region), doc.CensusRegion)
		aggs = append(aggs, features.Demographics{Profiles: profiles})
	}
	return aggs
}

// BuildFeatures normalizes the session corpora with the stored vocabulary,
// builds the per-user feature matrices and writes them. The train matrix has
// one row per labeled user; the test matrix one row per listed test user.
func (p *Pipeline) BuildFeatures(ctx context.Context) (*FeatureResult, error) {
	set, prices, err := p.loadVocab()
	if err != nil {
		return nil, fmt.Errorf("load vocabulary: %w", err)
	}
	doc, err := refdata.Load(p.cfg.Data.Reference)
	if err != nil {
		return nil, err
	}
	var census []models.CensusRow
	if p.cfg.Data.Census != "" {
		if census, err = p.db.LoadCensus(ctx, p.cfg.Data.Census); err != nil {
			return nil, err
		}
	}

	builder := features.NewBuilder(p.logger, parallelism(p.cfg.Features.Parallelism), p.aggregators(set, prices, doc, census)...)
	normalizer := normalize.New(set)

	labels, err := p.labels(ctx)
	if err != nil {
		return nil, err
	}
	trainUsers := make([]uint32, len(labels))
	for i, l := range labels {
		trainUsers[i] = l.UserID
	}

	result := &FeatureResult{}
	result.Train, err = p.buildMatrix(ctx, builder, normalizer, p.cfg.Data.TrainSessions, trainUsers)
	if err != nil {
		return nil, fmt.Errorf("build train features: %w", err)
	}
	if err := p.db.WriteMatrix(ctx, p.cfg.Features.TrainMatrix, result.Train); err != nil {
		return nil, err
	}

	if p.cfg.Data.TestSessions == "" || p.cfg.Features.TestMatrix == "" {
		p.logger.Info().Msg("No test corpus configured, skipping test features")
		return result, nil
	}
	testUsers, err := p.db.LoadUsers(ctx, p.cfg.Data.TestUsers)
	if err != nil {
		return nil, err
	}
	result.Test, err = p.buildMatrix(ctx, builder, normalizer, p.cfg.Data.TestSessions, testUsers)
	if err != nil {
		return nil, fmt.Errorf("build test features: %w", err)
	}
	if err := p.db.WriteMatrix(ctx, p.cfg.Features.TestMatrix, result.Test); err != nil {
		return nil, err
	}
	return result, nil
}

func (p *Pipeline) buildMatrix(ctx context.Context, builder *features.Builder, normalizer *normalize.Normalizer, glob string, users []uint32) (*features.Matrix, error) {
	start := time.Now()
	raw, err := p.db.LoadRawSessions(ctx, glob)
	if err != nil {
		return nil, err
	}
	corpus := features.NewCorpus(normalizer.Normalize(raw))

	m, err := builder.Build(ctx, corpus, users)
	if err != nil {
		return nil, err
	}
	p.logger.Info().
		Str("sessions", glob).
		Int("rows", corpus.Rows()).
		Int("users", m.Len()).
		Int("columns", len(m.Columns)).
		Dur("duration", time.Since(start)).
		Msg("Feature matrix built")
	return m, nil
}
