// MTS Cup - User Attribute Prediction Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mtscup

/*
Package pipeline wires the stages together for the command line.

The stages run as separate commands and hand over through files:

	vocab       raw sessions (train + test)  -> badger vocabulary store
	features    raw sessions + vocabulary    -> train/test feature matrices
	train       train matrix + labels        -> fold model snapshot
	predict     test matrix + snapshot       -> submission
	oof         train matrix + snapshot      -> out-of-fold predictions
	importance  snapshot                     -> averaged feature importances

The vocabulary is built once over both corpora, so train and test sessions
share one code space.
*/
package pipeline

import (
	"context"
	"errors"
	"runtime"

	"github.com/rs/zerolog"

	"github.com/tomtom215/mtscup/internal/config"
	"github.com/tomtom215/mtscup/internal/database"
	"github.com/tomtom215/mtscup/internal/folds"
	"github.com/tomtom215/mtscup/internal/modeling"
	"github.com/tomtom215/mtscup/internal/models"
	"github.com/tomtom215/mtscup/internal/normalize"
)

// ErrNoFactory is returned by model stages when the pipeline has no
// classifier factory.
var ErrNoFactory = errors.New("pipeline: no classifier factory configured")

// Pipeline runs pipeline stages against one configuration.
type Pipeline struct {
	cfg     *config.Config
	db      *database.DB
	factory modeling.Factory
	logger  zerolog.Logger
}

// New creates a pipeline. factory may be nil for the vocab and features
// stages.
//
//nolint:gocritic // zerolog.Logger is passed by value per zerolog convention
func New(cfg *config.Config, db *database.DB, factory modeling.Factory, logger zerolog.Logger) *Pipeline {
	return &Pipeline{
		cfg:     cfg,
		db:      db,
		factory: factory,
		logger:  logger.With().Str("component", "pipeline").Logger(),
	}
}

// splitter returns the configured fold splitter.
func (p *Pipeline) splitter(ctx context.Context) (folds.Splitter, error) {
	v := p.cfg.Validation
	if v.ManualFolds != "" {
		manual, err := p.db.LoadManualFolds(ctx, v.ManualFolds, v.Folds)
		if err != nil {
			return nil, err
		}
		p.logger.Info().Str("path", v.ManualFolds).Int("folds", v.Folds).Msg("Using manual folds")
		return manual, nil
	}
	return folds.KFold{K: v.Folds, Seed: v.Seed}, nil
}

func (p *Pipeline) modelingConfig() modeling.Config {
	return modeling.Config{
		Pool:        p.cfg.Pool,
		Parallelism: p.cfg.Training.Parallelism,
	}
}

func (p *Pipeline) requireFactory() error {
	if p.factory == nil {
		return ErrNoFactory
	}
	return nil
}

// labels loads and normalizes the training targets.
func (p *Pipeline) labels(ctx context.Context) ([]models.Label, error) {
	raw, err := p.db.LoadLabels(ctx, p.cfg.Data.Labels)
	if err != nil {
		return nil, err
	}
	return normalize.Labels(raw), nil
}

// restore loads the fold snapshot.
func (p *Pipeline) restore(ctx context.Context) (*modeling.CrossValidator, error) {
	if err := p.requireFactory(); err != nil {
		return nil, err
	}
	splitter, err := p.splitter(ctx)
	if err != nil {
		return nil, err
	}
	return modeling.Restore(p.cfg.Training.SnapshotDir, p.modelingConfig(), p.factory, splitter, p.logger)
}

func parallelism(n int) int {
	if n <= 0 {
		return runtime.NumCPU()
	}
	return n
}
