// MTS Cup - User Attribute Prediction Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mtscup

package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"

	"github.com/tomtom215/mtscup/internal/evaluation"
	"github.com/tomtom215/mtscup/internal/logging"
	"github.com/tomtom215/mtscup/internal/modeling"
	"github.com/tomtom215/mtscup/internal/models"
)

// trainDataset reads the train matrix and aligns it with the labels.
func (p *Pipeline) trainDataset(ctx context.Context) (*modeling.Dataset, error) {
	m, err := p.db.ReadMatrix(ctx, p.cfg.Features.TrainMatrix)
	if err != nil {
		return nil, err
	}
	labels, err := p.labels(ctx)
	if err != nil {
		return nil, err
	}
	return modeling.NewDataset(m, labels, p.cfg.Pool)
}

// Train fits the fold models on the train matrix and saves the snapshot.
func (p *Pipeline) Train(ctx context.Context) ([]evaluation.Metrics, error) {
	if err := p.requireFactory(); err != nil {
		return nil, err
	}
	ds, err := p.trainDataset(ctx)
	if err != nil {
		return nil, err
	}
	splitter, err := p.splitter(ctx)
	if err != nil {
		return nil, err
	}

	cv := modeling.NewCrossValidator(p.modelingConfig(), p.factory, splitter, p.logger)
	per, err := cv.Fit(ctx, ds)
	if err != nil {
		return nil, err
	}
	if err := cv.Save(p.cfg.Training.SnapshotDir); err != nil {
		return nil, fmt.Errorf("save snapshot: %w", err)
	}
	p.logger.Info().Str("dir", p.cfg.Training.SnapshotDir).Msg("Snapshot saved")
	return per, nil
}

// Predict averages the snapshot models over the test matrix and writes the
// submission. A non-nil fold restricts prediction to that fold's models.
func (p *Pipeline) Predict(ctx context.Context, fold *int) ([]models.Prediction, error) {
	cv, err := p.restore(ctx)
	if err != nil {
		return nil, err
	}
	m, err := p.db.ReadMatrix(ctx, p.cfg.Features.TestMatrix)
	if err != nil {
		return nil, err
	}
	ds, err := modeling.NewDataset(m, nil, p.cfg.Pool)
	if err != nil {
		return nil, err
	}

	preds, err := cv.Predict(ctx, ds, fold)
	if err != nil {
		return nil, err
	}
	if err := p.db.WritePredictions(ctx, p.cfg.Output.Predictions, preds); err != nil {
		return nil, err
	}
	return preds, nil
}

// PredictOOF predicts every training user with the fold that held it out
// and writes the result with its fold column.
func (p *Pipeline) PredictOOF(ctx context.Context) ([]models.Prediction, error) {
	cv, err := p.restore(ctx)
	if err != nil {
		return nil, err
	}
	ds, err := p.trainDataset(ctx)
	if err != nil {
		return nil, err
	}

	preds, err := cv.PredictOOF(ctx, ds)
	if err != nil {
		return nil, err
	}
	if err := p.db.WritePredictions(ctx, p.cfg.Output.OOF, preds); err != nil {
		return nil, err
	}
	return preds, nil
}

// Importance returns the fold-averaged feature importances of task and,
// when an output path is configured, writes them as JSON.
func (p *Pipeline) Importance(ctx context.Context, task modeling.Task) ([]modeling.Importance, error) {
	cv, err := p.restore(ctx)
	if err != nil {
		return nil, err
	}
	fi, err := cv.FeatureImportances(ctx, task)
	if err != nil {
		return nil, err
	}

	path := p.cfg.Output.Importances
	if path == "" {
		return fi, nil
	}
	data, err := json.MarshalIndent(map[string]any{
		"task":        task.String(),
		"run_id":      logging.RunIDFromContext(ctx),
		"importances": fi,
	}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode importances: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create importances directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return nil, fmt.Errorf("write importances: %w", err)
	}
	return fi, nil
}
