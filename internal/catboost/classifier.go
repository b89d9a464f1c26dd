// MTS Cup - User Attribute Prediction Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mtscup

// Package catboost implements the modeling.Classifier collaborator with
// CatBoost running in a Python child process.
//
// Every call renders a Python script from a template into the classifier's
// work directory, writes the pools it needs as tab separated files with a
// CatBoost column description, and runs the script through a Runner. Results
// (the model file, class probabilities, feature importances) are read back
// from files in the same directory.
package catboost

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/xh3b4sd/tracer"

	"github.com/tomtom215/mtscup/internal/modeling"
	"github.com/tomtom215/mtscup/internal/models"
)

// Factory creates CatBoost classifiers. It implements modeling.Factory.
type Factory struct {
	opts   Options
	runner Runner
	logger zerolog.Logger
}

// NewFactory validates opts and returns a factory. A nil runner uses a
// PythonRunner with opts.Python.
//
//nolint:gocritic // zerolog.Logger is passed by value per zerolog convention
func NewFactory(opts Options, runner Runner, logger zerolog.Logger) (*Factory, error) {
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid catboost options: %w", err)
	}
	if runner == nil {
		runner = PythonRunner{Binary: opts.Python}
	}
	return &Factory{
		opts:   opts,
		runner: runner,
		logger: logger.With().Str("component", "catboost").Logger(),
	}, nil
}

// New implements modeling.Factory.
func (f *Factory) New(task modeling.Task) (modeling.Classifier, error) {
	dir, err := f.workDir()
	if err != nil {
		return nil, err
	}
	return &Classifier{task: task, opts: f.opts, runner: f.runner, dir: dir, logger: f.logger}, nil
}

// Load implements modeling.Factory. The model file stays where it is.
func (f *Factory) Load(task modeling.Task, path string) (modeling.Classifier, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, tracer.Mask(err)
	}
	dir, err := f.workDir()
	if err != nil {
		return nil, err
	}
	return &Classifier{task: task, opts: f.opts, runner: f.runner, dir: dir, model: path, logger: f.logger}, nil
}

func (f *Factory) workDir() (string, error) {
	root := f.opts.WorkDir
	if root == "" {
		root = os.TempDir()
	}
	dir := filepath.Join(root, "catboost-"+uuid.New().String())
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", tracer.Mask(err)
	}
	return dir, nil
}

// Classifier is one CatBoost model bound to a work directory.
type Classifier struct {
	task   modeling.Task
	opts   Options
	runner Runner
	dir    string
	logger zerolog.Logger

	mu          sync.Mutex
	model       string
	importances map[string]float64
}

// Fit implements modeling.Classifier.
func (c *Classifier) Fit(ctx context.Context, train, eval *modeling.Pool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := writeColumnDescription(c.dir, train); err != nil {
		return err
	}
	if err := writePool(filepath.Join(c.dir, trainPoolFile), train); err != nil {
		return err
	}
	if err := writePool(filepath.Join(c.dir, evalPoolFile), eval); err != nil {
		return err
	}
	defer c.remove(trainPoolFile, evalPoolFile)

	model := filepath.Join(c.dir, modelFile)
	if err := c.run(ctx, modeFit, model); err != nil {
		return err
	}
	if _, err := os.Stat(model); err != nil {
		return tracer.Mask(err)
	}
	c.model = model

	fi, err := readImportances(filepath.Join(c.dir, importancesFile))
	if err != nil {
		return err
	}
	c.importances = fi
	return nil
}

// PredictProba implements modeling.Classifier. Sex rows hold the
// probabilities of labels 0 and 1; age rows hold buckets 1 through 6, with 0
// for buckets the model never saw.
func (c *Classifier) PredictProba(ctx context.Context, pool *modeling.Pool) ([][]float64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.model == "" {
		return nil, modeling.ErrNotFitted
	}
	if err := writeColumnDescription(c.dir, pool); err != nil {
		return nil, err
	}
	if err := writePool(filepath.Join(c.dir, predictPoolFile), pool); err != nil {
		return nil, err
	}
	defer c.remove(predictPoolFile, probaFile)

	if err := c.run(ctx, modePredict, c.model); err != nil {
		return nil, err
	}
	classes, proba, err := readProba(filepath.Join(c.dir, probaFile))
	if err != nil {
		return nil, err
	}
	if len(proba) != pool.Len() {
		return nil, fmt.Errorf("%w: %d probability rows for %d pool rows", modeling.ErrShapeMismatch, len(proba), pool.Len())
	}

	if c.task == modeling.TaskAge {
		return expand(classes, proba, models.NumAgeBuckets, 1)
	}
	return expand(classes, proba, 2, 0)
}

// Predict implements modeling.Classifier.
func (c *Classifier) Predict(ctx context.Context, pool *modeling.Pool) ([]int, error) {
	proba, err := c.PredictProba(ctx, pool)
	if err != nil {
		return nil, err
	}
	offset := 0
	if c.task == modeling.TaskAge {
		offset = 1
	}
	out := make([]int, len(proba))
	for i, row := range proba {
		best := 0
		for j, v := range row {
			if v > row[best] {
				best = j
			}
		}
		out[i] = best + offset
	}
	return out, nil
}

// Save implements modeling.Classifier by copying the model file to path.
func (c *Classifier) Save(path string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.model == "" {
		return modeling.ErrNotFitted
	}
	return copyFile(c.model, path)
}

// FeatureImportances implements modeling.Classifier. Loaded models compute
// their importances on first use.
func (c *Classifier) FeatureImportances(ctx context.Context) (map[string]float64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.importances != nil {
		return c.importances, nil
	}
	if c.model == "" {
		return nil, modeling.ErrNotFitted
	}
	if err := c.run(ctx, modeImportance, c.model); err != nil {
		return nil, err
	}
	fi, err := readImportances(filepath.Join(c.dir, importancesFile))
	if err != nil {
		return nil, err
	}
	c.importances = fi
	return fi, nil
}

// run renders the script for mode and executes it.
func (c *Classifier) run(ctx context.Context, mode, model string) error {
	script, err := render(newScriptData(mode, c.dir, model, c.task.LossFunction(), c.opts))
	if err != nil {
		return err
	}
	path := filepath.Join(c.dir, scriptFile)
	if err := os.WriteFile(path, script, 0o600); err != nil {
		return tracer.Mask(err)
	}

	c.logger.Debug().
		Str("task", c.task.String()).
		Str("mode", mode).
		Str("dir", c.dir).
		Msg("Running catboost script")

	if err := c.runner.Run(ctx, Job{Mode: mode, Dir: c.dir, Script: path, Model: model}); err != nil {
		return fmt.Errorf("catboost %s %s: %w", c.task, mode, err)
	}
	return nil
}

func (c *Classifier) remove(names ...string) {
	for _, name := range names {
		if err := os.Remove(filepath.Join(c.dir, name)); err != nil && !os.IsNotExist(err) {
			c.logger.Warn().Err(err).Str("file", name).Msg("Failed to remove work file")
		}
	}
}

func readImportances(path string) (map[string]float64, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is inside the classifier work directory
	if err != nil {
		return nil, tracer.Mask(err)
	}
	var fi map[string]float64
	if err := json.Unmarshal(data, &fi); err != nil {
		return nil, tracer.Mask(err)
	}
	return fi, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src) //nolint:gosec // src is the classifier's own model file
	if err != nil {
		return tracer.Mask(err)
	}
	defer func() { _ = in.Close() }()

	out, err := os.Create(dst) //nolint:gosec // dst is inside the snapshot directory
	if err != nil {
		return tracer.Mask(err)
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return tracer.Mask(err)
	}
	if err := out.Close(); err != nil {
		return tracer.Mask(err)
	}
	return nil
}
