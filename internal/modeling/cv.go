// MTS Cup - User Attribute Prediction Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mtscup

package modeling

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/tomtom215/mtscup/internal/evaluation"
	"github.com/tomtom215/mtscup/internal/folds"
	"github.com/tomtom215/mtscup/internal/metrics"
	"github.com/tomtom215/mtscup/internal/models"
)

// FoldState is the lifecycle position of one fold.
type FoldState int

const (
	FoldNotStarted FoldState = iota
	FoldTrainingSex
	FoldTrainingAge
	FoldEvaluated
	FoldSaved
	FoldDiscarded
)

// String returns the state name.
func (s FoldState) String() string {
	switch s {
	case FoldNotStarted:
		return "not_started"
	case FoldTrainingSex:
		return "training_sex"
	case FoldTrainingAge:
		return "training_age"
	case FoldEvaluated:
		return "evaluated"
	case FoldSaved:
		return "saved"
	case FoldDiscarded:
		return "discarded"
	default:
		return "unknown"
	}
}

// FoldModel is the model pair trained on one fold with its validation
// metrics.
type FoldModel struct {
	Index   int
	Sex     Classifier
	Age     Classifier
	Metrics evaluation.Metrics
	State   FoldState
}

// Config configures a CrossValidator.
type Config struct {
	// Pool selects the columns handed to classifiers.
	Pool PoolOptions

	// Parallelism is the number of folds trained at once. Values below 1
	// train folds sequentially.
	Parallelism int
}

// CrossValidator trains one sex and one age classifier per fold and
// combines them into an ensemble. It is safe for concurrent prediction once
// fitted.
type CrossValidator struct {
	cfg      Config
	factory  Factory
	splitter folds.Splitter
	logger   zerolog.Logger

	mu    sync.RWMutex
	folds []*FoldModel
}

// NewCrossValidator creates an unfitted cross validator.
//
//nolint:gocritic // zerolog.Logger is passed by value per zerolog convention
func NewCrossValidator(cfg Config, factory Factory, splitter folds.Splitter, logger zerolog.Logger) *CrossValidator {
	if cfg.Parallelism < 1 {
		cfg.Parallelism = 1
	}
	return &CrossValidator{
		cfg:      cfg,
		factory:  factory,
		splitter: splitter,
		logger:   logger.With().Str("component", "trainer").Logger(),
	}
}

// Config returns the configuration.
func (cv *CrossValidator) Config() Config {
	return cv.cfg
}

// Folds returns the committed fold models, ordered by fold index.
func (cv *CrossValidator) Folds() []*FoldModel {
	cv.mu.RLock()
	defer cv.mu.RUnlock()
	return append([]*FoldModel(nil), cv.folds...)
}

// Metrics returns the validation metrics of every committed fold.
func (cv *CrossValidator) Metrics() []evaluation.Metrics {
	cv.mu.RLock()
	defer cv.mu.RUnlock()
	out := make([]evaluation.Metrics, len(cv.folds))
	for i, f := range cv.folds {
		out[i] = f.Metrics
	}
	return out
}

// Fit trains every fold on ds and returns the per-fold metrics. The models
// of a previous fit stay in place unless every fold succeeds.
func (cv *CrossValidator) Fit(ctx context.Context, ds *Dataset) ([]evaluation.Metrics, error) {
	splits, err := cv.splitter.Split(ds.Users())
	if err != nil {
		return nil, fmt.Errorf("split folds: %w", err)
	}
	if err := folds.Check(splits, ds.Len()); err != nil {
		return nil, err
	}

	cv.logger.Info().
		Int("folds", len(splits)).
		Int("rows", ds.Len()).
		Int("columns", len(ds.columns)).
		Int("parallelism", cv.cfg.Parallelism).
		Msg("Cross-validation started")

	trained := make([]*FoldModel, len(splits))
	for i, split := range splits {
		trained[i] = &FoldModel{Index: split.Index, State: FoldNotStarted}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cv.cfg.Parallelism)
	for i, split := range splits {
		g.Go(func() error {
			return cv.trainFold(gctx, ds, split, trained[i])
		})
	}
	if err := g.Wait(); err != nil {
		for _, fm := range trained {
			fm.State = FoldDiscarded
		}
		metrics.RecordFoldFailure()
		cv.logger.Error().Err(err).Msg("Cross-validation abandoned")
		return nil, err
	}

	cv.mu.Lock()
	cv.folds = trained
	cv.mu.Unlock()

	out := cv.Metrics()
	cv.logSummary(out)
	return out, nil
}

// trainFold walks one fold through its training states.
func (cv *CrossValidator) trainFold(ctx context.Context, ds *Dataset, split folds.Fold, fm *FoldModel) error {
	logger := cv.logger.With().Int("fold", split.Index).Logger()
	train, valid := ds.Subset(split.Train), ds.Subset(split.Validation)

	fm.State = FoldTrainingSex
	sexValid := valid.SexPool()
	sex, err := cv.fitTask(ctx, TaskSex, train.SexPool(), sexValid, logger)
	if err != nil {
		return fmt.Errorf("fold %d: %w", split.Index, err)
	}
	fm.Sex = sex

	fm.State = FoldTrainingAge
	ageValid := valid.AgePool()
	age, err := cv.fitTask(ctx, TaskAge, train.AgePool(), ageValid, logger)
	if err != nil {
		return fmt.Errorf("fold %d: %w", split.Index, err)
	}
	fm.Age = age

	m, err := evaluateFold(ctx, sex, age, sexValid, ageValid)
	if err != nil {
		return fmt.Errorf("fold %d: evaluate: %w", split.Index, err)
	}
	fm.Metrics = m
	fm.State = FoldEvaluated

	metrics.SetFoldMetric(split.Index, "sex_roc_auc", m.SexROCAUC)
	metrics.SetFoldMetric(split.Index, "age_f1_weighted", m.AgeF1Weighted)
	metrics.SetFoldMetric(split.Index, "score", m.Score)

	logger.Info().
		Float64("sex_roc_auc", m.SexROCAUC).
		Float64("age_f1_weighted", m.AgeF1Weighted).
		Float64("score", m.Score).
		Msg("Fold evaluated")
	return nil
}

//nolint:gocritic // zerolog.Logger is passed by value per zerolog convention
func (cv *CrossValidator) fitTask(ctx context.Context, task Task, train, valid *Pool, logger zerolog.Logger) (Classifier, error) {
	clf, err := cv.factory.New(task)
	if err != nil {
		return nil, fmt.Errorf("create %s classifier: %w", task, err)
	}

	logger.Info().
		Str("task", task.String()).
		Int("train_rows", train.Len()).
		Int("valid_rows", valid.Len()).
		Msg("Training started")

	start := time.Now()
	if err := clf.Fit(ctx, train, valid); err != nil {
		return nil, fmt.Errorf("fit %s classifier: %w", task, err)
	}
	metrics.RecordFoldTraining(task.String(), time.Since(start))

	logger.Info().
		Str("task", task.String()).
		Dur("duration", time.Since(start)).
		Msg("Training finished")
	return clf, nil
}

// evaluateFold scores the validation pools of a fold.
func evaluateFold(ctx context.Context, sex, age Classifier, sexValid, ageValid *Pool) (evaluation.Metrics, error) {
	proba, err := sex.PredictProba(ctx, sexValid)
	if err != nil {
		return evaluation.Metrics{}, fmt.Errorf("predict sex: %w", err)
	}
	isMale, err := averageSex([][][]float64{proba})
	if err != nil {
		return evaluation.Metrics{}, err
	}
	buckets, err := age.Predict(ctx, ageValid)
	if err != nil {
		return evaluation.Metrics{}, fmt.Errorf("predict age: %w", err)
	}
	return evaluation.Calc(sexValid.Labels, isMale, ageValid.Labels, buckets)
}

func (cv *CrossValidator) logSummary(per []evaluation.Metrics) {
	if len(per) == 0 {
		return
	}
	var mean evaluation.Metrics
	for _, m := range per {
		mean.SexROCAUC += m.SexROCAUC
		mean.AgeF1Weighted += m.AgeF1Weighted
		mean.Score += m.Score
	}
	n := float64(len(per))
	cv.logger.Info().
		Int("folds", len(per)).
		Float64("mean_sex_roc_auc", mean.SexROCAUC/n).
		Float64("mean_age_f1_weighted", mean.AgeF1Weighted/n).
		Float64("mean_score", mean.Score/n).
		Msg("Cross-validation finished")
}

// selectFolds returns every committed fold, or only the one with index fold
// when fold is not nil.
func (cv *CrossValidator) selectFolds(fold *int) ([]*FoldModel, error) {
	cv.mu.RLock()
	defer cv.mu.RUnlock()
	if len(cv.folds) == 0 {
		return nil, ErrNotFitted
	}
	if fold == nil {
		return append([]*FoldModel(nil), cv.folds...), nil
	}
	for _, f := range cv.folds {
		if f.Index == *fold {
			return []*FoldModel{f}, nil
		}
	}
	return nil, fmt.Errorf("%w: no fold %d", ErrFoldMismatch, *fold)
}

// Predict averages the fold models over every row of ds. When fold is not
// nil only that fold's models are used.
func (cv *CrossValidator) Predict(ctx context.Context, ds *Dataset, fold *int) ([]models.Prediction, error) {
	selected, err := cv.selectFolds(fold)
	if err != nil {
		return nil, err
	}
	preds, err := predictWith(ctx, selected, ds.Pool())
	if err != nil {
		return nil, err
	}

	mode := "ensemble"
	if fold != nil {
		mode = "single_fold"
	}
	metrics.RecordPredictions(mode, len(preds))
	return preds, nil
}

func predictWith(ctx context.Context, selected []*FoldModel, pool *Pool) ([]models.Prediction, error) {
	sexOut := make([][][]float64, len(selected))
	ageOut := make([][][]float64, len(selected))
	for i, f := range selected {
		var err error
		if sexOut[i], err = f.Sex.PredictProba(ctx, pool); err != nil {
			return nil, fmt.Errorf("fold %d: predict sex: %w", f.Index, err)
		}
		if ageOut[i], err = f.Age.PredictProba(ctx, pool); err != nil {
			return nil, fmt.Errorf("fold %d: predict age: %w", f.Index, err)
		}
	}

	isMale, err := averageSex(sexOut)
	if err != nil {
		return nil, err
	}
	age, err := averageAge(ageOut)
	if err != nil {
		return nil, err
	}
	if len(isMale) != pool.Len() || len(age) != pool.Len() {
		return nil, fmt.Errorf("%w: %d rows predicted for %d users", ErrShapeMismatch, len(isMale), pool.Len())
	}

	preds := make([]models.Prediction, pool.Len())
	for i, user := range pool.Users {
		preds[i] = models.Prediction{
			UserID:   user,
			IsMale:   isMale[i],
			AgeProba: age[i],
			Age:      argmaxBucket(age[i]),
			Fold:     models.NoFold,
		}
	}
	return preds, nil
}

// PredictOOF predicts the validation rows of every fold with that fold's
// models only, and concatenates the folds in fold order. ds must be the
// dataset the models were fitted on, so the splitter reproduces the folds.
func (cv *CrossValidator) PredictOOF(ctx context.Context, ds *Dataset) ([]models.Prediction, error) {
	splits, err := cv.splitter.Split(ds.Users())
	if err != nil {
		return nil, fmt.Errorf("split folds: %w", err)
	}

	var out []models.Prediction
	for _, split := range splits {
		selected, err := cv.selectFolds(&split.Index)
		if err != nil {
			return nil, err
		}
		preds, err := predictWith(ctx, selected, ds.Subset(split.Validation).Pool())
		if err != nil {
			return nil, err
		}
		for i := range preds {
			preds[i].Fold = split.Index
		}
		out = append(out, preds...)
	}
	metrics.RecordPredictions("oof", len(out))
	return out, nil
}

// Importance is the mean importance of one feature across folds.
type Importance struct {
	Feature string  `json:"feature"`
	Value   float64 `json:"importance"`
}

// FeatureImportances averages the feature importances of the task's fold
// models, sorted by importance descending then feature name.
func (cv *CrossValidator) FeatureImportances(ctx context.Context, task Task) ([]Importance, error) {
	selected, err := cv.selectFolds(nil)
	if err != nil {
		return nil, err
	}

	sum := make(map[string]float64)
	for _, f := range selected {
		clf := f.Sex
		if task == TaskAge {
			clf = f.Age
		}
		fi, err := clf.FeatureImportances(ctx)
		if err != nil {
			return nil, fmt.Errorf("fold %d: %s importances: %w", f.Index, task, err)
		}
		for name, v := range fi {
			sum[name] += v
		}
	}

	out := make([]Importance, 0, len(sum))
	for name, v := range sum {
		out = append(out, Importance{Feature: name, Value: v / float64(len(selected))})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Value != out[j].Value {
			return out[i].Value > out[j].Value
		}
		return out[i].Feature < out[j].Feature
	})
	return out, nil
}
