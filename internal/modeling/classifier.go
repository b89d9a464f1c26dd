// MTS Cup - User Attribute Prediction Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mtscup

package modeling

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrNotFitted is returned when predicting before Fit or Restore.
	ErrNotFitted = errors.New("modeling: no fitted fold models")

	// ErrFoldMismatch is returned when restored artifacts disagree with the
	// requested fold configuration.
	ErrFoldMismatch = errors.New("modeling: fold count mismatch")

	// ErrShapeMismatch is returned when model outputs cannot be combined.
	ErrShapeMismatch = errors.New("modeling: prediction shape mismatch")

	// ErrChecksum is returned when a restored model file does not match its
	// recorded checksum.
	ErrChecksum = errors.New("modeling: model checksum mismatch")
)

// Task selects the prediction target of a classifier.
type Task int

const (
	// TaskSex is the binary is_male task.
	TaskSex Task = iota
	// TaskAge is the multi-class age bucket task.
	TaskAge
)

// String returns the task name used in file names and log fields.
func (t Task) String() string {
	switch t {
	case TaskSex:
		return "sex"
	case TaskAge:
		return "age"
	default:
		return "unknown"
	}
}

// ParseTask returns the task named by String.
func ParseTask(name string) (Task, error) {
	switch name {
	case "sex":
		return TaskSex, nil
	case "age":
		return TaskAge, nil
	default:
		return 0, fmt.Errorf("unknown task %q, want sex or age", name)
	}
}

// LossFunction returns the loss and evaluation metric of the task.
func (t Task) LossFunction() string {
	if t == TaskAge {
		return "MultiClass"
	}
	return "Logloss"
}

// Classifier is a trainable model for one task.
//
// PredictProba returns one probability row per pool row with one column per
// class, classes in ascending label order. Predict returns the label of the
// most probable class.
type Classifier interface {
	Fit(ctx context.Context, train, eval *Pool) error
	PredictProba(ctx context.Context, pool *Pool) ([][]float64, error)
	Predict(ctx context.Context, pool *Pool) ([]int, error)
	Save(path string) error
	FeatureImportances(ctx context.Context) (map[string]float64, error)
}

// Factory creates untrained classifiers and loads persisted ones.
type Factory interface {
	New(task Task) (Classifier, error)
	Load(task Task, path string) (Classifier, error)
}
