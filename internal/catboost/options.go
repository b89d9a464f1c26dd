// MTS Cup - User Attribute Prediction Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mtscup

package catboost

import (
	"github.com/tomtom215/mtscup/internal/validation"
)

// Task types accepted by Options.TaskType.
const (
	TaskTypeAuto = "auto"
	TaskTypeCPU  = "CPU"
	TaskTypeGPU  = "GPU"
)

// Options are the model hyperparameters and process settings shared by the
// sex and age classifiers.
type Options struct {
	// Python is the interpreter that runs the rendered scripts.
	Python string `koanf:"python" validate:"required"`

	// WorkDir holds one directory per classifier. Empty uses the system
	// temporary directory.
	WorkDir string `koanf:"work_dir"`

	// Iterations is the maximum number of boosting rounds.
	Iterations int `koanf:"iterations" validate:"min=1"`

	// LearningRate is the boosting step size.
	LearningRate float64 `koanf:"learning_rate" validate:"gt=0,lte=1"`

	// Depth is the symmetric tree depth.
	Depth int `koanf:"depth" validate:"min=1,max=16"`

	// L2LeafReg is the L2 regularization coefficient of leaf values.
	L2LeafReg float64 `koanf:"l2_leaf_reg" validate:"gte=0"`

	// EarlyStoppingRounds stops training when the evaluation metric has not
	// improved for this many rounds. 0 disables early stopping.
	EarlyStoppingRounds int `koanf:"early_stopping_rounds" validate:"gte=0"`

	// TaskType is CPU, GPU, or auto (GPU when a device is visible).
	TaskType string `koanf:"task_type" validate:"oneof=auto CPU GPU"`

	// RandomSeed seeds model training.
	RandomSeed int64 `koanf:"random_seed"`

	// Verbose prints the evaluation metric every Verbose rounds. 0 is silent.
	Verbose int `koanf:"verbose" validate:"gte=0"`

	// ThreadCount limits CPU threads. -1 uses every core.
	ThreadCount int `koanf:"thread_count" validate:"gte=-1"`
}

// DefaultOptions returns the hyperparameters used for the competition runs.
func DefaultOptions() Options {
	return Options{
		Python:              "python3",
		Iterations:          10000,
		LearningRate:        0.05,
		Depth:               6,
		L2LeafReg:           3,
		EarlyStoppingRounds: 300,
		TaskType:            TaskTypeAuto,
		RandomSeed:          777,
		Verbose:             1000,
		ThreadCount:         -1,
	}
}

// Validate checks the options.
func (o *Options) Validate() error {
	return validation.ValidateStruct(o)
}
