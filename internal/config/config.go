// MTS Cup - User Attribute Prediction Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mtscup

/*
Package config provides layered configuration for the pipeline.

Configuration is loaded with koanf in three layers, later layers winning:

 1. Defaults from defaultConfig()
 2. An optional YAML file (MTSCUP_CONFIG, then config.yaml / config.yml)
 3. Environment variables with the MTSCUP_ prefix

Environment variable names map to config paths by dropping the prefix,
lower-casing, and turning the first underscore into a dot:

	MTSCUP_FEATURES_TOP_N        -> features.top_n
	MTSCUP_MODEL_LEARNING_RATE   -> model.learning_rate
	MTSCUP_DATA_TRAIN_SESSIONS   -> data.train_sessions

Comma separated values are accepted for list settings such as
pool.exclude and features.protected_hosts.
*/
package config

import (
	"github.com/tomtom215/mtscup/internal/catboost"
	"github.com/tomtom215/mtscup/internal/database"
	"github.com/tomtom215/mtscup/internal/modeling"
)

// Config is the complete pipeline configuration.
type Config struct {
	Logging    LoggingConfig        `koanf:"logging"`
	Data       DataConfig           `koanf:"data"`
	Database   database.Config      `koanf:"database"`
	Vocab      VocabConfig          `koanf:"vocab"`
	Features   FeaturesConfig       `koanf:"features"`
	Validation ValidationConfig     `koanf:"validation"`
	Model      catboost.Options     `koanf:"model"`
	Pool       modeling.PoolOptions `koanf:"pool"`
	Training   TrainingConfig       `koanf:"training"`
	Output     OutputConfig         `koanf:"output"`
	Metrics    MetricsConfig        `koanf:"metrics"`
}

// LoggingConfig holds logger settings.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"loglevel"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}

// DataConfig holds input locations.
type DataConfig struct {
	// TrainSessions and TestSessions are parquet globs of raw sessions.
	TrainSessions string `koanf:"train_sessions" validate:"required"`
	TestSessions  string `koanf:"test_sessions"`
	// Labels is the training target table.
	Labels string `koanf:"labels" validate:"required,tabular"`
	// TestUsers lists the users to predict.
	TestUsers string `koanf:"test_users" validate:"omitempty,tabular"`
	// Census is the regional population table; empty disables those features.
	Census string `koanf:"census" validate:"omitempty,tabular"`
	// Reference is a YAML reference document; empty uses the embedded one.
	Reference string `koanf:"reference"`
}

// VocabConfig holds the vocabulary store location.
type VocabConfig struct {
	Dir string `koanf:"dir" validate:"required"`
}

// FeaturesConfig holds feature builder settings.
type FeaturesConfig struct {
	// TopN is the number of ranked host columns.
	TopN int `koanf:"top_n" validate:"gte=0"`
	// CombinationK is the host combination size for the combination text
	// column; values below 2 disable it.
	CombinationK int `koanf:"combinations_k" validate:"gte=0,lte=4"`
	// Parallelism bounds concurrently running aggregators; 0 means one per CPU.
	Parallelism int `koanf:"parallelism" validate:"gte=0"`
	// ProtectedHosts are never rewritten by the URL cleaner.
	ProtectedHosts []string `koanf:"protected_hosts"`
	// Matrix is where the built feature matrices are written.
	TrainMatrix string `koanf:"train_matrix" validate:"required,tabular"`
	TestMatrix  string `koanf:"test_matrix" validate:"omitempty,tabular"`
}

// ValidationConfig selects the fold splitter.
type ValidationConfig struct {
	Folds int   `koanf:"folds" validate:"min=2"`
	Seed  int64 `koanf:"seed"`
	// ManualFolds is a fold membership table; when set it replaces K-fold.
	ManualFolds string `koanf:"manual_folds" validate:"omitempty,tabular"`
}

// TrainingConfig holds cross-validation settings.
type TrainingConfig struct {
	// Parallelism bounds concurrently trained folds.
	Parallelism int    `koanf:"parallelism" validate:"min=1"`
	SnapshotDir string `koanf:"snapshot_dir" validate:"required"`
}

// OutputConfig holds output locations.
type OutputConfig struct {
	Predictions string `koanf:"predictions" validate:"required,tabular"`
	OOF         string `koanf:"oof" validate:"required,tabular"`
	Importances string `koanf:"importances"`
}

// MetricsConfig holds the Prometheus textfile location; empty disables it.
type MetricsConfig struct {
	Textfile string `koanf:"textfile"`
}
