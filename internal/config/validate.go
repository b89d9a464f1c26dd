// MTS Cup - User Attribute Prediction Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mtscup

package config

import (
	"errors"
	"path/filepath"

	"github.com/tomtom215/mtscup/internal/logging"
	"github.com/tomtom215/mtscup/internal/validation"
)

// Validate checks tags first, then rules that span fields.
func (c *Config) Validate() error {
	if err := validation.ValidateStruct(c); err != nil {
		return err
	}
	return c.validatePaths()
}

func (c *Config) validatePaths() error {
	if c.Features.TestMatrix != "" && filepath.Clean(c.Features.TestMatrix) == filepath.Clean(c.Features.TrainMatrix) {
		return errors.New("features.test_matrix and features.train_matrix must differ")
	}
	if filepath.Clean(c.Output.OOF) == filepath.Clean(c.Output.Predictions) {
		return errors.New("output.oof and output.predictions must differ")
	}
	if c.Data.TestSessions != "" && c.Data.TestUsers == "" {
		return errors.New("data.test_users is required when data.test_sessions is set")
	}
	return nil
}

// LoggerConfig converts the logging section to the logging package config.
func (c *Config) LoggerConfig() logging.Config {
	lc := logging.DefaultConfig()
	lc.Level = c.Logging.Level
	lc.Format = c.Logging.Format
	lc.Caller = c.Logging.Caller
	return lc
}
