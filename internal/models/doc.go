// MTS Cup - User Attribute Prediction Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mtscup

/*
Package models defines data structures shared by every pipeline stage.

Key Components:

  - RawSession: one telemetry row with free-text categorical fields
  - Session: the canonical row after categorical codes are substituted
  - RawLabel / Label: training targets, with the derived age bucket
  - CensusRow: one region/age row of the external population statistics
  - Prediction: one user-level ensemble output row

Categorical codes use the Code type. NoCode marks an unmapped value and sorts
before every valid code, so "dominant category" reductions never prefer an
unknown bucket over a known one with the same count.
*/
package models
