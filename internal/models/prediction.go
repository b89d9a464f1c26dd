// MTS Cup - User Attribute Prediction Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mtscup

package models

// NoFold marks a prediction that was not produced out of fold.
const NoFold = -1

// Prediction is one user-level ensemble output.
type Prediction struct {
	UserID uint32 `json:"user_id"`

	// IsMale is the averaged probability of the positive sex class.
	IsMale float64 `json:"is_male"`

	// AgeProba holds the averaged probability of buckets 1..NumAgeBuckets.
	AgeProba []float64 `json:"age_proba"`

	// Age is the arg-max bucket, 1-indexed.
	Age int `json:"age"`

	// Fold is the fold that held this row out, or NoFold.
	Fold int `json:"fold"`
}
