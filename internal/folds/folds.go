// MTS Cup - User Attribute Prediction Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mtscup

// Package folds partitions the labeled user table into cross-validation
// folds.
//
// Folds refer to row positions of the user slice passed to Split, not to
// user ids, so that callers can index their own aligned feature and label
// slices. Every row position appears in exactly one validation set, and the
// training and validation sets of a fold are disjoint.
package folds

import (
	"errors"
	"fmt"
)

// ErrInvalidPartition is returned when folds do not cover every row exactly
// once across their validation sets.
var ErrInvalidPartition = errors.New("invalid fold partition")

// Fold is one training/validation split. Positions are ascending.
type Fold struct {
	Index      int
	Train      []int
	Validation []int
}

// Splitter produces the folds for a labeled user table.
type Splitter interface {
	// Split returns the folds over the row positions of users.
	Split(users []uint32) ([]Fold, error)
	// NumFolds returns the number of folds Split produces.
	NumFolds() int
}

// Check verifies that folds partition the row positions 0..n-1: every
// position is validated exactly once, no position is out of range, and no
// fold trains on a row it validates.
func Check(folds []Fold, n int) error {
	validated := make([]int, n)
	for _, f := range folds {
		inValidation := make(map[int]struct{}, len(f.Validation))
		for _, p := range f.Validation {
			if p < 0 || p >= n {
				return fmt.Errorf("%w: fold %d validates position %d of %d", ErrInvalidPartition, f.Index, p, n)
			}
			if _, dup := inValidation[p]; dup {
				return fmt.Errorf("%w: fold %d validates position %d twice", ErrInvalidPartition, f.Index, p)
			}
			inValidation[p] = struct{}{}
			validated[p]++
		}
		for _, p := range f.Train {
			if p < 0 || p >= n {
				return fmt.Errorf("%w: fold %d trains on position %d of %d", ErrInvalidPartition, f.Index, p, n)
			}
			if _, ok := inValidation[p]; ok {
				return fmt.Errorf("%w: fold %d trains and validates position %d", ErrInvalidPartition, f.Index, p)
			}
		}
	}
	for p, count := range validated {
		if count != 1 {
			return fmt.Errorf("%w: position %d is validated by %d folds", ErrInvalidPartition, p, count)
		}
	}
	return nil
}
