// MTS Cup - User Attribute Prediction Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mtscup

package folds

import "fmt"

// Membership records the fold_<i>_tr and fold_<i>_va flags of one user.
// Both slices are indexed by fold.
type Membership struct {
	Train      []bool
	Validation []bool
}

// Manual splits rows by an externally supplied membership table.
type Manual struct {
	K           int
	Assignments map[uint32]Membership
}

// NumFolds implements Splitter.
func (s Manual) NumFolds() int { return s.K }

// Split implements Splitter. Users without an assignment are neither
// trained nor validated on, which Check reports as an invalid partition.
func (s Manual) Split(users []uint32) ([]Fold, error) {
	if s.K < 1 {
		return nil, fmt.Errorf("manual split needs at least 1 fold, got %d", s.K)
	}
	for user, m := range s.Assignments {
		if len(m.Train) != s.K || len(m.Validation) != s.K {
			return nil, fmt.Errorf("%w: user %d has %d/%d fold flags, want %d",
				ErrInvalidPartition, user, len(m.Train), len(m.Validation), s.K)
		}
	}

	folds := make([]Fold, s.K)
	for i := range s.K {
		folds[i].Index = i
		for pos, user := range users {
			m, ok := s.Assignments[user]
			if !ok {
				continue
			}
			if m.Train[i] {
				folds[i].Train = append(folds[i].Train, pos)
			}
			if m.Validation[i] {
				folds[i].Validation = append(folds[i].Validation, pos)
			}
		}
	}

	if err := Check(folds, len(users)); err != nil {
		return nil, err
	}
	return folds, nil
}
