// MTS Cup - User Attribute Prediction Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mtscup

package folds

import (
	"fmt"
	"math/rand"
	"slices"
)

// Defaults for the random split.
const (
	DefaultK    = 5
	DefaultSeed = 777
)

// KFold shuffles row positions with a fixed seed and cuts them into K
// contiguous blocks. The first n%K blocks hold one extra row. The same seed
// and row count always yield the same folds.
type KFold struct {
	K    int
	Seed int64
}

// NewKFold returns the default five-fold split.
func NewKFold() KFold {
	return KFold{K: DefaultK, Seed: DefaultSeed}
}

// NumFolds implements Splitter.
func (s KFold) NumFolds() int { return s.K }

// Split implements Splitter.
func (s KFold) Split(users []uint32) ([]Fold, error) {
	n := len(users)
	if s.K < 2 {
		return nil, fmt.Errorf("k-fold needs at least 2 folds, got %d", s.K)
	}
	if n < s.K {
		return nil, fmt.Errorf("cannot split %d rows into %d folds", n, s.K)
	}

	//nolint:gosec // G404: seeded math/rand keeps fold assignment reproducible
	perm := rand.New(rand.NewSource(s.Seed)).Perm(n)

	folds := make([]Fold, s.K)
	start := 0
	for i := range s.K {
		size := n / s.K
		if i < n%s.K {
			size++
		}
		validation := slices.Clone(perm[start : start+size])
		slices.Sort(validation)

		train := make([]int, 0, n-size)
		train = append(train, perm[:start]...)
		train = append(train, perm[start+size:]...)
		slices.Sort(train)

		folds[i] = Fold{Index: i, Train: train, Validation: validation}
		start += size
	}
	return folds, nil
}
