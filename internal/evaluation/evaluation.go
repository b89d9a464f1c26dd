// MTS Cup - User Attribute Prediction Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mtscup

// Package evaluation computes the competition metrics of a fold or of an
// out-of-fold prediction set.
package evaluation

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"sort"

	"gonum.org/v1/gonum/integrate"
	"gonum.org/v1/gonum/stat"
)

var (
	// ErrLengthMismatch is returned when truth and prediction lengths differ.
	ErrLengthMismatch = errors.New("truth and prediction lengths differ")

	// ErrSingleClass is returned when ROC-AUC is requested for a truth
	// vector that holds only one class.
	ErrSingleClass = errors.New("roc-auc is undefined for a single class")

	// ErrEmpty is returned for empty inputs.
	ErrEmpty = errors.New("no samples")
)

// Metrics is the per-fold metric record. The JSON keys match the metrics
// file written next to fold models.
type Metrics struct {
	SexROCAUC     float64 `json:"sex ROC-AUC"`
	AgeF1Weighted float64 `json:"age F1 Weighted"`
	Score         float64 `json:"mts-ml-cup metric"`
}

// Composite returns the competition score (2*auc - 1) + 2*f1.
func Composite(auc, f1 float64) float64 {
	return (2*auc - 1) + 2*f1
}

// Calc computes the sex ROC-AUC over isMale and its positive class
// probabilities, the weighted F1 of the age bucket predictions, and their
// composite.
func Calc(isMale []int, isMaleProba []float64, ageBucket, ageBucketPred []int) (Metrics, error) {
	auc, err := ROCAUC(isMale, isMaleProba)
	if err != nil {
		return Metrics{}, fmt.Errorf("sex roc-auc: %w", err)
	}
	f1, err := F1Weighted(ageBucket, ageBucketPred)
	if err != nil {
		return Metrics{}, fmt.Errorf("age f1: %w", err)
	}
	return Metrics{
		SexROCAUC:     auc,
		AgeF1Weighted: f1,
		Score:         Composite(auc, f1),
	}, nil
}

// ROCAUC computes the area under the ROC curve of binary labels y (1 is the
// positive class) ranked by score. Tied scores form one step of the curve,
// which is equivalent to giving them their average rank.
func ROCAUC(y []int, score []float64) (float64, error) {
	if len(y) != len(score) {
		return 0, fmt.Errorf("%w: %d labels, %d scores", ErrLengthMismatch, len(y), len(score))
	}
	if len(y) == 0 {
		return 0, ErrEmpty
	}

	order := make([]int, len(y))
	var pos int
	for i := range y {
		order[i] = i
		if y[i] == 1 {
			pos++
		}
	}
	if pos == 0 || pos == len(y) {
		return 0, ErrSingleClass
	}
	sort.SliceStable(order, func(a, b int) bool { return score[order[a]] < score[order[b]] })

	sorted := make([]float64, len(order))
	classes := make([]bool, len(order))
	for i, idx := range order {
		sorted[i] = score[idx]
		classes[i] = y[idx] == 1
	}
	tpr, fpr, _ := stat.ROC(nil, sorted, classes, nil)
	return integrate.Trapezoidal(fpr, tpr), nil
}

// F1Weighted computes per-class F1 over the union of observed and predicted
// classes and averages it weighted by class support. A class with no
// predicted or no true samples has F1 0.
func F1Weighted(y, pred []int) (float64, error) {
	if len(y) != len(pred) {
		return 0, fmt.Errorf("%w: %d labels, %d predictions", ErrLengthMismatch, len(y), len(pred))
	}
	if len(y) == 0 {
		return 0, ErrEmpty
	}

	type counts struct{ tp, fp, fn float64 }
	classes := make(map[int]*counts)
	get := func(c int) *counts {
		if classes[c] == nil {
			classes[c] = &counts{}
		}
		return classes[c]
	}
	for i := range y {
		if y[i] == pred[i] {
			get(y[i]).tp++
			continue
		}
		get(y[i]).fn++
		get(pred[i]).fp++
	}

	var weighted, support float64
	for _, label := range slices.Sorted(maps.Keys(classes)) {
		c := classes[label]
		s := c.tp + c.fn
		if s == 0 {
			continue
		}
		denom := 2*c.tp + c.fp + c.fn
		var f1 float64
		if denom > 0 {
			f1 = 2 * c.tp / denom
		}
		weighted += s * f1
		support += s
	}
	return weighted / support, nil
}
