// MTS Cup - User Attribute Prediction Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mtscup

package modeling

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// averageSex averages the positive class column of every model's output.
// Single column outputs are taken as the positive class probability.
func averageSex(outputs [][][]float64) ([]float64, error) {
	if len(outputs) == 0 {
		return nil, ErrNotFitted
	}
	n := len(outputs[0])
	out := make([]float64, n)
	col := make([]float64, n)
	for m, proba := range outputs {
		if len(proba) != n {
			return nil, fmt.Errorf("%w: sex model %d returned %d rows, want %d", ErrShapeMismatch, m, len(proba), n)
		}
		for i, row := range proba {
			switch len(row) {
			case 1:
				col[i] = row[0]
			case 2:
				col[i] = row[1]
			default:
				return nil, fmt.Errorf("%w: sex model %d returned %d classes", ErrShapeMismatch, m, len(row))
			}
		}
		floats.Add(out, col)
	}
	floats.Scale(1/float64(len(outputs)), out)
	return out, nil
}

// averageAge averages the probability vectors of every model. All models
// must agree on the number of classes.
func averageAge(outputs [][][]float64) ([][]float64, error) {
	if len(outputs) == 0 {
		return nil, ErrNotFitted
	}
	n := len(outputs[0])
	width := 0
	if n > 0 {
		width = len(outputs[0][0])
	}

	out := make([][]float64, n)
	for i := range out {
		out[i] = make([]float64, width)
	}
	for m, proba := range outputs {
		if len(proba) != n {
			return nil, fmt.Errorf("%w: age model %d returned %d rows, want %d", ErrShapeMismatch, m, len(proba), n)
		}
		for i, row := range proba {
			if len(row) != width {
				return nil, fmt.Errorf("%w: age model %d returned %d classes, want %d", ErrShapeMismatch, m, len(row), width)
			}
			floats.Add(out[i], row)
		}
	}
	k := 1 / float64(len(outputs))
	for _, row := range out {
		floats.Scale(k, row)
	}
	return out, nil
}

// argmaxBucket returns the 1-indexed bucket of the largest probability.
// Ties resolve to the lower bucket.
func argmaxBucket(proba []float64) int {
	if len(proba) == 0 {
		return 1
	}
	return floats.MaxIdx(proba) + 1
}
