// MTS Cup - User Attribute Prediction Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mtscup

package evaluation

import (
	"errors"
	"math"
	"testing"

	"github.com/goccy/go-json"
)

const eps = 1e-12

func TestROCAUC(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		y     []int
		score []float64
		want  float64
	}{
		{name: "perfect", y: []int{0, 0, 1, 1}, score: []float64{0.1, 0.2, 0.8, 0.9}, want: 1},
		{name: "inverted", y: []int{1, 1, 0, 0}, score: []float64{0.1, 0.2, 0.8, 0.9}, want: 0},
		{name: "classic", y: []int{0, 0, 1, 1}, score: []float64{0.1, 0.4, 0.35, 0.8}, want: 0.75},
		{name: "all tied", y: []int{0, 1, 0, 1}, score: []float64{0.5, 0.5, 0.5, 0.5}, want: 0.5},
		{name: "partial tie", y: []int{0, 1, 1}, score: []float64{0.3, 0.3, 0.9}, want: 0.75},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := ROCAUC(tt.y, tt.score)
			if err != nil {
				t.Fatalf("ROCAUC() error = %v", err)
			}
			if math.Abs(got-tt.want) > eps {
				t.Errorf("ROCAUC() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestROCAUC_Errors(t *testing.T) {
	t.Parallel()

	if _, err := ROCAUC([]int{1, 1}, []float64{0.2, 0.4}); !errors.Is(err, ErrSingleClass) {
		t.Errorf("single class error = %v", err)
	}
	if _, err := ROCAUC([]int{1}, []float64{0.2, 0.4}); !errors.Is(err, ErrLengthMismatch) {
		t.Errorf("length mismatch error = %v", err)
	}
	if _, err := ROCAUC(nil, nil); !errors.Is(err, ErrEmpty) {
		t.Errorf("empty error = %v", err)
	}
}

// pairwiseAUC counts positive/negative pairs ordered correctly, ties
// counting one half.
func pairwiseAUC(y []int, score []float64) float64 {
	var hits, pairs float64
	for i := range y {
		for j := range y {
			if y[i] != 1 || y[j] == 1 {
				continue
			}
			pairs++
			switch {
			case score[i] > score[j]:
				hits++
			case score[i] == score[j]:
				hits += 0.5
			}
		}
	}
	return hits / pairs
}

func TestROCAUC_MatchesPairwiseCount(t *testing.T) {
	t.Parallel()

	y := make([]int, 60)
	score := make([]float64, 60)
	for i := range y {
		y[i] = (i*7 + 3) % 3 % 2
		score[i] = float64((i*13)%11) / 10
	}
	got, err := ROCAUC(y, score)
	if err != nil {
		t.Fatalf("ROCAUC() error = %v", err)
	}
	if want := pairwiseAUC(y, score); math.Abs(got-want) > 1e-9 {
		t.Errorf("ROCAUC() = %v, pairwise count = %v", got, want)
	}
}

func TestF1Weighted_Reproducible(t *testing.T) {
	t.Parallel()

	y := make([]int, 97)
	pred := make([]int, 97)
	for i := range y {
		y[i] = i%6 + 1
		pred[i] = (i*5)%7 + 1
	}
	first, err := F1Weighted(y, pred)
	if err != nil {
		t.Fatalf("F1Weighted() error = %v", err)
	}
	for range 50 {
		got, _ := F1Weighted(y, pred)
		if math.Float64bits(got) != math.Float64bits(first) {
			t.Fatalf("F1Weighted() = %v, first call gave %v", got, first)
		}
	}
}

func TestF1Weighted(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		y, pred []int
		want    float64
	}{
		{name: "perfect", y: []int{1, 2, 3}, pred: []int{1, 2, 3}, want: 1},
		{
			// class 1: tp=1 fn=1 fp=0 -> 2/3; class 2: tp=1 fn=0 fp=1 -> 2/3;
			// class 3: tp=1 -> 1. Weighted by support 2, 1, 1.
			name: "mixed",
			y:    []int{1, 1, 2, 3},
			pred: []int{1, 2, 2, 3},
			want: (2*2.0/3 + 2.0/3 + 1) / 4,
		},
		{
			// Predicted-only class 5 has no support and adds nothing.
			name: "predicted only class",
			y:    []int{1, 1},
			pred: []int{1, 5},
			want: 2.0 / 3,
		},
		{name: "all wrong", y: []int{1, 2}, pred: []int{2, 1}, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := F1Weighted(tt.y, tt.pred)
			if err != nil {
				t.Fatalf("F1Weighted() error = %v", err)
			}
			if math.Abs(got-tt.want) > eps {
				t.Errorf("F1Weighted() = %v, want %v", got, tt.want)
			}
		})
	}

	if _, err := F1Weighted([]int{1}, nil); !errors.Is(err, ErrLengthMismatch) {
		t.Errorf("length mismatch error = %v", err)
	}
}

func TestComposite(t *testing.T) {
	t.Parallel()

	if got := Composite(0.75, 0.5); got != 1.5 {
		t.Errorf("Composite(0.75, 0.5) = %v, want 1.5", got)
	}
	if got := Composite(0.5, 0); got != 0 {
		t.Errorf("Composite(0.5, 0) = %v, want 0", got)
	}
}

func TestCalc(t *testing.T) {
	t.Parallel()

	m, err := Calc(
		[]int{0, 0, 1, 1}, []float64{0.1, 0.4, 0.35, 0.8},
		[]int{1, 2, 3, 4}, []int{1, 2, 4, 3},
	)
	if err != nil {
		t.Fatalf("Calc() error = %v", err)
	}
	if math.Abs(m.SexROCAUC-0.75) > eps || math.Abs(m.AgeF1Weighted-0.5) > eps || math.Abs(m.Score-1.5) > eps {
		t.Errorf("Calc() = %+v", m)
	}

	if _, err := Calc([]int{1}, []float64{0.3}, []int{1}, []int{1}); !errors.Is(err, ErrSingleClass) {
		t.Errorf("Calc(single class) error = %v", err)
	}
}

func TestMetrics_JSONKeys(t *testing.T) {
	t.Parallel()

	data, err := json.Marshal(Metrics{SexROCAUC: 0.75, AgeF1Weighted: 0.5, Score: 1.5})
	if err != nil {
		t.Fatal(err)
	}
	want := `{"sex ROC-AUC":0.75,"age F1 Weighted":0.5,"mts-ml-cup metric":1.5}`
	if string(data) != want {
		t.Errorf("Marshal() = %s, want %s", data, want)
	}
}
