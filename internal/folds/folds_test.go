// MTS Cup - User Attribute Prediction Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mtscup

package folds

import (
	"errors"
	"reflect"
	"slices"
	"testing"
)

func userRange(n int) []uint32 {
	users := make([]uint32, n)
	for i := range users {
		users[i] = uint32(100 + i)
	}
	return users
}

func TestKFold_Split(t *testing.T) {
	t.Parallel()

	for _, n := range []int{5, 12, 23, 101} {
		folds, err := NewKFold().Split(userRange(n))
		if err != nil {
			t.Fatalf("Split(%d) error = %v", n, err)
		}
		if len(folds) != DefaultK {
			t.Fatalf("Split(%d) = %d folds, want %d", n, len(folds), DefaultK)
		}
		if err := Check(folds, n); err != nil {
			t.Errorf("Split(%d) partition: %v", n, err)
		}
		for i, f := range folds {
			want := n / DefaultK
			if i < n%DefaultK {
				want++
			}
			if len(f.Validation) != want {
				t.Errorf("n=%d fold %d validation size = %d, want %d", n, i, len(f.Validation), want)
			}
			if len(f.Train)+len(f.Validation) != n {
				t.Errorf("n=%d fold %d does not cover every row", n, i)
			}
			if !slices.IsSorted(f.Train) || !slices.IsSorted(f.Validation) {
				t.Errorf("n=%d fold %d positions are not ascending", n, i)
			}
		}
	}
}

func TestKFold_Deterministic(t *testing.T) {
	t.Parallel()

	a, err := NewKFold().Split(userRange(50))
	if err != nil {
		t.Fatal(err)
	}
	b, err := NewKFold().Split(userRange(50))
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Error("same seed produced different folds")
	}

	c, err := KFold{K: DefaultK, Seed: 1}.Split(userRange(50))
	if err != nil {
		t.Fatal(err)
	}
	if reflect.DeepEqual(a, c) {
		t.Error("different seeds produced identical folds")
	}
}

func TestKFold_Invalid(t *testing.T) {
	t.Parallel()

	if _, err := (KFold{K: 1}).Split(userRange(10)); err == nil {
		t.Error("expected error for k < 2")
	}
	if _, err := NewKFold().Split(userRange(3)); err == nil {
		t.Error("expected error for fewer rows than folds")
	}
}

func membership(k int, trainIn []int, validIn int) Membership {
	m := Membership{Train: make([]bool, k), Validation: make([]bool, k)}
	for _, i := range trainIn {
		m.Train[i] = true
	}
	m.Validation[validIn] = true
	return m
}

func TestManual_Split(t *testing.T) {
	t.Parallel()

	users := []uint32{10, 20, 30, 40}
	s := Manual{K: 2, Assignments: map[uint32]Membership{
		10: membership(2, []int{1}, 0),
		20: membership(2, []int{0}, 1),
		30: membership(2, []int{1}, 0),
		40: membership(2, []int{0}, 1),
		// Users outside the labeled table are ignored.
		99: membership(2, []int{0}, 1),
	}}

	folds, err := s.Split(users)
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}
	want := []Fold{
		{Index: 0, Train: []int{1, 3}, Validation: []int{0, 2}},
		{Index: 1, Train: []int{0, 2}, Validation: []int{1, 3}},
	}
	if !reflect.DeepEqual(folds, want) {
		t.Errorf("Split() = %+v, want %+v", folds, want)
	}
}

func TestManual_InvalidPartition(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		assignments map[uint32]Membership
	}{
		{
			name: "user missing",
			assignments: map[uint32]Membership{
				10: membership(2, nil, 0),
			},
		},
		{
			name: "validated twice",
			assignments: map[uint32]Membership{
				10: {Train: []bool{false, false}, Validation: []bool{true, true}},
				20: membership(2, nil, 1),
			},
		},
		{
			name: "train and validation overlap",
			assignments: map[uint32]Membership{
				10: membership(2, []int{0}, 0),
				20: membership(2, nil, 1),
			},
		},
		{
			name: "wrong flag count",
			assignments: map[uint32]Membership{
				10: membership(3, nil, 0),
				20: membership(2, nil, 1),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Manual{K: 2, Assignments: tt.assignments}.Split([]uint32{10, 20})
			if !errors.Is(err, ErrInvalidPartition) {
				t.Errorf("Split() error = %v, want ErrInvalidPartition", err)
			}
		})
	}
}

func TestCheck(t *testing.T) {
	t.Parallel()

	ok := []Fold{
		{Index: 0, Train: []int{1}, Validation: []int{0}},
		{Index: 1, Train: []int{0}, Validation: []int{1}},
	}
	if err := Check(ok, 2); err != nil {
		t.Errorf("Check() error = %v", err)
	}

	outOfRange := []Fold{{Index: 0, Validation: []int{0, 2}}}
	if err := Check(outOfRange, 2); !errors.Is(err, ErrInvalidPartition) {
		t.Errorf("Check(out of range) = %v", err)
	}
	uncovered := []Fold{{Index: 0, Validation: []int{0}}}
	if err := Check(uncovered, 2); !errors.Is(err, ErrInvalidPartition) {
		t.Errorf("Check(uncovered) = %v", err)
	}
}
