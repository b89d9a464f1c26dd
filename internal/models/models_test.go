// MTS Cup - User Attribute Prediction Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mtscup

package models

import (
	"database/sql"
	"testing"
)

func TestAgeToBucket(t *testing.T) {
	t.Parallel()

	tests := []struct {
		age  int
		want int
	}{
		{age: 0, want: 0},
		{age: 17, want: 0},
		{age: 18, want: 0},
		{age: 19, want: 1},
		{age: 25, want: 1},
		{age: 26, want: 2},
		{age: 35, want: 2},
		{age: 36, want: 3},
		{age: 45, want: 3},
		{age: 55, want: 4},
		{age: 65, want: 5},
		{age: 66, want: 6},
		{age: 90, want: 6},
	}

	for _, tt := range tests {
		if got := AgeToBucket(tt.age); got != tt.want {
			t.Errorf("AgeToBucket(%d) = %d, want %d", tt.age, got, tt.want)
		}
	}
}

func TestClipBucket(t *testing.T) {
	t.Parallel()

	for bucket, want := range map[int]int{0: 1, 1: 1, 3: 3, 6: 6} {
		if got := ClipBucket(bucket); got != want {
			t.Errorf("ClipBucket(%d) = %d, want %d", bucket, got, want)
		}
	}
	if got := ClipBucket(AgeToBucket(17)); got != 1 {
		t.Errorf("under-age bucket should clip to 1, got %d", got)
	}
}

func TestNewLabel(t *testing.T) {
	t.Parallel()

	label := NewLabel(RawLabel{UserID: 7, IsMale: sql.NullBool{Bool: true, Valid: true}, Age: sql.NullInt32{Int32: 30, Valid: true}})
	if !label.AgeBucket.Valid || label.AgeBucket.Int32 != 2 {
		t.Errorf("AgeBucket = %+v, want 2", label.AgeBucket)
	}

	missing := NewLabel(RawLabel{UserID: 8})
	if missing.AgeBucket.Valid {
		t.Errorf("null age should give null bucket, got %+v", missing.AgeBucket)
	}
	if missing.IsMale.Valid {
		t.Error("null sex should stay null")
	}
}

func TestCode(t *testing.T) {
	t.Parallel()

	if NoCode.Valid() {
		t.Error("NoCode should not be valid")
	}
	if NoCode.String() != "" {
		t.Errorf("NoCode.String() = %q, want empty", NoCode.String())
	}
	if got := Code(12).String(); got != "12" {
		t.Errorf("Code(12).String() = %q", got)
	}
	if !(NoCode < Code(0)) {
		t.Error("NoCode must order before every valid code")
	}
}
