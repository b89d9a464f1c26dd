// MTS Cup - User Attribute Prediction Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mtscup

package models

import (
	"database/sql"
	"sort"
)

// AgeBoundaries are the upper-inclusive edges of age buckets 0 through 5.
// Ages above the last edge fall into bucket 6.
var AgeBoundaries = []int{18, 25, 35, 45, 55, 65}

// NumAgeBuckets is the number of trainable age buckets (1 through 6).
const NumAgeBuckets = 6

// AgeToBucket returns the index of the first boundary that is >= age.
//
//	AgeToBucket(18) == 0
//	AgeToBucket(19) == 1
//	AgeToBucket(65) == 5
//	AgeToBucket(66) == 6
func AgeToBucket(age int) int {
	return sort.SearchInts(AgeBoundaries, age)
}

// ClipBucket folds the under-age bucket 0 into bucket 1.
func ClipBucket(bucket int) int {
	if bucket < 1 {
		return 1
	}
	return bucket
}

// RawLabel is one row of the training target table.
type RawLabel struct {
	UserID uint32
	IsMale sql.NullBool
	Age    sql.NullInt32
}

// Label is a training target with the derived age bucket.
type Label struct {
	UserID    uint32
	IsMale    sql.NullBool
	Age       sql.NullInt32
	AgeBucket sql.NullInt32
}

// NewLabel derives the age bucket for raw.
func NewLabel(raw RawLabel) Label {
	label := Label{
		UserID: raw.UserID,
		IsMale: raw.IsMale,
		Age:    raw.Age,
	}
	if raw.Age.Valid {
		label.AgeBucket = sql.NullInt32{Int32: int32(AgeToBucket(int(raw.Age.Int32))), Valid: true}
	}
	return label
}
