// MTS Cup - User Attribute Prediction Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mtscup

package models

import (
	"database/sql"
	"strconv"
	"time"
)

// Code is a dense categorical code assigned by a mapping table.
type Code int32

// NoCode marks a value that has no entry in its mapping table.
const NoCode Code = -1

// Valid reports whether c refers to a mapped value.
func (c Code) Valid() bool {
	return c >= 0
}

// String returns the decimal code, or an empty string for NoCode.
func (c Code) String() string {
	if !c.Valid() {
		return ""
	}
	return strconv.Itoa(int(c))
}

// PartsOfDay is the fixed, ordered part-of-day enumeration.
var PartsOfDay = []string{"morning", "day", "evening", "night"}

// RawSession is one telemetry row as delivered in the competition parquet parts.
type RawSession struct {
	RegionName       string
	CityName         string
	ManufacturerName string
	ModelName        string
	TypeName         string
	OSName           string
	URLHost          string
	Price            sql.NullFloat64
	Date             time.Time
	PartOfDay        string
	RequestCnt       int64
	UserID           uint32
}

// Session is the canonical per-user event row.
//
// Every code is either a value present in its mapping table or NoCode.
type Session struct {
	UserID         uint32
	URLHost        string
	RegionID       Code
	CityID         Code
	ManufacturerID Code
	ModelID        Code
	TypeID         Code
	OSID           Code
	PartOfDayID    Code
	Price          sql.NullFloat64
	Date           time.Time
	RequestCnt     uint16
}

// CensusRow is one (region, age) row of the population statistics table.
type CensusRow struct {
	Region     string
	Age        int
	Men        int64
	Women      int64
	UrbanMen   int64
	UrbanWomen int64
	RuralMen   int64
	RuralWomen int64
}
