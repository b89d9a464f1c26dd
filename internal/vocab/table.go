// MTS Cup - User Attribute Prediction Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mtscup

// Package vocab builds and persists the entity mapping tables that replace
// free-form categorical strings with dense integer codes.
//
// Tables are built once from the whole observed corpus (train and test parts
// together) and never grow afterwards: a value that was not seen during the
// build maps to models.NoCode.
//
// # Two-phase use
//
//	collector := vocab.NewCollector()
//	for part := range parts {
//	    collector.Add(part)       // phase 1: observe every value
//	}
//	set := collector.Build()      // sorted, deterministic codes
//	codes := set.Get(vocab.Region).Apply(values) // phase 2
package vocab

import (
	"strings"

	"github.com/tomtom215/mtscup/internal/models"
)

// Table names.
const (
	Region       = "region"
	City         = "city"
	Manufacturer = "manufacturer"
	Model        = "model"
	Type         = "type"
	OS           = "os"
	PartOfDay    = "part_of_day"
)

// TableNames lists every table a complete Set carries.
var TableNames = []string{Region, City, Manufacturer, Model, Type, OS, PartOfDay}

// CompoundSeparator joins the parts of a compound key.
const CompoundSeparator = "_+_"

// CompoundKey joins parent and child into one mapping key, so that equal
// child names under different parents get different codes.
func CompoundKey(parent, child string) string {
	return parent + CompoundSeparator + child
}

// SplitCompound returns the child part of a compound key.
func SplitCompound(key string) (parent, child string) {
	parent, child, found := strings.Cut(key, CompoundSeparator)
	if !found {
		return "", key
	}
	return parent, child
}

// Table is an immutable string to code mapping.
type Table struct {
	name   string
	codes  map[string]models.Code
	values []string
}

// Build assigns codes 0..n-1 to values in the order given.
// Repeated values keep the code of their first occurrence.
func Build(name string, values []string) *Table {
	t := &Table{
		name:   name,
		codes:  make(map[string]models.Code, len(values)),
		values: make([]string, 0, len(values)),
	}
	for _, v := range values {
		if _, ok := t.codes[v]; ok {
			continue
		}
		t.codes[v] = models.Code(len(t.values))
		t.values = append(t.values, v)
	}
	return t
}

// Name returns the table name.
func (t *Table) Name() string {
	return t.name
}

// Len returns the number of mapped values.
func (t *Table) Len() int {
	return len(t.values)
}

// Lookup returns the code of v, or models.NoCode when v is unmapped.
func (t *Table) Lookup(v string) models.Code {
	if c, ok := t.codes[v]; ok {
		return c
	}
	return models.NoCode
}

// Apply looks up every value, preserving positions.
func (t *Table) Apply(values []string) []models.Code {
	out := make([]models.Code, len(values))
	for i, v := range values {
		out[i] = t.Lookup(v)
	}
	return out
}

// Reverse returns the value mapped to c.
func (t *Table) Reverse(c models.Code) (string, bool) {
	if !c.Valid() || int(c) >= len(t.values) {
		return "", false
	}
	return t.values[c], true
}

// Values returns the mapped values in code order.
func (t *Table) Values() []string {
	out := make([]string, len(t.values))
	copy(out, t.values)
	return out
}
