// MTS Cup - User Attribute Prediction Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mtscup

package vocab

import (
	"sort"

	"github.com/tomtom215/mtscup/internal/models"
)

// Set is a named collection of mapping tables.
type Set struct {
	tables map[string]*Table
}

// NewSet creates a Set from tables, keyed by table name.
func NewSet(tables ...*Table) *Set {
	s := &Set{tables: make(map[string]*Table, len(tables))}
	for _, t := range tables {
		s.tables[t.Name()] = t
	}
	return s
}

// Get returns the named table. A missing table behaves as an empty one.
func (s *Set) Get(name string) *Table {
	if t, ok := s.tables[name]; ok {
		return t
	}
	return Build(name, nil)
}

// Has reports whether the named table exists.
func (s *Set) Has(name string) bool {
	_, ok := s.tables[name]
	return ok
}

// Names returns the table names in lexical order.
func (s *Set) Names() []string {
	names := make([]string, 0, len(s.tables))
	for name := range s.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Collector accumulates the distinct categorical values and the device
// prices of many session batches. It is not safe for concurrent use.
type Collector struct {
	seen               map[string]map[string]struct{}
	modelPrices        map[string]*priceSum
	manufacturerPrices map[string]*priceSum
}

// NewCollector creates an empty Collector.
func NewCollector() *Collector {
	c := &Collector{
		seen:               make(map[string]map[string]struct{}, len(TableNames)),
		modelPrices:        make(map[string]*priceSum),
		manufacturerPrices: make(map[string]*priceSum),
	}
	for _, name := range TableNames {
		c.seen[name] = make(map[string]struct{})
	}
	return c
}

// Add records every categorical value of rows, with compound keys for
// cities and models. Empty values are null in the source and never get a
// code; a compound key is skipped when either of its parts is empty.
func (c *Collector) Add(rows []models.RawSession) {
	for i := range rows {
		r := &rows[i]
		c.add(Region, r.RegionName)
		c.addCompound(City, r.RegionName, r.CityName)
		c.add(Manufacturer, r.ManufacturerName)
		c.addCompound(Model, r.ManufacturerName, r.ModelName)
		c.add(Type, r.TypeName)
		c.add(OS, r.OSName)

		if !r.Price.Valid || r.ManufacturerName == "" {
			continue
		}
		addPrice(c.manufacturerPrices, r.ManufacturerName, r.Price.Float64)
		if r.ModelName != "" {
			addPrice(c.modelPrices, CompoundKey(r.ManufacturerName, r.ModelName), r.Price.Float64)
		}
	}
}

func (c *Collector) add(table, value string) {
	if value != "" {
		c.seen[table][value] = struct{}{}
	}
}

func (c *Collector) addCompound(table, parent, child string) {
	if parent != "" && child != "" {
		c.seen[table][CompoundKey(parent, child)] = struct{}{}
	}
}

// Build sorts each vocabulary lexically and assigns codes. The part-of-day
// table always follows models.PartsOfDay.
func (c *Collector) Build() *Set {
	tables := make([]*Table, 0, len(TableNames))
	for _, name := range TableNames {
		if name == PartOfDay {
			tables = append(tables, Build(PartOfDay, models.PartsOfDay))
			continue
		}
		values := make([]string, 0, len(c.seen[name]))
		for v := range c.seen[name] {
			values = append(values, v)
		}
		sort.Strings(values)
		tables = append(tables, Build(name, values))
	}
	return NewSet(tables...)
}
