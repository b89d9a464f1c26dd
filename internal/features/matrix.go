// MTS Cup - User Attribute Prediction Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mtscup

package features

import (
	"fmt"
	"sort"
)

// Matrix is the joined per-user feature matrix.
type Matrix struct {
	Columns []Column
	Users   []uint32
	Rows    [][]Cell

	index map[uint32]int
}

// Join left joins tables onto the user universe. The result has exactly one
// row per distinct user; users missing from a table get that table's fills.
func Join(users []uint32, tables ...*Table) (*Matrix, error) {
	universe := distinct(users)

	var columns []Column
	seen := make(map[string]string)
	for _, t := range tables {
		for _, c := range t.Columns() {
			if owner, ok := seen[c.Name]; ok {
				return nil, fmt.Errorf("%w: %s in %s and %s", ErrDuplicateColumn, c.Name, owner, t.Name())
			}
			seen[c.Name] = t.Name()
			columns = append(columns, c)
		}
	}

	rows := make([][]Cell, len(universe))
	for i, user := range universe {
		row := make([]Cell, 0, len(columns))
		for _, t := range tables {
			if r, ok := t.Row(user); ok {
				row = append(row, r...)
				continue
			}
			for _, c := range t.Columns() {
				row = append(row, c.Fill)
			}
		}
		rows[i] = row
	}

	m := &Matrix{Columns: columns, Users: universe, Rows: rows}
	m.buildIndex()
	return m, nil
}

func distinct(users []uint32) []uint32 {
	out := make([]uint32, 0, len(users))
	seen := make(map[uint32]struct{}, len(users))
	for _, u := range users {
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (m *Matrix) buildIndex() {
	m.index = make(map[uint32]int, len(m.Users))
	for i, u := range m.Users {
		m.index[u] = i
	}
}

// Len returns the number of rows.
func (m *Matrix) Len() int {
	return len(m.Users)
}

// ColumnIndex returns the position of the named column, or -1.
func (m *Matrix) ColumnIndex(name string) int {
	for i, c := range m.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// Row returns the row of user.
func (m *Matrix) Row(user uint32) ([]Cell, bool) {
	if m.index == nil {
		m.buildIndex()
	}
	i, ok := m.index[user]
	if !ok {
		return nil, false
	}
	return m.Rows[i], true
}

// Select returns the columns with the given names, in that order.
func (m *Matrix) Select(names []string) (*Matrix, error) {
	positions := make([]int, len(names))
	columns := make([]Column, len(names))
	for i, name := range names {
		p := m.ColumnIndex(name)
		if p < 0 {
			return nil, fmt.Errorf("%w: unknown column %s", ErrShapeMismatch, name)
		}
		positions[i] = p
		columns[i] = m.Columns[p]
	}

	rows := make([][]Cell, len(m.Rows))
	for r, src := range m.Rows {
		row := make([]Cell, len(positions))
		for i, p := range positions {
			row[i] = src[p]
		}
		rows[r] = row
	}

	out := &Matrix{Columns: columns, Users: append([]uint32(nil), m.Users...), Rows: rows}
	out.buildIndex()
	return out, nil
}
