// MTS Cup - User Attribute Prediction Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mtscup

package features

import (
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/tomtom215/mtscup/internal/models"
)

var (
	// ErrShapeMismatch is returned when a row does not match its table columns.
	ErrShapeMismatch = errors.New("features: row does not match columns")

	// ErrDuplicateColumn is returned when joined tables share a column name.
	ErrDuplicateColumn = errors.New("features: duplicate column")

	// ErrDuplicateUser is returned when a table receives two rows for one user.
	ErrDuplicateUser = errors.New("features: duplicate user row")
)

// ColumnType tells the model how to treat a column.
type ColumnType int

const (
	// Numeric columns hold float values.
	Numeric ColumnType = iota
	// Categorical columns hold string labels, including stringified codes.
	Categorical
	// Text columns hold space separated token blobs.
	Text
)

// String returns the column type name.
func (t ColumnType) String() string {
	switch t {
	case Numeric:
		return "numeric"
	case Categorical:
		return "categorical"
	case Text:
		return "text"
	default:
		return "unknown"
	}
}

// Cell is one feature value. The zero value is null.
type Cell struct {
	Num   float64
	Str   string
	Valid bool
}

// Null is the missing value.
var Null = Cell{}

// Num returns a numeric cell.
func Num(v float64) Cell {
	return Cell{Num: v, Valid: true}
}

// Int returns a numeric cell holding an integer.
func Int(v int) Cell {
	return Cell{Num: float64(v), Valid: true}
}

// Str returns a categorical or text cell.
func Str(s string) Cell {
	return Cell{Str: s, Valid: true}
}

// CodeCell returns a categorical cell for a mapping code; NoCode is null.
func CodeCell(c models.Code) Cell {
	if !c.Valid() {
		return Null
	}
	return Str(c.String())
}

// Format renders the cell as a value of type t. Null renders as "".
func (c Cell) Format(t ColumnType) string {
	if !c.Valid {
		return ""
	}
	if t == Numeric {
		return strconv.FormatFloat(c.Num, 'g', -1, 64)
	}
	return c.Str
}

// Column describes one feature column.
type Column struct {
	Name string
	Type ColumnType
	// Fill is used for users that have no row in the owning table.
	Fill Cell
}

// NumericColumn is a numeric column filled with fill.
func NumericColumn(name string, fill Cell) Column {
	return Column{Name: name, Type: Numeric, Fill: fill}
}

// CategoricalColumn is a categorical column filled with fill.
func CategoricalColumn(name string, fill Cell) Column {
	return Column{Name: name, Type: Categorical, Fill: fill}
}

// TextColumn is a text column filled with the empty string.
func TextColumn(name string) Column {
	return Column{Name: name, Type: Text, Fill: Str("")}
}

// Table is one aggregator output with at most one row per user.
type Table struct {
	name    string
	columns []Column
	rows    map[uint32][]Cell
}

// NewTable creates an empty table.
func NewTable(name string, columns []Column) *Table {
	return &Table{
		name:    name,
		columns: columns,
		rows:    make(map[uint32][]Cell),
	}
}

// Name returns the producing aggregator name.
func (t *Table) Name() string {
	return t.name
}

// Columns returns the column descriptors.
func (t *Table) Columns() []Column {
	return t.columns
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.rows)
}

// Set stores the row of user.
func (t *Table) Set(user uint32, row []Cell) error {
	if len(row) != len(t.columns) {
		return fmt.Errorf("%w: %s has %d columns, row has %d", ErrShapeMismatch, t.name, len(t.columns), len(row))
	}
	if _, ok := t.rows[user]; ok {
		return fmt.Errorf("%w: %s user %d", ErrDuplicateUser, t.name, user)
	}
	t.rows[user] = row
	return nil
}

// Row returns the row of user.
func (t *Table) Row(user uint32) ([]Cell, bool) {
	row, ok := t.rows[user]
	return row, ok
}

// Value returns the named cell of user, or the column fill when the user
// has no row. ok is false for an unknown column.
func (t *Table) Value(user uint32, column string) (Cell, bool) {
	for i, c := range t.columns {
		if c.Name != column {
			continue
		}
		if row, found := t.rows[user]; found {
			return row[i], true
		}
		return c.Fill, true
	}
	return Null, false
}

// Users returns the users with a row, ascending.
func (t *Table) Users() []uint32 {
	users := make([]uint32, 0, len(t.rows))
	for u := range t.rows {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i] < users[j] })
	return users
}
