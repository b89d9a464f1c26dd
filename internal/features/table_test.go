// MTS Cup - User Attribute Prediction Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mtscup

package features

import (
	"errors"
	"reflect"
	"testing"

	"github.com/tomtom215/mtscup/internal/models"
)

func TestCell_Format(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cell Cell
		typ  ColumnType
		want string
	}{
		{name: "null", cell: Null, typ: Numeric, want: ""},
		{name: "number", cell: Num(0.25), typ: Numeric, want: "0.25"},
		{name: "zero", cell: Int(0), typ: Numeric, want: "0"},
		{name: "empty string", cell: Str(""), typ: Categorical, want: ""},
		{name: "text", cell: Str("ya.ru vk.com"), typ: Text, want: "ya.ru vk.com"},
		{name: "code", cell: CodeCell(12), typ: Categorical, want: "12"},
		{name: "no code", cell: CodeCell(models.NoCode), typ: Categorical, want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.cell.Format(tt.typ); got != tt.want {
				t.Errorf("Format() = %q, want %q", got, tt.want)
			}
		})
	}
	if CodeCell(models.NoCode).Valid {
		t.Error("CodeCell(NoCode) should be null")
	}
}

func TestTable_Set(t *testing.T) {
	t.Parallel()

	tbl := NewTable("test", []Column{NumericColumn("a", Num(0)), CategoricalColumn("b", Null)})

	if err := tbl.Set(1, []Cell{Num(1)}); !errors.Is(err, ErrShapeMismatch) {
		t.Errorf("short row error = %v, want ErrShapeMismatch", err)
	}
	if err := tbl.Set(1, []Cell{Num(1), Str("x")}); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := tbl.Set(1, []Cell{Num(2), Str("y")}); !errors.Is(err, ErrDuplicateUser) {
		t.Errorf("duplicate user error = %v, want ErrDuplicateUser", err)
	}

	if v, ok := tbl.Value(1, "b"); !ok || v != Str("x") {
		t.Errorf("Value(1, b) = %+v, %v", v, ok)
	}
	if v, ok := tbl.Value(2, "a"); !ok || v != Num(0) {
		t.Errorf("Value(2, a) = %+v, want fill", v)
	}
	if _, ok := tbl.Value(1, "missing"); ok {
		t.Error("Value() should fail for an unknown column")
	}
}

func TestJoin(t *testing.T) {
	t.Parallel()

	left := NewTable("left", []Column{NumericColumn("visits", Int(0))})
	right := NewTable("right", []Column{CategoricalColumn("region", Null), TextColumn("hosts")})
	mustSet(t, left, 1, Int(5))
	mustSet(t, right, 2, Str("7"), Str("ya.ru"))
	mustSet(t, right, 42, Str("1"), Str("vk.com"))

	m, err := Join([]uint32{3, 1, 3, 2}, left, right)
	if err != nil {
		t.Fatalf("Join() error = %v", err)
	}

	if m.Len() != 3 {
		t.Fatalf("Len() = %d, want 3 distinct users", m.Len())
	}
	if !reflect.DeepEqual(m.Users, []uint32{1, 2, 3}) {
		t.Errorf("Users = %v", m.Users)
	}

	want := map[uint32][]Cell{
		1: {Int(5), Null, Str("")},
		2: {Int(0), Str("7"), Str("ya.ru")},
		3: {Int(0), Null, Str("")},
	}
	for user, cells := range want {
		row, ok := m.Row(user)
		if !ok {
			t.Fatalf("Row(%d) missing", user)
		}
		if !reflect.DeepEqual(row, cells) {
			t.Errorf("Row(%d) = %+v, want %+v", user, row, cells)
		}
	}
	if _, ok := m.Row(42); ok {
		t.Error("users outside the universe must not be joined")
	}
	if m.ColumnIndex("hosts") != 2 || m.ColumnIndex("nope") != -1 {
		t.Error("ColumnIndex() returned wrong positions")
	}
}

func TestJoin_DuplicateColumn(t *testing.T) {
	t.Parallel()

	a := NewTable("a", []Column{NumericColumn("x", Num(0))})
	b := NewTable("b", []Column{NumericColumn("x", Num(0))})
	if _, err := Join([]uint32{1}, a, b); !errors.Is(err, ErrDuplicateColumn) {
		t.Errorf("Join() error = %v, want ErrDuplicateColumn", err)
	}
}

func TestMatrix_Select(t *testing.T) {
	t.Parallel()

	tbl := NewTable("t", []Column{NumericColumn("a", Num(0)), NumericColumn("b", Num(0))})
	mustSet(t, tbl, 1, Num(1), Num(2))
	m, err := Join([]uint32{1}, tbl)
	if err != nil {
		t.Fatal(err)
	}

	sel, err := m.Select([]string{"b", "a"})
	if err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	if row, _ := sel.Row(1); !reflect.DeepEqual(row, []Cell{Num(2), Num(1)}) {
		t.Errorf("selected row = %+v", row)
	}
	if _, err := m.Select([]string{"c"}); !errors.Is(err, ErrShapeMismatch) {
		t.Errorf("Select(unknown) error = %v", err)
	}
}

func TestNewCorpus(t *testing.T) {
	t.Parallel()

	c := NewCorpus([]models.Session{
		{UserID: 9, URLHost: "a"},
		{UserID: 2, URLHost: "b"},
		{UserID: 9, URLHost: "c"},
	})

	if !reflect.DeepEqual(c.UserIDs(), []uint32{2, 9}) {
		t.Errorf("UserIDs() = %v", c.UserIDs())
	}
	if c.Rows() != 3 {
		t.Errorf("Rows() = %d", c.Rows())
	}
	if got := c.Users[1].Rows; len(got) != 2 || got[0].URLHost != "a" || got[1].URLHost != "c" {
		t.Errorf("user 9 rows = %+v, want input order kept", got)
	}
}

func TestCorpus_MapHosts(t *testing.T) {
	t.Parallel()

	c := NewCorpus([]models.Session{
		{UserID: 1, URLHost: "M.VK.COM"},
		{UserID: 2, URLHost: "M.VK.COM"},
		{UserID: 2, URLHost: "YA.RU"},
	})

	calls := 0
	mapped := c.MapHosts(func(h string) string {
		calls++
		return "x" + h
	})

	if calls != 2 {
		t.Errorf("cleaner called %d times, want once per distinct host", calls)
	}
	if mapped.Users[1].Rows[1].URLHost != "xYA.RU" {
		t.Errorf("mapped host = %q", mapped.Users[1].Rows[1].URLHost)
	}
	if c.Users[1].Rows[1].URLHost != "YA.RU" {
		t.Error("MapHosts must not modify the source corpus")
	}
}

func mustSet(t *testing.T, tbl *Table, user uint32, cells ...Cell) {
	t.Helper()
	if err := tbl.Set(user, cells); err != nil {
		t.Fatalf("Set(%d) error = %v", user, err)
	}
}
