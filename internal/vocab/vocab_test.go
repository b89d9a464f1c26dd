// MTS Cup - User Attribute Prediction Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mtscup

package vocab

import (
	"database/sql"
	"errors"
	"reflect"
	"testing"

	"github.com/dgraph-io/badger/v4"

	"github.com/tomtom215/mtscup/internal/models"
)

func TestBuild(t *testing.T) {
	t.Parallel()

	table := Build("os", []string{"Android", "iOS", "Android", "Windows"})

	if table.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", table.Len())
	}

	tests := []struct {
		value string
		want  models.Code
	}{
		{value: "Android", want: 0},
		{value: "iOS", want: 1},
		{value: "Windows", want: 2},
		{value: "Symbian", want: models.NoCode},
		{value: "", want: models.NoCode},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			t.Parallel()
			if got := table.Lookup(tt.value); got != tt.want {
				t.Errorf("Lookup(%q) = %d, want %d", tt.value, got, tt.want)
			}
		})
	}
}

func TestTable_ApplyAndReverse(t *testing.T) {
	t.Parallel()

	table := Build("type", []string{"smartphone", "tablet"})
	got := table.Apply([]string{"tablet", "phablet", "smartphone"})
	want := []models.Code{1, models.NoCode, 0}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Apply() = %v, want %v", got, want)
	}

	if v, ok := table.Reverse(1); !ok || v != "tablet" {
		t.Errorf("Reverse(1) = %q, %v", v, ok)
	}
	if _, ok := table.Reverse(models.NoCode); ok {
		t.Error("Reverse(NoCode) should fail")
	}
	if _, ok := table.Reverse(5); ok {
		t.Error("Reverse(5) should fail for a two-entry table")
	}
}

func TestCompoundKey(t *testing.T) {
	t.Parallel()

	key := CompoundKey("Moscow", "Moscow")
	if key != "Moscow_+_Moscow" {
		t.Errorf("CompoundKey() = %q", key)
	}
	parent, child := SplitCompound(key)
	if parent != "Moscow" || child != "Moscow" {
		t.Errorf("SplitCompound() = %q, %q", parent, child)
	}
	if parent, child := SplitCompound("plain"); parent != "" || child != "plain" {
		t.Errorf("SplitCompound(plain) = %q, %q", parent, child)
	}
}

func sampleRows() []models.RawSession {
	return []models.RawSession{
		{RegionName: "Tver", CityName: "Tver", ManufacturerName: "Xiaomi", ModelName: "Redmi 9", TypeName: "smartphone", OSName: "Android"},
		{RegionName: "Moscow", CityName: "Moscow", ManufacturerName: "Apple", ModelName: "iPhone 11", TypeName: "smartphone", OSName: "iOS"},
		{RegionName: "Tver", CityName: "Rzhev", ManufacturerName: "Xiaomi", ModelName: "Redmi 9", TypeName: "smartphone", OSName: "Android"},
	}
}

func TestCollector_Build(t *testing.T) {
	t.Parallel()

	c := NewCollector()
	rows := sampleRows()
	c.Add(rows[:1])
	c.Add(rows[1:])
	set := c.Build()

	for _, name := range TableNames {
		if !set.Has(name) {
			t.Errorf("set is missing table %s", name)
		}
	}

	if got := set.Get(Region).Values(); !reflect.DeepEqual(got, []string{"Moscow", "Tver"}) {
		t.Errorf("region values = %v", got)
	}
	if got := set.Get(City).Values(); !reflect.DeepEqual(got, []string{"Moscow_+_Moscow", "Tver_+_Rzhev", "Tver_+_Tver"}) {
		t.Errorf("city values = %v", got)
	}
	if got := set.Get(Model).Lookup(CompoundKey("Apple", "iPhone 11")); got != 0 {
		t.Errorf("model code = %d, want 0", got)
	}
	if got := set.Get(PartOfDay).Values(); !reflect.DeepEqual(got, models.PartsOfDay) {
		t.Errorf("part_of_day values = %v, want %v", got, models.PartsOfDay)
	}
}

func TestCollector_SkipsEmptyValues(t *testing.T) {
	t.Parallel()

	c := NewCollector()
	c.Add([]models.RawSession{
		{RegionName: "", CityName: "Moscow", ManufacturerName: "Apple", ModelName: ""},
		{RegionName: "Moscow", CityName: "", ManufacturerName: "", ModelName: "iPhone 11"},
		{RegionName: "Moscow", CityName: "Moscow", ManufacturerName: "Apple", ModelName: "iPhone 11"},
	})
	set := c.Build()

	tests := []struct {
		table string
		want  []string
	}{
		{table: Region, want: []string{"Moscow"}},
		{table: City, want: []string{"Moscow_+_Moscow"}},
		{table: Manufacturer, want: []string{"Apple"}},
		{table: Model, want: []string{"Apple_+_iPhone 11"}},
		{table: Type, want: []string{}},
		{table: OS, want: []string{}},
	}
	for _, tt := range tests {
		got := set.Get(tt.table).Values()
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("%s values = %q, want %q", tt.table, got, tt.want)
		}
	}
	if got := set.Get(Region).Lookup(""); got != models.NoCode {
		t.Errorf("empty region code = %d, want NoCode", got)
	}
}

func TestCollector_Deterministic(t *testing.T) {
	t.Parallel()

	rows := sampleRows()
	a := NewCollector()
	a.Add(rows)
	b := NewCollector()
	for i := len(rows) - 1; i >= 0; i-- {
		b.Add(rows[i : i+1])
	}

	for _, name := range TableNames {
		if !reflect.DeepEqual(a.Build().Get(name).Values(), b.Build().Get(name).Values()) {
			t.Errorf("table %s depends on batch order", name)
		}
	}
}

func TestSet_GetMissing(t *testing.T) {
	t.Parallel()

	set := NewSet()
	if got := set.Get(Region).Lookup("Moscow"); got != models.NoCode {
		t.Errorf("missing table lookup = %d, want NoCode", got)
	}
}

func TestStore_RoundTrip(t *testing.T) {
	t.Parallel()

	store, err := OpenStore(t.TempDir())
	if err != nil {
		t.Fatalf("OpenStore() error = %v", err)
	}
	defer store.Close()

	c := NewCollector()
	c.Add(sampleRows())
	set := c.Build()

	if err := store.Save(set); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !reflect.DeepEqual(loaded.Names(), set.Names()) {
		t.Errorf("Names() = %v, want %v", loaded.Names(), set.Names())
	}
	for _, name := range set.Names() {
		if !reflect.DeepEqual(loaded.Get(name).Values(), set.Get(name).Values()) {
			t.Errorf("table %s = %v, want %v", name, loaded.Get(name).Values(), set.Get(name).Values())
		}
	}

	code, err := store.Lookup(City, "Tver_+_Rzhev")
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if code != 1 {
		t.Errorf("Lookup() = %d, want 1", code)
	}
	code, err = store.Lookup(City, "Tver_+_Kimry")
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if code != models.NoCode {
		t.Errorf("Lookup(unknown) = %d, want NoCode", code)
	}
}

func TestStore_SaveReplaces(t *testing.T) {
	t.Parallel()

	store, err := OpenStore(t.TempDir())
	if err != nil {
		t.Fatalf("OpenStore() error = %v", err)
	}
	defer store.Close()

	if err := store.Save(NewSet(Build(OS, []string{"Android", "iOS", "Windows"}))); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := store.Save(NewSet(Build(OS, []string{"iOS"}))); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got := loaded.Get(OS).Values(); !reflect.DeepEqual(got, []string{"iOS"}) {
		t.Errorf("values after replace = %v", got)
	}
}

func TestStore_DetectsSizeMismatch(t *testing.T) {
	t.Parallel()

	store, err := OpenStore(t.TempDir())
	if err != nil {
		t.Fatalf("OpenStore() error = %v", err)
	}
	defer store.Close()

	if err := store.Save(NewSet(Build(Type, []string{"smartphone", "tablet"}))); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	err = store.db.Update(func(txn *badger.Txn) error {
		return txn.Set(metaKey(Type), encodeCode(3))
	})
	if err != nil {
		t.Fatalf("corrupt meta: %v", err)
	}

	if _, err := store.Load(); !errors.Is(err, ErrCorruptTable) {
		t.Errorf("Load() error = %v, want ErrCorruptTable", err)
	}
}

func TestCollector_PriceMeans(t *testing.T) {
	t.Parallel()

	priced := func(manufacturer, model string, v float64) models.RawSession {
		return models.RawSession{ManufacturerName: manufacturer, ModelName: model, Price: sql.NullFloat64{Float64: v, Valid: true}}
	}
	c := NewCollector()
	c.Add([]models.RawSession{
		priced("Apple", "iPhone 11", 50000),
		priced("Apple", "iPhone 11", 70000),
		priced("Apple", "", 30000),
		priced("", "3310", 1000),
		{ManufacturerName: "Nokia", ModelName: "3310"},
	})
	// A second batch stands in for the test corpus.
	c.Add([]models.RawSession{priced("Apple", "iPhone 7", 20000)})
	set := c.Build()
	got := c.PriceMeans(set)

	model := set.Get(Model)
	wantModel := map[models.Code]float64{
		model.Lookup(CompoundKey("Apple", "iPhone 11")): 60000,
		model.Lookup(CompoundKey("Apple", "iPhone 7")):  20000,
	}
	if !reflect.DeepEqual(got.Model, wantModel) {
		t.Errorf("model means = %v, want %v", got.Model, wantModel)
	}
	apple := set.Get(Manufacturer).Lookup("Apple")
	if want := map[models.Code]float64{apple: 42500}; !reflect.DeepEqual(got.Manufacturer, want) {
		t.Errorf("manufacturer means = %v, want %v", got.Manufacturer, want)
	}
}

func TestStore_PriceMeansRoundTrip(t *testing.T) {
	t.Parallel()

	store, err := OpenStore(t.TempDir())
	if err != nil {
		t.Fatalf("OpenStore() error = %v", err)
	}
	defer store.Close()

	if _, err := store.LoadPriceMeans(); !errors.Is(err, ErrNoPriceMeans) {
		t.Errorf("LoadPriceMeans() on empty store error = %v, want ErrNoPriceMeans", err)
	}

	want := PriceMeans{
		Model:        map[models.Code]float64{0: 60000, 3: 20000},
		Manufacturer: map[models.Code]float64{0: 42500},
	}
	if err := store.SavePriceMeans(want); err != nil {
		t.Fatalf("SavePriceMeans() error = %v", err)
	}
	got, err := store.LoadPriceMeans()
	if err != nil {
		t.Fatalf("LoadPriceMeans() error = %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("LoadPriceMeans() = %+v, want %+v", got, want)
	}
}
