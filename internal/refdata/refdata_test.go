// MTS Cup - User Attribute Prediction Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mtscup

package refdata

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/tomtom215/mtscup/internal/vocab"
)

func TestDefault(t *testing.T) {
	t.Parallel()

	doc, err := Default()
	if err != nil {
		t.Fatalf("Default() error = %v", err)
	}
	if got := len(doc.Manufacturers["Realme"]); got != 2 {
		t.Errorf("Realme variants = %d, want 2", got)
	}
	if doc.Hosts.YandexTurboSuffix != "turbopages.org" {
		t.Errorf("YandexTurboSuffix = %q", doc.Hosts.YandexTurboSuffix)
	}
	if doc.Hosts.MobileLabel != "m" {
		t.Errorf("MobileLabel = %q", doc.Hosts.MobileLabel)
	}
	if len(doc.StaticPrices) == 0 {
		t.Error("expected fallback prices")
	}
}

func TestParse_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		doc  string
	}{
		{
			name: "variant under two brands",
			doc:  "manufacturers:\n  A: [x]\n  B: [x]\n",
		},
		{
			name: "non-positive price",
			doc:  "static_prices:\n  - {manufacturer: a, model: b, price: 0}\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if _, err := Parse([]byte(tt.doc)); !errors.Is(err, ErrInvalidDocument) {
				t.Errorf("Parse() error = %v, want ErrInvalidDocument", err)
			}
		})
	}

	if _, err := Parse([]byte("manufacturers: [")); err == nil {
		t.Error("Parse() should fail on malformed YAML")
	}
}

func TestLoad(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "ref.yaml")
	if err := os.WriteFile(path, []byte("manufacturers:\n  Apple: [Apple Inc]\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	doc, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if doc.Manufacturers["Apple"][0] != "Apple Inc" {
		t.Errorf("Manufacturers = %v", doc.Manufacturers)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Load() should fail for a missing file")
	}
}

func TestResolve(t *testing.T) {
	t.Parallel()

	set := vocab.NewSet(
		vocab.Build(vocab.Manufacturer, []string{"Huawei Device Company Limited", "Unknown Corp", "Yandex LLC"}),
		vocab.Build(vocab.Model, []string{vocab.CompoundKey("Yandex LLC", "Yandex.Phone"), vocab.CompoundKey("Huawei", "P40")}),
	)

	doc, err := Default()
	if err != nil {
		t.Fatal(err)
	}
	ref := doc.Resolve(set)

	if got := ref.Canonical[0]; got != "Huawei" {
		t.Errorf("Canonical[0] = %q, want Huawei", got)
	}
	if _, ok := ref.Canonical[1]; ok {
		t.Error("unknown manufacturer should not resolve")
	}
	if got := ref.Canonical[2]; got != "Yandex" {
		t.Errorf("Canonical[2] = %q, want Yandex", got)
	}
	if got := ref.StaticPrice[0]; got != 9990 {
		t.Errorf("StaticPrice[0] = %v, want 9990", got)
	}
	if _, ok := ref.StaticPrice[1]; ok {
		t.Error("model without a fallback price should not resolve")
	}
}

func TestCensusRegion(t *testing.T) {
	t.Parallel()

	doc, err := Default()
	if err != nil {
		t.Fatal(err)
	}
	if got := doc.CensusRegion("г. Москва"); got != "Москва" {
		t.Errorf("CensusRegion(г. Москва) = %q", got)
	}
	if got := doc.CensusRegion("Тверская область"); got != "Тверская область" {
		t.Errorf("unmapped census region should pass through, got %q", got)
	}
}
