// MTS Cup - User Attribute Prediction Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mtscup

// Package refdata holds the immutable lookup tables used by the device and
// host aggregators: canonical manufacturer names, fallback device prices, and
// host markers. The default document is embedded; an override file with the
// same layout may be loaded instead.
package refdata

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/tomtom215/mtscup/internal/models"
	"github.com/tomtom215/mtscup/internal/vocab"
)

//go:embed reference.yaml
var defaultDocument []byte

// ErrInvalidDocument is returned for reference documents that fail validation.
var ErrInvalidDocument = errors.New("refdata: invalid reference document")

// StaticPrice is a fallback price for one raw (manufacturer, model) pair.
type StaticPrice struct {
	Manufacturer string  `yaml:"manufacturer"`
	Model        string  `yaml:"model"`
	Price        float64 `yaml:"price"`
}

// HostMarkers configure the host statistics features.
type HostMarkers struct {
	YandexTurboSuffix string   `yaml:"yandex_turbo_suffix"`
	GoogleTurboSuffix string   `yaml:"google_turbo_suffix"`
	MobileLabel       string   `yaml:"mobile_label"`
	Accelerators      []string `yaml:"accelerators"`
}

// Document is the decoded reference file.
type Document struct {
	Manufacturers map[string][]string `yaml:"manufacturers"`
	StaticPrices  []StaticPrice       `yaml:"static_prices"`
	Hosts         HostMarkers         `yaml:"hosts"`

	// CensusRegions maps census region names to telemetry region names.
	// Names missing here are used as is.
	CensusRegions map[string]string `yaml:"census_regions"`
}

// CensusRegion returns the telemetry name of a census region.
func (d *Document) CensusRegion(name string) string {
	if mapped, ok := d.CensusRegions[name]; ok {
		return mapped
	}
	return name
}

// Default decodes the embedded reference document.
func Default() (*Document, error) {
	return Parse(defaultDocument)
}

// Load reads the reference document at path, or the embedded one when path
// is empty.
func Load(path string) (*Document, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path) //nolint:gosec // path comes from trusted config
	if err != nil {
		return nil, fmt.Errorf("read reference document: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a reference document.
func Parse(data []byte) (*Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode reference document: %w", err)
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Validate checks that every raw manufacturer name maps to one canonical
// name and that every fallback price is positive.
func (d *Document) Validate() error {
	owner := make(map[string]string)
	for _, canonical := range d.canonicalNames() {
		for _, variant := range d.Manufacturers[canonical] {
			if prev, ok := owner[variant]; ok {
				return fmt.Errorf("%w: %q listed under %s and %s", ErrInvalidDocument, variant, prev, canonical)
			}
			owner[variant] = canonical
		}
	}
	for _, p := range d.StaticPrices {
		if p.Price <= 0 {
			return fmt.Errorf("%w: price for %s %s must be positive", ErrInvalidDocument, p.Manufacturer, p.Model)
		}
	}
	return nil
}

func (d *Document) canonicalNames() []string {
	names := make([]string, 0, len(d.Manufacturers))
	for name := range d.Manufacturers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DeviceReference is the document resolved against a vocabulary.
type DeviceReference struct {
	// Canonical maps manufacturer codes to canonical brand names.
	Canonical map[models.Code]string

	// StaticPrice maps model codes to fallback prices.
	StaticPrice map[models.Code]float64

	Hosts HostMarkers
}

// Resolve keys the document by the codes of set. Names that set does not
// contain are skipped.
func (d *Document) Resolve(set *vocab.Set) DeviceReference {
	manufacturers := set.Get(vocab.Manufacturer)
	modelTable := set.Get(vocab.Model)

	ref := DeviceReference{
		Canonical:   make(map[models.Code]string),
		StaticPrice: make(map[models.Code]float64),
		Hosts:       d.Hosts,
	}
	for canonical, variants := range d.Manufacturers {
		for _, variant := range variants {
			if code := manufacturers.Lookup(variant); code.Valid() {
				ref.Canonical[code] = canonical
			}
		}
	}
	for _, p := range d.StaticPrices {
		if code := modelTable.Lookup(vocab.CompoundKey(p.Manufacturer, p.Model)); code.Valid() {
			ref.StaticPrice[code] = p.Price
		}
	}
	return ref
}
