// MTS Cup - User Attribute Prediction Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mtscup

package vocab

import (
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/mtscup/internal/models"
)

const priceMeansKey = "emt_prices"

// ErrNoPriceMeans is returned by LoadPriceMeans for a store written without
// price means.
var ErrNoPriceMeans = errors.New("vocab: store has no price means")

// PriceMeans holds the observed device price means of every collected
// corpus, by model code and by manufacturer code. It is built once next to
// the mapping tables and applied unchanged to train and test sessions.
type PriceMeans struct {
	Model        map[models.Code]float64 `json:"model"`
	Manufacturer map[models.Code]float64 `json:"manufacturer"`
}

type priceSum struct {
	sum float64
	n   int
}

func addPrice(sums map[string]*priceSum, key string, v float64) {
	p, ok := sums[key]
	if !ok {
		p = &priceSum{}
		sums[key] = p
	}
	p.sum += v
	p.n++
}

func means(sums map[string]*priceSum, t *Table) map[models.Code]float64 {
	out := make(map[models.Code]float64, len(sums))
	for key, p := range sums {
		if code := t.Lookup(key); code.Valid() && p.n > 0 {
			out[code] = p.sum / float64(p.n)
		}
	}
	return out
}

// PriceMeans translates the collected prices to codes of set. Keys without
// a code in set are dropped.
func (c *Collector) PriceMeans(set *Set) PriceMeans {
	return PriceMeans{
		Model:        means(c.modelPrices, set.Get(Model)),
		Manufacturer: means(c.manufacturerPrices, set.Get(Manufacturer)),
	}
}

// SavePriceMeans replaces the stored price means.
func (s *Store) SavePriceMeans(p PriceMeans) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode price means: %w", err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(priceMeansKey), data)
	})
	if err != nil {
		return fmt.Errorf("save price means: %w", err)
	}
	return nil
}

// LoadPriceMeans reads the price means written by SavePriceMeans.
func (s *Store) LoadPriceMeans() (PriceMeans, error) {
	var p PriceMeans
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(priceMeansKey))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNoPriceMeans
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &p)
		})
	})
	if err != nil {
		return PriceMeans{}, fmt.Errorf("load price means: %w", err)
	}
	return p, nil
}
