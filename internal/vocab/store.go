// MTS Cup - User Attribute Prediction Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mtscup

package vocab

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/dgraph-io/badger/v4"

	"github.com/tomtom215/mtscup/internal/models"
)

// Key prefixes for BadgerDB storage
const (
	entryKeyPrefix = "emt:"
	metaKeyPrefix  = "emt_meta:"
)

// ErrCorruptTable is returned when a persisted table is not a dense code range.
var ErrCorruptTable = errors.New("vocab: persisted table is corrupt")

// Store persists mapping tables in BadgerDB between pipeline phases.
type Store struct {
	db *badger.DB
}

// OpenStore opens (or creates) a BadgerDB store in dir.
func OpenStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create vocab directory %s: %w", dir, err)
	}

	opts := badger.DefaultOptions(dir)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open vocab store: %w", err)
	}
	return &Store{db: db}, nil
}

// NewStore wraps an already opened BadgerDB instance.
func NewStore(db *badger.DB) *Store {
	return &Store{db: db}
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func entryPrefix(table string) []byte {
	return []byte(entryKeyPrefix + table + ":")
}

func metaKey(table string) []byte {
	return []byte(metaKeyPrefix + table)
}

func encodeCode(n uint64) []byte {
	buf := make([]byte, binary.MaxVarintLen64)
	return buf[:binary.PutUvarint(buf, n)]
}

func decodeCode(val []byte) (uint64, error) {
	n, read := binary.Uvarint(val)
	if read <= 0 {
		return 0, fmt.Errorf("%w: bad varint", ErrCorruptTable)
	}
	return n, nil
}

// Save replaces every table of set in the store.
func (s *Store) Save(set *Set) error {
	for _, name := range set.Names() {
		if err := s.saveTable(set.Get(name)); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) saveTable(t *Table) error {
	if strings.Contains(t.Name(), ":") {
		return fmt.Errorf("table name %q must not contain ':'", t.Name())
	}
	if err := s.db.DropPrefix(entryPrefix(t.Name())); err != nil {
		return fmt.Errorf("drop table %s: %w", t.Name(), err)
	}

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()

	prefix := entryPrefix(t.Name())
	for code, value := range t.values {
		key := make([]byte, 0, len(prefix)+len(value))
		key = append(append(key, prefix...), value...)
		if err := wb.Set(key, encodeCode(uint64(code))); err != nil {
			return fmt.Errorf("set %s entry: %w", t.Name(), err)
		}
	}
	if err := wb.Set(metaKey(t.Name()), encodeCode(uint64(t.Len()))); err != nil {
		return fmt.Errorf("set %s size: %w", t.Name(), err)
	}
	if err := wb.Flush(); err != nil {
		return fmt.Errorf("flush table %s: %w", t.Name(), err)
	}
	return nil
}

// Load reads every persisted table.
func (s *Store) Load() (*Set, error) {
	sizes := make(map[string]uint64)
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(metaKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			name := string(item.Key()[len(prefix):])
			err := item.Value(func(val []byte) error {
				n, err := decodeCode(val)
				sizes[name] = n
				return err
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list vocab tables: %w", err)
	}

	tables := make([]*Table, 0, len(sizes))
	for name, size := range sizes {
		t, err := s.loadTable(name, size)
		if err != nil {
			return nil, err
		}
		tables = append(tables, t)
	}
	return NewSet(tables...), nil
}

func (s *Store) loadTable(name string, size uint64) (*Table, error) {
	values := make([]string, size)
	filled := make([]bool, size)
	var count uint64

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := entryPrefix(name)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			value := string(item.Key()[len(prefix):])
			err := item.Value(func(val []byte) error {
				code, err := decodeCode(val)
				if err != nil {
					return err
				}
				if code >= size || filled[code] {
					return fmt.Errorf("%w: %s code %d out of range or repeated", ErrCorruptTable, name, code)
				}
				values[code] = value
				filled[code] = true
				return nil
			})
			if err != nil {
				return err
			}
			count++
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load table %s: %w", name, err)
	}
	if count != size {
		return nil, fmt.Errorf("%w: %s has %d entries, expected %d", ErrCorruptTable, name, count, size)
	}
	return Build(name, values), nil
}

// Lookup resolves a single value without loading the whole table.
func (s *Store) Lookup(table, value string) (models.Code, error) {
	code := models.NoCode
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(append(entryPrefix(table), value...))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			n, err := decodeCode(val)
			code = models.Code(n)
			return err
		})
	})
	if err != nil {
		return models.NoCode, fmt.Errorf("lookup %s: %w", table, err)
	}
	return code, nil
}
