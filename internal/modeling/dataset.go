// MTS Cup - User Attribute Prediction Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mtscup

package modeling

import (
	"fmt"
	"slices"

	"github.com/tomtom215/mtscup/internal/features"
	"github.com/tomtom215/mtscup/internal/models"
)

// PoolOptions control which matrix columns reach the classifier.
type PoolOptions struct {
	// Exclude lists feature columns left out of every pool.
	Exclude []string `koanf:"exclude"`

	// TextFeatures passes text columns to the classifier. When false they
	// are dropped, since text features are not supported by every task type.
	TextFeatures bool `koanf:"text_features"`
}

// Pool is a bundle of feature rows and optional labels handed to a
// classifier. Labels is nil for prediction pools.
type Pool struct {
	Columns []features.Column
	Users   []uint32
	Rows    [][]features.Cell
	Labels  []int
}

// Len returns the number of rows.
func (p *Pool) Len() int {
	return len(p.Rows)
}

// CatFeatures returns the positions of categorical columns.
func (p *Pool) CatFeatures() []int {
	return p.positions(features.Categorical)
}

// TextFeatures returns the positions of text columns.
func (p *Pool) TextFeatures() []int {
	return p.positions(features.Text)
}

func (p *Pool) positions(t features.ColumnType) []int {
	var out []int
	for i, c := range p.Columns {
		if c.Type == t {
			out = append(out, i)
		}
	}
	return out
}

// ColumnNames returns the column names in order.
func (p *Pool) ColumnNames() []string {
	names := make([]string, len(p.Columns))
	for i, c := range p.Columns {
		names[i] = c.Name
	}
	return names
}

// Dataset aligns a feature matrix with the labels of its users. Users
// without a label carry null labels, so test sets are datasets too.
type Dataset struct {
	users   []uint32
	rows    [][]features.Cell
	labels  []models.Label
	columns []features.Column
	keep    []int
}

// NewDataset aligns labels with the rows of m. Every labeled user must have a
// matrix row; the matrix is expected to be built over the label universe.
func NewDataset(m *features.Matrix, labels []models.Label, opts PoolOptions) (*Dataset, error) {
	byUser := make(map[uint32]models.Label, len(labels))
	for _, l := range labels {
		if _, ok := m.Row(l.UserID); !ok {
			return nil, fmt.Errorf("%w: labeled user %d has no feature row", ErrShapeMismatch, l.UserID)
		}
		byUser[l.UserID] = l
	}

	ds := &Dataset{
		users:  m.Users,
		rows:   m.Rows,
		labels: make([]models.Label, len(m.Users)),
	}
	for i, u := range m.Users {
		l, ok := byUser[u]
		if !ok {
			l = models.Label{UserID: u}
		}
		ds.labels[i] = l
	}

	for i, c := range m.Columns {
		if slices.Contains(opts.Exclude, c.Name) {
			continue
		}
		if c.Type == features.Text && !opts.TextFeatures {
			continue
		}
		ds.keep = append(ds.keep, i)
		ds.columns = append(ds.columns, c)
	}
	return ds, nil
}

// Len returns the number of rows.
func (d *Dataset) Len() int {
	return len(d.users)
}

// Users returns the user of every row, in row order.
func (d *Dataset) Users() []uint32 {
	return d.users
}

// Labels returns the label of every row, in row order.
func (d *Dataset) Labels() []models.Label {
	return d.labels
}

// Subset returns the rows at the given positions, in that order.
func (d *Dataset) Subset(positions []int) *Dataset {
	out := &Dataset{
		users:   make([]uint32, len(positions)),
		rows:    make([][]features.Cell, len(positions)),
		labels:  make([]models.Label, len(positions)),
		columns: d.columns,
		keep:    d.keep,
	}
	for i, p := range positions {
		out.users[i] = d.users[p]
		out.rows[i] = d.rows[p]
		out.labels[i] = d.labels[p]
	}
	return out
}

func (d *Dataset) project(row []features.Cell) []features.Cell {
	out := make([]features.Cell, len(d.keep))
	for i, p := range d.keep {
		out[i] = row[p]
	}
	return out
}

// Pool returns every row without labels.
func (d *Dataset) Pool() *Pool {
	p := &Pool{Columns: d.columns, Users: d.users, Rows: make([][]features.Cell, len(d.rows))}
	for i, row := range d.rows {
		p.Rows[i] = d.project(row)
	}
	return p
}

// SexPool returns the rows with a known sex, labeled 1 for male.
func (d *Dataset) SexPool() *Pool {
	return d.labeledPool(func(l models.Label) (int, bool) {
		if !l.IsMale.Valid {
			return 0, false
		}
		if l.IsMale.Bool {
			return 1, true
		}
		return 0, true
	})
}

// AgePool returns the rows with a known age bucket, labeled with the bucket
// after folding bucket 0 into bucket 1.
func (d *Dataset) AgePool() *Pool {
	return d.labeledPool(func(l models.Label) (int, bool) {
		if !l.AgeBucket.Valid {
			return 0, false
		}
		return models.ClipBucket(int(l.AgeBucket.Int32)), true
	})
}

func (d *Dataset) labeledPool(label func(models.Label) (int, bool)) *Pool {
	p := &Pool{Columns: d.columns, Labels: []int{}}
	for i, l := range d.labels {
		y, ok := label(l)
		if !ok {
			continue
		}
		p.Users = append(p.Users, d.users[i])
		p.Rows = append(p.Rows, d.project(d.rows[i]))
		p.Labels = append(p.Labels, y)
	}
	return p
}
