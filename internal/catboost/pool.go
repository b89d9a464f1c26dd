// MTS Cup - User Attribute Prediction Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mtscup

package catboost

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xh3b4sd/tracer"

	"github.com/tomtom215/mtscup/internal/features"
	"github.com/tomtom215/mtscup/internal/modeling"
)

// missingNumeric is how null numeric cells are written.
const missingNumeric = "nan"

var cellReplacer = strings.NewReplacer("\t", " ", "\n", " ", "\r", " ")

// columnType returns the column description type of a feature column.
func columnType(t features.ColumnType) string {
	switch t {
	case features.Categorical:
		return "Categ"
	case features.Text:
		return "Text"
	default:
		return "Num"
	}
}

// writeColumnDescription writes the pool.cd file: column 0 is the label,
// feature column i is column i+1.
func writeColumnDescription(dir string, pool *modeling.Pool) error {
	var b strings.Builder
	b.WriteString("0\tLabel\n")
	for i, c := range pool.Columns {
		fmt.Fprintf(&b, "%d\t%s\t%s\n", i+1, columnType(c.Type), c.Name)
	}
	if err := os.WriteFile(filepath.Join(dir, columnDescriptionFile), []byte(b.String()), 0o600); err != nil {
		return tracer.Mask(err)
	}
	return nil
}

// writePool writes pool as a tab separated file with a header row. Rows
// without labels get label 0, which the script never reads.
func writePool(path string, pool *modeling.Pool) error {
	f, err := os.Create(path) //nolint:gosec // path is inside the classifier work directory
	if err != nil {
		return tracer.Mask(err)
	}
	w := bufio.NewWriter(f)

	header := append([]string{"label"}, pool.ColumnNames()...)
	if _, err := w.WriteString(strings.Join(header, "\t") + "\n"); err != nil {
		_ = f.Close()
		return tracer.Mask(err)
	}

	fields := make([]string, len(pool.Columns)+1)
	for i, row := range pool.Rows {
		fields[0] = "0"
		if pool.Labels != nil {
			fields[0] = strconv.Itoa(pool.Labels[i])
		}
		for j, c := range pool.Columns {
			fields[j+1] = formatCell(row[j], c.Type)
		}
		if _, err := w.WriteString(strings.Join(fields, "\t") + "\n"); err != nil {
			_ = f.Close()
			return tracer.Mask(err)
		}
	}

	if err := w.Flush(); err != nil {
		_ = f.Close()
		return tracer.Mask(err)
	}
	if err := f.Close(); err != nil {
		return tracer.Mask(err)
	}
	return nil
}

func formatCell(c features.Cell, t features.ColumnType) string {
	if t == features.Numeric && !c.Valid {
		return missingNumeric
	}
	return cellReplacer.Replace(c.Format(t))
}

// readProba reads the probability file written by the predict script. The
// header holds the class labels.
func readProba(path string) (classes []int, proba [][]float64, err error) {
	f, err := os.Open(path) //nolint:gosec // path is inside the classifier work directory
	if err != nil {
		return nil, nil, tracer.Mask(err)
	}
	defer func() { _ = f.Close() }()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	if !sc.Scan() {
		return nil, nil, fmt.Errorf("%w: empty probability file", modeling.ErrShapeMismatch)
	}
	for _, h := range strings.Split(sc.Text(), "\t") {
		label, err := parseClass(h)
		if err != nil {
			return nil, nil, tracer.Mask(err)
		}
		classes = append(classes, label)
	}

	for sc.Scan() {
		parts := strings.Split(sc.Text(), "\t")
		if len(parts) != len(classes) {
			return nil, nil, fmt.Errorf("%w: probability row has %d values, want %d", modeling.ErrShapeMismatch, len(parts), len(classes))
		}
		row := make([]float64, len(parts))
		for j, p := range parts {
			if row[j], err = strconv.ParseFloat(p, 64); err != nil {
				return nil, nil, tracer.Mask(err)
			}
		}
		proba = append(proba, row)
	}
	if err := sc.Err(); err != nil {
		return nil, nil, tracer.Mask(err)
	}
	return classes, proba, nil
}

// parseClass accepts integer labels and their float renderings ("3.0").
func parseClass(s string) (int, error) {
	if v, err := strconv.Atoi(s); err == nil {
		return v, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("class label %q: %w", s, err)
	}
	return int(v), nil
}

// expand places each class column at position label-offset of a row of the
// given width, so that models trained on different class subsets produce
// comparable vectors.
func expand(classes []int, proba [][]float64, width, offset int) ([][]float64, error) {
	positions := make([]int, len(classes))
	for j, label := range classes {
		p := label - offset
		if p < 0 || p >= width {
			return nil, fmt.Errorf("%w: class %d outside %d..%d", modeling.ErrShapeMismatch, label, offset, offset+width-1)
		}
		positions[j] = p
	}
	out := make([][]float64, len(proba))
	for i, row := range proba {
		full := make([]float64, width)
		for j, v := range row {
			full[positions[j]] = v
		}
		out[i] = full
	}
	return out, nil
}
