// MTS Cup - User Attribute Prediction Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mtscup

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/mtscup/internal/features"
	"github.com/tomtom215/mtscup/internal/metrics"
	"github.com/tomtom215/mtscup/internal/models"
)

// ErrBadSidecar is returned when a matrix column sidecar does not describe
// the parquet file next to it.
var ErrBadSidecar = errors.New("database: matrix sidecar does not match data")

// copyOptions returns the COPY options for path, picked by extension.
func copyOptions(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return "FORMAT CSV, HEADER true"
	case ".tsv":
		return "FORMAT CSV, HEADER true, DELIMITER '\t'"
	default:
		return "FORMAT PARQUET, COMPRESSION 'ZSTD', ROW_GROUP_SIZE 100000"
	}
}

// PredictionColumns returns the output column names. The fold column is
// present for out-of-fold predictions only.
func PredictionColumns(withFold bool) []string {
	cols := []string{"user_id", "is_male"}
	for i := 1; i <= models.NumAgeBuckets; i++ {
		cols = append(cols, fmt.Sprintf("age_bucket_%d_proba", i))
	}
	cols = append(cols, "age")
	if withFold {
		cols = append(cols, "fold")
	}
	return cols
}

// WritePredictions writes preds to path as CSV or parquet. A fold column is
// written when any prediction carries a fold.
func (db *DB) WritePredictions(ctx context.Context, path string, preds []models.Prediction) error {
	start := time.Now()

	withFold := false
	for _, p := range preds {
		if len(p.AgeProba) != models.NumAgeBuckets {
			return fmt.Errorf("prediction for user %d has %d age probabilities, want %d", p.UserID, len(p.AgeProba), models.NumAgeBuckets)
		}
		if p.Fold != models.NoFold {
			withFold = true
		}
	}

	cols := PredictionColumns(withFold)
	defs := make([]string, len(cols))
	for i, c := range cols {
		typ := "DOUBLE"
		switch c {
		case "user_id":
			typ = "BIGINT"
		case "age", "fold":
			typ = "INTEGER"
		}
		defs[i] = identifier(c) + " " + typ
	}

	err := db.export(ctx, "predictions_export", defs, path, len(preds), func(i int) []any {
		p := preds[i]
		args := make([]any, 0, len(cols))
		args = append(args, int64(p.UserID), p.IsMale)
		for _, v := range p.AgeProba {
			args = append(args, v)
		}
		args = append(args, p.Age)
		if withFold {
			args = append(args, p.Fold)
		}
		return args
	})
	if err != nil {
		return err
	}

	metrics.RecordDBQuery("write_predictions", time.Since(start), len(preds))
	db.logger.Info().
		Str("path", path).
		Int("rows", len(preds)).
		Bool("fold_column", withFold).
		Msg("Wrote predictions")
	return nil
}

// export stages n rows in a temporary table on a pinned connection, copies
// the table to path and drops it.
func (db *DB) export(ctx context.Context, table string, defs []string, path string, n int, row func(int) []any) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("failed to create output directory %s: %w", dir, err)
		}
	}

	// Temporary tables are connection-local.
	conn, err := db.conn.Conn(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer closeQuietly(conn)

	create := fmt.Sprintf("CREATE OR REPLACE TEMPORARY TABLE %s (%s)", table, strings.Join(defs, ", "))
	if _, err := conn.ExecContext(ctx, create); err != nil {
		return fmt.Errorf("failed to create temporary table %s: %w", table, err)
	}
	defer func() {
		// Use a fresh context so the table is dropped after cancellation too.
		if _, err := conn.ExecContext(context.Background(), "DROP TABLE IF EXISTS "+table); err != nil {
			db.logger.Warn().Err(err).Str("table", table).Msg("Failed to drop temporary table")
		}
	}()

	if err := insertRows(ctx, conn, table, len(defs), n, row); err != nil {
		return err
	}

	copyQuery := fmt.Sprintf("COPY %s TO %s (%s)", table, literal(path), copyOptions(path))
	if _, err := conn.ExecContext(ctx, copyQuery); err != nil {
		return fmt.Errorf("failed to copy %s to %s: %w", table, path, err)
	}
	return nil
}

func insertRows(ctx context.Context, conn *sql.Conn, table string, width, n int, row func(int) []any) error {
	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", width), ", ")
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf("INSERT INTO %s VALUES (%s)", table, placeholders))
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer closeQuietly(stmt)

	for i := range n {
		if _, err := stmt.ExecContext(ctx, row(i)...); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to insert row %d: %w", i, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit rows: %w", err)
	}
	return nil
}

// matrixColumn is the sidecar record of one feature column.
type matrixColumn struct {
	Name      string  `json:"name"`
	Type      string  `json:"type"`
	FillValid bool    `json:"fill_valid"`
	FillNum   float64 `json:"fill_num,omitempty"`
	FillStr   string  `json:"fill_str,omitempty"`
}

// SidecarPath returns the column sidecar path of a matrix file.
func SidecarPath(path string) string {
	return path + ".columns.json"
}

func columnKind(name string) (features.ColumnType, error) {
	for _, t := range []features.ColumnType{features.Numeric, features.Categorical, features.Text} {
		if t.String() == name {
			return t, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown column type %q", ErrBadSidecar, name)
}

// WriteMatrix writes m to path as parquet with a user_id column first, plus
// a JSON sidecar with the column kinds and fills.
func (db *DB) WriteMatrix(ctx context.Context, path string, m *features.Matrix) error {
	start := time.Now()

	defs := make([]string, 0, len(m.Columns)+1)
	defs = append(defs, "user_id BIGINT")
	sidecar := make([]matrixColumn, len(m.Columns))
	for i, c := range m.Columns {
		typ := "VARCHAR"
		if c.Type == features.Numeric {
			typ = "DOUBLE"
		}
		defs = append(defs, identifier(c.Name)+" "+typ)
		sidecar[i] = matrixColumn{Name: c.Name, Type: c.Type.String(), FillValid: c.Fill.Valid, FillNum: c.Fill.Num, FillStr: c.Fill.Str}
	}

	err := db.export(ctx, "matrix_export", defs, path, m.Len(), func(i int) []any {
		args := make([]any, 0, len(m.Columns)+1)
		args = append(args, int64(m.Users[i]))
		for j, c := range m.Columns {
			cell := m.Rows[i][j]
			if c.Type == features.Numeric {
				args = append(args, sql.NullFloat64{Float64: cell.Num, Valid: cell.Valid})
			} else {
				args = append(args, sql.NullString{String: cell.Str, Valid: cell.Valid})
			}
		}
		return args
	})
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(sidecar, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode matrix sidecar: %w", err)
	}
	if err := os.WriteFile(SidecarPath(path), data, 0o600); err != nil {
		return fmt.Errorf("failed to write matrix sidecar: %w", err)
	}

	metrics.RecordDBQuery("write_matrix", time.Since(start), m.Len())
	db.logger.Info().
		Str("path", path).
		Int("rows", m.Len()).
		Int("columns", len(m.Columns)).
		Msg("Wrote feature matrix")
	return nil
}

// ReadMatrix reads a matrix written by WriteMatrix. Rows come back ordered
// by user id.
func (db *DB) ReadMatrix(ctx context.Context, path string) (*features.Matrix, error) {
	start := time.Now()

	data, err := os.ReadFile(SidecarPath(path)) //nolint:gosec // path comes from trusted config
	if err != nil {
		return nil, fmt.Errorf("failed to read matrix sidecar: %w", err)
	}
	var sidecar []matrixColumn
	if err := json.Unmarshal(data, &sidecar); err != nil {
		return nil, fmt.Errorf("failed to decode matrix sidecar: %w", err)
	}

	columns := make([]features.Column, len(sidecar))
	selects := make([]string, 0, len(sidecar)+1)
	selects = append(selects, "CAST(user_id AS BIGINT)")
	for i, mc := range sidecar {
		kind, err := columnKind(mc.Type)
		if err != nil {
			return nil, err
		}
		columns[i] = features.Column{
			Name: mc.Name,
			Type: kind,
			Fill: features.Cell{Num: mc.FillNum, Str: mc.FillStr, Valid: mc.FillValid},
		}
		selects = append(selects, identifier(mc.Name))
	}

	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY 1", strings.Join(selects, ", "), source(path))
	rows, err := db.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadSidecar, err)
	}
	defer closeQuietly(rows)

	m := &features.Matrix{Columns: columns}
	var user int64
	nums := make([]sql.NullFloat64, len(columns))
	strs := make([]sql.NullString, len(columns))
	dest := make([]any, len(columns)+1)
	dest[0] = &user
	for i, c := range columns {
		if c.Type == features.Numeric {
			dest[i+1] = &nums[i]
		} else {
			dest[i+1] = &strs[i]
		}
	}

	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan matrix row: %w", err)
		}
		id, err := userID(user)
		if err != nil {
			return nil, err
		}
		row := make([]features.Cell, len(columns))
		for i, c := range columns {
			switch {
			case c.Type == features.Numeric && nums[i].Valid:
				row[i] = features.Num(nums[i].Float64)
			case c.Type != features.Numeric && strs[i].Valid:
				row[i] = features.Str(strs[i].String)
			}
		}
		m.Users = append(m.Users, id)
		m.Rows = append(m.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read matrix: %w", err)
	}

	metrics.RecordDBQuery("read_matrix", time.Since(start), m.Len())
	return m, nil
}
