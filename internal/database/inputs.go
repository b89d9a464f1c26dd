// MTS Cup - User Attribute Prediction Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mtscup

package database

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/tomtom215/mtscup/internal/folds"
	"github.com/tomtom215/mtscup/internal/metrics"
	"github.com/tomtom215/mtscup/internal/models"
)

// LoadLabels reads the training targets. is_male is read as text so that
// "NA", empty and null all become an unknown sex; ages that are not numbers
// become an unknown age.
func (db *DB) LoadLabels(ctx context.Context, path string) ([]models.RawLabel, error) {
	start := time.Now()
	query := fmt.Sprintf(`
		SELECT
			CAST(user_id AS BIGINT),
			CAST(is_male AS VARCHAR),
			TRY_CAST(age AS DOUBLE)
		FROM %s
		ORDER BY 1`, source(path))

	rows, err := db.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query labels %s: %w", path, err)
	}
	defer closeQuietly(rows)

	var out []models.RawLabel
	for rows.Next() {
		var (
			user   int64
			isMale sql.NullString
			age    sql.NullFloat64
		)
		if err := rows.Scan(&user, &isMale, &age); err != nil {
			return nil, fmt.Errorf("failed to scan label: %w", err)
		}
		id, err := userID(user)
		if err != nil {
			return nil, err
		}
		label := models.RawLabel{UserID: id, IsMale: parseSex(isMale)}
		if age.Valid && !math.IsNaN(age.Float64) {
			label.Age = sql.NullInt32{Int32: int32(age.Float64), Valid: true}
		}
		out = append(out, label)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read labels: %w", err)
	}

	metrics.RecordDBQuery("load_labels", time.Since(start), len(out))
	return out, nil
}

// parseSex maps the textual is_male column. Numbers are read as floats so
// that "1.0" from a float column counts as male.
func parseSex(s sql.NullString) sql.NullBool {
	if !s.Valid {
		return sql.NullBool{}
	}
	v := strings.TrimSpace(strings.ToLower(s.String))
	switch v {
	case "true":
		return sql.NullBool{Bool: true, Valid: true}
	case "false":
		return sql.NullBool{Bool: false, Valid: true}
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(f) {
		return sql.NullBool{}
	}
	return sql.NullBool{Bool: f != 0, Valid: true}
}

// LoadUsers reads the distinct user ids of a user list, ascending.
func (db *DB) LoadUsers(ctx context.Context, path string) ([]uint32, error) {
	start := time.Now()
	query := fmt.Sprintf(`SELECT DISTINCT CAST(user_id AS BIGINT) FROM %s ORDER BY 1`, source(path))

	rows, err := db.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query users %s: %w", path, err)
	}
	defer closeQuietly(rows)

	var out []uint32
	for rows.Next() {
		var user int64
		if err := rows.Scan(&user); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		id, err := userID(user)
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read users: %w", err)
	}

	metrics.RecordDBQuery("load_users", time.Since(start), len(out))
	return out, nil
}

// LoadCensus reads the regional population table. Rows whose age is not a
// number are skipped; missing counts are zero.
func (db *DB) LoadCensus(ctx context.Context, path string) ([]models.CensusRow, error) {
	start := time.Now()
	query := fmt.Sprintf(`
		SELECT
			CAST(region AS VARCHAR),
			CAST(TRY_CAST(age AS DOUBLE) AS INTEGER),
			COALESCE(TRY_CAST(men AS BIGINT), 0),
			COALESCE(TRY_CAST(women AS BIGINT), 0),
			COALESCE(TRY_CAST(urban_men AS BIGINT), 0),
			COALESCE(TRY_CAST(urban_women AS BIGINT), 0),
			COALESCE(TRY_CAST(rural_men AS BIGINT), 0),
			COALESCE(TRY_CAST(rural_women AS BIGINT), 0)
		FROM %s
		WHERE region IS NOT NULL AND TRY_CAST(age AS DOUBLE) IS NOT NULL`, source(path))

	rows, err := db.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query census %s: %w", path, err)
	}
	defer closeQuietly(rows)

	var out []models.CensusRow
	for rows.Next() {
		var r models.CensusRow
		if err := rows.Scan(&r.Region, &r.Age, &r.Men, &r.Women, &r.UrbanMen, &r.UrbanWomen, &r.RuralMen, &r.RuralWomen); err != nil {
			return nil, fmt.Errorf("failed to scan census row: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read census: %w", err)
	}

	metrics.RecordDBQuery("load_census", time.Since(start), len(out))
	return out, nil
}

// LoadManualFolds reads a fold membership table with columns user_id,
// fold_<i>_tr and fold_<i>_va for i in 0..k-1. A value of 1 marks
// membership.
func (db *DB) LoadManualFolds(ctx context.Context, path string, k int) (*folds.Manual, error) {
	if k < 1 {
		return nil, fmt.Errorf("manual folds need at least 1 fold, got %d", k)
	}
	start := time.Now()

	cols := make([]string, 0, 2*k+1)
	cols = append(cols, "CAST(user_id AS BIGINT)")
	for i := range k {
		for _, part := range []string{"tr", "va"} {
			cols = append(cols, fmt.Sprintf("COALESCE(TRY_CAST(%s AS DOUBLE), 0) = 1", identifier(fmt.Sprintf("fold_%d_%s", i, part))))
		}
	}
	query := fmt.Sprintf("SELECT %s FROM %s", strings.Join(cols, ", "), source(path))

	rows, err := db.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query manual folds %s: %w", path, err)
	}
	defer closeQuietly(rows)

	manual := &folds.Manual{K: k, Assignments: make(map[uint32]folds.Membership)}
	dest := make([]any, 2*k+1)
	var user int64
	flags := make([]bool, 2*k)
	dest[0] = &user
	for i := range flags {
		dest[i+1] = &flags[i]
	}
	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan fold row: %w", err)
		}
		id, err := userID(user)
		if err != nil {
			return nil, err
		}
		m := folds.Membership{Train: make([]bool, k), Validation: make([]bool, k)}
		for i := range k {
			m.Train[i] = flags[2*i]
			m.Validation[i] = flags[2*i+1]
		}
		manual.Assignments[id] = m
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read manual folds: %w", err)
	}

	metrics.RecordDBQuery("load_manual_folds", time.Since(start), len(manual.Assignments))
	return manual, nil
}

func userID(v int64) (uint32, error) {
	if v < 0 || v > math.MaxUint32 {
		return 0, fmt.Errorf("user_id %d out of range", v)
	}
	return uint32(v), nil
}
