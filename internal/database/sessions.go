// MTS Cup - User Attribute Prediction Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mtscup

package database

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/mtscup/internal/metrics"
	"github.com/tomtom215/mtscup/internal/models"
)

// DefaultBatchSize is the number of sessions handed to a scan callback at once.
const DefaultBatchSize = 100_000

// Null raw strings become "" so that they map like any other unseen value.
const rawSessionsQuery = `
	SELECT
		COALESCE(CAST(region_name AS VARCHAR), ''),
		COALESCE(CAST(city_name AS VARCHAR), ''),
		COALESCE(CAST(cpe_manufacturer_name AS VARCHAR), ''),
		COALESCE(CAST(cpe_model_name AS VARCHAR), ''),
		COALESCE(CAST(cpe_type_cd AS VARCHAR), ''),
		COALESCE(CAST(cpe_model_os_type AS VARCHAR), ''),
		COALESCE(CAST(url_host AS VARCHAR), ''),
		TRY_CAST(price AS DOUBLE),
		CAST(date AS DATE),
		COALESCE(CAST(part_of_day AS VARCHAR), ''),
		COALESCE(TRY_CAST(request_cnt AS BIGINT), 0),
		CAST(user_id AS BIGINT)
	FROM %s`

// ScanRawSessions streams the sessions matched by glob to fn in batches of at
// most batch rows. The slice passed to fn is reused between calls.
func (db *DB) ScanRawSessions(ctx context.Context, glob string, batch int, fn func([]models.RawSession) error) error {
	if batch <= 0 {
		batch = DefaultBatchSize
	}
	start := time.Now()

	rows, err := db.conn.QueryContext(ctx, fmt.Sprintf(rawSessionsQuery, source(glob)))
	if err != nil {
		return fmt.Errorf("failed to query sessions %s: %w", glob, err)
	}
	defer closeQuietly(rows)

	buf := make([]models.RawSession, 0, batch)
	total := 0
	for rows.Next() {
		var (
			s    models.RawSession
			date time.Time
			user int64
		)
		if err := rows.Scan(
			&s.RegionName, &s.CityName, &s.ManufacturerName, &s.ModelName,
			&s.TypeName, &s.OSName, &s.URLHost, &s.Price, &date,
			&s.PartOfDay, &s.RequestCnt, &user,
		); err != nil {
			return fmt.Errorf("failed to scan session: %w", err)
		}
		id, err := userID(user)
		if err != nil {
			return err
		}
		s.Date = date
		s.UserID = id
		buf = append(buf, s)

		if len(buf) == batch {
			if err := fn(buf); err != nil {
				return err
			}
			total += len(buf)
			buf = buf[:0]
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to read sessions: %w", err)
	}
	if len(buf) > 0 {
		if err := fn(buf); err != nil {
			return err
		}
		total += len(buf)
	}

	metrics.RecordDBQuery("scan_sessions", time.Since(start), total)
	db.logger.Debug().
		Str("glob", glob).
		Int("rows", total).
		Dur("duration", time.Since(start)).
		Msg("Scanned raw sessions")
	return nil
}

// LoadRawSessions reads every session matched by glob into memory.
func (db *DB) LoadRawSessions(ctx context.Context, glob string) ([]models.RawSession, error) {
	var out []models.RawSession
	err := db.ScanRawSessions(ctx, glob, DefaultBatchSize, func(batch []models.RawSession) error {
		out = append(out, batch...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
