// MTS Cup - User Attribute Prediction Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mtscup

/*
Package database reads competition inputs and writes pipeline outputs with an
embedded DuckDB engine.

DuckDB reads parquet and CSV files in place, so nothing is imported into a
persistent schema: every loader is a single SELECT over read_parquet or
read_csv_auto. Outputs are staged in a connection-local temporary table and
written with COPY ... TO.

Inputs:

  - raw sessions: parquet files matched by a glob (one file per partition)
  - labels: user_id, is_male ("NA" for unknown), age
  - users: the test user list
  - census: region/age population rows in CSV
  - manual folds: user_id plus fold_<i>_tr / fold_<i>_va indicator columns

Outputs:

  - predictions: CSV or parquet chosen by file extension
  - feature matrix: parquet plus a JSON sidecar describing column kinds
*/
package database

import (
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/rs/zerolog"
)

// Config holds DuckDB tuning options.
type Config struct {
	// Path is the database file. Empty opens an in-memory database.
	Path      string `koanf:"path"`
	Threads   int    `koanf:"threads" validate:"gte=0"`
	MaxMemory string `koanf:"max_memory" validate:"required"`
}

// DefaultConfig returns an in-memory database using every CPU.
func DefaultConfig() Config {
	return Config{MaxMemory: "4GB"}
}

// DB wraps the DuckDB connection.
type DB struct {
	conn   *sql.DB
	cfg    Config
	logger zerolog.Logger
}

// Open opens the database described by cfg.
//
//nolint:gocritic // zerolog.Logger is passed by value per zerolog convention
func Open(cfg Config, logger zerolog.Logger) (*DB, error) {
	threads := cfg.Threads
	if threads <= 0 {
		threads = runtime.NumCPU()
	}
	if cfg.MaxMemory == "" {
		cfg.MaxMemory = DefaultConfig().MaxMemory
	}

	if dir := filepath.Dir(cfg.Path); cfg.Path != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create database directory %s: %w", dir, err)
		}
	}

	connStr := fmt.Sprintf("%s?threads=%d&max_memory=%s&autoinstall_known_extensions=false",
		cfg.Path, threads, cfg.MaxMemory)
	conn, err := sql.Open("duckdb", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := conn.Ping(); err != nil {
		closeQuietly(conn)
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return &DB{
		conn:   conn,
		cfg:    cfg,
		logger: logger.With().Str("component", "database").Logger(),
	}, nil
}

// Close closes the connection pool.
func (db *DB) Close() error {
	if db.conn == nil {
		return nil
	}
	return db.conn.Close()
}

// Conn returns the underlying connection pool.
func (db *DB) Conn() *sql.DB {
	return db.conn
}

// closeQuietly closes a resource in error paths where the Close error is not
// actionable.
func closeQuietly(closer io.Closer) {
	if closer != nil {
		_ = closer.Close()
	}
}

// literal renders s as a SQL string literal. Table functions such as
// read_parquet take their file argument at bind time, so it cannot be a
// statement parameter.
func literal(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// identifier renders s as a quoted SQL identifier.
func identifier(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// source returns the table function reading path, picked by extension.
// Parquet is the default; .csv and .tsv go through the CSV sniffer.
func source(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return fmt.Sprintf("read_csv_auto(%s, header = true)", literal(path))
	case ".tsv":
		return fmt.Sprintf("read_csv_auto(%s, header = true, delim = '\t')", literal(path))
	default:
		return fmt.Sprintf("read_parquet(%s)", literal(path))
	}
}
