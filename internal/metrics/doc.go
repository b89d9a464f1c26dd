// MTS Cup - User Attribute Prediction Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mtscup

/*
Package metrics provides Prometheus instrumentation for the batch pipeline.

Every command registers into the default registry through promauto. Because
the pipeline is a batch job and not a server, the registry is written to a
node_exporter textfile once a command finishes:

	defer metrics.WriteTextfile(cfg.Metrics.Textfile)

# Available Metrics

Feature Metrics:
  - mtscup_feature_aggregator_duration_seconds: aggregator run time (histogram)
    Labels: aggregator
  - mtscup_feature_rows: rows produced by the last aggregator run (gauge)
    Labels: aggregator
  - mtscup_feature_aggregator_errors_total: failed aggregator runs (counter)
    Labels: aggregator

Vocabulary Metrics:
  - mtscup_vocab_table_size: entries per mapping table (gauge)
    Labels: table

Training Metrics:
  - mtscup_fold_training_duration_seconds: per fold and task fit time (histogram)
    Labels: task
  - mtscup_fold_metric: last evaluated fold metric (gauge)
    Labels: fold, metric
  - mtscup_fold_failures_total: abandoned folds (counter)

Prediction Metrics:
  - mtscup_predictions_total: rows predicted (counter)
    Labels: mode

Storage Metrics:
  - mtscup_duckdb_query_duration_seconds: DuckDB load and export time (histogram)
    Labels: operation
  - mtscup_duckdb_rows_total: rows read or written (counter)
    Labels: operation

Command Metrics:
  - mtscup_command_duration_seconds: CLI command wall time (gauge)
    Labels: command
  - mtscup_command_last_success_timestamp_seconds: last successful run (gauge)
    Labels: command
*/
package metrics
