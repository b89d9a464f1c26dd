// MTS Cup - User Attribute Prediction Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mtscup

package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Feature Metrics
	AggregatorDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mtscup_feature_aggregator_duration_seconds",
			Help:    "Duration of feature aggregator runs in seconds",
			Buckets: []float64{.01, .05, .1, .5, 1, 5, 10, 30, 60, 300},
		},
		[]string{"aggregator"},
	)

	AggregatorRows = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "mtscup_feature_rows",
			Help: "Number of user rows produced by the last aggregator run",
		},
		[]string{"aggregator"},
	)

	AggregatorErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mtscup_feature_aggregator_errors_total",
			Help: "Total number of failed aggregator runs",
		},
		[]string{"aggregator"},
	)

	// Vocabulary Metrics
	VocabTableSize = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "mtscup_vocab_table_size",
			Help: "Number of entries in each mapping table",
		},
		[]string{"table"},
	)

	// Training Metrics
	FoldTrainingDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mtscup_fold_training_duration_seconds",
			Help:    "Duration of one fold model fit in seconds",
			Buckets: []float64{1, 10, 30, 60, 300, 600, 1800, 3600, 7200},
		},
		[]string{"task"},
	)

	FoldMetric = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "mtscup_fold_metric",
			Help: "Last evaluated validation metric per fold",
		},
		[]string{"fold", "metric"},
	)

	FoldFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mtscup_fold_failures_total",
			Help: "Total number of abandoned folds",
		},
	)

	// Prediction Metrics
	PredictionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mtscup_predictions_total",
			Help: "Total number of predicted user rows",
		},
		[]string{"mode"}, // "ensemble", "single_fold", "oof"
	)

	// Storage Metrics
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mtscup_duckdb_query_duration_seconds",
			Help:    "Duration of DuckDB loads and exports in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	DBRows = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mtscup_duckdb_rows_total",
			Help: "Total number of rows read from or written through DuckDB",
		},
		[]string{"operation"},
	)

	// Command Metrics
	CommandDuration = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "mtscup_command_duration_seconds",
			Help: "Wall time of the last CLI command run in seconds",
		},
		[]string{"command"},
	)

	CommandLastSuccess = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "mtscup_command_last_success_timestamp_seconds",
			Help: "Unix timestamp of the last successful CLI command run",
		},
		[]string{"command"},
	)
)

// RecordAggregator records one aggregator run
func RecordAggregator(name string, duration time.Duration, rows int, err error) {
	AggregatorDuration.WithLabelValues(name).Observe(duration.Seconds())
	if err != nil {
		AggregatorErrors.WithLabelValues(name).Inc()
		return
	}
	AggregatorRows.WithLabelValues(name).Set(float64(rows))
}

// RecordVocabTable records the size of a mapping table
func RecordVocabTable(table string, size int) {
	VocabTableSize.WithLabelValues(table).Set(float64(size))
}

// RecordFoldTraining records the fit time of one fold task
func RecordFoldTraining(task string, duration time.Duration) {
	FoldTrainingDuration.WithLabelValues(task).Observe(duration.Seconds())
}

// SetFoldMetric publishes a validation metric of a fold
func SetFoldMetric(fold int, metric string, value float64) {
	FoldMetric.WithLabelValues(strconv.Itoa(fold), metric).Set(value)
}

// RecordFoldFailure counts an abandoned fold
func RecordFoldFailure() {
	FoldFailures.Inc()
}

// RecordPredictions counts predicted rows
func RecordPredictions(mode string, rows int) {
	PredictionsTotal.WithLabelValues(mode).Add(float64(rows))
}

// RecordDBQuery records a DuckDB operation
func RecordDBQuery(operation string, duration time.Duration, rows int) {
	DBQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
	DBRows.WithLabelValues(operation).Add(float64(rows))
}

// RecordCommand records a finished CLI command
func RecordCommand(command string, duration time.Duration, err error) {
	CommandDuration.WithLabelValues(command).Set(duration.Seconds())
	if err == nil {
		CommandLastSuccess.WithLabelValues(command).Set(float64(time.Now().Unix()))
	}
}

// WriteTextfile writes the default registry to path in the node_exporter
// textfile format. An empty path is a no-op.
func WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}
