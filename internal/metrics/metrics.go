// Learnlens - Learner Interaction Analytics Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/learnlens

// Package metrics provides Prometheus instrumentation for the pipeline:
// load durations and outcomes, rows written per table, retention
// deletions, and operator API traffic.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Load Metrics
	LoadDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "etl_load_duration_seconds",
			Help:    "Duration of incremental table loads in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 300},
		},
		[]string{"table"},
	)

	LoadRowsWritten = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "etl_load_rows_written_total",
			Help: "Total number of aggregate rows written by table loads",
		},
		[]string{"table"},
	)

	LoadFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "etl_load_failures_total",
			Help: "Total number of failed table loads",
		},
		[]string{"table"},
	)

	LoadRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "etl_load_rejections_total",
			Help: "Total number of loads rejected before any mutation (bad range, overlap)",
		},
		[]string{"table", "reason"},
	)

	RawEventsRead = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "etl_raw_events_read_total",
			Help: "Total number of raw events read by table loads",
		},
		[]string{"table"},
	)

	// Retention Metrics
	RetentionRowsDeleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "retention_rows_deleted_total",
			Help: "Total number of rows deleted by retention runs",
		},
		[]string{"target"},
	)

	RetentionRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "retention_runs_total",
			Help: "Total number of retention runs by target and outcome",
		},
		[]string{"target", "outcome"},
	)

	// Database Metrics
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "duckdb_query_duration_seconds",
			Help:    "Duration of DuckDB queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "table"},
	)

	DBQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "duckdb_query_errors_total",
			Help: "Total number of DuckDB query errors",
		},
		[]string{"operation", "table"},
	)

	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)
)

// ObserveLoad records the outcome of one table load.
func ObserveLoad(table string, start time.Time, rows int64, err error) {
	LoadDuration.WithLabelValues(table).Observe(time.Since(start).Seconds())
	if err != nil {
		LoadFailures.WithLabelValues(table).Inc()
		return
	}
	LoadRowsWritten.WithLabelValues(table).Add(float64(rows))
}

// ObserveDBQuery records a database query duration and error state.
func ObserveDBQuery(operation, table string, start time.Time, err error) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
	if err != nil {
		DBQueryErrors.WithLabelValues(operation, table).Inc()
	}
}

// ObserveAPIRequest records one handled API request.
func ObserveAPIRequest(method, endpoint string, statusCode int, start time.Time) {
	APIRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(statusCode)).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(time.Since(start).Seconds())
}
