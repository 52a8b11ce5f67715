// Learnlens - Learner Interaction Analytics Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/learnlens

// Package config holds all application configuration for Learnlens.
//
// Configuration Loading Order (Koanf v2):
//  1. Defaults: built-in sensible defaults for all settings
//  2. Config File: optional YAML config file (config.yaml)
//  3. Environment Variables: override any setting
//
// Config is immutable after Load() and safe for concurrent read access.
package config

import (
	"time"
)

// Config holds all application configuration loaded from defaults, an
// optional YAML file, and environment variables.
type Config struct {
	Database  DatabaseConfig  `koanf:"database"`
	Server    ServerConfig    `koanf:"server"`
	Pipeline  PipelineConfig  `koanf:"pipeline"`
	Retention RetentionConfig `koanf:"retention"`
	Scheduler SchedulerConfig `koanf:"scheduler"`
	API       APIConfig       `koanf:"api"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// DatabaseConfig holds DuckDB settings.
//
// Environment Variables:
//   - DATABASE_PATH: database file path (default: /data/learnlens.db)
//   - DATABASE_MAX_MEMORY: DuckDB memory budget (default: 2GB)
//   - DATABASE_THREADS: DuckDB thread count (default: 0 = NumCPU)
type DatabaseConfig struct {
	Path      string `koanf:"path"`
	MaxMemory string `koanf:"max_memory"`
	Threads   int    `koanf:"threads"`
}

// ServerConfig holds HTTP server settings for the operator API.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// PipelineConfig holds aggregation settings.
type PipelineConfig struct {
	// ActiveSessionWindow is how recently a session's last event must
	// have occurred, relative to the aggregation run time, for the
	// session to be marked active. Default: 30m.
	ActiveSessionWindow time.Duration `koanf:"active_session_window"`

	// MaxRangeDays caps the span of a single load invocation to keep
	// backfills bounded. 0 disables the cap.
	MaxRangeDays int `koanf:"max_range_days"`
}

// RetentionConfig holds the two independent retention horizons.
//
// Raw events age out after roughly 18 months; derived aggregates are
// kept for roughly 7 years. Job status rows are never touched by either
// policy.
type RetentionConfig struct {
	RawMaxAgeDays     int `koanf:"raw_max_age_days"`
	DerivedMaxAgeDays int `koanf:"derived_max_age_days"`
}

// SchedulerConfig drives the periodic load and retention triggers.
// Cadence is configuration, not contract: operators can always invoke
// loads directly with explicit ranges for backfill.
type SchedulerConfig struct {
	Enabled bool `koanf:"enabled"`

	// CheckInterval is how often the scheduler wakes to look for due
	// work. Default: 1m.
	CheckInterval time.Duration `koanf:"check_interval"`

	// LoadInterval is the cadence of the "load yesterday" refresh.
	// Default: 24h.
	LoadInterval time.Duration `koanf:"load_interval"`

	// RawRetentionInterval is the cadence of raw-event cleanup.
	// Default: 168h (weekly).
	RawRetentionInterval time.Duration `koanf:"raw_retention_interval"`

	// DerivedRetentionInterval is the cadence of derived-table cleanup.
	// Default: 720h (monthly).
	DerivedRetentionInterval time.Duration `koanf:"derived_retention_interval"`
}

// APIConfig holds request limits for the operator API.
type APIConfig struct {
	// RateLimitPerMinute is the per-client request budget. Default: 120.
	RateLimitPerMinute int `koanf:"rate_limit_per_minute"`

	// MaxJobListResults caps job status list responses. Default: 500.
	MaxJobListResults int `koanf:"max_job_list_results"`
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}
