// Learnlens - Learner Interaction Analytics Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/learnlens

package config

import (
	"strings"
	"testing"
	"time"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := defaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default configuration must validate: %v", err)
	}
}

func TestDefaultConfigValues(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Server.Port != 8484 {
		t.Errorf("Expected default port 8484, got %d", cfg.Server.Port)
	}
	if cfg.Retention.RawMaxAgeDays != 547 {
		t.Errorf("Expected raw horizon 547 days, got %d", cfg.Retention.RawMaxAgeDays)
	}
	if cfg.Retention.DerivedMaxAgeDays != 2555 {
		t.Errorf("Expected derived horizon 2555 days, got %d", cfg.Retention.DerivedMaxAgeDays)
	}
	if cfg.Pipeline.ActiveSessionWindow != 30*time.Minute {
		t.Errorf("Expected 30m active session window, got %s", cfg.Pipeline.ActiveSessionWindow)
	}
	if cfg.Scheduler.LoadInterval != 24*time.Hour {
		t.Errorf("Expected daily load interval, got %s", cfg.Scheduler.LoadInterval)
	}
	if !cfg.Scheduler.Enabled {
		t.Error("Scheduler must be enabled by default")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "valid defaults",
			mutate:  func(*Config) {},
			wantErr: "",
		},
		{
			name:    "empty database path",
			mutate:  func(c *Config) { c.Database.Path = "" },
			wantErr: "database.path",
		},
		{
			name:    "port out of range",
			mutate:  func(c *Config) { c.Server.Port = 70000 },
			wantErr: "server.port",
		},
		{
			name:    "zero session window",
			mutate:  func(c *Config) { c.Pipeline.ActiveSessionWindow = 0 },
			wantErr: "active_session_window",
		},
		{
			name:    "negative range cap",
			mutate:  func(c *Config) { c.Pipeline.MaxRangeDays = -1 },
			wantErr: "max_range_days",
		},
		{
			name:    "zero raw horizon",
			mutate:  func(c *Config) { c.Retention.RawMaxAgeDays = 0 },
			wantErr: "raw_max_age_days",
		},
		{
			name: "derived horizon shorter than raw",
			mutate: func(c *Config) {
				c.Retention.RawMaxAgeDays = 1000
				c.Retention.DerivedMaxAgeDays = 500
			},
			wantErr: "derived_max_age_days",
		},
		{
			name:    "zero check interval with scheduler enabled",
			mutate:  func(c *Config) { c.Scheduler.CheckInterval = 0 },
			wantErr: "check_interval",
		},
		{
			name: "scheduler disabled skips interval checks",
			mutate: func(c *Config) {
				c.Scheduler.Enabled = false
				c.Scheduler.CheckInterval = 0
			},
			wantErr: "",
		},
		{
			name:    "zero rate limit",
			mutate:  func(c *Config) { c.API.RateLimitPerMinute = 0 },
			wantErr: "rate_limit_per_minute",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Expected valid config, got %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("Expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error mentioning %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestEnvTransformFunc(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"DATABASE_MAX_MEMORY", "database.max_memory"},
		{"DATABASE_PATH", "database.path"},
		{"SERVER_PORT", "server.port"},
		{"SCHEDULER_LOAD_INTERVAL", "scheduler.load_interval"},
		{"RETENTION_RAW_MAX_AGE_DAYS", "retention.raw_max_age_days"},
		{"API_RATE_LIMIT_PER_MINUTE", "api.rate_limit_per_minute"},
		{"LOGGING_LEVEL", "logging.level"},
		// Unrelated environment noise is dropped.
		{"PATH", ""},
		{"HOME", ""},
		{"DATABASE", ""},
	}

	for _, tt := range tests {
		if got := envTransformFunc(tt.in); got != tt.want {
			t.Errorf("envTransformFunc(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestLoadWithEnvOverride(t *testing.T) {
	t.Setenv("DATABASE_PATH", ":memory:")
	t.Setenv("SERVER_PORT", "9100")
	t.Setenv("SCHEDULER_ENABLED", "false")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Database.Path != ":memory:" {
		t.Errorf("Expected env override of database.path, got %q", cfg.Database.Path)
	}
	if cfg.Server.Port != 9100 {
		t.Errorf("Expected env override of server.port, got %d", cfg.Server.Port)
	}
	if cfg.Scheduler.Enabled {
		t.Error("Expected env override of scheduler.enabled")
	}
	// Untouched values keep their defaults.
	if cfg.API.MaxJobListResults != 500 {
		t.Errorf("Expected default max_job_list_results, got %d", cfg.API.MaxJobListResults)
	}
}
