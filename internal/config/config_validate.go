// Learnlens - Learner Interaction Analytics Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/learnlens

package config

import (
	"fmt"
)

// Validate checks the configuration for invalid or inconsistent values.
// It is called by Load() after all layers are applied.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path must not be empty")
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in [1, 65535], got %d", c.Server.Port)
	}
	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server.read_timeout must be positive, got %s", c.Server.ReadTimeout)
	}
	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server.write_timeout must be positive, got %s", c.Server.WriteTimeout)
	}
	if c.Pipeline.ActiveSessionWindow <= 0 {
		return fmt.Errorf("pipeline.active_session_window must be positive, got %s", c.Pipeline.ActiveSessionWindow)
	}
	if c.Pipeline.MaxRangeDays < 0 {
		return fmt.Errorf("pipeline.max_range_days must not be negative, got %d", c.Pipeline.MaxRangeDays)
	}
	if c.Retention.RawMaxAgeDays <= 0 {
		return fmt.Errorf("retention.raw_max_age_days must be positive, got %d", c.Retention.RawMaxAgeDays)
	}
	if c.Retention.DerivedMaxAgeDays <= 0 {
		return fmt.Errorf("retention.derived_max_age_days must be positive, got %d", c.Retention.DerivedMaxAgeDays)
	}
	// The derived horizon outliving the raw horizon is the whole point of
	// the pipeline: rollups stay queryable long after raw events age out.
	if c.Retention.DerivedMaxAgeDays < c.Retention.RawMaxAgeDays {
		return fmt.Errorf("retention.derived_max_age_days (%d) must not be shorter than retention.raw_max_age_days (%d)",
			c.Retention.DerivedMaxAgeDays, c.Retention.RawMaxAgeDays)
	}
	if c.Scheduler.Enabled {
		if c.Scheduler.CheckInterval <= 0 {
			return fmt.Errorf("scheduler.check_interval must be positive, got %s", c.Scheduler.CheckInterval)
		}
		if c.Scheduler.LoadInterval <= 0 {
			return fmt.Errorf("scheduler.load_interval must be positive, got %s", c.Scheduler.LoadInterval)
		}
		if c.Scheduler.RawRetentionInterval <= 0 {
			return fmt.Errorf("scheduler.raw_retention_interval must be positive, got %s", c.Scheduler.RawRetentionInterval)
		}
		if c.Scheduler.DerivedRetentionInterval <= 0 {
			return fmt.Errorf("scheduler.derived_retention_interval must be positive, got %s", c.Scheduler.DerivedRetentionInterval)
		}
	}
	if c.API.RateLimitPerMinute <= 0 {
		return fmt.Errorf("api.rate_limit_per_minute must be positive, got %d", c.API.RateLimitPerMinute)
	}
	if c.API.MaxJobListResults <= 0 {
		return fmt.Errorf("api.max_job_list_results must be positive, got %d", c.API.MaxJobListResults)
	}
	return nil
}
