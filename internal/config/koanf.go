// Learnlens - Learner Interaction Analytics Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/learnlens

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in
// order of priority. The first file found wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/learnlens/config.yaml",
	"/etc/learnlens/config.yml",
}

// ConfigPathEnvVar overrides the config file path when set.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config with all defaults applied. These are
// layered first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:      "/data/learnlens.db",
			MaxMemory: "2GB",
			Threads:   0, // 0 = runtime.NumCPU()
		},
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8484,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    5 * time.Minute, // loads are synchronous and can be slow on backfill
			ShutdownTimeout: 10 * time.Second,
		},
		Pipeline: PipelineConfig{
			ActiveSessionWindow: 30 * time.Minute,
			MaxRangeDays:        366,
		},
		Retention: RetentionConfig{
			RawMaxAgeDays:     547,  // ~18 months
			DerivedMaxAgeDays: 2555, // ~7 years
		},
		Scheduler: SchedulerConfig{
			Enabled:                  true,
			CheckInterval:            time.Minute,
			LoadInterval:             24 * time.Hour,
			RawRetentionInterval:     168 * time.Hour,
			DerivedRetentionInterval: 720 * time.Hour,
		},
		API: APIConfig{
			RateLimitPerMinute: 120,
			MaxJobListResults:  500,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// Load builds the configuration from defaults, an optional YAML file,
// and environment variables, then validates it.
func Load() (*Config, error) {
	k := koanf.New(".")

	// Layer 1: defaults from struct
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: config file (optional)
	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: environment variables (highest priority)
	// DATABASE_MAX_MEMORY -> database.max_memory
	// SCHEDULER_LOAD_INTERVAL -> scheduler.load_interval
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile searches for a config file in the default paths.
// Returns the path to the first file found, or empty string.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// configSections are the env var prefixes mapped to koanf sections.
var configSections = []string{
	"DATABASE",
	"SERVER",
	"PIPELINE",
	"RETENTION",
	"SCHEDULER",
	"API",
	"LOGGING",
}

// envTransformFunc maps environment variable names to koanf paths.
// Variables outside the known sections are ignored so unrelated
// environment noise never leaks into the config.
func envTransformFunc(s string) string {
	for _, section := range configSections {
		prefix := section + "_"
		if strings.HasPrefix(s, prefix) {
			key := strings.ToLower(strings.TrimPrefix(s, prefix))
			return strings.ToLower(section) + "." + key
		}
	}
	return ""
}
