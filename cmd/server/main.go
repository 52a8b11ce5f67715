// Learnlens - Learner Interaction Analytics Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/learnlens

// Command server runs the Learnlens aggregation pipeline: the operator
// HTTP API, the periodic scheduler, and the DuckDB store they share.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/tomtom215/learnlens/internal/api"
	"github.com/tomtom215/learnlens/internal/config"
	"github.com/tomtom215/learnlens/internal/database"
	"github.com/tomtom215/learnlens/internal/logging"
	"github.com/tomtom215/learnlens/internal/pipeline"
	"github.com/tomtom215/learnlens/internal/scheduler"
	"github.com/tomtom215/learnlens/internal/supervisor"
	"github.com/tomtom215/learnlens/internal/supervisor/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("version", version).
		Int("port", cfg.Server.Port).
		Msg("Learnlens starting")

	db, err := database.New(&cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Failed to close database")
		}
	}()

	// Pipeline core
	orch := pipeline.NewOrchestrator(db, cfg.Pipeline)
	retention := pipeline.NewRetentionManager(db, cfg.Retention)

	// Operator API
	handler := api.NewHandler(orch, retention, db, cfg.API)
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      api.NewRouter(handler, cfg.API),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Supervision tree: scheduler in the pipeline layer, HTTP server in
	// the API layer. sutureslog bridges supervisor events to zerolog.
	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))

	if cfg.Scheduler.Enabled {
		sched := scheduler.New(orch, retention, cfg.Scheduler)
		tree.AddPipelineService(services.NewSchedulerService(sched))
	} else {
		logging.Warn().Msg("Scheduler disabled; loads and retention must be triggered via the API")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logging.Fatal().Err(err).Msg("Supervisor tree terminated")
	}

	logging.Info().Msg("Learnlens stopped")
}
