// Package main is the entry point for the Modelgate model rollout service.
// Modelgate gates fraud-model promotions: it compares candidate metrics
// against the serving baseline, walks passing candidates through a staged
// traffic ramp, and rolls back canaries whose production metrics degrade.
//
// Startup sequence:
//  1. Load configuration from environment variables
//  2. Initialize structured logging
//  3. Wire databases, repositories, services, and event subscribers
//  4. Register scheduled jobs (tracker sync, ramp evaluation, retention, backup)
//  5. Start the HTTP server
//  6. Wait for shutdown signal and stop gracefully
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aristath/modelgate/internal/config"
	"github.com/aristath/modelgate/internal/di"
	audithandlers "github.com/aristath/modelgate/internal/modules/audit/handlers"
	gatehandlers "github.com/aristath/modelgate/internal/modules/gate/handlers"
	manifesthandlers "github.com/aristath/modelgate/internal/modules/manifest/handlers"
	observationhandlers "github.com/aristath/modelgate/internal/modules/observation/handlers"
	registryhandlers "github.com/aristath/modelgate/internal/modules/registry/handlers"
	rollouthandlers "github.com/aristath/modelgate/internal/modules/rollout/handlers"
	"github.com/aristath/modelgate/internal/scheduler"
	"github.com/aristath/modelgate/internal/server"
	"github.com/aristath/modelgate/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{Level: "info", Pretty: true})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})

	log.Info().Msg("Starting Modelgate")

	// Wire databases, repositories, services, clients, and event subscribers
	container, jobs, err := di.Wire(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to wire dependencies")
	}
	defer container.Close()

	// Scheduled jobs: tracker sync and ramp evaluation every 5 minutes,
	// cache cleanup hourly, outcome retention and backup daily
	sched := scheduler.New(log)
	if err := jobs.RegisterSchedules(sched); err != nil {
		log.Fatal().Err(err).Msg("Failed to register scheduled jobs")
	}
	sched.Start()
	defer sched.Stop()
	log.Info().Msg("Scheduler started")

	// HTTP server with module handlers
	srv := server.New(server.Config{
		Log:           log,
		RegistryDB:    container.RegistryDB,
		RolloutDB:     container.RolloutDB,
		ObservationDB: container.ObservationDB,
		AuditDB:       container.AuditDB,
		CacheDB:       container.CacheDB,
		Config:        cfg,
		Port:          cfg.Port,
		DevMode:       cfg.DevMode,
		EventBus:      container.EventBus,

		GateHandler:        gatehandlers.NewHandler(container.GatePolicy, container.RegistryService, container.AuditRepo, log),
		RegistryHandler:    registryhandlers.NewHandler(container.RegistryService, log),
		RolloutHandler:     rollouthandlers.NewHandler(container.RolloutService, log),
		AuditHandler:       audithandlers.NewHandler(container.AuditRepo, log),
		ObservationHandler: observationhandlers.NewHandler(container.ObservationService, log),
		ManifestHandler:    manifesthandlers.NewHandler(container.ManifestService, container.RolloutService, log),

		RolloutService:  container.RolloutService,
		MetricsExporter: container.MetricsExporter,
	})

	// Expose jobs for manual triggering via /api/system/jobs/*
	var backupJob scheduler.Job
	if jobs.Backup != nil {
		backupJob = jobs.Backup
	}
	srv.SetJobs(jobs.TrackerSync, jobs.RampEvaluation, jobs.CacheCleanup, jobs.OutcomeRetention, backupJob)

	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()
	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	// Block until SIGINT or SIGTERM
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down...")

	// In-flight requests get up to 10 seconds to finish
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}
