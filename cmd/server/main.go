// Package main is the entry point for the Aide personal-assistant backend.
// It wires the job orchestration engine (priority queue, concurrency-bounded
// dispatcher, retry policy, recurring maintenance loops) to the registered
// job handlers and exposes the submission and status API over HTTP.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/adamantos/aide/internal/config"
	"github.com/adamantos/aide/internal/events"
	"github.com/adamantos/aide/internal/jobs"
	"github.com/adamantos/aide/internal/orchestrator"
	"github.com/adamantos/aide/internal/server"
	"github.com/adamantos/aide/pkg/logger"
)

func main() {
	// Load configuration first to get log level
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{Level: "info", Pretty: true})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})
	logger.SetGlobalLogger(log)

	log.Info().Msg("Starting Aide")

	// Event bus carries job lifecycle events to the SSE/websocket streams.
	bus := events.NewBus()
	eventManager := events.NewManager(bus, log)

	// Job store: in-memory by default, SQLite for durable job history.
	var store orchestrator.Store
	switch cfg.JobStore {
	case config.StoreSQLite:
		sqliteStore, err := orchestrator.NewSQLiteStore(cfg.JobDatabasePath())
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to open job database")
		}
		store = sqliteStore
		log.Info().Str("path", cfg.JobDatabasePath()).Msg("Using SQLite job store")
	default:
		store = orchestrator.NewMemoryStore()
	}
	defer store.Close()

	registry := orchestrator.NewRegistry()
	manager := orchestrator.New(orchestrator.Config{
		MaxConcurrent: cfg.MaxConcurrentJobs,
		JobTimeout:    cfg.JobTimeout,
		Store:         store,
		Registry:      registry,
		Events:        eventManager,
		Log:           log,
	})

	retention := orchestrator.RetentionPolicy{
		TTL:         cfg.RetentionTTL,
		MaxFinished: cfg.RetentionMax,
	}

	// Register the built-in handlers. New job types plug in here without
	// touching the dispatcher.
	registry.Register(orchestrator.JobTypeDataCollection, jobs.NewCollector(cfg.MarketDataURL, log))
	registry.Register(orchestrator.JobTypeRagScoring, jobs.NewScorer(log))
	registry.Register(orchestrator.JobTypeBatchProcessing, jobs.NewBatcher(manager, log))
	registry.Register(orchestrator.JobTypeEnrichment, jobs.NewEnricher(log))
	registry.Register(orchestrator.JobTypeReportGeneration, jobs.NewReporter(manager, log))
	registry.Register(orchestrator.JobTypeScheduledUpdate, jobs.NewMaintenance(manager, retention, log))

	// Background components.
	sweeper := orchestrator.NewSweeper(manager, retention, time.Hour, log)
	sweeper.Start()

	recurring := orchestrator.NewRecurringScheduler(manager, log)
	recurring.Start()

	srv := server.New(server.Config{
		Log:     log,
		Port:    cfg.Port,
		DevMode: cfg.DevMode,
		Manager: manager,
		Bus:     bus,
	})

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- srv.Start()
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		log.Info().Str("signal", sig.String()).Msg("Shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			log.Error().Err(err).Msg("HTTP server error")
		}
	}

	// Graceful shutdown: stop the loops, cancel in-flight jobs
	// cooperatively, drain the HTTP server.
	recurring.Stop()
	sweeper.Stop()
	manager.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}

	log.Info().Msg("Aide stopped")
}
