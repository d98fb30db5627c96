package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dvloznov/finance-health/internal/app"
	"github.com/dvloznov/finance-health/internal/config"
	"github.com/dvloznov/finance-health/internal/logger"
)

func main() {
	configPath := flag.String("config", "", "YAML config file (or set FH_CONFIG)")
	flag.Parse()

	log := logger.New()
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	log = logger.NewWithLevel(cfg.App.LogLevel)

	if cfg.Queue.Backend != config.QueueAzure {
		log.Fatal().Str("backend", cfg.Queue.Backend).Msg("The worker needs a shared queue, set QUEUE_BACKEND=azure")
	}

	// Create context that cancels on interrupt
	ctx, cancel := context.WithCancel(logger.WithOutput(context.Background(), log, logger.ConsoleWriter()))
	defer cancel()

	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize services")
	}
	defer a.Close()

	queue, _, err := a.Jobs(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize job queue")
	}

	log.Info().Str("queue", cfg.Queue.QueueName).Msg("Starting worker service")

	// Start consuming jobs
	if err := queue.Start(ctx, a.Ingestor.HandleJob); err != nil {
		log.Fatal().Err(err).Msg("Failed to start job consumer")
	}

	log.Info().Msg("Worker service started, waiting for jobs...")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down worker service...")

	// Cancel context to stop workers
	cancel()

	// Create shutdown context with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	// Stop the queue and wait for in-flight jobs
	if err := queue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during graceful shutdown")
	}

	// Close the queue
	if err := queue.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close job queue")
	}

	log.Info().Msg("Worker service exited")
}
