package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dvloznov/finance-health/internal/api"
	"github.com/dvloznov/finance-health/internal/app"
	"github.com/dvloznov/finance-health/internal/config"
	"github.com/dvloznov/finance-health/internal/logger"
)

func main() {
	// Parse command-line flags
	var (
		port       = flag.String("port", "8080", "HTTP server port")
		configPath = flag.String("config", "", "YAML config file (or set FH_CONFIG)")
		inProcess  = flag.Bool("worker", false, "also consume ingestion jobs when the queue backend is azure")
	)
	flag.Parse()

	log := logger.New()
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	log = logger.NewWithLevel(cfg.App.LogLevel)
	ctx := logger.WithOutput(context.Background(), log, logger.ConsoleWriter())

	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize services")
	}
	defer a.Close()

	queue, jobStore, err := a.Jobs(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize job queue")
	}

	// Start worker in background to process jobs
	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	// The memory queue only exists in this process, so it is always consumed here.
	if cfg.Queue.Backend == config.QueueMemory || *inProcess {
		log.Info().Str("backend", cfg.Queue.Backend).Msg("Starting job worker")
		if err := queue.Start(workerCtx, a.Ingestor.HandleJob); err != nil {
			log.Fatal().Err(err).Msg("Failed to start job worker")
		}
	}

	handler := api.NewRouter(api.Deps{
		Sessions:  a.Sessions,
		Publisher: queue,
		Jobs:      jobStore,
		Advice:    a.Advice,
		Log:       log,
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + *port,
		Handler:      handler,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 5 * time.Minute, // advice calls a model synchronously
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info().Str("port", *port).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	cancelWorker()

	// Stop job queue and wait for in-flight jobs
	if err := queue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping job queue")
	}
	if err := queue.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close job queue")
	}

	log.Info().Msg("Server exited")
}
