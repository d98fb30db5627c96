package main

import (
	"context"
	"flag"
	"fmt"
	"io/fs"
	"os"

	"cloud.google.com/go/bigquery"
	"github.com/dvloznov/finance-health/internal/bqexport"
	"github.com/dvloznov/finance-health/internal/config"
	"github.com/dvloznov/finance-health/internal/logger"
)

func main() {
	var (
		configPath    = flag.String("config", "", "YAML config file (or set FH_CONFIG)")
		projectID     = flag.String("project", "", "GCP project ID (defaults to BIGQUERY_PROJECT)")
		datasetID     = flag.String("dataset", "", "BigQuery dataset ID (defaults to BIGQUERY_DATASET)")
		appliedBy     = flag.String("applied-by", "migrate-cli", "Name of the tool applying migrations")
		migrationsDir = flag.String("migrations", "", "Directory of migration files (defaults to the embedded set)")
		status        = flag.Bool("status", false, "List applied migrations and exit")
	)
	flag.Parse()

	log := logger.New()
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	log = logger.NewWithLevel(cfg.App.LogLevel)
	ctx := logger.WithOutput(context.Background(), log, logger.ConsoleWriter())

	project := firstNonEmpty(*projectID, cfg.Export.BigQueryProject)
	dataset := firstNonEmpty(*datasetID, cfg.Export.BigQueryDataset)
	if project == "" {
		log.Fatal().Msg("Error: -project flag or BIGQUERY_PROJECT is required")
	}

	client, err := bigquery.NewClient(ctx, project)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create BigQuery client")
	}
	defer client.Close()

	log.Info().Str("project", project).Str("dataset", dataset).Msg("Connected to BigQuery")

	m := bqexport.NewMigrator(client, project, dataset, *appliedBy)

	if *status {
		applied, err := m.Applied(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to read applied migrations")
		}
		for _, am := range applied {
			fmt.Printf("%04d_%s\t%s\t%s\n", am.Version, am.Name, am.AppliedAt.Format("2006-01-02 15:04:05"), am.AppliedBy)
		}
		return
	}

	count, err := m.Migrate(ctx, source(*migrationsDir))
	if err != nil {
		log.Fatal().Err(err).Int("applied", count).Msg("Migration failed")
	}
	if count == 0 {
		log.Info().Msg("Database is up to date")
		return
	}
	log.Info().Int("applied", count).Msg("Migrations complete")
}

// source returns the embedded migrations unless dir is set.
func source(dir string) fs.FS {
	if dir == "" {
		return bqexport.Migrations()
	}
	return os.DirFS(dir)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
