package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/dvloznov/finance-health/internal/app"
	"github.com/dvloznov/finance-health/internal/bqexport"
	"github.com/dvloznov/finance-health/internal/config"
	"github.com/dvloznov/finance-health/internal/export/csvexport"
	"github.com/dvloznov/finance-health/internal/logger"
	"github.com/dvloznov/finance-health/internal/notionsync"
	"github.com/dvloznov/finance-health/internal/pipeline"
	"github.com/dvloznov/finance-health/internal/session"
	"github.com/rs/zerolog"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	commands := map[string]func(zerolog.Logger, []string){
		"sessions":   runSessions,
		"ingest":     runIngest,
		"reingest":   runReingest,
		"report":     runReport,
		"advice":     runAdvice,
		"categories": runCategories,
		"export":     runExport,
		"reset":      runReset,
	}

	switch cmd := os.Args[1]; cmd {
	case "help", "-h", "--help":
		printUsage()
	default:
		run, ok := commands[cmd]
		if !ok {
			fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
			printUsage()
			os.Exit(1)
		}
		run(logger.New(), os.Args[2:])
	}
}

func printUsage() {
	fmt.Println("Finance Health CLI")
	fmt.Println("\nUsage:")
	fmt.Println("  cli <command> [options]")
	fmt.Println("\nCommands:")
	fmt.Println("  sessions    List, create, show or delete sessions")
	fmt.Println("  ingest      Ingest CSV/XLSX files into a session")
	fmt.Println("  reingest    Re-run ingestion over a session's stored originals")
	fmt.Println("  report      Print a session's report")
	fmt.Println("  advice      Generate advice and store it in the report")
	fmt.Println("  categories  Print a session's merchant category map")
	fmt.Println("  export      Export a session to csv, bigquery or notion")
	fmt.Println("  reset       Delete every session")
	fmt.Println("  help        Show this help message")
	fmt.Println("\nEvery command accepts -config PATH. Run 'cli <command> -h' for more information on a command.")
}

// setup loads the configuration and opens the services. The returned logger
// honours the configured level.
func setup(log zerolog.Logger, configPath string, timeout time.Duration) (context.Context, context.CancelFunc, *app.App, zerolog.Logger) {
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	log = logger.NewWithLevel(cfg.App.LogLevel)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	ctx = logger.WithOutput(ctx, log, logger.ConsoleWriter())

	a, err := app.New(ctx, cfg)
	if err != nil {
		cancel()
		log.Fatal().Err(err).Msg("Failed to initialize services")
	}
	return ctx, cancel, a, log
}

func runSessions(log zerolog.Logger, args []string) {
	fs := flag.NewFlagSet("sessions", flag.ExitOnError)
	configPath := fs.String("config", "", "YAML config file")
	title := fs.String("title", "", "Title of a new session (with -create)")
	notes := fs.String("notes", "", "Notes of a new session (with -create)")
	create := fs.Bool("create", false, "Create a session")
	show := fs.String("show", "", "Show the session with this ID")
	del := fs.String("delete", "", "Delete the session with this ID")
	fs.Parse(args)

	ctx, cancel, a, log := setup(log, *configPath, time.Minute)
	defer cancel()
	defer a.Close()

	switch {
	case *create:
		s, err := a.Sessions.Create(ctx, *title, *notes)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create session")
		}
		fmt.Println(s.ID)
	case *show != "":
		s := mustSession(ctx, log, a, *show)
		files, err := a.Sessions.Originals(ctx, s.ID)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to list originals")
		}
		logs, err := a.Sessions.Logs(ctx, s.ID)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to list logs")
		}
		renderSession(os.Stdout, s, files, logs)
	case *del != "":
		mustSession(ctx, log, a, *del)
		if err := a.Sessions.Delete(ctx, *del); err != nil {
			log.Fatal().Err(err).Msg("Failed to delete session")
		}
		fmt.Printf("Deleted session %s\n", *del)
	default:
		sessions, err := a.Sessions.List(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to list sessions")
		}
		renderSessions(os.Stdout, sessions)
	}
}

func runIngest(log zerolog.Logger, args []string) {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	configPath := fs.String("config", "", "YAML config file")
	sessionID := fs.String("session", "", "Session ID (a new session is created when empty)")
	title := fs.String("title", "", "Title of the new session")
	fs.Parse(args)

	files := fs.Args()
	if len(files) == 0 {
		log.Fatal().Msg("Usage: cli ingest [-session ID] FILE...")
	}

	ctx, cancel, a, log := setup(log, *configPath, 10*time.Minute)
	defer cancel()
	defer a.Close()

	id := *sessionID
	if id == "" {
		s, err := a.Sessions.Create(ctx, *title, "")
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create session")
		}
		id = s.ID
	}

	txs, err := a.Ingestor.Ingest(ctx, id, files)
	exitOnIngestError(log, id, err)

	fmt.Printf("Session %s: %d transactions\n", id, len(txs))
}

func runReingest(log zerolog.Logger, args []string) {
	fs := flag.NewFlagSet("reingest", flag.ExitOnError)
	configPath := fs.String("config", "", "YAML config file")
	sessionID := fs.String("session", "", "Session ID (required)")
	fs.Parse(args)

	if *sessionID == "" {
		log.Fatal().Msg("Error: -session is required")
	}

	ctx, cancel, a, log := setup(log, *configPath, 10*time.Minute)
	defer cancel()
	defer a.Close()

	txs, err := a.Ingestor.IngestOriginals(ctx, *sessionID, fs.Args())
	exitOnIngestError(log, *sessionID, err)

	fmt.Printf("Session %s: %d transactions\n", *sessionID, len(txs))
}

func exitOnIngestError(log zerolog.Logger, sessionID string, err error) {
	switch {
	case err == nil:
	case errors.Is(err, pipeline.ErrNoReadableFiles):
		log.Fatal().Str("session_id", sessionID).Msg("No readable files, only CSV and Excel statements are supported")
	case errors.Is(err, session.ErrNotFound):
		log.Fatal().Str("session_id", sessionID).Msg("Session not found")
	default:
		log.Fatal().Err(err).Str("session_id", sessionID).Msg("Ingestion failed")
	}
}

func runReport(log zerolog.Logger, args []string) {
	fs := flag.NewFlagSet("report", flag.ExitOnError)
	configPath := fs.String("config", "", "YAML config file")
	sessionID := fs.String("session", "", "Session ID (required)")
	fs.Parse(args)

	if *sessionID == "" {
		log.Fatal().Msg("Error: -session is required")
	}

	ctx, cancel, a, log := setup(log, *configPath, time.Minute)
	defer cancel()
	defer a.Close()

	s := mustSession(ctx, log, a, *sessionID)
	rep, err := a.Sessions.ReadReport(ctx, s.ID)
	if errors.Is(err, session.ErrNotFound) {
		log.Fatal().Msg("No report yet, ingest files first")
	}
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read report")
	}
	renderReport(os.Stdout, s, rep)
}

func runAdvice(log zerolog.Logger, args []string) {
	fs := flag.NewFlagSet("advice", flag.ExitOnError)
	configPath := fs.String("config", "", "YAML config file")
	sessionID := fs.String("session", "", "Session ID (required)")
	fs.Parse(args)

	if *sessionID == "" {
		log.Fatal().Msg("Error: -session is required")
	}

	ctx, cancel, a, log := setup(log, *configPath, 5*time.Minute)
	defer cancel()
	defer a.Close()

	s := mustSession(ctx, log, a, *sessionID)
	rep, err := a.Sessions.ReadReport(ctx, s.ID)
	if errors.Is(err, session.ErrNotFound) {
		log.Fatal().Msg("No report yet, ingest files first")
	}
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read report")
	}
	txs, err := a.Sessions.ReadTable(ctx, s.ID)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read transactions")
	}

	res := a.Advice.Generate(ctx, txs)
	rep.SetAdvice(res.Markdown)
	if err := a.Sessions.WriteReport(ctx, s.ID, rep); err != nil {
		log.Fatal().Err(err).Msg("Failed to store advice")
	}
	fmt.Println(res.Markdown)
}

func runCategories(log zerolog.Logger, args []string) {
	fs := flag.NewFlagSet("categories", flag.ExitOnError)
	configPath := fs.String("config", "", "YAML config file")
	sessionID := fs.String("session", "", "Session ID (required)")
	fs.Parse(args)

	if *sessionID == "" {
		log.Fatal().Msg("Error: -session is required")
	}

	ctx, cancel, a, log := setup(log, *configPath, time.Minute)
	defer cancel()
	defer a.Close()

	mustSession(ctx, log, a, *sessionID)
	cm, err := a.Sessions.CategoryMap(ctx, *sessionID)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read category map")
	}
	renderCategories(os.Stdout, cm.Entries())
}

func runExport(log zerolog.Logger, args []string) {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	configPath := fs.String("config", "", "YAML config file")
	sessionID := fs.String("session", "", "Session ID (required)")
	format := fs.String("format", "csv", "csv, bigquery or notion")
	out := fs.String("out", "", "Output file for csv (stdout when empty)")
	dryRun := fs.Bool("dry-run", false, "Notion: preview changes without syncing")
	prune := fs.Bool("prune", false, "Notion: archive pages of transactions no longer in the session")
	fs.Parse(args)

	if *sessionID == "" {
		log.Fatal().Msg("Error: -session is required")
	}

	ctx, cancel, a, log := setup(log, *configPath, 10*time.Minute)
	defer cancel()
	defer a.Close()

	mustSession(ctx, log, a, *sessionID)
	txs, err := a.Sessions.ReadTable(ctx, *sessionID)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read transactions")
	}
	cfg := a.Config.Export

	switch *format {
	case "csv":
		w := os.Stdout
		if *out != "" {
			f, err := os.Create(*out)
			if err != nil {
				log.Fatal().Err(err).Msg("Failed to create output file")
			}
			defer f.Close()
			w = f
		}
		if err := csvexport.Write(w, txs); err != nil {
			log.Fatal().Err(err).Msg("Export failed")
		}
		if *out != "" {
			fmt.Printf("Wrote %d transactions to %s\n", len(txs), *out)
		}
	case "bigquery":
		exp, err := bqexport.NewExporter(ctx, cfg.BigQueryProject, cfg.BigQueryDataset)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize BigQuery exporter")
		}
		defer exp.Close()
		n, err := exp.Export(ctx, txs)
		if err != nil {
			log.Fatal().Err(err).Msg("Export failed")
		}
		fmt.Printf("Exported %d transactions to %s.%s\n", n, cfg.BigQueryProject, cfg.BigQueryDataset)
	case "notion":
		if cfg.NotionToken == "" || cfg.NotionDatabase == "" {
			log.Fatal().Msg("Error: NOTION_TOKEN and NOTION_DATABASE_ID are required")
		}
		client := notionsync.NewNotionClient(cfg.NotionToken)
		res, err := notionsync.SyncSession(ctx, client, cfg.NotionDatabase, *sessionID, txs,
			notionsync.Options{DryRun: *dryRun, Prune: *prune})
		if err != nil {
			log.Fatal().Err(err).Msg("Sync failed")
		}
		fmt.Printf("Created %d, skipped %d, archived %d, failed %d\n", res.Created, res.Skipped, res.Archived, res.Failed)
	default:
		log.Fatal().Str("format", *format).Msg("Error: -format must be csv, bigquery or notion")
	}
}

func runReset(log zerolog.Logger, args []string) {
	fs := flag.NewFlagSet("reset", flag.ExitOnError)
	configPath := fs.String("config", "", "YAML config file")
	yes := fs.Bool("yes", false, "Confirm deleting every session")
	fs.Parse(args)

	if !*yes {
		log.Fatal().Msg("Refusing to reset without -yes")
	}

	ctx, cancel, a, log := setup(log, *configPath, 5*time.Minute)
	defer cancel()
	defer a.Close()

	if err := a.Sessions.Reset(ctx); err != nil {
		log.Fatal().Err(err).Msg("Reset failed")
	}
	fmt.Println("All sessions deleted.")
}

func mustSession(ctx context.Context, log zerolog.Logger, a *app.App, id string) session.Session {
	s, err := a.Sessions.Get(ctx, id)
	if errors.Is(err, session.ErrNotFound) {
		log.Fatal().Str("session_id", id).Msg("Session not found")
	}
	if err != nil {
		log.Fatal().Err(err).Str("session_id", id).Msg("Failed to get session")
	}
	return s
}

