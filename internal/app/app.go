// Package app builds the shared services of the binaries from a Config.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/dvloznov/finance-health/internal/advice"
	"github.com/dvloznov/finance-health/internal/categorize"
	"github.com/dvloznov/finance-health/internal/config"
	"github.com/dvloznov/finance-health/internal/extract"
	"github.com/dvloznov/finance-health/internal/jobs"
	"github.com/dvloznov/finance-health/internal/jobs/azurequeue"
	"github.com/dvloznov/finance-health/internal/jobs/blobstore"
	"github.com/dvloznov/finance-health/internal/jobs/inmemory"
	"github.com/dvloznov/finance-health/internal/llm"
	"github.com/dvloznov/finance-health/internal/logger"
	"github.com/dvloznov/finance-health/internal/normalize"
	"github.com/dvloznov/finance-health/internal/pipeline"
	"github.com/dvloznov/finance-health/internal/session"
)

// App holds the services built from one Config.
type App struct {
	Config    config.Config
	Sessions  *session.Store
	Generator llm.Generator // nil when no provider is configured
	Ingestor  *pipeline.Ingestor
	Advice    *advice.Engine
}

// New opens the session store and builds the ingestion and advice services.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	log := logger.FromContext(ctx)

	store, err := session.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("app.New: %w", err)
	}

	var gen llm.Generator
	if cfg.AIEnabled() {
		gen, err = llm.New(ctx, cfg.LLM)
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("app.New: %w", err)
		}
		log.Debug().Str("provider", cfg.LLM.Provider).Str("model", cfg.LLM.Model).Msg("text generator configured")
	}

	categorizer, err := NewCategorizer(cfg, gen)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("app.New: %w", err)
	}

	normOpts := NormalizeOptions(cfg)
	deps := pipeline.Deps{
		Store:       store,
		Normalizer:  normalize.NewNormalizer(normOpts),
		Categorizer: categorizer,
	}
	if gen != nil && cfg.Ingest.UseAI {
		deps.Extractor = extract.New(gen, extract.Options{
			MaxRows:   cfg.Ingest.AIMaxRows,
			Model:     cfg.LLM.IngestModel,
			Normalize: normOpts,
		})
	}

	return &App{
		Config:    cfg,
		Sessions:  store,
		Generator: gen,
		Ingestor:  pipeline.NewIngestor(deps),
		Advice:    advice.NewEngine(gen, cfg.LLM.Model),
	}, nil
}

func (a *App) Close() error {
	return a.Sessions.Close()
}

// NormalizeOptions maps the ingest section onto normalizer options.
func NormalizeOptions(cfg config.Config) normalize.Options {
	return normalize.Options{
		DateOrder:                   normalize.DateOrder(cfg.Ingest.DateOrder),
		DefaultCurrency:             cfg.Ingest.DefaultCurrency,
		IdentityIncludesDescription: cfg.Ingest.IdentityIncludesDescription,
	}
}

// NewCategorizer builds the keyword rules, from the rules file when one is
// set, and the configured mapping suggester.
func NewCategorizer(cfg config.Config, gen llm.Generator) (*categorize.Categorizer, error) {
	rules := categorize.DefaultRules
	if cfg.Categorize.RulesFile != "" {
		loaded, err := categorize.LoadRules(cfg.Categorize.RulesFile)
		if err != nil {
			return nil, err
		}
		rules = loaded
	}
	ruleSet := categorize.NewRuleSet(rules)

	var suggester categorize.Suggester
	switch cfg.Categorize.Suggester {
	case config.SuggesterBayes:
		suggester = categorize.NewBayesSuggester(ruleSet)
	case config.SuggesterLLM:
		if gen == nil {
			return nil, errors.New("categorize.suggester llm requires an llm provider")
		}
		suggester = categorize.NewLLMSuggester(gen, cfg.LLM.IngestModel)
	}
	return categorize.NewCategorizer(ruleSet, suggester), nil
}

// Queue is a job queue with its status store.
type Queue interface {
	jobs.Publisher
	jobs.Consumer
}

// Jobs builds the queue and job store selected by cfg.Queue. The memory
// backend keeps jobs in process; the azure backend keeps them next to the
// sessions so the API and a worker share status.
func (a *App) Jobs(ctx context.Context) (Queue, jobs.JobStore, error) {
	q := a.Config.Queue
	switch q.Backend {
	case config.QueueAzure:
		store := blobstore.NewStore(a.Sessions.Blobs())
		queue, err := azurequeue.New(ctx, q.ServiceURL, q.QueueName, store)
		if err != nil {
			return nil, nil, fmt.Errorf("app.Jobs: %w", err)
		}
		return queue, store, nil
	case config.QueueMemory, "":
		store := inmemory.NewStore()
		return inmemory.NewQueue(q.BufferSize, q.Workers, store), store, nil
	default:
		return nil, nil, fmt.Errorf("app.Jobs: unknown queue backend %q", q.Backend)
	}
}
