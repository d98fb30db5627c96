// Package pipeline runs file ingestion for a session: read, normalize,
// merge, categorize, persist and report.
package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dvloznov/finance-health/internal/categorize"
	"github.com/dvloznov/finance-health/internal/domain"
	"github.com/dvloznov/finance-health/internal/extract"
	"github.com/dvloznov/finance-health/internal/jobs"
	"github.com/dvloznov/finance-health/internal/logger"
	"github.com/dvloznov/finance-health/internal/normalize"
	"github.com/dvloznov/finance-health/internal/reader"
	"github.com/dvloznov/finance-health/internal/report"
	"github.com/dvloznov/finance-health/internal/session"
)

// Store is the part of the session store used by ingestion.
type Store interface {
	Get(ctx context.Context, id string) (session.Session, error)
	SaveOriginal(ctx context.Context, id, name string, data []byte) error
	ReadOriginal(ctx context.Context, id, name string) ([]byte, error)
	Originals(ctx context.Context, id string) ([]string, error)
	ReadTable(ctx context.Context, id string) ([]domain.Transaction, error)
	WriteTable(ctx context.Context, id string, txs []domain.Transaction) error
	ReadReport(ctx context.Context, id string) (*report.Report, error)
	WriteReport(ctx context.Context, id string, r *report.Report) error
	CategoryMap(ctx context.Context, id string) (*categorize.CategoryMap, error)
	WriteLog(ctx context.Context, id, name string, data []byte) error
}

// Extractor is the model-assisted conversion of a raw table.
type Extractor interface {
	Extract(ctx context.Context, table *reader.Table, filename, sessionID string) extract.Result
}

// Categorizer assigns categories in place.
type Categorizer interface {
	Categorize(ctx context.Context, txs []domain.Transaction, cm *categorize.CategoryMap) error
}

// Source returns the bytes of a named input.
type Source func(ctx context.Context, name string) ([]byte, error)

// Pipeline executes a sequence of steps in order.
type Pipeline struct {
	steps []PipelineStep
}

// NewPipeline creates a new pipeline with the given steps.
func NewPipeline(steps ...PipelineStep) *Pipeline {
	return &Pipeline{steps: steps}
}

// Execute runs all steps in the pipeline sequentially.
func (p *Pipeline) Execute(ctx context.Context, state *PipelineState) error {
	for i, step := range p.steps {
		if err := step.Execute(ctx, state); err != nil {
			return fmt.Errorf("pipeline step %d failed: %w", i+1, err)
		}
	}
	return nil
}

// Deps are the collaborators of an Ingestor. Only Store is required.
type Deps struct {
	Store       Store
	Readers     *reader.Registry
	Extractor   Extractor // nil disables model-assisted extraction
	Normalizer  *normalize.Normalizer
	Categorizer Categorizer // nil leaves every row as other
	Now         func() time.Time
}

// Ingestor ingests files into sessions.
type Ingestor struct {
	deps Deps
}

func NewIngestor(deps Deps) *Ingestor {
	if deps.Readers == nil {
		deps.Readers = reader.NewRegistry()
	}
	if deps.Normalizer == nil {
		deps.Normalizer = normalize.NewNormalizer(normalize.DefaultOptions())
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Ingestor{deps: deps}
}

// Ingest reads local files, archives them as session originals and merges
// their rows into the session table.
func (in *Ingestor) Ingest(ctx context.Context, sessionID string, files []string) ([]domain.Transaction, error) {
	open := func(ctx context.Context, name string) ([]byte, error) {
		return os.ReadFile(name)
	}
	return in.run(ctx, sessionID, files, open, true)
}

// IngestOriginals ingests files already archived in the session. An empty
// names list means every original.
func (in *Ingestor) IngestOriginals(ctx context.Context, sessionID string, names []string) ([]domain.Transaction, error) {
	if len(names) == 0 {
		all, err := in.deps.Store.Originals(ctx, sessionID)
		if err != nil {
			return nil, fmt.Errorf("Ingestor.IngestOriginals: %w", err)
		}
		names = all
	}
	open := func(ctx context.Context, name string) ([]byte, error) {
		return in.deps.Store.ReadOriginal(ctx, sessionID, name)
	}
	return in.run(ctx, sessionID, names, open, false)
}

// HandleJob runs an ingestion job. Jobs for unknown sessions or without
// readable files are not retried.
func (in *Ingestor) HandleJob(ctx context.Context, job *jobs.IngestJob) error {
	txs, err := in.IngestOriginals(ctx, job.SessionID, job.Files)
	if errors.Is(err, ErrNoReadableFiles) || errors.Is(err, session.ErrNotFound) {
		return jobs.Permanent(err)
	}
	if err != nil {
		return err
	}
	job.Rows = len(txs)
	return nil
}

func (in *Ingestor) run(ctx context.Context, sessionID string, files []string, open Source, archive bool) ([]domain.Transaction, error) {
	d := in.deps
	started := d.Now().UTC()

	// Everything logged during the run is also kept for the session's ingest log.
	var buf bytes.Buffer
	log := logger.Tee(ctx, &buf).With().Str("session_id", sessionID).Logger()
	ctx = logger.WithContext(ctx, log)

	p := NewPipeline(
		&ResolveSessionStep{Store: d.Store},
		&ReadFilesStep{Readers: d.Readers, Open: open, Archive: archive, Store: d.Store},
		&NormalizeStep{Extractor: d.Extractor, Normalizer: d.Normalizer},
		&MergeStep{Store: d.Store},
		&CategorizeStep{Categorizer: d.Categorizer, Store: d.Store},
		&CompleteSchemaStep{DefaultCurrency: d.Normalizer.Options().DefaultCurrency},
		&PersistStep{Store: d.Store},
		&ReportStep{Store: d.Store, Now: d.Now},
	)

	state := &PipelineState{SessionID: sessionID, Inputs: files}
	err := p.Execute(ctx, state)
	if err != nil {
		log.Error().Err(err).Msg("ingestion failed")
	} else {
		log.Info().Int("files", len(state.Files)).Int("rows", len(state.Transactions)).Msg("ingestion complete")
	}

	if state.Session.ID != "" {
		name := "ingest-" + started.Format("20060102T150405Z") + ".log"
		if werr := d.Store.WriteLog(ctx, sessionID, name, buf.Bytes()); werr != nil {
			log.Warn().Err(werr).Msg("failed to save ingest log")
		}
	}

	if err != nil {
		return nil, fmt.Errorf("Ingestor.Ingest: %w", err)
	}
	return state.Transactions, nil
}
