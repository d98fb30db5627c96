package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/dvloznov/finance-health/internal/domain"
	"github.com/dvloznov/finance-health/internal/logger"
	"github.com/dvloznov/finance-health/internal/normalize"
	"github.com/dvloznov/finance-health/internal/reader"
	"github.com/dvloznov/finance-health/internal/report"
	"github.com/dvloznov/finance-health/internal/session"
)

// ErrNoReadableFiles is returned when none of the input files could be read.
var ErrNoReadableFiles = errors.New("no readable files")

// PipelineStep represents a single step in the ingestion pipeline.
type PipelineStep interface {
	Execute(ctx context.Context, state *PipelineState) error
}

// SourceFile is one input of an ingestion run.
type SourceFile struct {
	Name  string
	Table *reader.Table
}

// PipelineState holds the shared state across all pipeline steps.
type PipelineState struct {
	SessionID string
	Inputs    []string

	Session      session.Session
	Files        []SourceFile
	Batches      [][]domain.Transaction // canonical rows per file, in file order
	Transactions []domain.Transaction
	Report       *report.Report
}

// Step 1: ResolveSessionStep loads the target session.
type ResolveSessionStep struct {
	Store Store
}

func (s *ResolveSessionStep) Execute(ctx context.Context, state *PipelineState) error {
	sess, err := s.Store.Get(ctx, state.SessionID)
	if err != nil {
		return fmt.Errorf("resolve session %s: %w", state.SessionID, err)
	}
	state.Session = sess
	return nil
}

// Step 2: ReadFilesStep parses every input with the reader registered for
// its extension. Unsupported and unreadable files are skipped.
type ReadFilesStep struct {
	Readers *reader.Registry
	Open    Source
	// Archive stores each read file's bytes as a session original.
	Archive bool
	Store   Store
}

func (s *ReadFilesStep) Execute(ctx context.Context, state *PipelineState) error {
	log := logger.FromContext(ctx)

	for _, name := range state.Inputs {
		flog := log.With().Str("file", filepath.Base(name)).Logger()

		rd, ok := s.Readers.ReaderFor(name)
		if !ok {
			flog.Warn().Msg("unsupported file type, skipping")
			continue
		}
		data, err := s.Open(ctx, name)
		if err != nil {
			flog.Warn().Err(err).Msg("failed to open file, skipping")
			continue
		}
		table, err := rd.Parse(ctx, data)
		if err != nil {
			flog.Warn().Err(err).Msg("failed to read file, skipping")
			continue
		}
		if s.Archive {
			if err := s.Store.SaveOriginal(ctx, state.SessionID, name, data); err != nil {
				return fmt.Errorf("archive %s: %w", name, err)
			}
		}
		flog.Info().Int("rows", len(table.Rows)).Int("columns", len(table.Headers)).Msg("read file")
		state.Files = append(state.Files, SourceFile{Name: name, Table: table})
	}

	if len(state.Files) == 0 {
		return ErrNoReadableFiles
	}
	return nil
}

// Step 3: NormalizeStep converts each raw table, trying the model-assisted
// extractor first and falling back to the deterministic normalizer.
type NormalizeStep struct {
	Extractor  Extractor
	Normalizer *normalize.Normalizer
}

func (s *NormalizeStep) Execute(ctx context.Context, state *PipelineState) error {
	log := logger.FromContext(ctx)

	state.Batches = make([][]domain.Transaction, 0, len(state.Files))
	for _, f := range state.Files {
		flog := log.With().Str("file", filepath.Base(f.Name)).Logger()

		if s.Extractor != nil {
			res := s.Extractor.Extract(ctx, f.Table, f.Name, state.SessionID)
			if res.OK() {
				flog.Info().Int("rows", len(res.Transactions)).Msg("extracted with model")
				state.Batches = append(state.Batches, res.Transactions)
				continue
			}
			kind := "no_rows"
			if res.Failure != nil {
				kind = string(res.Failure.Kind)
			}
			flog.Info().Str("failure", kind).Msg("model extraction unavailable, using deterministic normalizer")
		}

		txs := s.Normalizer.Normalize(ctx, f.Table, f.Name, state.SessionID)
		flog.Info().Int("rows", len(txs)).Msg("normalized")
		state.Batches = append(state.Batches, txs)
	}
	return nil
}

// Step 4: MergeStep appends the new rows to the rows already stored in the
// session and dedupes by transaction id. Stored categories that did not come
// from an input file are cleared so the current map and rules apply again.
type MergeStep struct {
	Store Store
}

func (s *MergeStep) Execute(ctx context.Context, state *PipelineState) error {
	existing, err := s.Store.ReadTable(ctx, state.SessionID)
	if err != nil {
		return fmt.Errorf("read existing table: %w", err)
	}

	all := append([]domain.Transaction{}, existing...)
	for i := range all {
		all[i].ResetDerivedCategory()
	}
	for _, b := range state.Batches {
		all = append(all, b...)
	}
	state.Transactions = domain.Dedupe(all)

	log := logger.FromContext(ctx)
	if collapsed := len(all) - len(state.Transactions); collapsed > 0 {
		log.Debug().Int("collapsed", collapsed).Msg("rows sharing a transaction id were merged")
	}
	log.Info().
		Int("existing", len(existing)).
		Int("total", len(state.Transactions)).
		Msg("merged session table")
	return nil
}

// Step 5: CategorizeStep assigns categories. It is best effort: on failure
// rows without a category become other.
type CategorizeStep struct {
	Categorizer Categorizer
	Store       Store
}

func (s *CategorizeStep) Execute(ctx context.Context, state *PipelineState) error {
	log := logger.FromContext(ctx)

	err := s.categorize(ctx, state)
	if err != nil {
		log.Warn().Err(err).Msg("categorization failed, continuing")
	}
	for i := range state.Transactions {
		tx := &state.Transactions[i]
		switch {
		case tx.Category == "":
			tx.Category = domain.CategoryOther
			tx.CategorySource = domain.CategorySourceDefault
		case tx.CategorySource == "":
			tx.CategorySource = domain.CategorySourceInput
		}
	}
	return nil
}

func (s *CategorizeStep) categorize(ctx context.Context, state *PipelineState) error {
	if s.Categorizer == nil {
		return nil
	}
	cm, err := s.Store.CategoryMap(ctx, state.SessionID)
	if err != nil {
		return err
	}
	return s.Categorizer.Categorize(ctx, state.Transactions, cm)
}

// Step 6: CompleteSchemaStep fills defaults so every row is complete.
type CompleteSchemaStep struct {
	DefaultCurrency string
}

func (s *CompleteSchemaStep) Execute(ctx context.Context, state *PipelineState) error {
	for i := range state.Transactions {
		tx := &state.Transactions[i]
		if tx.Currency == "" {
			tx.Currency = s.DefaultCurrency
		}
		if tx.Type == "" {
			tx.Type = normalize.TypeFromSign(tx.Amount)
		}
		tx.SessionID = state.SessionID
	}
	return nil
}

// Step 7: PersistStep writes the canonical table.
type PersistStep struct {
	Store Store
}

func (s *PersistStep) Execute(ctx context.Context, state *PipelineState) error {
	if err := s.Store.WriteTable(ctx, state.SessionID, state.Transactions); err != nil {
		return fmt.Errorf("persist table: %w", err)
	}
	log := logger.FromContext(ctx)
	log.Info().Int("rows", len(state.Transactions)).Msg("saved session table")
	return nil
}

// Step 8: ReportStep rebuilds the session report, keeping stored advice.
type ReportStep struct {
	Store Store
	Now   func() time.Time
}

func (s *ReportStep) Execute(ctx context.Context, state *PipelineState) error {
	r := report.Build(state.SessionID, state.Transactions, s.Now())

	prev, err := s.Store.ReadReport(ctx, state.SessionID)
	switch {
	case err == nil && prev.Advice != nil:
		r.Advice = prev.Advice
	case err != nil && !errors.Is(err, session.ErrNotFound):
		log := logger.FromContext(ctx)
		log.Warn().Err(err).Msg("failed to read previous report, advice not carried over")
	}

	if err := s.Store.WriteReport(ctx, state.SessionID, r); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	state.Report = r
	return nil
}
