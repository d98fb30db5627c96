// Package extract asks a language model to turn an arbitrary raw table into
// canonical transactions. Every failure is reported in the Result so callers
// can fall back to the deterministic normalizer.
package extract

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/dvloznov/finance-health/internal/domain"
	"github.com/dvloznov/finance-health/internal/llm"
	"github.com/dvloznov/finance-health/internal/logger"
	"github.com/dvloznov/finance-health/internal/normalize"
	"github.com/dvloznov/finance-health/internal/reader"
)

// DefaultMaxRows caps how many raw rows are sent to the model in one request.
// Longer tables are sent in consecutive chunks.
const DefaultMaxRows = 500

// FailureKind classifies why an extraction attempt produced nothing.
type FailureKind string

const (
	FailureUnavailable   FailureKind = "unavailable"
	FailureRequest       FailureKind = "request"
	FailureEmptyResponse FailureKind = "empty_response"
	FailureUnparseable   FailureKind = "unparseable"
	FailureNoRows        FailureKind = "no_rows"
)

// Failure describes a failed extraction attempt.
type Failure struct {
	Kind FailureKind
	Err  error
}

func (f *Failure) Error() string {
	if f.Err == nil {
		return string(f.Kind)
	}
	return fmt.Sprintf("%s: %v", f.Kind, f.Err)
}

func (f *Failure) Unwrap() error { return f.Err }

// Result is the outcome of one extraction attempt.
type Result struct {
	Transactions []domain.Transaction
	Failure      *Failure
}

// OK reports whether the attempt produced usable rows.
func (r Result) OK() bool {
	return r.Failure == nil && len(r.Transactions) > 0
}

func failed(kind FailureKind, err error) Result {
	return Result{Transactions: []domain.Transaction{}, Failure: &Failure{Kind: kind, Err: err}}
}

// Options configure an Extractor.
type Options struct {
	MaxRows   int
	Model     string
	Normalize normalize.Options
}

// Extractor is the model-assisted path of ingestion.
type Extractor struct {
	gen  llm.Generator
	opts Options
}

// New creates an Extractor. gen may be nil, in which case every attempt
// fails with FailureUnavailable.
func New(gen llm.Generator, opts Options) *Extractor {
	if opts.MaxRows <= 0 {
		opts.MaxRows = DefaultMaxRows
	}
	if opts.Normalize.DateOrder == "" {
		opts.Normalize.DateOrder = normalize.MDY
	}
	if opts.Normalize.DefaultCurrency == "" {
		opts.Normalize.DefaultCurrency = "USD"
	}
	return &Extractor{gen: gen, opts: opts}
}

// Extract sends table to the model and converts its answer. It never
// returns an error and never panics.
func (e *Extractor) Extract(ctx context.Context, table *reader.Table, filename, sessionID string) (res Result) {
	log := logger.FromContext(ctx).With().Str("file", filepath.Base(filename)).Logger()

	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("extraction panicked")
			res = failed(FailureRequest, fmt.Errorf("panic: %v", r))
		}
	}()

	if e == nil || e.gen == nil {
		return failed(FailureUnavailable, llm.ErrDisabled)
	}
	if table == nil || len(table.Rows) == 0 {
		return failed(FailureNoRows, errors.New("empty table"))
	}

	var objs []map[string]any
	chunks := 0
	for start := 0; start < len(table.Rows); start += e.opts.MaxRows {
		end := min(start+e.opts.MaxRows, len(table.Rows))
		part, fail := e.extractChunk(ctx, table.Headers, table.Rows[start:end], filename)
		if fail != nil {
			log.Warn().Err(fail).Int("first_row", start).Int("rows", len(table.Rows)).Msg("model extraction failed for a chunk")
			return Result{Transactions: []domain.Transaction{}, Failure: fail}
		}
		objs = append(objs, part...)
		chunks++
	}

	txs := make([]domain.Transaction, 0, len(objs))
	for _, obj := range objs {
		if tx, ok := toTransaction(obj, e.opts.Normalize); ok {
			txs = append(txs, tx)
		}
	}
	txs = normalize.Finish(txs, filename, sessionID, e.opts.Normalize.IdentityIncludesDescription)
	if len(txs) == 0 {
		return failed(FailureNoRows, fmt.Errorf("%d objects, none usable", len(objs)))
	}

	log.Info().Int("rows", len(txs)).Int("objects", len(objs)).Int("chunks", chunks).Msg("model extraction succeeded")
	return Result{Transactions: txs}
}

// extractChunk asks the model about one slice of rows.
func (e *Extractor) extractChunk(ctx context.Context, headers []string, rows [][]string, filename string) ([]map[string]any, *Failure) {
	csvText, err := tableText(headers, rows)
	if err != nil {
		return nil, &Failure{Kind: FailureRequest, Err: fmt.Errorf("render table: %w", err)}
	}

	raw, err := e.gen.Generate(ctx, llm.Request{
		System:      systemPrompt(),
		User:        userPrompt(filepath.Base(filename), csvText),
		Model:       e.opts.Model,
		Temperature: llm.Float(0),
	})
	if errors.Is(err, llm.ErrEmptyResponse) {
		return nil, &Failure{Kind: FailureEmptyResponse, Err: err}
	}
	if err != nil {
		return nil, &Failure{Kind: FailureRequest, Err: err}
	}
	if raw == "" {
		return nil, &Failure{Kind: FailureEmptyResponse, Err: llm.ErrEmptyResponse}
	}

	objs, err := llm.DecodeArray(raw)
	if err != nil {
		log := logger.FromContext(ctx)
		log.Debug().Str("raw", truncate(raw, 500)).Msg("model output not parseable")
		return nil, &Failure{Kind: FailureUnparseable, Err: err}
	}
	return objs, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
