// Package advice produces Markdown recommendations from a session's
// analytics, through a language model when one is configured.
package advice

import (
	"context"

	"github.com/dvloznov/finance-health/internal/domain"
	"github.com/dvloznov/finance-health/internal/health"
	"github.com/dvloznov/finance-health/internal/llm"
	"github.com/dvloznov/finance-health/internal/logger"
	"github.com/dvloznov/finance-health/internal/metrics"
)

// StaticTips is returned when no model answer is available.
const StaticTips = "Quick tips:\n" +
	"- Increase savings rate by 5-10% via auto-transfers.\n" +
	"- Reduce top 2 discretionary categories by 15%.\n" +
	"- Review recurring charges and cancel unused subscriptions.\n"

const (
	noModelNote   = "_AI advice is not configured. Set LLM_PROVIDER to get tailored recommendations._"
	modelDownNote = "_AI advice is unavailable right now. Showing general tips instead._"
)

// Result carries the health score alongside the advice text.
type Result struct {
	Score      float64
	Components map[string]float64
	Markdown   string
	Generated  bool // false when Markdown is the static fallback
}

// Engine generates advice. A nil generator always yields the static tips.
type Engine struct {
	gen   llm.Generator
	model string
}

func NewEngine(gen llm.Generator, model string) *Engine {
	return &Engine{gen: gen, model: model}
}

func (e *Engine) Generate(ctx context.Context, txs []domain.Transaction) Result {
	log := logger.FromContext(ctx)

	k := metrics.ComputeKPIs(txs)
	score := health.Compute(k, health.DefaultWeights)
	res := Result{Score: score.Score, Components: score.Components}

	if e.gen == nil {
		res.Markdown = StaticTips + "\n" + noModelNote
		return res
	}

	prompt, err := userPrompt(txs, k, score)
	if err != nil {
		log.Warn().Err(err).Msg("failed to build advice prompt")
		res.Markdown = StaticTips + "\n" + modelDownNote
		return res
	}

	raw, err := e.gen.Generate(ctx, llm.Request{System: systemPrompt, User: prompt, Model: e.model})
	if err == nil {
		raw = Sanitize(raw)
	}
	if err != nil || raw == "" {
		log.Warn().Err(err).Msg("advice generation failed, using static tips")
		res.Markdown = StaticTips + "\n" + modelDownNote
		return res
	}

	res.Markdown = raw
	res.Generated = true
	return res
}
