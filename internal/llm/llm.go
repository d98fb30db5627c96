// Package llm wraps the hosted text-generation services behind one small
// interface so extraction, categorization and advice can share them.
package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/dvloznov/finance-health/internal/config"
)

var (
	// ErrDisabled is returned by New when no provider is configured.
	ErrDisabled = errors.New("llm: no provider configured")
	// ErrEmptyResponse is returned when the model produced no text.
	ErrEmptyResponse = errors.New("llm: empty response")
)

// Request is a single prompt. Zero-valued fields fall back to the generator's
// defaults.
type Request struct {
	System      string
	User        string
	Model       string
	MaxTokens   int
	Temperature *float64
}

// Generator produces text for a prompt.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, req Request) (string, error)

func (f GeneratorFunc) Generate(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}

// Defaults are applied to requests that leave a field unset.
type Defaults struct {
	Model       string
	MaxTokens   int
	Temperature float64
}

func (d Defaults) apply(req Request) Request {
	if req.Model == "" {
		req.Model = d.Model
	}
	if req.MaxTokens <= 0 {
		req.MaxTokens = d.MaxTokens
	}
	if req.MaxTokens <= 0 {
		req.MaxTokens = 4096
	}
	if req.Temperature == nil {
		t := d.Temperature
		req.Temperature = &t
	}
	return req
}

// New builds the generator selected by cfg.Provider.
func New(ctx context.Context, cfg config.LLMConfig) (Generator, error) {
	defaults := Defaults{
		Model:       cfg.Model,
		MaxTokens:   cfg.MaxTokens,
		Temperature: cfg.Temperature,
	}
	switch cfg.Provider {
	case config.ProviderGemini:
		g, err := NewGemini(ctx, cfg.APIKey, defaults)
		if err != nil {
			return nil, err
		}
		return g, nil
	case config.ProviderAnthropic:
		a, err := NewAnthropic(cfg.APIKey, defaults)
		if err != nil {
			return nil, err
		}
		return a, nil
	case config.ProviderNone, "":
		return nil, ErrDisabled
	default:
		return nil, fmt.Errorf("llm.New: unknown provider %q", cfg.Provider)
	}
}

// Float returns a pointer to f, for Request.Temperature.
func Float(f float64) *float64 {
	return &f
}
