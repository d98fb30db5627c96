package categorize

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/dvloznov/finance-health/internal/domain"
	"github.com/dvloznov/finance-health/internal/llm"
	"github.com/shopspring/decimal"
)

// DefaultMaxMerchants caps how many merchants are sent to the model.
const DefaultMaxMerchants = 200

// MerchantSample summarizes one merchant for the model.
type MerchantSample struct {
	Merchant           string  `json:"merchant"`
	ExampleDescription string  `json:"example_description"`
	MeanAmount         float64 `json:"mean_amount"`
	count              int
}

// LLMSuggester asks a language model to classify merchants.
type LLMSuggester struct {
	gen          llm.Generator
	model        string
	maxMerchants int
}

// NewLLMSuggester creates an LLMSuggester. model may be empty.
func NewLLMSuggester(gen llm.Generator, model string) *LLMSuggester {
	return &LLMSuggester{gen: gen, model: model, maxMerchants: DefaultMaxMerchants}
}

func (s *LLMSuggester) Suggest(ctx context.Context, txs []domain.Transaction) (map[string]domain.Category, error) {
	samples := MerchantSamples(txs, s.maxMerchants)
	if len(samples) == 0 {
		return nil, nil
	}

	payload, err := json.Marshal(map[string]any{"merchants": samples})
	if err != nil {
		return nil, fmt.Errorf("LLMSuggester.Suggest: marshal payload: %w", err)
	}

	raw, err := s.gen.Generate(ctx, llm.Request{
		System: suggestSystemPrompt(),
		User:   string(payload),
		Model:  s.model,
	})
	if err != nil {
		return nil, fmt.Errorf("LLMSuggester.Suggest: %w", err)
	}

	items, err := llm.DecodeArray(raw)
	if err != nil {
		return nil, fmt.Errorf("LLMSuggester.Suggest: %w", err)
	}

	out := make(map[string]domain.Category, len(items))
	for _, it := range items {
		m, _ := it["merchant"].(string)
		m = strings.TrimSpace(m)
		if m == "" {
			continue
		}
		c, _ := it["category"].(string)
		cat, ok := domain.ParseCategory(c)
		if !ok {
			cat = domain.CategoryOther
		}
		out[m] = cat
	}
	return out, nil
}

func suggestSystemPrompt() string {
	return "You are a transaction categorizer. Classify each merchant into ONE category from the allowed list.\n" +
		"Allowed categories: " + strings.Join(domain.CategoryNames(), ", ") + ".\n" +
		"Use \"income\" for positive amounts. Use \"transfer\" for internal transfers. If uncertain, use \"other\".\n" +
		"Return ONLY strictly minified raw JSON: an array of objects with keys \"merchant\" and \"category\".\n" +
		"Do NOT wrap the response in code fences.\n"
}

// MerchantSamples groups txs by merchant and returns up to limit samples
// ordered by transaction count descending, then merchant ascending.
func MerchantSamples(txs []domain.Transaction, limit int) []MerchantSample {
	type agg struct {
		sample MerchantSample
		sum    decimal.Decimal
	}
	groups := map[string]*agg{}
	for _, tx := range txs {
		if tx.Merchant == "" {
			continue
		}
		g, ok := groups[tx.Merchant]
		if !ok {
			g = &agg{sample: MerchantSample{Merchant: tx.Merchant, ExampleDescription: tx.Description}}
			groups[tx.Merchant] = g
		}
		g.sample.count++
		g.sum = g.sum.Add(tx.Amount)
	}

	out := make([]MerchantSample, 0, len(groups))
	for _, g := range groups {
		mean, _ := g.sum.Div(decimal.NewFromInt(int64(g.sample.count))).Round(2).Float64()
		g.sample.MeanAmount = mean
		out = append(out, g.sample)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].count != out[j].count {
			return out[i].count > out[j].count
		}
		return out[i].Merchant < out[j].Merchant
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
