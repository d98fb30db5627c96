package advice

import (
	"context"
	"errors"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/finance-health/internal/domain"
	"github.com/dvloznov/finance-health/internal/llm"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample() []domain.Transaction {
	mk := func(month, day int, amount, desc, merchant string, cat domain.Category) domain.Transaction {
		return domain.Transaction{
			Date:        civil.Date{Year: 2025, Month: time.Month(month), Day: day},
			Amount:      decimal.RequireFromString(amount),
			Description: desc,
			Merchant:    merchant,
			Category:    cat,
		}
	}
	return []domain.Transaction{
		mk(1, 3, "-2200", "Rent - January", "rent january", domain.CategoryRentMortgage),
		mk(1, 7, "-9.99", "Spotify Subscription", "spotify subscription", domain.CategorySubscriptions),
		mk(2, 7, "-9.99", "Spotify Subscription", "spotify subscription", domain.CategorySubscriptions),
		mk(1, 10, "6200", "Payroll Deposit", "payroll deposit", domain.CategoryIncome),
	}
}

func TestSanitize(t *testing.T) {
	tests := []struct {
		name, in, want string
	}{
		{"think block", "<think>\nsecret plan\n</think>\n## At a glance\n- ok", "## At a glance\n- ok"},
		{"upper think", "<THINK>x</THINK>hello", "hello"},
		{"stray tags", "<answer>## Hi</answer>", "## Hi"},
		{"blank runs", "a\n\n\n\n\nb", "a\n\nb"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Sanitize(tt.in))
		})
	}
}

func TestGenerateWithModel(t *testing.T) {
	var req llm.Request
	gen := llm.GeneratorFunc(func(ctx context.Context, r llm.Request) (string, error) {
		req = r
		return "<think>hmm</think>\n## At a glance\n- Saving 64%", nil
	})

	res := NewEngine(gen, "advice-model").Generate(context.Background(), sample())

	assert.True(t, res.Generated)
	assert.Equal(t, "## At a glance\n- Saving 64%", res.Markdown)
	assert.Greater(t, res.Score, 0.0)
	assert.Contains(t, res.Components, "savings_rate_pct")

	assert.Equal(t, "advice-model", req.Model)
	assert.Contains(t, req.System, "## Watchouts")
	assert.Contains(t, req.User, "total_income: 6200.00")
	assert.Contains(t, req.User, "total_expense: 2219.98")
	assert.Contains(t, req.User, "category,spend")
	assert.Contains(t, req.User, "rent_mortgage,2200")
	assert.Contains(t, req.User, "Recurring charge candidates (CSV):\nmerchant,abs_amount,count,first_date,last_date\nspotify subscription,9.99,2,2025-01-07,2025-02-07")
	assert.Contains(t, req.User, "Health score:")
}

func TestGenerateFallbacks(t *testing.T) {
	tests := []struct {
		name string
		gen  llm.Generator
	}{
		{"no generator", nil},
		{"error", llm.GeneratorFunc(func(ctx context.Context, r llm.Request) (string, error) {
			return "", errors.New("timeout")
		})},
		{"only reasoning", llm.GeneratorFunc(func(ctx context.Context, r llm.Request) (string, error) {
			return "<think>nothing useful</think>", nil
		})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := NewEngine(tt.gen, "").Generate(context.Background(), sample())
			assert.False(t, res.Generated)
			require.Contains(t, res.Markdown, StaticTips)
			assert.NotEmpty(t, res.Components)
		})
	}
}

func TestGenerateEmptyTable(t *testing.T) {
	var user string
	gen := llm.GeneratorFunc(func(ctx context.Context, r llm.Request) (string, error) {
		user = r.User
		return "## At a glance\n- No data", nil
	})
	res := NewEngine(gen, "").Generate(context.Background(), nil)
	assert.True(t, res.Generated)
	assert.Contains(t, user, "<empty>")
}
