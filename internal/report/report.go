// Package report assembles the persisted session report from analytics.
package report

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/dvloznov/finance-health/internal/domain"
	"github.com/dvloznov/finance-health/internal/health"
	"github.com/dvloznov/finance-health/internal/metrics"
)

// Version of the report document layout.
const Version = 1

// TopMerchantsLimit caps Report.TopMerchants.
const TopMerchantsLimit = 10

type Report struct {
	Version         int          `json:"version"`
	SessionID       string       `json:"session_id"`
	CreatedAt       string       `json:"created_at"`
	KPIs            KPIs         `json:"kpis"`
	MonthlyCashflow []Month      `json:"monthly_cashflow"`
	Categories      []Category   `json:"categories"`
	TopMerchants    []Merchant   `json:"top_merchants"`
	HealthScore     health.Score `json:"health_score"`
	Advice          *string      `json:"advice"`
}

type KPIs struct {
	TotalIncome  float64 `json:"total_income"`
	TotalExpense float64 `json:"total_expense"`
	NetCashflow  float64 `json:"net_cashflow"`
	SavingsRate  float64 `json:"savings_rate"`
}

type Month struct {
	Month   string  `json:"month"`
	Income  float64 `json:"income"`
	Expense float64 `json:"expense"`
	Net     float64 `json:"net"`
}

type Category struct {
	Category string  `json:"category"`
	Spend    float64 `json:"spend"`
}

type Merchant struct {
	Merchant string  `json:"merchant"`
	Spend    float64 `json:"spend"`
	TxCount  int     `json:"tx_count"`
}

// Build computes the report of txs. Advice is left empty.
func Build(sessionID string, txs []domain.Transaction, now time.Time) *Report {
	k := metrics.ComputeKPIs(txs)

	r := &Report{
		Version:   Version,
		SessionID: sessionID,
		CreatedAt: now.UTC().Format(time.RFC3339),
		KPIs: KPIs{
			TotalIncome:  domain.Money(k.TotalIncome),
			TotalExpense: domain.Money(k.TotalExpense),
			NetCashflow:  domain.Money(k.NetCashflow),
			SavingsRate:  k.SavingsRate,
		},
		MonthlyCashflow: []Month{},
		Categories:      []Category{},
		TopMerchants:    []Merchant{},
		HealthScore:     health.Compute(k, health.DefaultWeights),
	}

	for _, m := range metrics.MonthlyCashflow(txs) {
		r.MonthlyCashflow = append(r.MonthlyCashflow, Month{
			Month:   m.Month.String(),
			Income:  domain.Money(m.Income),
			Expense: domain.Money(m.Expense),
			Net:     domain.Money(m.Net),
		})
	}
	for _, c := range metrics.CategoryBreakdown(txs) {
		r.Categories = append(r.Categories, Category{Category: c.Category, Spend: domain.Money(c.Spend)})
	}
	for _, m := range metrics.TopMerchants(txs, TopMerchantsLimit) {
		r.TopMerchants = append(r.TopMerchants, Merchant{Merchant: m.Merchant, Spend: domain.Money(m.Spend), TxCount: m.TxCount})
	}
	return r
}

// SetAdvice stores markdown as the report's advice.
func (r *Report) SetAdvice(markdown string) {
	r.Advice = &markdown
}

// Marshal encodes r as indented JSON.
func (r *Report) Marshal() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// Unmarshal decodes a stored report.
func Unmarshal(data []byte) (*Report, error) {
	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("report.Unmarshal: %w", err)
	}
	return &r, nil
}
