package advice

import (
	"fmt"
	"strings"

	"github.com/dvloznov/finance-health/internal/domain"
	"github.com/dvloznov/finance-health/internal/health"
	"github.com/dvloznov/finance-health/internal/metrics"
	"github.com/gocarina/gocsv"
)

// Prompt section sizes.
const (
	categoryRows     = 10
	monthRows        = 12
	topExpenseRows   = 8
	recurringMin     = 2
	recurringRows    = 10
	subscriptionRows = 10
)

const systemPrompt = "You are a financial health advisor. You analyze summarized metrics, not raw personal data.\n" +
	"Output ONLY the final answer in clean Markdown. Do NOT include chain-of-thought, think tags, XML, JSON or debug traces.\n" +
	"Format with these sections:\n" +
	"## At a glance (1-2 bullets)\n" +
	"## Key insights (3-6 bullets, quantified)\n" +
	"## Opportunities (prioritized, bullets with $ impact)\n" +
	"## Actions this month (checklist)\n" +
	"## Watchouts (fees/anomalies if any)\n"

type categoryRow struct {
	Category string  `csv:"category"`
	Spend    float64 `csv:"spend"`
}

type monthRow struct {
	Month   string  `csv:"month"`
	Income  float64 `csv:"income"`
	Expense float64 `csv:"expense"`
	Net     float64 `csv:"net"`
}

type expenseRow struct {
	Date        string  `csv:"date"`
	Merchant    string  `csv:"merchant"`
	Description string  `csv:"description"`
	Amount      float64 `csv:"amount"`
}

type recurringRow struct {
	Merchant  string  `csv:"merchant"`
	AbsAmount float64 `csv:"abs_amount"`
	Count     int     `csv:"count"`
	FirstDate string  `csv:"first_date"`
	LastDate  string  `csv:"last_date"`
}

type merchantRow struct {
	Merchant string  `csv:"merchant"`
	Spend    float64 `csv:"spend"`
	TxCount  int     `csv:"tx_count"`
}

// userPrompt renders the metrics summary sent to the model.
func userPrompt(txs []domain.Transaction, k metrics.KPIs, score health.Score) (string, error) {
	var cats []categoryRow
	for _, c := range truncate(metrics.CategoryBreakdown(txs), categoryRows) {
		cats = append(cats, categoryRow{c.Category, domain.Money(c.Spend)})
	}

	var months []monthRow
	flows := metrics.MonthlyCashflow(txs)
	if len(flows) > monthRows {
		flows = flows[len(flows)-monthRows:]
	}
	for _, m := range flows {
		months = append(months, monthRow{m.Month.String(), domain.Money(m.Income), domain.Money(m.Expense), domain.Money(m.Net)})
	}

	var expenses []expenseRow
	for _, tx := range metrics.TopExpenseTransactions(txs, topExpenseRows) {
		expenses = append(expenses, expenseRow{tx.Date.String(), tx.Merchant, tx.Description, domain.Money(tx.Amount)})
	}

	var recurring []recurringRow
	for _, r := range metrics.RecurringCandidates(txs, recurringMin, recurringRows) {
		recurring = append(recurring, recurringRow{r.Merchant, domain.Money(r.AbsAmount), r.Count, r.FirstDate.String(), r.LastDate.String()})
	}

	var subs []merchantRow
	for _, m := range metrics.SubscriptionMerchants(txs, subscriptionRows) {
		subs = append(subs, merchantRow{m.Merchant, domain.Money(m.Spend), m.TxCount})
	}

	sections := []struct {
		title string
		rows  any
		n     int
	}{
		{"Top categories", &cats, len(cats)},
		{"Monthly cashflow", &months, len(months)},
		{"Top individual expenses", &expenses, len(expenses)},
		{"Recurring charge candidates", &recurring, len(recurring)},
		{"Subscriptions by merchant", &subs, len(subs)},
	}

	var b strings.Builder
	b.WriteString("Given the following metrics and summaries, assess the user's financial health and provide prioritized recommendations.\n\n")
	fmt.Fprintf(&b, "Metrics (text):\ntotal_income: %s, total_expense: %s, net_cashflow: %s, savings_rate: %.2f\n\n",
		k.TotalIncome.StringFixed(2), k.TotalExpense.StringFixed(2), k.NetCashflow.StringFixed(2), k.SavingsRate)

	for _, s := range sections {
		fmt.Fprintf(&b, "%s (CSV):\n", s.title)
		if s.n == 0 {
			b.WriteString("<empty>\n\n")
			continue
		}
		text, err := gocsv.MarshalString(s.rows)
		if err != nil {
			return "", fmt.Errorf("render %s: %w", strings.ToLower(s.title), err)
		}
		b.WriteString(text)
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "Health score: %.1f\n\n", score.Score)
	b.WriteString("Rules: Output only Markdown sections as instructed, no chain-of-thought, no think tags.")
	return b.String(), nil
}

func truncate[T any](s []T, n int) []T {
	if len(s) > n {
		return s[:n]
	}
	return s
}
