package main

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/dvloznov/finance-health/internal/domain"
	"github.com/dvloznov/finance-health/internal/report"
	"github.com/dvloznov/finance-health/internal/session"
	"github.com/fatih/color"
)

var (
	heading  = color.New(color.FgCyan, color.Bold)
	positive = color.New(color.FgGreen)
	negative = color.New(color.FgRed)
	muted    = color.New(color.Faint)
)

func money(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

// signed colours v by its sign.
func signed(v float64) string {
	if v < 0 {
		return negative.Sprint(money(v))
	}
	return positive.Sprint(money(v))
}

// scoreColor is green from 70, yellow from 40 and red below.
func scoreColor(score float64) *color.Color {
	switch {
	case score >= 70:
		return color.New(color.FgGreen, color.Bold)
	case score >= 40:
		return color.New(color.FgYellow, color.Bold)
	default:
		return color.New(color.FgRed, color.Bold)
	}
}

func renderSessions(w io.Writer, sessions []session.Session) {
	if len(sessions) == 0 {
		muted.Fprintln(w, "No sessions.")
		return
	}
	for _, s := range sessions {
		title := s.Title
		if title == "" {
			title = muted.Sprint("(untitled)")
		}
		fmt.Fprintf(w, "%s  %s  %s\n", s.ID, s.CreatedAt.Format("2006-01-02 15:04"), title)
	}
}

func renderSession(w io.Writer, s session.Session, files, logs []string) {
	heading.Fprintf(w, "Session %s\n", s.ID)
	fmt.Fprintf(w, "Created: %s\n", s.CreatedAt.Format("2006-01-02 15:04:05"))
	if s.Title != "" {
		fmt.Fprintf(w, "Title:   %s\n", s.Title)
	}
	if s.Notes != "" {
		fmt.Fprintf(w, "Notes:   %s\n", s.Notes)
	}
	fmt.Fprintf(w, "Files:   %s\n", listOrNone(files))
	fmt.Fprintf(w, "Logs:    %s\n", listOrNone(logs))
}

func listOrNone(items []string) string {
	if len(items) == 0 {
		return muted.Sprint("none")
	}
	return strings.Join(items, ", ")
}

func renderReport(w io.Writer, s session.Session, r *report.Report) {
	title := s.Title
	if title == "" {
		title = s.ID
	}
	heading.Fprintf(w, "Financial health: %s\n", title)
	fmt.Fprintf(w, "Generated %s\n\n", r.CreatedAt)

	fmt.Fprintf(w, "Health score: %s\n", scoreColor(r.HealthScore.Score).Sprintf("%.1f", r.HealthScore.Score))
	fmt.Fprintf(w, "  income %s  expense %s  net %s  savings rate %.1f%%\n\n",
		money(r.KPIs.TotalIncome), money(r.KPIs.TotalExpense), signed(r.KPIs.NetCashflow), r.KPIs.SavingsRate*100)

	if len(r.MonthlyCashflow) > 0 {
		heading.Fprintln(w, "Monthly cashflow")
		for _, m := range r.MonthlyCashflow {
			fmt.Fprintf(w, "  %s  in %10s  out %10s  net %s\n", m.Month, money(m.Income), money(m.Expense), signed(m.Net))
		}
		fmt.Fprintln(w)
	}
	if len(r.Categories) > 0 {
		heading.Fprintln(w, "Spend by category")
		for _, c := range r.Categories {
			fmt.Fprintf(w, "  %-14s %10s\n", c.Category, money(c.Spend))
		}
		fmt.Fprintln(w)
	}
	if len(r.TopMerchants) > 0 {
		heading.Fprintln(w, "Top merchants")
		for _, m := range r.TopMerchants {
			fmt.Fprintf(w, "  %-30s %10s  %d tx\n", m.Merchant, money(m.Spend), m.TxCount)
		}
		fmt.Fprintln(w)
	}

	heading.Fprintln(w, "Advice")
	if r.Advice == nil {
		muted.Fprintln(w, "  none yet, run 'cli advice'")
		return
	}
	fmt.Fprintln(w, *r.Advice)
}

func renderCategories(w io.Writer, entries map[string]domain.Category) {
	if len(entries) == 0 {
		muted.Fprintln(w, "No cached merchant categories.")
		return
	}
	merchants := make([]string, 0, len(entries))
	for m := range entries {
		merchants = append(merchants, m)
	}
	sort.Strings(merchants)
	for _, m := range merchants {
		fmt.Fprintf(w, "%-40s %s\n", m, entries[m])
	}
}
