// Package csvexport writes canonical transactions as a flat CSV file.
package csvexport

import (
	"fmt"
	"io"

	"github.com/dvloznov/finance-health/internal/domain"
	"github.com/gocarina/gocsv"
)

// Row is one exported line. Column order follows the canonical table.
type Row struct {
	TransactionID string `csv:"transaction_id"`
	Date          string `csv:"date"`
	Amount        string `csv:"amount"`
	Currency      string `csv:"currency"`
	Description   string `csv:"description"`
	Merchant      string `csv:"merchant"`
	Category      string `csv:"category"`
	Type          string `csv:"type"`
	AccountName   string `csv:"account_name"`
	BalanceAfter  string `csv:"balance_after"`
	SourceFile    string `csv:"source_file"`
	SessionID     string `csv:"session_id"`
}

// Rows converts txs. Amounts keep their exact decimal text and an unknown
// balance becomes an empty cell.
func Rows(txs []domain.Transaction) []Row {
	rows := make([]Row, 0, len(txs))
	for _, tx := range txs {
		r := Row{
			TransactionID: tx.TransactionID,
			Date:          tx.Date.String(),
			Amount:        tx.Amount.String(),
			Currency:      tx.Currency,
			Description:   tx.Description,
			Merchant:      tx.Merchant,
			Category:      string(tx.Category),
			Type:          tx.Type,
			AccountName:   tx.AccountName,
			SourceFile:    tx.SourceFile,
			SessionID:     tx.SessionID,
		}
		if tx.BalanceAfter.Valid {
			r.BalanceAfter = tx.BalanceAfter.Decimal.String()
		}
		rows = append(rows, r)
	}
	return rows
}

// Write renders txs with a header line. An empty table still gets the header.
func Write(w io.Writer, txs []domain.Transaction) error {
	rows := Rows(txs)
	if err := gocsv.Marshal(&rows, w); err != nil {
		return fmt.Errorf("csvexport.Write: %w", err)
	}
	return nil
}
