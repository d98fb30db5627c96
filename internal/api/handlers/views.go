package handlers

import "github.com/dvloznov/finance-health/internal/domain"

// transactionView is the JSON shape of a canonical row. Amounts are decimal
// strings so no precision is lost.
type transactionView struct {
	TransactionID string  `json:"transaction_id"`
	Date          string  `json:"date"`
	Amount        string  `json:"amount"`
	Currency      string  `json:"currency"`
	Description   string  `json:"description"`
	Merchant      string  `json:"merchant"`
	Category      string  `json:"category"`
	Type          string  `json:"type"`
	AccountName   *string `json:"account_name"`
	BalanceAfter  *string `json:"balance_after"`
	SourceFile    string  `json:"source_file"`
	SessionID     string  `json:"session_id"`
}

func newTransactionView(tx domain.Transaction) transactionView {
	v := transactionView{
		TransactionID: tx.TransactionID,
		Date:          tx.Date.String(),
		Amount:        tx.Amount.String(),
		Currency:      tx.Currency,
		Description:   tx.Description,
		Merchant:      tx.Merchant,
		Category:      string(tx.Category),
		Type:          tx.Type,
		SourceFile:    tx.SourceFile,
		SessionID:     tx.SessionID,
	}
	if tx.AccountName != "" {
		name := tx.AccountName
		v.AccountName = &name
	}
	if tx.BalanceAfter.Valid {
		bal := tx.BalanceAfter.Decimal.String()
		v.BalanceAfter = &bal
	}
	return v
}
