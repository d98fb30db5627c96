package normalize

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/dvloznov/finance-health/internal/domain"
)

// TransactionID derives the deterministic id of tx from
// date|amount(2dp)|merchant|account. With withDescription the cleaned
// description and currency are appended.
func TransactionID(tx domain.Transaction, withDescription bool) string {
	parts := []string{
		tx.Date.String(),
		tx.Amount.StringFixed(2),
		tx.Merchant,
		tx.AccountName,
	}
	if withDescription {
		parts = append(parts, tx.Description, tx.Currency)
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}
