// Package bqexport mirrors session tables into BigQuery and manages the
// dataset schema through embedded SQL migrations.
package bqexport

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/dvloznov/finance-health/internal/domain"
	"github.com/dvloznov/finance-health/internal/logger"
	"github.com/shopspring/decimal"
	"google.golang.org/api/iterator"
)

// TransactionsTable is the exported table name.
const TransactionsTable = "transactions"

// insertBatch bounds the rows sent in one streaming insert call.
const insertBatch = 500

// TransactionRow is the BigQuery shape of a domain.Transaction.
type TransactionRow struct {
	TransactionID   string              `bigquery:"transaction_id"`
	SessionID       string              `bigquery:"session_id"`
	TransactionDate civil.Date          `bigquery:"transaction_date"`
	Amount          *big.Rat            `bigquery:"amount"`
	Currency        string              `bigquery:"currency"`
	Description     string              `bigquery:"description"`
	Merchant        string              `bigquery:"merchant"`
	Category        bigquery.NullString `bigquery:"category"`
	Type            string              `bigquery:"type"`
	AccountName     bigquery.NullString `bigquery:"account_name"`
	BalanceAfter    *big.Rat            `bigquery:"balance_after"`
	SourceFile      string              `bigquery:"source_file"`
	ExportedTS      time.Time           `bigquery:"exported_ts"`
}

// ToRow converts tx for insertion.
func ToRow(tx domain.Transaction, exportedAt time.Time) TransactionRow {
	row := TransactionRow{
		TransactionID:   tx.TransactionID,
		SessionID:       tx.SessionID,
		TransactionDate: tx.Date,
		Amount:          tx.Amount.Rat(),
		Currency:        tx.Currency,
		Description:     tx.Description,
		Merchant:        tx.Merchant,
		Category:        nullString(string(tx.Category)),
		Type:            tx.Type,
		AccountName:     nullString(tx.AccountName),
		SourceFile:      tx.SourceFile,
		ExportedTS:      exportedAt.UTC(),
	}
	if tx.BalanceAfter.Valid {
		row.BalanceAfter = tx.BalanceAfter.Decimal.Rat()
	}
	return row
}

// Transaction converts a queried row back into the domain type.
func (r TransactionRow) Transaction() (domain.Transaction, error) {
	amount, err := ratToDecimal(r.Amount)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("amount of %s: %w", r.TransactionID, err)
	}
	tx := domain.Transaction{
		TransactionID: r.TransactionID,
		SessionID:     r.SessionID,
		Date:          r.TransactionDate,
		Amount:        amount,
		Currency:      r.Currency,
		Description:   r.Description,
		Merchant:      r.Merchant,
		Category:      domain.Category(r.Category.StringVal),
		Type:          r.Type,
		AccountName:   r.AccountName.StringVal,
		SourceFile:    r.SourceFile,
	}
	if r.BalanceAfter != nil {
		bal, err := ratToDecimal(r.BalanceAfter)
		if err != nil {
			return domain.Transaction{}, fmt.Errorf("balance of %s: %w", r.TransactionID, err)
		}
		tx.BalanceAfter = decimal.NewNullDecimal(bal)
	}
	return tx, nil
}

func nullString(s string) bigquery.NullString {
	return bigquery.NullString{StringVal: s, Valid: s != ""}
}

func ratToDecimal(r *big.Rat) (decimal.Decimal, error) {
	if r == nil {
		return decimal.Zero, nil
	}
	// NUMERIC carries nine fractional digits.
	return decimal.NewFromString(r.FloatString(9))
}

// Exporter writes session tables to <project>.<dataset>.transactions.
type Exporter struct {
	client  *bigquery.Client
	project string
	dataset string
	now     func() time.Time
}

// NewExporter creates a BigQuery client for project.
func NewExporter(ctx context.Context, project, dataset string) (*Exporter, error) {
	if project == "" || dataset == "" {
		return nil, fmt.Errorf("bqexport.NewExporter: project and dataset are required")
	}
	client, err := bigquery.NewClient(ctx, project)
	if err != nil {
		return nil, fmt.Errorf("bqexport.NewExporter: failed to create BigQuery client: %w", err)
	}
	return &Exporter{client: client, project: project, dataset: dataset, now: time.Now}, nil
}

// Client exposes the underlying client, for migrations.
func (e *Exporter) Client() *bigquery.Client {
	return e.client
}

func (e *Exporter) Close() error {
	return e.client.Close()
}

// Export streams txs into the transactions table. The transaction id is used
// as the insert id so retried batches are deduplicated by BigQuery on a
// best-effort basis.
func (e *Exporter) Export(ctx context.Context, txs []domain.Transaction) (int, error) {
	log := logger.FromContext(ctx)
	ins := e.client.DatasetInProject(e.project, e.dataset).Table(TransactionsTable).Inserter()
	now := e.now()

	sent := 0
	for start := 0; start < len(txs); start += insertBatch {
		end := start + insertBatch
		if end > len(txs) {
			end = len(txs)
		}
		savers := make([]*bigquery.StructSaver, 0, end-start)
		for _, tx := range txs[start:end] {
			row := ToRow(tx, now)
			savers = append(savers, &bigquery.StructSaver{Struct: &row, InsertID: row.TransactionID})
		}
		if err := ins.Put(ctx, savers); err != nil {
			log.Error().Err(err).Int("sent", sent).Msg("failed to insert transactions")
			return sent, fmt.Errorf("Exporter.Export: insert rows %d-%d: %w", start, end, err)
		}
		sent += end - start
	}
	log.Info().Int("rows", sent).Str("table", e.tableRef()).Msg("exported transactions")
	return sent, nil
}

// QueryBySession reads back the latest exported copy of each transaction of
// a session.
func (e *Exporter) QueryBySession(ctx context.Context, sessionID string) ([]domain.Transaction, error) {
	sql := `SELECT * EXCEPT (rn) FROM (
		SELECT *, ROW_NUMBER() OVER (PARTITION BY transaction_id ORDER BY exported_ts DESC) AS rn
		FROM ` + "`" + e.tableRef() + "`" + `
		WHERE session_id = @session_id
	)
	WHERE rn = 1
	ORDER BY transaction_date, transaction_id`

	q := e.client.Query(sql)
	q.Parameters = []bigquery.QueryParameter{{Name: "session_id", Value: sessionID}}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("Exporter.QueryBySession: failed to execute query: %w", err)
	}

	var txs []domain.Transaction
	for {
		var row TransactionRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("Exporter.QueryBySession: failed to read row: %w", err)
		}
		tx, err := row.Transaction()
		if err != nil {
			return nil, fmt.Errorf("Exporter.QueryBySession: %w", err)
		}
		txs = append(txs, tx)
	}
	return txs, nil
}

func (e *Exporter) tableRef() string {
	return fmt.Sprintf("%s.%s.%s", e.project, e.dataset, TransactionsTable)
}
