// Package tablefile encodes a session's canonical transactions as an Arrow
// IPC stream with one record batch.
package tablefile

import (
	"bytes"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/apache/arrow/go/v15/arrow"
	"github.com/apache/arrow/go/v15/arrow/array"
	"github.com/apache/arrow/go/v15/arrow/ipc"
	"github.com/apache/arrow/go/v15/arrow/memory"
	"github.com/dvloznov/finance-health/internal/domain"
	"github.com/shopspring/decimal"
)

const (
	colID = iota
	colDate
	colAmount
	colCurrency
	colDescription
	colMerchant
	colCategory
	colType
	colAccount
	colBalance
	colSource
	colSession
	colCategorySource
)

// Schema of the table file. Money is stored as decimal strings to stay exact.
var Schema = arrow.NewSchema([]arrow.Field{
	{Name: "transaction_id", Type: arrow.BinaryTypes.String},
	{Name: "date", Type: arrow.FixedWidthTypes.Date32},
	{Name: "amount", Type: arrow.BinaryTypes.String},
	{Name: "currency", Type: arrow.BinaryTypes.String},
	{Name: "description", Type: arrow.BinaryTypes.String},
	{Name: "merchant", Type: arrow.BinaryTypes.String},
	{Name: "category", Type: arrow.BinaryTypes.String, Nullable: true},
	{Name: "type", Type: arrow.BinaryTypes.String},
	{Name: "account_name", Type: arrow.BinaryTypes.String, Nullable: true},
	{Name: "balance_after", Type: arrow.BinaryTypes.String, Nullable: true},
	{Name: "source_file", Type: arrow.BinaryTypes.String},
	{Name: "session_id", Type: arrow.BinaryTypes.String},
	{Name: "category_source", Type: arrow.BinaryTypes.String, Nullable: true},
}, nil)

// Encode writes txs as an Arrow IPC stream.
func Encode(txs []domain.Transaction) ([]byte, error) {
	mem := memory.NewGoAllocator()
	b := array.NewRecordBuilder(mem, Schema)
	defer b.Release()

	str := func(col int) *array.StringBuilder { return b.Field(col).(*array.StringBuilder) }
	optional := func(col int, v string) {
		if v == "" {
			str(col).AppendNull()
			return
		}
		str(col).Append(v)
	}

	dates := b.Field(colDate).(*array.Date32Builder)
	for _, tx := range txs {
		str(colID).Append(tx.TransactionID)
		dates.Append(arrow.Date32FromTime(tx.Date.In(time.UTC)))
		str(colAmount).Append(tx.Amount.String())
		str(colCurrency).Append(tx.Currency)
		str(colDescription).Append(tx.Description)
		str(colMerchant).Append(tx.Merchant)
		optional(colCategory, string(tx.Category))
		str(colType).Append(tx.Type)
		optional(colAccount, tx.AccountName)
		if tx.BalanceAfter.Valid {
			str(colBalance).Append(tx.BalanceAfter.Decimal.String())
		} else {
			str(colBalance).AppendNull()
		}
		str(colSource).Append(tx.SourceFile)
		str(colSession).Append(tx.SessionID)
		optional(colCategorySource, string(tx.CategorySource))
	}

	rec := b.NewRecord()
	defer rec.Release()

	var buf bytes.Buffer
	w := ipc.NewWriter(&buf, ipc.WithSchema(Schema), ipc.WithAllocator(mem))
	if err := w.Write(rec); err != nil {
		w.Close()
		return nil, fmt.Errorf("tablefile.Encode: write record: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("tablefile.Encode: close writer: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode reads a file produced by Encode.
func Decode(data []byte) ([]domain.Transaction, error) {
	mem := memory.NewGoAllocator()
	r, err := ipc.NewReader(bytes.NewReader(data), ipc.WithSchema(Schema), ipc.WithAllocator(mem))
	if err != nil {
		return nil, fmt.Errorf("tablefile.Decode: open reader: %w", err)
	}
	defer r.Release()

	if !r.Schema().Equal(Schema) {
		return nil, fmt.Errorf("tablefile.Decode: unexpected schema %s", r.Schema())
	}

	var txs []domain.Transaction
	for i := 0; r.Next(); i++ {
		batch, err := decodeRecord(r.Record())
		if err != nil {
			return nil, fmt.Errorf("tablefile.Decode: record %d: %w", i, err)
		}
		txs = append(txs, batch...)
	}
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("tablefile.Decode: %w", err)
	}
	return txs, nil
}

func decodeRecord(rec arrow.Record) ([]domain.Transaction, error) {
	str := func(col int) *array.String { return rec.Column(col).(*array.String) }
	optional := func(col, row int) string {
		c := str(col)
		if c.IsNull(row) {
			return ""
		}
		return c.Value(row)
	}
	dates := rec.Column(colDate).(*array.Date32)

	n := int(rec.NumRows())
	txs := make([]domain.Transaction, 0, n)
	for i := 0; i < n; i++ {
		amount, err := decimal.NewFromString(str(colAmount).Value(i))
		if err != nil {
			return nil, fmt.Errorf("row %d amount: %w", i, err)
		}
		tx := domain.Transaction{
			TransactionID:  str(colID).Value(i),
			Date:           civil.DateOf(dates.Value(i).ToTime()),
			Amount:         amount,
			Currency:       str(colCurrency).Value(i),
			Description:    str(colDescription).Value(i),
			Merchant:       str(colMerchant).Value(i),
			Category:       domain.Category(optional(colCategory, i)),
			CategorySource: domain.CategorySource(optional(colCategorySource, i)),
			Type:           str(colType).Value(i),
			AccountName:    optional(colAccount, i),
			SourceFile:     str(colSource).Value(i),
			SessionID:      str(colSession).Value(i),
		}
		if bal := optional(colBalance, i); bal != "" {
			d, err := decimal.NewFromString(bal)
			if err != nil {
				return nil, fmt.Errorf("row %d balance_after: %w", i, err)
			}
			tx.BalanceAfter = decimal.NewNullDecimal(d)
		}
		txs = append(txs, tx)
	}
	return txs, nil
}
