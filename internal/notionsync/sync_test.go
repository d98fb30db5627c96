package notionsync

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/finance-health/internal/domain"
	"github.com/jomei/notionapi"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockNotionService is a mock implementation of NotionService for testing.
type MockNotionService struct {
	CreatePageFunc    func(ctx context.Context, databaseID string, properties notionapi.Properties) (*notionapi.Page, error)
	QueryDatabaseFunc func(ctx context.Context, databaseID string, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error)
	ArchivePageFunc   func(ctx context.Context, pageID string) error
}

func (m *MockNotionService) CreatePage(ctx context.Context, databaseID string, properties notionapi.Properties) (*notionapi.Page, error) {
	return m.CreatePageFunc(ctx, databaseID, properties)
}

func (m *MockNotionService) QueryDatabase(ctx context.Context, databaseID string, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
	return m.QueryDatabaseFunc(ctx, databaseID, req)
}

func (m *MockNotionService) ArchivePage(ctx context.Context, pageID string) error {
	return m.ArchivePageFunc(ctx, pageID)
}

func page(id, txID string) notionapi.Page {
	return notionapi.Page{
		ID: notionapi.ObjectID(id),
		Properties: notionapi.Properties{
			PropTransactionID: &notionapi.RichTextProperty{
				RichText: []notionapi.RichText{{PlainText: txID}},
			},
		},
	}
}

func txs(ids ...string) []domain.Transaction {
	out := make([]domain.Transaction, len(ids))
	for i, id := range ids {
		out[i] = domain.Transaction{
			TransactionID: id,
			SessionID:     "s1",
			Date:          civil.Date{Year: 2025, Month: time.May, Day: i + 1},
			Amount:        decimal.NewFromInt(int64(-10 * (i + 1))),
			Description:   "row " + id,
		}
	}
	return out
}

func TestSyncSessionSkipsExistingAcrossPages(t *testing.T) {
	var created []string
	var queries int
	svc := &MockNotionService{
		QueryDatabaseFunc: func(ctx context.Context, databaseID string, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
			queries++
			assert.Equal(t, "db", databaseID)
			if req.StartCursor == "" {
				return &notionapi.DatabaseQueryResponse{Results: []notionapi.Page{page("p1", "a")}, HasMore: true, NextCursor: "next"}, nil
			}
			assert.Equal(t, notionapi.Cursor("next"), req.StartCursor)
			return &notionapi.DatabaseQueryResponse{Results: []notionapi.Page{page("p2", "b")}}, nil
		},
		CreatePageFunc: func(ctx context.Context, databaseID string, props notionapi.Properties) (*notionapi.Page, error) {
			id := props[PropTransactionID].(notionapi.RichTextProperty).RichText[0].Text.Content
			created = append(created, id)
			return &notionapi.Page{ID: notionapi.ObjectID("new-" + id)}, nil
		},
	}

	res, err := SyncSession(context.Background(), svc, "db", "s1", txs("a", "b", "c", "c"), Options{})
	require.NoError(t, err)

	assert.Equal(t, 2, queries)
	assert.Equal(t, []string{"c"}, created)
	assert.Equal(t, Result{Created: 1, Skipped: 3}, res)
}

func TestSyncSessionDryRun(t *testing.T) {
	svc := &MockNotionService{
		QueryDatabaseFunc: func(ctx context.Context, databaseID string, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
			return &notionapi.DatabaseQueryResponse{Results: []notionapi.Page{page("p1", "gone")}}, nil
		},
		CreatePageFunc: func(ctx context.Context, databaseID string, props notionapi.Properties) (*notionapi.Page, error) {
			t.Fatal("dry run must not create pages")
			return nil, nil
		},
		ArchivePageFunc: func(ctx context.Context, pageID string) error {
			t.Fatal("dry run must not archive pages")
			return nil
		},
	}

	res, err := SyncSession(context.Background(), svc, "db", "s1", txs("a", "b"), Options{DryRun: true, Prune: true})
	require.NoError(t, err)
	assert.Equal(t, Result{Created: 2, Archived: 1}, res)
}

func TestSyncSessionPruneAndFailures(t *testing.T) {
	var archived []string
	svc := &MockNotionService{
		QueryDatabaseFunc: func(ctx context.Context, databaseID string, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
			return &notionapi.DatabaseQueryResponse{Results: []notionapi.Page{page("p1", "a"), page("p2", "stale")}}, nil
		},
		CreatePageFunc: func(ctx context.Context, databaseID string, props notionapi.Properties) (*notionapi.Page, error) {
			return nil, errors.New("rate limited")
		},
		ArchivePageFunc: func(ctx context.Context, pageID string) error {
			archived = append(archived, pageID)
			return nil
		},
	}

	res, err := SyncSession(context.Background(), svc, "db", "s1", txs("a", "b"), Options{Prune: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"p2"}, archived)
	assert.Equal(t, Result{Skipped: 1, Archived: 1, Failed: 1}, res)
}

func TestSyncSessionQueryError(t *testing.T) {
	svc := &MockNotionService{
		QueryDatabaseFunc: func(ctx context.Context, databaseID string, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
			return nil, fmt.Errorf("unauthorized")
		},
	}
	_, err := SyncSession(context.Background(), svc, "db", "s1", txs("a"), Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unauthorized")

	_, err = SyncSession(context.Background(), svc, "", "s1", nil, Options{})
	assert.Error(t, err)
}

func TestTransactionToNotionProperties(t *testing.T) {
	tx := txs("a")[0]
	tx.Category = domain.CategoryGroceries
	tx.Currency = "EUR"

	props := TransactionToNotionProperties(tx)

	assert.Equal(t, -10.0, props[PropAmount].(notionapi.NumberProperty).Number)
	assert.Equal(t, "groceries", props[PropCategory].(notionapi.SelectProperty).Select.Name)
	assert.Equal(t, "Expense", props[PropDirection].(notionapi.SelectProperty).Select.Name)
	assert.NotContains(t, props, PropBalanceAfter)
	assert.NotContains(t, props, PropAccount)

	start := props[PropDate].(notionapi.DateProperty).Date.Start
	assert.Equal(t, "2025-05-01", time.Time(*start).Format("2006-01-02"))
}
