package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
	"github.com/dvloznov/finance-health/internal/azure"
	"github.com/dvloznov/finance-health/internal/logger"
)

const partitionKey = "session"

// TableIndex keeps session metadata in Azure Table Storage, one entity per
// session under a single partition.
type TableIndex struct {
	client *aztables.Client
}

type sessionEntity struct {
	aztables.Entity
	CreatedAt string `json:"CreatedAt"`
	Title     string `json:"Title"`
	Notes     string `json:"Notes"`
}

// NewTableIndex connects to tableURL and creates the table if needed. Plain
// http URLs are treated as Azurite.
func NewTableIndex(ctx context.Context, tableURL, tableName string) (*TableIndex, error) {
	log := logger.FromContext(ctx)
	if tableURL == "" {
		return nil, fmt.Errorf("table service url is required")
	}

	var svc *aztables.ServiceClient
	if azure.IsLocal(tableURL) {
		log.Info().Str("table_url", tableURL).Msg("using Azurite credentials for session index")
		cred, err := aztables.NewSharedKeyCredential(azure.AzuriteAccountName, azure.AzuriteAccountKey)
		if err != nil {
			return nil, fmt.Errorf("create shared key credential: %w", err)
		}
		svc, err = aztables.NewServiceClientWithSharedKey(tableURL, cred, nil)
		if err != nil {
			return nil, fmt.Errorf("create table service client with shared key: %w", err)
		}
	} else {
		cred, err := azure.DefaultCredential()
		if err != nil {
			return nil, fmt.Errorf("create default azure credential: %w", err)
		}
		svc, err = aztables.NewServiceClient(tableURL, cred, nil)
		if err != nil {
			return nil, fmt.Errorf("create table service client: %w", err)
		}
	}

	if _, err := svc.CreateTable(ctx, tableName, nil); err != nil {
		var azErr *azcore.ResponseError
		if !errors.As(err, &azErr) || azErr.ErrorCode != "TableAlreadyExists" {
			return nil, fmt.Errorf("create table %s: %w", tableName, err)
		}
	}
	return &TableIndex{client: svc.NewClient(tableName)}, nil
}

func (t *TableIndex) Put(ctx context.Context, s Session) error {
	data, err := json.Marshal(sessionEntity{
		Entity:    aztables.Entity{PartitionKey: partitionKey, RowKey: s.ID},
		CreatedAt: s.CreatedAt.UTC().Format(time.RFC3339Nano),
		Title:     s.Title,
		Notes:     s.Notes,
	})
	if err != nil {
		return fmt.Errorf("TableIndex.Put: %w", err)
	}
	_, err = t.client.UpsertEntity(ctx, data, &aztables.UpsertEntityOptions{UpdateMode: aztables.UpdateModeReplace})
	if err != nil {
		return fmt.Errorf("TableIndex.Put: %s: %w", s.ID, err)
	}
	return nil
}

func (t *TableIndex) Get(ctx context.Context, id string) (Session, error) {
	resp, err := t.client.GetEntity(ctx, partitionKey, id, nil)
	if notFound(err) {
		return Session{}, ErrNotFound
	}
	if err != nil {
		return Session{}, fmt.Errorf("TableIndex.Get: %s: %w", id, err)
	}
	return decodeEntity(resp.Value)
}

func (t *TableIndex) List(ctx context.Context) ([]Session, error) {
	filter := fmt.Sprintf("PartitionKey eq '%s'", partitionKey)
	pager := t.client.NewListEntitiesPager(&aztables.ListEntitiesOptions{Filter: &filter})

	var out []Session
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("TableIndex.List: %w", err)
		}
		for _, raw := range resp.Entities {
			s, err := decodeEntity(raw)
			if err != nil {
				return nil, fmt.Errorf("TableIndex.List: %w", err)
			}
			out = append(out, s)
		}
	}
	return out, nil
}

func (t *TableIndex) Delete(ctx context.Context, id string) error {
	if _, err := t.client.DeleteEntity(ctx, partitionKey, id, nil); err != nil && !notFound(err) {
		return fmt.Errorf("TableIndex.Delete: %s: %w", id, err)
	}
	return nil
}

func (t *TableIndex) Close() error { return nil }

func decodeEntity(raw []byte) (Session, error) {
	var e sessionEntity
	if err := json.Unmarshal(raw, &e); err != nil {
		return Session{}, fmt.Errorf("decode session entity: %w", err)
	}
	created, err := time.Parse(time.RFC3339Nano, e.CreatedAt)
	if err != nil {
		return Session{}, fmt.Errorf("session %s created_at: %w", e.RowKey, err)
	}
	return Session{ID: e.RowKey, CreatedAt: created, Title: e.Title, Notes: e.Notes}, nil
}

func notFound(err error) bool {
	var azErr *azcore.ResponseError
	return errors.As(err, &azErr) && azErr.StatusCode == http.StatusNotFound
}
