// Package notionsync mirrors a session's canonical transactions into a
// Notion database.
package notionsync

import (
	"context"
	"fmt"

	"github.com/dvloznov/finance-health/internal/domain"
	"github.com/dvloznov/finance-health/internal/logger"
	"github.com/jomei/notionapi"
)

const (
	// BatchSize defines the number of transactions to process in a single batch
	BatchSize = 100

	queryPageSize = 100
)

// Options tunes SyncSession.
type Options struct {
	DryRun bool
	// Prune archives pages of the session whose transaction no longer
	// exists in the table.
	Prune bool
}

// Result counts what a sync did, or would do in a dry run.
type Result struct {
	Created  int
	Skipped  int
	Archived int
	Failed   int
}

// SyncSession creates one page per transaction of txs that has no page yet.
// Pages are matched on the "Transaction ID" property among the pages whose
// "Session ID" equals sessionID, so repeated runs only add new rows.
// Individual page failures are logged and counted, not returned.
func SyncSession(ctx context.Context, svc NotionService, databaseID, sessionID string, txs []domain.Transaction, opts Options) (Result, error) {
	log := logger.FromContext(ctx).With().
		Str("session_id", sessionID).
		Bool("dry_run", opts.DryRun).
		Logger()

	var res Result
	if databaseID == "" {
		return res, fmt.Errorf("notionsync.SyncSession: database id is required")
	}

	log.Info().Int("transaction_count", len(txs)).Msg("Starting transaction sync to Notion")

	pages, err := querySessionPages(ctx, svc, databaseID, sessionID)
	if err != nil {
		return res, fmt.Errorf("notionsync.SyncSession: %w", err)
	}
	log.Info().Int("notion_page_count", len(pages)).Msg("Retrieved existing Notion pages")

	existing := make(map[string]bool, len(pages))
	for _, page := range pages {
		if id := extractTransactionID(page); id != "" {
			existing[id] = true
		}
	}

	if opts.Prune {
		valid := make(map[string]bool, len(txs))
		for _, tx := range txs {
			valid[tx.TransactionID] = true
		}
		for _, page := range pages {
			txID := extractTransactionID(page)
			if txID != "" && valid[txID] {
				continue
			}
			plog := log.With().Str("transaction_id", txID).Str("page_id", string(page.ID)).Logger()
			if opts.DryRun {
				plog.Info().Msg("[DRY RUN] Would archive stale Notion page")
				res.Archived++
				continue
			}
			if err := svc.ArchivePage(ctx, string(page.ID)); err != nil {
				plog.Warn().Err(err).Msg("Failed to archive stale Notion page")
				res.Failed++
				continue
			}
			res.Archived++
		}
	}

	for i := 0; i < len(txs); i += BatchSize {
		end := i + BatchSize
		if end > len(txs) {
			end = len(txs)
		}
		log.Debug().Int("batch_start", i).Int("batch_end", end).Msg("Processing batch")

		for _, tx := range txs[i:end] {
			if existing[tx.TransactionID] {
				res.Skipped++
				continue
			}
			// Duplicates inside txs are created once.
			existing[tx.TransactionID] = true

			if opts.DryRun {
				log.Debug().Str("transaction_id", tx.TransactionID).Msg("[DRY RUN] Would create new Notion page")
				res.Created++
				continue
			}

			page, err := svc.CreatePage(ctx, databaseID, TransactionToNotionProperties(tx))
			if err != nil {
				log.Warn().Err(err).Str("transaction_id", tx.TransactionID).Msg("Failed to create Notion page")
				res.Failed++
				continue
			}
			log.Debug().Str("transaction_id", tx.TransactionID).Str("page_id", string(page.ID)).Msg("Created Notion page")
			res.Created++
		}
	}

	log.Info().
		Int("created", res.Created).
		Int("skipped", res.Skipped).
		Int("archived", res.Archived).
		Int("failed", res.Failed).
		Msg("Transaction sync completed")
	return res, nil
}

// querySessionPages returns every page of the session, following cursors.
func querySessionPages(ctx context.Context, svc NotionService, databaseID, sessionID string) ([]notionapi.Page, error) {
	var all []notionapi.Page
	var cursor notionapi.Cursor

	for {
		req := &notionapi.DatabaseQueryRequest{
			Filter: &notionapi.PropertyFilter{
				Property: PropSessionID,
				RichText: &notionapi.TextFilterCondition{Equals: sessionID},
			},
			PageSize: queryPageSize,
		}
		if cursor != "" {
			req.StartCursor = cursor
		}

		resp, err := svc.QueryDatabase(ctx, databaseID, req)
		if err != nil {
			return nil, fmt.Errorf("querySessionPages: %w", err)
		}
		all = append(all, resp.Results...)

		if !resp.HasMore {
			break
		}
		cursor = resp.NextCursor
	}
	return all, nil
}
