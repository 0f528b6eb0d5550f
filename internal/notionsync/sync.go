// Package notionsync mirrors one user's transactions into a Notion database.
package notionsync

import (
	"context"
	"fmt"

	"github.com/dvloznov/personal-finance/internal/domain"
	"github.com/dvloznov/personal-finance/internal/logger"
	"github.com/jomei/notionapi"
)

const (
	// BatchSize is the number of transactions logged as one batch.
	BatchSize = 100

	queryPageSize = 100
)

// Stats counts what a sync did, or would do in a dry run.
type Stats struct {
	Created   int `json:"created"`
	Updated   int `json:"updated"`
	Archived  int `json:"archived"`
	Unchanged int `json:"unchanged"`
	Failed    int `json:"failed"`
}

func (s Stats) String() string {
	return fmt.Sprintf("created=%d updated=%d archived=%d unchanged=%d failed=%d",
		s.Created, s.Updated, s.Archived, s.Unchanged, s.Failed)
}

// SyncTransactions mirrors userID's transactions matching filter into the
// database notionDBID. Pages are keyed by the Transaction ID property:
// missing pages are created, pages older than their transaction are
// updated, and pages of this user whose transaction no longer exists are
// archived. Pages carrying another user id are never touched. Individual
// page failures are logged and counted; the sync carries on.
func SyncTransactions(ctx context.Context, store TransactionSource, notionClient NotionService, notionDBID, userID string, filter domain.TransactionFilter, dryRun bool) (Stats, error) {
	var stats Stats
	if err := domain.RequireUser(userID); err != nil {
		return stats, err
	}
	log := logger.FromContext(ctx).With().Str("user_id", userID).Bool("dry_run", dryRun).Logger()

	log.Info().Msg("Starting transaction sync to Notion")

	transactions, err := store.List(ctx, userID, filter)
	if err != nil {
		return stats, fmt.Errorf("failed to list transactions: %w", err)
	}
	log.Info().Int("transaction_count", len(transactions)).Msg("Retrieved transactions")

	notionPages, err := queryAllNotionPages(ctx, notionClient, notionDBID)
	if err != nil {
		return stats, fmt.Errorf("failed to query Notion pages: %w", err)
	}

	valid := make(map[string]bool, len(transactions))
	for _, tx := range transactions {
		valid[tx.ID] = true
	}

	existing := make(map[string]notionapi.Page)
	for _, page := range notionPages {
		if extractUserID(page) != userID {
			continue
		}
		txID := extractTransactionID(page)
		if txID != "" && valid[txID] {
			if _, dup := existing[txID]; !dup {
				existing[txID] = page
				continue
			}
		}
		// Stale, unkeyed or duplicate page of this user.
		archivePage(ctx, notionClient, page, txID, dryRun, &stats)
	}

	for i := 0; i < len(transactions); i += BatchSize {
		end := i + BatchSize
		if end > len(transactions) {
			end = len(transactions)
		}
		log.Debug().Int("batch_start", i).Int("batch_end", end).Msg("Processing batch")

		for _, tx := range transactions[i:end] {
			page, found := existing[tx.ID]
			switch {
			case found && upToDate(page, tx):
				stats.Unchanged++
			case found:
				updatePage(ctx, notionClient, page, tx, dryRun, &stats)
			default:
				createPage(ctx, notionClient, notionDBID, tx, dryRun, &stats)
			}
		}
	}

	log.Info().
		Int("created", stats.Created).
		Int("updated", stats.Updated).
		Int("archived", stats.Archived).
		Int("unchanged", stats.Unchanged).
		Int("failed", stats.Failed).
		Msg("Transaction sync completed")

	return stats, nil
}

func archivePage(ctx context.Context, client NotionService, page notionapi.Page, txID string, dryRun bool, stats *Stats) {
	log := logger.FromContext(ctx).With().Str("transaction_id", txID).Str("page_id", string(page.ID)).Logger()
	if dryRun {
		log.Info().Msg("[DRY RUN] Would archive stale Notion page")
		stats.Archived++
		return
	}
	if err := client.ArchivePage(ctx, string(page.ID)); err != nil {
		log.Warn().Err(err).Msg("Failed to archive stale Notion page")
		stats.Failed++
		return
	}
	log.Info().Msg("Archived stale Notion page")
	stats.Archived++
}

func updatePage(ctx context.Context, client NotionService, page notionapi.Page, tx *domain.Transaction, dryRun bool, stats *Stats) {
	log := logger.FromContext(ctx).With().Str("transaction_id", tx.ID).Str("page_id", string(page.ID)).Logger()
	if dryRun {
		log.Info().Msg("[DRY RUN] Would update Notion page")
		stats.Updated++
		return
	}
	if _, err := client.UpdatePage(ctx, string(page.ID), TransactionToNotionProperties(tx)); err != nil {
		log.Warn().Err(err).Msg("Failed to update Notion page")
		stats.Failed++
		return
	}
	log.Info().Msg("Updated Notion page")
	stats.Updated++
}

func createPage(ctx context.Context, client NotionService, dbID string, tx *domain.Transaction, dryRun bool, stats *Stats) {
	log := logger.FromContext(ctx).With().Str("transaction_id", tx.ID).Logger()
	if dryRun {
		log.Info().Msg("[DRY RUN] Would create Notion page")
		stats.Created++
		return
	}
	page, err := client.CreatePage(ctx, dbID, TransactionToNotionProperties(tx))
	if err != nil {
		log.Warn().Err(err).Msg("Failed to create Notion page")
		stats.Failed++
		return
	}
	log.Info().Str("page_id", string(page.ID)).Msg("Created Notion page")
	stats.Created++
}

// queryAllNotionPages follows the cursor until every page is read.
func queryAllNotionPages(ctx context.Context, notionClient NotionService, databaseID string) ([]notionapi.Page, error) {
	var allPages []notionapi.Page
	var cursor notionapi.Cursor

	for {
		req := &notionapi.DatabaseQueryRequest{PageSize: queryPageSize}
		if cursor != "" {
			req.StartCursor = cursor
		}

		resp, err := notionClient.QueryDatabase(ctx, databaseID, req)
		if err != nil {
			return nil, fmt.Errorf("queryAllNotionPages: %w", err)
		}
		allPages = append(allPages, resp.Results...)

		if !resp.HasMore {
			break
		}
		cursor = resp.NextCursor
	}

	return allPages, nil
}
