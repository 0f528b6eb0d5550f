package notionsync

import (
	"context"

	"github.com/dvloznov/personal-finance/internal/domain"
	"github.com/jomei/notionapi"
)

// NotionService is the subset of the Notion API the sync needs.
type NotionService interface {
	CreatePage(ctx context.Context, databaseID string, properties notionapi.Properties) (*notionapi.Page, error)
	UpdatePage(ctx context.Context, pageID string, properties notionapi.Properties) (*notionapi.Page, error)
	QueryDatabase(ctx context.Context, databaseID string, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error)
	ArchivePage(ctx context.Context, pageID string) error
}

// TransactionSource lists one user's transactions.
type TransactionSource interface {
	List(ctx context.Context, userID string, f domain.TransactionFilter) ([]*domain.Transaction, error)
}
