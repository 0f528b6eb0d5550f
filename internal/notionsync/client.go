package notionsync

import (
	"context"
	"fmt"
	"time"

	"github.com/jomei/notionapi"
)

const defaultRequestTimeout = 30 * time.Second

// NotionClient implements NotionService with the Notion SDK. Each request
// gets its own deadline so one stalled call cannot hold a whole sync.
type NotionClient struct {
	client  *notionapi.Client
	timeout time.Duration
}

// NewNotionClient creates a NotionClient authenticated with an integration token.
func NewNotionClient(token string) *NotionClient {
	return &NotionClient{
		client:  notionapi.NewClient(notionapi.Token(token)),
		timeout: defaultRequestTimeout,
	}
}

func (n *NotionClient) call(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()
	if err := fn(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// CreatePage adds a row to the database.
func (n *NotionClient) CreatePage(ctx context.Context, databaseID string, properties notionapi.Properties) (*notionapi.Page, error) {
	var page *notionapi.Page
	err := n.call(ctx, "CreatePage", func(ctx context.Context) error {
		var err error
		page, err = n.client.Page.Create(ctx, &notionapi.PageCreateRequest{
			Parent: notionapi.Parent{
				Type:       notionapi.ParentTypeDatabaseID,
				DatabaseID: notionapi.DatabaseID(databaseID),
			},
			Properties: properties,
		})
		return err
	})
	return page, err
}

// UpdatePage overwrites the given properties of an existing row.
func (n *NotionClient) UpdatePage(ctx context.Context, pageID string, properties notionapi.Properties) (*notionapi.Page, error) {
	var page *notionapi.Page
	err := n.call(ctx, "UpdatePage", func(ctx context.Context) error {
		var err error
		page, err = n.client.Page.Update(ctx, notionapi.PageID(pageID), &notionapi.PageUpdateRequest{
			Properties: properties,
		})
		return err
	})
	return page, err
}

// QueryDatabase returns one page of database rows.
func (n *NotionClient) QueryDatabase(ctx context.Context, databaseID string, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
	var resp *notionapi.DatabaseQueryResponse
	err := n.call(ctx, "QueryDatabase", func(ctx context.Context) error {
		var err error
		resp, err = n.client.Database.Query(ctx, notionapi.DatabaseID(databaseID), req)
		return err
	})
	return resp, err
}

// ArchivePage moves a page to the trash. Notion has no hard delete.
func (n *NotionClient) ArchivePage(ctx context.Context, pageID string) error {
	return n.call(ctx, "ArchivePage", func(ctx context.Context) error {
		_, err := n.client.Page.Update(ctx, notionapi.PageID(pageID), &notionapi.PageUpdateRequest{
			Archived: true,
		})
		return err
	})
}

var _ NotionService = (*NotionClient)(nil)
