// Package bigquery exports a user's transactions to BigQuery for analytics.
package bigquery

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/dvloznov/personal-finance/internal/domain"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
)

const transactionsTable = "transactions"

// TransactionExporter streams transactions into <project>.<dataset>.transactions.
type TransactionExporter struct {
	client    *bigquery.Client
	projectID string
	datasetID string
	now       func() time.Time
}

// NewTransactionExporter creates an exporter with its own client.
func NewTransactionExporter(ctx context.Context, projectID, datasetID string) (*TransactionExporter, error) {
	if projectID == "" {
		return nil, fmt.Errorf("NewTransactionExporter: project id is required")
	}
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("NewTransactionExporter: creating client: %w", err)
	}
	return NewTransactionExporterWithClient(client, projectID, datasetID), nil
}

// NewTransactionExporterWithClient creates an exporter on a shared client.
func NewTransactionExporterWithClient(client *bigquery.Client, projectID, datasetID string) *TransactionExporter {
	return &TransactionExporter{
		client:    client,
		projectID: projectID,
		datasetID: datasetID,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Close closes the BigQuery client connection.
func (e *TransactionExporter) Close() error {
	if e.client != nil {
		return e.client.Close()
	}
	return nil
}

func (e *TransactionExporter) table() *bigquery.Table {
	return e.client.DatasetInProject(e.projectID, e.datasetID).Table(transactionsTable)
}

// EnsureTable creates the transactions table, partitioned by transaction
// date, when it does not exist yet.
func (e *TransactionExporter) EnsureTable(ctx context.Context) error {
	t := e.table()
	if _, err := t.Metadata(ctx); err == nil {
		return nil
	} else if !isNotFound(err) {
		return fmt.Errorf("EnsureTable: reading metadata: %w", err)
	}

	schema, err := bigquery.InferSchema(TransactionRow{})
	if err != nil {
		return fmt.Errorf("EnsureTable: inferring schema: %w", err)
	}
	err = t.Create(ctx, &bigquery.TableMetadata{
		Schema:           schema,
		TimePartitioning: &bigquery.TimePartitioning{Field: "transaction_date"},
		Clustering:       &bigquery.Clustering{Fields: []string{"user_id"}},
	})
	if err != nil {
		return fmt.Errorf("EnsureTable: creating table: %w", err)
	}
	return nil
}

func isNotFound(err error) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == http.StatusNotFound
}

// Export inserts the transactions of userID. Every row must belong to that
// user; a batch containing any other user's row is refused as a whole.
// Rows carry the transaction id as insert id so a retried export does not
// duplicate them.
func (e *TransactionExporter) Export(ctx context.Context, userID string, txs []*domain.Transaction) (int, error) {
	savers, err := e.buildSavers(userID, txs)
	if err != nil || len(savers) == 0 {
		return 0, err
	}

	if err := e.table().Inserter().Put(ctx, savers); err != nil {
		return 0, fmt.Errorf("Export: inserting rows: %w", err)
	}
	return len(savers), nil
}

func (e *TransactionExporter) buildSavers(userID string, txs []*domain.Transaction) ([]*bigquery.StructSaver, error) {
	if err := domain.RequireUser(userID); err != nil {
		return nil, err
	}

	schema, err := bigquery.InferSchema(TransactionRow{})
	if err != nil {
		return nil, fmt.Errorf("Export: inferring schema: %w", err)
	}

	exportedAt := e.now()
	savers := make([]*bigquery.StructSaver, 0, len(txs))
	for _, tx := range txs {
		if tx.UserID != userID {
			return nil, fmt.Errorf("Export: transaction %s is not owned by the exporting user", tx.ID)
		}
		row, err := NewTransactionRow(tx, exportedAt)
		if err != nil {
			return nil, fmt.Errorf("Export: %w", err)
		}
		savers = append(savers, &bigquery.StructSaver{
			Schema:   schema,
			InsertID: row.TransactionID,
			Struct:   row,
		})
	}
	return savers, nil
}

// MonthlyTotals reads per-month, per-type totals of the user's exported
// transactions.
func (e *TransactionExporter) MonthlyTotals(ctx context.Context, userID string) ([]MonthlyTotal, error) {
	if err := domain.RequireUser(userID); err != nil {
		return nil, err
	}

	q := e.client.Query(monthlyTotalsSQL(e.projectID, e.datasetID))
	q.Parameters = monthlyTotalsParams(userID)

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("MonthlyTotals: query read: %w", err)
	}

	var rows []MonthlyTotal
	for {
		var r MonthlyTotal
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("MonthlyTotals: iter next: %w", err)
		}
		rows = append(rows, r)
	}
	return rows, nil
}

// monthlyTotalsSQL only interpolates the table path; the user is always
// bound as @user_id.
func monthlyTotalsSQL(projectID, datasetID string) string {
	return fmt.Sprintf(`
		SELECT
		  DATE_TRUNC(transaction_date, MONTH) AS month,
		  type,
		  SUM(amount) AS total,
		  COUNT(DISTINCT transaction_id) AS tx_count
		FROM `+"`%s.%s.%s`"+`
		WHERE user_id = @user_id
		GROUP BY month, type
		ORDER BY month DESC, type
	`, projectID, datasetID, transactionsTable)
}

func monthlyTotalsParams(userID string) []bigquery.QueryParameter {
	return []bigquery.QueryParameter{{Name: "user_id", Value: userID}}
}
