package bigquery

import (
	"fmt"
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/dvloznov/personal-finance/internal/domain"
)

// TransactionRow is one exported transaction in <dataset>.transactions.
type TransactionRow struct {
	TransactionID string `bigquery:"transaction_id"` // REQUIRED
	UserID        string `bigquery:"user_id"`        // REQUIRED

	TemplateID bigquery.NullString `bigquery:"template_id"` // NULLABLE

	TransactionDate civil.Date `bigquery:"transaction_date"` // REQUIRED, partition column
	Amount          *big.Rat   `bigquery:"amount"`           // REQUIRED NUMERIC

	Type          string              `bigquery:"type"`
	Category      string              `bigquery:"category"`
	Description   string              `bigquery:"description"`
	PaymentMethod bigquery.NullString `bigquery:"payment_method"`

	// CustomFields is the payload as a JSON object string.
	CustomFields string `bigquery:"custom_fields"`

	CreatedAt  time.Time `bigquery:"created_ts"`
	UpdatedAt  time.Time `bigquery:"updated_ts"`
	ExportedAt time.Time `bigquery:"exported_ts"`
}

// MonthlyTotal is an aggregate read back from the exported table.
type MonthlyTotal struct {
	Month civil.Date `bigquery:"month"`
	Type  string     `bigquery:"type"`
	Total *big.Rat   `bigquery:"total"`
	Count int64      `bigquery:"tx_count"`
}

// NewTransactionRow converts a stored transaction for export.
func NewTransactionRow(tx *domain.Transaction, exportedAt time.Time) (*TransactionRow, error) {
	if tx.ID == "" {
		return nil, fmt.Errorf("NewTransactionRow: transaction id is required")
	}
	row := &TransactionRow{
		TransactionID:   tx.ID,
		UserID:          tx.UserID,
		TransactionDate: tx.Date,
		Amount:          tx.Amount.Rat(),
		Type:            tx.Type,
		Category:        tx.Category,
		Description:     tx.Description,
		CustomFields:    tx.CustomFields.String(),
		CreatedAt:       tx.CreatedAt,
		UpdatedAt:       tx.UpdatedAt,
		ExportedAt:      exportedAt,
	}
	if tx.TemplateID != "" {
		row.TemplateID = bigquery.NullString{StringVal: tx.TemplateID, Valid: true}
	}
	if tx.PaymentMethod != "" {
		row.PaymentMethod = bigquery.NullString{StringVal: tx.PaymentMethod, Valid: true}
	}
	return row, nil
}
