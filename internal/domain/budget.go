package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Budget caps one user's spending in a category for one calendar month.
// A user has at most one budget per category and month.
type Budget struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user_id"`
	Category  string          `json:"category"`
	Amount    decimal.Decimal `json:"amount"`
	Year      int             `json:"year"`
	Month     time.Month      `json:"month"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// NewBudget is the input to setting a budget.
type NewBudget struct {
	Category string           `json:"category"`
	Amount   *decimal.Decimal `json:"amount"`
	Year     int              `json:"year"`
	Month    time.Month       `json:"month"`
}

// Validate reports missing or out-of-range fields.
func (b NewBudget) Validate() error {
	var missing []string
	if b.Category == "" {
		missing = append(missing, "category")
	}
	if b.Amount == nil {
		missing = append(missing, "amount")
	}
	if b.Year == 0 {
		missing = append(missing, "year")
	}
	if b.Month == 0 {
		missing = append(missing, "month")
	}
	switch {
	case len(missing) > 0:
		return &TransactionError{Missing: missing}
	case b.Month < time.January || b.Month > time.December:
		return &TransactionError{Reason: "month must be between 1 and 12"}
	case b.Year < 1 || b.Year > 9999:
		return &TransactionError{Reason: "year is out of range"}
	case b.Amount.IsNegative():
		return &TransactionError{Reason: "amount must not be negative"}
	}
	return nil
}
