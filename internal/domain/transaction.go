package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// DateLayout is the single accepted date format (ISO 8601 calendar date).
const DateLayout = "2006-01-02"

// Transaction is one financial event owned by exactly one user.
type Transaction struct {
	ID            string          `json:"id"`
	UserID        string          `json:"user_id"`
	TemplateID    string          `json:"template_id,omitempty"`
	Date          civil.Date      `json:"date"`
	Amount        decimal.Decimal `json:"amount"`
	Type          string          `json:"type"`
	Category      string          `json:"category"`
	Description   string          `json:"description"`
	PaymentMethod string          `json:"payment_method"`
	CustomFields  CustomFields    `json:"custom_fields"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// NewTransaction is the input for adding a transaction. When TemplateID is
// set, empty core fields are filled from the template defaults and
// CustomFields is validated against the template schema.
type NewTransaction struct {
	TemplateID    string
	Date          civil.Date
	Amount        *decimal.Decimal
	Type          string
	Category      string
	Description   string
	PaymentMethod string
	CustomFields  CustomFields
}

// AddResult is returned by a successful add.
type AddResult struct {
	ID string `json:"id"`

	// Unrecognized lists custom-field keys not declared by the template
	// schema. They were stored as supplied.
	Unrecognized []string `json:"unrecognized,omitempty"`
}

// TransactionChanges is a partial update. Nil pointers leave the column
// untouched. CustomFields is merged into the stored payload unless
// ReplaceCustomFields is set.
type TransactionChanges struct {
	Date                *civil.Date
	Amount              *decimal.Decimal
	Type                *string
	Category            *string
	Description         *string
	PaymentMethod       *string
	CustomFields        CustomFields
	ReplaceCustomFields bool
}

// IsEmpty reports whether the change set carries no edits.
func (c TransactionChanges) IsEmpty() bool {
	return c.Date == nil && c.Amount == nil && c.Type == nil && c.Category == nil &&
		c.Description == nil && c.PaymentMethod == nil && c.CustomFields == nil && !c.ReplaceCustomFields
}

// TransactionFilter narrows a listing. Zero values mean "no constraint".
// All set dimensions are ANDed; the owning user is not part of the filter.
type TransactionFilter struct {
	From                civil.Date
	To                  civil.Date
	Categories          []string
	Types               []string
	PaymentMethods      []string
	DescriptionContains string
	MinAmount           *decimal.Decimal
	MaxAmount           *decimal.Decimal

	// CustomFieldEquals matches string-valued custom fields exactly.
	CustomFieldEquals map[string]string

	Limit  int
	Offset int
}

// Transaction types known to the application. The store accepts any
// non-empty type; these drive the dashboard summary.
const (
	TypeIncome     = "Income"
	TypeExpense    = "Expense"
	TypeInvestment = "Investment"
	TypeTransfer   = "Transfer"
	TypeTax        = "Tax"
)

var coreKeys = map[string]bool{
	"id":             true,
	"user_id":        true,
	"template_id":    true,
	"date":           true,
	"amount":         true,
	"type":           true,
	"category":       true,
	"description":    true,
	"payment_method": true,
	"custom_fields":  true,
}

// ParseTransactionInput splits a raw key/value object into core fields and a
// custom-fields payload. Every key that is not a core field is captured
// verbatim into CustomFields; a nested "custom_fields" object is merged in
// as well. A "user_id" key is ignored: ownership comes from the caller.
func ParseTransactionInput(raw map[string]any) (NewTransaction, error) {
	var in NewTransaction

	for k, v := range raw {
		if coreKeys[k] {
			continue
		}
		if in.CustomFields == nil {
			in.CustomFields = CustomFields{}
		}
		in.CustomFields[k] = v
	}
	if nested, ok := raw["custom_fields"]; ok && nested != nil {
		obj, ok := nested.(map[string]any)
		if !ok {
			return in, &TransactionError{Reason: "custom_fields must be an object"}
		}
		if in.CustomFields == nil {
			in.CustomFields = CustomFields{}
		}
		for k, v := range obj {
			in.CustomFields[k] = v
		}
	}

	var err error
	if in.TemplateID, err = stringField(raw, "template_id"); err != nil {
		return in, err
	}
	if in.Type, err = stringField(raw, "type"); err != nil {
		return in, err
	}
	if in.Category, err = stringField(raw, "category"); err != nil {
		return in, err
	}
	if in.Description, err = stringField(raw, "description"); err != nil {
		return in, err
	}
	if in.PaymentMethod, err = stringField(raw, "payment_method"); err != nil {
		return in, err
	}

	if v, ok := raw["date"]; ok && v != nil {
		s, ok := v.(string)
		if !ok {
			return in, &TransactionError{Reason: "date must be a YYYY-MM-DD string"}
		}
		d, err := ParseDate(s)
		if err != nil {
			return in, &TransactionError{Reason: err.Error()}
		}
		in.Date = d
	}

	if v, ok := raw["amount"]; ok && v != nil {
		amt, ok := ParseDecimal(v)
		if !ok {
			return in, &TransactionError{Reason: fmt.Sprintf("amount %v is not a decimal number", v)}
		}
		in.Amount = &amt
	}

	return in, nil
}

func stringField(raw map[string]any, key string) (string, error) {
	v, ok := raw[key]
	if !ok || v == nil {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", &TransactionError{Reason: key + " must be a string"}
	}
	return strings.TrimSpace(s), nil
}

// ParseDate parses a strict YYYY-MM-DD calendar date.
func ParseDate(s string) (civil.Date, error) {
	s = strings.TrimSpace(s)
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return civil.Date{}, fmt.Errorf("date %q is not in YYYY-MM-DD format", s)
	}
	return civil.DateOf(t), nil
}

// IsZeroDate reports whether d is the unset civil date.
func IsZeroDate(d civil.Date) bool {
	return d == (civil.Date{})
}

// ParseDecimal converts a caller-supplied value to a decimal. Strings are
// parsed as typed; JSON numbers and Go numeric kinds are accepted as is.
func ParseDecimal(v any) (decimal.Decimal, bool) {
	switch n := v.(type) {
	case decimal.Decimal:
		return n, true
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(n))
		if err != nil {
			return decimal.Decimal{}, false
		}
		return d, true
	case json.Number:
		d, err := decimal.NewFromString(n.String())
		if err != nil {
			return decimal.Decimal{}, false
		}
		return d, true
	case float64:
		return decimal.NewFromFloat(n), true
	case float32:
		return decimal.NewFromFloat32(n), true
	case int:
		return decimal.NewFromInt(int64(n)), true
	case int64:
		return decimal.NewFromInt(n), true
	case int32:
		return decimal.NewFromInt32(n), true
	}
	return decimal.Decimal{}, false
}
