package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Template is a user-defined transaction shape with defaults and an optional
// custom-field schema. Templates are soft-deleted by deactivation.
type Template struct {
	ID                   string          `json:"id"`
	UserID               string          `json:"user_id"`
	Name                 string          `json:"template_name"`
	Icon                 string          `json:"icon"`
	TransactionType      string          `json:"transaction_type"`
	Category             string          `json:"category"`
	DefaultAmount        decimal.Decimal `json:"default_amount"`
	DefaultPaymentMethod string          `json:"default_payment_method"`
	FieldsSchema         FieldSchema     `json:"fields_schema"`
	IsActive             bool            `json:"is_active"`
	SortOrder            int             `json:"sort_order"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
}

// Default values applied when a new template omits them.
const (
	DefaultIcon          = "💰"
	DefaultPaymentMethod = "Bank Transfer"
)

// NewTemplate is the input for creating a template.
type NewTemplate struct {
	Name                 string           `json:"template_name"`
	Icon                 string           `json:"icon,omitempty"`
	TransactionType      string           `json:"transaction_type"`
	Category             string           `json:"category"`
	DefaultAmount        *decimal.Decimal `json:"default_amount,omitempty"`
	DefaultPaymentMethod string           `json:"default_payment_method,omitempty"`
	FieldsSchema         FieldSchema      `json:"fields_schema,omitempty"`
	SortOrder            int              `json:"sort_order,omitempty"`
}

// TemplateChanges is a partial edit of a template. Nil fields are untouched.
type TemplateChanges struct {
	Name                 *string          `json:"template_name,omitempty"`
	Icon                 *string          `json:"icon,omitempty"`
	TransactionType      *string          `json:"transaction_type,omitempty"`
	Category             *string          `json:"category,omitempty"`
	DefaultAmount        *decimal.Decimal `json:"default_amount,omitempty"`
	DefaultPaymentMethod *string          `json:"default_payment_method,omitempty"`
	FieldsSchema         *FieldSchema     `json:"fields_schema,omitempty"`
	SortOrder            *int             `json:"sort_order,omitempty"`
}

// IsEmpty reports whether the change set carries no edits.
func (c TemplateChanges) IsEmpty() bool {
	return c.Name == nil && c.Icon == nil && c.TransactionType == nil && c.Category == nil &&
		c.DefaultAmount == nil && c.DefaultPaymentMethod == nil && c.FieldsSchema == nil && c.SortOrder == nil
}
