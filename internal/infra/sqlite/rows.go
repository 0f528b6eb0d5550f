package sqlite

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dvloznov/personal-finance/internal/domain"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

const emptyObject = "{}"

type templateRow struct {
	ID                   string          `gorm:"column:id;primaryKey"`
	UserID               string          `gorm:"column:user_id"`
	TemplateName         string          `gorm:"column:template_name"`
	Icon                 string          `gorm:"column:icon"`
	TransactionType      string          `gorm:"column:transaction_type"`
	Category             string          `gorm:"column:category"`
	DefaultAmount        decimal.Decimal `gorm:"column:default_amount;type:text"`
	DefaultPaymentMethod string          `gorm:"column:default_payment_method"`
	FieldsSchema         datatypes.JSON  `gorm:"column:fields_schema"`
	IsActive             bool            `gorm:"column:is_active"`
	SortOrder            int             `gorm:"column:sort_order"`
	CreatedAt            time.Time       `gorm:"column:created_at"`
	UpdatedAt            time.Time       `gorm:"column:updated_at"`
}

func (templateRow) TableName() string { return "transaction_templates" }

type transactionRow struct {
	ID            string          `gorm:"column:id;primaryKey"`
	UserID        string          `gorm:"column:user_id"`
	TemplateID    *string         `gorm:"column:template_id"`
	Date          string          `gorm:"column:date"`
	Amount        decimal.Decimal `gorm:"column:amount;type:text"`
	Type          string          `gorm:"column:type"`
	Category      string          `gorm:"column:category"`
	Description   string          `gorm:"column:description"`
	PaymentMethod string          `gorm:"column:payment_method"`
	CustomFields  datatypes.JSON  `gorm:"column:custom_fields"`
	CreatedAt     time.Time       `gorm:"column:created_at"`
	UpdatedAt     time.Time       `gorm:"column:updated_at"`
}

func (transactionRow) TableName() string { return "transactions" }

type netWorthRow struct {
	ID            string              `gorm:"column:id;primaryKey"`
	UserID        string              `gorm:"column:user_id"`
	Kind          string              `gorm:"column:kind"`
	Name          string              `gorm:"column:name"`
	Value         decimal.Decimal     `gorm:"column:value;type:text"`
	PurchaseValue decimal.NullDecimal `gorm:"column:purchase_value;type:text"`
	Owner         string              `gorm:"column:owner"`
	ItemType      string              `gorm:"column:item_type"`
	CreatedAt     time.Time           `gorm:"column:created_at"`
	UpdatedAt     time.Time           `gorm:"column:updated_at"`
}

func (netWorthRow) TableName() string { return "net_worth_items" }

type budgetRow struct {
	ID        string          `gorm:"column:id;primaryKey"`
	UserID    string          `gorm:"column:user_id"`
	Category  string          `gorm:"column:category"`
	Amount    decimal.Decimal `gorm:"column:amount;type:text"`
	Year      int             `gorm:"column:year"`
	Month     int             `gorm:"column:month"`
	CreatedAt time.Time       `gorm:"column:created_at"`
	UpdatedAt time.Time       `gorm:"column:updated_at"`
}

func (budgetRow) TableName() string { return "budgets" }

func encodeSchema(s domain.FieldSchema) (datatypes.JSON, error) {
	if len(s) == 0 {
		return datatypes.JSON(emptyObject), nil
	}
	b, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encoding fields schema: %w", err)
	}
	return datatypes.JSON(b), nil
}

func encodeCustomFields(cf domain.CustomFields) (datatypes.JSON, error) {
	if len(cf) == 0 {
		return datatypes.JSON(emptyObject), nil
	}
	b, err := json.Marshal(cf)
	if err != nil {
		return nil, fmt.Errorf("encoding custom fields: %w", err)
	}
	return datatypes.JSON(b), nil
}

// decodeCustomFields keeps numbers as json.Number so decimal text survives
// the round trip unchanged.
func decodeCustomFields(raw datatypes.JSON) (domain.CustomFields, error) {
	cf := domain.CustomFields{}
	if len(raw) == 0 {
		return cf, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&cf); err != nil {
		return nil, fmt.Errorf("decoding custom fields: %w", err)
	}
	if cf == nil {
		cf = domain.CustomFields{}
	}
	return cf, nil
}

func (r *templateRow) toDomain() (*domain.Template, error) {
	var schema domain.FieldSchema
	if len(r.FieldsSchema) > 0 {
		if err := json.Unmarshal(r.FieldsSchema, &schema); err != nil {
			return nil, fmt.Errorf("decoding fields schema of template %s: %w", r.ID, err)
		}
	}
	return &domain.Template{
		ID:                   r.ID,
		UserID:               r.UserID,
		Name:                 r.TemplateName,
		Icon:                 r.Icon,
		TransactionType:      r.TransactionType,
		Category:             r.Category,
		DefaultAmount:        r.DefaultAmount,
		DefaultPaymentMethod: r.DefaultPaymentMethod,
		FieldsSchema:         schema,
		IsActive:             r.IsActive,
		SortOrder:            r.SortOrder,
		CreatedAt:            r.CreatedAt,
		UpdatedAt:            r.UpdatedAt,
	}, nil
}

func (r *transactionRow) toDomain() (*domain.Transaction, error) {
	date, err := domain.ParseDate(r.Date)
	if err != nil {
		return nil, fmt.Errorf("transaction %s: %w", r.ID, err)
	}
	cf, err := decodeCustomFields(r.CustomFields)
	if err != nil {
		return nil, fmt.Errorf("transaction %s: %w", r.ID, err)
	}
	tx := &domain.Transaction{
		ID:            r.ID,
		UserID:        r.UserID,
		Date:          date,
		Amount:        r.Amount,
		Type:          r.Type,
		Category:      r.Category,
		Description:   r.Description,
		PaymentMethod: r.PaymentMethod,
		CustomFields:  cf,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
	if r.TemplateID != nil {
		tx.TemplateID = *r.TemplateID
	}
	return tx, nil
}

func (r *netWorthRow) toDomain() *domain.NetWorthItem {
	item := &domain.NetWorthItem{
		ID:        r.ID,
		UserID:    r.UserID,
		Kind:      domain.ItemKind(r.Kind),
		Name:      r.Name,
		Value:     r.Value,
		Owner:     r.Owner,
		ItemType:  r.ItemType,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
	if r.PurchaseValue.Valid {
		pv := r.PurchaseValue.Decimal
		item.PurchaseValue = &pv
	}
	return item
}

func (r *budgetRow) toDomain() *domain.Budget {
	return &domain.Budget{
		ID:        r.ID,
		UserID:    r.UserID,
		Category:  r.Category,
		Amount:    r.Amount,
		Year:      r.Year,
		Month:     time.Month(r.Month),
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}
