package sqlite

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/dvloznov/personal-finance/internal/domain"
	"github.com/dvloznov/personal-finance/internal/fieldschema"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const transactionOrder = "date DESC, created_at DESC, id DESC"

func findTransaction(tx *gorm.DB, userID, id string) (*transactionRow, error) {
	var row transactionRow
	err := tx.Where("id = ? AND user_id = ?", id, userID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &domain.NotFoundError{Entity: "transaction"}
	}
	if err != nil {
		return nil, fmt.Errorf("findTransaction: querying: %w", err)
	}
	return &row, nil
}

// applyTemplate fills empty core fields from the template defaults and
// validates the custom fields against its schema.
func applyTemplate(tx *gorm.DB, userID string, in *domain.NewTransaction) ([]string, error) {
	row, err := findTemplate(tx, userID, in.TemplateID)
	if err != nil {
		return nil, err
	}

	if in.Type == "" {
		in.Type = row.TransactionType
	}
	if in.Category == "" {
		in.Category = row.Category
	}
	if in.PaymentMethod == "" {
		in.PaymentMethod = row.DefaultPaymentMethod
	}
	if in.Amount == nil {
		amount := row.DefaultAmount
		in.Amount = &amount
	}

	var schema domain.FieldSchema
	if len(row.FieldsSchema) > 0 {
		if err := json.Unmarshal(row.FieldsSchema, &schema); err != nil {
			return nil, fmt.Errorf("applyTemplate: decoding schema: %w", err)
		}
	}
	res := fieldschema.Validate(schema, in.CustomFields)
	if err := res.Err(); err != nil {
		return nil, err
	}
	return res.Unrecognized, nil
}

func missingCoreFields(in domain.NewTransaction) []string {
	var missing []string
	if domain.IsZeroDate(in.Date) {
		missing = append(missing, "date")
	}
	if in.Amount == nil {
		missing = append(missing, "amount")
	}
	if strings.TrimSpace(in.Type) == "" {
		missing = append(missing, "type")
	}
	if strings.TrimSpace(in.Category) == "" {
		missing = append(missing, "category")
	}
	return missing
}

func insertTransaction(tx *gorm.DB, userID string, in domain.NewTransaction) (*transactionRow, []string, error) {
	var unrecognized []string
	if in.TemplateID != "" {
		var err error
		if unrecognized, err = applyTemplate(tx, userID, &in); err != nil {
			return nil, nil, err
		}
	}

	if missing := missingCoreFields(in); len(missing) > 0 {
		return nil, nil, &domain.TransactionError{Missing: missing}
	}
	if !in.Date.IsValid() {
		return nil, nil, &domain.TransactionError{Reason: fmt.Sprintf("date %s is not a calendar date", in.Date)}
	}

	cf, err := encodeCustomFields(in.CustomFields)
	if err != nil {
		return nil, nil, &domain.TransactionError{Reason: err.Error()}
	}

	row := &transactionRow{
		ID:            uuid.NewString(),
		UserID:        userID,
		Date:          in.Date.String(),
		Amount:        *in.Amount,
		Type:          strings.TrimSpace(in.Type),
		Category:      strings.TrimSpace(in.Category),
		Description:   in.Description,
		PaymentMethod: in.PaymentMethod,
		CustomFields:  cf,
	}
	if in.TemplateID != "" {
		templateID := in.TemplateID
		row.TemplateID = &templateID
	}

	if err := tx.Create(row).Error; err != nil {
		return nil, nil, fmt.Errorf("insertTransaction: inserting row: %w", err)
	}
	return row, unrecognized, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func jsonPath(key string) string {
	return "$." + strconv.Quote(key)
}

// scopeTransactions applies the owner predicate and every set filter
// dimension. The owner predicate is unconditional.
func scopeTransactions(tx *gorm.DB, userID string, f domain.TransactionFilter) *gorm.DB {
	q := tx.Model(&transactionRow{}).Where("user_id = ?", userID)

	if !domain.IsZeroDate(f.From) {
		q = q.Where("date >= ?", f.From.String())
	}
	if !domain.IsZeroDate(f.To) {
		q = q.Where("date <= ?", f.To.String())
	}
	if len(f.Categories) > 0 {
		q = q.Where("category IN ?", f.Categories)
	}
	if len(f.Types) > 0 {
		q = q.Where("type IN ?", f.Types)
	}
	if len(f.PaymentMethods) > 0 {
		q = q.Where("payment_method IN ?", f.PaymentMethods)
	}
	if s := strings.TrimSpace(f.DescriptionContains); s != "" {
		q = q.Where(`description LIKE ? ESCAPE '\'`, "%"+escapeLike(s)+"%")
	}
	// Amounts are stored as decimal text; compare them as numbers.
	if f.MinAmount != nil {
		q = q.Where("CAST(amount AS NUMERIC) >= CAST(? AS NUMERIC)", f.MinAmount.String())
	}
	if f.MaxAmount != nil {
		q = q.Where("CAST(amount AS NUMERIC) <= CAST(? AS NUMERIC)", f.MaxAmount.String())
	}
	if len(f.CustomFieldEquals) > 0 {
		keys := make([]string, 0, len(f.CustomFieldEquals))
		for k := range f.CustomFieldEquals {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			q = q.Where("json_extract(custom_fields, ?) = ?", jsonPath(k), f.CustomFieldEquals[k])
		}
	}
	return q
}

func queryTransactions(tx *gorm.DB, userID string, f domain.TransactionFilter) ([]*domain.Transaction, error) {
	q := scopeTransactions(tx, userID, f).Order(transactionOrder)
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	if f.Offset > 0 {
		q = q.Offset(f.Offset)
	}

	var rows []transactionRow
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("queryTransactions: querying: %w", err)
	}

	out := make([]*domain.Transaction, 0, len(rows))
	for i := range rows {
		t, err := rows[i].toDomain()
		if err != nil {
			return nil, fmt.Errorf("queryTransactions: %w", err)
		}
		out = append(out, t)
	}
	return out, nil
}

func transactionUpdates(row *transactionRow, c domain.TransactionChanges) (map[string]any, error) {
	updates := map[string]any{}

	if c.Date != nil {
		if domain.IsZeroDate(*c.Date) || !c.Date.IsValid() {
			return nil, &domain.TransactionError{Reason: "date must be a valid YYYY-MM-DD date"}
		}
		updates["date"] = c.Date.String()
	}
	if c.Amount != nil {
		updates["amount"] = *c.Amount
	}
	if c.Type != nil {
		v := strings.TrimSpace(*c.Type)
		if v == "" {
			return nil, &domain.TransactionError{Missing: []string{"type"}}
		}
		updates["type"] = v
	}
	if c.Category != nil {
		v := strings.TrimSpace(*c.Category)
		if v == "" {
			return nil, &domain.TransactionError{Missing: []string{"category"}}
		}
		updates["category"] = v
	}
	if c.Description != nil {
		updates["description"] = *c.Description
	}
	if c.PaymentMethod != nil {
		updates["payment_method"] = *c.PaymentMethod
	}

	if c.ReplaceCustomFields || c.CustomFields != nil {
		var next domain.CustomFields
		if c.ReplaceCustomFields {
			next = domain.CustomFields{}.Merge(c.CustomFields)
		} else {
			current, err := decodeCustomFields(row.CustomFields)
			if err != nil {
				return nil, err
			}
			next = current.Merge(c.CustomFields)
		}
		encoded, err := encodeCustomFields(next)
		if err != nil {
			return nil, &domain.TransactionError{Reason: err.Error()}
		}
		updates["custom_fields"] = encoded
	}
	return updates, nil
}

func updateTransaction(tx *gorm.DB, userID, id string, c domain.TransactionChanges) (map[string]any, error) {
	row, err := findTransaction(tx, userID, id)
	if err != nil {
		return nil, err
	}
	updates, err := transactionUpdates(row, c)
	if err != nil || len(updates) == 0 {
		return updates, err
	}

	res := tx.Model(&transactionRow{}).
		Where("id = ? AND user_id = ?", id, userID).
		Updates(updates)
	if res.Error != nil {
		return nil, fmt.Errorf("updateTransaction: updating: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, &domain.NotFoundError{Entity: "transaction"}
	}
	return updates, nil
}

func deleteTransaction(tx *gorm.DB, userID, id string) error {
	res := tx.Where("id = ? AND user_id = ?", id, userID).Delete(&transactionRow{})
	if res.Error != nil {
		return fmt.Errorf("deleteTransaction: deleting: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return &domain.NotFoundError{Entity: "transaction"}
	}
	return nil
}

func distinctCategories(tx *gorm.DB, userID string) ([]string, error) {
	var cats []string
	err := tx.Model(&transactionRow{}).
		Where("user_id = ?", userID).
		Distinct().
		Order("category ASC").
		Pluck("category", &cats).Error
	if err != nil {
		return nil, fmt.Errorf("distinctCategories: querying: %w", err)
	}
	return cats, nil
}
