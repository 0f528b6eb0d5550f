package sqlite

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dvloznov/personal-finance/internal/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const templateOrder = "sort_order ASC, created_at ASC, template_name ASC"

// findTemplate loads a template owned by userID. A missing row and a row
// owned by someone else produce the same error.
func findTemplate(tx *gorm.DB, userID, id string) (*templateRow, error) {
	var row templateRow
	err := tx.Where("id = ? AND user_id = ?", id, userID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &domain.NotFoundError{Entity: "template"}
	}
	if err != nil {
		return nil, fmt.Errorf("findTemplate: querying: %w", err)
	}
	return &row, nil
}

func templateNameTaken(tx *gorm.DB, userID, name, exceptID string) (bool, error) {
	q := tx.Model(&templateRow{}).Where("user_id = ? AND template_name = ?", userID, name)
	if exceptID != "" {
		q = q.Where("id <> ?", exceptID)
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return false, fmt.Errorf("templateNameTaken: counting: %w", err)
	}
	return n > 0, nil
}

func checkTemplateCore(name, txType, category string) error {
	switch {
	case name == "":
		return &domain.SchemaError{Reason: "template name is required"}
	case txType == "":
		return &domain.SchemaError{Reason: "transaction type is required"}
	case category == "":
		return &domain.SchemaError{Reason: "category is required"}
	}
	return nil
}

func insertTemplate(tx *gorm.DB, userID string, in domain.NewTemplate) (*templateRow, error) {
	name := strings.TrimSpace(in.Name)
	txType := strings.TrimSpace(in.TransactionType)
	category := strings.TrimSpace(in.Category)
	if err := checkTemplateCore(name, txType, category); err != nil {
		return nil, err
	}
	if err := in.FieldsSchema.Check(); err != nil {
		return nil, err
	}

	taken, err := templateNameTaken(tx, userID, name, "")
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, &domain.DuplicateTemplateError{Name: name}
	}

	schema, err := encodeSchema(in.FieldsSchema)
	if err != nil {
		return nil, err
	}

	row := &templateRow{
		ID:                   uuid.NewString(),
		UserID:               userID,
		TemplateName:         name,
		Icon:                 in.Icon,
		TransactionType:      txType,
		Category:             category,
		DefaultPaymentMethod: in.DefaultPaymentMethod,
		FieldsSchema:         schema,
		IsActive:             true,
		SortOrder:            in.SortOrder,
	}
	if row.Icon == "" {
		row.Icon = domain.DefaultIcon
	}
	if row.DefaultPaymentMethod == "" {
		row.DefaultPaymentMethod = domain.DefaultPaymentMethod
	}
	if in.DefaultAmount != nil {
		row.DefaultAmount = *in.DefaultAmount
	}

	if err := tx.Create(row).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, &domain.DuplicateTemplateError{Name: name}
		}
		return nil, fmt.Errorf("insertTemplate: inserting row: %w", err)
	}
	return row, nil
}

func queryTemplates(tx *gorm.DB, userID string, activeOnly bool) ([]*domain.Template, error) {
	q := tx.Where("user_id = ?", userID)
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}

	var rows []templateRow
	if err := q.Order(templateOrder).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("queryTemplates: querying: %w", err)
	}

	out := make([]*domain.Template, 0, len(rows))
	for i := range rows {
		t, err := rows[i].toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// setTemplateActive flips is_active. It reports whether a write happened.
func setTemplateActive(tx *gorm.DB, userID, id string, active bool) (bool, error) {
	row, err := findTemplate(tx, userID, id)
	if err != nil {
		return false, err
	}
	if row.IsActive == active {
		return false, nil
	}
	err = tx.Model(&templateRow{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("is_active", active).Error
	if err != nil {
		return false, fmt.Errorf("setTemplateActive: updating: %w", err)
	}
	return true, nil
}

func deleteTemplate(tx *gorm.DB, userID, id string) error {
	res := tx.Where("id = ? AND user_id = ?", id, userID).Delete(&templateRow{})
	if res.Error != nil {
		return fmt.Errorf("deleteTemplate: deleting: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return &domain.NotFoundError{Entity: "template"}
	}
	return nil
}

// templateUpdates turns a change set into column updates, validating each
// edited value.
func templateUpdates(tx *gorm.DB, userID string, row *templateRow, c domain.TemplateChanges) (map[string]any, error) {
	updates := map[string]any{}

	if c.Name != nil {
		name := strings.TrimSpace(*c.Name)
		if name == "" {
			return nil, &domain.SchemaError{Reason: "template name is required"}
		}
		if name != row.TemplateName {
			taken, err := templateNameTaken(tx, userID, name, row.ID)
			if err != nil {
				return nil, err
			}
			if taken {
				return nil, &domain.DuplicateTemplateError{Name: name}
			}
			updates["template_name"] = name
		}
	}
	if c.Icon != nil {
		icon := *c.Icon
		if icon == "" {
			icon = domain.DefaultIcon
		}
		updates["icon"] = icon
	}
	if c.TransactionType != nil {
		v := strings.TrimSpace(*c.TransactionType)
		if v == "" {
			return nil, &domain.SchemaError{Reason: "transaction type is required"}
		}
		updates["transaction_type"] = v
	}
	if c.Category != nil {
		v := strings.TrimSpace(*c.Category)
		if v == "" {
			return nil, &domain.SchemaError{Reason: "category is required"}
		}
		updates["category"] = v
	}
	if c.DefaultAmount != nil {
		updates["default_amount"] = *c.DefaultAmount
	}
	if c.DefaultPaymentMethod != nil {
		updates["default_payment_method"] = *c.DefaultPaymentMethod
	}
	if c.FieldsSchema != nil {
		if err := c.FieldsSchema.Check(); err != nil {
			return nil, err
		}
		schema, err := encodeSchema(*c.FieldsSchema)
		if err != nil {
			return nil, err
		}
		updates["fields_schema"] = schema
	}
	if c.SortOrder != nil {
		updates["sort_order"] = *c.SortOrder
	}
	return updates, nil
}

func updateTemplate(tx *gorm.DB, userID, id string, c domain.TemplateChanges) (map[string]any, error) {
	row, err := findTemplate(tx, userID, id)
	if err != nil {
		return nil, err
	}
	updates, err := templateUpdates(tx, userID, row, c)
	if err != nil || len(updates) == 0 {
		return updates, err
	}

	err = tx.Model(&templateRow{}).
		Where("id = ? AND user_id = ?", id, userID).
		Updates(updates).Error
	if err != nil {
		if isUniqueViolation(err) {
			return nil, &domain.DuplicateTemplateError{Name: fmt.Sprint(updates["template_name"])}
		}
		return nil, fmt.Errorf("updateTemplate: updating: %w", err)
	}
	return updates, nil
}
