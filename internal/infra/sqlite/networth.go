package sqlite

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dvloznov/personal-finance/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// NetWorthRepository stores a user's assets, liabilities and properties.
type NetWorthRepository struct {
	db    *gorm.DB
	audit domain.Auditor
}

// NewNetWorthRepository creates a net-worth repository.
func NewNetWorthRepository(db *gorm.DB, audit domain.Auditor) *NetWorthRepository {
	if audit == nil {
		audit = domain.NopAuditor{}
	}
	return &NetWorthRepository{db: db, audit: audit}
}

func (r *NetWorthRepository) record(ctx context.Context, userID, op, id string, changes map[string]any, err error) {
	r.audit.Record(ctx, domain.AuditEvent{
		UserID:    userID,
		Operation: op,
		Entity:    "net_worth_item",
		EntityID:  id,
		Outcome:   outcome(err),
		Changes:   changes,
		Err:       err,
		At:        time.Now().UTC(),
	})
}

// AddItem stores a new item and returns its id.
func (r *NetWorthRepository) AddItem(ctx context.Context, userID string, item domain.NetWorthItem) (string, error) {
	if err := domain.RequireUser(userID); err != nil {
		return "", err
	}

	name := strings.TrimSpace(item.Name)
	var err error
	switch {
	case !item.Kind.Valid():
		err = &domain.TransactionError{Reason: fmt.Sprintf("unknown item kind %q", item.Kind)}
	case name == "":
		err = &domain.TransactionError{Missing: []string{"name"}}
	}
	if err != nil {
		r.record(ctx, userID, "net_worth.add", "", nil, err)
		return "", err
	}

	row := &netWorthRow{
		ID:       uuid.NewString(),
		UserID:   userID,
		Kind:     string(item.Kind),
		Name:     name,
		Value:    item.Value,
		Owner:    item.Owner,
		ItemType: item.ItemType,
	}
	if row.Owner == "" {
		row.Owner = domain.DefaultOwner
	}
	if item.Kind == domain.KindRealEstate && item.PurchaseValue != nil {
		row.PurchaseValue = decimal.NewNullDecimal(*item.PurchaseValue)
	}

	err = inTx(ctx, r.db, "net_worth.add", func(tx *gorm.DB) error {
		if err := tx.Create(row).Error; err != nil {
			return fmt.Errorf("AddItem: inserting row: %w", err)
		}
		return nil
	})
	r.record(ctx, userID, "net_worth.add", row.ID, map[string]any{
		"kind":  row.Kind,
		"name":  row.Name,
		"value": row.Value.String(),
	}, err)
	if err != nil {
		return "", err
	}
	return row.ID, nil
}

// ListItems returns the user's items of one kind, or of every kind when
// kind is empty.
func (r *NetWorthRepository) ListItems(ctx context.Context, userID string, kind domain.ItemKind) ([]*domain.NetWorthItem, error) {
	if err := domain.RequireUser(userID); err != nil {
		return nil, err
	}
	var out []*domain.NetWorthItem
	err := inTx(ctx, r.db, "net_worth.list", func(tx *gorm.DB) error {
		q := tx.Where("user_id = ?", userID)
		if kind != "" {
			q = q.Where("kind = ?", string(kind))
		}
		var rows []netWorthRow
		if err := q.Order("kind ASC, name ASC").Find(&rows).Error; err != nil {
			return fmt.Errorf("ListItems: querying: %w", err)
		}
		out = make([]*domain.NetWorthItem, 0, len(rows))
		for i := range rows {
			out = append(out, rows[i].toDomain())
		}
		return nil
	})
	return out, err
}

// UpdateItemValue sets the current value of an item.
func (r *NetWorthRepository) UpdateItemValue(ctx context.Context, userID, id string, value decimal.Decimal) error {
	if err := domain.RequireUser(userID); err != nil {
		return err
	}
	err := inTx(ctx, r.db, "net_worth.update", func(tx *gorm.DB) error {
		var row netWorthRow
		err := tx.Where("id = ? AND user_id = ?", id, userID).First(&row).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &domain.NotFoundError{Entity: "net worth item"}
		}
		if err != nil {
			return fmt.Errorf("UpdateItemValue: querying: %w", err)
		}
		err = tx.Model(&netWorthRow{}).
			Where("id = ? AND user_id = ?", id, userID).
			Update("value", value).Error
		if err != nil {
			return fmt.Errorf("UpdateItemValue: updating: %w", err)
		}
		return nil
	})
	r.record(ctx, userID, "net_worth.update", id, map[string]any{"value": value.String()}, err)
	return err
}

// DeleteItem removes an item.
func (r *NetWorthRepository) DeleteItem(ctx context.Context, userID, id string) error {
	if err := domain.RequireUser(userID); err != nil {
		return err
	}
	err := inTx(ctx, r.db, "net_worth.delete", func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND user_id = ?", id, userID).Delete(&netWorthRow{})
		if res.Error != nil {
			return fmt.Errorf("DeleteItem: deleting: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return &domain.NotFoundError{Entity: "net worth item"}
		}
		return nil
	})
	r.record(ctx, userID, "net_worth.delete", id, nil, err)
	return err
}
