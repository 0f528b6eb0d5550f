package sqlite

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dvloznov/personal-finance/internal/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BudgetRepository stores monthly category budgets.
type BudgetRepository struct {
	db    *gorm.DB
	audit domain.Auditor
}

// NewBudgetRepository creates a budget repository.
func NewBudgetRepository(db *gorm.DB, audit domain.Auditor) *BudgetRepository {
	if audit == nil {
		audit = domain.NopAuditor{}
	}
	return &BudgetRepository{db: db, audit: audit}
}

func (r *BudgetRepository) record(ctx context.Context, userID, op, id string, changes map[string]any, err error) {
	r.audit.Record(ctx, domain.AuditEvent{
		UserID:    userID,
		Operation: op,
		Entity:    "budget",
		EntityID:  id,
		Outcome:   outcome(err),
		Changes:   changes,
		Err:       err,
		At:        time.Now().UTC(),
	})
}

// Set creates the budget for a category and month, or replaces the amount
// of the one already there.
func (r *BudgetRepository) Set(ctx context.Context, userID string, in domain.NewBudget) (*domain.Budget, error) {
	if err := domain.RequireUser(userID); err != nil {
		return nil, err
	}
	in.Category = strings.TrimSpace(in.Category)
	if err := in.Validate(); err != nil {
		r.record(ctx, userID, "budget.set", "", nil, err)
		return nil, err
	}

	var out *domain.Budget
	err := inTx(ctx, r.db, "budget.set", func(tx *gorm.DB) error {
		now := time.Now().UTC()
		var row budgetRow
		err := tx.Where("user_id = ? AND category = ? AND year = ? AND month = ?",
			userID, in.Category, in.Year, int(in.Month)).First(&row).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			row = budgetRow{
				ID:        uuid.NewString(),
				UserID:    userID,
				Category:  in.Category,
				Amount:    *in.Amount,
				Year:      in.Year,
				Month:     int(in.Month),
				CreatedAt: now,
				UpdatedAt: now,
			}
			if err := tx.Create(&row).Error; err != nil {
				return fmt.Errorf("Set: inserting row: %w", err)
			}
		case err != nil:
			return fmt.Errorf("Set: querying: %w", err)
		default:
			row.Amount = *in.Amount
			row.UpdatedAt = now
			err := tx.Model(&budgetRow{}).
				Where("id = ? AND user_id = ?", row.ID, userID).
				Updates(map[string]any{"amount": row.Amount, "updated_at": now}).Error
			if err != nil {
				return fmt.Errorf("Set: updating: %w", err)
			}
		}
		out = row.toDomain()
		return nil
	})

	id := ""
	if out != nil {
		id = out.ID
	}
	r.record(ctx, userID, "budget.set", id, map[string]any{
		"category": in.Category,
		"amount":   in.Amount.String(),
		"year":     in.Year,
		"month":    int(in.Month),
	}, err)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// List returns the user's budgets for one month ordered by category.
func (r *BudgetRepository) List(ctx context.Context, userID string, year int, month time.Month) ([]*domain.Budget, error) {
	if err := domain.RequireUser(userID); err != nil {
		return nil, err
	}
	var out []*domain.Budget
	err := inTx(ctx, r.db, "budget.list", func(tx *gorm.DB) error {
		var rows []budgetRow
		err := tx.Where("user_id = ? AND year = ? AND month = ?", userID, year, int(month)).
			Order("category ASC").
			Find(&rows).Error
		if err != nil {
			return fmt.Errorf("List: querying: %w", err)
		}
		out = make([]*domain.Budget, 0, len(rows))
		for i := range rows {
			out = append(out, rows[i].toDomain())
		}
		return nil
	})
	return out, err
}

// Delete removes a budget.
func (r *BudgetRepository) Delete(ctx context.Context, userID, id string) error {
	if err := domain.RequireUser(userID); err != nil {
		return err
	}
	err := inTx(ctx, r.db, "budget.delete", func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND user_id = ?", id, userID).Delete(&budgetRow{})
		if res.Error != nil {
			return fmt.Errorf("Delete: deleting: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return &domain.NotFoundError{Entity: "budget"}
		}
		return nil
	})
	r.record(ctx, userID, "budget.delete", id, nil, err)
	return err
}
