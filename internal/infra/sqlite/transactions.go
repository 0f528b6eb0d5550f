package sqlite

import (
	"context"
	"time"

	"github.com/dvloznov/personal-finance/internal/domain"
	"gorm.io/gorm"
)

// TransactionRepository is the transaction store backed by SQLite.
type TransactionRepository struct {
	db    *gorm.DB
	audit domain.Auditor
}

// NewTransactionRepository creates a transaction repository. A nil auditor
// discards mutation events.
func NewTransactionRepository(db *gorm.DB, audit domain.Auditor) *TransactionRepository {
	if audit == nil {
		audit = domain.NopAuditor{}
	}
	return &TransactionRepository{db: db, audit: audit}
}

func (r *TransactionRepository) record(ctx context.Context, userID, op, id string, changes map[string]any, err error) {
	r.audit.Record(ctx, domain.AuditEvent{
		UserID:    userID,
		Operation: op,
		Entity:    "transaction",
		EntityID:  id,
		Outcome:   outcome(err),
		Changes:   changes,
		Err:       err,
		At:        time.Now().UTC(),
	})
}

// Add stores a transaction. When it references a template, the custom
// fields are validated against the template schema first and nothing is
// written if validation fails.
func (r *TransactionRepository) Add(ctx context.Context, userID string, in domain.NewTransaction) (*domain.AddResult, error) {
	if err := domain.RequireUser(userID); err != nil {
		return nil, err
	}

	var result *domain.AddResult
	var stored *transactionRow
	err := inTx(ctx, r.db, "transaction.add", func(tx *gorm.DB) error {
		row, unrecognized, err := insertTransaction(tx, userID, in)
		if err != nil {
			return err
		}
		stored = row
		result = &domain.AddResult{ID: row.ID, Unrecognized: unrecognized}
		return nil
	})

	changes := map[string]any{"template_id": in.TemplateID}
	id := ""
	if err == nil {
		id = result.ID
		changes["date"] = stored.Date
		changes["amount"] = stored.Amount.String()
		changes["type"] = stored.Type
		changes["category"] = stored.Category
		changes["custom_fields"] = in.CustomFields.Keys()
		if len(result.Unrecognized) > 0 {
			changes["unrecognized"] = result.Unrecognized
		}
	}
	r.record(ctx, userID, "transaction.add", id, changes, err)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Get returns one transaction owned by userID.
func (r *TransactionRepository) Get(ctx context.Context, userID, id string) (*domain.Transaction, error) {
	if err := domain.RequireUser(userID); err != nil {
		return nil, err
	}
	var out *domain.Transaction
	err := inTx(ctx, r.db, "transaction.get", func(tx *gorm.DB) error {
		row, err := findTransaction(tx, userID, id)
		if err != nil {
			return err
		}
		out, err = row.toDomain()
		return err
	})
	return out, err
}

// List returns the user's transactions matching every set filter dimension,
// newest first.
func (r *TransactionRepository) List(ctx context.Context, userID string, f domain.TransactionFilter) ([]*domain.Transaction, error) {
	if err := domain.RequireUser(userID); err != nil {
		return nil, err
	}
	var out []*domain.Transaction
	err := inTx(ctx, r.db, "transaction.list", func(tx *gorm.DB) error {
		var err error
		out, err = queryTransactions(tx, userID, f)
		return err
	})
	return out, err
}

// Update applies a partial change. Custom fields are merged into the stored
// payload unless ReplaceCustomFields is set.
func (r *TransactionRepository) Update(ctx context.Context, userID, id string, c domain.TransactionChanges) error {
	if err := domain.RequireUser(userID); err != nil {
		return err
	}
	var applied map[string]any
	err := inTx(ctx, r.db, "transaction.update", func(tx *gorm.DB) error {
		var err error
		applied, err = updateTransaction(tx, userID, id, c)
		return err
	})
	r.record(ctx, userID, "transaction.update", id, auditableChanges(applied, c), err)
	return err
}

// Delete removes a transaction permanently.
func (r *TransactionRepository) Delete(ctx context.Context, userID, id string) error {
	if err := domain.RequireUser(userID); err != nil {
		return err
	}
	err := inTx(ctx, r.db, "transaction.delete", func(tx *gorm.DB) error {
		return deleteTransaction(tx, userID, id)
	})
	r.record(ctx, userID, "transaction.delete", id, nil, err)
	return err
}

// Categories returns the distinct categories the user has recorded.
func (r *TransactionRepository) Categories(ctx context.Context, userID string) ([]string, error) {
	if err := domain.RequireUser(userID); err != nil {
		return nil, err
	}
	var out []string
	err := inTx(ctx, r.db, "transaction.categories", func(tx *gorm.DB) error {
		var err error
		out, err = distinctCategories(tx, userID)
		return err
	})
	return out, err
}

// auditableChanges renders an applied update for the mutation log. Column
// values are kept except the encoded payload, which is replaced by the
// patch that produced it.
func auditableChanges(applied map[string]any, c domain.TransactionChanges) map[string]any {
	if len(applied) == 0 {
		return nil
	}
	out := make(map[string]any, len(applied))
	for k, v := range applied {
		switch k {
		case "custom_fields":
			out[k] = map[string]any(c.CustomFields)
			out["replace_custom_fields"] = c.ReplaceCustomFields
		case "amount":
			out[k] = c.Amount.String()
		default:
			out[k] = v
		}
	}
	return out
}
