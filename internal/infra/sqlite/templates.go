package sqlite

import (
	"context"
	"time"

	"github.com/dvloznov/personal-finance/internal/domain"
	"gorm.io/gorm"
)

// TemplateRepository is the template registry backed by SQLite.
type TemplateRepository struct {
	db    *gorm.DB
	audit domain.Auditor
}

// NewTemplateRepository creates a template repository. A nil auditor
// discards mutation events.
func NewTemplateRepository(db *gorm.DB, audit domain.Auditor) *TemplateRepository {
	if audit == nil {
		audit = domain.NopAuditor{}
	}
	return &TemplateRepository{db: db, audit: audit}
}

func (r *TemplateRepository) record(ctx context.Context, userID, op, id string, changes map[string]any, err error) {
	r.audit.Record(ctx, domain.AuditEvent{
		UserID:    userID,
		Operation: op,
		Entity:    "template",
		EntityID:  id,
		Outcome:   outcome(err),
		Changes:   changes,
		Err:       err,
		At:        time.Now().UTC(),
	})
}

// Create stores a new active template and returns its id.
func (r *TemplateRepository) Create(ctx context.Context, userID string, in domain.NewTemplate) (string, error) {
	if err := domain.RequireUser(userID); err != nil {
		return "", err
	}

	var id string
	err := inTx(ctx, r.db, "template.create", func(tx *gorm.DB) error {
		row, err := insertTemplate(tx, userID, in)
		if err != nil {
			return err
		}
		id = row.ID
		return nil
	})
	r.record(ctx, userID, "template.create", id, map[string]any{
		"template_name": in.Name,
		"fields":        in.FieldsSchema.Names(),
	}, err)
	if err != nil {
		return "", err
	}
	return id, nil
}

// ListActive returns the user's active templates ordered by sort order,
// then creation time.
func (r *TemplateRepository) ListActive(ctx context.Context, userID string) ([]*domain.Template, error) {
	return r.list(ctx, userID, true)
}

// ListAll returns active and inactive templates.
func (r *TemplateRepository) ListAll(ctx context.Context, userID string) ([]*domain.Template, error) {
	return r.list(ctx, userID, false)
}

func (r *TemplateRepository) list(ctx context.Context, userID string, activeOnly bool) ([]*domain.Template, error) {
	if err := domain.RequireUser(userID); err != nil {
		return nil, err
	}
	var out []*domain.Template
	err := inTx(ctx, r.db, "template.list", func(tx *gorm.DB) error {
		var err error
		out, err = queryTemplates(tx, userID, activeOnly)
		return err
	})
	return out, err
}

// Get returns one template. A template owned by another user is reported
// exactly like a missing one.
func (r *TemplateRepository) Get(ctx context.Context, userID, id string) (*domain.Template, error) {
	if err := domain.RequireUser(userID); err != nil {
		return nil, err
	}
	var out *domain.Template
	err := inTx(ctx, r.db, "template.get", func(tx *gorm.DB) error {
		row, err := findTemplate(tx, userID, id)
		if err != nil {
			return err
		}
		out, err = row.toDomain()
		return err
	})
	return out, err
}

// Activate marks a template active. Activating an active template is a no-op.
func (r *TemplateRepository) Activate(ctx context.Context, userID, id string) error {
	return r.setActive(ctx, userID, id, true)
}

// Deactivate hides a template from ListActive. Transactions created from it
// are untouched.
func (r *TemplateRepository) Deactivate(ctx context.Context, userID, id string) error {
	return r.setActive(ctx, userID, id, false)
}

func (r *TemplateRepository) setActive(ctx context.Context, userID, id string, active bool) error {
	if err := domain.RequireUser(userID); err != nil {
		return err
	}
	op := "template.deactivate"
	if active {
		op = "template.activate"
	}

	var changed bool
	err := inTx(ctx, r.db, op, func(tx *gorm.DB) error {
		var err error
		changed, err = setTemplateActive(tx, userID, id, active)
		return err
	})
	var changes map[string]any
	if changed {
		changes = map[string]any{"is_active": active}
	}
	r.record(ctx, userID, op, id, changes, err)
	return err
}

// Update edits a template. The schema is re-checked and a rename onto an
// existing name fails with DuplicateTemplateError.
func (r *TemplateRepository) Update(ctx context.Context, userID, id string, c domain.TemplateChanges) error {
	if err := domain.RequireUser(userID); err != nil {
		return err
	}
	var applied map[string]any
	err := inTx(ctx, r.db, "template.update", func(tx *gorm.DB) error {
		var err error
		applied, err = updateTemplate(tx, userID, id, c)
		return err
	})
	if _, ok := applied["fields_schema"]; ok && c.FieldsSchema != nil {
		applied["fields_schema"] = c.FieldsSchema.Names()
	}
	r.record(ctx, userID, "template.update", id, applied, err)
	return err
}

// Delete removes a template permanently. Transactions that reference it keep
// their template id and custom fields.
func (r *TemplateRepository) Delete(ctx context.Context, userID, id string) error {
	if err := domain.RequireUser(userID); err != nil {
		return err
	}
	err := inTx(ctx, r.db, "template.delete", func(tx *gorm.DB) error {
		return deleteTemplate(tx, userID, id)
	})
	r.record(ctx, userID, "template.delete", id, nil, err)
	return err
}

// SeedDefaults installs the starter templates the user does not already
// have, by name, and returns how many were created.
func (r *TemplateRepository) SeedDefaults(ctx context.Context, userID string) (int, error) {
	if err := domain.RequireUser(userID); err != nil {
		return 0, err
	}
	var created []string
	err := inTx(ctx, r.db, "template.seed", func(tx *gorm.DB) error {
		created = created[:0]
		for _, in := range StarterTemplates() {
			taken, err := templateNameTaken(tx, userID, in.Name, "")
			if err != nil {
				return err
			}
			if taken {
				continue
			}
			row, err := insertTemplate(tx, userID, in)
			if err != nil {
				return err
			}
			created = append(created, row.TemplateName)
		}
		return nil
	})
	if err != nil {
		created = nil
	}
	r.record(ctx, userID, "template.seed", "", map[string]any{"created": created}, err)
	return len(created), err
}
