package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/dvloznov/personal-finance/internal/domain"
	"github.com/google/go-cmp/cmp"
)

func TestTemplateRepository_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	audit := &recordingAuditor{}
	repo := NewTemplateRepository(newTestDB(t), audit)

	id, err := repo.Create(ctx, "u1", cryptoTemplate())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := repo.Get(ctx, "u1", id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Name != "Crypto Trading" || got.UserID != "u1" || !got.IsActive {
		t.Errorf("unexpected template: %+v", got)
	}
	if got.DefaultPaymentMethod != domain.DefaultPaymentMethod {
		t.Errorf("DefaultPaymentMethod = %q, want %q", got.DefaultPaymentMethod, domain.DefaultPaymentMethod)
	}
	if diff := cmp.Diff(cryptoTemplate().FieldsSchema, got.FieldsSchema); diff != "" {
		t.Errorf("schema mismatch (-want +got):\n%s", diff)
	}

	ev := audit.last(t)
	if ev.Operation != "template.create" || ev.UserID != "u1" || ev.EntityID != id || ev.Outcome != domain.OutcomeSuccess {
		t.Errorf("unexpected audit event: %+v", ev)
	}
}

func TestTemplateRepository_CreateDefaults(t *testing.T) {
	ctx := context.Background()
	repo := NewTemplateRepository(newTestDB(t), nil)

	id, err := repo.Create(ctx, "u1", domain.NewTemplate{
		Name:            "Groceries",
		TransactionType: domain.TypeExpense,
		Category:        "Food",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	got, err := repo.Get(ctx, "u1", id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Icon != domain.DefaultIcon || !got.DefaultAmount.IsZero() || len(got.FieldsSchema) != 0 {
		t.Errorf("defaults not applied: %+v", got)
	}
}

func TestTemplateRepository_CreateDuplicate(t *testing.T) {
	ctx := context.Background()
	repo := NewTemplateRepository(newTestDB(t), nil)

	id, err := repo.Create(ctx, "u1", cryptoTemplate())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := repo.Deactivate(ctx, "u1", id); err != nil {
		t.Fatalf("Deactivate: %v", err)
	}

	_, err = repo.Create(ctx, "u1", cryptoTemplate())
	var dup *domain.DuplicateTemplateError
	if !errors.As(err, &dup) || dup.Name != "Crypto Trading" {
		t.Fatalf("expected DuplicateTemplateError, got %v", err)
	}

	// Another user may reuse the name.
	if _, err := repo.Create(ctx, "u2", cryptoTemplate()); err != nil {
		t.Errorf("Create for u2: %v", err)
	}
}

func TestTemplateRepository_CreateRejectsInvalidSchema(t *testing.T) {
	ctx := context.Background()
	repo := NewTemplateRepository(newTestDB(t), nil)

	tests := []struct {
		name   string
		schema domain.FieldSchema
	}{
		{"select without options", domain.FieldSchema{{Name: "coin", Type: domain.FieldSelect}}},
		{"unknown type", domain.FieldSchema{{Name: "coin", Type: "currency"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := cryptoTemplate()
			in.FieldsSchema = tt.schema
			_, err := repo.Create(ctx, "u1", in)
			if !errors.Is(err, domain.ErrInvalidSchema) {
				t.Fatalf("expected ErrInvalidSchema, got %v", err)
			}
		})
	}

	all, err := repo.ListAll(ctx, "u1")
	if err != nil {
		t.Fatalf("ListAll: %v", err)
	}
	if len(all) != 0 {
		t.Errorf("rejected templates must not be stored, got %d", len(all))
	}
}

func TestTemplateRepository_ListActiveOrderAndToggle(t *testing.T) {
	ctx := context.Background()
	repo := NewTemplateRepository(newTestDB(t), nil)

	mk := func(name string, order int) string {
		t.Helper()
		id, err := repo.Create(ctx, "u1", domain.NewTemplate{
			Name: name, TransactionType: domain.TypeExpense, Category: "Misc", SortOrder: order,
		})
		if err != nil {
			t.Fatalf("Create %s: %v", name, err)
		}
		return id
	}
	third := mk("Third", 30)
	mk("First", 10)
	mk("Second", 20)

	names := func(list []*domain.Template) []string {
		var out []string
		for _, tpl := range list {
			out = append(out, tpl.Name)
		}
		return out
	}

	active, err := repo.ListActive(ctx, "u1")
	if err != nil {
		t.Fatalf("ListActive: %v", err)
	}
	if diff := cmp.Diff([]string{"First", "Second", "Third"}, names(active)); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}

	for i := 0; i < 2; i++ {
		if err := repo.Deactivate(ctx, "u1", third); err != nil {
			t.Fatalf("Deactivate #%d: %v", i, err)
		}
	}
	active, _ = repo.ListActive(ctx, "u1")
	if diff := cmp.Diff([]string{"First", "Second"}, names(active)); diff != "" {
		t.Errorf("after deactivate (-want +got):\n%s", diff)
	}
	all, _ := repo.ListAll(ctx, "u1")
	if len(all) != 3 {
		t.Errorf("ListAll returned %d templates, want 3", len(all))
	}

	for i := 0; i < 2; i++ {
		if err := repo.Activate(ctx, "u1", third); err != nil {
			t.Fatalf("Activate #%d: %v", i, err)
		}
	}
	active, _ = repo.ListActive(ctx, "u1")
	if len(active) != 3 {
		t.Errorf("after activate got %d active templates, want 3", len(active))
	}
}

func TestTemplateRepository_OwnershipHiding(t *testing.T) {
	ctx := context.Background()
	repo := NewTemplateRepository(newTestDB(t), nil)

	id, err := repo.Create(ctx, "u1", cryptoTemplate())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	_, errMissing := repo.Get(ctx, "u2", "does-not-exist")
	_, errForeign := repo.Get(ctx, "u2", id)
	if !errors.Is(errForeign, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", errForeign)
	}
	if errMissing.Error() != errForeign.Error() {
		t.Errorf("errors differ: %q vs %q", errMissing, errForeign)
	}

	ops := map[string]func() error{
		"activate":   func() error { return repo.Activate(ctx, "u2", id) },
		"deactivate": func() error { return repo.Deactivate(ctx, "u2", id) },
		"update":     func() error { return repo.Update(ctx, "u2", id, domain.TemplateChanges{Name: strPtr("Mine")}) },
		"delete":     func() error { return repo.Delete(ctx, "u2", id) },
	}
	for name, op := range ops {
		if err := op(); err == nil || err.Error() != errMissing.Error() {
			t.Errorf("%s by other user: got %v, want %v", name, err, errMissing)
		}
	}

	active, err := repo.ListActive(ctx, "u2")
	if err != nil {
		t.Fatalf("ListActive: %v", err)
	}
	if len(active) != 0 {
		t.Errorf("u2 sees %d templates of u1", len(active))
	}

	// The owner's template is unaffected.
	got, err := repo.Get(ctx, "u1", id)
	if err != nil || got.Name != "Crypto Trading" || !got.IsActive {
		t.Errorf("owner template changed: %+v, %v", got, err)
	}
}

func TestTemplateRepository_RequiresUser(t *testing.T) {
	ctx := context.Background()
	repo := NewTemplateRepository(newTestDB(t), nil)

	if _, err := repo.Create(ctx, "", cryptoTemplate()); !errors.Is(err, domain.ErrUnauthorized) {
		t.Errorf("Create: expected ErrUnauthorized, got %v", err)
	}
	if _, err := repo.ListActive(ctx, " "); !errors.Is(err, domain.ErrUnauthorized) {
		t.Errorf("ListActive: expected ErrUnauthorized, got %v", err)
	}
	if _, err := repo.Get(ctx, "", "x"); !errors.Is(err, domain.ErrUnauthorized) {
		t.Errorf("Get: expected ErrUnauthorized, got %v", err)
	}
	if err := repo.Delete(ctx, "", "x"); !errors.Is(err, domain.ErrUnauthorized) {
		t.Errorf("Delete: expected ErrUnauthorized, got %v", err)
	}
}

func TestTemplateRepository_Delete(t *testing.T) {
	ctx := context.Background()
	repo := NewTemplateRepository(newTestDB(t), nil)

	id, err := repo.Create(ctx, "u1", cryptoTemplate())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := repo.Delete(ctx, "u1", id); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := repo.Get(ctx, "u1", id); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Get after delete: expected ErrNotFound, got %v", err)
	}
	if err := repo.Delete(ctx, "u1", id); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("second Delete: expected ErrNotFound, got %v", err)
	}
}

func TestTemplateRepository_Update(t *testing.T) {
	ctx := context.Background()
	repo := NewTemplateRepository(newTestDB(t), nil)

	id, err := repo.Create(ctx, "u1", cryptoTemplate())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := repo.Create(ctx, "u1", domain.NewTemplate{Name: "Stocks", TransactionType: domain.TypeInvestment, Category: "Investment"}); err != nil {
		t.Fatalf("Create Stocks: %v", err)
	}

	if err := repo.Update(ctx, "u1", id, domain.TemplateChanges{Name: strPtr("Stocks")}); !errors.Is(err, domain.ErrDuplicateTemplate) {
		t.Errorf("rename onto existing: expected ErrDuplicateTemplate, got %v", err)
	}

	bad := domain.FieldSchema{{Name: "coin_name", Type: domain.FieldSelect}}
	if err := repo.Update(ctx, "u1", id, domain.TemplateChanges{FieldsSchema: &bad}); !errors.Is(err, domain.ErrInvalidSchema) {
		t.Errorf("invalid schema: expected ErrInvalidSchema, got %v", err)
	}

	schema := domain.FieldSchema{{Name: "coin_name", Type: domain.FieldText, Required: true}}
	order := 7
	err = repo.Update(ctx, "u1", id, domain.TemplateChanges{
		Name:          strPtr("Crypto"),
		DefaultAmount: dec("250"),
		FieldsSchema:  &schema,
		SortOrder:     &order,
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	got, err := repo.Get(ctx, "u1", id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Name != "Crypto" || got.SortOrder != 7 || !got.DefaultAmount.Equal(*dec("250")) {
		t.Errorf("update not applied: %+v", got)
	}
	if diff := cmp.Diff(schema, got.FieldsSchema); diff != "" {
		t.Errorf("schema mismatch (-want +got):\n%s", diff)
	}
}

func TestTemplateRepository_SeedDefaults(t *testing.T) {
	ctx := context.Background()
	repo := NewTemplateRepository(newTestDB(t), nil)

	existing := domain.NewTemplate{Name: "Mortgage", TransactionType: domain.TypeExpense, Category: "Housing", SortOrder: 20}
	if _, err := repo.Create(ctx, "u1", existing); err != nil {
		t.Fatalf("Create: %v", err)
	}

	n, err := repo.SeedDefaults(ctx, "u1")
	if err != nil {
		t.Fatalf("SeedDefaults: %v", err)
	}
	if want := len(starterTemplates) - 1; n != want {
		t.Errorf("created %d templates, want %d", n, want)
	}

	n, err = repo.SeedDefaults(ctx, "u1")
	if err != nil || n != 0 {
		t.Errorf("second SeedDefaults = %d, %v; want 0, nil", n, err)
	}

	active, err := repo.ListActive(ctx, "u1")
	if err != nil {
		t.Fatalf("ListActive: %v", err)
	}
	if len(active) != len(starterTemplates) {
		t.Errorf("ListActive returned %d, want %d", len(active), len(starterTemplates))
	}
	if active[0].Name != "Monthly Salary" {
		t.Errorf("first template = %q, want Monthly Salary", active[0].Name)
	}
}
