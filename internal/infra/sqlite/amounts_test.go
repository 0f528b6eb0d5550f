package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/dvloznov/personal-finance/internal/domain"
	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

func TestTransactionRepository_AmountsStayExact(t *testing.T) {
	ctx := context.Background()
	s := newStores(t)

	for _, amt := range []string{"12345678901234567.89", "0.000000000000000001", "-98765432109876543210.5"} {
		id := addTx(t, s, "u1", domain.NewTransaction{
			Date:     date(2024, time.May, 1),
			Amount:   dec(amt),
			Type:     domain.TypeInvestment,
			Category: "Bonds",
		})
		got, err := s.transactions.Get(ctx, "u1", id)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if !got.Amount.Equal(*dec(amt)) {
			t.Errorf("Amount = %s, want %s", got.Amount, amt)
		}
	}
}

func TestTransactionRepository_AmountFilterIsNumeric(t *testing.T) {
	ctx := context.Background()
	s := newStores(t)

	for i, amt := range []string{"9", "10.5", "100", "1000"} {
		addTx(t, s, "u1", domain.NewTransaction{
			Date: date(2024, time.May, i+1), Amount: dec(amt), Type: domain.TypeExpense, Category: "Misc",
		})
	}

	list, err := s.transactions.List(ctx, "u1", domain.TransactionFilter{MinAmount: dec("10"), MaxAmount: dec("100")})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	got := []string{}
	for _, tx := range list {
		got = append(got, tx.Amount.String())
	}
	if diff := cmp.Diff([]string{"100", "10.5"}, got); diff != "" {
		t.Errorf("filtered amounts mismatch (-want +got):\n%s", diff)
	}
}

func TestMigrate_ConvertsStoredAmountsToText(t *testing.T) {
	ctx := context.Background()
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared&_foreign_keys=on"
	db, err := OpenDSN(ctx, dsn, zerolog.Nop())
	if err != nil {
		t.Fatalf("OpenDSN: %v", err)
	}
	t.Cleanup(func() { Close(db) })

	// Bring the database to the schema that stored amounts as NUMERIC.
	migrations, err := Migrations()
	if err != nil {
		t.Fatalf("Migrations: %v", err)
	}
	if _, err := applyMigrations(ctx, db, migrations[:2], zerolog.Nop()); err != nil {
		t.Fatalf("applying NUMERIC schema: %v", err)
	}
	err = db.Exec(`INSERT INTO transactions (id, user_id, date, amount, type, category, created_at, updated_at)
		VALUES ('old', 'u1', '2024-01-01', 10.5, 'Expense', 'Food', ?, ?)`, time.Now().UTC(), time.Now().UTC()).Error
	if err != nil {
		t.Fatalf("seeding old row: %v", err)
	}

	if err := Migrate(ctx, db, zerolog.Nop()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}

	var typ string
	if err := db.Raw("SELECT typeof(amount) FROM transactions WHERE id = 'old'").Scan(&typ).Error; err != nil {
		t.Fatalf("typeof: %v", err)
	}
	if typ != "text" {
		t.Errorf("amount stored as %s, want text", typ)
	}
	got, err := NewTransactionRepository(db, nil).Get(ctx, "u1", "old")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !got.Amount.Equal(*dec("10.5")) {
		t.Errorf("Amount = %s, want 10.5", got.Amount)
	}
}
