package sqlite

import (
	"context"
	"sync"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/personal-finance/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// newTestDB opens a private in-memory database with the real migrations.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	ctx := context.Background()
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared&_foreign_keys=on"
	db, err := OpenDSN(ctx, dsn, zerolog.Nop())
	if err != nil {
		t.Fatalf("OpenDSN: %v", err)
	}
	t.Cleanup(func() { Close(db) })

	if err := Migrate(ctx, db, zerolog.Nop()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	return db
}

type recordingAuditor struct {
	mu     sync.Mutex
	events []domain.AuditEvent
}

func (a *recordingAuditor) Record(_ context.Context, ev domain.AuditEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, ev)
}

func (a *recordingAuditor) last(t *testing.T) domain.AuditEvent {
	t.Helper()
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.events) == 0 {
		t.Fatal("expected an audit event")
	}
	return a.events[len(a.events)-1]
}

func date(y int, m time.Month, d int) civil.Date {
	return civil.Date{Year: y, Month: m, Day: d}
}

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func strPtr(s string) *string { return &s }

func cryptoTemplate() domain.NewTemplate {
	return domain.NewTemplate{
		Name:            "Crypto Trading",
		Icon:            "₿",
		TransactionType: domain.TypeInvestment,
		Category:        "Cryptocurrency",
		FieldsSchema: domain.FieldSchema{
			{Name: "coin_name", Type: domain.FieldSelect, Required: true, Options: []string{"Bitcoin", "Ethereum"}},
			{Name: "quantity", Type: domain.FieldNumber},
			{Name: "exchange", Type: domain.FieldText},
		},
	}
}
