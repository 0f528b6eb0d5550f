package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dvloznov/personal-finance/internal/domain"
	"github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func TestInTx_Retries(t *testing.T) {
	busy := sqlite3.Error{Code: sqlite3.ErrBusy}
	locked := sqlite3.Error{Code: sqlite3.ErrLocked}

	tests := []struct {
		name        string
		results     []error
		wantCalls   int
		wantStorage bool
	}{
		{name: "busy twice surfaces storage error", results: []error{busy, busy}, wantCalls: 2, wantStorage: true},
		{name: "locked then ok", results: []error{locked, nil}, wantCalls: 2},
		{name: "permanent error is not retried", results: []error{errors.New("no such table: x")}, wantCalls: 1, wantStorage: true},
		{name: "domain error passes through once", results: []error{&domain.NotFoundError{Entity: "transaction"}}, wantCalls: 1},
		{name: "ok", results: []error{nil}, wantCalls: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := newTestDB(t)
			calls := 0
			err := inTx(context.Background(), db, "transaction.add", func(tx *gorm.DB) error {
				res := tt.results[calls]
				calls++
				return res
			})

			if calls != tt.wantCalls {
				t.Errorf("fn ran %d times, want %d", calls, tt.wantCalls)
			}
			var se *domain.StorageError
			if got := errors.As(err, &se); got != tt.wantStorage {
				t.Fatalf("StorageError = %v, want %v (err %v)", got, tt.wantStorage, err)
			}
			if tt.wantStorage && se.Op != "transaction.add" {
				t.Errorf("Op = %q", se.Op)
			}
			last := tt.results[len(tt.results)-1]
			if last == nil && err != nil {
				t.Errorf("expected success, got %v", err)
			}
		})
	}
}

func TestInTx_CanceledDuringBackoff(t *testing.T) {
	db := newTestDB(t)
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	err := inTx(ctx, db, "transaction.list", func(tx *gorm.DB) error {
		calls++
		cancel()
		return sqlite3.Error{Code: sqlite3.ErrBusy}
	})

	if calls != 1 {
		t.Errorf("fn ran %d times after cancellation, want 1", calls)
	}
	if !errors.Is(err, domain.ErrStorage) || !errors.Is(err, context.Canceled) {
		t.Errorf("expected storage error wrapping context.Canceled, got %v", err)
	}
}

func TestInTx_RollsBackPartialWrites(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	now := time.Now().UTC()

	err := inTx(ctx, db, "transaction.add", func(tx *gorm.DB) error {
		row := &transactionRow{
			ID:           "tx-partial",
			UserID:       "u1",
			Date:         "2024-03-05",
			Amount:       decimal.RequireFromString("10"),
			Type:         domain.TypeExpense,
			Category:     "Food",
			CustomFields: datatypes.JSON(emptyObject),
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := tx.Create(row).Error; err != nil {
			return err
		}
		return errors.New("second write failed")
	})
	if !errors.Is(err, domain.ErrStorage) {
		t.Fatalf("expected storage error, got %v", err)
	}

	var n int64
	if err := db.Model(&transactionRow{}).Where("id = ?", "tx-partial").Count(&n).Error; err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 0 {
		t.Errorf("partial write survived the failed transaction")
	}
}
