package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/dvloznov/personal-finance/internal/domain"
)

func TestNetWorthRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewNetWorthRepository(newTestDB(t), nil)

	houseID, err := repo.AddItem(ctx, "u1", domain.NetWorthItem{
		Kind:          domain.KindRealEstate,
		Name:          "Primary home",
		Value:         *dec("650000"),
		PurchaseValue: dec("480000"),
		ItemType:      "Primary Residence",
	})
	if err != nil {
		t.Fatalf("AddItem house: %v", err)
	}
	if _, err := repo.AddItem(ctx, "u1", domain.NetWorthItem{Kind: domain.KindLiability, Name: "Mortgage", Value: *dec("300000"), Owner: "Alex"}); err != nil {
		t.Fatalf("AddItem mortgage: %v", err)
	}
	if _, err := repo.AddItem(ctx, "u2", domain.NetWorthItem{Kind: domain.KindAsset, Name: "Savings", Value: *dec("10")}); err != nil {
		t.Fatalf("AddItem u2: %v", err)
	}

	if _, err := repo.AddItem(ctx, "u1", domain.NetWorthItem{Kind: "boat", Name: "Yacht"}); !errors.Is(err, domain.ErrInvalidTransaction) {
		t.Errorf("unknown kind: expected ErrInvalidTransaction, got %v", err)
	}

	all, err := repo.ListItems(ctx, "u1", "")
	if err != nil {
		t.Fatalf("ListItems: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("ListItems returned %d items, want 2", len(all))
	}

	homes, err := repo.ListItems(ctx, "u1", domain.KindRealEstate)
	if err != nil {
		t.Fatalf("ListItems real_estate: %v", err)
	}
	if len(homes) != 1 {
		t.Fatalf("got %d homes, want 1", len(homes))
	}
	home := homes[0]
	if home.Owner != domain.DefaultOwner || !home.Equity().Equal(*dec("170000")) {
		t.Errorf("unexpected home: owner %q equity %s", home.Owner, home.Equity())
	}

	if err := repo.UpdateItemValue(ctx, "u2", houseID, *dec("1")); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("UpdateItemValue by u2: expected ErrNotFound, got %v", err)
	}
	if err := repo.UpdateItemValue(ctx, "u1", houseID, *dec("700000")); err != nil {
		t.Fatalf("UpdateItemValue: %v", err)
	}
	homes, _ = repo.ListItems(ctx, "u1", domain.KindRealEstate)
	if !homes[0].Value.Equal(*dec("700000")) {
		t.Errorf("Value = %s, want 700000", homes[0].Value)
	}

	if err := repo.DeleteItem(ctx, "u2", houseID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("DeleteItem by u2: expected ErrNotFound, got %v", err)
	}
	if err := repo.DeleteItem(ctx, "u1", houseID); err != nil {
		t.Fatalf("DeleteItem: %v", err)
	}
	homes, _ = repo.ListItems(ctx, "u1", domain.KindRealEstate)
	if len(homes) != 0 {
		t.Errorf("house still listed after delete")
	}
}
