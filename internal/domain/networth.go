package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ItemKind classifies a net-worth item.
type ItemKind string

const (
	KindAsset      ItemKind = "asset"
	KindLiability  ItemKind = "liability"
	KindRealEstate ItemKind = "real_estate"
)

// Valid reports whether k is a known kind.
func (k ItemKind) Valid() bool {
	switch k {
	case KindAsset, KindLiability, KindRealEstate:
		return true
	}
	return false
}

// NetWorthItem is an asset, liability or property owned by one user.
// PurchaseValue is only meaningful for real estate.
type NetWorthItem struct {
	ID            string           `json:"id"`
	UserID        string           `json:"user_id"`
	Kind          ItemKind         `json:"kind"`
	Name          string           `json:"name"`
	Value         decimal.Decimal  `json:"value"`
	PurchaseValue *decimal.Decimal `json:"purchase_value,omitempty"`
	Owner         string           `json:"owner"`
	ItemType      string           `json:"item_type"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

// Equity returns value minus purchase value for real estate, zero otherwise.
func (i NetWorthItem) Equity() decimal.Decimal {
	if i.Kind != KindRealEstate || i.PurchaseValue == nil {
		return decimal.Zero
	}
	return i.Value.Sub(*i.PurchaseValue)
}

// DefaultOwner is used when an item omits its owner.
const DefaultOwner = "Joint"
