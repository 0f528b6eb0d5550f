// Package networth totals a user's assets, properties and liabilities.
package networth

import (
	"sort"

	"github.com/dvloznov/personal-finance/internal/domain"
	"github.com/shopspring/decimal"
)

// Breakdown is the total value of one item type within a kind.
type Breakdown struct {
	ItemType string          `json:"item_type"`
	Value    decimal.Decimal `json:"value"`
	Count    int             `json:"count"`
}

// Totals summarizes net worth.
type Totals struct {
	Assets           decimal.Decimal `json:"assets"`
	RealEstateValue  decimal.Decimal `json:"real_estate_value"`
	RealEstateEquity decimal.Decimal `json:"real_estate_equity"`
	Liabilities      decimal.Decimal `json:"liabilities"`
	NetWorth         decimal.Decimal `json:"net_worth"`

	ByKind map[domain.ItemKind][]Breakdown `json:"by_kind"`
}

// Compute sums items. Net worth is assets plus real-estate value minus
// liabilities; equity is reported separately and not added again.
func Compute(items []*domain.NetWorthItem) Totals {
	t := Totals{ByKind: map[domain.ItemKind][]Breakdown{}}
	groups := map[domain.ItemKind]map[string]*Breakdown{}

	for _, it := range items {
		switch it.Kind {
		case domain.KindAsset:
			t.Assets = t.Assets.Add(it.Value)
		case domain.KindRealEstate:
			t.RealEstateValue = t.RealEstateValue.Add(it.Value)
			t.RealEstateEquity = t.RealEstateEquity.Add(it.Equity())
		case domain.KindLiability:
			t.Liabilities = t.Liabilities.Add(it.Value)
		default:
			continue
		}

		itemType := it.ItemType
		if itemType == "" {
			itemType = "Other"
		}
		if groups[it.Kind] == nil {
			groups[it.Kind] = map[string]*Breakdown{}
		}
		b := groups[it.Kind][itemType]
		if b == nil {
			b = &Breakdown{ItemType: itemType}
			groups[it.Kind][itemType] = b
		}
		b.Value = b.Value.Add(it.Value)
		b.Count++
	}

	t.NetWorth = t.Assets.Add(t.RealEstateValue).Sub(t.Liabilities)

	for kind, g := range groups {
		list := make([]Breakdown, 0, len(g))
		for _, b := range g {
			list = append(list, *b)
		}
		sort.Slice(list, func(i, j int) bool {
			if !list[i].Value.Equal(list[j].Value) {
				return list[i].Value.GreaterThan(list[j].Value)
			}
			return list[i].ItemType < list[j].ItemType
		})
		t.ByKind[kind] = list
	}
	return t
}
