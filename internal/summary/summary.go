// Package summary computes the dashboard figures for a set of transactions.
package summary

import (
	"strings"

	"github.com/dvloznov/personal-finance/internal/domain"
	"github.com/shopspring/decimal"
)

// NotAvailable is reported when a top category or payment method cannot be
// determined.
const NotAvailable = "N/A"

// KPIs are the headline figures shown on the dashboard.
type KPIs struct {
	Income           decimal.Decimal `json:"income"`
	Expenses         decimal.Decimal `json:"expenses"`
	Taxes            decimal.Decimal `json:"taxes"`
	NetIncome        decimal.Decimal `json:"net_income"`
	SavingsRate      decimal.Decimal `json:"savings_rate"`
	Transfers        decimal.Decimal `json:"transfers"`
	Investments      decimal.Decimal `json:"investments"`
	AvgTransaction   decimal.Decimal `json:"avg_transaction"`
	TopCategory      string          `json:"top_category"`
	TopPaymentMethod string          `json:"top_payment_method"`
	TransactionCount int             `json:"transaction_count"`
}

var hundred = decimal.NewFromInt(100)

// Compute derives the KPIs. Expenses exclude transfer and tax categories;
// taxes are Tax transactions plus expenses filed under a tax category.
// The savings rate is the non-negative net income as a percentage of
// income, zero when there is no income.
func Compute(txs []*domain.Transaction) KPIs {
	k := KPIs{TopCategory: NotAvailable, TopPaymentMethod: NotAvailable}
	if len(txs) == 0 {
		return k
	}

	var total decimal.Decimal
	byCategory := map[string]decimal.Decimal{}
	byMethod := map[string]int{}

	for _, tx := range txs {
		total = total.Add(tx.Amount)
		if pm := strings.TrimSpace(tx.PaymentMethod); pm != "" {
			byMethod[pm]++
		}

		category := strings.ToLower(strings.TrimSpace(tx.Category))
		switch strings.ToLower(tx.Type) {
		case "income":
			k.Income = k.Income.Add(tx.Amount)
		case "expense":
			switch category {
			case "tax":
				k.Taxes = k.Taxes.Add(tx.Amount)
			case "transfer":
			default:
				k.Expenses = k.Expenses.Add(tx.Amount)
				byCategory[tx.Category] = byCategory[tx.Category].Add(tx.Amount)
			}
		case "tax":
			k.Taxes = k.Taxes.Add(tx.Amount)
		case "transfer":
			k.Transfers = k.Transfers.Add(tx.Amount)
		case "investment":
			k.Investments = k.Investments.Add(tx.Amount)
		}
	}

	k.TransactionCount = len(txs)
	k.AvgTransaction = total.Div(decimal.NewFromInt(int64(len(txs)))).Round(2)
	k.NetIncome = k.Income.Sub(k.Expenses).Sub(k.Taxes)
	if k.Income.IsPositive() {
		k.SavingsRate = decimal.Max(k.NetIncome, decimal.Zero).Div(k.Income).Mul(hundred).Round(2)
	}

	if name, ok := topByAmount(byCategory); ok {
		k.TopCategory = name
	}
	if name, ok := topByCount(byMethod); ok {
		k.TopPaymentMethod = name
	}
	return k
}

// Ties go to the alphabetically first key so results are stable.
func topByAmount(m map[string]decimal.Decimal) (string, bool) {
	var best string
	var bestAmt decimal.Decimal
	found := false
	for name, amt := range m {
		if !found || amt.GreaterThan(bestAmt) || (amt.Equal(bestAmt) && name < best) {
			best, bestAmt, found = name, amt, true
		}
	}
	return best, found
}

func topByCount(m map[string]int) (string, bool) {
	var best string
	bestN := 0
	for name, n := range m {
		if n > bestN || (n == bestN && name < best) {
			best, bestN = name, n
		}
	}
	return best, bestN > 0
}
