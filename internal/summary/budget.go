package summary

import (
	"strings"
	"time"

	"github.com/dvloznov/personal-finance/internal/domain"
	"github.com/shopspring/decimal"
)

// Budget statuses.
const (
	StatusOnTrack     = "on_track"
	StatusNearlyThere = "nearly_there"
	StatusOverBudget  = "over_budget"
)

var nearlyThere = decimal.RequireFromString("0.8")

// BudgetLine compares one category budget with what was spent against it.
type BudgetLine struct {
	Category  string          `json:"category"`
	Budget    decimal.Decimal `json:"budget"`
	Spent     decimal.Decimal `json:"spent"`
	Remaining decimal.Decimal `json:"remaining"`
	Progress  decimal.Decimal `json:"progress"`
	Status    string          `json:"status"`
}

// BudgetReport is the budget-versus-actual view of one month.
type BudgetReport struct {
	Year      int             `json:"year"`
	Month     time.Month      `json:"month"`
	Lines     []BudgetLine    `json:"lines"`
	Budget    decimal.Decimal `json:"total_budget"`
	Spent     decimal.Decimal `json:"total_spent"`
	Remaining decimal.Decimal `json:"total_remaining"`
	Progress  decimal.Decimal `json:"total_progress"`
}

// Budgets compares the month's budgets with the Expense transactions
// dated in that month. Categories match case-insensitively. Remaining
// never drops below zero; progress is a percentage of the budget, zero
// for an empty budget.
func Budgets(budgets []*domain.Budget, txs []*domain.Transaction, year int, month time.Month) BudgetReport {
	spent := map[string]decimal.Decimal{}
	for _, tx := range txs {
		if !strings.EqualFold(tx.Type, domain.TypeExpense) {
			continue
		}
		if tx.Date.Year != year || tx.Date.Month != month {
			continue
		}
		key := strings.ToLower(strings.TrimSpace(tx.Category))
		spent[key] = spent[key].Add(tx.Amount)
	}

	r := BudgetReport{Year: year, Month: month, Lines: []BudgetLine{}}
	for _, b := range budgets {
		if b.Year != year || b.Month != month {
			continue
		}
		line := BudgetLine{
			Category: b.Category,
			Budget:   b.Amount,
			Spent:    spent[strings.ToLower(strings.TrimSpace(b.Category))],
		}
		line.Remaining = decimal.Max(line.Budget.Sub(line.Spent), decimal.Zero)
		line.Progress, line.Status = progress(line.Spent, line.Budget)
		r.Lines = append(r.Lines, line)

		r.Budget = r.Budget.Add(line.Budget)
		r.Spent = r.Spent.Add(line.Spent)
	}
	r.Remaining = decimal.Max(r.Budget.Sub(r.Spent), decimal.Zero)
	r.Progress, _ = progress(r.Spent, r.Budget)
	return r
}

func progress(spent, budget decimal.Decimal) (decimal.Decimal, string) {
	if !budget.IsPositive() {
		if spent.IsPositive() {
			return decimal.Zero, StatusOverBudget
		}
		return decimal.Zero, StatusOnTrack
	}
	ratio := spent.Div(budget)
	status := StatusOnTrack
	switch {
	case ratio.GreaterThanOrEqual(decimal.NewFromInt(1)):
		status = StatusOverBudget
	case ratio.GreaterThanOrEqual(nearlyThere):
		status = StatusNearlyThere
	}
	return ratio.Mul(hundred).Round(2), status
}
