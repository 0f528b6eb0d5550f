package sqlite

import (
	"github.com/dvloznov/personal-finance/internal/domain"
	"github.com/shopspring/decimal"
)

type seedTemplate struct {
	name, icon, txType, category string
	amount                       int64
	sortOrder                    int
}

// starterTemplates are installed by SeedDefaults for a new user.
var starterTemplates = []seedTemplate{
	{"Monthly Salary", "💰", domain.TypeIncome, "Salary", 5000, 1},
	{"Interest Income", "🏦", domain.TypeIncome, "Investment", 50, 2},
	{"BOX STOCKS ESPP", "📈", domain.TypeIncome, "Investment", 0, 3},
	{"Tax Refund", "💸", domain.TypeIncome, "Tax", 800, 4},
	{"BOX RSU", "📊", domain.TypeIncome, "Investment", 2000, 5},
	{"BOX ESPP PROFIT", "💹", domain.TypeIncome, "Investment", 500, 6},

	{"TAXES PAID", "🏛️", domain.TypeTax, "Tax", 1200, 10},

	{"Mortgage", "🏠", domain.TypeExpense, "Housing", 2500, 20},
	{"HOA", "🏢", domain.TypeExpense, "Housing", 100, 21},
	{"Property Tax", "🏘️", domain.TypeExpense, "Housing", 0, 22},
	{"Furniture", "🛋️", domain.TypeExpense, "Shopping", 800, 23},
	{"Utilities", "⚡", domain.TypeExpense, "Bills & Utilities", 0, 24},
	{"Jewelry", "💎", domain.TypeExpense, "Shopping", 500, 25},

	{"Car Loan", "🚗", domain.TypeExpense, "Transportation", 450, 30},
	{"Car Insurance", "🚙", domain.TypeExpense, "Transportation", 150, 31},
	{"Gas", "⛽", domain.TypeExpense, "Transportation", 60, 32},

	{"401K Pretax", "🏦", domain.TypeIncome, "Retirement", 800, 40},
	{"401k Roth", "🏦", domain.TypeInvestment, "Retirement", 500, 41},
	{"HSA", "🏥", domain.TypeIncome, "Healthcare", 300, 42},

	{"Credit Card", "💳", domain.TypeExpense, "Credit Card", 200, 50},
	{"Extra Principal", "🏠", domain.TypeExpense, "Housing", 300, 51},

	{"Savings Transfer", "💰", domain.TypeTransfer, "Savings", 0, 60},
	{"ROBINHOOD", "📈", domain.TypeInvestment, "Investment", 500, 61},
	{"Savings Withdraw", "💸", domain.TypeTransfer, "Savings", 500, 62},
	{"GOLD Investment", "🥇", domain.TypeInvestment, "Investment", 200, 63},
	{"Money to India", "🌏", domain.TypeTransfer, "Transfer", 0, 64},
}

// StarterTemplates returns the built-in templates as creation inputs.
func StarterTemplates() []domain.NewTemplate {
	out := make([]domain.NewTemplate, 0, len(starterTemplates))
	for _, s := range starterTemplates {
		amount := decimal.NewFromInt(s.amount)
		out = append(out, domain.NewTemplate{
			Name:            s.name,
			Icon:            s.icon,
			TransactionType: s.txType,
			Category:        s.category,
			DefaultAmount:   &amount,
			SortOrder:       s.sortOrder,
		})
	}
	return out
}
