// Package api assembles the HTTP surface of the ledger.
package api

import (
	"net/http"
	"time"

	"github.com/dvloznov/personal-finance/internal/api/handlers"
	"github.com/dvloznov/personal-finance/internal/api/middleware"
	"github.com/dvloznov/personal-finance/internal/jobs"
	"github.com/rs/zerolog"
)

// HealthPath is served without authentication.
const HealthPath = "/health"

// Deps are the collaborators behind the routes. Suggester may be nil.
type Deps struct {
	Templates    handlers.TemplateStore
	Transactions handlers.TransactionStore
	NetWorth     handlers.NetWorthStore
	Budgets      handlers.BudgetStore
	Suggester    handlers.CategorySuggester
	Publisher    jobs.Publisher
	Jobs         jobs.Store
}

// NewHandler registers every route and wraps the mux in the middleware
// chain Recovery, Logger, RequestID, CORS, Auth.
func NewHandler(d Deps, log zerolog.Logger) http.Handler {
	templates := handlers.NewTemplatesHandler(d.Templates)
	transactions := handlers.NewTransactionsHandler(d.Transactions, d.Suggester)
	dashboard := handlers.NewSummaryHandler(d.Transactions)
	netWorth := handlers.NewNetWorthHandler(d.NetWorth)
	budgets := handlers.NewBudgetsHandler(d.Budgets, d.Transactions)
	jobsHandler := handlers.NewJobsHandler(d.Publisher, d.Jobs)

	mux := http.NewServeMux()

	// Templates endpoints
	mux.HandleFunc("GET /api/templates", templates.List)
	mux.HandleFunc("POST /api/templates", templates.Create)
	mux.HandleFunc("POST /api/templates/seed", templates.Seed)
	mux.HandleFunc("GET /api/templates/{id}", templates.Get)
	mux.HandleFunc("PATCH /api/templates/{id}", templates.Update)
	mux.HandleFunc("DELETE /api/templates/{id}", templates.Delete)
	mux.HandleFunc("POST /api/templates/{id}/activate", templates.Activate)
	mux.HandleFunc("POST /api/templates/{id}/deactivate", templates.Deactivate)

	// Transactions endpoints
	mux.HandleFunc("GET /api/transactions", transactions.List)
	mux.HandleFunc("POST /api/transactions", transactions.Add)
	mux.HandleFunc("POST /api/transactions/suggest-category", transactions.SuggestCategory)
	mux.HandleFunc("GET /api/transactions/{id}", transactions.Get)
	mux.HandleFunc("PATCH /api/transactions/{id}", transactions.Update)
	mux.HandleFunc("DELETE /api/transactions/{id}", transactions.Delete)
	mux.HandleFunc("GET /api/categories", transactions.Categories)

	mux.HandleFunc("GET /api/summary", dashboard.Get)

	// Net worth endpoints
	mux.HandleFunc("GET /api/networth", netWorth.Totals)
	mux.HandleFunc("GET /api/networth/items", netWorth.ListItems)
	mux.HandleFunc("POST /api/networth/items", netWorth.AddItem)
	mux.HandleFunc("PATCH /api/networth/items/{id}", netWorth.UpdateItem)
	mux.HandleFunc("DELETE /api/networth/items/{id}", netWorth.DeleteItem)

	// Budget endpoints
	mux.HandleFunc("GET /api/budgets", budgets.List)
	mux.HandleFunc("PUT /api/budgets", budgets.Set)
	mux.HandleFunc("DELETE /api/budgets/{id}", budgets.Delete)

	// Jobs endpoints
	mux.HandleFunc("GET /api/jobs", jobsHandler.List)
	mux.HandleFunc("POST /api/jobs", jobsHandler.Enqueue)
	mux.HandleFunc("GET /api/jobs/{id}", jobsHandler.Get)

	// Health check endpoint
	mux.HandleFunc("GET "+HealthPath, func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	return middleware.Chain(mux,
		middleware.Recovery(log),
		middleware.Logger(log),
		middleware.RequestID,
		middleware.CORS,
		middleware.Auth(HealthPath),
	)
}
