package handlers

import (
	"errors"
	"net/http"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/personal-finance/internal/api/middleware"
	"github.com/dvloznov/personal-finance/internal/domain"
	"github.com/dvloznov/personal-finance/internal/summary"
)

// BudgetsHandler handles budget endpoints.
type BudgetsHandler struct {
	budgets      BudgetStore
	transactions TransactionStore
	now          func() time.Time
}

// NewBudgetsHandler creates a new budgets handler.
func NewBudgetsHandler(budgets BudgetStore, transactions TransactionStore) *BudgetsHandler {
	return &BudgetsHandler{budgets: budgets, transactions: transactions, now: time.Now}
}

// List handles GET /api/budgets?year=&month=. The period defaults to the
// current month. The response compares each budget with the month's
// spending.
func (h *BudgetsHandler) List(w http.ResponseWriter, r *http.Request) {
	year, month, err := h.period(r)
	if err != nil {
		writeBadRequest(w, r, err)
		return
	}

	ctx := r.Context()
	budgets, err := h.budgets.List(ctx, user(r), year, month)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	txs, err := h.transactions.List(ctx, user(r), domain.TransactionFilter{
		From: civil.Date{Year: year, Month: month, Day: 1},
		To:   civil.DateOf(time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC)),
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"budgets": budgets,
		"report":  summary.Budgets(budgets, txs, year, month),
	})
}

// Set handles PUT /api/budgets. It creates or replaces the budget for a
// category and month.
func (h *BudgetsHandler) Set(w http.ResponseWriter, r *http.Request) {
	var in domain.NewBudget
	if err := decodeJSON(r, &in); err != nil {
		writeBadRequest(w, r, err)
		return
	}

	b, err := h.budgets.Set(r.Context(), user(r), in)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, b)
}

// Delete handles DELETE /api/budgets/{id}.
func (h *BudgetsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.budgets.Delete(r.Context(), user(r), r.PathValue("id")); err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *BudgetsHandler) period(r *http.Request) (int, time.Month, error) {
	now := h.now()
	year, err := intParam(r, "year")
	if err != nil {
		return 0, 0, err
	}
	month, err := intParam(r, "month")
	if err != nil {
		return 0, 0, err
	}
	if year == 0 {
		year = now.Year()
	}
	if month == 0 {
		month = int(now.Month())
	}
	if month > 12 {
		return 0, 0, errors.New("month must be between 1 and 12")
	}
	return year, time.Month(month), nil
}
