// Package handlers serves the ledger over HTTP. Every handler reads the
// calling user from the request context set by the Auth middleware and
// passes it to the store; the store enforces ownership.
package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/dvloznov/personal-finance/internal/api/middleware"
	"github.com/dvloznov/personal-finance/internal/domain"
	"github.com/dvloznov/personal-finance/internal/logger"
	"github.com/shopspring/decimal"
)

const maxBodyBytes = 1 << 20

// TemplateStore is the template registry.
type TemplateStore interface {
	Create(ctx context.Context, userID string, in domain.NewTemplate) (string, error)
	ListActive(ctx context.Context, userID string) ([]*domain.Template, error)
	ListAll(ctx context.Context, userID string) ([]*domain.Template, error)
	Get(ctx context.Context, userID, id string) (*domain.Template, error)
	Update(ctx context.Context, userID, id string, c domain.TemplateChanges) error
	Delete(ctx context.Context, userID, id string) error
	Activate(ctx context.Context, userID, id string) error
	Deactivate(ctx context.Context, userID, id string) error
	SeedDefaults(ctx context.Context, userID string) (int, error)
}

// TransactionStore is the transaction store.
type TransactionStore interface {
	Add(ctx context.Context, userID string, in domain.NewTransaction) (*domain.AddResult, error)
	Get(ctx context.Context, userID, id string) (*domain.Transaction, error)
	List(ctx context.Context, userID string, f domain.TransactionFilter) ([]*domain.Transaction, error)
	Update(ctx context.Context, userID, id string, c domain.TransactionChanges) error
	Delete(ctx context.Context, userID, id string) error
	Categories(ctx context.Context, userID string) ([]string, error)
}

// NetWorthStore is the net-worth ledger.
type NetWorthStore interface {
	AddItem(ctx context.Context, userID string, item domain.NetWorthItem) (string, error)
	ListItems(ctx context.Context, userID string, kind domain.ItemKind) ([]*domain.NetWorthItem, error)
	UpdateItemValue(ctx context.Context, userID, id string, value decimal.Decimal) error
	DeleteItem(ctx context.Context, userID, id string) error
}

// BudgetStore holds monthly category budgets.
type BudgetStore interface {
	Set(ctx context.Context, userID string, in domain.NewBudget) (*domain.Budget, error)
	List(ctx context.Context, userID string, year int, month time.Month) ([]*domain.Budget, error)
	Delete(ctx context.Context, userID, id string) error
}

// CategorySuggester picks a category for a description.
type CategorySuggester interface {
	Suggest(ctx context.Context, description string, candidates []string) (string, error)
}

// decodeJSON reads a JSON body into v, keeping numbers as json.Number.
func decodeJSON(r *http.Request, v any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("reading body: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decoding body: %w", err)
	}
	return nil
}

func intParam(r *http.Request, name string) (int, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer", name)
	}
	return n, nil
}

// user returns the caller id; Auth guarantees it is set on routed paths.
func user(r *http.Request) string {
	return middleware.UserID(r.Context())
}

func writeBadRequest(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContext(r.Context())
	log.Debug().Err(err).Msg("Bad request")
	middleware.WriteError(w, http.StatusBadRequest, err.Error())
}
