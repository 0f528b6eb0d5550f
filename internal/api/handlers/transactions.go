package handlers

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/dvloznov/personal-finance/internal/api/middleware"
	"github.com/dvloznov/personal-finance/internal/domain"
	"github.com/dvloznov/personal-finance/internal/logger"
	"github.com/shopspring/decimal"
)

// customFieldPrefix marks query parameters that filter on custom fields,
// e.g. ?cf.coin_name=Bitcoin.
const customFieldPrefix = "cf."

// TransactionsHandler handles transaction endpoints.
type TransactionsHandler struct {
	store     TransactionStore
	suggester CategorySuggester
}

// NewTransactionsHandler creates a new transactions handler. suggester may
// be nil, which disables category suggestions.
func NewTransactionsHandler(store TransactionStore, suggester CategorySuggester) *TransactionsHandler {
	return &TransactionsHandler{store: store, suggester: suggester}
}

// List handles GET /api/transactions.
func (h *TransactionsHandler) List(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r.URL.Query())
	if err != nil {
		writeBadRequest(w, r, err)
		return
	}
	if f.Limit, err = intParam(r, "limit"); err != nil {
		writeBadRequest(w, r, err)
		return
	}
	if f.Offset, err = intParam(r, "offset"); err != nil {
		writeBadRequest(w, r, err)
		return
	}

	txs, err := h.store.List(r.Context(), user(r), f)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if txs == nil {
		txs = []*domain.Transaction{}
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"transactions": txs,
		"count":        len(txs),
	})
}

// Add handles POST /api/transactions. Keys that are not core fields are
// stored as custom fields.
func (h *TransactionsHandler) Add(w http.ResponseWriter, r *http.Request) {
	var raw map[string]any
	if err := decodeJSON(r, &raw); err != nil {
		writeBadRequest(w, r, err)
		return
	}

	in, err := domain.ParseTransactionInput(raw)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	res, err := h.store.Add(r.Context(), user(r), in)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, res)
}

// Get handles GET /api/transactions/{id}.
func (h *TransactionsHandler) Get(w http.ResponseWriter, r *http.Request) {
	tx, err := h.store.Get(r.Context(), user(r), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, tx)
}

// Update handles PATCH /api/transactions/{id}.
func (h *TransactionsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var raw map[string]any
	if err := decodeJSON(r, &raw); err != nil {
		writeBadRequest(w, r, err)
		return
	}

	c, err := parseChanges(raw)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	if err := h.store.Update(r.Context(), user(r), r.PathValue("id"), c); err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Delete handles DELETE /api/transactions/{id}.
func (h *TransactionsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Delete(r.Context(), user(r), r.PathValue("id")); err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Categories handles GET /api/categories.
func (h *TransactionsHandler) Categories(w http.ResponseWriter, r *http.Request) {
	cats, err := h.store.Categories(r.Context(), user(r))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if cats == nil {
		cats = []string{}
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"categories": cats,
		"count":      len(cats),
	})
}

// SuggestCategory handles POST /api/transactions/suggest-category. The
// candidates are the categories the user has already used.
func (h *TransactionsHandler) SuggestCategory(w http.ResponseWriter, r *http.Request) {
	if h.suggester == nil {
		middleware.WriteError(w, http.StatusServiceUnavailable, "Category suggestions are not configured")
		return
	}

	var req struct {
		Description string `json:"description"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, r, err)
		return
	}
	if strings.TrimSpace(req.Description) == "" {
		writeBadRequest(w, r, fmt.Errorf("description is required"))
		return
	}

	ctx := r.Context()
	cats, err := h.store.Categories(ctx, user(r))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	category, err := h.suggester.Suggest(ctx, req.Description, cats)
	if err != nil {
		log := logger.FromContext(ctx)
		log.Error().Err(err).Msg("Failed to suggest category")
		middleware.WriteError(w, http.StatusBadGateway, "Category suggestion failed")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]string{"category": category})
}

// parseFilter reads listing filters from query parameters. Limit and
// offset are read separately.
func parseFilter(q url.Values) (domain.TransactionFilter, error) {
	var f domain.TransactionFilter
	var err error

	if s := q.Get("from"); s != "" {
		if f.From, err = domain.ParseDate(s); err != nil {
			return f, fmt.Errorf("from: %w", err)
		}
	}
	if s := q.Get("to"); s != "" {
		if f.To, err = domain.ParseDate(s); err != nil {
			return f, fmt.Errorf("to: %w", err)
		}
	}
	if s := q.Get("min_amount"); s != "" {
		d, err := decimal.NewFromString(s)
		if err != nil {
			return f, fmt.Errorf("min_amount %q is not a decimal number", s)
		}
		f.MinAmount = &d
	}
	if s := q.Get("max_amount"); s != "" {
		d, err := decimal.NewFromString(s)
		if err != nil {
			return f, fmt.Errorf("max_amount %q is not a decimal number", s)
		}
		f.MaxAmount = &d
	}

	f.Categories = q["category"]
	f.Types = q["type"]
	f.PaymentMethods = q["payment_method"]
	f.DescriptionContains = q.Get("q")

	for key, vals := range q {
		if name, ok := strings.CutPrefix(key, customFieldPrefix); ok && name != "" && len(vals) > 0 {
			if f.CustomFieldEquals == nil {
				f.CustomFieldEquals = map[string]string{}
			}
			f.CustomFieldEquals[name] = vals[0]
		}
	}
	return f, nil
}

// parseChanges builds a partial update. Absent keys are left untouched;
// custom_fields is merged unless replace_custom_fields is true, and a null
// custom field value removes that key.
func parseChanges(raw map[string]any) (domain.TransactionChanges, error) {
	var c domain.TransactionChanges

	str := func(key string) (*string, error) {
		v, ok := raw[key]
		if !ok {
			return nil, nil
		}
		if v == nil {
			empty := ""
			return &empty, nil
		}
		s, ok := v.(string)
		if !ok {
			return nil, &domain.TransactionError{Reason: key + " must be a string"}
		}
		s = strings.TrimSpace(s)
		return &s, nil
	}

	var err error
	if c.Type, err = str("type"); err != nil {
		return c, err
	}
	if c.Category, err = str("category"); err != nil {
		return c, err
	}
	if c.Description, err = str("description"); err != nil {
		return c, err
	}
	if c.PaymentMethod, err = str("payment_method"); err != nil {
		return c, err
	}

	if v, ok := raw["date"]; ok {
		s, ok := v.(string)
		if !ok {
			return c, &domain.TransactionError{Reason: "date must be a YYYY-MM-DD string"}
		}
		d, err := domain.ParseDate(s)
		if err != nil {
			return c, &domain.TransactionError{Reason: err.Error()}
		}
		c.Date = &d
	}

	if v, ok := raw["amount"]; ok {
		d, ok := domain.ParseDecimal(v)
		if !ok {
			return c, &domain.TransactionError{Reason: fmt.Sprintf("amount %v is not a decimal number", v)}
		}
		c.Amount = &d
	}

	if v, ok := raw["custom_fields"]; ok && v != nil {
		obj, ok := v.(map[string]any)
		if !ok {
			return c, &domain.TransactionError{Reason: "custom_fields must be an object"}
		}
		c.CustomFields = domain.CustomFields(obj)
	}
	if v, ok := raw["replace_custom_fields"]; ok {
		b, ok := v.(bool)
		if !ok {
			return c, &domain.TransactionError{Reason: "replace_custom_fields must be a boolean"}
		}
		c.ReplaceCustomFields = b
	}

	return c, nil
}
