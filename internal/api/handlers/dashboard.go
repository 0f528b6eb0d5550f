package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/dvloznov/personal-finance/internal/api/middleware"
	"github.com/dvloznov/personal-finance/internal/domain"
	"github.com/dvloznov/personal-finance/internal/jobs"
	"github.com/dvloznov/personal-finance/internal/logger"
	"github.com/dvloznov/personal-finance/internal/networth"
	"github.com/dvloznov/personal-finance/internal/summary"
	"github.com/shopspring/decimal"
)

// SummaryHandler serves the dashboard figures.
type SummaryHandler struct {
	store TransactionStore
}

// NewSummaryHandler creates a new summary handler.
func NewSummaryHandler(store TransactionStore) *SummaryHandler {
	return &SummaryHandler{store: store}
}

// Get handles GET /api/summary. It accepts the transaction list filters.
func (h *SummaryHandler) Get(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r.URL.Query())
	if err != nil {
		writeBadRequest(w, r, err)
		return
	}

	txs, err := h.store.List(r.Context(), user(r), f)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, summary.Compute(txs))
}

// NetWorthHandler handles net-worth endpoints.
type NetWorthHandler struct {
	store NetWorthStore
}

// NewNetWorthHandler creates a new net-worth handler.
func NewNetWorthHandler(store NetWorthStore) *NetWorthHandler {
	return &NetWorthHandler{store: store}
}

// Totals handles GET /api/networth.
func (h *NetWorthHandler) Totals(w http.ResponseWriter, r *http.Request) {
	items, err := h.store.ListItems(r.Context(), user(r), "")
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, networth.Compute(items))
}

// ListItems handles GET /api/networth/items?kind=.
func (h *NetWorthHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	kind := domain.ItemKind(r.URL.Query().Get("kind"))
	if kind != "" && !kind.Valid() {
		writeBadRequest(w, r, fmt.Errorf("unknown kind %q", kind))
		return
	}

	items, err := h.store.ListItems(r.Context(), user(r), kind)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if items == nil {
		items = []*domain.NetWorthItem{}
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"items": items,
		"count": len(items),
	})
}

// AddItem handles POST /api/networth/items.
func (h *NetWorthHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var item domain.NetWorthItem
	if err := decodeJSON(r, &item); err != nil {
		writeBadRequest(w, r, err)
		return
	}

	id, err := h.store.AddItem(r.Context(), user(r), item)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, map[string]string{"id": id})
}

// UpdateItem handles PATCH /api/networth/items/{id}.
func (h *NetWorthHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Value *decimal.Decimal `json:"value"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, r, err)
		return
	}
	if req.Value == nil {
		writeBadRequest(w, r, errors.New("value is required"))
		return
	}

	if err := h.store.UpdateItemValue(r.Context(), user(r), r.PathValue("id"), *req.Value); err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteItem handles DELETE /api/networth/items/{id}.
func (h *NetWorthHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	if err := h.store.DeleteItem(r.Context(), user(r), r.PathValue("id")); err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// JobsHandler handles job endpoints.
type JobsHandler struct {
	publisher jobs.Publisher
	store     jobs.Store
}

// NewJobsHandler creates a new jobs handler.
func NewJobsHandler(publisher jobs.Publisher, store jobs.Store) *JobsHandler {
	return &JobsHandler{publisher: publisher, store: store}
}

// Enqueue handles POST /api/jobs.
func (h *JobsHandler) Enqueue(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Kind   jobs.Kind         `json:"kind"`
		Params map[string]string `json:"params"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, r, err)
		return
	}
	if !req.Kind.Valid() {
		writeBadRequest(w, r, fmt.Errorf("unknown job kind %q", req.Kind))
		return
	}

	ctx := r.Context()
	log := logger.FromContext(ctx)
	job := &jobs.Job{UserID: user(r), Kind: req.Kind, Params: req.Params}
	if err := h.publisher.Publish(ctx, job); err != nil {
		if errors.Is(err, domain.ErrUnauthorized) {
			writeDomainError(w, r, err)
			return
		}
		log.Error().Err(err).Msg("Failed to enqueue job")
		middleware.WriteError(w, http.StatusServiceUnavailable, "Failed to enqueue job")
		return
	}

	log.Info().Str("job_id", job.ID).Str("kind", string(job.Kind)).Msg("Job enqueued")
	middleware.WriteJSON(w, http.StatusAccepted, map[string]string{
		"job_id": job.ID,
		"status": string(job.Status),
	})
}

// Get handles GET /api/jobs/{id}.
func (h *JobsHandler) Get(w http.ResponseWriter, r *http.Request) {
	job, err := h.store.GetJob(r.Context(), user(r), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, job)
}

// List handles GET /api/jobs.
func (h *JobsHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := jobs.Filter{
		Kind:   jobs.Kind(query.Get("kind")),
		Status: jobs.Status(query.Get("status")),
	}
	var err error
	if filter.Limit, err = intParam(r, "limit"); err != nil {
		writeBadRequest(w, r, err)
		return
	}
	if filter.Offset, err = intParam(r, "offset"); err != nil {
		writeBadRequest(w, r, err)
		return
	}

	list, err := h.store.ListJobs(r.Context(), user(r), filter)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if list == nil {
		list = []*jobs.Job{}
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  list,
		"count": len(list),
	})
}
