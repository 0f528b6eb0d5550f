package handlers

import (
	"net/http"

	"github.com/dvloznov/personal-finance/internal/api/middleware"
	"github.com/dvloznov/personal-finance/internal/domain"
)

// TemplatesHandler handles template endpoints.
type TemplatesHandler struct {
	store TemplateStore
}

// NewTemplatesHandler creates a new templates handler.
func NewTemplatesHandler(store TemplateStore) *TemplatesHandler {
	return &TemplatesHandler{store: store}
}

// List handles GET /api/templates. ?all=true includes inactive templates.
func (h *TemplatesHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var (
		templates []*domain.Template
		err       error
	)
	if r.URL.Query().Get("all") == "true" {
		templates, err = h.store.ListAll(ctx, user(r))
	} else {
		templates, err = h.store.ListActive(ctx, user(r))
	}
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if templates == nil {
		templates = []*domain.Template{}
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"templates": templates,
		"count":     len(templates),
	})
}

// Create handles POST /api/templates.
func (h *TemplatesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in domain.NewTemplate
	if err := decodeJSON(r, &in); err != nil {
		writeBadRequest(w, r, err)
		return
	}

	id, err := h.store.Create(r.Context(), user(r), in)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, map[string]string{"id": id})
}

// Get handles GET /api/templates/{id}.
func (h *TemplatesHandler) Get(w http.ResponseWriter, r *http.Request) {
	t, err := h.store.Get(r.Context(), user(r), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, t)
}

// Update handles PATCH /api/templates/{id}.
func (h *TemplatesHandler) Update(w http.ResponseWriter, r *http.Request) {
	var c domain.TemplateChanges
	if err := decodeJSON(r, &c); err != nil {
		writeBadRequest(w, r, err)
		return
	}

	if err := h.store.Update(r.Context(), user(r), r.PathValue("id"), c); err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Delete handles DELETE /api/templates/{id}.
func (h *TemplatesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Delete(r.Context(), user(r), r.PathValue("id")); err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Activate handles POST /api/templates/{id}/activate.
func (h *TemplatesHandler) Activate(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Activate(r.Context(), user(r), r.PathValue("id")); err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Deactivate handles POST /api/templates/{id}/deactivate.
func (h *TemplatesHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Deactivate(r.Context(), user(r), r.PathValue("id")); err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Seed handles POST /api/templates/seed.
func (h *TemplatesHandler) Seed(w http.ResponseWriter, r *http.Request) {
	n, err := h.store.SeedDefaults(r.Context(), user(r))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]int{"created": n})
}
