package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dvloznov/finance-ledger/internal/api/middleware"
	"github.com/dvloznov/finance-ledger/internal/category"
)

// CategoriesHandler handles category endpoints.
type CategoriesHandler struct {
	svc *category.Service
	log zerolog.Logger
}

// NewCategoriesHandler creates a new categories handler.
func NewCategoriesHandler(svc *category.Service, log zerolog.Logger) *CategoriesHandler {
	return &CategoriesHandler{svc: svc, log: log}
}

type categoryPayload struct {
	Name     string `json:"name"`
	IconName string `json:"icon_name"`
}

// CreateCategory handles POST /api/categories
func (h *CategoriesHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := middleware.OwnerID(r.Context())
	if !ok {
		middleware.WriteError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var payload categoryPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if payload.Name == "" {
		middleware.WriteError(w, http.StatusBadRequest, "Name is required")
		return
	}

	created, err := h.svc.Create(r.Context(), ownerID, category.Input{
		Name:     payload.Name,
		IconName: payload.IconName,
	})
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}

	middleware.WriteJSON(w, http.StatusCreated, created)
}

// ListCategories handles GET /api/categories
func (h *CategoriesHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := middleware.OwnerID(r.Context())
	if !ok {
		middleware.WriteError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	categories, err := h.svc.List(r.Context(), ownerID)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"categories": categories,
		"count":      len(categories),
	})
}

// GetCategory handles GET /api/categories/:id
func (h *CategoriesHandler) GetCategory(w http.ResponseWriter, r *http.Request, categoryID string) {
	ownerID, ok := middleware.OwnerID(r.Context())
	if !ok {
		middleware.WriteError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	id, err := uuid.Parse(categoryID)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid category id")
		return
	}

	cat, err := h.svc.Get(r.Context(), ownerID, id)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, cat)
}

// UpdateCategory handles PUT /api/categories/:id
func (h *CategoriesHandler) UpdateCategory(w http.ResponseWriter, r *http.Request, categoryID string) {
	ownerID, ok := middleware.OwnerID(r.Context())
	if !ok {
		middleware.WriteError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	id, err := uuid.Parse(categoryID)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid category id")
		return
	}

	var payload categoryPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if payload.Name == "" {
		middleware.WriteError(w, http.StatusBadRequest, "Name is required")
		return
	}

	updated, err := h.svc.Update(r.Context(), ownerID, id, category.Input{
		Name:     payload.Name,
		IconName: payload.IconName,
	})
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, updated)
}

// DeleteCategory handles DELETE /api/categories/:id
func (h *CategoriesHandler) DeleteCategory(w http.ResponseWriter, r *http.Request, categoryID string) {
	ownerID, ok := middleware.OwnerID(r.Context())
	if !ok {
		middleware.WriteError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	id, err := uuid.Parse(categoryID)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid category id")
		return
	}

	if err := h.svc.Delete(r.Context(), ownerID, id); err != nil {
		writeServiceError(w, h.log, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
