package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/coinkeep/coinkeep/internal/ledger"
	"github.com/coinkeep/coinkeep/internal/transport/httpapi/middleware"
)

// CategoryServiceInterface defines the ledger operations the category
// handler needs
type CategoryServiceInterface interface {
	CreateCategory(ctx context.Context, category *ledger.Category) error
	UpdateCategory(ctx context.Context, category *ledger.Category) error
	DeleteCategory(ctx context.Context, userID, id uuid.UUID) error
	RenameCategory(ctx context.Context, userID, id uuid.UUID, newName string) error
	ListCategories(ctx context.Context, userID uuid.UUID) ([]*ledger.Category, error)
}

// CategoryHandler handles category-related HTTP requests
type CategoryHandler struct {
	service CategoryServiceInterface
}

// NewCategoryHandler creates a new category handler
func NewCategoryHandler(service CategoryServiceInterface) *CategoryHandler {
	return &CategoryHandler{service: service}
}

// CategoryRequest represents a category create/update request
type CategoryRequest struct {
	Name         string `json:"name"`
	Type         string `json:"type"`
	Group        string `json:"group,omitempty"`
	SpendingType string `json:"spending_type,omitempty"`
	Order        *int   `json:"order,omitempty"`
}

// RenameCategoryRequest represents the rename request
type RenameCategoryRequest struct {
	NewName string `json:"new_name"`
}

// CategoryResponse represents a category response
type CategoryResponse struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Type         string `json:"type"`
	Group        string `json:"group,omitempty"`
	SpendingType string `json:"spending_type,omitempty"`
	Order        *int   `json:"order,omitempty"`
}

// CreateCategory handles POST /categories
func (h *CategoryHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req CategoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	category := &ledger.Category{
		ID:           uuid.New(),
		UserID:       userID,
		Name:         req.Name,
		Type:         ledger.CategoryType(req.Type),
		Group:        req.Group,
		SpendingType: ledger.SpendingType(req.SpendingType),
		Order:        req.Order,
	}

	if err := h.service.CreateCategory(r.Context(), category); err != nil {
		respondLedgerError(w, err)
		return
	}
	respondJSON(w, toCategoryResponse(category), http.StatusCreated)
}

// ListCategories handles GET /categories
func (h *CategoryHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	categories, err := h.service.ListCategories(r.Context(), userID)
	if err != nil {
		respondLedgerError(w, err)
		return
	}

	response := make([]CategoryResponse, 0, len(categories))
	for _, c := range categories {
		response = append(response, toCategoryResponse(c))
	}
	respondJSON(w, response, http.StatusOK)
}

// UpdateCategory handles PUT /categories/{id}
func (h *CategoryHandler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	userID, categoryID, ok := userAndID(w, r)
	if !ok {
		return
	}

	var req CategoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	category := &ledger.Category{
		ID:           categoryID,
		UserID:       userID,
		Name:         req.Name,
		Type:         ledger.CategoryType(req.Type),
		Group:        req.Group,
		SpendingType: ledger.SpendingType(req.SpendingType),
		Order:        req.Order,
	}

	if err := h.service.UpdateCategory(r.Context(), category); err != nil {
		respondLedgerError(w, err)
		return
	}
	respondJSON(w, toCategoryResponse(category), http.StatusOK)
}

// RenameCategory handles POST /categories/{id}/rename
func (h *CategoryHandler) RenameCategory(w http.ResponseWriter, r *http.Request) {
	userID, categoryID, ok := userAndID(w, r)
	if !ok {
		return
	}

	var req RenameCategoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.service.RenameCategory(r.Context(), userID, categoryID, req.NewName); err != nil {
		respondLedgerError(w, err)
		return
	}
	respondJSON(w, map[string]string{"status": "renamed"}, http.StatusOK)
}

// DeleteCategory handles DELETE /categories/{id}
func (h *CategoryHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	userID, categoryID, ok := userAndID(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteCategory(r.Context(), userID, categoryID); err != nil {
		respondLedgerError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func toCategoryResponse(c *ledger.Category) CategoryResponse {
	return CategoryResponse{
		ID:           c.ID.String(),
		Name:         c.Name,
		Type:         string(c.Type),
		Group:        c.Group,
		SpendingType: string(c.SpendingType),
		Order:        c.Order,
	}
}
