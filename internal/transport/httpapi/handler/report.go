package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/coinkeep/coinkeep/internal/ledger"
	"github.com/coinkeep/coinkeep/internal/transport/httpapi/middleware"
)

// ReportServiceInterface defines the ledger operations the report
// handler needs
type ReportServiceInterface interface {
	CategoryReport(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]ledger.CategoryTotal, error)
}

// ReportHandler handles reporting HTTP requests
type ReportHandler struct {
	service ReportServiceInterface
}

// NewReportHandler creates a new report handler
func NewReportHandler(service ReportServiceInterface) *ReportHandler {
	return &ReportHandler{service: service}
}

// CategoryTotalResponse is the aggregated flow for one category
type CategoryTotalResponse struct {
	Category string `json:"category"`
	Total    string `json:"total"`
}

// GetCategoryReport handles GET /reports/categories?from=YYYY-MM-DD&to=YYYY-MM-DD.
// Omitted bounds default to the current calendar month.
func (h *ReportHandler) GetCategoryReport(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	now := time.Now().UTC()
	from := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, -1)

	var err error
	if raw := r.URL.Query().Get("from"); raw != "" {
		if from, err = parseDate(raw); err != nil {
			respondWithError(w, http.StatusBadRequest, "invalid from date, expected YYYY-MM-DD")
			return
		}
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		if to, err = parseDate(raw); err != nil {
			respondWithError(w, http.StatusBadRequest, "invalid to date, expected YYYY-MM-DD")
			return
		}
	}
	if to.Before(from) {
		respondWithError(w, http.StatusBadRequest, "to must not precede from")
		return
	}

	totals, err := h.service.CategoryReport(r.Context(), userID, from, to)
	if err != nil {
		respondLedgerError(w, err)
		return
	}

	response := make([]CategoryTotalResponse, 0, len(totals))
	for _, t := range totals {
		response = append(response, CategoryTotalResponse{
			Category: t.Category,
			Total:    t.Total.String(),
		})
	}
	respondJSON(w, response, http.StatusOK)
}
