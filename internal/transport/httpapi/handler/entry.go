package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/coinkeep/coinkeep/internal/ledger"
	"github.com/coinkeep/coinkeep/internal/transport/httpapi/middleware"
	"github.com/coinkeep/coinkeep/pkg/money"
)

// EntryServiceInterface defines the ledger operations the entry handler
// needs
type EntryServiceInterface interface {
	CreateEntry(ctx context.Context, entry *ledger.Entry) error
	GetEntry(ctx context.Context, userID, id uuid.UUID) (*ledger.Entry, error)
	UpdateEntry(ctx context.Context, entry *ledger.Entry) error
	DeleteEntry(ctx context.Context, userID, id uuid.UUID) error
	BulkDelete(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) error
	BulkDuplicate(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) error
	EntriesForDisplay(ctx context.Context, userID uuid.UUID) ([]ledger.EntryGroup, error)
	ToggleClear(ctx context.Context, userID, id uuid.UUID) (*ledger.Entry, error)
}

// EntryHandler handles entry-related HTTP requests
type EntryHandler struct {
	service EntryServiceInterface
}

// NewEntryHandler creates a new entry handler
func NewEntryHandler(service EntryServiceInterface) *EntryHandler {
	return &EntryHandler{service: service}
}

// SplitLineRequest is one line of a split entry request
type SplitLineRequest struct {
	Amount   string `json:"amount"`
	Category string `json:"category,omitempty"`
	IsLoan   bool   `json:"is_loan,omitempty"`
	Loan     string `json:"loan,omitempty"`
	Memo     string `json:"memo,omitempty"`
}

// EntryRequest represents an entry create/update request. Only the
// fields relevant to the kind need to be set.
type EntryRequest struct {
	Kind        string             `json:"kind"`
	Date        string             `json:"date"`
	Memo        string             `json:"memo,omitempty"`
	Amount      string             `json:"amount,omitempty"`
	Account     string             `json:"account,omitempty"`
	Category    string             `json:"category,omitempty"`
	Payee       string             `json:"payee,omitempty"`
	FromAccount string             `json:"from_account,omitempty"`
	ToAccount   string             `json:"to_account,omitempty"`
	TotalAmount string             `json:"total_amount,omitempty"`
	SplitType   string             `json:"split_type,omitempty"`
	Splits      []SplitLineRequest `json:"splits,omitempty"`
	Loan        string             `json:"loan,omitempty"`
	LoanType    string             `json:"loan_type,omitempty"`
}

// BulkEntryRequest carries the target entry ids of a bulk operation
type BulkEntryRequest struct {
	IDs []string `json:"ids"`
}

// EntryResponse represents an entry response
type EntryResponse struct {
	ID          string             `json:"id"`
	Kind        string             `json:"kind"`
	Date        string             `json:"date"`
	CreatedAt   *string            `json:"created_at,omitempty"`
	Memo        string             `json:"memo,omitempty"`
	ClearStatus string             `json:"clear_status"`
	Amount      string             `json:"amount,omitempty"`
	Account     string             `json:"account,omitempty"`
	Category    string             `json:"category,omitempty"`
	Payee       string             `json:"payee,omitempty"`
	FromAccount string             `json:"from_account,omitempty"`
	ToAccount   string             `json:"to_account,omitempty"`
	TotalAmount string             `json:"total_amount,omitempty"`
	SplitType   string             `json:"split_type,omitempty"`
	Splits      []SplitLineRequest `json:"splits,omitempty"`
	Loan        string             `json:"loan,omitempty"`
	LoanType    string             `json:"loan_type,omitempty"`
}

// EntryGroupResponse is one date bucket of the entry feed
type EntryGroupResponse struct {
	Date    string          `json:"date"`
	Entries []EntryResponse `json:"entries"`
}

// CreateEntry handles POST /entries
func (h *EntryHandler) CreateEntry(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req EntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	entry, err := entryFromRequest(userID, req)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.service.CreateEntry(r.Context(), entry); err != nil {
		respondLedgerError(w, err)
		return
	}
	respondJSON(w, toEntryResponse(entry), http.StatusCreated)
}

// ListEntries handles GET /entries, grouped by date newest first
func (h *EntryHandler) ListEntries(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	groups, err := h.service.EntriesForDisplay(r.Context(), userID)
	if err != nil {
		respondLedgerError(w, err)
		return
	}

	response := make([]EntryGroupResponse, 0, len(groups))
	for _, g := range groups {
		gr := EntryGroupResponse{Date: formatDate(g.Date)}
		for _, e := range g.Entries {
			gr.Entries = append(gr.Entries, toEntryResponse(e))
		}
		response = append(response, gr)
	}
	respondJSON(w, response, http.StatusOK)
}

// GetEntry handles GET /entries/{id}
func (h *EntryHandler) GetEntry(w http.ResponseWriter, r *http.Request) {
	userID, entryID, ok := userAndID(w, r)
	if !ok {
		return
	}

	entry, err := h.service.GetEntry(r.Context(), userID, entryID)
	if err != nil {
		respondLedgerError(w, err)
		return
	}
	respondJSON(w, toEntryResponse(entry), http.StatusOK)
}

// UpdateEntry handles PUT /entries/{id}. The clear status is not
// editable here; it moves only through toggle-clear and the
// reconciliation endpoints.
func (h *EntryHandler) UpdateEntry(w http.ResponseWriter, r *http.Request) {
	userID, entryID, ok := userAndID(w, r)
	if !ok {
		return
	}

	var req EntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	current, err := h.service.GetEntry(r.Context(), userID, entryID)
	if err != nil {
		respondLedgerError(w, err)
		return
	}

	entry, err := entryFromRequest(userID, req)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	entry.ID = current.ID
	entry.CreatedAt = current.CreatedAt
	entry.ClearStatus = current.ClearStatus
	entry.ReconciledAt = current.ReconciledAt
	entry.ReconcileSessionID = current.ReconcileSessionID

	if err := h.service.UpdateEntry(r.Context(), entry); err != nil {
		respondLedgerError(w, err)
		return
	}
	respondJSON(w, toEntryResponse(entry), http.StatusOK)
}

// DeleteEntry handles DELETE /entries/{id}
func (h *EntryHandler) DeleteEntry(w http.ResponseWriter, r *http.Request) {
	userID, entryID, ok := userAndID(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteEntry(r.Context(), userID, entryID); err != nil {
		respondLedgerError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ToggleClear handles POST /entries/{id}/toggle-clear
func (h *EntryHandler) ToggleClear(w http.ResponseWriter, r *http.Request) {
	userID, entryID, ok := userAndID(w, r)
	if !ok {
		return
	}

	entry, err := h.service.ToggleClear(r.Context(), userID, entryID)
	if err != nil {
		respondLedgerError(w, err)
		return
	}
	respondJSON(w, toEntryResponse(entry), http.StatusOK)
}

// BulkDelete handles POST /entries/bulk-delete
func (h *EntryHandler) BulkDelete(w http.ResponseWriter, r *http.Request) {
	h.bulk(w, r, func(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) error {
		return h.service.BulkDelete(ctx, userID, ids)
	}, "deleted")
}

// BulkDuplicate handles POST /entries/bulk-duplicate
func (h *EntryHandler) BulkDuplicate(w http.ResponseWriter, r *http.Request) {
	h.bulk(w, r, func(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) error {
		return h.service.BulkDuplicate(ctx, userID, ids)
	}, "duplicated")
}

func (h *EntryHandler) bulk(w http.ResponseWriter, r *http.Request, op func(context.Context, uuid.UUID, []uuid.UUID) error, status string) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req BulkEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.IDs) == 0 {
		respondWithError(w, http.StatusBadRequest, "ids are required")
		return
	}

	ids := make([]uuid.UUID, 0, len(req.IDs))
	for _, raw := range req.IDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "invalid entry id: "+raw)
			return
		}
		ids = append(ids, id)
	}

	if err := op(r.Context(), userID, ids); err != nil {
		respondLedgerError(w, err)
		return
	}
	respondJSON(w, map[string]any{"status": status, "count": len(ids)}, http.StatusOK)
}

// conversion helpers

func entryFromRequest(userID uuid.UUID, req EntryRequest) (*ledger.Entry, error) {
	date, err := parseDate(req.Date)
	if err != nil {
		return nil, err
	}

	entry := &ledger.Entry{
		UserID:      userID,
		Kind:        ledger.EntryKind(req.Kind),
		Date:        date,
		Memo:        req.Memo,
		Account:     req.Account,
		Category:    req.Category,
		Payee:       req.Payee,
		FromAccount: req.FromAccount,
		ToAccount:   req.ToAccount,
		SplitType:   ledger.CategoryType(req.SplitType),
		Loan:        req.Loan,
		LoanType:    ledger.LoanType(req.LoanType),
	}

	if req.Amount != "" {
		if entry.Amount, err = money.Parse(req.Amount); err != nil {
			return nil, err
		}
	}
	if req.TotalAmount != "" {
		if entry.TotalAmount, err = money.Parse(req.TotalAmount); err != nil {
			return nil, err
		}
	}
	for _, line := range req.Splits {
		amount, err := money.Parse(line.Amount)
		if err != nil {
			return nil, err
		}
		entry.Splits = append(entry.Splits, ledger.SplitLine{
			Amount:   amount,
			Category: line.Category,
			IsLoan:   line.IsLoan,
			Loan:     line.Loan,
			Memo:     line.Memo,
		})
	}
	return entry, nil
}

func toEntryResponse(e *ledger.Entry) EntryResponse {
	resp := EntryResponse{
		ID:          e.ID.String(),
		Kind:        string(e.Kind),
		Date:        formatDate(e.Date),
		Memo:        e.Memo,
		ClearStatus: string(e.ClearStatus),
		Account:     e.Account,
		Category:    e.Category,
		Payee:       e.Payee,
		FromAccount: e.FromAccount,
		ToAccount:   e.ToAccount,
		SplitType:   string(e.SplitType),
		Loan:        e.Loan,
		LoanType:    string(e.LoanType),
	}
	if e.CreatedAt != nil {
		t := e.CreatedAt.Format(time.RFC3339)
		resp.CreatedAt = &t
	}
	if !e.Amount.IsZero() {
		resp.Amount = e.Amount.String()
	}
	if !e.TotalAmount.IsZero() {
		resp.TotalAmount = e.TotalAmount.String()
	}
	for _, line := range e.Splits {
		resp.Splits = append(resp.Splits, SplitLineRequest{
			Amount:   line.Amount.String(),
			Category: line.Category,
			IsLoan:   line.IsLoan,
			Loan:     line.Loan,
			Memo:     line.Memo,
		})
	}
	return resp
}
