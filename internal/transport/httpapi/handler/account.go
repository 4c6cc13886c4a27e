package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/coinkeep/coinkeep/internal/ledger"
	"github.com/coinkeep/coinkeep/internal/transport/httpapi/middleware"
	"github.com/coinkeep/coinkeep/pkg/money"
)

// AccountServiceInterface defines the ledger operations the account
// handler needs
type AccountServiceInterface interface {
	CreateAccount(ctx context.Context, account *ledger.Account) error
	GetAccount(ctx context.Context, userID, id uuid.UUID) (*ledger.Account, error)
	UpdateAccount(ctx context.Context, account *ledger.Account) error
	ArchiveAccount(ctx context.Context, userID, id uuid.UUID) error
	DeleteAccount(ctx context.Context, userID, id uuid.UUID) error
	RenameAccount(ctx context.Context, userID, id uuid.UUID, newName string) error
	ReorderAccounts(ctx context.Context, userID uuid.UUID, orderedIDs []uuid.UUID) error
	GroupedAccounts(ctx context.Context, userID uuid.UUID) ([]ledger.AccountGroupView, error)
	AccountBalances(ctx context.Context, userID, id uuid.UUID) (*ledger.AccountBalances, error)
	QuickReconcile(ctx context.Context, userID, accountID uuid.UUID) (*ledger.ReconcilePlan, error)
	ManualReconcile(ctx context.Context, userID, accountID uuid.UUID, statementBalance decimal.Decimal, force bool) (*ledger.ReconcilePlan, error)
	Unreconcile(ctx context.Context, userID, accountID uuid.UUID) (*ledger.ReconcilePlan, error)
}

// AccountHandler handles account-related HTTP requests
type AccountHandler struct {
	service AccountServiceInterface
}

// NewAccountHandler creates a new account handler
func NewAccountHandler(service AccountServiceInterface) *AccountHandler {
	return &AccountHandler{service: service}
}

// CreateAccountRequest represents the account creation request
type CreateAccountRequest struct {
	Name                string  `json:"name"`
	Type                string  `json:"type"`
	StartingBalance     string  `json:"starting_balance,omitempty"`
	StartingBalanceDate *string `json:"starting_balance_date,omitempty"`
	Order               *int    `json:"order,omitempty"`
}

// UpdateAccountRequest represents the account update request. Name is
// absent on purpose: renames go through the rename endpoint so the entry
// cascade is explicit.
type UpdateAccountRequest struct {
	Type                string  `json:"type"`
	StartingBalance     string  `json:"starting_balance,omitempty"`
	StartingBalanceDate *string `json:"starting_balance_date,omitempty"`
	Order               *int    `json:"order,omitempty"`
}

// RenameAccountRequest represents the rename request
type RenameAccountRequest struct {
	NewName string `json:"new_name"`
}

// ReorderAccountsRequest carries the full desired account order
type ReorderAccountsRequest struct {
	OrderedIDs []string `json:"ordered_ids"`
}

// ManualReconcileRequest carries the statement balance to reconcile
// against
type ManualReconcileRequest struct {
	StatementBalance string `json:"statement_balance"`
	Force            bool   `json:"force,omitempty"`
}

// AccountResponse represents an account response
type AccountResponse struct {
	ID                   string  `json:"id"`
	Name                 string  `json:"name"`
	Type                 string  `json:"type"`
	Group                string  `json:"group"`
	IsActive             bool    `json:"is_active"`
	StartingBalance      string  `json:"starting_balance"`
	StartingBalanceDate  *string `json:"starting_balance_date,omitempty"`
	Order                *int    `json:"order,omitempty"`
	LastReconcileDate    *string `json:"last_reconcile_date,omitempty"`
	LastReconcileBalance *string `json:"last_reconcile_balance,omitempty"`
	CreatedAt            string  `json:"created_at"`
}

// AccountGroupResponse is one display group of accounts
type AccountGroupResponse struct {
	Group    string            `json:"group"`
	Accounts []AccountResponse `json:"accounts"`
}

// BalanceResponse is the computed balance triple for one account
type BalanceResponse struct {
	Account      AccountResponse `json:"account"`
	Working      string          `json:"working"`
	Cleared      string          `json:"cleared"`
	Uncleared    string          `json:"uncleared"`
	CurrentValue *string         `json:"current_value,omitempty"`
}

// ReconcileResponse describes the outcome of a reconciliation operation
type ReconcileResponse struct {
	Outcome          string   `json:"outcome"`
	ClearedTotal     string   `json:"cleared_total"`
	StatementBalance *string  `json:"statement_balance,omitempty"`
	Diff             *string  `json:"diff,omitempty"`
	EntryIDs         []string `json:"entry_ids,omitempty"`
}

// CreateAccount handles POST /accounts
func (h *AccountHandler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req CreateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	account := &ledger.Account{
		ID:       uuid.New(),
		UserID:   userID,
		Name:     req.Name,
		Type:     ledger.AccountType(req.Type),
		IsActive: true,
		Order:    req.Order,
	}
	if req.StartingBalance != "" {
		balance, err := money.Parse(req.StartingBalance)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		account.StartingBalance = balance
	}
	if req.StartingBalanceDate != nil {
		date, err := parseDate(*req.StartingBalanceDate)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "invalid starting_balance_date, expected YYYY-MM-DD")
			return
		}
		account.StartingBalanceDate = &date
	}

	if err := h.service.CreateAccount(r.Context(), account); err != nil {
		respondLedgerError(w, err)
		return
	}
	respondJSON(w, toAccountResponse(account), http.StatusCreated)
}

// ListAccounts handles GET /accounts, grouped for display
func (h *AccountHandler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	groups, err := h.service.GroupedAccounts(r.Context(), userID)
	if err != nil {
		respondLedgerError(w, err)
		return
	}

	response := make([]AccountGroupResponse, 0, len(groups))
	for _, g := range groups {
		gr := AccountGroupResponse{Group: string(g.Group)}
		for _, a := range g.Accounts {
			gr.Accounts = append(gr.Accounts, toAccountResponse(a))
		}
		response = append(response, gr)
	}
	respondJSON(w, response, http.StatusOK)
}

// GetBalances handles GET /accounts/{id}/balances
func (h *AccountHandler) GetBalances(w http.ResponseWriter, r *http.Request) {
	userID, accountID, ok := userAndID(w, r)
	if !ok {
		return
	}

	balances, err := h.service.AccountBalances(r.Context(), userID, accountID)
	if err != nil {
		respondLedgerError(w, err)
		return
	}

	response := BalanceResponse{
		Account:   toAccountResponse(balances.Account),
		Working:   balances.Balance.Working.String(),
		Cleared:   balances.Balance.Cleared.String(),
		Uncleared: balances.Balance.Uncleared.String(),
	}
	if balances.CurrentValue != nil {
		v := balances.CurrentValue.String()
		response.CurrentValue = &v
	}
	respondJSON(w, response, http.StatusOK)
}

// UpdateAccount handles PUT /accounts/{id}
func (h *AccountHandler) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	userID, accountID, ok := userAndID(w, r)
	if !ok {
		return
	}

	var req UpdateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	account, err := h.service.GetAccount(r.Context(), userID, accountID)
	if err != nil {
		respondLedgerError(w, err)
		return
	}
	account.Type = ledger.AccountType(req.Type)
	account.Order = req.Order
	if req.StartingBalance != "" {
		balance, err := money.Parse(req.StartingBalance)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		account.StartingBalance = balance
	}
	if req.StartingBalanceDate != nil {
		date, err := parseDate(*req.StartingBalanceDate)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "invalid starting_balance_date, expected YYYY-MM-DD")
			return
		}
		account.StartingBalanceDate = &date
	}

	if err := h.service.UpdateAccount(r.Context(), account); err != nil {
		respondLedgerError(w, err)
		return
	}
	respondJSON(w, toAccountResponse(account), http.StatusOK)
}

// RenameAccount handles POST /accounts/{id}/rename
func (h *AccountHandler) RenameAccount(w http.ResponseWriter, r *http.Request) {
	userID, accountID, ok := userAndID(w, r)
	if !ok {
		return
	}

	var req RenameAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.service.RenameAccount(r.Context(), userID, accountID, req.NewName); err != nil {
		respondLedgerError(w, err)
		return
	}
	respondJSON(w, map[string]string{"status": "renamed"}, http.StatusOK)
}

// ReorderAccounts handles POST /accounts/reorder
func (h *AccountHandler) ReorderAccounts(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req ReorderAccountsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ids := make([]uuid.UUID, 0, len(req.OrderedIDs))
	for _, raw := range req.OrderedIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "invalid account id: "+raw)
			return
		}
		ids = append(ids, id)
	}

	if err := h.service.ReorderAccounts(r.Context(), userID, ids); err != nil {
		respondLedgerError(w, err)
		return
	}
	respondJSON(w, map[string]string{"status": "reordered"}, http.StatusOK)
}

// ArchiveAccount handles POST /accounts/{id}/archive
func (h *AccountHandler) ArchiveAccount(w http.ResponseWriter, r *http.Request) {
	userID, accountID, ok := userAndID(w, r)
	if !ok {
		return
	}

	if err := h.service.ArchiveAccount(r.Context(), userID, accountID); err != nil {
		respondLedgerError(w, err)
		return
	}
	respondJSON(w, map[string]string{"status": "archived"}, http.StatusOK)
}

// DeleteAccount handles DELETE /accounts/{id}
func (h *AccountHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	userID, accountID, ok := userAndID(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteAccount(r.Context(), userID, accountID); err != nil {
		respondLedgerError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// QuickReconcile handles POST /accounts/{id}/reconcile
func (h *AccountHandler) QuickReconcile(w http.ResponseWriter, r *http.Request) {
	userID, accountID, ok := userAndID(w, r)
	if !ok {
		return
	}

	plan, err := h.service.QuickReconcile(r.Context(), userID, accountID)
	if err != nil {
		respondLedgerError(w, err)
		return
	}
	respondJSON(w, toReconcileResponse(plan), http.StatusOK)
}

// ManualReconcile handles POST /accounts/{id}/reconcile/manual
func (h *AccountHandler) ManualReconcile(w http.ResponseWriter, r *http.Request) {
	userID, accountID, ok := userAndID(w, r)
	if !ok {
		return
	}

	var req ManualReconcileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	statementBalance, err := money.Parse(req.StatementBalance)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	plan, err := h.service.ManualReconcile(r.Context(), userID, accountID, statementBalance, req.Force)
	if err != nil {
		respondLedgerError(w, err)
		return
	}
	respondJSON(w, toReconcileResponse(plan), http.StatusOK)
}

// Unreconcile handles POST /accounts/{id}/unreconcile
func (h *AccountHandler) Unreconcile(w http.ResponseWriter, r *http.Request) {
	userID, accountID, ok := userAndID(w, r)
	if !ok {
		return
	}

	plan, err := h.service.Unreconcile(r.Context(), userID, accountID)
	if err != nil {
		respondLedgerError(w, err)
		return
	}
	respondJSON(w, toReconcileResponse(plan), http.StatusOK)
}

// helpers

func userAndID(w http.ResponseWriter, r *http.Request) (uuid.UUID, uuid.UUID, bool) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "unauthorized")
		return uuid.Nil, uuid.Nil, false
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid id")
		return uuid.Nil, uuid.Nil, false
	}
	return userID, id, true
}

func parseDate(s string) (time.Time, error) {
	return time.Parse("2006-01-02", s)
}

func formatDate(t time.Time) string {
	return t.Format("2006-01-02")
}

func toAccountResponse(a *ledger.Account) AccountResponse {
	resp := AccountResponse{
		ID:              a.ID.String(),
		Name:            a.Name,
		Type:            string(a.Type),
		Group:           string(a.Group),
		IsActive:        a.IsActive,
		StartingBalance: a.StartingBalance.String(),
		Order:           a.Order,
		CreatedAt:       a.CreatedAt.Format(time.RFC3339),
	}
	if a.StartingBalanceDate != nil {
		d := formatDate(*a.StartingBalanceDate)
		resp.StartingBalanceDate = &d
	}
	if a.LastReconcileDate != nil {
		d := a.LastReconcileDate.Format(time.RFC3339)
		resp.LastReconcileDate = &d
	}
	if a.LastReconcileBalance != nil {
		b := a.LastReconcileBalance.String()
		resp.LastReconcileBalance = &b
	}
	return resp
}

func toReconcileResponse(plan *ledger.ReconcilePlan) ReconcileResponse {
	resp := ReconcileResponse{
		Outcome:      string(plan.Outcome),
		ClearedTotal: plan.ClearedTotal.String(),
	}
	if plan.Outcome == ledger.OutcomeMismatch || !plan.StatementBalance.IsZero() {
		s := plan.StatementBalance.String()
		resp.StatementBalance = &s
		d := plan.Diff.String()
		resp.Diff = &d
	}
	for _, id := range plan.EntryIDs {
		resp.EntryIDs = append(resp.EntryIDs, id.String())
	}
	return resp
}
