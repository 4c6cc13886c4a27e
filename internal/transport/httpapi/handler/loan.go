package handler

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/coinkeep/coinkeep/internal/ledger"
	"github.com/coinkeep/coinkeep/internal/transport/httpapi/middleware"
)

// LoanServiceInterface defines the ledger operations the loan handler
// needs
type LoanServiceInterface interface {
	Loans(ctx context.Context, userID uuid.UUID) ([]*ledger.LoanView, error)
}

// LoanHandler serves the derived loan views. Loans have no storage of
// their own; every response is recomputed from the entries.
type LoanHandler struct {
	service LoanServiceInterface
}

// NewLoanHandler creates a new loan handler
func NewLoanHandler(service LoanServiceInterface) *LoanHandler {
	return &LoanHandler{service: service}
}

// LoanTransactionResponse is one contribution to a loan, possibly a
// split-derived pseudo-entry that cannot be edited directly.
type LoanTransactionResponse struct {
	ID          string  `json:"id"`
	ParentID    *string `json:"parent_id,omitempty"`
	IsSplitPart bool    `json:"is_split_part,omitempty"`
	Date        string  `json:"date"`
	Amount      string  `json:"amount"`
	Memo        string  `json:"memo,omitempty"`
}

// LoanResponse represents a derived loan view
type LoanResponse struct {
	Name         string                    `json:"name"`
	Type         string                    `json:"type"`
	Balance      string                    `json:"balance"`
	PaidBack     string                    `json:"paid_back"`
	Received     string                    `json:"received"`
	Transactions []LoanTransactionResponse `json:"transactions"`
}

// ListLoans handles GET /loans
func (h *LoanHandler) ListLoans(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	loans, err := h.service.Loans(r.Context(), userID)
	if err != nil {
		respondLedgerError(w, err)
		return
	}

	response := make([]LoanResponse, 0, len(loans))
	for _, loan := range loans {
		lr := LoanResponse{
			Name:     loan.Name,
			Type:     string(loan.Type),
			Balance:  loan.Balance.String(),
			PaidBack: loan.PaidBack.String(),
			Received: loan.Received.String(),
		}
		for _, tx := range loan.Transactions {
			tr := LoanTransactionResponse{
				ID:          tx.ID,
				IsSplitPart: tx.IsSplitPart,
				Date:        formatDate(tx.Date),
				Amount:      tx.Amount.String(),
				Memo:        tx.Memo,
			}
			if tx.IsSplitPart {
				parent := tx.ParentID.String()
				tr.ParentID = &parent
			}
			lr.Transactions = append(lr.Transactions, tr)
		}
		response = append(response, lr)
	}
	respondJSON(w, response, http.StatusOK)
}
