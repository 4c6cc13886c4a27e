package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/coinkeep/coinkeep/internal/ledger"
	apperrors "github.com/coinkeep/coinkeep/internal/shared/errors"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// respondWithJSON is an alias for respondJSON (for compatibility)
func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, _ := json.Marshal(payload)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

// respondError sends an error response
func respondError(w http.ResponseWriter, message string, statusCode int) {
	respondJSON(w, ErrorResponse{Error: message}, statusCode)
}

// respondWithError is an alias for respondError (for compatibility)
func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

// respondLedgerError maps ledger domain errors onto HTTP statuses.
// Validation errors are 400, name collisions and reconciliation locks
// 409, missing resources 404; anything unrecognized is a 500 with a
// generic message so internals never leak.
func respondLedgerError(w http.ResponseWriter, err error) {
	if app := apperrors.GetAppError(err); app != nil {
		respondJSON(w, ErrorResponse{Error: app.Message, Code: app.Code}, appErrorStatus(app.Code))
		return
	}

	switch {
	case errors.Is(err, ledger.ErrEntryNotFound),
		errors.Is(err, ledger.ErrAccountNotFound),
		errors.Is(err, ledger.ErrCategoryNotFound):
		respondJSON(w, ErrorResponse{Error: err.Error(), Code: apperrors.ErrCodeNotFound}, http.StatusNotFound)

	case errors.Is(err, ledger.ErrEntryReconciled),
		errors.Is(err, ledger.ErrEntryIsSplitPart):
		respondJSON(w, ErrorResponse{Error: err.Error(), Code: apperrors.ErrCodeStateConflict}, http.StatusConflict)

	case errors.Is(err, ledger.ErrAccountNameTaken),
		errors.Is(err, ledger.ErrCategoryNameTaken):
		respondJSON(w, ErrorResponse{Error: err.Error(), Code: apperrors.ErrCodeConflict}, http.StatusConflict)

	case errors.Is(err, ledger.ErrSplitSumMismatch):
		respondJSON(w, ErrorResponse{Error: err.Error(), Code: apperrors.ErrCodeSplitUnbalanced}, http.StatusBadRequest)

	case isValidationError(err):
		respondJSON(w, ErrorResponse{Error: err.Error(), Code: apperrors.ErrCodeValidation}, http.StatusBadRequest)

	default:
		respondJSON(w, ErrorResponse{Error: "internal server error", Code: apperrors.ErrCodeInternal}, http.StatusInternalServerError)
	}
}

func isValidationError(err error) bool {
	for _, sentinel := range []error{
		ledger.ErrInvalidEntryKind,
		ledger.ErrInvalidClearStatus,
		ledger.ErrZeroAmount,
		ledger.ErrMissingAccount,
		ledger.ErrExpenseMustBeNegative,
		ledger.ErrIncomeMustBePositive,
		ledger.ErrTransferAmountNotPositive,
		ledger.ErrTransferSameAccount,
		ledger.ErrEmptySplit,
		ledger.ErrSplitLineAmountNotPositive,
		ledger.ErrSplitLineMissingTarget,
		ledger.ErrSplitLineCategoryAndLoan,
		ledger.ErrMissingLoanName,
		ledger.ErrInvalidLoanType,
		ledger.ErrMissingAccountName,
		ledger.ErrInvalidAccountType,
		ledger.ErrMissingCategoryName,
		ledger.ErrInvalidCategoryType,
		ledger.ErrInvalidSpendingType,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}

func appErrorStatus(code string) int {
	switch code {
	case apperrors.ErrCodeValidation, apperrors.ErrCodeBadRequest,
		apperrors.ErrCodeInvalidInput, apperrors.ErrCodeSplitUnbalanced:
		return http.StatusBadRequest
	case apperrors.ErrCodeNotFound:
		return http.StatusNotFound
	case apperrors.ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case apperrors.ErrCodeForbidden:
		return http.StatusForbidden
	case apperrors.ErrCodeConflict, apperrors.ErrCodeStateConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
