package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coinkeep/coinkeep/internal/ledger"
	"github.com/coinkeep/coinkeep/internal/transport/httpapi/handler"
	"github.com/coinkeep/coinkeep/internal/transport/httpapi/middleware"
)

// mockAccountService implements AccountServiceInterface for testing
type mockAccountService struct {
	created *ledger.Account
	renamed string
	plan    *ledger.ReconcilePlan
	err     error
}

func (m *mockAccountService) CreateAccount(ctx context.Context, account *ledger.Account) error {
	if m.err != nil {
		return m.err
	}
	if account.ID == uuid.Nil {
		account.ID = uuid.New()
	}
	m.created = account
	return nil
}

func (m *mockAccountService) GetAccount(ctx context.Context, userID, id uuid.UUID) (*ledger.Account, error) {
	return nil, ledger.ErrAccountNotFound
}

func (m *mockAccountService) UpdateAccount(ctx context.Context, account *ledger.Account) error {
	return m.err
}

func (m *mockAccountService) ArchiveAccount(ctx context.Context, userID, id uuid.UUID) error {
	return m.err
}

func (m *mockAccountService) DeleteAccount(ctx context.Context, userID, id uuid.UUID) error {
	return m.err
}

func (m *mockAccountService) RenameAccount(ctx context.Context, userID, id uuid.UUID, newName string) error {
	if m.err != nil {
		return m.err
	}
	m.renamed = newName
	return nil
}

func (m *mockAccountService) ReorderAccounts(ctx context.Context, userID uuid.UUID, orderedIDs []uuid.UUID) error {
	return m.err
}

func (m *mockAccountService) GroupedAccounts(ctx context.Context, userID uuid.UUID) ([]ledger.AccountGroupView, error) {
	return nil, m.err
}

func (m *mockAccountService) AccountBalances(ctx context.Context, userID, id uuid.UUID) (*ledger.AccountBalances, error) {
	return nil, m.err
}

func (m *mockAccountService) QuickReconcile(ctx context.Context, userID, accountID uuid.UUID) (*ledger.ReconcilePlan, error) {
	return m.plan, m.err
}

func (m *mockAccountService) ManualReconcile(ctx context.Context, userID, accountID uuid.UUID, statementBalance decimal.Decimal, force bool) (*ledger.ReconcilePlan, error) {
	return m.plan, m.err
}

func (m *mockAccountService) Unreconcile(ctx context.Context, userID, accountID uuid.UUID) (*ledger.ReconcilePlan, error) {
	return m.plan, m.err
}

func newAccountRouter(h *handler.AccountHandler, userID uuid.UUID) http.Handler {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ctx := context.WithValue(req.Context(), middleware.UserIDKey, userID)
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	})
	r.Post("/accounts", h.CreateAccount)
	r.Post("/accounts/{id}/rename", h.RenameAccount)
	r.Post("/accounts/{id}/reconcile", h.QuickReconcile)
	r.Post("/accounts/{id}/reconcile/manual", h.ManualReconcile)
	return r
}

func TestCreateAccountParsesBalanceAndDate(t *testing.T) {
	svc := &mockAccountService{}
	router := newAccountRouter(handler.NewAccountHandler(svc), uuid.New())

	body := `{
		"name": "House Fund",
		"type": "savings",
		"starting_balance": "2500.00",
		"starting_balance_date": "2026-01-01"
	}`
	req := httptest.NewRequest(http.MethodPost, "/accounts", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.NotNil(t, svc.created)
	assert.Equal(t, ledger.AccountSavings, svc.created.Type)
	assert.True(t, svc.created.StartingBalance.Equal(decimal.RequireFromString("2500")))
	require.NotNil(t, svc.created.StartingBalanceDate)
	assert.Equal(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), *svc.created.StartingBalanceDate)
}

func TestRenameAccount(t *testing.T) {
	svc := &mockAccountService{}
	router := newAccountRouter(handler.NewAccountHandler(svc), uuid.New())

	body := `{"new_name": "Everyday Checking"}`
	req := httptest.NewRequest(http.MethodPost, "/accounts/"+uuid.NewString()+"/rename", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Everyday Checking", svc.renamed)
}

func TestManualReconcileMismatch(t *testing.T) {
	svc := &mockAccountService{
		plan: &ledger.ReconcilePlan{
			Outcome:          ledger.OutcomeMismatch,
			ClearedTotal:     decimal.RequireFromString("900.00"),
			StatementBalance: decimal.RequireFromString("950.00"),
			Diff:             decimal.RequireFromString("50.00"),
		},
	}
	router := newAccountRouter(handler.NewAccountHandler(svc), uuid.New())

	body := `{"statement_balance": "950.00"}`
	req := httptest.NewRequest(http.MethodPost, "/accounts/"+uuid.NewString()+"/reconcile/manual", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "mismatch", resp["outcome"])
	assert.Equal(t, "950", resp["statement_balance"])
	assert.Equal(t, "50", resp["diff"])
}

func TestQuickReconcileNothingToDo(t *testing.T) {
	svc := &mockAccountService{
		plan: &ledger.ReconcilePlan{
			Outcome:      ledger.OutcomeNothingToDo,
			ClearedTotal: decimal.Zero,
		},
	}
	router := newAccountRouter(handler.NewAccountHandler(svc), uuid.New())

	req := httptest.NewRequest(http.MethodPost, "/accounts/"+uuid.NewString()+"/reconcile", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "nothing_to_do", resp["outcome"])
}
