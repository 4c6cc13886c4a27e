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

// mockEntryService implements EntryServiceInterface for testing
type mockEntryService struct {
	entries map[uuid.UUID]*ledger.Entry

	created *ledger.Entry
	updated *ledger.Entry
	deleted []uuid.UUID
	err     error
}

func newMockEntryService() *mockEntryService {
	return &mockEntryService{entries: make(map[uuid.UUID]*ledger.Entry)}
}

func (m *mockEntryService) CreateEntry(ctx context.Context, entry *ledger.Entry) error {
	if m.err != nil {
		return m.err
	}
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.ClearStatus == "" {
		entry.ClearStatus = ledger.StatusUncleared
	}
	m.created = entry
	m.entries[entry.ID] = entry
	return nil
}

func (m *mockEntryService) GetEntry(ctx context.Context, userID, id uuid.UUID) (*ledger.Entry, error) {
	e, ok := m.entries[id]
	if !ok {
		return nil, ledger.ErrEntryNotFound
	}
	return e, nil
}

func (m *mockEntryService) UpdateEntry(ctx context.Context, entry *ledger.Entry) error {
	if m.err != nil {
		return m.err
	}
	m.updated = entry
	m.entries[entry.ID] = entry
	return nil
}

func (m *mockEntryService) DeleteEntry(ctx context.Context, userID, id uuid.UUID) error {
	if m.err != nil {
		return m.err
	}
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *mockEntryService) BulkDelete(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) error {
	if m.err != nil {
		return m.err
	}
	m.deleted = append(m.deleted, ids...)
	return nil
}

func (m *mockEntryService) BulkDuplicate(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) error {
	return m.err
}

func (m *mockEntryService) EntriesForDisplay(ctx context.Context, userID uuid.UUID) ([]ledger.EntryGroup, error) {
	if m.err != nil {
		return nil, m.err
	}
	var groups []ledger.EntryGroup
	for _, e := range m.entries {
		groups = append(groups, ledger.EntryGroup{Date: e.Date, Entries: []*ledger.Entry{e}})
	}
	return groups, nil
}

func (m *mockEntryService) ToggleClear(ctx context.Context, userID, id uuid.UUID) (*ledger.Entry, error) {
	if m.err != nil {
		return nil, m.err
	}
	e, ok := m.entries[id]
	if !ok {
		return nil, ledger.ErrEntryNotFound
	}
	return e, nil
}

// newEntryRouter mounts the handler behind the same routes the real
// router uses, with an authenticated user injected into the context.
func newEntryRouter(h *handler.EntryHandler, userID uuid.UUID) http.Handler {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ctx := context.WithValue(req.Context(), middleware.UserIDKey, userID)
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	})
	r.Post("/entries", h.CreateEntry)
	r.Post("/entries/bulk-delete", h.BulkDelete)
	r.Put("/entries/{id}", h.UpdateEntry)
	r.Delete("/entries/{id}", h.DeleteEntry)
	return r
}

func TestCreateEntry(t *testing.T) {
	svc := newMockEntryService()
	router := newEntryRouter(handler.NewEntryHandler(svc), uuid.New())

	body := `{
		"kind": "expense",
		"date": "2026-02-10",
		"amount": "-45.50",
		"account": "Checking",
		"category": "Groceries",
		"payee": "Market"
	}`
	req := httptest.NewRequest(http.MethodPost, "/entries", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.NotNil(t, svc.created)
	assert.Equal(t, ledger.KindExpense, svc.created.Kind)
	assert.True(t, svc.created.Amount.Equal(decimal.RequireFromString("-45.50")))
	assert.Equal(t, time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC), svc.created.Date)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "-45.5", resp["amount"])
	assert.Equal(t, "uncleared", resp["clear_status"])
}

func TestCreateEntryRejectsBadAmount(t *testing.T) {
	svc := newMockEntryService()
	router := newEntryRouter(handler.NewEntryHandler(svc), uuid.New())

	body := `{"kind": "expense", "date": "2026-02-10", "amount": "12.three", "account": "Cash", "category": "Misc"}`
	req := httptest.NewRequest(http.MethodPost, "/entries", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Nil(t, svc.created)
}

func TestUpdateEntryPreservesClearStatus(t *testing.T) {
	userID := uuid.New()
	svc := newMockEntryService()
	router := newEntryRouter(handler.NewEntryHandler(svc), userID)

	created := time.Now().UTC()
	existing := &ledger.Entry{
		ID:          uuid.New(),
		UserID:      userID,
		Kind:        ledger.KindExpense,
		Date:        time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC),
		CreatedAt:   &created,
		ClearStatus: ledger.StatusCleared,
		Amount:      decimal.RequireFromString("-10"),
		Account:     "Checking",
		Category:    "Coffee",
	}
	svc.entries[existing.ID] = existing

	// The request tries to smuggle a clear status change through the
	// generic update; only memo and amount may land.
	body := `{
		"kind": "expense",
		"date": "2026-02-10",
		"amount": "-12.00",
		"account": "Checking",
		"category": "Coffee",
		"memo": "double shot",
		"clear_status": "reconciled"
	}`
	req := httptest.NewRequest(http.MethodPut, "/entries/"+existing.ID.String(), bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, svc.updated)
	assert.Equal(t, ledger.StatusCleared, svc.updated.ClearStatus)
	assert.Equal(t, "double shot", svc.updated.Memo)
	assert.True(t, svc.updated.Amount.Equal(decimal.RequireFromString("-12")))
	require.NotNil(t, svc.updated.CreatedAt)
	assert.True(t, svc.updated.CreatedAt.Equal(created))
}

func TestDeleteReconciledEntryConflicts(t *testing.T) {
	svc := newMockEntryService()
	svc.err = ledger.ErrEntryReconciled
	router := newEntryRouter(handler.NewEntryHandler(svc), uuid.New())

	req := httptest.NewRequest(http.MethodDelete, "/entries/"+uuid.NewString(), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestBulkDeleteRejectsMalformedID(t *testing.T) {
	svc := newMockEntryService()
	router := newEntryRouter(handler.NewEntryHandler(svc), uuid.New())

	body := `{"ids": ["` + uuid.NewString() + `", "not-a-uuid"]}`
	req := httptest.NewRequest(http.MethodPost, "/entries/bulk-delete", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, svc.deleted)
}
