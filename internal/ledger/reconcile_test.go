package ledger

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlanToggleClear(t *testing.T) {
	e := &Entry{ID: uuid.New(), Kind: KindExpense, Account: "Cash",
		Amount: dec("-10"), ClearStatus: StatusUncleared}

	m, err := PlanToggleClear(e)
	require.NoError(t, err)
	assert.Equal(t, StatusCleared, m.Fields["clear_status"])

	e.ClearStatus = StatusCleared
	m, err = PlanToggleClear(e)
	require.NoError(t, err)
	assert.Equal(t, StatusUncleared, m.Fields["clear_status"])
}

func TestPlanToggleClear_ReconciledIsLocked(t *testing.T) {
	e := &Entry{ID: uuid.New(), Kind: KindExpense, Account: "Cash",
		Amount: dec("-10"), ClearStatus: StatusReconciled}

	_, err := PlanToggleClear(e)
	assert.ErrorIs(t, err, ErrEntryReconciled)
}

func TestPlanQuickReconcile(t *testing.T) {
	account := &Account{ID: uuid.New(), Name: "Cash", Type: AccountCash, StartingBalance: dec("1000")}
	entries := []*Entry{
		{ID: uuid.New(), Kind: KindExpense, Account: "Cash", Amount: dec("-100"), ClearStatus: StatusCleared},
		{ID: uuid.New(), Kind: KindExpense, Account: "Cash", Amount: dec("-50"), ClearStatus: StatusCleared},
		{ID: uuid.New(), Kind: KindExpense, Account: "Cash", Amount: dec("-25"), ClearStatus: StatusUncleared},
	}
	asOf := time.Date(2024, time.June, 1, 12, 0, 0, 0, time.UTC)

	plan := PlanQuickReconcile(account, entries, asOf)

	require.Equal(t, OutcomeCommitted, plan.Outcome)
	require.NotNil(t, plan.Session)
	assert.Len(t, plan.EntryIDs, 2)
	// The cleared balance snapshot is the figure computed before the
	// transition.
	assert.True(t, plan.ClearedTotal.Equal(dec("850")))

	// Two entry updates plus the account snapshot.
	require.Len(t, plan.Mutations, 3)
	for _, m := range plan.Mutations[:2] {
		assert.Equal(t, CollectionEntries, m.Collection)
		assert.Equal(t, StatusReconciled, m.Fields["clear_status"])
		assert.Equal(t, asOf, m.Fields["reconciled_at"])
		assert.Equal(t, *plan.Session, m.Fields["reconcile_session_id"])
	}
	last := plan.Mutations[2]
	assert.Equal(t, CollectionAccounts, last.Collection)
	assert.Equal(t, account.ID, last.ID)
	assert.True(t, last.Fields["last_reconcile_balance"].(decimal.Decimal).Equal(dec("850")))
}

func TestPlanQuickReconcile_NothingCleared(t *testing.T) {
	account := &Account{ID: uuid.New(), Name: "Cash", Type: AccountCash}
	entries := []*Entry{
		{ID: uuid.New(), Kind: KindExpense, Account: "Cash", Amount: dec("-25"), ClearStatus: StatusUncleared},
	}

	plan := PlanQuickReconcile(account, entries, time.Now())

	assert.Equal(t, OutcomeNothingToDo, plan.Outcome)
	assert.Empty(t, plan.Mutations)
}

func TestPlanManualReconcile_Mismatch(t *testing.T) {
	account := &Account{ID: uuid.New(), Name: "Cash", Type: AccountCash, StartingBalance: dec("1000000")}
	entries := []*Entry{
		{ID: uuid.New(), Kind: KindExpense, Account: "Cash", Amount: dec("-100000"), ClearStatus: StatusCleared},
	}

	plan := PlanManualReconcile(account, entries, dec("950000"), time.Now(), false)

	require.Equal(t, OutcomeMismatch, plan.Outcome)
	assert.True(t, plan.ClearedTotal.Equal(dec("900000")))
	assert.True(t, plan.StatementBalance.Equal(dec("950000")))
	assert.True(t, plan.Diff.Equal(dec("50000")))
	assert.Empty(t, plan.Mutations, "a mismatch warning must not mutate anything")
}

func TestPlanManualReconcile_ForceCommitsStatementBalance(t *testing.T) {
	account := &Account{ID: uuid.New(), Name: "Cash", Type: AccountCash, StartingBalance: dec("1000000")}
	entries := []*Entry{
		{ID: uuid.New(), Kind: KindExpense, Account: "Cash", Amount: dec("-100000"), ClearStatus: StatusCleared},
	}
	asOf := time.Date(2024, time.June, 1, 12, 0, 0, 0, time.UTC)

	plan := PlanManualReconcile(account, entries, dec("950000"), asOf, true)

	require.Equal(t, OutcomeCommitted, plan.Outcome)
	require.Len(t, plan.Mutations, 2)
	// The account snapshot records the user-entered figure, not the
	// computed cleared total.
	accountUpdate := plan.Mutations[1]
	assert.True(t, accountUpdate.Fields["last_reconcile_balance"].(decimal.Decimal).Equal(dec("950000")))
}

func TestPlanManualReconcile_ExactMatchCommitsWithoutForce(t *testing.T) {
	account := &Account{ID: uuid.New(), Name: "Cash", Type: AccountCash, StartingBalance: dec("100")}
	entries := []*Entry{
		{ID: uuid.New(), Kind: KindIncome, Account: "Cash", Amount: dec("50"), ClearStatus: StatusCleared},
	}

	plan := PlanManualReconcile(account, entries, dec("150"), time.Now(), false)
	assert.Equal(t, OutcomeCommitted, plan.Outcome)
}

func TestPlanUnreconcile_RoundTrip(t *testing.T) {
	// quickReconcile followed by unreconcile restores every touched entry
	// to cleared and wipes the account snapshot.
	account := &Account{ID: uuid.New(), Name: "Cash", Type: AccountCash, StartingBalance: dec("100")}
	entries := []*Entry{
		{ID: uuid.New(), Kind: KindExpense, Account: "Cash", Amount: dec("-10"), ClearStatus: StatusCleared},
		{ID: uuid.New(), Kind: KindExpense, Account: "Cash", Amount: dec("-20"), ClearStatus: StatusCleared},
	}
	asOf := time.Date(2024, time.June, 1, 12, 0, 0, 0, time.UTC)

	commit := PlanQuickReconcile(account, entries, asOf)
	require.Equal(t, OutcomeCommitted, commit.Outcome)

	// Apply the committed plan to the in-memory snapshot.
	for _, e := range entries {
		e.ClearStatus = StatusReconciled
		e.ReconciledAt = &asOf
		e.ReconcileSessionID = commit.Session
	}
	balance := commit.ClearedTotal
	account.LastReconcileDate = &asOf
	account.LastReconcileBalance = &balance
	account.LastReconcileSession = commit.Session

	undo := PlanUnreconcile(account, entries)
	require.Equal(t, OutcomeCommitted, undo.Outcome)
	assert.ElementsMatch(t, commit.EntryIDs, undo.EntryIDs)

	require.Len(t, undo.Mutations, 3)
	for _, m := range undo.Mutations[:2] {
		assert.Equal(t, StatusCleared, m.Fields["clear_status"])
		assert.Nil(t, m.Fields["reconciled_at"])
		assert.Nil(t, m.Fields["reconcile_session_id"])
	}
	accountUpdate := undo.Mutations[2]
	assert.Nil(t, accountUpdate.Fields["last_reconcile_date"])
	assert.Nil(t, accountUpdate.Fields["last_reconcile_balance"])
}

func TestPlanUnreconcile_NoPriorReconciliation(t *testing.T) {
	account := &Account{ID: uuid.New(), Name: "Cash", Type: AccountCash}
	plan := PlanUnreconcile(account, nil)
	assert.Equal(t, OutcomeNothingToDo, plan.Outcome)
}

func TestPlanUnreconcile_SessionIDIsAuthoritative(t *testing.T) {
	session := uuid.New()
	other := uuid.New()
	asOf := time.Date(2024, time.June, 1, 12, 0, 0, 0, time.UTC)
	account := &Account{
		ID: uuid.New(), Name: "Cash", Type: AccountCash,
		LastReconcileDate:    &asOf,
		LastReconcileSession: &session,
	}
	entries := []*Entry{
		{ID: uuid.New(), Kind: KindExpense, Account: "Cash", Amount: dec("-10"),
			ClearStatus: StatusReconciled, ReconciledAt: &asOf, ReconcileSessionID: &session},
		// Same timestamp but a different session; must not be conflated.
		{ID: uuid.New(), Kind: KindExpense, Account: "Cash", Amount: dec("-20"),
			ClearStatus: StatusReconciled, ReconciledAt: &asOf, ReconcileSessionID: &other},
	}

	plan := PlanUnreconcile(account, entries)
	require.Equal(t, OutcomeCommitted, plan.Outcome)
	require.Len(t, plan.EntryIDs, 1)
	assert.Equal(t, entries[0].ID, plan.EntryIDs[0])
}

func TestPlanUnreconcile_LegacyToleranceWindow(t *testing.T) {
	// Rows reconciled before session ids existed match on the timestamp
	// window instead.
	asOf := time.Date(2024, time.June, 1, 12, 0, 0, 0, time.UTC)
	within := asOf.Add(3 * time.Second)
	outside := asOf.Add(9 * time.Second)
	account := &Account{
		ID: uuid.New(), Name: "Cash", Type: AccountCash,
		LastReconcileDate: &asOf,
	}
	entries := []*Entry{
		{ID: uuid.New(), Kind: KindExpense, Account: "Cash", Amount: dec("-10"),
			ClearStatus: StatusReconciled, ReconciledAt: &within},
		{ID: uuid.New(), Kind: KindExpense, Account: "Cash", Amount: dec("-20"),
			ClearStatus: StatusReconciled, ReconciledAt: &outside},
	}

	plan := PlanUnreconcile(account, entries)
	require.Equal(t, OutcomeCommitted, plan.Outcome)
	require.Len(t, plan.EntryIDs, 1)
	assert.Equal(t, entries[0].ID, plan.EntryIDs[0])
}

func TestPlanUnreconcile_NoMatchingEntries(t *testing.T) {
	asOf := time.Date(2024, time.June, 1, 12, 0, 0, 0, time.UTC)
	account := &Account{
		ID: uuid.New(), Name: "Cash", Type: AccountCash,
		LastReconcileDate: &asOf,
	}
	entries := []*Entry{
		{ID: uuid.New(), Kind: KindExpense, Account: "Cash", Amount: dec("-10"), ClearStatus: StatusCleared},
	}

	plan := PlanUnreconcile(account, entries)
	assert.Equal(t, OutcomeNothingToDo, plan.Outcome)
}

func TestReconcile_StatusNeverSkipsCleared(t *testing.T) {
	// Uncleared entries are never swept into a reconciliation: the path
	// to reconciled always passes through cleared.
	account := &Account{ID: uuid.New(), Name: "Cash", Type: AccountCash}
	uncleared := &Entry{ID: uuid.New(), Kind: KindExpense, Account: "Cash",
		Amount: dec("-10"), ClearStatus: StatusUncleared}

	plan := PlanQuickReconcile(account, []*Entry{uncleared}, time.Now())
	assert.Equal(t, OutcomeNothingToDo, plan.Outcome)

	plan = PlanManualReconcile(account, []*Entry{uncleared}, decimal.Zero, time.Now(), true)
	assert.Equal(t, OutcomeNothingToDo, plan.Outcome)
}
