package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// unreconcileTolerance is the legacy matching window for entries that were
// reconciled before session ids existed: their reconciledAt may lag the
// account's lastReconcileDate by the spread of the original batch commit.
const unreconcileTolerance = 5 * time.Second

// ReconcileOutcome classifies the result of a reconciliation planning
// step. Only OutcomeCommitted carries mutations to apply.
type ReconcileOutcome string

const (
	// OutcomeCommitted means the plan has mutations ready to apply.
	OutcomeCommitted ReconcileOutcome = "committed"

	// OutcomeNothingToDo means the operation had nothing to act on: no
	// cleared entries to reconcile, or nothing to unlock. Not an error.
	OutcomeNothingToDo ReconcileOutcome = "nothing_to_do"

	// OutcomeMismatch means the statement balance differed from the
	// computed cleared total and force was not set. Not an error: the
	// caller confirms and re-invokes with force.
	OutcomeMismatch ReconcileOutcome = "mismatch"
)

// ReconcilePlan is the computed result of a reconciliation operation:
// an outcome plus, when committed, the atomic mutation batch that enacts
// it. Plans are pure data; nothing has been written when one is returned.
type ReconcilePlan struct {
	Outcome ReconcileOutcome `json:"outcome"`

	// Session identifies the reconciliation batch; stamped on every
	// affected entry and on the account so Unreconcile can find exactly
	// this batch later. Set only when Outcome is OutcomeCommitted.
	Session *uuid.UUID `json:"session,omitempty"`

	ClearedTotal     decimal.Decimal `json:"cleared_total"`
	StatementBalance decimal.Decimal `json:"statement_balance,omitempty"`
	Diff             decimal.Decimal `json:"diff,omitempty"`

	// EntryIDs lists the entries the plan touches.
	EntryIDs []uuid.UUID `json:"entry_ids,omitempty"`

	Mutations []Mutation `json:"-"`
}

// PlanToggleClear flips an entry between uncleared and cleared. Reconciled
// entries are locked: the only path back is Unreconcile.
func PlanToggleClear(e *Entry) (Mutation, error) {
	switch e.ClearStatus {
	case StatusReconciled:
		return Mutation{}, ErrEntryReconciled
	case StatusCleared:
		return updateEntry(e.ID, map[string]any{"clear_status": StatusUncleared}), nil
	default:
		return updateEntry(e.ID, map[string]any{"clear_status": StatusCleared}), nil
	}
}

// PlanQuickReconcile locks every cleared entry of the account as
// reconciled, stamping the batch with a fresh session id and snapshotting
// the cleared balance computed before the transition onto the account.
// With no cleared entries the plan is a no-op, not an error.
func PlanQuickReconcile(account *Account, entries []*Entry, asOf time.Time) *ReconcilePlan {
	cleared := collectCleared(account.Name, entries)
	before := clearedTotal(account, entries)

	if len(cleared) == 0 {
		return &ReconcilePlan{Outcome: OutcomeNothingToDo, ClearedTotal: before}
	}

	return commitPlan(account, cleared, asOf, before, before)
}

// PlanManualReconcile compares a user-entered statement balance against
// the computed cleared total. On mismatch without force it returns the
// warning payload and no mutations; otherwise it commits like
// PlanQuickReconcile but snapshots the statement balance, the figure the
// user vouched for, onto the account.
func PlanManualReconcile(account *Account, entries []*Entry, statementBalance decimal.Decimal, asOf time.Time, force bool) *ReconcilePlan {
	cleared := collectCleared(account.Name, entries)
	total := clearedTotal(account, entries)
	diff := statementBalance.Sub(total)

	if !diff.IsZero() && !force {
		return &ReconcilePlan{
			Outcome:          OutcomeMismatch,
			ClearedTotal:     total,
			StatementBalance: statementBalance,
			Diff:             diff,
		}
	}

	if len(cleared) == 0 {
		return &ReconcilePlan{
			Outcome:          OutcomeNothingToDo,
			ClearedTotal:     total,
			StatementBalance: statementBalance,
			Diff:             diff,
		}
	}

	plan := commitPlan(account, cleared, asOf, total, statementBalance)
	plan.StatementBalance = statementBalance
	plan.Diff = diff
	return plan
}

// PlanUnreconcile undoes the account's last committed reconciliation:
// every entry stamped with the recorded session id (or, for batches
// predating session ids, every reconciled entry whose reconciledAt falls
// within the tolerance window of lastReconcileDate) goes back to cleared,
// and the account's reconciliation snapshot is wiped. This is the only
// supported path out of the reconciled state.
func PlanUnreconcile(account *Account, entries []*Entry) *ReconcilePlan {
	if account.LastReconcileDate == nil {
		return &ReconcilePlan{Outcome: OutcomeNothingToDo}
	}

	var selected []*Entry
	for _, e := range entries {
		if e.ClearStatus != StatusReconciled {
			continue
		}
		if _, ok := e.ContributionTo(account.Name); !ok {
			continue
		}
		if matchesLastReconcile(account, e) {
			selected = append(selected, e)
		}
	}

	if len(selected) == 0 {
		return &ReconcilePlan{Outcome: OutcomeNothingToDo}
	}

	plan := &ReconcilePlan{Outcome: OutcomeCommitted}
	for _, e := range selected {
		plan.EntryIDs = append(plan.EntryIDs, e.ID)
		plan.Mutations = append(plan.Mutations, updateEntry(e.ID, map[string]any{
			"clear_status":         StatusCleared,
			"reconciled_at":        nil,
			"reconcile_session_id": nil,
		}))
	}
	plan.Mutations = append(plan.Mutations, updateAccount(account.ID, map[string]any{
		"last_reconcile_date":    nil,
		"last_reconcile_balance": nil,
		"last_reconcile_session": nil,
	}))
	return plan
}

// matchesLastReconcile reports whether a reconciled entry belongs to the
// account's last committed batch. Session id is authoritative; the
// timestamp window only serves rows written before session ids existed.
func matchesLastReconcile(account *Account, e *Entry) bool {
	if account.LastReconcileSession != nil {
		return e.ReconcileSessionID != nil && *e.ReconcileSessionID == *account.LastReconcileSession
	}
	if e.ReconciledAt == nil {
		return false
	}
	d := e.ReconciledAt.Sub(*account.LastReconcileDate)
	if d < 0 {
		d = -d
	}
	return d <= unreconcileTolerance
}

// collectCleared returns the account's entries currently in the cleared
// state, the candidates for locking.
func collectCleared(accountName string, entries []*Entry) []*Entry {
	var cleared []*Entry
	for _, e := range entries {
		if e.ClearStatus != StatusCleared {
			continue
		}
		if _, ok := e.ContributionTo(accountName); !ok {
			continue
		}
		cleared = append(cleared, e)
	}
	return cleared
}

// commitPlan builds the atomic batch that locks the given entries and
// records the reconciliation snapshot on the account.
func commitPlan(account *Account, cleared []*Entry, asOf time.Time, clearedTotal, snapshotBalance decimal.Decimal) *ReconcilePlan {
	session := uuid.New()
	plan := &ReconcilePlan{
		Outcome:      OutcomeCommitted,
		Session:      &session,
		ClearedTotal: clearedTotal,
	}

	for _, e := range cleared {
		plan.EntryIDs = append(plan.EntryIDs, e.ID)
		plan.Mutations = append(plan.Mutations, updateEntry(e.ID, map[string]any{
			"clear_status":         StatusReconciled,
			"reconciled_at":        asOf,
			"reconcile_session_id": session,
		}))
	}
	plan.Mutations = append(plan.Mutations, updateAccount(account.ID, map[string]any{
		"last_reconcile_date":    asOf,
		"last_reconcile_balance": snapshotBalance,
		"last_reconcile_session": session,
	}))
	return plan
}
