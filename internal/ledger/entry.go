package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EntryKind identifies the variant of a ledger entry.
type EntryKind string

const (
	KindExpense        EntryKind = "expense"
	KindIncome         EntryKind = "income"
	KindTransfer       EntryKind = "transfer"
	KindSplit          EntryKind = "split"
	KindLoan           EntryKind = "loan"
	KindUnrealizedGain EntryKind = "unrealized_gain"
)

// IsValid reports whether the kind is one of the known variants.
func (k EntryKind) IsValid() bool {
	switch k {
	case KindExpense, KindIncome, KindTransfer, KindSplit, KindLoan, KindUnrealizedGain:
		return true
	}
	return false
}

// ClearStatus is the bank-reconciliation state of an entry.
// Transitions: uncleared <-> cleared -> reconciled. Once reconciled an
// entry is locked; the only way back to cleared is Unreconcile.
type ClearStatus string

const (
	StatusUncleared  ClearStatus = "uncleared"
	StatusCleared    ClearStatus = "cleared"
	StatusReconciled ClearStatus = "reconciled"
)

// IsValid reports whether the status is a known clear status.
func (s ClearStatus) IsValid() bool {
	switch s {
	case StatusUncleared, StatusCleared, StatusReconciled:
		return true
	}
	return false
}

// IsClearedOrReconciled reports whether the entry counts toward the
// cleared balance.
func (s ClearStatus) IsClearedOrReconciled() bool {
	return s == StatusCleared || s == StatusReconciled
}

// LoanType distinguishes money the user borrowed from money the user lent.
type LoanType string

const (
	LoanBorrow LoanType = "borrow"
	LoanLend   LoanType = "lend"
)

// SplitLine is one line of a split entry. Exactly one of Category or
// (IsLoan, Loan) is set. Amount is an unsigned magnitude; the sign comes
// from the parent's TotalAmount.
type SplitLine struct {
	Amount   decimal.Decimal `json:"amount"`
	Category string          `json:"category,omitempty"`
	IsLoan   bool            `json:"is_loan,omitempty"`
	Loan     string          `json:"loan,omitempty"`
	Memo     string          `json:"memo,omitempty"`
}

// Entry is a single transaction record, a tagged variant over EntryKind.
// Only the fields relevant to the Kind are populated; the rest stay zero.
//
// Sign conventions:
//   - expense amounts are stored negative, income positive
//   - transfer Amount is an unsigned magnitude (sign is per-account)
//   - loan amounts are positive when money comes in, negative when it goes out
//   - split TotalAmount carries the sign for every line
type Entry struct {
	ID     uuid.UUID
	UserID uuid.UUID
	Kind   EntryKind

	// Date is the calendar date (midnight UTC). CreatedAt is the precise
	// creation instant, used only to order entries within the same date;
	// nil for rows imported from sources that never recorded it.
	Date      time.Time
	CreatedAt *time.Time
	Memo      string

	ClearStatus        ClearStatus
	ReconciledAt       *time.Time
	ReconcileSessionID *uuid.UUID

	// expense, income, loan, unrealized_gain
	Amount  decimal.Decimal
	Account string

	// expense, income
	Category string
	Payee    string

	// transfer
	FromAccount string
	ToAccount   string

	// split
	TotalAmount decimal.Decimal
	SplitType   CategoryType
	Splits      []SplitLine

	// loan
	Loan     string
	LoanType LoanType
}

// splitSign returns +1 or -1 depending on the sign of TotalAmount.
// A zero total counts as positive.
func (e *Entry) splitSign() decimal.Decimal {
	if e.TotalAmount.Sign() < 0 {
		return decimal.NewFromInt(-1)
	}
	return decimal.NewFromInt(1)
}

// ContributionTo returns the signed amount this entry contributes to the
// balance of the named account, and whether it touches that account at
// all. It never fails: malformed references simply do not contribute.
func (e *Entry) ContributionTo(account string) (decimal.Decimal, bool) {
	switch e.Kind {
	case KindExpense, KindIncome, KindLoan, KindUnrealizedGain:
		if e.Account == account {
			return e.Amount, true
		}

	case KindTransfer:
		// A transfer where both sides name the same account nets to
		// zero but still touches it; the two legs must not cancel into
		// an omission or double count.
		from := e.FromAccount == account
		to := e.ToAccount == account
		switch {
		case from && to:
			return decimal.Zero, true
		case from:
			return e.Amount.Neg(), true
		case to:
			return e.Amount, true
		}

	case KindSplit:
		if e.Account == account {
			sign := e.splitSign()
			total := decimal.Zero
			for _, line := range e.Splits {
				total = total.Add(sign.Mul(line.Amount))
			}
			return total, true
		}
	}

	return decimal.Zero, false
}

// Validate enforces the write-time invariants for an entry. Read paths
// never call this: historical rows that would no longer validate must
// still aggregate.
func (e *Entry) Validate() error {
	if !e.Kind.IsValid() {
		return ErrInvalidEntryKind
	}
	if e.ClearStatus != "" && !e.ClearStatus.IsValid() {
		return ErrInvalidClearStatus
	}

	switch e.Kind {
	case KindExpense, KindIncome:
		if e.Amount.IsZero() {
			return ErrZeroAmount
		}
		if e.Account == "" {
			return ErrMissingAccount
		}
		if e.Kind == KindExpense && e.Amount.Sign() > 0 {
			return ErrExpenseMustBeNegative
		}
		if e.Kind == KindIncome && e.Amount.Sign() < 0 {
			return ErrIncomeMustBePositive
		}

	case KindTransfer:
		if e.Amount.Sign() <= 0 {
			return ErrTransferAmountNotPositive
		}
		if e.FromAccount == "" || e.ToAccount == "" {
			return ErrMissingAccount
		}
		if e.FromAccount == e.ToAccount {
			return ErrTransferSameAccount
		}

	case KindSplit:
		if e.Account == "" {
			return ErrMissingAccount
		}
		if e.TotalAmount.IsZero() {
			return ErrZeroAmount
		}
		if len(e.Splits) == 0 {
			return ErrEmptySplit
		}
		sum := decimal.Zero
		for _, line := range e.Splits {
			if err := line.Validate(); err != nil {
				return err
			}
			sum = sum.Add(line.Amount)
		}
		if !sum.Equal(e.TotalAmount.Abs()) {
			return ErrSplitSumMismatch
		}

	case KindLoan:
		if e.Amount.IsZero() {
			return ErrZeroAmount
		}
		if e.Account == "" {
			return ErrMissingAccount
		}
		if e.Loan == "" {
			return ErrMissingLoanName
		}
		if e.LoanType != LoanBorrow && e.LoanType != LoanLend {
			return ErrInvalidLoanType
		}

	case KindUnrealizedGain:
		if e.Amount.IsZero() {
			return ErrZeroAmount
		}
		if e.Account == "" {
			return ErrMissingAccount
		}
	}

	return nil
}

// Validate enforces the write-time invariants for a split line.
func (l *SplitLine) Validate() error {
	if l.Amount.Sign() <= 0 {
		return ErrSplitLineAmountNotPositive
	}
	if l.IsLoan {
		if l.Loan == "" {
			return ErrMissingLoanName
		}
		if l.Category != "" {
			return ErrSplitLineCategoryAndLoan
		}
		return nil
	}
	if l.Category == "" {
		return ErrSplitLineMissingTarget
	}
	return nil
}

// EffectiveInstant returns the instant used for chronological ordering:
// CreatedAt when present, otherwise the calendar date at midnight.
func (e *Entry) EffectiveInstant() time.Time {
	if e.CreatedAt != nil {
		return *e.CreatedAt
	}
	return e.Date
}
