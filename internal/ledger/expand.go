package ledger

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CategoryLine is a flat, signed per-category contribution derived from an
// entry. Plain expense/income entries yield one line; split entries yield
// one line per non-loan split. Transfers and unrealized gains yield none.
type CategoryLine struct {
	EntryID  uuid.UUID       `json:"entry_id"`
	Category string          `json:"category"`
	Amount   decimal.Decimal `json:"amount"`
	Date     time.Time       `json:"date"`
	Account  string          `json:"account"`
	Payee    string          `json:"payee,omitempty"`
	Memo     string          `json:"memo,omitempty"`
}

// CategoryLines expands an entry into its category contributions.
// Malformed split lines (no category and no loan) are skipped rather than
// failing: write-time validation owns rejection, read paths stay total.
func CategoryLines(e *Entry) []CategoryLine {
	switch e.Kind {
	case KindExpense, KindIncome:
		if e.Category == "" {
			return nil
		}
		return []CategoryLine{{
			EntryID:  e.ID,
			Category: e.Category,
			Amount:   e.Amount,
			Date:     e.Date,
			Account:  e.Account,
			Payee:    e.Payee,
			Memo:     e.Memo,
		}}

	case KindSplit:
		sign := e.splitSign()
		lines := make([]CategoryLine, 0, len(e.Splits))
		for _, s := range e.Splits {
			if s.IsLoan || s.Category == "" {
				continue
			}
			lines = append(lines, CategoryLine{
				EntryID:  e.ID,
				Category: s.Category,
				Amount:   sign.Mul(s.Amount),
				Date:     e.Date,
				Account:  e.Account,
				Payee:    e.Payee,
				Memo:     s.Memo,
			})
		}
		return lines
	}

	return nil
}

// LoanTransaction is one row of a loan's history: either a loan-typed
// entry itself, or a read-only pseudo-entry synthesized from a split line
// with IsLoan set. Pseudo-entries carry IsSplitPart=true and the owning
// split's id in ParentID; they cannot be edited, deleted or bulk-selected
// on their own.
type LoanTransaction struct {
	ID          string          `json:"id"`
	Loan        string          `json:"loan"`
	Amount      decimal.Decimal `json:"amount"`
	Date        time.Time       `json:"date"`
	Account     string          `json:"account"`
	Memo        string          `json:"memo,omitempty"`
	ClearStatus ClearStatus     `json:"clear_status"`
	IsSplitPart bool            `json:"is_split_part"`
	ParentID    uuid.UUID       `json:"parent_id,omitempty"`
}

// LoanView is the derived aggregate of every entry sharing a loan name.
// Loans are never persisted: they exist only as this computed view, so
// they cannot drift from their constituent entries.
type LoanView struct {
	Name    string          `json:"name"`
	Type    LoanType        `json:"type"`
	Balance decimal.Decimal `json:"balance"`

	// PaidBack accumulates for borrow-type loans (absolute value of every
	// negative contribution); Received accumulates for lend-type loans
	// (every positive contribution).
	PaidBack decimal.Decimal `json:"paid_back"`
	Received decimal.Decimal `json:"received"`

	Transactions []LoanTransaction `json:"transactions"`
}

// loanTransactions expands an entry into its loan contributions. Loan
// entries contribute themselves; split lines with IsLoan set contribute a
// synthesized pseudo-entry. Malformed lines (IsLoan without a name) are
// skipped.
func loanTransactions(e *Entry) []LoanTransaction {
	switch e.Kind {
	case KindLoan:
		if e.Loan == "" {
			return nil
		}
		return []LoanTransaction{{
			ID:          e.ID.String(),
			Loan:        e.Loan,
			Amount:      e.Amount,
			Date:        e.Date,
			Account:     e.Account,
			Memo:        e.Memo,
			ClearStatus: e.ClearStatus,
		}}

	case KindSplit:
		sign := e.splitSign()
		var txs []LoanTransaction
		for _, s := range e.Splits {
			if !s.IsLoan || s.Loan == "" {
				continue
			}
			txs = append(txs, LoanTransaction{
				ID:          fmt.Sprintf("%s-split-%s", e.ID, s.Loan),
				Loan:        s.Loan,
				Amount:      sign.Mul(s.Amount),
				Date:        e.Date,
				Account:     e.Account,
				Memo:        s.Memo,
				ClearStatus: e.ClearStatus,
				IsSplitPart: true,
				ParentID:    e.ID,
			})
		}
		return txs
	}

	return nil
}

// Loans aggregates every loan-typed entry and loan split line into one
// view per loan name. The loan's type comes from the first loan-typed
// entry that defines it, in entry order. A loan disappears from the result
// as soon as its last constituent entry is gone.
func Loans(entries []*Entry) []*LoanView {
	byName := make(map[string]*LoanView)
	var order []string

	view := func(name string) *LoanView {
		v, ok := byName[name]
		if !ok {
			v = &LoanView{
				Name:     name,
				Balance:  decimal.Zero,
				PaidBack: decimal.Zero,
				Received: decimal.Zero,
			}
			byName[name] = v
			order = append(order, name)
		}
		return v
	}

	// First pass: loan types come from the first defining loan entry, in
	// entry order, regardless of where split-derived rows appear.
	for _, e := range entries {
		if e.Kind == KindLoan && e.Loan != "" {
			v := view(e.Loan)
			if v.Type == "" {
				v.Type = e.LoanType
			}
		}
	}

	for _, e := range entries {
		for _, tx := range loanTransactions(e) {
			v := view(tx.Loan)
			v.Balance = v.Balance.Add(tx.Amount)
			switch v.Type {
			case LoanBorrow:
				if tx.Amount.Sign() < 0 {
					v.PaidBack = v.PaidBack.Add(tx.Amount.Abs())
				}
			case LoanLend:
				if tx.Amount.Sign() > 0 {
					v.Received = v.Received.Add(tx.Amount)
				}
			}
			v.Transactions = append(v.Transactions, tx)
		}
	}

	views := make([]*LoanView, 0, len(order))
	for _, name := range order {
		views = append(views, byName[name])
	}
	return views
}
