package ledger

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func instant(y int, m time.Month, d, hh, mm, ss int) *time.Time {
	t := time.Date(y, m, d, hh, mm, ss, 0, time.UTC)
	return &t
}

func TestEntry_ContributionTo_Expense(t *testing.T) {
	e := &Entry{
		ID:      uuid.New(),
		Kind:    KindExpense,
		Account: "Cash",
		Amount:  dec("-200000"),
	}

	c, ok := e.ContributionTo("Cash")
	require.True(t, ok)
	assert.True(t, c.Equal(dec("-200000")))

	_, ok = e.ContributionTo("Bank")
	assert.False(t, ok)
}

func TestEntry_ContributionTo_Transfer(t *testing.T) {
	e := &Entry{
		ID:          uuid.New(),
		Kind:        KindTransfer,
		Amount:      dec("100000"),
		FromAccount: "Cash",
		ToAccount:   "Bank",
	}

	from, ok := e.ContributionTo("Cash")
	require.True(t, ok)
	assert.True(t, from.Equal(dec("-100000")))

	to, ok := e.ContributionTo("Bank")
	require.True(t, ok)
	assert.True(t, to.Equal(dec("100000")))

	// Both legs of any transfer sum to zero.
	assert.True(t, from.Add(to).IsZero())

	_, ok = e.ContributionTo("Savings")
	assert.False(t, ok)
}

func TestEntry_ContributionTo_TransferSameAccount(t *testing.T) {
	// Malformed but present in legacy data: both sides name one account.
	// The net contribution is zero, not omitted and not double counted.
	e := &Entry{
		Kind:        KindTransfer,
		Amount:      dec("5000"),
		FromAccount: "Cash",
		ToAccount:   "Cash",
	}

	c, ok := e.ContributionTo("Cash")
	require.True(t, ok)
	assert.True(t, c.IsZero())
}

func TestEntry_ContributionTo_Split(t *testing.T) {
	e := &Entry{
		Kind:        KindSplit,
		Account:     "Cash",
		TotalAmount: dec("-300000"),
		SplitType:   CategoryExpense,
		Splits: []SplitLine{
			{Amount: dec("100000"), Category: "Food"},
			{Amount: dec("200000"), Category: "Transport"},
		},
	}

	c, ok := e.ContributionTo("Cash")
	require.True(t, ok)
	assert.True(t, c.Equal(dec("-300000")))
}

func TestEntry_ContributionTo_UnrealizedGain(t *testing.T) {
	e := &Entry{Kind: KindUnrealizedGain, Account: "Stocks", Amount: dec("50000")}

	c, ok := e.ContributionTo("Stocks")
	require.True(t, ok)
	assert.True(t, c.Equal(dec("50000")))
}

func TestEntry_Validate(t *testing.T) {
	tests := []struct {
		name    string
		entry   Entry
		wantErr error
	}{
		{
			name:  "valid expense",
			entry: Entry{Kind: KindExpense, Account: "Cash", Amount: dec("-100")},
		},
		{
			name:    "expense with positive amount",
			entry:   Entry{Kind: KindExpense, Account: "Cash", Amount: dec("100")},
			wantErr: ErrExpenseMustBeNegative,
		},
		{
			name:    "income with negative amount",
			entry:   Entry{Kind: KindIncome, Account: "Cash", Amount: dec("-100")},
			wantErr: ErrIncomeMustBePositive,
		},
		{
			name:    "zero amount",
			entry:   Entry{Kind: KindExpense, Account: "Cash"},
			wantErr: ErrZeroAmount,
		},
		{
			name:    "missing account",
			entry:   Entry{Kind: KindExpense, Amount: dec("-100")},
			wantErr: ErrMissingAccount,
		},
		{
			name:    "transfer to itself",
			entry:   Entry{Kind: KindTransfer, Amount: dec("100"), FromAccount: "Cash", ToAccount: "Cash"},
			wantErr: ErrTransferSameAccount,
		},
		{
			name:    "transfer with signed amount",
			entry:   Entry{Kind: KindTransfer, Amount: dec("-100"), FromAccount: "Cash", ToAccount: "Bank"},
			wantErr: ErrTransferAmountNotPositive,
		},
		{
			name: "split sum mismatch",
			entry: Entry{
				Kind: KindSplit, Account: "Cash", TotalAmount: dec("-300"),
				Splits: []SplitLine{{Amount: dec("100"), Category: "Food"}},
			},
			wantErr: ErrSplitSumMismatch,
		},
		{
			name: "split line with neither category nor loan",
			entry: Entry{
				Kind: KindSplit, Account: "Cash", TotalAmount: dec("-100"),
				Splits: []SplitLine{{Amount: dec("100")}},
			},
			wantErr: ErrSplitLineMissingTarget,
		},
		{
			name: "split loan line without loan name",
			entry: Entry{
				Kind: KindSplit, Account: "Cash", TotalAmount: dec("-100"),
				Splits: []SplitLine{{Amount: dec("100"), IsLoan: true}},
			},
			wantErr: ErrMissingLoanName,
		},
		{
			name: "valid split with loan line",
			entry: Entry{
				Kind: KindSplit, Account: "Cash", TotalAmount: dec("-300"),
				Splits: []SplitLine{
					{Amount: dec("100"), Category: "Food"},
					{Amount: dec("200"), IsLoan: true, Loan: "Alice"},
				},
			},
		},
		{
			name:    "loan without loan name",
			entry:   Entry{Kind: KindLoan, Account: "Cash", Amount: dec("100"), LoanType: LoanBorrow},
			wantErr: ErrMissingLoanName,
		},
		{
			name:    "unknown kind",
			entry:   Entry{Kind: "refund", Account: "Cash", Amount: dec("1")},
			wantErr: ErrInvalidEntryKind,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.entry.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestEntry_EffectiveInstant(t *testing.T) {
	withCreated := &Entry{Date: day(2024, time.March, 1), CreatedAt: instant(2024, time.March, 1, 15, 4, 5)}
	assert.Equal(t, *withCreated.CreatedAt, withCreated.EffectiveInstant())

	withoutCreated := &Entry{Date: day(2024, time.March, 1)}
	assert.Equal(t, withoutCreated.Date, withoutCreated.EffectiveInstant())
}
