package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(i int) *int { return &i }

func TestSortEntriesForDisplay(t *testing.T) {
	older := &Entry{Memo: "older", Date: day(2024, time.March, 1), CreatedAt: instant(2024, time.March, 1, 9, 0, 0)}
	newer := &Entry{Memo: "newer", Date: day(2024, time.March, 1), CreatedAt: instant(2024, time.March, 1, 17, 0, 0)}
	noCreated := &Entry{Memo: "no-created", Date: day(2024, time.March, 1)}
	yesterday := &Entry{Memo: "yesterday", Date: day(2024, time.February, 29), CreatedAt: instant(2024, time.February, 29, 12, 0, 0)}

	entries := []*Entry{yesterday, noCreated, older, newer}
	SortEntriesForDisplay(entries)

	memos := []string{entries[0].Memo, entries[1].Memo, entries[2].Memo, entries[3].Memo}
	assert.Equal(t, []string{"newer", "older", "no-created", "yesterday"}, memos)
}

func TestSortEntriesForDisplay_InsertionOrderTiebreak(t *testing.T) {
	first := &Entry{Memo: "first", Date: day(2024, time.March, 1)}
	second := &Entry{Memo: "second", Date: day(2024, time.March, 1)}

	entries := []*Entry{first, second}
	SortEntriesForDisplay(entries)

	assert.Equal(t, "first", entries[0].Memo)
	assert.Equal(t, "second", entries[1].Memo)
}

func TestGroupEntriesByDate(t *testing.T) {
	entries := []*Entry{
		{Memo: "a", Date: day(2024, time.March, 1)},
		{Memo: "b", Date: day(2024, time.March, 2)},
		{Memo: "c", Date: day(2024, time.March, 2)},
	}

	groups := GroupEntriesByDate(entries)

	require.Len(t, groups, 2)
	assert.Equal(t, day(2024, time.March, 2), groups[0].Date)
	assert.Len(t, groups[0].Entries, 2)
	assert.Equal(t, day(2024, time.March, 1), groups[1].Date)
}

func TestSortAccounts(t *testing.T) {
	a := &Account{Name: "Alpha", Order: intPtr(2)}
	b := &Account{Name: "Beta", Order: intPtr(1)}
	c := &Account{Name: "Gamma"} // no order: sorts last
	d := &Account{Name: "Delta", Order: intPtr(1)}

	accounts := []*Account{c, a, d, b}
	SortAccounts(accounts)

	names := []string{accounts[0].Name, accounts[1].Name, accounts[2].Name, accounts[3].Name}
	assert.Equal(t, []string{"Beta", "Delta", "Alpha", "Gamma"}, names)
}

func TestSortCategories(t *testing.T) {
	a := &Category{Name: "Rent", Order: intPtr(0)}
	b := &Category{Name: "Food"}
	c := &Category{Name: "Fun", Order: intPtr(1)}

	categories := []*Category{b, c, a}
	SortCategories(categories)

	assert.Equal(t, "Rent", categories[0].Name)
	assert.Equal(t, "Fun", categories[1].Name)
	assert.Equal(t, "Food", categories[2].Name)
}

func TestGroupAccounts(t *testing.T) {
	accounts := []*Account{
		{Name: "Brokerage", Type: AccountInvestment, IsActive: true},
		{Name: "Checking", Type: AccountBank, IsActive: true},
		{Name: "Wallet", Type: AccountCash, IsActive: true, Order: intPtr(0)},
		{Name: "Emergency", Type: AccountSavings, IsActive: true},
		{Name: "Mortgage", Type: AccountLoan, IsActive: true},
		{Name: "Old Checking", Type: AccountBank, IsActive: false},
	}

	views := GroupAccounts(accounts)

	require.Len(t, views, 3)
	assert.Equal(t, GroupSpending, views[0].Group)
	assert.Equal(t, GroupSavings, views[1].Group)
	assert.Equal(t, GroupInvestments, views[2].Group)

	// Loans never appear; archived accounts are excluded.
	for _, v := range views {
		for _, a := range v.Accounts {
			assert.NotEqual(t, AccountLoan, a.Type)
			assert.True(t, a.IsActive)
		}
	}

	// Within SPENDING the explicit order wins.
	assert.Equal(t, "Wallet", views[0].Accounts[0].Name)
}

func TestAccountTypeGroupMapping(t *testing.T) {
	assert.Equal(t, GroupSpending, AccountCash.Group())
	assert.Equal(t, GroupSpending, AccountBank.Group())
	assert.Equal(t, GroupSavings, AccountSavings.Group())
	assert.Equal(t, GroupInvestments, AccountInvestment.Group())
	assert.Equal(t, GroupInvestments, AccountProperty.Group())
	assert.Equal(t, GroupInvestments, AccountVehicle.Group())
	assert.Equal(t, GroupInvestments, AccountAsset.Group())
	assert.Equal(t, GroupLoans, AccountLoan.Group())
}
