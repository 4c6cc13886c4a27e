package ledger

import (
	"sort"
	"time"
)

// SortEntriesForDisplay orders entries the way ledgers are read: date
// descending, then creation time descending within a date. Entries with no
// creation time sort after those that have one, keeping their relative
// insertion order (the sort is stable).
func SortEntriesForDisplay(entries []*Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.After(b.Date)
		}
		switch {
		case a.CreatedAt == nil && b.CreatedAt == nil:
			return false
		case a.CreatedAt == nil:
			return false
		case b.CreatedAt == nil:
			return true
		default:
			return a.CreatedAt.After(*b.CreatedAt)
		}
	})
}

// EntryGroup is one calendar date's worth of display-ordered entries.
type EntryGroup struct {
	Date    time.Time `json:"date"`
	Entries []*Entry  `json:"entries"`
}

// GroupEntriesByDate sorts entries for display and buckets them by
// calendar date, newest date first.
func GroupEntriesByDate(entries []*Entry) []EntryGroup {
	sorted := make([]*Entry, len(entries))
	copy(sorted, entries)
	SortEntriesForDisplay(sorted)

	var groups []EntryGroup
	for _, e := range sorted {
		if n := len(groups); n > 0 && groups[n-1].Date.Equal(e.Date) {
			groups[n-1].Entries = append(groups[n-1].Entries, e)
			continue
		}
		groups = append(groups, EntryGroup{Date: e.Date, Entries: []*Entry{e}})
	}
	return groups
}

// orderKey maps a user-controlled order field to a sortable int; missing
// order sorts last.
func orderKey(order *int) int {
	if order == nil {
		return int(^uint(0) >> 1) // max int
	}
	return *order
}

// SortAccounts orders accounts by their user-controlled order field
// ascending, ties broken by name for determinism.
func SortAccounts(accounts []*Account) {
	sort.SliceStable(accounts, func(i, j int) bool {
		a, b := accounts[i], accounts[j]
		if ka, kb := orderKey(a.Order), orderKey(b.Order); ka != kb {
			return ka < kb
		}
		return a.Name < b.Name
	})
}

// SortCategories orders categories the same way accounts are ordered.
func SortCategories(categories []*Category) {
	sort.SliceStable(categories, func(i, j int) bool {
		a, b := categories[i], categories[j]
		if ka, kb := orderKey(a.Order), orderKey(b.Order); ka != kb {
			return ka < kb
		}
		return a.Name < b.Name
	})
}

// displayGroupOrder is the fixed precedence of account groups in the
// grouped view. Loan accounts never appear there.
var displayGroupOrder = []AccountGroup{GroupSpending, GroupSavings, GroupInvestments}

// AccountGroupView is one display group of ordered, active accounts.
type AccountGroupView struct {
	Group    AccountGroup `json:"group"`
	Accounts []*Account   `json:"accounts"`
}

// GroupAccounts buckets active accounts into the fixed group order
// SPENDING, SAVINGS, INVESTMENTS, each group internally ordered. Archived
// accounts and the LOANS group are excluded. Groups with no accounts are
// omitted.
func GroupAccounts(accounts []*Account) []AccountGroupView {
	byGroup := make(map[AccountGroup][]*Account)
	for _, a := range accounts {
		if !a.IsActive {
			continue
		}
		g := a.Type.Group()
		if g == GroupLoans {
			continue
		}
		byGroup[g] = append(byGroup[g], a)
	}

	var views []AccountGroupView
	for _, g := range displayGroupOrder {
		group := byGroup[g]
		if len(group) == 0 {
			continue
		}
		SortAccounts(group)
		views = append(views, AccountGroupView{Group: g, Accounts: group})
	}
	return views
}
