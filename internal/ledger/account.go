package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AccountType is the kind of balance-holding bucket an account represents.
type AccountType string

const (
	AccountCash       AccountType = "cash"
	AccountBank       AccountType = "bank"
	AccountSavings    AccountType = "savings"
	AccountInvestment AccountType = "investment"
	AccountProperty   AccountType = "property"
	AccountVehicle    AccountType = "vehicle"
	AccountAsset      AccountType = "asset"
	AccountLoan       AccountType = "loan"
)

// IsValid reports whether the type is a known account type.
func (t AccountType) IsValid() bool {
	switch t {
	case AccountCash, AccountBank, AccountSavings, AccountInvestment,
		AccountProperty, AccountVehicle, AccountAsset, AccountLoan:
		return true
	}
	return false
}

// IsMarketValue reports whether the account tracks a marked-to-market
// position. Market-value accounts derive their current value from a
// chronological replay instead of a flat sum.
func (t AccountType) IsMarketValue() bool {
	switch t {
	case AccountInvestment, AccountProperty, AccountVehicle, AccountAsset:
		return true
	}
	return false
}

// AccountGroup is the display grouping derived from AccountType.
type AccountGroup string

const (
	GroupSpending    AccountGroup = "SPENDING"
	GroupSavings     AccountGroup = "SAVINGS"
	GroupInvestments AccountGroup = "INVESTMENTS"
	GroupLoans       AccountGroup = "LOANS"
)

// Group returns the fixed type-to-group mapping.
func (t AccountType) Group() AccountGroup {
	switch t {
	case AccountCash, AccountBank:
		return GroupSpending
	case AccountSavings:
		return GroupSavings
	case AccountInvestment, AccountProperty, AccountVehicle, AccountAsset:
		return GroupInvestments
	default:
		return GroupLoans
	}
}

// Account is a named balance-holding bucket. Entries reference accounts by
// Name, not by ID; renaming an account requires an explicit cascade batch
// or historical entries are silently orphaned.
type Account struct {
	ID     uuid.UUID
	UserID uuid.UUID
	Name   string
	Type   AccountType

	// Group is derived from Type but stored redundantly, matching the
	// persisted document shape.
	Group AccountGroup

	// IsActive false means archived: excluded from aggregation and
	// display, retained for history.
	IsActive bool

	StartingBalance     decimal.Decimal
	StartingBalanceDate *time.Time
	CreatedAt           time.Time

	// Order is the user-controlled position within the group; nil sorts
	// last.
	Order *int

	// Snapshot of the last committed reconciliation. All nil when the
	// account has never been reconciled (or was unreconciled).
	LastReconcileDate    *time.Time
	LastReconcileBalance *decimal.Decimal
	LastReconcileSession *uuid.UUID
}

// Validate enforces write-time invariants for an account.
func (a *Account) Validate() error {
	if a.Name == "" {
		return ErrMissingAccountName
	}
	if !a.Type.IsValid() {
		return ErrInvalidAccountType
	}
	return nil
}

// StartingInstant returns the instant the starting balance applies at:
// StartingBalanceDate when set, otherwise CreatedAt.
func (a *Account) StartingInstant() time.Time {
	if a.StartingBalanceDate != nil {
		return *a.StartingBalanceDate
	}
	return a.CreatedAt
}
