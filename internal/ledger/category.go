package ledger

import "github.com/google/uuid"

// CategoryType separates expense categories from income categories.
type CategoryType string

const (
	CategoryExpense CategoryType = "expense"
	CategoryIncome  CategoryType = "income"
)

// IsValid reports whether the type is a known category type.
func (t CategoryType) IsValid() bool {
	return t == CategoryExpense || t == CategoryIncome
}

// SpendingType classifies expense categories for budgeting reports.
type SpendingType string

const (
	SpendingNeed SpendingType = "need"
	SpendingWant SpendingType = "want"
)

// Category labels entries for reporting. Entries reference categories by
// Name; Name is unique per user and type.
type Category struct {
	ID     uuid.UUID
	UserID uuid.UUID
	Name   string
	Type   CategoryType

	// Group is a free-form label used to cluster categories in reports.
	Group string

	// SpendingType is only meaningful for expense categories.
	SpendingType SpendingType

	// Order is the user-controlled display position; nil sorts last.
	Order *int
}

// Validate enforces write-time invariants for a category.
func (c *Category) Validate() error {
	if c.Name == "" {
		return ErrMissingCategoryName
	}
	if !c.Type.IsValid() {
		return ErrInvalidCategoryType
	}
	if c.SpendingType != "" && c.SpendingType != SpendingNeed && c.SpendingType != SpendingWant {
		return ErrInvalidSpendingType
	}
	return nil
}
