package ledger

import "errors"

// Entry validation errors
var (
	ErrInvalidEntryKind           = errors.New("invalid entry kind")
	ErrInvalidClearStatus         = errors.New("invalid clear status")
	ErrZeroAmount                 = errors.New("amount must be non-zero")
	ErrMissingAccount             = errors.New("entry must reference an account")
	ErrExpenseMustBeNegative      = errors.New("expense amount must be negative")
	ErrIncomeMustBePositive       = errors.New("income amount must be positive")
	ErrTransferAmountNotPositive  = errors.New("transfer amount must be a positive magnitude")
	ErrTransferSameAccount        = errors.New("transfer accounts must differ")
	ErrEmptySplit                 = errors.New("split must have at least one line")
	ErrSplitSumMismatch           = errors.New("split line amounts must sum to the total")
	ErrSplitLineAmountNotPositive = errors.New("split line amount must be positive")
	ErrSplitLineMissingTarget     = errors.New("split line must set a category or a loan")
	ErrSplitLineCategoryAndLoan   = errors.New("split line cannot set both category and loan")
	ErrMissingLoanName            = errors.New("loan entry must reference a loan name")
	ErrInvalidLoanType            = errors.New("invalid loan type")
)

// Account and category validation errors
var (
	ErrMissingAccountName  = errors.New("account name is required")
	ErrInvalidAccountType  = errors.New("invalid account type")
	ErrMissingCategoryName = errors.New("category name is required")
	ErrInvalidCategoryType = errors.New("invalid category type")
	ErrInvalidSpendingType = errors.New("invalid spending type")
	ErrAccountNameTaken    = errors.New("account name already in use")
	ErrCategoryNameTaken   = errors.New("category name already in use")
)

// State conflict errors, kept distinct from validation so callers can
// surface them differently
var (
	ErrEntryReconciled  = errors.New("entry is reconciled and locked; unreconcile the account first")
	ErrEntryIsSplitPart = errors.New("split-derived pseudo-entries cannot be edited or deleted directly")
)

// Not-found errors
var (
	ErrEntryNotFound    = errors.New("entry not found")
	ErrAccountNotFound  = errors.New("account not found")
	ErrCategoryNotFound = errors.New("category not found")
)
