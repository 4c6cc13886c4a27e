package ledger

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Collection names the persisted document sets.
type Collection string

const (
	CollectionAccounts   Collection = "accounts"
	CollectionCategories Collection = "categories"
	CollectionEntries    Collection = "entries"
)

// MutationOp is a single write primitive.
type MutationOp string

const (
	OpCreate MutationOp = "create"
	OpUpdate MutationOp = "update"
	OpDelete MutationOp = "delete"
)

// Mutation is one intended write. Reconciliation, bulk operations and
// rename cascades are expressed as slices of mutations applied through
// ApplyBatch with all-or-nothing semantics; no partial state is ever
// visible.
type Mutation struct {
	Op         MutationOp
	Collection Collection
	ID         uuid.UUID

	// Fields is the partial field set for OpUpdate, keyed by the stored
	// field name. A nil value clears the field.
	Fields map[string]any

	// Exactly one of these is set for OpCreate, matching Collection.
	Entry    *Entry
	Account  *Account
	Category *Category
}

// updateEntry builds an entry update mutation.
func updateEntry(id uuid.UUID, fields map[string]any) Mutation {
	return Mutation{Op: OpUpdate, Collection: CollectionEntries, ID: id, Fields: fields}
}

// updateAccount builds an account update mutation.
func updateAccount(id uuid.UUID, fields map[string]any) Mutation {
	return Mutation{Op: OpUpdate, Collection: CollectionAccounts, ID: id, Fields: fields}
}

// Repository is the persistence collaborator. Reads return already-fetched
// snapshots the pure calculators consume; writes go through the document
// primitives. Any error is surfaced verbatim to the caller.
type Repository interface {
	// Accounts
	CreateAccount(ctx context.Context, account *Account) error
	GetAccount(ctx context.Context, userID, id uuid.UUID) (*Account, error)
	GetAccountByName(ctx context.Context, userID uuid.UUID, name string) (*Account, error)
	ListAccounts(ctx context.Context, userID uuid.UUID) ([]*Account, error)
	UpdateAccount(ctx context.Context, account *Account) error
	DeleteAccount(ctx context.Context, userID, id uuid.UUID) error

	// Categories
	CreateCategory(ctx context.Context, category *Category) error
	GetCategory(ctx context.Context, userID, id uuid.UUID) (*Category, error)
	ListCategories(ctx context.Context, userID uuid.UUID) ([]*Category, error)
	UpdateCategory(ctx context.Context, category *Category) error
	DeleteCategory(ctx context.Context, userID, id uuid.UUID) error

	// Entries
	CreateEntry(ctx context.Context, entry *Entry) error
	GetEntry(ctx context.Context, userID, id uuid.UUID) (*Entry, error)
	ListEntries(ctx context.Context, userID uuid.UUID) ([]*Entry, error)
	ListEntriesByAccount(ctx context.Context, userID uuid.UUID, account string) ([]*Entry, error)
	UpdateEntry(ctx context.Context, entry *Entry) error
	DeleteEntry(ctx context.Context, userID, id uuid.UUID) error

	// ApplyBatch applies every mutation in a single atomic unit: either
	// all of them take effect or none do.
	ApplyBatch(ctx context.Context, userID uuid.UUID, batch []Mutation) error
}

// BalanceCache caches computed balance snapshots per account. A cache is
// strictly an optimization: a miss or error falls back to recomputation.
type BalanceCache interface {
	Get(ctx context.Context, accountID uuid.UUID) (*Balance, bool, error)
	Set(ctx context.Context, accountID uuid.UUID, balance Balance) error
	Invalidate(ctx context.Context, accountIDs ...uuid.UUID) error
}

// Change describes a committed write, published to live subscribers so
// read models can re-run their calculators on a fresh snapshot.
type Change struct {
	UserID      uuid.UUID    `json:"user_id"`
	Collections []Collection `json:"collections"`
}

// AccountBalances pairs an account with its computed balances for
// list-style read responses.
type AccountBalances struct {
	Account      *Account         `json:"account"`
	Balance      Balance          `json:"balance"`
	CurrentValue *decimal.Decimal `json:"current_value,omitempty"`
}
