package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/coinkeep/coinkeep/internal/ledger"
)

// LedgerRepository implements the ledger repository interface using
// PostgreSQL. Money columns are NUMERIC, read and written through their
// string form so no float conversion ever touches an amount.
type LedgerRepository struct {
	pool *pgxpool.Pool
}

// NewLedgerRepository creates a new PostgreSQL ledger repository
func NewLedgerRepository(pool *pgxpool.Pool) *LedgerRepository {
	return &LedgerRepository{pool: pool}
}

const accountColumns = `id, user_id, name, type, account_group, is_active,
	starting_balance, starting_balance_date, display_order,
	last_reconcile_date, last_reconcile_balance, last_reconcile_session, created_at`

const categoryColumns = `id, user_id, name, type, category_group, spending_type, display_order`

const entryColumns = `id, user_id, kind, entry_date, created_at, memo,
	clear_status, reconciled_at, reconcile_session_id,
	amount, account, category, payee, from_account, to_account,
	total_amount, split_type, splits, loan, loan_type`

// Account operations

// CreateAccount creates a new account in the database
func (r *LedgerRepository) CreateAccount(ctx context.Context, account *ledger.Account) error {
	query := `
		INSERT INTO accounts (` + accountColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	q := r.getQueryer(ctx)
	_, err := q.Exec(ctx, query,
		account.ID,
		account.UserID,
		account.Name,
		string(account.Type),
		string(account.Group),
		account.IsActive,
		account.StartingBalance.String(),
		account.StartingBalanceDate,
		account.Order,
		account.LastReconcileDate,
		decimalPtrString(account.LastReconcileBalance),
		account.LastReconcileSession,
		account.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

// GetAccount retrieves an account by ID
func (r *LedgerRepository) GetAccount(ctx context.Context, userID, id uuid.UUID) (*ledger.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE user_id = $1 AND id = $2`

	q := r.getQueryer(ctx)
	account, err := scanAccount(q.QueryRow(ctx, query, userID, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ledger.ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return account, nil
}

// GetAccountByName retrieves an account by its user-scoped name
func (r *LedgerRepository) GetAccountByName(ctx context.Context, userID uuid.UUID, name string) (*ledger.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE user_id = $1 AND name = $2`

	q := r.getQueryer(ctx)
	account, err := scanAccount(q.QueryRow(ctx, query, userID, name))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ledger.ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to get account by name: %w", err)
	}
	return account, nil
}

// ListAccounts retrieves all accounts for a user
func (r *LedgerRepository) ListAccounts(ctx context.Context, userID uuid.UUID) ([]*ledger.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE user_id = $1 ORDER BY created_at ASC`

	q := r.getQueryer(ctx)
	rows, err := q.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*ledger.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, account)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating accounts: %w", err)
	}
	return accounts, nil
}

// UpdateAccount updates all mutable fields of an account
func (r *LedgerRepository) UpdateAccount(ctx context.Context, account *ledger.Account) error {
	query := `
		UPDATE accounts SET
			name = $3, type = $4, account_group = $5, is_active = $6,
			starting_balance = $7, starting_balance_date = $8, display_order = $9,
			last_reconcile_date = $10, last_reconcile_balance = $11, last_reconcile_session = $12
		WHERE user_id = $1 AND id = $2
	`

	q := r.getQueryer(ctx)
	tag, err := q.Exec(ctx, query,
		account.UserID,
		account.ID,
		account.Name,
		string(account.Type),
		string(account.Group),
		account.IsActive,
		account.StartingBalance.String(),
		account.StartingBalanceDate,
		account.Order,
		account.LastReconcileDate,
		decimalPtrString(account.LastReconcileBalance),
		account.LastReconcileSession,
	)
	if err != nil {
		return fmt.Errorf("failed to update account: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ledger.ErrAccountNotFound
	}
	return nil
}

// DeleteAccount deletes an account
func (r *LedgerRepository) DeleteAccount(ctx context.Context, userID, id uuid.UUID) error {
	q := r.getQueryer(ctx)
	tag, err := q.Exec(ctx, `DELETE FROM accounts WHERE user_id = $1 AND id = $2`, userID, id)
	if err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ledger.ErrAccountNotFound
	}
	return nil
}

// Category operations

// CreateCategory creates a new category in the database
func (r *LedgerRepository) CreateCategory(ctx context.Context, category *ledger.Category) error {
	query := `
		INSERT INTO categories (` + categoryColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	q := r.getQueryer(ctx)
	_, err := q.Exec(ctx, query,
		category.ID,
		category.UserID,
		category.Name,
		string(category.Type),
		category.Group,
		string(category.SpendingType),
		category.Order,
	)
	if err != nil {
		return fmt.Errorf("failed to create category: %w", err)
	}
	return nil
}

// GetCategory retrieves a category by ID
func (r *LedgerRepository) GetCategory(ctx context.Context, userID, id uuid.UUID) (*ledger.Category, error) {
	query := `SELECT ` + categoryColumns + ` FROM categories WHERE user_id = $1 AND id = $2`

	q := r.getQueryer(ctx)
	category, err := scanCategory(q.QueryRow(ctx, query, userID, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ledger.ErrCategoryNotFound
		}
		return nil, fmt.Errorf("failed to get category: %w", err)
	}
	return category, nil
}

// ListCategories retrieves all categories for a user
func (r *LedgerRepository) ListCategories(ctx context.Context, userID uuid.UUID) ([]*ledger.Category, error) {
	query := `SELECT ` + categoryColumns + ` FROM categories WHERE user_id = $1 ORDER BY name ASC`

	q := r.getQueryer(ctx)
	rows, err := q.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer rows.Close()

	var categories []*ledger.Category
	for rows.Next() {
		category, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, category)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating categories: %w", err)
	}
	return categories, nil
}

// UpdateCategory updates all mutable fields of a category
func (r *LedgerRepository) UpdateCategory(ctx context.Context, category *ledger.Category) error {
	query := `
		UPDATE categories SET
			name = $3, type = $4, category_group = $5, spending_type = $6, display_order = $7
		WHERE user_id = $1 AND id = $2
	`

	q := r.getQueryer(ctx)
	tag, err := q.Exec(ctx, query,
		category.UserID,
		category.ID,
		category.Name,
		string(category.Type),
		category.Group,
		string(category.SpendingType),
		category.Order,
	)
	if err != nil {
		return fmt.Errorf("failed to update category: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ledger.ErrCategoryNotFound
	}
	return nil
}

// DeleteCategory deletes a category
func (r *LedgerRepository) DeleteCategory(ctx context.Context, userID, id uuid.UUID) error {
	q := r.getQueryer(ctx)
	tag, err := q.Exec(ctx, `DELETE FROM categories WHERE user_id = $1 AND id = $2`, userID, id)
	if err != nil {
		return fmt.Errorf("failed to delete category: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ledger.ErrCategoryNotFound
	}
	return nil
}

// Entry operations

// CreateEntry creates a new entry in the database
func (r *LedgerRepository) CreateEntry(ctx context.Context, entry *ledger.Entry) error {
	splitsJSON, err := json.Marshal(entry.Splits)
	if err != nil {
		return fmt.Errorf("failed to marshal splits: %w", err)
	}

	query := `
		INSERT INTO entries (` + entryColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
	`

	q := r.getQueryer(ctx)
	_, err = q.Exec(ctx, query,
		entry.ID,
		entry.UserID,
		string(entry.Kind),
		entry.Date,
		entry.CreatedAt,
		entry.Memo,
		string(entry.ClearStatus),
		entry.ReconciledAt,
		entry.ReconcileSessionID,
		entry.Amount.String(),
		entry.Account,
		entry.Category,
		entry.Payee,
		entry.FromAccount,
		entry.ToAccount,
		entry.TotalAmount.String(),
		string(entry.SplitType),
		splitsJSON,
		entry.Loan,
		string(entry.LoanType),
	)
	if err != nil {
		return fmt.Errorf("failed to create entry: %w", err)
	}
	return nil
}

// GetEntry retrieves an entry by ID
func (r *LedgerRepository) GetEntry(ctx context.Context, userID, id uuid.UUID) (*ledger.Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM entries WHERE user_id = $1 AND id = $2`

	q := r.getQueryer(ctx)
	entry, err := scanEntry(q.QueryRow(ctx, query, userID, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ledger.ErrEntryNotFound
		}
		return nil, fmt.Errorf("failed to get entry: %w", err)
	}
	return entry, nil
}

// ListEntries retrieves all entries for a user, oldest date first
func (r *LedgerRepository) ListEntries(ctx context.Context, userID uuid.UUID) ([]*ledger.Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM entries WHERE user_id = $1 ORDER BY entry_date ASC, created_at ASC NULLS FIRST`
	return r.queryEntries(ctx, query, userID)
}

// ListEntriesByAccount retrieves the entries touching an account by name,
// on any side of a transfer.
func (r *LedgerRepository) ListEntriesByAccount(ctx context.Context, userID uuid.UUID, account string) ([]*ledger.Entry, error) {
	query := `
		SELECT ` + entryColumns + `
		FROM entries
		WHERE user_id = $1 AND (account = $2 OR from_account = $2 OR to_account = $2)
		ORDER BY entry_date ASC, created_at ASC NULLS FIRST
	`
	return r.queryEntries(ctx, query, userID, account)
}

func (r *LedgerRepository) queryEntries(ctx context.Context, query string, args ...any) ([]*ledger.Entry, error) {
	q := r.getQueryer(ctx)
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query entries: %w", err)
	}
	defer rows.Close()

	var entries []*ledger.Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating entries: %w", err)
	}
	return entries, nil
}

// UpdateEntry updates all mutable fields of an entry
func (r *LedgerRepository) UpdateEntry(ctx context.Context, entry *ledger.Entry) error {
	splitsJSON, err := json.Marshal(entry.Splits)
	if err != nil {
		return fmt.Errorf("failed to marshal splits: %w", err)
	}

	query := `
		UPDATE entries SET
			kind = $3, entry_date = $4, created_at = $5, memo = $6,
			clear_status = $7, reconciled_at = $8, reconcile_session_id = $9,
			amount = $10, account = $11, category = $12, payee = $13,
			from_account = $14, to_account = $15,
			total_amount = $16, split_type = $17, splits = $18,
			loan = $19, loan_type = $20
		WHERE user_id = $1 AND id = $2
	`

	q := r.getQueryer(ctx)
	tag, err := q.Exec(ctx, query,
		entry.UserID,
		entry.ID,
		string(entry.Kind),
		entry.Date,
		entry.CreatedAt,
		entry.Memo,
		string(entry.ClearStatus),
		entry.ReconciledAt,
		entry.ReconcileSessionID,
		entry.Amount.String(),
		entry.Account,
		entry.Category,
		entry.Payee,
		entry.FromAccount,
		entry.ToAccount,
		entry.TotalAmount.String(),
		string(entry.SplitType),
		splitsJSON,
		entry.Loan,
		string(entry.LoanType),
	)
	if err != nil {
		return fmt.Errorf("failed to update entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ledger.ErrEntryNotFound
	}
	return nil
}

// DeleteEntry deletes an entry
func (r *LedgerRepository) DeleteEntry(ctx context.Context, userID, id uuid.UUID) error {
	q := r.getQueryer(ctx)
	tag, err := q.Exec(ctx, `DELETE FROM entries WHERE user_id = $1 AND id = $2`, userID, id)
	if err != nil {
		return fmt.Errorf("failed to delete entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ledger.ErrEntryNotFound
	}
	return nil
}

// ApplyBatch applies a mutation batch inside a single database
// transaction: either every mutation lands or none do. Every touched row
// is scoped to the user.
func (r *LedgerRepository) ApplyBatch(ctx context.Context, userID uuid.UUID, batch []ledger.Mutation) error {
	if len(batch) == 0 {
		return nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	txCtx := context.WithValue(ctx, txContextKey, tx)
	for _, m := range batch {
		if err := r.applyMutation(txCtx, userID, m); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (r *LedgerRepository) applyMutation(ctx context.Context, userID uuid.UUID, m ledger.Mutation) error {
	switch m.Op {
	case ledger.OpCreate:
		switch m.Collection {
		case ledger.CollectionEntries:
			m.Entry.UserID = userID
			return r.CreateEntry(ctx, m.Entry)
		case ledger.CollectionAccounts:
			m.Account.UserID = userID
			return r.CreateAccount(ctx, m.Account)
		case ledger.CollectionCategories:
			m.Category.UserID = userID
			return r.CreateCategory(ctx, m.Category)
		}
	case ledger.OpDelete:
		switch m.Collection {
		case ledger.CollectionEntries:
			return r.DeleteEntry(ctx, userID, m.ID)
		case ledger.CollectionAccounts:
			return r.DeleteAccount(ctx, userID, m.ID)
		case ledger.CollectionCategories:
			return r.DeleteCategory(ctx, userID, m.ID)
		}
	case ledger.OpUpdate:
		return r.updateFields(ctx, userID, m)
	}
	return fmt.Errorf("unknown mutation op %q on %q", m.Op, m.Collection)
}

// updateFields builds a partial UPDATE from a mutation's field map.
func (r *LedgerRepository) updateFields(ctx context.Context, userID uuid.UUID, m ledger.Mutation) error {
	table, notFound, err := mutationTable(m.Collection)
	if err != nil {
		return err
	}

	set := ""
	args := []any{userID, m.ID}
	for key, value := range m.Fields {
		column, encoded, err := encodeField(m.Collection, key, value)
		if err != nil {
			return err
		}
		if set != "" {
			set += ", "
		}
		args = append(args, encoded)
		set += fmt.Sprintf("%s = $%d", column, len(args))
	}
	if set == "" {
		return nil
	}

	query := fmt.Sprintf("UPDATE %s SET %s WHERE user_id = $1 AND id = $2", table, set)
	q := r.getQueryer(ctx)
	tag, err := q.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update %s: %w", table, err)
	}
	if tag.RowsAffected() == 0 {
		return notFound
	}
	return nil
}

func mutationTable(c ledger.Collection) (string, error, error) {
	switch c {
	case ledger.CollectionEntries:
		return "entries", ledger.ErrEntryNotFound, nil
	case ledger.CollectionAccounts:
		return "accounts", ledger.ErrAccountNotFound, nil
	case ledger.CollectionCategories:
		return "categories", ledger.ErrCategoryNotFound, nil
	}
	return "", nil, fmt.Errorf("unknown collection %q", c)
}

// encodeField maps a mutation field key to its column and SQL value.
// Unknown keys are rejected so a typo fails the whole batch instead of
// silently dropping a write.
func encodeField(c ledger.Collection, key string, value any) (string, any, error) {
	column := key
	switch c {
	case ledger.CollectionEntries:
		switch key {
		case "clear_status", "reconciled_at", "reconcile_session_id",
			"account", "from_account", "to_account", "category",
			"memo", "payee", "loan":
		case "date":
			column = "entry_date"
		case "splits":
			splitsJSON, err := json.Marshal(value)
			if err != nil {
				return "", nil, fmt.Errorf("failed to marshal splits: %w", err)
			}
			return "splits", splitsJSON, nil
		case "amount", "total_amount":
			v, err := decimalString(value)
			return column, v, err
		default:
			return "", nil, fmt.Errorf("unknown entry field %q", key)
		}
	case ledger.CollectionAccounts:
		switch key {
		case "name", "is_active", "display_order",
			"last_reconcile_date", "last_reconcile_session":
		case "starting_balance", "last_reconcile_balance":
			v, err := decimalString(value)
			return column, v, err
		default:
			return "", nil, fmt.Errorf("unknown account field %q", key)
		}
	case ledger.CollectionCategories:
		switch key {
		case "name", "spending_type", "display_order":
		case "group":
			column = "category_group"
		default:
			return "", nil, fmt.Errorf("unknown category field %q", key)
		}
	}
	return column, encodeValue(value), nil
}

// encodeValue normalizes domain types to driver-friendly values.
func encodeValue(value any) any {
	switch v := value.(type) {
	case ledger.ClearStatus:
		return string(v)
	case decimal.Decimal:
		return v.String()
	default:
		return value
	}
}

func decimalString(value any) (any, error) {
	if value == nil {
		return nil, nil
	}
	d, ok := value.(decimal.Decimal)
	if !ok {
		return nil, fmt.Errorf("expected decimal amount, got %T", value)
	}
	return d.String(), nil
}

func decimalPtrString(d *decimal.Decimal) *string {
	if d == nil {
		return nil
	}
	s := d.String()
	return &s
}

// Row scanners

func scanAccount(row pgx.Row) (*ledger.Account, error) {
	var account ledger.Account
	var startingBalance string
	var lastReconcileBalance sql.NullString
	var order sql.NullInt32

	err := row.Scan(
		&account.ID,
		&account.UserID,
		&account.Name,
		&account.Type,
		&account.Group,
		&account.IsActive,
		&startingBalance,
		&account.StartingBalanceDate,
		&order,
		&account.LastReconcileDate,
		&lastReconcileBalance,
		&account.LastReconcileSession,
		&account.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	account.StartingBalance, err = decimal.NewFromString(startingBalance)
	if err != nil {
		return nil, fmt.Errorf("failed to parse starting balance: %w", err)
	}
	if lastReconcileBalance.Valid {
		d, err := decimal.NewFromString(lastReconcileBalance.String)
		if err != nil {
			return nil, fmt.Errorf("failed to parse last reconcile balance: %w", err)
		}
		account.LastReconcileBalance = &d
	}
	if order.Valid {
		n := int(order.Int32)
		account.Order = &n
	}
	return &account, nil
}

func scanCategory(row pgx.Row) (*ledger.Category, error) {
	var category ledger.Category
	var order sql.NullInt32

	err := row.Scan(
		&category.ID,
		&category.UserID,
		&category.Name,
		&category.Type,
		&category.Group,
		&category.SpendingType,
		&order,
	)
	if err != nil {
		return nil, err
	}
	if order.Valid {
		n := int(order.Int32)
		category.Order = &n
	}
	return &category, nil
}

func scanEntry(row pgx.Row) (*ledger.Entry, error) {
	var entry ledger.Entry
	var amount, totalAmount string
	var splitsJSON []byte

	err := row.Scan(
		&entry.ID,
		&entry.UserID,
		&entry.Kind,
		&entry.Date,
		&entry.CreatedAt,
		&entry.Memo,
		&entry.ClearStatus,
		&entry.ReconciledAt,
		&entry.ReconcileSessionID,
		&amount,
		&entry.Account,
		&entry.Category,
		&entry.Payee,
		&entry.FromAccount,
		&entry.ToAccount,
		&totalAmount,
		&entry.SplitType,
		&splitsJSON,
		&entry.Loan,
		&entry.LoanType,
	)
	if err != nil {
		return nil, err
	}

	entry.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("failed to parse amount: %w", err)
	}
	entry.TotalAmount, err = decimal.NewFromString(totalAmount)
	if err != nil {
		return nil, fmt.Errorf("failed to parse total amount: %w", err)
	}
	if len(splitsJSON) > 0 {
		if err := json.Unmarshal(splitsJSON, &entry.Splits); err != nil {
			return nil, fmt.Errorf("failed to unmarshal splits: %w", err)
		}
	}
	return &entry, nil
}

// Transaction plumbing. ApplyBatch stores its pgx transaction in the
// context; every repository method then routes through it via getQueryer,
// so the same code serves both transactional and direct calls.

type ctxKey string

const txContextKey ctxKey = "ledger_tx"

// getQueryer returns the transaction if one exists in context, otherwise
// the pool.
func (r *LedgerRepository) getQueryer(ctx context.Context) interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
} {
	if tx, ok := ctx.Value(txContextKey).(pgx.Tx); ok {
		return tx
	}
	return r.pool
}
