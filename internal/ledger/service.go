package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/coinkeep/coinkeep/pkg/logger"
)

// Service orchestrates the ledger: it validates writes, runs the pure
// calculators over repository snapshots, turns reconciliation plans into
// atomic batches, and publishes change notifications after every commit.
// The calculators themselves stay side-effect free; all I/O lives here.
type Service struct {
	repo     Repository
	cache    BalanceCache
	notifier *Notifier
	log      *logger.Logger
}

// NewService creates a new ledger service. cache may be nil; balances are
// then recomputed on every read.
func NewService(repo Repository, cache BalanceCache, log *logger.Logger) *Service {
	return &Service{
		repo:     repo,
		cache:    cache,
		notifier: NewNotifier(),
		log:      log.WithComponent("ledger"),
	}
}

// Subscribe registers a live subscriber for committed changes. The
// returned cancel function must be called when the subscriber goes away.
func (s *Service) Subscribe(userID uuid.UUID) (<-chan Change, func()) {
	return s.notifier.Subscribe(userID)
}

// --- Accounts ---

// CreateAccount validates and persists a new account. The group is always
// (re)derived from the type; the stored group is redundant by design.
func (s *Service) CreateAccount(ctx context.Context, account *Account) error {
	account.Group = account.Type.Group()
	if account.CreatedAt.IsZero() {
		account.CreatedAt = time.Now().UTC()
	}
	if err := account.Validate(); err != nil {
		return err
	}
	if existing, err := s.repo.GetAccountByName(ctx, account.UserID, account.Name); err == nil && existing != nil {
		return ErrAccountNameTaken
	}
	if err := s.repo.CreateAccount(ctx, account); err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}
	s.published(account.UserID, CollectionAccounts)
	return nil
}

// GetAccount returns one account.
func (s *Service) GetAccount(ctx context.Context, userID, id uuid.UUID) (*Account, error) {
	return s.repo.GetAccount(ctx, userID, id)
}

// UpdateAccount persists changes to an account. Renames must go through
// RenameAccount so the entry cascade is explicit; a name change here is
// rejected.
func (s *Service) UpdateAccount(ctx context.Context, account *Account) error {
	current, err := s.repo.GetAccount(ctx, account.UserID, account.ID)
	if err != nil {
		return err
	}
	if current.Name != account.Name {
		return fmt.Errorf("account rename requires the rename operation: %w", ErrAccountNameTaken)
	}
	account.Group = account.Type.Group()
	if err := account.Validate(); err != nil {
		return err
	}
	if err := s.repo.UpdateAccount(ctx, account); err != nil {
		return fmt.Errorf("failed to update account: %w", err)
	}
	s.invalidate(ctx, account.ID)
	s.published(account.UserID, CollectionAccounts)
	return nil
}

// ArchiveAccount marks an account inactive. Historical entries are left
// untouched.
func (s *Service) ArchiveAccount(ctx context.Context, userID, id uuid.UUID) error {
	account, err := s.repo.GetAccount(ctx, userID, id)
	if err != nil {
		return err
	}
	account.IsActive = false
	if err := s.repo.UpdateAccount(ctx, account); err != nil {
		return fmt.Errorf("failed to archive account: %w", err)
	}
	s.published(userID, CollectionAccounts)
	return nil
}

// DeleteAccount hard-deletes an account. Entries referencing it by name
// remain and simply stop contributing anywhere.
func (s *Service) DeleteAccount(ctx context.Context, userID, id uuid.UUID) error {
	if err := s.repo.DeleteAccount(ctx, userID, id); err != nil {
		return err
	}
	s.invalidate(ctx, id)
	s.published(userID, CollectionAccounts)
	return nil
}

// RenameAccount renames an account and cascades the new name to every
// entry referencing the old one, in a single atomic batch. Without the
// cascade a rename would silently orphan historical entries.
func (s *Service) RenameAccount(ctx context.Context, userID, id uuid.UUID, newName string) error {
	if newName == "" {
		return ErrMissingAccountName
	}
	account, err := s.repo.GetAccount(ctx, userID, id)
	if err != nil {
		return err
	}
	if account.Name == newName {
		return nil
	}
	if existing, err := s.repo.GetAccountByName(ctx, userID, newName); err == nil && existing != nil {
		return ErrAccountNameTaken
	}

	entries, err := s.repo.ListEntriesByAccount(ctx, userID, account.Name)
	if err != nil {
		return fmt.Errorf("failed to list entries for rename: %w", err)
	}

	batch := []Mutation{updateAccount(id, map[string]any{"name": newName})}
	for _, e := range entries {
		fields := map[string]any{}
		if e.Account == account.Name {
			fields["account"] = newName
		}
		if e.FromAccount == account.Name {
			fields["from_account"] = newName
		}
		if e.ToAccount == account.Name {
			fields["to_account"] = newName
		}
		if len(fields) > 0 {
			batch = append(batch, updateEntry(e.ID, fields))
		}
	}

	if err := s.repo.ApplyBatch(ctx, userID, batch); err != nil {
		return fmt.Errorf("failed to rename account: %w", err)
	}
	s.invalidate(ctx, id)
	s.published(userID, CollectionAccounts, CollectionEntries)
	return nil
}

// ReorderAccounts assigns new display order values in one atomic batch.
func (s *Service) ReorderAccounts(ctx context.Context, userID uuid.UUID, orderedIDs []uuid.UUID) error {
	batch := make([]Mutation, 0, len(orderedIDs))
	for i, id := range orderedIDs {
		batch = append(batch, updateAccount(id, map[string]any{"display_order": i}))
	}
	if err := s.repo.ApplyBatch(ctx, userID, batch); err != nil {
		return fmt.Errorf("failed to reorder accounts: %w", err)
	}
	s.published(userID, CollectionAccounts)
	return nil
}

// GroupedAccounts returns the active accounts bucketed into the fixed
// display group order.
func (s *Service) GroupedAccounts(ctx context.Context, userID uuid.UUID) ([]AccountGroupView, error) {
	accounts, err := s.repo.ListAccounts(ctx, userID)
	if err != nil {
		return nil, err
	}
	return GroupAccounts(accounts), nil
}

// AccountBalances computes the balances for one account, consulting the
// cache first. Market-value accounts additionally carry their replayed
// current value (never cached; the replay is cheap and order-sensitive).
func (s *Service) AccountBalances(ctx context.Context, userID, id uuid.UUID) (*AccountBalances, error) {
	account, err := s.repo.GetAccount(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	entries, err := s.repo.ListEntriesByAccount(ctx, userID, account.Name)
	if err != nil {
		return nil, err
	}

	result := &AccountBalances{Account: account}

	if cached := s.cachedBalance(ctx, id); cached != nil {
		result.Balance = *cached
	} else {
		result.Balance = Balances(account, entries)
		s.storeBalance(ctx, id, result.Balance)
	}

	if account.Type.IsMarketValue() {
		value, _ := CurrentValue(account, entries)
		result.CurrentValue = &value
	}
	return result, nil
}

// --- Categories ---

// CreateCategory validates and persists a new category.
func (s *Service) CreateCategory(ctx context.Context, category *Category) error {
	if err := category.Validate(); err != nil {
		return err
	}
	if err := s.repo.CreateCategory(ctx, category); err != nil {
		return fmt.Errorf("failed to create category: %w", err)
	}
	s.published(category.UserID, CollectionCategories)
	return nil
}

// UpdateCategory persists changes to a category; renames must go through
// RenameCategory.
func (s *Service) UpdateCategory(ctx context.Context, category *Category) error {
	current, err := s.repo.GetCategory(ctx, category.UserID, category.ID)
	if err != nil {
		return err
	}
	if current.Name != category.Name {
		return fmt.Errorf("category rename requires the rename operation: %w", ErrCategoryNameTaken)
	}
	if err := category.Validate(); err != nil {
		return err
	}
	if err := s.repo.UpdateCategory(ctx, category); err != nil {
		return fmt.Errorf("failed to update category: %w", err)
	}
	s.published(category.UserID, CollectionCategories)
	return nil
}

// DeleteCategory hard-deletes a category.
func (s *Service) DeleteCategory(ctx context.Context, userID, id uuid.UUID) error {
	if err := s.repo.DeleteCategory(ctx, userID, id); err != nil {
		return err
	}
	s.published(userID, CollectionCategories)
	return nil
}

// RenameCategory renames a category and cascades the new name into every
// entry and split line referencing it, atomically.
func (s *Service) RenameCategory(ctx context.Context, userID, id uuid.UUID, newName string) error {
	if newName == "" {
		return ErrMissingCategoryName
	}
	category, err := s.repo.GetCategory(ctx, userID, id)
	if err != nil {
		return err
	}
	if category.Name == newName {
		return nil
	}

	entries, err := s.repo.ListEntries(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to list entries for rename: %w", err)
	}

	batch := []Mutation{{
		Op:         OpUpdate,
		Collection: CollectionCategories,
		ID:         id,
		Fields:     map[string]any{"name": newName},
	}}
	for _, e := range entries {
		switch e.Kind {
		case KindExpense, KindIncome:
			if e.Category == category.Name {
				batch = append(batch, updateEntry(e.ID, map[string]any{"category": newName}))
			}
		case KindSplit:
			touched := false
			splits := make([]SplitLine, len(e.Splits))
			copy(splits, e.Splits)
			for i := range splits {
				if !splits[i].IsLoan && splits[i].Category == category.Name {
					splits[i].Category = newName
					touched = true
				}
			}
			if touched {
				batch = append(batch, updateEntry(e.ID, map[string]any{"splits": splits}))
			}
		}
	}

	if err := s.repo.ApplyBatch(ctx, userID, batch); err != nil {
		return fmt.Errorf("failed to rename category: %w", err)
	}
	s.published(userID, CollectionCategories, CollectionEntries)
	return nil
}

// ListCategories returns the user's categories in display order.
func (s *Service) ListCategories(ctx context.Context, userID uuid.UUID) ([]*Category, error) {
	categories, err := s.repo.ListCategories(ctx, userID)
	if err != nil {
		return nil, err
	}
	SortCategories(categories)
	return categories, nil
}

// --- Entries ---

// CreateEntry validates and persists a new entry. Name references must
// resolve against the current account index; a dangling reference is a
// validation error at write time even though reads tolerate it.
func (s *Service) CreateEntry(ctx context.Context, entry *Entry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.ClearStatus == "" {
		entry.ClearStatus = StatusUncleared
	}
	if entry.CreatedAt == nil {
		now := time.Now().UTC()
		entry.CreatedAt = &now
	}
	if err := entry.Validate(); err != nil {
		return err
	}
	if err := s.checkReferences(ctx, entry); err != nil {
		return err
	}
	if err := s.repo.CreateEntry(ctx, entry); err != nil {
		return fmt.Errorf("failed to create entry: %w", err)
	}
	s.invalidateEntryAccounts(ctx, entry)
	s.published(entry.UserID, CollectionEntries)
	return nil
}

// GetEntry returns one entry.
func (s *Service) GetEntry(ctx context.Context, userID, id uuid.UUID) (*Entry, error) {
	return s.repo.GetEntry(ctx, userID, id)
}

// UpdateEntry persists edits to an entry. Changing the clear status of a
// reconciled entry is a state conflict; everything else on a reconciled
// entry stays editable, matching the lock's narrow scope.
func (s *Service) UpdateEntry(ctx context.Context, entry *Entry) error {
	current, err := s.repo.GetEntry(ctx, entry.UserID, entry.ID)
	if err != nil {
		return err
	}
	if current.ClearStatus == StatusReconciled && entry.ClearStatus != StatusReconciled {
		return ErrEntryReconciled
	}
	if current.ClearStatus != StatusReconciled && entry.ClearStatus == StatusReconciled {
		// Reconciled is only reachable through a reconcile operation.
		return ErrEntryReconciled
	}
	if err := entry.Validate(); err != nil {
		return err
	}
	if err := s.checkReferences(ctx, entry); err != nil {
		return err
	}
	if err := s.repo.UpdateEntry(ctx, entry); err != nil {
		return fmt.Errorf("failed to update entry: %w", err)
	}
	s.invalidateEntryAccounts(ctx, current)
	s.invalidateEntryAccounts(ctx, entry)
	s.published(entry.UserID, CollectionEntries)
	return nil
}

// DeleteEntry hard-deletes an entry. There is no tombstone.
func (s *Service) DeleteEntry(ctx context.Context, userID, id uuid.UUID) error {
	entry, err := s.repo.GetEntry(ctx, userID, id)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteEntry(ctx, userID, id); err != nil {
		return err
	}
	s.invalidateEntryAccounts(ctx, entry)
	s.published(userID, CollectionEntries)
	return nil
}

// BulkDelete hard-deletes a set of entries as one atomic batch.
// Split-derived pseudo-entries have no document identity so they can never
// be addressed here; any id that does not resolve fails the whole batch.
func (s *Service) BulkDelete(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) error {
	batch := make([]Mutation, 0, len(ids))
	touched := make([]*Entry, 0, len(ids))
	for _, id := range ids {
		entry, err := s.repo.GetEntry(ctx, userID, id)
		if err != nil {
			return err
		}
		touched = append(touched, entry)
		batch = append(batch, Mutation{Op: OpDelete, Collection: CollectionEntries, ID: id})
	}
	if err := s.repo.ApplyBatch(ctx, userID, batch); err != nil {
		return fmt.Errorf("failed to bulk delete entries: %w", err)
	}
	for _, e := range touched {
		s.invalidateEntryAccounts(ctx, e)
	}
	s.published(userID, CollectionEntries)
	return nil
}

// BulkDuplicate copies a set of entries as one atomic batch. Copies get
// fresh ids and timestamps and start uncleared regardless of the source
// entry's state.
func (s *Service) BulkDuplicate(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) error {
	now := time.Now().UTC()
	batch := make([]Mutation, 0, len(ids))
	var accounts []*Entry
	for _, id := range ids {
		entry, err := s.repo.GetEntry(ctx, userID, id)
		if err != nil {
			return err
		}
		dup := *entry
		dup.ID = uuid.New()
		createdAt := now
		dup.CreatedAt = &createdAt
		dup.ClearStatus = StatusUncleared
		dup.ReconciledAt = nil
		dup.ReconcileSessionID = nil
		dup.Splits = append([]SplitLine(nil), entry.Splits...)
		accounts = append(accounts, &dup)
		batch = append(batch, Mutation{Op: OpCreate, Collection: CollectionEntries, ID: dup.ID, Entry: &dup})
	}
	if err := s.repo.ApplyBatch(ctx, userID, batch); err != nil {
		return fmt.Errorf("failed to bulk duplicate entries: %w", err)
	}
	for _, e := range accounts {
		s.invalidateEntryAccounts(ctx, e)
	}
	s.published(userID, CollectionEntries)
	return nil
}

// EntriesForDisplay returns the user's entries grouped by date, newest
// first.
func (s *Service) EntriesForDisplay(ctx context.Context, userID uuid.UUID) ([]EntryGroup, error) {
	entries, err := s.repo.ListEntries(ctx, userID)
	if err != nil {
		return nil, err
	}
	return GroupEntriesByDate(entries), nil
}

// --- Clear status and reconciliation ---

// ToggleClear flips an entry between uncleared and cleared.
func (s *Service) ToggleClear(ctx context.Context, userID, id uuid.UUID) (*Entry, error) {
	entry, err := s.repo.GetEntry(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	m, err := PlanToggleClear(entry)
	if err != nil {
		return nil, err
	}
	if err := s.repo.ApplyBatch(ctx, userID, []Mutation{m}); err != nil {
		return nil, fmt.Errorf("failed to toggle clear status: %w", err)
	}
	entry.ClearStatus = m.Fields["clear_status"].(ClearStatus)
	s.invalidateEntryAccounts(ctx, entry)
	s.published(userID, CollectionEntries)
	return entry, nil
}

// QuickReconcile locks every cleared entry of the account, confirming the
// cleared total as correct.
func (s *Service) QuickReconcile(ctx context.Context, userID, accountID uuid.UUID) (*ReconcilePlan, error) {
	return s.reconcile(ctx, userID, accountID, func(account *Account, entries []*Entry) *ReconcilePlan {
		return PlanQuickReconcile(account, entries, time.Now().UTC())
	})
}

// ManualReconcile reconciles against a user-entered statement balance.
// On mismatch without force the returned plan carries the warning payload
// and nothing is written.
func (s *Service) ManualReconcile(ctx context.Context, userID, accountID uuid.UUID, statementBalance decimal.Decimal, force bool) (*ReconcilePlan, error) {
	return s.reconcile(ctx, userID, accountID, func(account *Account, entries []*Entry) *ReconcilePlan {
		return PlanManualReconcile(account, entries, statementBalance, time.Now().UTC(), force)
	})
}

// Unreconcile undoes the account's last committed reconciliation.
func (s *Service) Unreconcile(ctx context.Context, userID, accountID uuid.UUID) (*ReconcilePlan, error) {
	return s.reconcile(ctx, userID, accountID, PlanUnreconcile)
}

func (s *Service) reconcile(ctx context.Context, userID, accountID uuid.UUID, plan func(*Account, []*Entry) *ReconcilePlan) (*ReconcilePlan, error) {
	account, err := s.repo.GetAccount(ctx, userID, accountID)
	if err != nil {
		return nil, err
	}
	entries, err := s.repo.ListEntriesByAccount(ctx, userID, account.Name)
	if err != nil {
		return nil, err
	}

	p := plan(account, entries)
	if p.Outcome != OutcomeCommitted {
		return p, nil
	}

	if err := s.repo.ApplyBatch(ctx, userID, p.Mutations); err != nil {
		return nil, fmt.Errorf("failed to commit reconciliation: %w", err)
	}
	s.log.Info("reconciliation batch committed",
		"account", account.Name,
		"entries", len(p.EntryIDs),
		"outcome", p.Outcome,
	)
	s.invalidate(ctx, accountID)
	s.published(userID, CollectionEntries, CollectionAccounts)
	return p, nil
}

// --- Reports ---

// CategoryTotal is the aggregated flow for one category.
type CategoryTotal struct {
	Category string          `json:"category"`
	Total    decimal.Decimal `json:"total"`
	Lines    []CategoryLine  `json:"lines,omitempty"`
}

// CategoryReport aggregates every entry's category contributions between
// from and to (inclusive calendar dates).
func (s *Service) CategoryReport(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]CategoryTotal, error) {
	entries, err := s.repo.ListEntries(ctx, userID)
	if err != nil {
		return nil, err
	}

	byName := make(map[string]*CategoryTotal)
	var order []string
	for _, e := range entries {
		if e.Date.Before(from) || e.Date.After(to) {
			continue
		}
		for _, line := range CategoryLines(e) {
			t, ok := byName[line.Category]
			if !ok {
				t = &CategoryTotal{Category: line.Category, Total: decimal.Zero}
				byName[line.Category] = t
				order = append(order, line.Category)
			}
			t.Total = t.Total.Add(line.Amount)
			t.Lines = append(t.Lines, line)
		}
	}

	totals := make([]CategoryTotal, 0, len(order))
	for _, name := range order {
		totals = append(totals, *byName[name])
	}
	return totals, nil
}

// Loans returns the derived loan views for the user.
func (s *Service) Loans(ctx context.Context, userID uuid.UUID) ([]*LoanView, error) {
	entries, err := s.repo.ListEntries(ctx, userID)
	if err != nil {
		return nil, err
	}
	return Loans(entries), nil
}

// --- helpers ---

// checkReferences validates that the entry's account name references
// resolve. Reads tolerate dangling names; writes do not.
func (s *Service) checkReferences(ctx context.Context, entry *Entry) error {
	names := make([]string, 0, 2)
	switch entry.Kind {
	case KindTransfer:
		names = append(names, entry.FromAccount, entry.ToAccount)
	default:
		names = append(names, entry.Account)
	}
	for _, name := range names {
		if _, err := s.repo.GetAccountByName(ctx, entry.UserID, name); err != nil {
			return fmt.Errorf("%w: %q", ErrAccountNotFound, name)
		}
	}
	return nil
}

func (s *Service) cachedBalance(ctx context.Context, accountID uuid.UUID) *Balance {
	if s.cache == nil {
		return nil
	}
	b, ok, err := s.cache.Get(ctx, accountID)
	if err != nil {
		s.log.Warn("balance cache read failed", "account_id", accountID, "error", err)
		return nil
	}
	if !ok {
		return nil
	}
	return b
}

func (s *Service) storeBalance(ctx context.Context, accountID uuid.UUID, b Balance) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, accountID, b); err != nil {
		s.log.Warn("balance cache write failed", "account_id", accountID, "error", err)
	}
}

func (s *Service) invalidate(ctx context.Context, accountIDs ...uuid.UUID) {
	if s.cache == nil || len(accountIDs) == 0 {
		return
	}
	if err := s.cache.Invalidate(ctx, accountIDs...); err != nil {
		s.log.Warn("balance cache invalidation failed", "error", err)
	}
}

// invalidateEntryAccounts drops cached balances for every account an
// entry touches, resolving names through the per-pass index.
func (s *Service) invalidateEntryAccounts(ctx context.Context, entry *Entry) {
	if s.cache == nil {
		return
	}
	names := make([]string, 0, 2)
	switch entry.Kind {
	case KindTransfer:
		names = append(names, entry.FromAccount, entry.ToAccount)
	default:
		names = append(names, entry.Account)
	}
	var ids []uuid.UUID
	for _, name := range names {
		if account, err := s.repo.GetAccountByName(ctx, entry.UserID, name); err == nil {
			ids = append(ids, account.ID)
		}
	}
	s.invalidate(ctx, ids...)
}

func (s *Service) published(userID uuid.UUID, collections ...Collection) {
	s.notifier.Publish(Change{UserID: userID, Collections: collections})
}
