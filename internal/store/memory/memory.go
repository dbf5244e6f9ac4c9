// Package memory is a mutex-guarded, map-backed implementation of every store
// interface in the system, including the unit-of-work coordinator. A scope
// holds the store lock from Begin to Release and stages its writes on copies,
// so commit and rollback behave like their database counterparts. Used by
// tests and for running the API without Postgres.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/dvloznov/finance-ledger/internal/domain"
	"github.com/dvloznov/finance-ledger/internal/ledger"
)

// Store owns all in-memory state. The zero value is not usable; call New.
type Store struct {
	mu           sync.Mutex
	accounts     map[uuid.UUID]domain.BankAccount
	categories   map[uuid.UUID]domain.Category
	transactions map[uuid.UUID]domain.Transaction
	users        map[uuid.UUID]domain.User

	// Fault-injection hooks for tests. When set, the corresponding scoped
	// operation fails with the given error.
	SaveAccountErr       error
	CreateTransactionErr error
	UpdateTransactionErr error
	DeleteTransactionErr error
}

// New creates an empty store.
func New() *Store {
	return &Store{
		accounts:     make(map[uuid.UUID]domain.BankAccount),
		categories:   make(map[uuid.UUID]domain.Category),
		transactions: make(map[uuid.UUID]domain.Transaction),
		users:        make(map[uuid.UUID]domain.User),
	}
}

// Begin opens a unit of work. The scope takes the store lock and stages all
// writes on copies of the maps; nothing is visible to other callers until
// Commit swaps the staged state in.
func (s *Store) Begin(ctx context.Context) (ledger.Scope, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	return &scope{
		store:        s,
		accounts:     cloneMap(s.accounts),
		categories:   cloneMap(s.categories),
		transactions: cloneMap(s.transactions),
	}, nil
}

func cloneMap[V any](m map[uuid.UUID]V) map[uuid.UUID]V {
	out := make(map[uuid.UUID]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// scope is one open unit of work.
type scope struct {
	store        *Store
	accounts     map[uuid.UUID]domain.BankAccount
	categories   map[uuid.UUID]domain.Category
	transactions map[uuid.UUID]domain.Transaction
	done         bool
	released     bool
}

// Accounts implements ledger.Scope.
func (sc *scope) Accounts() ledger.AccountStore { return &scopedAccounts{sc} }

// Categories implements ledger.Scope.
func (sc *scope) Categories() ledger.CategoryStore { return &scopedCategories{sc} }

// Transactions implements ledger.Scope.
func (sc *scope) Transactions() ledger.TransactionStore { return &scopedTransactions{sc} }

// Commit publishes the staged state. Committing a finished scope is an
// error-free no-op to mirror database drivers' idempotent cleanup.
func (sc *scope) Commit() error {
	if sc.done {
		return nil
	}
	sc.done = true
	sc.store.accounts = sc.accounts
	sc.store.categories = sc.categories
	sc.store.transactions = sc.transactions
	return nil
}

// Rollback discards the staged state.
func (sc *scope) Rollback() error {
	sc.done = true
	return nil
}

// Release unlocks the store. Idempotent; an unfinished scope is rolled back.
func (sc *scope) Release() {
	if sc.released {
		return
	}
	sc.released = true
	sc.done = true
	sc.store.mu.Unlock()
}

type scopedAccounts struct{ sc *scope }

func (a *scopedAccounts) Get(ctx context.Context, ownerID, accountID uuid.UUID) (*domain.BankAccount, error) {
	account, ok := a.sc.accounts[accountID]
	if !ok || account.OwnerID != ownerID {
		return nil, nil
	}
	cp := account
	return &cp, nil
}

func (a *scopedAccounts) Save(ctx context.Context, ownerID uuid.UUID, account *domain.BankAccount) error {
	if err := a.sc.store.SaveAccountErr; err != nil {
		return err
	}
	cp := *account
	a.sc.accounts[account.ID] = cp
	return nil
}

type scopedCategories struct{ sc *scope }

func (c *scopedCategories) Get(ctx context.Context, ownerID, categoryID uuid.UUID) (*domain.Category, error) {
	category, ok := c.sc.categories[categoryID]
	if !ok || category.OwnerID != ownerID {
		return nil, nil
	}
	cp := category
	return &cp, nil
}

type scopedTransactions struct{ sc *scope }

func (t *scopedTransactions) Find(ctx context.Context, ownerID, transactionID uuid.UUID) (*domain.Transaction, error) {
	txn, ok := t.sc.transactions[transactionID]
	if !ok || txn.OwnerID != ownerID {
		return nil, nil
	}
	cp := txn
	return &cp, nil
}

func (t *scopedTransactions) Create(ctx context.Context, txn *domain.Transaction) (*domain.Transaction, error) {
	if err := t.sc.store.CreateTransactionErr; err != nil {
		return nil, err
	}
	cp := *txn
	t.sc.transactions[txn.ID] = cp
	out := cp
	return &out, nil
}

func (t *scopedTransactions) Update(ctx context.Context, ownerID uuid.UUID, txn *domain.Transaction) (*domain.Transaction, error) {
	if err := t.sc.store.UpdateTransactionErr; err != nil {
		return nil, err
	}
	existing, ok := t.sc.transactions[txn.ID]
	if !ok || existing.OwnerID != ownerID {
		return nil, nil
	}
	cp := *txn
	t.sc.transactions[txn.ID] = cp
	out := cp
	return &out, nil
}

func (t *scopedTransactions) Delete(ctx context.Context, ownerID, transactionID uuid.UUID) error {
	if err := t.sc.store.DeleteTransactionErr; err != nil {
		return err
	}
	delete(t.sc.transactions, transactionID)
	return nil
}

func (t *scopedTransactions) List(ctx context.Context, ownerID uuid.UUID, limit, offset int) ([]*domain.Transaction, int, error) {
	return listTransactions(t.sc.transactions, ownerID, limit, offset)
}

func listTransactions(m map[uuid.UUID]domain.Transaction, ownerID uuid.UUID, limit, offset int) ([]*domain.Transaction, int, error) {
	var owned []domain.Transaction
	for _, txn := range m {
		if txn.OwnerID == ownerID {
			owned = append(owned, txn)
		}
	}
	sort.Slice(owned, func(i, j int) bool {
		if !owned[i].Date.Equal(owned[j].Date) {
			return owned[i].Date.After(owned[j].Date)
		}
		return owned[i].CreatedAt.After(owned[j].CreatedAt)
	})

	total := len(owned)
	if offset >= total {
		return []*domain.Transaction{}, total, nil
	}
	owned = owned[offset:]
	if limit < len(owned) {
		owned = owned[:limit]
	}

	out := make([]*domain.Transaction, len(owned))
	for i := range owned {
		cp := owned[i]
		out[i] = &cp
	}
	return out, total, nil
}
