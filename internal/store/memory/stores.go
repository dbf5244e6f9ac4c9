package memory

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/finance-ledger/internal/domain"
)

// Accounts returns the non-transactional account store.
func (s *Store) Accounts() *AccountStore { return &AccountStore{s} }

// Categories returns the non-transactional category store.
func (s *Store) Categories() *CategoryStore { return &CategoryStore{s} }

// Transactions returns the non-transactional transaction store.
func (s *Store) Transactions() *TransactionStore { return &TransactionStore{s} }

// Users returns the user store.
func (s *Store) Users() *UserStore { return &UserStore{s} }

// AccountStore implements account.Store outside any unit of work.
type AccountStore struct{ s *Store }

func (a *AccountStore) Create(ctx context.Context, account *domain.BankAccount) (*domain.BankAccount, error) {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()
	a.s.accounts[account.ID] = *account
	cp := *account
	return &cp, nil
}

func (a *AccountStore) Get(ctx context.Context, ownerID, accountID uuid.UUID) (*domain.BankAccount, error) {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()
	account, ok := a.s.accounts[accountID]
	if !ok || account.OwnerID != ownerID {
		return nil, nil
	}
	cp := account
	return &cp, nil
}

func (a *AccountStore) List(ctx context.Context, ownerID uuid.UUID) ([]*domain.BankAccount, error) {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()
	var out []*domain.BankAccount
	for _, account := range a.s.accounts {
		if account.OwnerID == ownerID {
			cp := account
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// UpdateDetails writes name and type only; the stored balance is preserved.
func (a *AccountStore) UpdateDetails(ctx context.Context, ownerID uuid.UUID, account *domain.BankAccount) (*domain.BankAccount, error) {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()
	existing, ok := a.s.accounts[account.ID]
	if !ok || existing.OwnerID != ownerID {
		return nil, nil
	}
	existing.Name = account.Name
	existing.Type = account.Type
	existing.UpdatedAt = account.UpdatedAt
	a.s.accounts[account.ID] = existing
	cp := existing
	return &cp, nil
}

func (a *AccountStore) Delete(ctx context.Context, ownerID, accountID uuid.UUID) error {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()
	account, ok := a.s.accounts[accountID]
	if ok && account.OwnerID == ownerID {
		delete(a.s.accounts, accountID)
	}
	return nil
}

func (a *AccountStore) TotalBalance(ctx context.Context, ownerID uuid.UUID) (decimal.Decimal, error) {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()
	total := decimal.Zero
	for _, account := range a.s.accounts {
		if account.OwnerID == ownerID {
			total = total.Add(account.Balance)
		}
	}
	return total, nil
}

func (a *AccountStore) Referenced(ctx context.Context, accountID uuid.UUID) (bool, error) {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()
	for _, txn := range a.s.transactions {
		if txn.FromAccountID != nil && *txn.FromAccountID == accountID {
			return true, nil
		}
		if txn.ToAccountID != nil && *txn.ToAccountID == accountID {
			return true, nil
		}
	}
	return false, nil
}

// CategoryStore implements category.Store outside any unit of work.
type CategoryStore struct{ s *Store }

func (c *CategoryStore) Create(ctx context.Context, category *domain.Category) (*domain.Category, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	c.s.categories[category.ID] = *category
	cp := *category
	return &cp, nil
}

func (c *CategoryStore) Get(ctx context.Context, ownerID, categoryID uuid.UUID) (*domain.Category, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	category, ok := c.s.categories[categoryID]
	if !ok || category.OwnerID != ownerID {
		return nil, nil
	}
	cp := category
	return &cp, nil
}

func (c *CategoryStore) List(ctx context.Context, ownerID uuid.UUID) ([]*domain.Category, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	var out []*domain.Category
	for _, category := range c.s.categories {
		if category.OwnerID == ownerID {
			cp := category
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (c *CategoryStore) Update(ctx context.Context, ownerID uuid.UUID, category *domain.Category) (*domain.Category, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	existing, ok := c.s.categories[category.ID]
	if !ok || existing.OwnerID != ownerID {
		return nil, nil
	}
	c.s.categories[category.ID] = *category
	cp := *category
	return &cp, nil
}

func (c *CategoryStore) Delete(ctx context.Context, ownerID, categoryID uuid.UUID) error {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	category, ok := c.s.categories[categoryID]
	if ok && category.OwnerID == ownerID {
		delete(c.s.categories, categoryID)
	}
	return nil
}

func (c *CategoryStore) Referenced(ctx context.Context, categoryID uuid.UUID) (bool, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	for _, txn := range c.s.transactions {
		if txn.CategoryID == categoryID {
			return true, nil
		}
	}
	return false, nil
}

// TransactionStore implements the ledger's non-transactional read path.
type TransactionStore struct{ s *Store }

func (t *TransactionStore) Find(ctx context.Context, ownerID, transactionID uuid.UUID) (*domain.Transaction, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	txn, ok := t.s.transactions[transactionID]
	if !ok || txn.OwnerID != ownerID {
		return nil, nil
	}
	cp := txn
	return &cp, nil
}

func (t *TransactionStore) Create(ctx context.Context, txn *domain.Transaction) (*domain.Transaction, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	t.s.transactions[txn.ID] = *txn
	cp := *txn
	return &cp, nil
}

func (t *TransactionStore) Update(ctx context.Context, ownerID uuid.UUID, txn *domain.Transaction) (*domain.Transaction, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	existing, ok := t.s.transactions[txn.ID]
	if !ok || existing.OwnerID != ownerID {
		return nil, nil
	}
	t.s.transactions[txn.ID] = *txn
	cp := *txn
	return &cp, nil
}

func (t *TransactionStore) Delete(ctx context.Context, ownerID, transactionID uuid.UUID) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	delete(t.s.transactions, transactionID)
	return nil
}

func (t *TransactionStore) List(ctx context.Context, ownerID uuid.UUID, limit, offset int) ([]*domain.Transaction, int, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	return listTransactions(t.s.transactions, ownerID, limit, offset)
}

// UserStore implements user.Store.
type UserStore struct{ s *Store }

func (u *UserStore) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	u.s.users[user.ID] = *user
	cp := *user
	return &cp, nil
}

func (u *UserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	for _, user := range u.s.users {
		if strings.EqualFold(user.Email, email) {
			cp := user
			return &cp, nil
		}
	}
	return nil, nil
}
