// Package account manages bank account records: everything about an account
// except its balance, which only the ledger engine may change.
package account

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/finance-ledger/internal/domain"
)

// Store is the persistence surface the account service needs. Get returns
// (nil, nil) when no account with that id belongs to ownerID. Note the
// absence of any balance-writing method: balances belong to the ledger
// engine.
type Store interface {
	Create(ctx context.Context, account *domain.BankAccount) (*domain.BankAccount, error)
	Get(ctx context.Context, ownerID, accountID uuid.UUID) (*domain.BankAccount, error)
	List(ctx context.Context, ownerID uuid.UUID) ([]*domain.BankAccount, error)
	UpdateDetails(ctx context.Context, ownerID uuid.UUID, account *domain.BankAccount) (*domain.BankAccount, error)
	Delete(ctx context.Context, ownerID, accountID uuid.UUID) error
	TotalBalance(ctx context.Context, ownerID uuid.UUID) (decimal.Decimal, error)
	Referenced(ctx context.Context, accountID uuid.UUID) (bool, error)
}

// Service implements bank account CRUD.
type Service struct {
	store Store
	log   zerolog.Logger
}

// NewService creates an account service.
func NewService(store Store, log zerolog.Logger) *Service {
	return &Service{store: store, log: log}
}

// CreateInput is the validated payload for creating an account.
type CreateInput struct {
	Name    string
	Type    domain.AccountType
	Balance decimal.Decimal
}

// Create opens a new account with its opening balance. The opening balance
// is the one balance write that does not go through the ledger engine; it
// must not be negative.
func (s *Service) Create(ctx context.Context, ownerID uuid.UUID, in CreateInput) (*domain.BankAccount, error) {
	if in.Balance.IsNegative() {
		return nil, domain.InvalidOperationf("opening balance must not be negative")
	}

	now := time.Now().UTC()
	account := &domain.BankAccount{
		ID:        uuid.New(),
		OwnerID:   ownerID,
		Name:      in.Name,
		Type:      in.Type,
		Balance:   in.Balance,
		CreatedAt: now,
		UpdatedAt: now,
	}

	created, err := s.store.Create(ctx, account)
	if err != nil {
		return nil, domain.Internal(err)
	}
	return created, nil
}

// Get returns one account.
func (s *Service) Get(ctx context.Context, ownerID, accountID uuid.UUID) (*domain.BankAccount, error) {
	account, err := s.store.Get(ctx, ownerID, accountID)
	if err != nil {
		return nil, domain.Internal(err)
	}
	if account == nil {
		return nil, domain.NotFoundf("account not found")
	}
	return account, nil
}

// List returns all of the owner's accounts.
func (s *Service) List(ctx context.Context, ownerID uuid.UUID) ([]*domain.BankAccount, error) {
	accounts, err := s.store.List(ctx, ownerID)
	if err != nil {
		return nil, domain.Internal(err)
	}
	return accounts, nil
}

// UpdateInput carries the mutable account attributes.
type UpdateInput struct {
	Name string
	Type domain.AccountType
}

// Update changes an account's name and type. The balance is never written
// here, whatever the loaded record says.
func (s *Service) Update(ctx context.Context, ownerID, accountID uuid.UUID, in UpdateInput) (*domain.BankAccount, error) {
	account, err := s.store.Get(ctx, ownerID, accountID)
	if err != nil {
		return nil, domain.Internal(err)
	}
	if account == nil {
		return nil, domain.NotFoundf("account not found")
	}

	account.Name = in.Name
	account.Type = in.Type
	account.UpdatedAt = time.Now().UTC()

	updated, err := s.store.UpdateDetails(ctx, ownerID, account)
	if err != nil {
		return nil, domain.Internal(err)
	}
	return updated, nil
}

// Delete removes an account that no transaction references. Referenced
// accounts are refused; deleting them would orphan committed balance effects.
func (s *Service) Delete(ctx context.Context, ownerID, accountID uuid.UUID) error {
	account, err := s.store.Get(ctx, ownerID, accountID)
	if err != nil {
		return domain.Internal(err)
	}
	if account == nil {
		return domain.NotFoundf("account not found")
	}

	referenced, err := s.store.Referenced(ctx, accountID)
	if err != nil {
		return domain.Internal(err)
	}
	if referenced {
		return domain.InvalidOperationf("account is referenced by transactions")
	}

	if err := s.store.Delete(ctx, ownerID, accountID); err != nil {
		return domain.Internal(err)
	}
	return nil
}

// TotalBalance sums the balances of all the owner's accounts.
func (s *Service) TotalBalance(ctx context.Context, ownerID uuid.UUID) (decimal.Decimal, error) {
	total, err := s.store.TotalBalance(ctx, ownerID)
	if err != nil {
		return decimal.Zero, domain.Internal(err)
	}
	return total, nil
}
