package ledger

import (
	"context"

	"github.com/google/uuid"

	"github.com/dvloznov/finance-ledger/internal/domain"
)

// AccountStore reads and writes bank accounts. Get returns (nil, nil) when no
// account with that id belongs to ownerID; errors are reserved for store
// faults. Inside a unit-of-work scope, Get must take a row-level lock so two
// concurrent read-modify-write cycles on the same account cannot interleave.
type AccountStore interface {
	Get(ctx context.Context, ownerID, accountID uuid.UUID) (*domain.BankAccount, error)
	Save(ctx context.Context, ownerID uuid.UUID, account *domain.BankAccount) error
}

// CategoryStore reads categories. Get returns (nil, nil) when absent.
type CategoryStore interface {
	Get(ctx context.Context, ownerID, categoryID uuid.UUID) (*domain.Category, error)
}

// TransactionStore persists transaction rows. Find returns (nil, nil) when no
// transaction with that id belongs to ownerID.
type TransactionStore interface {
	Find(ctx context.Context, ownerID, transactionID uuid.UUID) (*domain.Transaction, error)
	Create(ctx context.Context, txn *domain.Transaction) (*domain.Transaction, error)
	Update(ctx context.Context, ownerID uuid.UUID, txn *domain.Transaction) (*domain.Transaction, error)
	Delete(ctx context.Context, ownerID, transactionID uuid.UUID) error
	List(ctx context.Context, ownerID uuid.UUID, limit, offset int) ([]*domain.Transaction, int, error)
}

// Scope is one atomic unit of work. All store operations obtained from a
// scope share its transaction: Commit makes every write durable together,
// Rollback discards them all. Release is idempotent cleanup and must always
// be invoked, whether the scope committed or not.
type Scope interface {
	Accounts() AccountStore
	Categories() CategoryStore
	Transactions() TransactionStore
	Commit() error
	Rollback() error
	Release()
}

// UnitOfWork opens atomic scopes. Implemented by the postgres store (one
// database transaction per scope) and by the memory store for tests.
type UnitOfWork interface {
	Begin(ctx context.Context) (Scope, error)
}
