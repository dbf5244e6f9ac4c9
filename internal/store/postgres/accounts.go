package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/finance-ledger/internal/domain"
)

// AccountStore reads and writes bank_accounts rows. When forUpdate is set
// (inside a unit of work), Get locks the row for the rest of the transaction.
type AccountStore struct {
	q         querier
	forUpdate bool
}

const accountColumns = "id, owner_id, name, type, balance, created_at, updated_at"

// Get returns one account scoped to its owner, or (nil, nil) when absent.
func (s *AccountStore) Get(ctx context.Context, ownerID, accountID uuid.UUID) (*domain.BankAccount, error) {
	query := "SELECT " + accountColumns + " FROM bank_accounts WHERE id = $1 AND owner_id = $2"
	if s.forUpdate {
		query += " FOR UPDATE"
	}

	account, err := scanAccount(s.q.QueryRowContext(ctx, query, accountID, ownerID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("AccountStore.Get: %w", err)
	}
	return account, nil
}

// Save writes an account's balance. Only the ledger engine calls this, and
// only inside a unit of work.
func (s *AccountStore) Save(ctx context.Context, ownerID uuid.UUID, account *domain.BankAccount) error {
	_, err := s.q.ExecContext(ctx,
		"UPDATE bank_accounts SET balance = $1, updated_at = now() WHERE id = $2 AND owner_id = $3",
		account.Balance, account.ID, ownerID,
	)
	if err != nil {
		return fmt.Errorf("AccountStore.Save: %w", err)
	}
	return nil
}

// Create inserts a new account with its opening balance.
func (s *AccountStore) Create(ctx context.Context, account *domain.BankAccount) (*domain.BankAccount, error) {
	_, err := s.q.ExecContext(ctx,
		`INSERT INTO bank_accounts (id, owner_id, name, type, balance, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		account.ID, account.OwnerID, account.Name, account.Type, account.Balance,
		account.CreatedAt, account.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("AccountStore.Create: %w", err)
	}
	return account, nil
}

// List returns all of the owner's accounts ordered by name.
func (s *AccountStore) List(ctx context.Context, ownerID uuid.UUID) ([]*domain.BankAccount, error) {
	rows, err := s.q.QueryContext(ctx,
		"SELECT "+accountColumns+" FROM bank_accounts WHERE owner_id = $1 ORDER BY name",
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("AccountStore.List: %w", err)
	}
	defer rows.Close()

	var accounts []*domain.BankAccount
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("AccountStore.List: %w", err)
		}
		accounts = append(accounts, account)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("AccountStore.List: %w", err)
	}
	return accounts, nil
}

// UpdateDetails writes name and type only; the balance column is untouched.
func (s *AccountStore) UpdateDetails(ctx context.Context, ownerID uuid.UUID, account *domain.BankAccount) (*domain.BankAccount, error) {
	_, err := s.q.ExecContext(ctx,
		"UPDATE bank_accounts SET name = $1, type = $2, updated_at = $3 WHERE id = $4 AND owner_id = $5",
		account.Name, account.Type, account.UpdatedAt, account.ID, ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("AccountStore.UpdateDetails: %w", err)
	}
	return account, nil
}

// Delete removes an account row.
func (s *AccountStore) Delete(ctx context.Context, ownerID, accountID uuid.UUID) error {
	_, err := s.q.ExecContext(ctx,
		"DELETE FROM bank_accounts WHERE id = $1 AND owner_id = $2",
		accountID, ownerID,
	)
	if err != nil {
		return fmt.Errorf("AccountStore.Delete: %w", err)
	}
	return nil
}

// TotalBalance sums the owner's account balances.
func (s *AccountStore) TotalBalance(ctx context.Context, ownerID uuid.UUID) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := s.q.QueryRowContext(ctx,
		"SELECT COALESCE(SUM(balance), 0) FROM bank_accounts WHERE owner_id = $1",
		ownerID,
	).Scan(&total)
	if err != nil {
		return decimal.Zero, fmt.Errorf("AccountStore.TotalBalance: %w", err)
	}
	return total, nil
}

// Referenced reports whether any transaction references the account.
func (s *AccountStore) Referenced(ctx context.Context, accountID uuid.UUID) (bool, error) {
	var referenced bool
	err := s.q.QueryRowContext(ctx,
		"SELECT EXISTS (SELECT 1 FROM transactions WHERE from_account_id = $1 OR to_account_id = $1)",
		accountID,
	).Scan(&referenced)
	if err != nil {
		return false, fmt.Errorf("AccountStore.Referenced: %w", err)
	}
	return referenced, nil
}

// rowScanner covers *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*domain.BankAccount, error) {
	var account domain.BankAccount
	err := row.Scan(
		&account.ID,
		&account.OwnerID,
		&account.Name,
		&account.Type,
		&account.Balance,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &account, nil
}
