package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/dvloznov/finance-ledger/internal/domain"
)

// TransactionStore reads and writes transactions rows.
type TransactionStore struct {
	q querier
}

const transactionColumns = `id, owner_id, from_account_id, to_account_id, credit_card_id,
	category_id, amount, description, date, type, created_at, updated_at`

// Find returns one transaction scoped to its owner, or (nil, nil) when absent.
func (s *TransactionStore) Find(ctx context.Context, ownerID, transactionID uuid.UUID) (*domain.Transaction, error) {
	txn, err := scanTransaction(s.q.QueryRowContext(ctx,
		"SELECT "+transactionColumns+" FROM transactions WHERE id = $1 AND owner_id = $2",
		transactionID, ownerID,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("TransactionStore.Find: %w", err)
	}
	return txn, nil
}

// Create inserts a new transaction row.
func (s *TransactionStore) Create(ctx context.Context, txn *domain.Transaction) (*domain.Transaction, error) {
	_, err := s.q.ExecContext(ctx,
		`INSERT INTO transactions
		   (id, owner_id, from_account_id, to_account_id, credit_card_id,
		    category_id, amount, description, date, type, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		txn.ID, txn.OwnerID, nullUUID(txn.FromAccountID), nullUUID(txn.ToAccountID),
		nullUUID(txn.CreditCardID), txn.CategoryID, txn.Amount, txn.Description,
		txn.Date, txn.Type, txn.CreatedAt, txn.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("TransactionStore.Create: %w", err)
	}
	return txn, nil
}

// Update replaces a transaction row's payload, keeping its id.
func (s *TransactionStore) Update(ctx context.Context, ownerID uuid.UUID, txn *domain.Transaction) (*domain.Transaction, error) {
	_, err := s.q.ExecContext(ctx,
		`UPDATE transactions SET
		   from_account_id = $1, to_account_id = $2, credit_card_id = $3,
		   category_id = $4, amount = $5, description = $6, date = $7,
		   type = $8, updated_at = $9
		 WHERE id = $10 AND owner_id = $11`,
		nullUUID(txn.FromAccountID), nullUUID(txn.ToAccountID), nullUUID(txn.CreditCardID),
		txn.CategoryID, txn.Amount, txn.Description, txn.Date,
		txn.Type, txn.UpdatedAt, txn.ID, ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("TransactionStore.Update: %w", err)
	}
	return txn, nil
}

// Delete removes a transaction row.
func (s *TransactionStore) Delete(ctx context.Context, ownerID, transactionID uuid.UUID) error {
	_, err := s.q.ExecContext(ctx,
		"DELETE FROM transactions WHERE id = $1 AND owner_id = $2",
		transactionID, ownerID,
	)
	if err != nil {
		return fmt.Errorf("TransactionStore.Delete: %w", err)
	}
	return nil
}

// List returns one page of the owner's transactions, newest first, plus the
// total row count for pagination.
func (s *TransactionStore) List(ctx context.Context, ownerID uuid.UUID, limit, offset int) ([]*domain.Transaction, int, error) {
	var total int
	err := s.q.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM transactions WHERE owner_id = $1",
		ownerID,
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("TransactionStore.List: counting: %w", err)
	}

	rows, err := s.q.QueryContext(ctx,
		"SELECT "+transactionColumns+` FROM transactions
		 WHERE owner_id = $1
		 ORDER BY date DESC, created_at DESC
		 LIMIT $2 OFFSET $3`,
		ownerID, limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("TransactionStore.List: %w", err)
	}
	defer rows.Close()

	var txns []*domain.Transaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("TransactionStore.List: %w", err)
		}
		txns = append(txns, txn)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("TransactionStore.List: %w", err)
	}
	return txns, total, nil
}

func scanTransaction(row rowScanner) (*domain.Transaction, error) {
	var (
		txn              domain.Transaction
		from, to, credit uuid.NullUUID
	)
	err := row.Scan(
		&txn.ID,
		&txn.OwnerID,
		&from,
		&to,
		&credit,
		&txn.CategoryID,
		&txn.Amount,
		&txn.Description,
		&txn.Date,
		&txn.Type,
		&txn.CreatedAt,
		&txn.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	txn.FromAccountID = uuidPtr(from)
	txn.ToAccountID = uuidPtr(to)
	txn.CreditCardID = uuidPtr(credit)
	return &txn, nil
}

func nullUUID(id *uuid.UUID) uuid.NullUUID {
	if id == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: *id, Valid: true}
}

func uuidPtr(id uuid.NullUUID) *uuid.UUID {
	if !id.Valid {
		return nil
	}
	u := id.UUID
	return &u
}
