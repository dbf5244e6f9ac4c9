// Package domain defines the entities and the failure taxonomy shared by the
// ledger engine, the supporting services and the stores. Monetary values use
// decimal.Decimal end to end; floats never touch a balance.
package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionType classifies a monetary transaction.
type TransactionType string

const (
	TransactionTypeIncome   TransactionType = "INCOME"
	TransactionTypeExpense  TransactionType = "EXPENSE"
	TransactionTypeTransfer TransactionType = "TRANSFER"
)

// ParseTransactionType converts a string into a TransactionType.
// It returns an InvalidOperation error for unknown values.
func ParseTransactionType(s string) (TransactionType, error) {
	switch TransactionType(s) {
	case TransactionTypeIncome, TransactionTypeExpense, TransactionTypeTransfer:
		return TransactionType(s), nil
	}
	return "", InvalidOperationf("unknown transaction type %q", s)
}

// Transaction is one committed monetary movement. FromAccountID and
// ToAccountID are both optional (an expense may have only a source, an income
// only a destination); CreditCardID is an opaque reference managed elsewhere.
// Every committed transaction's amount has already been applied to the
// balances of the accounts it references.
type Transaction struct {
	ID            uuid.UUID       `json:"id"`
	OwnerID       uuid.UUID       `json:"owner_id"`
	FromAccountID *uuid.UUID      `json:"from_account_id,omitempty"`
	ToAccountID   *uuid.UUID      `json:"to_account_id,omitempty"`
	CreditCardID  *uuid.UUID      `json:"credit_card_id,omitempty"`
	CategoryID    uuid.UUID       `json:"category_id"`
	Amount        decimal.Decimal `json:"amount"`
	Description   string          `json:"description"`
	Date          time.Time       `json:"date"`
	Type          TransactionType `json:"type"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// TransactionPage is one page of a user's transaction history.
type TransactionPage struct {
	Transactions []*Transaction `json:"transactions"`
	Page         int            `json:"page"`
	Limit        int            `json:"limit"`
	Total        int            `json:"total"`
}
