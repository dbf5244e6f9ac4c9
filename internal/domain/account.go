package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AccountType classifies a bank account.
type AccountType string

const (
	AccountTypeChecking   AccountType = "CHECKING"
	AccountTypeSavings    AccountType = "SAVINGS"
	AccountTypeInvestment AccountType = "INVESTMENT"
	AccountTypeOther      AccountType = "OTHER"
)

// ParseAccountType converts a string into an AccountType.
// It returns an InvalidOperation error for unknown values.
func ParseAccountType(s string) (AccountType, error) {
	switch AccountType(s) {
	case AccountTypeChecking, AccountTypeSavings, AccountTypeInvestment, AccountTypeOther:
		return AccountType(s), nil
	}
	return "", InvalidOperationf("unknown account type %q", s)
}

// BankAccount is an account owned by a single user. The balance is mutated
// only by the ledger engine; name and type are managed by the account service.
type BankAccount struct {
	ID        uuid.UUID       `json:"id"`
	OwnerID   uuid.UUID       `json:"owner_id"`
	Name      string          `json:"name"`
	Type      AccountType     `json:"type"`
	Balance   decimal.Decimal `json:"balance"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}
