// Package ledger implements the transaction ledger engine: the one component
// allowed to mutate bank account balances. Every create, update or delete of a
// monetary transaction runs inside a single unit of work so the transaction
// row and the balance adjustments on the accounts it references commit or
// roll back together.
package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/finance-ledger/internal/domain"
	"github.com/dvloznov/finance-ledger/internal/jobs"
)

const (
	defaultPage  = 1
	defaultLimit = 10
	maxLimit     = 40
)

// Service orchestrates ledger operations across the account, category and
// transaction stores inside unit-of-work scopes.
type Service struct {
	uow     UnitOfWork
	reader  TransactionStore // non-transactional read path for listings
	exports jobs.Publisher   // optional; nil disables warehouse exports
	log     zerolog.Logger
}

// NewService creates a ledger service. exports may be nil when no warehouse
// is configured.
func NewService(uow UnitOfWork, reader TransactionStore, exports jobs.Publisher, log zerolog.Logger) *Service {
	return &Service{
		uow:     uow,
		reader:  reader,
		exports: exports,
		log:     log,
	}
}

// Input is the validated payload for creating or updating a transaction.
// Account references are optional; category, amount, description, date and
// type are required.
type Input struct {
	FromAccountID *uuid.UUID
	ToAccountID   *uuid.UUID
	CreditCardID  *uuid.UUID
	CategoryID    uuid.UUID
	Amount        decimal.Decimal
	Description   string
	Date          time.Time
	Type          domain.TransactionType
}

// validate rejects payloads no unit of work should be opened for.
func (in *Input) validate() error {
	if in.FromAccountID != nil && in.ToAccountID != nil && *in.FromAccountID == *in.ToAccountID {
		return domain.InvalidOperationf("source and destination accounts must differ")
	}
	if !in.Amount.IsPositive() {
		return domain.InvalidOperationf("amount must be positive")
	}
	return nil
}

// Create persists a new transaction and applies its balance effect: the
// source account (if any) is debited after a sufficiency check, the
// destination account (if any) is credited. Either everything commits or
// nothing does.
func (s *Service) Create(ctx context.Context, ownerID uuid.UUID, in Input) (*domain.Transaction, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	scope, err := s.uow.Begin(ctx)
	if err != nil {
		return nil, domain.Internal(err)
	}
	defer scope.Release()

	txn, err := s.createInScope(ctx, scope, ownerID, in)
	if err != nil {
		s.rollback(scope)
		return nil, domain.AsError(err)
	}

	// A failed commit has already aborted the scope; Release cleans up.
	if err := scope.Commit(); err != nil {
		return nil, domain.Internal(err)
	}

	s.publishExport(ctx, txn.ID, ownerID, jobs.ExportOpCreated)

	return txn, nil
}

func (s *Service) createInScope(ctx context.Context, scope Scope, ownerID uuid.UUID, in Input) (*domain.Transaction, error) {
	if in.FromAccountID != nil {
		from, err := scope.Accounts().Get(ctx, ownerID, *in.FromAccountID)
		if err != nil {
			return nil, err
		}
		if from == nil {
			return nil, domain.NotFoundf("source account not found")
		}
		if from.Balance.LessThan(in.Amount) {
			return nil, domain.InsufficientFundsf("insufficient balance in source account")
		}
		from.Balance = from.Balance.Sub(in.Amount)
		if err := scope.Accounts().Save(ctx, ownerID, from); err != nil {
			return nil, err
		}
	}

	if in.ToAccountID != nil {
		to, err := scope.Accounts().Get(ctx, ownerID, *in.ToAccountID)
		if err != nil {
			return nil, err
		}
		if to == nil {
			return nil, domain.NotFoundf("destination account not found")
		}
		to.Balance = to.Balance.Add(in.Amount)
		if err := scope.Accounts().Save(ctx, ownerID, to); err != nil {
			return nil, err
		}
	}

	category, err := scope.Categories().Get(ctx, ownerID, in.CategoryID)
	if err != nil {
		return nil, err
	}
	if category == nil {
		return nil, domain.NotFoundf("category not found")
	}

	now := time.Now().UTC()
	txn := &domain.Transaction{
		ID:            uuid.New(),
		OwnerID:       ownerID,
		FromAccountID: in.FromAccountID,
		ToAccountID:   in.ToAccountID,
		CreditCardID:  in.CreditCardID,
		CategoryID:    category.ID,
		Amount:        in.Amount,
		Description:   in.Description,
		Date:          in.Date,
		Type:          in.Type,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	return scope.Transactions().Create(ctx, txn)
}

// Update replaces an existing transaction's payload and moves the account
// balances from the previous effect to the new one. When an account id is
// unchanged, the reversal and the reapplication happen against the same
// loaded account so the sufficiency check observes the restored balance; when
// an id changes, the old account is restored and the new one adjusted as two
// independent writes inside the same scope.
func (s *Service) Update(ctx context.Context, ownerID, transactionID uuid.UUID, in Input) (*domain.Transaction, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	scope, err := s.uow.Begin(ctx)
	if err != nil {
		return nil, domain.Internal(err)
	}
	defer scope.Release()

	txn, err := s.updateInScope(ctx, scope, ownerID, transactionID, in)
	if err != nil {
		s.rollback(scope)
		return nil, domain.AsError(err)
	}

	if err := scope.Commit(); err != nil {
		return nil, domain.Internal(err)
	}

	s.publishExport(ctx, txn.ID, ownerID, jobs.ExportOpUpdated)

	return txn, nil
}

func (s *Service) updateInScope(ctx context.Context, scope Scope, ownerID, transactionID uuid.UUID, in Input) (*domain.Transaction, error) {
	existing, err := scope.Transactions().Find(ctx, ownerID, transactionID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, domain.NotFoundf("transaction not found")
	}

	if err := s.adjustSource(ctx, scope, ownerID, existing, in); err != nil {
		return nil, err
	}
	if err := s.adjustDestination(ctx, scope, ownerID, existing, in); err != nil {
		return nil, err
	}

	if in.CategoryID != existing.CategoryID {
		category, err := scope.Categories().Get(ctx, ownerID, in.CategoryID)
		if err != nil {
			return nil, err
		}
		if category == nil {
			return nil, domain.NotFoundf("category not found")
		}
		existing.CategoryID = category.ID
	}

	existing.FromAccountID = in.FromAccountID
	existing.ToAccountID = in.ToAccountID
	existing.CreditCardID = in.CreditCardID
	existing.Amount = in.Amount
	existing.Description = in.Description
	existing.Date = in.Date
	existing.Type = in.Type
	existing.UpdatedAt = time.Now().UTC()

	return scope.Transactions().Update(ctx, ownerID, existing)
}

// adjustSource reverses the old debit and applies the new one. The floor
// check always runs against the balance after the old amount has been
// restored; checking the pre-restoration balance would reject updates that
// merely reduce the amount on a fully drawn-down account.
func (s *Service) adjustSource(ctx context.Context, scope Scope, ownerID uuid.UUID, existing *domain.Transaction, in Input) error {
	oldID := existing.FromAccountID

	if in.FromAccountID == nil {
		// Source reference removed: the old debit no longer corresponds to
		// any committed transaction, so give it back.
		if oldID != nil {
			return s.restoreBalance(ctx, scope, ownerID, *oldID, existing.Amount, "source")
		}
		return nil
	}

	if oldID != nil && *oldID == *in.FromAccountID {
		account, err := scope.Accounts().Get(ctx, ownerID, *in.FromAccountID)
		if err != nil {
			return err
		}
		if account == nil {
			return domain.NotFoundf("source account not found")
		}
		account.Balance = account.Balance.Add(existing.Amount).Sub(in.Amount)
		if account.Balance.IsNegative() {
			return domain.InsufficientFundsf("insufficient balance in source account")
		}
		return scope.Accounts().Save(ctx, ownerID, account)
	}

	if oldID != nil {
		if err := s.restoreBalance(ctx, scope, ownerID, *oldID, existing.Amount, "source"); err != nil {
			return err
		}
	}

	account, err := scope.Accounts().Get(ctx, ownerID, *in.FromAccountID)
	if err != nil {
		return err
	}
	if account == nil {
		return domain.NotFoundf("source account not found")
	}
	if account.Balance.LessThan(in.Amount) {
		return domain.InsufficientFundsf("insufficient balance in source account")
	}
	account.Balance = account.Balance.Sub(in.Amount)
	return scope.Accounts().Save(ctx, ownerID, account)
}

// adjustDestination mirrors adjustSource with credits instead of debits and
// no floor check.
func (s *Service) adjustDestination(ctx context.Context, scope Scope, ownerID uuid.UUID, existing *domain.Transaction, in Input) error {
	oldID := existing.ToAccountID

	if in.ToAccountID == nil {
		if oldID != nil {
			return s.reverseCredit(ctx, scope, ownerID, *oldID, existing.Amount)
		}
		return nil
	}

	if oldID != nil && *oldID == *in.ToAccountID {
		account, err := scope.Accounts().Get(ctx, ownerID, *in.ToAccountID)
		if err != nil {
			return err
		}
		if account == nil {
			return domain.NotFoundf("destination account not found")
		}
		account.Balance = account.Balance.Sub(existing.Amount).Add(in.Amount)
		return scope.Accounts().Save(ctx, ownerID, account)
	}

	if oldID != nil {
		if err := s.reverseCredit(ctx, scope, ownerID, *oldID, existing.Amount); err != nil {
			return err
		}
	}

	account, err := scope.Accounts().Get(ctx, ownerID, *in.ToAccountID)
	if err != nil {
		return err
	}
	if account == nil {
		return domain.NotFoundf("destination account not found")
	}
	account.Balance = account.Balance.Add(in.Amount)
	return scope.Accounts().Save(ctx, ownerID, account)
}

// restoreBalance credits amount back to an account whose debit is being
// reversed.
func (s *Service) restoreBalance(ctx context.Context, scope Scope, ownerID, accountID uuid.UUID, amount decimal.Decimal, side string) error {
	account, err := scope.Accounts().Get(ctx, ownerID, accountID)
	if err != nil {
		return err
	}
	if account == nil {
		return domain.NotFoundf("%s account not found", side)
	}
	account.Balance = account.Balance.Add(amount)
	return scope.Accounts().Save(ctx, ownerID, account)
}

// reverseCredit takes a previously credited amount back out of an account.
// The resulting balance may legitimately go negative: the credited funds may
// have been spent since, and reversing the credit still has to happen.
func (s *Service) reverseCredit(ctx context.Context, scope Scope, ownerID, accountID uuid.UUID, amount decimal.Decimal) error {
	account, err := scope.Accounts().Get(ctx, ownerID, accountID)
	if err != nil {
		return err
	}
	if account == nil {
		return domain.NotFoundf("destination account not found")
	}
	account.Balance = account.Balance.Sub(amount)
	return scope.Accounts().Save(ctx, ownerID, account)
}

// Delete reverses a transaction's balance effect and removes its row. The
// source account gets the amount back; the destination account gives it up,
// with no floor check (see reverseCredit).
func (s *Service) Delete(ctx context.Context, ownerID, transactionID uuid.UUID) error {
	scope, err := s.uow.Begin(ctx)
	if err != nil {
		return domain.Internal(err)
	}
	defer scope.Release()

	if err := s.deleteInScope(ctx, scope, ownerID, transactionID); err != nil {
		s.rollback(scope)
		return domain.AsError(err)
	}

	if err := scope.Commit(); err != nil {
		return domain.Internal(err)
	}

	s.publishExport(ctx, transactionID, ownerID, jobs.ExportOpDeleted)

	return nil
}

func (s *Service) deleteInScope(ctx context.Context, scope Scope, ownerID, transactionID uuid.UUID) error {
	txn, err := scope.Transactions().Find(ctx, ownerID, transactionID)
	if err != nil {
		return err
	}
	if txn == nil {
		return domain.NotFoundf("transaction not found")
	}

	if txn.FromAccountID != nil {
		if err := s.restoreBalance(ctx, scope, ownerID, *txn.FromAccountID, txn.Amount, "source"); err != nil {
			return err
		}
	}

	if txn.ToAccountID != nil {
		if err := s.reverseCredit(ctx, scope, ownerID, *txn.ToAccountID, txn.Amount); err != nil {
			return err
		}
	}

	return scope.Transactions().Delete(ctx, ownerID, transactionID)
}

// Page selects one page of transaction history.
type Page struct {
	Page  int
	Limit int
}

// List returns one page of the owner's transactions, newest first.
func (s *Service) List(ctx context.Context, ownerID uuid.UUID, page Page) (*domain.TransactionPage, error) {
	if page.Page == 0 {
		page.Page = defaultPage
	}
	if page.Limit == 0 {
		page.Limit = defaultLimit
	}
	if page.Page < 1 {
		return nil, domain.InvalidOperationf("page must be greater than 0")
	}
	if page.Limit < 1 || page.Limit > maxLimit {
		return nil, domain.InvalidOperationf("limit must be between 1 and %d", maxLimit)
	}

	offset := (page.Page - 1) * page.Limit
	txns, total, err := s.reader.List(ctx, ownerID, page.Limit, offset)
	if err != nil {
		return nil, domain.Internal(err)
	}

	return &domain.TransactionPage{
		Transactions: txns,
		Page:         page.Page,
		Limit:        page.Limit,
		Total:        total,
	}, nil
}

// rollback discards the scope's writes. A rollback failure cannot be
// surfaced over the original error; it is logged and the scope's Release
// handles the connection.
func (s *Service) rollback(scope Scope) {
	if err := scope.Rollback(); err != nil {
		s.log.Error().Err(err).Msg("Failed to roll back ledger scope")
	}
}

// publishExport enqueues a warehouse export for a committed mutation. The
// ledger is the source of truth; a publish failure is logged, never returned.
func (s *Service) publishExport(ctx context.Context, transactionID, ownerID uuid.UUID, op jobs.ExportOp) {
	if s.exports == nil {
		return
	}

	job := &jobs.ExportTransactionJob{
		TransactionID: transactionID,
		OwnerID:       ownerID,
		Op:            op,
	}
	if err := s.exports.PublishExport(ctx, job); err != nil {
		s.log.Error().
			Err(err).
			Str("transaction_id", transactionID.String()).
			Str("op", string(op)).
			Msg("Failed to publish export job")
	}
}
