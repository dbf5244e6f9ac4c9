package ledger_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/finance-ledger/internal/domain"
	"github.com/dvloznov/finance-ledger/internal/jobs"
	"github.com/dvloznov/finance-ledger/internal/ledger"
	"github.com/dvloznov/finance-ledger/internal/store/memory"
)

// capturePublisher records export jobs instead of queuing them.
type capturePublisher struct {
	published []*jobs.ExportTransactionJob
	err       error
}

func (p *capturePublisher) PublishExport(ctx context.Context, job *jobs.ExportTransactionJob) error {
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, job)
	return nil
}

func (p *capturePublisher) Close() error { return nil }

type fixture struct {
	svc     *ledger.Service
	store   *memory.Store
	exports *capturePublisher
	owner   uuid.UUID
	catID   uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := memory.New()
	exports := &capturePublisher{}
	svc := ledger.NewService(store, store.Transactions(), exports, zerolog.Nop())

	owner := uuid.New()
	cat, err := store.Categories().Create(context.Background(), &domain.Category{
		ID:      uuid.New(),
		OwnerID: owner,
		Name:    "Groceries",
	})
	require.NoError(t, err)

	return &fixture{svc: svc, store: store, exports: exports, owner: owner, catID: cat.ID}
}

func (f *fixture) seedAccount(t *testing.T, balance int64) uuid.UUID {
	t.Helper()

	account, err := f.store.Accounts().Create(context.Background(), &domain.BankAccount{
		ID:      uuid.New(),
		OwnerID: f.owner,
		Name:    "Account",
		Type:    domain.AccountTypeChecking,
		Balance: decimal.NewFromInt(balance),
	})
	require.NoError(t, err)
	return account.ID
}

func (f *fixture) balance(t *testing.T, accountID uuid.UUID) decimal.Decimal {
	t.Helper()

	account, err := f.store.Accounts().Get(context.Background(), f.owner, accountID)
	require.NoError(t, err)
	require.NotNil(t, account)
	return account.Balance
}

func (f *fixture) assertBalance(t *testing.T, accountID uuid.UUID, want int64) {
	t.Helper()

	got := f.balance(t, accountID)
	assert.Truef(t, got.Equal(decimal.NewFromInt(want)), "balance = %s, want %d", got, want)
}

func (f *fixture) input(amount int64, from, to *uuid.UUID) ledger.Input {
	return ledger.Input{
		FromAccountID: from,
		ToAccountID:   to,
		CategoryID:    f.catID,
		Amount:        decimal.NewFromInt(amount),
		Description:   "test",
		Date:          time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
		Type:          domain.TransactionTypeTransfer,
	}
}

func TestCreateTransfer(t *testing.T) {
	f := newFixture(t)
	from := f.seedAccount(t, 500)
	to := f.seedAccount(t, 200)

	txn, err := f.svc.Create(context.Background(), f.owner, f.input(100, &from, &to))
	require.NoError(t, err)
	require.NotNil(t, txn)

	f.assertBalance(t, from, 400)
	f.assertBalance(t, to, 300)

	persisted, _, err := f.store.Transactions().List(context.Background(), f.owner, 10, 0)
	require.NoError(t, err)
	require.Len(t, persisted, 1)
	assert.Equal(t, txn.ID, persisted[0].ID)

	require.Len(t, f.exports.published, 1)
	assert.Equal(t, jobs.ExportOpCreated, f.exports.published[0].Op)
	assert.Equal(t, txn.ID, f.exports.published[0].TransactionID)
}

func TestCreateExpenseAndIncome(t *testing.T) {
	f := newFixture(t)
	account := f.seedAccount(t, 500)

	in := f.input(120, &account, nil)
	in.Type = domain.TransactionTypeExpense
	_, err := f.svc.Create(context.Background(), f.owner, in)
	require.NoError(t, err)
	f.assertBalance(t, account, 380)

	in = f.input(50, nil, &account)
	in.Type = domain.TransactionTypeIncome
	_, err = f.svc.Create(context.Background(), f.owner, in)
	require.NoError(t, err)
	f.assertBalance(t, account, 430)
}

func TestCreateSameAccountRejected(t *testing.T) {
	f := newFixture(t)
	account := f.seedAccount(t, 500)

	_, err := f.svc.Create(context.Background(), f.owner, f.input(100, &account, &account))
	require.Error(t, err)
	assert.Equal(t, domain.KindInvalidOperation, domain.KindOf(err))

	f.assertBalance(t, account, 500)
}

func TestCreateNonPositiveAmountRejected(t *testing.T) {
	f := newFixture(t)
	account := f.seedAccount(t, 500)

	for _, amount := range []int64{0, -25} {
		_, err := f.svc.Create(context.Background(), f.owner, f.input(amount, &account, nil))
		require.Error(t, err)
		assert.Equal(t, domain.KindInvalidOperation, domain.KindOf(err))
	}

	f.assertBalance(t, account, 500)
}

func TestCreateInsufficientFunds(t *testing.T) {
	f := newFixture(t)
	from := f.seedAccount(t, 50)
	to := f.seedAccount(t, 200)

	_, err := f.svc.Create(context.Background(), f.owner, f.input(100, &from, &to))
	require.Error(t, err)
	assert.Equal(t, domain.KindInsufficientFunds, domain.KindOf(err))
	assert.EqualError(t, err, "insufficient balance in source account")

	f.assertBalance(t, from, 50)
	f.assertBalance(t, to, 200)
	_, total, err := f.store.Transactions().List(context.Background(), f.owner, 10, 0)
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, f.exports.published)
}

func TestCreateExactBalanceAllowed(t *testing.T) {
	f := newFixture(t)
	from := f.seedAccount(t, 100)

	_, err := f.svc.Create(context.Background(), f.owner, f.input(100, &from, nil))
	require.NoError(t, err)
	f.assertBalance(t, from, 0)
}

func TestCreateMissingAccount(t *testing.T) {
	f := newFixture(t)
	to := f.seedAccount(t, 200)
	missing := uuid.New()

	_, err := f.svc.Create(context.Background(), f.owner, f.input(100, &missing, &to))
	require.Error(t, err)
	assert.Equal(t, domain.KindNotFound, domain.KindOf(err))
	f.assertBalance(t, to, 200)
}

func TestCreateMissingCategoryRollsBackBalances(t *testing.T) {
	f := newFixture(t)
	from := f.seedAccount(t, 500)
	to := f.seedAccount(t, 200)

	// Accounts are adjusted before the category lookup inside the scope, so
	// a missing category must undo both balance writes.
	in := f.input(100, &from, &to)
	in.CategoryID = uuid.New()
	_, err := f.svc.Create(context.Background(), f.owner, in)
	require.Error(t, err)
	assert.Equal(t, domain.KindNotFound, domain.KindOf(err))

	f.assertBalance(t, from, 500)
	f.assertBalance(t, to, 200)
}

func TestCreateOtherOwnersAccountInvisible(t *testing.T) {
	f := newFixture(t)
	from := f.seedAccount(t, 500)

	stranger := uuid.New()
	strangerCat, err := f.store.Categories().Create(context.Background(), &domain.Category{
		ID:      uuid.New(),
		OwnerID: stranger,
		Name:    "Groceries",
	})
	require.NoError(t, err)

	in := f.input(100, &from, nil)
	in.CategoryID = strangerCat.ID
	_, err = f.svc.Create(context.Background(), f.owner, in)
	require.Error(t, err)
	assert.Equal(t, domain.KindNotFound, domain.KindOf(err))
	f.assertBalance(t, from, 500)
}

func TestCreateStoreFaultRollsBack(t *testing.T) {
	f := newFixture(t)
	from := f.seedAccount(t, 500)
	to := f.seedAccount(t, 200)

	f.store.CreateTransactionErr = errors.New("disk full")
	_, err := f.svc.Create(context.Background(), f.owner, f.input(100, &from, &to))
	require.Error(t, err)
	assert.Equal(t, domain.KindInternal, domain.KindOf(err))

	f.assertBalance(t, from, 500)
	f.assertBalance(t, to, 200)
	assert.Empty(t, f.exports.published)
}

func TestCreatePublishFailureDoesNotFailOperation(t *testing.T) {
	f := newFixture(t)
	from := f.seedAccount(t, 500)
	f.exports.err = errors.New("queue closed")

	_, err := f.svc.Create(context.Background(), f.owner, f.input(100, &from, nil))
	require.NoError(t, err)
	f.assertBalance(t, from, 400)
}

func TestUpdateSameAccountsAmountChange(t *testing.T) {
	f := newFixture(t)
	from := f.seedAccount(t, 500)
	to := f.seedAccount(t, 200)

	txn, err := f.svc.Create(context.Background(), f.owner, f.input(50, &from, &to))
	require.NoError(t, err)
	f.assertBalance(t, from, 450)
	f.assertBalance(t, to, 250)

	updated, err := f.svc.Update(context.Background(), f.owner, txn.ID, f.input(100, &from, &to))
	require.NoError(t, err)
	assert.Truef(t, updated.Amount.Equal(decimal.NewFromInt(100)), "amount = %s", updated.Amount)

	f.assertBalance(t, from, 400)
	f.assertBalance(t, to, 300)

	require.Len(t, f.exports.published, 2)
	assert.Equal(t, jobs.ExportOpUpdated, f.exports.published[1].Op)
}

func TestUpdateReducedAmountOnDrainedAccount(t *testing.T) {
	f := newFixture(t)
	from := f.seedAccount(t, 100)

	txn, err := f.svc.Create(context.Background(), f.owner, f.input(100, &from, nil))
	require.NoError(t, err)
	f.assertBalance(t, from, 0)

	// The sufficiency check must observe the balance with the old debit
	// restored, otherwise reducing the amount on a drained account fails.
	_, err = f.svc.Update(context.Background(), f.owner, txn.ID, f.input(60, &from, nil))
	require.NoError(t, err)
	f.assertBalance(t, from, 40)
}

func TestUpdateIncreaseBeyondRestoredBalance(t *testing.T) {
	f := newFixture(t)
	from := f.seedAccount(t, 100)

	txn, err := f.svc.Create(context.Background(), f.owner, f.input(80, &from, nil))
	require.NoError(t, err)
	f.assertBalance(t, from, 20)

	// Restored balance is 100, so 150 is still too much.
	_, err = f.svc.Update(context.Background(), f.owner, txn.ID, f.input(150, &from, nil))
	require.Error(t, err)
	assert.Equal(t, domain.KindInsufficientFunds, domain.KindOf(err))
	f.assertBalance(t, from, 20)
}

func TestUpdateChangedSourceAccount(t *testing.T) {
	f := newFixture(t)
	oldFrom := f.seedAccount(t, 500)
	newFrom := f.seedAccount(t, 300)
	to := f.seedAccount(t, 200)

	txn, err := f.svc.Create(context.Background(), f.owner, f.input(100, &oldFrom, &to))
	require.NoError(t, err)

	_, err = f.svc.Update(context.Background(), f.owner, txn.ID, f.input(150, &newFrom, &to))
	require.NoError(t, err)

	f.assertBalance(t, oldFrom, 500) // old debit restored
	f.assertBalance(t, newFrom, 150)
	f.assertBalance(t, to, 250) // 200 +100 -100 +150
}

func TestUpdateChangedSourceInsufficientRollsBackEverything(t *testing.T) {
	f := newFixture(t)
	oldFrom := f.seedAccount(t, 500)
	newFrom := f.seedAccount(t, 50)
	to := f.seedAccount(t, 200)

	txn, err := f.svc.Create(context.Background(), f.owner, f.input(100, &oldFrom, &to))
	require.NoError(t, err)

	_, err = f.svc.Update(context.Background(), f.owner, txn.ID, f.input(100, &newFrom, &to))
	require.Error(t, err)
	assert.Equal(t, domain.KindInsufficientFunds, domain.KindOf(err))

	// The restoration of oldFrom happened inside the scope and must be
	// discarded along with everything else.
	f.assertBalance(t, oldFrom, 400)
	f.assertBalance(t, newFrom, 50)
	f.assertBalance(t, to, 300)

	stored, err := f.store.Transactions().Find(context.Background(), f.owner, txn.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, &oldFrom, stored.FromAccountID)
}

func TestUpdateRemovesSourceReference(t *testing.T) {
	f := newFixture(t)
	from := f.seedAccount(t, 500)
	to := f.seedAccount(t, 200)

	txn, err := f.svc.Create(context.Background(), f.owner, f.input(100, &from, &to))
	require.NoError(t, err)

	updated, err := f.svc.Update(context.Background(), f.owner, txn.ID, f.input(100, nil, &to))
	require.NoError(t, err)
	assert.Nil(t, updated.FromAccountID)

	f.assertBalance(t, from, 500)
	f.assertBalance(t, to, 300)
}

func TestUpdateAddsDestinationReference(t *testing.T) {
	f := newFixture(t)
	from := f.seedAccount(t, 500)
	to := f.seedAccount(t, 200)

	txn, err := f.svc.Create(context.Background(), f.owner, f.input(100, &from, nil))
	require.NoError(t, err)
	f.assertBalance(t, to, 200)

	_, err = f.svc.Update(context.Background(), f.owner, txn.ID, f.input(100, &from, &to))
	require.NoError(t, err)
	f.assertBalance(t, from, 400)
	f.assertBalance(t, to, 300)
}

func TestUpdateMissingTransaction(t *testing.T) {
	f := newFixture(t)
	from := f.seedAccount(t, 500)

	_, err := f.svc.Update(context.Background(), f.owner, uuid.New(), f.input(100, &from, nil))
	require.Error(t, err)
	assert.Equal(t, domain.KindNotFound, domain.KindOf(err))
	f.assertBalance(t, from, 500)
}

func TestUpdateStoreFaultRollsBack(t *testing.T) {
	f := newFixture(t)
	from := f.seedAccount(t, 500)

	txn, err := f.svc.Create(context.Background(), f.owner, f.input(100, &from, nil))
	require.NoError(t, err)

	f.store.UpdateTransactionErr = errors.New("connection reset")
	_, err = f.svc.Update(context.Background(), f.owner, txn.ID, f.input(200, &from, nil))
	require.Error(t, err)
	assert.Equal(t, domain.KindInternal, domain.KindOf(err))

	f.assertBalance(t, from, 400)
	stored, err := f.store.Transactions().Find(context.Background(), f.owner, txn.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Truef(t, stored.Amount.Equal(decimal.NewFromInt(100)), "amount = %s", stored.Amount)
}

func TestDeleteReversesEffect(t *testing.T) {
	f := newFixture(t)
	from := f.seedAccount(t, 500)
	to := f.seedAccount(t, 200)

	txn, err := f.svc.Create(context.Background(), f.owner, f.input(100, &from, &to))
	require.NoError(t, err)

	err = f.svc.Delete(context.Background(), f.owner, txn.ID)
	require.NoError(t, err)

	f.assertBalance(t, from, 500)
	f.assertBalance(t, to, 200)

	stored, err := f.store.Transactions().Find(context.Background(), f.owner, txn.ID)
	require.NoError(t, err)
	assert.Nil(t, stored)

	require.Len(t, f.exports.published, 2)
	assert.Equal(t, jobs.ExportOpDeleted, f.exports.published[1].Op)
}

func TestDeleteMayDriveDestinationNegative(t *testing.T) {
	f := newFixture(t)
	from := f.seedAccount(t, 500)
	to := f.seedAccount(t, 0)

	txn, err := f.svc.Create(context.Background(), f.owner, f.input(100, &from, &to))
	require.NoError(t, err)

	// Spend the credited funds from the destination.
	spend, err := f.svc.Create(context.Background(), f.owner, f.input(80, &to, nil))
	require.NoError(t, err)
	require.NotNil(t, spend)
	f.assertBalance(t, to, 20)

	// Reversing the credit still applies in full.
	err = f.svc.Delete(context.Background(), f.owner, txn.ID)
	require.NoError(t, err)
	f.assertBalance(t, to, -80)
	f.assertBalance(t, from, 500)
}

func TestDeleteMissingTransaction(t *testing.T) {
	f := newFixture(t)

	err := f.svc.Delete(context.Background(), f.owner, uuid.New())
	require.Error(t, err)
	assert.Equal(t, domain.KindNotFound, domain.KindOf(err))
}

func TestDeleteStoreFaultRollsBack(t *testing.T) {
	f := newFixture(t)
	from := f.seedAccount(t, 500)
	to := f.seedAccount(t, 200)

	txn, err := f.svc.Create(context.Background(), f.owner, f.input(100, &from, &to))
	require.NoError(t, err)

	f.store.DeleteTransactionErr = errors.New("connection reset")
	err = f.svc.Delete(context.Background(), f.owner, txn.ID)
	require.Error(t, err)
	assert.Equal(t, domain.KindInternal, domain.KindOf(err))

	f.assertBalance(t, from, 400)
	f.assertBalance(t, to, 300)
	stored, findErr := f.store.Transactions().Find(context.Background(), f.owner, txn.ID)
	require.NoError(t, findErr)
	assert.NotNil(t, stored)
}

func TestListPagination(t *testing.T) {
	f := newFixture(t)
	from := f.seedAccount(t, 10000)

	for i := 0; i < 15; i++ {
		in := f.input(10, &from, nil)
		in.Date = time.Date(2025, 3, 1+i, 0, 0, 0, 0, time.UTC)
		_, err := f.svc.Create(context.Background(), f.owner, in)
		require.NoError(t, err)
	}

	page, err := f.svc.List(context.Background(), f.owner, ledger.Page{})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 10, page.Limit)
	assert.Equal(t, 15, page.Total)
	require.Len(t, page.Transactions, 10)

	// Newest first.
	assert.Equal(t, time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC), page.Transactions[0].Date)

	second, err := f.svc.List(context.Background(), f.owner, ledger.Page{Page: 2})
	require.NoError(t, err)
	assert.Len(t, second.Transactions, 5)

	empty, err := f.svc.List(context.Background(), f.owner, ledger.Page{Page: 4})
	require.NoError(t, err)
	assert.Empty(t, empty.Transactions)
	assert.Equal(t, 15, empty.Total)
}

func TestListBoundsRejected(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.List(context.Background(), f.owner, ledger.Page{Page: -1})
	require.Error(t, err)
	assert.Equal(t, domain.KindInvalidOperation, domain.KindOf(err))

	_, err = f.svc.List(context.Background(), f.owner, ledger.Page{Limit: 41})
	require.Error(t, err)
	assert.Equal(t, domain.KindInvalidOperation, domain.KindOf(err))

	_, err = f.svc.List(context.Background(), f.owner, ledger.Page{Limit: 40})
	require.NoError(t, err)
}
