package category_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/finance-ledger/internal/category"
	"github.com/dvloznov/finance-ledger/internal/domain"
	"github.com/dvloznov/finance-ledger/internal/store/memory"
)

func newService(t *testing.T) (*category.Service, *memory.Store, uuid.UUID) {
	t.Helper()
	store := memory.New()
	return category.NewService(store.Categories(), zerolog.Nop()), store, uuid.New()
}

func TestCategoryCRUD(t *testing.T) {
	svc, _, owner := newService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, owner, category.Input{Name: "Rent", IconName: "home"})
	require.NoError(t, err)
	assert.Equal(t, owner, created.OwnerID)

	got, err := svc.Get(ctx, owner, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Rent", got.Name)
	assert.Equal(t, "home", got.IconName)

	updated, err := svc.Update(ctx, owner, created.ID, category.Input{Name: "Housing", IconName: "home"})
	require.NoError(t, err)
	assert.Equal(t, "Housing", updated.Name)

	all, err := svc.List(ctx, owner)
	require.NoError(t, err)
	require.Len(t, all, 1)

	require.NoError(t, svc.Delete(ctx, owner, created.ID))

	_, err = svc.Get(ctx, owner, created.ID)
	require.Error(t, err)
	assert.Equal(t, domain.KindNotFound, domain.KindOf(err))
}

func TestCategoryScopedToOwner(t *testing.T) {
	svc, _, owner := newService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, owner, category.Input{Name: "Rent"})
	require.NoError(t, err)

	_, err = svc.Get(ctx, uuid.New(), created.ID)
	require.Error(t, err)
	assert.Equal(t, domain.KindNotFound, domain.KindOf(err))

	err = svc.Delete(ctx, uuid.New(), created.ID)
	require.Error(t, err)
	assert.Equal(t, domain.KindNotFound, domain.KindOf(err))
}

func TestDeleteReferencedCategoryRefused(t *testing.T) {
	svc, store, owner := newService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, owner, category.Input{Name: "Groceries"})
	require.NoError(t, err)

	_, err = store.Transactions().Create(ctx, &domain.Transaction{
		ID:         uuid.New(),
		OwnerID:    owner,
		CategoryID: created.ID,
		Amount:     decimal.NewFromInt(10),
		Date:       time.Now(),
		Type:       domain.TransactionTypeExpense,
	})
	require.NoError(t, err)

	err = svc.Delete(ctx, owner, created.ID)
	require.Error(t, err)
	assert.Equal(t, domain.KindInvalidOperation, domain.KindOf(err))
}
