package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/finance-ledger/internal/api/middleware"
	"github.com/dvloznov/finance-ledger/internal/domain"
	"github.com/dvloznov/finance-ledger/internal/ledger"
	"github.com/dvloznov/finance-ledger/internal/store/memory"
)

type handlerFixture struct {
	handler *TransactionsHandler
	store   *memory.Store
	owner   uuid.UUID
	catID   uuid.UUID
	fromID  uuid.UUID
	toID    uuid.UUID
}

func newHandlerFixture(t *testing.T) *handlerFixture {
	t.Helper()

	store := memory.New()
	svc := ledger.NewService(store, store.Transactions(), nil, zerolog.Nop())
	owner := uuid.New()
	ctx := context.Background()

	cat, err := store.Categories().Create(ctx, &domain.Category{ID: uuid.New(), OwnerID: owner, Name: "Groceries"})
	require.NoError(t, err)

	from, err := store.Accounts().Create(ctx, &domain.BankAccount{
		ID: uuid.New(), OwnerID: owner, Name: "From", Type: domain.AccountTypeChecking,
		Balance: decimal.NewFromInt(500),
	})
	require.NoError(t, err)

	to, err := store.Accounts().Create(ctx, &domain.BankAccount{
		ID: uuid.New(), OwnerID: owner, Name: "To", Type: domain.AccountTypeSavings,
		Balance: decimal.NewFromInt(200),
	})
	require.NoError(t, err)

	return &handlerFixture{
		handler: NewTransactionsHandler(svc, zerolog.Nop()),
		store:   store,
		owner:   owner,
		catID:   cat.ID,
		fromID:  from.ID,
		toID:    to.ID,
	}
}

func (f *handlerFixture) request(t *testing.T, method, target string, body any) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	return req.WithContext(middleware.WithOwnerID(req.Context(), f.owner))
}

func (f *handlerFixture) payload(amount string) map[string]any {
	return map[string]any{
		"from_account_id": f.fromID.String(),
		"to_account_id":   f.toID.String(),
		"category_id":     f.catID.String(),
		"amount":          amount,
		"description":     "transfer",
		"date":            "2025-03-10T00:00:00Z",
		"type":            "TRANSFER",
	}
}

func TestCreateTransactionEndpoint(t *testing.T) {
	f := newHandlerFixture(t)

	rec := httptest.NewRecorder()
	f.handler.CreateTransaction(rec, f.request(t, http.MethodPost, "/api/transactions", f.payload("100")))

	require.Equal(t, http.StatusCreated, rec.Code)

	var txn domain.Transaction
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &txn))
	assert.True(t, txn.Amount.Equal(decimal.NewFromInt(100)))
	assert.Equal(t, f.owner, txn.OwnerID)

	from, err := f.store.Accounts().Get(context.Background(), f.owner, f.fromID)
	require.NoError(t, err)
	assert.True(t, from.Balance.Equal(decimal.NewFromInt(400)))
}

func TestCreateTransactionUnauthenticated(t *testing.T) {
	f := newHandlerFixture(t)

	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(f.payload("100")))
	req := httptest.NewRequest(http.MethodPost, "/api/transactions", &buf)

	rec := httptest.NewRecorder()
	f.handler.CreateTransaction(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreateTransactionValidation(t *testing.T) {
	f := newHandlerFixture(t)

	tests := []struct {
		name   string
		mutate func(map[string]any)
	}{
		{"bad amount", func(p map[string]any) { p["amount"] = "0" }},
		{"missing description", func(p map[string]any) { p["description"] = "" }},
		{"bad type", func(p map[string]any) { p["type"] = "REFUND" }},
		{"bad category", func(p map[string]any) { p["category_id"] = "not-a-uuid" }},
		{"bad source id", func(p map[string]any) { p["from_account_id"] = "not-a-uuid" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload := f.payload("100")
			tt.mutate(payload)

			rec := httptest.NewRecorder()
			f.handler.CreateTransaction(rec, f.request(t, http.MethodPost, "/api/transactions", payload))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestCreateTransactionSameAccount(t *testing.T) {
	f := newHandlerFixture(t)

	payload := f.payload("100")
	payload["to_account_id"] = f.fromID.String()

	rec := httptest.NewRecorder()
	f.handler.CreateTransaction(rec, f.request(t, http.MethodPost, "/api/transactions", payload))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateTransactionInsufficientFunds(t *testing.T) {
	f := newHandlerFixture(t)

	rec := httptest.NewRecorder()
	f.handler.CreateTransaction(rec, f.request(t, http.MethodPost, "/api/transactions", f.payload("10000")))

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "insufficient balance in source account", body["error"])
}

func TestUpdateTransactionEndpoint(t *testing.T) {
	f := newHandlerFixture(t)

	rec := httptest.NewRecorder()
	f.handler.CreateTransaction(rec, f.request(t, http.MethodPost, "/api/transactions", f.payload("50")))
	require.Equal(t, http.StatusCreated, rec.Code)

	var txn domain.Transaction
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &txn))

	rec = httptest.NewRecorder()
	f.handler.UpdateTransaction(rec,
		f.request(t, http.MethodPut, "/api/transactions/"+txn.ID.String(), f.payload("100")),
		txn.ID.String())
	require.Equal(t, http.StatusOK, rec.Code)

	from, err := f.store.Accounts().Get(context.Background(), f.owner, f.fromID)
	require.NoError(t, err)
	assert.True(t, from.Balance.Equal(decimal.NewFromInt(400)))
}

func TestUpdateTransactionNotFound(t *testing.T) {
	f := newHandlerFixture(t)

	id := uuid.New().String()
	rec := httptest.NewRecorder()
	f.handler.UpdateTransaction(rec,
		f.request(t, http.MethodPut, "/api/transactions/"+id, f.payload("100")), id)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteTransactionEndpoint(t *testing.T) {
	f := newHandlerFixture(t)

	rec := httptest.NewRecorder()
	f.handler.CreateTransaction(rec, f.request(t, http.MethodPost, "/api/transactions", f.payload("100")))
	require.Equal(t, http.StatusCreated, rec.Code)

	var txn domain.Transaction
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &txn))

	rec = httptest.NewRecorder()
	f.handler.DeleteTransaction(rec,
		f.request(t, http.MethodDelete, "/api/transactions/"+txn.ID.String(), nil),
		txn.ID.String())
	require.Equal(t, http.StatusNoContent, rec.Code)

	from, err := f.store.Accounts().Get(context.Background(), f.owner, f.fromID)
	require.NoError(t, err)
	assert.True(t, from.Balance.Equal(decimal.NewFromInt(500)))
}

func TestDeleteTransactionBadID(t *testing.T) {
	f := newHandlerFixture(t)

	rec := httptest.NewRecorder()
	f.handler.DeleteTransaction(rec, f.request(t, http.MethodDelete, "/api/transactions/nope", nil), "nope")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListTransactionsEndpoint(t *testing.T) {
	f := newHandlerFixture(t)

	for i := 0; i < 12; i++ {
		rec := httptest.NewRecorder()
		f.handler.CreateTransaction(rec, f.request(t, http.MethodPost, "/api/transactions", f.payload("1")))
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := httptest.NewRecorder()
	f.handler.ListTransactions(rec, f.request(t, http.MethodGet, "/api/transactions?page=2&limit=5", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var page domain.TransactionPage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Equal(t, 2, page.Page)
	assert.Equal(t, 5, page.Limit)
	assert.Equal(t, 12, page.Total)
	assert.Len(t, page.Transactions, 5)
}

func TestListTransactionsLimitTooLarge(t *testing.T) {
	f := newHandlerFixture(t)

	rec := httptest.NewRecorder()
	f.handler.ListTransactions(rec, f.request(t, http.MethodGet, "/api/transactions?limit=41", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), fmt.Sprintf("between 1 and %d", 40))
}
