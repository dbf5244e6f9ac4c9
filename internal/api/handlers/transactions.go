package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/finance-ledger/internal/api/middleware"
	"github.com/dvloznov/finance-ledger/internal/domain"
	"github.com/dvloznov/finance-ledger/internal/ledger"
)

// TransactionsHandler handles transaction endpoints.
type TransactionsHandler struct {
	ledger *ledger.Service
	log    zerolog.Logger
}

// NewTransactionsHandler creates a new transactions handler.
func NewTransactionsHandler(ledger *ledger.Service, log zerolog.Logger) *TransactionsHandler {
	return &TransactionsHandler{ledger: ledger, log: log}
}

// transactionPayload is the request body for create and update.
type transactionPayload struct {
	FromAccountID *string         `json:"from_account_id"`
	ToAccountID   *string         `json:"to_account_id"`
	CreditCardID  *string         `json:"credit_card_id"`
	CategoryID    string          `json:"category_id"`
	Amount        decimal.Decimal `json:"amount"`
	Description   string          `json:"description"`
	Date          time.Time       `json:"date"`
	Type          string          `json:"type"`
}

// toInput validates the payload and converts it to a ledger input.
func (p *transactionPayload) toInput() (ledger.Input, string) {
	var in ledger.Input

	var err error
	if in.FromAccountID, err = parseOptionalID(p.FromAccountID); err != nil {
		return in, "Invalid source account id"
	}
	if in.ToAccountID, err = parseOptionalID(p.ToAccountID); err != nil {
		return in, "Invalid destination account id"
	}
	if in.CreditCardID, err = parseOptionalID(p.CreditCardID); err != nil {
		return in, "Invalid credit card id"
	}
	if in.CategoryID, err = uuid.Parse(p.CategoryID); err != nil {
		return in, "Invalid category id"
	}
	if !p.Amount.IsPositive() {
		return in, "Amount must be positive"
	}
	if p.Description == "" {
		return in, "Description is required"
	}
	if p.Date.IsZero() {
		return in, "Date is required"
	}
	txType, err := domain.ParseTransactionType(p.Type)
	if err != nil {
		return in, "Invalid transaction type"
	}

	in.Amount = p.Amount
	in.Description = p.Description
	in.Date = p.Date
	in.Type = txType
	return in, ""
}

func parseOptionalID(s *string) (*uuid.UUID, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	id, err := uuid.Parse(*s)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// CreateTransaction handles POST /api/transactions
func (h *TransactionsHandler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := middleware.OwnerID(r.Context())
	if !ok {
		middleware.WriteError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var payload transactionPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	in, msg := payload.toInput()
	if msg != "" {
		middleware.WriteError(w, http.StatusBadRequest, msg)
		return
	}

	txn, err := h.ledger.Create(r.Context(), ownerID, in)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}

	middleware.WriteJSON(w, http.StatusCreated, txn)
}

// UpdateTransaction handles PUT /api/transactions/:id
func (h *TransactionsHandler) UpdateTransaction(w http.ResponseWriter, r *http.Request, transactionID string) {
	ownerID, ok := middleware.OwnerID(r.Context())
	if !ok {
		middleware.WriteError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	id, err := uuid.Parse(transactionID)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid transaction id")
		return
	}

	var payload transactionPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	in, msg := payload.toInput()
	if msg != "" {
		middleware.WriteError(w, http.StatusBadRequest, msg)
		return
	}

	txn, err := h.ledger.Update(r.Context(), ownerID, id, in)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, txn)
}

// DeleteTransaction handles DELETE /api/transactions/:id
func (h *TransactionsHandler) DeleteTransaction(w http.ResponseWriter, r *http.Request, transactionID string) {
	ownerID, ok := middleware.OwnerID(r.Context())
	if !ok {
		middleware.WriteError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	id, err := uuid.Parse(transactionID)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid transaction id")
		return
	}

	if err := h.ledger.Delete(r.Context(), ownerID, id); err != nil {
		writeServiceError(w, h.log, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListTransactions handles GET /api/transactions
func (h *TransactionsHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := middleware.OwnerID(r.Context())
	if !ok {
		middleware.WriteError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var page ledger.Page
	if v := r.URL.Query().Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid page")
			return
		}
		page.Page = n
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		page.Limit = n
	}

	result, err := h.ledger.List(r.Context(), ownerID, page)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, result)
}
