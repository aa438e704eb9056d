package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/payx/ledger/internal/apperror"
	"github.com/payx/ledger/internal/domain"
	"github.com/payx/ledger/internal/money"
)

func (h *Handler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, apperror.Validation("malformed JSON body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		respondError(w, apperror.Validation(err.Error()))
		return
	}

	accountType := req.AccountType
	if accountType == "" {
		accountType = "checking"
	}

	opening := money.Zero(req.Currency)
	if req.InitialBalance != nil {
		parsed, err := money.Parse(*req.InitialBalance, req.Currency)
		if err != nil {
			respondError(w, err)
			return
		}
		if parsed.IsNegative() {
			respondError(w, apperror.Validation("initial_balance must not be negative"))
			return
		}
		opening = parsed
	}

	account, err := h.store.CreateAccount(r.Context(), uuid.NewString(), req.BusinessID, accountType, req.Currency, opening)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, domain.NewAccountResponse(account))
}

func (h *Handler) GetAccount(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	account, err := h.store.GetAccount(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, domain.NewAccountResponse(account))
}

type accountTransactionsResponse struct {
	Transactions []domain.TransactionResponse `json:"transactions"`
	NextCursor   *string                      `json:"next_cursor,omitempty"`
}

func (h *Handler) ListAccountTransactions(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	limit := int64(50)
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}
	cursor := r.URL.Query().Get("cursor")

	txns, err := h.store.ListTransactionsByAccount(r.Context(), id, cursor, limit)
	if err != nil {
		respondError(w, err)
		return
	}

	out := make([]domain.TransactionResponse, 0, len(txns))
	for _, t := range txns {
		out = append(out, domain.NewTransactionResponse(t))
	}

	resp := accountTransactionsResponse{Transactions: out}
	if int64(len(txns)) == limit && len(txns) > 0 {
		next := txns[len(txns)-1].ID
		resp.NextCursor = &next
	}
	respondJSON(w, http.StatusOK, resp)
}
