package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/payx/ledger/internal/apperror"
	"github.com/payx/ledger/internal/authn"
	"github.com/payx/ledger/internal/domain"
)

func (h *Handler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	businessID, ok := authn.BusinessID(r.Context())
	if !ok {
		respondError(w, apperror.InvalidAPIKey())
		return
	}

	var req domain.CreateTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, apperror.Validation("malformed JSON body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		respondError(w, apperror.Validation(err.Error()))
		return
	}

	idempotencyKey := r.Header.Get("Idempotency-Key")

	txn, replayed, err := h.engine.Submit(r.Context(), businessID, req, idempotencyKey)
	if err != nil {
		respondError(w, err)
		return
	}

	status := http.StatusCreated
	if replayed {
		status = http.StatusOK
	}
	respondJSON(w, status, domain.NewTransactionResponse(txn))
}

func (h *Handler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	txn, err := h.store.GetTransaction(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, domain.NewTransactionResponse(txn))
}
