package api

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/payx/ledger/internal/apikey"
	"github.com/payx/ledger/internal/apperror"
	"github.com/payx/ledger/internal/domain"
)

func (h *Handler) CreateBusiness(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateBusinessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, apperror.Validation("malformed JSON body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		respondError(w, apperror.Validation(err.Error()))
		return
	}

	secretBytes := make([]byte, 32)
	if _, err := rand.Read(secretBytes); err != nil {
		respondError(w, apperror.Internal(err))
		return
	}
	webhookSecret := base64.RawURLEncoding.EncodeToString(secretBytes)

	business, err := h.store.CreateBusiness(r.Context(), uuid.NewString(), req.Name, req.Email, req.WebhookURL, webhookSecret)
	if err != nil {
		respondError(w, err)
		return
	}

	gen, err := apikey.Generate()
	if err != nil {
		respondError(w, apperror.Internal(err))
		return
	}
	if err := h.store.CreateCredential(r.Context(), gen.ID, business.ID, gen.Hash, gen.Prefix, h.defaultRateLimit); err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, domain.CreateBusinessResponse{
		Business: business,
		APIKey: domain.GeneratedAPIKey{
			ID:     gen.ID,
			Key:    gen.Key,
			Prefix: gen.Prefix,
		},
		WebhookSecret: webhookSecret,
	})
}

func (h *Handler) GetBusiness(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	business, err := h.store.GetBusiness(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, business)
}

func (h *Handler) UpdateBusiness(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var req domain.UpdateBusinessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, apperror.Validation("malformed JSON body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		respondError(w, apperror.Validation(err.Error()))
		return
	}

	business, err := h.store.UpdateBusiness(r.Context(), id, req.Name, req.WebhookURL)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, business)
}

func parsePageParams(r *http.Request) (limit, offset int64) {
	limit, offset = 50, 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n >= 0 {
			offset = n
		}
	}
	return limit, offset
}
