package api

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/payx/ledger/internal/apperror"
	"github.com/payx/ledger/internal/authn"
	"github.com/payx/ledger/internal/domain"
)

// CreateWebhookEndpoint sets the tenant's webhook url and mints a fresh
// secret, returned exactly once in the response body.
func (h *Handler) CreateWebhookEndpoint(w http.ResponseWriter, r *http.Request) {
	businessID, ok := authn.BusinessID(r.Context())
	if !ok {
		respondError(w, apperror.InvalidAPIKey())
		return
	}

	var req domain.CreateWebhookEndpointRequest
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
	secret := base64.RawURLEncoding.EncodeToString(secretBytes)

	business, err := h.store.RegenerateWebhookEndpoint(r.Context(), businessID, req.URL, secret)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]any{
		"id":     business.ID,
		"url":    *business.WebhookURL,
		"secret": secret,
	})
}

// UpdateWebhookEndpoint changes the url only; the secret and the {id} path
// value carried over from the resource-per-endpoint shape are both ignored,
// since a tenant has exactly one webhook destination.
func (h *Handler) UpdateWebhookEndpoint(w http.ResponseWriter, r *http.Request) {
	businessID, ok := authn.BusinessID(r.Context())
	if !ok {
		respondError(w, apperror.InvalidAPIKey())
		return
	}

	var req domain.UpdateWebhookEndpointRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, apperror.Validation("malformed JSON body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		respondError(w, apperror.Validation(err.Error()))
		return
	}

	business, err := h.store.SetWebhookURL(r.Context(), businessID, req.URL)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, business)
}

// DeleteWebhookEndpoint clears the url and empties the secret.
func (h *Handler) DeleteWebhookEndpoint(w http.ResponseWriter, r *http.Request) {
	businessID, ok := authn.BusinessID(r.Context())
	if !ok {
		respondError(w, apperror.InvalidAPIKey())
		return
	}
	if err := h.store.ClearWebhookEndpoint(r.Context(), businessID); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListWebhookDeliveries pages through a tenant's outbox events, optionally
// filtered to a single status.
func (h *Handler) ListWebhookDeliveries(w http.ResponseWriter, r *http.Request) {
	businessID, ok := authn.BusinessID(r.Context())
	if !ok {
		respondError(w, apperror.InvalidAPIKey())
		return
	}

	limit, offset := parsePageParams(r)

	var (
		deliveries []domain.OutboxEvent
		err        error
	)
	if status := r.URL.Query().Get("status"); status != "" {
		deliveries, err = h.store.ListOutboxEventsByBusinessStatus(r.Context(), businessID, domain.OutboxStatus(status), limit, offset)
	} else {
		deliveries, err = h.store.ListOutboxEventsByBusiness(r.Context(), businessID, limit, offset)
	}
	if err != nil {
		respondError(w, err)
		return
	}

	out := make([]domain.DeliveryResponse, 0, len(deliveries))
	for _, d := range deliveries {
		out = append(out, domain.NewDeliveryResponse(d))
	}
	respondJSON(w, http.StatusOK, map[string]any{"deliveries": out})
}

// GetWebhookDelivery reads a single delivery scoped to the caller's tenant.
func (h *Handler) GetWebhookDelivery(w http.ResponseWriter, r *http.Request) {
	businessID, ok := authn.BusinessID(r.Context())
	if !ok {
		respondError(w, apperror.InvalidAPIKey())
		return
	}
	id := mux.Vars(r)["id"]

	delivery, err := h.store.GetOutboxEventForBusiness(r.Context(), businessID, id)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, domain.NewDeliveryResponse(delivery))
}

// RetryWebhookDelivery re-arms a failed delivery for the next worker pass.
// It is a no-op error (404) for any delivery not currently in failed status.
func (h *Handler) RetryWebhookDelivery(w http.ResponseWriter, r *http.Request) {
	businessID, ok := authn.BusinessID(r.Context())
	if !ok {
		respondError(w, apperror.InvalidAPIKey())
		return
	}
	id := mux.Vars(r)["id"]

	delivery, err := h.store.RearmOutboxEvent(r.Context(), businessID, id)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, domain.NewDeliveryResponse(delivery))
}
