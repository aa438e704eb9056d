package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/payx/ledger/internal/authn"
	"github.com/payx/ledger/internal/ratelimit"
)

// NewRouter builds the full HTTP surface: unauthenticated health routes and
// tenant creation, with every other /v1 route behind the Auth Gate and Rate
// Gate middleware chain.
func NewRouter(h *Handler, authStore authn.Store, gate *ratelimit.Gate) http.Handler {
	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.Handler())
	r.HandleFunc("/health", h.Health).Methods(http.MethodGet)
	r.HandleFunc("/ready", h.Ready).Methods(http.MethodGet)

	v1 := r.PathPrefix("/v1").Subrouter()
	v1.HandleFunc("/health", h.Health).Methods(http.MethodGet)
	v1.HandleFunc("/ready", h.Ready).Methods(http.MethodGet)
	v1.HandleFunc("/businesses", instrument(http.MethodPost, "/v1/businesses", h.CreateBusiness)).Methods(http.MethodPost)

	auth := v1.NewRoute().Subrouter()
	auth.Use(authn.Middleware(authStore, gate))

	auth.HandleFunc("/businesses/{id}", instrument(http.MethodGet, "/v1/businesses/{id}", h.GetBusiness)).Methods(http.MethodGet)
	auth.HandleFunc("/businesses/{id}", instrument(http.MethodPut, "/v1/businesses/{id}", h.UpdateBusiness)).Methods(http.MethodPut)

	auth.HandleFunc("/accounts", instrument(http.MethodPost, "/v1/accounts", h.CreateAccount)).Methods(http.MethodPost)
	auth.HandleFunc("/accounts/{id}", instrument(http.MethodGet, "/v1/accounts/{id}", h.GetAccount)).Methods(http.MethodGet)
	auth.HandleFunc("/accounts/{id}/transactions", instrument(http.MethodGet, "/v1/accounts/{id}/transactions", h.ListAccountTransactions)).Methods(http.MethodGet)

	auth.HandleFunc("/transactions", instrument(http.MethodPost, "/v1/transactions", h.CreateTransaction)).Methods(http.MethodPost)
	auth.HandleFunc("/transactions/{id}", instrument(http.MethodGet, "/v1/transactions/{id}", h.GetTransaction)).Methods(http.MethodGet)

	auth.HandleFunc("/webhooks/endpoints", instrument(http.MethodPost, "/v1/webhooks/endpoints", h.CreateWebhookEndpoint)).Methods(http.MethodPost)
	auth.HandleFunc("/webhooks/endpoints/{id}", instrument(http.MethodPut, "/v1/webhooks/endpoints/{id}", h.UpdateWebhookEndpoint)).Methods(http.MethodPut)
	auth.HandleFunc("/webhooks/endpoints/{id}", instrument(http.MethodDelete, "/v1/webhooks/endpoints/{id}", h.DeleteWebhookEndpoint)).Methods(http.MethodDelete)

	auth.HandleFunc("/webhooks/deliveries", instrument(http.MethodGet, "/v1/webhooks/deliveries", h.ListWebhookDeliveries)).Methods(http.MethodGet)
	auth.HandleFunc("/webhooks/deliveries/{id}", instrument(http.MethodGet, "/v1/webhooks/deliveries/{id}", h.GetWebhookDelivery)).Methods(http.MethodGet)
	auth.HandleFunc("/webhooks/deliveries/{id}/retry", instrument(http.MethodPost, "/v1/webhooks/deliveries/{id}/retry", h.RetryWebhookDelivery)).Methods(http.MethodPost)

	return r
}
