// Package api exposes the ledger service's HTTP surface: request decoding,
// validation, and translation of domain results into their wire responses.
package api

import (
	"github.com/go-playground/validator/v10"
	"github.com/payx/ledger/internal/ledger"
	"github.com/payx/ledger/internal/postgres"
)

// Handler holds the dependencies every route needs: the Ledger Store for
// reads and simple writes, the Transaction Engine for the one write path
// that moves money, and a shared validator instance.
type Handler struct {
	store            *postgres.Store
	engine           *ledger.Engine
	validate         *validator.Validate
	defaultRateLimit int
}

// NewHandler wires a Handler from its dependencies.
func NewHandler(store *postgres.Store, engine *ledger.Engine, defaultRateLimit int) *Handler {
	return &Handler{
		store:            store,
		engine:           engine,
		validate:         validator.New(),
		defaultRateLimit: defaultRateLimit,
	}
}
