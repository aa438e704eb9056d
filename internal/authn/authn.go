// Package authn implements the Auth Gate: resolving a bearer credential
// on every request to a (business_id, credential_id) pair attached to the
// request context, before the Rate Gate or any handler runs.
package authn

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/payx/ledger/internal/apikey"
	"github.com/payx/ledger/internal/apperror"
	"github.com/payx/ledger/internal/domain"
	"github.com/payx/ledger/internal/ratelimit"
)

type contextKey int

const (
	businessIDKey contextKey = iota
	credentialIDKey
)

// Store is the subset of internal/postgres.Store the gate depends on.
type Store interface {
	FindCredentialByPrefix(ctx context.Context, prefix string) (domain.Credential, error)
	TouchCredential(ctx context.Context, credentialID string) error
}

// Middleware wraps handlers with bearer authentication followed by the
// rate gate, so a request is authenticated before it is ever counted
// against a budget or reaches a handler. Routes that do not require a
// credential (health checks, tenant creation) are mounted outside this
// middleware by the router.
func Middleware(store Store, gate *ratelimit.Gate) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cred, err := authenticate(r.Context(), store, r.Header.Get("Authorization"))
			if err != nil {
				apperror.WriteJSON(w, err)
				return
			}

			go func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = store.TouchCredential(ctx, cred.ID)
			}()

			if err := gate.Allow(r.Context(), cred.ID, cred.RateLimitPerMinute); err != nil {
				apperror.WriteJSON(w, err)
				return
			}

			ctx := WithBusiness(r.Context(), cred.BusinessID, cred.ID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func authenticate(ctx context.Context, store Store, header string) (domain.Credential, error) {
	key, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || key == "" {
		return domain.Credential{}, apperror.InvalidAPIKey()
	}

	prefix, err := apikey.Prefix(key)
	if err != nil {
		return domain.Credential{}, apperror.InvalidAPIKey()
	}

	cred, err := store.FindCredentialByPrefix(ctx, prefix)
	if err != nil {
		return domain.Credential{}, apperror.InvalidAPIKey()
	}
	if !cred.IsValid(time.Now()) {
		return domain.Credential{}, apperror.InvalidAPIKey()
	}
	if !apikey.Verify(key, cred.KeyHash) {
		return domain.Credential{}, apperror.InvalidAPIKey()
	}

	return cred, nil
}

// WithBusiness attaches the authenticated tenant to a context.
func WithBusiness(ctx context.Context, businessID, credentialID string) context.Context {
	ctx = context.WithValue(ctx, businessIDKey, businessID)
	ctx = context.WithValue(ctx, credentialIDKey, credentialID)
	return ctx
}

// BusinessID reads the authenticated tenant id from context.
func BusinessID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(businessIDKey).(string)
	return id, ok
}

// CredentialID reads the authenticated credential id from context.
func CredentialID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(credentialIDKey).(string)
	return id, ok
}
