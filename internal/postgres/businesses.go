package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/payx/ledger/internal/apperror"
	"github.com/payx/ledger/internal/domain"
)

// CreateBusiness inserts a new tenant.
func (s *Store) CreateBusiness(ctx context.Context, id, name, email string, webhookURL *string, webhookSecret string) (domain.Business, error) {
	var b domain.Business
	err := s.Pool.QueryRow(ctx, `
		INSERT INTO businesses (id, name, email, webhook_url, webhook_secret)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, name, email, webhook_url, webhook_secret, created_at, updated_at
	`, id, name, email, webhookURL, webhookSecret).Scan(
		&b.ID, &b.Name, &b.Email, &b.WebhookURL, &b.WebhookSecret, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return domain.Business{}, apperror.Database(err)
	}
	return b, nil
}

// GetBusiness reads a tenant by id.
func (s *Store) GetBusiness(ctx context.Context, id string) (domain.Business, error) {
	return s.getBusiness(ctx, s.Pool, id)
}

func (s *Store) getBusiness(ctx context.Context, db DBTX, id string) (domain.Business, error) {
	var b domain.Business
	err := db.QueryRow(ctx, `
		SELECT id, name, email, webhook_url, webhook_secret, created_at, updated_at
		FROM businesses WHERE id = $1
	`, id).Scan(&b.ID, &b.Name, &b.Email, &b.WebhookURL, &b.WebhookSecret, &b.CreatedAt, &b.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Business{}, apperror.BusinessNotFound(id)
	}
	if err != nil {
		return domain.Business{}, apperror.Database(err)
	}
	return b, nil
}

// UpdateBusiness applies a partial update; nil fields leave the column
// unchanged.
func (s *Store) UpdateBusiness(ctx context.Context, id string, name, webhookURL *string) (domain.Business, error) {
	var b domain.Business
	err := s.Pool.QueryRow(ctx, `
		UPDATE businesses
		SET name = COALESCE($2, name),
		    webhook_url = COALESCE($3, webhook_url),
		    updated_at = now()
		WHERE id = $1
		RETURNING id, name, email, webhook_url, webhook_secret, created_at, updated_at
	`, id, name, webhookURL).Scan(
		&b.ID, &b.Name, &b.Email, &b.WebhookURL, &b.WebhookSecret, &b.CreatedAt, &b.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Business{}, apperror.BusinessNotFound(id)
	}
	if err != nil {
		return domain.Business{}, apperror.Database(err)
	}
	return b, nil
}

// SetWebhookURL updates only a tenant's webhook endpoint, used by the
// /v1/webhooks/endpoints surface.
func (s *Store) SetWebhookURL(ctx context.Context, businessID string, url *string) (domain.Business, error) {
	var b domain.Business
	err := s.Pool.QueryRow(ctx, `
		UPDATE businesses SET webhook_url = $2, updated_at = now()
		WHERE id = $1
		RETURNING id, name, email, webhook_url, webhook_secret, created_at, updated_at
	`, businessID, url).Scan(
		&b.ID, &b.Name, &b.Email, &b.WebhookURL, &b.WebhookSecret, &b.CreatedAt, &b.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Business{}, apperror.BusinessNotFound(businessID)
	}
	if err != nil {
		return domain.Business{}, apperror.Database(err)
	}
	return b, nil
}

// RegenerateWebhookEndpoint sets a tenant's webhook url and secret together,
// used by POST /v1/webhooks/endpoints which mints a fresh secret every call.
func (s *Store) RegenerateWebhookEndpoint(ctx context.Context, businessID, url, secret string) (domain.Business, error) {
	var b domain.Business
	err := s.Pool.QueryRow(ctx, `
		UPDATE businesses SET webhook_url = $2, webhook_secret = $3, updated_at = now()
		WHERE id = $1
		RETURNING id, name, email, webhook_url, webhook_secret, created_at, updated_at
	`, businessID, url, secret).Scan(
		&b.ID, &b.Name, &b.Email, &b.WebhookURL, &b.WebhookSecret, &b.CreatedAt, &b.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Business{}, apperror.BusinessNotFound(businessID)
	}
	if err != nil {
		return domain.Business{}, apperror.Database(err)
	}
	return b, nil
}

// ClearWebhookEndpoint nulls the webhook url and sets the secret to the
// empty string, used by
// DELETE /v1/webhooks/endpoints/{id}.
func (s *Store) ClearWebhookEndpoint(ctx context.Context, businessID string) error {
	_, err := s.Pool.Exec(ctx, `
		UPDATE businesses SET webhook_url = NULL, webhook_secret = '', updated_at = now() WHERE id = $1
	`, businessID)
	if err != nil {
		return apperror.Database(err)
	}
	return nil
}

// CreateCredential persists a newly generated API key.
func (s *Store) CreateCredential(ctx context.Context, id, businessID, keyHash, keyPrefix string, rateLimitPerMinute int) error {
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO api_keys (id, business_id, key_hash, key_prefix, rate_limit_per_minute)
		VALUES ($1, $2, $3, $4, $5)
	`, id, businessID, keyHash, keyPrefix, rateLimitPerMinute)
	if err != nil {
		return apperror.Database(err)
	}
	return nil
}

// FindCredentialByPrefix looks up the single active candidate credential
// for the Auth Gate's prefix probe, the first step in resolving a bearer
// token to a tenant.
func (s *Store) FindCredentialByPrefix(ctx context.Context, prefix string) (domain.Credential, error) {
	var c domain.Credential
	err := s.Pool.QueryRow(ctx, `
		SELECT id, business_id, key_hash, key_prefix, name, rate_limit_per_minute,
		       created_at, expires_at, revoked_at, last_used_at
		FROM api_keys WHERE key_prefix = $1 AND revoked_at IS NULL
	`, prefix).Scan(
		&c.ID, &c.BusinessID, &c.KeyHash, &c.KeyPrefix, &c.Name, &c.RateLimitPerMinute,
		&c.CreatedAt, &c.ExpiresAt, &c.RevokedAt, &c.LastUsedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Credential{}, apperror.InvalidAPIKey()
	}
	if err != nil {
		return domain.Credential{}, apperror.Database(err)
	}
	return c, nil
}

// TouchCredential updates last_used_at; callers run this in a detached
// goroutine so it never blocks the request it is authenticating.
func (s *Store) TouchCredential(ctx context.Context, credentialID string) error {
	_, err := s.Pool.Exec(ctx, `UPDATE api_keys SET last_used_at = now() WHERE id = $1`, credentialID)
	return err
}
