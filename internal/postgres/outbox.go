package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/payx/ledger/internal/apperror"
	"github.com/payx/ledger/internal/domain"
)

// InsertOutboxEvent records a webhook event in the same transaction as the
// ledger write it describes, giving at-least-once delivery without a
// separate message broker.
func (s *Store) InsertOutboxEvent(ctx context.Context, tx pgx.Tx, e domain.OutboxEvent) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO webhook_outbox (id, business_id, event_type, payload, status, max_attempts, next_attempt_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, e.ID, e.BusinessID, e.EventType, e.Payload, e.Status, e.MaxAttempts, e.NextAttemptAt)
	if err != nil {
		return apperror.Database(err)
	}
	return nil
}

// ClaimOutboxBatch locks and returns up to limit claimable rows (pending or
// retrying, due now) using SKIP LOCKED so multiple worker instances never
// double-deliver the same event. Callers must commit or roll back tx to
// release the locks.
func (s *Store) ClaimOutboxBatch(ctx context.Context, tx pgx.Tx, limit int) ([]domain.OutboxEvent, error) {
	rows, err := tx.Query(ctx, `
		SELECT id, business_id, event_type, payload, status, attempts, max_attempts,
		       next_attempt_at, last_error, created_at, processed_at
		FROM webhook_outbox
		WHERE status IN ('pending', 'retrying') AND next_attempt_at <= now()
		ORDER BY next_attempt_at
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`, limit)
	if err != nil {
		return nil, apperror.Database(err)
	}
	defer rows.Close()

	var out []domain.OutboxEvent
	for rows.Next() {
		var e domain.OutboxEvent
		if err := rows.Scan(&e.ID, &e.BusinessID, &e.EventType, &e.Payload, &e.Status, &e.Attempts,
			&e.MaxAttempts, &e.NextAttemptAt, &e.LastError, &e.CreatedAt, &e.ProcessedAt); err != nil {
			return nil, apperror.Database(err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// MarkOutboxDelivered closes out a successfully delivered event.
func (s *Store) MarkOutboxDelivered(ctx context.Context, tx pgx.Tx, id string) error {
	_, err := tx.Exec(ctx, `
		UPDATE webhook_outbox SET status = 'delivered', processed_at = now() WHERE id = $1
	`, id)
	if err != nil {
		return apperror.Database(err)
	}
	return nil
}

// MarkOutboxRetry schedules another attempt after a failed delivery, or
// marks the event permanently failed once max_attempts is reached.
func (s *Store) MarkOutboxRetry(ctx context.Context, tx pgx.Tx, id string, attempts int, nextAttemptAt time.Time, lastError string, exhausted bool) error {
	status := "retrying"
	if exhausted {
		status = "failed"
	}
	_, err := tx.Exec(ctx, `
		UPDATE webhook_outbox
		SET status = $2, attempts = $3, next_attempt_at = $4, last_error = $5,
		    processed_at = CASE WHEN $2 = 'failed' THEN now() ELSE processed_at END
		WHERE id = $1
	`, id, status, attempts, nextAttemptAt, lastError)
	if err != nil {
		return apperror.Database(err)
	}
	return nil
}

// GetOutboxEvent reads a single outbox row by id, without tenant scoping.
func (s *Store) GetOutboxEvent(ctx context.Context, id string) (domain.OutboxEvent, error) {
	var e domain.OutboxEvent
	err := s.Pool.QueryRow(ctx, `
		SELECT id, business_id, event_type, payload, status, attempts, max_attempts,
		       next_attempt_at, last_error, created_at, processed_at
		FROM webhook_outbox WHERE id = $1
	`, id).Scan(&e.ID, &e.BusinessID, &e.EventType, &e.Payload, &e.Status, &e.Attempts,
		&e.MaxAttempts, &e.NextAttemptAt, &e.LastError, &e.CreatedAt, &e.ProcessedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.OutboxEvent{}, apperror.NotFound("webhook delivery not found")
	}
	if err != nil {
		return domain.OutboxEvent{}, apperror.Database(err)
	}
	return e, nil
}

// ListOutboxEventsByBusiness returns a page of webhook deliveries for a
// tenant, newest first.
func (s *Store) ListOutboxEventsByBusiness(ctx context.Context, businessID string, limit, offset int64) ([]domain.OutboxEvent, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT id, business_id, event_type, payload, status, attempts, max_attempts,
		       next_attempt_at, last_error, created_at, processed_at
		FROM webhook_outbox WHERE business_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3
	`, businessID, limit, offset)
	if err != nil {
		return nil, apperror.Database(err)
	}
	defer rows.Close()

	var out []domain.OutboxEvent
	for rows.Next() {
		var e domain.OutboxEvent
		if err := rows.Scan(&e.ID, &e.BusinessID, &e.EventType, &e.Payload, &e.Status, &e.Attempts,
			&e.MaxAttempts, &e.NextAttemptAt, &e.LastError, &e.CreatedAt, &e.ProcessedAt); err != nil {
			return nil, apperror.Database(err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// ListOutboxEventsByBusinessStatus returns a page of webhook deliveries
// for a tenant filtered to a single status, newest first.
func (s *Store) ListOutboxEventsByBusinessStatus(ctx context.Context, businessID string, status domain.OutboxStatus, limit, offset int64) ([]domain.OutboxEvent, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT id, business_id, event_type, payload, status, attempts, max_attempts,
		       next_attempt_at, last_error, created_at, processed_at
		FROM webhook_outbox WHERE business_id = $1 AND status = $2 ORDER BY created_at DESC LIMIT $3 OFFSET $4
	`, businessID, status, limit, offset)
	if err != nil {
		return nil, apperror.Database(err)
	}
	defer rows.Close()

	var out []domain.OutboxEvent
	for rows.Next() {
		var e domain.OutboxEvent
		if err := rows.Scan(&e.ID, &e.BusinessID, &e.EventType, &e.Payload, &e.Status, &e.Attempts,
			&e.MaxAttempts, &e.NextAttemptAt, &e.LastError, &e.CreatedAt, &e.ProcessedAt); err != nil {
			return nil, apperror.Database(err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// GetOutboxEventForBusiness reads a single outbox row scoped to a tenant,
// used by the single-delivery read endpoint.
func (s *Store) GetOutboxEventForBusiness(ctx context.Context, businessID, id string) (domain.OutboxEvent, error) {
	var e domain.OutboxEvent
	err := s.Pool.QueryRow(ctx, `
		SELECT id, business_id, event_type, payload, status, attempts, max_attempts,
		       next_attempt_at, last_error, created_at, processed_at
		FROM webhook_outbox WHERE id = $1 AND business_id = $2
	`, id, businessID).Scan(&e.ID, &e.BusinessID, &e.EventType, &e.Payload, &e.Status, &e.Attempts,
		&e.MaxAttempts, &e.NextAttemptAt, &e.LastError, &e.CreatedAt, &e.ProcessedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.OutboxEvent{}, apperror.NotFound("webhook delivery not found")
	}
	if err != nil {
		return domain.OutboxEvent{}, apperror.Database(err)
	}
	return e, nil
}

// RearmOutboxEvent resets a failed delivery to pending so the worker
// picks it up on its next pass. It is a no-op for any delivery not
// currently in failed status.
func (s *Store) RearmOutboxEvent(ctx context.Context, businessID, id string) (domain.OutboxEvent, error) {
	var e domain.OutboxEvent
	err := s.Pool.QueryRow(ctx, `
		UPDATE webhook_outbox
		SET status = 'pending', attempts = 0, next_attempt_at = now(), last_error = NULL
		WHERE id = $1 AND business_id = $2 AND status = 'failed'
		RETURNING id, business_id, event_type, payload, status, attempts, max_attempts,
		          next_attempt_at, last_error, created_at, processed_at
	`, id, businessID).Scan(&e.ID, &e.BusinessID, &e.EventType, &e.Payload, &e.Status, &e.Attempts,
		&e.MaxAttempts, &e.NextAttemptAt, &e.LastError, &e.CreatedAt, &e.ProcessedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.OutboxEvent{}, apperror.NotFound("webhook delivery not found or not in failed status")
	}
	if err != nil {
		return domain.OutboxEvent{}, apperror.Database(err)
	}
	return e, nil
}

// WithTx runs fn inside a new transaction at the database's default
// isolation level, committing on success and rolling back on any error or
// panic.
func (s *Store) WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return apperror.Database(err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return apperror.Database(err)
	}
	return nil
}
