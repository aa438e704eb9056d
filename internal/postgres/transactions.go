package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/payx/ledger/internal/apperror"
	"github.com/payx/ledger/internal/domain"
)

// FindTransactionByIdempotencyKey supports the Transaction Engine's
// idempotent-replay check: a prior transaction with the same
// (business, idempotency_key) short-circuits the write path entirely.
func (s *Store) FindTransactionByIdempotencyKey(ctx context.Context, businessID, key string) (domain.Transaction, bool, error) {
	t, err := s.scanTransactionRow(s.Pool.QueryRow(ctx, `
		SELECT id, business_id, idempotency_key, request_fingerprint, type, status,
		       source_account_id, destination_account_id, amount, currency,
		       description, metadata, created_at, completed_at
		FROM transactions WHERE business_id = $1 AND idempotency_key = $2
	`, businessID, key))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Transaction{}, false, nil
	}
	if err != nil {
		return domain.Transaction{}, false, apperror.Database(err)
	}
	return t, true, nil
}

// InsertTransaction records a completed transaction as part of the
// engine's locked critical section. A unique-violation on the idempotency
// index means a concurrent request raced this one to the same key; the
// caller re-reads the winning row via FindTransactionByIdempotencyKey.
func (s *Store) InsertTransaction(ctx context.Context, tx pgx.Tx, t domain.Transaction) (domain.Transaction, error) {
	var metadata any
	if len(t.Metadata) > 0 {
		metadata = t.Metadata
	}

	row := tx.QueryRow(ctx, `
		INSERT INTO transactions (id, business_id, idempotency_key, request_fingerprint, type, status,
		                          source_account_id, destination_account_id, amount, currency,
		                          description, metadata, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, now())
		RETURNING id, business_id, idempotency_key, request_fingerprint, type, status,
		          source_account_id, destination_account_id, amount, currency,
		          description, metadata, created_at, completed_at
	`, t.ID, t.BusinessID, t.IdempotencyKey, t.RequestFingerprint, t.Type, t.Status,
		t.SourceAccountID, t.DestinationAccountID, t.Amount, t.Currency,
		t.Description, metadata)

	out, err := s.scanTransactionRow(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.Transaction{}, apperror.IdempotencyConflict("")
		}
		return domain.Transaction{}, apperror.Database(err)
	}
	return out, nil
}

// GetTransaction reads a transaction by id.
func (s *Store) GetTransaction(ctx context.Context, id string) (domain.Transaction, error) {
	t, err := s.scanTransactionRow(s.Pool.QueryRow(ctx, `
		SELECT id, business_id, idempotency_key, request_fingerprint, type, status,
		       source_account_id, destination_account_id, amount, currency,
		       description, metadata, created_at, completed_at
		FROM transactions WHERE id = $1
	`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Transaction{}, apperror.TransactionNotFound(id)
	}
	if err != nil {
		return domain.Transaction{}, apperror.Database(err)
	}
	return t, nil
}

// ListTransactionsByAccount returns a page of transactions touching an
// account, newest first, for the GET /accounts/{id}/transactions cursor.
func (s *Store) ListTransactionsByAccount(ctx context.Context, accountID string, before string, limit int64) ([]domain.Transaction, error) {
	var rows pgx.Rows
	var err error
	if before != "" {
		rows, err = s.Pool.Query(ctx, `
			SELECT id, business_id, idempotency_key, request_fingerprint, type, status,
			       source_account_id, destination_account_id, amount, currency,
			       description, metadata, created_at, completed_at
			FROM transactions
			WHERE (source_account_id = $1 OR destination_account_id = $1)
			  AND (created_at, id) < (SELECT created_at, id FROM transactions WHERE id = $2)
			ORDER BY created_at DESC, id DESC LIMIT $3
		`, accountID, before, limit)
	} else {
		rows, err = s.Pool.Query(ctx, `
			SELECT id, business_id, idempotency_key, request_fingerprint, type, status,
			       source_account_id, destination_account_id, amount, currency,
			       description, metadata, created_at, completed_at
			FROM transactions
			WHERE source_account_id = $1 OR destination_account_id = $1
			ORDER BY created_at DESC, id DESC LIMIT $2
		`, accountID, limit)
	}
	if err != nil {
		return nil, apperror.Database(err)
	}
	defer rows.Close()

	var out []domain.Transaction
	for rows.Next() {
		t, err := s.scanTransactionRow(rows)
		if err != nil {
			return nil, apperror.Database(err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// InsertLedgerEntry records one leg of a completed transaction within the
// engine's locked critical section.
func (s *Store) InsertLedgerEntry(ctx context.Context, tx pgx.Tx, e domain.LedgerEntry) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO ledger_entries (id, transaction_id, account_id, entry_type, amount, balance_after)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, e.ID, e.TransactionID, e.AccountID, e.EntryType, e.Amount, e.BalanceAfter)
	if err != nil {
		return apperror.Database(err)
	}
	return nil
}

// ListLedgerEntriesByAccount returns the append-only entries for an
// account, newest first.
func (s *Store) ListLedgerEntriesByAccount(ctx context.Context, accountID string, limit, offset int64) ([]domain.LedgerEntry, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT id, transaction_id, account_id, entry_type, amount, balance_after, created_at
		FROM ledger_entries WHERE account_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3
	`, accountID, limit, offset)
	if err != nil {
		return nil, apperror.Database(err)
	}
	defer rows.Close()

	var out []domain.LedgerEntry
	for rows.Next() {
		var e domain.LedgerEntry
		if err := rows.Scan(&e.ID, &e.TransactionID, &e.AccountID, &e.EntryType, &e.Amount, &e.BalanceAfter, &e.CreatedAt); err != nil {
			return nil, apperror.Database(err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// rowScanner is satisfied by both pgx.Row and pgx.Rows, letting a single
// scan routine serve point lookups and list queries alike.
type rowScanner interface {
	Scan(dest ...any) error
}

func (s *Store) scanTransactionRow(row rowScanner) (domain.Transaction, error) {
	var t domain.Transaction
	var metadata []byte
	err := row.Scan(
		&t.ID, &t.BusinessID, &t.IdempotencyKey, &t.RequestFingerprint, &t.Type, &t.Status,
		&t.SourceAccountID, &t.DestinationAccountID, &t.Amount, &t.Currency,
		&t.Description, &metadata, &t.CreatedAt, &t.CompletedAt,
	)
	if err != nil {
		return domain.Transaction{}, err
	}
	if len(metadata) > 0 {
		t.Metadata = metadata
	}
	return t, nil
}
