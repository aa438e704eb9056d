package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/payx/ledger/internal/apperror"
	"github.com/payx/ledger/internal/domain"
	"github.com/payx/ledger/internal/money"
)

// CreateAccount inserts a new account, optionally seeded with a non-zero
// opening balance (used by POST /v1/accounts and its initial_balance).
func (s *Store) CreateAccount(ctx context.Context, id, businessID, accountType, currency string, opening money.Money) (domain.Account, error) {
	return s.createAccount(ctx, s.Pool, id, businessID, accountType, currency, opening)
}

func (s *Store) createAccount(ctx context.Context, db DBTX, id, businessID, accountType, currency string, opening money.Money) (domain.Account, error) {
	var a domain.Account
	var balance, available string
	err := db.QueryRow(ctx, `
		INSERT INTO accounts (id, business_id, account_type, currency, balance, available_balance)
		VALUES ($1, $2, $3, $4, $5, $5)
		RETURNING id, business_id, account_type, currency, balance, available_balance, version, created_at, updated_at
	`, id, businessID, accountType, currency, opening.String()).Scan(
		&a.ID, &a.BusinessID, &a.AccountType, &a.Currency, &balance, &available, &a.Version, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return domain.Account{}, apperror.Database(err)
	}
	bal, err := money.Parse(balance, a.Currency)
	if err != nil {
		return domain.Account{}, err
	}
	avail, err := money.Parse(available, a.Currency)
	if err != nil {
		return domain.Account{}, err
	}
	a.Balance, a.AvailableBalance = bal, avail
	return a, nil
}

// GetAccount reads an account without locking, for GET /accounts/{id}.
func (s *Store) GetAccount(ctx context.Context, id string) (domain.Account, error) {
	return s.getAccount(ctx, s.Pool, id)
}

func (s *Store) getAccount(ctx context.Context, db DBTX, id string) (domain.Account, error) {
	var a domain.Account
	var balance, available string
	err := db.QueryRow(ctx, `
		SELECT id, business_id, account_type, currency, balance, available_balance, version, created_at, updated_at
		FROM accounts WHERE id = $1
	`, id).Scan(&a.ID, &a.BusinessID, &a.AccountType, &a.Currency, &balance, &available, &a.Version, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Account{}, apperror.AccountNotFound(id)
	}
	if err != nil {
		return domain.Account{}, apperror.Database(err)
	}
	bal, err := money.Parse(balance, a.Currency)
	if err != nil {
		return domain.Account{}, err
	}
	avail, err := money.Parse(available, a.Currency)
	if err != nil {
		return domain.Account{}, err
	}
	a.Balance, a.AvailableBalance = bal, avail
	return a, nil
}

// ListAccountsByBusiness returns a page of accounts belonging to a tenant.
func (s *Store) ListAccountsByBusiness(ctx context.Context, businessID string, limit, offset int64) ([]domain.Account, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT id, business_id, account_type, currency, balance, available_balance, version, created_at, updated_at
		FROM accounts WHERE business_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3
	`, businessID, limit, offset)
	if err != nil {
		return nil, apperror.Database(err)
	}
	defer rows.Close()

	var out []domain.Account
	for rows.Next() {
		var a domain.Account
		var balance, available string
		if err := rows.Scan(&a.ID, &a.BusinessID, &a.AccountType, &a.Currency, &balance, &available, &a.Version, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, apperror.Database(err)
		}
		bal, err := money.Parse(balance, a.Currency)
		if err != nil {
			return nil, err
		}
		avail, err := money.Parse(available, a.Currency)
		if err != nil {
			return nil, err
		}
		a.Balance, a.AvailableBalance = bal, avail
		out = append(out, a)
	}
	return out, rows.Err()
}

// LockAccount reads an account for update within tx, blocking until any
// concurrently held lock on the same row is released. Callers must lock
// every account touched by a transaction in a globally consistent order
// (sorted by ID) to avoid deadlocks across concurrent transfers.
func (s *Store) LockAccount(ctx context.Context, tx pgx.Tx, id string) (domain.Account, error) {
	var a domain.Account
	var balance, available string
	err := tx.QueryRow(ctx, `
		SELECT id, business_id, account_type, currency, balance, available_balance, version, created_at, updated_at
		FROM accounts WHERE id = $1 FOR UPDATE
	`, id).Scan(&a.ID, &a.BusinessID, &a.AccountType, &a.Currency, &balance, &available, &a.Version, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Account{}, apperror.AccountNotFound(id)
	}
	if err != nil {
		return domain.Account{}, apperror.Database(err)
	}
	bal, err := money.Parse(balance, a.Currency)
	if err != nil {
		return domain.Account{}, err
	}
	avail, err := money.Parse(available, a.Currency)
	if err != nil {
		return domain.Account{}, err
	}
	a.Balance, a.AvailableBalance = bal, avail
	return a, nil
}

// UpdateBalance writes a new balance for an account already locked by the
// caller's transaction, bumping its optimistic version counter.
func (s *Store) UpdateBalance(ctx context.Context, tx pgx.Tx, accountID string, newBalance money.Money) error {
	_, err := tx.Exec(ctx, `
		UPDATE accounts
		SET balance = $2, available_balance = $2, version = version + 1, updated_at = now()
		WHERE id = $1
	`, accountID, newBalance.String())
	if err != nil {
		return apperror.Database(err)
	}
	return nil
}
