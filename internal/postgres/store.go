// Package postgres is the Ledger Store: it owns the service's connection
// pool, opens its database transactions, and holds every SQL query the
// service runs. internal/ledger and internal/webhook import pgx only for the
// pgx.Tx handle that WithTx passes them; cmd/seeder and cmd/benchmark open
// their own pgxpool connections.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store wraps a pgx connection pool shared by request handlers and the
// webhook worker.
type Store struct {
	Pool *pgxpool.Pool
}

// Open creates and verifies a connection pool sized per config.
func Open(ctx context.Context, databaseURL string, maxConns int32) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("postgres: parsing DATABASE_URL: %w", err)
	}
	cfg.MaxConns = maxConns

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres: creating connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: pinging database: %w", err)
	}

	return &Store{Pool: pool}, nil
}

// Close releases the pool.
func (s *Store) Close() {
	s.Pool.Close()
}

// Ping is used by the /ready handler.
func (s *Store) Ping(ctx context.Context) error {
	return s.Pool.Ping(ctx)
}

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx, letting read methods
// run against either a held transaction or the bare pool.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}
