package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/payx/ledger/internal/apikey"
	"github.com/payx/ledger/internal/config"
)

const (
	seedAccountCount    = 1000
	seedOpeningBalance  = "100.0000"
	seedCurrency        = "USD"
	seedRateLimit       = 1000
	seedBusinessName    = "Benchmark Business"
	seedBusinessEmail   = "benchmark@payx.local"
)

// main seeds a demo tenant and a batch of funded accounts for local
// development and for cmd/benchmark to drive load against, using CopyFrom
// for the bulk account insert.
func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("unable to connect to database: %v", err)
	}
	defer pool.Close()

	log.Println("--- seeding database ---")

	var existing int
	if err := pool.QueryRow(ctx, "SELECT COUNT(*) FROM accounts").Scan(&existing); err != nil {
		log.Fatal(err)
	}
	if existing >= seedAccountCount {
		log.Printf("database already has %d accounts, skipping", existing)
		return
	}

	businessID := uuid.NewString()
	if _, err := pool.Exec(ctx, `
		INSERT INTO businesses (id, name, email) VALUES ($1, $2, $3)
	`, businessID, seedBusinessName, seedBusinessEmail); err != nil {
		log.Fatalf("creating seed business: %v", err)
	}

	gen, err := apikey.Generate()
	if err != nil {
		log.Fatalf("generating seed api key: %v", err)
	}
	if _, err := pool.Exec(ctx, `
		INSERT INTO api_keys (id, business_id, key_hash, key_prefix, name, rate_limit_per_minute)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, gen.ID, businessID, gen.Hash, gen.Prefix, "seed key", seedRateLimit); err != nil {
		log.Fatalf("creating seed credential: %v", err)
	}

	log.Printf("seed business: %s", businessID)
	log.Printf("seed api key (save this, it is shown once): %s", gen.Key)

	log.Printf("generating %d accounts...", seedAccountCount)
	rows := make([][]any, seedAccountCount)
	now := time.Now()
	for i := range rows {
		rows[i] = []any{uuid.NewString(), businessID, "checking", seedCurrency, seedOpeningBalance, seedOpeningBalance, now, now}
	}

	copied, err := pool.CopyFrom(
		ctx,
		pgx.Identifier{"accounts"},
		[]string{"id", "business_id", "account_type", "currency", "balance", "available_balance", "created_at", "updated_at"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		log.Fatalf("bulk account insert failed: %v", err)
	}

	fmt.Printf("seeded %d accounts for business %s\n", copied, businessID)
}
