package main

import (
	"context"
	"log"
	"os"

	"github.com/payx/ledger/internal/config"
	"github.com/payx/ledger/internal/postgres"
)

func main() {
	command := "up"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	if err := postgres.Migrate(context.Background(), cfg.DatabaseURL, command); err != nil {
		log.Fatalf("migrate %s: %v", command, err)
	}
	log.Printf("migrate %s: ok", command)
}
