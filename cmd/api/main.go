package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/payx/ledger/internal/api"
	"github.com/payx/ledger/internal/config"
	"github.com/payx/ledger/internal/ledger"
	"github.com/payx/ledger/internal/postgres"
	"github.com/payx/ledger/internal/ratelimit"
	"github.com/payx/ledger/internal/webhook"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	store, err := postgres.Open(ctx, cfg.DatabaseURL, cfg.DBMaxConnections)
	if err != nil {
		log.Fatalf("unable to connect to database: %v", err)
	}
	defer store.Close()

	engine := ledger.New(store)
	gate := ratelimit.New(store)
	handler := api.NewHandler(store, engine, cfg.RateLimitPerMinute)
	router := api.NewRouter(handler, store, gate)

	// Background loops get their own context, cancelled only after their
	// explicit Stop() calls below, so they never race srv.Shutdown on the
	// same signal cancellation.
	bgCtx, cancelBG := context.WithCancel(context.Background())
	defer cancelBG()

	worker := webhook.NewWorker(store, 100, time.Second)
	worker.Start(bgCtx)

	sweeper := ratelimit.NewSweeper(store, 0, 0)
	sweeper.Start(bgCtx)

	srv := &http.Server{
		Addr:    cfg.BindAddress,
		Handler: router,
	}

	go func() {
		log.Printf("listening on %s", cfg.BindAddress)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	worker.Stop()
	sweeper.Stop()
	cancelBG()
	log.Println("shutdown complete")
}
