// Package ratelimit implements the Rate Gate: a fixed one-minute window
// counter per credential, upserted on every request.
package ratelimit

import (
	"context"
	"log"
	"time"

	"github.com/payx/ledger/internal/apperror"
)

// Store is the subset of internal/postgres.Store the gate depends on.
type Store interface {
	IncrementRateWindow(ctx context.Context, credentialID string, windowStart time.Time) (int, error)
}

// SweepStore is the subset of internal/postgres.Store the sweeper depends
// on.
type SweepStore interface {
	PruneRateWindows(ctx context.Context, olderThan time.Time) error
}

// Gate enforces a per-credential request budget using a fixed,
// wall-clock-truncated one-minute window. This admits up to 2x the
// configured rate around a window boundary — a known trade-off of the
// fixed-window algorithm, accepted as-is rather than replaced with a
// sliding-window or token-bucket scheme.
type Gate struct {
	store Store
}

// New constructs a Gate over the given store.
func New(store Store) *Gate {
	return &Gate{store: store}
}

// Allow increments the current window's counter for credentialID and
// reports whether the request is within rateLimitPerMinute.
func (g *Gate) Allow(ctx context.Context, credentialID string, rateLimitPerMinute int) error {
	windowStart := time.Now().UTC().Truncate(time.Minute)
	count, err := g.store.IncrementRateWindow(ctx, credentialID, windowStart)
	if err != nil {
		return err
	}
	if count > rateLimitPerMinute {
		return apperror.RateLimitExceeded()
	}
	return nil
}

const (
	defaultSweepInterval = 10 * time.Minute
	defaultRetention     = time.Hour
)

// Sweeper periodically deletes rate window rows old enough that no window
// still open could reference them, keeping the table from growing without
// bound. It follows the same explicit Start/Stop pattern as the webhook
// worker rather than a package-level singleton, so it can be started and
// stopped independently in tests.
type Sweeper struct {
	store    SweepStore
	interval time.Duration
	retain   time.Duration
	stop     chan struct{}
	done     chan struct{}
}

// NewSweeper constructs a Sweeper. interval and retain default to 10
// minutes and 1 hour respectively when zero.
func NewSweeper(store SweepStore, interval, retain time.Duration) *Sweeper {
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	if retain <= 0 {
		retain = defaultRetention
	}
	return &Sweeper{
		store:    store,
		interval: interval,
		retain:   retain,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start runs the prune loop until Stop is called or ctx is canceled. It
// returns immediately; the loop runs in its own goroutine.
func (s *Sweeper) Start(ctx context.Context) {
	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-s.stop:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := s.store.PruneRateWindows(ctx, time.Now().Add(-s.retain)); err != nil {
					log.Printf("ratelimit: pruning rate windows: %v", err)
				}
			}
		}
	}()
}

// Stop signals the loop to exit and blocks until it has done so.
func (s *Sweeper) Stop() {
	close(s.stop)
	<-s.done
}
