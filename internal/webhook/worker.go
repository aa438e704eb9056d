package webhook

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/payx/ledger/internal/domain"
)

const (
	defaultBatchSize    = 100
	defaultPollInterval = time.Second
	deliveryTimeout     = 10 * time.Second
	maxBackoff          = time.Hour
)

// Store is the subset of internal/postgres.Store the worker depends on.
type Store interface {
	WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error
	ClaimOutboxBatch(ctx context.Context, tx pgx.Tx, limit int) ([]domain.OutboxEvent, error)
	MarkOutboxDelivered(ctx context.Context, tx pgx.Tx, id string) error
	MarkOutboxRetry(ctx context.Context, tx pgx.Tx, id string, attempts int, nextAttemptAt time.Time, lastError string, exhausted bool) error
	GetBusiness(ctx context.Context, id string) (domain.Business, error)
}

// Worker drains the transactional outbox, signs and delivers events to
// each tenant's configured webhook endpoint, and schedules exponential
// backoff with jitter on failure. It is constructed with an explicit
// Start/Stop pair rather than a package-level singleton, so it can be run
// against an ephemeral schema in tests.
type Worker struct {
	store        Store
	client       *http.Client
	batchSize    int
	pollInterval time.Duration
	stop         chan struct{}
	done         chan struct{}
}

// NewWorker constructs a Worker. batchSize and pollInterval default to
// 100 and 1s respectively when zero.
func NewWorker(store Store, batchSize int, pollInterval time.Duration) *Worker {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}
	return &Worker{
		store:        store,
		client:       &http.Client{Timeout: deliveryTimeout},
		batchSize:    batchSize,
		pollInterval: pollInterval,
		stop:         make(chan struct{}),
		done:         make(chan struct{}),
	}
}

// Start launches the claim-deliver-backoff loop in its own goroutine and
// returns immediately. The loop runs until Stop is called or ctx is
// canceled; Stop is the call that waits for it to exit.
func (w *Worker) Start(ctx context.Context) {
	go func() {
		defer close(w.done)
		for {
			select {
			case <-w.stop:
				return
			case <-ctx.Done():
				return
			default:
			}

			claimed, err := w.processBatch(ctx)
			if err != nil {
				log.Printf("webhook: batch processing error: %v", err)
			}
			if claimed == 0 {
				select {
				case <-time.After(w.pollInterval):
				case <-w.stop:
					return
				case <-ctx.Done():
					return
				}
			}
		}
	}()
}

// Stop signals the loop to exit at its next iteration boundary and blocks
// until it has done so.
func (w *Worker) Stop() {
	close(w.stop)
	<-w.done
}

func (w *Worker) processBatch(ctx context.Context) (int, error) {
	var claimed int
	err := w.store.WithTx(ctx, func(tx pgx.Tx) error {
		events, err := w.store.ClaimOutboxBatch(ctx, tx, w.batchSize)
		if err != nil {
			return err
		}
		claimed = len(events)

		for _, e := range events {
			w.deliverOne(ctx, tx, e)
		}
		return nil
	})
	return claimed, err
}

func (w *Worker) deliverOne(ctx context.Context, tx pgx.Tx, e domain.OutboxEvent) {
	business, err := w.store.GetBusiness(ctx, e.BusinessID)
	if err != nil {
		w.scheduleRetry(ctx, tx, e, fmt.Sprintf("business lookup failed: %v", err))
		return
	}
	if business.WebhookURL == nil || *business.WebhookURL == "" {
		if err := w.store.MarkOutboxDelivered(ctx, tx, e.ID); err != nil {
			log.Printf("webhook: marking no-op delivered for %s: %v", e.ID, err)
		}
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, *business.WebhookURL, bytes.NewReader(e.Payload))
	if err != nil {
		w.scheduleRetry(ctx, tx, e, err.Error())
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Webhook-Id", e.ID)
	req.Header.Set("X-Webhook-Timestamp", strconv.FormatInt(time.Now().Unix(), 10))
	req.Header.Set("X-Webhook-Signature", Sign(e.Payload, business.WebhookSecret))

	resp, err := w.client.Do(req)
	if err != nil {
		w.scheduleRetry(ctx, tx, e, err.Error())
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		w.scheduleRetry(ctx, tx, e, fmt.Sprintf("webhook delivery failed: %d", resp.StatusCode))
		return
	}

	if err := w.store.MarkOutboxDelivered(ctx, tx, e.ID); err != nil {
		log.Printf("webhook: marking delivered for %s: %v", e.ID, err)
	}
}

// scheduleRetry backs off 2^attempts seconds plus up to 1 second of
// jitter, doubling capped at 1 hour. Once attempts reaches max_attempts
// the row is marked permanently failed.
func (w *Worker) scheduleRetry(ctx context.Context, tx pgx.Tx, e domain.OutboxEvent, lastError string) {
	attempts := e.Attempts + 1
	exhausted := attempts >= e.MaxAttempts

	backoff := backoffDuration(attempts)
	nextAttemptAt := time.Now().Add(backoff)

	if err := w.store.MarkOutboxRetry(ctx, tx, e.ID, attempts, nextAttemptAt, lastError, exhausted); err != nil {
		log.Printf("webhook: scheduling retry for %s: %v", e.ID, err)
	}
}

func backoffDuration(attempts int) time.Duration {
	backoff := time.Duration(1) << uint(attempts) * time.Second
	if backoff > maxBackoff {
		backoff = maxBackoff
	}
	jitter := time.Duration(rand.Int63n(int64(time.Second)))
	return backoff + jitter
}
