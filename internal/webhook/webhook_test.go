package webhook_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/payx/ledger/internal/domain"
	"github.com/payx/ledger/internal/webhook"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignAndVerify(t *testing.T) {
	body := []byte(`{"id":"evt-1"}`)
	sig := webhook.Sign(body, "topsecret")

	assert.Contains(t, sig, "sha256=")
	assert.True(t, webhook.Verify(body, "topsecret", sig))
	assert.False(t, webhook.Verify(body, "wrongsecret", sig))
	assert.False(t, webhook.Verify([]byte("tampered"), "topsecret", sig))
}

// fakeStore drives the worker against an in-memory outbox so the claim,
// deliver, and backoff-scheduling logic is exercised without Postgres.
type fakeStore struct {
	businesses map[string]domain.Business
	outbox     []domain.OutboxEvent
	delivered  []string
	retried    []retryCall
}

type retryCall struct {
	id            string
	attempts      int
	nextAttemptAt time.Time
	exhausted     bool
}

func (f *fakeStore) WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	return fn(nil)
}

func (f *fakeStore) ClaimOutboxBatch(ctx context.Context, tx pgx.Tx, limit int) ([]domain.OutboxEvent, error) {
	var claimable []domain.OutboxEvent
	now := time.Now()
	for _, e := range f.outbox {
		if (e.Status == domain.OutboxPending || e.Status == domain.OutboxRetrying) && !e.NextAttemptAt.After(now) {
			claimable = append(claimable, e)
		}
	}
	if len(claimable) > limit {
		claimable = claimable[:limit]
	}
	return claimable, nil
}

func (f *fakeStore) MarkOutboxDelivered(ctx context.Context, tx pgx.Tx, id string) error {
	f.delivered = append(f.delivered, id)
	for i, e := range f.outbox {
		if e.ID == id {
			f.outbox[i].Status = domain.OutboxDelivered
		}
	}
	return nil
}

func (f *fakeStore) MarkOutboxRetry(ctx context.Context, tx pgx.Tx, id string, attempts int, nextAttemptAt time.Time, lastError string, exhausted bool) error {
	f.retried = append(f.retried, retryCall{id: id, attempts: attempts, nextAttemptAt: nextAttemptAt, exhausted: exhausted})
	for i, e := range f.outbox {
		if e.ID == id {
			f.outbox[i].Attempts = attempts
			f.outbox[i].NextAttemptAt = nextAttemptAt
			if exhausted {
				f.outbox[i].Status = domain.OutboxFailed
			} else {
				f.outbox[i].Status = domain.OutboxRetrying
			}
		}
	}
	return nil
}

func (f *fakeStore) GetBusiness(ctx context.Context, id string) (domain.Business, error) {
	return f.businesses[id], nil
}

func TestWorker_DeliversSuccessfully(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "evt-1", r.Header.Get("X-Webhook-Id"))
		assert.NotEmpty(t, r.Header.Get("X-Webhook-Signature"))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	url := server.URL
	store := &fakeStore{
		businesses: map[string]domain.Business{
			"biz-1": {ID: "biz-1", WebhookURL: &url, WebhookSecret: "shh"},
		},
		outbox: []domain.OutboxEvent{
			{ID: "evt-1", BusinessID: "biz-1", Status: domain.OutboxPending, Payload: []byte(`{}`), MaxAttempts: 5},
		},
	}

	w := webhook.NewWorker(store, 10, time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	w.Start(ctx)
	time.Sleep(50 * time.Millisecond)
	cancel()
	w.Stop()

	require.Contains(t, store.delivered, "evt-1")
}

func TestWorker_NoWebhookURLMarksDelivered(t *testing.T) {
	store := &fakeStore{
		businesses: map[string]domain.Business{
			"biz-1": {ID: "biz-1"},
		},
		outbox: []domain.OutboxEvent{
			{ID: "evt-1", BusinessID: "biz-1", Status: domain.OutboxPending, Payload: []byte(`{}`), MaxAttempts: 5},
		},
	}

	w := webhook.NewWorker(store, 10, time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	w.Start(ctx)
	time.Sleep(20 * time.Millisecond)
	cancel()
	w.Stop()

	assert.Contains(t, store.delivered, "evt-1")
}

func TestWorker_FailedDeliveryRetriesWithBackoff(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	url := server.URL
	store := &fakeStore{
		businesses: map[string]domain.Business{
			"biz-1": {ID: "biz-1", WebhookURL: &url, WebhookSecret: "shh"},
		},
		outbox: []domain.OutboxEvent{
			{ID: "evt-1", BusinessID: "biz-1", Status: domain.OutboxPending, Payload: []byte(`{}`), Attempts: 0, MaxAttempts: 5},
		},
	}

	w := webhook.NewWorker(store, 10, time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	w.Start(ctx)
	time.Sleep(20 * time.Millisecond)
	cancel()
	w.Stop()

	require.Len(t, store.retried, 1)
	assert.Equal(t, 1, store.retried[0].attempts)
	assert.False(t, store.retried[0].exhausted)
	assert.True(t, store.retried[0].nextAttemptAt.After(time.Now().Add(-time.Second)))
}

func TestWorker_ExhaustedAttemptsMarksFailed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	url := server.URL
	store := &fakeStore{
		businesses: map[string]domain.Business{
			"biz-1": {ID: "biz-1", WebhookURL: &url, WebhookSecret: "shh"},
		},
		outbox: []domain.OutboxEvent{
			{ID: "evt-1", BusinessID: "biz-1", Status: domain.OutboxRetrying, Payload: []byte(`{}`), Attempts: 4, MaxAttempts: 5},
		},
	}

	w := webhook.NewWorker(store, 10, time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	w.Start(ctx)
	time.Sleep(20 * time.Millisecond)
	cancel()
	w.Stop()

	require.Len(t, store.retried, 1)
	assert.Equal(t, 5, store.retried[0].attempts)
	assert.True(t, store.retried[0].exhausted)
}
