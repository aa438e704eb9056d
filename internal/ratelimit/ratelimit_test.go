package ratelimit_test

import (
	"context"
	"testing"
	"time"

	"github.com/payx/ledger/internal/apperror"
	"github.com/payx/ledger/internal/ratelimit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	counts map[string]int
}

func (f *fakeStore) IncrementRateWindow(ctx context.Context, credentialID string, windowStart time.Time) (int, error) {
	key := credentialID + "|" + windowStart.String()
	f.counts[key]++
	return f.counts[key], nil
}

func TestAllow_UnderLimit(t *testing.T) {
	store := &fakeStore{counts: map[string]int{}}
	gate := ratelimit.New(store)

	for i := 0; i < 5; i++ {
		require.NoError(t, gate.Allow(context.Background(), "cred-1", 5))
	}
}

func TestAllow_ExceedsLimit(t *testing.T) {
	store := &fakeStore{counts: map[string]int{}}
	gate := ratelimit.New(store)

	for i := 0; i < 3; i++ {
		require.NoError(t, gate.Allow(context.Background(), "cred-1", 3))
	}

	err := gate.Allow(context.Background(), "cred-1", 3)
	require.Error(t, err)
	appErr, ok := err.(*apperror.Error)
	require.True(t, ok)
	assert.Equal(t, apperror.KindRateLimitExceeded, appErr.Kind)
}

func TestAllow_SeparateCredentialsDoNotShareBudget(t *testing.T) {
	store := &fakeStore{counts: map[string]int{}}
	gate := ratelimit.New(store)

	require.NoError(t, gate.Allow(context.Background(), "cred-1", 1))
	require.NoError(t, gate.Allow(context.Background(), "cred-2", 1))
}
