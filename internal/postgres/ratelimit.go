package postgres

import (
	"context"
	"time"

	"github.com/payx/ledger/internal/apperror"
)

// IncrementRateWindow upserts the fixed window starting at windowStart for
// credentialID and returns the post-increment request count. Each minute
// boundary gets its own row, so a crash or restart never loses or
// double-counts a window's state.
func (s *Store) IncrementRateWindow(ctx context.Context, credentialID string, windowStart time.Time) (int, error) {
	var count int
	err := s.Pool.QueryRow(ctx, `
		INSERT INTO rate_limit_windows (api_key_id, window_start, request_count)
		VALUES ($1, $2, 1)
		ON CONFLICT (api_key_id, window_start)
		DO UPDATE SET request_count = rate_limit_windows.request_count + 1
		RETURNING request_count
	`, credentialID, windowStart).Scan(&count)
	if err != nil {
		return 0, apperror.Database(err)
	}
	return count, nil
}

// PruneRateWindows deletes window rows older than olderThan, called
// periodically so the table does not grow unbounded.
func (s *Store) PruneRateWindows(ctx context.Context, olderThan time.Time) error {
	_, err := s.Pool.Exec(ctx, `DELETE FROM rate_limit_windows WHERE window_start < $1`, olderThan)
	if err != nil {
		return apperror.Database(err)
	}
	return nil
}
