package sqlstore

import (
	"context"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// storeRetryBackoff is the unit of withRetry's retry budget: withRetry
// spends at most five times this long retrying a single transient store
// contention error before giving up and surfacing it.
const storeRetryBackoff = 1 * time.Second

// withRetry retries op against transient "database is locked"/serialization
// failures, the only store errors the engine treats as retryable rather
// than fatal (spec.md §7 item 6 distinguishes store-failure from
// transient contention on the same connection). Permanent errors,
// including sql.ErrNoRows, are never retried.
func withRetry(ctx context.Context, op func() error) error {
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		if err := op(); err != nil {
			if isTransient(err) {
				return struct{}{}, err
			}
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, nil
	}, backoff.WithMaxElapsedTime(storeRetryBackoff*5), backoff.WithBackOff(backoff.NewExponentialBackOff()))
	return err
}

func isTransient(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "SQLITE_BUSY") ||
		strings.Contains(msg, "could not serialize access") ||
		strings.Contains(msg, "deadlock detected")
}
