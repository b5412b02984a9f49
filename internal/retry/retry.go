// Package retry wraps one unit of remote work with bounded exponential
// backoff. Quota-exhausted errors abort immediately; everything else is
// treated as transient.
package retry

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/brightreach/campaign-refresh/internal/budget"
)

const maxJitter = 500 * time.Millisecond

// Do runs fn up to attempts times with backoff base*2^i plus jitter between
// attempts, returning the last error once attempts are exhausted. A
// resource-limit classified error is returned at once, wrapped with
// budget.ErrResourceLimit, without consuming remaining attempts.
func Do(ctx context.Context, attempts int, base time.Duration, fn func(context.Context) error) error {
	if attempts < 1 {
		attempts = 1
	}
	var lastErr error
	for i := 0; i < attempts; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if budget.IsResourceLimit(lastErr) {
			return fmt.Errorf("%w: %v", budget.ErrResourceLimit, lastErr)
		}
		if i == attempts-1 {
			break
		}
		sleep := time.Duration(1<<i)*base + time.Duration(rand.Int63n(int64(maxJitter)))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(sleep):
		}
	}
	return lastErr
}
