package paystackwebhook

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jubileehq/jubilee-backend/pkg/redis"
)

const guardScope = "webhook:paystack"

// Guard deduplicates webhook deliveries on the transaction reference using
// Redis SETNX. Paystack retries deliveries for days, so the TTL should
// comfortably outlive the retry window.
type Guard struct {
	store redis.IdempotencyStore
	ttl   time.Duration
}

// NewGuard builds the delivery deduplication guard.
func NewGuard(store redis.IdempotencyStore, ttl time.Duration) (*Guard, error) {
	if store == nil {
		return nil, errors.New("idempotency store is required")
	}
	if ttl < 0 {
		return nil, errors.New("ttl must be non-negative")
	}
	return &Guard{store: store, ttl: ttl}, nil
}

// CheckAndMark returns true when the reference was already handled, and
// otherwise marks it handled for the TTL.
func (g *Guard) CheckAndMark(ctx context.Context, reference string) (bool, error) {
	if reference == "" {
		return false, errors.New("reference is required")
	}
	key := g.store.IdempotencyKey(guardScope, reference)
	set, err := g.store.SetNX(ctx, key, "1", g.ttl)
	if err != nil {
		return false, fmt.Errorf("set idempotency key: %w", err)
	}
	return !set, nil
}

// Release clears the mark so a failed delivery can be retried.
func (g *Guard) Release(ctx context.Context, reference string) error {
	if reference == "" {
		return errors.New("reference is required")
	}
	return g.store.Del(ctx, g.store.IdempotencyKey(guardScope, reference))
}
