package payments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/avoronkov/laptopshop-backend/pkg/redis"
)

// IdempotencyGuard deduplicates gateway notifications by payment id. The
// marker is released when handling fails so the gateway's retry gets through.
type IdempotencyGuard struct {
	store redis.IdempotencyStore
	ttl   time.Duration
	scope string
}

// NewIdempotencyGuard builds a guard over the provided store.
func NewIdempotencyGuard(store redis.IdempotencyStore, ttl time.Duration, scope string) (*IdempotencyGuard, error) {
	if store == nil {
		return nil, errors.New("idempotency store is required")
	}
	if ttl < 0 {
		return nil, errors.New("ttl must be non-negative")
	}
	if scope == "" {
		return nil, errors.New("scope is required")
	}
	return &IdempotencyGuard{
		store: store,
		ttl:   ttl,
		scope: scope,
	}, nil
}

// CheckAndMark marks the payment id as seen. Returns true when the id was
// already marked, i.e. this notification is a duplicate.
func (g *IdempotencyGuard) CheckAndMark(ctx context.Context, paymentID string) (bool, error) {
	if paymentID == "" {
		return false, errors.New("payment id is required")
	}
	key := g.store.IdempotencyKey(g.scope, paymentID)
	set, err := g.store.SetNX(ctx, key, "1", g.ttl)
	if err != nil {
		return false, fmt.Errorf("set idempotency key: %w", err)
	}
	return !set, nil
}

// Delete releases the marker for the payment id.
func (g *IdempotencyGuard) Delete(ctx context.Context, paymentID string) error {
	if paymentID == "" {
		return errors.New("payment id is required")
	}
	key := g.store.IdempotencyKey(g.scope, paymentID)
	return g.store.Del(ctx, key)
}
