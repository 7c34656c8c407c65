// Package idempotency guarantees at-most-once payment submission. The first
// request bearing a key executes and caches its response; replays within the
// TTL get the stored response verbatim, whether or not the body matches.
package idempotency

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/smallbiznis/debtledger/internal/fault"
	"go.uber.org/zap"
)

// DefaultTTL bounds how long a cached response replays.
const DefaultTTL = 24 * time.Hour

var ErrInvalidKey = fault.Validation("idempotency key must be a uuid")

type CachedResponse struct {
	StatusCode int             `json:"status_code"`
	Body       json.RawMessage `json:"body"`
}

// Store persists cached responses. Get returns (nil, nil) on miss or expiry.
type Store interface {
	Get(ctx context.Context, key string) (*CachedResponse, error)
	Set(ctx context.Context, key string, resp CachedResponse, ttl time.Duration) error
}

type Gate struct {
	store Store
	log   *zap.Logger
	ttl   time.Duration
}

func NewGate(store Store, log *zap.Logger, ttl time.Duration) *Gate {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Gate{
		store: store,
		log:   log.Named("idempotency.gate"),
		ttl:   ttl,
	}
}

// ValidateKey checks the key format only; origin is the caller's concern.
func ValidateKey(key string) error {
	if _, err := uuid.Parse(key); err != nil {
		return ErrInvalidKey
	}
	return nil
}

// Lookup returns the cached response for key, if any. A storage failure here
// degrades to a miss: re-executing risks a duplicate, which the unique index
// on payments.idempotency_key turns into a Conflict for the loser.
func (g *Gate) Lookup(ctx context.Context, key string) (*CachedResponse, bool) {
	resp, err := g.store.Get(ctx, key)
	if err != nil {
		g.log.Warn("idempotency lookup failed, treating as miss",
			zap.String("key", key),
			zap.Error(err),
		)
		return nil, false
	}
	return resp, resp != nil
}

// Remember stores the response produced by the first execution. Best-effort:
// a failure is logged, never surfaced, because the mutation has already
// committed.
func (g *Gate) Remember(ctx context.Context, key string, statusCode int, body []byte) {
	err := g.store.Set(ctx, key, CachedResponse{
		StatusCode: statusCode,
		Body:       body,
	}, g.ttl)
	if err != nil {
		g.log.Warn("failed to cache idempotent response",
			zap.String("key", key),
			zap.Error(err),
		)
	}
}
