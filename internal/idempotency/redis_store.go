package idempotency

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	redis "github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "idem:"

// redisStore keeps cached responses in redis with a native TTL. Preferred in
// multi-replica deployments so every replica sees the same cache.
type redisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) Store {
	return &redisStore{client: client}
}

func (s *redisStore) Get(ctx context.Context, key string) (*CachedResponse, error) {
	raw, err := s.client.Get(ctx, redisKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var resp CachedResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (s *redisStore) Set(ctx context.Context, key string, resp CachedResponse, ttl time.Duration) error {
	raw, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	// NX keeps the first stored response authoritative under concurrent
	// duplicate submissions.
	return s.client.SetNX(ctx, redisKeyPrefix+key, raw, ttl).Err()
}
