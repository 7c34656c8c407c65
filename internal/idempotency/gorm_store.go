package idempotency

import (
	"context"
	"encoding/json"
	"time"

	pkgdb "github.com/smallbiznis/debtledger/pkg/db"
	"gorm.io/gorm"
)

// gormStore is the single-binary fallback when no redis is configured. Rows
// past their expiry read as misses and are lazily overwritten.
type gormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

type keyRow struct {
	Key          string
	StatusCode   int
	ResponseBody []byte
	ExpiresAt    time.Time
}

func (s *gormStore) Get(ctx context.Context, key string) (*CachedResponse, error) {
	var row keyRow
	err := s.db.WithContext(ctx).Raw(
		`SELECT key, status_code, response_body, expires_at
		 FROM idempotency_keys WHERE key = ?`,
		key,
	).Scan(&row).Error
	if err != nil {
		return nil, err
	}
	if row.Key == "" || time.Now().UTC().After(row.ExpiresAt) {
		return nil, nil
	}
	return &CachedResponse{
		StatusCode: row.StatusCode,
		Body:       json.RawMessage(row.ResponseBody),
	}, nil
}

func (s *gormStore) Set(ctx context.Context, key string, resp CachedResponse, ttl time.Duration) error {
	now := time.Now().UTC()
	err := s.db.WithContext(ctx).Exec(
		`INSERT INTO idempotency_keys (key, status_code, response_body, created_at, expires_at)
		 VALUES (?, ?, ?, ?, ?)`,
		key,
		resp.StatusCode,
		[]byte(resp.Body),
		now,
		now.Add(ttl),
	).Error
	if err == nil {
		return nil
	}
	if !pkgdb.IsDuplicateKeyErr(err) {
		return err
	}
	// A live row wins; only a stale one may be replaced.
	return s.db.WithContext(ctx).Exec(
		`UPDATE idempotency_keys
		 SET status_code = ?, response_body = ?, created_at = ?, expires_at = ?
		 WHERE key = ? AND expires_at < ?`,
		resp.StatusCode,
		[]byte(resp.Body),
		now,
		now.Add(ttl),
		key,
		now,
	).Error
}
