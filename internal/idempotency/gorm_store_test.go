package idempotency

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

func newStoreFixture(t *testing.T) (*gorm.DB, Store) {
	db, err := gorm.Open(sqlite.Open("file:idemstore_"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	db.Exec(`CREATE TABLE IF NOT EXISTS idempotency_keys (
		key TEXT PRIMARY KEY,
		status_code INTEGER NOT NULL,
		response_body BLOB NOT NULL,
		created_at TIMESTAMP NOT NULL,
		expires_at TIMESTAMP NOT NULL
	)`)

	return db, NewGormStore(db)
}

func TestGormStore(t *testing.T) {
	_, store := newStoreFixture(t)
	ctx := context.Background()

	t.Run("RoundTrip", func(t *testing.T) {
		body := json.RawMessage(`{"payment":{"id":"1"}}`)
		err := store.Set(ctx, "key-roundtrip", CachedResponse{StatusCode: 201, Body: body}, time.Hour)
		require.NoError(t, err)

		got, err := store.Get(ctx, "key-roundtrip")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, 201, got.StatusCode)
		assert.JSONEq(t, string(body), string(got.Body))
	})

	t.Run("MissIsNilNil", func(t *testing.T) {
		got, err := store.Get(ctx, "never-written")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("ExpiredReadsAsMiss", func(t *testing.T) {
		err := store.Set(ctx, "key-expired", CachedResponse{StatusCode: 201, Body: []byte(`{}`)}, -time.Minute)
		require.NoError(t, err)

		got, err := store.Get(ctx, "key-expired")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("LiveRowWins", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, "key-live", CachedResponse{StatusCode: 201, Body: []byte(`{"first":true}`)}, time.Hour))
		// Second writer loses while the first row is still live.
		require.NoError(t, store.Set(ctx, "key-live", CachedResponse{StatusCode: 201, Body: []byte(`{"second":true}`)}, time.Hour))

		got, err := store.Get(ctx, "key-live")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.JSONEq(t, `{"first":true}`, string(got.Body))
	})

	t.Run("StaleRowReplaced", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, "key-stale", CachedResponse{StatusCode: 201, Body: []byte(`{"first":true}`)}, -time.Minute))
		require.NoError(t, store.Set(ctx, "key-stale", CachedResponse{StatusCode: 201, Body: []byte(`{"second":true}`)}, time.Hour))

		got, err := store.Get(ctx, "key-stale")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.JSONEq(t, `{"second":true}`, string(got.Body))
	})
}

func TestValidateKey(t *testing.T) {
	assert.NoError(t, ValidateKey("7b4260a1-1b1a-4b56-9c53-1a14e9d0b001"))
	assert.ErrorIs(t, ValidateKey("not-a-uuid"), ErrInvalidKey)
	assert.ErrorIs(t, ValidateKey(""), ErrInvalidKey)
}

func TestGateDegradesToMissOnStoreFailure(t *testing.T) {
	// No idempotency_keys table at all: every read errors.
	db, err := gorm.Open(sqlite.Open("file:idembroken_"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	gate := NewGate(NewGormStore(db), zaptest.NewLogger(t), time.Hour)
	cached, ok := gate.Lookup(context.Background(), "7b4260a1-1b1a-4b56-9c53-1a14e9d0b001")
	assert.False(t, ok)
	assert.Nil(t, cached)

	// Remember is best-effort and must not panic either.
	gate.Remember(context.Background(), "7b4260a1-1b1a-4b56-9c53-1a14e9d0b001", 201, []byte(`{}`))
}
