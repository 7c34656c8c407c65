package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	auditdomain "github.com/smallbiznis/debtledger/internal/audit/domain"
	"github.com/smallbiznis/debtledger/internal/audit/repository"
	"github.com/smallbiznis/debtledger/internal/tenantctx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

func newAuditFixture(t *testing.T) (auditdomain.Service, *snowflake.Node) {
	db, err := gorm.Open(sqlite.Open("file:auditsvc_"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	db.Exec(`CREATE TABLE IF NOT EXISTS audit_logs (
		id BIGINT PRIMARY KEY,
		tenant_id BIGINT NOT NULL,
		actor_id TEXT NOT NULL,
		action TEXT NOT NULL,
		entity TEXT NOT NULL,
		entity_id BIGINT NOT NULL,
		payload TEXT NOT NULL DEFAULT '{}',
		created_at TIMESTAMP NOT NULL
	)`)

	node, err := snowflake.NewNode(6)
	require.NoError(t, err)

	svc := NewService(Params{
		DB:    db,
		Log:   zaptest.NewLogger(t),
		GenID: node,
		Repo:  repository.Provide(),
	})
	return svc, node
}

func TestAuditRecord(t *testing.T) {
	svc, node := newAuditFixture(t)
	tenantID := node.Generate()

	t.Run("ActorComesFromContext", func(t *testing.T) {
		ctx := tenantctx.WithActor(context.Background(), "scheduler")
		entityID := node.Generate()

		err := svc.Record(ctx, auditdomain.RecordRequest{
			TenantID: tenantID,
			Action:   auditdomain.ActionPaymentCreate,
			Entity:   "payment",
			EntityID: entityID,
			Payload:  map[string]any{"amount": "300"},
		})
		require.NoError(t, err)

		entries, err := svc.ListSince(ctx, tenantID, time.Time{}, 10)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "scheduler", entries[0].ActorID)
		assert.Equal(t, auditdomain.ActionPaymentCreate, entries[0].Action)
		assert.Equal(t, entityID, entries[0].EntityID)
	})

	t.Run("MissingActorDefaultsToSystem", func(t *testing.T) {
		scoped := node.Generate()
		err := svc.Record(context.Background(), auditdomain.RecordRequest{
			TenantID: scoped,
			Action:   auditdomain.ActionSyncPush,
			Entity:   "customer",
			EntityID: node.Generate(),
		})
		require.NoError(t, err)

		entries, err := svc.ListSince(context.Background(), scoped, time.Time{}, 10)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "system", entries[0].ActorID)
	})

	t.Run("Validation", func(t *testing.T) {
		err := svc.Record(context.Background(), auditdomain.RecordRequest{Action: auditdomain.ActionSyncPush})
		assert.ErrorIs(t, err, auditdomain.ErrInvalidTenant)

		err = svc.Record(context.Background(), auditdomain.RecordRequest{TenantID: tenantID})
		assert.ErrorIs(t, err, auditdomain.ErrInvalidAction)
	})
}
