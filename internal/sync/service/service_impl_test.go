package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	auditrepository "github.com/smallbiznis/debtledger/internal/audit/repository"
	auditservice "github.com/smallbiznis/debtledger/internal/audit/service"
	customerdomain "github.com/smallbiznis/debtledger/internal/customer/domain"
	customerrepository "github.com/smallbiznis/debtledger/internal/customer/repository"
	debtdomain "github.com/smallbiznis/debtledger/internal/debt/domain"
	debtrepository "github.com/smallbiznis/debtledger/internal/debt/repository"
	"github.com/smallbiznis/debtledger/internal/money"
	paymentrepository "github.com/smallbiznis/debtledger/internal/payment/repository"
	"github.com/smallbiznis/debtledger/internal/sync/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

type syncFixture struct {
	db           *gorm.DB
	svc          *Service
	customerRepo customerdomain.Repository
	debtRepo     debtdomain.Repository
	node         *snowflake.Node
	tenantID     snowflake.ID
}

func newSyncFixture(t *testing.T) *syncFixture {
	db, err := gorm.Open(sqlite.Open("file:syncsvc_"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	// Setup schema
	db.Exec(`CREATE TABLE IF NOT EXISTS customers (
		id BIGINT PRIMARY KEY,
		tenant_id BIGINT NOT NULL,
		name TEXT NOT NULL,
		email TEXT NOT NULL,
		credit_limit NUMERIC NOT NULL,
		debt_balance NUMERIC NOT NULL DEFAULT 0,
		credit_balance NUMERIC NOT NULL DEFAULT 0,
		version BIGINT NOT NULL DEFAULT 1,
		last_transaction_at TIMESTAMP,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`)
	db.Exec(`CREATE TABLE IF NOT EXISTS debts (
		id BIGINT PRIMARY KEY,
		tenant_id BIGINT NOT NULL,
		customer_id BIGINT NOT NULL,
		reference TEXT NOT NULL,
		total_amount NUMERIC NOT NULL,
		outstanding_amount NUMERIC NOT NULL,
		status TEXT NOT NULL,
		aging_bucket TEXT NOT NULL,
		due_at TIMESTAMP NOT NULL,
		version BIGINT NOT NULL DEFAULT 1,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`)
	db.Exec(`CREATE TABLE IF NOT EXISTS payments (
		id BIGINT PRIMARY KEY,
		tenant_id BIGINT NOT NULL,
		customer_id BIGINT NOT NULL,
		amount NUMERIC NOT NULL,
		method TEXT NOT NULL,
		applied_to_debts TEXT NOT NULL,
		added_to_credit NUMERIC NOT NULL,
		idempotency_key TEXT,
		paid_at TIMESTAMP NOT NULL,
		created_by TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL
	)`)
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

	log := zaptest.NewLogger(t)
	node, err := snowflake.NewNode(3)
	require.NoError(t, err)

	customerRepo := customerrepository.Provide()
	debtRepo := debtrepository.Provide()
	auditSvc := auditservice.NewService(auditservice.Params{
		DB:    db,
		Log:   log,
		GenID: node,
		Repo:  auditrepository.Provide(),
	})

	svc := &Service{
		db:           db,
		log:          log,
		customerRepo: customerRepo,
		debtRepo:     debtRepo,
		paymentRepo:  paymentrepository.Provide(),
		auditSvc:     auditSvc,
	}

	return &syncFixture{
		db:           db,
		svc:          svc,
		customerRepo: customerRepo,
		debtRepo:     debtRepo,
		node:         node,
		tenantID:     node.Generate(),
	}
}

func (f *syncFixture) seedCustomer(t *testing.T, version int64) *customerdomain.Customer {
	now := time.Now().UTC()
	customer := &customerdomain.Customer{
		ID:          f.node.Generate(),
		TenantID:    f.tenantID,
		Name:        "Toko Lama",
		Email:       "old@toko.test",
		CreditLimit: money.MustParse("1000"),
		Version:     version,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	require.NoError(t, f.customerRepo.Insert(context.Background(), f.db, customer))
	return customer
}

func (f *syncFixture) seedDebt(t *testing.T, customerID snowflake.ID, version int64) *debtdomain.Debt {
	now := time.Now().UTC()
	debt := &debtdomain.Debt{
		ID:                f.node.Generate(),
		TenantID:          f.tenantID,
		CustomerID:        customerID,
		Reference:         "INV-OLD",
		TotalAmount:       money.MustParse("100"),
		OutstandingAmount: money.MustParse("100"),
		Status:            debtdomain.StatusOpen,
		AgingBucket:       debtdomain.BucketCurrent,
		DueAt:             now.AddDate(0, 0, 7),
		Version:           version,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	require.NoError(t, f.debtRepo.Insert(context.Background(), f.db, debt, nil))
	return debt
}

func mustJSON(t *testing.T, v any) json.RawMessage {
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return raw
}

func TestPushChanges(t *testing.T) {
	f := newSyncFixture(t)
	ctx := context.Background()

	t.Run("AppliesCustomerSafeFields", func(t *testing.T) {
		customer := f.seedCustomer(t, 1)

		result, err := f.svc.PushChanges(ctx, f.tenantID, []domain.Changeset{{
			Entity:        domain.EntityCustomer,
			EntityID:      customer.ID,
			ClientVersion: 1,
			Data: mustJSON(t, domain.CustomerSyncData{
				Name:     "Toko Baru",
				Email:    "new@toko.test",
				IsActive: true,
			}),
		}})
		require.NoError(t, err)
		require.Len(t, result.Applied, 1)
		assert.Empty(t, result.Conflicts)
		assert.Equal(t, int64(2), result.Applied[0].NewVersion)

		reloaded, err := f.customerRepo.FindByID(ctx, f.db, f.tenantID, customer.ID)
		require.NoError(t, err)
		assert.Equal(t, "Toko Baru", reloaded.Name)
		assert.Equal(t, int64(2), reloaded.Version)
		// Ledger fields never move through the sync path.
		assert.True(t, reloaded.CreditLimit.Equal(customer.CreditLimit))
		assert.True(t, reloaded.DebtBalance.IsZero())
	})

	t.Run("StaleVersionConflictsWithSnapshot", func(t *testing.T) {
		customer := f.seedCustomer(t, 4)

		result, err := f.svc.PushChanges(ctx, f.tenantID, []domain.Changeset{{
			Entity:        domain.EntityCustomer,
			EntityID:      customer.ID,
			ClientVersion: 2,
			Data:          mustJSON(t, domain.CustomerSyncData{Name: "Stale Edit", IsActive: true}),
		}})
		require.NoError(t, err)
		assert.Empty(t, result.Applied)
		require.Len(t, result.Conflicts, 1)

		conflict := result.Conflicts[0]
		assert.Equal(t, domain.ReasonVersionMismatch, conflict.Reason)
		assert.Equal(t, int64(4), conflict.ServerVersion)
		require.NotNil(t, conflict.ServerSnapshot)

		// Server wins: the stale edit never lands.
		reloaded, err := f.customerRepo.FindByID(ctx, f.db, f.tenantID, customer.ID)
		require.NoError(t, err)
		assert.Equal(t, "Toko Lama", reloaded.Name)
		assert.Equal(t, int64(4), reloaded.Version)
	})

	t.Run("AppliesDebtSafeFields", func(t *testing.T) {
		customer := f.seedCustomer(t, 1)
		debt := f.seedDebt(t, customer.ID, 1)
		newDue := time.Now().UTC().AddDate(0, 1, 0)

		result, err := f.svc.PushChanges(ctx, f.tenantID, []domain.Changeset{{
			Entity:        domain.EntityDebt,
			EntityID:      debt.ID,
			ClientVersion: 1,
			Data:          mustJSON(t, domain.DebtSyncData{Reference: "INV-NEW", DueAt: newDue}),
		}})
		require.NoError(t, err)
		require.Len(t, result.Applied, 1)

		reloaded, err := f.debtRepo.FindByID(ctx, f.db, f.tenantID, debt.ID)
		require.NoError(t, err)
		assert.Equal(t, "INV-NEW", reloaded.Reference)
		assert.Equal(t, int64(2), reloaded.Version)
		assert.True(t, reloaded.OutstandingAmount.Equal(debt.OutstandingAmount))
	})

	t.Run("MixedBatchIsolatesFailures", func(t *testing.T) {
		customer := f.seedCustomer(t, 1)

		result, err := f.svc.PushChanges(ctx, f.tenantID, []domain.Changeset{
			{
				Entity:        domain.EntityPayment,
				EntityID:      f.node.Generate(),
				ClientVersion: 1,
			},
			{
				Entity:        domain.EntityCustomer,
				EntityID:      f.node.Generate(),
				ClientVersion: 1,
				Data:          mustJSON(t, domain.CustomerSyncData{Name: "Ghost"}),
			},
			{
				Entity:        domain.EntityCustomer,
				EntityID:      customer.ID,
				ClientVersion: 1,
				Data:          json.RawMessage(`{bad json`),
			},
			{
				Entity:        domain.EntityCustomer,
				EntityID:      customer.ID,
				ClientVersion: 1,
				Data:          mustJSON(t, domain.CustomerSyncData{Name: "Good Edit", IsActive: true}),
			},
		})
		require.NoError(t, err)
		require.Len(t, result.Conflicts, 3)
		assert.Equal(t, domain.ReasonUnsupportedEntity, result.Conflicts[0].Reason)
		assert.Equal(t, domain.ReasonNotFound, result.Conflicts[1].Reason)
		assert.Equal(t, domain.ReasonInvalidData, result.Conflicts[2].Reason)
		require.Len(t, result.Applied, 1)
	})

	t.Run("EmptyBatchRejected", func(t *testing.T) {
		_, err := f.svc.PushChanges(ctx, f.tenantID, nil)
		assert.ErrorIs(t, err, domain.ErrNoChangesets)
	})
}

func TestGetChanges(t *testing.T) {
	f := newSyncFixture(t)
	ctx := context.Background()

	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		f.db.Exec(
			`INSERT INTO audit_logs (id, tenant_id, actor_id, action, entity, entity_id, payload, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			f.node.Generate(), f.tenantID, "system", "PAYMENT_CREATE", "payment",
			f.node.Generate(), `{}`, base.Add(time.Duration(i)*time.Minute),
		)
	}

	t.Run("PagesWithHasMore", func(t *testing.T) {
		page, err := f.svc.GetChanges(ctx, f.tenantID, base.Add(-time.Second), 3)
		require.NoError(t, err)
		assert.Len(t, page.Changes, 3)
		assert.True(t, page.HasMore)

		next, err := f.svc.GetChanges(ctx, f.tenantID, page.LastTimestamp, 3)
		require.NoError(t, err)
		assert.Len(t, next.Changes, 2)
		assert.False(t, next.HasMore)
	})

	t.Run("EmptyTailKeepsCursor", func(t *testing.T) {
		since := time.Now().UTC().Add(time.Hour)
		page, err := f.svc.GetChanges(ctx, f.tenantID, since, 10)
		require.NoError(t, err)
		assert.Empty(t, page.Changes)
		assert.False(t, page.HasMore)
		assert.Equal(t, since, page.LastTimestamp)
	})
}

func TestGetFullSync(t *testing.T) {
	f := newSyncFixture(t)
	ctx := context.Background()

	customer := f.seedCustomer(t, 1)
	f.seedDebt(t, customer.ID, 1)

	otherTenant := f.node.Generate()
	other := &customerdomain.Customer{
		ID:          f.node.Generate(),
		TenantID:    otherTenant,
		Name:        "Other Tenant",
		Email:       "other@toko.test",
		CreditLimit: money.MustParse("1"),
		Version:     1,
		IsActive:    true,
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	}
	require.NoError(t, f.customerRepo.Insert(ctx, f.db, other))

	result, err := f.svc.GetFullSync(ctx, f.tenantID, nil)
	require.NoError(t, err)
	require.Len(t, result.Customers, 1)
	assert.Equal(t, customer.ID, result.Customers[0].ID)
	assert.Len(t, result.Debts, 1)
	assert.Empty(t, result.Payments)

	scoped, err := f.svc.GetFullSync(ctx, f.tenantID, []domain.EntityKind{domain.EntityDebt})
	require.NoError(t, err)
	assert.Empty(t, scoped.Customers)
	assert.Len(t, scoped.Debts, 1)
}
