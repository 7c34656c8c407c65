package service

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/debtledger/internal/customer/domain"
	"github.com/smallbiznis/debtledger/internal/customer/repository"
	"github.com/smallbiznis/debtledger/internal/money"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

func newCustomerFixture(t *testing.T) (*Service, *snowflake.Node) {
	db, err := gorm.Open(sqlite.Open("file:customersvc_"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)

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

	node, err := snowflake.NewNode(5)
	require.NoError(t, err)

	svc := &Service{
		db:    db,
		log:   zaptest.NewLogger(t),
		genID: node,
		repo:  repository.Provide(),
	}
	return svc, node
}

func TestCustomerCreate(t *testing.T) {
	svc, node := newCustomerFixture(t)
	ctx := context.Background()
	tenantID := node.Generate()

	t.Run("StartsWithCleanLedger", func(t *testing.T) {
		customer, err := svc.Create(ctx, tenantID, domain.CreateCustomerRequest{
			Name:        "  Toko Makmur  ",
			Email:       "owner@makmur.test",
			CreditLimit: money.MustParse("5000"),
		})
		require.NoError(t, err)

		assert.Equal(t, "Toko Makmur", customer.Name)
		assert.True(t, customer.DebtBalance.IsZero())
		assert.True(t, customer.CreditBalance.IsZero())
		assert.Equal(t, int64(1), customer.Version)
		assert.True(t, customer.IsActive)
		assert.Nil(t, customer.LastTransactionAt)

		reloaded, err := svc.GetByID(ctx, tenantID, customer.ID)
		require.NoError(t, err)
		assert.True(t, reloaded.CreditLimit.Equal(money.MustParse("5000")))
	})

	t.Run("Validation", func(t *testing.T) {
		_, err := svc.Create(ctx, tenantID, domain.CreateCustomerRequest{Name: "   "})
		assert.ErrorIs(t, err, domain.ErrInvalidName)

		_, err = svc.Create(ctx, tenantID, domain.CreateCustomerRequest{
			Name:        "Negative",
			CreditLimit: money.MustParse("-1"),
		})
		assert.ErrorIs(t, err, domain.ErrInvalidCreditLimit)

		_, err = svc.Create(ctx, 0, domain.CreateCustomerRequest{Name: "No Tenant"})
		assert.ErrorIs(t, err, domain.ErrInvalidTenant)
	})
}

func TestCustomerTenantIsolation(t *testing.T) {
	svc, node := newCustomerFixture(t)
	ctx := context.Background()
	tenantA := node.Generate()
	tenantB := node.Generate()

	customer, err := svc.Create(ctx, tenantA, domain.CreateCustomerRequest{
		Name:        "Tenant A Only",
		CreditLimit: money.MustParse("100"),
	})
	require.NoError(t, err)

	_, err = svc.GetByID(ctx, tenantB, customer.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	listed, err := svc.List(ctx, tenantB, 10)
	require.NoError(t, err)
	assert.Empty(t, listed)

	listed, err = svc.List(ctx, tenantA, 10)
	require.NoError(t, err)
	assert.Len(t, listed, 1)
}
