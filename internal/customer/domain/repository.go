package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/debtledger/internal/money"
	"gorm.io/gorm"
)

// BalancePatch is the full set of balance fields a ledger mutation may touch.
// Repositories apply it conditionally on the expected version; zero rows
// affected means a concurrent writer won.
type BalancePatch struct {
	DebtBalance       money.Money
	CreditBalance     money.Money
	LastTransactionAt *time.Time
}

// SyncPatch carries the non-ledger fields the sync push path may overwrite.
type SyncPatch struct {
	Name     string
	Email    string
	IsActive bool
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, customer *Customer) error
	FindByID(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID) (*Customer, error)
	List(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, limit int) ([]Customer, error)

	// UpdateBalances performs "set balances, version = version+1 where
	// version = expected". It reports whether a row was updated.
	UpdateBalances(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID, expectedVersion int64, patch BalancePatch) (bool, error)

	// UpdateSyncFields is the server-wins overwrite used by the sync push
	// path; same conditional-version contract as UpdateBalances.
	UpdateSyncFields(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID, expectedVersion int64, patch SyncPatch) (bool, error)
}
