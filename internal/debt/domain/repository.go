package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/debtledger/internal/money"
	"gorm.io/gorm"
)

// OutstandingPatch is applied by the payment engine after a payment
// application; it always travels with a version guard.
type OutstandingPatch struct {
	OutstandingAmount money.Money
	Status            Status
	AgingBucket       AgingBucket
}

// SyncPatch carries the non-ledger fields the sync push path may overwrite.
type SyncPatch struct {
	Reference string
	DueAt     time.Time
}

// AgingRow is the projection the recomputation job scans; it deliberately
// excludes amounts.
type AgingRow struct {
	ID          snowflake.ID
	TenantID    snowflake.ID
	Status      Status
	AgingBucket AgingBucket
	DueAt       time.Time
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, debt *Debt, items []DebtItem) error
	FindByID(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID) (*Debt, error)
	FindForCustomer(ctx context.Context, db *gorm.DB, tenantID, customerID, id snowflake.ID) (*Debt, error)
	FindItems(ctx context.Context, db *gorm.DB, debtID snowflake.ID) ([]DebtItem, error)
	ListByCustomer(ctx context.Context, db *gorm.DB, tenantID, customerID snowflake.ID, limit int) ([]Debt, error)
	ListByTenant(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, limit int) ([]Debt, error)

	// UpdateOutstanding is the version-guarded write used by the payment
	// engine; it only touches open or partial debts. Zero rows affected
	// means a concurrent writer won or the debt left the payable states.
	UpdateOutstanding(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID, expectedVersion int64, patch OutstandingPatch) (bool, error)

	// Cancel marks the debt cancelled; version-guarded, terminal.
	Cancel(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID, expectedVersion int64) (bool, error)

	// UpdateSyncFields is the server-wins overwrite used by sync push.
	UpdateSyncFields(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID, expectedVersion int64, patch SyncPatch) (bool, error)

	// ScanForAging pages open/partial debts by keyset for the recomputation
	// job. tenantID of zero scans every tenant.
	ScanForAging(ctx context.Context, db *gorm.DB, tenantID, afterID snowflake.ID, limit int) ([]AgingRow, error)

	// UpdateAgingBucket writes the new bucket only when it actually changed
	// and the debt is still reclassifiable.
	UpdateAgingBucket(ctx context.Context, db *gorm.DB, id snowflake.ID, from, to AgingBucket) (bool, error)
}
