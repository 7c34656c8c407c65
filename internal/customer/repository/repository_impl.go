package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/debtledger/internal/customer/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, customer *domain.Customer) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO customers (id, tenant_id, name, email, credit_limit, debt_balance, credit_balance,
		                        version, last_transaction_at, is_active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		customer.ID,
		customer.TenantID,
		customer.Name,
		customer.Email,
		customer.CreditLimit,
		customer.DebtBalance,
		customer.CreditBalance,
		customer.Version,
		customer.LastTransactionAt,
		customer.IsActive,
		customer.CreatedAt,
		customer.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID) (*domain.Customer, error) {
	var customer domain.Customer
	err := db.WithContext(ctx).Raw(
		`SELECT id, tenant_id, name, email, credit_limit, debt_balance, credit_balance,
		        version, last_transaction_at, is_active, created_at, updated_at
		 FROM customers WHERE tenant_id = ? AND id = ?`,
		tenantID,
		id,
	).Scan(&customer).Error
	if err != nil {
		return nil, err
	}
	if customer.ID == 0 {
		return nil, nil
	}
	return &customer, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, limit int) ([]domain.Customer, error) {
	var customers []domain.Customer
	err := db.WithContext(ctx).Raw(
		`SELECT id, tenant_id, name, email, credit_limit, debt_balance, credit_balance,
		        version, last_transaction_at, is_active, created_at, updated_at
		 FROM customers WHERE tenant_id = ?
		 ORDER BY id ASC
		 LIMIT ?`,
		tenantID,
		limit,
	).Scan(&customers).Error
	if err != nil {
		return nil, err
	}
	return customers, nil
}

func (r *repo) UpdateBalances(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID, expectedVersion int64, patch domain.BalancePatch) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE customers
		 SET debt_balance = ?, credit_balance = ?, last_transaction_at = COALESCE(?, last_transaction_at),
		     version = version + 1, updated_at = ?
		 WHERE tenant_id = ? AND id = ? AND version = ?`,
		patch.DebtBalance,
		patch.CreditBalance,
		patch.LastTransactionAt,
		time.Now().UTC(),
		tenantID,
		id,
		expectedVersion,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repo) UpdateSyncFields(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID, expectedVersion int64, patch domain.SyncPatch) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE customers
		 SET name = ?, email = ?, is_active = ?, version = version + 1, updated_at = ?
		 WHERE tenant_id = ? AND id = ? AND version = ?`,
		patch.Name,
		patch.Email,
		patch.IsActive,
		time.Now().UTC(),
		tenantID,
		id,
		expectedVersion,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
