package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/debtledger/internal/debt/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

const debtColumns = `id, tenant_id, customer_id, reference, total_amount, outstanding_amount,
	status, aging_bucket, due_at, version, created_at, updated_at`

func (r *repo) Insert(ctx context.Context, db *gorm.DB, debt *domain.Debt, items []domain.DebtItem) error {
	err := db.WithContext(ctx).Exec(
		`INSERT INTO debts (id, tenant_id, customer_id, reference, total_amount, outstanding_amount,
		                    status, aging_bucket, due_at, version, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		debt.ID,
		debt.TenantID,
		debt.CustomerID,
		debt.Reference,
		debt.TotalAmount,
		debt.OutstandingAmount,
		debt.Status,
		debt.AgingBucket,
		debt.DueAt,
		debt.Version,
		debt.CreatedAt,
		debt.UpdatedAt,
	).Error
	if err != nil {
		return err
	}

	for _, item := range items {
		if err := db.WithContext(ctx).Exec(
			`INSERT INTO debt_items (id, debt_id, tenant_id, description, quantity, unit_price, total)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			item.ID,
			item.DebtID,
			item.TenantID,
			item.Description,
			item.Quantity,
			item.UnitPrice,
			item.Total,
		).Error; err != nil {
			return err
		}
	}
	return nil
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID) (*domain.Debt, error) {
	var debt domain.Debt
	err := db.WithContext(ctx).Raw(
		`SELECT `+debtColumns+` FROM debts WHERE tenant_id = ? AND id = ?`,
		tenantID,
		id,
	).Scan(&debt).Error
	if err != nil {
		return nil, err
	}
	if debt.ID == 0 {
		return nil, nil
	}
	return &debt, nil
}

func (r *repo) FindForCustomer(ctx context.Context, db *gorm.DB, tenantID, customerID, id snowflake.ID) (*domain.Debt, error) {
	var debt domain.Debt
	err := db.WithContext(ctx).Raw(
		`SELECT `+debtColumns+` FROM debts WHERE tenant_id = ? AND customer_id = ? AND id = ?`,
		tenantID,
		customerID,
		id,
	).Scan(&debt).Error
	if err != nil {
		return nil, err
	}
	if debt.ID == 0 {
		return nil, nil
	}
	return &debt, nil
}

func (r *repo) FindItems(ctx context.Context, db *gorm.DB, debtID snowflake.ID) ([]domain.DebtItem, error) {
	var items []domain.DebtItem
	err := db.WithContext(ctx).Raw(
		`SELECT id, debt_id, tenant_id, description, quantity, unit_price, total
		 FROM debt_items WHERE debt_id = ? ORDER BY id ASC`,
		debtID,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) ListByCustomer(ctx context.Context, db *gorm.DB, tenantID, customerID snowflake.ID, limit int) ([]domain.Debt, error) {
	var debts []domain.Debt
	err := db.WithContext(ctx).Raw(
		`SELECT `+debtColumns+` FROM debts
		 WHERE tenant_id = ? AND customer_id = ?
		 ORDER BY id ASC LIMIT ?`,
		tenantID,
		customerID,
		limit,
	).Scan(&debts).Error
	if err != nil {
		return nil, err
	}
	return debts, nil
}

func (r *repo) ListByTenant(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, limit int) ([]domain.Debt, error) {
	var debts []domain.Debt
	err := db.WithContext(ctx).Raw(
		`SELECT `+debtColumns+` FROM debts
		 WHERE tenant_id = ?
		 ORDER BY id ASC LIMIT ?`,
		tenantID,
		limit,
	).Scan(&debts).Error
	if err != nil {
		return nil, err
	}
	return debts, nil
}

func (r *repo) UpdateOutstanding(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID, expectedVersion int64, patch domain.OutstandingPatch) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE debts
		 SET outstanding_amount = ?, status = ?, aging_bucket = ?, version = version + 1, updated_at = ?
		 WHERE tenant_id = ? AND id = ? AND version = ? AND status IN (?, ?)`,
		patch.OutstandingAmount,
		patch.Status,
		patch.AgingBucket,
		time.Now().UTC(),
		tenantID,
		id,
		expectedVersion,
		domain.StatusOpen,
		domain.StatusPartial,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repo) Cancel(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID, expectedVersion int64) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE debts
		 SET status = ?, aging_bucket = ?, version = version + 1, updated_at = ?
		 WHERE tenant_id = ? AND id = ? AND version = ? AND status <> ?`,
		domain.StatusCancelled,
		domain.BucketCurrent,
		time.Now().UTC(),
		tenantID,
		id,
		expectedVersion,
		domain.StatusCancelled,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repo) UpdateSyncFields(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID, expectedVersion int64, patch domain.SyncPatch) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE debts
		 SET reference = ?, due_at = ?, version = version + 1, updated_at = ?
		 WHERE tenant_id = ? AND id = ? AND version = ?`,
		patch.Reference,
		patch.DueAt,
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

func (r *repo) ScanForAging(ctx context.Context, db *gorm.DB, tenantID, afterID snowflake.ID, limit int) ([]domain.AgingRow, error) {
	query := `SELECT id, tenant_id, status, aging_bucket, due_at
	          FROM debts
	          WHERE status IN (?, ?) AND id > ?`
	args := []any{domain.StatusOpen, domain.StatusPartial, afterID}
	if tenantID != 0 {
		query += ` AND tenant_id = ?`
		args = append(args, tenantID)
	}
	query += ` ORDER BY id ASC LIMIT ?`
	args = append(args, limit)

	var rows []domain.AgingRow
	err := db.WithContext(ctx).Raw(query, args...).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repo) UpdateAgingBucket(ctx context.Context, db *gorm.DB, id snowflake.ID, from, to domain.AgingBucket) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE debts
		 SET aging_bucket = ?, updated_at = ?
		 WHERE id = ? AND aging_bucket = ? AND status IN (?, ?)`,
		to,
		time.Now().UTC(),
		id,
		from,
		domain.StatusOpen,
		domain.StatusPartial,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
