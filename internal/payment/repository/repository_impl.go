package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/debtledger/internal/payment/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

const paymentColumns = `id, tenant_id, customer_id, amount, method, applied_to_debts,
	added_to_credit, idempotency_key, paid_at, created_by, created_at`

func (r *repo) Insert(ctx context.Context, db *gorm.DB, payment *domain.Payment) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO payments (id, tenant_id, customer_id, amount, method, applied_to_debts,
		                       added_to_credit, idempotency_key, paid_at, created_by, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		payment.ID,
		payment.TenantID,
		payment.CustomerID,
		payment.Amount,
		payment.Method,
		payment.AppliedToDebts,
		payment.AddedToCredit,
		payment.IdempotencyKey,
		payment.PaidAt,
		payment.CreatedBy,
		payment.CreatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID) (*domain.Payment, error) {
	var payment domain.Payment
	err := db.WithContext(ctx).Raw(
		`SELECT `+paymentColumns+` FROM payments WHERE tenant_id = ? AND id = ?`,
		tenantID,
		id,
	).Scan(&payment).Error
	if err != nil {
		return nil, err
	}
	if payment.ID == 0 {
		return nil, nil
	}
	return &payment, nil
}

func (r *repo) ListByCustomer(ctx context.Context, db *gorm.DB, tenantID, customerID snowflake.ID, limit int) ([]domain.Payment, error) {
	var payments []domain.Payment
	err := db.WithContext(ctx).Raw(
		`SELECT `+paymentColumns+` FROM payments
		 WHERE tenant_id = ? AND customer_id = ?
		 ORDER BY id ASC LIMIT ?`,
		tenantID,
		customerID,
		limit,
	).Scan(&payments).Error
	if err != nil {
		return nil, err
	}
	return payments, nil
}

func (r *repo) ListByTenant(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, limit int) ([]domain.Payment, error) {
	var payments []domain.Payment
	err := db.WithContext(ctx).Raw(
		`SELECT `+paymentColumns+` FROM payments
		 WHERE tenant_id = ?
		 ORDER BY id ASC LIMIT ?`,
		tenantID,
		limit,
	).Scan(&payments).Error
	if err != nil {
		return nil, err
	}
	return payments, nil
}
