package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/debtledger/internal/audit/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, entry *domain.AuditLog) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO audit_logs (id, tenant_id, actor_id, action, entity, entity_id, payload, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID,
		entry.TenantID,
		entry.ActorID,
		entry.Action,
		entry.Entity,
		entry.EntityID,
		entry.Payload,
		entry.CreatedAt,
	).Error
}

func (r *repo) ListSince(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, since time.Time, limit int) ([]domain.AuditLog, error) {
	var entries []domain.AuditLog
	err := db.WithContext(ctx).Raw(
		`SELECT id, tenant_id, actor_id, action, entity, entity_id, payload, created_at
		 FROM audit_logs
		 WHERE tenant_id = ? AND created_at > ?
		 ORDER BY created_at ASC, id ASC
		 LIMIT ?`,
		tenantID,
		since,
		limit,
	).Scan(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}
