package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, entry *AuditLog) error
	ListSince(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, since time.Time, limit int) ([]AuditLog, error)
}
