package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Action identifies what a ledger mutation did. The set is closed; sync
// clients replay the audit tail by action.
type Action string

const (
	ActionDebtCreate    Action = "DEBT_CREATE"
	ActionDebtDelete    Action = "DEBT_DELETE"
	ActionPaymentCreate Action = "PAYMENT_CREATE"
	ActionSyncPush      Action = "SYNC_PUSH"
)

// AuditLog is an append-only observation of a committed mutation. Entries are
// never updated or deleted; EntityID is a weak reference.
type AuditLog struct {
	ID        snowflake.ID      `gorm:"primaryKey" json:"id"`
	TenantID  snowflake.ID      `gorm:"not null;index:idx_audit_logs_tenant_created,priority:1" json:"tenant_id"`
	ActorID   string            `gorm:"type:text;not null" json:"actor_id"`
	Action    Action            `gorm:"type:text;not null" json:"action"`
	Entity    string            `gorm:"type:text;not null" json:"entity"`
	EntityID  snowflake.ID      `gorm:"not null" json:"entity_id"`
	Payload   datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"payload"`
	CreatedAt time.Time         `gorm:"not null;index:idx_audit_logs_tenant_created,priority:2" json:"created_at"`
}

// TableName sets the database table name.
func (AuditLog) TableName() string { return "audit_logs" }
