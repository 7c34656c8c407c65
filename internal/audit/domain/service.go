package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

type RecordRequest struct {
	TenantID snowflake.ID
	Action   Action
	Entity   string
	EntityID snowflake.ID
	Payload  map[string]any
}

type Service interface {
	// Record appends one audit entry. Callers invoke it after the primary
	// mutation commits and swallow the error; the trail is best-effort
	// relative to the ledger, never the reverse.
	Record(ctx context.Context, req RecordRequest) error

	// ListSince tail-reads the trail for incremental sync, ascending by
	// timestamp, capped at limit.
	ListSince(ctx context.Context, tenantID snowflake.ID, since time.Time, limit int) ([]AuditLog, error)
}

var (
	ErrInvalidTenant = errors.New("invalid_tenant")
	ErrInvalidAction = errors.New("invalid_action")
)
