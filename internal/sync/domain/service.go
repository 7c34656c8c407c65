package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/debtledger/internal/fault"
)

type Service interface {
	// PushChanges reconciles offline-client edits. Changesets are processed
	// independently; one failing never aborts the batch.
	PushChanges(ctx context.Context, tenantID snowflake.ID, changesets []Changeset) (*PushResult, error)

	// GetChanges tail-reads the audit trail after `since`, ascending.
	GetChanges(ctx context.Context, tenantID snowflake.ID, since time.Time, limit int) (*GetChangesResult, error)

	// GetFullSync dumps current entity state for bootstrapping a client.
	GetFullSync(ctx context.Context, tenantID snowflake.ID, entities []EntityKind) (*FullSyncResult, error)
}

var (
	ErrInvalidTenant = fault.Validation("invalid tenant")
	ErrNoChangesets  = fault.Validation("changesets must not be empty")
)
