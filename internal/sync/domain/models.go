package domain

import (
	"encoding/json"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/debtledger/internal/audit/domain"
	customerdomain "github.com/smallbiznis/debtledger/internal/customer/domain"
	debtdomain "github.com/smallbiznis/debtledger/internal/debt/domain"
	paymentdomain "github.com/smallbiznis/debtledger/internal/payment/domain"
)

type EntityKind string

const (
	EntityCustomer EntityKind = "customer"
	EntityDebt     EntityKind = "debt"
	EntityPayment  EntityKind = "payment"
)

// Changeset is one offline-client edit. ClientVersion is the version the
// client last saw; the server only applies the overwrite when it still
// matches.
type Changeset struct {
	Entity        EntityKind      `json:"entity"`
	EntityID      snowflake.ID    `json:"entity_id"`
	ClientVersion int64           `json:"client_version"`
	Data          json.RawMessage `json:"data"`
}

type ConflictReason string

const (
	ReasonNotFound          ConflictReason = "NotFound"
	ReasonVersionMismatch   ConflictReason = "VersionMismatch"
	ReasonUnsupportedEntity ConflictReason = "UnsupportedEntity"
	ReasonInvalidData       ConflictReason = "InvalidData"
)

// Conflict is a rejected changeset. Server always wins: ServerSnapshot is the
// authoritative state the client must re-fetch and reapply against.
type Conflict struct {
	Entity         EntityKind     `json:"entity"`
	EntityID       snowflake.ID   `json:"entity_id"`
	Reason         ConflictReason `json:"reason"`
	ServerVersion  int64          `json:"server_version,omitempty"`
	ServerSnapshot any            `json:"server_snapshot,omitempty"`
}

type Applied struct {
	Entity     EntityKind   `json:"entity"`
	EntityID   snowflake.ID `json:"entity_id"`
	NewVersion int64        `json:"new_version"`
}

type PushResult struct {
	Applied   []Applied  `json:"applied"`
	Conflicts []Conflict `json:"conflicts"`
}

type GetChangesResult struct {
	Changes       []auditdomain.AuditLog `json:"changes"`
	HasMore       bool                   `json:"has_more"`
	LastTimestamp time.Time              `json:"last_timestamp"`
}

type FullSyncResult struct {
	Customers []customerdomain.Customer `json:"customers,omitempty"`
	Debts     []debtdomain.Debt         `json:"debts,omitempty"`
	Payments  []paymentdomain.Payment   `json:"payments,omitempty"`
}

// CustomerSyncData are the customer fields a client may overwrite. Balance
// and credit-limit fields are deliberately absent: ledger invariants cannot
// be bypassed through the sync path.
type CustomerSyncData struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	IsActive bool   `json:"is_active"`
}

// DebtSyncData are the debt fields a client may overwrite. Amounts and
// status only change through the payment and lifecycle services.
type DebtSyncData struct {
	Reference string    `json:"reference"`
	DueAt     time.Time `json:"due_at"`
}
