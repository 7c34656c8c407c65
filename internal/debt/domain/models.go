package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/debtledger/internal/money"
)

// Status is the debt lifecycle state. Cancelled is absorbing; paid is
// terminal for the state machine (a paid debt whose outstanding is forced
// back up has no defined transition).
type Status string

const (
	StatusOpen      Status = "open"
	StatusPartial   Status = "partial"
	StatusPaid      Status = "paid"
	StatusCancelled Status = "cancelled"
)

// AgingBucket is a coarse classification of how overdue an unpaid debt is.
type AgingBucket string

const (
	BucketCurrent  AgingBucket = "current"
	Bucket0To30    AgingBucket = "0-30"
	Bucket31To60   AgingBucket = "31-60"
	Bucket61To90   AgingBucket = "61-90"
	BucketOver90   AgingBucket = "90+"
)

// Debt is a customer invoice. TotalAmount is fixed at creation;
// OutstandingAmount starts equal to it and only ever decreases through
// payment application. Version is bumped by every outstanding-amount change,
// cancellation, and sync overwrite.
type Debt struct {
	ID                snowflake.ID `gorm:"primaryKey" json:"id"`
	TenantID          snowflake.ID `gorm:"not null;index" json:"tenant_id"`
	CustomerID        snowflake.ID `gorm:"not null;index" json:"customer_id"`
	Reference         string       `gorm:"type:text;not null" json:"reference"`
	TotalAmount       money.Money  `gorm:"type:numeric(20,9);not null" json:"total_amount"`
	OutstandingAmount money.Money  `gorm:"type:numeric(20,9);not null" json:"outstanding_amount"`
	Status            Status       `gorm:"type:text;not null" json:"status"`
	AgingBucket       AgingBucket  `gorm:"type:text;not null" json:"aging_bucket"`
	DueAt             time.Time    `gorm:"not null" json:"due_at"`
	Version           int64        `gorm:"not null;default:1" json:"version"`
	CreatedAt         time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt         time.Time    `gorm:"not null" json:"updated_at"`

	Items []DebtItem `gorm:"-" json:"items,omitempty"`
}

// TableName sets the database table name.
func (Debt) TableName() string { return "debts" }

// DebtItem is one invoice line. Total is always recomputed from
// quantity x unit price at creation and never trusted from input.
type DebtItem struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	DebtID      snowflake.ID `gorm:"not null;index" json:"debt_id"`
	TenantID    snowflake.ID `gorm:"not null" json:"tenant_id"`
	Description string       `gorm:"type:text;not null" json:"description"`
	Quantity    money.Money  `gorm:"type:numeric(20,9);not null" json:"quantity"`
	UnitPrice   money.Money  `gorm:"type:numeric(20,9);not null" json:"unit_price"`
	Total       money.Money  `gorm:"type:numeric(20,9);not null" json:"total"`
}

// TableName sets the database table name.
func (DebtItem) TableName() string { return "debt_items" }
