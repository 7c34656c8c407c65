package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/debtledger/internal/money"
)

// Customer is the tenant's root ledger record. DebtBalance is maintained
// incrementally by the debt and payment services and always equals the sum of
// outstanding amounts over the customer's non-cancelled debts. Version is the
// optimistic-concurrency token: every successful mutation bumps it by exactly
// one via a conditional write.
type Customer struct {
	ID                snowflake.ID `gorm:"primaryKey" json:"id"`
	TenantID          snowflake.ID `gorm:"not null;index" json:"tenant_id"`
	Name              string       `gorm:"not null" json:"name"`
	Email             string       `gorm:"not null" json:"email"`
	CreditLimit       money.Money  `gorm:"type:numeric(20,9);not null" json:"credit_limit"`
	DebtBalance       money.Money  `gorm:"type:numeric(20,9);not null" json:"debt_balance"`
	CreditBalance     money.Money  `gorm:"type:numeric(20,9);not null" json:"credit_balance"`
	Version           int64        `gorm:"not null;default:1" json:"version"`
	LastTransactionAt *time.Time   `json:"last_transaction_at,omitempty"`
	IsActive          bool         `gorm:"not null;default:true" json:"is_active"`
	CreatedAt         time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt         time.Time    `gorm:"not null" json:"updated_at"`
}

// TableName sets the database table name.
func (Customer) TableName() string { return "customers" }
