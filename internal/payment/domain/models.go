package domain

import (
	"encoding/json"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/debtledger/internal/money"
	"gorm.io/datatypes"
)

// Application is one ordered entry of the payment's allocation across debts.
type Application struct {
	DebtID snowflake.ID `json:"debt_id"`
	Amount money.Money  `json:"amount"`
}

// Payment is immutable once created; there is no update path. The invariant
// Amount == sum(applications) + AddedToCredit holds within the 0.01
// reconciliation tolerance.
type Payment struct {
	ID             snowflake.ID   `gorm:"primaryKey" json:"id"`
	TenantID       snowflake.ID   `gorm:"not null;index" json:"tenant_id"`
	CustomerID     snowflake.ID   `gorm:"not null;index" json:"customer_id"`
	Amount         money.Money    `gorm:"type:numeric(20,9);not null" json:"amount"`
	Method         string         `gorm:"type:text;not null" json:"method"`
	AppliedToDebts datatypes.JSON `gorm:"type:jsonb;not null" json:"applied_to_debts"`
	AddedToCredit  money.Money    `gorm:"type:numeric(20,9);not null" json:"added_to_credit_balance"`
	IdempotencyKey *string        `gorm:"type:text;uniqueIndex" json:"idempotency_key,omitempty"`
	PaidAt         time.Time      `gorm:"not null" json:"paid_at"`
	CreatedBy      string         `gorm:"type:text;not null" json:"created_by"`
	CreatedAt      time.Time      `gorm:"not null" json:"created_at"`
}

// TableName sets the database table name.
func (Payment) TableName() string { return "payments" }

// Applications decodes the stored allocation snapshot, preserving input
// order.
func (p *Payment) Applications() ([]Application, error) {
	if len(p.AppliedToDebts) == 0 {
		return nil, nil
	}
	var apps []Application
	if err := json.Unmarshal(p.AppliedToDebts, &apps); err != nil {
		return nil, err
	}
	return apps, nil
}
