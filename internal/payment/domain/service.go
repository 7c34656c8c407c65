package domain

import (
	"context"
	"encoding/json"
	"time"

	"github.com/bwmarrin/snowflake"
	customerdomain "github.com/smallbiznis/debtledger/internal/customer/domain"
	debtdomain "github.com/smallbiznis/debtledger/internal/debt/domain"
	"github.com/smallbiznis/debtledger/internal/fault"
	"github.com/smallbiznis/debtledger/internal/money"
)

type ApplicationInput struct {
	DebtID snowflake.ID
	Amount money.Money
}

type CreatePaymentRequest struct {
	CustomerID     snowflake.ID
	Amount         money.Money
	Method         string
	AppliedToDebts []ApplicationInput
	PaidAt         *time.Time
	IdempotencyKey string
}

// CreatePaymentResult carries the committed payment with its customer and
// debt references resolved for the caller. Body is the exact serialized form
// the transport must return; on an idempotent replay it is the cached bytes,
// guaranteeing byte-identical responses.
type CreatePaymentResult struct {
	Payment  *Payment                 `json:"payment"`
	Customer *customerdomain.Customer `json:"customer"`
	Debts    []debtdomain.Debt        `json:"debts"`

	Replayed bool            `json:"-"`
	Body     json.RawMessage `json:"-"`
}

type Service interface {
	Create(ctx context.Context, tenantID snowflake.ID, req CreatePaymentRequest) (*CreatePaymentResult, error)
	GetByID(ctx context.Context, tenantID, id snowflake.ID) (*Payment, error)
	ListByCustomer(ctx context.Context, tenantID, customerID snowflake.ID, limit int) ([]Payment, error)
}

var (
	ErrInvalidTenant      = fault.Validation("invalid tenant")
	ErrInvalidAmount      = fault.Validation("amount must be positive")
	ErrInvalidApplication = fault.Validation("applied amount must be positive")
	ErrDebtNotFound       = fault.NotFound("debt not found")
	ErrDebtCancelled      = fault.Unprocessable("debt is cancelled")
	ErrExceedsOutstanding = fault.Validation("exceeds outstanding")
	ErrOverApplied        = fault.Validation("total applied exceeds payment amount")
	ErrNotFound           = fault.NotFound("payment not found")
	ErrDuplicateKey       = fault.Conflict("duplicate idempotency key")
	ErrVersionConflict    = fault.Conflict("version conflict")
)
