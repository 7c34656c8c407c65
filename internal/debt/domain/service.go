package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/debtledger/internal/fault"
	"github.com/smallbiznis/debtledger/internal/money"
)

type CreateDebtItem struct {
	Description string
	Quantity    money.Money
	UnitPrice   money.Money
}

type CreateDebtRequest struct {
	CustomerID  snowflake.ID
	Reference   string
	TotalAmount money.Money
	DueAt       time.Time
	Items       []CreateDebtItem
}

type Service interface {
	Create(ctx context.Context, tenantID snowflake.ID, req CreateDebtRequest) (*Debt, error)
	Cancel(ctx context.Context, tenantID, debtID snowflake.ID) (*Debt, error)
	GetByID(ctx context.Context, tenantID, debtID snowflake.ID) (*Debt, error)
	ListByCustomer(ctx context.Context, tenantID, customerID snowflake.ID, limit int) ([]Debt, error)
}

var (
	ErrInvalidTenant       = fault.Validation("invalid tenant")
	ErrInvalidAmount       = fault.Validation("total amount must be positive")
	ErrNoItems             = fault.Validation("debt requires at least one item")
	ErrInvalidItem         = fault.Validation("item quantity must be positive and unit price non-negative")
	ErrNotFound            = fault.NotFound("debt not found")
	ErrCreditLimitExceeded = fault.Unprocessable("credit limit exceeded")
	ErrHasPayments         = fault.Unprocessable("debt has payments applied")
	ErrAlreadyCancelled    = fault.Unprocessable("debt already cancelled")
	ErrVersionConflict     = fault.Conflict("version conflict")
)
