package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/debtledger/internal/fault"
	"github.com/smallbiznis/debtledger/internal/money"
)

type CreateCustomerRequest struct {
	Name        string
	Email       string
	CreditLimit money.Money
}

type Service interface {
	Create(ctx context.Context, tenantID snowflake.ID, req CreateCustomerRequest) (*Customer, error)
	GetByID(ctx context.Context, tenantID, id snowflake.ID) (*Customer, error)
	List(ctx context.Context, tenantID snowflake.ID, limit int) ([]Customer, error)
}

var (
	ErrInvalidTenant      = fault.Validation("invalid tenant")
	ErrInvalidName        = fault.Validation("invalid name")
	ErrInvalidCreditLimit = fault.Validation("credit limit must not be negative")
	ErrNotFound           = fault.NotFound("customer not found")
)
