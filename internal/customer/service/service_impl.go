package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/debtledger/internal/customer/domain"
	"github.com/smallbiznis/debtledger/internal/fault"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	repo  domain.Repository
}

func NewService(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("customer.service"),
		genID: p.GenID,
		repo:  p.Repo,
	}
}

func (s *Service) Create(ctx context.Context, tenantID snowflake.ID, req domain.CreateCustomerRequest) (*domain.Customer, error) {
	if tenantID == 0 {
		return nil, domain.ErrInvalidTenant
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}
	if req.CreditLimit.IsNegative() {
		return nil, domain.ErrInvalidCreditLimit
	}

	now := time.Now().UTC()
	customer := &domain.Customer{
		ID:          s.genID.Generate(),
		TenantID:    tenantID,
		Name:        name,
		Email:       strings.TrimSpace(req.Email),
		CreditLimit: req.CreditLimit,
		Version:     1,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Insert(ctx, s.db, customer); err != nil {
		return nil, fault.Internal("create customer", err)
	}
	return customer, nil
}

func (s *Service) GetByID(ctx context.Context, tenantID, id snowflake.ID) (*domain.Customer, error) {
	if tenantID == 0 {
		return nil, domain.ErrInvalidTenant
	}
	customer, err := s.repo.FindByID(ctx, s.db, tenantID, id)
	if err != nil {
		return nil, fault.Internal("load customer", err)
	}
	if customer == nil {
		return nil, domain.ErrNotFound
	}
	return customer, nil
}

func (s *Service) List(ctx context.Context, tenantID snowflake.ID, limit int) ([]domain.Customer, error) {
	if tenantID == 0 {
		return nil, domain.ErrInvalidTenant
	}
	if limit <= 0 {
		limit = 100
	}
	customers, err := s.repo.List(ctx, s.db, tenantID, limit)
	if err != nil {
		return nil, fault.Internal("list customers", err)
	}
	return customers, nil
}
