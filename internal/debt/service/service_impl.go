package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/debtledger/internal/audit/domain"
	"github.com/smallbiznis/debtledger/internal/clock"
	customerdomain "github.com/smallbiznis/debtledger/internal/customer/domain"
	"github.com/smallbiznis/debtledger/internal/debt/domain"
	"github.com/smallbiznis/debtledger/internal/fault"
	"github.com/smallbiznis/debtledger/internal/money"
	obsmetrics "github.com/smallbiznis/debtledger/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	GenID        *snowflake.Node
	Clock        clock.Clock
	Repo         domain.Repository
	CustomerRepo customerdomain.Repository
	AuditSvc     auditdomain.Service
	ObsMetrics   *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db           *gorm.DB
	log          *zap.Logger
	genID        *snowflake.Node
	clock        clock.Clock
	repo         domain.Repository
	customerRepo customerdomain.Repository
	auditSvc     auditdomain.Service
	obsMetrics   *obsmetrics.Metrics
}

func NewService(p Params) domain.Service {
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("debt.service"),
		genID:        p.GenID,
		clock:        p.Clock,
		repo:         p.Repo,
		customerRepo: p.CustomerRepo,
		auditSvc:     p.AuditSvc,
		obsMetrics:   p.ObsMetrics,
	}
}

func (s *Service) Create(ctx context.Context, tenantID snowflake.ID, req domain.CreateDebtRequest) (*domain.Debt, error) {
	if tenantID == 0 {
		return nil, domain.ErrInvalidTenant
	}
	if !req.TotalAmount.IsPositive() {
		return nil, domain.ErrInvalidAmount
	}
	if len(req.Items) == 0 {
		return nil, domain.ErrNoItems
	}

	now := s.clock.Now()
	debtID := s.genID.Generate()

	items := make([]domain.DebtItem, 0, len(req.Items))
	for _, in := range req.Items {
		if !in.Quantity.IsPositive() || in.UnitPrice.IsNegative() {
			return nil, domain.ErrInvalidItem
		}
		items = append(items, domain.DebtItem{
			ID:          s.genID.Generate(),
			DebtID:      debtID,
			TenantID:    tenantID,
			Description: strings.TrimSpace(in.Description),
			Quantity:    in.Quantity,
			UnitPrice:   in.UnitPrice,
			// Recomputed here; never trusted from input.
			Total: in.Quantity.Mul(in.UnitPrice),
		})
	}

	debt := &domain.Debt{
		ID:                debtID,
		TenantID:          tenantID,
		CustomerID:        req.CustomerID,
		Reference:         strings.TrimSpace(req.Reference),
		TotalAmount:       req.TotalAmount,
		OutstandingAmount: req.TotalAmount,
		Status:            domain.StatusOpen,
		AgingBucket:       domain.CalcAgingBucket(domain.StatusOpen, req.DueAt, now),
		DueAt:             req.DueAt.UTC(),
		Version:           1,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	var balanceBefore, balanceAfter money.Money
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		customer, err := s.customerRepo.FindByID(ctx, tx, tenantID, req.CustomerID)
		if err != nil {
			return fault.Internal("load customer", err)
		}
		if customer == nil || !customer.IsActive {
			return customerdomain.ErrNotFound
		}

		balanceBefore = customer.DebtBalance
		balanceAfter = customer.DebtBalance.Add(req.TotalAmount)
		if balanceAfter.GreaterThan(customer.CreditLimit) {
			return domain.ErrCreditLimitExceeded
		}

		if err := s.repo.Insert(ctx, tx, debt, items); err != nil {
			return fault.Internal("insert debt", err)
		}

		updated, err := s.customerRepo.UpdateBalances(ctx, tx, tenantID, customer.ID, customer.Version, customerdomain.BalancePatch{
			DebtBalance:   balanceAfter,
			CreditBalance: customer.CreditBalance,
		})
		if err != nil {
			return fault.Internal("update customer balance", err)
		}
		if !updated {
			return domain.ErrVersionConflict
		}
		return nil
	})
	if err != nil {
		s.obsMetrics.IncMutationFailure("debt_create", string(fault.KindOf(err)))
		return nil, err
	}

	s.obsMetrics.IncMutation("debt_create")

	if auditErr := s.auditSvc.Record(ctx, auditdomain.RecordRequest{
		TenantID: tenantID,
		Action:   auditdomain.ActionDebtCreate,
		Entity:   "debt",
		EntityID: debt.ID,
		Payload: map[string]any{
			"customer_id":         debt.CustomerID.String(),
			"reference":           debt.Reference,
			"total_amount":        debt.TotalAmount.String(),
			"debt_balance_before": balanceBefore.String(),
			"debt_balance_after":  balanceAfter.String(),
			"due_at":              debt.DueAt,
		},
	}); auditErr != nil {
		s.log.Warn("audit write skipped for debt create",
			zap.String("debt_id", debt.ID.String()),
			zap.Error(auditErr),
		)
	}

	debt.Items = items
	return debt, nil
}

func (s *Service) Cancel(ctx context.Context, tenantID, debtID snowflake.ID) (*domain.Debt, error) {
	if tenantID == 0 {
		return nil, domain.ErrInvalidTenant
	}

	var cancelled *domain.Debt
	var balanceBefore, balanceAfter money.Money
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		debt, err := s.repo.FindByID(ctx, tx, tenantID, debtID)
		if err != nil {
			return fault.Internal("load debt", err)
		}
		if debt == nil {
			return domain.ErrNotFound
		}
		if debt.Status == domain.StatusCancelled {
			return domain.ErrAlreadyCancelled
		}
		// Cancellation is only allowed while no payment has ever been
		// applied.
		if !debt.OutstandingAmount.Equal(debt.TotalAmount) {
			return domain.ErrHasPayments
		}

		customer, err := s.customerRepo.FindByID(ctx, tx, tenantID, debt.CustomerID)
		if err != nil {
			return fault.Internal("load customer", err)
		}
		if customer == nil {
			return customerdomain.ErrNotFound
		}

		ok, err := s.repo.Cancel(ctx, tx, tenantID, debt.ID, debt.Version)
		if err != nil {
			return fault.Internal("cancel debt", err)
		}
		if !ok {
			return domain.ErrVersionConflict
		}

		balanceBefore = customer.DebtBalance
		balanceAfter = customer.DebtBalance.Sub(debt.TotalAmount)
		updated, err := s.customerRepo.UpdateBalances(ctx, tx, tenantID, customer.ID, customer.Version, customerdomain.BalancePatch{
			DebtBalance:   balanceAfter,
			CreditBalance: customer.CreditBalance,
		})
		if err != nil {
			return fault.Internal("update customer balance", err)
		}
		if !updated {
			return domain.ErrVersionConflict
		}

		debt.Status = domain.StatusCancelled
		debt.AgingBucket = domain.BucketCurrent
		debt.Version++
		cancelled = debt
		return nil
	})
	if err != nil {
		s.obsMetrics.IncMutationFailure("debt_cancel", string(fault.KindOf(err)))
		return nil, err
	}

	s.obsMetrics.IncMutation("debt_cancel")

	if auditErr := s.auditSvc.Record(ctx, auditdomain.RecordRequest{
		TenantID: tenantID,
		Action:   auditdomain.ActionDebtDelete,
		Entity:   "debt",
		EntityID: cancelled.ID,
		Payload: map[string]any{
			"customer_id":         cancelled.CustomerID.String(),
			"total_amount":        cancelled.TotalAmount.String(),
			"debt_balance_before": balanceBefore.String(),
			"debt_balance_after":  balanceAfter.String(),
		},
	}); auditErr != nil {
		s.log.Warn("audit write skipped for debt cancel",
			zap.String("debt_id", cancelled.ID.String()),
			zap.Error(auditErr),
		)
	}

	return cancelled, nil
}

func (s *Service) GetByID(ctx context.Context, tenantID, debtID snowflake.ID) (*domain.Debt, error) {
	if tenantID == 0 {
		return nil, domain.ErrInvalidTenant
	}
	debt, err := s.repo.FindByID(ctx, s.db, tenantID, debtID)
	if err != nil {
		return nil, fault.Internal("load debt", err)
	}
	if debt == nil {
		return nil, domain.ErrNotFound
	}
	items, err := s.repo.FindItems(ctx, s.db, debt.ID)
	if err != nil {
		return nil, fault.Internal("load debt items", err)
	}
	debt.Items = items
	return debt, nil
}

func (s *Service) ListByCustomer(ctx context.Context, tenantID, customerID snowflake.ID, limit int) ([]domain.Debt, error) {
	if tenantID == 0 {
		return nil, domain.ErrInvalidTenant
	}
	if limit <= 0 {
		limit = 100
	}
	debts, err := s.repo.ListByCustomer(ctx, s.db, tenantID, customerID, limit)
	if err != nil {
		return nil, fault.Internal("list debts", err)
	}
	return debts, nil
}
