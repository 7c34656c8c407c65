package service

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/debtledger/internal/audit/domain"
	"github.com/smallbiznis/debtledger/internal/clock"
	customerdomain "github.com/smallbiznis/debtledger/internal/customer/domain"
	debtdomain "github.com/smallbiznis/debtledger/internal/debt/domain"
	"github.com/smallbiznis/debtledger/internal/fault"
	"github.com/smallbiznis/debtledger/internal/idempotency"
	"github.com/smallbiznis/debtledger/internal/money"
	obsmetrics "github.com/smallbiznis/debtledger/internal/observability/metrics"
	"github.com/smallbiznis/debtledger/internal/payment/domain"
	"github.com/smallbiznis/debtledger/internal/tenantctx"
	pkgdb "github.com/smallbiznis/debtledger/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	GenID        *snowflake.Node
	Clock        clock.Clock
	Repo         domain.Repository
	DebtRepo     debtdomain.Repository
	CustomerRepo customerdomain.Repository
	AuditSvc     auditdomain.Service
	Gate         *idempotency.Gate
	ObsMetrics   *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db           *gorm.DB
	log          *zap.Logger
	genID        *snowflake.Node
	clock        clock.Clock
	repo         domain.Repository
	debtRepo     debtdomain.Repository
	customerRepo customerdomain.Repository
	auditSvc     auditdomain.Service
	gate         *idempotency.Gate
	obsMetrics   *obsmetrics.Metrics
}

func NewService(p Params) domain.Service {
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("payment.service"),
		genID:        p.GenID,
		clock:        p.Clock,
		repo:         p.Repo,
		debtRepo:     p.DebtRepo,
		customerRepo: p.CustomerRepo,
		auditSvc:     p.AuditSvc,
		gate:         p.Gate,
		obsMetrics:   p.ObsMetrics,
	}
}

// Create applies a payment across the customer's debts as one indivisible
// unit. Steps inside the transaction either all commit or all roll back; a
// half-applied payment is data corruption, not a partial result.
func (s *Service) Create(ctx context.Context, tenantID snowflake.ID, req domain.CreatePaymentRequest) (*domain.CreatePaymentResult, error) {
	if tenantID == 0 {
		return nil, domain.ErrInvalidTenant
	}

	key := strings.TrimSpace(req.IdempotencyKey)
	if key != "" {
		if err := idempotency.ValidateKey(key); err != nil {
			return nil, err
		}
		if cached, ok := s.gate.Lookup(ctx, key); ok {
			s.obsMetrics.IncIdempotencyHit()
			return replayResult(cached)
		}
		s.obsMetrics.IncIdempotencyMiss()
	}

	if !req.Amount.IsPositive() {
		return nil, domain.ErrInvalidAmount
	}

	now := s.clock.Now()
	paidAt := now
	if req.PaidAt != nil {
		paidAt = req.PaidAt.UTC()
	}

	result := &domain.CreatePaymentResult{}
	var balancesBefore, balancesAfter map[string]any

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		customer, err := s.customerRepo.FindByID(ctx, tx, tenantID, req.CustomerID)
		if err != nil {
			return fault.Internal("load customer", err)
		}
		if customer == nil {
			return customerdomain.ErrNotFound
		}
		preVersion := customer.Version

		totalApplied := money.Zero()
		applications := make([]domain.Application, 0, len(req.AppliedToDebts))
		updatedDebts := make([]debtdomain.Debt, 0, len(req.AppliedToDebts))

		// Entries are processed strictly in input order; duplicate debt ids
		// are not merged, each application sees the outstanding left by the
		// one before it.
		for _, app := range req.AppliedToDebts {
			if !app.Amount.IsPositive() {
				return domain.ErrInvalidApplication
			}

			debt, err := s.debtRepo.FindForCustomer(ctx, tx, tenantID, req.CustomerID, app.DebtID)
			if err != nil {
				return fault.Internal("load debt", err)
			}
			if debt == nil {
				return domain.ErrDebtNotFound
			}
			// A cancelled debt still carries outstanding == total, so the
			// exceeds-outstanding check alone would let the application
			// through and push the customer's debt balance negative.
			if debt.Status == debtdomain.StatusCancelled {
				return domain.ErrDebtCancelled
			}
			if app.Amount.GreaterThan(debt.OutstandingAmount) {
				return domain.ErrExceedsOutstanding
			}

			newOutstanding := debt.OutstandingAmount.Sub(app.Amount)
			newStatus := debtdomain.NextStatus(debt.Status, newOutstanding, debt.TotalAmount)
			newBucket := debtdomain.CalcAgingBucket(newStatus, debt.DueAt, now)

			ok, err := s.debtRepo.UpdateOutstanding(ctx, tx, tenantID, debt.ID, debt.Version, debtdomain.OutstandingPatch{
				OutstandingAmount: newOutstanding,
				Status:            newStatus,
				AgingBucket:       newBucket,
			})
			if err != nil {
				return fault.Internal("update debt", err)
			}
			if !ok {
				return domain.ErrVersionConflict
			}

			totalApplied = totalApplied.Add(app.Amount)
			applications = append(applications, domain.Application{DebtID: debt.ID, Amount: app.Amount})

			debt.OutstandingAmount = newOutstanding
			debt.Status = newStatus
			debt.AgingBucket = newBucket
			debt.Version++
			updatedDebts = append(updatedDebts, *debt)
		}

		if totalApplied.GreaterThan(req.Amount) {
			return domain.ErrOverApplied
		}

		residual := req.Amount.Sub(totalApplied)
		debtBalanceAfter := customer.DebtBalance.Sub(totalApplied)
		creditBalanceAfter := customer.CreditBalance.Add(residual)

		balancesBefore = map[string]any{
			"debt_balance":   customer.DebtBalance.String(),
			"credit_balance": customer.CreditBalance.String(),
		}
		balancesAfter = map[string]any{
			"debt_balance":   debtBalanceAfter.String(),
			"credit_balance": creditBalanceAfter.String(),
		}

		updated, err := s.customerRepo.UpdateBalances(ctx, tx, tenantID, customer.ID, preVersion, customerdomain.BalancePatch{
			DebtBalance:       debtBalanceAfter,
			CreditBalance:     creditBalanceAfter,
			LastTransactionAt: &paidAt,
		})
		if err != nil {
			return fault.Internal("update customer balance", err)
		}
		if !updated {
			return domain.ErrVersionConflict
		}

		snapshot, err := json.Marshal(applications)
		if err != nil {
			return fault.Internal("encode applications", err)
		}

		payment := &domain.Payment{
			ID:             s.genID.Generate(),
			TenantID:       tenantID,
			CustomerID:     customer.ID,
			Amount:         req.Amount,
			Method:         strings.TrimSpace(req.Method),
			AppliedToDebts: datatypes.JSON(snapshot),
			AddedToCredit:  residual,
			PaidAt:         paidAt,
			CreatedBy:      tenantctx.ActorFromContext(ctx),
			CreatedAt:      now,
		}
		if key != "" {
			payment.IdempotencyKey = &key
		}

		if err := s.repo.Insert(ctx, tx, payment); err != nil {
			if pkgdb.IsDuplicateKeyErr(err) {
				return domain.ErrDuplicateKey
			}
			return fault.Internal("insert payment", err)
		}

		customer.DebtBalance = debtBalanceAfter
		customer.CreditBalance = creditBalanceAfter
		customer.Version = preVersion + 1
		customer.LastTransactionAt = &paidAt

		result.Payment = payment
		result.Customer = customer
		result.Debts = updatedDebts
		return nil
	})
	if err != nil {
		s.obsMetrics.IncMutationFailure("payment_create", string(fault.KindOf(err)))
		return nil, err
	}

	s.obsMetrics.IncMutation("payment_create")

	body, marshalErr := json.Marshal(result)
	if marshalErr != nil {
		s.log.Warn("failed to serialize payment result", zap.Error(marshalErr))
	} else {
		result.Body = body
		if key != "" {
			s.gate.Remember(ctx, key, http.StatusCreated, body)
		}
	}

	if auditErr := s.auditSvc.Record(ctx, auditdomain.RecordRequest{
		TenantID: tenantID,
		Action:   auditdomain.ActionPaymentCreate,
		Entity:   "payment",
		EntityID: result.Payment.ID,
		Payload: map[string]any{
			"customer_id":     result.Customer.ID.String(),
			"amount":          result.Payment.Amount.String(),
			"added_to_credit": result.Payment.AddedToCredit.String(),
			"applied_count":   len(req.AppliedToDebts),
			"balances_before": balancesBefore,
			"balances_after":  balancesAfter,
		},
	}); auditErr != nil {
		s.log.Warn("audit write skipped for payment create",
			zap.String("payment_id", result.Payment.ID.String()),
			zap.Error(auditErr),
		)
	}

	return result, nil
}

func replayResult(cached *idempotency.CachedResponse) (*domain.CreatePaymentResult, error) {
	var result domain.CreatePaymentResult
	if err := json.Unmarshal(cached.Body, &result); err != nil {
		return nil, fault.Internal("decode cached payment response", err)
	}
	result.Replayed = true
	result.Body = cached.Body
	return &result, nil
}

func (s *Service) GetByID(ctx context.Context, tenantID, id snowflake.ID) (*domain.Payment, error) {
	if tenantID == 0 {
		return nil, domain.ErrInvalidTenant
	}
	payment, err := s.repo.FindByID(ctx, s.db, tenantID, id)
	if err != nil {
		return nil, fault.Internal("load payment", err)
	}
	if payment == nil {
		return nil, domain.ErrNotFound
	}
	return payment, nil
}

func (s *Service) ListByCustomer(ctx context.Context, tenantID, customerID snowflake.ID, limit int) ([]domain.Payment, error) {
	if tenantID == 0 {
		return nil, domain.ErrInvalidTenant
	}
	if limit <= 0 {
		limit = 100
	}
	payments, err := s.repo.ListByCustomer(ctx, s.db, tenantID, customerID, limit)
	if err != nil {
		return nil, fault.Internal("list payments", err)
	}
	return payments, nil
}
