package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/debtledger/internal/audit/domain"
	customerdomain "github.com/smallbiznis/debtledger/internal/customer/domain"
	debtdomain "github.com/smallbiznis/debtledger/internal/debt/domain"
	"github.com/smallbiznis/debtledger/internal/fault"
	paymentdomain "github.com/smallbiznis/debtledger/internal/payment/domain"
	"github.com/smallbiznis/debtledger/internal/sync/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const fullSyncLimit = 5000

type Params struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	CustomerRepo customerdomain.Repository
	DebtRepo     debtdomain.Repository
	PaymentRepo  paymentdomain.Repository
	AuditSvc     auditdomain.Service
}

type Service struct {
	db           *gorm.DB
	log          *zap.Logger
	customerRepo customerdomain.Repository
	debtRepo     debtdomain.Repository
	paymentRepo  paymentdomain.Repository
	auditSvc     auditdomain.Service
}

func NewService(p Params) domain.Service {
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("sync.service"),
		customerRepo: p.CustomerRepo,
		debtRepo:     p.DebtRepo,
		paymentRepo:  p.PaymentRepo,
		auditSvc:     p.AuditSvc,
	}
}

func (s *Service) PushChanges(ctx context.Context, tenantID snowflake.ID, changesets []domain.Changeset) (*domain.PushResult, error) {
	if tenantID == 0 {
		return nil, domain.ErrInvalidTenant
	}
	if len(changesets) == 0 {
		return nil, domain.ErrNoChangesets
	}

	result := &domain.PushResult{
		Applied:   []domain.Applied{},
		Conflicts: []domain.Conflict{},
	}

	for _, cs := range changesets {
		applied, conflict := s.applyChangeset(ctx, tenantID, cs)
		if conflict != nil {
			result.Conflicts = append(result.Conflicts, *conflict)
			continue
		}
		result.Applied = append(result.Applied, *applied)

		if auditErr := s.auditSvc.Record(ctx, auditdomain.RecordRequest{
			TenantID: tenantID,
			Action:   auditdomain.ActionSyncPush,
			Entity:   string(cs.Entity),
			EntityID: cs.EntityID,
			Payload: map[string]any{
				"client_version": cs.ClientVersion,
				"new_version":    applied.NewVersion,
			},
		}); auditErr != nil {
			s.log.Warn("audit write skipped for sync push",
				zap.String("entity_id", cs.EntityID.String()),
				zap.Error(auditErr),
			)
		}
	}

	return result, nil
}

// applyChangeset resolves one changeset under server-wins rules. Accepted
// overwrites are restricted to fields that cannot violate ledger invariants;
// balances and amounts only move through the validated mutation paths.
func (s *Service) applyChangeset(ctx context.Context, tenantID snowflake.ID, cs domain.Changeset) (*domain.Applied, *domain.Conflict) {
	switch cs.Entity {
	case domain.EntityCustomer:
		return s.applyCustomerChangeset(ctx, tenantID, cs)
	case domain.EntityDebt:
		return s.applyDebtChangeset(ctx, tenantID, cs)
	default:
		// Payments are immutable; everything else is unknown.
		return nil, &domain.Conflict{
			Entity:   cs.Entity,
			EntityID: cs.EntityID,
			Reason:   domain.ReasonUnsupportedEntity,
		}
	}
}

func (s *Service) applyCustomerChangeset(ctx context.Context, tenantID snowflake.ID, cs domain.Changeset) (*domain.Applied, *domain.Conflict) {
	customer, err := s.customerRepo.FindByID(ctx, s.db, tenantID, cs.EntityID)
	if err != nil || customer == nil {
		return nil, &domain.Conflict{Entity: cs.Entity, EntityID: cs.EntityID, Reason: domain.ReasonNotFound}
	}
	if customer.Version != cs.ClientVersion {
		return nil, &domain.Conflict{
			Entity:         cs.Entity,
			EntityID:       cs.EntityID,
			Reason:         domain.ReasonVersionMismatch,
			ServerVersion:  customer.Version,
			ServerSnapshot: customer,
		}
	}

	var data domain.CustomerSyncData
	if err := json.Unmarshal(cs.Data, &data); err != nil {
		return nil, &domain.Conflict{Entity: cs.Entity, EntityID: cs.EntityID, Reason: domain.ReasonInvalidData}
	}

	ok, err := s.customerRepo.UpdateSyncFields(ctx, s.db, tenantID, customer.ID, cs.ClientVersion, customerdomain.SyncPatch{
		Name:     data.Name,
		Email:    data.Email,
		IsActive: data.IsActive,
	})
	if err != nil || !ok {
		// Lost a race between the version check and the write; re-read for
		// the authoritative snapshot.
		current, _ := s.customerRepo.FindByID(ctx, s.db, tenantID, cs.EntityID)
		conflict := &domain.Conflict{Entity: cs.Entity, EntityID: cs.EntityID, Reason: domain.ReasonVersionMismatch}
		if current != nil {
			conflict.ServerVersion = current.Version
			conflict.ServerSnapshot = current
		}
		return nil, conflict
	}

	return &domain.Applied{Entity: cs.Entity, EntityID: cs.EntityID, NewVersion: cs.ClientVersion + 1}, nil
}

func (s *Service) applyDebtChangeset(ctx context.Context, tenantID snowflake.ID, cs domain.Changeset) (*domain.Applied, *domain.Conflict) {
	debt, err := s.debtRepo.FindByID(ctx, s.db, tenantID, cs.EntityID)
	if err != nil || debt == nil {
		return nil, &domain.Conflict{Entity: cs.Entity, EntityID: cs.EntityID, Reason: domain.ReasonNotFound}
	}
	if debt.Version != cs.ClientVersion {
		return nil, &domain.Conflict{
			Entity:         cs.Entity,
			EntityID:       cs.EntityID,
			Reason:         domain.ReasonVersionMismatch,
			ServerVersion:  debt.Version,
			ServerSnapshot: debt,
		}
	}

	var data domain.DebtSyncData
	if err := json.Unmarshal(cs.Data, &data); err != nil {
		return nil, &domain.Conflict{Entity: cs.Entity, EntityID: cs.EntityID, Reason: domain.ReasonInvalidData}
	}

	ok, err := s.debtRepo.UpdateSyncFields(ctx, s.db, tenantID, debt.ID, cs.ClientVersion, debtdomain.SyncPatch{
		Reference: data.Reference,
		DueAt:     data.DueAt.UTC(),
	})
	if err != nil || !ok {
		current, _ := s.debtRepo.FindByID(ctx, s.db, tenantID, cs.EntityID)
		conflict := &domain.Conflict{Entity: cs.Entity, EntityID: cs.EntityID, Reason: domain.ReasonVersionMismatch}
		if current != nil {
			conflict.ServerVersion = current.Version
			conflict.ServerSnapshot = current
		}
		return nil, conflict
	}

	return &domain.Applied{Entity: cs.Entity, EntityID: cs.EntityID, NewVersion: cs.ClientVersion + 1}, nil
}

func (s *Service) GetChanges(ctx context.Context, tenantID snowflake.ID, since time.Time, limit int) (*domain.GetChangesResult, error) {
	if tenantID == 0 {
		return nil, domain.ErrInvalidTenant
	}
	if limit <= 0 {
		limit = 100
	}

	// Fetch one extra row to detect whether the tail continues.
	entries, err := s.auditSvc.ListSince(ctx, tenantID, since, limit+1)
	if err != nil {
		return nil, fault.Internal("read audit tail", err)
	}

	hasMore := len(entries) > limit
	if hasMore {
		entries = entries[:limit]
	}

	result := &domain.GetChangesResult{
		Changes: entries,
		HasMore: hasMore,
	}
	if len(entries) > 0 {
		result.LastTimestamp = entries[len(entries)-1].CreatedAt
	} else {
		result.LastTimestamp = since
	}
	return result, nil
}

func (s *Service) GetFullSync(ctx context.Context, tenantID snowflake.ID, entities []domain.EntityKind) (*domain.FullSyncResult, error) {
	if tenantID == 0 {
		return nil, domain.ErrInvalidTenant
	}
	if len(entities) == 0 {
		entities = []domain.EntityKind{domain.EntityCustomer, domain.EntityDebt, domain.EntityPayment}
	}

	result := &domain.FullSyncResult{}
	for _, kind := range entities {
		switch kind {
		case domain.EntityCustomer:
			customers, err := s.customerRepo.List(ctx, s.db, tenantID, fullSyncLimit)
			if err != nil {
				return nil, fault.Internal("dump customers", err)
			}
			result.Customers = customers
		case domain.EntityDebt:
			debts, err := s.debtRepo.ListByTenant(ctx, s.db, tenantID, fullSyncLimit)
			if err != nil {
				return nil, fault.Internal("dump debts", err)
			}
			result.Debts = debts
		case domain.EntityPayment:
			payments, err := s.paymentRepo.ListByTenant(ctx, s.db, tenantID, fullSyncLimit)
			if err != nil {
				return nil, fault.Internal("dump payments", err)
			}
			result.Payments = payments
		}
	}
	return result, nil
}
