package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/debtledger/internal/audit/domain"
	"github.com/smallbiznis/debtledger/internal/tenantctx"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  auditdomain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	repo  auditdomain.Repository
}

func NewService(p Params) auditdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("audit.service"),
		genID: p.GenID,
		repo:  p.Repo,
	}
}

func (s *Service) Record(ctx context.Context, req auditdomain.RecordRequest) error {
	if req.TenantID == 0 {
		return auditdomain.ErrInvalidTenant
	}
	if strings.TrimSpace(string(req.Action)) == "" {
		return auditdomain.ErrInvalidAction
	}

	entity := strings.TrimSpace(req.Entity)
	if entity == "" {
		entity = "unknown"
	}

	payload := map[string]any{}
	for key, value := range req.Payload {
		if key == "" {
			continue
		}
		payload[key] = value
	}

	entry := auditdomain.AuditLog{
		ID:        s.genID.Generate(),
		TenantID:  req.TenantID,
		ActorID:   tenantctx.ActorFromContext(ctx),
		Action:    req.Action,
		Entity:    entity,
		EntityID:  req.EntityID,
		Payload:   datatypes.JSONMap(payload),
		CreatedAt: time.Now().UTC(),
	}

	if err := s.repo.Insert(ctx, s.db, &entry); err != nil {
		s.log.Warn("failed to write audit log",
			zap.String("action", string(req.Action)),
			zap.Error(err),
		)
		return err
	}
	return nil
}

func (s *Service) ListSince(ctx context.Context, tenantID snowflake.ID, since time.Time, limit int) ([]auditdomain.AuditLog, error) {
	if tenantID == 0 {
		return nil, auditdomain.ErrInvalidTenant
	}
	if limit <= 0 {
		limit = 100
	}
	if limit > 1000 {
		limit = 1000
	}
	return s.repo.ListSince(ctx, s.db, tenantID, since, limit)
}
