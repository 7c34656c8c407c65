package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/debtledger/internal/clock"
	"github.com/smallbiznis/debtledger/internal/config"
	debtdomain "github.com/smallbiznis/debtledger/internal/debt/domain"
	obsmetrics "github.com/smallbiznis/debtledger/internal/observability/metrics"
	"github.com/smallbiznis/debtledger/internal/tenantctx"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var ErrInvalidConfig = errors.New("scheduler: missing dependencies")

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	Clock      clock.Clock
	Config     config.Config
	DebtRepo   debtdomain.Repository
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

type Scheduler struct {
	db         *gorm.DB
	log        *zap.Logger
	clock      clock.Clock
	cfg        config.SchedulerConfig
	debtRepo   debtdomain.Repository
	obsMetrics *obsmetrics.Metrics
}

func New(p Params) (*Scheduler, error) {
	if p.DB == nil || p.Log == nil || p.Clock == nil || p.DebtRepo == nil {
		return nil, ErrInvalidConfig
	}
	cfg := withDefaults(p.Config.Scheduler)
	return &Scheduler{
		db:         p.DB,
		log:        p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		clock:      p.Clock,
		cfg:        cfg,
		debtRepo:   p.DebtRepo,
		obsMetrics: p.ObsMetrics,
	}, nil
}

func withDefaults(cfg config.SchedulerConfig) config.SchedulerConfig {
	if cfg.AgingInterval <= 0 {
		cfg.AgingInterval = 24 * time.Hour
	}
	if cfg.AgingBatchSize <= 0 {
		cfg.AgingBatchSize = 500
	}
	if cfg.AgingMaxAttempts <= 0 {
		cfg.AgingMaxAttempts = 3
	}
	if cfg.AgingBackoffBase <= 0 {
		cfg.AgingBackoffBase = time.Minute
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = 10 * time.Minute
	}
	return cfg
}

// RunForever drives the daily aging recomputation until ctx is cancelled. A
// run that exhausts its retries is reported and picked up again on the next
// tick; it never takes the process down.
func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.AgingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runJob(ctx, "aging_recomputation", func(jobCtx context.Context) error {
				_, err := s.RunAgingRecomputation(jobCtx, 0)
				return err
			})
		}
	}
}

// runJob executes fn with a per-run timeout and retry with exponential
// backoff. All attempts share the job deadline so a hung store cannot stall
// the loop.
func (s *Scheduler) runJob(parent context.Context, name string, fn func(ctx context.Context) error) {
	start := s.clock.Now()
	ctx, cancel := context.WithTimeout(parent, s.cfg.JobTimeout)
	defer cancel()

	ctx = tenantctx.WithActor(ctx, "scheduler")
	log := s.log.With(zap.String("job", name))
	s.obsMetrics.IncJobRun(name)

	var err error
	for attempt := 1; attempt <= s.cfg.AgingMaxAttempts; attempt++ {
		err = fn(ctx)
		if err == nil {
			break
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			break
		}
		if attempt == s.cfg.AgingMaxAttempts {
			break
		}

		delay := s.cfg.AgingBackoffBase << (attempt - 1)
		log.Warn("job attempt failed, backing off",
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err),
		)
		select {
		case <-ctx.Done():
			err = ctx.Err()
		case <-time.After(delay):
			continue
		}
		break
	}

	s.obsMetrics.ObserveJobDuration(name, time.Since(start))
	if err != nil {
		s.obsMetrics.IncJobError(name)
		log.Error("job exhausted retries", zap.Error(err))
		return
	}
	log.Info("job finished", zap.Duration("took", s.clock.Now().Sub(start)))
}

type AgingStats struct {
	Scanned int
	Changed int
}

// RunAgingRecomputation reclassifies every open or partial debt and writes
// only the rows whose bucket actually changed. Running it twice back to back
// produces zero additional writes the second time. A tenantID of zero
// recomputes every tenant.
func (s *Scheduler) RunAgingRecomputation(ctx context.Context, tenantID snowflake.ID) (AgingStats, error) {
	now := s.clock.Now()
	var stats AgingStats
	var afterID snowflake.ID

	for {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		rows, err := s.debtRepo.ScanForAging(ctx, s.db, tenantID, afterID, s.cfg.AgingBatchSize)
		if err != nil {
			return stats, err
		}
		if len(rows) == 0 {
			break
		}

		for _, row := range rows {
			stats.Scanned++
			next := debtdomain.CalcAgingBucket(row.Status, row.DueAt, now)
			if next == row.AgingBucket {
				continue
			}
			changed, err := s.debtRepo.UpdateAgingBucket(ctx, s.db, row.ID, row.AgingBucket, next)
			if err != nil {
				return stats, err
			}
			if changed {
				stats.Changed++
			}
		}

		afterID = rows[len(rows)-1].ID
		if len(rows) < s.cfg.AgingBatchSize {
			break
		}
	}

	s.obsMetrics.AddAgingTransitions(stats.Changed)
	s.log.Info("aging recomputation complete",
		zap.Int("scanned", stats.Scanned),
		zap.Int("changed", stats.Changed),
		zap.String("tenant_id", tenantID.String()),
	)
	return stats, nil
}
