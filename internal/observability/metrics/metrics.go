// Package metrics exposes prometheus health signals for the ledger engine.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
)

type Metrics struct {
	ledgerMutations  *prometheus.CounterVec
	ledgerFailures   *prometheus.CounterVec
	idempotencyHits  prometheus.Counter
	idempotencyMiss  prometheus.Counter
	jobRuns          *prometheus.CounterVec
	jobErrors        *prometheus.CounterVec
	jobDuration      *prometheus.HistogramVec
	agingTransitions prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ledgerMutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "debtledger_mutations_total",
			Help: "Committed ledger mutations by operation.",
		}, []string{"operation"}),
		ledgerFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "debtledger_mutation_failures_total",
			Help: "Rejected or rolled-back ledger mutations by operation and fault kind.",
		}, []string{"operation", "kind"}),
		idempotencyHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "debtledger_idempotency_hits_total",
			Help: "Payment submissions answered from the idempotency cache.",
		}),
		idempotencyMiss: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "debtledger_idempotency_misses_total",
			Help: "Payment submissions that executed the engine.",
		}),
		jobRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "debtledger_job_runs_total",
			Help: "Scheduler job executions.",
		}, []string{"job"}),
		jobErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "debtledger_job_errors_total",
			Help: "Scheduler job executions that exhausted retries.",
		}, []string{"job"}),
		jobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "debtledger_job_duration_seconds",
			Help:    "Scheduler job wall time.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		}, []string{"job"}),
		agingTransitions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "debtledger_aging_transitions_total",
			Help: "Debts whose aging bucket changed during recomputation.",
		}),
	}

	if reg != nil {
		reg.MustRegister(
			m.ledgerMutations,
			m.ledgerFailures,
			m.idempotencyHits,
			m.idempotencyMiss,
			m.jobRuns,
			m.jobErrors,
			m.jobDuration,
			m.agingTransitions,
		)
	}
	return m
}

// Nil receivers are tolerated everywhere so services can take Metrics as an
// optional dependency.

func (m *Metrics) IncMutation(operation string) {
	if m == nil {
		return
	}
	m.ledgerMutations.WithLabelValues(operation).Inc()
}

func (m *Metrics) IncMutationFailure(operation, kind string) {
	if m == nil {
		return
	}
	m.ledgerFailures.WithLabelValues(operation, kind).Inc()
}

func (m *Metrics) IncIdempotencyHit() {
	if m == nil {
		return
	}
	m.idempotencyHits.Inc()
}

func (m *Metrics) IncIdempotencyMiss() {
	if m == nil {
		return
	}
	m.idempotencyMiss.Inc()
}

func (m *Metrics) IncJobRun(job string) {
	if m == nil {
		return
	}
	m.jobRuns.WithLabelValues(job).Inc()
}

func (m *Metrics) IncJobError(job string) {
	if m == nil {
		return
	}
	m.jobErrors.WithLabelValues(job).Inc()
}

func (m *Metrics) ObserveJobDuration(job string, d time.Duration) {
	if m == nil {
		return
	}
	m.jobDuration.WithLabelValues(job).Observe(d.Seconds())
}

func (m *Metrics) AddAgingTransitions(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.agingTransitions.Add(float64(n))
}

func Provide() *Metrics {
	return New(prometheus.DefaultRegisterer)
}

var Module = fx.Module("observability.metrics",
	fx.Provide(Provide),
)
