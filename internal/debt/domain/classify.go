package domain

import (
	"time"

	"github.com/smallbiznis/debtledger/internal/money"
)

// CalcAgingBucket classifies how overdue a debt is. Pure and deterministic
// given (status, dueAt, now) so the recomputation job can re-derive it at any
// time without extra state. Paid and cancelled debts always read as current.
func CalcAgingBucket(status Status, dueAt, now time.Time) AgingBucket {
	if status == StatusPaid || status == StatusCancelled {
		return BucketCurrent
	}

	daysOverdue := int(now.Sub(dueAt) / (24 * time.Hour))
	if now.Before(dueAt) {
		return BucketCurrent
	}

	switch {
	case daysOverdue <= 30:
		return Bucket0To30
	case daysOverdue <= 60:
		return Bucket31To60
	case daysOverdue <= 90:
		return Bucket61To90
	default:
		return BucketOver90
	}
}

// NextStatus evaluates the status state machine after an outstanding-amount
// change. Cancelled is absorbing and paid is terminal; only open and partial
// transition.
func NextStatus(current Status, outstanding, total money.Money) Status {
	if current == StatusCancelled || current == StatusPaid {
		return current
	}

	switch {
	case outstanding.IsZero():
		return StatusPaid
	case outstanding.Equal(total):
		return StatusOpen
	default:
		return StatusPartial
	}
}
