// Package money is the only type allowed to hold a monetary value inside the
// ledger. It wraps shopspring/decimal so no float64 ever participates in
// balance arithmetic; the single float escape hatch is Float64, which is for
// display and must never feed back into a computation.
package money

import (
	"database/sql/driver"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// StoragePlaces is the fixed-point scale used for persisted amounts
// (NUMERIC(20,9) columns).
const StoragePlaces = 9

// DisplayPlaces is the scale used when comparing amounts against the
// one-cent reconciliation tolerance.
const DisplayPlaces = 2

var ErrDivisionByZero = errors.New("money: division by zero")

// Tolerance is the maximum acceptable drift between a payment amount and the
// sum of its applications (0.01 currency units).
var Tolerance = Money{decimal.New(1, -2)}

type Money struct {
	d decimal.Decimal
}

func Zero() Money { return Money{} }

// New builds a Money from an integer number of minor units at the given
// exponent, e.g. New(12345, -2) == 123.45.
func New(value int64, exp int32) Money { return Money{decimal.New(value, exp)} }

func FromString(s string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, fmt.Errorf("money: parse %q: %w", s, err)
	}
	return Money{d}, nil
}

// MustParse is for constants in tests and seed data only.
func MustParse(s string) Money {
	m, err := FromString(s)
	if err != nil {
		panic(err)
	}
	return m
}

func FromInt(v int64) Money { return Money{decimal.NewFromInt(v)} }

func (m Money) Add(o Money) Money { return Money{m.d.Add(o.d)} }
func (m Money) Sub(o Money) Money { return Money{m.d.Sub(o.d)} }
func (m Money) Mul(o Money) Money { return Money{m.d.Mul(o.d)} }

func (m Money) Div(o Money) (Money, error) {
	if o.d.IsZero() {
		return Money{}, ErrDivisionByZero
	}
	return Money{m.d.DivRound(o.d, StoragePlaces)}, nil
}

func (m Money) Abs() Money { return Money{m.d.Abs()} }

func (m Money) Neg() Money { return Money{m.d.Neg()} }

// Round rounds half up (half away from zero) to the given number of places.
func (m Money) Round(places int32) Money { return Money{m.d.Round(places)} }

func (m Money) Cmp(o Money) int { return m.d.Cmp(o.d) }

func (m Money) Equal(o Money) bool              { return m.d.Equal(o.d) }
func (m Money) GreaterThan(o Money) bool        { return m.d.GreaterThan(o.d) }
func (m Money) GreaterThanOrEqual(o Money) bool { return m.d.GreaterThanOrEqual(o.d) }
func (m Money) LessThan(o Money) bool           { return m.d.LessThan(o.d) }
func (m Money) LessThanOrEqual(o Money) bool    { return m.d.LessThanOrEqual(o.d) }

func (m Money) IsZero() bool     { return m.d.IsZero() }
func (m Money) IsPositive() bool { return m.d.IsPositive() }
func (m Money) IsNegative() bool { return m.d.IsNegative() }

// WithinTolerance reports whether m and o differ by at most the 0.01
// reconciliation tolerance.
func (m Money) WithinTolerance(o Money) bool {
	return m.Sub(o).Abs().LessThanOrEqual(Tolerance)
}

func Sum(values ...Money) Money {
	total := Money{}
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}

// Storage renders the fixed-point representation persisted to NUMERIC
// columns. Lossless round trip with FromString.
func (m Money) Storage() string { return m.d.StringFixed(StoragePlaces) }

func (m Money) String() string { return m.d.String() }

// Float64 returns a display-only approximation. Unsafe for further
// computation.
func (m Money) Float64() float64 {
	f, _ := m.d.Float64()
	return f
}

// Value implements driver.Valuer.
func (m Money) Value() (driver.Value, error) { return m.Storage(), nil }

// Scan implements sql.Scanner. sqlite hands NUMERIC text back as string or
// []byte depending on the driver; postgres always as []byte.
func (m *Money) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		m.d = decimal.Decimal{}
		return nil
	case string:
		d, err := decimal.NewFromString(v)
		if err != nil {
			return fmt.Errorf("money: scan %q: %w", v, err)
		}
		m.d = d
		return nil
	case []byte:
		d, err := decimal.NewFromString(string(v))
		if err != nil {
			return fmt.Errorf("money: scan %q: %w", v, err)
		}
		m.d = d
		return nil
	case int64:
		m.d = decimal.NewFromInt(v)
		return nil
	case float64:
		// Some drivers surface NUMERIC as float64; normalize back through the
		// decimal string form at storage scale.
		m.d = decimal.NewFromFloat(v).Round(StoragePlaces)
		return nil
	default:
		return fmt.Errorf("money: cannot scan %T", src)
	}
}

func (m Money) MarshalJSON() ([]byte, error) { return m.d.MarshalJSON() }

func (m *Money) UnmarshalJSON(b []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(b); err != nil {
		return err
	}
	m.d = d
	return nil
}
