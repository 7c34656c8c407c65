package money

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArithmetic(t *testing.T) {
	a := MustParse("100.10")
	b := MustParse("0.20")

	assert.Equal(t, "100.3", a.Add(b).String())
	assert.Equal(t, "99.9", a.Sub(b).String())
	assert.Equal(t, "20.02", a.Mul(b).String())

	q, err := a.Div(b)
	require.NoError(t, err)
	assert.Equal(t, "500.5", q.String())

	_, err = a.Div(Zero())
	assert.ErrorIs(t, err, ErrDivisionByZero)
}

func TestNoBinaryRoundingDrift(t *testing.T) {
	// 0.1 + 0.2 must be exactly 0.3, the classic float64 failure.
	sum := MustParse("0.1").Add(MustParse("0.2"))
	assert.True(t, sum.Equal(MustParse("0.3")))

	// Summing a cent a thousand times is exactly ten units.
	total := Zero()
	for i := 0; i < 1000; i++ {
		total = total.Add(MustParse("0.01"))
	}
	assert.True(t, total.Equal(MustParse("10")))
}

func TestRoundHalfUp(t *testing.T) {
	assert.Equal(t, "2.35", MustParse("2.345").Round(2).String())
	assert.Equal(t, "2.34", MustParse("2.344").Round(2).String())
	assert.Equal(t, "-2.35", MustParse("-2.345").Round(2).String())
}

func TestComparisonsAndSigns(t *testing.T) {
	assert.True(t, MustParse("5").GreaterThan(MustParse("4.999999999")))
	assert.True(t, MustParse("5").GreaterThanOrEqual(MustParse("5")))
	assert.True(t, MustParse("-1").IsNegative())
	assert.True(t, MustParse("1").IsPositive())
	assert.True(t, Zero().IsZero())
	assert.Equal(t, 0, MustParse("1.50").Cmp(MustParse("1.5")))
}

func TestSumAndTolerance(t *testing.T) {
	total := Sum(MustParse("10.00"), MustParse("20.00"), MustParse("0.005"))
	assert.Equal(t, "30.005", total.String())

	assert.True(t, MustParse("100.00").WithinTolerance(MustParse("100.009")))
	assert.False(t, MustParse("100.00").WithinTolerance(MustParse("100.02")))
}

func TestStorageRoundTrip(t *testing.T) {
	m := MustParse("1234.567890123")
	stored := m.Storage()
	assert.Equal(t, "1234.567890123", stored)

	back, err := FromString(stored)
	require.NoError(t, err)
	assert.True(t, m.Equal(back))
}

func TestScan(t *testing.T) {
	var m Money
	require.NoError(t, m.Scan("12.500000000"))
	assert.True(t, m.Equal(MustParse("12.5")))

	require.NoError(t, m.Scan([]byte("7.25")))
	assert.True(t, m.Equal(MustParse("7.25")))

	require.NoError(t, m.Scan(int64(3)))
	assert.True(t, m.Equal(MustParse("3")))

	assert.Error(t, m.Scan(struct{}{}))
}

func TestJSON(t *testing.T) {
	type payload struct {
		Amount Money `json:"amount"`
	}
	out, err := json.Marshal(payload{Amount: MustParse("99.95")})
	require.NoError(t, err)
	assert.Equal(t, `{"amount":"99.95"}`, string(out))

	var in payload
	require.NoError(t, json.Unmarshal(out, &in))
	assert.True(t, in.Amount.Equal(MustParse("99.95")))
}

func TestFloat64IsDisplayOnly(t *testing.T) {
	assert.InDelta(t, 19.99, MustParse("19.99").Float64(), 1e-9)
}
