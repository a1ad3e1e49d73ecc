package money

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// Parsing Tests
// ============================================================================

func TestNewFromString(t *testing.T) {
	tests := []struct {
		name      string
		amount    string
		brazilian bool
		want      int64
		wantErr   bool
	}{
		{"payslip amount", "1.234,56", true, 123456, false},
		{"with currency marker", "R$ 1.500,00", true, 150000, false},
		{"small", "0,09", true, 9, false},
		{"trailing minus", "150,00-", true, -15000, false},
		{"leading minus", "-2.000,10", true, -200010, false},
		{"us notation", "1,234.56", false, 123456, false},
		{"embedded spaces", "1 234,56", true, 123456, false},
		{"empty", "", true, 0, true},
		{"garbage", "abc", true, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := NewFromString(tt.amount, BRL, tt.brazilian)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, m.Amount())
		})
	}
}

func TestParseBRL(t *testing.T) {
	assert.Equal(t, int64(123456), ParseBRL("1.234,56").Amount())
	assert.Equal(t, BRL, ParseBRL("1.234,56").Currency())

	t.Run("unparsable is zero", func(t *testing.T) {
		for _, in := range []string{"", "Não encontrado", "R$", "--"} {
			m := ParseBRL(in)
			assert.True(t, m.IsZero(), in)
			assert.Equal(t, BRL, m.Currency(), in)
		}
	})
}

// ============================================================================
// Arithmetic Tests
// ============================================================================

func TestAddSubtract(t *testing.T) {
	a, b := NewBRL(1000), NewBRL(250)

	sum, err := a.Add(b)
	require.NoError(t, err)
	assert.Equal(t, int64(1250), sum.Amount())

	diff, err := b.Subtract(a)
	require.NoError(t, err)
	assert.Equal(t, int64(-750), diff.Amount())
	assert.True(t, diff.IsNegative())

	_, err = a.Add(New(100, "USD"))
	assert.Error(t, err)
}

func TestSumAndAverage(t *testing.T) {
	values := []*Money{NewBRL(1000), NewBRL(2000), nil, NewBRL(1001)}

	sum, err := Sum(BRL, values...)
	require.NoError(t, err)
	assert.Equal(t, int64(4001), sum.Amount())

	avg, err := Average(BRL, NewBRL(1000), NewBRL(1001))
	require.NoError(t, err)
	assert.Equal(t, int64(1001), avg.Amount()) // 1000.5 rounds away from zero

	empty, err := Average(BRL)
	require.NoError(t, err)
	assert.True(t, empty.IsZero())
}

func TestCompare(t *testing.T) {
	assert.Equal(t, -1, NewBRL(1).Compare(NewBRL(2)))
	assert.Equal(t, 0, NewBRL(2).Compare(NewBRL(2)))
	assert.Equal(t, 1, NewBRL(3).Compare(NewBRL(2)))
}

func TestPercentageOf(t *testing.T) {
	part := NewBRL(42245)
	whole := NewBRL(163636)

	assert.True(t, decimal.RequireFromString("25.82").Equal(part.PercentageOf(whole)))
	assert.True(t, part.PercentageOf(Zero(BRL)).IsZero())
}

// ============================================================================
// Formatting Tests
// ============================================================================

func TestFormatting(t *testing.T) {
	tests := []struct {
		cents   int64
		plain   string
		display string
	}{
		{123456, "1.234,56", "R$ 1.234,56"},
		{5, "0,05", "R$ 0,05"},
		{-15000, "-150,00", "-R$ 150,00"},
		{100000000, "1.000.000,00", "R$ 1.000.000,00"},
	}

	for _, tt := range tests {
		t.Run(tt.plain, func(t *testing.T) {
			m := NewBRL(tt.cents)
			assert.Equal(t, tt.plain, m.String())
			assert.Equal(t, tt.display, m.Display())
		})
	}
}

func TestStringRoundTrip(t *testing.T) {
	for _, s := range []string{"1.234,56", "0,05", "987.654,32"} {
		assert.Equal(t, s, ParseBRL(s).String())
	}
}

// ============================================================================
// JSON and Nil Safety Tests
// ============================================================================

func TestJSON(t *testing.T) {
	data, err := json.Marshal(NewBRL(123456))
	require.NoError(t, err)
	assert.JSONEq(t, `{"amount":123456,"currency":"BRL","display":"R$ 1.234,56"}`, string(data))

	var m Money
	require.NoError(t, json.Unmarshal([]byte(`{"amount":500}`), &m))
	assert.Equal(t, int64(500), m.Amount())
	assert.Equal(t, BRL, m.Currency())
}

func TestNilSafety(t *testing.T) {
	var m *Money

	assert.Equal(t, int64(0), m.Amount())
	assert.Equal(t, "", m.Currency())
	assert.True(t, m.IsZero())
	assert.False(t, m.IsNegative())
	assert.Equal(t, "0,00", m.String())
	assert.True(t, m.ToDecimal().IsZero())
	assert.Equal(t, int64(0), m.Negate().Amount())
}
