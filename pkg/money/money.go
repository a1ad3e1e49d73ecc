// Package money provides currency-safe arithmetic over payslip amounts using
// integer cents. Payslips carry Brazilian-formatted strings ("1.234,56");
// consumers convert them here, treating unparsable values as zero.
package money

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// BRL is the ISO-4217 code of every amount the importer handles.
const BRL = "BRL"

var (
	brlFormatter   = money.NewFormatter(2, ",", ".", "R$", "$ 1")
	plainFormatter = money.NewFormatter(2, ",", ".", "", "1")
)

// Money represents a monetary value with currency.
type Money struct {
	m *money.Money
}

// New creates a new Money value from cents (minor units) and currency code.
func New(amountCents int64, currencyCode string) *Money {
	return &Money{m: money.New(amountCents, currencyCode)}
}

// NewBRL creates a BRL value from cents.
func NewBRL(amountCents int64) *Money {
	return New(amountCents, BRL)
}

// Zero returns a zero Money value for the given currency
func Zero(currencyCode string) *Money {
	return New(0, currencyCode)
}

// NewFromDecimal creates Money from a decimal.Decimal value, rounding half
// away from zero to the currency's minor unit.
func NewFromDecimal(amount decimal.Decimal, currencyCode string) *Money {
	currency := money.GetCurrency(currencyCode)
	if currency == nil {
		currency = money.GetCurrency(BRL)
	}

	multiplier := decimal.New(1, int32(currency.Fraction))
	cents := amount.Mul(multiplier).Round(0).IntPart()

	return New(cents, currencyCode)
}

// NewFromString parses a string amount and currency.
// Accepts "100.50", "1,234.56" or, with brazilianFormat, "1.234,56".
// A trailing minus ("150,00-") is read as a negative amount.
func NewFromString(amount string, currencyCode string, brazilianFormat bool) (*Money, error) {
	amount = strings.Join(strings.Fields(amount), "")
	amount = strings.ReplaceAll(amount, "R$", "")
	amount = strings.ReplaceAll(amount, "$", "")

	if strings.HasSuffix(amount, "-") && !strings.HasPrefix(amount, "-") {
		amount = "-" + strings.TrimSuffix(amount, "-")
	}

	if brazilianFormat {
		amount = strings.ReplaceAll(amount, ".", "")
		amount = strings.ReplaceAll(amount, ",", ".")
	} else {
		amount = strings.ReplaceAll(amount, ",", "")
	}

	d, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("invalid amount: %w", err)
	}

	return NewFromDecimal(d, currencyCode), nil
}

// ParseBRL converts a payslip amount string into BRL. Blank or malformed
// input yields zero.
func ParseBRL(s string) *Money {
	m, err := NewFromString(s, BRL, true)
	if err != nil {
		return Zero(BRL)
	}
	return m
}

// Amount returns the amount in minor units (cents)
func (m *Money) Amount() int64 {
	if m == nil || m.m == nil {
		return 0
	}
	return m.m.Amount()
}

// Currency returns the ISO-4217 currency code
func (m *Money) Currency() string {
	if m == nil || m.m == nil {
		return ""
	}
	return m.m.Currency().Code
}

func (m *Money) IsZero() bool {
	return m == nil || m.m == nil || m.m.IsZero()
}

func (m *Money) IsNegative() bool {
	return m != nil && m.m != nil && m.m.IsNegative()
}

// Negate returns the negated value
func (m *Money) Negate() *Money {
	if m == nil || m.m == nil {
		return Zero(BRL)
	}
	return &Money{m: m.m.Negative()}
}

// Add adds two Money values. Returns error if currencies don't match.
func (m *Money) Add(other *Money) (*Money, error) {
	if m == nil || m.m == nil {
		return other, nil
	}
	if other == nil || other.m == nil {
		return m, nil
	}

	result, err := m.m.Add(other.m)
	if err != nil {
		return nil, err
	}
	return &Money{m: result}, nil
}

// Subtract subtracts other from m. Returns error if currencies don't match.
func (m *Money) Subtract(other *Money) (*Money, error) {
	if m == nil || m.m == nil {
		if other == nil {
			return Zero(BRL), nil
		}
		return other.Negate(), nil
	}
	if other == nil || other.m == nil {
		return m, nil
	}

	result, err := m.m.Subtract(other.m)
	if err != nil {
		return nil, err
	}
	return &Money{m: result}, nil
}

// Compare returns -1 if m < other, 0 if equal, 1 if m > other
func (m *Money) Compare(other *Money) int {
	switch a, b := m.Amount(), other.Amount(); {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// Sum adds values of a single currency. Nil entries count as zero.
func Sum(currencyCode string, values ...*Money) (*Money, error) {
	total := Zero(currencyCode)
	for _, v := range values {
		var err error
		if total, err = total.Add(v); err != nil {
			return nil, err
		}
	}
	return total, nil
}

// Average returns the mean of values rounded to cents; zero when empty.
func Average(currencyCode string, values ...*Money) (*Money, error) {
	if len(values) == 0 {
		return Zero(currencyCode), nil
	}
	total, err := Sum(currencyCode, values...)
	if err != nil {
		return nil, err
	}
	mean := total.ToDecimal().Div(decimal.NewFromInt(int64(len(values))))
	return NewFromDecimal(mean, currencyCode), nil
}

// PercentageOf returns m as a percentage of whole, two decimal places.
func (m *Money) PercentageOf(whole *Money) decimal.Decimal {
	if whole.IsZero() {
		return decimal.Zero
	}
	return decimal.NewFromInt(m.Amount()).
		Div(decimal.NewFromInt(whole.Amount())).
		Mul(decimal.NewFromInt(100)).
		Round(2)
}

// Display returns the amount with the real sign, e.g. "R$ 1.234,56".
func (m *Money) Display() string {
	return brlFormatter.Format(m.Amount())
}

// String returns the amount in payslip notation, e.g. "1.234,56".
func (m *Money) String() string {
	return plainFormatter.Format(m.Amount())
}

// ToDecimal converts to decimal.Decimal for precise calculations
func (m *Money) ToDecimal() decimal.Decimal {
	if m == nil || m.m == nil {
		return decimal.Zero
	}
	currency := m.m.Currency()
	d := decimal.NewFromInt(m.m.Amount())
	divisor := decimal.New(1, int32(currency.Fraction))
	return d.Div(divisor)
}

// ToFloat64 converts to float64 (use with caution for display only)
func (m *Money) ToFloat64() float64 {
	return m.ToDecimal().InexactFloat64()
}

func (m *Money) MarshalJSON() ([]byte, error) {
	if m == nil || m.m == nil {
		return json.Marshal(nil)
	}
	return json.Marshal(map[string]interface{}{
		"amount":   m.Amount(),
		"currency": m.Currency(),
		"display":  m.Display(),
	})
}

func (m *Money) UnmarshalJSON(data []byte) error {
	var v struct {
		Amount   int64  `json:"amount"`
		Currency string `json:"currency"`
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	if v.Currency == "" {
		v.Currency = BRL
	}
	m.m = money.New(v.Amount, v.Currency)
	return nil
}
