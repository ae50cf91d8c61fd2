// Package money implements fixed-point monetary values. Amounts are
// non-negative, carry a 3-letter currency code, and round to four fractional
// digits half away from zero on every construction.
package money

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

const scale = 4

var (
	ErrNegativeAmount   = errors.New("money_negative_amount")
	ErrInvalidCurrency  = errors.New("money_invalid_currency")
	ErrCurrencyMismatch = errors.New("money_currency_mismatch")
	ErrNegativeResult   = errors.New("money_negative_result")
	ErrInvalidFactor    = errors.New("money_invalid_factor")
	ErrInvalidDivisor   = errors.New("money_invalid_divisor")
)

// Money is a value pair of a non-negative fixed-point amount and a currency.
type Money struct {
	amount   decimal.Decimal
	currency string
}

// New builds a Money value, validating non-negativity and the currency code.
func New(amount decimal.Decimal, currency string) (Money, error) {
	if amount.IsNegative() {
		return Money{}, ErrNegativeAmount
	}
	code := strings.ToUpper(strings.TrimSpace(currency))
	if len(code) != 3 {
		return Money{}, ErrInvalidCurrency
	}
	return Money{amount: amount.Round(scale), currency: code}, nil
}

// NewFromString parses a decimal string into a Money value.
func NewFromString(amount, currency string) (Money, error) {
	parsed, err := decimal.NewFromString(amount)
	if err != nil {
		return Money{}, fmt.Errorf("parse amount: %w", err)
	}
	return New(parsed, currency)
}

// Zero returns a zero amount in the given currency.
func Zero(currency string) Money {
	m, err := New(decimal.Zero, currency)
	if err != nil {
		return Money{amount: decimal.Zero, currency: "USD"}
	}
	return m
}

// Amount returns the rounded decimal amount.
func (m Money) Amount() decimal.Decimal { return m.amount }

// Currency returns the normalised currency code.
func (m Money) Currency() string { return m.currency }

// IsZero reports whether the amount is zero.
func (m Money) IsZero() bool { return m.amount.IsZero() }

// IsPositive reports whether the amount is strictly positive.
func (m Money) IsPositive() bool { return m.amount.IsPositive() }

// Add returns m + other. Operands must share a currency.
func (m Money) Add(other Money) (Money, error) {
	if err := m.sameCurrency(other); err != nil {
		return Money{}, err
	}
	return New(m.amount.Add(other.amount), m.currency)
}

// Sub returns m - other, failing on underflow.
func (m Money) Sub(other Money) (Money, error) {
	if err := m.sameCurrency(other); err != nil {
		return Money{}, err
	}
	result := m.amount.Sub(other.amount)
	if result.IsNegative() {
		return Money{}, ErrNegativeResult
	}
	return New(result, m.currency)
}

// MulScalar returns m scaled by a non-negative factor.
func (m Money) MulScalar(factor decimal.Decimal) (Money, error) {
	if factor.IsNegative() {
		return Money{}, ErrInvalidFactor
	}
	return New(m.amount.Mul(factor), m.currency)
}

// DivScalar returns m divided by a strictly positive divisor.
func (m Money) DivScalar(divisor decimal.Decimal) (Money, error) {
	if !divisor.IsPositive() {
		return Money{}, ErrInvalidDivisor
	}
	return New(m.amount.DivRound(divisor, scale), m.currency)
}

// Equal reports value equality over (amount, currency).
func (m Money) Equal(other Money) bool {
	return m.currency == other.currency && m.amount.Equal(other.amount)
}

// Cmp compares amounts of same-currency values: -1, 0, or +1.
func (m Money) Cmp(other Money) (int, error) {
	if err := m.sameCurrency(other); err != nil {
		return 0, err
	}
	return m.amount.Cmp(other.amount), nil
}

func (m Money) String() string {
	return m.amount.StringFixed(scale) + " " + m.currency
}

func (m Money) sameCurrency(other Money) error {
	if m.currency != other.currency {
		return ErrCurrencyMismatch
	}
	return nil
}
