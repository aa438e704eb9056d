// Package money implements the exact decimal quantity type used anywhere
// a value touches a ledger row or crosses the wire. Floating point never
// appears here.
package money

import (
	"fmt"
	"regexp"

	"github.com/payx/ledger/internal/apperror"
	"github.com/shopspring/decimal"
)

const scale = 4

// maxMagnitude is the ceiling on the absolute value of an amount.
var maxMagnitude = decimal.New(1, 15)

var decimalPattern = regexp.MustCompile(`^-?\d+(\.\d+)?$`)

// Money is an exact decimal amount paired with its ISO-4217 currency code.
type Money struct {
	Amount   decimal.Decimal
	Currency string
}

// New builds a Money from an already-parsed decimal, normalizing its scale.
func New(amount decimal.Decimal, currency string) Money {
	return Money{Amount: amount.Round(scale), Currency: currency}
}

// Zero returns the zero amount in the given currency.
func Zero(currency string) Money {
	return Money{Amount: decimal.Zero, Currency: currency}
}

// Parse validates and converts a decimal string and currency code into a
// Money value. It rejects non-numeric input, more than 4 fractional
// digits, and magnitudes at or beyond 10^15.
func Parse(amountStr, currency string) (Money, error) {
	if !decimalPattern.MatchString(amountStr) {
		return Money{}, apperror.Validation(fmt.Sprintf("invalid amount %q", amountStr))
	}
	if err := validateCurrency(currency); err != nil {
		return Money{}, err
	}

	parts := decimalPattern.FindStringSubmatch(amountStr)
	if frac := parts[1]; len(frac) > 0 && len(frac)-1 > scale {
		return Money{}, apperror.Validation("amount must have at most 4 fractional digits")
	}

	d, err := decimal.NewFromString(amountStr)
	if err != nil {
		return Money{}, apperror.Validation(fmt.Sprintf("invalid amount %q", amountStr))
	}
	if d.Abs().Cmp(maxMagnitude) >= 0 {
		return Money{}, apperror.Validation("amount exceeds maximum magnitude")
	}

	return Money{Amount: d.Round(scale), Currency: currency}, nil
}

func validateCurrency(code string) error {
	if len(code) != 3 {
		return apperror.Validation(fmt.Sprintf("invalid currency code %q", code))
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return apperror.Validation(fmt.Sprintf("invalid currency code %q", code))
		}
	}
	return nil
}

// String renders the amount with exactly 4 fractional digits.
func (m Money) String() string {
	return m.Amount.StringFixed(scale)
}

// IsPositive reports whether the amount is strictly greater than zero.
func (m Money) IsPositive() bool {
	return m.Amount.Sign() > 0
}

// IsNegative reports whether the amount is strictly less than zero.
func (m Money) IsNegative() bool {
	return m.Amount.Sign() < 0
}

// Equal compares both amount and currency.
func (m Money) Equal(other Money) bool {
	return m.Currency == other.Currency && m.Amount.Equal(other.Amount)
}

// Cmp compares two same-currency amounts; cross-currency comparisons fail.
func (m Money) Cmp(other Money) (int, error) {
	if m.Currency != other.Currency {
		return 0, apperror.CurrencyMismatch(m.Currency, other.Currency)
	}
	return m.Amount.Cmp(other.Amount), nil
}

// Add returns m + other, failing on currency mismatch.
func (m Money) Add(other Money) (Money, error) {
	if m.Currency != other.Currency {
		return Money{}, apperror.CurrencyMismatch(m.Currency, other.Currency)
	}
	return New(m.Amount.Add(other.Amount), m.Currency), nil
}

// Sub returns m - other, failing on currency mismatch. It does not itself
// forbid a negative result; callers enforce non-negativity where required
// (e.g. account balances).
func (m Money) Sub(other Money) (Money, error) {
	if m.Currency != other.Currency {
		return Money{}, apperror.CurrencyMismatch(m.Currency, other.Currency)
	}
	return New(m.Amount.Sub(other.Amount), m.Currency), nil
}

// GreaterThanOrEqual reports whether m >= other, for same-currency amounts.
func (m Money) GreaterThanOrEqual(other Money) (bool, error) {
	cmp, err := m.Cmp(other)
	if err != nil {
		return false, err
	}
	return cmp >= 0, nil
}
