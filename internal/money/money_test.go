package money_test

import (
	"testing"

	"github.com/payx/ledger/internal/apperror"
	"github.com/payx/ledger/internal/money"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_RoundTrip(t *testing.T) {
	tests := []struct {
		name     string
		amount   string
		currency string
		want     string
	}{
		{"whole number", "100", "USD", "100.0000"},
		{"four fractional digits", "99.9999", "USD", "99.9999"},
		{"negative", "-50.25", "EUR", "-50.2500"},
		{"zero", "0", "JPY", "0.0000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := money.Parse(tt.amount, tt.currency)
			require.NoError(t, err)
			assert.Equal(t, tt.want, m.String())
			assert.Equal(t, tt.currency, m.Currency)
		})
	}
}

func TestParse_Rejections(t *testing.T) {
	tests := []struct {
		name     string
		amount   string
		currency string
	}{
		{"non-numeric", "abc", "USD"},
		{"too many fractional digits", "1.23456", "USD"},
		{"magnitude at ceiling", "1000000000000000", "USD"},
		{"lowercase currency", "10.00", "usd"},
		{"two-letter currency", "10.00", "US"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := money.Parse(tt.amount, tt.currency)
			require.Error(t, err)
			appErr, ok := err.(*apperror.Error)
			require.True(t, ok)
			assert.Equal(t, apperror.KindValidation, appErr.Kind)
		})
	}
}

func TestAdd(t *testing.T) {
	a, err := money.Parse("10.00", "USD")
	require.NoError(t, err)
	b, err := money.Parse("5.50", "USD")
	require.NoError(t, err)

	sum, err := a.Add(b)
	require.NoError(t, err)
	assert.Equal(t, "15.5000", sum.String())
}

func TestAdd_CurrencyMismatch(t *testing.T) {
	usd, err := money.Parse("10.00", "USD")
	require.NoError(t, err)
	eur, err := money.Parse("10.00", "EUR")
	require.NoError(t, err)

	_, err = usd.Add(eur)
	require.Error(t, err)
	appErr, ok := err.(*apperror.Error)
	require.True(t, ok)
	assert.Equal(t, apperror.KindCurrencyMismatch, appErr.Kind)
}

func TestSub(t *testing.T) {
	a, err := money.Parse("10.00", "USD")
	require.NoError(t, err)
	b, err := money.Parse("3.25", "USD")
	require.NoError(t, err)

	diff, err := a.Sub(b)
	require.NoError(t, err)
	assert.Equal(t, "6.7500", diff.String())
}

func TestEqual(t *testing.T) {
	a, err := money.Parse("10.00", "USD")
	require.NoError(t, err)
	b, err := money.Parse("10.0000", "USD")
	require.NoError(t, err)
	c, err := money.Parse("10.00", "EUR")
	require.NoError(t, err)

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
}

func TestGreaterThanOrEqual(t *testing.T) {
	ten, err := money.Parse("10.00", "USD")
	require.NoError(t, err)
	five, err := money.Parse("5.00", "USD")
	require.NoError(t, err)

	ok, err := ten.GreaterThanOrEqual(five)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = five.GreaterThanOrEqual(ten)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestIsPositiveIsNegative(t *testing.T) {
	pos, err := money.Parse("1.00", "USD")
	require.NoError(t, err)
	neg, err := money.Parse("-1.00", "USD")
	require.NoError(t, err)
	zero := money.Zero("USD")

	assert.True(t, pos.IsPositive())
	assert.False(t, pos.IsNegative())
	assert.True(t, neg.IsNegative())
	assert.False(t, neg.IsPositive())
	assert.False(t, zero.IsPositive())
	assert.False(t, zero.IsNegative())
}
