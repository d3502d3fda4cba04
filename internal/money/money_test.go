package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestRound2HalfUp(t *testing.T) {
	require.True(t, Round2(MustParse("1.005")).Equal(MustParse("1.01")))
	require.True(t, Round2(MustParse("1.004")).Equal(MustParse("1.00")))
	require.True(t, Round2(MustParse("2.675")).Equal(MustParse("2.68")))
}

func TestEqualWithinTolerance(t *testing.T) {
	require.True(t, Equal(MustParse("100.00"), MustParse("100.01")))
	require.True(t, Equal(MustParse("100.01"), MustParse("100.00")))
	require.False(t, Equal(MustParse("100.00"), MustParse("100.02")))
}

func TestSettled(t *testing.T) {
	require.True(t, Settled(decimal.Zero))
	require.True(t, Settled(MustParse("0.01")))
	require.True(t, Settled(MustParse("-5.00")))
	require.False(t, Settled(MustParse("0.02")))
}

func TestExceeds(t *testing.T) {
	require.False(t, Exceeds(MustParse("49.99"), MustParse("50.00")))
	require.False(t, Exceeds(MustParse("50.00"), MustParse("50.00")))
	require.True(t, Exceeds(MustParse("50.01"), MustParse("50.00")))
	require.True(t, Exceeds(MustParse("50.02"), MustParse("50.00")))
}

func TestValidateCurrency(t *testing.T) {
	require.NoError(t, ValidateCurrency("EUR"))
	require.NoError(t, ValidateCurrency("USD"))
	require.Error(t, ValidateCurrency("EURO"))
	require.Error(t, ValidateCurrency(""))
}

func TestParse(t *testing.T) {
	d, err := Parse("123.45")
	require.NoError(t, err)
	require.Equal(t, "123.45", d.StringFixed(2))

	_, err = Parse("not-a-number")
	require.Error(t, err)
}
