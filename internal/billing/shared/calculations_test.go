package shared

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ledgerline/ledgerline/internal/money"
)

func line(qty, price, rate string) Line {
	return Line{
		Quantity:  money.MustParse(qty),
		UnitPrice: money.MustParse(price),
		VATRate:   money.MustParse(rate),
	}
}

func TestComputeTotalsPercentDiscount(t *testing.T) {
	// 10% on a 200.00 subtotal, 18% VAT on the discounted base.
	totals := ComputeTotals(
		[]Line{line("2", "100.00", "0.18")},
		&Discount{Type: DiscountPercent, Value: money.MustParse("10")},
	)

	require.Equal(t, "200.00", totals.Subtotal.StringFixed(2))
	require.Equal(t, "20.00", totals.DiscountAmount.StringFixed(2))
	require.Equal(t, "180.00", totals.TaxableAmount.StringFixed(2))
	require.Equal(t, "32.40", totals.VATTotal.StringFixed(2))
	require.Equal(t, "212.40", totals.GrandTotal.StringFixed(2))
}

func TestComputeTotalsAmountDiscountClamped(t *testing.T) {
	totals := ComputeTotals(
		[]Line{line("1", "50.00", "0")},
		&Discount{Type: DiscountAmount, Value: money.MustParse("80.00")},
	)
	require.Equal(t, "50.00", totals.DiscountAmount.StringFixed(2))
	require.Equal(t, "0.00", totals.GrandTotal.StringFixed(2))
}

func TestComputeTotalsPercentClamped(t *testing.T) {
	totals := ComputeTotals(
		[]Line{line("1", "100.00", "0")},
		&Discount{Type: DiscountPercent, Value: money.MustParse("150")},
	)
	require.Equal(t, "100.00", totals.DiscountAmount.StringFixed(2))

	totals = ComputeTotals(
		[]Line{line("1", "100.00", "0")},
		&Discount{Type: DiscountPercent, Value: money.MustParse("-5")},
	)
	require.Equal(t, "0.00", totals.DiscountAmount.StringFixed(2))
}

func TestComputeTotalsVATApportionedAcrossRates(t *testing.T) {
	// Two lines at different rates with a 50% discount: VAT halves exactly.
	totals := ComputeTotals(
		[]Line{
			line("1", "100.00", "0.20"), // 20.00 undiscounted VAT
			line("1", "100.00", "0.10"), // 10.00 undiscounted VAT
		},
		&Discount{Type: DiscountPercent, Value: money.MustParse("50")},
	)
	require.Equal(t, "100.00", totals.TaxableAmount.StringFixed(2))
	require.Equal(t, "15.00", totals.VATTotal.StringFixed(2))
	require.Equal(t, "115.00", totals.GrandTotal.StringFixed(2))
}

func TestComputeTotalsRoundsOnce(t *testing.T) {
	// Three lines of 0.333 each would drift if rounded per line.
	totals := ComputeTotals(
		[]Line{
			line("1", "0.333", "0"),
			line("1", "0.333", "0"),
			line("1", "0.333", "0"),
		},
		&Discount{Type: DiscountPercent, Value: money.MustParse("10")},
	)
	require.Equal(t, "0.999", totals.Subtotal.String())
	require.Equal(t, "0.10", totals.DiscountAmount.StringFixed(2))
}

func TestComputeTotalsEmptyLines(t *testing.T) {
	totals := ComputeTotals(nil, &Discount{Type: DiscountPercent, Value: money.MustParse("10")})
	require.True(t, totals.Subtotal.IsZero())
	require.True(t, totals.GrandTotal.IsZero())
}

func TestComputeTotalsNoDiscount(t *testing.T) {
	totals := ComputeTotals([]Line{line("3", "19.99", "0.19")}, nil)
	require.Equal(t, "59.97", totals.Subtotal.StringFixed(2))
	require.Equal(t, "59.97", totals.TaxableAmount.StringFixed(2))
	require.Equal(t, "11.39", totals.VATTotal.StringFixed(2))
	require.Equal(t, "71.36", totals.GrandTotal.StringFixed(2))
}
