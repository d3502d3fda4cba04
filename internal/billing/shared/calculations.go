package shared

import "github.com/shopspring/decimal"

// DiscountType selects how a document-level discount is interpreted.
type DiscountType string

const (
	DiscountPercent DiscountType = "percent"
	DiscountAmount  DiscountType = "amount"
)

// Discount is a document-level discount policy.
type Discount struct {
	Type  DiscountType
	Value decimal.Decimal
}

// Line is the minimal line input the totals calculation needs.
type Line struct {
	Quantity  decimal.Decimal
	UnitPrice decimal.Decimal
	VATRate   decimal.Decimal // fraction, 0–1
}

// Totals is the derived breakdown for a document.
type Totals struct {
	Subtotal       decimal.Decimal
	DiscountAmount decimal.Decimal
	TaxableAmount  decimal.Decimal
	VATTotal       decimal.Decimal
	GrandTotal     decimal.Decimal
}

var hundred = decimal.NewFromInt(100)

// ComputeTotals derives subtotal, discount, VAT and grand total from line items
// and an optional discount policy. The discount and the VAT total are each
// rounded once, half up to two places, rather than per line. VAT is computed on
// the discounted taxable amount, apportioned across lines by their share of the
// subtotal.
func ComputeTotals(lines []Line, discount *Discount) Totals {
	subtotal := decimal.Zero
	rawVAT := decimal.Zero
	for _, l := range lines {
		net := l.Quantity.Mul(l.UnitPrice)
		subtotal = subtotal.Add(net)
		rawVAT = rawVAT.Add(net.Mul(l.VATRate))
	}

	discountAmount := decimal.Zero
	if discount != nil && subtotal.IsPositive() {
		switch discount.Type {
		case DiscountPercent:
			pct := clamp(discount.Value, decimal.Zero, hundred)
			discountAmount = subtotal.Mul(pct).Div(hundred).Round(2)
		case DiscountAmount:
			discountAmount = clamp(discount.Value, decimal.Zero, subtotal)
		}
	}

	taxable := subtotal.Sub(discountAmount)

	vatTotal := decimal.Zero
	if subtotal.IsPositive() {
		// Apportion the discount across lines: scale the undiscounted VAT by
		// the taxable share of the subtotal, then round the total once.
		vatTotal = rawVAT.Mul(taxable).Div(subtotal).Round(2)
	}

	return Totals{
		Subtotal:       subtotal,
		DiscountAmount: discountAmount,
		TaxableAmount:  taxable,
		VATTotal:       vatTotal,
		GrandTotal:     taxable.Add(vatTotal),
	}
}

func clamp(v, lo, hi decimal.Decimal) decimal.Decimal {
	if v.LessThan(lo) {
		return lo
	}
	if v.GreaterThan(hi) {
		return hi
	}
	return v
}
