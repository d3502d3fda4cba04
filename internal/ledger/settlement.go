// Package ledger is the read side of billing: settlement figures, payment
// validation, the invoice timeline and the audit trail, assembled from the
// documents the billing services write.
package ledger

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/ledgerline/ledgerline/internal/billing/invoices"
	"github.com/ledgerline/ledgerline/internal/money"
)

// SettlementView is the settlement position of one invoice.
//
// RemainingBalance is the authoritative figure: gross total minus credit note
// gross minus payments. PaymentsOutstanding ignores credits and only reports
// what cash is still expected against the original gross, clamped at zero;
// it is informational and never used for validation.
type SettlementView struct {
	InvoiceID           string          `json:"invoice_id"`
	Currency            string          `json:"currency"`
	GrossTotal          decimal.Decimal `json:"gross_total"`
	TotalCredits        decimal.Decimal `json:"total_credits"`
	TotalPayments       decimal.Decimal `json:"total_payments"`
	RemainingBalance    decimal.Decimal `json:"remaining_balance"`
	PaymentsOutstanding decimal.Decimal `json:"payments_outstanding"`
	Status              invoices.Status `json:"status"`
	ComputedAt          time.Time       `json:"computed_at"`
}

// Settled reports whether the remaining balance is inside the settlement
// tolerance.
func (v SettlementView) Settled() bool {
	return money.Settled(v.RemainingBalance)
}

// Settle computes the settlement view for an invoice from its credit notes
// and payments. Credit notes count at gross value, rounded per note. The
// remaining balance may go negative when credits and payments overshoot;
// it is reported as-is rather than clamped.
func Settle(inv *invoices.Invoice, notes []invoices.CreditNote, payments []invoices.Payment, now time.Time) SettlementView {
	gross := inv.GrossTotal()

	credits := decimal.Zero
	for _, n := range notes {
		credits = credits.Add(n.GrossAmount())
	}
	paid := decimal.Zero
	for _, p := range payments {
		paid = paid.Add(p.Amount)
	}

	remaining := gross.Sub(credits).Sub(paid)
	outstanding := gross.Sub(paid)
	if outstanding.IsNegative() {
		outstanding = decimal.Zero
	}
	return SettlementView{
		InvoiceID:           inv.ID.String(),
		Currency:            inv.Currency,
		GrossTotal:          gross,
		TotalCredits:        credits,
		TotalPayments:       paid,
		RemainingBalance:    remaining,
		PaymentsOutstanding: outstanding,
		Status:              settlementStatus(inv, remaining, paid, now),
		ComputedAt:          now.UTC(),
	}
}

func settlementStatus(inv *invoices.Invoice, remaining, paid decimal.Decimal, now time.Time) invoices.Status {
	switch {
	case !inv.IsIssued:
		return invoices.StatusDraft
	case money.Settled(remaining):
		return invoices.StatusPaid
	case paid.IsPositive():
		return invoices.StatusPartiallyPaid
	case inv.DueDate.Before(now):
		return invoices.StatusOverdue
	default:
		return invoices.StatusIssued
	}
}
