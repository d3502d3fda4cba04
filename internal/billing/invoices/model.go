package invoices

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ledgerline/ledgerline/internal/billing/shared"
	"github.com/ledgerline/ledgerline/internal/money"
)

// Status enumerates invoice statuses.
type Status string

const (
	StatusDraft         Status = "draft"
	StatusIssued        Status = "issued"
	StatusPartiallyPaid Status = "partially_paid"
	StatusPaid          Status = "paid"
	StatusOverdue       Status = "overdue"
)

// PaymentMethod enumerates how a payment was made.
type PaymentMethod string

const (
	MethodBankTransfer PaymentMethod = "bank_transfer"
	MethodCash         PaymentMethod = "cash"
	MethodCard         PaymentMethod = "card"
	MethodCheck        PaymentMethod = "check"
	MethodOther        PaymentMethod = "other"
)

// ValidMethod reports whether m is a known payment method.
func ValidMethod(m PaymentMethod) bool {
	switch m {
	case MethodBankTransfer, MethodCash, MethodCard, MethodCheck, MethodOther:
		return true
	}
	return false
}

// Invoice model. Once IsIssued is set, line items, discount, dates and amounts
// are frozen; only payments and credit notes may be recorded against it.
type Invoice struct {
	ID         uuid.UUID        `json:"id"`
	TenantID   uuid.UUID        `json:"tenant_id"`
	Number     string           `json:"number"`
	CustomerID uuid.UUID        `json:"customer_id"`
	Currency   string           `json:"currency"`
	IssueDate  time.Time        `json:"issue_date"`
	DueDate    time.Time        `json:"due_date"`
	Discount   *shared.Discount `json:"discount,omitempty"`

	Subtotal       decimal.Decimal `json:"subtotal"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	VATTotal       decimal.Decimal `json:"vat_total"`
	GrandTotal     decimal.Decimal `json:"grand_total"`

	Status   Status     `json:"status"`
	IsIssued bool       `json:"is_issued"`
	IssuedAt *time.Time `json:"issued_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Lines []LineItem `json:"lines,omitempty"`
}

// GrossTotal returns the authoritative gross figure: the stored grand total
// when present, otherwise recomputed from the line items. The precomputed
// totals row may be absent in older data.
func (i *Invoice) GrossTotal() decimal.Decimal {
	if !i.GrandTotal.IsZero() || len(i.Lines) == 0 {
		return i.GrandTotal
	}
	return shared.ComputeTotals(calcLines(i.Lines), i.Discount).GrandTotal
}

// LineItem belongs to exactly one invoice.
type LineItem struct {
	ID          uuid.UUID       `json:"id"`
	InvoiceID   uuid.UUID       `json:"invoice_id"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	VATRate     decimal.Decimal `json:"vat_rate"`
	Unit        string          `json:"unit,omitempty"`
	LineOrder   int             `json:"line_order"`
}

// CreditNote is a corrective document against an issued invoice, or unapplied
// customer credit when InvoiceID is nil. Immutable once created.
type CreditNote struct {
	ID        uuid.UUID       `json:"id"`
	TenantID  uuid.UUID       `json:"tenant_id"`
	Number    string          `json:"number"`
	InvoiceID *uuid.UUID      `json:"invoice_id,omitempty"`
	Amount    decimal.Decimal `json:"amount"` // net
	VATRate   decimal.Decimal `json:"vat_rate"`
	Reason    string          `json:"reason"`
	IssueDate time.Time       `json:"issue_date"`
	CreatedAt time.Time       `json:"created_at"`
}

// GrossAmount is the note's net amount plus VAT.
func (n *CreditNote) GrossAmount() decimal.Decimal {
	return money.Round2(n.Amount.Mul(decimal.NewFromInt(1).Add(n.VATRate)))
}

// Payment is an immutable record of money received against an invoice.
// Corrections happen by recording an offsetting payment or a credit note.
type Payment struct {
	ID        uuid.UUID       `json:"id"`
	TenantID  uuid.UUID       `json:"tenant_id"`
	InvoiceID uuid.UUID       `json:"invoice_id"`
	Amount    decimal.Decimal `json:"amount"`
	PaidAt    time.Time       `json:"paid_at"`
	Method    PaymentMethod   `json:"method"`
	Note      string          `json:"note,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

func calcLines(lines []LineItem) []shared.Line {
	out := make([]shared.Line, 0, len(lines))
	for _, l := range lines {
		out = append(out, shared.Line{
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
			VATRate:   l.VATRate,
		})
	}
	return out
}
