package quotations

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ledgerline/ledgerline/internal/billing/shared"
)

// Status enumerates quotation statuses.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusSent      Status = "sent"
	StatusAccepted  Status = "accepted"
	StatusConverted Status = "converted"
	StatusExpired   Status = "expired"
)

// Quotation is a priced offer that can be converted into a draft invoice.
type Quotation struct {
	ID         uuid.UUID        `json:"id"`
	TenantID   uuid.UUID        `json:"tenant_id"`
	Number     string           `json:"number"`
	CustomerID uuid.UUID        `json:"customer_id"`
	Currency   string           `json:"currency"`
	ValidUntil time.Time        `json:"valid_until"`
	Discount   *shared.Discount `json:"discount,omitempty"`

	Subtotal       decimal.Decimal `json:"subtotal"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	VATTotal       decimal.Decimal `json:"vat_total"`
	GrandTotal     decimal.Decimal `json:"grand_total"`

	Status    Status     `json:"status"`
	InvoiceID *uuid.UUID `json:"invoice_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Lines []Line `json:"lines,omitempty"`
}

// Line belongs to exactly one quotation.
type Line struct {
	ID          uuid.UUID       `json:"id"`
	QuotationID uuid.UUID       `json:"quotation_id"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	VATRate     decimal.Decimal `json:"vat_rate"`
	Unit        string          `json:"unit,omitempty"`
	LineOrder   int             `json:"line_order"`
}

type CreateQuotationRequest struct {
	CustomerID    uuid.UUID           `json:"customer_id" validate:"required"`
	Currency      string              `json:"currency" validate:"required,len=3"`
	ValidUntil    time.Time           `json:"valid_until" validate:"required"`
	DiscountType  string              `json:"discount_type,omitempty" validate:"omitempty,oneof=percent amount"`
	DiscountValue decimal.Decimal     `json:"discount_value,omitempty"`
	Lines         []CreateLineRequest `json:"lines" validate:"min=1,dive"`
}

type CreateLineRequest struct {
	Description string          `json:"description" validate:"required"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	VATRate     decimal.Decimal `json:"vat_rate"`
	Unit        string          `json:"unit,omitempty" validate:"max=20"`
	LineOrder   int             `json:"line_order" validate:"gte=0"`
}

// ConvertRequest sets the dates of the invoice produced from a quotation.
type ConvertRequest struct {
	IssueDate time.Time `json:"issue_date" validate:"required"`
	DueDate   time.Time `json:"due_date" validate:"required"`
}

func calcLines(lines []Line) []shared.Line {
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
