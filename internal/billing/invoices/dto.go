package invoices

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type CreateInvoiceRequest struct {
	CustomerID    uuid.UUID              `json:"customer_id" validate:"required"`
	Currency      string                 `json:"currency" validate:"required,len=3"`
	IssueDate     time.Time              `json:"issue_date" validate:"required"`
	DueDate       time.Time              `json:"due_date" validate:"required"`
	DiscountType  string                 `json:"discount_type,omitempty" validate:"omitempty,oneof=percent amount"`
	DiscountValue decimal.Decimal        `json:"discount_value,omitempty"`
	Lines         []CreateLineItemRequest `json:"lines" validate:"dive"`
}

type CreateLineItemRequest struct {
	Description string          `json:"description" validate:"required"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	VATRate     decimal.Decimal `json:"vat_rate"`
	Unit        string          `json:"unit,omitempty" validate:"max=20"`
	LineOrder   int             `json:"line_order" validate:"gte=0"`
}

type UpdateInvoiceRequest struct {
	IssueDate     *time.Time               `json:"issue_date,omitempty"`
	DueDate       *time.Time               `json:"due_date,omitempty"`
	DiscountType  *string                  `json:"discount_type,omitempty" validate:"omitempty,oneof=percent amount"`
	DiscountValue *decimal.Decimal         `json:"discount_value,omitempty"`
	Lines         *[]CreateLineItemRequest `json:"lines,omitempty" validate:"omitempty,min=1,dive"`
}

type RecordPaymentRequest struct {
	Amount decimal.Decimal `json:"amount"`
	PaidAt time.Time       `json:"paid_at" validate:"required"`
	Method PaymentMethod   `json:"method" validate:"required"`
	Note   string          `json:"note,omitempty"`
}

type CreateCreditNoteRequest struct {
	InvoiceID *uuid.UUID      `json:"invoice_id,omitempty"`
	Amount    decimal.Decimal `json:"amount"`
	VATRate   decimal.Decimal `json:"vat_rate"`
	Reason    string          `json:"reason" validate:"required"`
	IssueDate time.Time       `json:"issue_date" validate:"required"`
}

type AddCorrectionNoteRequest struct {
	Note string `json:"note" validate:"required"`
}

type ListInvoicesRequest struct {
	Status     Status     `json:"status,omitempty"`
	CustomerID uuid.UUID  `json:"customer_id,omitempty"`
	FromDate   *time.Time `json:"from_date,omitempty"`
	ToDate     *time.Time `json:"to_date,omitempty"`
	Limit      int        `json:"limit" validate:"gte=0,lte=1000"`
	Offset     int        `json:"offset" validate:"gte=0"`
}
