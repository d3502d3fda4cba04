package quotations

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ledgerline/ledgerline/internal/billing/invoices"
	"github.com/ledgerline/ledgerline/internal/billing/shared"
	"github.com/ledgerline/ledgerline/internal/money"
)

// RepositoryPort defines the data access the service needs.
type RepositoryPort interface {
	Insert(ctx context.Context, q Quotation) error
	Get(ctx context.Context, tenantID, id uuid.UUID) (*Quotation, error)
	List(ctx context.Context, tenantID uuid.UUID, status Status) ([]Quotation, error)
	SetStatus(ctx context.Context, tenantID, id uuid.UUID, from, to Status) (bool, error)
	LinkInvoice(ctx context.Context, tenantID, id, invoiceID uuid.UUID) error
	ExpireStale(ctx context.Context, now time.Time) (int, error)
	NextNumber(ctx context.Context, tenantID uuid.UUID, prefix string) (string, error)
}

// InvoiceCreator creates the draft invoice a quotation converts into.
type InvoiceCreator interface {
	CreateInvoice(ctx context.Context, tenantID uuid.UUID, req invoices.CreateInvoiceRequest) (*invoices.Invoice, error)
}

type Service struct {
	repo     RepositoryPort
	invoicer InvoiceCreator
}

func NewService(repo RepositoryPort, invoicer InvoiceCreator) *Service {
	return &Service{repo: repo, invoicer: invoicer}
}

func (s *Service) Create(ctx context.Context, tenantID uuid.UUID, req CreateQuotationRequest) (*Quotation, error) {
	if err := money.ValidateCurrency(req.Currency); err != nil {
		return nil, &shared.FieldError{Field: "currency", Reason: err.Error()}
	}

	var discount *shared.Discount
	if req.DiscountType != "" {
		switch shared.DiscountType(req.DiscountType) {
		case shared.DiscountPercent, shared.DiscountAmount:
			discount = &shared.Discount{Type: shared.DiscountType(req.DiscountType), Value: req.DiscountValue}
		default:
			return nil, &shared.FieldError{Field: "discount_type", Reason: "must be percent or amount"}
		}
	}

	lines := make([]Line, 0, len(req.Lines))
	for i, lr := range req.Lines {
		if lr.Quantity.IsNegative() || lr.UnitPrice.IsNegative() {
			return nil, &shared.FieldError{Field: "lines", Reason: "quantity and unit price must not be negative"}
		}
		if lr.VATRate.IsNegative() || lr.VATRate.GreaterThan(decimal.NewFromInt(1)) {
			return nil, &shared.FieldError{Field: "vat_rate", Reason: "must be a fraction between 0 and 1"}
		}
		order := lr.LineOrder
		if order == 0 {
			order = i + 1
		}
		lines = append(lines, Line{
			ID:          uuid.New(),
			Description: lr.Description,
			Quantity:    lr.Quantity,
			UnitPrice:   lr.UnitPrice,
			VATRate:     lr.VATRate,
			Unit:        lr.Unit,
			LineOrder:   order,
		})
	}

	number, err := s.repo.NextNumber(ctx, tenantID, "QT")
	if err != nil {
		return nil, fmt.Errorf("generate quotation number: %w", err)
	}

	now := time.Now().UTC()
	totals := shared.ComputeTotals(calcLines(lines), discount)
	q := Quotation{
		ID:             uuid.New(),
		TenantID:       tenantID,
		Number:         number,
		CustomerID:     req.CustomerID,
		Currency:       req.Currency,
		ValidUntil:     req.ValidUntil,
		Discount:       discount,
		Subtotal:       totals.Subtotal,
		DiscountAmount: totals.DiscountAmount,
		VATTotal:       totals.VATTotal,
		GrandTotal:     totals.GrandTotal,
		Status:         StatusDraft,
		CreatedAt:      now,
		UpdatedAt:      now,
		Lines:          lines,
	}
	if err := s.repo.Insert(ctx, q); err != nil {
		return nil, err
	}
	return &q, nil
}

// Send moves a draft quotation to sent.
func (s *Service) Send(ctx context.Context, tenantID, id uuid.UUID) (*Quotation, error) {
	return s.transition(ctx, tenantID, id, StatusDraft, StatusSent)
}

// Accept moves a sent quotation to accepted.
func (s *Service) Accept(ctx context.Context, tenantID, id uuid.UUID) (*Quotation, error) {
	return s.transition(ctx, tenantID, id, StatusSent, StatusAccepted)
}

// Convert turns an accepted quotation into a draft invoice. The conditional
// status flip guards against converting the same quotation twice.
func (s *Service) Convert(ctx context.Context, tenantID, id uuid.UUID, req ConvertRequest) (*invoices.Invoice, error) {
	q, err := s.repo.Get(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if q.Status != StatusAccepted {
		return nil, fmt.Errorf("%w: quotation %s is %s, only accepted quotations convert", shared.ErrInvalidState, q.Number, q.Status)
	}

	ok, err := s.repo.SetStatus(ctx, tenantID, id, StatusAccepted, StatusConverted)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: quotation %s already converted", shared.ErrInvalidState, q.Number)
	}

	lineReqs := make([]invoices.CreateLineItemRequest, 0, len(q.Lines))
	for _, l := range q.Lines {
		lineReqs = append(lineReqs, invoices.CreateLineItemRequest{
			Description: l.Description,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice,
			VATRate:     l.VATRate,
			Unit:        l.Unit,
			LineOrder:   l.LineOrder,
		})
	}
	invReq := invoices.CreateInvoiceRequest{
		CustomerID: q.CustomerID,
		Currency:   q.Currency,
		IssueDate:  req.IssueDate,
		DueDate:    req.DueDate,
		Lines:      lineReqs,
	}
	if q.Discount != nil {
		invReq.DiscountType = string(q.Discount.Type)
		invReq.DiscountValue = q.Discount.Value
	}

	inv, err := s.invoicer.CreateInvoice(ctx, tenantID, invReq)
	if err != nil {
		// roll the flip back so the quotation stays convertible
		if _, rbErr := s.repo.SetStatus(ctx, tenantID, id, StatusConverted, StatusAccepted); rbErr != nil {
			return nil, fmt.Errorf("create invoice: %w (revert status: %v)", err, rbErr)
		}
		return nil, fmt.Errorf("create invoice: %w", err)
	}

	if err := s.repo.LinkInvoice(ctx, tenantID, id, inv.ID); err != nil {
		return nil, err
	}
	return inv, nil
}

// ExpireStale flags sent quotations past their validity date. Run by the
// background sweep.
func (s *Service) ExpireStale(ctx context.Context, now time.Time) (int, error) {
	return s.repo.ExpireStale(ctx, now)
}

func (s *Service) Get(ctx context.Context, tenantID, id uuid.UUID) (*Quotation, error) {
	return s.repo.Get(ctx, tenantID, id)
}

func (s *Service) List(ctx context.Context, tenantID uuid.UUID, status Status) ([]Quotation, error) {
	return s.repo.List(ctx, tenantID, status)
}

func (s *Service) transition(ctx context.Context, tenantID, id uuid.UUID, from, to Status) (*Quotation, error) {
	ok, err := s.repo.SetStatus(ctx, tenantID, id, from, to)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: quotation must be %s to become %s", shared.ErrInvalidState, from, to)
	}
	return s.repo.Get(ctx, tenantID, id)
}
