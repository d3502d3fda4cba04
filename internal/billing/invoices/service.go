package invoices

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ledgerline/ledgerline/internal/audit"
	"github.com/ledgerline/ledgerline/internal/billing/shared"
	"github.com/ledgerline/ledgerline/internal/money"
)

// Repository defines data access methods for invoices.
type Repository interface {
	GetInvoice(ctx context.Context, tenantID, id uuid.UUID) (*Invoice, error)
	ListInvoices(ctx context.Context, tenantID uuid.UUID, req ListInvoicesRequest) ([]Invoice, error)
	ListCreditNotes(ctx context.Context, tenantID uuid.UUID, invoiceID *uuid.UUID) ([]CreditNote, error)
	ListPayments(ctx context.Context, tenantID, invoiceID uuid.UUID) ([]Payment, error)
	NextNumber(ctx context.Context, tenantID uuid.UUID, prefix string) (string, error)
	MarkOverdue(ctx context.Context, now time.Time) ([]OverdueRef, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository exposes the operations available inside a transaction. A
// mutation and its status recompute always travel through the same TxRepository.
type TxRepository interface {
	InsertInvoice(ctx context.Context, inv Invoice) error
	ReplaceLines(ctx context.Context, invoiceID uuid.UUID, lines []LineItem) error
	UpdateDraft(ctx context.Context, inv Invoice) error
	GetInvoiceForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*Invoice, error)
	MarkIssued(ctx context.Context, tenantID, id uuid.UUID, at time.Time) (bool, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status Status) error
	InsertPayment(ctx context.Context, p Payment) error
	InsertCreditNote(ctx context.Context, n CreditNote) error
	SumPayments(ctx context.Context, invoiceID uuid.UUID) (decimal.Decimal, error)
	SumCreditGross(ctx context.Context, invoiceID uuid.UUID) (decimal.Decimal, error)
	AppendAudit(ctx context.Context, entry audit.Entry) error
}

// CustomerVerifier checks that a referenced customer exists.
type CustomerVerifier interface {
	Exists(ctx context.Context, tenantID, id uuid.UUID) error
}

// CacheInvalidator drops cached settlement figures after a mutation commits.
type CacheInvalidator interface {
	Invalidate(ctx context.Context, tenantID, invoiceID uuid.UUID)
}

// Service governs the invoice lifecycle: draft mutation, the one-way issue
// transition, and the append-only recording of payments and credit notes.
type Service struct {
	repo      Repository
	customers CustomerVerifier
	cache     CacheInvalidator
	logger    *slog.Logger
}

// NewService builds a Service instance.
func NewService(repo Repository, customers CustomerVerifier, cache CacheInvalidator, logger *slog.Logger) *Service {
	return &Service{repo: repo, customers: customers, cache: cache, logger: logger}
}

// CreateInvoice creates a draft invoice with its line items.
func (s *Service) CreateInvoice(ctx context.Context, tenantID uuid.UUID, req CreateInvoiceRequest) (*Invoice, error) {
	if err := money.ValidateCurrency(req.Currency); err != nil {
		return nil, &shared.FieldError{Field: "currency", Reason: err.Error()}
	}
	if req.DueDate.Before(req.IssueDate) {
		return nil, &shared.FieldError{Field: "due_date", Reason: "must not be before issue date"}
	}
	if s.customers != nil {
		if err := s.customers.Exists(ctx, tenantID, req.CustomerID); err != nil {
			return nil, fmt.Errorf("verify customer: %w", err)
		}
	}
	lines, err := buildLines(req.Lines)
	if err != nil {
		return nil, err
	}

	discount, err := buildDiscount(req.DiscountType, req.DiscountValue)
	if err != nil {
		return nil, err
	}

	number, err := s.repo.NextNumber(ctx, tenantID, "INV")
	if err != nil {
		return nil, fmt.Errorf("generate invoice number: %w", err)
	}

	now := time.Now().UTC()
	totals := shared.ComputeTotals(calcLines(lines), discount)
	inv := Invoice{
		ID:             uuid.New(),
		TenantID:       tenantID,
		Number:         number,
		CustomerID:     req.CustomerID,
		Currency:       req.Currency,
		IssueDate:      req.IssueDate,
		DueDate:        req.DueDate,
		Discount:       discount,
		Subtotal:       totals.Subtotal,
		DiscountAmount: totals.DiscountAmount,
		VATTotal:       totals.VATTotal,
		GrandTotal:     totals.GrandTotal,
		Status:         StatusDraft,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.InsertInvoice(ctx, inv); err != nil {
			return fmt.Errorf("insert invoice: %w", err)
		}
		if err := tx.ReplaceLines(ctx, inv.ID, lines); err != nil {
			return fmt.Errorf("insert lines: %w", err)
		}
		return tx.AppendAudit(ctx, audit.Entry{
			TenantID:   tenantID,
			InvoiceID:  inv.ID,
			Action:     audit.ActionCreated,
			NewData:    map[string]any{"invoice_number": inv.Number},
			OccurredAt: now,
		})
	})
	if err != nil {
		return nil, err
	}

	return s.repo.GetInvoice(ctx, tenantID, inv.ID)
}

// UpdateDraft mutates a draft invoice. Issued invoices are immutable.
func (s *Service) UpdateDraft(ctx context.Context, tenantID, id uuid.UUID, req UpdateInvoiceRequest) (*Invoice, error) {
	existing, err := s.repo.GetInvoice(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if existing.IsIssued {
		return nil, fmt.Errorf("%w: invoice %s", shared.ErrImmutableDocument, existing.Number)
	}

	updated := *existing
	if req.IssueDate != nil {
		updated.IssueDate = *req.IssueDate
	}
	if req.DueDate != nil {
		updated.DueDate = *req.DueDate
	}
	if req.DiscountType != nil {
		value := decimal.Zero
		if req.DiscountValue != nil {
			value = *req.DiscountValue
		}
		discount, err := buildDiscount(*req.DiscountType, value)
		if err != nil {
			return nil, err
		}
		updated.Discount = discount
	}
	if updated.DueDate.Before(updated.IssueDate) {
		return nil, &shared.FieldError{Field: "due_date", Reason: "must not be before issue date"}
	}

	lines := existing.Lines
	if req.Lines != nil {
		lines, err = buildLines(*req.Lines)
		if err != nil {
			return nil, err
		}
	}

	totals := shared.ComputeTotals(calcLines(lines), updated.Discount)
	updated.Subtotal = totals.Subtotal
	updated.DiscountAmount = totals.DiscountAmount
	updated.VATTotal = totals.VATTotal
	updated.GrandTotal = totals.GrandTotal
	updated.UpdatedAt = time.Now().UTC()

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.UpdateDraft(ctx, updated); err != nil {
			return err
		}
		if req.Lines != nil {
			if err := tx.ReplaceLines(ctx, id, lines); err != nil {
				return fmt.Errorf("replace lines: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.repo.GetInvoice(ctx, tenantID, id)
}

// Issue transitions a draft invoice to issued. The transition is a one-way
// gate: the conditional update and the audit entry commit together, and a
// concurrent issue of the same invoice fails instead of double-recording.
func (s *Service) Issue(ctx context.Context, tenantID, id uuid.UUID) (*Invoice, error) {
	inv, err := s.repo.GetInvoice(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if len(inv.Lines) == 0 {
		return nil, &shared.FieldError{Field: "lines", Reason: "invoice needs at least one line item to be issued"}
	}
	if inv.IsIssued {
		return nil, fmt.Errorf("%w: invoice %s is already issued", shared.ErrInvalidState, inv.Number)
	}

	now := time.Now().UTC()
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		ok, err := tx.MarkIssued(ctx, tenantID, id, now)
		if err != nil {
			return fmt.Errorf("mark issued: %w", err)
		}
		if !ok {
			return fmt.Errorf("%w: invoice %s is already issued", shared.ErrInvalidState, inv.Number)
		}
		return tx.AppendAudit(ctx, audit.Entry{
			TenantID:   tenantID,
			InvoiceID:  id,
			Action:     audit.ActionIssued,
			NewData:    map[string]any{"invoice_number": inv.Number},
			OccurredAt: now,
		})
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, tenantID, id)
	return s.repo.GetInvoice(ctx, tenantID, id)
}

// RecordPayment records a payment against an issued invoice and moves the
// invoice status in the same transaction.
func (s *Service) RecordPayment(ctx context.Context, tenantID, invoiceID uuid.UUID, req RecordPaymentRequest) (*Payment, error) {
	if !req.Amount.IsPositive() {
		return nil, &shared.FieldError{Field: "amount", Reason: "must be positive"}
	}
	if !ValidMethod(req.Method) {
		return nil, &shared.FieldError{Field: "method", Reason: "unknown payment method"}
	}

	payment := Payment{
		ID:        uuid.New(),
		TenantID:  tenantID,
		InvoiceID: invoiceID,
		Amount:    req.Amount,
		PaidAt:    req.PaidAt,
		Method:    req.Method,
		Note:      req.Note,
		CreatedAt: time.Now().UTC(),
	}

	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		inv, err := tx.GetInvoiceForUpdate(ctx, tenantID, invoiceID)
		if err != nil {
			return err
		}
		if !inv.IsIssued {
			return fmt.Errorf("%w: payments require an issued invoice", shared.ErrInvalidState)
		}

		remaining, err := remainingBalance(ctx, tx, inv)
		if err != nil {
			return err
		}
		if money.Exceeds(req.Amount, remaining) {
			return &shared.AmountBoundError{Amount: req.Amount, Bound: remaining}
		}

		if err := tx.InsertPayment(ctx, payment); err != nil {
			return fmt.Errorf("insert payment: %w", err)
		}
		return tx.UpdateStatus(ctx, invoiceID, statusAfterMutation(inv, remaining.Sub(req.Amount), true))
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, tenantID, invoiceID)
	return &payment, nil
}

// CreateCreditNote creates a corrective credit note. When the note references
// an invoice, the invoice must be issued; the note, its audit entry, and the
// status recompute commit atomically. A note without an invoice reference is
// unapplied customer credit.
func (s *Service) CreateCreditNote(ctx context.Context, tenantID uuid.UUID, req CreateCreditNoteRequest) (*CreditNote, error) {
	if req.Reason == "" {
		return nil, &shared.FieldError{Field: "reason", Reason: "required"}
	}
	if !req.Amount.IsPositive() {
		return nil, &shared.FieldError{Field: "amount", Reason: "must be positive"}
	}
	if req.VATRate.IsNegative() || req.VATRate.GreaterThan(decimal.NewFromInt(1)) {
		return nil, &shared.FieldError{Field: "vat_rate", Reason: "must be a fraction between 0 and 1"}
	}

	number, err := s.repo.NextNumber(ctx, tenantID, "CN")
	if err != nil {
		return nil, fmt.Errorf("generate credit note number: %w", err)
	}

	note := CreditNote{
		ID:        uuid.New(),
		TenantID:  tenantID,
		Number:    number,
		InvoiceID: req.InvoiceID,
		Amount:    req.Amount,
		VATRate:   req.VATRate,
		Reason:    req.Reason,
		IssueDate: req.IssueDate,
		CreatedAt: time.Now().UTC(),
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if req.InvoiceID == nil {
			return tx.InsertCreditNote(ctx, note)
		}

		inv, err := tx.GetInvoiceForUpdate(ctx, tenantID, *req.InvoiceID)
		if err != nil {
			return err
		}
		if !inv.IsIssued {
			return fmt.Errorf("%w: credit notes correct issued invoices only", shared.ErrInvalidState)
		}

		remaining, err := remainingBalance(ctx, tx, inv)
		if err != nil {
			return err
		}

		if err := tx.InsertCreditNote(ctx, note); err != nil {
			return fmt.Errorf("insert credit note: %w", err)
		}
		if err := tx.AppendAudit(ctx, audit.Entry{
			TenantID:  tenantID,
			InvoiceID: *req.InvoiceID,
			Action:    audit.ActionCreditNoteCreated,
			NewData: map[string]any{
				"credit_note_number": note.Number,
				"amount":             note.Amount.StringFixed(2),
				"reason":             note.Reason,
			},
			OccurredAt: note.CreatedAt,
		}); err != nil {
			return err
		}

		payments, err := tx.SumPayments(ctx, inv.ID)
		if err != nil {
			return err
		}
		return tx.UpdateStatus(ctx, inv.ID, statusAfterMutation(inv, remaining.Sub(note.GrossAmount()), payments.IsPositive()))
	})
	if err != nil {
		return nil, err
	}

	if req.InvoiceID != nil {
		s.invalidate(ctx, tenantID, *req.InvoiceID)
	}
	return &note, nil
}

// AddCorrectionNote appends a free-text correction to an issued invoice's
// audit trail without touching the invoice itself.
func (s *Service) AddCorrectionNote(ctx context.Context, tenantID, invoiceID uuid.UUID, req AddCorrectionNoteRequest) error {
	if req.Note == "" {
		return &shared.FieldError{Field: "note", Reason: "required"}
	}
	inv, err := s.repo.GetInvoice(ctx, tenantID, invoiceID)
	if err != nil {
		return err
	}
	if !inv.IsIssued {
		return fmt.Errorf("%w: correction notes apply to issued invoices", shared.ErrInvalidState)
	}
	return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return tx.AppendAudit(ctx, audit.Entry{
			TenantID:   tenantID,
			InvoiceID:  invoiceID,
			Action:     audit.ActionCorrectionNoteAdded,
			NewData:    map[string]any{"note": req.Note},
			OccurredAt: time.Now().UTC(),
		})
	})
}

// MarkOverdueInvoices flags issued, unpaid invoices past their due date. Run
// by the background sweep.
func (s *Service) MarkOverdueInvoices(ctx context.Context, now time.Time) (int, error) {
	refs, err := s.repo.MarkOverdue(ctx, now)
	if err != nil {
		return 0, err
	}
	for _, ref := range refs {
		s.invalidate(ctx, ref.TenantID, ref.InvoiceID)
	}
	if len(refs) > 0 && s.logger != nil {
		s.logger.Info("invoices flagged overdue", slog.Int("count", len(refs)))
	}
	return len(refs), nil
}

// GetInvoice returns one invoice with its lines.
func (s *Service) GetInvoice(ctx context.Context, tenantID, id uuid.UUID) (*Invoice, error) {
	return s.repo.GetInvoice(ctx, tenantID, id)
}

// ListInvoices returns invoices with optional filtering.
func (s *Service) ListInvoices(ctx context.Context, tenantID uuid.UUID, req ListInvoicesRequest) ([]Invoice, error) {
	return s.repo.ListInvoices(ctx, tenantID, req)
}

// ListPayments returns the payments recorded against an invoice.
func (s *Service) ListPayments(ctx context.Context, tenantID, invoiceID uuid.UUID) ([]Payment, error) {
	return s.repo.ListPayments(ctx, tenantID, invoiceID)
}

// ListCreditNotes returns the credit notes referencing an invoice, or the
// unapplied notes when invoiceID is nil.
func (s *Service) ListCreditNotes(ctx context.Context, tenantID uuid.UUID, invoiceID *uuid.UUID) ([]CreditNote, error) {
	return s.repo.ListCreditNotes(ctx, tenantID, invoiceID)
}

func (s *Service) invalidate(ctx context.Context, tenantID, invoiceID uuid.UUID) {
	if s.cache != nil {
		s.cache.Invalidate(ctx, tenantID, invoiceID)
	}
}

func remainingBalance(ctx context.Context, tx TxRepository, inv *Invoice) (decimal.Decimal, error) {
	credits, err := tx.SumCreditGross(ctx, inv.ID)
	if err != nil {
		return decimal.Zero, err
	}
	payments, err := tx.SumPayments(ctx, inv.ID)
	if err != nil {
		return decimal.Zero, err
	}
	return inv.GrossTotal().Sub(credits).Sub(payments), nil
}

// statusAfterMutation derives the invoice status once a payment or credit
// note has reduced the remaining balance.
func statusAfterMutation(inv *Invoice, remaining decimal.Decimal, hasPayments bool) Status {
	switch {
	case money.Settled(remaining):
		return StatusPaid
	case hasPayments:
		return StatusPartiallyPaid
	case inv.Status == StatusOverdue:
		return StatusOverdue
	default:
		return StatusIssued
	}
}

func buildLines(reqs []CreateLineItemRequest) ([]LineItem, error) {
	lines := make([]LineItem, 0, len(reqs))
	for i, lr := range reqs {
		if lr.Quantity.IsNegative() {
			return nil, &shared.FieldError{Field: "quantity", Reason: "must not be negative"}
		}
		if lr.UnitPrice.IsNegative() {
			return nil, &shared.FieldError{Field: "unit_price", Reason: "must not be negative"}
		}
		if lr.VATRate.IsNegative() || lr.VATRate.GreaterThan(decimal.NewFromInt(1)) {
			return nil, &shared.FieldError{Field: "vat_rate", Reason: "must be a fraction between 0 and 1"}
		}
		order := lr.LineOrder
		if order == 0 {
			order = i + 1
		}
		lines = append(lines, LineItem{
			ID:          uuid.New(),
			Description: lr.Description,
			Quantity:    lr.Quantity,
			UnitPrice:   lr.UnitPrice,
			VATRate:     lr.VATRate,
			Unit:        lr.Unit,
			LineOrder:   order,
		})
	}
	return lines, nil
}

func buildDiscount(discountType string, value decimal.Decimal) (*shared.Discount, error) {
	if discountType == "" {
		return nil, nil
	}
	switch shared.DiscountType(discountType) {
	case shared.DiscountPercent, shared.DiscountAmount:
		return &shared.Discount{Type: shared.DiscountType(discountType), Value: value}, nil
	default:
		return nil, &shared.FieldError{Field: "discount_type", Reason: "must be percent or amount"}
	}
}
