package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/ledgerline/ledgerline/internal/audit"
	"github.com/ledgerline/ledgerline/internal/billing/invoices"
	"github.com/ledgerline/ledgerline/internal/billing/shared"
	"github.com/ledgerline/ledgerline/internal/money"
)

// InvoiceReader is the slice of the invoice service the ledger reads from.
type InvoiceReader interface {
	GetInvoice(ctx context.Context, tenantID, id uuid.UUID) (*invoices.Invoice, error)
	ListCreditNotes(ctx context.Context, tenantID uuid.UUID, invoiceID *uuid.UUID) ([]invoices.CreditNote, error)
	ListPayments(ctx context.Context, tenantID, invoiceID uuid.UUID) ([]invoices.Payment, error)
}

// AuditReader lists the audit trail for an invoice.
type AuditReader interface {
	ListForInvoice(ctx context.Context, tenantID, invoiceID uuid.UUID) ([]audit.Entry, error)
}

// Facade is the single entry point for settlement reads. It hides the cache
// and the concurrent document fetch behind four calls.
type Facade struct {
	invoices InvoiceReader
	trail    AuditReader
	cache    *SettlementCache
}

func NewFacade(invoiceReader InvoiceReader, trail AuditReader, cache *SettlementCache) *Facade {
	return &Facade{invoices: invoiceReader, trail: trail, cache: cache}
}

// Settlement returns the settlement view for an invoice, from cache when
// fresh.
func (f *Facade) Settlement(ctx context.Context, tenantID, invoiceID uuid.UUID) (*SettlementView, error) {
	if view := f.cache.Get(ctx, tenantID, invoiceID); view != nil {
		return view, nil
	}

	inv, notes, payments, err := f.fetchDocuments(ctx, tenantID, invoiceID)
	if err != nil {
		return nil, err
	}

	view := Settle(inv, notes, payments, time.Now())
	f.cache.Set(ctx, tenantID, invoiceID, view)
	return &view, nil
}

// ValidatePaymentAmount checks a prospective payment against the remaining
// balance without recording anything. The authoritative check runs again
// inside the payment transaction; this is the cheap pre-flight for forms.
func (f *Facade) ValidatePaymentAmount(ctx context.Context, tenantID, invoiceID uuid.UUID, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return &shared.FieldError{Field: "amount", Reason: "must be positive"}
	}
	view, err := f.Settlement(ctx, tenantID, invoiceID)
	if err != nil {
		return err
	}
	if view.Status == invoices.StatusDraft {
		return fmt.Errorf("%w: payments require an issued invoice", shared.ErrInvalidState)
	}
	if money.Exceeds(amount, view.RemainingBalance) {
		return &shared.AmountBoundError{Amount: amount, Bound: view.RemainingBalance}
	}
	return nil
}

// Timeline projects the invoice's full history, including the synthetic paid
// event.
func (f *Facade) Timeline(ctx context.Context, tenantID, invoiceID uuid.UUID) ([]Event, error) {
	var (
		inv      *invoices.Invoice
		notes    []invoices.CreditNote
		payments []invoices.Payment
		entries  []audit.Entry
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		inv, err = f.invoices.GetInvoice(gctx, tenantID, invoiceID)
		return err
	})
	g.Go(func() (err error) {
		notes, err = f.invoices.ListCreditNotes(gctx, tenantID, &invoiceID)
		return err
	})
	g.Go(func() (err error) {
		payments, err = f.invoices.ListPayments(gctx, tenantID, invoiceID)
		return err
	})
	g.Go(func() (err error) {
		entries, err = f.trail.ListForInvoice(gctx, tenantID, invoiceID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return BuildTimeline(inv, notes, payments, entries), nil
}

// AuditTrail returns the raw append-only trail, oldest first.
func (f *Facade) AuditTrail(ctx context.Context, tenantID, invoiceID uuid.UUID) ([]audit.Entry, error) {
	if _, err := f.invoices.GetInvoice(ctx, tenantID, invoiceID); err != nil {
		return nil, err
	}
	return f.trail.ListForInvoice(ctx, tenantID, invoiceID)
}

func (f *Facade) fetchDocuments(ctx context.Context, tenantID, invoiceID uuid.UUID) (*invoices.Invoice, []invoices.CreditNote, []invoices.Payment, error) {
	var (
		inv      *invoices.Invoice
		notes    []invoices.CreditNote
		payments []invoices.Payment
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		inv, err = f.invoices.GetInvoice(gctx, tenantID, invoiceID)
		return err
	})
	g.Go(func() (err error) {
		notes, err = f.invoices.ListCreditNotes(gctx, tenantID, &invoiceID)
		return err
	})
	g.Go(func() (err error) {
		payments, err = f.invoices.ListPayments(gctx, tenantID, invoiceID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, nil, err
	}
	return inv, notes, payments, nil
}
