package ledger

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/ledgerline/ledgerline/internal/audit"
	"github.com/ledgerline/ledgerline/internal/billing/invoices"
	"github.com/ledgerline/ledgerline/internal/billing/shared"
)

type fakeReader struct {
	invoice  *invoices.Invoice
	notes    []invoices.CreditNote
	payments []invoices.Payment
	calls    int
}

func (f *fakeReader) GetInvoice(context.Context, uuid.UUID, uuid.UUID) (*invoices.Invoice, error) {
	f.calls++
	return f.invoice, nil
}

func (f *fakeReader) ListCreditNotes(context.Context, uuid.UUID, *uuid.UUID) ([]invoices.CreditNote, error) {
	return f.notes, nil
}

func (f *fakeReader) ListPayments(context.Context, uuid.UUID, uuid.UUID) ([]invoices.Payment, error) {
	return f.payments, nil
}

type fakeTrail struct {
	entries []audit.Entry
}

func (f *fakeTrail) ListForInvoice(context.Context, uuid.UUID, uuid.UUID) ([]audit.Entry, error) {
	return f.entries, nil
}

func newTestCache(t *testing.T) *SettlementCache {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	hits := prometheus.NewCounter(prometheus.CounterOpts{Name: "test_cache_hits"})
	misses := prometheus.NewCounter(prometheus.CounterOpts{Name: "test_cache_misses"})
	return NewSettlementCache(client, time.Minute, logger, hits, misses)
}

func TestFacadeSettlementUsesCache(t *testing.T) {
	due := time.Date(2026, 9, 30, 0, 0, 0, 0, time.UTC)
	inv := issuedInvoice(118, due)
	reader := &fakeReader{invoice: inv, payments: []invoices.Payment{payment(inv.ID, 30, due)}}
	facade := NewFacade(reader, &fakeTrail{}, newTestCache(t))
	ctx := context.Background()

	first, err := facade.Settlement(ctx, inv.TenantID, inv.ID)
	require.NoError(t, err)
	require.True(t, first.RemainingBalance.Equal(decimal.NewFromInt(88)))
	require.Equal(t, 1, reader.calls)

	second, err := facade.Settlement(ctx, inv.TenantID, inv.ID)
	require.NoError(t, err)
	require.True(t, second.RemainingBalance.Equal(first.RemainingBalance))
	require.Equal(t, 1, reader.calls, "second read must hit the cache")

	facade.cache.Invalidate(ctx, inv.TenantID, inv.ID)
	_, err = facade.Settlement(ctx, inv.TenantID, inv.ID)
	require.NoError(t, err)
	require.Equal(t, 2, reader.calls, "invalidation must force a recompute")
}

func TestFacadeSettlementWithoutCache(t *testing.T) {
	due := time.Date(2026, 9, 30, 0, 0, 0, 0, time.UTC)
	inv := issuedInvoice(100, due)
	reader := &fakeReader{invoice: inv}
	facade := NewFacade(reader, &fakeTrail{}, nil)

	view, err := facade.Settlement(context.Background(), inv.TenantID, inv.ID)
	require.NoError(t, err)
	require.True(t, view.RemainingBalance.Equal(decimal.NewFromInt(100)))
}

func TestValidatePaymentAmount(t *testing.T) {
	due := time.Date(2026, 9, 30, 0, 0, 0, 0, time.UTC)
	inv := issuedInvoice(100, due)
	reader := &fakeReader{invoice: inv}
	facade := NewFacade(reader, &fakeTrail{}, newTestCache(t))
	ctx := context.Background()

	require.NoError(t, facade.ValidatePaymentAmount(ctx, inv.TenantID, inv.ID, decimal.NewFromInt(100)))

	err := facade.ValidatePaymentAmount(ctx, inv.TenantID, inv.ID, decimal.NewFromFloat(100.01))
	require.ErrorIs(t, err, shared.ErrValidation)
	var bound *shared.AmountBoundError
	require.ErrorAs(t, err, &bound)
	require.True(t, bound.Bound.Equal(decimal.NewFromInt(100)))

	err = facade.ValidatePaymentAmount(ctx, inv.TenantID, inv.ID, decimal.Zero)
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestValidatePaymentAmountRejectsDraft(t *testing.T) {
	due := time.Date(2026, 9, 30, 0, 0, 0, 0, time.UTC)
	inv := issuedInvoice(100, due)
	inv.IsIssued = false
	reader := &fakeReader{invoice: inv}
	facade := NewFacade(reader, &fakeTrail{}, newTestCache(t))

	err := facade.ValidatePaymentAmount(context.Background(), inv.TenantID, inv.ID, decimal.NewFromInt(10))
	require.ErrorIs(t, err, shared.ErrInvalidState)
}

func TestFacadeTimeline(t *testing.T) {
	due := time.Date(2026, 9, 30, 0, 0, 0, 0, time.UTC)
	inv := issuedInvoice(118, due)
	reader := &fakeReader{invoice: inv, payments: []invoices.Payment{payment(inv.ID, 118, due.AddDate(0, 0, -1))}}
	trail := &fakeTrail{entries: []audit.Entry{
		{Action: audit.ActionCorrectionNoteAdded, NewData: map[string]any{"note": "x"}, OccurredAt: due.AddDate(0, 0, -2)},
	}}
	facade := NewFacade(reader, trail, newTestCache(t))

	events, err := facade.Timeline(context.Background(), inv.TenantID, inv.ID)
	require.NoError(t, err)
	require.Equal(t, []EventType{EventCreated, EventIssued, EventCorrectionNote, EventPayment, EventPaid}, eventTypes(events))
}
