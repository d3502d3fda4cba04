package quotations

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/ledgerline/ledgerline/internal/billing/invoices"
	"github.com/ledgerline/ledgerline/internal/billing/shared"
)

type memRepo struct {
	quotations map[uuid.UUID]*Quotation
	counter    int64
}

func newMemRepo() *memRepo {
	return &memRepo{quotations: make(map[uuid.UUID]*Quotation)}
}

func (m *memRepo) Insert(_ context.Context, q Quotation) error {
	cp := q
	m.quotations[q.ID] = &cp
	return nil
}

func (m *memRepo) Get(_ context.Context, tenantID, id uuid.UUID) (*Quotation, error) {
	q, ok := m.quotations[id]
	if !ok || q.TenantID != tenantID {
		return nil, fmt.Errorf("%w: quotation", shared.ErrNotFound)
	}
	cp := *q
	return &cp, nil
}

func (m *memRepo) List(_ context.Context, tenantID uuid.UUID, status Status) ([]Quotation, error) {
	var out []Quotation
	for _, q := range m.quotations {
		if q.TenantID == tenantID && (status == "" || q.Status == status) {
			out = append(out, *q)
		}
	}
	return out, nil
}

func (m *memRepo) SetStatus(_ context.Context, tenantID, id uuid.UUID, from, to Status) (bool, error) {
	q, ok := m.quotations[id]
	if !ok || q.TenantID != tenantID || q.Status != from {
		return false, nil
	}
	q.Status = to
	return true, nil
}

func (m *memRepo) LinkInvoice(_ context.Context, tenantID, id, invoiceID uuid.UUID) error {
	q, ok := m.quotations[id]
	if !ok || q.TenantID != tenantID {
		return fmt.Errorf("%w: quotation", shared.ErrNotFound)
	}
	q.InvoiceID = &invoiceID
	return nil
}

func (m *memRepo) ExpireStale(_ context.Context, now time.Time) (int, error) {
	n := 0
	for _, q := range m.quotations {
		if q.Status == StatusSent && q.ValidUntil.Before(now) {
			q.Status = StatusExpired
			n++
		}
	}
	return n, nil
}

func (m *memRepo) NextNumber(_ context.Context, _ uuid.UUID, prefix string) (string, error) {
	m.counter++
	return fmt.Sprintf("%s-2026-%04d", prefix, m.counter), nil
}

type fakeInvoicer struct {
	created []invoices.CreateInvoiceRequest
	fail    error
}

func (f *fakeInvoicer) CreateInvoice(_ context.Context, tenantID uuid.UUID, req invoices.CreateInvoiceRequest) (*invoices.Invoice, error) {
	if f.fail != nil {
		return nil, f.fail
	}
	f.created = append(f.created, req)
	return &invoices.Invoice{ID: uuid.New(), TenantID: tenantID, CustomerID: req.CustomerID, Status: invoices.StatusDraft}, nil
}

func createRequest() CreateQuotationRequest {
	return CreateQuotationRequest{
		CustomerID: uuid.New(),
		Currency:   "EUR",
		ValidUntil: time.Date(2026, 9, 30, 0, 0, 0, 0, time.UTC),
		Lines: []CreateLineRequest{{
			Description: "Implementation",
			Quantity:    decimal.NewFromInt(2),
			UnitPrice:   decimal.NewFromInt(100),
			VATRate:     decimal.NewFromFloat(0.18),
		}},
	}
}

func acceptedQuotation(t *testing.T, svc *Service, tenantID uuid.UUID) *Quotation {
	t.Helper()
	q, err := svc.Create(context.Background(), tenantID, createRequest())
	require.NoError(t, err)
	_, err = svc.Send(context.Background(), tenantID, q.ID)
	require.NoError(t, err)
	q, err = svc.Accept(context.Background(), tenantID, q.ID)
	require.NoError(t, err)
	return q
}

func TestCreateQuotationComputesTotals(t *testing.T) {
	svc := NewService(newMemRepo(), &fakeInvoicer{})

	q, err := svc.Create(context.Background(), uuid.New(), createRequest())
	require.NoError(t, err)
	require.Equal(t, StatusDraft, q.Status)
	require.Equal(t, "QT-2026-0001", q.Number)
	require.True(t, q.Subtotal.Equal(decimal.NewFromInt(200)))
	require.True(t, q.GrandTotal.Equal(decimal.NewFromInt(236)))
}

func TestQuotationLifecycleOrder(t *testing.T) {
	svc := NewService(newMemRepo(), &fakeInvoicer{})
	tenantID := uuid.New()

	q, err := svc.Create(context.Background(), tenantID, createRequest())
	require.NoError(t, err)

	// accepting before sending is rejected
	_, err = svc.Accept(context.Background(), tenantID, q.ID)
	require.ErrorIs(t, err, shared.ErrInvalidState)

	q, err = svc.Send(context.Background(), tenantID, q.ID)
	require.NoError(t, err)
	require.Equal(t, StatusSent, q.Status)

	q, err = svc.Accept(context.Background(), tenantID, q.ID)
	require.NoError(t, err)
	require.Equal(t, StatusAccepted, q.Status)
}

func TestConvertProducesDraftInvoice(t *testing.T) {
	repo := newMemRepo()
	invoicer := &fakeInvoicer{}
	svc := NewService(repo, invoicer)
	tenantID := uuid.New()
	q := acceptedQuotation(t, svc, tenantID)

	inv, err := svc.Convert(context.Background(), tenantID, q.ID, ConvertRequest{
		IssueDate: time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
		DueDate:   time.Date(2026, 9, 30, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.Equal(t, invoices.StatusDraft, inv.Status)
	require.Len(t, invoicer.created, 1)
	require.Len(t, invoicer.created[0].Lines, 1)

	got, err := svc.Get(context.Background(), tenantID, q.ID)
	require.NoError(t, err)
	require.Equal(t, StatusConverted, got.Status)
	require.NotNil(t, got.InvoiceID)
	require.Equal(t, inv.ID, *got.InvoiceID)

	// a second conversion is rejected
	_, err = svc.Convert(context.Background(), tenantID, q.ID, ConvertRequest{
		IssueDate: time.Now(), DueDate: time.Now().AddDate(0, 1, 0),
	})
	require.ErrorIs(t, err, shared.ErrInvalidState)
}

func TestConvertRevertsOnInvoiceFailure(t *testing.T) {
	repo := newMemRepo()
	invoicer := &fakeInvoicer{fail: errors.New("boom")}
	svc := NewService(repo, invoicer)
	tenantID := uuid.New()
	q := acceptedQuotation(t, svc, tenantID)

	_, err := svc.Convert(context.Background(), tenantID, q.ID, ConvertRequest{
		IssueDate: time.Now(), DueDate: time.Now().AddDate(0, 1, 0),
	})
	require.Error(t, err)

	got, err := svc.Get(context.Background(), tenantID, q.ID)
	require.NoError(t, err)
	require.Equal(t, StatusAccepted, got.Status)
}

func TestExpireStale(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo, &fakeInvoicer{})
	tenantID := uuid.New()

	q, err := svc.Create(context.Background(), tenantID, createRequest())
	require.NoError(t, err)
	_, err = svc.Send(context.Background(), tenantID, q.ID)
	require.NoError(t, err)

	n, err := svc.ExpireStale(context.Background(), q.ValidUntil.AddDate(0, 0, 1))
	require.NoError(t, err)
	require.Equal(t, 1, n)

	got, err := svc.Get(context.Background(), tenantID, q.ID)
	require.NoError(t, err)
	require.Equal(t, StatusExpired, got.Status)
}
