package ledger

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/ledgerline/ledgerline/internal/audit"
	"github.com/ledgerline/ledgerline/internal/billing/invoices"
)

func eventTypes(events []Event) []EventType {
	out := make([]EventType, 0, len(events))
	for _, e := range events {
		out = append(out, e.Type)
	}
	return out
}

func findEvent(t *testing.T, events []Event, typ EventType) Event {
	t.Helper()
	for _, e := range events {
		if e.Type == typ {
			return e
		}
	}
	t.Fatalf("no %s event in %v", typ, eventTypes(events))
	return Event{}
}

func TestTimelinePaidEventDatedToCrossingPayment(t *testing.T) {
	due := time.Date(2026, 9, 30, 0, 0, 0, 0, time.UTC)
	inv := issuedInvoice(118, due)

	first := payment(inv.ID, 60, due.AddDate(0, 0, -20))
	second := payment(inv.ID, 58, due.AddDate(0, 0, -10))
	events := BuildTimeline(inv, nil, []invoices.Payment{second, first}, nil)

	paid := findEvent(t, events, EventPaid)
	require.True(t, paid.Date.Equal(second.PaidAt))

	require.Equal(t, []EventType{EventCreated, EventIssued, EventPayment, EventPayment, EventPaid}, eventTypes(events))
}

func TestTimelineCreditOnlySettlement(t *testing.T) {
	due := time.Date(2026, 9, 30, 0, 0, 0, 0, time.UTC)
	inv := issuedInvoice(118, due)
	n := note(inv.ID, 100, 0.18, due.AddDate(0, 0, -5))

	events := BuildTimeline(inv, []invoices.CreditNote{n}, nil, nil)
	paid := findEvent(t, events, EventPaid)
	require.True(t, paid.Date.Equal(n.IssueDate))
}

func TestTimelinePaidEventDatedToSettlingCreditNote(t *testing.T) {
	due := time.Date(2026, 9, 30, 0, 0, 0, 0, time.UTC)
	inv := issuedInvoice(118, due)

	p := payment(inv.ID, 60, due.AddDate(0, 0, -20))
	n := note(inv.ID, 50, 0.18, due.AddDate(0, 0, -10)) // gross 59, settles the rest

	events := BuildTimeline(inv, []invoices.CreditNote{n}, []invoices.Payment{p}, nil)

	paid := findEvent(t, events, EventPaid)
	require.True(t, paid.Date.Equal(n.IssueDate))

	// the paid event must follow the credit note that caused it
	require.Equal(t, []EventType{EventCreated, EventIssued, EventPayment, EventCreditNote, EventPaid}, eventTypes(events))
}

func TestTimelineUnsettledHasNoPaidEvent(t *testing.T) {
	due := time.Date(2026, 9, 30, 0, 0, 0, 0, time.UTC)
	inv := issuedInvoice(118, due)

	events := BuildTimeline(inv, nil, []invoices.Payment{payment(inv.ID, 50, due)}, nil)
	for _, e := range events {
		require.NotEqual(t, EventPaid, e.Type)
	}
}

func TestTimelineIncludesCorrectionNotes(t *testing.T) {
	due := time.Date(2026, 9, 30, 0, 0, 0, 0, time.UTC)
	inv := issuedInvoice(118, due)
	at := due.AddDate(0, 0, -3)

	entries := []audit.Entry{
		{Action: audit.ActionIssued, OccurredAt: *inv.IssuedAt},
		{Action: audit.ActionCorrectionNoteAdded, NewData: map[string]any{"note": "fixed PO reference"}, OccurredAt: at},
	}
	events := BuildTimeline(inv, nil, nil, entries)

	correction := findEvent(t, events, EventCorrectionNote)
	require.Equal(t, "fixed PO reference", correction.Detail)
	require.True(t, correction.Date.Equal(at))
}

func TestTimelinePaymentAmountsPreserved(t *testing.T) {
	due := time.Date(2026, 9, 30, 0, 0, 0, 0, time.UTC)
	inv := issuedInvoice(118, due)

	events := BuildTimeline(inv, nil, []invoices.Payment{payment(inv.ID, 41.27, due.AddDate(0, 0, -1))}, nil)
	p := findEvent(t, events, EventPayment)
	require.NotNil(t, p.Amount)
	require.True(t, p.Amount.Equal(decimal.NewFromFloat(41.27)))
}
