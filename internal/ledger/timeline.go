package ledger

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ledgerline/ledgerline/internal/audit"
	"github.com/ledgerline/ledgerline/internal/billing/invoices"
	"github.com/ledgerline/ledgerline/internal/money"
)

// EventType enumerates timeline event types.
type EventType string

const (
	EventCreated        EventType = "created"
	EventIssued         EventType = "issued"
	EventCreditNote     EventType = "credit_note"
	EventPayment        EventType = "payment"
	EventCorrectionNote EventType = "correction_note"
	// EventPaid is synthetic: it marks the moment the running balance
	// crossed into the settlement tolerance, not a stored document.
	EventPaid EventType = "paid"
)

// Event is one entry in an invoice's timeline.
type Event struct {
	Type   EventType        `json:"type"`
	Date   time.Time        `json:"date"`
	Amount *decimal.Decimal `json:"amount,omitempty"`
	Detail string           `json:"detail,omitempty"`

	rank int
}

var eventRank = map[EventType]int{
	EventCreated:        0,
	EventIssued:         1,
	EventCreditNote:     2,
	EventCorrectionNote: 3,
	EventPayment:        4,
	EventPaid:           5,
}

// reduction is a credit note or payment flattened for balance replay.
type reduction struct {
	date    time.Time
	created time.Time
	amount  decimal.Decimal
}

// BuildTimeline projects the invoice's history into a date-ordered event
// list. When the invoice is settled, credit notes and payments are replayed
// merged in date order and a synthetic paid event is dated to whichever of
// them brought the balance inside the tolerance, so the paid event never
// precedes the document that caused it.
func BuildTimeline(inv *invoices.Invoice, notes []invoices.CreditNote, payments []invoices.Payment, entries []audit.Entry) []Event {
	events := []Event{{Type: EventCreated, Date: inv.CreatedAt}}
	if inv.IssuedAt != nil {
		events = append(events, Event{Type: EventIssued, Date: *inv.IssuedAt, Detail: inv.Number})
	}

	reductions := make([]reduction, 0, len(notes)+len(payments))
	for _, n := range notes {
		gross := n.GrossAmount()
		amount := gross
		events = append(events, Event{Type: EventCreditNote, Date: n.IssueDate, Amount: &amount, Detail: n.Number})
		reductions = append(reductions, reduction{date: n.IssueDate, created: n.CreatedAt, amount: gross})
	}
	for _, p := range payments {
		amount := p.Amount
		events = append(events, Event{Type: EventPayment, Date: p.PaidAt, Amount: &amount, Detail: string(p.Method)})
		reductions = append(reductions, reduction{date: p.PaidAt, created: p.CreatedAt, amount: p.Amount})
	}

	for _, e := range entries {
		if e.Action == audit.ActionCorrectionNoteAdded {
			detail, _ := e.NewData["note"].(string)
			events = append(events, Event{Type: EventCorrectionNote, Date: e.OccurredAt, Detail: detail})
		}
	}

	sort.SliceStable(reductions, func(i, j int) bool {
		if !reductions[i].date.Equal(reductions[j].date) {
			return reductions[i].date.Before(reductions[j].date)
		}
		return reductions[i].created.Before(reductions[j].created)
	})

	remaining := inv.GrossTotal()
	for _, r := range reductions {
		remaining = remaining.Sub(r.amount)
		if money.Settled(remaining) {
			events = append(events, Event{Type: EventPaid, Date: r.date})
			break
		}
	}

	for i := range events {
		events[i].rank = eventRank[events[i].Type]
	}
	sort.SliceStable(events, func(i, j int) bool {
		if !events[i].Date.Equal(events[j].Date) {
			return events[i].Date.Before(events[j].Date)
		}
		return events[i].rank < events[j].rank
	})
	return events
}
