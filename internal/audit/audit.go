// Package audit keeps the append-only compliance record of invoice lifecycle
// events. Entries are written by the invoice service, inside the same
// transaction as the mutation they describe, and are never edited or removed.
package audit

import (
	"time"

	"github.com/google/uuid"
)

// Action enumerates recorded lifecycle actions.
type Action string

const (
	ActionCreated             Action = "created"
	ActionIssued              Action = "issued"
	ActionCreditNoteCreated   Action = "credit_note_created"
	ActionCorrectionNoteAdded Action = "correction_note_added"
)

// Entry is one audit trail record attached to an invoice.
type Entry struct {
	ID         int64          `json:"id"`
	TenantID   uuid.UUID      `json:"tenant_id"`
	InvoiceID  uuid.UUID      `json:"invoice_id"`
	Action     Action         `json:"action"`
	PriorData  map[string]any `json:"prior_data,omitempty"`
	NewData    map[string]any `json:"new_data,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}
