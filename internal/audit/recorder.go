package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// querier covers both pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Recorder persists audit entries.
type Recorder struct {
	pool *pgxpool.Pool
}

// NewRecorder returns a new Recorder.
func NewRecorder(pool *pgxpool.Pool) *Recorder {
	return &Recorder{pool: pool}
}

// Append persists the entry outside any transaction.
func (r *Recorder) Append(ctx context.Context, entry Entry) error {
	if r == nil {
		return errors.New("audit: recorder not initialised")
	}
	return appendEntry(ctx, r.pool, entry)
}

// AppendTx persists the entry within the caller's transaction, so that a
// rolled-back mutation leaves no audit record behind.
func (r *Recorder) AppendTx(ctx context.Context, tx pgx.Tx, entry Entry) error {
	return appendEntry(ctx, tx, entry)
}

func appendEntry(ctx context.Context, q querier, entry Entry) error {
	if entry.Action == "" || entry.InvoiceID == uuid.Nil {
		return errors.New("audit: entry requires action and invoice id")
	}
	priorJSON, err := json.Marshal(entry.PriorData)
	if err != nil {
		return fmt.Errorf("audit: marshal prior data: %w", err)
	}
	newJSON, err := json.Marshal(entry.NewData)
	if err != nil {
		return fmt.Errorf("audit: marshal new data: %w", err)
	}
	occurredAt := entry.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}
	_, err = q.Exec(ctx, `INSERT INTO audit_entries (tenant_id, invoice_id, action, prior_data, new_data, occurred_at)
VALUES ($1, $2, $3, $4, $5, $6)`,
		entry.TenantID, entry.InvoiceID, string(entry.Action), priorJSON, newJSON, occurredAt)
	return err
}

// ListForInvoice returns the trail for an invoice, oldest first. Entries with
// identical timestamps keep insertion order.
func (r *Recorder) ListForInvoice(ctx context.Context, tenantID, invoiceID uuid.UUID) ([]Entry, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, tenant_id, invoice_id, action, prior_data, new_data, occurred_at
FROM audit_entries WHERE tenant_id = $1 AND invoice_id = $2 ORDER BY occurred_at, id`, tenantID, invoiceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var action string
		var priorJSON, newJSON []byte
		if err := rows.Scan(&e.ID, &e.TenantID, &e.InvoiceID, &action, &priorJSON, &newJSON, &e.OccurredAt); err != nil {
			return nil, err
		}
		e.Action = Action(action)
		if len(priorJSON) > 0 {
			if err := json.Unmarshal(priorJSON, &e.PriorData); err != nil {
				return nil, fmt.Errorf("audit: unmarshal prior data: %w", err)
			}
		}
		if len(newJSON) > 0 {
			if err := json.Unmarshal(newJSON, &e.NewData); err != nil {
				return nil, fmt.Errorf("audit: unmarshal new data: %w", err)
			}
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}
