package invoices

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/ledgerline/ledgerline/internal/audit"
	"github.com/ledgerline/ledgerline/internal/billing/shared"
	"github.com/ledgerline/ledgerline/internal/platform/db"
)

const invoiceColumns = `id, tenant_id, number, customer_id, currency, issue_date, due_date,
discount_type, discount_value, subtotal, discount_amount, vat_total, grand_total,
status, is_issued, issued_at, created_at, updated_at`

// PgRepository is the Postgres-backed Repository.
type PgRepository struct {
	pool    *pgxpool.Pool
	auditor *audit.Recorder
}

// NewPgRepository returns a PgRepository.
func NewPgRepository(pool *pgxpool.Pool, auditor *audit.Recorder) *PgRepository {
	return &PgRepository{pool: pool, auditor: auditor}
}

// WithTx runs fn inside a repeatable-read transaction. Serialization conflicts
// surface as ErrInconsistentBalance so callers can retry.
func (r *PgRepository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &pgTxRepository{tx: tx, auditor: r.auditor})
	})
	if db.IsSerializationFailure(err) {
		return fmt.Errorf("%w: %v", shared.ErrInconsistentBalance, err)
	}
	return err
}

func (r *PgRepository) GetInvoice(ctx context.Context, tenantID, id uuid.UUID) (*Invoice, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE tenant_id = $1 AND id = $2`, tenantID, id)
	inv, err := scanInvoice(row)
	if err != nil {
		return nil, err
	}
	inv.Lines, err = loadLines(ctx, r.pool, id)
	if err != nil {
		return nil, err
	}
	return inv, nil
}

func (r *PgRepository) ListInvoices(ctx context.Context, tenantID uuid.UUID, req ListInvoicesRequest) ([]Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE tenant_id = $1`
	args := []any{tenantID}
	if req.Status != "" {
		args = append(args, req.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if req.CustomerID != uuid.Nil {
		args = append(args, req.CustomerID)
		query += fmt.Sprintf(" AND customer_id = $%d", len(args))
	}
	if req.FromDate != nil {
		args = append(args, *req.FromDate)
		query += fmt.Sprintf(" AND issue_date >= $%d", len(args))
	}
	if req.ToDate != nil {
		args = append(args, *req.ToDate)
		query += fmt.Sprintf(" AND issue_date <= $%d", len(args))
	}
	limit := req.Limit
	if limit <= 0 {
		limit = 50
	}
	args = append(args, limit, req.Offset)
	query += fmt.Sprintf(" ORDER BY issue_date DESC, number DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *inv)
	}
	return out, rows.Err()
}

func (r *PgRepository) ListCreditNotes(ctx context.Context, tenantID uuid.UUID, invoiceID *uuid.UUID) ([]CreditNote, error) {
	query := `SELECT id, tenant_id, number, invoice_id, amount, vat_rate, reason, issue_date, created_at
FROM credit_notes WHERE tenant_id = $1 AND `
	args := []any{tenantID}
	if invoiceID == nil {
		query += `invoice_id IS NULL`
	} else {
		args = append(args, *invoiceID)
		query += `invoice_id = $2`
	}
	query += ` ORDER BY created_at, id`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []CreditNote
	for rows.Next() {
		var n CreditNote
		if err := rows.Scan(&n.ID, &n.TenantID, &n.Number, &n.InvoiceID, &n.Amount, &n.VATRate,
			&n.Reason, &n.IssueDate, &n.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (r *PgRepository) ListPayments(ctx context.Context, tenantID, invoiceID uuid.UUID) ([]Payment, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, tenant_id, invoice_id, amount, paid_at, method, note, created_at
FROM payments WHERE tenant_id = $1 AND invoice_id = $2 ORDER BY paid_at, created_at, id`, tenantID, invoiceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Payment
	for rows.Next() {
		var p Payment
		if err := rows.Scan(&p.ID, &p.TenantID, &p.InvoiceID, &p.Amount, &p.PaidAt, &p.Method, &p.Note, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// NextNumber reserves the next document number for the tenant, prefix and
// current year, e.g. INV-2026-0042.
func (r *PgRepository) NextNumber(ctx context.Context, tenantID uuid.UUID, prefix string) (string, error) {
	year := time.Now().UTC().Year()
	var counter int64
	err := r.pool.QueryRow(ctx, `INSERT INTO document_numbers (tenant_id, prefix, year, counter)
VALUES ($1, $2, $3, 1)
ON CONFLICT (tenant_id, prefix, year) DO UPDATE SET counter = document_numbers.counter + 1
RETURNING counter`, tenantID, prefix, year).Scan(&counter)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%d-%04d", prefix, year, counter), nil
}

// OverdueRef identifies an invoice flipped to overdue by the sweep.
type OverdueRef struct {
	TenantID  uuid.UUID
	InvoiceID uuid.UUID
}

func (r *PgRepository) MarkOverdue(ctx context.Context, now time.Time) ([]OverdueRef, error) {
	rows, err := r.pool.Query(ctx, `UPDATE invoices SET status = 'overdue', updated_at = $1
WHERE is_issued AND status IN ('issued', 'partially_paid') AND due_date < $1
RETURNING tenant_id, id`, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var refs []OverdueRef
	for rows.Next() {
		var ref OverdueRef
		if err := rows.Scan(&ref.TenantID, &ref.InvoiceID); err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}

type pgTxRepository struct {
	tx      pgx.Tx
	auditor *audit.Recorder
}

func (t *pgTxRepository) InsertInvoice(ctx context.Context, inv Invoice) error {
	discountType, discountValue := discountFields(inv.Discount)
	_, err := t.tx.Exec(ctx, `INSERT INTO invoices (`+invoiceColumns+`)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`,
		inv.ID, inv.TenantID, inv.Number, inv.CustomerID, inv.Currency, inv.IssueDate, inv.DueDate,
		discountType, discountValue, inv.Subtotal, inv.DiscountAmount, inv.VATTotal, inv.GrandTotal,
		inv.Status, inv.IsIssued, inv.IssuedAt, inv.CreatedAt, inv.UpdatedAt)
	if db.IsUniqueViolation(err) {
		return fmt.Errorf("%w: invoice number %s taken", shared.ErrValidation, inv.Number)
	}
	return err
}

func (t *pgTxRepository) ReplaceLines(ctx context.Context, invoiceID uuid.UUID, lines []LineItem) error {
	if _, err := t.tx.Exec(ctx, `DELETE FROM invoice_lines WHERE invoice_id = $1`, invoiceID); err != nil {
		return err
	}
	for _, l := range lines {
		_, err := t.tx.Exec(ctx, `INSERT INTO invoice_lines (id, invoice_id, description, quantity, unit_price, vat_rate, unit, line_order)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			l.ID, invoiceID, l.Description, l.Quantity, l.UnitPrice, l.VATRate, l.Unit, l.LineOrder)
		if err != nil {
			return err
		}
	}
	return nil
}

// UpdateDraft writes the mutable invoice fields. The is_issued guard makes a
// concurrent issue win over a late draft edit.
func (t *pgTxRepository) UpdateDraft(ctx context.Context, inv Invoice) error {
	discountType, discountValue := discountFields(inv.Discount)
	tag, err := t.tx.Exec(ctx, `UPDATE invoices SET issue_date = $3, due_date = $4,
discount_type = $5, discount_value = $6, subtotal = $7, discount_amount = $8,
vat_total = $9, grand_total = $10, updated_at = $11
WHERE tenant_id = $1 AND id = $2 AND is_issued = FALSE`,
		inv.TenantID, inv.ID, inv.IssueDate, inv.DueDate,
		discountType, discountValue, inv.Subtotal, inv.DiscountAmount,
		inv.VATTotal, inv.GrandTotal, inv.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: invoice %s", shared.ErrImmutableDocument, inv.Number)
	}
	return nil
}

func (t *pgTxRepository) GetInvoiceForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*Invoice, error) {
	row := t.tx.QueryRow(ctx, `SELECT `+invoiceColumns+` FROM invoices
WHERE tenant_id = $1 AND id = $2 FOR UPDATE`, tenantID, id)
	inv, err := scanInvoice(row)
	if err != nil {
		return nil, err
	}
	inv.Lines, err = loadLines(ctx, t.tx, id)
	if err != nil {
		return nil, err
	}
	return inv, nil
}

// MarkIssued flips the one-way issued flag. Returns false when the invoice was
// already issued, so the caller can reject the duplicate transition.
func (t *pgTxRepository) MarkIssued(ctx context.Context, tenantID, id uuid.UUID, at time.Time) (bool, error) {
	tag, err := t.tx.Exec(ctx, `UPDATE invoices SET is_issued = TRUE, issued_at = $3, status = 'issued', updated_at = $3
WHERE tenant_id = $1 AND id = $2 AND is_issued = FALSE`, tenantID, id, at)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (t *pgTxRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status Status) error {
	_, err := t.tx.Exec(ctx, `UPDATE invoices SET status = $2, updated_at = now() WHERE id = $1`, id, status)
	return err
}

func (t *pgTxRepository) InsertPayment(ctx context.Context, p Payment) error {
	_, err := t.tx.Exec(ctx, `INSERT INTO payments (id, tenant_id, invoice_id, amount, paid_at, method, note, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		p.ID, p.TenantID, p.InvoiceID, p.Amount, p.PaidAt, p.Method, p.Note, p.CreatedAt)
	return err
}

func (t *pgTxRepository) InsertCreditNote(ctx context.Context, n CreditNote) error {
	_, err := t.tx.Exec(ctx, `INSERT INTO credit_notes (id, tenant_id, number, invoice_id, amount, vat_rate, reason, issue_date, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		n.ID, n.TenantID, n.Number, n.InvoiceID, n.Amount, n.VATRate, n.Reason, n.IssueDate, n.CreatedAt)
	if db.IsUniqueViolation(err) {
		return fmt.Errorf("%w: credit note number %s taken", shared.ErrValidation, n.Number)
	}
	return err
}

func (t *pgTxRepository) SumPayments(ctx context.Context, invoiceID uuid.UUID) (decimal.Decimal, error) {
	var sum decimal.Decimal
	err := t.tx.QueryRow(ctx, `SELECT COALESCE(SUM(amount), 0) FROM payments WHERE invoice_id = $1`, invoiceID).Scan(&sum)
	return sum, err
}

// SumCreditGross totals the gross value of credit notes applied to an invoice.
// Gross per note rounds to cents before summing, matching GrossAmount.
func (t *pgTxRepository) SumCreditGross(ctx context.Context, invoiceID uuid.UUID) (decimal.Decimal, error) {
	var sum decimal.Decimal
	err := t.tx.QueryRow(ctx, `SELECT COALESCE(SUM(ROUND(amount * (1 + vat_rate), 2)), 0)
FROM credit_notes WHERE invoice_id = $1`, invoiceID).Scan(&sum)
	return sum, err
}

func (t *pgTxRepository) AppendAudit(ctx context.Context, entry audit.Entry) error {
	return t.auditor.AppendTx(ctx, t.tx, entry)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanInvoice(row rowScanner) (*Invoice, error) {
	var inv Invoice
	var discountType *string
	var discountValue decimal.NullDecimal
	err := row.Scan(&inv.ID, &inv.TenantID, &inv.Number, &inv.CustomerID, &inv.Currency,
		&inv.IssueDate, &inv.DueDate, &discountType, &discountValue,
		&inv.Subtotal, &inv.DiscountAmount, &inv.VATTotal, &inv.GrandTotal,
		&inv.Status, &inv.IsIssued, &inv.IssuedAt, &inv.CreatedAt, &inv.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: invoice", shared.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	if discountType != nil {
		inv.Discount = &shared.Discount{Type: shared.DiscountType(*discountType), Value: discountValue.Decimal}
	}
	return &inv, nil
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func loadLines(ctx context.Context, q querier, invoiceID uuid.UUID) ([]LineItem, error) {
	rows, err := q.Query(ctx, `SELECT id, invoice_id, description, quantity, unit_price, vat_rate, unit, line_order
FROM invoice_lines WHERE invoice_id = $1 ORDER BY line_order, id`, invoiceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []LineItem
	for rows.Next() {
		var l LineItem
		if err := rows.Scan(&l.ID, &l.InvoiceID, &l.Description, &l.Quantity, &l.UnitPrice, &l.VATRate, &l.Unit, &l.LineOrder); err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

func discountFields(d *shared.Discount) (*string, decimal.NullDecimal) {
	if d == nil {
		return nil, decimal.NullDecimal{}
	}
	dt := string(d.Type)
	return &dt, decimal.NullDecimal{Decimal: d.Value, Valid: true}
}
