package quotations

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/ledgerline/ledgerline/internal/billing/shared"
	"github.com/ledgerline/ledgerline/internal/platform/db"
)

const quotationColumns = `id, tenant_id, number, customer_id, currency, valid_until,
discount_type, discount_value, subtotal, discount_amount, vat_total, grand_total,
status, invoice_id, created_at, updated_at`

// PgRepository is the Postgres-backed quotation store.
type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

func (r *PgRepository) Insert(ctx context.Context, q Quotation) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var discountType *string
		discountValue := decimal.NullDecimal{}
		if q.Discount != nil {
			dt := string(q.Discount.Type)
			discountType = &dt
			discountValue = decimal.NullDecimal{Decimal: q.Discount.Value, Valid: true}
		}
		_, err := tx.Exec(ctx, `INSERT INTO quotations (`+quotationColumns+`)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
			q.ID, q.TenantID, q.Number, q.CustomerID, q.Currency, q.ValidUntil,
			discountType, discountValue, q.Subtotal, q.DiscountAmount, q.VATTotal, q.GrandTotal,
			q.Status, q.InvoiceID, q.CreatedAt, q.UpdatedAt)
		if err != nil {
			return err
		}
		for _, l := range q.Lines {
			_, err := tx.Exec(ctx, `INSERT INTO quotation_lines (id, quotation_id, description, quantity, unit_price, vat_rate, unit, line_order)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
				l.ID, q.ID, l.Description, l.Quantity, l.UnitPrice, l.VATRate, l.Unit, l.LineOrder)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *PgRepository) Get(ctx context.Context, tenantID, id uuid.UUID) (*Quotation, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+quotationColumns+` FROM quotations WHERE tenant_id = $1 AND id = $2`, tenantID, id)
	q, err := scanQuotation(row)
	if err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx, `SELECT id, quotation_id, description, quantity, unit_price, vat_rate, unit, line_order
FROM quotation_lines WHERE quotation_id = $1 ORDER BY line_order, id`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var l Line
		if err := rows.Scan(&l.ID, &l.QuotationID, &l.Description, &l.Quantity, &l.UnitPrice, &l.VATRate, &l.Unit, &l.LineOrder); err != nil {
			return nil, err
		}
		q.Lines = append(q.Lines, l)
	}
	return q, rows.Err()
}

func (r *PgRepository) List(ctx context.Context, tenantID uuid.UUID, status Status) ([]Quotation, error) {
	query := `SELECT ` + quotationColumns + ` FROM quotations WHERE tenant_id = $1`
	args := []any{tenantID}
	if status != "" {
		args = append(args, status)
		query += ` AND status = $2`
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Quotation
	for rows.Next() {
		q, err := scanQuotation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *q)
	}
	return out, rows.Err()
}

// SetStatus flips from one status to another only when the current status
// matches, reporting whether a row changed.
func (r *PgRepository) SetStatus(ctx context.Context, tenantID, id uuid.UUID, from, to Status) (bool, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE quotations SET status = $4, updated_at = now()
WHERE tenant_id = $1 AND id = $2 AND status = $3`, tenantID, id, from, to)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *PgRepository) LinkInvoice(ctx context.Context, tenantID, id, invoiceID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `UPDATE quotations SET invoice_id = $3, updated_at = now()
WHERE tenant_id = $1 AND id = $2`, tenantID, id, invoiceID)
	return err
}

func (r *PgRepository) ExpireStale(ctx context.Context, now time.Time) (int, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE quotations SET status = 'expired', updated_at = $1
WHERE status = 'sent' AND valid_until < $1`, now)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

// NextNumber reserves the next quotation number, sharing the counter table
// with invoices and credit notes.
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

type rowScanner interface {
	Scan(dest ...any) error
}

func scanQuotation(row rowScanner) (*Quotation, error) {
	var q Quotation
	var discountType *string
	var discountValue decimal.NullDecimal
	err := row.Scan(&q.ID, &q.TenantID, &q.Number, &q.CustomerID, &q.Currency, &q.ValidUntil,
		&discountType, &discountValue, &q.Subtotal, &q.DiscountAmount, &q.VATTotal, &q.GrandTotal,
		&q.Status, &q.InvoiceID, &q.CreatedAt, &q.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: quotation", shared.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	if discountType != nil {
		q.Discount = &shared.Discount{Type: shared.DiscountType(*discountType), Value: discountValue.Decimal}
	}
	return &q, nil
}
