package customers

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ledgerline/ledgerline/internal/billing/shared"
)

const customerColumns = `id, tenant_id, name, email, vat_number, address, created_at, updated_at`

// PgRepository is the Postgres-backed customer store.
type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

func (r *PgRepository) Insert(ctx context.Context, c Customer) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO customers (`+customerColumns+`)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		c.ID, c.TenantID, c.Name, c.Email, c.VATNumber, c.Address, c.CreatedAt, c.UpdatedAt)
	return err
}

func (r *PgRepository) Update(ctx context.Context, c Customer) error {
	tag, err := r.pool.Exec(ctx, `UPDATE customers SET name = $3, email = $4, vat_number = $5, address = $6, updated_at = $7
WHERE tenant_id = $1 AND id = $2`,
		c.TenantID, c.ID, c.Name, c.Email, c.VATNumber, c.Address, c.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: customer", shared.ErrNotFound)
	}
	return nil
}

func (r *PgRepository) Get(ctx context.Context, tenantID, id uuid.UUID) (*Customer, error) {
	var c Customer
	err := r.pool.QueryRow(ctx, `SELECT `+customerColumns+` FROM customers WHERE tenant_id = $1 AND id = $2`,
		tenantID, id).Scan(&c.ID, &c.TenantID, &c.Name, &c.Email, &c.VATNumber, &c.Address, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: customer", shared.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *PgRepository) List(ctx context.Context, tenantID uuid.UUID) ([]Customer, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+customerColumns+` FROM customers WHERE tenant_id = $1 ORDER BY name`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Customer
	for rows.Next() {
		var c Customer
		if err := rows.Scan(&c.ID, &c.TenantID, &c.Name, &c.Email, &c.VATNumber, &c.Address, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Exists satisfies the invoice service's customer check without loading the row.
func (r *PgRepository) Exists(ctx context.Context, tenantID, id uuid.UUID) error {
	var found bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM customers WHERE tenant_id = $1 AND id = $2)`,
		tenantID, id).Scan(&found)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%w: customer", shared.ErrNotFound)
	}
	return nil
}
