package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/cicikitchen/storefront/internal/domain/customer"
)

const (
	upsertCustomerSQL = `INSERT INTO customers (id, name, phone)
		VALUES ($1, $2, $3)
		ON CONFLICT (phone) DO UPDATE SET name = EXCLUDED.name
		RETURNING id, created_at`

	listCustomersSQL = `SELECT id, name, phone, created_at FROM customers ORDER BY created_at DESC`

	countCustomersSQL = `SELECT count(*) FROM customers`
)

var _ customer.Repository = (*CustomerRepository)(nil)

// CustomerRepository implements customer.Repository backed by PostgreSQL.
type CustomerRepository struct {
	db DB
}

// NewCustomerRepository returns a CustomerRepository that uses the given pool.
func NewCustomerRepository(db DB) *CustomerRepository {
	return &CustomerRepository{db: db}
}

// Upsert inserts the customer or, when the phone is already known, refreshes
// the stored name. The ID of an existing customer wins over the given one.
func (r *CustomerRepository) Upsert(ctx context.Context, c *customer.Customer) error {
	err := r.db.QueryRow(ctx, upsertCustomerSQL, c.ID, c.Name, c.Phone).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		return fmt.Errorf("upserting customer %q: %w", c.Phone, err)
	}
	return nil
}

// List returns all customers, newest first.
func (r *CustomerRepository) List(ctx context.Context) ([]customer.Customer, error) {
	rows, err := r.db.Query(ctx, listCustomersSQL)
	if err != nil {
		return nil, fmt.Errorf("listing customers: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (customer.Customer, error) {
		var c customer.Customer
		err := row.Scan(&c.ID, &c.Name, &c.Phone, &c.CreatedAt)
		return c, err
	})
}

// Count returns the number of known customers.
func (r *CustomerRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRow(ctx, countCustomersSQL).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting customers: %w", err)
	}
	return n, nil
}
