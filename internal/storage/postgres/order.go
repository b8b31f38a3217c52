package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/cicikitchen/storefront/internal/domain/order"
	"github.com/cicikitchen/storefront/internal/domain/product"
)

const (
	orderColumns = `id, customer_name, phone, items, total, status, created_at, updated_at`

	getOrderByIDSQL = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	getOrderByIdemKeySQL = `SELECT ` + orderColumns + ` FROM orders WHERE idempotency_key = $1`

	listOrdersSQL = `SELECT ` + orderColumns + ` FROM orders ORDER BY created_at DESC LIMIT $1`

	insertOrderSQL = `INSERT INTO orders (id, customer_name, phone, items, total, status, idempotency_key)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at`

	// Conditional decrement: only succeeds while enough stock remains, so
	// two orders racing for the last unit cannot both pass.
	decrementStockSQL = `UPDATE products
		SET stock = stock - $2, updated_at = now()
		WHERE id = $1 AND stock >= $2`

	restoreStockSQL = `UPDATE products
		SET stock = stock + $2, updated_at = now()
		WHERE id = $1`

	availableStockSQL = `SELECT stock FROM products WHERE id = $1`

	transitionOrderSQL = `UPDATE orders
		SET status = $3, updated_at = now()
		WHERE id = $1 AND status = $2
		RETURNING ` + orderColumns

	orderStatusSQL = `SELECT status FROM orders WHERE id = $1`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL. Order
// items are stored as a JSONB column with the unit price frozen per item.
type OrderRepository struct {
	db DB
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(db DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// Create decrements stock for every item and inserts the order row in a
// single transaction. If any line cannot be satisfied the transaction is
// rolled back and the error lists every failing line — no partial orders,
// no partial decrements.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin create order: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// Decrement in canonical product order: two concurrent multi-line orders
	// listing the same products in reverse would otherwise acquire row locks
	// in opposite order and deadlock.
	lines := make([]order.Item, len(o.Items))
	copy(lines, o.Items)
	sort.Slice(lines, func(i, j int) bool { return lines[i].ProductID < lines[j].ProductID })

	var shortages []product.Shortage
	for _, item := range lines {
		tag, err := tx.Exec(ctx, decrementStockSQL, item.ProductID, item.Quantity)
		if err != nil {
			return fmt.Errorf("decrement stock for %q: %w", item.ProductID, err)
		}
		if tag.RowsAffected() != 0 {
			continue
		}

		var available int
		if err := tx.QueryRow(ctx, availableStockSQL, item.ProductID).Scan(&available); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return &order.ProductUnavailableError{ProductID: item.ProductID}
			}
			return fmt.Errorf("check stock for %q: %w", item.ProductID, err)
		}
		shortages = append(shortages, product.Shortage{
			ProductID: item.ProductID,
			Requested: item.Quantity,
			Available: available,
		})
	}
	if len(shortages) > 0 {
		return &product.InsufficientStockError{Shortages: shortages}
	}

	itemsJSON, err := json.Marshal(o.Items)
	if err != nil {
		return fmt.Errorf("marshaling order items: %w", err)
	}

	var idemKey *string
	if o.IdempotencyKey != "" {
		idemKey = &o.IdempotencyKey
	}
	err = tx.QueryRow(ctx, insertOrderSQL,
		o.ID, o.CustomerName, o.Phone, itemsJSON, o.Total, o.Status, idemKey,
	).Scan(&o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if idemKey != nil && errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return order.ErrIdempotencyConflict
		}
		return fmt.Errorf("inserting order %q: %w", o.ID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit create order: %w", err)
	}
	return nil
}

// GetByID returns a single order by its identifier.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*order.Order, error) {
	rows, err := r.db.Query(ctx, getOrderByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}

	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}
	return &o, nil
}

// FindByIdempotencyKey returns the order created under the given key, or
// order.ErrNotFound if the key has not been used.
func (r *OrderRepository) FindByIdempotencyKey(ctx context.Context, key string) (*order.Order, error) {
	rows, err := r.db.Query(ctx, getOrderByIdemKeySQL, key)
	if err != nil {
		return nil, fmt.Errorf("finding order by idempotency key: %w", err)
	}

	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("finding order by idempotency key: %w", err)
	}
	return &o, nil
}

// List returns up to limit orders, newest first.
func (r *OrderRepository) List(ctx context.Context, limit int) ([]order.Order, error) {
	rows, err := r.db.Query(ctx, listOrdersSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	return pgx.CollectRows(rows, scanOrder)
}

// Transition updates the order status only when the stored status still
// equals from, restoring each item's stock in the same transaction when
// restock is set. The status precondition makes the restore idempotent: a
// repeated cancellation matches zero rows and restores nothing.
func (r *OrderRepository) Transition(ctx context.Context, id string, from, to order.Status, restock bool) (*order.Order, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transition: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	rows, err := tx.Query(ctx, transitionOrderSQL, id, from, to)
	if err != nil {
		return nil, fmt.Errorf("transitioning order %q: %w", id, err)
	}
	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("transitioning order %q: %w", id, err)
		}
		// Precondition failed: report the current state, or absence.
		var current order.Status
		if err := tx.QueryRow(ctx, orderStatusSQL, id).Scan(&current); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, order.ErrNotFound
			}
			return nil, fmt.Errorf("checking order %q: %w", id, err)
		}
		return nil, &order.IllegalTransitionError{From: current, To: to}
	}

	if restock {
		for _, item := range o.Items {
			if _, err := tx.Exec(ctx, restoreStockSQL, item.ProductID, item.Quantity); err != nil {
				return nil, fmt.Errorf("restoring stock for %q: %w", item.ProductID, err)
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transition: %w", err)
	}
	return &o, nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o         order.Order
		itemsJSON []byte
	)
	err := row.Scan(
		&o.ID, &o.CustomerName, &o.Phone, &itemsJSON, &o.Total, &o.Status,
		&o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return o, err
	}
	if err := json.Unmarshal(itemsJSON, &o.Items); err != nil {
		return o, fmt.Errorf("unmarshaling order items: %w", err)
	}
	return o, nil
}
