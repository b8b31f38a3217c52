package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/cicikitchen/storefront/internal/domain/cart"
)

const (
	getCartSQL = `SELECT owner_id, lines, updated_at FROM carts WHERE owner_id = $1`

	upsertCartSQL = `INSERT INTO carts (owner_id, lines, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (owner_id) DO UPDATE SET lines = EXCLUDED.lines, updated_at = now()
		RETURNING updated_at`

	deleteCartSQL = `DELETE FROM carts WHERE owner_id = $1`
)

var _ cart.Repository = (*CartRepository)(nil)

// CartRepository implements cart.Repository backed by PostgreSQL. Lines are
// stored as a JSONB column keyed by owner.
type CartRepository struct {
	db DB
}

// NewCartRepository returns a CartRepository that uses the given pool.
func NewCartRepository(db DB) *CartRepository {
	return &CartRepository{db: db}
}

// Get returns the owner's cart. Unknown owners get an empty cart, not an
// error — a cart exists as soon as someone starts shopping.
func (r *CartRepository) Get(ctx context.Context, ownerID string) (*cart.Cart, error) {
	var (
		c         cart.Cart
		linesJSON []byte
	)
	err := r.db.QueryRow(ctx, getCartSQL, ownerID).Scan(&c.OwnerID, &linesJSON, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &cart.Cart{OwnerID: ownerID}, nil
		}
		return nil, fmt.Errorf("getting cart for %q: %w", ownerID, err)
	}
	if err := json.Unmarshal(linesJSON, &c.Lines); err != nil {
		return nil, fmt.Errorf("unmarshaling cart lines: %w", err)
	}
	return &c, nil
}

// Save upserts the cart under its owner.
func (r *CartRepository) Save(ctx context.Context, c *cart.Cart) error {
	lines := c.Lines
	if lines == nil {
		lines = []cart.Line{}
	}
	linesJSON, err := json.Marshal(lines)
	if err != nil {
		return fmt.Errorf("marshaling cart lines: %w", err)
	}
	if err := r.db.QueryRow(ctx, upsertCartSQL, c.OwnerID, linesJSON).Scan(&c.UpdatedAt); err != nil {
		return fmt.Errorf("saving cart for %q: %w", c.OwnerID, err)
	}
	return nil
}

// Delete drops the owner's cart row. Deleting a missing cart is a no-op.
func (r *CartRepository) Delete(ctx context.Context, ownerID string) error {
	if _, err := r.db.Exec(ctx, deleteCartSQL, ownerID); err != nil {
		return fmt.Errorf("deleting cart for %q: %w", ownerID, err)
	}
	return nil
}
