package cart

import (
	"context"
	"fmt"
	"time"
)

// Line is a single cart entry. A cart holds at most one line per product.
type Line struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// Cart is a per-owner mutable selection of products and quantities. The
// owner is either an authenticated principal or an anonymous session ID.
// Product references are live: prices and availability are re-validated
// against the catalog on every summary.
type Cart struct {
	OwnerID   string    `json:"ownerId"`
	Lines     []Line    `json:"lines"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// InvalidQuantityError indicates a line operation with a non-positive quantity.
type InvalidQuantityError struct {
	ProductID string
	Quantity  int
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity %d is invalid for product %s", e.Quantity, e.ProductID)
}

// AddLine merges qty into an existing line for the product, or appends a new
// line. Quantities of zero or less are rejected.
func (c *Cart) AddLine(productID string, qty int) error {
	if qty <= 0 {
		return &InvalidQuantityError{ProductID: productID, Quantity: qty}
	}
	for i := range c.Lines {
		if c.Lines[i].ProductID == productID {
			c.Lines[i].Quantity += qty
			return nil
		}
	}
	c.Lines = append(c.Lines, Line{ProductID: productID, Quantity: qty})
	return nil
}

// SetQuantity replaces the quantity for the product's line. A quantity of
// zero or less removes the line; setting a product not in the cart adds it.
func (c *Cart) SetQuantity(productID string, qty int) {
	if qty <= 0 {
		c.RemoveLine(productID)
		return
	}
	for i := range c.Lines {
		if c.Lines[i].ProductID == productID {
			c.Lines[i].Quantity = qty
			return
		}
	}
	c.Lines = append(c.Lines, Line{ProductID: productID, Quantity: qty})
}

// RemoveLine deletes the line for the product, preserving line order.
func (c *Cart) RemoveLine(productID string) {
	for i := range c.Lines {
		if c.Lines[i].ProductID == productID {
			c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
			return
		}
	}
}

// Clear removes every line.
func (c *Cart) Clear() {
	c.Lines = nil
}

// Repository defines server-synced cart persistence keyed by owner.
// Get returns an empty cart (not an error) for unknown owners.
type Repository interface {
	Get(ctx context.Context, ownerID string) (*Cart, error)
	Save(ctx context.Context, c *Cart) error
	Delete(ctx context.Context, ownerID string) error
}
