package cart

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/cicikitchen/storefront/internal/domain/product"
)

// Summary is the live-priced view of a cart. Lines whose product has
// vanished from the catalog are excluded from the subtotal and reported in
// Unavailable so the caller can prune them.
type Summary struct {
	TotalItems  int
	Subtotal    decimal.Decimal
	Unavailable []string
}

// Service applies cart mutations against the persistent store and computes
// summaries against the live catalog.
type Service struct {
	carts    Repository
	products product.Repository
}

// NewService creates a cart Service.
func NewService(carts Repository, products product.Repository) *Service {
	return &Service{carts: carts, products: products}
}

// Get loads the owner's cart, creating an empty one if none exists yet.
func (s *Service) Get(ctx context.Context, ownerID string) (*Cart, error) {
	c, err := s.carts.Get(ctx, ownerID)
	if err != nil {
		return nil, errors.Wrap(err, "get cart")
	}
	return c, nil
}

// AddLine merges the quantity into the owner's cart and persists it.
func (s *Service) AddLine(ctx context.Context, ownerID, productID string, qty int) (*Cart, error) {
	c, err := s.carts.Get(ctx, ownerID)
	if err != nil {
		return nil, errors.Wrap(err, "get cart")
	}
	// The product must exist at add time; afterwards the reference stays
	// live and is re-checked by Summary.
	if _, err := s.products.GetByID(ctx, productID); err != nil {
		return nil, err
	}
	if err := c.AddLine(productID, qty); err != nil {
		return nil, err
	}
	if err := s.carts.Save(ctx, c); err != nil {
		return nil, errors.Wrap(err, "save cart")
	}
	return c, nil
}

// SetQuantity sets the line quantity (zero or less removes the line) and
// persists the cart.
func (s *Service) SetQuantity(ctx context.Context, ownerID, productID string, qty int) (*Cart, error) {
	c, err := s.carts.Get(ctx, ownerID)
	if err != nil {
		return nil, errors.Wrap(err, "get cart")
	}
	c.SetQuantity(productID, qty)
	if err := s.carts.Save(ctx, c); err != nil {
		return nil, errors.Wrap(err, "save cart")
	}
	return c, nil
}

// RemoveLine removes the product's line and persists the cart.
func (s *Service) RemoveLine(ctx context.Context, ownerID, productID string) (*Cart, error) {
	c, err := s.carts.Get(ctx, ownerID)
	if err != nil {
		return nil, errors.Wrap(err, "get cart")
	}
	c.RemoveLine(productID)
	if err := s.carts.Save(ctx, c); err != nil {
		return nil, errors.Wrap(err, "save cart")
	}
	return c, nil
}

// Clear drops the owner's cart entirely.
func (s *Service) Clear(ctx context.Context, ownerID string) error {
	return s.carts.Delete(ctx, ownerID)
}

// Summary prices the cart against the current catalog. Carts persist across
// catalog edits, so every call re-resolves each line: missing products are
// flagged rather than failing the whole summary.
func (s *Service) Summary(ctx context.Context, ownerID string) (*Summary, error) {
	c, err := s.carts.Get(ctx, ownerID)
	if err != nil {
		return nil, errors.Wrap(err, "get cart")
	}
	if len(c.Lines) == 0 {
		return &Summary{Subtotal: decimal.Zero}, nil
	}

	ids := make([]string, len(c.Lines))
	for i, l := range c.Lines {
		ids[i] = l.ProductID
	}
	fetched, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "get products")
	}
	byID := make(map[string]product.Product, len(fetched))
	for _, p := range fetched {
		byID[p.ID] = p
	}

	sum := &Summary{Subtotal: decimal.Zero}
	for _, l := range c.Lines {
		p, ok := byID[l.ProductID]
		if !ok {
			sum.Unavailable = append(sum.Unavailable, l.ProductID)
			continue
		}
		sum.TotalItems += l.Quantity
		sum.Subtotal = sum.Subtotal.Add(p.Price.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	return sum, nil
}
