package product

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// Product represents a catalog item available for purchase.
type Product struct {
	ID          string
	Name        string
	Price       decimal.Decimal
	Stock       int
	Description string
	Image       string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Validate checks the catalog invariants: non-empty name, non-negative
// price, non-negative stock.
func (p *Product) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return &ValidationError{Field: "name", Reason: "name is required"}
	}
	if p.Price.IsNegative() {
		return &ValidationError{Field: "price", Reason: "price must not be negative"}
	}
	if p.Stock < 0 {
		return &ValidationError{Field: "stock", Reason: "stock must not be negative"}
	}
	return nil
}

// ValidationError indicates a product field is out of range or malformed.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid product %s: %s", e.Field, e.Reason)
}

// Shortage describes a single product line that could not be satisfied
// from current stock.
type Shortage struct {
	ProductID string `json:"productId"`
	Requested int    `json:"requested"`
	Available int    `json:"available"`
}

// InsufficientStockError indicates one or more lines exceed available stock.
// It carries every failing line so the client can offer quantity adjustments.
type InsufficientStockError struct {
	Shortages []Shortage
}

func (e *InsufficientStockError) Error() string {
	ids := make([]string, len(e.Shortages))
	for i, s := range e.Shortages {
		ids[i] = s.ProductID
	}
	return fmt.Sprintf("insufficient stock for products: %s", strings.Join(ids, ", "))
}

// Repository defines catalog persistence. AdjustStock must be atomic with
// respect to concurrent adjustments on the same product: the resulting stock
// never goes negative, and a failed adjustment mutates nothing.
type Repository interface {
	List(ctx context.Context) ([]Product, error)
	GetByID(ctx context.Context, id string) (*Product, error)
	GetByIDs(ctx context.Context, ids []string) ([]Product, error)
	Create(ctx context.Context, p *Product) error
	Update(ctx context.Context, p *Product) error
	Delete(ctx context.Context, id string) error
	AdjustStock(ctx context.Context, id string, delta int) (*Product, error)
}
