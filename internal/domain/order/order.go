package order

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Item is a single order line. UnitPrice is frozen at order creation and
// never recomputed from the live catalog.
type Item struct {
	ProductID string          `json:"productId"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
}

// Order is an immutable record of a validated checkout. Only Status (and
// UpdatedAt) may change after creation.
type Order struct {
	ID             string          `json:"id"`
	CustomerName   string          `json:"customerName"`
	Phone          string          `json:"phone"`
	Items          []Item          `json:"items"`
	Total          decimal.Decimal `json:"total"`
	Status         Status          `json:"status"`
	IdempotencyKey string          `json:"-"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

// ErrNotFound is returned when a requested order does not exist.
var ErrNotFound = fmt.Errorf("order not found")

// ErrIdempotencyConflict is returned when an order insert loses the race
// against a concurrent create using the same idempotency key.
var ErrIdempotencyConflict = fmt.Errorf("idempotency key already used")

// ProductUnavailableError indicates an ordered product no longer exists in
// the catalog.
type ProductUnavailableError struct {
	ProductID string
}

func (e *ProductUnavailableError) Error() string {
	return fmt.Sprintf("product %s is unavailable", e.ProductID)
}

// InvalidQuantityError indicates a line item has a non-positive quantity.
type InvalidQuantityError struct {
	ProductID string
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be greater than 0 for product %s", e.ProductID)
}

// InvalidCustomerError indicates the customer info failed validation.
type InvalidCustomerError struct {
	Reason string
}

func (e *InvalidCustomerError) Error() string {
	return "invalid customer info: " + e.Reason
}

// Repository defines order persistence.
//
// Create must atomically decrement stock for every item and insert the
// order row: either all decrements succeed and the order is persisted with
// status pending, or nothing is mutated and the error carries the failing
// lines. Transition must apply the status change only when the stored
// status still matches from, restoring stock in the same transaction when
// restock is set.
type Repository interface {
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id string) (*Order, error)
	FindByIdempotencyKey(ctx context.Context, key string) (*Order, error)
	List(ctx context.Context, limit int) ([]Order, error)
	Transition(ctx context.Context, id string, from, to Status, restock bool) (*Order, error)
}
