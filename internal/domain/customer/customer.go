// Package customer records who has placed orders. Customers are identified
// by phone number and are independent of the authentication identity used
// by admin API keys.
package customer

import (
	"context"
	"time"
)

// Customer is a storefront buyer, keyed by unique phone number.
type Customer struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	CreatedAt time.Time `json:"createdAt"`
}

// Repository defines customer persistence. Upsert inserts a new customer or
// refreshes the name of an existing one with the same phone.
type Repository interface {
	Upsert(ctx context.Context, c *Customer) error
	List(ctx context.Context) ([]Customer, error)
	Count(ctx context.Context) (int, error)
}
