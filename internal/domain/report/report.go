// Package report builds the admin dashboard from persisted data. Revenue is
// computed from the unit prices frozen on each order item, never from the
// live catalog, so later price edits do not rewrite history.
package report

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/cicikitchen/storefront/internal/domain/customer"
	"github.com/cicikitchen/storefront/internal/domain/order"
)

// ProductSales pairs a product with its total quantity sold.
type ProductSales struct {
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	Sold      int             `json:"sold"`
	Revenue   decimal.Decimal `json:"revenue"`
}

// Dashboard is the admin overview payload.
type Dashboard struct {
	Revenue       decimal.Decimal `json:"revenue"`
	RecentOrders  []order.Order   `json:"recentOrders"`
	TopProducts   []ProductSales  `json:"topProducts"`
	CustomerCount int             `json:"customerCount"`
}

// Store provides the aggregate queries behind the dashboard. Cancelled
// orders are excluded from both revenue and sales counts.
type Store interface {
	Revenue(ctx context.Context) (decimal.Decimal, error)
	TopProducts(ctx context.Context, limit int) ([]ProductSales, error)
}

// Service assembles the dashboard.
type Service struct {
	store     Store
	orders    order.Repository
	customers customer.Repository
}

// NewService creates a report Service.
func NewService(store Store, orders order.Repository, customers customer.Repository) *Service {
	return &Service{store: store, orders: orders, customers: customers}
}

// Dashboard gathers revenue, the five newest orders, the five best-selling
// products, and the customer count.
func (s *Service) Dashboard(ctx context.Context) (*Dashboard, error) {
	revenue, err := s.store.Revenue(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "revenue")
	}

	recent, err := s.orders.List(ctx, 5)
	if err != nil {
		return nil, errors.Wrap(err, "recent orders")
	}

	top, err := s.store.TopProducts(ctx, 5)
	if err != nil {
		return nil, errors.Wrap(err, "top products")
	}

	count, err := s.customers.Count(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "customer count")
	}

	return &Dashboard{
		Revenue:       revenue,
		RecentOrders:  recent,
		TopProducts:   top,
		CustomerCount: count,
	}, nil
}
