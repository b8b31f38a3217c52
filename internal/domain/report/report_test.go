package report

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cicikitchen/storefront/internal/domain/customer"
	"github.com/cicikitchen/storefront/internal/domain/order"
)

type mockStore struct {
	revenue decimal.Decimal
	top     []ProductSales
}

func (m *mockStore) Revenue(_ context.Context) (decimal.Decimal, error) { return m.revenue, nil }

func (m *mockStore) TopProducts(_ context.Context, limit int) ([]ProductSales, error) {
	if len(m.top) > limit {
		return m.top[:limit], nil
	}
	return m.top, nil
}

type mockOrderRepo struct {
	orders    []order.Order
	lastLimit int
}

func (m *mockOrderRepo) Create(_ context.Context, _ *order.Order) error { return nil }

func (m *mockOrderRepo) GetByID(_ context.Context, _ string) (*order.Order, error) {
	return nil, order.ErrNotFound
}

func (m *mockOrderRepo) FindByIdempotencyKey(_ context.Context, _ string) (*order.Order, error) {
	return nil, order.ErrNotFound
}

func (m *mockOrderRepo) List(_ context.Context, limit int) ([]order.Order, error) {
	m.lastLimit = limit
	if len(m.orders) > limit {
		return m.orders[:limit], nil
	}
	return m.orders, nil
}

func (m *mockOrderRepo) Transition(_ context.Context, _ string, _, to order.Status, _ bool) (*order.Order, error) {
	return nil, order.ErrNotFound
}

type mockCustomerRepo struct {
	count int
}

func (m *mockCustomerRepo) Upsert(_ context.Context, _ *customer.Customer) error { return nil }
func (m *mockCustomerRepo) List(_ context.Context) ([]customer.Customer, error)  { return nil, nil }
func (m *mockCustomerRepo) Count(_ context.Context) (int, error)                 { return m.count, nil }

func TestDashboard(t *testing.T) {
	orders := make([]order.Order, 8)
	for i := range orders {
		orders[i] = order.Order{ID: string(rune('a' + i)), Status: order.StatusPending}
	}
	store := &mockStore{
		revenue: decimal.NewFromInt(130000),
		top: []ProductSales{
			{ProductID: "p1", Name: "Nasi Goreng", Sold: 4, Revenue: decimal.NewFromInt(100000)},
			{ProductID: "p2", Name: "Es Teh", Sold: 6, Revenue: decimal.NewFromInt(30000)},
		},
	}
	repo := &mockOrderRepo{orders: orders}
	svc := NewService(store, repo, &mockCustomerRepo{count: 3})

	d, err := svc.Dashboard(context.Background())
	require.NoError(t, err)

	assert.True(t, decimal.NewFromInt(130000).Equal(d.Revenue))
	assert.Len(t, d.RecentOrders, 5)
	assert.Equal(t, 5, repo.lastLimit)
	assert.Len(t, d.TopProducts, 2)
	assert.Equal(t, "p1", d.TopProducts[0].ProductID)
	assert.Equal(t, 3, d.CustomerCount)
}
