package order

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cicikitchen/storefront/internal/domain/customer"
	"github.com/cicikitchen/storefront/internal/domain/product"
)

// --- Mock implementations ---

type mockProductRepo struct {
	byID map[string]*product.Product
}

func (m *mockProductRepo) List(_ context.Context) ([]product.Product, error) { return nil, nil }

func (m *mockProductRepo) GetByID(_ context.Context, id string) (*product.Product, error) {
	p, ok := m.byID[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	return p, nil
}

func (m *mockProductRepo) GetByIDs(_ context.Context, ids []string) ([]product.Product, error) {
	var out []product.Product
	for _, id := range ids {
		if p, ok := m.byID[id]; ok {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *mockProductRepo) Create(_ context.Context, _ *product.Product) error { return nil }
func (m *mockProductRepo) Update(_ context.Context, _ *product.Product) error { return nil }
func (m *mockProductRepo) Delete(_ context.Context, _ string) error           { return nil }
func (m *mockProductRepo) AdjustStock(_ context.Context, _ string, _ int) (*product.Product, error) {
	return nil, nil
}

type mockOrderRepo struct {
	lastOrder *Order
	byKey     map[string]*Order
	byID      map[string]*Order

	transitions []transitionCall
	createErr   error

	// skipFirstFind makes the first idempotency lookup miss, modelling a
	// concurrent create that lands between the lookup and the insert.
	skipFirstFind bool
}

type transitionCall struct {
	id      string
	from    Status
	to      Status
	restock bool
}

func (m *mockOrderRepo) Create(_ context.Context, o *Order) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.lastOrder = o
	return nil
}

func (m *mockOrderRepo) GetByID(_ context.Context, id string) (*Order, error) {
	o, ok := m.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return o, nil
}

func (m *mockOrderRepo) FindByIdempotencyKey(_ context.Context, key string) (*Order, error) {
	if m.skipFirstFind {
		m.skipFirstFind = false
		return nil, ErrNotFound
	}
	o, ok := m.byKey[key]
	if !ok {
		return nil, ErrNotFound
	}
	return o, nil
}

func (m *mockOrderRepo) List(_ context.Context, _ int) ([]Order, error) { return nil, nil }

func (m *mockOrderRepo) Transition(_ context.Context, id string, from, to Status, restock bool) (*Order, error) {
	m.transitions = append(m.transitions, transitionCall{id: id, from: from, to: to, restock: restock})
	o := *m.byID[id]
	o.Status = to
	return &o, nil
}

type mockCustomerRepo struct {
	upserted []customer.Customer
}

func (m *mockCustomerRepo) Upsert(_ context.Context, c *customer.Customer) error {
	m.upserted = append(m.upserted, *c)
	return nil
}

func (m *mockCustomerRepo) List(_ context.Context) ([]customer.Customer, error) { return nil, nil }
func (m *mockCustomerRepo) Count(_ context.Context) (int, error)                { return 0, nil }

// --- Helpers ---

func newTestProduct(id, name string, price decimal.Decimal, stock int) *product.Product {
	return &product.Product{
		ID:    id,
		Name:  name,
		Price: price,
		Stock: stock,
	}
}

func newProductRepo(products ...*product.Product) *mockProductRepo {
	byID := make(map[string]*product.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}
	return &mockProductRepo{byID: byID}
}

func validRequest(items ...Line) CreateRequest {
	return CreateRequest{
		CustomerName: "Cici",
		Phone:        "081234567890",
		Items:        items,
	}
}

// --- Tests ---

func TestCreate_EmptyItems(t *testing.T) {
	svc := NewService(newProductRepo(), &mockOrderRepo{}, &mockCustomerRepo{})

	_, err := svc.Create(context.Background(), validRequest())
	require.ErrorIs(t, err, ErrEmptyItems)
}

func TestCreate_InvalidCustomer(t *testing.T) {
	p1 := newTestProduct("p1", "Nasi Goreng", decimal.NewFromInt(25000), 10)
	svc := NewService(newProductRepo(p1), &mockOrderRepo{}, &mockCustomerRepo{})

	cases := []struct {
		name  string
		cust  string
		phone string
	}{
		{"empty name", "", "081234567890"},
		{"blank name", "   ", "081234567890"},
		{"short phone", "Cici", "08123"},
		{"long phone", "Cici", "08123456789012345"},
		{"non-digit phone", "Cici", "0812-345-678"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), CreateRequest{
				CustomerName: tc.cust,
				Phone:        tc.phone,
				Items:        []Line{{ProductID: "p1", Quantity: 1}},
			})
			var custErr *InvalidCustomerError
			require.ErrorAs(t, err, &custErr)
		})
	}
}

func TestCreate_InvalidQuantity(t *testing.T) {
	p1 := newTestProduct("p1", "Nasi Goreng", decimal.NewFromInt(25000), 10)
	svc := NewService(newProductRepo(p1), &mockOrderRepo{}, &mockCustomerRepo{})

	_, err := svc.Create(context.Background(), validRequest(Line{ProductID: "p1", Quantity: 0}))

	var qtyErr *InvalidQuantityError
	require.ErrorAs(t, err, &qtyErr)
	assert.Equal(t, "p1", qtyErr.ProductID)
}

func TestCreate_ProductUnavailable(t *testing.T) {
	svc := NewService(newProductRepo(), &mockOrderRepo{}, &mockCustomerRepo{})

	_, err := svc.Create(context.Background(), validRequest(Line{ProductID: "missing", Quantity: 1}))

	var availErr *ProductUnavailableError
	require.ErrorAs(t, err, &availErr)
	assert.Equal(t, "missing", availErr.ProductID)
}

func TestCreate_InsufficientStock(t *testing.T) {
	p1 := newTestProduct("p1", "Nasi Goreng", decimal.NewFromInt(25000), 2)
	p2 := newTestProduct("p2", "Es Teh", decimal.NewFromInt(5000), 100)
	p3 := newTestProduct("p3", "Risol", decimal.NewFromInt(8000), 0)
	orders := &mockOrderRepo{}
	svc := NewService(newProductRepo(p1, p2, p3), orders, &mockCustomerRepo{})

	_, err := svc.Create(context.Background(), validRequest(
		Line{ProductID: "p1", Quantity: 5},
		Line{ProductID: "p2", Quantity: 1},
		Line{ProductID: "p3", Quantity: 2},
	))

	// Every failing line is reported; the satisfiable line does not slip
	// through as a partial order.
	var stockErr *product.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	require.Len(t, stockErr.Shortages, 2)
	assert.Equal(t, product.Shortage{ProductID: "p1", Requested: 5, Available: 2}, stockErr.Shortages[0])
	assert.Equal(t, product.Shortage{ProductID: "p3", Requested: 2, Available: 0}, stockErr.Shortages[1])
	assert.Nil(t, orders.lastOrder)
}

func TestCreate_SnapshotsPrices(t *testing.T) {
	p1 := newTestProduct("p1", "Nasi Goreng", decimal.NewFromInt(25000), 10)
	p2 := newTestProduct("p2", "Es Teh", decimal.NewFromInt(5000), 100)
	orders := &mockOrderRepo{}
	customers := &mockCustomerRepo{}
	svc := NewService(newProductRepo(p1, p2), orders, customers)

	o, err := svc.Create(context.Background(), validRequest(
		Line{ProductID: "p1", Quantity: 2},
		Line{ProductID: "p2", Quantity: 3},
	))
	require.NoError(t, err)

	assert.Equal(t, StatusPending, o.Status)
	require.Len(t, o.Items, 2)
	assert.True(t, decimal.NewFromInt(25000).Equal(o.Items[0].UnitPrice))
	assert.True(t, decimal.NewFromInt(5000).Equal(o.Items[1].UnitPrice))
	assert.True(t, decimal.NewFromInt(65000).Equal(o.Total))
	assert.Equal(t, o, orders.lastOrder)

	require.Len(t, customers.upserted, 1)
	assert.Equal(t, "Cici", customers.upserted[0].Name)
	assert.Equal(t, "081234567890", customers.upserted[0].Phone)

	// Later catalog edits must not change the frozen price.
	p1.Price = decimal.NewFromInt(99000)
	assert.True(t, decimal.NewFromInt(25000).Equal(o.Items[0].UnitPrice))
}

func TestCreate_IdempotencyKeyReturnsExisting(t *testing.T) {
	p1 := newTestProduct("p1", "Nasi Goreng", decimal.NewFromInt(25000), 10)
	existing := &Order{ID: "ord-1", Status: StatusPending}
	orders := &mockOrderRepo{byKey: map[string]*Order{"retry-123": existing}}
	svc := NewService(newProductRepo(p1), orders, &mockCustomerRepo{})

	req := validRequest(Line{ProductID: "p1", Quantity: 1})
	req.IdempotencyKey = "retry-123"

	o, err := svc.Create(context.Background(), req)
	require.NoError(t, err)
	assert.Same(t, existing, o)
	assert.Nil(t, orders.lastOrder, "retried create must not persist a second order")
}

func TestCreate_MergesDuplicateLines(t *testing.T) {
	p1 := newTestProduct("p1", "Nasi Goreng", decimal.NewFromInt(25000), 10)
	orders := &mockOrderRepo{}
	svc := NewService(newProductRepo(p1), orders, &mockCustomerRepo{})

	o, err := svc.Create(context.Background(), validRequest(
		Line{ProductID: "p1", Quantity: 2},
		Line{ProductID: "p1", Quantity: 3},
	))
	require.NoError(t, err)

	require.Len(t, o.Items, 1)
	assert.Equal(t, 5, o.Items[0].Quantity)
	assert.True(t, decimal.NewFromInt(125000).Equal(o.Total))
}

func TestCreate_IdempotencyInsertRace(t *testing.T) {
	p1 := newTestProduct("p1", "Nasi Goreng", decimal.NewFromInt(25000), 10)
	existing := &Order{ID: "ord-1", Status: StatusPending}
	orders := &mockOrderRepo{
		byKey:         map[string]*Order{"retry-9": existing},
		createErr:     ErrIdempotencyConflict,
		skipFirstFind: true,
	}
	svc := NewService(newProductRepo(p1), orders, &mockCustomerRepo{})

	req := validRequest(Line{ProductID: "p1", Quantity: 1})
	req.IdempotencyKey = "retry-9"

	// The pre-insert lookup misses, the insert loses the unique-index race,
	// and the winner's order is returned instead of an error.
	o, err := svc.Create(context.Background(), req)
	require.NoError(t, err)
	assert.Same(t, existing, o)
}

func TestUpdateStatus_LegalTransition(t *testing.T) {
	orders := &mockOrderRepo{byID: map[string]*Order{
		"ord-1": {ID: "ord-1", Status: StatusPending},
	}}
	svc := NewService(newProductRepo(), orders, &mockCustomerRepo{})

	o, err := svc.UpdateStatus(context.Background(), "ord-1", StatusProcessing)
	require.NoError(t, err)
	assert.Equal(t, StatusProcessing, o.Status)

	require.Len(t, orders.transitions, 1)
	assert.Equal(t, transitionCall{id: "ord-1", from: StatusPending, to: StatusProcessing, restock: false}, orders.transitions[0])
}

func TestUpdateStatus_CancelRequestsRestock(t *testing.T) {
	orders := &mockOrderRepo{byID: map[string]*Order{
		"ord-1": {ID: "ord-1", Status: StatusPending},
	}}
	svc := NewService(newProductRepo(), orders, &mockCustomerRepo{})

	o, err := svc.UpdateStatus(context.Background(), "ord-1", StatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, o.Status)

	require.Len(t, orders.transitions, 1)
	assert.True(t, orders.transitions[0].restock)
}

func TestUpdateStatus_CompletedIsTerminal(t *testing.T) {
	orders := &mockOrderRepo{byID: map[string]*Order{
		"ord-1": {ID: "ord-1", Status: StatusCompleted},
	}}
	svc := NewService(newProductRepo(), orders, &mockCustomerRepo{})

	for _, next := range []Status{StatusPending, StatusProcessing, StatusCancelled} {
		_, err := svc.UpdateStatus(context.Background(), "ord-1", next)
		var transErr *IllegalTransitionError
		require.ErrorAs(t, err, &transErr, "completed -> %s", next)
	}
	assert.Empty(t, orders.transitions)
}

func TestUpdateStatus_UnknownStatus(t *testing.T) {
	svc := NewService(newProductRepo(), &mockOrderRepo{}, &mockCustomerRepo{})

	_, err := svc.UpdateStatus(context.Background(), "ord-1", Status("shipped"))
	var transErr *IllegalTransitionError
	require.ErrorAs(t, err, &transErr)
}

func TestUpdateStatus_NotFound(t *testing.T) {
	svc := NewService(newProductRepo(), &mockOrderRepo{byID: map[string]*Order{}}, &mockCustomerRepo{})

	_, err := svc.UpdateStatus(context.Background(), "nope", StatusProcessing)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestOrderJSONRoundTrip(t *testing.T) {
	created := time.Date(2025, 6, 1, 10, 30, 0, 0, time.UTC)
	o := Order{
		ID:           "ord-1",
		CustomerName: "Cici",
		Phone:        "081234567890",
		Items: []Item{
			{ProductID: "p1", Quantity: 2, UnitPrice: decimal.NewFromInt(25000)},
			{ProductID: "p2", Quantity: 1, UnitPrice: decimal.NewFromInt(5000)},
		},
		Total:     decimal.NewFromInt(55000),
		Status:    StatusProcessing,
		CreatedAt: created,
		UpdatedAt: created.Add(time.Hour),
	}

	raw, err := json.Marshal(o)
	require.NoError(t, err)

	var got Order
	require.NoError(t, json.Unmarshal(raw, &got))

	assert.Equal(t, o.ID, got.ID)
	assert.Equal(t, o.Status, got.Status)
	require.Len(t, got.Items, 2)
	for i := range o.Items {
		assert.Equal(t, o.Items[i].ProductID, got.Items[i].ProductID)
		assert.Equal(t, o.Items[i].Quantity, got.Items[i].Quantity)
		assert.True(t, o.Items[i].UnitPrice.Equal(got.Items[i].UnitPrice))
	}
	assert.True(t, o.Total.Equal(got.Total))
	assert.True(t, o.CreatedAt.Equal(got.CreatedAt))
	assert.True(t, o.UpdatedAt.Equal(got.UpdatedAt))
}
