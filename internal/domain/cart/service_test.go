package cart

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cicikitchen/storefront/internal/domain/product"
)

// --- Mock implementations ---

type memCartRepo struct {
	carts map[string]*Cart
}

func newMemCartRepo() *memCartRepo {
	return &memCartRepo{carts: make(map[string]*Cart)}
}

func (m *memCartRepo) Get(_ context.Context, ownerID string) (*Cart, error) {
	if c, ok := m.carts[ownerID]; ok {
		cp := *c
		cp.Lines = append([]Line(nil), c.Lines...)
		return &cp, nil
	}
	return &Cart{OwnerID: ownerID}, nil
}

func (m *memCartRepo) Save(_ context.Context, c *Cart) error {
	m.carts[c.OwnerID] = c
	return nil
}

func (m *memCartRepo) Delete(_ context.Context, ownerID string) error {
	delete(m.carts, ownerID)
	return nil
}

type mockProductRepo struct {
	byID map[string]product.Product
}

func (m *mockProductRepo) List(_ context.Context) ([]product.Product, error) { return nil, nil }

func (m *mockProductRepo) GetByID(_ context.Context, id string) (*product.Product, error) {
	p, ok := m.byID[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	return &p, nil
}

func (m *mockProductRepo) GetByIDs(_ context.Context, ids []string) ([]product.Product, error) {
	var out []product.Product
	for _, id := range ids {
		if p, ok := m.byID[id]; ok {
			out = append(out, p)
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

func newCatalog(products ...product.Product) *mockProductRepo {
	byID := make(map[string]product.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}
	return &mockProductRepo{byID: byID}
}

// --- Tests ---

func TestServiceAddLine_PersistsMerge(t *testing.T) {
	catalog := newCatalog(product.Product{ID: "p1", Price: decimal.NewFromInt(25000)})
	svc := NewService(newMemCartRepo(), catalog)

	_, err := svc.AddLine(context.Background(), "s1", "p1", 2)
	require.NoError(t, err)
	c, err := svc.AddLine(context.Background(), "s1", "p1", 3)
	require.NoError(t, err)

	require.Len(t, c.Lines, 1)
	assert.Equal(t, 5, c.Lines[0].Quantity)

	reloaded, err := svc.Get(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, c.Lines, reloaded.Lines)
}

func TestServiceAddLine_UnknownProduct(t *testing.T) {
	svc := NewService(newMemCartRepo(), newCatalog())

	_, err := svc.AddLine(context.Background(), "s1", "ghost", 1)
	require.ErrorIs(t, err, product.ErrNotFound)
}

func TestServiceSummary(t *testing.T) {
	catalog := newCatalog(
		product.Product{ID: "p1", Price: decimal.NewFromInt(25000)},
		product.Product{ID: "p2", Price: decimal.NewFromInt(5000)},
	)
	svc := NewService(newMemCartRepo(), catalog)

	_, err := svc.AddLine(context.Background(), "s1", "p1", 2)
	require.NoError(t, err)
	_, err = svc.AddLine(context.Background(), "s1", "p2", 3)
	require.NoError(t, err)

	sum, err := svc.Summary(context.Background(), "s1")
	require.NoError(t, err)

	assert.Equal(t, 5, sum.TotalItems)
	assert.True(t, decimal.NewFromInt(65000).Equal(sum.Subtotal))
	assert.Empty(t, sum.Unavailable)
}

func TestServiceSummary_FlagsVanishedProducts(t *testing.T) {
	catalog := newCatalog(
		product.Product{ID: "p1", Price: decimal.NewFromInt(25000)},
		product.Product{ID: "p2", Price: decimal.NewFromInt(5000)},
	)
	svc := NewService(newMemCartRepo(), catalog)

	_, err := svc.AddLine(context.Background(), "s1", "p1", 1)
	require.NoError(t, err)
	_, err = svc.AddLine(context.Background(), "s1", "p2", 4)
	require.NoError(t, err)

	// The catalog changes underneath the persisted cart.
	delete(catalog.byID, "p2")

	sum, err := svc.Summary(context.Background(), "s1")
	require.NoError(t, err)

	assert.Equal(t, 1, sum.TotalItems)
	assert.True(t, decimal.NewFromInt(25000).Equal(sum.Subtotal))
	assert.Equal(t, []string{"p2"}, sum.Unavailable)
}

func TestServiceSummary_EmptyCart(t *testing.T) {
	svc := NewService(newMemCartRepo(), newCatalog())

	sum, err := svc.Summary(context.Background(), "s1")
	require.NoError(t, err)

	assert.Zero(t, sum.TotalItems)
	assert.True(t, decimal.Zero.Equal(sum.Subtotal))
}

func TestServiceClear(t *testing.T) {
	catalog := newCatalog(product.Product{ID: "p1", Price: decimal.NewFromInt(25000)})
	repo := newMemCartRepo()
	svc := NewService(repo, catalog)

	_, err := svc.AddLine(context.Background(), "s1", "p1", 1)
	require.NoError(t, err)
	require.NoError(t, svc.Clear(context.Background(), "s1"))

	c, err := svc.Get(context.Background(), "s1")
	require.NoError(t, err)
	assert.Empty(t, c.Lines)
}
