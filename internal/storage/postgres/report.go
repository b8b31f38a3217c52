package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/cicikitchen/storefront/internal/domain/report"
)

const (
	// Revenue sums quantity x frozen unit price over the JSONB items of
	// every non-cancelled order. Live catalog prices are never consulted.
	revenueSQL = `SELECT COALESCE(SUM((item->>'quantity')::int * (item->>'unitPrice')::numeric), 0)
		FROM orders, jsonb_array_elements(items) AS item
		WHERE status <> 'cancelled'`

	topProductsSQL = `SELECT item->>'productId',
			COALESCE(p.name, ''),
			SUM((item->>'quantity')::int) AS sold,
			SUM((item->>'quantity')::int * (item->>'unitPrice')::numeric) AS revenue
		FROM orders, jsonb_array_elements(items) AS item
		LEFT JOIN products p ON p.id = item->>'productId'
		WHERE orders.status <> 'cancelled'
		GROUP BY item->>'productId', p.name
		ORDER BY sold DESC
		LIMIT $1`
)

var _ report.Store = (*ReportStore)(nil)

// ReportStore implements the dashboard aggregate queries on PostgreSQL.
type ReportStore struct {
	db DB
}

// NewReportStore returns a ReportStore that uses the given pool.
func NewReportStore(db DB) *ReportStore {
	return &ReportStore{db: db}
}

// Revenue returns the total value of all non-cancelled orders, priced at
// the unit prices frozen when each order was created.
func (r *ReportStore) Revenue(ctx context.Context) (decimal.Decimal, error) {
	var total decimal.Decimal
	if err := r.db.QueryRow(ctx, revenueSQL).Scan(&total); err != nil {
		return decimal.Zero, fmt.Errorf("computing revenue: %w", err)
	}
	return total, nil
}

// TopProducts returns the best-selling products by quantity, up to limit.
// Products deleted from the catalog still appear, with an empty name.
func (r *ReportStore) TopProducts(ctx context.Context, limit int) ([]report.ProductSales, error) {
	rows, err := r.db.Query(ctx, topProductsSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("listing top products: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (report.ProductSales, error) {
		var s report.ProductSales
		err := row.Scan(&s.ProductID, &s.Name, &s.Sold, &s.Revenue)
		return s, err
	})
}
