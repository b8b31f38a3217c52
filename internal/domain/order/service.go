package order

import (
	"context"
	"regexp"
	"strings"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cicikitchen/storefront/internal/domain/customer"
	"github.com/cicikitchen/storefront/internal/domain/product"
)

// ErrEmptyItems is returned when a checkout carries no lines.
var ErrEmptyItems = errors.New("items required")

// phonePattern accepts 10-13 digits, matching Indonesian mobile numbers.
var phonePattern = regexp.MustCompile(`^[0-9]{10,13}$`)

// Line is a requested (product, quantity) pair in a checkout.
type Line struct {
	ProductID string
	Quantity  int
}

// CreateRequest holds the input for creating an order from a validated cart.
type CreateRequest struct {
	CustomerName   string
	Phone          string
	Items          []Line
	IdempotencyKey string
}

// Service implements the checkout workflow: validate the cart against the
// live catalog, snapshot unit prices, and hand the order to the repository
// for the transactional stock decrement + insert.
type Service struct {
	products  product.Repository
	orders    Repository
	customers customer.Repository
}

// NewService creates an order Service.
func NewService(products product.Repository, orders Repository, customers customer.Repository) *Service {
	return &Service{
		products:  products,
		orders:    orders,
		customers: customers,
	}
}

// Create validates the request and persists a pending order.
//
// Validation failures (empty items, bad customer info, unavailable products,
// insufficient stock) leave the catalog untouched. The repository's Create
// performs the authoritative conditional decrement inside one transaction,
// so a concurrent checkout racing past the pre-check here still cannot
// oversell: one of the two transactions fails and is fully rolled back.
//
// When the request carries an idempotency key and an order with that key
// already exists, the existing order is returned and nothing is mutated.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Order, error) {
	if req.IdempotencyKey != "" {
		existing, err := s.orders.FindByIdempotencyKey(ctx, req.IdempotencyKey)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return nil, errors.Wrap(err, "idempotency lookup")
		}
		if existing != nil {
			return existing, nil
		}
	}

	if len(req.Items) == 0 {
		return nil, ErrEmptyItems
	}
	if err := validateCustomer(req.CustomerName, req.Phone); err != nil {
		return nil, err
	}

	// Duplicate product lines are merged before validation so an order holds
	// at most one item per product, matching the cart invariant.
	lines := make([]Line, 0, len(req.Items))
	lineIdx := make(map[string]int, len(req.Items))
	for _, item := range req.Items {
		if item.Quantity <= 0 {
			return nil, &InvalidQuantityError{ProductID: item.ProductID}
		}
		if i, ok := lineIdx[item.ProductID]; ok {
			lines[i].Quantity += item.Quantity
			continue
		}
		lineIdx[item.ProductID] = len(lines)
		lines = append(lines, item)
	}

	ids := make([]string, len(lines))
	for i, line := range lines {
		ids[i] = line.ProductID
	}

	fetched, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "get products")
	}
	byID := make(map[string]product.Product, len(fetched))
	for _, p := range fetched {
		byID[p.ID] = p
	}

	// Re-validate every line against the live catalog and snapshot prices.
	// The whole order is rejected on the first missing product; stock
	// shortages are collected across all lines before rejecting.
	var shortages []product.Shortage
	items := make([]Item, len(lines))
	total := decimal.Zero
	for i, line := range lines {
		p, ok := byID[line.ProductID]
		if !ok {
			return nil, &ProductUnavailableError{ProductID: line.ProductID}
		}
		if line.Quantity > p.Stock {
			shortages = append(shortages, product.Shortage{
				ProductID: line.ProductID,
				Requested: line.Quantity,
				Available: p.Stock,
			})
			continue
		}
		items[i] = Item{
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			UnitPrice: p.Price,
		}
		total = total.Add(p.Price.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}
	if len(shortages) > 0 {
		return nil, &product.InsufficientStockError{Shortages: shortages}
	}

	o := &Order{
		ID:             uuid.New().String(),
		CustomerName:   strings.TrimSpace(req.CustomerName),
		Phone:          req.Phone,
		Items:          items,
		Total:          total,
		Status:         StatusPending,
		IdempotencyKey: req.IdempotencyKey,
	}
	if err := s.orders.Create(ctx, o); err != nil {
		// A concurrent request with the same key won the insert race; hand
		// back its order instead of surfacing the unique violation.
		if errors.Is(err, ErrIdempotencyConflict) && req.IdempotencyKey != "" {
			return s.orders.FindByIdempotencyKey(ctx, req.IdempotencyKey)
		}
		return nil, err
	}

	// Customer bookkeeping is best-effort relative to the order itself:
	// the order is already durable, so an upsert failure is surfaced but
	// must not be mistaken for a failed checkout by retrying Create.
	if err := s.customers.Upsert(ctx, &customer.Customer{
		ID:    uuid.New().String(),
		Name:  o.CustomerName,
		Phone: o.Phone,
	}); err != nil {
		return nil, errors.Wrap(err, "upsert customer")
	}

	return o, nil
}

// Get returns a single order by ID.
func (s *Service) Get(ctx context.Context, id string) (*Order, error) {
	return s.orders.GetByID(ctx, id)
}

// List returns the newest orders, most recent first.
func (s *Service) List(ctx context.Context, limit int) ([]Order, error) {
	return s.orders.List(ctx, limit)
}

// UpdateStatus transitions the order to next if the state machine allows it.
//
// The repository applies the change conditionally on the current status, so
// two concurrent cancellations cannot both restore stock: the second one
// observes the already-cancelled order and fails with IllegalTransitionError.
func (s *Service) UpdateStatus(ctx context.Context, id string, next Status) (*Order, error) {
	if !next.Valid() {
		return nil, &IllegalTransitionError{To: next}
	}

	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !o.Status.CanTransitionTo(next) {
		return nil, &IllegalTransitionError{From: o.Status, To: next}
	}

	restock := next == StatusCancelled
	updated, err := s.orders.Transition(ctx, id, o.Status, next, restock)
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func validateCustomer(name, phone string) error {
	if strings.TrimSpace(name) == "" {
		return &InvalidCustomerError{Reason: "customer name is required"}
	}
	if !phonePattern.MatchString(phone) {
		return &InvalidCustomerError{Reason: "phone must be 10-13 digits"}
	}
	return nil
}
