// Package handler exposes the storefront domain over HTTP.
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cicikitchen/storefront/internal/domain/cart"
	"github.com/cicikitchen/storefront/internal/domain/customer"
	"github.com/cicikitchen/storefront/internal/domain/order"
	"github.com/cicikitchen/storefront/internal/domain/product"
	"github.com/cicikitchen/storefront/internal/domain/report"
)

// Config holds non-dependency configuration for the Handler.
type Config struct {
	// ImageBaseURL is prepended to relative image paths in product
	// responses. When empty, image paths are returned as stored.
	ImageBaseURL string
}

// Handler routes HTTP requests to the domain services.
type Handler struct {
	products     product.Repository
	orders       *order.Service
	carts        *cart.Service
	customers    customer.Repository
	reports      *report.Service
	security     *Security
	imageBaseURL string
}

// New constructs a Handler with the required domain dependencies.
func New(
	cfg Config,
	products product.Repository,
	orders *order.Service,
	carts *cart.Service,
	customers customer.Repository,
	reports *report.Service,
	security *Security,
) *Handler {
	return &Handler{
		products:     products,
		orders:       orders,
		carts:        carts,
		customers:    customers,
		reports:      reports,
		security:     security,
		imageBaseURL: cfg.ImageBaseURL,
	}
}

// Routes builds the API router. Admin-only surfaces sit behind the API key
// middleware with the admin role required.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()

	r.Get("/products", h.ListProducts)
	r.Get("/products/{productID}", h.GetProduct)

	r.Post("/orders", h.CreateOrder)
	r.Get("/orders", h.ListOrders)
	r.Get("/orders/{orderID}", h.GetOrder)

	r.Route("/cart", func(r chi.Router) {
		r.Use(requireSession)
		r.Get("/", h.GetCart)
		r.Delete("/", h.ClearCart)
		r.Get("/summary", h.CartSummary)
		r.Post("/items", h.AddCartLine)
		r.Put("/items/{productID}", h.SetCartQuantity)
		r.Delete("/items/{productID}", h.RemoveCartLine)
	})

	r.Group(func(r chi.Router) {
		r.Use(h.security.RequireAdmin)
		r.Post("/products", h.CreateProduct)
		r.Put("/products/{productID}", h.UpdateProduct)
		r.Delete("/products/{productID}", h.DeleteProduct)
		r.Patch("/orders/{orderID}/status", h.UpdateOrderStatus)
		r.Get("/customers", h.ListCustomers)
		r.Get("/dashboard", h.Dashboard)
	})

	return r
}
