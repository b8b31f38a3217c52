package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/cicikitchen/storefront/internal/domain/order"
)

type orderItemRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type createOrderRequest struct {
	CustomerName string             `json:"customerName"`
	Phone        string             `json:"phone"`
	Items        []orderItemRequest `json:"items"`
}

// CreateOrder runs the checkout workflow. A client-supplied Idempotency-Key
// header makes retries safe: the same key always yields the same order.
// When the caller identifies its session, the server-synced cart is cleared
// after a successful checkout.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := decode(r, &req); err != nil {
		badRequest(w, "invalid request body")
		return
	}

	items := make([]order.Line, len(req.Items))
	for i, item := range req.Items {
		items[i] = order.Line{ProductID: item.ProductID, Quantity: item.Quantity}
	}

	o, err := h.orders.Create(r.Context(), order.CreateRequest{
		CustomerName:   req.CustomerName,
		Phone:          req.Phone,
		Items:          items,
		IdempotencyKey: strings.TrimSpace(r.Header.Get("Idempotency-Key")),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	if session := strings.TrimSpace(r.Header.Get("X-Session-ID")); session != "" {
		if err := h.carts.Clear(r.Context(), session); err != nil {
			writeError(w, r, err)
			return
		}
	}

	writeJSON(w, http.StatusCreated, o)
}

// GetOrder returns a single order by ID.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.Get(r.Context(), chi.URLParam(r, "orderID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

// ListOrders returns recent orders, newest first. The optional limit query
// parameter defaults to 50.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			badRequest(w, "limit must be a positive integer")
			return
		}
		limit = n
	}

	orders, err := h.orders.List(r.Context(), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

type updateStatusRequest struct {
	Status order.Status `json:"status"`
}

// UpdateOrderStatus transitions an order through its lifecycle (admin only).
// Orders are append-only after creation: items and prices never change, and
// the state machine rejects anything but the legal transitions.
func (h *Handler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req updateStatusRequest
	if err := decode(r, &req); err != nil {
		badRequest(w, "invalid request body")
		return
	}

	o, err := h.orders.UpdateStatus(r.Context(), chi.URLParam(r, "orderID"), req.Status)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}
