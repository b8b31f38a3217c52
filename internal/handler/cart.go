package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

type cartLineRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type setQuantityRequest struct {
	Quantity int `json:"quantity"`
}

type cartSummaryResponse struct {
	TotalItems  int             `json:"totalItems"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	Unavailable []string        `json:"unavailable,omitempty"`
}

// GetCart returns the session's cart.
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	c, err := h.carts.Get(r.Context(), sessionFromContext(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// AddCartLine merges a (product, quantity) line into the session's cart.
func (h *Handler) AddCartLine(w http.ResponseWriter, r *http.Request) {
	var req cartLineRequest
	if err := decode(r, &req); err != nil {
		badRequest(w, "invalid request body")
		return
	}

	c, err := h.carts.AddLine(r.Context(), sessionFromContext(r.Context()), req.ProductID, req.Quantity)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// SetCartQuantity sets the line quantity for a product; zero removes the line.
func (h *Handler) SetCartQuantity(w http.ResponseWriter, r *http.Request) {
	var req setQuantityRequest
	if err := decode(r, &req); err != nil {
		badRequest(w, "invalid request body")
		return
	}

	c, err := h.carts.SetQuantity(r.Context(), sessionFromContext(r.Context()), chi.URLParam(r, "productID"), req.Quantity)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// RemoveCartLine removes the product's line from the session's cart.
func (h *Handler) RemoveCartLine(w http.ResponseWriter, r *http.Request) {
	c, err := h.carts.RemoveLine(r.Context(), sessionFromContext(r.Context()), chi.URLParam(r, "productID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// ClearCart drops the session's cart.
func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	if err := h.carts.Clear(r.Context(), sessionFromContext(r.Context())); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CartSummary prices the cart against the live catalog. Lines whose product
// has been removed from the catalog are listed as unavailable so the client
// can prune them.
func (h *Handler) CartSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := h.carts.Summary(r.Context(), sessionFromContext(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cartSummaryResponse{
		TotalItems:  sum.TotalItems,
		Subtotal:    sum.Subtotal,
		Unavailable: sum.Unavailable,
	})
}
