package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/cicikitchen/storefront/internal/domain/cart"
	"github.com/cicikitchen/storefront/internal/domain/order"
	"github.com/cicikitchen/storefront/internal/domain/product"
)

// errorBody is the stable machine-readable error shape. Shortages is set
// only for stock conflicts so clients can offer quantity adjustments.
type errorBody struct {
	Code      int                `json:"code"`
	Message   string             `json:"message"`
	Shortages []product.Shortage `json:"shortages,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps domain errors onto the HTTP error taxonomy:
// validation → 400, missing entity → 404, business-rule and state-machine
// conflicts → 409. Anything unrecognized is a 500 and gets logged.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		stockErr *product.InsufficientStockError
		transErr *order.IllegalTransitionError
		availErr *order.ProductUnavailableError
		qtyErr   *order.InvalidQuantityError
		custErr  *order.InvalidCustomerError
		cartQty  *cart.InvalidQuantityError
		fieldErr *product.ValidationError
	)

	switch {
	case errors.As(err, &stockErr):
		writeJSON(w, http.StatusConflict, errorBody{
			Code:      http.StatusConflict,
			Message:   stockErr.Error(),
			Shortages: stockErr.Shortages,
		})
	case errors.As(err, &transErr):
		writeJSON(w, http.StatusConflict, errorBody{Code: http.StatusConflict, Message: transErr.Error()})
	case errors.Is(err, product.ErrNotFound), errors.Is(err, order.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Code: http.StatusNotFound, Message: err.Error()})
	case errors.As(err, &availErr):
		writeJSON(w, http.StatusNotFound, errorBody{Code: http.StatusNotFound, Message: availErr.Error()})
	case errors.Is(err, order.ErrEmptyItems),
		errors.As(err, &qtyErr),
		errors.As(err, &custErr),
		errors.As(err, &cartQty),
		errors.As(err, &fieldErr):
		writeJSON(w, http.StatusBadRequest, errorBody{Code: http.StatusBadRequest, Message: err.Error()})
	default:
		zctx.From(r.Context()).Error("request failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorBody{
			Code:    http.StatusInternalServerError,
			Message: "internal server error",
		})
	}
}

// decode parses the JSON request body into v, rejecting unknown fields.
func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func badRequest(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusBadRequest, errorBody{Code: http.StatusBadRequest, Message: message})
}
