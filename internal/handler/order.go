package handler

import (
	"net/http"
	"strings"

	"github.com/go-faster/jx"

	"github.com/xenking/dream-snack/internal/domain/checkout"
	"github.com/xenking/dream-snack/internal/domain/order"
)

// IdempotencyKeyHeader carries the client generated key of a checkout
// attempt.
const IdempotencyKeyHeader = "Idempotency-Key"

const maxIdempotencyKey = 128

// placeOrder converts the checkout form to a domain request, delegates to
// the order service and writes the stored order. A replayed key answers
// 200 with the original order instead of 201.
func (h *Handler) placeOrder(w http.ResponseWriter, r *http.Request) {
	var (
		d       checkout.Details
		payment string
	)
	if err := decodeBody(r, map[string]func(*jx.Decoder) error{
		"name":                str(&d.Name),
		"phone":               str(&d.Phone),
		"address":             str(&d.Address),
		"paymentMethod":       str(&payment),
		"specialInstructions": str(&d.SpecialInstructions),
	}); err != nil {
		h.fail(w, r, err)
		return
	}
	d.PaymentMethod, _ = checkout.ParsePaymentMethod(payment)

	key := strings.TrimSpace(r.Header.Get(IdempotencyKeyHeader))
	if len(key) > maxIdempotencyKey {
		h.fail(w, r, newBadRequest("Idempotency key too long"))
		return
	}

	res, err := h.orders.PlaceOrder(r.Context(), order.PlaceOrderRequest{
		UserID:         identity(r).UserID,
		Details:        d,
		IdempotencyKey: key,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	status := http.StatusCreated
	if res.Replayed {
		status = http.StatusOK
		w.Header().Set("Idempotent-Replayed", "true")
	}
	writeJSON(w, status, func(e *jx.Encoder) { encodeOrder(e, res.Order) })
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.History(r.Context(), identity(r).UserID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeOrders(e, orders) })
}

// getOrder returns an order of the caller. Orders of other users read as
// missing; admins may read any order.
func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if id := identity(r); o.UserID != id.UserID && !id.Admin {
		h.fail(w, r, order.ErrNotFound)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeOrder(e, o) })
}
