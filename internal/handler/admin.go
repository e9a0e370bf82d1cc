package handler

import (
	"net/http"

	"github.com/go-faster/jx"

	"github.com/xenking/dream-snack/internal/domain/order"
)

func (h *Handler) listAllOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.ListAll(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeOrders(e, orders) })
}

func (h *Handler) getStats(w http.ResponseWriter, r *http.Request) {
	s, err := h.orders.Stats(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("totalOrders")
		e.Int(s.Total)
		e.FieldStart("pendingOrders")
		e.Int(s.PendingOrPreparing)
		e.FieldStart("deliveredOrders")
		e.Int(s.Delivered)
		e.FieldStart("totalRevenue")
		money(e, s.Revenue)
		e.ObjEnd()
	})
}

func (h *Handler) updateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var label string
	if err := decodeBody(r, map[string]func(*jx.Decoder) error{
		"status": str(&label),
	}); err != nil {
		h.fail(w, r, err)
		return
	}
	to, err := order.ParseStatus(label)
	if err != nil {
		h.fail(w, r, newBadRequest(err.Error()))
		return
	}

	o, err := h.orders.Transition(r.Context(), r.PathValue("id"), to)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeOrder(e, o) })
}
