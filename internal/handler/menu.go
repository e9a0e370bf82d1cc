package handler

import (
	"net/http"

	"github.com/go-faster/jx"

	"github.com/xenking/dream-snack/internal/domain/catalog"
)

func (h *Handler) listMenu(w http.ResponseWriter, r *http.Request) {
	items := catalog.Items()
	if v := r.URL.Query().Get("category"); v != "" {
		c := catalog.Category(v)
		if !c.Valid() {
			h.fail(w, r, newBadRequest("Unknown category "+v))
			return
		}
		items = catalog.ByCategory(c)
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ArrStart()
		for _, it := range items {
			encodeMenuItem(e, it)
		}
		e.ArrEnd()
	})
}

func (h *Handler) getMenuItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	it, err := catalog.Lookup(id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeMenuItem(e, it) })
}

func (h *Handler) listDeliveryAreas(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ArrStart()
		for _, a := range catalog.DeliveryAreas() {
			e.Str(a)
		}
		e.ArrEnd()
	})
}
