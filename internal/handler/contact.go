package handler

import (
	"net/http"

	"github.com/go-faster/jx"

	"github.com/xenking/dream-snack/internal/domain/contact"
)

func (h *Handler) submitContact(w http.ResponseWriter, r *http.Request) {
	var f contact.Form
	if err := decodeBody(r, map[string]func(*jx.Decoder) error{
		"name":    str(&f.Name),
		"email":   str(&f.Email),
		"phone":   str(&f.Phone),
		"subject": str(&f.Subject),
		"message": str(&f.Message),
	}); err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.contact.Submit(r.Context(), f); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("message")
		e.Str("Thank you! We will get back to you within 24 hours.")
		e.ObjEnd()
	})
}
