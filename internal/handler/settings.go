package handler

import (
	"net/http"

	"github.com/go-faster/jx"

	"github.com/xenking/dream-snack/internal/domain/settings"
)

func (h *Handler) getTheme(w http.ResponseWriter, r *http.Request) {
	t, err := h.settings.Theme(r.Context(), identity(r).UserID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeTheme(e, t) })
}

func (h *Handler) putTheme(w http.ResponseWriter, r *http.Request) {
	var t settings.Theme
	if err := decodeBody(r, map[string]func(*jx.Decoder) error{
		"theme":    str(&t.Theme),
		"language": str(&t.Language),
	}); err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.settings.SetTheme(r.Context(), identity(r).UserID, t); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeTheme(e, t) })
}

func (h *Handler) getNotifications(w http.ResponseWriter, r *http.Request) {
	n, err := h.settings.Notifications(r.Context(), identity(r).UserID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeNotifications(e, n) })
}

func (h *Handler) putNotifications(w http.ResponseWriter, r *http.Request) {
	var n settings.Notifications
	if err := decodeBody(r, map[string]func(*jx.Decoder) error{
		"emailOrders":     boolean(&n.EmailOrders),
		"emailPromotions": boolean(&n.EmailPromotions),
		"pushOrders":      boolean(&n.PushOrders),
		"pushDelivery":    boolean(&n.PushDelivery),
		"smsOrders":       boolean(&n.SMSOrders),
		"smsDelivery":     boolean(&n.SMSDelivery),
	}); err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.settings.SetNotifications(r.Context(), identity(r).UserID, n); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeNotifications(e, n) })
}

func (h *Handler) getPrivacy(w http.ResponseWriter, r *http.Request) {
	p, err := h.settings.Privacy(r.Context(), identity(r).UserID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodePrivacy(e, p) })
}

func (h *Handler) putPrivacy(w http.ResponseWriter, r *http.Request) {
	var p settings.Privacy
	if err := decodeBody(r, map[string]func(*jx.Decoder) error{
		"shareData":    boolean(&p.ShareData),
		"analytics":    boolean(&p.Analytics),
		"marketing":    boolean(&p.Marketing),
		"orderHistory": boolean(&p.OrderHistory),
	}); err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.settings.SetPrivacy(r.Context(), identity(r).UserID, p); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodePrivacy(e, p) })
}

func decodeAddress(r *http.Request) (settings.Address, error) {
	var a settings.Address
	err := decodeBody(r, map[string]func(*jx.Decoder) error{
		"name":    str(&a.Name),
		"address": str(&a.Address),
		"phone":   str(&a.Phone),
	})
	return a, err
}

func (h *Handler) writeAddresses(w http.ResponseWriter, r *http.Request, status int) {
	book, err := h.settings.Addresses(r.Context(), identity(r).UserID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, status, func(e *jx.Encoder) { encodeAddresses(e, book) })
}

func (h *Handler) listAddresses(w http.ResponseWriter, r *http.Request) {
	h.writeAddresses(w, r, http.StatusOK)
}

func (h *Handler) addAddress(w http.ResponseWriter, r *http.Request) {
	a, err := decodeAddress(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	added, err := h.settings.AddAddress(r.Context(), identity(r).UserID, a)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) { encodeAddress(e, *added) })
}

func (h *Handler) updateAddress(w http.ResponseWriter, r *http.Request) {
	a, err := decodeAddress(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	updated, err := h.settings.UpdateAddress(r.Context(), identity(r).UserID, r.PathValue("id"), a)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeAddress(e, *updated) })
}

func (h *Handler) deleteAddress(w http.ResponseWriter, r *http.Request) {
	if err := h.settings.DeleteAddress(r.Context(), identity(r).UserID, r.PathValue("id")); err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeAddresses(w, r, http.StatusOK)
}

func (h *Handler) setDefaultAddress(w http.ResponseWriter, r *http.Request) {
	if err := h.settings.SetDefaultAddress(r.Context(), identity(r).UserID, r.PathValue("id")); err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeAddresses(w, r, http.StatusOK)
}

func (h *Handler) clearSettings(w http.ResponseWriter, r *http.Request) {
	if err := h.settings.ClearLocalData(r.Context(), identity(r).UserID); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
