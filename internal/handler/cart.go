package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/dream-snack/internal/domain/cart"
	"github.com/xenking/dream-snack/internal/domain/catalog"
)

// MaxLineQuantity caps a single cart line.
const MaxLineQuantity = 99

func (h *Handler) writeCart(w http.ResponseWriter, c *cart.Cart) {
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeCart(e, c) })
}

// updateCart loads the caller's cart, applies fn and stores the result.
func (h *Handler) updateCart(w http.ResponseWriter, r *http.Request, fn func(c *cart.Cart) error) {
	userID := identity(r).UserID
	c, err := h.carts.Load(r.Context(), userID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := fn(c); err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.carts.Save(r.Context(), userID, c); err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeCart(w, c)
}

func (h *Handler) getCart(w http.ResponseWriter, r *http.Request) {
	c, err := h.carts.Load(r.Context(), identity(r).UserID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeCart(w, c)
}

func (h *Handler) addCartItem(w http.ResponseWriter, r *http.Request) {
	var itemID int
	if err := decodeBody(r, map[string]func(*jx.Decoder) error{
		"itemId": integer(&itemID),
	}); err != nil {
		h.fail(w, r, err)
		return
	}
	it, err := catalog.Lookup(itemID)
	if err != nil {
		h.fail(w, r, newBadRequest("Unknown menu item"))
		return
	}
	h.updateCart(w, r, func(c *cart.Cart) error {
		if c.Quantity(it.ID) >= MaxLineQuantity {
			return newBadRequest("Quantity limit reached")
		}
		c.AddItem(it)
		return nil
	})
}

func (h *Handler) setCartQuantity(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	quantity := -1
	if err := decodeBody(r, map[string]func(*jx.Decoder) error{
		"quantity": integer(&quantity),
	}); err != nil {
		h.fail(w, r, err)
		return
	}
	if quantity < 0 || quantity > MaxLineQuantity {
		h.fail(w, r, newBadRequest("Quantity must be between 0 and 99"))
		return
	}
	h.updateCart(w, r, func(c *cart.Cart) error {
		if c.Quantity(id) == 0 {
			return errors.Wrapf(catalog.ErrNotFound, "item %d is not in the cart", id)
		}
		c.SetQuantity(id, quantity)
		return nil
	})
}

func (h *Handler) removeCartItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.updateCart(w, r, func(c *cart.Cart) error {
		c.Remove(id)
		return nil
	})
}

func (h *Handler) clearCart(w http.ResponseWriter, r *http.Request) {
	if err := h.carts.Delete(r.Context(), identity(r).UserID); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
