// Package handler exposes the storefront over HTTP.
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/xenking/dream-snack/internal/chat"
	"github.com/xenking/dream-snack/internal/domain/auth"
	"github.com/xenking/dream-snack/internal/domain/cart"
	"github.com/xenking/dream-snack/internal/domain/contact"
	"github.com/xenking/dream-snack/internal/domain/order"
	"github.com/xenking/dream-snack/internal/domain/settings"
	"github.com/xenking/dream-snack/pkg/httpmiddleware"
)

// ChatStreamer relays a transcript to the chat gateway.
type ChatStreamer interface {
	Stream(ctx context.Context, transcript []chat.Message, fn func(delta string) error) error
}

// Deps are the services behind the API.
type Deps struct {
	Auth     auth.Authenticator
	Carts    *cart.Store
	Orders   *order.Service
	Settings *settings.Store
	Contact  *contact.Service
	Chat     ChatStreamer
	// Feed serves the admin websocket feed. Nil disables the route.
	Feed http.Handler
	// ChatLimit is applied to the chat route only.
	ChatLimit httpmiddleware.Middleware
	// Now defaults to time.Now.
	Now func() time.Time
}

// Handler serves the REST API.
type Handler struct {
	auth      auth.Authenticator
	carts     *cart.Store
	orders    *order.Service
	settings  *settings.Store
	contact   *contact.Service
	chat      ChatStreamer
	feed      http.Handler
	chatLimit httpmiddleware.Middleware
	now       func() time.Time
}

// New constructs a Handler.
func New(d Deps) *Handler {
	h := &Handler{
		auth:      d.Auth,
		carts:     d.Carts,
		orders:    d.Orders,
		settings:  d.Settings,
		contact:   d.Contact,
		chat:      d.Chat,
		feed:      d.Feed,
		chatLimit: d.ChatLimit,
		now:       d.Now,
	}
	if h.now == nil {
		h.now = time.Now
	}
	if h.chatLimit == nil {
		h.chatLimit = func(next http.Handler) http.Handler { return next }
	}
	return h
}

// Register adds every API route to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	// Public.
	mux.HandleFunc("GET /api/menu", h.listMenu)
	mux.HandleFunc("GET /api/menu/{id}", h.getMenuItem)
	mux.HandleFunc("GET /api/delivery-areas", h.listDeliveryAreas)
	mux.HandleFunc("POST /api/contact", h.submitContact)
	mux.Handle("POST /api/chat", h.chatLimit(http.HandlerFunc(h.streamChat)))

	// Signed in.
	mux.Handle("GET /api/me", h.user(h.getMe))
	mux.Handle("GET /api/cart", h.user(h.getCart))
	mux.Handle("POST /api/cart/items", h.user(h.addCartItem))
	mux.Handle("PUT /api/cart/items/{id}", h.user(h.setCartQuantity))
	mux.Handle("DELETE /api/cart/items/{id}", h.user(h.removeCartItem))
	mux.Handle("DELETE /api/cart", h.user(h.clearCart))
	mux.Handle("POST /api/orders", h.user(h.placeOrder))
	mux.Handle("GET /api/orders", h.user(h.listOrders))
	mux.Handle("GET /api/orders/{id}", h.user(h.getOrder))

	mux.Handle("GET /api/settings/theme", h.user(h.getTheme))
	mux.Handle("PUT /api/settings/theme", h.user(h.putTheme))
	mux.Handle("GET /api/settings/notifications", h.user(h.getNotifications))
	mux.Handle("PUT /api/settings/notifications", h.user(h.putNotifications))
	mux.Handle("GET /api/settings/privacy", h.user(h.getPrivacy))
	mux.Handle("PUT /api/settings/privacy", h.user(h.putPrivacy))
	mux.Handle("GET /api/settings/addresses", h.user(h.listAddresses))
	mux.Handle("POST /api/settings/addresses", h.user(h.addAddress))
	mux.Handle("PUT /api/settings/addresses/{id}", h.user(h.updateAddress))
	mux.Handle("DELETE /api/settings/addresses/{id}", h.user(h.deleteAddress))
	mux.Handle("POST /api/settings/addresses/{id}/default", h.user(h.setDefaultAddress))
	mux.Handle("DELETE /api/settings", h.user(h.clearSettings))
	mux.Handle("GET /api/account/export", h.user(h.exportAccount))

	// Admin.
	mux.Handle("GET /api/admin/orders", h.admin(h.listAllOrders))
	mux.Handle("GET /api/admin/stats", h.admin(h.getStats))
	mux.Handle("PATCH /api/admin/orders/{id}/status", h.admin(h.updateOrderStatus))
	if h.feed != nil {
		mux.Handle("GET /api/admin/orders/feed", h.admin(h.feed.ServeHTTP))
	}
}
