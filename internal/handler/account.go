package handler

import (
	"net/http"

	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"github.com/klauspost/pgzip"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/dream-snack/internal/domain/order"
	"github.com/xenking/dream-snack/internal/domain/settings"
)

func (h *Handler) getMe(w http.ResponseWriter, r *http.Request) {
	id := identity(r)
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeIdentity(e, id) })
}

// exportAccount streams every stored record of the caller as a gzip
// compressed JSON document.
func (h *Handler) exportAccount(w http.ResponseWriter, r *http.Request) {
	id := identity(r)

	var (
		prefs  *settings.Preferences
		orders []order.Order
	)
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		var err error
		prefs, err = h.settings.Preferences(ctx, id.UserID)
		return err
	})
	g.Go(func() error {
		var err error
		orders, err = h.orders.History(ctx, id.UserID)
		return err
	})
	if err := g.Wait(); err != nil {
		h.fail(w, r, err)
		return
	}

	now := h.now().UTC()
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)
	e.ObjStart()
	e.FieldStart("exportDate")
	timestamp(e, now)
	e.FieldStart("user")
	encodeIdentity(e, id)
	e.FieldStart("settings")
	e.ObjStart()
	e.FieldStart("theme")
	encodeTheme(e, prefs.Theme)
	e.FieldStart("notifications")
	encodeNotifications(e, prefs.Notifications)
	e.FieldStart("privacy")
	encodePrivacy(e, prefs.Privacy)
	e.FieldStart("addresses")
	encodeAddresses(e, prefs.Addresses)
	e.ObjEnd()
	e.FieldStart("orders")
	encodeOrders(e, orders)
	e.ObjEnd()

	name := "dream-snack-data-" + now.Format("2006-01-02") + ".json.gz"
	w.Header().Set("Content-Type", "application/gzip")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.WriteHeader(http.StatusOK)

	zw := pgzip.NewWriter(w)
	if _, err := zw.Write(e.Bytes()); err != nil {
		zctx.From(r.Context()).Warn("Export write failed", zap.Error(err))
		_ = zw.Close()
		return
	}
	if err := zw.Close(); err != nil {
		zctx.From(r.Context()).Warn("Export close failed", zap.Error(err))
	}
}
