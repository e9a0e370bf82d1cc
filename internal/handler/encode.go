package handler

import (
	"time"

	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/dream-snack/internal/domain/auth"
	"github.com/xenking/dream-snack/internal/domain/cart"
	"github.com/xenking/dream-snack/internal/domain/catalog"
	"github.com/xenking/dream-snack/internal/domain/order"
	"github.com/xenking/dream-snack/internal/domain/settings"
)

func money(e *jx.Encoder, d decimal.Decimal) {
	e.Num(jx.Num(d.String()))
}

func timestamp(e *jx.Encoder, t time.Time) {
	e.Str(t.UTC().Format(time.RFC3339Nano))
}

func encodeMenuItem(e *jx.Encoder, it catalog.MenuItem) {
	e.ObjStart()
	e.FieldStart("id")
	e.Int(it.ID)
	e.FieldStart("name")
	e.Str(it.Name)
	e.FieldStart("category")
	e.Str(string(it.Category))
	e.FieldStart("price")
	money(e, it.Price)
	e.FieldStart("description")
	e.Str(it.Description)
	e.FieldStart("popular")
	e.Bool(it.Popular)
	e.ObjEnd()
}

func encodeCart(e *jx.Encoder, c *cart.Cart) {
	e.ObjStart()
	e.FieldStart("items")
	e.ArrStart()
	for _, l := range c.Lines() {
		e.ObjStart()
		e.FieldStart("item")
		encodeMenuItem(e, l.Item)
		e.FieldStart("quantity")
		e.Int(l.Quantity)
		e.FieldStart("subtotal")
		money(e, l.Subtotal())
		e.ObjEnd()
	}
	e.ArrEnd()
	e.FieldStart("total")
	money(e, c.Total())
	e.ObjEnd()
}

func encodeOrder(e *jx.Encoder, o *order.Order) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(o.ID)
	e.FieldStart("orderNumber")
	e.Str(o.DisplayNumber())
	e.FieldStart("status")
	e.Str(string(o.Status))
	e.FieldStart("items")
	e.ArrStart()
	for _, it := range o.Items {
		e.ObjStart()
		e.FieldStart("itemId")
		e.Int(it.ItemID)
		e.FieldStart("name")
		e.Str(it.Name)
		e.FieldStart("price")
		money(e, it.Price)
		e.FieldStart("quantity")
		e.Int(it.Quantity)
		e.ObjEnd()
	}
	e.ArrEnd()
	e.FieldStart("totalAmount")
	money(e, o.TotalAmount)
	e.FieldStart("customerName")
	e.Str(o.CustomerName)
	e.FieldStart("phone")
	e.Str(o.Phone)
	e.FieldStart("deliveryAddress")
	e.Str(o.DeliveryAddress)
	e.FieldStart("paymentMethod")
	e.Str(string(o.PaymentMethod))
	if o.SpecialInstructions != "" {
		e.FieldStart("specialInstructions")
		e.Str(o.SpecialInstructions)
	}
	e.FieldStart("createdAt")
	timestamp(e, o.CreatedAt)
	e.FieldStart("estimatedDeliveryTime")
	timestamp(e, o.EstimatedDeliveryTime)
	e.FieldStart("deliveredAt")
	if o.DeliveredAt != nil {
		timestamp(e, *o.DeliveredAt)
	} else {
		e.Null()
	}
	e.ObjEnd()
}

func encodeOrders(e *jx.Encoder, orders []order.Order) {
	e.ArrStart()
	for i := range orders {
		encodeOrder(e, &orders[i])
	}
	e.ArrEnd()
}

func encodeIdentity(e *jx.Encoder, id *auth.Identity) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(id.UserID)
	e.FieldStart("email")
	e.Str(id.Email)
	e.FieldStart("displayName")
	e.Str(id.Name())
	e.FieldStart("isAdmin")
	e.Bool(id.Admin)
	e.ObjEnd()
}

func encodeTheme(e *jx.Encoder, t settings.Theme) {
	e.ObjStart()
	e.FieldStart("theme")
	e.Str(t.Theme)
	e.FieldStart("language")
	e.Str(t.Language)
	e.ObjEnd()
}

func encodeNotifications(e *jx.Encoder, n settings.Notifications) {
	e.ObjStart()
	e.FieldStart("emailOrders")
	e.Bool(n.EmailOrders)
	e.FieldStart("emailPromotions")
	e.Bool(n.EmailPromotions)
	e.FieldStart("pushOrders")
	e.Bool(n.PushOrders)
	e.FieldStart("pushDelivery")
	e.Bool(n.PushDelivery)
	e.FieldStart("smsOrders")
	e.Bool(n.SMSOrders)
	e.FieldStart("smsDelivery")
	e.Bool(n.SMSDelivery)
	e.ObjEnd()
}

func encodePrivacy(e *jx.Encoder, p settings.Privacy) {
	e.ObjStart()
	e.FieldStart("shareData")
	e.Bool(p.ShareData)
	e.FieldStart("analytics")
	e.Bool(p.Analytics)
	e.FieldStart("marketing")
	e.Bool(p.Marketing)
	e.FieldStart("orderHistory")
	e.Bool(p.OrderHistory)
	e.ObjEnd()
}

func encodeAddress(e *jx.Encoder, a settings.Address) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(a.ID)
	e.FieldStart("name")
	e.Str(a.Name)
	e.FieldStart("address")
	e.Str(a.Address)
	e.FieldStart("phone")
	e.Str(a.Phone)
	e.FieldStart("isDefault")
	e.Bool(a.IsDefault)
	e.ObjEnd()
}

func encodeAddresses(e *jx.Encoder, book []settings.Address) {
	e.ArrStart()
	for _, a := range book {
		encodeAddress(e, a)
	}
	e.ArrEnd()
}
