package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.uber.org/zap"

	"github.com/xenking/dream-snack/internal/domain/cart"
	"github.com/xenking/dream-snack/internal/domain/checkout"
	"github.com/xenking/dream-snack/internal/events"
)

// ErrEmptyCart is returned when an order is submitted with nothing in the cart.
var ErrEmptyCart = errors.New("cart is empty")

// CartStore loads and discards the cart an order is built from.
type CartStore interface {
	Load(ctx context.Context, userID string) (*cart.Cart, error)
	Delete(ctx context.Context, userID string) error
}

// KeyIndex answers whether an idempotency key may already have been used.
type KeyIndex interface {
	MaybeSeen(userID, key string) bool
	Add(userID, key string)
}

type allKeys struct{}

func (allKeys) MaybeSeen(string, string) bool { return true }
func (allKeys) Add(string, string)            {}

// PlaceOrderRequest holds the input for placing an order.
type PlaceOrderRequest struct {
	UserID         string
	Details        checkout.Details
	IdempotencyKey string
}

// PlaceOrderResult holds the placed order. Replayed is set when the
// idempotency key matched an earlier order, which is returned unchanged.
type PlaceOrderResult struct {
	Order    *Order
	Replayed bool
}

// Service encapsulates order placement and the status lifecycle.
type Service struct {
	orders    Repository
	carts     CartStore
	keys      KeyIndex
	publisher events.Publisher
	now       func() time.Time

	placed      metric.Int64Counter
	transitions metric.Int64Counter
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithPublisher sets where order events are sent.
func WithPublisher(p events.Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

// WithKeyIndex sets the idempotency fast path. Without one every keyed
// submission is looked up in the repository.
func WithKeyIndex(x KeyIndex) Option {
	return func(s *Service) { s.keys = x }
}

// WithMeterProvider sets the provider for order counters.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(s *Service) {
		meter := mp.Meter("github.com/xenking/dream-snack/internal/domain/order")
		s.placed, _ = meter.Int64Counter("orders.placed",
			metric.WithDescription("Orders created"),
		)
		s.transitions, _ = meter.Int64Counter("orders.transitions",
			metric.WithDescription("Order status changes"),
		)
	}
}

// NewService creates an order Service.
func NewService(orders Repository, carts CartStore, opts ...Option) *Service {
	s := &Service{
		orders:    orders,
		carts:     carts,
		keys:      allKeys{},
		publisher: events.Nop{},
		now:       time.Now,
	}
	WithMeterProvider(noop.NewMeterProvider())(s)
	for _, o := range opts {
		o(s)
	}
	return s
}

// ItemsFromCart copies the cart lines into order items.
func ItemsFromCart(c *cart.Cart) []Item {
	lines := c.Lines()
	items := make([]Item, len(lines))
	for i, l := range lines {
		items[i] = Item{
			ItemID:   l.Item.ID,
			Name:     l.Item.Name,
			Price:    l.Item.Price,
			Quantity: l.Quantity,
		}
	}
	return items
}

// PlaceOrder validates the checkout details, turns the user's cart into a
// pending order and clears the cart. The cart is left untouched when the
// order is not stored. A retry with a known idempotency key returns the
// stored order without looking at the cart.
//
// The cart is read and cleared without a lock, so an item added while the
// order is being stored is dropped with the rest of the cart.
func (s *Service) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*PlaceOrderResult, error) {
	lg := zctx.From(ctx)

	if req.IdempotencyKey != "" && s.keys.MaybeSeen(req.UserID, req.IdempotencyKey) {
		if res, err := s.replay(ctx, req); res != nil || err != nil {
			return res, err
		}
	}

	if req.Details.PaymentMethod == "" {
		req.Details.PaymentMethod = checkout.PaymentCash
	}
	if err := checkout.Validate(req.Details); err != nil {
		return nil, err
	}

	c, err := s.carts.Load(ctx, req.UserID)
	if err != nil {
		return nil, errors.Wrap(err, "load cart")
	}
	if c.Empty() {
		// The key index only knows keys used through this instance.
		if req.IdempotencyKey != "" {
			if res, err := s.replay(ctx, req); res != nil || err != nil {
				return res, err
			}
		}
		return nil, ErrEmptyCart
	}

	now := s.now().UTC().Truncate(time.Microsecond)
	items := ItemsFromCart(c)
	o := &Order{
		ID:                    uuid.New().String(),
		UserID:                req.UserID,
		CustomerName:          req.Details.Name,
		Items:                 items,
		TotalAmount:           c.Total(),
		DeliveryAddress:       req.Details.Address,
		Phone:                 req.Details.Phone,
		PaymentMethod:         req.Details.PaymentMethod,
		SpecialInstructions:   req.Details.SpecialInstructions,
		Status:                StatusPending,
		IdempotencyKey:        req.IdempotencyKey,
		CreatedAt:             now,
		EstimatedDeliveryTime: now.Add(DeliveryEstimate),
	}

	if err := s.orders.Create(ctx, o); err != nil {
		if errors.Is(err, ErrDuplicateKey) {
			existing, findErr := s.orders.FindByIdempotencyKey(ctx, req.UserID, req.IdempotencyKey)
			if findErr != nil {
				return nil, errors.Wrap(findErr, "find conflicting order")
			}
			s.keys.Add(req.UserID, req.IdempotencyKey)
			return &PlaceOrderResult{Order: existing, Replayed: true}, nil
		}
		return nil, errors.Wrap(err, "create order")
	}

	if req.IdempotencyKey != "" {
		s.keys.Add(req.UserID, req.IdempotencyKey)
	}
	if err := s.carts.Delete(ctx, req.UserID); err != nil {
		lg.Warn("Failed to clear cart after order", zap.String("order_id", o.ID), zap.Error(err))
	}
	s.placed.Add(ctx, 1, metric.WithAttributes(
		attribute.String("payment_method", string(o.PaymentMethod)),
	))

	lg.Info("Order placed",
		zap.String("order_id", o.ID),
		zap.String("number", o.DisplayNumber()),
		zap.Int("items", len(o.Items)),
		zap.String("total", o.TotalAmount.String()),
	)
	s.publish(ctx, events.TypePlaced, o)

	return &PlaceOrderResult{Order: o}, nil
}

// replay returns the order stored under the request's idempotency key, or
// nil when there is none.
func (s *Service) replay(ctx context.Context, req PlaceOrderRequest) (*PlaceOrderResult, error) {
	existing, err := s.orders.FindByIdempotencyKey(ctx, req.UserID, req.IdempotencyKey)
	switch {
	case errors.Is(err, ErrNotFound):
		return nil, nil
	case err != nil:
		return nil, errors.Wrap(err, "find by idempotency key")
	}
	s.keys.Add(req.UserID, req.IdempotencyKey)
	zctx.From(ctx).Info("Replaying order for idempotency key",
		zap.String("order_id", existing.ID),
	)
	return &PlaceOrderResult{Order: existing, Replayed: true}, nil
}

// Transition moves order id to status to. Moves outside the lifecycle
// return a *TransitionError; a concurrent change returns ErrStatusConflict.
func (s *Service) Transition(ctx context.Context, id string, to Status) (*Order, error) {
	o, err := s.orders.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := CheckTransition(o.Status, to); err != nil {
		return nil, err
	}

	var deliveredAt *time.Time
	if to == StatusDelivered {
		t := s.now().UTC().Truncate(time.Microsecond)
		deliveredAt = &t
	}
	if err := s.orders.UpdateStatus(ctx, id, o.Status, to, deliveredAt); err != nil {
		return nil, err
	}

	from := o.Status
	o.Status = to
	o.DeliveredAt = deliveredAt

	s.transitions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("from", string(from)),
		attribute.String("to", string(to)),
	))
	zctx.From(ctx).Info("Order status changed",
		zap.String("order_id", o.ID),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
	)
	s.publish(ctx, events.TypeStatusChanged, o)

	return o, nil
}

func (s *Service) publish(ctx context.Context, typ events.Type, o *Order) {
	ev := events.Event{
		Type:    typ,
		OrderID: o.ID,
		Number:  o.DisplayNumber(),
		UserID:  o.UserID,
		Status:  string(o.Status),
		Total:   o.TotalAmount.String(),
		At:      s.now().UTC(),
	}
	if err := s.publisher.Publish(ctx, ev); err != nil {
		zctx.From(ctx).Warn("Failed to publish order event",
			zap.String("type", string(typ)),
			zap.String("order_id", o.ID),
			zap.Error(err),
		)
	}
}

// Get returns a single order.
func (s *Service) Get(ctx context.Context, id string) (*Order, error) {
	return s.orders.Get(ctx, id)
}

// History returns the orders of userID, newest first.
func (s *Service) History(ctx context.Context, userID string) ([]Order, error) {
	orders, err := s.orders.ListByUser(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "list user orders")
	}
	return orders, nil
}

// ListAll returns every order, newest first.
func (s *Service) ListAll(ctx context.Context) ([]Order, error) {
	orders, err := s.orders.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	return orders, nil
}

// Stats summarises every order.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	orders, err := s.ListAll(ctx)
	if err != nil {
		return Stats{}, err
	}
	return Summarize(orders), nil
}
