package order

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/dream-snack/internal/domain/checkout"
)

// DeliveryEstimate is added to the creation time to produce the estimated
// delivery time shown to the customer. It is display text only; nothing
// escalates when it passes.
const DeliveryEstimate = 10 * time.Minute

var (
	// ErrNotFound is returned when an order does not exist.
	ErrNotFound = errors.New("order not found")
	// ErrDuplicateKey is returned by Repository.Create when the user already
	// has an order with the same idempotency key.
	ErrDuplicateKey = errors.New("duplicate idempotency key")
	// ErrStatusConflict is returned when the order status changed between
	// read and update.
	ErrStatusConflict = errors.New("order status changed concurrently")
)

// Order is the persisted record of a submitted cart.
type Order struct {
	ID                    string
	Number                int64
	UserID                string
	CustomerName          string
	Items                 []Item
	TotalAmount           decimal.Decimal
	DeliveryAddress       string
	Phone                 string
	PaymentMethod         checkout.PaymentMethod
	SpecialInstructions   string
	Status                Status
	IdempotencyKey        string
	CreatedAt             time.Time
	EstimatedDeliveryTime time.Time
	DeliveredAt           *time.Time
}

// DisplayNumber formats the sequence number the way receipts show it.
func (o *Order) DisplayNumber() string {
	return fmt.Sprintf("DS%08d", o.Number)
}

// Item is a snapshot of one cart line taken at submission time. It holds
// copies of the menu item fields so later menu changes do not alter it.
type Item struct {
	ItemID   int             `json:"itemId"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
}

// Subtotal returns price × quantity.
func (i Item) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Repository defines persistence operations for orders.
type Repository interface {
	// Create inserts o and assigns o.Number.
	Create(ctx context.Context, o *Order) error
	Get(ctx context.Context, id string) (*Order, error)
	FindByIdempotencyKey(ctx context.Context, userID, key string) (*Order, error)
	// ListByUser returns the orders of userID, newest first.
	ListByUser(ctx context.Context, userID string) ([]Order, error)
	// List returns all orders, newest first.
	List(ctx context.Context) ([]Order, error)
	// UpdateStatus moves the order from status from to status to. It
	// returns ErrStatusConflict when the stored status is not from.
	UpdateStatus(ctx context.Context, id string, from, to Status, deliveredAt *time.Time) error
}
