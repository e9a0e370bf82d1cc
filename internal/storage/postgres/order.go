package postgres

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/dream-snack/internal/domain/checkout"
	"github.com/xenking/dream-snack/internal/domain/order"
)

const orderColumns = `id::text, number, user_id, customer_name, items, total_amount,
	delivery_address, phone, payment_method, special_instructions, status,
	COALESCE(idempotency_key, ''), created_at, estimated_delivery_time, delivered_at`

const createOrderSQL = `INSERT INTO orders (id, user_id, customer_name, items, total_amount,
	delivery_address, phone, payment_method, special_instructions, status,
	idempotency_key, created_at, estimated_delivery_time)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NULLIF($11, ''), $12, $13)
	ON CONFLICT (user_id, idempotency_key) WHERE idempotency_key IS NOT NULL DO NOTHING
	RETURNING number`

const getOrderSQL = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

const findByKeySQL = `SELECT ` + orderColumns + `
	FROM orders WHERE user_id = $1 AND idempotency_key = $2`

const listByUserSQL = `SELECT ` + orderColumns + `
	FROM orders WHERE user_id = $1 ORDER BY created_at DESC, number DESC`

const listSQL = `SELECT ` + orderColumns + ` FROM orders ORDER BY created_at DESC, number DESC`

const updateStatusSQL = `UPDATE orders SET status = $3, delivered_at = $4
	WHERE id = $1 AND status = $2`

const idempotencyKeysSQL = `SELECT user_id, idempotency_key FROM orders
	WHERE idempotency_key IS NOT NULL`

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create persists a new order and assigns its sequence number. Items are
// stored as JSONB. A second order with the same (user, idempotency key)
// returns order.ErrDuplicateKey.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	itemsJSON, err := json.Marshal(o.Items)
	if err != nil {
		return errors.Wrap(err, "marshal order items")
	}

	err = r.pool.QueryRow(ctx, createOrderSQL,
		o.ID, o.UserID, o.CustomerName, itemsJSON, o.TotalAmount,
		o.DeliveryAddress, o.Phone, string(o.PaymentMethod), o.SpecialInstructions, string(o.Status),
		o.IdempotencyKey, o.CreatedAt, o.EstimatedDeliveryTime,
	).Scan(&o.Number)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return order.ErrDuplicateKey
		}
		return errors.Wrapf(err, "create order %q", o.ID)
	}
	return nil
}

// Get returns the order with the given id.
func (r *OrderRepository) Get(ctx context.Context, id string) (*order.Order, error) {
	if uuid.Validate(id) != nil {
		return nil, order.ErrNotFound
	}
	o, err := scanOrder(r.pool.QueryRow(ctx, getOrderSQL, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, errors.Wrapf(err, "get order %q", id)
	}
	return o, nil
}

// FindByIdempotencyKey returns the order userID placed with key.
func (r *OrderRepository) FindByIdempotencyKey(ctx context.Context, userID, key string) (*order.Order, error) {
	o, err := scanOrder(r.pool.QueryRow(ctx, findByKeySQL, userID, key))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, errors.Wrap(err, "find order by idempotency key")
	}
	return o, nil
}

// ListByUser returns the orders of userID, newest first.
func (r *OrderRepository) ListByUser(ctx context.Context, userID string) ([]order.Order, error) {
	return r.list(ctx, listByUserSQL, userID)
}

// List returns every order, newest first.
func (r *OrderRepository) List(ctx context.Context) ([]order.Order, error) {
	return r.list(ctx, listSQL)
}

func (r *OrderRepository) list(ctx context.Context, sql string, args ...any) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, errors.Wrap(err, "query orders")
	}
	defer rows.Close()

	var out []order.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate orders")
	}
	return out, nil
}

// UpdateStatus sets the status of order id to to, provided it is still
// from. Otherwise it returns order.ErrStatusConflict, or order.ErrNotFound
// when the order does not exist.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id string, from, to order.Status, deliveredAt *time.Time) error {
	if uuid.Validate(id) != nil {
		return order.ErrNotFound
	}
	tag, err := r.pool.Exec(ctx, updateStatusSQL, id, string(from), string(to), deliveredAt)
	if err != nil {
		return errors.Wrapf(err, "update order %q status", id)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`, id).Scan(&exists); err != nil {
		return errors.Wrapf(err, "check order %q", id)
	}
	if !exists {
		return order.ErrNotFound
	}
	return order.ErrStatusConflict
}

// EachIdempotencyKey calls fn for every stored (user, key) pair.
func (r *OrderRepository) EachIdempotencyKey(ctx context.Context, fn func(userID, key string) error) error {
	rows, err := r.pool.Query(ctx, idempotencyKeysSQL)
	if err != nil {
		return errors.Wrap(err, "query idempotency keys")
	}
	defer rows.Close()

	for rows.Next() {
		var userID, key string
		if err := rows.Scan(&userID, &key); err != nil {
			return errors.Wrap(err, "scan idempotency key")
		}
		if err := fn(userID, key); err != nil {
			return err
		}
	}
	return rows.Err()
}

// Ping checks database connectivity.
func (r *OrderRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func scanOrder(row pgx.Row) (*order.Order, error) {
	var (
		o             order.Order
		itemsJSON     []byte
		total         decimal.Decimal
		paymentMethod string
		status        string
	)
	err := row.Scan(
		&o.ID, &o.Number, &o.UserID, &o.CustomerName, &itemsJSON, &total,
		&o.DeliveryAddress, &o.Phone, &paymentMethod, &o.SpecialInstructions, &status,
		&o.IdempotencyKey, &o.CreatedAt, &o.EstimatedDeliveryTime, &o.DeliveredAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(itemsJSON, &o.Items); err != nil {
		return nil, errors.Wrapf(err, "unmarshal items of order %q", o.ID)
	}
	o.TotalAmount = total
	o.PaymentMethod = checkout.PaymentMethod(paymentMethod)
	o.Status = order.Status(status)
	o.CreatedAt = o.CreatedAt.UTC()
	o.EstimatedDeliveryTime = o.EstimatedDeliveryTime.UTC()
	if o.DeliveredAt != nil {
		t := o.DeliveredAt.UTC()
		o.DeliveredAt = &t
	}
	return &o, nil
}
