//go:build integration

package postgres

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/xenking/dream-snack/internal/domain/checkout"
	"github.com/xenking/dream-snack/internal/domain/order"
)

func startPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "snack",
				"POSTGRES_PASSWORD": "snack",
				"POSTGRES_DB":       "snack",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Terminate(context.Background()) })

	host, err := c.Host(ctx)
	require.NoError(t, err)
	port, err := c.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	dsn := fmt.Sprintf("postgres://snack:snack@%s:%s/snack?sslmode=disable", host, port.Port())
	pool, err := NewPool(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, RunMigrations(ctx, pool))
	// Migrations are idempotent.
	require.NoError(t, RunMigrations(ctx, pool))
	return pool
}

func newOrder(userID, key string, created time.Time) *order.Order {
	return &order.Order{
		ID:           uuid.New().String(),
		UserID:       userID,
		CustomerName: "Asha",
		Items: []order.Item{
			{ItemID: 1, Name: "Indian Chai", Price: decimal.NewFromInt(15), Quantity: 2},
			{ItemID: 9, Name: "Corn Snacks Mix", Price: decimal.NewFromInt(25), Quantity: 1},
		},
		TotalAmount:           decimal.NewFromInt(55),
		DeliveryAddress:       "12 Kamla Nagar",
		Phone:                 "9876543210",
		PaymentMethod:         checkout.PaymentUPI,
		Status:                order.StatusPending,
		IdempotencyKey:        key,
		CreatedAt:             created,
		EstimatedDeliveryTime: created.Add(order.DeliveryEstimate),
	}
}

func TestOrderRepository(t *testing.T) {
	pool := startPostgres(t)
	repo := NewOrderRepository(pool)
	ctx := context.Background()
	base := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	t.Run("CreateAndGet", func(t *testing.T) {
		o := newOrder("u-get", "", base)
		require.NoError(t, repo.Create(ctx, o))
		assert.Positive(t, o.Number)

		got, err := repo.Get(ctx, o.ID)
		require.NoError(t, err)
		assert.Equal(t, o.ID, got.ID)
		assert.Equal(t, o.Number, got.Number)
		assert.True(t, o.TotalAmount.Equal(got.TotalAmount))
		assert.Equal(t, checkout.PaymentUPI, got.PaymentMethod)
		assert.Equal(t, order.StatusPending, got.Status)
		assert.Equal(t, base, got.CreatedAt)
		assert.Equal(t, base.Add(10*time.Minute), got.EstimatedDeliveryTime)
		assert.Nil(t, got.DeliveredAt)
		require.Len(t, got.Items, 2)
		assert.True(t, decimal.NewFromInt(15).Equal(got.Items[0].Price))
	})

	t.Run("NumbersAreUnique", func(t *testing.T) {
		var (
			mu   sync.Mutex
			seen = map[int64]bool{}
			wg   sync.WaitGroup
		)
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				o := newOrder("u-seq", "", base)
				if !assert.NoError(t, repo.Create(ctx, o)) {
					return
				}
				mu.Lock()
				defer mu.Unlock()
				assert.False(t, seen[o.Number])
				seen[o.Number] = true
			}()
		}
		wg.Wait()
		assert.Len(t, seen, 20)
	})

	t.Run("DuplicateIdempotencyKey", func(t *testing.T) {
		first := newOrder("u-key", "k1", base)
		require.NoError(t, repo.Create(ctx, first))

		second := newOrder("u-key", "k1", base)
		require.ErrorIs(t, repo.Create(ctx, second), order.ErrDuplicateKey)

		got, err := repo.FindByIdempotencyKey(ctx, "u-key", "k1")
		require.NoError(t, err)
		assert.Equal(t, first.ID, got.ID)

		// Other users may reuse the key.
		require.NoError(t, repo.Create(ctx, newOrder("u-other", "k1", base)))

		_, err = repo.FindByIdempotencyKey(ctx, "u-key", "missing")
		require.ErrorIs(t, err, order.ErrNotFound)
	})

	t.Run("ListNewestFirst", func(t *testing.T) {
		older := newOrder("u-list", "", base)
		newer := newOrder("u-list", "", base.Add(time.Hour))
		require.NoError(t, repo.Create(ctx, older))
		require.NoError(t, repo.Create(ctx, newer))

		got, err := repo.ListByUser(ctx, "u-list")
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, newer.ID, got[0].ID)
		assert.Equal(t, older.ID, got[1].ID)

		all, err := repo.List(ctx)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, len(all), 2)
		assert.Equal(t, newer.ID, all[0].ID)
	})

	t.Run("UpdateStatusCompareAndSet", func(t *testing.T) {
		o := newOrder("u-status", "", base)
		require.NoError(t, repo.Create(ctx, o))

		require.NoError(t, repo.UpdateStatus(ctx, o.ID, order.StatusPending, order.StatusConfirmed, nil))
		err := repo.UpdateStatus(ctx, o.ID, order.StatusPending, order.StatusCancelled, nil)
		require.ErrorIs(t, err, order.ErrStatusConflict)

		delivered := base.Add(30 * time.Minute)
		require.NoError(t, repo.UpdateStatus(ctx, o.ID, order.StatusConfirmed, order.StatusDelivered, &delivered))

		got, err := repo.Get(ctx, o.ID)
		require.NoError(t, err)
		assert.Equal(t, order.StatusDelivered, got.Status)
		require.NotNil(t, got.DeliveredAt)
		assert.Equal(t, delivered, *got.DeliveredAt)

		err = repo.UpdateStatus(ctx, uuid.New().String(), order.StatusPending, order.StatusConfirmed, nil)
		require.ErrorIs(t, err, order.ErrNotFound)
	})

	t.Run("GetMissing", func(t *testing.T) {
		_, err := repo.Get(ctx, uuid.New().String())
		require.ErrorIs(t, err, order.ErrNotFound)
	})

	t.Run("EachIdempotencyKey", func(t *testing.T) {
		pairs := map[string]bool{}
		err := repo.EachIdempotencyKey(ctx, func(userID, key string) error {
			pairs[userID+"/"+key] = true
			return nil
		})
		require.NoError(t, err)
		assert.True(t, pairs["u-key/k1"])
		assert.True(t, pairs["u-other/k1"])
	})
}
