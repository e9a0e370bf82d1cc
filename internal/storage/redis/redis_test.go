package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/dream-snack/internal/kv"
)

func setupRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestStore_RoundTrip(t *testing.T) {
	mr, rdb := setupRedis(t)
	s := NewStore(rdb)
	ctx := context.Background()

	_, err := s.Get(ctx, "cart/v1/u1")
	require.ErrorIs(t, err, kv.ErrNotFound)

	require.NoError(t, s.Set(ctx, "cart/v1/u1", []byte(`[{"itemId":1,"quantity":2}]`)))
	got, err := s.Get(ctx, "cart/v1/u1")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"itemId":1,"quantity":2}]`, string(got))
	assert.True(t, mr.Exists("snack:cart/v1/u1"))

	require.NoError(t, s.Set(ctx, "a", []byte("1")))
	require.NoError(t, s.Delete(ctx, "cart/v1/u1", "a", "missing"))
	_, err = s.Get(ctx, "a")
	require.ErrorIs(t, err, kv.ErrNotFound)

	require.NoError(t, s.Delete(ctx))
	require.NoError(t, s.Ping(ctx))
}

func TestStore_ConnectionError(t *testing.T) {
	mr, rdb := setupRedis(t)
	s := NewStore(rdb)
	mr.Close()

	_, err := s.Get(context.Background(), "k")
	require.Error(t, err)
	assert.NotErrorIs(t, err, kv.ErrNotFound)
}

func TestDial(t *testing.T) {
	mr, _ := setupRedis(t)

	rdb, err := Dial(context.Background(), "redis://"+mr.Addr()+"/0")
	require.NoError(t, err)
	require.NoError(t, rdb.Close())

	_, err = Dial(context.Background(), "not a url")
	require.Error(t, err)
}

func TestLimiter(t *testing.T) {
	_, rdb := setupRedis(t)
	l := NewLimiter(rdb, "chat", 3, time.Minute)
	ctx := context.Background()
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	for i := range 3 {
		d, err := l.Allow(ctx, "1.2.3.4", now.Add(time.Duration(i)*time.Second))
		require.NoError(t, err)
		require.True(t, d.Allowed)
		assert.Equal(t, 2-i, d.Remaining)
		assert.Equal(t, 3, d.Limit)
	}

	d, err := l.Allow(ctx, "1.2.3.4", now.Add(10*time.Second))
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, now.Add(time.Minute), d.ResetAt)
	assert.Equal(t, time.UTC, d.ResetAt.Location())

	// Rejections do not extend the block.
	d, err = l.Allow(ctx, "1.2.3.4", now.Add(time.Minute+500*time.Millisecond))
	require.NoError(t, err)
	assert.True(t, d.Allowed)

	// Other keys are independent.
	d, err = l.Allow(ctx, "5.6.7.8", now)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}

func TestLimiter_SeparateNames(t *testing.T) {
	_, rdb := setupRedis(t)
	ctx := context.Background()
	now := time.Now()

	api := NewLimiter(rdb, "api", 1, time.Minute)
	chat := NewLimiter(rdb, "chat", 1, time.Minute)

	d, err := api.Allow(ctx, "k", now)
	require.NoError(t, err)
	require.True(t, d.Allowed)

	d, err = chat.Allow(ctx, "k", now)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}
