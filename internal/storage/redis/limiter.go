package redis

import (
	"context"
	"strconv"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"github.com/xenking/dream-snack/pkg/httpmiddleware"
)

var _ httpmiddleware.Limiter = (*Limiter)(nil)

// Limiter is a sliding window limiter shared by all instances. Each key is
// a sorted set of request timestamps; entries older than the window are
// trimmed on every check.
type Limiter struct {
	rdb    *redis.Client
	prefix string
	max    int
	window time.Duration
}

// NewLimiter allows max requests per key within any window-long interval.
// name separates limiters sharing one Redis.
func NewLimiter(rdb *redis.Client, name string, max int, window time.Duration) *Limiter {
	return &Limiter{
		rdb:    rdb,
		prefix: Namespace + "ratelimit:" + name + ":",
		max:    max,
		window: window,
	}
}

func (l *Limiter) Allow(ctx context.Context, key string, now time.Time) (httpmiddleware.Decision, error) {
	k := l.prefix + key
	member := uuid.NewString()
	windowStart := strconv.FormatInt(now.Add(-l.window).UnixMicro(), 10)

	var (
		card   *redis.IntCmd
		oldest *redis.ZSliceCmd
	)
	_, err := l.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRemRangeByScore(ctx, k, "-inf", "("+windowStart)
		pipe.ZAdd(ctx, k, &redis.Z{Score: float64(now.UnixMicro()), Member: member})
		card = pipe.ZCard(ctx, k)
		oldest = pipe.ZRangeWithScores(ctx, k, 0, 0)
		pipe.PExpire(ctx, k, 2*l.window)
		return nil
	})
	if err != nil {
		return httpmiddleware.Decision{}, errors.Wrap(err, "rate limit pipeline")
	}

	d := httpmiddleware.Decision{Limit: l.max, ResetAt: now.Add(l.window)}
	if zs := oldest.Val(); len(zs) > 0 {
		d.ResetAt = time.UnixMicro(int64(zs[0].Score)).UTC().Add(l.window)
	}

	count := int(card.Val())
	if count > l.max {
		// Rejected requests do not consume capacity.
		if err := l.rdb.ZRem(ctx, k, member).Err(); err != nil {
			return httpmiddleware.Decision{}, errors.Wrap(err, "undo rate limit entry")
		}
		return d, nil
	}

	d.Allowed = true
	d.Remaining = l.max - count
	return d, nil
}
