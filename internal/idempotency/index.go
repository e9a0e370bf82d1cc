// Package idempotency keeps an in-process index of idempotency keys that
// have already produced an order.
package idempotency

import (
	"context"
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
)

const (
	defaultCapacity = 1_000_000
	defaultFPR      = 0.001
)

// KeySource enumerates stored (user, key) pairs, used to warm the index on
// startup.
type KeySource interface {
	EachIdempotencyKey(ctx context.Context, fn func(userID, key string) error) error
}

// Index is a bloom filter over (user, key) pairs. A negative answer is
// definitive, so callers may skip the store lookup. A positive answer only
// means the key may have been used.
type Index struct {
	mu     sync.RWMutex
	filter *bloom.BloomFilter
}

// NewIndex creates an index sized for capacity keys. Zero selects the
// default capacity.
func NewIndex(capacity uint) *Index {
	if capacity == 0 {
		capacity = defaultCapacity
	}
	return &Index{filter: bloom.NewWithEstimates(capacity, defaultFPR)}
}

func entry(userID, key string) string {
	return userID + "\x00" + key
}

// MaybeSeen reports whether key may already have been used by userID.
func (x *Index) MaybeSeen(userID, key string) bool {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.filter.TestString(entry(userID, key))
}

// Add records key as used by userID.
func (x *Index) Add(userID, key string) {
	x.mu.Lock()
	x.filter.AddString(entry(userID, key))
	x.mu.Unlock()
}

// Warm adds every pair produced by src and returns how many were added.
func (x *Index) Warm(ctx context.Context, src KeySource) (int, error) {
	var n int
	err := src.EachIdempotencyKey(ctx, func(userID, key string) error {
		x.Add(userID, key)
		n++
		return nil
	})
	if err != nil {
		return n, errors.Wrap(err, "scan idempotency keys")
	}
	return n, nil
}
