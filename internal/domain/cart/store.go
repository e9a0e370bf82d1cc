package cart

import (
	"context"
	"encoding/json"

	"github.com/go-faster/errors"

	"github.com/xenking/dream-snack/internal/domain/catalog"
	"github.com/xenking/dream-snack/internal/kv"
)

const keyPrefix = "cart/v1/"

// Key returns the storage key of the cart owned by userID.
func Key(userID string) string {
	return keyPrefix + userID
}

type storedLine struct {
	ItemID   int `json:"itemId"`
	Quantity int `json:"quantity"`
}

// Store persists carts per user. Only item ids and quantities are stored;
// item details are resolved from the catalog on load.
type Store struct {
	kv kv.Storage
}

// NewStore returns a Store over the given storage.
func NewStore(s kv.Storage) *Store {
	return &Store{kv: s}
}

// Load returns the cart of userID, or an empty cart when none is stored.
// Lines referring to items no longer on the menu are dropped.
func (s *Store) Load(ctx context.Context, userID string) (*Cart, error) {
	data, err := s.kv.Get(ctx, Key(userID))
	if err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return New(), nil
		}
		return nil, errors.Wrap(err, "get cart")
	}

	var stored []storedLine
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, errors.Wrap(err, "decode cart")
	}

	lines := make([]Line, 0, len(stored))
	for _, sl := range stored {
		it, err := catalog.Lookup(sl.ItemID)
		if err != nil {
			continue
		}
		lines = append(lines, Line{Item: it, Quantity: sl.Quantity})
	}
	return New(lines...), nil
}

// Save overwrites the stored cart of userID. An empty cart is deleted.
func (s *Store) Save(ctx context.Context, userID string, c *Cart) error {
	if c.Empty() {
		return s.Delete(ctx, userID)
	}

	stored := make([]storedLine, 0, c.Len())
	for _, l := range c.lines {
		stored = append(stored, storedLine{ItemID: l.Item.ID, Quantity: l.Quantity})
	}
	data, err := json.Marshal(stored)
	if err != nil {
		return errors.Wrap(err, "encode cart")
	}
	if err := s.kv.Set(ctx, Key(userID), data); err != nil {
		return errors.Wrap(err, "set cart")
	}
	return nil
}

// Delete removes the stored cart of userID.
func (s *Store) Delete(ctx context.Context, userID string) error {
	if err := s.kv.Delete(ctx, Key(userID)); err != nil {
		return errors.Wrap(err, "delete cart")
	}
	return nil
}
