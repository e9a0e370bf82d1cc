package settings

import (
	"context"
	"strings"

	"github.com/go-faster/errors"
)

// ErrAddressNotFound is returned when an address id is not in the book.
var ErrAddressNotFound = errors.New("address not found")

// Address is a saved delivery address. Exactly one address of a non-empty
// book is the default.
type Address struct {
	ID        string `json:"id"`
	Name      string `json:"name" validate:"required"`
	Address   string `json:"address" validate:"required"`
	Phone     string `json:"phone" validate:"required"`
	IsDefault bool   `json:"isDefault"`
}

func (a *Address) trim() {
	a.Name = strings.TrimSpace(a.Name)
	a.Address = strings.TrimSpace(a.Address)
	a.Phone = strings.TrimSpace(a.Phone)
}

// Addresses returns the address book of userID in insertion order.
func (s *Store) Addresses(ctx context.Context, userID string) ([]Address, error) {
	var book []Address
	if _, err := s.load(ctx, userID, SectionAddresses, &book); err != nil {
		return nil, err
	}
	if book == nil {
		book = []Address{}
	}
	return book, nil
}

func (s *Store) saveBook(ctx context.Context, userID string, book []Address) error {
	if len(book) == 0 {
		if err := s.kv.Delete(ctx, Key(userID, SectionAddresses)); err != nil {
			return errors.Wrap(err, "delete addresses")
		}
		return nil
	}
	return s.save(ctx, userID, SectionAddresses, book)
}

func find(book []Address, id string) int {
	for i := range book {
		if book[i].ID == id {
			return i
		}
	}
	return -1
}

func makeDefault(book []Address, i int) {
	for j := range book {
		book[j].IsDefault = j == i
	}
}

// AddAddress appends a to the book. The first address always becomes the
// default; a later one does when a.IsDefault is set.
func (s *Store) AddAddress(ctx context.Context, userID string, a Address) (*Address, error) {
	a.trim()
	if err := check(a); err != nil {
		return nil, err
	}
	book, err := s.Addresses(ctx, userID)
	if err != nil {
		return nil, err
	}

	a.ID = s.ids()
	book = append(book, a)
	if len(book) == 1 || a.IsDefault {
		makeDefault(book, len(book)-1)
	}
	if err := s.saveBook(ctx, userID, book); err != nil {
		return nil, err
	}
	added := book[len(book)-1]
	return &added, nil
}

// UpdateAddress replaces the name, address and phone of address id. The
// default flag is only changed through SetDefaultAddress.
func (s *Store) UpdateAddress(ctx context.Context, userID, id string, a Address) (*Address, error) {
	a.trim()
	if err := check(a); err != nil {
		return nil, err
	}
	book, err := s.Addresses(ctx, userID)
	if err != nil {
		return nil, err
	}
	i := find(book, id)
	if i < 0 {
		return nil, ErrAddressNotFound
	}

	book[i].Name = a.Name
	book[i].Address = a.Address
	book[i].Phone = a.Phone
	if err := s.saveBook(ctx, userID, book); err != nil {
		return nil, err
	}
	updated := book[i]
	return &updated, nil
}

// DeleteAddress removes address id. Removing the default promotes the
// first remaining address.
func (s *Store) DeleteAddress(ctx context.Context, userID, id string) error {
	book, err := s.Addresses(ctx, userID)
	if err != nil {
		return err
	}
	i := find(book, id)
	if i < 0 {
		return ErrAddressNotFound
	}

	wasDefault := book[i].IsDefault
	book = append(book[:i], book[i+1:]...)
	if wasDefault && len(book) > 0 {
		makeDefault(book, 0)
	}
	return s.saveBook(ctx, userID, book)
}

// SetDefaultAddress makes address id the only default.
func (s *Store) SetDefaultAddress(ctx context.Context, userID, id string) error {
	book, err := s.Addresses(ctx, userID)
	if err != nil {
		return err
	}
	i := find(book, id)
	if i < 0 {
		return ErrAddressNotFound
	}
	makeDefault(book, i)
	return s.saveBook(ctx, userID, book)
}
