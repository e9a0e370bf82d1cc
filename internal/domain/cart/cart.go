// Package cart implements the per-session shopping cart.
//
// A Cart is an ordered collection of lines keyed by menu item id. It is a
// plain value owned by one session; callers load it from a Store, mutate it
// and save it back.
package cart

import (
	"github.com/shopspring/decimal"

	"github.com/xenking/dream-snack/internal/domain/catalog"
)

// Line is one catalog item plus a quantity. Quantity is always >= 1 for a
// line held by a Cart.
type Line struct {
	Item     catalog.MenuItem
	Quantity int
}

// Subtotal returns price × quantity for the line.
func (l Line) Subtotal() decimal.Decimal {
	return l.Item.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Cart holds lines in insertion order.
type Cart struct {
	lines []Line
}

// New returns a cart pre-populated with lines. Lines with a non-positive
// quantity are dropped and repeated items are merged.
func New(lines ...Line) *Cart {
	c := &Cart{}
	for _, l := range lines {
		if l.Quantity <= 0 {
			continue
		}
		if i := c.index(l.Item.ID); i >= 0 {
			c.lines[i].Quantity += l.Quantity
			continue
		}
		c.lines = append(c.lines, l)
	}
	return c
}

func (c *Cart) index(id int) int {
	for i, l := range c.lines {
		if l.Item.ID == id {
			return i
		}
	}
	return -1
}

// AddItem increments the quantity of item by one, inserting it with
// quantity 1 when absent.
func (c *Cart) AddItem(item catalog.MenuItem) {
	if i := c.index(item.ID); i >= 0 {
		c.lines[i].Quantity++
		return
	}
	c.lines = append(c.lines, Line{Item: item, Quantity: 1})
}

// SetQuantity sets the quantity of the line for id. A quantity of zero
// removes the line. Unknown ids are ignored.
//
// Negative quantities are not rejected here; the HTTP layer refuses them.
func (c *Cart) SetQuantity(id, n int) {
	i := c.index(id)
	if i < 0 {
		return
	}
	if n == 0 {
		c.lines = append(c.lines[:i], c.lines[i+1:]...)
		return
	}
	c.lines[i].Quantity = n
}

// Remove drops the line for id.
func (c *Cart) Remove(id int) {
	c.SetQuantity(id, 0)
}

// Clear empties the cart.
func (c *Cart) Clear() {
	c.lines = nil
}

// Len returns the number of lines.
func (c *Cart) Len() int {
	return len(c.lines)
}

// Empty reports whether the cart has no lines.
func (c *Cart) Empty() bool {
	return len(c.lines) == 0
}

// Quantity returns the quantity held for id, or zero.
func (c *Cart) Quantity(id int) int {
	if i := c.index(id); i >= 0 {
		return c.lines[i].Quantity
	}
	return 0
}

// Lines returns a copy of the current lines.
func (c *Cart) Lines() []Line {
	out := make([]Line, len(c.lines))
	copy(out, c.lines)
	return out
}

// Total is the sum of price × quantity over all lines.
func (c *Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, l := range c.lines {
		total = total.Add(l.Subtotal())
	}
	return total
}
