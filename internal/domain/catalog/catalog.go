// Package catalog holds the compiled-in menu of the storefront.
package catalog

import (
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested menu item does not exist.
var ErrNotFound = errors.New("menu item not found")

// Category groups menu items on the menu page.
type Category string

const (
	CategoryBeverage Category = "beverage"
	CategorySnack    Category = "snack"
	CategorySweet    Category = "sweet"
)

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryBeverage, CategorySnack, CategorySweet:
		return true
	}
	return false
}

// MenuItem represents a purchasable item. Prices are whole rupees.
type MenuItem struct {
	ID          int
	Name        string
	Category    Category
	Price       decimal.Decimal
	Description string
	Popular     bool
}

func item(id int, name string, c Category, price int64, desc string, popular bool) MenuItem {
	return MenuItem{
		ID:          id,
		Name:        name,
		Category:    c,
		Price:       decimal.NewFromInt(price),
		Description: desc,
		Popular:     popular,
	}
}

var menu = []MenuItem{
	item(1, "Indian Chai", CategoryBeverage, 15, "Traditional homemade tea with aromatic spices", true),
	item(2, "Cappuccino", CategoryBeverage, 20, "Fresh coffee with creamy milk foam", true),
	item(3, "Green Tea", CategoryBeverage, 15, "Healthy herbal tea with antioxidants", false),
	item(4, "Black Coffee", CategoryBeverage, 18, "Strong black coffee for coffee lovers", false),
	item(5, "Masala Chai", CategoryBeverage, 18, "Special spiced tea with ginger and cardamom", false),
	item(6, "Lemon Tea", CategoryBeverage, 15, "Refreshing tea with fresh lemon", false),
	item(7, "Hot Chocolate", CategoryBeverage, 25, "Rich and creamy chocolate drink", false),
	item(8, "Cold Coffee", CategoryBeverage, 25, "Chilled coffee with ice cream", true),

	item(9, "Corn Snacks Mix", CategorySnack, 25, "Crispy corn mixture with spices", true),
	item(10, "Mixed Namkeen", CategorySnack, 30, "Traditional Indian savory snacks mix", false),
	item(11, "Sweet Corn", CategorySnack, 20, "Boiled sweet corn with butter and spices", false),
	item(12, "Popcorn", CategorySnack, 15, "Fresh homemade buttery popcorn", false),
	item(13, "Samosa", CategorySnack, 20, "Crispy fried pastry with spiced potato filling", true),
	item(14, "Kachori", CategorySnack, 20, "Deep-fried snack with lentil filling", false),
	item(15, "Dhokla", CategorySnack, 25, "Steamed savory cake made from gram flour", false),
	item(16, "Vada Pav", CategorySnack, 25, "Mumbai's famous potato fritter sandwich", false),

	item(17, "Gulab Jamun", CategorySweet, 30, "Soft milk dumplings in sugar syrup", true),
	item(18, "Rasgulla", CategorySweet, 25, "Spongy cottage cheese balls in syrup", false),
	item(19, "Jalebi", CategorySweet, 25, "Crispy spiral sweet soaked in syrup", false),
	item(20, "Ladoo", CategorySweet, 20, "Traditional round sweet balls", false),
	item(21, "Barfi", CategorySweet, 30, "Sweet condensed milk fudge", false),
	item(22, "Halwa", CategorySweet, 25, "Traditional sweet pudding", false),
}

var deliveryAreas = []string{
	"Kamla Nagar",
	"Balkeshwar",
	"Adarsh Nagar",
	"Karmyogi",
}

// Items returns the full menu in display order.
func Items() []MenuItem {
	out := make([]MenuItem, len(menu))
	copy(out, menu)
	return out
}

// Lookup returns the menu item with the given id.
func Lookup(id int) (MenuItem, error) {
	for _, it := range menu {
		if it.ID == id {
			return it, nil
		}
	}
	return MenuItem{}, ErrNotFound
}

// ByCategory returns the items of a single category in display order.
func ByCategory(c Category) []MenuItem {
	var out []MenuItem
	for _, it := range menu {
		if it.Category == c {
			out = append(out, it)
		}
	}
	return out
}

// Popular returns items flagged as popular.
func Popular() []MenuItem {
	var out []MenuItem
	for _, it := range menu {
		if it.Popular {
			out = append(out, it)
		}
	}
	return out
}

// DeliveryAreas lists the neighbourhoods the kitchen delivers to.
func DeliveryAreas() []string {
	out := make([]string, len(deliveryAreas))
	copy(out, deliveryAreas)
	return out
}
