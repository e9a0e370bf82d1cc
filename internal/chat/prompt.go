package chat

import (
	"fmt"
	"strings"

	"github.com/xenking/dream-snack/internal/domain/catalog"
)

var categoryTitles = map[catalog.Category]string{
	catalog.CategoryBeverage: "Beverages",
	catalog.CategorySnack:    "Snacks",
	catalog.CategorySweet:    "Sweets",
}

// SystemPrompt describes the store to the model. The menu section is
// generated from the catalog so prices always match checkout.
func SystemPrompt() string {
	var b strings.Builder
	b.WriteString(`You are Dream Snack Bot, the assistant of Dream Snack, a homemade snack and tea delivery service.

Answer questions about the menu, ordering, delivery and payments. Be warm and brief. When you do not know something, point the customer to the Menu, Orders, Help Center or Settings page instead of guessing.

MENU (prices in rupees):
`)
	for _, c := range []catalog.Category{catalog.CategoryBeverage, catalog.CategorySnack, catalog.CategorySweet} {
		fmt.Fprintf(&b, "%s:\n", categoryTitles[c])
		for _, it := range catalog.ByCategory(c) {
			fmt.Fprintf(&b, "- %s (₹%s): %s", it.Name, it.Price.String(), it.Description)
			if it.Popular {
				b.WriteString(" [popular]")
			}
			b.WriteByte('\n')
		}
	}

	b.WriteString("\nDELIVERY:\n- Orders usually arrive within 10 minutes.\n- We deliver to: ")
	b.WriteString(strings.Join(catalog.DeliveryAreas(), ", "))
	b.WriteString(`.

PAYMENT:
- Cash on delivery, UPI (Google Pay, PhonePe, Paytm), debit or credit cards, net banking.

ORDERING:
Add items to the cart, open checkout, enter name, phone and delivery address, pick a payment method and place the order. Order status can be followed on the Orders page: pending, confirmed, preparing, out for delivery, delivered.

FAQ:
- Everything is prepared fresh every day.
- For allergies or dietary needs, check the item description or contact us through the Help Center.
`)
	return b.String()
}
