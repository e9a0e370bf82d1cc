package order

import "github.com/shopspring/decimal"

// Stats summarises a set of orders for the admin dashboard.
type Stats struct {
	Total              int
	PendingOrPreparing int
	Delivered          int
	Revenue            decimal.Decimal
}

// Summarize folds orders into dashboard counters. Revenue is the sum of
// every order total regardless of status.
func Summarize(orders []Order) Stats {
	st := Stats{Revenue: decimal.Zero}
	for _, o := range orders {
		st.Total++
		switch o.Status {
		case StatusPending, StatusPreparing:
			st.PendingOrPreparing++
		case StatusDelivered:
			st.Delivered++
		}
		st.Revenue = st.Revenue.Add(o.TotalAmount)
	}
	return st
}
