package orders

import "github.com/avoronkov/laptopshop-backend/pkg/db/models"

// Sum totals an order's line items from their stored snapshots. Both order
// assembly and payment reconciliation price through this one function, so the
// amount a buyer is charged and the amount the gateway is checked against can
// never drift apart. Delivery cost is display-only and never enters the sum.
func Sum(items []models.OrderLineItem) int {
	total := 0
	for _, item := range items {
		total += (item.BasePrice + item.AdditionalPrice) * item.Quantity
	}
	return total
}
