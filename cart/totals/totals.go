// Package totals derives item counts and amounts from cart lines. Everything here is pure.
package totals

import (
	"github.com/shopspring/decimal"

	"github.com/Alturino/storefront/cart/pkg/response"
)

func ItemCount(items []response.LineItem) int {
	count := 0
	for _, item := range items {
		count += item.Quantity
	}
	return count
}

func Amount(items []response.LineItem) decimal.Decimal {
	amount := decimal.Zero
	for _, item := range items {
		amount = amount.Add(item.Subtotal())
	}
	return amount
}

func Selected(items []response.LineItem, selected map[int64]struct{}) []response.LineItem {
	out := make([]response.LineItem, 0, len(selected))
	for _, item := range items {
		if _, ok := selected[item.ProductID]; ok {
			out = append(out, item)
		}
	}
	return out
}

func Compute(items []response.LineItem, selected map[int64]struct{}) response.Totals {
	selectedItems := Selected(items, selected)
	return response.Totals{
		TotalItemCount:    ItemCount(items),
		TotalAmount:       Amount(items),
		SelectedItemCount: ItemCount(selectedItems),
		SelectedAmount:    Amount(selectedItems),
	}
}

// Payable is what the buyer pays at checkout.
func Payable(selectedAmount decimal.Decimal, shippingCost decimal.Decimal) decimal.Decimal {
	return selectedAmount.Add(shippingCost)
}
