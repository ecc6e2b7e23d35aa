package response

import (
	"github.com/shopspring/decimal"
)

// Product is the display data needed to put a product into an anonymous cart.
type Product struct {
	ID              int64           `json:"id"`
	Name            string          `json:"name"`
	MainImage       string          `json:"mainImage"`
	Price           decimal.Decimal `json:"price"`
	DiscountPercent decimal.Decimal `json:"discountPercent"`
}
